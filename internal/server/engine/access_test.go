package engine

import (
	"testing"

	"github.com/dmitrijs2005/cloudpool/internal/server/models"
	"github.com/stretchr/testify/assert"
)

func TestAccessHelpers(t *testing.T) {
	m := threePartManifest()
	all := AccountKeys([]models.Account{account(models.ProviderGoogle, "a@x.io"), account(models.ProviderDropbox, "gone@x.io")})
	some := AccountKeys([]models.Account{account(models.ProviderGoogle, "a@x.io")})

	assert.True(t, FullyAccessible(all, m))
	assert.False(t, Orphaned(all, m))
	assert.Empty(t, InaccessibleParts(all, m))
	assert.NoError(t, InaccessibleError(all, m))

	assert.False(t, FullyAccessible(some, m))
	assert.True(t, Orphaned(some, m))
	assert.Len(t, InaccessibleParts(some, m), 1)
	assert.Equal(t, []string{"dropbox:gone@x.io"}, MissingAccounts(some, m))

	assert.True(t, UsesAccount("dropbox:gone@x.io", m))
	assert.False(t, UsesAccount("s3:bucket", m))
}

func TestMissingAccounts_Distinct(t *testing.T) {
	m := threePartManifest()
	m.Parts[0].AccountEmail = "gone@x.io"
	m.Parts[0].Provider = models.ProviderDropbox

	assert.Equal(t, []string{"dropbox:gone@x.io", "google:a@x.io"}, MissingAccounts(KeySet{}, m))
}

func TestEmptyManifestIsAccessible(t *testing.T) {
	m := &models.FileManifest{}
	assert.True(t, FullyAccessible(KeySet{}, m))
	assert.False(t, Orphaned(KeySet{}, m))
}
