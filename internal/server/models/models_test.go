package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccountAndPartKeysAgree(t *testing.T) {
	a := Account{Provider: ProviderGoogle, AccountEmail: "a@x.io"}
	p := FilePart{Provider: ProviderGoogle, AccountEmail: "a@x.io"}

	assert.Equal(t, "google:a@x.io", a.Key())
	assert.Equal(t, a.Key(), p.Key())
}

func TestAllocationPlan_Total(t *testing.T) {
	plan := AllocationPlan{{ByteLength: 10}, {ByteLength: 5, Order: 1}}
	assert.Equal(t, int64(15), plan.Total())
	assert.Zero(t, AllocationPlan(nil).Total())
}

func TestTeam_HasProfile(t *testing.T) {
	team := &Team{Profiles: DefaultTeamProfiles}
	assert.True(t, team.HasProfile("tech-devs"))
	assert.False(t, team.HasProfile("marketing"))
}

func TestFileManifest_IsTeam(t *testing.T) {
	assert.False(t, (&FileManifest{}).IsTeam())
	assert.True(t, (&FileManifest{TeamID: "t1"}).IsTeam())
}

func TestRefreshToken_Expired(t *testing.T) {
	now := time.Now()
	assert.True(t, (&RefreshToken{ExpiresAt: now}).Expired(now))
	assert.False(t, (&RefreshToken{ExpiresAt: now.Add(time.Second)}).Expired(now))
}
