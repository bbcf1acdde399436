package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/cloudpool/internal/api"
	"github.com/dmitrijs2005/cloudpool/internal/common"
	"github.com/dmitrijs2005/cloudpool/internal/server/auth"
	"github.com/dmitrijs2005/cloudpool/internal/server/models"
	"github.com/dmitrijs2005/cloudpool/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func TestPing_NoToken(t *testing.T) {
	h := newHarness(t)

	resp, err := h.client.Ping(context.Background(), &api.PingRequest{})
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.Status)
}

func TestProtectedMethod_RequiresToken(t *testing.T) {
	h := newHarness(t)

	_, err := h.client.List(context.Background(), &api.ListRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	bad := metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, "garbage")
	_, err = h.client.List(bad, &api.ListRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	tok, err := auth.GenerateToken("u1", []byte(testSecret), -time.Minute)
	require.NoError(t, err)
	expired := metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, tok)
	_, err = h.client.List(expired, &api.ListRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestAuthMethods(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.users.regResp = &models.User{ID: "u1"}
	h.users.saltResp = []byte("salt")
	h.users.loginResp = &services.TokenPair{AccessToken: "a", RefreshToken: "r"}
	h.users.refreshResp = &services.TokenPair{AccessToken: "a2", RefreshToken: "r2"}

	reg, err := h.client.Register(ctx, &api.RegisterRequest{Username: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "u1", reg.UserID)

	salt, err := h.client.GetSalt(ctx, &api.GetSaltRequest{Username: "alice"})
	require.NoError(t, err)
	assert.Equal(t, []byte("salt"), salt.Salt)

	login, err := h.client.Login(ctx, &api.LoginRequest{Username: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "a", login.AccessToken)

	refreshed, err := h.client.RefreshToken(ctx, &api.RefreshTokenRequest{RefreshToken: "r"})
	require.NoError(t, err)
	assert.Equal(t, "r2", refreshed.RefreshToken)
}

func TestAuthMethods_Errors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.users.regErr = common.ErrorConflict
	h.users.loginErr = common.ErrorUnauthorized
	h.users.refreshErr = common.ErrRefreshTokenExpired

	_, err := h.client.Register(ctx, &api.RegisterRequest{Username: "alice"})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	_, err = h.client.Login(ctx, &api.LoginRequest{Username: "alice"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = h.client.RefreshToken(ctx, &api.RefreshTokenRequest{RefreshToken: "r"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestUpload(t *testing.T) {
	h := newHarness(t)
	h.files.manifest = &models.FileManifest{
		ID: "f1", OwnerID: "u1", FileName: "a.txt", TotalSize: 5, MimeType: "text/plain",
		Parts: []models.FilePart{{Order: 0}, {Order: 1}},
	}

	resp, err := h.client.Upload(authed(t, "u1"), &api.UploadRequest{FileName: "a.txt", Data: []byte("hello"), TeamID: "t1"})
	require.NoError(t, err)

	assert.Equal(t, "u1", h.files.userID)
	assert.Equal(t, []byte("hello"), h.files.upload.Data)
	assert.Equal(t, "t1", h.files.upload.TeamID)
	assert.Equal(t, api.FileInfo{ID: "f1", FileName: "a.txt", TotalSize: 5, MimeType: "text/plain", IsOwner: true, Parts: 2}, resp.File)
}

func TestUpload_NoAccounts(t *testing.T) {
	h := newHarness(t)
	h.files.err = common.ErrNoAccountsLinked

	_, err := h.client.Upload(authed(t, "u1"), &api.UploadRequest{FileName: "a.txt"})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestGet_PartsInaccessible(t *testing.T) {
	h := newHarness(t)
	h.files.err = &common.PartsInaccessibleError{Count: 1, Total: 3}

	_, err := h.client.Get(authed(t, "u1"), &api.GetRequest{FileID: testFileID})

	st, _ := status.FromError(err)
	assert.Equal(t, codes.FailedPrecondition, st.Code())
	assert.Contains(t, st.Message(), "1 of 3 parts")
}

func TestGet_ReturnsData(t *testing.T) {
	h := newHarness(t)
	h.files.manifest = &models.FileManifest{ID: "f1", OwnerID: "someone", FileName: "a.txt"}
	h.files.data = []byte("payload")

	resp, err := h.client.Get(authed(t, "u1"), &api.GetRequest{FileID: testFileID})
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), resp.Data)
	assert.False(t, resp.File.IsOwner)
}

func TestFileIDMustBeUUID(t *testing.T) {
	h := newHarness(t)
	ctx := authed(t, "u1")

	_, err := h.client.Get(ctx, &api.GetRequest{FileID: "not-a-uuid"})
	assert.Equal(t, codes.NotFound, status.Code(err))
	_, err = h.client.Delete(ctx, &api.DeleteRequest{FileID: ""})
	assert.Equal(t, codes.NotFound, status.Code(err))
	_, err = h.client.Share(ctx, &api.ShareRequest{FileID: "f1", Profiles: []string{"editors"}})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestListDeleteOrphaned(t *testing.T) {
	h := newHarness(t)
	ctx := authed(t, "u1")
	h.files.list = []services.FileInfo{{ID: "a"}, {ID: "b", IsOwner: true}}
	h.files.deleted = services.DeleteResult{Deleted: 2, Inaccessible: 1, DeletedBy: "owner"}
	h.files.orphans = services.OrphanReport{TotalFiles: 4, Files: []services.OrphanedFile{{ID: "x", MissingParts: 1, MissingAccounts: []string{"google:a"}}}}

	list, err := h.client.List(ctx, &api.ListRequest{})
	require.NoError(t, err)
	require.Len(t, list.Files, 2)
	assert.True(t, list.Files[1].IsOwner)

	del, err := h.client.Delete(ctx, &api.DeleteRequest{FileID: testFileID})
	require.NoError(t, err)
	assert.Equal(t, &api.DeleteResponse{Deleted: 2, Inaccessible: 1, DeletedBy: "owner"}, del)

	orphans, err := h.client.Orphaned(ctx, &api.OrphanedRequest{})
	require.NoError(t, err)
	assert.Equal(t, 4, orphans.TotalFiles)
	assert.Equal(t, []string{"google:a"}, orphans.Files[0].MissingAccounts)
}

func TestDelete_Forbidden(t *testing.T) {
	h := newHarness(t)
	h.files.err = common.ErrorForbidden

	_, err := h.client.Delete(authed(t, "u1"), &api.DeleteRequest{FileID: testFileID})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestShare(t *testing.T) {
	h := newHarness(t)
	h.files.manifest = &models.FileManifest{ID: "f1", TeamID: "t1", TargetProfiles: []string{"editors"}}

	resp, err := h.client.Share(authed(t, "u1"), &api.ShareRequest{FileID: testFileID, Profiles: []string{"editors"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"editors"}, resp.File.TargetProfiles)
}

func TestAccounts(t *testing.T) {
	h := newHarness(t)
	ctx := authed(t, "u1")
	h.accounts.status = []models.Account{{Provider: "google", AccountEmail: "a@x.io", AccessToken: "secret"}}
	h.accounts.unlinked = services.UnlinkResult{Removed: 1, Remaining: 0}
	h.accounts.impact = services.DisconnectImpact{Provider: "google", AccountEmail: "a@x.io", TotalFiles: 3, AffectedFiles: 1, AffectedFileNames: []string{"a.txt"}}
	h.accounts.stats = services.StorageStats{TotalAvailable: 10, TotalUsed: 5, Accounts: []services.AccountStats{{Provider: "google", Available: 10, Used: 5, Total: 15}}}

	_, err := h.client.LinkAccount(ctx, &api.LinkAccountRequest{Provider: "google", AccountEmail: "a@x.io", AccessToken: "at"})
	require.NoError(t, err)
	assert.Equal(t, "at", h.accounts.linked.AccessToken)
	assert.Equal(t, "u1", h.accounts.userID)

	linked, err := h.client.LinkedAccounts(ctx, &api.LinkedAccountsRequest{})
	require.NoError(t, err)
	assert.Equal(t, []api.LinkedAccount{{Provider: "google", AccountEmail: "a@x.io"}}, linked.Accounts)

	impact, err := h.client.DisconnectImpact(ctx, &api.DisconnectImpactRequest{Provider: "google", AccountEmail: "a@x.io"})
	require.NoError(t, err)
	assert.Equal(t, 1, impact.AffectedFiles)

	unlinked, err := h.client.UnlinkAccount(ctx, &api.UnlinkAccountRequest{Provider: "google"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), unlinked.Removed)

	stats, err := h.client.StorageStats(ctx, &api.StorageStatsRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.TotalAvailable)
	assert.Equal(t, int64(15), stats.Accounts[0].Total)
}

func TestLinkAccount_UnknownProvider(t *testing.T) {
	h := newHarness(t)
	h.accounts.err = common.ErrUnknownProvider

	_, err := h.client.LinkAccount(authed(t, "u1"), &api.LinkAccountRequest{Provider: "onedrive"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
