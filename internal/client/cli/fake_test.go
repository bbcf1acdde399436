package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/dmitrijs2005/cloudpool/internal/api"
	"github.com/dmitrijs2005/cloudpool/internal/client/client"
	"github.com/dmitrijs2005/cloudpool/internal/client/config"
)

type fakeClient struct {
	tokens    client.Tokens
	refreshTo *client.Tokens
	closed    bool

	regUser     string
	regSalt     []byte
	regVerifier []byte
	regErr      error

	salt          []byte
	loginVerifier []byte
	loginTokens   client.Tokens

	uploadReq *api.UploadRequest
	listTeam  string
	files     []api.FileInfo
	getResp   *api.GetResponse
	getErr    error
	deleteID  string
	shareID   string
	shareProf []string
	orphans   *api.OrphanedResponse
	stats     *api.StorageStatsResponse
	linked    []api.LinkedAccount
	linkReq   *api.LinkAccountRequest
	unlinkReq *api.UnlinkAccountRequest
	impact    *api.DisconnectImpactResponse
}

var _ client.Client = (*fakeClient)(nil)

func (f *fakeClient) Close() error { f.closed = true; return nil }
func (f *fakeClient) Ping(ctx context.Context) error {
	return nil
}
func (f *fakeClient) Register(ctx context.Context, username string, salt []byte, verifier []byte) error {
	f.regUser, f.regSalt, f.regVerifier = username, salt, verifier
	return f.regErr
}
func (f *fakeClient) GetSalt(ctx context.Context, username string) ([]byte, error) {
	return f.salt, nil
}
func (f *fakeClient) Login(ctx context.Context, username string, verifier []byte) (client.Tokens, error) {
	f.loginVerifier = verifier
	f.tokens = f.loginTokens
	return f.loginTokens, nil
}
func (f *fakeClient) Tokens() client.Tokens  { return f.tokens }
func (f *fakeClient) SetTokens(t client.Tokens) { f.tokens = t }

func (f *fakeClient) maybeRefresh() {
	if f.refreshTo != nil {
		f.tokens = *f.refreshTo
	}
}

func (f *fakeClient) Upload(ctx context.Context, req *api.UploadRequest) (api.FileInfo, error) {
	f.uploadReq = req
	return api.FileInfo{ID: "f1", FileName: req.FileName, TotalSize: int64(len(req.Data)), Parts: 2}, nil
}
func (f *fakeClient) List(ctx context.Context, teamID string) ([]api.FileInfo, error) {
	f.listTeam = teamID
	f.maybeRefresh()
	return f.files, nil
}
func (f *fakeClient) Get(ctx context.Context, fileID string) (*api.GetResponse, error) {
	return f.getResp, f.getErr
}
func (f *fakeClient) Delete(ctx context.Context, fileID string) (*api.DeleteResponse, error) {
	f.deleteID = fileID
	return &api.DeleteResponse{Deleted: 3, Failed: 0, Inaccessible: 1, DeletedBy: "owner"}, nil
}
func (f *fakeClient) Orphaned(ctx context.Context) (*api.OrphanedResponse, error) {
	return f.orphans, nil
}
func (f *fakeClient) Share(ctx context.Context, fileID string, profiles []string) (api.FileInfo, error) {
	f.shareID, f.shareProf = fileID, profiles
	return api.FileInfo{FileName: "a.txt", TargetProfiles: profiles}, nil
}
func (f *fakeClient) StorageStats(ctx context.Context, teamID string) (*api.StorageStatsResponse, error) {
	return f.stats, nil
}
func (f *fakeClient) LinkedAccounts(ctx context.Context, teamID string) ([]api.LinkedAccount, error) {
	return f.linked, nil
}
func (f *fakeClient) LinkAccount(ctx context.Context, req *api.LinkAccountRequest) error {
	f.linkReq = req
	return nil
}
func (f *fakeClient) UnlinkAccount(ctx context.Context, req *api.UnlinkAccountRequest) (*api.UnlinkAccountResponse, error) {
	f.unlinkReq = req
	return &api.UnlinkAccountResponse{Removed: 1, Remaining: 2}, nil
}
func (f *fakeClient) DisconnectImpact(ctx context.Context, provider, accountEmail string) (*api.DisconnectImpactResponse, error) {
	return f.impact, nil
}

func newTestApp(t *testing.T, f *fakeClient) (*App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	var out, errOut bytes.Buffer
	return newApp(cfg, f, strings.NewReader(""), &out, &errOut), &out, &errOut
}

func stubInputs(t *testing.T, username string, secrets ...string) {
	t.Helper()
	origST, origGS := getSimpleText, getSecret
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) { return username, nil }
	getSecret = func(_ string, _ io.Writer) ([]byte, error) {
		if len(secrets) == 0 {
			return nil, nil
		}
		s := secrets[0]
		secrets = secrets[1:]
		return []byte(s), nil
	}
	t.Cleanup(func() {
		getSimpleText = origST
		getSecret = origGS
	})
}
