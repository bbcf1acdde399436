package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/cloudpool/internal/api"
	"github.com/dmitrijs2005/cloudpool/internal/common"
	"github.com/dmitrijs2005/cloudpool/internal/logging"
	"github.com/dmitrijs2005/cloudpool/internal/server/auth"
	"github.com/dmitrijs2005/cloudpool/internal/server/models"
	"github.com/dmitrijs2005/cloudpool/internal/server/services"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
)

const (
	testSecret = "k"
	testFileID = "5f0c6a4e-2b1d-4c3e-9a7f-1d2e3f4a5b6c"
)

type fakeUser struct {
	refreshResp *services.TokenPair
	refreshErr  error

	regResp *models.User
	regErr  error

	saltResp []byte
	saltErr  error

	loginResp *services.TokenPair
	loginErr  error
}

func (f *fakeUser) RefreshToken(ctx context.Context, refresh string) (*services.TokenPair, error) {
	return f.refreshResp, f.refreshErr
}
func (f *fakeUser) Register(ctx context.Context, username string, salt []byte, verifier []byte) (*models.User, error) {
	return f.regResp, f.regErr
}
func (f *fakeUser) GetSalt(ctx context.Context, username string) ([]byte, error) {
	return f.saltResp, f.saltErr
}
func (f *fakeUser) Login(ctx context.Context, username string, verifierCandidate []byte) (*services.TokenPair, error) {
	return f.loginResp, f.loginErr
}

type fakeFiles struct {
	userID string
	upload services.UploadInput

	manifest *models.FileManifest
	data     []byte
	list     []services.FileInfo
	deleted  services.DeleteResult
	orphans  services.OrphanReport
	err      error
}

func (f *fakeFiles) Upload(ctx context.Context, userID string, in services.UploadInput) (*models.FileManifest, error) {
	f.userID, f.upload = userID, in
	return f.manifest, f.err
}
func (f *fakeFiles) List(ctx context.Context, userID, teamID string) ([]services.FileInfo, error) {
	f.userID = userID
	return f.list, f.err
}
func (f *fakeFiles) Get(ctx context.Context, userID, fileID string) (*models.FileManifest, []byte, error) {
	f.userID = userID
	return f.manifest, f.data, f.err
}
func (f *fakeFiles) Delete(ctx context.Context, userID, fileID string) (services.DeleteResult, error) {
	f.userID = userID
	return f.deleted, f.err
}
func (f *fakeFiles) Orphaned(ctx context.Context, userID string) (services.OrphanReport, error) {
	f.userID = userID
	return f.orphans, f.err
}
func (f *fakeFiles) Share(ctx context.Context, userID, fileID string, profiles []string) (*models.FileManifest, error) {
	f.userID = userID
	return f.manifest, f.err
}

type fakeAccounts struct {
	userID string
	linked services.LinkInput

	status   []models.Account
	unlinked services.UnlinkResult
	impact   services.DisconnectImpact
	stats    services.StorageStats
	err      error
}

func (f *fakeAccounts) Status(ctx context.Context, userID, teamID string) ([]models.Account, error) {
	f.userID = userID
	return f.status, f.err
}
func (f *fakeAccounts) Link(ctx context.Context, userID string, in services.LinkInput) error {
	f.userID, f.linked = userID, in
	return f.err
}
func (f *fakeAccounts) Unlink(ctx context.Context, userID, teamID, provider, accountEmail string) (services.UnlinkResult, error) {
	f.userID = userID
	return f.unlinked, f.err
}
func (f *fakeAccounts) DisconnectImpact(ctx context.Context, userID, provider, accountEmail string) (services.DisconnectImpact, error) {
	f.userID = userID
	return f.impact, f.err
}
func (f *fakeAccounts) StorageStats(ctx context.Context, userID, teamID string) (services.StorageStats, error) {
	f.userID = userID
	return f.stats, f.err
}

type harness struct {
	users    *fakeUser
	files    *fakeFiles
	accounts *fakeAccounts
	client   *api.FileServiceClient
}

// newHarness serves a GRPCServer over an in-memory listener.
func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{users: &fakeUser{}, files: &fakeFiles{}, accounts: &fakeAccounts{}}
	srv := NewGRPCServer(Options{SecretKey: testSecret, MaxMessageSize: 4 << 20}, logging.Nop(), h.users, h.files, h.accounts)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		cancel()
		<-done
	})

	h.client = api.NewFileServiceClient(conn)
	return h
}

func authed(t *testing.T, userID string) context.Context {
	t.Helper()
	tok, err := auth.GenerateToken(userID, []byte(testSecret), time.Minute)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, tok)
}
