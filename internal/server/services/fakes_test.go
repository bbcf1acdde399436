package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/cloudpool/internal/common"
	"github.com/dmitrijs2005/cloudpool/internal/dbx"
	"github.com/dmitrijs2005/cloudpool/internal/server/engine"
	"github.com/dmitrijs2005/cloudpool/internal/server/models"
	"github.com/dmitrijs2005/cloudpool/internal/server/repositories/manifests"
	"github.com/dmitrijs2005/cloudpool/internal/server/repositories/owners"
	"github.com/dmitrijs2005/cloudpool/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/cloudpool/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// --- users / refresh tokens ---

type fakeUsersRepo struct {
	createOut *models.User
	createErr error

	getOut *models.User
	getErr error

	lastName string
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.lastName = u.UserName
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createOut, nil
}

func (f *fakeUsersRepo) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	f.lastName = userName
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

type fakeRefreshRepo struct {
	findOut *models.RefreshToken
	findErr error

	delErr    error
	createErr error
	created   []string
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, token)
	return nil
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error { return f.delErr }

func (f *fakeRefreshRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

// --- owners ---

type fakeOwners struct {
	mu       sync.Mutex
	accounts map[owners.Owner][]models.Account
	teams    map[string]*models.Team
	members  map[string]string // teamID/userID -> profile
	updated  []models.Account
	listErr  error
}

func newFakeOwners() *fakeOwners {
	return &fakeOwners{
		accounts: map[owners.Owner][]models.Account{},
		teams:    map[string]*models.Team{},
		members:  map[string]string{},
	}
}

func (f *fakeOwners) link(o owners.Owner, provider, email string) models.Account {
	a := models.Account{OwnerKind: o.Kind, OwnerID: o.ID, Provider: provider, AccountEmail: email, AccessToken: "at-" + email, RefreshToken: "rt"}
	f.accounts[o] = append(f.accounts[o], a)
	return a
}

func (f *fakeOwners) addTeam(id, admin string, members map[string]string) {
	f.teams[id] = &models.Team{ID: id, Name: id, AdminID: admin, Profiles: models.DefaultTeamProfiles}
	for u, p := range members {
		f.members[id+"/"+u] = p
	}
}

func (f *fakeOwners) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	t, ok := f.teams[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return t, nil
}

func (f *fakeOwners) ListAccounts(ctx context.Context, o owners.Owner) ([]models.Account, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Account(nil), f.accounts[o]...), nil
}

func (f *fakeOwners) UpsertAccount(ctx context.Context, a models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := owners.Owner{Kind: a.OwnerKind, ID: a.OwnerID}
	for i, cur := range f.accounts[o] {
		if cur.Key() == a.Key() {
			if a.RefreshToken == "" {
				a.RefreshToken = cur.RefreshToken
			}
			f.accounts[o][i] = a
			return nil
		}
	}
	f.accounts[o] = append(f.accounts[o], a)
	return nil
}

func (f *fakeOwners) RemoveAccount(ctx context.Context, o owners.Owner, provider, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := models.AccountKey(provider, email)
	for i, cur := range f.accounts[o] {
		if cur.Key() == key {
			f.accounts[o] = append(f.accounts[o][:i], f.accounts[o][i+1:]...)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeOwners) RemoveProviderAccounts(ctx context.Context, o owners.Owner, provider string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []models.Account
	var n int64
	for _, cur := range f.accounts[o] {
		if cur.Provider == provider {
			n++
			continue
		}
		kept = append(kept, cur)
	}
	f.accounts[o] = kept
	return n, nil
}

func (f *fakeOwners) UpdateTokens(ctx context.Context, a models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, a)
	return nil
}

func (f *fakeOwners) IsTeamMember(ctx context.Context, teamID, userID string) (bool, error) {
	_, ok := f.members[teamID+"/"+userID]
	return ok, nil
}

func (f *fakeOwners) TeamMemberProfile(ctx context.Context, teamID, userID string) (string, error) {
	p, ok := f.members[teamID+"/"+userID]
	if !ok {
		return "", common.ErrorNotFound
	}
	return p, nil
}

// --- manifests ---

type fakeManifests struct {
	files     map[string]*models.FileManifest
	order     []string
	createErr error
	deleted   []string
	seq       int
}

func newFakeManifests() *fakeManifests {
	return &fakeManifests{files: map[string]*models.FileManifest{}}
}

func (f *fakeManifests) put(m *models.FileManifest) {
	f.files[m.ID] = m
	f.order = append(f.order, m.ID)
}

func (f *fakeManifests) Create(ctx context.Context, m *models.FileManifest) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.seq++
	m.ID = "file-" + string(rune('0'+f.seq))
	m.CreatedAt = time.Now()
	f.put(m)
	return nil
}

func (f *fakeManifests) GetByID(ctx context.Context, id string) (*models.FileManifest, error) {
	m, ok := f.files[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return m, nil
}

func (f *fakeManifests) filter(keep func(*models.FileManifest) bool) []*models.FileManifest {
	var out []*models.FileManifest
	for _, id := range f.order {
		if m, ok := f.files[id]; ok && keep(m) {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeManifests) ListPersonal(ctx context.Context, ownerID string) ([]*models.FileManifest, error) {
	return f.filter(func(m *models.FileManifest) bool { return m.OwnerID == ownerID && !m.IsTeam() }), nil
}

func (f *fakeManifests) ListTeam(ctx context.Context, teamID string) ([]*models.FileManifest, error) {
	return f.filter(func(m *models.FileManifest) bool { return m.TeamID == teamID }), nil
}

func (f *fakeManifests) ListByOwnerAll(ctx context.Context, ownerID string) ([]*models.FileManifest, error) {
	return f.filter(func(m *models.FileManifest) bool { return m.OwnerID == ownerID }), nil
}

func (f *fakeManifests) Delete(ctx context.Context, id string) error {
	if _, ok := f.files[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.files, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeManifests) UpdateTargetProfiles(ctx context.Context, id string, profiles []string) error {
	m, ok := f.files[id]
	if !ok {
		return common.ErrorNotFound
	}
	m.TargetProfiles = profiles
	return nil
}

// --- repo manager ---

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	o *fakeOwners
	m *fakeManifests
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{u: &fakeUsersRepo{}, r: &fakeRefreshRepo{}, o: newFakeOwners(), m: newFakeManifests()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error          { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository { return m.r }
func (m *fakeRepoManager) Owners(db dbx.DBTX) owners.Repository               { return m.o }
func (m *fakeRepoManager) Manifests(db dbx.DBTX) manifests.Repository         { return m.m }

// --- engine ---

type fakeEngine struct {
	uploadReq      engine.UploadRequest
	uploadAccounts []models.Account
	uploadErr      error

	downloadData []byte
	downloadErr  error
	linked       []models.Account

	deleteReport engine.DeleteReport
	deleted      []*models.FileManifest

	quotas map[string]models.Quota
	probed int
}

// refresh marks every account as touched by a token refresh.
func refresh(accounts []models.Account) []models.Account {
	out := make([]models.Account, len(accounts))
	for i, a := range accounts {
		a.AccessToken = "fresh"
		out[i] = a
	}
	return out
}

func (f *fakeEngine) Upload(ctx context.Context, accounts []models.Account, req engine.UploadRequest) (engine.UploadResult, error) {
	f.uploadReq = req
	f.uploadAccounts = accounts
	if f.uploadErr != nil {
		return engine.UploadResult{Accounts: accounts}, f.uploadErr
	}
	parts := []models.FilePart{{Provider: accounts[0].Provider, AccountEmail: accounts[0].AccountEmail, RemoteID: "r0", Size: int64(len(req.Data))}}
	return engine.UploadResult{Parts: parts, TotalSize: int64(len(req.Data)), MimeType: "text/plain", Accounts: refresh(accounts)}, nil
}

func (f *fakeEngine) Download(ctx context.Context, linked []models.Account, m *models.FileManifest) ([]byte, []models.Account, error) {
	f.linked = linked
	if err := engine.InaccessibleError(engine.AccountKeys(linked), m); err != nil {
		return nil, nil, err
	}
	if f.downloadErr != nil {
		return nil, linked, f.downloadErr
	}
	return f.downloadData, refresh(linked), nil
}

func (f *fakeEngine) DeleteAll(ctx context.Context, accounts []models.Account, m *models.FileManifest) engine.DeleteReport {
	f.deleted = append(f.deleted, m)
	r := f.deleteReport
	r.Accounts = accounts
	return r
}

func (f *fakeEngine) ProbeAll(ctx context.Context, accounts []models.Account) []engine.QuotaResult {
	f.probed++
	out := make([]engine.QuotaResult, len(accounts))
	for i, a := range accounts {
		q, ok := f.quotas[a.Key()]
		out[i] = engine.QuotaResult{Account: a, Quota: q}
		if !ok {
			out[i].Err = errBoom
		}
	}
	return out
}
