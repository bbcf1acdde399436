package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/cloudpool/internal/common"
	"github.com/dmitrijs2005/cloudpool/internal/dbx"
	"github.com/dmitrijs2005/cloudpool/internal/logging"
	"github.com/dmitrijs2005/cloudpool/internal/server/engine"
	"github.com/dmitrijs2005/cloudpool/internal/server/models"
	"github.com/dmitrijs2005/cloudpool/internal/server/repositories/owners"
	"github.com/dmitrijs2005/cloudpool/internal/server/repositories/repomanager"
)

// UploadInput is one file to store. TeamID selects the team pool; empty
// means the uploader's personal pool.
type UploadInput struct {
	FileName       string
	MimeType       string
	Data           []byte
	TeamID         string
	TargetProfiles []string
}

// FileInfo is a listing row.
type FileInfo struct {
	ID             string
	FileName       string
	TotalSize      int64
	MimeType       string
	CreatedAt      time.Time
	TeamID         string
	TargetProfiles []string
	IsOwner        bool
}

type DeleteResult struct {
	Deleted      int
	Failed       int
	Inaccessible int
	// DeletedBy is "owner" or "team-admin".
	DeletedBy string
}

type OrphanedFile struct {
	ID              string
	FileName        string
	TotalSize       int64
	CreatedAt       time.Time
	TotalParts      int
	MissingParts    int
	MissingAccounts []string
}

type OrphanReport struct {
	Files      []OrphanedFile
	TotalFiles int
}

// FileService stores, lists, fetches, shares and deletes pooled files.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	engine      StorageEngine
	logger      logging.Logger
}

func NewFileService(db *sql.DB, m repomanager.RepositoryManager, e StorageEngine, logger logging.Logger) *FileService {
	return &FileService{
		db:          db,
		repomanager: m,
		engine:      e,
		logger:      logger.With("module", "files"),
	}
}

func (s *FileService) Upload(ctx context.Context, userID string, in UploadInput) (*models.FileManifest, error) {
	if in.FileName == "" {
		return nil, fmt.Errorf("%w: file name is required", common.ErrorValidation)
	}

	ownerRepo := s.repomanager.Owners(s.db)
	owner := owners.User(userID)
	var prefix string
	var targets []string

	if in.TeamID != "" {
		team, profile, err := s.teamMembership(ctx, ownerRepo, in.TeamID, userID)
		if err != nil {
			return nil, err
		}
		targets = in.TargetProfiles
		if len(targets) == 0 {
			targets = []string{profile}
		}
		if bad := invalidProfiles(team, targets); len(bad) > 0 {
			return nil, fmt.Errorf("%w: unknown profiles %v", common.ErrorValidation, bad)
		}
		owner = owners.Team(team.ID)
		prefix = engine.TeamPrefix(team.ID)
	}

	accounts, err := ownerRepo.ListAccounts(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, common.ErrNoAccountsLinked
	}

	res, err := s.engine.Upload(ctx, accounts, engine.UploadRequest{
		Data:       in.Data,
		FileName:   in.FileName,
		MimeType:   in.MimeType,
		NamePrefix: prefix,
	})
	persistTokens(ctx, ownerRepo, s.logger, accounts, res.Accounts)
	if err != nil {
		return nil, err
	}

	m := &models.FileManifest{
		OwnerID:        userID,
		FileName:       in.FileName,
		TotalSize:      res.TotalSize,
		MimeType:       res.MimeType,
		Parts:          res.Parts,
		TeamID:         in.TeamID,
		TargetProfiles: targets,
	}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Manifests(tx).Create(ctx, m)
	})
	if err != nil {
		return nil, fmt.Errorf("save manifest: %w", err)
	}

	s.logger.Info(ctx, "manifest stored", "file_id", m.ID, "owner", userID, "team", in.TeamID, "parts", len(m.Parts))
	return m, nil
}

// List returns the fully accessible files of the user, or of the team when
// teamID is set. Team members other than the admin only see files shared
// with their profile or the cross-section profile.
func (s *FileService) List(ctx context.Context, userID, teamID string) ([]FileInfo, error) {
	ownerRepo := s.repomanager.Owners(s.db)
	manifestRepo := s.repomanager.Manifests(s.db)

	var files []*models.FileManifest
	var accounts []models.Account
	visible := func(*models.FileManifest) bool { return true }

	if teamID == "" {
		var err error
		if files, err = manifestRepo.ListPersonal(ctx, userID); err != nil {
			return nil, fmt.Errorf("list files: %w", err)
		}
		if accounts, err = ownerRepo.ListAccounts(ctx, owners.User(userID)); err != nil {
			return nil, fmt.Errorf("list accounts: %w", err)
		}
	} else {
		team, profile, err := s.teamMembership(ctx, ownerRepo, teamID, userID)
		if err != nil {
			return nil, err
		}
		if files, err = manifestRepo.ListTeam(ctx, teamID); err != nil {
			return nil, fmt.Errorf("list files: %w", err)
		}
		if accounts, err = ownerRepo.ListAccounts(ctx, owners.Team(teamID)); err != nil {
			return nil, fmt.Errorf("list accounts: %w", err)
		}
		if team.AdminID != userID {
			visible = func(m *models.FileManifest) bool { return profileVisible(m, profile) }
		}
	}

	keys := engine.AccountKeys(accounts)
	out := make([]FileInfo, 0, len(files))
	for _, m := range files {
		if !visible(m) || !engine.FullyAccessible(keys, m) {
			continue
		}
		out = append(out, FileInfo{
			ID:             m.ID,
			FileName:       m.FileName,
			TotalSize:      m.TotalSize,
			MimeType:       m.MimeType,
			CreatedAt:      m.CreatedAt,
			TeamID:         m.TeamID,
			TargetProfiles: m.TargetProfiles,
			IsOwner:        m.OwnerID == userID,
		})
	}

	s.logger.Debug(ctx, "files listed", "user", userID, "team", teamID, "total", len(files), "accessible", len(out))
	return out, nil
}

// Get rebuilds a file. Personal files are visible to their owner only;
// team files to members allowed by the target profiles, using the team pool.
func (s *FileService) Get(ctx context.Context, userID, fileID string) (*models.FileManifest, []byte, error) {
	ownerRepo := s.repomanager.Owners(s.db)

	m, err := s.repomanager.Manifests(s.db).GetByID(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}

	owner := owners.User(userID)
	if m.IsTeam() {
		team, profile, err := s.teamMembership(ctx, ownerRepo, m.TeamID, userID)
		if err != nil {
			return nil, nil, err
		}
		if team.AdminID != userID && m.OwnerID != userID && !profileVisible(m, profile) {
			return nil, nil, common.ErrorForbidden
		}
		owner = owners.Team(m.TeamID)
	} else if m.OwnerID != userID {
		return nil, nil, common.ErrorNotFound
	}

	accounts, err := ownerRepo.ListAccounts(ctx, owner)
	if err != nil {
		return nil, nil, fmt.Errorf("list accounts: %w", err)
	}

	data, touched, err := s.engine.Download(ctx, accounts, m)
	persistTokens(ctx, ownerRepo, s.logger, accounts, touched)
	if err != nil {
		return nil, nil, err
	}
	return m, data, nil
}

// Delete removes the remote chunks and then the manifest. Only the file
// owner or, for team files, the team admin may delete.
func (s *FileService) Delete(ctx context.Context, userID, fileID string) (DeleteResult, error) {
	ownerRepo := s.repomanager.Owners(s.db)
	manifestRepo := s.repomanager.Manifests(s.db)

	m, err := manifestRepo.GetByID(ctx, fileID)
	if err != nil {
		return DeleteResult{}, err
	}

	isOwner := m.OwnerID == userID
	isTeamAdmin := false
	owner := owners.User(m.OwnerID)
	if m.IsTeam() {
		team, err := ownerRepo.GetTeam(ctx, m.TeamID)
		if err != nil {
			return DeleteResult{}, err
		}
		isTeamAdmin = team.AdminID == userID
		owner = owners.Team(team.ID)
	}
	if !isOwner && !isTeamAdmin {
		return DeleteResult{}, common.ErrorForbidden
	}

	accounts, err := ownerRepo.ListAccounts(ctx, owner)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("list accounts: %w", err)
	}

	report := s.engine.DeleteAll(ctx, accounts, m)
	persistTokens(ctx, ownerRepo, s.logger, accounts, report.Accounts)

	if err := manifestRepo.Delete(ctx, m.ID); err != nil {
		return DeleteResult{}, fmt.Errorf("delete manifest: %w", err)
	}

	res := DeleteResult{
		Deleted:      report.Deleted,
		Failed:       report.Failed,
		Inaccessible: report.Inaccessible,
		DeletedBy:    "owner",
	}
	if !isOwner {
		res.DeletedBy = "team-admin"
	}
	if report.Inaccessible > 0 {
		s.logger.Warn(ctx, "file deleted with unreachable parts", "file_id", m.ID, "inaccessible", report.Inaccessible)
	}
	return res, nil
}

// Orphaned lists the user's files that lost at least one part to an
// unlinked account. Team files are checked against the team pool.
func (s *FileService) Orphaned(ctx context.Context, userID string) (OrphanReport, error) {
	ownerRepo := s.repomanager.Owners(s.db)

	files, err := s.repomanager.Manifests(s.db).ListByOwnerAll(ctx, userID)
	if err != nil {
		return OrphanReport{}, fmt.Errorf("list files: %w", err)
	}

	pools := map[owners.Owner]engine.KeySet{}
	keysFor := func(o owners.Owner) (engine.KeySet, error) {
		if k, ok := pools[o]; ok {
			return k, nil
		}
		accounts, err := ownerRepo.ListAccounts(ctx, o)
		if err != nil {
			return nil, fmt.Errorf("list accounts: %w", err)
		}
		pools[o] = engine.AccountKeys(accounts)
		return pools[o], nil
	}

	report := OrphanReport{TotalFiles: len(files), Files: []OrphanedFile{}}
	for _, m := range files {
		owner := owners.User(userID)
		if m.IsTeam() {
			owner = owners.Team(m.TeamID)
		}
		keys, err := keysFor(owner)
		if err != nil {
			return OrphanReport{}, err
		}
		if !engine.Orphaned(keys, m) {
			continue
		}
		report.Files = append(report.Files, OrphanedFile{
			ID:              m.ID,
			FileName:        m.FileName,
			TotalSize:       m.TotalSize,
			CreatedAt:       m.CreatedAt,
			TotalParts:      len(m.Parts),
			MissingParts:    len(engine.InaccessibleParts(keys, m)),
			MissingAccounts: engine.MissingAccounts(keys, m),
		})
	}
	return report, nil
}

// Share replaces the target profiles of a team file. Only the team admin
// or the file owner may share.
func (s *FileService) Share(ctx context.Context, userID, fileID string, profiles []string) (*models.FileManifest, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("%w: target profiles are required", common.ErrorValidation)
	}

	ownerRepo := s.repomanager.Owners(s.db)
	manifestRepo := s.repomanager.Manifests(s.db)

	m, err := manifestRepo.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !m.IsTeam() {
		return nil, fmt.Errorf("%w: only team files can be shared to profiles", common.ErrorValidation)
	}

	team, err := ownerRepo.GetTeam(ctx, m.TeamID)
	if err != nil {
		return nil, err
	}
	if team.AdminID != userID && m.OwnerID != userID {
		return nil, common.ErrorForbidden
	}
	if bad := invalidProfiles(team, profiles); len(bad) > 0 {
		return nil, fmt.Errorf("%w: unknown profiles %v, available %v", common.ErrorValidation, bad, team.Profiles)
	}

	if err := manifestRepo.UpdateTargetProfiles(ctx, m.ID, profiles); err != nil {
		return nil, fmt.Errorf("update profiles: %w", err)
	}
	m.TargetProfiles = profiles
	return m, nil
}

// teamMembership loads the team and the caller's profile in it. Non-members
// get common.ErrorForbidden.
func (s *FileService) teamMembership(ctx context.Context, repo owners.Repository, teamID, userID string) (*models.Team, string, error) {
	team, err := repo.GetTeam(ctx, teamID)
	if err != nil {
		return nil, "", err
	}
	profile, err := repo.TeamMemberProfile(ctx, teamID, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, "", fmt.Errorf("%w: not a member of team %s", common.ErrorForbidden, teamID)
		}
		return nil, "", err
	}
	return team, profile, nil
}

func profileVisible(m *models.FileManifest, profile string) bool {
	return slices.Contains(m.TargetProfiles, profile) || slices.Contains(m.TargetProfiles, common.CrossSectionProfile)
}

func invalidProfiles(team *models.Team, profiles []string) []string {
	var bad []string
	for _, p := range profiles {
		if !team.HasProfile(p) {
			bad = append(bad, p)
		}
	}
	return bad
}
