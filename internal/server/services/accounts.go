package services

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/cloudpool/internal/common"
	"github.com/dmitrijs2005/cloudpool/internal/logging"
	"github.com/dmitrijs2005/cloudpool/internal/server/engine"
	"github.com/dmitrijs2005/cloudpool/internal/server/models"
	"github.com/dmitrijs2005/cloudpool/internal/server/repositories/owners"
	"github.com/dmitrijs2005/cloudpool/internal/server/repositories/repomanager"
)

// LinkInput carries credentials obtained by an external authorization flow.
// For object stores AccountEmail is the bucket, AccessToken the access key
// id and RefreshToken the secret key.
type LinkInput struct {
	TeamID       string
	Provider     string
	AccountEmail string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type UnlinkResult struct {
	Removed   int64
	Remaining int
}

type DisconnectImpact struct {
	Provider          string
	AccountEmail      string
	TotalFiles        int
	AffectedFiles     int
	AffectedFileNames []string
}

type AccountStats struct {
	Provider     string
	AccountEmail string
	Available    int64
	Used         int64
	Total        int64
	ExpiresAt    time.Time
	Error        string
}

type StorageStats struct {
	TotalAvailable int64
	TotalUsed      int64
	Accounts       []AccountStats
}

// AccountService manages the cloud accounts linked to a user or team pool.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	engine      StorageEngine
	providers   []string
	logger      logging.Logger
}

// NewAccountService accepts links only for the listed providers.
func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, e StorageEngine, providers []string, logger logging.Logger) *AccountService {
	return &AccountService{
		db:          db,
		repomanager: m,
		engine:      e,
		providers:   providers,
		logger:      logger.With("module", "accounts"),
	}
}

// Status lists linked accounts of the user, or of the team when teamID is
// set and the caller is a member.
func (s *AccountService) Status(ctx context.Context, userID, teamID string) ([]models.Account, error) {
	owner, err := s.resolveOwner(ctx, userID, teamID, false)
	if err != nil {
		return nil, err
	}
	return s.repomanager.Owners(s.db).ListAccounts(ctx, owner)
}

// Link adds the account to the pool or replaces its credentials. Team
// pools can only be changed by the team admin.
func (s *AccountService) Link(ctx context.Context, userID string, in LinkInput) error {
	if !slices.Contains(s.providers, in.Provider) {
		return fmt.Errorf("%w: %q", common.ErrUnknownProvider, in.Provider)
	}
	if in.AccountEmail == "" || in.AccessToken == "" {
		return fmt.Errorf("%w: account and access token are required", common.ErrorValidation)
	}

	owner, err := s.resolveOwner(ctx, userID, in.TeamID, true)
	if err != nil {
		return err
	}

	a := models.Account{
		OwnerKind:    owner.Kind,
		OwnerID:      owner.ID,
		Provider:     in.Provider,
		AccountEmail: in.AccountEmail,
		AccessToken:  in.AccessToken,
		RefreshToken: in.RefreshToken,
		ExpiresAt:    in.ExpiresAt,
	}
	if err := s.repomanager.Owners(s.db).UpsertAccount(ctx, a); err != nil {
		return fmt.Errorf("link account: %w", err)
	}

	s.logger.Info(ctx, "account linked", "owner", owner.ID, "kind", owner.Kind, "account", a.Key())
	return nil
}

// Unlink removes one account, or every account of provider when
// accountEmail is empty. Removing a single unknown account is
// common.ErrorNotFound.
func (s *AccountService) Unlink(ctx context.Context, userID, teamID, provider, accountEmail string) (UnlinkResult, error) {
	owner, err := s.resolveOwner(ctx, userID, teamID, true)
	if err != nil {
		return UnlinkResult{}, err
	}
	repo := s.repomanager.Owners(s.db)

	var res UnlinkResult
	if accountEmail == "" {
		if res.Removed, err = repo.RemoveProviderAccounts(ctx, owner, provider); err != nil {
			return UnlinkResult{}, fmt.Errorf("unlink provider: %w", err)
		}
	} else {
		if err := repo.RemoveAccount(ctx, owner, provider, accountEmail); err != nil {
			return UnlinkResult{}, err
		}
		res.Removed = 1
	}

	remaining, err := repo.ListAccounts(ctx, owner)
	if err != nil {
		return UnlinkResult{}, fmt.Errorf("list accounts: %w", err)
	}
	res.Remaining = len(remaining)

	s.logger.Info(ctx, "accounts unlinked", "owner", owner.ID, "provider", provider, "account", accountEmail, "removed", res.Removed)
	return res, nil
}

// DisconnectImpact reports which of the user's files store parts on the
// account and would become unreadable if it were unlinked.
func (s *AccountService) DisconnectImpact(ctx context.Context, userID, provider, accountEmail string) (DisconnectImpact, error) {
	files, err := s.repomanager.Manifests(s.db).ListByOwnerAll(ctx, userID)
	if err != nil {
		return DisconnectImpact{}, fmt.Errorf("list files: %w", err)
	}

	key := models.AccountKey(provider, accountEmail)
	impact := DisconnectImpact{
		Provider:          provider,
		AccountEmail:      accountEmail,
		TotalFiles:        len(files),
		AffectedFileNames: []string{},
	}
	for _, m := range files {
		if engine.UsesAccount(key, m) {
			impact.AffectedFiles++
			impact.AffectedFileNames = append(impact.AffectedFileNames, m.FileName)
		}
	}
	return impact, nil
}

// StorageStats probes every account of the pool. A failed probe is
// reported on its row and counts as zero.
func (s *AccountService) StorageStats(ctx context.Context, userID, teamID string) (StorageStats, error) {
	owner, err := s.resolveOwner(ctx, userID, teamID, false)
	if err != nil {
		return StorageStats{}, err
	}
	repo := s.repomanager.Owners(s.db)

	accounts, err := repo.ListAccounts(ctx, owner)
	if err != nil {
		return StorageStats{}, fmt.Errorf("list accounts: %w", err)
	}

	results := s.engine.ProbeAll(ctx, accounts)

	stats := StorageStats{Accounts: make([]AccountStats, 0, len(results))}
	touched := make([]models.Account, 0, len(results))
	for _, r := range results {
		touched = append(touched, r.Account)

		row := AccountStats{
			Provider:     r.Account.Provider,
			AccountEmail: r.Account.AccountEmail,
			ExpiresAt:    r.Account.ExpiresAt,
		}
		if r.Err != nil {
			row.Error = "failed to fetch quota"
		} else {
			row.Available = r.Quota.Available
			row.Used = r.Quota.Used
			row.Total = r.Quota.Total
			if row.Total == 0 {
				row.Total = row.Available + row.Used
			}
		}
		stats.TotalAvailable += row.Available
		stats.TotalUsed += row.Used
		stats.Accounts = append(stats.Accounts, row)
	}

	persistTokens(ctx, repo, s.logger, accounts, touched)
	return stats, nil
}

// resolveOwner maps an optional team to the owner whose pool is addressed.
// adminOnly restricts team pools to the team admin.
func (s *AccountService) resolveOwner(ctx context.Context, userID, teamID string, adminOnly bool) (owners.Owner, error) {
	if teamID == "" {
		return owners.User(userID), nil
	}

	repo := s.repomanager.Owners(s.db)
	team, err := repo.GetTeam(ctx, teamID)
	if err != nil {
		return owners.Owner{}, err
	}
	if team.AdminID == userID {
		return owners.Team(team.ID), nil
	}
	if adminOnly {
		return owners.Owner{}, fmt.Errorf("%w: only the team admin manages team accounts", common.ErrorForbidden)
	}

	member, err := repo.IsTeamMember(ctx, teamID, userID)
	if err != nil {
		return owners.Owner{}, err
	}
	if !member {
		return owners.Owner{}, fmt.Errorf("%w: not a member of team %s", common.ErrorForbidden, teamID)
	}
	return owners.Team(team.ID), nil
}
