package owners

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cloudpool/internal/common"
	"github.com/dmitrijs2005/cloudpool/internal/dbx"
	"github.com/dmitrijs2005/cloudpool/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	query :=
		`SELECT id, name, admin_id, profiles FROM teams
		 WHERE id = $1
		 `

	t := &models.Team{}
	var profiles []byte
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Name, &t.AdminID, &profiles); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := json.Unmarshal(profiles, &t.Profiles); err != nil {
		return nil, fmt.Errorf("team %s profiles: %w", id, err)
	}
	if len(t.Profiles) == 0 {
		t.Profiles = append([]string(nil), models.DefaultTeamProfiles...)
	}
	return t, nil
}

func (r *PostgresRepository) ListAccounts(ctx context.Context, owner Owner) ([]models.Account, error) {
	query :=
		`SELECT provider, account_email, access_token, refresh_token, expires_at
		 FROM cloud_accounts
		 WHERE owner_kind = $1 AND owner_id = $2
		 ORDER BY linked_at, provider, account_email
		 `

	rows, err := r.db.QueryContext(ctx, query, string(owner.Kind), owner.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Account
	for rows.Next() {
		a := models.Account{OwnerKind: owner.Kind, OwnerID: owner.ID}
		var expires sql.NullTime
		if err := rows.Scan(&a.Provider, &a.AccountEmail, &a.AccessToken, &a.RefreshToken, &expires); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		if expires.Valid {
			a.ExpiresAt = expires.Time
		}
		result = append(result, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) UpsertAccount(ctx context.Context, a models.Account) error {
	query :=
		`INSERT INTO cloud_accounts (owner_kind, owner_id, provider, account_email, access_token, refresh_token, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (owner_kind, owner_id, provider, account_email)
		 DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(NULLIF(EXCLUDED.refresh_token, ''), cloud_accounts.refresh_token),
			expires_at = EXCLUDED.expires_at
		 `

	_, err := r.db.ExecContext(ctx, query,
		string(a.OwnerKind), a.OwnerID, a.Provider, a.AccountEmail, a.AccessToken, a.RefreshToken, nullTime(a.ExpiresAt))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RemoveAccount(ctx context.Context, owner Owner, provider, accountEmail string) error {
	query :=
		`DELETE FROM cloud_accounts
		 WHERE owner_kind = $1 AND owner_id = $2 AND provider = $3 AND account_email = $4
		 `

	res, err := r.db.ExecContext(ctx, query, string(owner.Kind), owner.ID, provider, accountEmail)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) RemoveProviderAccounts(ctx context.Context, owner Owner, provider string) (int64, error) {
	query :=
		`DELETE FROM cloud_accounts
		 WHERE owner_kind = $1 AND owner_id = $2 AND provider = $3
		 `

	res, err := r.db.ExecContext(ctx, query, string(owner.Kind), owner.ID, provider)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) UpdateTokens(ctx context.Context, a models.Account) error {
	query :=
		`UPDATE cloud_accounts
		 SET access_token = $1, refresh_token = $2, expires_at = $3
		 WHERE owner_kind = $4 AND owner_id = $5 AND provider = $6 AND account_email = $7
		 `

	res, err := r.db.ExecContext(ctx, query,
		a.AccessToken, a.RefreshToken, nullTime(a.ExpiresAt),
		string(a.OwnerKind), a.OwnerID, a.Provider, a.AccountEmail)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) IsTeamMember(ctx context.Context, teamID, userID string) (bool, error) {
	query :=
		`SELECT EXISTS (SELECT 1 FROM team_members WHERE team_id = $1 AND user_id = $2)
		 `

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, teamID, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) TeamMemberProfile(ctx context.Context, teamID, userID string) (string, error) {
	query :=
		`SELECT profile FROM team_members
		 WHERE team_id = $1 AND user_id = $2
		 `

	var profile string
	if err := r.db.QueryRowContext(ctx, query, teamID, userID).Scan(&profile); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return profile, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
