package manifests

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/cloudpool/internal/common"
	"github.com/dmitrijs2005/cloudpool/internal/dbx"
	"github.com/dmitrijs2005/cloudpool/internal/server/models"
)

const selectManifests = `
	SELECT f.id, f.owner_id, f.file_name, f.total_size, f.mime_type, f.team_id, f.target_profiles, f.created_at,
		p.part_order, p.provider, p.account_email, p.remote_id, p.size
	FROM files f
	LEFT JOIN file_parts p ON p.file_id = f.id
	`

const orderManifests = `
	ORDER BY f.created_at DESC, f.id, p.part_order
	`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, m *models.FileManifest) error {
	profiles, err := encodeProfiles(m.TargetProfiles)
	if err != nil {
		return err
	}

	query :=
		`INSERT INTO files (owner_id, file_name, total_size, mime_type, team_id, target_profiles)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at
		 `
	err = r.db.QueryRowContext(ctx, query,
		m.OwnerID, m.FileName, m.TotalSize, m.MimeType, nullString(m.TeamID), profiles).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	partQuery :=
		`INSERT INTO file_parts (file_id, part_order, provider, account_email, remote_id, size)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 `
	for _, p := range m.Parts {
		if _, err := r.db.ExecContext(ctx, partQuery, m.ID, p.Order, p.Provider, p.AccountEmail, p.RemoteID, p.Size); err != nil {
			return fmt.Errorf("insert part %d: %w", p.Order, err)
		}
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.FileManifest, error) {
	return r.getOne(ctx, selectManifests+`WHERE f.id = $1`+orderManifests, id)
}

func (r *PostgresRepository) ListPersonal(ctx context.Context, ownerID string) ([]*models.FileManifest, error) {
	return r.list(ctx, selectManifests+`WHERE f.owner_id = $1 AND f.team_id IS NULL`+orderManifests, ownerID)
}

func (r *PostgresRepository) ListTeam(ctx context.Context, teamID string) ([]*models.FileManifest, error) {
	return r.list(ctx, selectManifests+`WHERE f.team_id = $1`+orderManifests, teamID)
}

func (r *PostgresRepository) ListByOwnerAll(ctx context.Context, ownerID string) ([]*models.FileManifest, error) {
	return r.list(ctx, selectManifests+`WHERE f.owner_id = $1`+orderManifests, ownerID)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM files WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) UpdateTargetProfiles(ctx context.Context, id string, profiles []string) error {
	encoded, err := encodeProfiles(profiles)
	if err != nil {
		return err
	}

	query := `UPDATE files SET target_profiles = $1 WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, encoded, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.FileManifest, error) {
	list, err := r.list(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, common.ErrorNotFound
	}
	return list[0], nil
}

// list folds the joined rows back into manifests; rows of one file are
// consecutive because of the ORDER BY.
func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.FileManifest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.FileManifest
	var cur *models.FileManifest

	for rows.Next() {
		var (
			m        models.FileManifest
			teamID   sql.NullString
			profiles []byte
			order    sql.NullInt64
			provider sql.NullString
			email    sql.NullString
			remoteID sql.NullString
			size     sql.NullInt64
		)
		if err := rows.Scan(&m.ID, &m.OwnerID, &m.FileName, &m.TotalSize, &m.MimeType, &teamID, &profiles, &m.CreatedAt,
			&order, &provider, &email, &remoteID, &size); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}

		if cur == nil || cur.ID != m.ID {
			m.TeamID = teamID.String
			if len(profiles) > 0 {
				if err := json.Unmarshal(profiles, &m.TargetProfiles); err != nil {
					return nil, fmt.Errorf("file %s target profiles: %w", m.ID, err)
				}
			}
			m.Parts = []models.FilePart{}
			cur = &m
			result = append(result, cur)
		}

		if order.Valid {
			cur.Parts = append(cur.Parts, models.FilePart{
				Provider:     provider.String,
				AccountEmail: email.String,
				RemoteID:     remoteID.String,
				Size:         size.Int64,
				Order:        int(order.Int64),
			})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func encodeProfiles(profiles []string) (string, error) {
	if profiles == nil {
		profiles = []string{}
	}
	b, err := json.Marshal(profiles)
	if err != nil {
		return "", fmt.Errorf("encode target profiles: %w", err)
	}
	return string(b), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
