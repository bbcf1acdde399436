// Package manifests persists file manifests and their ordered parts.
package manifests

import (
	"context"

	"github.com/dmitrijs2005/cloudpool/internal/server/models"
)

type Repository interface {
	// Create writes the manifest row and every part. Run it inside a
	// transaction so a manifest never exists without its parts.
	Create(ctx context.Context, m *models.FileManifest) error
	GetByID(ctx context.Context, id string) (*models.FileManifest, error)
	// ListPersonal returns the owner's files outside any team, newest first.
	ListPersonal(ctx context.Context, ownerID string) ([]*models.FileManifest, error)
	ListTeam(ctx context.Context, teamID string) ([]*models.FileManifest, error)
	// ListByOwnerAll includes team files uploaded by ownerID.
	ListByOwnerAll(ctx context.Context, ownerID string) ([]*models.FileManifest, error)
	Delete(ctx context.Context, id string) error
	UpdateTargetProfiles(ctx context.Context, id string, profiles []string) error
}
