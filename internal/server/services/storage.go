package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/cloudpool/internal/common"
	"github.com/dmitrijs2005/cloudpool/internal/logging"
	"github.com/dmitrijs2005/cloudpool/internal/server/engine"
	"github.com/dmitrijs2005/cloudpool/internal/server/models"
	"github.com/dmitrijs2005/cloudpool/internal/server/repositories/owners"
)

// StorageEngine is the part of engine.Engine the services drive.
type StorageEngine interface {
	Upload(ctx context.Context, accounts []models.Account, req engine.UploadRequest) (engine.UploadResult, error)
	Download(ctx context.Context, linked []models.Account, m *models.FileManifest) ([]byte, []models.Account, error)
	DeleteAll(ctx context.Context, accounts []models.Account, m *models.FileManifest) engine.DeleteReport
	ProbeAll(ctx context.Context, accounts []models.Account) []engine.QuotaResult
}

// persistTokens writes back every account whose credentials changed while
// the engine worked with it. Accounts unlinked in the meantime are skipped.
func persistTokens(ctx context.Context, repo owners.Repository, logger logging.Logger, before, after []models.Account) {
	prev := make(map[string]models.Account, len(before))
	for _, a := range before {
		prev[a.Key()] = a
	}

	for _, a := range after {
		old, ok := prev[a.Key()]
		if !ok || sameCredentials(old, a) {
			continue
		}
		if err := repo.UpdateTokens(ctx, a); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				continue
			}
			logger.Warn(ctx, "failed to persist refreshed token", "account", a.Key(), "error", err)
		}
	}
}

func sameCredentials(a, b models.Account) bool {
	return a.AccessToken == b.AccessToken && a.RefreshToken == b.RefreshToken && a.ExpiresAt.Equal(b.ExpiresAt)
}
