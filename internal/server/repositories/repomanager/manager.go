package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/cloudpool/internal/dbx"
	"github.com/dmitrijs2005/cloudpool/internal/server/repositories/manifests"
	"github.com/dmitrijs2005/cloudpool/internal/server/repositories/owners"
	"github.com/dmitrijs2005/cloudpool/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/cloudpool/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a *sql.DB or *sql.Tx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Owners(db dbx.DBTX) owners.Repository
	Manifests(db dbx.DBTX) manifests.Repository
}
