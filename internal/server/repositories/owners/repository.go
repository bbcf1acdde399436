// Package owners stores the owner aggregates (users and teams) together
// with the cloud accounts linked to them.
package owners

import (
	"context"

	"github.com/dmitrijs2005/cloudpool/internal/server/models"
)

// Owner addresses the account pool of a user or a team.
type Owner struct {
	Kind models.OwnerKind
	ID   string
}

func User(id string) Owner { return Owner{Kind: models.OwnerUser, ID: id} }
func Team(id string) Owner { return Owner{Kind: models.OwnerTeam, ID: id} }

type Repository interface {
	GetTeam(ctx context.Context, id string) (*models.Team, error)

	// ListAccounts returns the owner's accounts in link order.
	ListAccounts(ctx context.Context, owner Owner) ([]models.Account, error)
	// UpsertAccount links the account or refreshes its credentials. An empty
	// refresh token keeps the stored one.
	UpsertAccount(ctx context.Context, a models.Account) error
	// RemoveAccount returns common.ErrorNotFound when nothing was linked.
	RemoveAccount(ctx context.Context, owner Owner, provider, accountEmail string) error
	RemoveProviderAccounts(ctx context.Context, owner Owner, provider string) (int64, error)
	// UpdateTokens persists refreshed credentials of an already linked account.
	UpdateTokens(ctx context.Context, a models.Account) error

	IsTeamMember(ctx context.Context, teamID, userID string) (bool, error)
	// TeamMemberProfile returns common.ErrorNotFound for non-members.
	TeamMemberProfile(ctx context.Context, teamID, userID string) (string, error)
}
