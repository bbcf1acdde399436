package client

import (
	"context"

	"github.com/dmitrijs2005/cloudpool/internal/api"
)

// Tokens is the credential pair issued by Login and RefreshToken.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

type Client interface {
	Close() error
	Ping(ctx context.Context) error
	Register(ctx context.Context, username string, salt []byte, verifier []byte) error
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Login(ctx context.Context, username string, verifier []byte) (Tokens, error)
	Tokens() Tokens
	SetTokens(t Tokens)

	Upload(ctx context.Context, req *api.UploadRequest) (api.FileInfo, error)
	List(ctx context.Context, teamID string) ([]api.FileInfo, error)
	Get(ctx context.Context, fileID string) (*api.GetResponse, error)
	Delete(ctx context.Context, fileID string) (*api.DeleteResponse, error)
	Orphaned(ctx context.Context) (*api.OrphanedResponse, error)
	Share(ctx context.Context, fileID string, profiles []string) (api.FileInfo, error)

	StorageStats(ctx context.Context, teamID string) (*api.StorageStatsResponse, error)
	LinkedAccounts(ctx context.Context, teamID string) ([]api.LinkedAccount, error)
	LinkAccount(ctx context.Context, req *api.LinkAccountRequest) error
	UnlinkAccount(ctx context.Context, req *api.UnlinkAccountRequest) (*api.UnlinkAccountResponse, error)
	DisconnectImpact(ctx context.Context, provider, accountEmail string) (*api.DisconnectImpactResponse, error)
}
