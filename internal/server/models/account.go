// Package models defines server-side data models persisted in the database
// and passed between the engine, services and transports.
package models

import "time"

// Provider identifiers stored with every account and part.
const (
	ProviderGoogle  = "google"
	ProviderDropbox = "dropbox"
	ProviderS3      = "s3"
)

// OwnerKind tells whether an account belongs to a user or to a team pool.
type OwnerKind string

const (
	OwnerUser OwnerKind = "user"
	OwnerTeam OwnerKind = "team"
)

// Account is one authenticated identity on one storage provider.
// For object-store accounts AccountEmail holds the bucket name, AccessToken
// the access key id and RefreshToken the secret key.
type Account struct {
	OwnerKind    OwnerKind
	OwnerID      string
	Provider     string
	AccountEmail string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Key identifies the account across owners and manifests.
func (a Account) Key() string {
	return AccountKey(a.Provider, a.AccountEmail)
}

func AccountKey(provider, accountEmail string) string {
	return provider + ":" + accountEmail
}

// Quota is reported by a provider in bytes.
type Quota struct {
	Available int64
	Used      int64
	Total     int64
}
