// Package tokens keeps provider access tokens fresh using OAuth2
// refresh-token grants.
package tokens

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/cloudpool/internal/common"
	"github.com/dmitrijs2005/cloudpool/internal/logging"
	"github.com/dmitrijs2005/cloudpool/internal/server/models"
	"github.com/dmitrijs2005/cloudpool/internal/server/providers"
	"github.com/hashicorp/go-retryablehttp"
)

// ValidityMargin is how long a token must still be valid to be used as is.
const ValidityMargin = 60 * time.Second

// Endpoint describes how to refresh tokens for one provider.
type Endpoint struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	// DefaultExpiresIn applies when the response omits expires_in.
	DefaultExpiresIn time.Duration
	// Skew is subtracted from the reported lifetime.
	Skew time.Duration
}

func GoogleEndpoint(tokenURL, clientID, clientSecret string) Endpoint {
	return Endpoint{TokenURL: tokenURL, ClientID: clientID, ClientSecret: clientSecret, DefaultExpiresIn: time.Hour}
}

func DropboxEndpoint(tokenURL, clientID, clientSecret string) Endpoint {
	return Endpoint{TokenURL: tokenURL, ClientID: clientID, ClientSecret: clientSecret, DefaultExpiresIn: 4 * time.Hour, Skew: 60 * time.Second}
}

// Refresher implements the engine's token collaborator. It never mutates
// the account passed in; callers persist the returned snapshot.
type Refresher struct {
	client    *retryablehttp.Client
	endpoints map[string]Endpoint
	static    map[string]bool
	guard     *Guard
	logger    logging.Logger
	now       func() time.Time

	mu     sync.Mutex
	latest map[string]refreshed
}

// refreshed remembers the outcome of the last grant and the refresh token
// it was obtained with.
type refreshed struct {
	account models.Account
	from    string
}

func NewRefresher(client *retryablehttp.Client, logger logging.Logger) *Refresher {
	return &Refresher{
		client:    client,
		endpoints: make(map[string]Endpoint),
		static:    make(map[string]bool),
		guard:     NewGuard(),
		logger:    logger.With("module", "tokens"),
		now:       time.Now,
		latest:    make(map[string]refreshed),
	}
}

// Register enables refreshing for provider.
func (r *Refresher) Register(provider string, e Endpoint) {
	r.endpoints[provider] = e
}

// RegisterStatic marks provider as using long-lived credentials.
func (r *Refresher) RegisterStatic(provider string) {
	r.static[provider] = true
}

func (r *Refresher) valid(a models.Account) bool {
	return a.AccessToken != "" && a.ExpiresAt.After(r.now().Add(ValidityMargin))
}

// Ensure returns account with an access token valid for at least
// ValidityMargin. Concurrent calls for the same account refresh once.
func (r *Refresher) Ensure(ctx context.Context, account models.Account) (models.Account, error) {
	if r.static[account.Provider] {
		return account, nil
	}
	ep, ok := r.endpoints[account.Provider]
	if !ok {
		return account, fmt.Errorf("%w: %q", common.ErrUnknownProvider, account.Provider)
	}
	if r.valid(account) {
		return account, nil
	}

	unlock := r.guard.Lock(account.Key())
	defer unlock()

	// another caller may have refreshed while we waited
	if fresh, ok := r.cached(account); ok {
		return fresh, nil
	}

	if account.RefreshToken == "" {
		return account, fmt.Errorf("%w: %s has no refresh token", common.ErrorUnauthorized, account.Key())
	}

	fresh, err := r.refresh(ctx, ep, account)
	if err != nil {
		r.logger.Warn(ctx, "token refresh failed", "account", account.Key(), "error", err)
		return account, err
	}

	r.mu.Lock()
	r.latest[account.Key()] = refreshed{account: fresh, from: account.RefreshToken}
	r.mu.Unlock()

	r.logger.Debug(ctx, "token refreshed", "account", account.Key(), "expires_at", fresh.ExpiresAt)
	return fresh, nil
}

func (r *Refresher) cached(account models.Account) (models.Account, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.latest[account.Key()]
	if !ok || !r.valid(c.account) {
		return models.Account{}, false
	}
	if c.from != account.RefreshToken && c.account.RefreshToken != account.RefreshToken {
		return models.Account{}, false
	}
	out := account
	out.AccessToken = c.account.AccessToken
	out.RefreshToken = c.account.RefreshToken
	out.ExpiresAt = c.account.ExpiresAt
	return out, true
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (r *Refresher) refresh(ctx context.Context, ep Endpoint, account models.Account) (models.Account, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", account.RefreshToken)
	form.Set("client_id", ep.ClientID)
	form.Set("client_secret", ep.ClientSecret)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, ep.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return account, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := providers.Do(r.client, req)
	if err != nil {
		return account, fmt.Errorf("refresh %s: %w", account.Key(), err)
	}
	defer providers.DrainClose(resp.Body)

	if err := providers.CheckResponse(resp); err != nil {
		return account, fmt.Errorf("refresh %s: %w", account.Key(), err)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return account, fmt.Errorf("refresh %s: decode: %w", account.Key(), err)
	}
	if tr.AccessToken == "" {
		return account, fmt.Errorf("refresh %s: empty access token", account.Key())
	}

	lifetime := ep.DefaultExpiresIn
	if tr.ExpiresIn > 0 {
		lifetime = time.Duration(tr.ExpiresIn) * time.Second
	}

	out := account
	out.AccessToken = tr.AccessToken
	out.ExpiresAt = r.now().Add(lifetime - ep.Skew)
	if tr.RefreshToken != "" {
		out.RefreshToken = tr.RefreshToken
	}
	return out, nil
}
