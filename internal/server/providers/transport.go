// Package providers defines the per-provider chunk transport contract and
// the registry the engine uses to pick an adapter for an account.
package providers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dmitrijs2005/cloudpool/internal/common"
	"github.com/dmitrijs2005/cloudpool/internal/server/models"
)

// UploadedChunk is what a provider reports after storing one chunk.
// Size may be 0 when the provider does not echo it back.
type UploadedChunk struct {
	RemoteID string
	Size     int64
}

// Transport moves single chunks to and from one account of a provider.
// Implementations own their timeouts and retries.
type Transport interface {
	Quota(ctx context.Context, account models.Account) (models.Quota, error)
	UploadChunk(ctx context.Context, account models.Account, data []byte, name, mimeType string) (UploadedChunk, error)
	DownloadChunk(ctx context.Context, account models.Account, remoteID string) ([]byte, error)
	DeleteChunk(ctx context.Context, account models.Account, remoteID string) error
}

// Registry maps provider identifiers to transports. It is safe for
// concurrent use.
type Registry struct {
	mu         sync.RWMutex
	transports map[string]Transport
}

func NewRegistry() *Registry {
	return &Registry{transports: make(map[string]Transport)}
}

// Register adds or replaces the transport for provider.
func (r *Registry) Register(provider string, t Transport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transports[provider] = t
}

func (r *Registry) Get(provider string) (Transport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.transports[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownProvider, provider)
	}
	return t, nil
}

// Providers returns the registered identifiers in sorted order.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.transports))
	for p := range r.transports {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
