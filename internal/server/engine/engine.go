// Package engine implements storage allocation and reassembly: it probes
// account capacity, plans how a file is split across accounts, moves the
// chunks through provider transports and rebuilds files from manifests.
//
// The engine is stateless between calls. Token refreshes it performs are
// returned to the caller as updated account snapshots to persist.
package engine

import (
	"context"
	"time"

	"github.com/dmitrijs2005/cloudpool/internal/logging"
	"github.com/dmitrijs2005/cloudpool/internal/metrics"
	"github.com/dmitrijs2005/cloudpool/internal/server/models"
	"github.com/dmitrijs2005/cloudpool/internal/server/providers"
)

// DefaultMinChunkSize is the floor of the target chunk size (100 MiB).
const DefaultMinChunkSize int64 = 104857600

// Transports resolves a provider identifier to its transport.
type Transports interface {
	Get(provider string) (providers.Transport, error)
}

// TokenRefresher returns an account whose access token is usable.
type TokenRefresher interface {
	Ensure(ctx context.Context, account models.Account) (models.Account, error)
}

// Codec transforms chunk payloads before upload and after download.
type Codec interface {
	Encode(plain []byte) ([]byte, error)
	Decode(stored []byte) ([]byte, error)
}

type Options struct {
	MinChunkSize     int64
	ProbeConcurrency int
	// ChunkConcurrency of 1 moves chunks strictly one after another.
	ChunkConcurrency int
}

type Engine struct {
	transports Transports
	tokens     TokenRefresher
	codec      Codec
	logger     logging.Logger
	metrics    *metrics.Metrics
	opts       Options
	now        func() time.Time
}

// New wires an Engine. m may be nil.
func New(t Transports, tokens TokenRefresher, codec Codec, logger logging.Logger, m *metrics.Metrics, opts Options) *Engine {
	if opts.MinChunkSize <= 0 {
		opts.MinChunkSize = DefaultMinChunkSize
	}
	if opts.ProbeConcurrency <= 0 {
		opts.ProbeConcurrency = 1
	}
	if opts.ChunkConcurrency <= 0 {
		opts.ChunkConcurrency = 1
	}
	return &Engine{
		transports: t,
		tokens:     tokens,
		codec:      codec,
		logger:     logger.With("module", "engine"),
		metrics:    m,
		opts:       opts,
		now:        time.Now,
	}
}

// accountBook tracks the freshest snapshot of every account an operation
// touched, in first-seen order.
type accountBook struct {
	order []string
	byKey map[string]models.Account
}

func newAccountBook(accounts []models.Account) *accountBook {
	b := &accountBook{byKey: make(map[string]models.Account, len(accounts))}
	for _, a := range accounts {
		b.put(a)
	}
	return b
}

func (b *accountBook) put(a models.Account) {
	if _, ok := b.byKey[a.Key()]; !ok {
		b.order = append(b.order, a.Key())
	}
	b.byKey[a.Key()] = a
}

func (b *accountBook) get(key string) (models.Account, bool) {
	a, ok := b.byKey[key]
	return a, ok
}

func (b *accountBook) list() []models.Account {
	out := make([]models.Account, 0, len(b.order))
	for _, k := range b.order {
		out = append(out, b.byKey[k])
	}
	return out
}
