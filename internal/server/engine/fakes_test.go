package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/cloudpool/internal/logging"
	"github.com/dmitrijs2005/cloudpool/internal/server/models"
	"github.com/dmitrijs2005/cloudpool/internal/server/providers"
)

var errBoom = errors.New("boom")

// fakeStore is an in-memory provider shared by all test accounts.
type fakeStore struct {
	mu       sync.Mutex
	quota    map[string]int64
	quotaErr map[string]error
	objects  map[string][]byte
	owner    map[string]string
	calls    map[string]int
	tokens   []string

	failUploadOn int
	deleteErr    error
	seq          int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		quota:    map[string]int64{},
		quotaErr: map[string]error{},
		objects:  map[string][]byte{},
		owner:    map[string]string{},
		calls:    map[string]int{},
	}
}

func (f *fakeStore) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeStore) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeStore) Quota(_ context.Context, a models.Account) (models.Quota, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["quota"]++
	if err := f.quotaErr[a.Key()]; err != nil {
		return models.Quota{}, err
	}
	return models.Quota{Available: f.quota[a.Key()], Total: f.quota[a.Key()]}, nil
}

func (f *fakeStore) UploadChunk(_ context.Context, a models.Account, data []byte, name, _ string) (providers.UploadedChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["upload"]++
	f.tokens = append(f.tokens, a.AccessToken)
	if f.failUploadOn > 0 && f.calls["upload"] == f.failUploadOn {
		return providers.UploadedChunk{}, errBoom
	}
	f.seq++
	id := fmt.Sprintf("obj-%d-%s", f.seq, name)
	f.objects[id] = append([]byte(nil), data...)
	f.owner[id] = a.Key()
	return providers.UploadedChunk{RemoteID: id}, nil
}

func (f *fakeStore) DownloadChunk(_ context.Context, a models.Account, remoteID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["download"]++
	b, ok := f.objects[remoteID]
	if !ok || f.owner[remoteID] != a.Key() {
		return nil, errors.New("no such object")
	}
	return append([]byte(nil), b...), nil
}

func (f *fakeStore) DeleteChunk(_ context.Context, a models.Account, remoteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["delete"]++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, remoteID)
	return nil
}

func (f *fakeStore) stored() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// fakeTokens hands out "fresh-<key>" tokens and records how often it ran.
type fakeTokens struct {
	mu    sync.Mutex
	calls int
	fail  map[string]error
}

func (f *fakeTokens) Ensure(_ context.Context, a models.Account) (models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.fail[a.Key()]; err != nil {
		return a, err
	}
	a.AccessToken = "fresh-" + a.Key()
	return a, nil
}

func (f *fakeTokens) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type identityCodec struct{}

func (identityCodec) Encode(b []byte) ([]byte, error) { return b, nil }
func (identityCodec) Decode(b []byte) ([]byte, error) { return b, nil }

func account(provider, email string) models.Account {
	return models.Account{Provider: provider, AccountEmail: email, AccessToken: "stale", RefreshToken: "rt"}
}

type harness struct {
	store  *fakeStore
	tokens *fakeTokens
	engine *Engine
}

func newHarness(codec Codec, opts Options) *harness {
	store := newFakeStore()
	reg := providers.NewRegistry()
	reg.Register(models.ProviderGoogle, store)
	reg.Register(models.ProviderDropbox, store)

	tokens := &fakeTokens{fail: map[string]error{}}
	if codec == nil {
		codec = identityCodec{}
	}
	return &harness{
		store:  store,
		tokens: tokens,
		engine: New(reg, tokens, codec, logging.Nop(), nil, opts),
	}
}
