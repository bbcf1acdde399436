package engine

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/cloudpool/internal/common"
	"github.com/dmitrijs2005/cloudpool/internal/server/models"
	"golang.org/x/sync/errgroup"
)

// InaccessibleError builds the error returned when parts of m live on
// accounts outside keys, or nil when every part is reachable.
func InaccessibleError(keys KeySet, m *models.FileManifest) error {
	missing := InaccessibleParts(keys, m)
	if len(missing) == 0 {
		return nil
	}
	return &common.PartsInaccessibleError{
		Count:    len(missing),
		Total:    len(m.Parts),
		Accounts: MissingAccounts(keys, m),
	}
}

// Download rebuilds the file described by m using the linked accounts.
// Reachability is checked before any transport call. No bytes are returned
// unless every part was fetched and decoded.
func (e *Engine) Download(ctx context.Context, linked []models.Account, m *models.FileManifest) ([]byte, []models.Account, error) {
	defer e.metrics.Since("download", time.Now())

	if err := InaccessibleError(AccountKeys(linked), m); err != nil {
		return nil, nil, err
	}

	parts := make([]models.FilePart, len(m.Parts))
	copy(parts, m.Parts)
	sort.SliceStable(parts, func(i, j int) bool { return parts[i].Order < parts[j].Order })

	book := newAccountBook(linked)
	chunks := make([][]byte, len(parts))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.ChunkConcurrency)

	for i, p := range parts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			mu.Lock()
			account, _ := book.get(p.Key())
			mu.Unlock()

			data, fresh, err := e.downloadChunk(gctx, account, p)

			mu.Lock()
			book.put(fresh)
			mu.Unlock()

			if err != nil {
				return err
			}
			chunks[i] = data
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, book.list(), err
	}

	out := bytes.Join(chunks, nil)
	if int64(len(out)) != m.TotalSize {
		return nil, book.list(), fmt.Errorf("%w: reassembled %d bytes, manifest declares %d", common.ErrorInternal, len(out), m.TotalSize)
	}
	return out, book.list(), nil
}

func (e *Engine) downloadChunk(ctx context.Context, account models.Account, p models.FilePart) ([]byte, models.Account, error) {
	fresh, err := e.tokens.Ensure(ctx, account)
	if err != nil {
		e.metrics.TransportFailed(account.Provider, "download")
		return nil, account, fmt.Errorf("%w: part %d on %s: ensure token: %w", common.ErrTransportFailure, p.Order, p.Key(), err)
	}

	t, err := e.transports.Get(p.Provider)
	if err != nil {
		return nil, fresh, err
	}

	stored, err := t.DownloadChunk(ctx, fresh, p.RemoteID)
	if err != nil {
		e.metrics.TransportFailed(p.Provider, "download")
		return nil, fresh, fmt.Errorf("%w: part %d on %s: %w", common.ErrTransportFailure, p.Order, p.Key(), err)
	}
	e.metrics.ChunkDownloaded(int64(len(stored)))

	plain, err := e.codec.Decode(stored)
	if err != nil {
		return nil, fresh, fmt.Errorf("decode part %d: %w", p.Order, err)
	}
	return plain, fresh, nil
}
