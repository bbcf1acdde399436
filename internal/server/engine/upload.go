package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/cloudpool/internal/common"
	"github.com/dmitrijs2005/cloudpool/internal/server/models"
	"golang.org/x/sync/errgroup"
)

type UploadRequest struct {
	Data     []byte
	FileName string
	MimeType string
	// NamePrefix is prepended to every remote chunk name, e.g. "team_42_".
	NamePrefix string
}

// UploadResult carries what a manifest needs plus the account snapshots
// to persist.
type UploadResult struct {
	Parts     []models.FilePart
	TotalSize int64
	MimeType  string
	Accounts  []models.Account
}

// TeamPrefix is the chunk name prefix used for team uploads.
func TeamPrefix(teamID string) string {
	return "team_" + teamID + "_"
}

// ChunkName builds the remote object name of one chunk.
func ChunkName(prefix string, stamp time.Time, fileName string, order int) string {
	return fmt.Sprintf("%s%d_%s.part%06d", prefix, stamp.UnixMilli(), sanitizeName(fileName), order)
}

var nameReplacer = strings.NewReplacer("/", "_", "\\", "_", "\x00", "")

func sanitizeName(name string) string {
	name = nameReplacer.Replace(name)
	if name == "" {
		return "file"
	}
	return name
}

// Upload splits req.Data according to a fresh allocation plan and stores
// every chunk. It fails as a whole on the first chunk error; chunks already
// stored at that point are left in place.
func (e *Engine) Upload(ctx context.Context, accounts []models.Account, req UploadRequest) (UploadResult, error) {
	defer e.metrics.Since("upload", time.Now())

	totalSize := int64(len(req.Data))
	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = common.DefaultMimeType
	}

	plan, probed, err := e.Plan(ctx, accounts, totalSize)
	if err != nil {
		return UploadResult{}, err
	}

	book := newAccountBook(probed)
	stamp := e.now()
	parts := make([]models.FilePart, len(plan))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.ChunkConcurrency)

	var offset int64
	for _, entry := range plan {
		chunk := req.Data[offset : offset+entry.ByteLength]
		offset += entry.ByteLength

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			mu.Lock()
			account, _ := book.get(entry.Account.Key())
			mu.Unlock()

			name := ChunkName(req.NamePrefix, stamp, req.FileName, entry.Order)
			part, fresh, err := e.uploadChunk(gctx, account, chunk, name, mimeType, entry.Order)

			mu.Lock()
			book.put(fresh)
			mu.Unlock()

			if err != nil {
				return err
			}
			parts[entry.Order] = part
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		e.reportOrphans(ctx, req.FileName, parts)
		return UploadResult{Accounts: book.list()}, err
	}

	e.logger.Info(ctx, "file uploaded", "file", req.FileName, "size", totalSize, "parts", len(parts))
	return UploadResult{
		Parts:     parts,
		TotalSize: totalSize,
		MimeType:  mimeType,
		Accounts:  book.list(),
	}, nil
}

func (e *Engine) uploadChunk(ctx context.Context, account models.Account, chunk []byte, name, mimeType string, order int) (models.FilePart, models.Account, error) {
	fresh, err := e.tokens.Ensure(ctx, account)
	if err != nil {
		e.metrics.TransportFailed(account.Provider, "upload")
		return models.FilePart{}, account, fmt.Errorf("%w: part %d on %s: ensure token: %w", common.ErrTransportFailure, order, account.Key(), err)
	}

	t, err := e.transports.Get(fresh.Provider)
	if err != nil {
		return models.FilePart{}, fresh, err
	}

	encoded, err := e.codec.Encode(chunk)
	if err != nil {
		return models.FilePart{}, fresh, fmt.Errorf("encode part %d: %w", order, err)
	}

	up, err := t.UploadChunk(ctx, fresh, encoded, name, mimeType)
	if err != nil {
		e.metrics.TransportFailed(fresh.Provider, "upload")
		return models.FilePart{}, fresh, fmt.Errorf("%w: part %d on %s: %w", common.ErrTransportFailure, order, fresh.Key(), err)
	}

	// Parts record the plaintext length so they always sum to TotalSize.
	size := int64(len(chunk))
	stored := up.Size
	if stored <= 0 {
		stored = int64(len(encoded))
	}
	e.metrics.ChunkUploaded(fresh.Provider, stored)
	e.logger.Debug(ctx, "chunk uploaded", "account", fresh.Key(), "order", order, "remote_id", up.RemoteID, "size", size, "stored", stored)

	return models.FilePart{
		Provider:     fresh.Provider,
		AccountEmail: fresh.AccountEmail,
		RemoteID:     up.RemoteID,
		Size:         size,
		Order:        order,
	}, fresh, nil
}

func (e *Engine) reportOrphans(ctx context.Context, fileName string, parts []models.FilePart) {
	var orphans []string
	for _, p := range parts {
		if p.RemoteID != "" {
			orphans = append(orphans, p.Key()+"/"+p.RemoteID)
		}
	}
	if len(orphans) == 0 {
		return
	}
	e.metrics.Orphaned(len(orphans))
	e.logger.Warn(ctx, "upload aborted, stored chunks left behind", "file", fileName, "orphans", orphans)
}
