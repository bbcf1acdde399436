package engine

import (
	"context"
	"time"

	"github.com/dmitrijs2005/cloudpool/internal/server/models"
)

// DeleteReport counts what happened to each part of a deleted file.
type DeleteReport struct {
	Deleted      int
	Failed       int
	Inaccessible int
	Accounts     []models.Account
}

// DeleteAll makes one delete attempt per reachable part of m. Parts on
// accounts not in accounts are skipped and counted as inaccessible.
// Failures are logged and counted, never returned.
func (e *Engine) DeleteAll(ctx context.Context, accounts []models.Account, m *models.FileManifest) DeleteReport {
	defer e.metrics.Since("delete", time.Now())

	book := newAccountBook(accounts)
	var r DeleteReport

	for _, p := range m.Parts {
		account, ok := book.get(p.Key())
		if !ok {
			r.Inaccessible++
			continue
		}

		if err := e.deleteChunk(ctx, &account, p); err != nil {
			r.Failed++
			e.metrics.TransportFailed(p.Provider, "delete")
			e.logger.Warn(ctx, "chunk delete failed", "file", m.ID, "order", p.Order, "account", p.Key(), "error", err)
		} else {
			r.Deleted++
		}
		book.put(account)
	}

	r.Accounts = book.list()
	e.logger.Info(ctx, "file parts deleted", "file", m.ID, "deleted", r.Deleted, "failed", r.Failed, "inaccessible", r.Inaccessible)
	return r
}

func (e *Engine) deleteChunk(ctx context.Context, account *models.Account, p models.FilePart) error {
	fresh, err := e.tokens.Ensure(ctx, *account)
	if err != nil {
		return err
	}
	*account = fresh

	t, err := e.transports.Get(p.Provider)
	if err != nil {
		return err
	}
	return t.DeleteChunk(ctx, fresh, p.RemoteID)
}
