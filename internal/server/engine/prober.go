package engine

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/cloudpool/internal/server/models"
	"golang.org/x/sync/errgroup"
)

// QuotaResult is the outcome of probing one account. Err is informational:
// a failed probe reports zero capacity and never aborts planning.
type QuotaResult struct {
	Account models.Account
	Quota   models.Quota
	Err     error
}

// Probe refreshes the account token if needed and asks its provider for
// the current quota.
func (e *Engine) Probe(ctx context.Context, account models.Account) QuotaResult {
	res := QuotaResult{Account: account}

	fresh, err := e.tokens.Ensure(ctx, account)
	if err != nil {
		return e.probeFailed(ctx, res, fmt.Errorf("ensure token: %w", err))
	}
	res.Account = fresh

	t, err := e.transports.Get(account.Provider)
	if err != nil {
		return e.probeFailed(ctx, res, err)
	}

	q, err := t.Quota(ctx, fresh)
	if err != nil {
		return e.probeFailed(ctx, res, err)
	}

	res.Quota = q
	e.metrics.Probed(account.Provider, account.AccountEmail, q.Available)
	return res
}

func (e *Engine) probeFailed(ctx context.Context, res QuotaResult, err error) QuotaResult {
	e.logger.Warn(ctx, "quota probe failed, assuming no capacity", "account", res.Account.Key(), "error", err)
	e.metrics.ProbeFailed(res.Account.Provider)
	res.Err = err
	res.Quota = models.Quota{}
	return res
}

// ProbeAll probes every account, at most ProbeConcurrency at a time.
// Results keep the order of accounts.
func (e *Engine) ProbeAll(ctx context.Context, accounts []models.Account) []QuotaResult {
	results := make([]QuotaResult, len(accounts))

	var g errgroup.Group
	g.SetLimit(e.opts.ProbeConcurrency)
	for i, a := range accounts {
		g.Go(func() error {
			results[i] = e.Probe(ctx, a)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
