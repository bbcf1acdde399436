package engine

import (
	"context"
	"sort"

	"github.com/dmitrijs2005/cloudpool/internal/common"
	"github.com/dmitrijs2005/cloudpool/internal/server/models"
)

// Slot is an account together with the capacity the planner may still use.
type Slot struct {
	Account   models.Account
	Available int64
}

// ChunkSize returns the target chunk size for a file of totalSize bytes
// given the weakest slot's capacity: min(weakest, max(totalSize/5, minChunk)).
func ChunkSize(weakest, totalSize, minChunk int64) int64 {
	return min(weakest, max(totalSize/5, minChunk))
}

// Allocate splits totalSize bytes over slots. Slots are ordered by
// available capacity, largest first, and each chunk goes to the first slot
// that can still hold a full chunk. When none can, slot 0 takes it anyway;
// such assignments are counted in overflows.
//
// Entries are numbered 0..n-1 and their lengths add up to totalSize.
func Allocate(slots []Slot, totalSize, minChunk int64) (plan models.AllocationPlan, overflows int) {
	if totalSize <= 0 || len(slots) == 0 {
		return models.AllocationPlan{}, 0
	}

	sorted := make([]Slot, len(slots))
	copy(sorted, slots)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Available > sorted[j].Available
	})

	chunk := ChunkSize(sorted[len(sorted)-1].Available, totalSize, minChunk)
	if chunk <= 0 {
		// the weakest slot is full; put everything in one chunk
		chunk = totalSize
	}

	remaining := totalSize
	for order := 0; remaining > 0; order++ {
		idx := -1
		for i := range sorted {
			if sorted[i].Available >= chunk {
				idx = i
				break
			}
		}
		if idx < 0 {
			idx = 0
			overflows++
		}

		take := min(chunk, remaining)
		plan = append(plan, models.AllocationEntry{
			Account:    sorted[idx].Account,
			ByteLength: take,
			Order:      order,
		})
		sorted[idx].Available = max(sorted[idx].Available-take, 0)
		remaining -= take
	}

	return plan, overflows
}

// Plan probes accounts and computes the allocation of totalSize bytes.
// It also returns the account snapshots produced by probing, which may
// carry refreshed tokens.
func (e *Engine) Plan(ctx context.Context, accounts []models.Account, totalSize int64) (models.AllocationPlan, []models.Account, error) {
	if len(accounts) == 0 {
		return nil, nil, common.ErrNoAccountsLinked
	}

	results := e.ProbeAll(ctx, accounts)

	slots := make([]Slot, len(results))
	probed := make([]models.Account, len(results))
	for i, r := range results {
		slots[i] = Slot{Account: r.Account, Available: r.Quota.Available}
		probed[i] = r.Account
	}

	plan, overflows := Allocate(slots, totalSize, e.opts.MinChunkSize)
	if overflows > 0 {
		e.logger.Warn(ctx, "allocation exceeds declared capacity",
			"error", common.ErrAllocationCapacityExceeded,
			"entries", overflows,
			"account", plan[0].Account.Key(),
			"total_size", totalSize)
		e.metrics.Overallocated(overflows)
	}

	e.logger.Debug(ctx, "allocation planned", "entries", len(plan), "total_size", totalSize, "accounts", len(accounts))
	return plan, probed, nil
}
