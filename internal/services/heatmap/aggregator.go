package heatmap

import (
	"sync"

	"crowdmap-worker-go/internal/models"
)

// Aggregator accumulates per-region counts for one aggregation run. Totals
// only grow; construct a fresh Aggregator per run instead of resetting.
type Aggregator struct {
	mu     sync.Mutex
	store  *Store
	counts map[string]int
}

// NewAggregator starts every known region at zero.
func NewAggregator(store *Store) *Aggregator {
	counts := make(map[string]int, len(store.regions))
	for _, region := range store.regions {
		counts[region.Name] = 0
	}
	return &Aggregator{store: store, counts: counts}
}

// Accumulate adds count to the running total for regionName. Regions are
// never auto-created; unknown names fail.
func (a *Aggregator) Accumulate(regionName string, count int) error {
	if !a.store.Has(regionName) {
		return models.NewError(models.KindUnknownRegion, "unknown region %q", regionName)
	}

	a.mu.Lock()
	a.counts[regionName] += count
	a.mu.Unlock()
	return nil
}

// Snapshot returns the current totals for every known region, including the
// untouched ones at zero.
func (a *Aggregator) Snapshot() map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]int, len(a.counts))
	for name, count := range a.counts {
		out[name] = count
	}
	return out
}
