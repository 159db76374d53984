package heatmap

import (
	"sync"
	"testing"

	"crowdmap-worker-go/internal/models"
)

func TestAggregatorStartsAtZero(t *testing.T) {
	agg := NewAggregator(loadTestStore(t))

	counts := agg.Snapshot()
	if len(counts) != 3 {
		t.Fatalf("expected 3 regions in snapshot, got %d", len(counts))
	}
	for name, count := range counts {
		if count != 0 {
			t.Errorf("region %q starts at %d, want 0", name, count)
		}
	}
}

func TestAggregatorAccumulates(t *testing.T) {
	agg := NewAggregator(loadTestStore(t))

	for _, count := range []int{3, 0, 5} {
		if err := agg.Accumulate("Lobby", count); err != nil {
			t.Fatalf("Accumulate: %v", err)
		}
	}

	counts := agg.Snapshot()
	if counts["Lobby"] != 8 {
		t.Fatalf("Lobby total = %d, want 8", counts["Lobby"])
	}
	if counts["Main Hall"] != 0 {
		t.Fatalf("untouched region drifted to %d", counts["Main Hall"])
	}
}

func TestAggregatorRejectsUnknownRegion(t *testing.T) {
	agg := NewAggregator(loadTestStore(t))

	err := agg.Accumulate("Parking", 4)
	if err == nil {
		t.Fatal("expected unknown region error")
	}
	if kind := models.KindOf(err); kind != models.KindUnknownRegion {
		t.Fatalf("expected %s, got %s", models.KindUnknownRegion, kind)
	}

	// The failed call must not create the region.
	if _, ok := agg.Snapshot()["Parking"]; ok {
		t.Fatal("unknown region was auto-created")
	}
}

func TestAggregatorConcurrentAccumulate(t *testing.T) {
	agg := NewAggregator(loadTestStore(t))

	const workers = 16
	const perWorker = 100
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if err := agg.Accumulate("Lobby", 1); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if got := agg.Snapshot()["Lobby"]; got != workers*perWorker {
		t.Fatalf("Lobby total = %d, want %d", got, workers*perWorker)
	}
}

func TestAggregatorSnapshotIsDetached(t *testing.T) {
	agg := NewAggregator(loadTestStore(t))
	if err := agg.Accumulate("Lobby", 2); err != nil {
		t.Fatalf("Accumulate: %v", err)
	}

	snap := agg.Snapshot()
	snap["Lobby"] = 999

	if got := agg.Snapshot()["Lobby"]; got != 2 {
		t.Fatalf("mutating a snapshot leaked into the aggregator: %d", got)
	}
}
