package heatmap

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"crowdmap-worker-go/internal/config"
	"crowdmap-worker-go/internal/logging"
	"crowdmap-worker-go/internal/models"
	"crowdmap-worker-go/internal/services/alerts"
	"crowdmap-worker-go/internal/services/counting"
)

// Service drives aggregation runs over the image directory and owns the
// region store plus the most recently rendered heatmap document.
type Service struct {
	cfg      *config.Config
	counter  *counting.Counter
	alerts   *alerts.Publisher
	renderer *Renderer
	log      zerolog.Logger

	// runMu serializes batch runs: one aggregation run has one writer.
	runMu sync.Mutex

	mu          sync.RWMutex
	store       *Store
	lastHeatmap []byte
	lastCounts  map[string]int
}

// NewService loads the region store from the configured path. alertsPub may
// be nil when alerting is disabled or NATS is unavailable.
func NewService(cfg *config.Config, counter *counting.Counter, alertsPub *alerts.Publisher) (*Service, error) {
	store, err := LoadStoreFromFile(cfg.RegionsPath)
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:      cfg,
		counter:  counter,
		alerts:   alertsPub,
		renderer: NewRenderer(cfg.TierLowMax, cfg.TierMediumMax),
		log:      logging.NewServiceLogger(cfg, "heatmap"),
		store:    store,
	}, nil
}

// Store returns the live region store.
func (s *Service) Store() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// Regions returns the live region definitions in definition order.
func (s *Service) Regions() []models.Region {
	return s.Store().Regions()
}

// Heatmap returns the last rendered document, if any run has completed.
func (s *Service) Heatmap() ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastHeatmap == nil {
		return nil, false
	}
	doc := make([]byte, len(s.lastHeatmap))
	copy(doc, s.lastHeatmap)
	return doc, true
}

// RunBatch counts persons in every image under the configured directory,
// aggregates the counts per region matched by filename, renders the heatmap
// and persists it to the configured output path. A fresh aggregator is built
// for every run.
func (s *Service) RunBatch(ctx context.Context) (*models.BatchResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	start := time.Now()
	store := s.Store()
	aggregator := NewAggregator(store)

	baseSVG, err := os.ReadFile(s.cfg.BaseMapPath)
	if err != nil {
		return nil, models.NewError(models.KindMalformedBaseDocument,
			"failed to read base map %s: %v", s.cfg.BaseMapPath, err)
	}

	entries, err := os.ReadDir(s.cfg.ImageDir)
	if err != nil {
		return nil, models.NewError(models.KindMissingInput,
			"failed to read image directory %s: %v", s.cfg.ImageDir, err)
	}

	result := &models.BatchResult{}
	for _, entry := range entries {
		if entry.IsDir() || !isImageFile(entry.Name()) {
			continue
		}

		region, ok := store.MatchFilename(entry.Name())
		if !ok {
			s.log.Warn().Str("file", entry.Name()).Msg("Could not assign image to any region")
			result.Unassigned++
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.cfg.ImageDir, entry.Name()))
		if err != nil {
			s.log.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to read image file")
			result.Failed++
			continue
		}

		countResult, err := s.counter.Count(ctx, data)
		if err != nil {
			// A dead model fails every remaining image the same way.
			if models.KindOf(err) == models.KindModelUnavailable {
				return nil, err
			}
			s.log.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to count image")
			result.Failed++
			continue
		}

		if err := aggregator.Accumulate(region.Name, countResult.Count); err != nil {
			return nil, err
		}

		logging.WithRegion(s.log, region.Name).Info().
			Str("file", entry.Name()).
			Int("count", countResult.Count).
			Dur("processing_time", countResult.ProcessingTime).
			Msg("Processed image")
		result.Processed++
	}

	counts := aggregator.Snapshot()
	rendered, err := s.renderer.Render(baseSVG, store.Regions(), counts)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(s.cfg.HeatmapOutputPath, rendered, 0o644); err != nil {
		s.log.Error().Err(err).Str("path", s.cfg.HeatmapOutputPath).Msg("Failed to persist heatmap")
	}

	s.mu.Lock()
	s.lastHeatmap = rendered
	s.lastCounts = counts
	s.mu.Unlock()

	if s.alerts != nil {
		s.alerts.PublishCrowdAlerts(counts, s.renderer.TierFor)
	}

	result.Counts = counts
	result.Elapsed = time.Since(start)
	s.log.Info().
		Int("processed", result.Processed).
		Int("unassigned", result.Unassigned).
		Int("failed", result.Failed).
		Dur("elapsed", result.Elapsed).
		Msg("Heatmap run complete")
	return result, nil
}

// UpdateRegions validates doc, persists it to the configured path and swaps
// the live store. The rendered heatmap resets to the bare base map: the old
// aggregate's region set belongs to the previous store.
func (s *Service) UpdateRegions(doc []byte) error {
	store, err := LoadStore(doc)
	if err != nil {
		return err
	}

	if err := os.WriteFile(s.cfg.RegionsPath, doc, 0o644); err != nil {
		return models.NewError(models.KindInvalidRegionDefinition,
			"failed to persist region document: %v", err)
	}

	s.mu.Lock()
	s.store = store
	s.lastHeatmap = nil
	s.lastCounts = nil
	s.mu.Unlock()

	s.log.Info().Int("regions", len(store.regions)).Msg("Region store updated")
	return nil
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	default:
		return false
	}
}
