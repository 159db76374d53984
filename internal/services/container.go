package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"crowdmap-worker-go/internal/config"
	"crowdmap-worker-go/internal/services/alerts"
	"crowdmap-worker-go/internal/services/counting"
	"crowdmap-worker-go/internal/services/detection"
	"crowdmap-worker-go/internal/services/heatmap"
	"crowdmap-worker-go/internal/services/messaging"
)

// ServiceContainer holds all services
type ServiceContainer struct {
	Config       *config.Config
	ModelRes     *detection.Resource
	Counter      *counting.Counter
	Messaging    *messaging.Service
	HeatmapSvc   *heatmap.Service
	AlertsActive bool
}

// NewServiceContainer creates a new service container
func NewServiceContainer(cfg *config.Config) (*ServiceContainer, error) {
	modelRes := detection.NewResource(func() (detection.Detector, error) {
		return detection.OpenYOLO(cfg)
	})

	counter := counting.NewCounter(cfg, modelRes)

	// NATS is optional: a missing broker disables alerts, never the worker.
	var messagingSvc *messaging.Service
	var alertsPub *alerts.Publisher
	if cfg.AlertsEnabled {
		svc, err := messaging.NewService(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("NATS unavailable, crowd alerts disabled")
		} else {
			messagingSvc = svc
			alertsPub = alerts.NewPublisher(cfg, svc)
		}
	}

	heatmapSvc, err := heatmap.NewService(cfg, counter, alertsPub)
	if err != nil {
		return nil, err
	}

	return &ServiceContainer{
		Config:       cfg,
		ModelRes:     modelRes,
		Counter:      counter,
		Messaging:    messagingSvc,
		HeatmapSvc:   heatmapSvc,
		AlertsActive: alertsPub != nil,
	}, nil
}

// WarmUp drives the model resource to a terminal state in the background so
// the first upload does not pay the load cost.
func (sc *ServiceContainer) WarmUp(ctx context.Context) {
	go func() {
		if err := sc.ModelRes.EnsureReady(ctx); err != nil {
			log.Error().Err(err).Msg("Model warm-up failed; count requests will be rejected")
		}
	}()
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	if sc.Messaging != nil {
		if err := sc.Messaging.Shutdown(ctx); err != nil {
			return err
		}
	}

	if sc.ModelRes != nil {
		return sc.ModelRes.Shutdown(ctx)
	}

	return nil
}
