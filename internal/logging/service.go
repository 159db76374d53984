package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"crowdmap-worker-go/internal/config"
)

func NewServiceLogger(cfg *config.Config, service string) zerolog.Logger {
	return log.With().Str("worker_id", cfg.WorkerID).Str("service", service).Logger()
}

func WithRegion(base zerolog.Logger, region string) zerolog.Logger {
	return base.With().Str("region", region).Logger()
}
