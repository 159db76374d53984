package alerts

import (
	"time"

	"github.com/rs/zerolog"

	"crowdmap-worker-go/internal/config"
	"crowdmap-worker-go/internal/logging"
	"crowdmap-worker-go/internal/models"
)

// MessagePublisher is the messaging capability the alert publisher needs.
type MessagePublisher interface {
	Publish(subject string, data interface{}) error
}

// Publisher emits a crowd alert for every region whose aggregate count lands
// in the high tier after a batch run.
type Publisher struct {
	publisher MessagePublisher
	subject   string
	threshold int
	workerID  string
	log       zerolog.Logger
}

func NewPublisher(cfg *config.Config, publisher MessagePublisher) *Publisher {
	return &Publisher{
		publisher: publisher,
		subject:   cfg.AlertsSubject,
		threshold: cfg.TierMediumMax + 1,
		workerID:  cfg.WorkerID,
		log:       logging.NewServiceLogger(cfg, "alerts"),
	}
}

// PublishCrowdAlerts inspects the aggregate and publishes one alert per
// high-tier region. Publish failures are logged, never propagated: alerting
// must not fail the run that produced the aggregate.
func (p *Publisher) PublishCrowdAlerts(counts map[string]int, tierFor func(int) models.Tier) {
	now := time.Now().UTC()
	for region, count := range counts {
		tier := tierFor(count)
		if tier.Name != models.TierHigh {
			continue
		}

		alert := models.CrowdAlert{
			Region:    region,
			Count:     count,
			Tier:      tier.Name,
			Threshold: p.threshold,
			WorkerID:  p.workerID,
			Timestamp: now,
		}

		regionLog := logging.WithRegion(p.log, region)
		if err := p.publisher.Publish(p.subject, alert); err != nil {
			regionLog.Warn().Err(err).Msg("Failed to publish crowd alert")
			continue
		}

		regionLog.Info().
			Int("count", count).
			Str("subject", p.subject).
			Msg("Crowd alert published")
	}
}
