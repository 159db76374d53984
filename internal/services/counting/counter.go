package counting

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"crowdmap-worker-go/internal/config"
	"crowdmap-worker-go/internal/logging"
	"crowdmap-worker-go/internal/models"
	"crowdmap-worker-go/internal/services/detection"
	"crowdmap-worker-go/internal/services/preprocessing"
)

// Counter turns raw image bytes into a person count. It composes the
// preprocessor, the shared model resource and result interpretation; it has
// no per-request state and is safe for concurrent use.
type Counter struct {
	resource      *detection.Resource
	preprocessor  *preprocessing.Preprocessor
	personClassID int
	timeout       time.Duration
	log           zerolog.Logger
}

func NewCounter(cfg *config.Config, resource *detection.Resource) *Counter {
	return &Counter{
		resource:      resource,
		preprocessor:  preprocessing.New(cfg.MaxInputBytes, cfg.MaxImageDimension),
		personClassID: cfg.PersonClassID,
		timeout:       cfg.CountTimeout,
		log:           logging.NewServiceLogger(cfg, "counting"),
	}
}

// Count runs the full pipeline: readiness check, input validation,
// preprocessing, inference, interpretation. Failures carry exactly one
// ErrorKind; an empty detection result is a successful count of zero.
func (c *Counter) Count(ctx context.Context, imageBytes []byte) (*models.CountResult, error) {
	start := time.Now()

	if state := c.resource.State(); state != detection.StateReady {
		return nil, models.NewError(models.KindModelUnavailable, "model resource is %s", state)
	}

	if len(imageBytes) == 0 {
		return nil, models.NewError(models.KindMissingInput, "no image bytes provided")
	}

	img, err := c.preprocessor.DecodeAndNormalize(imageBytes)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	detections, err := c.resource.Infer(ctx, img)
	if err != nil {
		return nil, err
	}

	count := 0
	for _, det := range detections {
		if det.ClassID == c.personClassID {
			count++
		}
	}

	elapsed := time.Since(start)
	c.log.Debug().
		Int("count", count).
		Int("detections", len(detections)).
		Dur("processing_time", elapsed).
		Msg("Counted persons in image")

	return &models.CountResult{
		Count:          count,
		ProcessingTime: elapsed,
	}, nil
}
