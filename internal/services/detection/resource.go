package detection

import (
	"context"
	"image"
	"sync"

	"github.com/rs/zerolog/log"

	"crowdmap-worker-go/internal/models"
)

// State is the lifecycle state of the shared model resource.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
	StateFailed        State = "failed"
)

// Detector is the opaque detection capability the resource manages. Detect
// blocks for the duration of one inference; results belong exclusively to the
// caller.
type Detector interface {
	Detect(img image.Image) ([]models.Detection, error)
	Close() error
}

// Resource owns the process-wide detector. The first caller of EnsureReady
// performs the load; everyone else waits for the published terminal state.
// A failed load is permanent for the process.
type Resource struct {
	mu      sync.Mutex
	state   State
	done    chan struct{} // closed once state is terminal
	det     Detector
	loadErr error

	open func() (Detector, error)
}

// NewResource creates an uninitialized resource around a detector factory.
// The factory runs at most once.
func NewResource(open func() (Detector, error)) *Resource {
	return &Resource{
		state: StateUninitialized,
		done:  make(chan struct{}),
		open:  open,
	}
}

// State returns the current lifecycle state.
func (r *Resource) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// EnsureReady drives the resource to a terminal state. Exactly one caller
// runs the load; concurrent callers block until Ready or Failed is published
// (or their context expires). Once Failed, every call returns the same
// ModelUnavailable error without retrying.
func (r *Resource) EnsureReady(ctx context.Context) error {
	r.mu.Lock()
	switch r.state {
	case StateReady:
		r.mu.Unlock()
		return nil
	case StateFailed:
		err := r.loadErr
		r.mu.Unlock()
		return err
	case StateInitializing:
		r.mu.Unlock()
		return r.wait(ctx)
	}

	// This caller won the Uninitialized -> Initializing transition.
	r.state = StateInitializing
	r.mu.Unlock()

	log.Info().Msg("Loading detection model")
	det, err := r.open()

	r.mu.Lock()
	if err != nil {
		r.state = StateFailed
		r.loadErr = models.NewError(models.KindModelUnavailable, "model load failed: %v", err)
		log.Error().Err(err).Msg("Detection model load failed")
	} else {
		r.state = StateReady
		r.det = det
		log.Info().Msg("Detection model ready")
	}
	loadErr := r.loadErr
	r.mu.Unlock()

	close(r.done)
	return loadErr
}

// wait blocks until the initializing caller publishes a terminal state.
func (r *Resource) wait(ctx context.Context) error {
	select {
	case <-r.done:
	case <-ctx.Done():
		return models.NewError(models.KindTimeout, "gave up waiting for model initialization: %v", ctx.Err())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadErr
}

// Infer runs one detection pass on a worker goroutine, suspending the caller
// until it finishes or ctx expires. On timeout the caller's wait is abandoned;
// the dispatched inference completes in the background and its result is
// discarded, leaving the shared detector intact.
func (r *Resource) Infer(ctx context.Context, img image.Image) ([]models.Detection, error) {
	r.mu.Lock()
	if r.state != StateReady {
		state := r.state
		r.mu.Unlock()
		return nil, models.NewError(models.KindModelUnavailable, "model resource is %s", state)
	}
	det := r.det
	r.mu.Unlock()

	type inferResult struct {
		detections []models.Detection
		err        error
	}

	// Buffered so an abandoned inference can still deliver and exit.
	resultCh := make(chan inferResult, 1)
	go func() {
		detections, err := det.Detect(img)
		resultCh <- inferResult{detections: detections, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			return nil, models.NewError(models.KindInferenceFailed, "inference failed: %v", res.err)
		}
		return res.detections, nil
	case <-ctx.Done():
		return nil, models.NewError(models.KindTimeout, "inference deadline exceeded: %v", ctx.Err())
	}
}

// Shutdown releases the underlying detector. Only called on process exit.
func (r *Resource) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.det != nil {
		log.Info().Msg("Releasing detection model")
		err := r.det.Close()
		r.det = nil
		r.state = StateFailed
		r.loadErr = models.NewError(models.KindModelUnavailable, "model resource shut down")
		return err
	}
	return nil
}
