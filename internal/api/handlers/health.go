package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crowdmap-worker-go/internal/services/detection"
)

// ModelStater exposes the model resource lifecycle state to the health probe.
type ModelStater interface {
	State() detection.State
}

type HealthHandler struct {
	WorkerID string
	Version  string
	model    ModelStater
}

func NewHealthHandler(workerID, version string, model ModelStater) *HealthHandler {
	return &HealthHandler{WorkerID: workerID, Version: version, model: model}
}

type HealthResponse struct {
	Status     string `json:"status" example:"healthy"`
	WorkerID   string `json:"worker_id" example:"worker-1"`
	ModelState string `json:"model_state" example:"ready"`
}

type WorkerInfoResponse struct {
	WorkerID     string   `json:"worker_id" example:"worker-1"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Capabilities []string `json:"capabilities"`
}

// @Summary Health check
// @Description Check if the worker is healthy; degraded while the model is not ready
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	state := h.model.State()
	status := "healthy"
	if state != detection.StateReady {
		status = "degraded"
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:     status,
		WorkerID:   h.WorkerID,
		ModelState: string(state),
	})
}

// @Summary Worker information
// @Description Get basic worker information and capabilities
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} WorkerInfoResponse
// @Router / [get]
func (h *HealthHandler) WorkerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, WorkerInfoResponse{
		WorkerID: h.WorkerID,
		Status:   "running",
		Version:  h.Version,
		Capabilities: []string{
			"person_counting",
			"region_aggregation",
			"heatmap_rendering",
		},
	})
}
