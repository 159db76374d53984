package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"crowdmap-worker-go/internal/logging"
	"crowdmap-worker-go/internal/models"
)

// HeatmapService is the slice of the heatmap core this handler needs.
type HeatmapService interface {
	Heatmap() ([]byte, bool)
	RunBatch(ctx context.Context) (*models.BatchResult, error)
}

type HeatmapHandler struct {
	service HeatmapService
}

func NewHeatmapHandler(service HeatmapService) *HeatmapHandler {
	return &HeatmapHandler{service: service}
}

// @Summary Retrieve the rendered heatmap
// @Description Returns the SVG heatmap from the most recent aggregation run
// @Tags heatmap
// @Produce image/svg+xml
// @Success 200 {string} string "SVG document"
// @Failure 404 {object} ErrorResponse
// @Router /heatmap [get]
func (h *HeatmapHandler) GetHeatmap(c *gin.Context) {
	doc, ok := h.service.Heatmap()
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "no heatmap rendered yet, run a generation first",
		})
		return
	}

	c.Data(http.StatusOK, "image/svg+xml", doc)
}

// @Summary Run an aggregation batch
// @Description Counts persons in every image in the configured directory, aggregates per region and re-renders the heatmap
// @Tags heatmap
// @Produce json
// @Success 200 {object} models.BatchResult
// @Failure 500 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /heatmap/generate [post]
func (h *HeatmapHandler) Generate(c *gin.Context) {
	result, err := h.service.RunBatch(c.Request.Context())
	if err != nil {
		logging.Error(c).Err(err).Msg("Heatmap generation failed")
		abortWithError(c, err)
		return
	}

	logging.Info(c).Int("processed", result.Processed).Msg("Heatmap generated")
	c.JSON(http.StatusOK, result)
}
