package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"crowdmap-worker-go/internal/logging"
	"crowdmap-worker-go/internal/models"
)

// RegionService is the slice of the region store this handler needs.
type RegionService interface {
	Regions() []models.Region
	UpdateRegions(doc []byte) error
}

type RegionsHandler struct {
	service RegionService
}

func NewRegionsHandler(service RegionService) *RegionsHandler {
	return &RegionsHandler{service: service}
}

type RegionsResponse struct {
	Regions []models.Region `json:"regions"`
}

// @Summary List regions
// @Description Returns the loaded region definitions in definition order
// @Tags regions
// @Produce json
// @Success 200 {object} RegionsResponse
// @Router /regions [get]
func (h *RegionsHandler) ListRegions(c *gin.Context) {
	c.JSON(http.StatusOK, RegionsResponse{Regions: h.service.Regions()})
}

// @Summary Replace the region document
// @Description Validates the posted region document, persists it and swaps the live store; the rendered heatmap resets
// @Tags regions
// @Accept json
// @Produce json
// @Success 204 "region document replaced"
// @Failure 400 {object} ErrorResponse
// @Router /regions [put]
func (h *RegionsHandler) UpdateRegions(c *gin.Context) {
	doc, err := io.ReadAll(c.Request.Body)
	if err != nil || len(doc) == 0 {
		abortWithError(c, models.NewError(models.KindInvalidRegionDefinition, "empty region document"))
		return
	}

	if err := h.service.UpdateRegions(doc); err != nil {
		logging.Warn(c).Err(err).Msg("Region update rejected")
		abortWithError(c, err)
		return
	}

	logging.Info(c).Msg("Region document replaced")
	c.Status(http.StatusNoContent)
}
