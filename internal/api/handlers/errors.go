package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crowdmap-worker-go/internal/models"
)

// ErrorResponse is the JSON body for every failed request.
type ErrorResponse struct {
	Error   string `json:"error" example:"invalid_image"`
	Message string `json:"message" example:"failed to decode image"`
}

// statusForKind maps the core error taxonomy to HTTP statuses. The core
// never sees HTTP; this is the only place the translation happens.
func statusForKind(kind models.ErrorKind) int {
	switch kind {
	case models.KindMissingInput, models.KindInvalidImage,
		models.KindUnknownRegion, models.KindInvalidRegionDefinition:
		return http.StatusBadRequest
	case models.KindImageTooLarge:
		return http.StatusRequestEntityTooLarge
	case models.KindModelUnavailable:
		return http.StatusServiceUnavailable
	case models.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	kind := models.KindOf(err)
	c.JSON(statusForKind(kind), ErrorResponse{
		Error:   string(kind),
		Message: err.Error(),
	})
}
