package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"crowdmap-worker-go/internal/logging"
	"crowdmap-worker-go/internal/models"
)

// CountService is the slice of the counting core this handler needs.
type CountService interface {
	Count(ctx context.Context, imageBytes []byte) (*models.CountResult, error)
}

type CountHandler struct {
	counter CountService
}

func NewCountHandler(counter CountService) *CountHandler {
	return &CountHandler{counter: counter}
}

type CountResponse struct {
	Count            int     `json:"count" example:"12"`
	Message          string  `json:"message" example:"Detected 12 people in the image"`
	ProcessingTimeMs float64 `json:"processing_time_ms" example:"84.2"`
}

// @Summary Count persons in an uploaded image
// @Description Runs the uploaded image through the detection model and returns the person count
// @Tags predict
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image file (jpeg or png)"
// @Success 200 {object} CountResponse
// @Failure 400 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Failure 504 {object} ErrorResponse
// @Router /predict [post]
func (h *CountHandler) Predict(c *gin.Context) {
	imageBytes, err := readUpload(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	result, err := h.counter.Count(c.Request.Context(), imageBytes)
	if err != nil {
		logging.Warn(c).Err(err).Msg("Count request failed")
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, CountResponse{
		Count:            result.Count,
		Message:          fmt.Sprintf("Detected %d people in the image", result.Count),
		ProcessingTimeMs: float64(result.ProcessingTime.Microseconds()) / 1000.0,
	})
}

// readUpload pulls the image bytes out of the multipart "file" field, or the
// raw body when the request is not multipart.
func readUpload(c *gin.Context) ([]byte, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		// Fall back to a raw body upload.
		data, readErr := io.ReadAll(c.Request.Body)
		if readErr != nil || len(data) == 0 {
			return nil, models.NewError(models.KindMissingInput, "no image file in request")
		}
		return data, nil
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, models.NewError(models.KindMissingInput, "failed to open uploaded file: %v", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, models.NewError(models.KindMissingInput, "failed to read uploaded file: %v", err)
	}
	return data, nil
}
