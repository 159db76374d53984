package preprocessing

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"

	"crowdmap-worker-go/internal/models"
)

// Preprocessor decodes raw upload bytes into a normalized RGB image bounded
// by the configured limits. It holds no state; the same bytes and limits
// always produce the same output dimensions.
type Preprocessor struct {
	maxInputBytes int
	maxDimension  int
}

func New(maxInputBytes, maxDimension int) *Preprocessor {
	return &Preprocessor{
		maxInputBytes: maxInputBytes,
		maxDimension:  maxDimension,
	}
}

// DecodeAndNormalize validates and decodes data. The byte-size guard runs
// before any decode work so oversized payloads are rejected cheaply. Images
// whose longer side exceeds the dimension bound are downsampled with Lanczos
// resampling, preserving aspect ratio; smaller images pass through unchanged
// (no upsampling).
func (p *Preprocessor) DecodeAndNormalize(data []byte) (*image.NRGBA, error) {
	if len(data) > p.maxInputBytes {
		return nil, models.NewError(models.KindImageTooLarge,
			"image payload is %d bytes, limit is %d", len(data), p.maxInputBytes)
	}

	decoded, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, models.NewError(models.KindInvalidImage, "failed to decode image: %v", err)
	}

	// Clone normalizes every source format to the same RGB in-memory layout.
	img := imaging.Clone(decoded)

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= p.maxDimension && height <= p.maxDimension {
		return img, nil
	}

	if width >= height {
		return imaging.Resize(img, p.maxDimension, 0, imaging.Lanczos), nil
	}
	return imaging.Resize(img, 0, p.maxDimension, imaging.Lanczos), nil
}
