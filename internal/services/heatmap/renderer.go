package heatmap

import (
	"fmt"
	"strings"

	"crowdmap-worker-go/internal/models"
)

const closingAnchor = "</svg>"

// Renderer maps aggregated counts to color tiers and injects overlay
// rectangles into a base SVG document. Rendering is pure: identical inputs
// produce byte-identical output.
type Renderer struct {
	tierLowMax    int
	tierMediumMax int
}

// Tier palette follows the crowd alert severities: yellow, orange, red.
var (
	tierLow    = models.Tier{Name: models.TierLow, Color: "#FFFF00", Opacity: 0.30}
	tierMedium = models.Tier{Name: models.TierMedium, Color: "#FFA500", Opacity: 0.45}
	tierHigh   = models.Tier{Name: models.TierHigh, Color: "#FF0000", Opacity: 0.60}
)

func NewRenderer(tierLowMax, tierMediumMax int) *Renderer {
	return &Renderer{tierLowMax: tierLowMax, tierMediumMax: tierMediumMax}
}

// TierFor selects the color tier for a count by the fixed thresholds.
func (r *Renderer) TierFor(count int) models.Tier {
	switch {
	case count <= r.tierLowMax:
		return tierLow
	case count <= r.tierMediumMax:
		return tierMedium
	default:
		return tierHigh
	}
}

// Render emits one rectangle per region with count > 0, in region definition
// order, immediately before the document's closing root tag. Regions at zero
// emit nothing at all.
func (r *Renderer) Render(baseSVG []byte, regions []models.Region, counts map[string]int) ([]byte, error) {
	base := string(baseSVG)
	anchor := strings.LastIndex(base, closingAnchor)
	if anchor < 0 {
		return nil, models.NewError(models.KindMalformedBaseDocument,
			"base document has no %s anchor", closingAnchor)
	}

	var overlay strings.Builder
	for _, region := range regions {
		count := counts[region.Name]
		if count <= 0 {
			continue
		}
		tier := r.TierFor(count)
		fmt.Fprintf(&overlay,
			"<rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"%s\" fill-opacity=\"%.2f\" />\n",
			region.X, region.Y, region.Width, region.Height, tier.Color, tier.Opacity)
	}

	var doc strings.Builder
	doc.Grow(len(base) + overlay.Len())
	doc.WriteString(base[:anchor])
	doc.WriteString(overlay.String())
	doc.WriteString(base[anchor:])
	return []byte(doc.String()), nil
}
