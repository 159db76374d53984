package heatmap

import (
	"bytes"
	"strings"
	"testing"

	"crowdmap-worker-go/internal/models"
)

const baseSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="500" height="300">
<rect x="0" y="0" width="500" height="300" fill="#EEEEEE" />
</svg>`

func TestTierThresholds(t *testing.T) {
	r := NewRenderer(7, 10)

	cases := []struct {
		count int
		want  models.TierName
	}{
		{0, models.TierLow},
		{7, models.TierLow},
		{8, models.TierMedium},
		{10, models.TierMedium},
		{11, models.TierHigh},
		{12, models.TierHigh},
		{100, models.TierHigh},
	}
	for _, tc := range cases {
		if got := r.TierFor(tc.count).Name; got != tc.want {
			t.Errorf("count %d: tier %s, want %s", tc.count, got, tc.want)
		}
	}
}

func TestRenderHighTierRect(t *testing.T) {
	r := NewRenderer(7, 10)
	regions := []models.Region{{Name: "Lobby", X: 10, Y: 20, Width: 100, Height: 80}}

	out, err := r.Render([]byte(baseSVG), regions, map[string]int{"Lobby": 12})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	doc := string(out)
	want := `<rect x="10" y="20" width="100" height="80" fill="#FF0000" fill-opacity="0.60" />`
	if !strings.Contains(doc, want) {
		t.Fatalf("missing high tier rect %q in:\n%s", want, doc)
	}
	if idx := strings.Index(doc, want); idx > strings.LastIndex(doc, closingAnchor) {
		t.Fatal("overlay rect placed after the closing tag")
	}
	if !strings.HasSuffix(strings.TrimSpace(doc), closingAnchor) {
		t.Fatal("document no longer ends with the closing tag")
	}
}

func TestRenderSkipsZeroCounts(t *testing.T) {
	r := NewRenderer(7, 10)
	regions := []models.Region{
		{Name: "Lobby", X: 10, Y: 20, Width: 100, Height: 80},
		{Name: "Main Hall", X: 120, Y: 20, Width: 200, Height: 160},
	}

	out, err := r.Render([]byte(baseSVG), regions, map[string]int{"Lobby": 0, "Main Hall": 3})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	doc := string(out)
	if strings.Contains(doc, `x="10"`) {
		t.Fatal("zero-count region emitted a rect")
	}
	if !strings.Contains(doc, `x="120"`) {
		t.Fatal("non-zero region missing its rect")
	}
}

func TestRenderDefinitionOrder(t *testing.T) {
	r := NewRenderer(7, 10)
	regions := []models.Region{
		{Name: "B", X: 200, Y: 0, Width: 50, Height: 50},
		{Name: "A", X: 100, Y: 0, Width: 50, Height: 50},
	}

	out, err := r.Render([]byte(baseSVG), regions, map[string]int{"A": 2, "B": 9})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	doc := string(out)
	first := strings.Index(doc, `x="200"`)
	second := strings.Index(doc, `x="100"`)
	if first < 0 || second < 0 {
		t.Fatalf("expected both rects in:\n%s", doc)
	}
	if first > second {
		t.Fatal("rects not in definition order")
	}
}

func TestRenderDeterministic(t *testing.T) {
	r := NewRenderer(7, 10)
	regions := []models.Region{
		{Name: "Lobby", X: 10, Y: 20, Width: 100, Height: 80},
		{Name: "Main Hall", X: 120, Y: 20, Width: 200, Height: 160},
		{Name: "Hall", X: 340, Y: 20, Width: 90, Height: 60},
	}
	counts := map[string]int{"Lobby": 5, "Main Hall": 9, "Hall": 14}

	first, err := r.Render([]byte(baseSVG), regions, counts)
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	second, err := r.Render([]byte(baseSVG), regions, counts)
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("identical inputs rendered different documents")
	}
}

func TestRenderMalformedBase(t *testing.T) {
	r := NewRenderer(7, 10)

	_, err := r.Render([]byte(`<svg><rect />`), nil, map[string]int{})
	if err == nil {
		t.Fatal("expected malformed base document error")
	}
	if kind := models.KindOf(err); kind != models.KindMalformedBaseDocument {
		t.Fatalf("expected %s, got %s", models.KindMalformedBaseDocument, kind)
	}
}

func TestRenderUsesLastAnchor(t *testing.T) {
	r := NewRenderer(7, 10)
	nested := `<svg><svg x="0"></svg><rect /></svg>`
	regions := []models.Region{{Name: "Lobby", X: 1, Y: 2, Width: 3, Height: 4}}

	out, err := r.Render([]byte(nested), regions, map[string]int{"Lobby": 1})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	doc := string(out)
	rect := strings.Index(doc, `fill="#FFFF00"`)
	inner := strings.Index(doc, closingAnchor)
	if rect < inner {
		t.Fatal("overlay injected before the inner closing tag instead of the document end")
	}
}
