package heatmap

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"crowdmap-worker-go/internal/config"
	"crowdmap-worker-go/internal/models"
	"crowdmap-worker-go/internal/services/counting"
	"crowdmap-worker-go/internal/services/detection"
)

type fixedDetector struct {
	detections []models.Detection
}

func (f *fixedDetector) Detect(img image.Image) ([]models.Detection, error) {
	return f.detections, nil
}

func (f *fixedDetector) Close() error { return nil }

func persons(n int) []models.Detection {
	out := make([]models.Detection, n)
	for i := range out {
		out[i] = models.Detection{ClassID: 0, Confidence: 0.9}
	}
	return out
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: 100, G: 100, B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

func serviceFixture(t *testing.T, det detection.Detector) (*Service, *config.Config) {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{
		WorkerID:          "test-worker",
		PersonClassID:     0,
		MaxInputBytes:     10 * 1024 * 1024,
		MaxImageDimension: 1280,
		CountTimeout:      time.Second,
		LogLevel:          "disabled",
		RegionsPath:       filepath.Join(dir, "regions.json"),
		BaseMapPath:       filepath.Join(dir, "map.svg"),
		HeatmapOutputPath: filepath.Join(dir, "heatmap.svg"),
		ImageDir:          filepath.Join(dir, "images"),
		TierLowMax:        7,
		TierMediumMax:     10,
	}

	if err := os.WriteFile(cfg.RegionsPath, []byte(regionDocument), 0o644); err != nil {
		t.Fatalf("write regions: %v", err)
	}
	if err := os.WriteFile(cfg.BaseMapPath, []byte(baseSVG), 0o644); err != nil {
		t.Fatalf("write base map: %v", err)
	}
	if err := os.Mkdir(cfg.ImageDir, 0o755); err != nil {
		t.Fatalf("mkdir images: %v", err)
	}

	resource := detection.NewResource(func() (detection.Detector, error) {
		return det, nil
	})
	if err := resource.EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}

	svc, err := NewService(cfg, counting.NewCounter(cfg, resource), nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, cfg
}

func TestRunBatchAggregatesByRegion(t *testing.T) {
	svc, cfg := serviceFixture(t, &fixedDetector{detections: persons(4)})

	writePNG(t, filepath.Join(cfg.ImageDir, "lobby_cam1.png"))
	writePNG(t, filepath.Join(cfg.ImageDir, "lobby_cam2.png"))
	writePNG(t, filepath.Join(cfg.ImageDir, "mainhall_front.png"))
	writePNG(t, filepath.Join(cfg.ImageDir, "parking.png")) // no region
	if err := os.WriteFile(filepath.Join(cfg.ImageDir, "notes.txt"), []byte("skip"), 0o644); err != nil {
		t.Fatalf("write txt: %v", err)
	}

	result, err := svc.RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}

	if result.Processed != 3 {
		t.Errorf("processed = %d, want 3", result.Processed)
	}
	if result.Unassigned != 1 {
		t.Errorf("unassigned = %d, want 1", result.Unassigned)
	}
	if result.Failed != 0 {
		t.Errorf("failed = %d, want 0", result.Failed)
	}
	if result.Counts["Lobby"] != 8 {
		t.Errorf("Lobby = %d, want 8", result.Counts["Lobby"])
	}
	if result.Counts["Main Hall"] != 4 {
		t.Errorf("Main Hall = %d, want 4", result.Counts["Main Hall"])
	}
	if result.Counts["Hall"] != 0 {
		t.Errorf("Hall = %d, want 0", result.Counts["Hall"])
	}

	// Lobby at 8 lands in the medium tier.
	doc, ok := svc.Heatmap()
	if !ok {
		t.Fatal("no heatmap after a completed run")
	}
	if !strings.Contains(string(doc), `fill="#FFA500"`) {
		t.Error("medium tier rect missing from rendered heatmap")
	}

	// The document is also persisted.
	persisted, err := os.ReadFile(cfg.HeatmapOutputPath)
	if err != nil {
		t.Fatalf("read persisted heatmap: %v", err)
	}
	if !bytes.Equal(persisted, doc) {
		t.Error("persisted heatmap differs from served heatmap")
	}
}

func TestRunBatchEmptyDirectoryRendersBareMap(t *testing.T) {
	svc, _ := serviceFixture(t, &fixedDetector{})

	result, err := svc.RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if result.Processed != 0 {
		t.Fatalf("processed = %d, want 0", result.Processed)
	}

	doc, ok := svc.Heatmap()
	if !ok {
		t.Fatal("no heatmap after a completed run")
	}
	if strings.Contains(string(doc), "fill-opacity") {
		t.Error("empty run emitted overlay rects")
	}
}

func TestHeatmapBeforeFirstRun(t *testing.T) {
	svc, _ := serviceFixture(t, &fixedDetector{})

	if _, ok := svc.Heatmap(); ok {
		t.Fatal("heatmap available before any run")
	}
}

func TestRunBatchAbortsWhenModelDies(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		WorkerID:          "test-worker",
		MaxInputBytes:     10 * 1024 * 1024,
		MaxImageDimension: 1280,
		CountTimeout:      time.Second,
		LogLevel:          "disabled",
		RegionsPath:       filepath.Join(dir, "regions.json"),
		BaseMapPath:       filepath.Join(dir, "map.svg"),
		HeatmapOutputPath: filepath.Join(dir, "heatmap.svg"),
		ImageDir:          filepath.Join(dir, "images"),
		TierLowMax:        7,
		TierMediumMax:     10,
	}
	if err := os.WriteFile(cfg.RegionsPath, []byte(regionDocument), 0o644); err != nil {
		t.Fatalf("write regions: %v", err)
	}
	if err := os.WriteFile(cfg.BaseMapPath, []byte(baseSVG), 0o644); err != nil {
		t.Fatalf("write base map: %v", err)
	}
	if err := os.Mkdir(cfg.ImageDir, 0o755); err != nil {
		t.Fatalf("mkdir images: %v", err)
	}
	writePNG(t, filepath.Join(cfg.ImageDir, "lobby_cam1.png"))

	// Never warmed up, so every count fails with model_unavailable.
	resource := detection.NewResource(func() (detection.Detector, error) {
		return &fixedDetector{}, nil
	})
	svc, err := NewService(cfg, counting.NewCounter(cfg, resource), nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.RunBatch(context.Background())
	if err == nil {
		t.Fatal("expected run to abort")
	}
	if kind := models.KindOf(err); kind != models.KindModelUnavailable {
		t.Fatalf("expected %s, got %s", models.KindModelUnavailable, kind)
	}
}

func TestUpdateRegionsSwapsStoreAndResetsHeatmap(t *testing.T) {
	svc, cfg := serviceFixture(t, &fixedDetector{detections: persons(2)})
	writePNG(t, filepath.Join(cfg.ImageDir, "lobby_cam1.png"))

	if _, err := svc.RunBatch(context.Background()); err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if _, ok := svc.Heatmap(); !ok {
		t.Fatal("expected a heatmap after the run")
	}

	newDoc := `{"regions": [{"name": "Atrium", "x": 5, "y": 5, "width": 50, "height": 50}]}`
	if err := svc.UpdateRegions([]byte(newDoc)); err != nil {
		t.Fatalf("UpdateRegions: %v", err)
	}

	regions := svc.Regions()
	if len(regions) != 1 || regions[0].Name != "Atrium" {
		t.Fatalf("store not swapped: %+v", regions)
	}
	if _, ok := svc.Heatmap(); ok {
		t.Fatal("stale heatmap survived a region update")
	}

	// The new document is persisted for the next start.
	persisted, err := os.ReadFile(cfg.RegionsPath)
	if err != nil {
		t.Fatalf("read persisted regions: %v", err)
	}
	if string(persisted) != newDoc {
		t.Fatal("persisted region document differs from submitted one")
	}
}

func TestUpdateRegionsRejectsInvalidDocument(t *testing.T) {
	svc, _ := serviceFixture(t, &fixedDetector{})

	err := svc.UpdateRegions([]byte(`{"regions": [{"x": 1}]}`))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if kind := models.KindOf(err); kind != models.KindInvalidRegionDefinition {
		t.Fatalf("expected %s, got %s", models.KindInvalidRegionDefinition, kind)
	}

	// The live store is untouched.
	if len(svc.Regions()) != 3 {
		t.Fatal("invalid update mutated the store")
	}
}
