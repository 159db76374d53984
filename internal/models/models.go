package models

import (
	"time"
)

// Detection represents a single raw detection from the model.
type Detection struct {
	ClassID    int        `json:"class_id"`
	Confidence float32    `json:"confidence"`
	BBox       [4]float32 `json:"bbox"` // x1, y1, x2, y2 in source image pixels
}

// CountResult is the successful outcome of one counting operation.
type CountResult struct {
	Count          int           `json:"count"`
	ProcessingTime time.Duration `json:"processing_time"`
}

// Region is a named rectangular area on the overlay map. Coordinates are in
// the base document's coordinate space.
type Region struct {
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// TierName identifies a count-to-color band of the heatmap renderer.
type TierName string

const (
	TierLow    TierName = "low"
	TierMedium TierName = "medium"
	TierHigh   TierName = "high"
)

// Tier maps a count range to a fill color and opacity.
type Tier struct {
	Name    TierName `json:"name"`
	Color   string   `json:"color"`
	Opacity float64  `json:"opacity"`
}

// CrowdAlert is published on NATS when a region's aggregate count lands in
// the high tier after a batch run.
type CrowdAlert struct {
	Region    string    `json:"region"`
	Count     int       `json:"count"`
	Tier      TierName  `json:"tier"`
	Threshold int       `json:"threshold"`
	WorkerID  string    `json:"worker_id"`
	Timestamp time.Time `json:"timestamp"`
}

// BatchResult summarizes one aggregation run over an image directory.
type BatchResult struct {
	Processed  int            `json:"processed"`
	Unassigned int            `json:"unassigned"`
	Failed     int            `json:"failed"`
	Counts     map[string]int `json:"counts"`
	Elapsed    time.Duration  `json:"elapsed"`
}
