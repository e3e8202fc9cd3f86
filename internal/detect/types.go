// Package detect implements the region-based content density analysis engine:
// tile scanning, classification with model/heuristic fallback, region
// consolidation, and the density-to-action decision table.
package detect

import (
	"image"
	"time"
)

// Source identifies which scorer produced a result.
type Source string

const (
	SourceModel          Source = "model"
	SourceHeuristic      Source = "heuristic"
	SourceTimeoutDefault Source = "timeout-default"
)

// PerformanceTier selects the latency/quality tradeoff profile. It affects
// tile size, overlap, and the whole-frame analysis deadline.
type PerformanceTier int

const (
	TierUltraFast PerformanceTier = iota
	TierFast
	TierBalanced
	TierQuality
)

func (t PerformanceTier) String() string {
	switch t {
	case TierUltraFast:
		return "ultra_fast"
	case TierFast:
		return "fast"
	case TierBalanced:
		return "balanced"
	case TierQuality:
		return "quality"
	default:
		return "unknown"
	}
}

// ParseTier converts a tier name to a PerformanceTier. Unknown names map to
// TierBalanced.
func ParseTier(name string) PerformanceTier {
	switch name {
	case "ultra_fast":
		return TierUltraFast
	case "fast":
		return TierFast
	case "quality":
		return TierQuality
	default:
		return TierBalanced
	}
}

// Tile is one scored sub-rectangle of a frame. Only tiles whose confidence
// met the flagging threshold leave the scanner.
type Tile struct {
	Rect       image.Rectangle
	Confidence float64
}

// Region is the consolidated bounding rectangle of one or more overlapping
// flagged tiles, carrying the maximum constituent confidence.
type Region struct {
	Rect       image.Rectangle `json:"rect"`
	Confidence float64         `json:"confidence"`
}

// DetectionResult is the immutable outcome of one frame analysis.
type DetectionResult struct {
	Flagged             bool
	OverallConfidence   float64
	Regions             []Region
	MaxRegionConfidence float64
	Source              Source
	Elapsed             time.Duration
}

// RegionConfidences returns the per-region confidences parallel to Regions.
func (r *DetectionResult) RegionConfidences() []float64 {
	out := make([]float64, len(r.Regions))
	for i, reg := range r.Regions {
		out[i] = reg.Confidence
	}
	return out
}

// DensityMetric summarizes how much of a frame the flagged regions cover.
// Derived per frame, never stored.
type DensityMetric struct {
	Coverage      float64 // fraction of frame area covered by regions, [0,1]
	RegionCount   int
	MaxConfidence float64
}
