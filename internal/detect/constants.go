package detect

import "time"

// Scanner constants
const (
	// FlagThreshold is the default per-tile flagging threshold. Low by
	// design: false negatives are worse than extra blur.
	FlagThreshold = 0.3

	// MaxFlaggedTiles bounds worst-case scan latency: scanning stops once
	// this many tiles met the threshold. The decision table saturates well
	// below this count.
	MaxFlaggedTiles = 10

	// MinTileFraction: trailing-edge tiles smaller than this fraction of the
	// intended edge are skipped to avoid degenerate scoring on slivers.
	MinTileFraction = 0.25
)

// Consolidation constants
const (
	// MergeOverlapRatio: tiles whose intersection exceeds this fraction of
	// the smaller rectangle's area merge into one region.
	MergeOverlapRatio = 0.3
)

// Cache constants
const (
	DefaultCacheTTL      = 5 * time.Second
	DefaultCacheCapacity = 64

	// MaxHashDistance is the pHash Hamming distance at or below which two
	// frames are treated as the same content.
	MaxHashDistance = 3
)

// Heuristic scorer weights; each signal is bounded to [0,1] before weighting.
const (
	WeightSkinTone   = 0.40
	WeightDominance  = 0.30
	WeightSmoothness = 0.20
	WeightAspect     = 0.10

	// heuristicEdge is the square edge tiles are downscaled to before
	// heuristic analysis, bounding per-tile cost.
	heuristicEdge = 64

	// skinGateLow/High bound the ramp that gates the smoothness signal on
	// skin presence. Below the low end texture contributes nothing.
	skinGateLow  = 0.05
	skinGateHigh = 0.20
)

// SafeDefaultConfidence is substituted when classification cannot complete
// within the deadline: flagged, mid confidence, erring toward caution.
const SafeDefaultConfidence = 0.5

// frameTimeout returns the whole-frame analysis deadline for a tier.
func frameTimeout(t PerformanceTier) time.Duration {
	switch t {
	case TierUltraFast:
		return 50 * time.Millisecond
	case TierFast:
		return 100 * time.Millisecond
	default:
		return 5 * time.Second
	}
}

// tileEdge returns the tile edge length for a frame's smaller dimension and
// tier. Larger frames and higher-quality tiers use larger tiles, trading
// per-tile overhead against spatial precision.
func tileEdge(minDim int, t PerformanceTier) int {
	var small, medium, large int
	switch t {
	case TierUltraFast:
		small, medium, large = 64, 80, 96
	case TierFast:
		small, medium, large = 72, 88, 112
	case TierBalanced:
		small, medium, large = 80, 112, 144
	default: // TierQuality
		small, medium, large = 96, 128, 160
	}
	switch {
	case minDim < 720:
		return small
	case minDim < 1440:
		return medium
	default:
		return large
	}
}

// overlapFraction returns the tile overlap for a tier: denser sweep for the
// quality tiers, sparser for the fast ones.
func overlapFraction(t PerformanceTier) float64 {
	switch t {
	case TierBalanced, TierQuality:
		return 0.5
	default:
		return 0.3
	}
}
