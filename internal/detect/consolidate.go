package detect

import "image"

// Merge consolidates overlapping flagged tiles into a minimal set of
// regions. Tiles are visited in scan order; a tile joins the first existing
// region whose overlap ratio (intersection area over the smaller rectangle)
// exceeds MergeOverlapRatio, growing that region to the bounding union and
// keeping the maximum confidence. Linear scan on purpose: the scanner bounds
// tile counts to MaxFlaggedTiles, so a spatial index would buy nothing.
// Output is deterministic for a given tile order.
func Merge(tiles []Tile) []Region {
	regions := make([]Region, 0, len(tiles))
	for _, t := range tiles {
		merged := false
		for i := range regions {
			if overlapRatio(regions[i].Rect, t.Rect) > MergeOverlapRatio {
				regions[i].Rect = regions[i].Rect.Union(t.Rect)
				if t.Confidence > regions[i].Confidence {
					regions[i].Confidence = t.Confidence
				}
				merged = true
				break
			}
		}
		if !merged {
			regions = append(regions, Region{Rect: t.Rect, Confidence: t.Confidence})
		}
	}
	return regions
}

// overlapRatio is the intersection area divided by the smaller rectangle's
// area, 0 when either rectangle is empty.
func overlapRatio(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	smaller := min(rectArea(a), rectArea(b))
	if smaller == 0 {
		return 0
	}
	return float64(rectArea(inter)) / float64(smaller)
}

func rectArea(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}
