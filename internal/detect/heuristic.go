package detect

import (
	"context"
	"image"
	"image/color"
	"math"

	"github.com/nfnt/resize"
)

// heuristicScorer is the fallback when no model is loaded or inference fails.
// It combines four bounded signals with fixed weights: skin-tone pixel ratio,
// dominant-color concentration, local-brightness-variance smoothness, and a
// minor aspect-ratio term.
type heuristicScorer struct{}

// Score rates one tile in [0,1]. The tile is downscaled to a fixed edge
// first so per-tile cost is bounded regardless of tile size.
func (heuristicScorer) Score(ctx context.Context, tile *image.RGBA) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	b := tile.Bounds()
	small := resize.Resize(heuristicEdge, heuristicEdge, tile, resize.Bilinear)

	skin := skinRatio(small)
	dominance := dominantColorConcentration(small)
	// Texture only counts as a signal when skin is actually present; a smooth
	// solid background or UI gradient is not an exposure indicator.
	smooth := smoothness(small) * skinPresenceGate(skin)
	aspect := aspectTerm(b.Dx(), b.Dy())

	score := WeightSkinTone*skin +
		WeightDominance*dominance +
		WeightSmoothness*smooth +
		WeightAspect*aspect
	return clamp01(score), nil
}

// skinRatio returns the fraction of pixels matching a classic RGB skin rule.
func skinRatio(img image.Image) float64 {
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}
	matched := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			if isSkin(int(c.R), int(c.G), int(c.B)) {
				matched++
			}
		}
	}
	return clamp01(float64(matched) / float64(total))
}

// isSkin applies a classic RGB skin-tone rule.
func isSkin(r, g, b int) bool {
	maxC := max(r, max(g, b))
	minC := min(r, min(g, b))
	return r > 95 && g > 40 && b > 20 &&
		r > g && r > b &&
		abs(r-g) > 15 && maxC-minC > 15
}

// dominantColorConcentration quantizes skin-matched pixels to a coarse
// palette and returns the share of the most common bucket relative to all
// pixels. Uniform non-skin surfaces (solid backgrounds, documents) score 0.
func dominantColorConcentration(img image.Image) float64 {
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}
	var buckets [512]int // 3 bits per channel
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			if !isSkin(int(c.R), int(c.G), int(c.B)) {
				continue
			}
			idx := int(c.R>>5)<<6 | int(c.G>>5)<<3 | int(c.B>>5)
			buckets[idx]++
		}
	}
	best := 0
	for _, n := range buckets {
		if n > best {
			best = n
		}
	}
	return clamp01(float64(best) / float64(total))
}

// skinPresenceGate ramps from 0 below skinGateLow to 1 at skinGateHigh.
func skinPresenceGate(skin float64) float64 {
	return clamp01((skin - skinGateLow) / (skinGateHigh - skinGateLow))
}

// smoothness measures local brightness variance over 8x8 blocks; low
// variance (smooth gradients) scores high.
func smoothness(img image.Image) float64 {
	const block = 8
	b := img.Bounds()
	if b.Dx() < block || b.Dy() < block {
		return 0
	}

	var sumVar float64
	blocks := 0
	for by := b.Min.Y; by+block <= b.Max.Y; by += block {
		for bx := b.Min.X; bx+block <= b.Max.X; bx += block {
			var sum, sumSq float64
			for y := by; y < by+block; y++ {
				for x := bx; x < bx+block; x++ {
					c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
					luma := 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
					sum += luma
					sumSq += luma * luma
				}
			}
			n := float64(block * block)
			mean := sum / n
			sumVar += sumSq/n - mean*mean
			blocks++
		}
	}
	avgVar := sumVar / float64(blocks)

	// Normalize: stddev beyond ~45 luma levels counts as fully textured.
	const varCeiling = 2048.0
	return clamp01(1 - avgVar/varCeiling)
}

// aspectTerm is a minor composition signal peaking near portrait framing.
func aspectTerm(w, h int) float64 {
	if w <= 0 || h <= 0 {
		return 0
	}
	ar := float64(w) / float64(h)
	return clamp01(1 - math.Abs(ar-0.75))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
