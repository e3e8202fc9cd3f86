package detect

import (
	"context"
	"image"
	"runtime"
	"sync"
	"sync/atomic"

	apperrors "github.com/sightveil/platform/internal/errors"
)

// Scanner partitions a frame into overlapping tiles sized by tier and frame
// resolution and scores each tile via the Backend. Tiles are scored
// concurrently but the scan is all-or-nothing: either every submitted tile
// completes, or the whole scan fails on the frame deadline.
type Scanner struct {
	backend       *Backend
	flagThreshold float64
}

// NewScanner creates a scanner with the given flagging threshold.
func NewScanner(backend *Backend, flagThreshold float64) *Scanner {
	if flagThreshold <= 0 || flagThreshold > 1 {
		flagThreshold = FlagThreshold
	}
	return &Scanner{backend: backend, flagThreshold: flagThreshold}
}

// Scan returns flagged tiles in row-major scan order, at most
// MaxFlaggedTiles of them, plus the source that produced the scores. The
// only synchronously surfaced failures are InvalidFrame and the frame
// deadline; the caller substitutes the safe default on the latter.
func (s *Scanner) Scan(ctx context.Context, frame *image.RGBA, tier PerformanceTier) ([]Tile, Source, error) {
	if frame == nil {
		return nil, "", apperrors.New(apperrors.CodeInvalidFrame, "nil frame")
	}
	b := frame.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, "", apperrors.Newf(apperrors.CodeInvalidFrame, "zero-area frame %dx%d", b.Dx(), b.Dy())
	}

	rects := tileRects(b, tier)

	type slot struct {
		tile    Tile
		flagged bool
	}
	results := make([]slot, len(rects)) // each goroutine writes only its own index

	var (
		wg            sync.WaitGroup
		flaggedCount  atomic.Int32
		timedOut      atomic.Bool
		heuristicUsed atomic.Bool
	)
	sem := make(chan struct{}, runtime.NumCPU())

	for i, r := range rects {
		if flaggedCount.Load() >= MaxFlaggedTiles || timedOut.Load() || ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, r image.Rectangle) {
			defer wg.Done()
			defer func() { <-sem }()
			if flaggedCount.Load() >= MaxFlaggedTiles || timedOut.Load() {
				return
			}
			sub := frame.SubImage(r).(*image.RGBA)
			conf, src, err := s.backend.Score(ctx, sub)
			if err != nil {
				timedOut.Store(true)
				return
			}
			if src == SourceHeuristic {
				heuristicUsed.Store(true)
			}
			if conf >= s.flagThreshold {
				results[i] = slot{tile: Tile{Rect: r, Confidence: conf}, flagged: true}
				flaggedCount.Add(1)
			}
		}(i, r)
	}
	wg.Wait()

	if timedOut.Load() || ctx.Err() != nil {
		// Partial results are discarded, never returned.
		return nil, "", apperrors.New(apperrors.CodeInferenceTimeout, "frame scan exceeded tier deadline")
	}

	tiles := make([]Tile, 0, MaxFlaggedTiles)
	for _, res := range results {
		if !res.flagged {
			continue
		}
		tiles = append(tiles, res.tile)
		if len(tiles) == MaxFlaggedTiles {
			break
		}
	}

	src := SourceModel
	if heuristicUsed.Load() || !s.backend.HasModel() {
		src = SourceHeuristic
	}
	return tiles, src, nil
}

// tileRects enumerates candidate tile rectangles in row-major order,
// skipping trailing-edge slivers below MinTileFraction of the intended edge.
func tileRects(b image.Rectangle, tier PerformanceTier) []image.Rectangle {
	edge := tileEdge(min(b.Dx(), b.Dy()), tier)
	step := int(float64(edge) * (1 - overlapFraction(tier)))
	if step < 1 {
		step = 1
	}
	minEdge := int(float64(edge) * MinTileFraction)

	var rects []image.Rectangle
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			r := image.Rect(x, y, min(x+edge, b.Max.X), min(y+edge, b.Max.Y))
			if r.Dx() < minEdge || r.Dy() < minEdge {
				continue
			}
			rects = append(rects, r)
		}
	}
	return rects
}
