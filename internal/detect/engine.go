package detect

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/corona10/goimagehash"

	apperrors "github.com/sightveil/platform/internal/errors"
	"github.com/sightveil/platform/internal/monitor"
)

// Engine is the detection context: it owns the performance tier, the
// whole-frame result cache, and the scoring backend. Tier and caches live
// here as explicit state rather than ambient globals, so the tier-change /
// cache-invalidation contract is visible and testable.
//
// The engine assumes one frame in flight per consumer and keeps no queue;
// callers drop or serialize frames themselves.
type Engine struct {
	mu         sync.RWMutex
	tier       PerformanceTier
	lastHash   *goimagehash.ImageHash
	lastResult *DetectionResult

	cache    *resultCache
	backend  *Backend
	scanner  *Scanner
	recorder monitor.Recorder
}

// Options configures a new engine. Zero values use the package defaults.
type Options struct {
	Tier          PerformanceTier
	CacheTTL      time.Duration
	FlagThreshold float64
}

// NewEngine creates an engine. model may be nil for heuristic-only operation.
func NewEngine(model ModelScorer, rec monitor.Recorder, opts Options) *Engine {
	backend := NewBackend(model, rec)
	return &Engine{
		tier:     opts.Tier,
		cache:    newResultCache(opts.CacheTTL, DefaultCacheCapacity),
		backend:  backend,
		scanner:  NewScanner(backend, opts.FlagThreshold),
		recorder: rec,
	}
}

// HasModel reports whether model inference is currently available.
func (e *Engine) HasModel() bool {
	return e.backend.HasModel()
}

// Tier returns the current performance tier.
func (e *Engine) Tier() PerformanceTier {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tier
}

// SetPerformanceTier switches the tier and invalidates all caches: tile
// granularity differs per tier, so prior results no longer describe what a
// scan would produce.
func (e *Engine) SetPerformanceTier(t PerformanceTier) {
	e.mu.Lock()
	e.tier = t
	e.lastHash = nil
	e.lastResult = nil
	e.mu.Unlock()
	e.cache.invalidateAll()
}

// AnalyzeFrame classifies one frame. Idempotent within the cache TTL for
// identical frames. The only synchronous error is an invalid frame; a
// deadline hit yields the safe-default result instead of an error.
func (e *Engine) AnalyzeFrame(ctx context.Context, frame *image.RGBA) (*DetectionResult, error) {
	start := time.Now()

	if frame == nil {
		return nil, apperrors.New(apperrors.CodeInvalidFrame, "nil frame")
	}
	bounds := frame.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, apperrors.Newf(apperrors.CodeInvalidFrame, "zero-area frame %dx%d", bounds.Dx(), bounds.Dy())
	}

	tier := e.Tier()
	budget := frameTimeout(tier)

	fp := Fingerprint(frame)
	if res, ok := e.cache.get(fp, start); ok {
		e.record(start, budget, true, res.Source)
		return res, nil
	}

	if res := e.nearDuplicate(frame); res != nil {
		e.record(start, budget, true, res.Source)
		return res, nil
	}

	scanCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	tiles, src, err := e.scanner.Scan(scanCtx, frame, tier)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeInferenceTimeout) {
			res := safeDefaultResult(time.Since(start))
			e.record(start, budget, false, SourceTimeoutDefault)
			return res, nil
		}
		return nil, err
	}

	regions := Merge(tiles)
	maxConf := 0.0
	for _, r := range regions {
		if r.Confidence > maxConf {
			maxConf = r.Confidence
		}
	}

	res := &DetectionResult{
		Flagged:             len(regions) > 0,
		OverallConfidence:   maxConf,
		Regions:             regions,
		MaxRegionConfidence: maxConf,
		Source:              src,
		Elapsed:             time.Since(start),
	}

	e.cache.put(fp, res, time.Now())
	e.rememberFrame(frame, res)
	e.record(start, budget, false, src)
	return res, nil
}

// nearDuplicate returns the previous result when the frame is perceptually
// the same content as the last analyzed frame, avoiding a rescan for frames
// that differ only in cursor position or minor repaints.
func (e *Engine) nearDuplicate(frame *image.RGBA) *DetectionResult {
	hash, err := goimagehash.PerceptionHash(frame)
	if err != nil {
		return nil
	}

	e.mu.RLock()
	last, lastRes := e.lastHash, e.lastResult
	e.mu.RUnlock()
	if last == nil || lastRes == nil {
		return nil
	}

	dist, err := last.Distance(hash)
	if err != nil || dist > MaxHashDistance {
		return nil
	}
	return lastRes
}

// rememberFrame stores the perceptual hash and result of the latest fully
// analyzed frame for near-duplicate detection.
func (e *Engine) rememberFrame(frame *image.RGBA, res *DetectionResult) {
	hash, err := goimagehash.PerceptionHash(frame)
	if err != nil {
		return
	}
	e.mu.Lock()
	e.lastHash = hash
	e.lastResult = res
	e.mu.Unlock()
}

// safeDefaultResult is the deliberately cautious verdict substituted when
// classification cannot complete in time.
func safeDefaultResult(elapsed time.Duration) *DetectionResult {
	return &DetectionResult{
		Flagged:             true,
		OverallConfidence:   SafeDefaultConfidence,
		MaxRegionConfidence: 0,
		Source:              SourceTimeoutDefault,
		Elapsed:             elapsed,
	}
}

func (e *Engine) record(start time.Time, target time.Duration, cached bool, src Source) {
	if e.recorder == nil {
		return
	}
	e.recorder.Record(monitor.Sample{
		Op:       "analyze",
		Latency:  time.Since(start),
		Target:   target,
		Cached:   cached,
		Fallback: src == SourceHeuristic || src == SourceTimeoutDefault,
		Source:   string(src),
	})
}
