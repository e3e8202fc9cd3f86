package detect

import (
	"context"
	"image"
	"time"

	apperrors "github.com/sightveil/platform/internal/errors"
	"github.com/sightveil/platform/internal/monitor"
	"github.com/sightveil/platform/internal/resilience"
)

// ModelScorer scores a single image for inappropriate-content probability.
// Implemented by the gRPC classifier client; nil means no model is loaded.
type ModelScorer interface {
	Score(ctx context.Context, img *image.RGBA) (float64, error)
}

// Backend scores individual tiles: model inference first when a model is
// loaded and its circuit is closed, heuristic fallback otherwise. Scorer
// selection is a plain decision, not exception-driven control flow.
type Backend struct {
	model     ModelScorer
	heuristic heuristicScorer
	breaker   *resilience.Breaker
	recorder  monitor.Recorder
}

// NewBackend creates a backend. model may be nil (heuristic-only operation).
func NewBackend(model ModelScorer, rec monitor.Recorder) *Backend {
	return &Backend{
		model:    model,
		breaker:  resilience.New(resilience.ClassifierConfig()),
		recorder: rec,
	}
}

// HasModel reports whether a model is loaded and currently trusted.
func (b *Backend) HasModel() bool {
	return b.model != nil && b.breaker.Allow() == nil
}

// Score rates one tile. A context deadline hit is returned as an
// InferenceTimeout error so the caller can substitute the safe default;
// every other model failure degrades silently to the heuristic.
func (b *Backend) Score(ctx context.Context, tile *image.RGBA) (float64, Source, error) {
	start := time.Now()

	useModel := b.HasModel()
	if useModel {
		conf, err := b.model.Score(ctx, tile)
		if err == nil {
			b.breaker.Success()
			b.record("score", start, false, false, SourceModel)
			return conf, SourceModel, nil
		}
		b.breaker.Failure()
		if ctx.Err() != nil || apperrors.IsCode(err, apperrors.CodeInferenceTimeout) {
			// Resource pressure: do not run an extra heuristic pass.
			return 0, "", apperrors.Wrap(err, apperrors.CodeInferenceTimeout, "tile inference timed out")
		}
		// ModelUnavailable / InferenceFailed fall through to the heuristic.
	}

	if err := ctx.Err(); err != nil {
		return 0, "", apperrors.Wrap(err, apperrors.CodeInferenceTimeout, "deadline hit before heuristic scoring")
	}

	conf, err := b.heuristic.Score(ctx, tile)
	if err != nil {
		return 0, "", apperrors.Wrap(err, apperrors.CodeInferenceTimeout, "heuristic scoring canceled")
	}
	b.record("score", start, false, useModel, SourceHeuristic)
	return conf, SourceHeuristic, nil
}

func (b *Backend) record(op string, start time.Time, cached, fallback bool, src Source) {
	if b.recorder == nil {
		return
	}
	b.recorder.Record(monitor.Sample{
		Op:       op,
		Latency:  time.Since(start),
		Cached:   cached,
		Fallback: fallback,
		Source:   string(src),
	})
}
