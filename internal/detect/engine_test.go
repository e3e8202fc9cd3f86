package detect

import (
	"context"
	"image"
	"image/color"
	"reflect"
	"sync"
	"testing"

	apperrors "github.com/sightveil/platform/internal/errors"
	"github.com/sightveil/platform/internal/monitor"
)

type captureRecorder struct {
	mu      sync.Mutex
	samples []monitor.Sample
}

func (r *captureRecorder) Record(s monitor.Sample) {
	r.mu.Lock()
	r.samples = append(r.samples, s)
	r.mu.Unlock()
}

// lastAnalyze returns the most recent whole-frame sample.
func (r *captureRecorder) lastAnalyze(t *testing.T) monitor.Sample {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.samples) - 1; i >= 0; i-- {
		if r.samples[i].Op == "analyze" {
			return r.samples[i]
		}
	}
	t.Fatal("no analyze sample recorded")
	return monitor.Sample{}
}

func flagEverything(image.Rectangle) (float64, error) { return 0.9, nil }

func TestAnalyzeFrameCacheRoundTrip(t *testing.T) {
	rec := &captureRecorder{}
	e := NewEngine(&scriptedModel{score: flagEverything}, rec, Options{Tier: TierBalanced})

	frame := solidFrame(640, 480, color.RGBA{R: 128, G: 128, B: 128, A: 255})

	first, err := e.AnalyzeFrame(context.Background(), frame)
	if err != nil {
		t.Fatalf("first analyze: %v", err)
	}
	if s := rec.lastAnalyze(t); s.Cached {
		t.Error("first analysis reported cached")
	}

	second, err := e.AnalyzeFrame(context.Background(), frame)
	if err != nil {
		t.Fatalf("second analyze: %v", err)
	}
	if !reflect.DeepEqual(first.Regions, second.Regions) {
		t.Error("cached result regions differ from original")
	}
	if !reflect.DeepEqual(first.RegionConfidences(), second.RegionConfidences()) {
		t.Error("cached result confidences differ from original")
	}
	if s := rec.lastAnalyze(t); !s.Cached {
		t.Error("second analysis of an identical frame not served from cache")
	}
}

func TestAnalyzeFrameNearDuplicate(t *testing.T) {
	e := NewEngine(&scriptedModel{score: flagEverything}, nil, Options{Tier: TierBalanced})

	frame := solidFrame(640, 480, color.RGBA{R: 60, G: 60, B: 60, A: 255})
	first, err := e.AnalyzeFrame(context.Background(), frame)
	if err != nil {
		t.Fatalf("first analyze: %v", err)
	}

	// One sampled pixel changed: new fingerprint, perceptually the same frame.
	moved := solidFrame(640, 480, color.RGBA{R: 60, G: 60, B: 60, A: 255})
	moved.SetRGBA(320, 240, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	second, err := e.AnalyzeFrame(context.Background(), moved)
	if err != nil {
		t.Fatalf("second analyze: %v", err)
	}
	if second != first {
		t.Error("near-duplicate frame was rescanned instead of reusing the last result")
	}
}

func TestAnalyzeFrameTimeoutDefault(t *testing.T) {
	rec := &captureRecorder{}
	e := NewEngine(blockedModel{}, rec, Options{Tier: TierUltraFast})

	frame := solidFrame(224, 224, color.RGBA{A: 255})
	res, err := e.AnalyzeFrame(context.Background(), frame)
	if err != nil {
		t.Fatalf("timeout must substitute the safe default, got error: %v", err)
	}
	if !res.Flagged {
		t.Error("safe default not flagged")
	}
	if res.OverallConfidence != SafeDefaultConfidence {
		t.Errorf("confidence = %v, want %v", res.OverallConfidence, SafeDefaultConfidence)
	}
	if res.Source != SourceTimeoutDefault {
		t.Errorf("source = %q, want timeout-default", res.Source)
	}
	if s := rec.lastAnalyze(t); !s.Fallback {
		t.Error("timeout default not reported as a fallback sample")
	}
}

func TestAnalyzeFrameMaxRegionConfidence(t *testing.T) {
	hot := image.Rect(0, 0, 120, 120)
	warm := image.Rect(480, 320, 640, 480)
	model := &scriptedModel{score: func(r image.Rectangle) (float64, error) {
		switch {
		case r.Overlaps(hot):
			return 0.9, nil
		case r.Overlaps(warm):
			return 0.6, nil
		default:
			return 0.0, nil
		}
	}}
	e := NewEngine(model, nil, Options{Tier: TierBalanced})

	res, err := e.AnalyzeFrame(context.Background(), solidFrame(640, 480, color.RGBA{A: 255}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Regions) == 0 {
		t.Fatal("no regions detected")
	}

	maxConf := 0.0
	for _, c := range res.RegionConfidences() {
		if c > maxConf {
			maxConf = c
		}
	}
	if res.MaxRegionConfidence != maxConf {
		t.Errorf("MaxRegionConfidence = %v, want max of region confidences %v", res.MaxRegionConfidence, maxConf)
	}
	if res.OverallConfidence != res.MaxRegionConfidence {
		t.Errorf("OverallConfidence = %v, want %v", res.OverallConfidence, res.MaxRegionConfidence)
	}
}

func TestAnalyzeFrameInvalidFrame(t *testing.T) {
	e := NewEngine(nil, nil, Options{})

	if _, err := e.AnalyzeFrame(context.Background(), nil); !apperrors.IsCode(err, apperrors.CodeInvalidFrame) {
		t.Errorf("nil frame error = %v, want InvalidFrame", err)
	}

	empty := image.NewRGBA(image.Rect(0, 0, 0, 0))
	if _, err := e.AnalyzeFrame(context.Background(), empty); !apperrors.IsCode(err, apperrors.CodeInvalidFrame) {
		t.Errorf("zero-area frame error = %v, want InvalidFrame", err)
	}
}

func TestSetPerformanceTierInvalidatesCaches(t *testing.T) {
	rec := &captureRecorder{}
	e := NewEngine(&scriptedModel{score: flagEverything}, rec, Options{Tier: TierBalanced})

	frame := solidFrame(640, 480, color.RGBA{R: 128, G: 128, B: 128, A: 255})
	if _, err := e.AnalyzeFrame(context.Background(), frame); err != nil {
		t.Fatalf("first analyze: %v", err)
	}

	e.SetPerformanceTier(TierFast)
	if got := e.Tier(); got != TierFast {
		t.Errorf("tier = %v, want %v", got, TierFast)
	}

	if _, err := e.AnalyzeFrame(context.Background(), frame); err != nil {
		t.Fatalf("analyze after tier change: %v", err)
	}
	if s := rec.lastAnalyze(t); s.Cached {
		t.Error("result served from cache after tier change")
	}
}
