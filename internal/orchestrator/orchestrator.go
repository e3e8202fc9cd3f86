// Package orchestrator wires the detection pipeline together: it pulls
// frames from a source, runs them through the engine, maps results to
// blur decisions, and drives the warning machine.
package orchestrator

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/sightveil/platform/internal/config"
	"github.com/sightveil/platform/internal/detect"
	"github.com/sightveil/platform/internal/syncx"
	"github.com/sightveil/platform/internal/trace"
	"github.com/sightveil/platform/internal/warning"
)

// FrameSource supplies screen bitmaps. Acquisition is an external
// collaborator; ok is false when no new frame is available this cycle.
type FrameSource interface {
	Frame() (*image.RGBA, bool)
}

// DecisionEvent is the outcome of one frame analysis as broadcast to
// overlay clients.
type DecisionEvent struct {
	Action   string          `json:"action"`
	Level    string          `json:"level"`
	Flagged  bool            `json:"flagged"`
	Coverage float64         `json:"coverage"`
	Regions  []detect.Region `json:"regions"`
	Source   string          `json:"source"`
	At       time.Time       `json:"at"`
}

// Manager coordinates the detection pipeline.
type Manager struct {
	engine     *detect.Engine
	warnings   *warning.Machine
	frames     FrameSource
	thresholds detect.Thresholds
	scanRate   float64

	analyzeMu sync.Mutex // one frame in flight at a time
	latest    *syncx.RWGuard[DecisionEvent]
	events    chan DecisionEvent
	stopCh    chan struct{}
}

// New creates a manager. frames may be nil for push-only operation, where
// collaborators submit frames via Analyze.
func New(engine *detect.Engine, warnings *warning.Machine, frames FrameSource, cfg *config.Config) *Manager {
	return &Manager{
		engine:   engine,
		warnings: warnings,
		frames:   frames,
		thresholds: detect.Thresholds{
			Coverage:        cfg.CoverageThreshold,
			RegionCountFull: cfg.RegionCountFull,
			RegionCountWarn: cfg.RegionCountWarn,
			WarnConfidence:  cfg.WarnConfidence,
		},
		scanRate: cfg.ScanRate,
		latest:   syncx.NewGuard(DecisionEvent{}),
		events:   make(chan DecisionEvent, DecisionEventBuffer),
		stopCh:   make(chan struct{}),
	}
}

// Events returns the decision broadcast channel.
func (m *Manager) Events() <-chan DecisionEvent {
	return m.events
}

// Latest returns the most recent decision, with ok false before any frame
// has been analyzed.
func (m *Manager) Latest() (DecisionEvent, bool) {
	ev := m.latest.Get()
	return ev, !ev.At.IsZero()
}

// Start begins the scan loop when a frame source is configured.
func (m *Manager) Start(ctx context.Context) error {
	if m.frames != nil {
		go m.scanLoop(ctx)
	}
	return nil
}

// Stop stops orchestration.
func (m *Manager) Stop() {
	close(m.stopCh)
}

func (m *Manager) scanLoop(ctx context.Context) {
	rate := m.scanRate
	if rate <= 0 {
		rate = DefaultScanRate
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
	defer ticker.Stop()

	log := trace.Logger(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			frame, ok := m.frames.Frame()
			if !ok {
				continue
			}
			if _, _, err := m.Analyze(ctx, frame); err != nil {
				log.Warn("frame analysis failed", "error", err)
			}
		}
	}
}

// Analyze runs one frame through the engine and decision table, feeds the
// warning machine, and broadcasts the outcome. Frames are serialized; there
// is no queue, so callers sample rather than backlog.
func (m *Manager) Analyze(ctx context.Context, frame *image.RGBA) (*detect.DetectionResult, detect.Decision, error) {
	ctx, span := trace.StartSpan(ctx, "analyze_frame")
	defer span.End()

	m.analyzeMu.Lock()
	defer m.analyzeMu.Unlock()

	res, err := m.engine.AnalyzeFrame(ctx, frame)
	if err != nil {
		span.SetAttr("error", err.Error())
		return nil, detect.Decision{}, err
	}

	b := frame.Bounds()
	decision := detect.Decide(res, b.Dx()*b.Dy(), m.thresholds)
	m.warnings.Observe(decision.Action)

	span.SetAttr("action", decision.Action.String())
	span.SetAttr("regions", len(res.Regions))
	span.SetAttr("source", string(res.Source))

	ev := DecisionEvent{
		Action:   decision.Action.String(),
		Level:    decision.Level.String(),
		Flagged:  res.Flagged,
		Coverage: decision.Coverage,
		Regions:  res.Regions,
		Source:   string(res.Source),
		At:       time.Now(),
	}
	m.latest.Set(ev)

	select {
	case m.events <- ev:
	default:
		trace.Logger(ctx).Debug("decision channel full, dropping event")
	}
	return res, decision, nil
}
