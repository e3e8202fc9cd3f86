// Package monitor records performance samples from the detection pipeline.
package monitor

import (
	"log/slog"
	"sync"
	"time"
)

// Sample is one observation of a pipeline operation.
type Sample struct {
	Op       string        // operation kind: analyze, score, scan
	Latency  time.Duration
	Target   time.Duration // per-tier latency budget for the operation
	Cached   bool          // result served from the fingerprint cache
	Fallback bool          // heuristic scorer substituted for the model
	Source   string        // model, heuristic, timeout-default, cache
}

// Recorder receives performance samples. Purely observational; implementations
// must not block the caller.
type Recorder interface {
	Record(Sample)
}

// Stats is an aggregate snapshot of recorded samples.
type Stats struct {
	Samples    uint64        `json:"samples"`
	CacheHits  uint64        `json:"cache_hits"`
	Fallbacks  uint64        `json:"fallbacks"`
	Timeouts   uint64        `json:"timeouts"`
	OverBudget uint64        `json:"over_budget"`
	AvgLatency time.Duration `json:"avg_latency"`
	LastSample time.Time     `json:"last_sample"`
}

// Perf is the default Recorder: aggregate counters plus a periodic summary
// log, flushed either after flushEvery samples or after flushDelay of
// inactivity, whichever comes first.
type Perf struct {
	mu           sync.Mutex
	stats        Stats
	totalLatency time.Duration
	sinceFlush   int
	flushEvery   int
	flushDelay   time.Duration
	timer        *time.Timer
}

// New creates a Perf recorder with default flush settings.
func New() *Perf {
	return &Perf{flushEvery: DefaultFlushEvery, flushDelay: DefaultFlushDelay}
}

// Record adds a sample to the aggregates.
func (p *Perf) Record(s Sample) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Samples++
	p.totalLatency += s.Latency
	p.stats.AvgLatency = p.totalLatency / time.Duration(p.stats.Samples)
	p.stats.LastSample = time.Now()
	if s.Cached {
		p.stats.CacheHits++
	}
	if s.Fallback {
		p.stats.Fallbacks++
	}
	if s.Source == "timeout-default" {
		p.stats.Timeouts++
	}
	if s.Target > 0 && s.Latency > s.Target {
		p.stats.OverBudget++
		slog.Warn("operation over latency budget",
			"op", s.Op, "latency", s.Latency, "target", s.Target, "source", s.Source)
	}

	p.sinceFlush++
	if p.sinceFlush >= p.flushEvery {
		p.flushLocked()
		return
	}
	if p.timer == nil {
		p.timer = time.AfterFunc(p.flushDelay, p.timerFlush)
	} else {
		p.timer.Reset(p.flushDelay)
	}
}

func (p *Perf) timerFlush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushLocked()
}

// flushLocked emits a summary log line and resets the flush counter.
func (p *Perf) flushLocked() {
	if p.sinceFlush == 0 {
		return
	}
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	slog.Debug("detection performance summary",
		"samples", p.stats.Samples,
		"cache_hits", p.stats.CacheHits,
		"fallbacks", p.stats.Fallbacks,
		"timeouts", p.stats.Timeouts,
		"avg_latency", p.stats.AvgLatency)
	p.sinceFlush = 0
}

// Stats returns a snapshot of the aggregates.
func (p *Perf) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Ensure contract satisfaction.
var _ Recorder = (*Perf)(nil)
