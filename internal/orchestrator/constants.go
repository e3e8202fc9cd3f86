// Package orchestrator wires the detection pipeline together.
package orchestrator

// Orchestrator configuration constants
const (
	// DecisionEventBuffer bounds the broadcast channel; events beyond it are
	// dropped rather than stalling analysis.
	DecisionEventBuffer = 100

	// DefaultScanRate is the fallback scan frequency in Hz.
	DefaultScanRate = 2.0
)
