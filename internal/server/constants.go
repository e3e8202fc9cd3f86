// Package server provides HTTP and WebSocket handlers for the detection
// engine.
package server

import "time"

// Server configuration constants
const (
	// Per-connection WebSocket rate limiting
	RateLimitMessages = 30          // Max messages per connection per window
	RateLimitWindow   = time.Second // Sliding window duration

	// MaxFrameBytes bounds uploaded frame size on the push path.
	MaxFrameBytes = 16 << 20
)
