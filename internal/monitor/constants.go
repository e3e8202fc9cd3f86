package monitor

import "time"

// Summary flush configuration
const (
	DefaultFlushEvery = 50
	DefaultFlushDelay = 10 * time.Second
)
