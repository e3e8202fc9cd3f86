package warning

import "time"

const (
	// DefaultRequiredSeconds is the reflection countdown for a fresh session.
	DefaultRequiredSeconds = 15

	// DefaultRepeatExtension is added when a session starts within the repeat
	// window of the previous one.
	DefaultRepeatExtension = 10

	// DefaultRepeatWindow is how soon after a session end a new session
	// counts as a repeat occurrence.
	DefaultRepeatWindow = 60 * time.Second

	// TickInterval drives the countdown. One tick is one second of
	// reflection time.
	TickInterval = time.Second
)
