package moderation

import "eclipse-warden/utils/clock"

type (
	Clock = clock.Clock
	Timer = clock.Timer
)

// SystemClock is the real wall clock.
func SystemClock() Clock {
	return clock.System()
}
