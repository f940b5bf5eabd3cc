// Package clock abstracts wall time so expiry logic can be tested without
// sleeping.
package clock

import "time"

// Timer is the handle of a pending callback.
type Timer interface {
	Stop() bool
}

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type system struct{}

// System is the real wall clock, reporting UTC.
func System() Clock {
	return system{}
}

func (system) Now() time.Time {
	return time.Now().UTC()
}

func (system) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
