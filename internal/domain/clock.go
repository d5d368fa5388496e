package domain

import "time"

// Clock is the source of "now" for validity windows and status timestamps.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns the wall clock in UTC.
func SystemClock() Clock { return systemClock{} }

// FixedClock always returns t. Useful in tests and replays.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}
