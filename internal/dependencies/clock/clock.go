// Package clock abstracts wall time so ticks, token expiry and timed bans
// can be driven from tests.
package clock

import "time"

// Clock is the time source shared by the tick loop, auth and the ledger
type Clock interface {
	Now() time.Time
	// Since is Now().Sub(t), measured on this clock
	Since(t time.Time) time.Duration
}

// RealClock reads the system clock in UTC
type RealClock struct{}

func New() *RealClock {
	return &RealClock{}
}

func (c *RealClock) Now() time.Time {
	return time.Now().UTC()
}

func (c *RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}
