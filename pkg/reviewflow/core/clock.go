package core

import "time"

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func NewRealClock() Clock { return RealClock{} }

func (RealClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant; used by tests and seeders.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }
