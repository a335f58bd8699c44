package ir

import "time"

// Timing holds the pulse-distance constants for a Samsung-family
// NEC-style IR protocol. Vendor timing tables are an out-of-scope
// collaborator; these are the commonly documented values for the
// protocol family and are fully overridable at construction.
type Timing struct {
	LeaderLow   time.Duration
	LeaderHigh  time.Duration
	BitLow      time.Duration
	BitHigh0    time.Duration
	BitHigh1    time.Duration
	StopLow     time.Duration
	InterFrame  time.Duration
	FrameRepeat int
}

// DefaultTiming is the Samsung-family NEC-style timing table.
var DefaultTiming = Timing{
	LeaderLow:   4500 * time.Microsecond,
	LeaderHigh:  4500 * time.Microsecond,
	BitLow:      560 * time.Microsecond,
	BitHigh0:    560 * time.Microsecond,
	BitHigh1:    1690 * time.Microsecond,
	StopLow:     560 * time.Microsecond,
	InterFrame:  5 * time.Millisecond,
	FrameRepeat: 5,
}
