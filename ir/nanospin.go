package ir

import (
	"time"

	"periph.io/x/host/v3/cpu"
)

// nanospin busy-waits using periph.io's monotonic spin loop, the same
// primitive google-periph's bitbang devices use for sub-millisecond
// timing that time.Sleep cannot guarantee.
func nanospin(d time.Duration) {
	cpu.Nanospin(d)
}
