package policy

import (
	"fmt"
	"time"

	"smartmirror.dev/smarterr"
)

// Window is a single quiet-hours window in HH:MM wall-clock minutes
// since midnight.
type Window struct {
	StartMinute int
	EndMinute   int
}

// Contains reports whether minute-of-day t falls inside the window.
// A window with Start < End covers [Start, End); Start >= End covers
// the wraparound [Start, 24:00) ∪ [00:00, End).
func (w Window) Contains(t int) bool {
	if w.StartMinute < w.EndMinute {
		return t >= w.StartMinute && t < w.EndMinute
	}
	return t >= w.StartMinute || t < w.EndMinute
}

// QuietHoursSchedule is a set of quiet-hours windows during which
// motion events are ignored.
type QuietHoursSchedule struct {
	windows []Window
}

// NewQuietHoursSchedule returns a schedule over the given windows.
func NewQuietHoursSchedule(windows []Window) *QuietHoursSchedule {
	return &QuietHoursSchedule{windows: windows}
}

// MotionAllowed reports whether a motion event at wall-clock t is
// outside every configured quiet-hours window.
func (s *QuietHoursSchedule) MotionAllowed(t time.Time) bool {
	minute := t.Hour()*60 + t.Minute()
	for _, w := range s.windows {
		if w.Contains(minute) {
			return false
		}
	}
	return true
}

// ParseHHMM parses an "HH:MM" string into minutes since midnight.
func ParseHHMM(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("policy: parse time %q: %w", s, smarterr.ErrConfig)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("policy: time %q out of range: %w", s, smarterr.ErrConfig)
	}
	return h*60 + m, nil
}
