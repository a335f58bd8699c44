// Package policy composes motion, quiet hours, and power state into
// the display's mute/unmute policy.
package policy

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// RemuteDelay is the default time after the last allowed motion event
// before the display is re-muted.
const RemuteDelay = 15 * time.Second

// MuteUnmuter is the video-mute FSM surface the scheduler drives.
type MuteUnmuter interface {
	Mute() error
	Unmute() error
}

// Scheduler composes motion + quiet hours + power into Mute/Unmute
// calls on a video-mute FSM, re-muting after RemuteDelay of no
// further allowed motion. The scheduler begins quiet: the display
// starts muted.
type Scheduler struct {
	fsm         MuteUnmuter
	schedule    *QuietHoursSchedule
	remuteDelay time.Duration
	clk         clock.Clock

	mu            sync.Mutex
	running       bool
	desiredMuted  bool
	remuteTimer   *clock.Timer
}

// Option configures a Scheduler at construction.
type Option func(*Scheduler)

// WithClock overrides the clock backing the re-mute timer and Now().
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clk = c }
}

// WithRemuteDelay overrides RemuteDelay.
func WithRemuteDelay(d time.Duration) Option {
	return func(s *Scheduler) { s.remuteDelay = d }
}

// New returns a Scheduler driving fsm according to schedule.
func New(fsm MuteUnmuter, schedule *QuietHoursSchedule, opts ...Option) *Scheduler {
	s := &Scheduler{
		fsm:          fsm,
		schedule:     schedule,
		remuteDelay:  RemuteDelay,
		clk:          clock.New(),
		desiredMuted: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start marks the scheduler running. Idempotent.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.desiredMuted = true
	return nil
}

// Stop cancels the pending re-mute timer. Idempotent.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	s.cancelRemuteLocked()
	return nil
}

// OnMotion handles a motion event observed at s.clk.Now().
func (s *Scheduler) OnMotion() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	if !s.schedule.MotionAllowed(s.clk.Now()) {
		s.mu.Unlock()
		return
	}

	s.cancelRemuteLocked()

	wasMuted := s.desiredMuted
	s.desiredMuted = false
	s.remuteTimer = s.clk.AfterFunc(s.remuteDelay, s.onRemuteTimer)
	s.mu.Unlock()

	if wasMuted {
		s.fsm.Unmute()
	}
}

func (s *Scheduler) onRemuteTimer() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.desiredMuted = true
	s.remuteTimer = nil
	s.mu.Unlock()

	s.fsm.Mute()
}

// OnPowerOn re-drives the panel toward the scheduler's current
// desired state.
func (s *Scheduler) OnPowerOn() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	muted := s.desiredMuted
	s.mu.Unlock()

	if muted {
		s.fsm.Mute()
	} else {
		s.fsm.Unmute()
	}
}

// OnPowerOff cancels the pending re-mute timer. The desired value is
// retained and re-asserted on the next OnPowerOn.
func (s *Scheduler) OnPowerOff() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cancelRemuteLocked()
}

func (s *Scheduler) cancelRemuteLocked() {
	if s.remuteTimer != nil {
		s.remuteTimer.Stop()
		s.remuteTimer = nil
	}
}
