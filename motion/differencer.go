package motion

import (
	"fmt"
	"image"
	"image/draw"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"smartmirror.dev/camera"
	"smartmirror.dev/pubsub"
	"smartmirror.dev/smarterr"
)

// PixelDiffThreshold is the per-pixel grayscale intensity delta that
// must be exceeded for a pixel to count as "changed" between two
// successive frames.
const PixelDiffThreshold = 25

// DefaultThreshold is the count of changed pixels that must be
// exceeded to count as motion. Pixels are counted over frames at the
// size the source delivers them; frames are not rescaled.
const DefaultThreshold = 150

// DefaultCooldown is the minimum interval between successive motion
// events.
const DefaultCooldown = 6 * time.Second

// FrameDifferencer is a concrete Source: it grayscale-diffs successive
// camera frames, counts pixels whose delta exceeds
// PixelDiffThreshold, and fires on_motion when that count exceeds
// Threshold, no more often than once per Cooldown.
type FrameDifferencer struct {
	src       camera.FrameSource
	threshold int
	cooldown  time.Duration
	clk       clock.Clock
	onMotion  pubsub.Hooks

	mu         sync.Mutex
	running    bool
	closeCam   func()
	stopC      chan struct{}
	done       chan struct{}
	lastMotion time.Time
}

// Option configures a FrameDifferencer at construction.
type Option func(*FrameDifferencer)

// WithThreshold overrides DefaultThreshold.
func WithThreshold(n int) Option {
	return func(d *FrameDifferencer) { d.threshold = n }
}

// WithCooldown overrides DefaultCooldown.
func WithCooldown(c time.Duration) Option {
	return func(d *FrameDifferencer) { d.cooldown = c }
}

// WithClock overrides the clock used for cooldown bookkeeping.
func WithClock(c clock.Clock) Option {
	return func(d *FrameDifferencer) { d.clk = c }
}

// NewFrameDifferencer returns a Source reading frames from src.
func NewFrameDifferencer(src camera.FrameSource, opts ...Option) *FrameDifferencer {
	d := &FrameDifferencer{
		src:       src,
		threshold: DefaultThreshold,
		cooldown:  DefaultCooldown,
		clk:       clock.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RegisterOnMotion registers fn to run whenever motion is detected.
func (d *FrameDifferencer) RegisterOnMotion(fn func()) {
	d.onMotion.Register(fn)
}

// Start begins reading and differencing frames. Idempotent.
func (d *FrameDifferencer) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}
	frames := make(chan camera.Frame)
	out := make(chan camera.Frame, 1)
	closeFn, err := camera.Open(d.src, frames, out)
	if err != nil {
		d.mu.Unlock()
		return fmt.Errorf("motion: %w", smarterr.ErrIO)
	}
	d.closeCam = closeFn
	d.running = true
	d.stopC = make(chan struct{})
	d.done = make(chan struct{})
	stopC, done := d.stopC, d.done
	d.mu.Unlock()

	go d.run(frames, out, stopC, done)
	return nil
}

// Stop halts the differencing loop and releases the camera.
// Idempotent.
func (d *FrameDifferencer) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	close(d.stopC)
	closeCam := d.closeCam
	done := d.done
	d.mu.Unlock()

	closeCam()
	<-done
	return nil
}

func (d *FrameDifferencer) run(frames <-chan camera.Frame, out chan<- camera.Frame, stopC, done chan struct{}) {
	defer close(done)
	var prev *image.Gray
	for {
		select {
		case <-stopC:
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			if f.Err == nil && f.Image != nil {
				gray := toGray(f.Image)
				if prev != nil && countDiff(prev, gray) > d.threshold {
					d.maybeFireMotion()
				}
				prev = gray
			}
			select {
			case out <- f:
			case <-stopC:
				return
			}
		}
	}
}

func (d *FrameDifferencer) maybeFireMotion() {
	now := d.clk.Now()
	d.mu.Lock()
	if now.Sub(d.lastMotion) < d.cooldown {
		d.mu.Unlock()
		return
	}
	d.lastMotion = now
	d.mu.Unlock()
	d.onMotion.Fire()
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	draw.Draw(gray, b, img, b.Min, draw.Src)
	return gray
}

func countDiff(a, b *image.Gray) int {
	n := len(a.Pix)
	if len(b.Pix) < n {
		n = len(b.Pix)
	}
	count := 0
	for i := 0; i < n; i++ {
		delta := int(a.Pix[i]) - int(b.Pix[i])
		if delta < 0 {
			delta = -delta
		}
		if delta > PixelDiffThreshold {
			count++
		}
	}
	return count
}
