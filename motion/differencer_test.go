package motion

import (
	"errors"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

type fakeSource struct {
	frames chan image.Image
	closed chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{frames: make(chan image.Image, 8), closed: make(chan struct{})}
}

func (s *fakeSource) push(img image.Image) { s.frames <- img }

func (s *fakeSource) ReadFrame() (image.Image, error) {
	select {
	case img := <-s.frames:
		return img, nil
	case <-s.closed:
		return nil, errors.New("fakeSource: closed")
	}
}

func (s *fakeSource) Close() error {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
	return nil
}

func solidGray(w, h int, v uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

func TestFrameDifferencerFiresOnLargeChange(t *testing.T) {
	src := newFakeSource()
	mock := clock.NewMock()
	d := NewFrameDifferencer(src, WithClock(mock), WithThreshold(10))

	var fired int32
	d.RegisterOnMotion(func() { atomic.AddInt32(&fired, 1) })

	if err := d.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	src.push(solidGray(8, 8, 0))
	time.Sleep(20 * time.Millisecond)
	if atomic.LoadInt32(&fired) != 0 {
		t.Fatal("fired on first frame (no prior frame to diff against)")
	}

	src.push(solidGray(8, 8, 255))
	time.Sleep(20 * time.Millisecond)
	if atomic.LoadInt32(&fired) != 1 {
		t.Fatalf("fired = %d, want 1 after large change", fired)
	}
}

func TestFrameDifferencerRespectsCooldown(t *testing.T) {
	src := newFakeSource()
	mock := clock.NewMock()
	d := NewFrameDifferencer(src, WithClock(mock), WithThreshold(10), WithCooldown(time.Second))

	var fired int32
	d.RegisterOnMotion(func() { atomic.AddInt32(&fired, 1) })

	if err := d.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	src.push(solidGray(8, 8, 0))
	time.Sleep(10 * time.Millisecond)
	src.push(solidGray(8, 8, 255))
	time.Sleep(10 * time.Millisecond)
	src.push(solidGray(8, 8, 0))
	time.Sleep(10 * time.Millisecond)

	if atomic.LoadInt32(&fired) != 1 {
		t.Fatalf("fired = %d, want 1 within cooldown", fired)
	}
}

func TestFrameDifferencerIgnoresSmallChange(t *testing.T) {
	src := newFakeSource()
	d := NewFrameDifferencer(src, WithThreshold(10))

	var fired int32
	d.RegisterOnMotion(func() { atomic.AddInt32(&fired, 1) })

	if err := d.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	src.push(solidGray(8, 8, 100))
	time.Sleep(10 * time.Millisecond)
	src.push(solidGray(8, 8, 105))
	time.Sleep(10 * time.Millisecond)

	if atomic.LoadInt32(&fired) != 0 {
		t.Fatalf("fired = %d, want 0 for a small intensity shift", fired)
	}
}
