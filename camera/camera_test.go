package camera

import (
	"errors"
	"image"
	"testing"
	"time"
)

type fakeSource struct {
	frames chan image.Image
	closed chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		frames: make(chan image.Image, 4),
		closed: make(chan struct{}),
	}
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

func TestCameraDeliversFramesAndRecyclesBuffers(t *testing.T) {
	src := newFakeSource()
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	src.push(img)

	frames := make(chan Frame)
	out := make(chan Frame)
	closeFn, err := Open(src, frames, out)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeFn()

	select {
	case f := <-frames:
		if f.Err != nil {
			t.Fatalf("frame error: %v", f.Err)
		}
		if f.Image != image.Image(img) {
			t.Fatal("delivered frame does not match source image")
		}
		out <- f
	case <-time.After(time.Second):
		t.Fatal("no frame delivered")
	}
}

func TestCameraCloseStopsCaptureLoop(t *testing.T) {
	src := newFakeSource()
	frames := make(chan Frame)
	out := make(chan Frame)
	closeFn, err := Open(src, frames, out)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	done := make(chan struct{})
	go func() {
		closeFn()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
}
