package camera

import (
	"errors"
	"image"
)

// NullSource is a FrameSource that never produces a frame. It lets
// the motion pipeline start and stop cleanly on a deployment with no
// vendor camera backend wired in yet.
type NullSource struct {
	closed chan struct{}
}

// NewNullSource returns a NullSource.
func NewNullSource() *NullSource {
	return &NullSource{closed: make(chan struct{})}
}

// ReadFrame blocks until Close is called.
func (s *NullSource) ReadFrame() (image.Image, error) {
	<-s.closed
	return nil, errors.New("camera: null source closed")
}

// Close unblocks any pending ReadFrame.
func (s *NullSource) Close() error {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
	return nil
}

var _ FrameSource = (*NullSource)(nil)
