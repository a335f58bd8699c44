// Package camera is the channel-producer frame source used as the
// motion sensor's input. The actual capture hardware (V4L2,
// libcamera, a vendor SDK) is an external collaborator behind the
// FrameSource interface; this package only owns the acquire/release
// loop and its channel contract.
package camera

import (
	"errors"
	"fmt"
	"image"
)

// Frame is a captured image, or an error if capture failed.
type Frame struct {
	Err   error
	Image image.Image
}

// FrameSource is the pluggable hardware collaborator. ReadFrame
// blocks until the next frame is ready; Close unblocks any pending
// ReadFrame and releases the device.
type FrameSource interface {
	ReadFrame() (image.Image, error)
	Close() error
}

// Camera drives a FrameSource's capture loop, delivering frames on
// frames and recycling buffers it receives back on out, so a consumer
// does not need to know which backend is behind FrameSource.
type Camera struct {
	src       FrameSource
	frames    chan Frame
	out       <-chan Frame
	closed    chan struct{}
	destroyed chan struct{}
}

// Open starts src's capture loop, delivering frames on the frames
// channel. The returned func closes the camera; it blocks until the
// capture goroutine has exited.
func Open(src FrameSource, frames chan Frame, out <-chan Frame) (func(), error) {
	c := &Camera{
		src:       src,
		frames:    frames,
		out:       out,
		closed:    make(chan struct{}),
		destroyed: make(chan struct{}),
	}
	go c.run()
	return c.Close, nil
}

// Close stops the capture loop and releases the source.
func (c *Camera) Close() {
	close(c.closed)
	c.src.Close()
	for {
		select {
		case <-c.frames:
		case <-c.destroyed:
			return
		}
	}
}

func (c *Camera) run() {
	defer close(c.destroyed)

	errClosed := errors.New("camera: closed")
	deliver := func(f Frame) error {
		select {
		case <-c.closed:
			return errClosed
		case c.frames <- f:
		}
		select {
		case <-c.closed:
			return errClosed
		case <-c.out:
		}
		return nil
	}

	for {
		img, err := c.src.ReadFrame()
		if err != nil {
			deliver(Frame{Err: fmt.Errorf("camera: %w", err)})
			return
		}
		if err := deliver(Frame{Image: img}); err != nil {
			if !errors.Is(err, errClosed) {
				deliver(Frame{Err: err})
			}
			return
		}
	}
}
