package strip

import (
	"fmt"
	"io"
	"sync/atomic"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// FrameWriter writes one complete encoded frame.
type FrameWriter interface {
	Write(frame []byte) error
}

// FrameWriteCloser is a FrameWriter that owns a device.
type FrameWriteCloser interface {
	FrameWriter
	io.Closer
}

// SerialTransport sends Adalight frames to a controller.
type SerialTransport struct {
	w FrameWriteCloser
}

// NewSerialTransport wraps a controller link such as a serialmux.SerialMux.
func NewSerialTransport(w FrameWriteCloser) *SerialTransport {
	return &SerialTransport{w: w}
}

func (t *SerialTransport) Send(px []colorful.Color) error {
	frame, err := EncodeAdalight(px)
	if err != nil {
		return err
	}
	return t.w.Write(frame)
}

func (t *SerialTransport) Close() error { return t.w.Close() }

// EncodeAdalight frames px as "Ada", the LED count minus one (big endian),
// a checksum of hi^lo^0x55 and the RGB payload.
func EncodeAdalight(px []colorful.Color) ([]byte, error) {
	if len(px) == 0 || len(px) > 1<<16 {
		return nil, fmt.Errorf("adalight: cannot encode %d LEDs", len(px))
	}
	n := len(px) - 1
	hi, lo := byte(n>>8), byte(n)
	out := make([]byte, 0, 6+3*len(px))
	out = append(out, 'A', 'd', 'a', hi, lo, hi^lo^0x55)
	return append(out, RGB8(px)...), nil
}

// NullTransport discards frames and counts them.
type NullTransport struct {
	frames atomic.Uint64
}

func (t *NullTransport) Send([]colorful.Color) error {
	t.frames.Add(1)
	return nil
}

func (t *NullTransport) Close() error { return nil }

// Frames returns the number of frames sent.
func (t *NullTransport) Frames() uint64 { return t.frames.Load() }
