// Package preview draws the strip in a terminal instead of on hardware.
package preview

import (
	"sync"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Transport keeps the most recent frame for the terminal model to draw.
// Send never blocks the frame loop.
type Transport struct {
	mu     sync.Mutex
	frame  []colorful.Color
	frames uint64
	closed bool
}

// NewTransport returns an empty preview transport.
func NewTransport() *Transport {
	return &Transport{}
}

func (t *Transport) Send(px []colorful.Color) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frame = append(t.frame[:0], px...)
	t.frames++
	return nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Latest returns a copy of the last frame and the number of frames sent.
func (t *Transport) Latest() ([]colorful.Color, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]colorful.Color(nil), t.frame...), t.frames
}

// Closed reports whether the strip has been shut down.
func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
