package strip

import (
	"errors"
	"fmt"
	"sync"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/banshee-data/marbles/internal/monitoring"
)

// ErrTransmit wraps the last transport error once retries are exhausted.
var ErrTransmit = errors.New("transmit failed")

// Transport carries finished frames to a device.
type Transport interface {
	Send(px []colorful.Color) error
	Close() error
}

// Options configures a Strip.
type Options struct {
	LEDCount int
	// MaxPower is the permitted fraction of full white; see NewFrame.
	MaxPower float64
	// Retries is how many extra attempts a failed Transmit makes.
	Retries int
}

// Strip is the sink the frame loop draws into. It is not safe for concurrent
// drawing; Last may be called from any goroutine.
type Strip struct {
	frame     *Frame
	transport Transport
	retries   int

	mu   sync.RWMutex
	last []colorful.Color
	sent uint64
}

// New returns a strip drawing into a frame of opts.LEDCount LEDs.
func New(opts Options, transport Transport) *Strip {
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &Strip{
		frame:     NewFrame(opts.LEDCount, opts.MaxPower),
		transport: transport,
		retries:   opts.Retries,
	}
}

// LEDCount returns the number of addressable LEDs.
func (s *Strip) LEDCount() int { return s.frame.Len() }

// Clear blanks the frame being drawn.
func (s *Strip) Clear() { s.frame.Clear() }

// AddHSV adds a sample to the frame being drawn.
func (s *Strip) AddHSV(pos, hue, saturation, value float64) {
	s.frame.AddHSV(pos, hue, saturation, value)
}

// Transmit sends the current frame, retrying failed sends.
func (s *Strip) Transmit() error {
	px := s.frame.Pixels()
	var err error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if err = s.transport.Send(px); err == nil {
			s.mu.Lock()
			s.last = px
			s.sent++
			s.mu.Unlock()
			return nil
		}
		monitoring.Debugf("strip: send attempt %d failed: %v", attempt+1, err)
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrTransmit, s.retries+1, err)
}

// Last returns the most recently transmitted frame.
func (s *Strip) Last() []colorful.Color {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]colorful.Color(nil), s.last...)
}

// Sent returns how many frames were transmitted.
func (s *Strip) Sent() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sent
}

// Close closes the transport.
func (s *Strip) Close() error { return s.transport.Close() }
