package strip

import (
	"errors"
	"testing"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyTransport struct {
	fails  int
	sends  int
	frames [][]colorful.Color
	closed bool
}

func (f *flakyTransport) Send(px []colorful.Color) error {
	f.sends++
	if f.fails > 0 {
		f.fails--
		return errors.New("controller busy")
	}
	f.frames = append(f.frames, px)
	return nil
}

func (f *flakyTransport) Close() error {
	f.closed = true
	return nil
}

func TestStrip_Transmit(t *testing.T) {
	tr := &flakyTransport{}
	s := New(Options{LEDCount: 5, MaxPower: 1}, tr)
	assert.Equal(t, 5, s.LEDCount())

	s.AddHSV(2, 0, 1, 1)
	require.NoError(t, s.Transmit())
	require.Len(t, tr.frames, 1)
	assert.InDelta(t, 1, tr.frames[0][2].R, 1e-9)
	assert.Equal(t, tr.frames[0], s.Last())
	assert.Equal(t, uint64(1), s.Sent())

	s.Clear()
	require.NoError(t, s.Transmit())
	assert.Equal(t, colorful.Color{}, tr.frames[1][2])
}

func TestStrip_TransmitRetries(t *testing.T) {
	tr := &flakyTransport{fails: 2}
	s := New(Options{LEDCount: 1, Retries: 2}, tr)
	require.NoError(t, s.Transmit())
	assert.Equal(t, 3, tr.sends)
}

func TestStrip_TransmitGivesUp(t *testing.T) {
	tr := &flakyTransport{fails: 10}
	s := New(Options{LEDCount: 1, Retries: 1}, tr)
	err := s.Transmit()
	assert.ErrorIs(t, err, ErrTransmit)
	assert.Equal(t, 2, tr.sends)
	assert.Zero(t, s.Sent())
}

func TestStrip_Close(t *testing.T) {
	tr := &flakyTransport{}
	require.NoError(t, New(Options{LEDCount: 1}, tr).Close())
	assert.True(t, tr.closed)
}
