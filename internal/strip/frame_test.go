package strip

import (
	"math"
	"testing"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_AddHSV_Integer(t *testing.T) {
	f := NewFrame(4, 1)
	f.AddHSV(1, 0, 1, 1)

	px := f.Pixels()
	assert.Equal(t, colorful.Color{}, px[0])
	assert.InDelta(t, 1, px[1].R, 1e-9)
	assert.InDelta(t, 0, px[1].G, 1e-9)
	assert.InDelta(t, 0, px[1].B, 1e-9)
	assert.Equal(t, colorful.Color{}, px[2])
}

func TestFrame_AddHSV_AntiAliased(t *testing.T) {
	f := NewFrame(4, 1)
	f.AddHSV(1.25, 0, 1, 1)

	px := f.Pixels()
	assert.InDelta(t, 0.75, px[1].R, 1e-9)
	assert.InDelta(t, 0.25, px[2].R, 1e-9)
}

func TestFrame_AddHSV_Additive(t *testing.T) {
	f := NewFrame(2, 1)
	f.AddHSV(0, 0, 1, 0.4)
	f.AddHSV(0, 0, 1, 0.4)
	assert.InDelta(t, 0.8, f.Pixels()[0].R, 1e-9)

	f.AddHSV(0, 0, 1, 0.4)
	assert.Equal(t, 1.0, f.Pixels()[0].R, "channels clip at 1")
}

func TestFrame_AddHSV_HueWraps(t *testing.T) {
	a, b := NewFrame(1, 1), NewFrame(1, 1)
	a.AddHSV(0, 1.25, 1, 1)
	b.AddHSV(0, 0.25, 1, 1)
	assert.InDelta(t, b.Pixels()[0].G, a.Pixels()[0].G, 1e-9)

	c := NewFrame(1, 1)
	c.AddHSV(0, -0.75, 1, 1)
	assert.InDelta(t, b.Pixels()[0].R, c.Pixels()[0].R, 1e-9)
}

func TestFrame_AddHSV_OffStrip(t *testing.T) {
	f := NewFrame(3, 1)
	f.AddHSV(-1, 0, 1, 1)
	f.AddHSV(3, 0, 1, 1)
	f.AddHSV(math.NaN(), 0, 1, 1)
	f.AddHSV(math.Inf(1), 0, 1, 1)
	f.AddHSV(1, math.NaN(), 1, 1)
	assert.Zero(t, f.Power())

	// Half of a sample straddling the end still lands.
	f.AddHSV(2.5, 0, 1, 1)
	assert.InDelta(t, 0.5, f.Pixels()[2].R, 1e-9)
}

func TestFrame_Clear(t *testing.T) {
	f := NewFrame(3, 1)
	f.AddHSV(1, 0.3, 1, 1)
	f.Clear()
	assert.Zero(t, f.Power())
}

func TestFrame_PowerCap(t *testing.T) {
	f := NewFrame(10, 0.1)
	for i := 0; i < 10; i++ {
		f.AddHSV(float64(i), 0, 0, 1)
	}
	assert.InDelta(t, 0.1, f.Power(), 1e-9)

	px := f.Pixels()
	assert.InDelta(t, 0.1, px[0].R, 1e-9)
	assert.InDelta(t, px[0].R, px[9].B, 1e-9)
}

func TestFrame_PowerCapUnderLimit(t *testing.T) {
	f := NewFrame(10, 0.5)
	f.AddHSV(0, 0, 0, 1)
	assert.InDelta(t, 0.1, f.Power(), 1e-9)
}

func TestRGB8(t *testing.T) {
	got := RGB8([]colorful.Color{{R: 1, G: 0.5, B: 0}})
	require.Len(t, got, 3)
	assert.Equal(t, []byte{255, 128, 0}, got)
}
