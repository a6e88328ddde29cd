// Package strip is the output sink: a frame buffer of LED colours and the
// transports that carry it to hardware.
package strip

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Frame accumulates colour samples for one animation frame. Samples at
// fractional positions are split linearly between the two nearest LEDs and
// summed.
type Frame struct {
	leds     []colorful.Color
	maxPower float64
}

// NewFrame returns a dark frame of count LEDs. maxPower is the permitted
// fraction of full white across the whole strip; values outside (0, 1]
// disable the cap.
func NewFrame(count int, maxPower float64) *Frame {
	if count < 0 {
		count = 0
	}
	return &Frame{leds: make([]colorful.Color, count), maxPower: maxPower}
}

// Len returns the LED count.
func (f *Frame) Len() int { return len(f.leds) }

// Clear turns every LED off.
func (f *Frame) Clear() {
	for i := range f.leds {
		f.leds[i] = colorful.Color{}
	}
}

// AddHSV adds a sample. hue is in turns and wraps; saturation and value are
// clamped to [0, 1]. Samples off the strip, or with a non-finite position,
// are dropped.
func (f *Frame) AddHSV(pos, hue, saturation, value float64) {
	if math.IsNaN(pos) || math.IsInf(pos, 0) || math.IsNaN(hue) || math.IsInf(hue, 0) {
		return
	}
	hue = math.Mod(hue, 1)
	if hue < 0 {
		hue++
	}
	c := colorful.Hsv(hue*360, clamp01(saturation), clamp01(value))

	base := math.Floor(pos)
	frac := pos - base
	i := int(base)
	f.add(i, c, 1-frac)
	f.add(i+1, c, frac)
}

func (f *Frame) add(i int, c colorful.Color, weight float64) {
	if weight <= 0 || i < 0 || i >= len(f.leds) {
		return
	}
	f.leds[i].R += c.R * weight
	f.leds[i].G += c.G * weight
	f.leds[i].B += c.B * weight
}

// Pixels returns the output colours: every channel clipped to 1, then the
// whole frame scaled down if it exceeds the power cap.
func (f *Frame) Pixels() []colorful.Color {
	out := make([]colorful.Color, len(f.leds))
	var total float64
	for i, c := range f.leds {
		out[i] = colorful.Color{R: clamp01(c.R), G: clamp01(c.G), B: clamp01(c.B)}
		total += out[i].R + out[i].G + out[i].B
	}
	if f.maxPower <= 0 || f.maxPower >= 1 || len(out) == 0 {
		return out
	}
	limit := f.maxPower * 3 * float64(len(out))
	if total <= limit {
		return out
	}
	scale := limit / total
	for i := range out {
		out[i].R *= scale
		out[i].G *= scale
		out[i].B *= scale
	}
	return out
}

// Power returns the output power as a fraction of full white.
func (f *Frame) Power() float64 {
	if len(f.leds) == 0 {
		return 0
	}
	var total float64
	for _, c := range f.Pixels() {
		total += c.R + c.G + c.B
	}
	return total / (3 * float64(len(f.leds)))
}

// RGB8 converts pixels to 8-bit RGB triples.
func RGB8(px []colorful.Color) []byte {
	out := make([]byte, 0, 3*len(px))
	for _, c := range px {
		r, g, b := c.RGB255()
		out = append(out, r, g, b)
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
