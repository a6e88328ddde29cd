// Package emission turns marble state into light samples.
package emission

import (
	"math"

	"github.com/banshee-data/marbles/internal/particle"
	"github.com/banshee-data/marbles/internal/track"
)

// Sink accumulates HSV samples at fractional strip positions.
type Sink interface {
	AddHSV(pos, hue, saturation, value float64)
}

// Policy maps a marble to its brightness and sample positions.
type Policy struct {
	// Floor and Cap bound the speed-derived brightness.
	Floor float64
	Cap   float64
	// FullTTL is the TTL at which a marble is drawn at full brightness.
	FullTTL float64
	// Widen adds two samples at position +- radius.
	Widen bool
	// BackgroundValue is the brightness of the track overlay.
	BackgroundValue float64
}

// DefaultPolicy returns the policy used on the installed strip.
func DefaultPolicy() Policy {
	return Policy{
		Floor:           0.1,
		Cap:             1,
		FullTTL:         2,
		Widen:           true,
		BackgroundValue: 0.2,
	}
}

// Brightness returns (|v|/2)^2 bounded to [Floor, Cap], faded by the
// remaining TTL.
func (p Policy) Brightness(pt particle.Particle) float64 {
	speed := math.Pow(math.Abs(pt.Velocity)/2, 2)
	b := math.Max(p.Floor, math.Min(p.Cap, speed))

	fade := 1.0
	if p.FullTTL > 0 {
		fade = math.Max(0, math.Min(pt.TTL/p.FullTTL, 1))
	}
	return b * fade
}

// Emit writes the samples for one marble. Non-finite state is skipped.
func (p Policy) Emit(sink Sink, pt particle.Particle) {
	value := p.Brightness(pt)
	if !finite(pt.Position) || !finite(value) {
		return
	}
	if p.Widen && pt.Radius > 0 {
		sink.AddHSV(pt.Position-pt.Radius, pt.Hue, 1, value)
		sink.AddHSV(pt.Position, pt.Hue, 1, value)
		sink.AddHSV(pt.Position+pt.Radius, pt.Hue, 1, value)
		return
	}
	sink.AddHSV(pt.Position, pt.Hue, 1, value)
}

// EmitAll writes samples for every marble in order.
func (p Policy) EmitAll(sink Sink, ps []particle.Particle) {
	for _, pt := range ps {
		p.Emit(sink, pt)
	}
}

// Background paints every track sample with a hue derived from its
// normalized height, lowest point red.
func (p Policy) Background(sink Sink, tr *track.Track) {
	lo, hi := tr.HeightRange()
	span := hi - lo
	for _, pt := range tr.Points() {
		hue := 0.0
		if span > 0 {
			hue = (pt.Y - lo) / span
		}
		sink.AddHSV(float64(pt.Index), hue, 1, p.BackgroundValue)
	}
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
