// Package physics integrates marble motion along a track and resolves
// collisions between neighbouring marbles.
package physics

import (
	"math"

	"github.com/banshee-data/marbles/internal/particle"
	"github.com/banshee-data/marbles/internal/track"
)

// Params holds every tunable used by Step. Build it with DefaultParams or
// from config.TuningConfig.PhysicsParams.
type Params struct {
	// Gravity in m/s^2.
	Gravity float64
	// Friction is the rolling friction coefficient.
	Friction float64
	// FrictionScale multiplies the friction term.
	FrictionScale float64
	// Drag is a velocity-proportional deceleration in 1/s. Zero disables it.
	Drag float64
	// RestingSpeed is the speed below which a marble counts as resting and
	// its TTL runs down.
	RestingSpeed float64
	// DefaultTTL is the TTL restored whenever a marble is moving.
	DefaultTTL float64
	// SegmentEpsilon floors the segment length used for the slope ratio.
	SegmentEpsilon float64
	// LEDsPerMeter converts metres travelled into LED positions.
	LEDsPerMeter float64
	// StripLength is the highest valid position; the valid range is
	// [0, StripLength].
	StripLength float64
}

// DefaultParams returns the tuning used on the installed strip.
func DefaultParams() Params {
	return Params{
		Gravity:        9.81,
		Friction:       0.01,
		FrictionScale:  1.01,
		Drag:           0.22,
		RestingSpeed:   0.2,
		DefaultTTL:     2,
		SegmentEpsilon: 1e-5,
		LEDsPerMeter:   60,
		StripLength:    600,
	}
}

// Terrain answers slope queries by position. *track.Track implements it.
type Terrain interface {
	Segment(pos float64) track.Segment
}

// Forces returns the slope acceleration and the friction acceleration for a
// marble at the given segment moving with velocity v. Friction carries the
// sign of v and is zero when v is exactly zero.
func Forces(p Params, seg track.Segment, v float64) (slope, friction float64) {
	dh, length := seg.HeightDelta, seg.Length
	if !seg.OK {
		dh = 0
	}
	if length < p.SegmentEpsilon || math.IsNaN(length) {
		length = p.SegmentEpsilon
	}
	ratio := clamp(dh/length, -1, 1)
	if math.IsNaN(ratio) {
		ratio = 0
	}

	slope = p.Gravity * ratio
	if v != 0 {
		normal := math.Cos(math.Asin(ratio))
		friction = math.Copysign(p.Friction*p.Gravity*normal*p.FrictionScale, v)
	}
	return slope, friction
}

// Step advances one particle by dt seconds and reports whether it is still
// alive. A particle is retired when it leaves [0, StripLength], when its TTL
// runs out while resting, or when its state is no longer finite.
func Step(p Params, terrain Terrain, pt particle.Particle, dt float64) (particle.Particle, bool) {
	slope, friction := Forces(p, terrain.Segment(pt.Position), pt.Velocity)
	a := slope - friction - p.Drag*pt.Velocity

	v := pt.Velocity + a*dt
	pos := pt.Position - v*dt*p.LEDsPerMeter

	pt.Velocity = v
	pt.Position = pos
	if math.Abs(v) < p.RestingSpeed {
		pt.TTL -= dt
	} else {
		pt.TTL = p.DefaultTTL
	}

	if !finite(pos) || !finite(v) {
		return pt, false
	}
	if pos < 0 || pos > p.StripLength {
		return pt, false
	}
	return pt, pt.TTL > 0
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
