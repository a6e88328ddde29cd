package sim

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/marbles/internal/launch"
	"github.com/banshee-data/marbles/internal/particle"
)

const (
	// LaunchRadius is the collision radius of launched marbles.
	LaunchRadius = 1.0
	// LowEndPosition is where marbles launched from the low end appear.
	LowEndPosition = 1.0
	// SeedHue colours the marble placed at startup.
	SeedHue = 0.4
)

// SpawnParams describes ambient spawning. Each frame one uniform draw r
// decides: r < Probability spawns at the low end, r >= 1-Probability at the
// high end.
type SpawnParams struct {
	Probability float64
	TTL         float64

	// Velocity range for marbles entering at position 0. Negative velocity
	// moves towards higher positions.
	LowMinSpeed, LowMaxSpeed float64
	// Velocity range for marbles entering at the high end.
	HighMinSpeed, HighMaxSpeed float64

	MinRadius, MaxRadius float64
}

// DefaultSpawnParams returns the installed spawn distribution.
func DefaultSpawnParams() SpawnParams {
	return SpawnParams{
		Probability:  0.005,
		TTL:          2,
		LowMinSpeed:  -2.5,
		LowMaxSpeed:  -1,
		HighMinSpeed: 0.05,
		HighMaxSpeed: 0.5,
		MinRadius:    0.5,
		MaxRadius:    2,
	}
}

// spawner draws ambient marbles.
type spawner struct {
	params SpawnParams
	rng    *rand.Rand
}

func (s *spawner) uniform(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return distuv.Uniform{Min: lo, Max: hi, Src: s.rng}.Rand()
}

// maybeSpawn returns a marble entering at one end of a strip of the given
// length, or false.
func (s *spawner) maybeSpawn(stripLength float64) (particle.Particle, bool) {
	p := s.params.Probability
	if p <= 0 {
		return particle.Particle{}, false
	}
	r := s.rng.Float64()
	var pos, v float64
	switch {
	case r < p:
		pos, v = 0, s.uniform(s.params.LowMinSpeed, s.params.LowMaxSpeed)
	case r >= 1-p:
		pos, v = stripLength, s.uniform(s.params.HighMinSpeed, s.params.HighMaxSpeed)
	default:
		return particle.Particle{}, false
	}
	hue := s.rng.Float64()
	radius := s.uniform(s.params.MinRadius, s.params.MaxRadius)
	return particle.New(pos, v, hue, s.params.TTL, radius), true
}

// fromLaunch converts an external event. High-end launches start at the last
// LED and travel towards position 0.
func fromLaunch(e launch.Event, stripLength, ttl float64) particle.Particle {
	if e.FromHighEnd {
		return particle.New(stripLength, e.Speed, e.Hue, ttl, LaunchRadius)
	}
	return particle.New(LowEndPosition, -e.Speed, e.Hue, ttl, LaunchRadius)
}
