package physics

import (
	"math"

	"github.com/banshee-data/marbles/internal/particle"
)

// Touching reports whether two marbles overlap and their velocities have
// opposite signs. Zero counts as positive and negative zero as negative.
func Touching(a, b particle.Particle) bool {
	if !(math.Abs(a.Position-b.Position) < a.Radius+b.Radius) {
		return false
	}
	return math.Signbit(a.Velocity) != math.Signbit(b.Velocity)
}

// Collide applies a 1-D elastic collision to a and b. Positions are left
// untouched. Two massless marbles are treated as equal masses.
func Collide(a, b *particle.Particle) {
	m1, m2 := a.Mass, b.Mass
	if m1+m2 <= 0 {
		m1, m2 = 1, 1
	}
	v1, v2 := a.Velocity, b.Velocity
	a.Velocity = (m1*v1 + m2*(2*v2-v1)) / (m1 + m2)
	b.Velocity = (m2*v2 + m1*(2*v1-v2)) / (m1 + m2)
}

// ResolveCollisions walks a position-sorted slice once, checking each
// adjacent pair in ascending order. A marble can be hit by its left pair and
// then by its right pair within the same frame; this is sequential, not a
// simultaneous multi-body solve. Only neighbours are checked.
func ResolveCollisions(ps []particle.Particle) (hits int) {
	for i := 0; i+1 < len(ps); i++ {
		if Touching(ps[i], ps[i+1]) {
			Collide(&ps[i], &ps[i+1])
			hits++
		}
	}
	return hits
}
