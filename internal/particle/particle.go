// Package particle holds the marble state and the per-frame ordered store.
package particle

import (
	"sort"

	"github.com/google/uuid"
)

// Particle is a single marble. Position is a continuous LED coordinate and
// Velocity is in metres per second; positive velocity moves the marble
// towards lower LED indices.
type Particle struct {
	ID       string  `json:"id"`
	Position float64 `json:"position"`
	Velocity float64 `json:"velocity"`
	// Hue in [0, 1).
	Hue float64 `json:"hue"`
	// TTL is the remaining time in seconds a resting marble stays alive.
	TTL    float64 `json:"ttl"`
	Radius float64 `json:"radius"`
	Mass   float64 `json:"mass"`
}

// New creates a particle with mass derived from its radius.
func New(pos, velocity, hue, ttl, radius float64) Particle {
	if radius < 0 {
		radius = 0
	}
	return Particle{
		ID:       uuid.NewString(),
		Position: pos,
		Velocity: velocity,
		Hue:      hue,
		TTL:      ttl,
		Radius:   radius,
		Mass:     2 * radius,
	}
}

// Store owns the live particles. It is not safe for concurrent use; the
// frame loop is its only caller.
type Store struct {
	particles []Particle
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{particles: make([]Particle, 0, 32)}
}

// Add appends particles in arrival order.
func (s *Store) Add(ps ...Particle) {
	s.particles = append(s.particles, ps...)
}

// Len returns the number of live particles.
func (s *Store) Len() int { return len(s.particles) }

// Sorted orders the store ascending by position and returns the working
// slice. Equal positions keep their previous relative order, so a tie is
// resolved the same way for the whole frame. Callers may change fields in
// place but must not add or remove elements.
func (s *Store) Sorted() []Particle {
	sort.SliceStable(s.particles, func(i, j int) bool {
		return s.particles[i].Position < s.particles[j].Position
	})
	return s.particles
}

// Advance replaces the store with the survivors of fn applied to each
// particle in order. fn returns the updated particle and whether it is still
// alive. The previous slice is never modified while it is being walked.
func (s *Store) Advance(fn func(Particle) (Particle, bool)) (retired int) {
	next := make([]Particle, 0, len(s.particles))
	for _, p := range s.particles {
		updated, alive := fn(p)
		if !alive {
			retired++
			continue
		}
		next = append(next, updated)
	}
	s.particles = next
	return retired
}

// Snapshot returns a copy of the current particles.
func (s *Store) Snapshot() []Particle {
	out := make([]Particle, len(s.particles))
	copy(out, s.particles)
	return out
}
