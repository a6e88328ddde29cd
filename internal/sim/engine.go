// Package sim runs the frame loop: spawn, collide, integrate, draw and
// transmit, once per frame.
package sim

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/banshee-data/marbles/internal/emission"
	"github.com/banshee-data/marbles/internal/launch"
	"github.com/banshee-data/marbles/internal/monitoring"
	"github.com/banshee-data/marbles/internal/particle"
	"github.com/banshee-data/marbles/internal/physics"
	"github.com/banshee-data/marbles/internal/timeutil"
	"github.com/banshee-data/marbles/internal/track"
)

// Source yields pending launches without blocking. *launch.Queue
// implements it.
type Source interface {
	Poll() []launch.Event
}

// Output is the frame sink. *strip.Strip implements it.
type Output interface {
	emission.Sink
	Clear()
	Transmit() error
}

// Options configures an Engine. Zero values take the installed defaults.
type Options struct {
	Physics  physics.Params
	Emission emission.Policy
	Spawn    SpawnParams

	FrameInterval time.Duration
	StatsInterval time.Duration

	// Background draws the track overlay under the marbles.
	Background bool
	// Seed places one marble at the high end before the first frame.
	Seed bool

	Clock timeutil.Clock
	Rand  *rand.Rand
}

// Snapshot is a consistent copy of engine state for readers outside the
// frame loop.
type Snapshot struct {
	Frame      uint64              `json:"frame"`
	Particles  []particle.Particle `json:"particles"`
	FPS        float64             `json:"fps"`
	Launched   uint64              `json:"launched"`
	Spawned    uint64              `json:"spawned"`
	Retired    uint64              `json:"retired"`
	Collisions uint64              `json:"collisions"`
	LastFrame  time.Time           `json:"last_frame"`
}

// Engine owns the particle store and drives one frame at a time. Tick and
// Run must be called from a single goroutine; Snapshot is safe from any.
type Engine struct {
	track   *track.Track
	out     Output
	source  Source
	opts    Options
	store   *particle.Store
	spawner spawner

	last time.Time

	statsStart time.Time
	statsFrame uint64

	mu   sync.RWMutex
	snap Snapshot
}

// New returns an engine drawing tr into out. source may be nil.
func New(tr *track.Track, out Output, source Source, opts Options) *Engine {
	if opts.Physics == (physics.Params{}) {
		opts.Physics = physics.DefaultParams()
	}
	if opts.Emission == (emission.Policy{}) {
		opts.Emission = emission.DefaultPolicy()
	}
	if opts.Spawn == (SpawnParams{}) {
		opts.Spawn = DefaultSpawnParams()
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = 10 * time.Millisecond
	}
	if opts.StatsInterval <= 0 {
		opts.StatsInterval = 10 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	e := &Engine{
		track:   tr,
		out:     out,
		source:  source,
		opts:    opts,
		store:   particle.NewStore(),
		spawner: spawner{params: opts.Spawn, rng: opts.Rand},
	}
	if opts.Seed {
		e.store.Add(particle.New(opts.Physics.StripLength, 1, SeedHue, opts.Physics.DefaultTTL, LaunchRadius))
	}
	e.publish(0, 0, 0, 0, 0, time.Time{})
	return e
}

// Tick renders one frame at now. dt is the time since the previous Tick;
// the first frame integrates with dt = 0.
func (e *Engine) Tick(now time.Time) error {
	dt := 0.0
	if !e.last.IsZero() {
		dt = now.Sub(e.last).Seconds()
		if dt < 0 {
			dt = 0
		}
	}

	e.out.Clear()
	if e.opts.Background {
		e.opts.Emission.Background(e.out, e.track)
	}

	length := e.opts.Physics.StripLength
	var spawned, launched uint64
	if p, ok := e.spawner.maybeSpawn(length); ok {
		e.store.Add(p)
		spawned++
	}
	if e.source != nil {
		for _, ev := range e.source.Poll() {
			e.store.Add(fromLaunch(ev, length, e.opts.Physics.DefaultTTL))
			launched++
		}
	}

	hits := physics.ResolveCollisions(e.store.Sorted())
	retired := e.store.Advance(func(p particle.Particle) (particle.Particle, bool) {
		next, alive := physics.Step(e.opts.Physics, e.track, p, dt)
		if alive {
			e.opts.Emission.Emit(e.out, next)
		}
		return next, alive
	})
	e.last = now

	e.publish(1, spawned, launched, uint64(retired), uint64(hits), now)

	if err := e.out.Transmit(); err != nil {
		return fmt.Errorf("frame %d: %w", e.Frame(), err)
	}
	return nil
}

func (e *Engine) publish(frames, spawned, launched, retired, hits uint64, now time.Time) {
	ps := e.store.Snapshot()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snap.Frame += frames
	e.snap.Particles = ps
	e.snap.Spawned += spawned
	e.snap.Launched += launched
	e.snap.Retired += retired
	e.snap.Collisions += hits
	e.snap.LastFrame = now
}

// Frame returns the number of frames rendered.
func (e *Engine) Frame() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap.Frame
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := e.snap
	s.Particles = append([]particle.Particle(nil), e.snap.Particles...)
	return s
}

// Run renders frames until ctx is cancelled or a transmit fails. Frames are
// paced to FrameInterval on a best-effort basis.
func (e *Engine) Run(ctx context.Context) error {
	clock := e.opts.Clock
	e.statsStart = clock.Now()
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		start := clock.Now()
		if err := e.Tick(start); err != nil {
			return err
		}
		e.maybeLogStats(start)

		wait := e.opts.FrameInterval - clock.Since(start)
		if wait < 0 {
			wait = 0
		}
		select {
		case <-ctx.Done():
			return nil
		case <-clock.After(wait):
		}
	}
}

func (e *Engine) maybeLogStats(now time.Time) {
	elapsed := now.Sub(e.statsStart)
	if elapsed < e.opts.StatsInterval {
		return
	}
	frame := e.Frame()
	fps := float64(frame-e.statsFrame) / elapsed.Seconds()
	e.statsStart, e.statsFrame = now, frame

	e.mu.Lock()
	e.snap.FPS = fps
	n := len(e.snap.Particles)
	e.mu.Unlock()
	monitoring.Logf("sim: frame=%d fps=%.1f marbles=%d", frame, fps, n)
}
