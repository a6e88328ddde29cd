package emission

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/banshee-data/marbles/internal/particle"
	"github.com/banshee-data/marbles/internal/track"
)

type sample struct {
	Pos, Hue, Sat, Val float64
}

type recordingSink struct {
	samples []sample
}

func (r *recordingSink) AddHSV(pos, h, s, v float64) {
	r.samples = append(r.samples, sample{pos, h, s, v})
}

func TestBrightness(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		name     string
		velocity float64
		ttl      float64
		want     float64
	}{
		{"slow uses floor", 0.1, 2, 0.1},
		{"medium", 1, 2, 0.25},
		{"negative velocity", -1, 2, 0.25},
		{"fast is capped", 5, 2, 1},
		{"fading ttl", 1, 1, 0.125},
		{"ttl above full", 1, 10, 0.25},
		{"expired", 1, -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Brightness(particle.Particle{Velocity: tt.velocity, TTL: tt.ttl})
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Brightness() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEmit_Widened(t *testing.T) {
	sink := &recordingSink{}
	p := DefaultPolicy()
	p.Emit(sink, particle.Particle{Position: 10.5, Velocity: 1, Hue: 0.3, TTL: 2, Radius: 1.5})

	want := []sample{
		{9, 0.3, 1, 0.25},
		{10.5, 0.3, 1, 0.25},
		{12, 0.3, 1, 0.25},
	}
	if diff := cmp.Diff(want, sink.samples, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("Emit() mismatch (-want +got):\n%s", diff)
	}
}

func TestEmit_Single(t *testing.T) {
	sink := &recordingSink{}
	p := DefaultPolicy()
	p.Widen = false
	p.EmitAll(sink, []particle.Particle{
		{Position: 3, Velocity: 1, Hue: 0.1, TTL: 2, Radius: 1},
		{Position: math.NaN(), Velocity: 1, TTL: 2},
		{Position: 7, Velocity: 1, Hue: 0.9, TTL: 2},
	})
	if len(sink.samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(sink.samples))
	}
	if sink.samples[1].Pos != 7 {
		t.Errorf("second sample at %v, want 7", sink.samples[1].Pos)
	}
}

func TestBackground(t *testing.T) {
	tr, err := track.Normalize([]track.Point{
		{Index: 0, X: 0, Y: 4},
		{Index: 2, X: 1, Y: 0},
		{Index: 3, X: 2, Y: 2},
	}, track.Options{TargetSpacing: 1.0 / 60, Damping: 1})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	sink := &recordingSink{}
	DefaultPolicy().Background(sink, tr)

	want := []sample{
		{0, 0, 1, 0.2},
		{2, 1, 1, 0.2},
		{3, 0.5, 1, 0.2},
	}
	if diff := cmp.Diff(want, sink.samples, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("Background() mismatch (-want +got):\n%s", diff)
	}
}
