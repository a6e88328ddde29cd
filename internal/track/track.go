// Package track maps a measured 2-D height profile onto the 1-D LED strip.
//
// A track is a sparse, ordered set of LED index -> (x, y) samples measured in
// arbitrary physical units. Normalize rescales the samples so that the
// longest step between two neighbouring LEDs matches the physical LED
// spacing, and flips y so that larger normalized values mean higher track.
package track

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/marbles/internal/monitoring"
)

// ErrTooFewPoints is returned when a profile has fewer than two distinct
// indices.
var ErrTooFewPoints = errors.New("track needs at least two points")

// Point is a single measured sample. Index is the LED address the sample was
// taken at; X and Y are physical coordinates (e.g. centimetres on a photo).
type Point struct {
	Index int     `json:"index"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Options controls normalization.
type Options struct {
	// TargetSpacing is the physical distance between two LEDs in metres
	// (1 / LEDs per metre).
	TargetSpacing float64
	// Damping divides the scale factor to keep per-LED steps below one unit
	// of spacing. Values below 1 are treated as 1.
	Damping float64
}

// Track is an immutable normalized height profile.
type Track struct {
	indices []int
	xs      []float64
	ys      []float64
	scale   float64
	spacing float64
}

// Segment describes the piece of track bracketing a position.
type Segment struct {
	Prev, Next  int
	HeightDelta float64
	Length      float64
	// OK is false when the position lies outside the profile; HeightDelta and
	// Length are zero in that case.
	OK bool
}

// Normalize builds a Track from raw samples. Samples are sorted by index;
// duplicate indices keep the first sample seen and drop the rest.
func Normalize(points []Point, opts Options) (*Track, error) {
	if opts.TargetSpacing <= 0 || math.IsNaN(opts.TargetSpacing) || math.IsInf(opts.TargetSpacing, 0) {
		return nil, fmt.Errorf("invalid target spacing %v", opts.TargetSpacing)
	}
	damping := opts.Damping
	if damping < 1 || math.IsNaN(damping) {
		damping = 1
	}

	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	unique := sorted[:0]
	for i, p := range sorted {
		if i > 0 && p.Index == unique[len(unique)-1].Index {
			monitoring.Logf("track: dropping duplicate sample at index %d", p.Index)
			continue
		}
		unique = append(unique, p)
	}
	if len(unique) < 2 {
		return nil, ErrTooFewPoints
	}

	n := len(unique)
	t := &Track{
		indices: make([]int, n),
		xs:      make([]float64, n),
		ys:      make([]float64, n),
		spacing: opts.TargetSpacing,
	}
	for i, p := range unique {
		t.indices[i] = p.Index
		t.xs[i] = p.X
		t.ys[i] = p.Y
	}

	steps := make([]float64, n-1)
	for i := 1; i < n; i++ {
		gap := float64(t.indices[i] - t.indices[i-1])
		steps[i-1] = math.Hypot(t.xs[i]-t.xs[i-1], t.ys[i]-t.ys[i-1]) / gap
	}
	maxStep := floats.Max(steps)
	if maxStep == 0 {
		// every sample sits on the same spot: nothing to scale against
		monitoring.Logf("track: all %d samples coincide, keeping raw units", n)
		t.scale = 1
	} else {
		t.scale = opts.TargetSpacing / maxStep / damping
	}

	yMax := floats.Max(t.ys)
	floats.Scale(t.scale, t.xs)
	for i := range t.ys {
		t.ys[i] = (yMax - t.ys[i]) * t.scale
	}
	return t, nil
}

// Segment returns the bracketing pair of present samples with
// prev < pos <= next. Positions at or before the first sample, after the last
// sample, or NaN yield a zero Segment with OK false.
func (t *Track) Segment(pos float64) Segment {
	if math.IsNaN(pos) {
		return Segment{}
	}
	j := sort.Search(len(t.indices), func(i int) bool {
		return float64(t.indices[i]) >= pos
	})
	if j == 0 || j == len(t.indices) {
		return Segment{}
	}
	prev, next := j-1, j
	return Segment{
		Prev:        t.indices[prev],
		Next:        t.indices[next],
		HeightDelta: t.ys[next] - t.ys[prev],
		Length:      math.Abs(float64(t.indices[next]-t.indices[prev])) * t.spacing,
		OK:          true,
	}
}

// Len returns the number of samples.
func (t *Track) Len() int { return len(t.indices) }

// Scale returns the factor applied to the raw coordinates.
func (t *Track) Scale() float64 { return t.scale }

// Spacing returns the physical distance between two LEDs in metres.
func (t *Track) Spacing() float64 { return t.spacing }

// Points returns a copy of the normalized samples.
func (t *Track) Points() []Point {
	out := make([]Point, len(t.indices))
	for i := range t.indices {
		out[i] = Point{Index: t.indices[i], X: t.xs[i], Y: t.ys[i]}
	}
	return out
}

// HeightRange returns the lowest and highest normalized heights.
func (t *Track) HeightRange() (lo, hi float64) {
	return floats.Min(t.ys), floats.Max(t.ys)
}

// MaxStep returns the longest normalized distance per LED step.
func (t *Track) MaxStep() float64 {
	var best float64
	for i := 1; i < len(t.indices); i++ {
		gap := float64(t.indices[i] - t.indices[i-1])
		d := math.Hypot(t.xs[i]-t.xs[i-1], t.ys[i]-t.ys[i-1]) / gap
		if d > best {
			best = d
		}
	}
	return best
}
