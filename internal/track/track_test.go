package track

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const spacing = 1.0 / 60

func TestNormalize_MaxStepMatchesSpacing(t *testing.T) {
	t.Parallel()

	inputs := map[string][]Point{
		"contiguous": {
			{Index: 0, X: 0, Y: 0},
			{Index: 1, X: 3, Y: 4},
			{Index: 2, X: 4, Y: 4},
			{Index: 3, X: 4, Y: 10},
		},
		"sparse": {
			{Index: 0, X: 10, Y: 5},
			{Index: 4, X: 14, Y: 8},
			{Index: 5, X: 14.5, Y: 8},
			{Index: 20, X: 40, Y: -3},
		},
		"unsorted": {
			{Index: 7, X: 1, Y: 1},
			{Index: 2, X: 0, Y: 0},
			{Index: 3, X: 0, Y: 2},
		},
	}

	for name, points := range inputs {
		points := points
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			tr, err := Normalize(points, Options{TargetSpacing: spacing, Damping: 1})
			require.NoError(t, err)
			assert.InDelta(t, spacing, tr.MaxStep(), 1e-12)
		})
	}
}

func TestNormalize_Damping(t *testing.T) {
	t.Parallel()

	points := []Point{{Index: 0, X: 0, Y: 0}, {Index: 1, X: 0, Y: 6}}
	tr, err := Normalize(points, Options{TargetSpacing: spacing, Damping: 1.5})
	require.NoError(t, err)
	assert.InDelta(t, spacing/1.5, tr.MaxStep(), 1e-12)
	assert.InDelta(t, spacing/6/1.5, tr.Scale(), 1e-12)
}

func TestNormalize_InvertsHeight(t *testing.T) {
	t.Parallel()

	raw := []Point{
		{Index: 0, X: 0, Y: 9},
		{Index: 1, X: 1, Y: 3},
		{Index: 2, X: 2, Y: 12},
		{Index: 3, X: 3, Y: 7},
	}
	tr, err := Normalize(raw, Options{TargetSpacing: spacing, Damping: 1})
	require.NoError(t, err)

	norm := tr.Points()
	for i := range raw {
		for j := range raw {
			if raw[i].Y < raw[j].Y {
				assert.Greater(t, norm[i].Y, norm[j].Y, "order of %d,%d not inverted", i, j)
			}
		}
	}

	// highest raw y maps to zero
	lo, hi := tr.HeightRange()
	assert.Equal(t, 0.0, lo)
	assert.InDelta(t, (12.0-3.0)*tr.Scale(), hi, 1e-12)
}

func TestNormalize_Errors(t *testing.T) {
	t.Parallel()

	_, err := Normalize([]Point{{Index: 1}}, Options{TargetSpacing: spacing})
	assert.ErrorIs(t, err, ErrTooFewPoints)

	// duplicates collapse to a single point
	_, err = Normalize([]Point{{Index: 1, Y: 1}, {Index: 1, Y: 2}}, Options{TargetSpacing: spacing})
	assert.ErrorIs(t, err, ErrTooFewPoints)

	_, err = Normalize([]Point{{Index: 0}, {Index: 1, Y: 1}}, Options{TargetSpacing: 0})
	assert.Error(t, err)
}

func TestNormalize_DuplicateKeepsFirst(t *testing.T) {
	t.Parallel()

	tr, err := Normalize([]Point{
		{Index: 0, X: 0, Y: 0},
		{Index: 1, X: 1, Y: 0},
		{Index: 1, X: 50, Y: 50},
		{Index: 2, X: 2, Y: 0},
	}, Options{TargetSpacing: spacing, Damping: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, tr.Len())
	assert.InDelta(t, spacing, tr.Points()[1].X, 1e-12)
}

func TestNormalize_CoincidentPoints(t *testing.T) {
	t.Parallel()

	tr, err := Normalize([]Point{{Index: 0, X: 2, Y: 2}, {Index: 5, X: 2, Y: 2}}, Options{TargetSpacing: spacing})
	require.NoError(t, err)
	assert.Equal(t, 1.0, tr.Scale())
	seg := tr.Segment(3)
	assert.True(t, seg.OK)
	assert.Equal(t, 0.0, seg.HeightDelta)
}

func TestSegment(t *testing.T) {
	t.Parallel()

	tr, err := Normalize([]Point{
		{Index: 0, X: 0, Y: 10},
		{Index: 2, X: 0, Y: 8},
		{Index: 6, X: 0, Y: 0},
	}, Options{TargetSpacing: spacing, Damping: 1})
	require.NoError(t, err)
	s := tr.Scale()

	tests := []struct {
		name string
		pos  float64
		want Segment
	}{
		{"before first", -1, Segment{}},
		{"at first", 0, Segment{}},
		{"inside first gap", 0.5, Segment{Prev: 0, Next: 2, HeightDelta: 2 * s, Length: 2 * spacing, OK: true}},
		{"on sample belongs to lower gap", 2, Segment{Prev: 0, Next: 2, HeightDelta: 2 * s, Length: 2 * spacing, OK: true}},
		{"skips missing indices", 4.25, Segment{Prev: 2, Next: 6, HeightDelta: 8 * s, Length: 4 * spacing, OK: true}},
		{"at last", 6, Segment{Prev: 2, Next: 6, HeightDelta: 8 * s, Length: 4 * spacing, OK: true}},
		{"after last", 6.01, Segment{}},
		{"nan", math.NaN(), Segment{}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := tr.Segment(tt.pos)
			assert.Equal(t, tt.want.OK, got.OK)
			assert.Equal(t, tt.want.Prev, got.Prev)
			assert.Equal(t, tt.want.Next, got.Next)
			assert.InDelta(t, tt.want.HeightDelta, got.HeightDelta, 1e-12)
			assert.InDelta(t, tt.want.Length, got.Length, 1e-12)
		})
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	list, err := Decode(strings.NewReader(`[{"index":3,"x":1.5,"y":2},{"index":4,"x":2,"y":2.5}]`))
	require.NoError(t, err)
	assert.Equal(t, []Point{{Index: 3, X: 1.5, Y: 2}, {Index: 4, X: 2, Y: 2.5}}, list)

	byIndex, err := Decode(strings.NewReader(`{"0": [1, 2], "10": [3, 4]}`))
	require.NoError(t, err)
	assert.ElementsMatch(t, []Point{{Index: 0, X: 1, Y: 2}, {Index: 10, X: 3, Y: 4}}, byIndex)

	_, err = Decode(strings.NewReader(`{"a": [1, 2]}`))
	assert.Error(t, err)
	_, err = Decode(strings.NewReader(``))
	assert.Error(t, err)
	_, err = Decode(strings.NewReader(`[{"index": "x"}]`))
	assert.Error(t, err)
}

func TestLoadFile_RejectsExtension(t *testing.T) {
	t.Parallel()
	_, err := LoadFile("track.yaml")
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	t.Parallel()

	points := Default()
	require.Len(t, points, 600)
	tr, err := Normalize(points, Options{TargetSpacing: spacing, Damping: 1.5})
	require.NoError(t, err)
	assert.Equal(t, 600, tr.Len())
	assert.InDelta(t, spacing/1.5, tr.MaxStep(), 1e-12)
}
