package track

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	profileColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	sampleColor  = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Plot returns a height-over-index chart of the normalized profile with the
// measured samples marked.
func (t *Track) Plot() (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Track profile (%d samples, scale %.4g)", t.Len(), t.scale)
	p.X.Label.Text = "LED"
	p.Y.Label.Text = "Height (m)"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(t.indices))
	for i := range t.indices {
		pts[i] = plotter.XY{X: float64(t.indices[i]), Y: t.ys[i]}
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = profileColor
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("height", line)

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	scatter.Color = sampleColor
	scatter.Radius = vg.Points(1.5)
	p.Add(scatter)
	p.Legend.Add("samples", scatter)

	return p, nil
}

// SavePlot writes the profile chart to path. The image format follows the
// file extension (png, svg, pdf, ...).
func (t *Track) SavePlot(path string) error {
	p, err := t.Plot()
	if err != nil {
		return err
	}
	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	return nil
}
