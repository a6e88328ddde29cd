package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"tailscale.com/tsweb"

	"github.com/banshee-data/marbles/internal/units"
)

// AttachAdminRoutes registers the debug charts under /debug/.
func (s *Server) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.Handle("track-chart", "Track height profile with live marbles", http.HandlerFunc(s.handleTrackChart))
	debug.HandleFunc("marbles", "Live marble counters", func(w http.ResponseWriter, r *http.Request) {
		snap := s.cfg.State.Snapshot()
		fmt.Fprintf(w, "frame=%d fps=%.1f marbles=%d launched=%d spawned=%d retired=%d collisions=%d\n",
			snap.Frame, snap.FPS, len(snap.Particles), snap.Launched, snap.Spawned, snap.Retired, snap.Collisions)
	})
}

// handleTrackChart renders the normalized height profile and a bar per live
// marble showing its speed at its position.
func (s *Server) handleTrackChart(w http.ResponseWriter, r *http.Request) {
	tr := s.cfg.Track
	if tr == nil {
		http.Error(w, "no track loaded", http.StatusNotFound)
		return
	}

	pts := tr.Points()
	xs := make([]string, 0, len(pts))
	heights := make([]opts.LineData, 0, len(pts))
	for _, p := range pts {
		xs = append(xs, strconv.Itoa(p.Index))
		heights = append(heights, opts.LineData{Value: p.Y})
	}

	profile := charts.NewLine()
	profile.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Marble track", Theme: "dark", Width: "1200px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Track profile", Subtitle: fmt.Sprintf("samples=%d scale=%.4g", tr.Len(), tr.Scale())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "LED", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "height (m)", NameLocation: "middle", NameGap: 40}),
	)
	profile.SetXAxis(xs).AddSeries("height", heights, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	snap := s.cfg.State.Snapshot()
	positions := make([]string, 0, len(snap.Particles))
	speeds := make([]opts.BarData, 0, len(snap.Particles))
	for _, p := range snap.Particles {
		positions = append(positions, strconv.FormatFloat(p.Position, 'f', 1, 64))
		speed := units.ConvertSpeed(p.Velocity, s.cfg.Units, s.cfg.LEDsPerMeter)
		speeds = append(speeds, opts.BarData{Value: speed})
	}
	marbles := charts.NewBar()
	marbles.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "300px"}),
		charts.WithTitleOpts(opts.Title{Title: "Live marbles", Subtitle: fmt.Sprintf("frame=%d units=%s", snap.Frame, s.cfg.Units)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	marbles.SetXAxis(positions).AddSeries("velocity", speeds)

	page := components.NewPage()
	page.AddCharts(profile, marbles)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		http.Error(w, "failed to render chart", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
