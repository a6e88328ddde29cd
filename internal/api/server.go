// Package api serves the launch ingress, the read-only state API and the
// debug charts.
package api

import (
	"context"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/marbles/internal/db"
	"github.com/banshee-data/marbles/internal/httputil"
	"github.com/banshee-data/marbles/internal/monitoring"
	"github.com/banshee-data/marbles/internal/sim"
	"github.com/banshee-data/marbles/internal/track"
	"github.com/banshee-data/marbles/internal/units"
	"github.com/banshee-data/marbles/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

const (
	defaultLaunchLimit = 20
	maxLaunchLimit     = 500
)

// StateSource provides engine snapshots. *sim.Engine implements it.
type StateSource interface {
	Snapshot() sim.Snapshot
}

// LaunchHistory lists recorded launches. *db.DB implements it.
type LaunchHistory interface {
	RecentLaunches(ctx context.Context, limit int) ([]db.Launch, error)
}

// Config wires a Server. Launch is normally a *launch.Handler. History and
// Static may be nil.
type Config struct {
	State        StateSource
	Track        *track.Track
	Launch       http.Handler
	History      LaunchHistory
	Static       fs.FS
	LEDsPerMeter float64
	// Units is the default speed unit for /api/state.
	Units string
}

type Server struct {
	cfg Config
}

func NewServer(cfg Config) *Server {
	if cfg.Units == "" {
		cfg.Units = units.MPS
	}
	return &Server{cfg: cfg}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status and duration. Launches are
// logged only in verbose mode.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		logf := monitoring.Logf
		if r.URL.Path == "/launch" || r.URL.Path == "/api/launch" {
			logf = monitoring.Debugf
		}
		logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the public routes.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	if s.cfg.Launch != nil {
		mux.Handle("/launch", s.cfg.Launch)
		mux.Handle("/api/launch", s.cfg.Launch)
	}
	mux.HandleFunc("/api/state", s.showState)
	mux.HandleFunc("/api/track", s.showTrack)
	mux.HandleFunc("/api/launches", s.listLaunches)
	mux.HandleFunc("/api/version", s.showVersion)
	if s.cfg.Static != nil {
		mux.Handle("/", http.FileServer(http.FS(s.cfg.Static)))
	}
	return mux
}

// ParticleView is a marble as reported by /api/state.
type ParticleView struct {
	ID        string  `json:"id"`
	Position  float64 `json:"position"`
	PositionM float64 `json:"position_m"`
	Speed     float64 `json:"speed"`
	Velocity  float64 `json:"velocity"`
	Hue       float64 `json:"hue"`
	TTL       float64 `json:"ttl"`
	Radius    float64 `json:"radius"`
}

// StateView is the /api/state response.
type StateView struct {
	Frame      uint64         `json:"frame"`
	FPS        float64        `json:"fps"`
	Launched   uint64         `json:"launched"`
	Spawned    uint64         `json:"spawned"`
	Retired    uint64         `json:"retired"`
	Collisions uint64         `json:"collisions"`
	Units      string         `json:"units"`
	Particles  []ParticleView `json:"particles"`
}

func (s *Server) requestUnits(r *http.Request) (string, bool) {
	u := r.URL.Query().Get("units")
	if u == "" {
		return s.cfg.Units, true
	}
	return u, units.IsValid(u)
}

func (s *Server) showState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	u, ok := s.requestUnits(r)
	if !ok {
		httputil.BadRequest(w, "invalid units: expected one of "+units.GetValidUnitsString())
		return
	}
	snap := s.cfg.State.Snapshot()
	view := StateView{
		Frame:      snap.Frame,
		FPS:        snap.FPS,
		Launched:   snap.Launched,
		Spawned:    snap.Spawned,
		Retired:    snap.Retired,
		Collisions: snap.Collisions,
		Units:      u,
		Particles:  make([]ParticleView, 0, len(snap.Particles)),
	}
	for _, p := range snap.Particles {
		v := units.ConvertSpeed(p.Velocity, u, s.cfg.LEDsPerMeter)
		speed := v
		if speed < 0 {
			speed = -speed
		}
		view.Particles = append(view.Particles, ParticleView{
			ID:        p.ID,
			Position:  p.Position,
			PositionM: units.LEDsToMeters(p.Position, s.cfg.LEDsPerMeter),
			Speed:     speed,
			Velocity:  v,
			Hue:       p.Hue,
			TTL:       p.TTL,
			Radius:    p.Radius,
		})
	}
	httputil.WriteJSONOK(w, view)
}

// TrackView is the /api/track response.
type TrackView struct {
	Samples   int           `json:"samples"`
	Scale     float64       `json:"scale"`
	Spacing   float64       `json:"spacing"`
	HeightMin float64       `json:"height_min"`
	HeightMax float64       `json:"height_max"`
	Points    []track.Point `json:"points"`
}

func (s *Server) showTrack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	tr := s.cfg.Track
	if tr == nil {
		httputil.WriteJSONError(w, http.StatusNotFound, "no track loaded")
		return
	}
	lo, hi := tr.HeightRange()
	httputil.WriteJSONOK(w, TrackView{
		Samples:   tr.Len(),
		Scale:     tr.Scale(),
		Spacing:   tr.Spacing(),
		HeightMin: lo,
		HeightMax: hi,
		Points:    tr.Points(),
	})
}

func (s *Server) listLaunches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	limit, err := httputil.IntQuery(r, "limit", defaultLaunchLimit, maxLaunchLimit)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if s.cfg.History == nil {
		httputil.WriteJSONOK(w, []db.Launch{})
		return
	}
	launches, err := s.cfg.History.RecentLaunches(r.Context(), limit)
	if err != nil {
		monitoring.Logf("api: failed to list launches: %v", err)
		httputil.InternalServerError(w, "failed to list launches")
		return
	}
	httputil.WriteJSONOK(w, launches)
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, version.Get())
}
