package launch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/marbles/internal/httputil"
	"github.com/banshee-data/marbles/internal/monitoring"
)

const maxRequestBody = 4 << 10

// Recorder persists accepted launches. Failures are logged, never returned
// to the client.
type Recorder interface {
	RecordLaunch(ctx context.Context, e Event) error
}

// Request is the JSON body accepted by the ingress. Hue is in degrees.
type Request struct {
	Hue       *float64   `json:"hue"`
	Velocity  *float64   `json:"velocity"`
	Direction *Direction `json:"direction"`
}

// Direction accepts true/false, 0/1 and their string forms. True means the
// marble starts at the high end of the strip.
type Direction bool

func (d *Direction) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case bool:
		*d = Direction(v)
	case float64:
		*d = v != 0
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid direction %q", v)
		}
		*d = Direction(parsed)
	default:
		return fmt.Errorf("invalid direction %s", string(b))
	}
	return nil
}

// ParseRequest decodes and validates a launch body.
func ParseRequest(body []byte) (Event, error) {
	var req Request
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&req); err != nil {
		return Event{}, fmt.Errorf("failed to decode launch: %w", err)
	}
	if req.Hue == nil || req.Velocity == nil || req.Direction == nil {
		return Event{}, errors.New("launch requires hue, velocity and direction")
	}
	hue, speed := *req.Hue, *req.Velocity
	if math.IsNaN(hue) || math.IsInf(hue, 0) {
		return Event{}, fmt.Errorf("invalid hue %v", hue)
	}
	if !(speed > 0) || math.IsInf(speed, 0) {
		return Event{}, fmt.Errorf("velocity must be positive, got %v", speed)
	}
	return Event{
		Hue:         WrapHue(hue / 360),
		Speed:       speed,
		FromHighEnd: bool(*req.Direction),
	}, nil
}

// WrapHue folds h into [0, 1).
func WrapHue(h float64) float64 {
	h = math.Mod(h, 1)
	if h < 0 {
		h++
	}
	if h >= 1 {
		h = 0
	}
	return h
}

// Handler is the HTTP ingress for launches. It answers 204 to every POST;
// payloads that fail to parse are dropped without touching the queue.
type Handler struct {
	queue    *Queue
	recorder Recorder
	now      func() time.Time
}

// NewHandler returns a handler feeding q. recorder may be nil.
func NewHandler(q *Queue, recorder Recorder) *Handler {
	return &Handler{queue: q, recorder: recorder, now: time.Now}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)

	ctype, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || ctype != "application/json" {
		monitoring.Debugf("launch: ignoring content type %q", r.Header.Get("Content-Type"))
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		monitoring.Debugf("launch: failed to read body: %v", err)
		return
	}
	e, err := ParseRequest(body)
	if err != nil {
		monitoring.Debugf("launch: dropped: %v", err)
		return
	}
	e.ReceivedAt = h.now()

	if !h.queue.Submit(e) {
		monitoring.Logf("launch: queue full, dropped %+v", e)
		return
	}
	if h.recorder != nil {
		if err := h.recorder.RecordLaunch(r.Context(), e); err != nil {
			monitoring.Logf("launch: failed to record: %v", err)
		}
	}
}
