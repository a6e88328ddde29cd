// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/marbles/internal/track"
)

// LoopbackRequest builds a request that tsweb's debug handlers accept.
func LoopbackRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.RemoteAddr = "127.0.0.1:12345"
	return req
}

// DecodeJSON decodes a recorded response body into v.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

// FlatTrack returns an n-sample track at constant height, one LED apart at
// 60 LEDs per metre.
func FlatTrack(t *testing.T, n int) *track.Track {
	t.Helper()
	pts := make([]track.Point, n)
	for i := range pts {
		pts[i] = track.Point{Index: i, X: float64(i), Y: 5}
	}
	tr, err := track.Normalize(pts, track.Options{TargetSpacing: 1.0 / 60})
	if err != nil {
		t.Fatalf("failed to build flat track: %v", err)
	}
	return tr
}

// RampTrack returns an n-sample track rising by one unit per sample.
func RampTrack(t *testing.T, n int) *track.Track {
	t.Helper()
	pts := make([]track.Point, n)
	for i := range pts {
		pts[i] = track.Point{Index: i, X: float64(i), Y: float64(i)}
	}
	tr, err := track.Normalize(pts, track.Options{TargetSpacing: 1.0 / 60})
	if err != nil {
		t.Fatalf("failed to build ramp track: %v", err)
	}
	return tr
}
