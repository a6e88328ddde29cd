package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoopbackRequest(t *testing.T) {
	req := LoopbackRequest(http.MethodGet, "/debug/", nil)
	assert.Equal(t, "127.0.0.1:12345", req.RemoteAddr)
}

func TestDecodeJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.WriteString(`{"n": 3}`)
	var got struct{ N int }
	DecodeJSON(t, rec, &got)
	assert.Equal(t, 3, got.N)
}

func TestTracks(t *testing.T) {
	flat := FlatTrack(t, 10)
	assert.Equal(t, 10, flat.Len())
	lo, hi := flat.HeightRange()
	assert.Equal(t, lo, hi)

	ramp := RampTrack(t, 10)
	lo, hi = ramp.HeightRange()
	assert.Less(t, lo, hi)
}
