package serialmux

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestSerialMux_Write(t *testing.T) {
	port := NewTestablePort()
	mux := NewSerialMux(port)

	require.NoError(t, mux.Write([]byte("Ada\x00\x00\x55abc")))
	require.Len(t, port.Writes(), 1)
	assert.Equal(t, []byte("Ada\x00\x00\x55abc"), port.Writes()[0])

	st := mux.Stats()
	assert.Equal(t, uint64(1), st.Frames)
	assert.Equal(t, uint64(9), st.Bytes)
	assert.Zero(t, st.WriteErrors)
}

func TestSerialMux_WriteErrors(t *testing.T) {
	port := NewTestablePort()
	mux := NewSerialMux(port)

	port.WriteErrors = []error{errors.New("unplugged")}
	assert.Error(t, mux.Write([]byte{1, 2, 3}))

	port.ShortWrite = true
	assert.ErrorIs(t, mux.Write([]byte{1, 2, 3}), ErrWriteFailed)
	assert.Equal(t, uint64(2), mux.Stats().WriteErrors)
}

func TestSerialMux_WriteAfterClose(t *testing.T) {
	port := NewTestablePort()
	mux := NewSerialMux(port)
	require.NoError(t, mux.Close())
	assert.True(t, port.Closed())
	assert.ErrorIs(t, mux.Write([]byte{1}), ErrClosed)
	assert.NoError(t, mux.Close())
}

func TestSerialMux_MonitorBroadcasts(t *testing.T) {
	port := NewTestablePort()
	mux := NewSerialMux(port)

	id1, ch1 := mux.Subscribe()
	_, ch2 := mux.Subscribe()
	assert.Equal(t, 2, mux.Stats().Subscribers)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- mux.Monitor(ctx) }()

	port.Feed("Ada\n")

	for _, ch := range []chan string{ch1, ch2} {
		select {
		case line := <-ch:
			assert.Equal(t, "Ada", line)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for line")
		}
	}

	mux.Unsubscribe(id1)
	_, ok := <-ch1
	assert.False(t, ok)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestSerialMux_MonitorStopsOnClose(t *testing.T) {
	port := NewTestablePort()
	mux := NewSerialMux(port)
	_, ch := mux.Subscribe()

	done := make(chan error, 1)
	go func() { done <- mux.Monitor(context.Background()) }()

	require.NoError(t, mux.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
	_, ok := <-ch
	assert.False(t, ok)
}

func TestSerialMux_AdminStats(t *testing.T) {
	port := NewTestablePort()
	mux := NewSerialMux(port)
	require.NoError(t, mux.Write([]byte("abcd")))

	httpMux := http.NewServeMux()
	mux.AttachAdminRoutes(httpMux)

	req := httptest.NewRequest(http.MethodGet, "/debug/serial-stats", nil)
	req.RemoteAddr = "127.0.0.1:1234"
	rec := httptest.NewRecorder()
	httpMux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "frames=1 bytes=4"), rec.Body.String())
}

func TestSerialMux_AdminTail(t *testing.T) {
	port := NewTestablePort()
	mux := NewSerialMux(port)
	httpMux := http.NewServeMux()
	mux.AttachAdminRoutes(httpMux)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = mux.Monitor(ctx) }()

	srv := httptest.NewServer(httpMux)
	defer srv.Close()

	reqCtx, reqCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer reqCancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, srv.URL+"/debug/serial-tail", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// The subscription exists once the ping has been flushed.
	buf := make([]byte, 64)
	n, err := resp.Body.Read(buf)
	require.NoError(t, err)
	assert.Contains(t, string(buf[:n]), ": ping")

	port.Feed("overrun\n")
	var got strings.Builder
	for !strings.Contains(got.String(), "data: overrun") {
		n, err := resp.Body.Read(buf)
		require.NoError(t, err)
		got.Write(buf[:n])
	}
}

func TestPortOptions_Normalize(t *testing.T) {
	tests := []struct {
		name    string
		in      PortOptions
		want    PortOptions
		wantErr bool
	}{
		{"defaults", PortOptions{}, PortOptions{BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: "N"}, false},
		{"even", PortOptions{BaudRate: 9600, Parity: "even"}, PortOptions{BaudRate: 9600, DataBits: 8, StopBits: 1, Parity: "E"}, false},
		{"bad data bits", PortOptions{DataBits: 9}, PortOptions{}, true},
		{"bad stop bits", PortOptions{StopBits: 3}, PortOptions{}, true},
		{"bad parity", PortOptions{Parity: "mark"}, PortOptions{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Normalize()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPortOptions_SerialMode(t *testing.T) {
	mode, err := PortOptions{StopBits: 2, Parity: "O"}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, &serial.Mode{
		BaudRate: DefaultBaudRate,
		DataBits: 8,
		Parity:   serial.OddParity,
		StopBits: serial.TwoStopBits,
	}, mode)
}
