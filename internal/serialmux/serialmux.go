// Package serialmux owns the serial link to the LED controller. Frames are
// written under a single lock; lines the controller prints back (handshakes,
// debug output) are fanned out to subscribers.
package serialmux

import (
	"bufio"
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"tailscale.com/tsweb"
)

var ErrWriteFailed = errors.New("short write to serial port")

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("serial port closed")

// SerialMux multiplexes one controller port between a single frame writer
// and any number of line subscribers.
type SerialMux[T SerialPorter] struct {
	port         T
	subscribers  map[string]chan string
	subscriberMu sync.Mutex
	writeMu      sync.Mutex
	closing      atomic.Bool

	framesWritten atomic.Uint64
	bytesWritten  atomic.Uint64
	writeErrors   atomic.Uint64
}

// Stats is a snapshot of the link counters.
type Stats struct {
	Frames      uint64 `json:"frames"`
	Bytes       uint64 `json:"bytes"`
	WriteErrors uint64 `json:"write_errors"`
	Subscribers int    `json:"subscribers"`
}

// NewSerialMux wraps port.
func NewSerialMux[T SerialPorter](port T) *SerialMux[T] {
	return &SerialMux[T]{
		port:        port,
		subscribers: make(map[string]chan string),
	}
}

// randomID generates a random channel ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	_, _ = crand.Read(b)
	return hex.EncodeToString(b)
}

// Subscribe returns an ID and a channel receiving controller lines. Slow
// subscribers miss lines rather than stall the reader.
func (s *SerialMux[T]) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string, 16)
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	s.subscribers[id] = ch
	return id, ch
}

// Unsubscribe closes and forgets the channel for id.
func (s *SerialMux[T]) Unsubscribe(id string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if ch, ok := s.subscribers[id]; ok {
		close(ch)
		delete(s.subscribers, id)
	}
}

// Write sends one complete frame. Partial writes are reported as
// ErrWriteFailed.
func (s *SerialMux[T]) Write(frame []byte) error {
	if s.closing.Load() {
		return ErrClosed
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	n, err := s.port.Write(frame)
	if err != nil {
		s.writeErrors.Add(1)
		return fmt.Errorf("serial write: %w", err)
	}
	if n != len(frame) {
		s.writeErrors.Add(1)
		return ErrWriteFailed
	}
	s.framesWritten.Add(1)
	s.bytesWritten.Add(uint64(n))
	return nil
}

// Monitor reads lines from the controller until ctx is done, the port
// reaches EOF, or the mux is closed.
func (s *SerialMux[T]) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(s.port)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			if s.closing.Load() {
				return nil
			}
			return err

		case line, ok := <-lineChan:
			if !ok {
				select {
				case err := <-scanErrChan:
					if !s.closing.Load() {
						return err
					}
				default:
				}
				return nil
			}
			if s.closing.Load() {
				return nil
			}
			s.broadcast(line)
		}
	}
}

func (s *SerialMux[T]) broadcast(line string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- line:
		default:
		}
	}
}

// Stats returns the current link counters.
func (s *SerialMux[T]) Stats() Stats {
	s.subscriberMu.Lock()
	n := len(s.subscribers)
	s.subscriberMu.Unlock()
	return Stats{
		Frames:      s.framesWritten.Load(),
		Bytes:       s.bytesWritten.Load(),
		WriteErrors: s.writeErrors.Load(),
		Subscribers: n,
	}
}

// Close drops all subscribers and closes the port. It is safe to call more
// than once; only the first call closes the port.
func (s *SerialMux[T]) Close() error {
	if s.closing.Swap(true) {
		return nil
	}

	s.subscriberMu.Lock()
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
	s.subscriberMu.Unlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.port.Close()
}

// AttachAdminRoutes registers serial-stats and serial-tail under /debug/.
func (s *SerialMux[T]) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("serial-stats", "LED controller link counters", func(w http.ResponseWriter, r *http.Request) {
		st := s.Stats()
		fmt.Fprintf(w, "frames=%d bytes=%d write_errors=%d subscribers=%d\n",
			st.Frames, st.Bytes, st.WriteErrors, st.Subscribers)
	})

	// Server-sent events for every line the controller prints.
	debug.HandleSilentFunc("serial-tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		id, c := s.Subscribe()
		defer s.Unsubscribe(id)

		_, _ = w.Write([]byte(": ping\n\n"))
		flusher.Flush()

		for {
			select {
			case payload, ok := <-c:
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	})
}
