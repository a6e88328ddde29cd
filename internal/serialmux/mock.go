package serialmux

import (
	"bytes"
	"io"
	"sync"
)

// TestablePort is an in-memory SerialPorter. Reads block until data is
// added or the port is closed; writes are captured.
type TestablePort struct {
	mu       sync.Mutex
	readCond *sync.Cond

	readBuf  bytes.Buffer
	writes   [][]byte
	closed   bool
	closeErr error

	// WriteErrors are returned, in order, by the next Write calls.
	WriteErrors []error
	// ShortWrite makes Write report one byte fewer than it was given.
	ShortWrite bool
}

// NewTestablePort returns an open port with nothing to read.
func NewTestablePort() *TestablePort {
	p := &TestablePort{}
	p.readCond = sync.NewCond(&p.mu)
	return p
}

func (p *TestablePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for !p.closed && p.readBuf.Len() == 0 {
		p.readCond.Wait()
	}
	if p.readBuf.Len() == 0 {
		return 0, io.EOF
	}
	return p.readBuf.Read(b)
}

func (p *TestablePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrClosed
	}
	if len(p.WriteErrors) > 0 {
		err := p.WriteErrors[0]
		p.WriteErrors = p.WriteErrors[1:]
		if err != nil {
			return 0, err
		}
	}
	if p.ShortWrite && len(b) > 0 {
		return len(b) - 1, nil
	}
	p.writes = append(p.writes, append([]byte(nil), b...))
	return len(b), nil
}

func (p *TestablePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.readCond.Broadcast()
	return p.closeErr
}

// Feed makes data available to Read.
func (p *TestablePort) Feed(data string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readBuf.WriteString(data)
	p.readCond.Broadcast()
}

// Writes returns a copy of every successful write.
func (p *TestablePort) Writes() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.writes))
	copy(out, p.writes)
	return out
}

// Closed reports whether Close was called.
func (p *TestablePort) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
