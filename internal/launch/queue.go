// Package launch is the external event source: a bounded queue fed by the
// HTTP ingress and drained once per frame by the simulation.
package launch

import (
	"sync/atomic"
	"time"
)

// Event asks for one marble to be launched.
type Event struct {
	// Hue in [0, 1).
	Hue float64 `json:"hue"`
	// Speed in m/s, always positive.
	Speed float64 `json:"speed"`
	// FromHighEnd launches from the last LED towards the first one.
	FromHighEnd bool      `json:"from_high_end"`
	ReceivedAt  time.Time `json:"received_at"`
}

// Queue is a bounded multi-producer, single-consumer event queue. Submit and
// Poll never block.
type Queue struct {
	ch      chan Event
	dropped atomic.Uint64
}

// DefaultQueueSize is used when NewQueue is given a non-positive size.
const DefaultQueueSize = 256

// NewQueue returns a queue holding at most size pending events.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{ch: make(chan Event, size)}
}

// Submit enqueues e and reports whether it was accepted. A full queue drops
// the event.
func (q *Queue) Submit(e Event) bool {
	select {
	case q.ch <- e:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Poll drains the events queued so far. It returns nil when nothing is
// pending. Every submitted event is returned by exactly one Poll.
func (q *Queue) Poll() []Event {
	n := len(q.ch)
	if n == 0 {
		return nil
	}
	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		select {
		case e := <-q.ch:
			out = append(out, e)
		default:
			return out
		}
	}
	return out
}

// Len returns the number of pending events.
func (q *Queue) Len() int { return len(q.ch) }

// Dropped returns how many events were rejected because the queue was full.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }
