package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Span carries the lifecycle of one traced operation.
type Span struct {
	ID       uint64
	Query    string
	Start    time.Time
	End      time.Time
	Metadata map[string]string
}

// Tracer hands out span IDs from a monotonic counter and tracks
// in-flight spans until they are finished.
type Tracer struct {
	nextID atomic.Uint64
	mu     sync.Mutex
	open   map[uint64]*Span
}

// NewTracer returns an empty tracer.
func NewTracer() *Tracer {
	return &Tracer{open: make(map[uint64]*Span)}
}

// StartSpan begins a new span for query and returns its ID.
func (t *Tracer) StartSpan(query string) uint64 {
	id := t.nextID.Add(1)
	span := &Span{ID: id, Query: query, Start: time.Now(), Metadata: make(map[string]string)}
	t.mu.Lock()
	t.open[id] = span
	t.mu.Unlock()
	return id
}

// FinishSpan closes the span with the given ID, stamping its end time and
// returning the finalized copy. It returns nil if the ID is unknown
// (already finished, or never started).
func (t *Tracer) FinishSpan(id uint64) *Span {
	t.mu.Lock()
	defer t.mu.Unlock()
	span, ok := t.open[id]
	if !ok {
		return nil
	}
	delete(t.open, id)
	span.End = time.Now()
	finished := *span
	return &finished
}

// OpenCount returns the number of spans currently in flight.
func (t *Tracer) OpenCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.open)
}
