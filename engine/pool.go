package engine

import (
	"context"
	"sync"

	"github.com/odbcfast/engine/calldriver"
)

// Pool is a bounded set of idle driver connections plus a semaphore of
// capacity N, with LIFO reuse for cache locality. Checkout blocks until a lease is available; a Lease releases
// its connection back to the idle set on Close unless it was poisoned.
type Pool struct {
	capacity int
	sem      chan struct{}
	drv      calldriver.Driver
	connStr  string

	mu   sync.Mutex
	idle []calldriver.Conn
}

// NewPool eagerly creates capacity connections via drv, or fails (closing
// whatever it already opened) if any connect call errors. Capacity must
// be ≥ 1.
func NewPool(ctx context.Context, drv calldriver.Driver, connStr string, capacity int) (*Pool, error) {
	if capacity < 1 {
		capacity = 1
	}
	p := &Pool{capacity: capacity, sem: make(chan struct{}, capacity), drv: drv, connStr: connStr}
	for i := 0; i < capacity; i++ {
		c, err := drv.Connect(ctx, connStr, 0)
		if err != nil {
			p.closeIdle()
			return nil, err
		}
		p.idle = append(p.idle, c)
	}
	for i := 0; i < capacity; i++ {
		p.sem <- struct{}{}
	}
	return p, nil
}

func (p *Pool) closeIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.idle {
		c.Close()
	}
	p.idle = nil
}

// Lease is an exclusive loan of a pooled connection, bounded by its scope.
// Close must be called exactly once to release the lease.
type Lease struct {
	pool     *Pool
	conn     calldriver.Conn
	poisoned bool
	released bool
}

// Conn returns the leased connection. The lease grants exclusive access
// for its lifetime; callers must not share it across goroutines.
func (l *Lease) Conn() calldriver.Conn { return l.conn }

// Poison marks the underlying connection as unfit for reuse; on Close it
// is discarded instead of returned to the idle set. Call this after the
// driver reports a fatal (connection-level) error.
func (l *Lease) Poison() { l.poisoned = true }

// Close releases the lease: a healthy connection returns to the idle
// LIFO stack, a poisoned one is closed and dropped. Safe to call more
// than once.
func (l *Lease) Close() {
	if l.released {
		return
	}
	l.released = true
	if l.poisoned {
		l.conn.Close()
		l.pool.replace()
		return
	}
	l.pool.mu.Lock()
	l.pool.idle = append(l.pool.idle, l.conn)
	l.pool.mu.Unlock()
	l.pool.sem <- struct{}{}
}

// replace dials a fresh connection to stand in for a discarded, poisoned
// one and only then returns its permit to the semaphore, keeping
// len(idle)+active-leases equal to the number of outstanding permits at
// every point in time. If dialing the replacement fails, the permit is
// withheld instead: a poisoned connection must shrink effective capacity,
// never hand out a permit with no connection behind it.
func (p *Pool) replace() {
	c, err := p.drv.Connect(context.Background(), p.connStr, 0)
	if err != nil {
		return
	}
	p.mu.Lock()
	p.idle = append(p.idle, c)
	p.mu.Unlock()
	p.sem <- struct{}{}
}

// Checkout blocks until a lease is available or ctx is done.
func (p *Pool) Checkout(ctx context.Context) (*Lease, error) {
	select {
	case <-p.sem:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.mu.Lock()
	n := len(p.idle)
	c := p.idle[n-1]
	p.idle = p.idle[:n-1]
	p.mu.Unlock()

	return &Lease{pool: p, conn: c}, nil
}

// Capacity returns the pool's fixed connection capacity.
func (p *Pool) Capacity() int { return p.capacity }

// ActiveLeases returns the number of leases currently checked out.
func (p *Pool) ActiveLeases() int { return p.capacity - len(p.sem) }

// Close closes every connection the pool currently holds idle. Connections
// out on lease at the time of Close are not closed: a lease released after
// Close returns its connection to the idle set, so callers should drain
// leases before closing the pool.
func (p *Pool) Close() error {
	p.closeIdle()
	return nil
}
