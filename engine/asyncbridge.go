package engine

import (
	"context"
	"sync"

	"github.com/odbcfast/engine/calldriver"
)

// AsyncResult is the future-typed handle ExecuteAsync returns: a channel
// that receives exactly one value once the underlying synchronous call
// completes.
type AsyncResult struct {
	ch chan asyncOutcome
}

type asyncOutcome struct {
	frame []byte
	err   error
}

// Wait blocks until the async call completes and returns its outcome.
func (r *AsyncResult) Wait(ctx context.Context) ([]byte, error) {
	select {
	case o := <-r.ch:
		return o.frame, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// AsyncBridge serializes execute_async calls through a single global
// mutex around a "runtime" that is, today, just this goroutine: per
// spec.md's design notes, this is a single-threaded bridge to a future
// parallel executor, not real concurrent async execution. Every call
// still blocks the calling goroutine's underlying pipeline call; only the
// caller of ExecuteAsync gets a future-shaped API back.
type AsyncBridge struct {
	mu       sync.Mutex
	pipeline *Pipeline
}

// NewAsyncBridge wraps pipeline in the async bridge contract.
func NewAsyncBridge(pipeline *Pipeline) *AsyncBridge {
	return &AsyncBridge{pipeline: pipeline}
}

// ExecuteAsync runs sql through the wrapped pipeline while holding the
// bridge's global mutex, then delivers the result on the returned
// AsyncResult's channel. Two concurrent ExecuteAsync calls on the same
// bridge still execute one at a time.
func (b *AsyncBridge) ExecuteAsync(ctx context.Context, conn calldriver.Conn, sql string, params []Param) *AsyncResult {
	result := &AsyncResult{ch: make(chan asyncOutcome, 1)}
	b.mu.Lock()
	defer b.mu.Unlock()
	frame, err := b.pipeline.ExecuteWithParams(ctx, conn, sql, params)
	result.ch <- asyncOutcome{frame: frame, err: err}
	return result
}
