// Package engine implements the query execution engine and its supporting
// machinery: the handle manager, connection pool, caches, parameter
// marshaller, query pipeline, bulk-insert paths, transaction/savepoint
// state machine, and the streaming executor. It consumes the calldriver,
// plugin, wire, abi, security, and observability packages; it never
// implements a call-level driver itself.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/odbcfast/engine/calldriver"
	"github.com/odbcfast/engine/errs"
)

// Environment is the process-wide singleton holding driver library state.
// At most one Environment exists per process; its teardown must follow
// teardown of every connection it handed out.
type Environment struct {
	mu      sync.Mutex
	driver  calldriver.Driver
	handles *HandleManager
	torn    bool
}

var (
	envOnce sync.Once
	env     *Environment
)

// InitEnvironment lazily creates the process-wide environment around the
// given driver. Subsequent calls return the already-initialized
// environment regardless of the driver argument, matching the spec's
// "created lazily" singleton contract.
func InitEnvironment(drv calldriver.Driver) *Environment {
	envOnce.Do(func() {
		env = &Environment{driver: drv, handles: NewHandleManager()}
	})
	return env
}

// CurrentEnvironment returns the process environment, or nil if
// InitEnvironment has not yet been called. Exposed mainly for tests that
// need a fresh environment per test; production callers should go through
// InitEnvironment.
func CurrentEnvironment() *Environment { return env }

// resetEnvironmentForTest discards the singleton so tests can init a fresh
// Environment bound to a fresh fake driver. Not exported: process-wide
// singletons are a production invariant, not something callers should
// reset.
func resetEnvironmentForTest() {
	envOnce = sync.Once{}
	env = nil
}

// Handles returns the environment's handle manager.
func (e *Environment) Handles() *HandleManager { return e.handles }

// Driver returns the underlying call-level driver.
func (e *Environment) Driver() calldriver.Driver { return e.driver }

// Teardown closes every live connection and marks the environment torn
// down. Idempotent: a second call is a no-op. Teardown must run after all
// connections are individually closed or abandoned by their owners; this
// method itself closes whatever remains, mirroring "connections before
// environment" from the design notes.
func (e *Environment) Teardown() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.torn {
		return nil
	}
	e.torn = true
	return e.handles.closeAll()
}

// IsTornDown reports whether Teardown has already run.
func (e *Environment) IsTornDown() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.torn
}

// requireNotTornDown is a small guard used by operations that must not
// proceed after shutdown.
func (e *Environment) requireNotTornDown() error {
	if e.IsTornDown() {
		return errs.NewInternalError("environment already torn down")
	}
	return nil
}

// CreateConnection is create_connection from spec.md §4.1, routed through
// this environment's own driver and handle manager.
func (e *Environment) CreateConnection(ctx context.Context, connStr string) (uint32, error) {
	if err := e.requireNotTornDown(); err != nil {
		return 0, err
	}
	return e.handles.CreateConnection(ctx, e.driver, connStr)
}

// CreateConnectionWithTimeout is CreateConnection with an explicit login
// timeout.
func (e *Environment) CreateConnectionWithTimeout(ctx context.Context, connStr string, loginTimeout time.Duration) (uint32, error) {
	if err := e.requireNotTornDown(); err != nil {
		return 0, err
	}
	return e.handles.CreateConnectionWithTimeout(ctx, e.driver, connStr, loginTimeout)
}
