package engine

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/odbcfast/engine/calldriver"
	"github.com/odbcfast/engine/errs"
	"github.com/odbcfast/engine/security"
)

// Connection is a handle-manager-owned connection: a call-level Conn plus
// the metadata the spec requires to be tracked alongside it. The
// connection string is never retained in plain form outside the secret
// manager.
type Connection struct {
	ID           uint32
	conn         calldriver.Conn
	loginTimeout time.Duration
}

// Conn returns the underlying call-level connection.
func (c *Connection) Conn() calldriver.Conn { return c.conn }

// LoginTimeout returns the login timeout this connection was created with.
func (c *Connection) LoginTimeout() time.Duration { return c.loginTimeout }

// HandleManager maps connection ID to Connection, guarded by a single
// mutex; all mutations are serialized. IDs are u32 starting at 1 and are
// never reused within a process.
type HandleManager struct {
	mu      sync.Mutex
	nextID  uint32
	conns   map[uint32]*Connection
	secrets *security.SecretManager
}

// NewHandleManager returns an empty handle manager.
func NewHandleManager() *HandleManager {
	return &HandleManager{conns: make(map[uint32]*Connection), secrets: security.NewSecretManager()}
}

// CreateConnection validates connStr, dials through drv, and registers the
// resulting connection under a freshly minted ID.
func (m *HandleManager) CreateConnection(ctx context.Context, drv calldriver.Driver, connStr string) (uint32, error) {
	return m.CreateConnectionWithTimeout(ctx, drv, connStr, 0)
}

// CreateConnectionWithTimeout is CreateConnection with an explicit login
// timeout; zero means "driver default".
func (m *HandleManager) CreateConnectionWithTimeout(ctx context.Context, drv calldriver.Driver, connStr string, loginTimeout time.Duration) (uint32, error) {
	if connStr == "" {
		return 0, errs.ErrEmptyConnectionString
	}
	c, err := drv.Connect(ctx, connStr, loginTimeout)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.conns[id] = &Connection{ID: id, conn: c, loginTimeout: loginTimeout}
	m.mu.Unlock()

	m.secrets.Set(secretKey(id), []byte(connStr))
	return id, nil
}

func secretKey(id uint32) string { return "conn-string:" + strconv.FormatUint(uint64(id), 10) }

// GetConnection returns the connection registered under id.
func (m *HandleManager) GetConnection(id uint32) (*Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conns[id]
	if !ok {
		return nil, &errs.HandleNotFoundError{ID: id}
	}
	return c, nil
}

// RemoveConnection closes and deregisters the connection under id. Removing
// an unknown ID is reported as HandleNotFoundError.
func (m *HandleManager) RemoveConnection(id uint32) error {
	m.mu.Lock()
	c, ok := m.conns[id]
	if ok {
		delete(m.conns, id)
	}
	m.mu.Unlock()
	if !ok {
		return &errs.HandleNotFoundError{ID: id}
	}
	m.secrets.Remove(secretKey(id))
	return c.conn.Close()
}

// closeAll closes every live connection, collecting and returning only the
// first error encountered (teardown must not abandon later connections
// because an earlier one failed to close).
func (m *HandleManager) closeAll() error {
	m.mu.Lock()
	conns := make([]*Connection, 0, len(m.conns))
	for _, c := range m.conns {
		conns = append(conns, c)
	}
	m.conns = make(map[uint32]*Connection)
	m.mu.Unlock()

	m.secrets.Close()

	var firstErr error
	for _, c := range conns {
		if err := c.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Len reports the number of currently registered connections.
func (m *HandleManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}
