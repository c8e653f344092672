package engine

import (
	"context"
	"fmt"

	"github.com/odbcfast/engine/calldriver"
	"github.com/odbcfast/engine/errs"
)

// IsolationLevel mirrors the SQL standard isolation levels the engine
// portably expresses via SET TRANSACTION ISOLATION LEVEL.
type IsolationLevel int

const (
	ReadUncommitted IsolationLevel = iota
	ReadCommitted
	RepeatableRead
	Serializable
)

func (l IsolationLevel) clause() string {
	switch l {
	case ReadUncommitted:
		return "READ UNCOMMITTED"
	case ReadCommitted:
		return "READ COMMITTED"
	case RepeatableRead:
		return "REPEATABLE READ"
	case Serializable:
		return "SERIALIZABLE"
	default:
		return "READ COMMITTED"
	}
}

// TxState is a Transaction's position in its state machine.
type TxState int

const (
	Active TxState = iota
	Committed
	RolledBack
)

// Transaction wraps a connection in the Active→{Committed,RolledBack}
// state machine described in spec.md §4.11. Entering a transaction
// disables auto-commit and records the isolation level; every exit path
// restores auto-commit.
type Transaction struct {
	ConnID    uint32
	conn      calldriver.Conn
	Isolation IsolationLevel
	state     TxState
}

// BeginTransaction disables auto-commit on conn, issues the portable
// isolation-level statement, and returns an Active Transaction.
func BeginTransaction(ctx context.Context, connID uint32, conn calldriver.Conn, isolation IsolationLevel) (*Transaction, error) {
	if err := conn.SetAutoCommit(ctx, false); err != nil {
		return nil, err
	}
	sql := fmt.Sprintf("SET TRANSACTION ISOLATION LEVEL %s", isolation.clause())
	if _, err := conn.ExecDirect(ctx, sql); err != nil {
		return nil, translateDriverError(err)
	}
	return &Transaction{ConnID: connID, conn: conn, Isolation: isolation, state: Active}, nil
}

func (t *Transaction) requireActive() error {
	if t.state != Active {
		return errs.ErrTransactionTerminated
	}
	return nil
}

// Execute runs sql against the transaction's connection. Allowed only
// while Active.
func (t *Transaction) Execute(ctx context.Context, sql string) (int64, error) {
	if err := t.requireActive(); err != nil {
		return 0, err
	}
	res, err := t.conn.ExecDirect(ctx, sql)
	if err != nil {
		return 0, translateDriverError(err)
	}
	return res.RowsAffected()
}

// Savepoint is a named point inside an Active transaction.
type Savepoint struct {
	Name    string
	owner   *Transaction
	pending bool // created, not yet released or rolled back past
}

// CreateSavepoint issues SAVEPOINT name on the transaction's connection.
func (t *Transaction) CreateSavepoint(ctx context.Context, name string) (*Savepoint, error) {
	if err := t.requireActive(); err != nil {
		return nil, err
	}
	if _, err := t.conn.ExecDirect(ctx, "SAVEPOINT "+name); err != nil {
		return nil, translateDriverError(err)
	}
	return &Savepoint{Name: name, owner: t, pending: true}, nil
}

// RollbackTo issues ROLLBACK TO SAVEPOINT, undoing only work performed
// after the savepoint's creation. Requires the owning transaction to be
// Active and the savepoint not yet released.
func (s *Savepoint) RollbackTo(ctx context.Context) error {
	if err := s.owner.requireActive(); err != nil {
		return err
	}
	if !s.pending {
		return errs.NewValidationError("savepoint %q already released", s.Name)
	}
	_, err := s.owner.conn.ExecDirect(ctx, "ROLLBACK TO SAVEPOINT "+s.Name)
	return translateDriverError(err)
}

// Release issues RELEASE SAVEPOINT; a released savepoint can no longer be
// rolled back to.
func (s *Savepoint) Release(ctx context.Context) error {
	if err := s.owner.requireActive(); err != nil {
		return err
	}
	if !s.pending {
		return errs.NewValidationError("savepoint %q already released", s.Name)
	}
	_, err := s.owner.conn.ExecDirect(ctx, "RELEASE SAVEPOINT "+s.Name)
	if err != nil {
		return translateDriverError(err)
	}
	s.pending = false
	return nil
}

// Commit transitions the transaction to Committed and restores
// auto-commit.
func (t *Transaction) Commit(ctx context.Context) error {
	if err := t.requireActive(); err != nil {
		return err
	}
	if err := t.conn.Commit(ctx); err != nil {
		return translateDriverError(err)
	}
	t.state = Committed
	return t.conn.SetAutoCommit(ctx, true)
}

// Rollback transitions the transaction to RolledBack and restores
// auto-commit. Calling Rollback on an already-terminal transaction is a
// no-op guaranteeing release on every exit path (spec.md §4.11:
// "drop-without-commit implies rollback").
func (t *Transaction) Rollback(ctx context.Context) error {
	if t.state != Active {
		return nil
	}
	err := t.conn.Rollback(ctx)
	t.state = RolledBack
	acErr := t.conn.SetAutoCommit(ctx, true)
	if err != nil {
		return translateDriverError(err)
	}
	return acErr
}

// State returns the transaction's current state.
func (t *Transaction) State() TxState { return t.state }
