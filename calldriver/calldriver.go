// Package calldriver describes the call-level database driver the engine
// consumes (connect, prepare, bind, execute, fetch, commit, diagnostics).
// The engine never implements this contract; it only calls through it.
// Concrete implementations (a native ODBC/JDBC-style client library) are
// an external collaborator outside this module's scope — see spec.md §1.
package calldriver

import (
	"context"
	"time"
)

// Driver connects to a data source and hands back a Conn.
type Driver interface {
	Connect(ctx context.Context, connStr string, loginTimeout time.Duration) (Conn, error)
}

// Conn is a single call-level connection. Calls on a Conn are never made
// concurrently by the engine: the pool lease and the transaction state
// machine both enforce single-threaded use for the lease's lifetime.
type Conn interface {
	Prepare(ctx context.Context, sql string) (Stmt, error)
	ExecDirect(ctx context.Context, sql string) (Result, error)
	QueryDirect(ctx context.Context, sql string) (Rows, error)
	SetAutoCommit(ctx context.Context, on bool) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Columns(ctx context.Context, table string) ([]ColumnDescriptor, error)
	Ping(ctx context.Context) error
	Close() error
}

// Stmt is a prepared statement bound to a single Conn.
type Stmt interface {
	BindParam(ordinal int, v Value) error
	// BindArray binds ordinal to a column-major array of values for
	// array-bound (bulk) execution; paramSetSize is the number of rows
	// in the array.
	BindArray(ordinal int, values []Value, paramSetSize int) error
	Execute(ctx context.Context) (Result, error)
	Query(ctx context.Context) (Rows, error)
	Close() error
}

// Result reports the effect of a non-query execution.
type Result interface {
	RowsAffected() (int64, error)
}

// Rows is a forward-only cursor over a result set.
type Rows interface {
	Columns() []ColumnDescriptor
	// Next fills dest (one Value per column) with the next row. It
	// returns io.EOF when exhausted.
	Next(dest []Value) error
	Close() error
}

// ColumnDescriptor describes one column of a result set or catalog entry.
type ColumnDescriptor struct {
	Name     string
	SQLType  int // driver-level (ODBC-style) SQL type code, pre type-enum mapping
	Nullable bool
}

// Date is a calendar date without a time component.
type Date struct {
	Year, Month, Day int16
}

// Timestamp is a date plus a time-of-day with nanosecond fraction.
type Timestamp struct {
	Year, Month, Day      int16
	Hour, Minute, Second  int16
	Nanosecond            int32
}

// ValueKind discriminates the Value tagged union.
type ValueKind uint8

// ValueKind constants, mirroring the engine's parameter value union
// (spec.md §3/§4.4).
const (
	KindNull ValueKind = iota
	KindInt32
	KindInt64
	KindFloat64
	KindBool
	KindString
	KindBinary
	KindDate
	KindTimestamp
)

// Value is a single bound parameter or fetched cell.
type Value struct {
	Kind      ValueKind
	Int32     int32
	Int64     int64
	Float64   float64
	Bool      bool
	String    string
	Binary    []byte
	Date      Date
	Timestamp Timestamp
}
