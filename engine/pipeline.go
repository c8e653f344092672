package engine

import (
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/odbcfast/engine/abi"
	"github.com/odbcfast/engine/calldriver"
	"github.com/odbcfast/engine/errs"
	"github.com/odbcfast/engine/observability"
	"github.com/odbcfast/engine/plugin"
	"github.com/odbcfast/engine/wire"
)

// QueryPlan is the result of ParseSQL: validated SQL text plus whether the
// prepared-statement cache should be consulted for it.
type QueryPlan struct {
	SQL      string
	UseCache bool
}

// Pipeline drives SQL from validated text through the prepared-statement
// cache, parameter binding, driver execution, and result encoding. It
// never mutates the caller's SQL string; vendor rewrites, if any, must
// already be applied by the caller before the string reaches here.
type Pipeline struct {
	Prepared *PreparedCache
	Metadata *MetadataCache
	Plugin   plugin.Plugin
	Logger   *slog.Logger
	Metrics  *observability.Metrics
	Tracer   *observability.Tracer
}

// NewPipeline builds a Pipeline with the given caches and a passthrough
// plugin, package default logger, and fresh metrics/tracer.
func NewPipeline(prepared *PreparedCache, metadata *MetadataCache) *Pipeline {
	return &Pipeline{
		Prepared: prepared,
		Metadata: metadata,
		Plugin:   plugin.Passthrough{},
		Logger:   observability.DefaultLogger,
		Metrics:  observability.NewMetrics(),
		Tracer:   observability.NewTracer(),
	}
}

// ParseSQL rejects empty or whitespace-only SQL and wraps the rest in a
// QueryPlan with caching enabled.
func (p *Pipeline) ParseSQL(sql string) (*QueryPlan, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, errs.NewValidationError("sql is empty")
	}
	return &QueryPlan{SQL: sql, UseCache: true}, nil
}

// sqlStater is implemented by driver errors that carry a 5-character
// SQLSTATE, the hook translateDriverError uses to build an errs.DriverError
// instead of passing the raw error through.
type sqlStater interface {
	SQLState() string
}

func translateDriverError(err error) error {
	if err == nil {
		return nil
	}
	if ss, ok := err.(sqlStater); ok {
		return errs.NewDriverError(ss.SQLState(), 0, err.Error())
	}
	return err
}

// ExecuteDirect runs sql with no parameters and returns the encoded
// result frame.
func (p *Pipeline) ExecuteDirect(ctx context.Context, conn calldriver.Conn, sql string) ([]byte, error) {
	return p.ExecuteWithParamsAndTimeout(ctx, conn, sql, nil, 0)
}

// ExecuteWithParams runs sql with positional '?' parameters bound in
// order and returns the encoded result frame.
func (p *Pipeline) ExecuteWithParams(ctx context.Context, conn calldriver.Conn, sql string, params []Param) ([]byte, error) {
	return p.ExecuteWithParamsAndTimeout(ctx, conn, sql, params, 0)
}

// ExecuteWithParamsAndTimeout is ExecuteWithParams with an optional
// per-statement timeout; zero means no deadline beyond ctx's own.
func (p *Pipeline) ExecuteWithParamsAndTimeout(ctx context.Context, conn calldriver.Conn, sql string, params []Param, timeout time.Duration) ([]byte, error) {
	plan, err := p.ParseSQL(sql)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	spanID := p.Tracer.StartSpan(plan.SQL)
	start := time.Now()
	defer func() {
		p.Tracer.FinishSpan(spanID)
		p.Metrics.ObserveLatency(time.Since(start).Nanoseconds())
		p.Metrics.IncCounter(observability.CounterQueryCount, 1)
	}()

	if plan.UseCache {
		p.Prepared.GetOrInsert(plan.SQL)
	}

	stmt, err := conn.Prepare(ctx, plan.SQL)
	if err != nil {
		observability.LogQuery(p.Logger, 0, plan.SQL, err)
		return nil, translateDriverError(err)
	}
	defer stmt.Close()

	if err := bindParams(stmt, plan.SQL, params); err != nil {
		return nil, err
	}

	rb, err := runStatement(ctx, stmt, plan.SQL)
	if err != nil {
		observability.LogQuery(p.Logger, 0, plan.SQL, err)
		return nil, translateDriverError(err)
	}
	observability.LogQuery(p.Logger, 0, plan.SQL, nil)
	return wire.Encode(rb)
}

// queryLeadingKeywords are the statement keywords expected to return rows.
// Everything else (INSERT/UPDATE/DELETE/DDL/transaction control/...) is
// routed to Execute. Most call-level drivers expose separate query/exec
// entry points; since this engine's Stmt contract unifies both on every
// statement, the SQL text itself — not a query-then-fallback probe — picks
// the right one, so DML with side effects is never driven twice.
var queryLeadingKeywords = map[string]bool{
	"SELECT": true, "WITH": true, "SHOW": true, "EXPLAIN": true, "VALUES": true,
}

// isQueryStatement reports whether sql's leading keyword indicates a
// row-returning statement.
func isQueryStatement(sql string) bool {
	return queryLeadingKeywords[leadingKeyword(sql)]
}

// leadingKeyword extracts the first whitespace-delimited token of sql,
// upper-cased, ignoring leading blank space.
func leadingKeyword(sql string) string {
	trimmed := strings.TrimSpace(sql)
	end := strings.IndexFunc(trimmed, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' })
	if end < 0 {
		end = len(trimmed)
	}
	return strings.ToUpper(trimmed[:end])
}

// runStatement executes stmt via Query or Execute, chosen by sql's leading
// keyword rather than by probing Query and falling back on error.
func runStatement(ctx context.Context, stmt calldriver.Stmt, sql string) (*wire.RowBuffer, error) {
	if isQueryStatement(sql) {
		rows, err := stmt.Query(ctx)
		if err != nil {
			return nil, err
		}
		return gatherRows(rows)
	}
	res, err := stmt.Execute(ctx)
	if err != nil {
		return nil, err
	}
	n, _ := res.RowsAffected()
	return rowCountBuffer(n), nil
}

// gatherRows drains a Rows cursor into a row-major RowBuffer.
func gatherRows(rows calldriver.Rows) (*wire.RowBuffer, error) {
	defer rows.Close()
	cols := rows.Columns()
	rb := &wire.RowBuffer{Columns: make([]wire.ColumnDesc, len(cols))}
	for i, c := range cols {
		rb.Columns[i] = wire.ColumnDesc{Name: c.Name, Type: abi.MapSQLType(c.SQLType)}
	}

	dest := make([]calldriver.Value, len(cols))
	for {
		if err := rows.Next(dest); err != nil {
			if err == io.EOF {
				return rb, nil
			}
			return nil, err
		}
		row := make([]wire.Cell, len(dest))
		for i, v := range dest {
			row[i] = valueToCell(v)
		}
		rb.Rows = append(rb.Rows, row)
	}
}

// rowCountBuffer wraps a DML rows-affected count as a single-column,
// single-row RowBuffer, for callers that want a uniform frame regardless
// of statement kind.
func rowCountBuffer(n int64) *wire.RowBuffer {
	return &wire.RowBuffer{
		Columns: []wire.ColumnDesc{{Name: "rows_affected", Type: abi.BigInt}},
		Rows:    [][]wire.Cell{{{Value: int64LE(n)}}},
	}
}

func valueToCell(v calldriver.Value) wire.Cell {
	switch v.Kind {
	case calldriver.KindNull:
		return wire.Cell{Null: true}
	case calldriver.KindInt32:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(v.Int32))
		return wire.Cell{Value: b[:]}
	case calldriver.KindInt64:
		return wire.Cell{Value: int64LE(v.Int64)}
	case calldriver.KindFloat64:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v.Float64))
		return wire.Cell{Value: b[:]}
	case calldriver.KindBool:
		if v.Bool {
			return wire.Cell{Value: []byte{1}}
		}
		return wire.Cell{Value: []byte{0}}
	case calldriver.KindString:
		return wire.Cell{Value: []byte(v.String)}
	case calldriver.KindBinary:
		return wire.Cell{Value: v.Binary}
	case calldriver.KindDate:
		return wire.Cell{Value: encodeDate(v.Date)}
	case calldriver.KindTimestamp:
		return wire.Cell{Value: encodeTimestamp(v.Timestamp)}
	default:
		return wire.Cell{Null: true}
	}
}

func int64LE(n int64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(n))
	return b[:]
}

func encodeDate(d calldriver.Date) []byte {
	var b [6]byte
	binary.LittleEndian.PutUint16(b[0:2], uint16(d.Year))
	binary.LittleEndian.PutUint16(b[2:4], uint16(d.Month))
	binary.LittleEndian.PutUint16(b[4:6], uint16(d.Day))
	return b[:]
}

func encodeTimestamp(t calldriver.Timestamp) []byte {
	var b [16]byte
	binary.LittleEndian.PutUint16(b[0:2], uint16(t.Year))
	binary.LittleEndian.PutUint16(b[2:4], uint16(t.Month))
	binary.LittleEndian.PutUint16(b[4:6], uint16(t.Day))
	binary.LittleEndian.PutUint16(b[6:8], uint16(t.Hour))
	binary.LittleEndian.PutUint16(b[8:10], uint16(t.Minute))
	binary.LittleEndian.PutUint16(b[10:12], uint16(t.Second))
	binary.LittleEndian.PutUint32(b[12:16], uint32(t.Nanosecond))
	return b[:]
}

// multi-result framing kinds (spec.md §6).
const (
	multiKindRows     = 0
	multiKindRowCount = 1
)

// ExecuteMulti runs sql, which may be several semicolon-separated
// statements producing multiple result sets, and returns them framed per
// spec.md §6: result_count:u32, then each result as {kind:u8, frame}.
func (p *Pipeline) ExecuteMulti(ctx context.Context, conn calldriver.Conn, sql string) ([]byte, error) {
	plan, err := p.ParseSQL(sql)
	if err != nil {
		return nil, err
	}
	stmts := splitStatements(plan.SQL)

	type framed struct {
		kind  byte
		frame []byte
	}
	results := make([]framed, 0, len(stmts))
	for _, s := range stmts {
		stmt, err := conn.Prepare(ctx, s)
		if err != nil {
			return nil, translateDriverError(err)
		}
		rb, err := runStatement(ctx, stmt, s)
		stmt.Close()
		if err != nil {
			return nil, translateDriverError(err)
		}
		kind := byte(multiKindRowCount)
		if isQueryStatement(s) {
			kind = multiKindRows
		}
		f, err := wire.Encode(rb)
		if err != nil {
			return nil, err
		}
		results = append(results, framed{kind: kind, frame: f})
	}

	var out []byte
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(results)))
	out = append(out, countBuf[:]...)
	for _, r := range results {
		out = append(out, r.kind)
		out = append(out, r.frame...)
	}
	return out, nil
}

// splitStatements splits SQL on top-level semicolons (outside quoted
// string literals), dropping empty trailing statements.
func splitStatements(sql string) []string {
	var out []string
	var cur strings.Builder
	inStr := false
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		if ch == '\'' {
			inStr = !inStr
		}
		if ch == ';' && !inStr {
			if s := strings.TrimSpace(cur.String()); s != "" {
				out = append(out, s)
			}
			cur.Reset()
			continue
		}
		cur.WriteByte(ch)
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out
}
