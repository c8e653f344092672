package engine

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/odbcfast/engine/calldriver"
	"github.com/odbcfast/engine/calldriver/calldrivertest"
	"github.com/odbcfast/engine/errs"
	"github.com/odbcfast/engine/wire"
)

func newTestPipelineConn(t *testing.T) (*Pipeline, calldriver.Conn) {
	t.Helper()
	drv := calldrivertest.NewDriver()
	conn, err := drv.Connect(context.Background(), "dsn=test", 0)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	p := NewPipeline(NewPreparedCache(100), NewMetadataCache(100, 0))
	return p, conn
}

// S1: SELECT 5 AS value -> frame with column_count=1, row_count=1, column
// name "value", single cell whose little-endian i32 decodes to 5.
func TestScenarioS1LiteralSelect(t *testing.T) {
	p, conn := newTestPipelineConn(t)
	defer conn.Close()

	frame, err := p.ExecuteDirect(context.Background(), conn, "select 5 as value")
	if err != nil {
		t.Fatalf("ExecuteDirect: %v", err)
	}
	rb, err := wire.Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(rb.Columns) != 1 || rb.Columns[0].Name != "value" {
		t.Fatalf("columns = %+v, want one column named value", rb.Columns)
	}
	if len(rb.Rows) != 1 || len(rb.Rows[0]) != 1 {
		t.Fatalf("rows = %+v, want one row with one cell", rb.Rows)
	}
	got := int32(binary.LittleEndian.Uint32(rb.Rows[0][0].Value))
	if got != 5 {
		t.Fatalf("cell = %d, want 5", got)
	}
}

// S2: SELECT 1 AS col, 'test' AS str -> two columns; second cell bytes =
// [0x74,0x65,0x73,0x74].
func TestScenarioS2TwoColumns(t *testing.T) {
	p, conn := newTestPipelineConn(t)
	defer conn.Close()

	frame, err := p.ExecuteDirect(context.Background(), conn, "select 1 as col, 'test' as str")
	if err != nil {
		t.Fatalf("ExecuteDirect: %v", err)
	}
	rb, err := wire.Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(rb.Columns) != 2 {
		t.Fatalf("columns = %+v, want 2", rb.Columns)
	}
	want := []byte{0x74, 0x65, 0x73, 0x74}
	if !bytes.Equal(rb.Rows[0][1].Value, want) {
		t.Fatalf("second cell = %v, want %v", rb.Rows[0][1].Value, want)
	}
}

// S3: 100 rows encoded twice produce byte-identical frames.
func TestScenarioS3DeterministicEncoding(t *testing.T) {
	p, conn := newTestPipelineConn(t)
	defer conn.Close()
	ctx := context.Background()

	if _, err := p.ExecuteDirect(ctx, conn, "create table s3 (id int)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	for i := 0; i < 100; i++ {
		if _, err := p.ExecuteDirect(ctx, conn, "insert into s3 (id) values ("+itoa(i)+")"); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	frame1, err := p.ExecuteDirect(ctx, conn, "select id from s3 order by id")
	if err != nil {
		t.Fatalf("select 1: %v", err)
	}
	frame2, err := p.ExecuteDirect(ctx, conn, "select id from s3 order by id")
	if err != nil {
		t.Fatalf("select 2: %v", err)
	}
	if !bytes.Equal(frame1, frame2) {
		t.Fatalf("repeated encoding of the same 100 rows produced different frames")
	}
}

// S4: bulk-array insert of [1..=10000] into (id INT) returns 10000;
// SELECT COUNT(*) returns 10000.
func TestScenarioS4BulkInsertTenThousand(t *testing.T) {
	p, conn := newTestPipelineConn(t)
	defer conn.Close()
	ctx := context.Background()

	if _, err := p.ExecuteDirect(ctx, conn, "create table s4 (id int)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	const n = 10000
	values := make([]Param, n)
	for i := 0; i < n; i++ {
		values[i] = Param{Kind: ParamInt32, Int32: int32(i + 1)}
	}
	data := BulkData{Columns: []string{"id"}, Values: [][]Param{values}}

	inserted, err := BulkInsert(ctx, conn, "s4", data, 1000)
	if err != nil {
		t.Fatalf("BulkInsert: %v", err)
	}
	if inserted != n {
		t.Fatalf("inserted = %d, want %d", inserted, n)
	}

	frame, err := p.ExecuteDirect(ctx, conn, "select count(*) from s4")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	rb, err := wire.Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got := int64(binary.LittleEndian.Uint64(rb.Rows[0][0].Value))
	if got != n {
		t.Fatalf("count = %d, want %d", got, n)
	}
}

// S5: inside a transaction, insert 1, savepoint sp, insert 2, rollback-to
// sp, insert 3, commit -> SELECT id ORDER BY id yields [1, 3].
func TestScenarioS5SavepointRollback(t *testing.T) {
	p, conn := newTestPipelineConn(t)
	defer conn.Close()
	ctx := context.Background()

	if _, err := p.ExecuteDirect(ctx, conn, "create table s5 (id int)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	tx, err := BeginTransaction(ctx, 1, conn, ReadCommitted)
	if err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	if _, err := tx.Execute(ctx, "insert into s5 (id) values (1)"); err != nil {
		t.Fatalf("insert 1: %v", err)
	}
	sp, err := tx.CreateSavepoint(ctx, "sp")
	if err != nil {
		t.Fatalf("CreateSavepoint: %v", err)
	}
	if _, err := tx.Execute(ctx, "insert into s5 (id) values (2)"); err != nil {
		t.Fatalf("insert 2: %v", err)
	}
	if err := sp.RollbackTo(ctx); err != nil {
		t.Fatalf("RollbackTo: %v", err)
	}
	if _, err := tx.Execute(ctx, "insert into s5 (id) values (3)"); err != nil {
		t.Fatalf("insert 3: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	frame, err := p.ExecuteDirect(ctx, conn, "select id from s5 order by id")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	rb, err := wire.Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(rb.Rows) != 2 {
		t.Fatalf("rows = %+v, want 2", rb.Rows)
	}
	got1 := int32(binary.LittleEndian.Uint32(rb.Rows[0][0].Value))
	got2 := int32(binary.LittleEndian.Uint32(rb.Rows[1][0].Value))
	if got1 != 1 || got2 != 3 {
		t.Fatalf("ids = [%d, %d], want [1, 3]", got1, got2)
	}
}

// S6: duplicate-key insert yields DriverError whose sqlstate is non-zero
// (23xxx-class) and message is non-empty.
func TestScenarioS6DuplicateKeyError(t *testing.T) {
	p, conn := newTestPipelineConn(t)
	defer conn.Close()
	ctx := context.Background()

	if _, err := p.ExecuteDirect(ctx, conn, "create table s6 (id int primary key)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := p.ExecuteDirect(ctx, conn, "insert into s6 (id) values (1)"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err := p.ExecuteDirect(ctx, conn, "insert into s6 (id) values (1)")
	if err == nil {
		t.Fatalf("expected duplicate-key error")
	}
	var de *errs.DriverError
	if !errors.As(err, &de) {
		t.Fatalf("err = %T (%v), want *errs.DriverError", err, err)
	}
	if de.SQLState == ([5]byte{}) {
		t.Fatalf("expected non-zero SQLState")
	}
	if de.Message == "" {
		t.Fatalf("expected non-empty message")
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
