package engine

import (
	"context"
	"testing"

	"github.com/odbcfast/engine/calldriver"
	"github.com/odbcfast/engine/calldriver/calldrivertest"
)

func TestParallelBulkInsertAggregatesCounts(t *testing.T) {
	drv := calldrivertest.NewDriver()
	ctx := context.Background()
	pool, err := NewPool(ctx, drv, "dsn=test", 4)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}

	seed, _ := drv.Connect(ctx, "dsn=test", 0)
	if _, err := seed.ExecDirect(ctx, "create table p (id int)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	seed.Close()

	const n = 500
	values := make([]Param, n)
	for i := 0; i < n; i++ {
		values[i] = Param{Kind: ParamInt32, Int32: int32(i)}
	}
	data := BulkData{Columns: []string{"id"}, Values: [][]Param{values}}

	inserted, err := ParallelBulkInsert(ctx, pool, "p", data, 50, 10)
	if err != nil {
		t.Fatalf("ParallelBulkInsert: %v", err)
	}
	if inserted != n {
		t.Fatalf("inserted = %d, want %d", inserted, n)
	}

	lease, err := pool.Checkout(ctx)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	defer lease.Close()
	rows, err := lease.Conn().QueryDirect(ctx, "select count(*) from p")
	if err != nil {
		t.Fatalf("count query: %v", err)
	}
	defer rows.Close()

	dest := make([]calldriver.Value, 1)
	if err := rows.Next(dest); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if dest[0].Int64 != n {
		t.Fatalf("count = %d, want %d", dest[0].Int64, n)
	}
}
