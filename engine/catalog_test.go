package engine

import (
	"context"
	"testing"
	"time"

	"github.com/odbcfast/engine/calldriver/calldrivertest"
)

func TestDescribeTableCachesOnMiss(t *testing.T) {
	drv := calldrivertest.NewDriver()
	ctx := context.Background()
	conn, _ := drv.Connect(ctx, "dsn=test", 0)
	defer conn.Close()

	if _, err := conn.ExecDirect(ctx, "create table widgets (id int, name varchar(32))"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	cache := NewMetadataCache(10, time.Hour)
	cols, err := DescribeTable(ctx, conn, cache, "widgets")
	if err != nil {
		t.Fatalf("DescribeTable: %v", err)
	}
	if len(cols) != 2 {
		t.Fatalf("columns = %+v, want 2", cols)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected DescribeTable to populate the metadata cache")
	}

	cols2, err := DescribeTable(ctx, conn, cache, "widgets")
	if err != nil {
		t.Fatalf("DescribeTable (cached): %v", err)
	}
	if len(cols2) != len(cols) {
		t.Fatalf("cached describe returned a different shape")
	}
}
