package engine

import (
	"context"
	"testing"

	"github.com/odbcfast/engine/calldriver/calldrivertest"
	"github.com/odbcfast/engine/errs"
)

func TestTransactionTerminalStateRejectsFurtherOps(t *testing.T) {
	drv := calldrivertest.NewDriver()
	ctx := context.Background()
	conn, _ := drv.Connect(ctx, "dsn=test", 0)
	defer conn.Close()

	tx, err := BeginTransaction(ctx, 1, conn, ReadCommitted)
	if err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if tx.State() != Committed {
		t.Fatalf("state = %v, want Committed", tx.State())
	}
	if _, err := tx.Execute(ctx, "select 1"); err != errs.ErrTransactionTerminated {
		t.Fatalf("err = %v, want ErrTransactionTerminated", err)
	}
}

func TestTransactionRollbackIsNoOpAfterTerminal(t *testing.T) {
	drv := calldrivertest.NewDriver()
	ctx := context.Background()
	conn, _ := drv.Connect(ctx, "dsn=test", 0)
	defer conn.Close()

	tx, err := BeginTransaction(ctx, 1, conn, ReadCommitted)
	if err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("second Rollback should be a no-op, got %v", err)
	}
}

func TestSavepointReleasedCannotBeRolledBackTo(t *testing.T) {
	drv := calldrivertest.NewDriver()
	ctx := context.Background()
	conn, _ := drv.Connect(ctx, "dsn=test", 0)
	defer conn.Close()

	tx, err := BeginTransaction(ctx, 1, conn, ReadCommitted)
	if err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	sp, err := tx.CreateSavepoint(ctx, "sp1")
	if err != nil {
		t.Fatalf("CreateSavepoint: %v", err)
	}
	if err := sp.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := sp.RollbackTo(ctx); err == nil {
		t.Fatalf("expected error rolling back to a released savepoint")
	}
}
