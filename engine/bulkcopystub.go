package engine

import "github.com/odbcfast/engine/errs"

// BulkCopy is the optional vendor bulk-copy-protocol contract called out
// in spec.md §1 as "a stub contract only": a real implementation would
// stream rows over a vendor-specific wire protocol (SQL Server BCP,
// Oracle direct-path load) bypassing array-bound INSERT entirely. This
// module never implements one; NotImplemented lets callers feature-detect
// instead of hitting a missing-method panic.
type BulkCopy interface {
	CopyIn(table string, columns []string, data BulkData) (int64, error)
}

// NotImplemented is the only BulkCopy this module provides: every call
// returns a structured InternalError rather than panicking, so a caller
// that probes for BCP support gets a typed error to branch on.
type NotImplemented struct{}

func (NotImplemented) CopyIn(table string, columns []string, data BulkData) (int64, error) {
	return 0, errs.NewInternalError("bulk copy protocol not implemented; use BulkInsert")
}
