// Package plugin describes the per-vendor driver plugin trait the core
// consumes opaquely: string-level query rewrites and a capability table.
// The core never inspects or modifies a plugin's rewritten SQL; it is
// treated as a pure function on strings. Concrete vendor plugins
// (SQL Server, Oracle, PostgreSQL, Sybase) are external collaborators per
// spec.md §1 and are not implemented in this module — only a no-op
// passthrough plugin is provided, for tests and as a documented default.
package plugin

import "github.com/odbcfast/engine/abi"

// Capabilities is the capability table a plugin reports for its vendor.
type Capabilities struct {
	SupportsSavepoints  bool
	SupportsArrayBind   bool
	SupportsMultiResult bool
	SupportsBCP         bool
}

// Plugin is the contract the core treats as an opaque collaborator.
type Plugin interface {
	Name() string
	Capabilities() Capabilities
	MapType(sqlCode int) abi.OdbcType
	OptimizeQuery(sql string) (string, error)
	OptimizationRules() []string
}

// Passthrough is a Plugin that performs no rewrites and reports the
// baseline portable capability set (savepoints and array binding, no
// vendor-specific multi-result or BCP support). It is the default used
// when no vendor plugin is configured.
type Passthrough struct{}

func (Passthrough) Name() string { return "passthrough" }

func (Passthrough) Capabilities() Capabilities {
	return Capabilities{SupportsSavepoints: true, SupportsArrayBind: true}
}

func (Passthrough) MapType(sqlCode int) abi.OdbcType { return abi.MapSQLType(sqlCode) }

func (Passthrough) OptimizeQuery(sql string) (string, error) { return sql, nil }

func (Passthrough) OptimizationRules() []string { return nil }
