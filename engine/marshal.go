package engine

import (
	"github.com/odbcfast/engine/calldriver"
	"github.com/odbcfast/engine/errs"
)

// ParamKind discriminates the Param tagged union (spec.md §3/§4.4).
type ParamKind uint8

const (
	ParamNull ParamKind = iota
	ParamInt32
	ParamInt64
	ParamFloat64
	ParamBool
	ParamString
	ParamBinary
	ParamDate
	ParamTimestamp
)

// Param is one positional parameter value supplied by a caller.
type Param struct {
	Kind      ParamKind
	Int32     int32
	Int64     int64
	Float64   float64
	Bool      bool
	String    string
	Binary    []byte
	Date      calldriver.Date
	Timestamp calldriver.Timestamp
}

// toValue converts a Param into the calldriver.Value the bind call
// expects. A null parameter becomes a calldriver.KindNull value; Param
// carries no declared SQL type, so no type is attached to the null.
func (p Param) toValue() calldriver.Value {
	switch p.Kind {
	case ParamNull:
		return calldriver.Value{Kind: calldriver.KindNull}
	case ParamInt32:
		return calldriver.Value{Kind: calldriver.KindInt32, Int32: p.Int32}
	case ParamInt64:
		return calldriver.Value{Kind: calldriver.KindInt64, Int64: p.Int64}
	case ParamFloat64:
		return calldriver.Value{Kind: calldriver.KindFloat64, Float64: p.Float64}
	case ParamBool:
		return calldriver.Value{Kind: calldriver.KindBool, Bool: p.Bool}
	case ParamString:
		return calldriver.Value{Kind: calldriver.KindString, String: p.String}
	case ParamBinary:
		return calldriver.Value{Kind: calldriver.KindBinary, Binary: p.Binary}
	case ParamDate:
		return calldriver.Value{Kind: calldriver.KindDate, Date: p.Date}
	case ParamTimestamp:
		return calldriver.Value{Kind: calldriver.KindTimestamp, Timestamp: p.Timestamp}
	default:
		return calldriver.Value{Kind: calldriver.KindNull}
	}
}

// countPlaceholders counts positional '?' placeholders outside of
// single-quoted string literals.
func countPlaceholders(sql string) int {
	n := 0
	inStr := false
	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '\'':
			inStr = !inStr
		case '?':
			if !inStr {
				n++
			}
		}
	}
	return n
}

// bindParams validates that params matches the placeholder count of sql
// and binds each in order onto stmt.
func bindParams(stmt calldriver.Stmt, sql string, params []Param) error {
	want := countPlaceholders(sql)
	if want != len(params) {
		return errs.NewValidationError("parameter count %d does not match placeholder count %d", len(params), want)
	}
	for i, p := range params {
		if err := stmt.BindParam(i, p.toValue()); err != nil {
			return err
		}
	}
	return nil
}
