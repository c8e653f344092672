// Package abi holds the types that cross the FFI boundary bit-exact: the
// OdbcType enum and ABI/protocol version negotiation. It has no parameter
// serialization; multi-result framing is written by
// engine.Pipeline.ExecuteMulti. Code values here are part of the wire
// format and must never be reordered.
package abi

// OdbcType is the stable, ODBC-style type code carried in every column
// descriptor of an encoded frame.
type OdbcType uint16

// OdbcType constants. Values are part of the wire format.
const (
	Varchar   OdbcType = 1
	Integer   OdbcType = 2
	BigInt    OdbcType = 3
	Decimal   OdbcType = 4
	Date      OdbcType = 5
	Timestamp OdbcType = 6
	Binary    OdbcType = 7
)

// MapSQLType maps a driver-level SQL type code (as returned by the
// call-level driver's catalog/describe calls) onto the engine's OdbcType
// enum. Unrecognized codes default to Varchar.
func MapSQLType(sqlCode int) OdbcType {
	switch sqlCode {
	case 1:
		return Varchar
	case 4:
		return Integer
	case -5:
		return BigInt
	case 3:
		return Decimal
	case 9:
		return Date
	case 11:
		return Timestamp
	case -2:
		return Binary
	default:
		return Varchar
	}
}
