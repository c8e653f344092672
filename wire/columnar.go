package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/odbcfast/engine/abi"
)

// ColumnKind discriminates which typed-value variant a ColumnarColumn
// carries (spec.md §3: "nullable text-bytes, nullable 32-bit int,
// nullable 64-bit int, nullable binary blob").
type ColumnKind uint8

const (
	KindText ColumnKind = iota
	KindInt32
	KindInt64
	KindBinary
)

// ColumnarColumn is one column of a column-major buffer: a typed,
// nullable sequence of values sharing the row count of its buffer.
type ColumnarColumn struct {
	Name       string
	Type       abi.OdbcType
	Kind       ColumnKind
	Nulls      []bool
	Text       [][]byte
	Int32s     []int32
	Int64s     []int64
	Binary     [][]byte
	Compressed bool
}

func (c *ColumnarColumn) valueCount() int { return len(c.Nulls) }

// ColumnarBuffer is the column-major in-memory result set (spec.md §3).
type ColumnarBuffer struct {
	Columns []ColumnarColumn
	RowCount int
}

func (b *ColumnarBuffer) validate() error {
	for i, c := range b.Columns {
		if c.valueCount() != b.RowCount {
			return fmt.Errorf("wire: column %d (%s) has %d values, want %d", i, c.Name, c.valueCount(), b.RowCount)
		}
	}
	return nil
}

// kindForType picks the typed-value variant that best represents an
// OdbcType for columnar storage. Only types whose cell encoding is a
// genuine fixed-width 4- or 8-byte integer map to KindInt32/KindInt64;
// every other type — including Date (6-byte), Timestamp (16-byte), and
// Decimal (variable-width string) cells — keeps its raw bytes verbatim
// via KindBinary so row->columnar->row round-trips without truncation.
func kindForType(t abi.OdbcType) ColumnKind {
	switch t {
	case abi.Integer:
		return KindInt32
	case abi.BigInt:
		return KindInt64
	case abi.Binary, abi.Decimal, abi.Date, abi.Timestamp:
		return KindBinary
	default:
		return KindText
	}
}

// shouldCompress implements the baseline from spec.md's columnar
// compression Open Question: compress text/binary columns, leave
// fixed-width numeric columns uncompressed unless globally forced.
func shouldCompress(kind ColumnKind, force bool) bool {
	if force {
		return true
	}
	return kind == KindText || kind == KindBinary
}

// RowsToColumnar rewrites a row-major buffer into column-major form.
// force compresses every column regardless of kind; otherwise only
// text/binary columns compress.
func RowsToColumnar(rb *RowBuffer, force bool) (*ColumnarBuffer, error) {
	if err := rb.validate(); err != nil {
		return nil, err
	}
	cols := make([]ColumnarColumn, len(rb.Columns))
	for i, cd := range rb.Columns {
		kind := kindForType(cd.Type)
		cols[i] = ColumnarColumn{Name: cd.Name, Type: cd.Type, Kind: kind, Compressed: shouldCompress(kind, force)}
	}
	for _, row := range rb.Rows {
		for i, cell := range row {
			col := &cols[i]
			col.Nulls = append(col.Nulls, cell.Null)
			switch col.Kind {
			case KindInt32:
				var v int32
				if !cell.Null {
					v = int32(binary.LittleEndian.Uint32(pad(cell.Value, 4)))
				}
				col.Int32s = append(col.Int32s, v)
			case KindInt64:
				var v int64
				if !cell.Null {
					v = int64(binary.LittleEndian.Uint64(pad(cell.Value, 8)))
				}
				col.Int64s = append(col.Int64s, v)
			case KindBinary:
				col.Binary = append(col.Binary, append([]byte(nil), cell.Value...))
			default:
				col.Text = append(col.Text, append([]byte(nil), cell.Value...))
			}
		}
	}
	return &ColumnarBuffer{Columns: cols, RowCount: len(rb.Rows)}, nil
}

func pad(v []byte, n int) []byte {
	if len(v) >= n {
		return v[:n]
	}
	out := make([]byte, n)
	copy(out, v)
	return out
}

// ColumnarToRows is the inverse of RowsToColumnar. For buffers that were
// never compressed, round-tripping through RowsToColumnar/ColumnarToRows
// reproduces the original RowBuffer bit-for-bit.
func ColumnarToRows(cb *ColumnarBuffer) (*RowBuffer, error) {
	if err := cb.validate(); err != nil {
		return nil, err
	}
	cols := make([]ColumnDesc, len(cb.Columns))
	for i, c := range cb.Columns {
		cols[i] = ColumnDesc{Name: c.Name, Type: c.Type}
	}
	rows := make([][]Cell, cb.RowCount)
	for r := 0; r < cb.RowCount; r++ {
		row := make([]Cell, len(cb.Columns))
		for i, c := range cb.Columns {
			if c.Nulls[r] {
				row[i] = Cell{Null: true}
				continue
			}
			switch c.Kind {
			case KindInt32:
				var b [4]byte
				binary.LittleEndian.PutUint32(b[:], uint32(c.Int32s[r]))
				row[i] = Cell{Value: b[:]}
			case KindInt64:
				var b [8]byte
				binary.LittleEndian.PutUint64(b[:], uint64(c.Int64s[r]))
				row[i] = Cell{Value: b[:]}
			case KindBinary:
				row[i] = Cell{Value: c.Binary[r]}
			default:
				row[i] = Cell{Value: c.Text[r]}
			}
		}
		rows[r] = row
	}
	return &RowBuffer{Columns: cols, Rows: rows}, nil
}

// EncodeColumnar writes cb as a columnar frame. The protocol version
// advances to 2.0 on the wire whenever columnar framing is used, per
// spec.md §6.
func EncodeColumnar(cb *ColumnarBuffer) ([]byte, error) {
	if err := cb.validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Write(magic[:])
	writeU16(&buf, abi.ProtocolVersionColumnar)
	writeU16(&buf, flagColumnar)
	writeU32(&buf, uint32(len(cb.Columns)))
	writeU32(&buf, uint32(cb.RowCount))

	for _, c := range cb.Columns {
		nameBytes := []byte(c.Name)
		writeU16(&buf, uint16(len(nameBytes)))
		buf.Write(nameBytes)
		writeU16(&buf, uint16(c.Type))
		buf.WriteByte(byte(c.Kind))
		compressedByte := byte(0)
		if c.Compressed {
			compressedByte = 1
		}
		buf.WriteByte(compressedByte)

		body := encodeColumnBody(&c)
		if c.Compressed {
			compressed, err := compress(body)
			if err != nil {
				return nil, err
			}
			writeU32(&buf, uint32(len(body)))
			writeU32(&buf, uint32(len(compressed)))
			buf.Write(compressed)
		} else {
			writeU32(&buf, uint32(len(body)))
			buf.Write(body)
		}
	}
	return buf.Bytes(), nil
}

func encodeColumnBody(c *ColumnarColumn) []byte {
	var buf bytes.Buffer
	for i := 0; i < c.valueCount(); i++ {
		if c.Nulls[i] {
			buf.WriteByte(1)
			continue
		}
		buf.WriteByte(0)
		switch c.Kind {
		case KindInt32:
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], uint32(c.Int32s[i]))
			buf.Write(b[:])
		case KindInt64:
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], uint64(c.Int64s[i]))
			buf.Write(b[:])
		case KindBinary:
			writeU32(&buf, uint32(len(c.Binary[i])))
			buf.Write(c.Binary[i])
		default:
			writeU32(&buf, uint32(len(c.Text[i])))
			buf.Write(c.Text[i])
		}
	}
	return buf.Bytes()
}

// DecodeColumnar parses a frame produced by EncodeColumnar.
func DecodeColumnar(data []byte) (*ColumnarBuffer, error) {
	r := &reader{data: data}
	if err := r.expectMagic(); err != nil {
		return nil, err
	}
	_ = r.u16() // version
	flags := r.u16()
	if flags&flagColumnar == 0 {
		return nil, fmt.Errorf("wire: frame is not columnar, use Decode")
	}
	colCount := int(r.u32())
	rowCount := int(r.u32())
	if r.err != nil {
		return nil, r.err
	}

	cols := make([]ColumnarColumn, colCount)
	for i := 0; i < colCount; i++ {
		nameLen := r.u16()
		name := string(r.bytes(int(nameLen)))
		typeCode := abi.OdbcType(r.u16())
		kind := ColumnKind(r.byte())
		compressedByte := r.byte()
		bodyLen := r.u32()
		if r.err != nil {
			return nil, r.err
		}

		var body []byte
		compressed := compressedByte == 1
		if compressed {
			compressedLen := r.u32()
			if r.err != nil {
				return nil, r.err
			}
			raw := r.bytes(int(compressedLen))
			if r.err != nil {
				return nil, r.err
			}
			if bodyLen > maxDecompressedSize {
				return nil, fmt.Errorf("wire: column %s original_len %d exceeds ceiling", name, bodyLen)
			}
			decoded, err := decompress(raw, int(bodyLen))
			if err != nil {
				return nil, err
			}
			body = decoded
		} else {
			body = r.bytes(int(bodyLen))
			if r.err != nil {
				return nil, r.err
			}
		}

		col, err := decodeColumnBody(name, typeCode, kind, compressed, body, rowCount)
		if err != nil {
			return nil, err
		}
		cols[i] = *col
	}
	return &ColumnarBuffer{Columns: cols, RowCount: rowCount}, nil
}

func decodeColumnBody(name string, typeCode abi.OdbcType, kind ColumnKind, compressed bool, body []byte, rowCount int) (*ColumnarColumn, error) {
	br := &reader{data: body}
	col := &ColumnarColumn{Name: name, Type: typeCode, Kind: kind, Compressed: compressed}
	for i := 0; i < rowCount; i++ {
		isNull := br.byte()
		if br.err != nil {
			return nil, br.err
		}
		null := isNull == 1
		col.Nulls = append(col.Nulls, null)
		if null {
			switch kind {
			case KindInt32:
				col.Int32s = append(col.Int32s, 0)
			case KindInt64:
				col.Int64s = append(col.Int64s, 0)
			case KindBinary:
				col.Binary = append(col.Binary, nil)
			default:
				col.Text = append(col.Text, nil)
			}
			continue
		}
		switch kind {
		case KindInt32:
			col.Int32s = append(col.Int32s, int32(br.u32()))
		case KindInt64:
			col.Int64s = append(col.Int64s, int64(br.u64()))
		case KindBinary:
			n := br.u32()
			col.Binary = append(col.Binary, append([]byte(nil), br.bytes(int(n))...))
		default:
			n := br.u32()
			col.Text = append(col.Text, append([]byte(nil), br.bytes(int(n))...))
		}
		if br.err != nil {
			return nil, br.err
		}
	}
	return col, nil
}

func (r *reader) u64() uint64 {
	if r.err != nil {
		return 0
	}
	if r.pos+8 > len(r.data) {
		r.err = fmt.Errorf("wire: truncated frame")
		return 0
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v
}
