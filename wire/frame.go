// Package wire implements the engine's self-describing binary frame
// (spec.md §4.5): a row buffer encoded as a little-endian sequence of a
// fixed header, column descriptors, and row data, with an optional zstd
// compressed variant.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/odbcfast/engine/abi"
)

// magic is the 4-byte frame identifier, "ODBC".
var magic = [4]byte{'O', 'D', 'B', 'C'}

// flag bits within the frame header.
const (
	flagCompressed = 1 << 0
	flagColumnar   = 1 << 1
)

// maxDecompressedSize bounds zstd decompression so a hostile or corrupt
// original_len can't force an unbounded allocation.
const maxDecompressedSize = 1 << 30 // 1 GiB

// ColumnDesc describes one column of a RowBuffer.
type ColumnDesc struct {
	Name string
	Type abi.OdbcType
}

// Cell is one row/column value: either null, or a raw encoded value
// (little-endian for numeric types, UTF-8 for text, raw bytes for binary).
type Cell struct {
	Null  bool
	Value []byte
}

// RowBuffer is the row-major in-memory result set: an ordered set of
// column descriptors and a vector of rows, each with one cell per column.
type RowBuffer struct {
	Columns []ColumnDesc
	Rows    [][]Cell
}

// ColumnCount returns the number of columns this buffer expects every row
// to carry.
func (b *RowBuffer) ColumnCount() int { return len(b.Columns) }

// validate checks the row-buffer invariant: every row has ColumnCount
// cells.
func (b *RowBuffer) validate() error {
	n := b.ColumnCount()
	for i, row := range b.Rows {
		if len(row) != n {
			return fmt.Errorf("wire: row %d has %d cells, want %d", i, len(row), n)
		}
	}
	return nil
}

// Encode writes b as an uncompressed row-major frame.
func Encode(b *RowBuffer) ([]byte, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	writeHeader(&buf, b, 0)
	writeColumns(&buf, b.Columns)
	writeRows(&buf, b)
	return buf.Bytes(), nil
}

// EncodeCompressed writes b as a zstd level-3 compressed frame: the fixed
// header (through column_count/row_count) stays uncompressed; everything
// after is replaced by {original_len:u32, compressed_bytes}.
func EncodeCompressed(b *RowBuffer) ([]byte, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	var body bytes.Buffer
	writeColumns(&body, b.Columns)
	writeRows(&body, b)

	compressed, err := compress(body.Bytes())
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writeHeader(&buf, b, flagCompressed)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(body.Len()))
	buf.Write(lenBuf[:])
	buf.Write(compressed)
	return buf.Bytes(), nil
}

func writeHeader(buf *bytes.Buffer, b *RowBuffer, flags uint16) {
	buf.Write(magic[:])
	writeU16(buf, abi.ProtocolVersionRows)
	writeU16(buf, flags)
	writeU32(buf, uint32(b.ColumnCount()))
	writeU32(buf, uint32(len(b.Rows)))
}

func writeColumns(buf *bytes.Buffer, cols []ColumnDesc) {
	for _, c := range cols {
		nameBytes := []byte(c.Name)
		writeU16(buf, uint16(len(nameBytes)))
		buf.Write(nameBytes)
		writeU16(buf, uint16(c.Type))
	}
}

func writeRows(buf *bytes.Buffer, b *RowBuffer) {
	for _, row := range b.Rows {
		for _, cell := range row {
			if cell.Null {
				buf.WriteByte(1)
				continue
			}
			buf.WriteByte(0)
			writeU32(buf, uint32(len(cell.Value)))
			buf.Write(cell.Value)
		}
	}
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

// Decode parses a frame produced by Encode or EncodeCompressed, detecting
// the compressed flag automatically.
func Decode(data []byte) (*RowBuffer, error) {
	r := &reader{data: data}
	if err := r.expectMagic(); err != nil {
		return nil, err
	}
	_ = r.u16() // version, not used for dispatch; columnar detection reads flags
	flags := r.u16()
	if flags&flagColumnar != 0 {
		return nil, fmt.Errorf("wire: frame is columnar, use DecodeColumnar")
	}
	colCount := r.u32()
	rowCount := r.u32()
	if r.err != nil {
		return nil, r.err
	}

	if flags&flagCompressed != 0 {
		originalLen := r.u32()
		if r.err != nil {
			return nil, r.err
		}
		if originalLen > maxDecompressedSize {
			return nil, fmt.Errorf("wire: original_len %d exceeds %d byte ceiling", originalLen, maxDecompressedSize)
		}
		body, err := decompress(r.rest(), int(originalLen))
		if err != nil {
			return nil, err
		}
		r = &reader{data: body}
	}

	cols, err := readColumns(r, int(colCount))
	if err != nil {
		return nil, err
	}
	rows, err := readRows(r, int(rowCount), int(colCount))
	if err != nil {
		return nil, err
	}
	return &RowBuffer{Columns: cols, Rows: rows}, nil
}

func readColumns(r *reader, n int) ([]ColumnDesc, error) {
	cols := make([]ColumnDesc, n)
	for i := 0; i < n; i++ {
		nameLen := r.u16()
		name := r.bytes(int(nameLen))
		typeCode := r.u16()
		if r.err != nil {
			return nil, r.err
		}
		cols[i] = ColumnDesc{Name: string(name), Type: abi.OdbcType(typeCode)}
	}
	return cols, nil
}

func readRows(r *reader, rowCount, colCount int) ([][]Cell, error) {
	rows := make([][]Cell, rowCount)
	for i := 0; i < rowCount; i++ {
		row := make([]Cell, colCount)
		for j := 0; j < colCount; j++ {
			isNull := r.byte()
			if r.err != nil {
				return nil, r.err
			}
			if isNull == 1 {
				row[j] = Cell{Null: true}
				continue
			}
			valLen := r.u32()
			val := r.bytes(int(valLen))
			if r.err != nil {
				return nil, r.err
			}
			row[j] = Cell{Value: append([]byte(nil), val...)}
		}
		rows[i] = row
	}
	return rows, nil
}

func compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func decompress(data []byte, originalLen int) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, make([]byte, 0, originalLen))
}

// reader is a small cursor over a byte slice shared by the row and
// columnar decoders.
type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) expectMagic() error {
	if len(r.data) < 4 || !bytes.Equal(r.data[:4], magic[:]) {
		return fmt.Errorf("wire: bad magic")
	}
	r.pos = 4
	return nil
}

func (r *reader) byte() byte {
	if r.err != nil {
		return 0
	}
	if r.pos+1 > len(r.data) {
		r.err = fmt.Errorf("wire: truncated frame")
		return 0
	}
	b := r.data[r.pos]
	r.pos++
	return b
}

func (r *reader) u16() uint16 {
	if r.err != nil {
		return 0
	}
	if r.pos+2 > len(r.data) {
		r.err = fmt.Errorf("wire: truncated frame")
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v
}

func (r *reader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	if r.pos+4 > len(r.data) {
		r.err = fmt.Errorf("wire: truncated frame")
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.pos+n > len(r.data) {
		r.err = fmt.Errorf("wire: truncated frame")
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) rest() []byte { return r.data[r.pos:] }
