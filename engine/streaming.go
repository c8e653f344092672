package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/odbcfast/engine/abi"
	"github.com/odbcfast/engine/calldriver"
	"github.com/odbcfast/engine/wire"
)

// SpillStream buffers written chunks in memory up to a configurable
// threshold; once the threshold would be exceeded, it and every
// subsequent chunk go to a temporary file instead. ReadBack returns the
// full accumulated bytes exactly once, flushing and deleting the spill
// file if one was created.
type SpillStream struct {
	threshold int64
	buf       []byte
	file      *os.File
	path      string
	spilled   bool
}

// NewSpillStream returns an empty stream with the given in-memory
// threshold, in bytes.
func NewSpillStream(threshold int64) *SpillStream {
	return &SpillStream{threshold: threshold}
}

// spillFileName names a temp file with a millisecond-timestamp prefix (for
// operational grepping) and a uuid suffix, so concurrent streams in the
// same process never collide the way a bare timestamp could.
func spillFileName() string {
	ms := time.Now().UnixMilli()
	return fmt.Sprintf("spill-%d-%s.tmp", ms, uuid.New().String())
}

// Write appends chunk to the stream, spilling to disk if the threshold is
// now exceeded and hasn't been already.
func (s *SpillStream) Write(chunk []byte) error {
	if s.spilled {
		_, err := s.file.Write(chunk)
		return err
	}
	if int64(len(s.buf))+int64(len(chunk)) <= s.threshold {
		s.buf = append(s.buf, chunk...)
		return nil
	}
	if err := s.spillToFile(chunk); err != nil {
		return err
	}
	return nil
}

func (s *SpillStream) spillToFile(chunk []byte) error {
	path := filepath.Join(os.TempDir(), spillFileName())
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(s.buf); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if _, err := f.Write(chunk); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	s.file = f
	s.path = path
	s.spilled = true
	s.buf = nil
	return nil
}

// ReadBack flushes, reads, and deletes the spill file (returning its full
// contents), or returns the in-memory buffer directly when spill never
// occurred.
func (s *SpillStream) ReadBack() ([]byte, error) {
	if !s.spilled {
		return s.buf, nil
	}
	if err := s.file.Sync(); err != nil {
		return nil, err
	}
	if _, err := s.file.Seek(0, 0); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(s.file)
	s.file.Close()
	os.Remove(s.path)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Spilled reports whether this stream has overflowed to disk.
func (s *SpillStream) Spilled() bool { return s.spilled }

// StreamingExecutor incrementally fetches a result set too large for a
// single buffer: rows are gathered in driver-sized batches, each batch
// encoded as its own frame, and the frames are appended to a SpillStream.
type StreamingExecutor struct {
	SpillThreshold int64
}

// NewStreamingExecutor returns an executor spilling past thresholdBytes.
func NewStreamingExecutor(thresholdBytes int64) *StreamingExecutor {
	return &StreamingExecutor{SpillThreshold: thresholdBytes}
}

// Execute runs sql and streams its result into a SpillStream, batchRows
// rows (and therefore one frame) at a time.
func (e *StreamingExecutor) Execute(ctx context.Context, conn calldriver.Conn, sql string, batchRows int) (*SpillStream, error) {
	if batchRows < 1 {
		batchRows = 1
	}
	stmt, err := conn.Prepare(ctx, sql)
	if err != nil {
		return nil, translateDriverError(err)
	}
	defer stmt.Close()

	rows, err := stmt.Query(ctx)
	if err != nil {
		return nil, translateDriverError(err)
	}
	defer rows.Close()

	cols := rows.Columns()
	colDescs := make([]wire.ColumnDesc, len(cols))
	for i, c := range cols {
		colDescs[i] = wire.ColumnDesc{Name: c.Name, Type: abi.MapSQLType(c.SQLType)}
	}

	spill := NewSpillStream(e.SpillThreshold)
	dest := make([]calldriver.Value, len(cols))
	var batch [][]wire.Cell

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		rb := &wire.RowBuffer{Columns: colDescs, Rows: batch}
		frame, err := wire.Encode(rb)
		if err != nil {
			return err
		}
		if err := spill.Write(frame); err != nil {
			return err
		}
		batch = nil
		return nil
	}

	for {
		if err := rows.Next(dest); err != nil {
			if err == io.EOF {
				break
			}
			return nil, translateDriverError(err)
		}
		row := make([]wire.Cell, len(dest))
		for i, v := range dest {
			row[i] = valueToCell(v)
		}
		batch = append(batch, row)
		if len(batch) >= batchRows {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return spill, nil
}
