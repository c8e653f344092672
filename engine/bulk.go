package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/odbcfast/engine/calldriver"
	"github.com/odbcfast/engine/errs"
)

// BulkData is the column-major payload for an array-bound bulk insert:
// Values[i] holds every row's value for Columns[i].
type BulkData struct {
	Columns []string
	Values  [][]Param
}

func (d BulkData) validate() (int, error) {
	if len(d.Values) != len(d.Columns) {
		return 0, errs.NewValidationError("bulk data has %d value columns, want %d", len(d.Values), len(d.Columns))
	}
	if len(d.Columns) == 0 {
		return 0, nil
	}
	rows := len(d.Values[0])
	for i, col := range d.Values {
		if len(col) != rows {
			return 0, errs.NewValidationError("bulk column %q has %d rows, want %d", d.Columns[i], len(col), rows)
		}
	}
	return rows, nil
}

func buildInsertSQL(table string, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
}

// BulkInsert prepares a single INSERT statement and binds each column as a
// contiguous array, repeating in batches of batchSize until every row is
// sent. It returns the total number of rows inserted across all batches
// that completed before any error; a failing batch aborts with the driver
// error surfaced, leaving already-committed batches' rows in place.
func BulkInsert(ctx context.Context, conn calldriver.Conn, table string, data BulkData, batchSize int) (int64, error) {
	rowCount, err := data.validate()
	if err != nil {
		return 0, err
	}
	if rowCount == 0 {
		return 0, nil
	}
	if batchSize < 1 {
		batchSize = 1
	}

	stmt, err := conn.Prepare(ctx, buildInsertSQL(table, data.Columns))
	if err != nil {
		return 0, translateDriverError(err)
	}
	defer stmt.Close()

	var total int64
	for start := 0; start < rowCount; start += batchSize {
		end := start + batchSize
		if end > rowCount {
			end = rowCount
		}
		batchLen := end - start

		for col := range data.Columns {
			values := make([]calldriver.Value, batchLen)
			for i, p := range data.Values[col][start:end] {
				values[i] = p.toValue()
			}
			if err := stmt.BindArray(col, values, batchLen); err != nil {
				return total, translateDriverError(err)
			}
		}

		res, err := stmt.Execute(ctx)
		if err != nil {
			return total, translateDriverError(err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}
