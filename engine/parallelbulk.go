package engine

import (
	"context"
	"sync"
)

// ParallelBulkInsert partitions data into ceil(rowCount/parallelism) chunks
// and runs each through BulkInsert on a distinct connection checked out
// from pool, so throughput scales with pool capacity. Aggregation is a
// sum of per-chunk inserted counts; the first error encountered (by chunk
// index, not by completion order) is returned once every worker has
// settled. There is no ordering guarantee across chunks. parallelism and
// batchSize must both be ≥ 1.
func ParallelBulkInsert(ctx context.Context, pool *Pool, table string, data BulkData, parallelism, batchSize int) (int64, error) {
	rowCount, err := data.validate()
	if err != nil {
		return 0, err
	}
	if rowCount == 0 {
		return 0, nil
	}
	if parallelism < 1 {
		parallelism = 1
	}

	chunks := chunkBulkData(data, rowCount, parallelism)

	var wg sync.WaitGroup
	counts := make([]int64, len(chunks))
	errs := make([]error, len(chunks))

	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk BulkData) {
			defer wg.Done()
			lease, err := pool.Checkout(ctx)
			if err != nil {
				errs[i] = err
				return
			}
			defer lease.Close()
			n, err := BulkInsert(ctx, lease.Conn(), table, chunk, batchSize)
			counts[i] = n
			if err != nil {
				errs[i] = err
				lease.Poison()
			}
		}(i, chunk)
	}
	wg.Wait()

	var total int64
	for _, n := range counts {
		total += n
	}
	for _, e := range errs {
		if e != nil {
			return total, e
		}
	}
	return total, nil
}

// chunkBulkData splits data's rows (column-major) into chunks of at most
// chunkSize rows each, preserving column order within every chunk.
func chunkBulkData(data BulkData, rowCount, chunkSize int) []BulkData {
	var chunks []BulkData
	for start := 0; start < rowCount; start += chunkSize {
		end := start + chunkSize
		if end > rowCount {
			end = rowCount
		}
		values := make([][]Param, len(data.Columns))
		for i, col := range data.Values {
			values[i] = col[start:end]
		}
		chunks = append(chunks, BulkData{Columns: data.Columns, Values: values})
	}
	return chunks
}
