package engine

import (
	"context"

	"github.com/odbcfast/engine/calldriver"
)

// DescribeTable returns table's column schema, consulting the metadata
// cache first and falling back to a Columns round-trip through conn on a
// miss (or after TTL expiry). The result is cached for subsequent calls.
func DescribeTable(ctx context.Context, conn calldriver.Conn, cache *MetadataCache, table string) ([]ColumnSchema, error) {
	if schema, ok := cache.GetSchema(table); ok {
		return schema.Columns, nil
	}
	cols, err := conn.Columns(ctx, table)
	if err != nil {
		return nil, translateDriverError(err)
	}
	schema := fromColumnDescriptors(cols)
	cache.CacheSchema(table, schema)
	return schema, nil
}
