package extractors

import (
	"context"
	"fmt"

	"dbmarkdown/internal/introspect"
)

// myExtractor implements Extractor for MariaDB / MySQL (information_schema).
// Only the database named in the DSN is inspected.
type myExtractor struct{}

func (myExtractor) Tables(ctx context.Context, q Queryer) ([]introspect.Table, error) {
	tr, err := q.QueryContext(ctx, `
        SELECT table_schema, table_name
        FROM information_schema.tables
        WHERE table_schema = DATABASE()
          AND table_type = 'BASE TABLE'
        ORDER BY table_schema, table_name`)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	tables, err := scanTables(tr)
	if err != nil {
		return nil, fmt.Errorf("scan table row: %w", err)
	}
	return tables, nil
}

func (myExtractor) Columns(ctx context.Context, q Queryer, t introspect.Table) ([]introspect.Column, error) {
	cr, err := q.QueryContext(ctx, `
        SELECT
          c.column_name,
          c.data_type,
          CASE WHEN c.is_nullable = 'YES' THEN 1 ELSE 0 END,
          CASE WHEN c.column_key = 'PRI' THEN 1 ELSE 0 END,
          CASE WHEN k.referenced_table_name IS NOT NULL THEN 1 ELSE 0 END,
          IFNULL(k.referenced_table_name, ''),
          IFNULL(k.referenced_column_name, '')
        FROM information_schema.columns c
        LEFT JOIN (
          SELECT table_schema, table_name, column_name,
                 MIN(referenced_table_name) AS referenced_table_name,
                 MIN(referenced_column_name) AS referenced_column_name
          FROM information_schema.key_column_usage
          WHERE referenced_table_name IS NOT NULL
          GROUP BY table_schema, table_name, column_name
        ) k
          ON c.table_schema = k.table_schema
         AND c.table_name = k.table_name
         AND c.column_name = k.column_name
        WHERE c.table_schema = ? AND c.table_name = ?
        ORDER BY c.ordinal_position`, t.Schema, t.Name)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s: %w", t.QualifiedName(), err)
	}
	cols, err := scanColumns(cr)
	if err != nil {
		return nil, fmt.Errorf("scan column for %s: %w", t.QualifiedName(), err)
	}
	return cols, nil
}
