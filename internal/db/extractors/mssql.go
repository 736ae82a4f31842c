package extractors

import (
	"context"
	"database/sql"
	"fmt"

	"dbmarkdown/internal/introspect"
)

// mssqlExtractor implements Extractor for Microsoft SQL Server.
type mssqlExtractor struct{}

func (mssqlExtractor) Tables(ctx context.Context, q Queryer) ([]introspect.Table, error) {
	tr, err := q.QueryContext(ctx, `
        SELECT TABLE_SCHEMA, TABLE_NAME
        FROM INFORMATION_SCHEMA.TABLES
        WHERE TABLE_TYPE = 'BASE TABLE'
        ORDER BY TABLE_SCHEMA, TABLE_NAME`)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	tables, err := scanTables(tr)
	if err != nil {
		return nil, fmt.Errorf("scan table row: %w", err)
	}
	return tables, nil
}

// Columns joins the primary-key constraints and, through the referential
// constraints, the column each foreign key points at. Columns of a composite
// key are paired with their target by ordinal position. A column in several
// foreign keys reports the first constraint by name.
func (mssqlExtractor) Columns(ctx context.Context, q Queryer, t introspect.Table) ([]introspect.Column, error) {
	cr, err := q.QueryContext(ctx, `
        SELECT
          c.COLUMN_NAME,
          c.DATA_TYPE,
          CASE WHEN c.IS_NULLABLE = 'YES' THEN 1 ELSE 0 END,
          CASE WHEN pk.COLUMN_NAME IS NOT NULL THEN 1 ELSE 0 END,
          CASE WHEN fk.COLUMN_NAME IS NOT NULL THEN 1 ELSE 0 END,
          ISNULL(fk.REFERENCED_TABLE_NAME, ''),
          ISNULL(fk.REFERENCED_COLUMN_NAME, '')
        FROM INFORMATION_SCHEMA.COLUMNS c
        LEFT JOIN (
          SELECT ku.TABLE_SCHEMA, ku.TABLE_NAME, ku.COLUMN_NAME
          FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
          JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE ku
            ON tc.CONSTRAINT_NAME = ku.CONSTRAINT_NAME
           AND tc.CONSTRAINT_SCHEMA = ku.CONSTRAINT_SCHEMA
          WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
        ) pk
          ON c.TABLE_SCHEMA = pk.TABLE_SCHEMA
         AND c.TABLE_NAME = pk.TABLE_NAME
         AND c.COLUMN_NAME = pk.COLUMN_NAME
        LEFT JOIN (
          SELECT
            src.TABLE_SCHEMA,
            src.TABLE_NAME,
            src.COLUMN_NAME,
            dst.TABLE_NAME AS REFERENCED_TABLE_NAME,
            dst.COLUMN_NAME AS REFERENCED_COLUMN_NAME,
            ROW_NUMBER() OVER (
              PARTITION BY src.TABLE_SCHEMA, src.TABLE_NAME, src.COLUMN_NAME
              ORDER BY rc.CONSTRAINT_NAME) AS rn
          FROM INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS rc
          JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE src
            ON rc.CONSTRAINT_NAME = src.CONSTRAINT_NAME
           AND rc.CONSTRAINT_SCHEMA = src.CONSTRAINT_SCHEMA
          JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE dst
            ON rc.UNIQUE_CONSTRAINT_NAME = dst.CONSTRAINT_NAME
           AND rc.UNIQUE_CONSTRAINT_SCHEMA = dst.CONSTRAINT_SCHEMA
           AND src.ORDINAL_POSITION = dst.ORDINAL_POSITION
        ) fk
          ON c.TABLE_SCHEMA = fk.TABLE_SCHEMA
         AND c.TABLE_NAME = fk.TABLE_NAME
         AND c.COLUMN_NAME = fk.COLUMN_NAME
         AND fk.rn = 1
        WHERE c.TABLE_SCHEMA = @schema AND c.TABLE_NAME = @table
        ORDER BY c.ORDINAL_POSITION`, sql.Named("schema", t.Schema), sql.Named("table", t.Name))
	if err != nil {
		return nil, fmt.Errorf("query columns for %s: %w", t.QualifiedName(), err)
	}
	cols, err := scanColumns(cr)
	if err != nil {
		return nil, fmt.Errorf("scan column for %s: %w", t.QualifiedName(), err)
	}
	return cols, nil
}
