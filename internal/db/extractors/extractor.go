// Package extractors contains one catalog extractor per supported dialect.
// All of them return the same introspect model: tables ordered by
// (schema, name) and columns in catalog ordinal order.
package extractors

import (
	"context"
	"database/sql"

	"dbmarkdown/internal/introspect"
)

// Queryer is the subset of *sql.DB the extractors need.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Extractor reads catalog metadata for one dialect.
type Extractor interface {
	// Tables lists the base tables without their columns.
	Tables(ctx context.Context, q Queryer) ([]introspect.Table, error)

	// Columns lists the columns of t with key information filled in.
	Columns(ctx context.Context, q Queryer, t introspect.Table) ([]introspect.Column, error)
}

var (
	SQLServer Extractor = mssqlExtractor{}
	MariaDB   Extractor = myExtractor{}
	SQLite    Extractor = sqliteExtractor{}
)

// scanTables reads (schema, name) rows.
func scanTables(rows *sql.Rows) ([]introspect.Table, error) {
	defer rows.Close()
	var out []introspect.Table
	for rows.Next() {
		var tab introspect.Table
		if err := rows.Scan(&tab.Schema, &tab.Name); err != nil {
			return nil, err
		}
		out = append(out, tab)
	}
	return out, rows.Err()
}

// scanColumns reads (name, type, nullable, pk, fk, fk_table, fk_column) rows.
func scanColumns(rows *sql.Rows) ([]introspect.Column, error) {
	defer rows.Close()
	var out []introspect.Column
	for rows.Next() {
		var col introspect.Column
		var nullable, pk, fk int
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &pk, &fk, &col.FKTable, &col.FKColumn); err != nil {
			return nil, err
		}
		col.Nullable = nullable == 1
		col.PK = pk == 1
		col.FK = fk == 1
		if !col.FK {
			col.FKTable, col.FKColumn = "", ""
		}
		out = append(out, col)
	}
	return out, rows.Err()
}
