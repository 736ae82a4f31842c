package extractors

import (
	"context"
	"database/sql"
	"fmt"

	"dbmarkdown/internal/introspect"
)

// sqliteExtractor implements Extractor for SQLite files. SQLite has no
// schema qualifier, so Table.Schema is always empty.
type sqliteExtractor struct{}

func (sqliteExtractor) Tables(ctx context.Context, q Queryer) ([]introspect.Table, error) {
	tr, err := q.QueryContext(ctx, `
	    SELECT '' AS schema_name, name
		FROM sqlite_master
		WHERE type = 'table'
		AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	tables, err := scanTables(tr)
	if err != nil {
		return nil, fmt.Errorf("scan table row: %w", err)
	}
	return tables, nil
}

func (e sqliteExtractor) Columns(ctx context.Context, q Queryer, t introspect.Table) ([]introspect.Column, error) {
	pr, err := q.QueryContext(ctx,
		`SELECT name, type, "notnull", pk FROM pragma_table_info(?) ORDER BY cid`, t.Name)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s: %w", t.Name, err)
	}
	var cols []introspect.Column
	for pr.Next() {
		var name, ctype string
		var notnull, pk int
		if err := pr.Scan(&name, &ctype, &notnull, &pk); err != nil {
			pr.Close()
			return nil, fmt.Errorf("scan column for %s: %w", t.Name, err)
		}
		cols = append(cols, introspect.Column{
			Name:     name,
			Type:     ctype,
			Nullable: notnull == 0,
			PK:       pk != 0, // pk is the 1-based position within a composite key
		})
	}
	err = pr.Err()
	pr.Close()
	if err != nil {
		return nil, fmt.Errorf("scan column for %s: %w", t.Name, err)
	}

	if err := e.foreignKeys(ctx, q, t.Name, cols); err != nil {
		return nil, err
	}
	return cols, nil
}

type sqliteFK struct {
	seq         int
	from, table string
	to          sql.NullString
}

// foreignKeys marks the referencing columns of table in cols. A foreign key
// declared without target columns points at the parent's primary key, the
// n-th referencing column at the n-th key column.
func (sqliteExtractor) foreignKeys(ctx context.Context, q Queryer, table string, cols []introspect.Column) error {
	fkRows, err := q.QueryContext(ctx,
		`SELECT seq, "from", "table", "to" FROM pragma_foreign_key_list(?) ORDER BY id, seq`, table)
	if err != nil {
		return fmt.Errorf("query foreign keys for %s: %w", table, err)
	}
	var fks []sqliteFK
	for fkRows.Next() {
		var fk sqliteFK
		if err := fkRows.Scan(&fk.seq, &fk.from, &fk.table, &fk.to); err != nil {
			fkRows.Close()
			return fmt.Errorf("scan foreign key for %s: %w", table, err)
		}
		fks = append(fks, fk)
	}
	err = fkRows.Err()
	fkRows.Close()
	if err != nil {
		return fmt.Errorf("scan foreign key for %s: %w", table, err)
	}

	parentKeys := map[string][]string{}
	for _, fk := range fks {
		to := fk.to.String
		if !fk.to.Valid || to == "" {
			keys, ok := parentKeys[fk.table]
			if !ok {
				if keys, err = sqlitePrimaryKey(ctx, q, fk.table); err != nil {
					return err
				}
				parentKeys[fk.table] = keys
			}
			if fk.seq < len(keys) {
				to = keys[fk.seq]
			}
		}
		for i := range cols {
			if cols[i].Name == fk.from && !cols[i].FK {
				cols[i].FK = true
				cols[i].FKTable = fk.table
				cols[i].FKColumn = to
			}
		}
	}
	return nil
}

// sqlitePrimaryKey returns the primary key columns of table in key order.
func sqlitePrimaryKey(ctx context.Context, q Queryer, table string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT name FROM pragma_table_info(?) WHERE pk > 0 ORDER BY pk`, table)
	if err != nil {
		return nil, fmt.Errorf("query primary key for %s: %w", table, err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan primary key for %s: %w", table, err)
		}
		keys = append(keys, name)
	}
	return keys, rows.Err()
}
