package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"dbmarkdown/internal/db/extractors"
	"dbmarkdown/internal/errs"
	"dbmarkdown/internal/introspect"
	"dbmarkdown/internal/logger"
	"dbmarkdown/pkg/config"
)

// DefaultTimeout bounds connection setup when the caller passes zero.
const DefaultTimeout = 10 * time.Second

// Conn is an open database handle tagged with its dialect.
type Conn struct {
	DB      *sql.DB
	Dialect config.Dialect
}

// Close releases the underlying pool.
func (c *Conn) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

// Open builds the DSN for spec, opens it and pings it within timeout.
// Every failure is a connection error.
func Open(ctx context.Context, spec config.DBConfig, timeout time.Duration) (*Conn, error) {
	driver, dsn, err := config.BuildDriverAndDSN(spec)
	if err != nil {
		return nil, errs.Wrap(errs.KindConnection, "invalid connection parameters", err)
	}
	dialect, _ := config.ParseDialect(spec.Type)

	if dialect == config.DialectSQLite {
		// mode=ro refuses to create the file, but the driver error is opaque
		if _, err := os.Stat(spec.FilePath); err != nil {
			return nil, errs.Wrap(errs.KindConnection, "database file not found: "+spec.FilePath, err)
		}
	}

	dbConn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errs.Wrap(errs.KindConnection, "open "+string(dialect)+" database", err)
	}
	if dialect == config.DialectSQLite {
		dbConn.SetMaxOpenConns(1)
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := dbConn.PingContext(pctx); err != nil {
		dbConn.Close()
		return nil, errs.Wrap(errs.KindConnection, "connect to "+string(dialect)+" database", err)
	}
	return &Conn{DB: dbConn, Dialect: dialect}, nil
}

// TestConnection opens and immediately closes a connection. Expected
// failures (bad parameters, unreachable host, bad credentials, missing
// file) are logged and reported as false.
func TestConnection(ctx context.Context, spec config.DBConfig, timeout time.Duration) bool {
	c, err := Open(ctx, spec, timeout)
	if err != nil {
		logger.Warn("connection test failed: %v", err)
		return false
	}
	if err := c.Close(); err != nil {
		logger.Warn("close after connection test: %v", err)
	}
	return true
}

// extractorFor selects the catalog extractor for a dialect.
func extractorFor(d config.Dialect) (extractors.Extractor, error) {
	switch d {
	case config.DialectSQLServer:
		return extractors.SQLServer, nil
	case config.DialectMariaDB:
		return extractors.MariaDB, nil
	case config.DialectSQLite:
		return extractors.SQLite, nil
	default:
		return nil, fmt.Errorf("no extractor for dialect %q", d)
	}
}

// ListTables returns every base table with its columns. Either the whole
// list is returned or an introspection error; never a partial result.
func ListTables(ctx context.Context, c *Conn) ([]introspect.Table, error) {
	if c == nil || c.DB == nil {
		return nil, errs.Wrap(errs.KindIntrospection, "list tables", errors.New("connection is not open"))
	}
	ex, err := extractorFor(c.Dialect)
	if err != nil {
		return nil, errs.Wrap(errs.KindIntrospection, "list tables", err)
	}

	tables, err := ex.Tables(ctx, c.DB)
	if err != nil {
		return nil, errs.Wrap(errs.KindIntrospection, "list tables", err)
	}
	for i := range tables {
		cols, err := ex.Columns(ctx, c.DB, tables[i])
		if err != nil {
			return nil, errs.Wrap(errs.KindIntrospection, "list columns", err)
		}
		tables[i].Columns = cols
	}
	logger.Debug("introspected %d tables from %s", len(tables), c.Dialect)
	return tables, nil
}

// ListColumns returns the columns of t in catalog order.
func ListColumns(ctx context.Context, c *Conn, t introspect.Table) ([]introspect.Column, error) {
	if c == nil || c.DB == nil {
		return nil, errs.Wrap(errs.KindIntrospection, "list columns", errors.New("connection is not open"))
	}
	ex, err := extractorFor(c.Dialect)
	if err != nil {
		return nil, errs.Wrap(errs.KindIntrospection, "list columns", err)
	}
	cols, err := ex.Columns(ctx, c.DB, t)
	if err != nil {
		return nil, errs.Wrap(errs.KindIntrospection, "list columns", err)
	}
	return cols, nil
}

// Introspect opens spec, lists its tables and closes the connection.
func Introspect(ctx context.Context, spec config.DBConfig, timeout time.Duration) ([]introspect.Table, error) {
	c, err := Open(ctx, spec, timeout)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return ListTables(ctx, c)
}
