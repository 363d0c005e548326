package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mattn/go-sqlite3"

	"github.com/JonMunkholm/sheetimport/internal/core"
)

// SQLiteSink writes imports to a SQLite database file. It backs the
// terminal wizard and local development.
type SQLiteSink struct {
	db     *sql.DB
	logger *slog.Logger
	schema *core.Schema
}

// OpenSQLite opens (creating if needed) the database at path. Use
// ":memory:" for a throwaway database.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; also keeps ":memory:" on a single database.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteSink{db: db, logger: logger}, nil
}

// DB exposes the underlying handle.
func (s *SQLiteSink) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *SQLiteSink) Close() error { return s.db.Close() }

// ForSchema returns a copy of the sink writing to schema's table.
func (s *SQLiteSink) ForSchema(schema core.Schema) core.Submitter {
	bound := *s
	bound.schema = &schema
	return &bound
}

// EnsureTable creates the schema's table when it does not exist.
func (s *SQLiteSink) EnsureTable(ctx context.Context, schema core.Schema) error {
	p, err := newPlan(schema, nil)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, p.createSQL(sqliteType)); err != nil {
		return fmt.Errorf("create table %s: %w", p.table, err)
	}
	return nil
}

func sqliteType(t core.FieldType) string {
	switch t {
	case core.FieldNumeric:
		return "REAL"
	case core.FieldBool:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

// Submit writes the valid rows of p in one transaction.
func (s *SQLiteSink) Submit(ctx context.Context, p core.Payload) error {
	_, err := s.Write(ctx, p)
	return err
}

// Write is Submit returning the row counts.
func (s *SQLiteSink) Write(ctx context.Context, payload core.Payload) (Result, error) {
	if s.schema == nil {
		return Result{}, ErrNoSchema
	}
	p, err := newPlan(*s.schema, payload.PrimaryKeys)
	if err != nil {
		return Result{}, err
	}
	if err := p.validate(payload.ImportMode); err != nil {
		return Result{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := writeRows(ctx, sqlExecer{tx}, p, payload.ImportMode, payload.Data.ValidData, question, core.NativeCell)
	if err != nil {
		return res, sqliteError(err)
	}
	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit: %w", err)
	}

	s.logger.InfoContext(ctx, "import written",
		"table", p.table,
		"mode", payload.ImportMode,
		"file", payload.File.Name,
		"inserted", res.Inserted,
		"updated", res.Updated,
		"skipped", res.Skipped,
		"invalid", len(payload.Data.InvalidData),
	)
	return res, nil
}

type sqlExecer struct{ tx *sql.Tx }

func (e sqlExecer) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := e.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func sqliteError(err error) error {
	var sqlErr sqlite3.Error
	if !errors.As(err, &sqlErr) {
		return err
	}
	if sqlErr.Code == sqlite3.ErrConstraint {
		if sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqlErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("duplicate key value: %w", err)
		}
		return fmt.Errorf("%w: %v", core.ErrDestinationFailed, err)
	}
	return err
}
