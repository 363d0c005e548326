package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/sheetimport/internal/core"
)

// PostgresSink writes imports to PostgreSQL. Values are converted to pgtype
// values per field type; appends use the COPY protocol.
type PostgresSink struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	schema *core.Schema
}

// NewPostgresSink returns an unbound sink. Sessions bind it to their schema
// through ForSchema.
func NewPostgresSink(pool *pgxpool.Pool, logger *slog.Logger) *PostgresSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSink{pool: pool, logger: logger}
}

// ForSchema returns a copy of the sink writing to schema's table.
func (s *PostgresSink) ForSchema(schema core.Schema) core.Submitter {
	bound := *s
	bound.schema = &schema
	return &bound
}

// EnsureTable creates the schema's table when it does not exist.
func (s *PostgresSink) EnsureTable(ctx context.Context, schema core.Schema) error {
	p, err := newPlan(schema, nil)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, p.createSQL(postgresType)); err != nil {
		return fmt.Errorf("create table %s: %w", p.table, err)
	}
	return nil
}

func postgresType(t core.FieldType) string {
	switch t {
	case core.FieldNumeric:
		return "NUMERIC"
	case core.FieldDate:
		return "DATE"
	case core.FieldBool:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// Submit writes the valid rows of p in one transaction.
func (s *PostgresSink) Submit(ctx context.Context, p core.Payload) error {
	_, err := s.Write(ctx, p)
	return err
}

// Write is Submit returning the row counts.
func (s *PostgresSink) Write(ctx context.Context, payload core.Payload) (Result, error) {
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
	rows := payload.Data.ValidData

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var res Result
	if payload.ImportMode == core.ModeAppend {
		res, err = s.copyRows(ctx, tx, p, rows)
	} else {
		res, err = writeRows(ctx, pgExecer{tx}, p, payload.ImportMode, rows, dollar, core.ConvertCell)
	}
	if err != nil {
		return res, pgError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return res, pgError(fmt.Errorf("commit: %w", err))
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

func (s *PostgresSink) copyRows(ctx context.Context, tx pgx.Tx, p plan, rows []core.Values) (Result, error) {
	src := make([][]any, len(rows))
	for i, row := range rows {
		src[i] = p.insertArgs(row, core.ConvertCell)
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{p.table}, p.columns, pgx.CopyFromRows(src))
	if err != nil {
		return Result{}, fmt.Errorf("copy rows: %w", err)
	}
	return Result{Inserted: int(n)}, nil
}

type pgExecer struct{ tx pgx.Tx }

func (e pgExecer) exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := e.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// pgError marks constraint violations as destination rejections and keeps
// the server's detail so users see which value was refused.
func pgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		return fmt.Errorf("duplicate key value (%s): %w", pgErr.Detail, err)
	case "23502", "23503", "23514", "22P02", "22003", "22007":
		return fmt.Errorf("%w: %s", core.ErrDestinationFailed, pgErr.Message)
	}
	return err
}
