// Package sink loads cleaned tables into PostgreSQL with the COPY protocol.
//
// Every label becomes a text column named in snake_case. Null cells are
// written as SQL NULL. Rows can be tagged with a batch id so a load can be
// found, or rolled back, later.
package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/etltoolbox/internal/table"
)

// Copier is the part of a connection the sink needs.
// Satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Copier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// TxBeginner starts transactions. Satisfied by *pgxpool.Pool and *pgx.Conn.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ErrNoTable is returned when Options.Table is empty.
var ErrNoTable = errors.New("sink: destination table is required")

// Options configures a Writer.
type Options struct {
	// Table is the destination table, optionally schema qualified
	// ("staging.customers").
	Table string

	// CreateTable issues CREATE TABLE IF NOT EXISTS before copying.
	CreateTable bool

	// BatchColumn, when set, adds a uuid column holding the batch id.
	BatchColumn string
}

// Writer copies tables into one destination table.
type Writer struct {
	ident pgx.Identifier
	opts  Options
}

// Result summarises one Write.
type Result struct {
	Table   string
	Columns []string
	Rows    int64
	BatchID uuid.UUID
}

// NewWriter validates opts and returns a Writer.
func NewWriter(opts Options) (*Writer, error) {
	name := strings.TrimSpace(opts.Table)
	if name == "" {
		return nil, ErrNoTable
	}
	return &Writer{ident: pgx.Identifier(strings.Split(name, ".")), opts: opts}, nil
}

// Write copies t into the destination using db. batchID is ignored unless
// Options.BatchColumn is set; uuid.Nil generates a new one.
func (w *Writer) Write(ctx context.Context, db Copier, t *table.Table, batchID uuid.UUID) (*Result, error) {
	var columns []string
	if w.opts.BatchColumn == "" {
		columns = ColumnNames(t)
	} else {
		columns = ColumnNames(t, w.opts.BatchColumn)
		if batchID == uuid.Nil {
			batchID = uuid.New()
		}
		columns = append([]string{w.opts.BatchColumn}, columns...)
	}

	if w.opts.CreateTable {
		if _, err := db.Exec(ctx, w.createTableSQL(columns)); err != nil {
			return nil, fmt.Errorf("create table %s: %w", w.ident.Sanitize(), err)
		}
	}

	n, err := db.CopyFrom(ctx, w.ident, columns, pgx.CopyFromSlice(t.RowCount(), func(i int) ([]any, error) {
		row := make([]any, 0, len(columns))
		if w.opts.BatchColumn != "" {
			row = append(row, pgtype.UUID{Bytes: batchID, Valid: true})
		}
		for j := 0; j < t.ColumnCount(); j++ {
			row = append(row, textValue(t.Cell(i, j)))
		}
		return row, nil
	}))
	if err != nil {
		return nil, fmt.Errorf("copy into %s: %w", w.ident.Sanitize(), err)
	}

	res := &Result{Table: w.opts.Table, Columns: columns, Rows: n}
	if w.opts.BatchColumn != "" {
		res.BatchID = batchID
	}
	return res, nil
}

// WriteTx runs Write inside a transaction, so a failed copy leaves nothing
// behind.
func (w *Writer) WriteTx(ctx context.Context, db TxBeginner, t *table.Table, batchID uuid.UUID) (*Result, error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	res, err := w.Write(ctx, tx, t, batchID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

func (w *Writer) createTableSQL(columns []string) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		typ := "text"
		if w.opts.BatchColumn != "" && i == 0 {
			typ = "uuid"
		}
		defs[i] = pgx.Identifier{c}.Sanitize() + " " + typ
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", w.ident.Sanitize(), strings.Join(defs, ", "))
}

func textValue(v any) pgtype.Text {
	if v == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: table.CellText(v), Valid: true}
}
