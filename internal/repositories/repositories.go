// package repositories provides persistence layer implementations for crate's models.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/huandu/go-sqlbuilder"

	"github.com/desertthunder/crate/internal/models"
)

// SQLiteMaxParams stays under SQLITE_MAX_VARIABLE_NUMBER for older builds.
const SQLiteMaxParams = 999

// NextSequence atomically increments and returns the next sequence number for the given table.
//
// Sequence numbers provide human-readable ordering for entities (e.g., user #42).
// They are NOT exposed in CLI output but used internally for sorting and debugging.
func NextSequence(ctx context.Context, db *sql.DB, table string) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequenceTable := table + "_sequence"

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", sequenceTable)); err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	if err := tx.QueryRowContext(ctx, fmt.Sprintf("SELECT value FROM %s WHERE id = 1", sequenceTable)).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}

	return sequence, nil
}

// Statement is a rendered SQL statement and its arguments.
type Statement struct {
	SQL  string
	Args []any
}

// BuildInsertIgnore renders insert-ignore statements for records of kind.
//
// Records are chunked so no statement binds more than maxParams arguments.
// SQLite renders INSERT OR IGNORE, PostgreSQL INSERT ... ON CONFLICT DO NOTHING.
// Every record must be of kind.
func BuildInsertIgnore(flavor sqlbuilder.Flavor, kind models.Kind, records []models.Record, maxParams int) ([]Statement, error) {
	cols := kind.Columns()
	if len(cols) == 0 {
		return nil, fmt.Errorf("unknown record kind %d", int(kind))
	}

	perStmt := max(maxParams/len(cols), 1)
	stmts := make([]Statement, 0, (len(records)+perStmt-1)/perStmt)

	for start := 0; start < len(records); start += perStmt {
		chunk := records[start:min(start+perStmt, len(records))]

		ib := flavor.NewInsertBuilder()
		if flavor == sqlbuilder.PostgreSQL {
			ib.InsertInto(kind.Table())
		} else {
			ib.InsertIgnoreInto(kind.Table())
		}
		ib.Cols(cols...)

		for _, rec := range chunk {
			if rec.Kind() != kind {
				return nil, fmt.Errorf("record of kind %s in %s batch", rec.Kind(), kind)
			}
			ib.Values(rec.Values()...)
		}

		if flavor == sqlbuilder.PostgreSQL {
			ib.SQL("ON CONFLICT DO NOTHING")
		}

		query, args := ib.Build()
		stmts = append(stmts, Statement{SQL: query, Args: args})
	}

	return stmts, nil
}
