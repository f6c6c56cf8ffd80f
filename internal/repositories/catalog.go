package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/huandu/go-sqlbuilder"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

// CatalogRepository writes collections, catalog entities and junctions to SQLite.
//
// Writes are insert-or-ignore, so repeating them is harmless and returns zero counts.
type CatalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository creates a new [CatalogRepository] with the given database connection
func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// FindOrCreateCollection returns the user's collection, creating it on first use.
//
// created is true only for the call that inserted the row. The unique user_id
// column makes concurrent callers agree on a single collection.
func (r *CatalogRepository) FindOrCreateCollection(ctx context.Context, userID string) (*models.Collection, bool, error) {
	if userID == "" {
		return nil, false, fmt.Errorf("%w: user id", shared.ErrMissingArgument)
	}

	result, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO collections (id, user_id, created_at) VALUES (?, ?, ?)",
		shared.GenerateID(), userID, time.Now().UTC())
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert collection: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	var c models.Collection
	err = r.db.QueryRowContext(ctx,
		"SELECT id, user_id, created_at FROM collections WHERE user_id = ?", userID,
	).Scan(&c.ID, &c.UserID, &c.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query collection: %w", err)
	}

	return &c, rows == 1, nil
}

// Collection returns the user's collection without creating one.
func (r *CatalogRepository) Collection(ctx context.Context, userID string) (*models.Collection, error) {
	var c models.Collection
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, created_at FROM collections WHERE user_id = ?", userID,
	).Scan(&c.ID, &c.UserID, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}
	return &c, nil
}

// InsertIgnoring inserts records of kind in one transaction, skipping rows whose key already exists.
// It returns how many rows were actually inserted.
func (r *CatalogRepository) InsertIgnoring(ctx context.Context, kind models.Kind, records []models.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	stmts, err := BuildInsertIgnore(sqlbuilder.SQLite, kind, records, SQLiteMaxParams)
	if err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for _, stmt := range stmts {
		result, err := tx.ExecContext(ctx, stmt.SQL, stmt.Args...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert %s: %w", kind, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get affected rows: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit %s: %w", kind, err)
	}

	return inserted, nil
}

// Count returns the number of rows stored for kind.
func (r *CatalogRepository) Count(ctx context.Context, kind models.Kind) (int, error) {
	if kind.Table() == "" {
		return 0, fmt.Errorf("unknown record kind %d", int(kind))
	}

	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+kind.Table()).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", kind, err)
	}
	return n, nil
}
