// Package pgstore writes the catalog to PostgreSQL through a pgx connection pool.
//
// [Store] mirrors [repositories.CatalogRepository]: collections are created
// once per user and every insert is ON CONFLICT DO NOTHING.
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/repositories"
	"github.com/desertthunder/crate/internal/shared"
)

// maxParams is PostgreSQL's bind parameter limit per statement.
const maxParams = 65535

//go:embed schema.sql
var schemaSQL string

// Store is a catalog store backed by PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// Open connects to dsn, verifies the connection and returns a [Store].
func Open(ctx context.Context, dsn string, maxConns int32, logger *log.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrInvalidConfig, err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return New(pool, logger), nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool, logger *log.Logger) *Store {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Store{pool: pool, logger: logger}
}

func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the catalog tables when they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = stripComments(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute statement: %w\nStatement: %s", err, stmt)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}
	s.logger.Debug("postgres catalog schema ready")
	return nil
}

func stripComments(stmt string) string {
	var lines []string
	for _, line := range strings.Split(stmt, "\n") {
		if idx := strings.Index(line, "--"); idx >= 0 {
			line = line[:idx]
		}
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// FindOrCreateCollection returns the user's collection, creating it on first use.
func (s *Store) FindOrCreateCollection(ctx context.Context, userID string) (*models.Collection, bool, error) {
	if userID == "" {
		return nil, false, fmt.Errorf("%w: user id", shared.ErrMissingArgument)
	}

	tag, err := s.pool.Exec(ctx,
		"INSERT INTO collections (id, user_id, created_at) VALUES ($1, $2, $3) ON CONFLICT (user_id) DO NOTHING",
		shared.GenerateID(), userID, time.Now().UTC())
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert collection: %w", err)
	}

	var c models.Collection
	err = s.pool.QueryRow(ctx,
		"SELECT id, user_id, created_at FROM collections WHERE user_id = $1", userID,
	).Scan(&c.ID, &c.UserID, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("collection for %s vanished after insert", userID)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query collection: %w", err)
	}

	return &c, tag.RowsAffected() == 1, nil
}

// InsertIgnoring inserts records of kind in one transaction and returns how many rows were new.
func (s *Store) InsertIgnoring(ctx context.Context, kind models.Kind, records []models.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	stmts, err := repositories.BuildInsertIgnore(sqlbuilder.PostgreSQL, kind, records, maxParams)
	if err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted := 0
	for _, stmt := range stmts {
		tag, err := tx.Exec(ctx, stmt.SQL, stmt.Args...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert %s: %w", kind, err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit %s: %w", kind, err)
	}
	return inserted, nil
}

// Count returns the number of rows stored for kind.
func (s *Store) Count(ctx context.Context, kind models.Kind) (int, error) {
	if kind.Table() == "" {
		return 0, fmt.Errorf("unknown record kind %d", int(kind))
	}

	var n int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+kind.Table()).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", kind, err)
	}
	return n, nil
}
