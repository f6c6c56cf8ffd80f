package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

const userColumns = "id, sequence, username, discogs_id, access_token, access_token_secret, created_at, updated_at"

// UserRepository persists [models.User] accounts and their access tokens.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database with generated ID and sequence
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	sequence, err := NextSequence(ctx, r.db, "users")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	user.SetID(shared.GenerateID())
	user.SetSequence(sequence)

	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		user.ID(), user.Sequence(), user.Username(), user.DiscogsID(),
		user.AccessToken(), user.AccessTokenSecret(), user.CreatedAt(), user.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// Get retrieves a user by ID
func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// GetByUsername retrieves a user by their catalog username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// List retrieves all users ordered by sequence
func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY sequence ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return users, nil
}

// UpdateTokens replaces a user's access token pair and remote id
func (r *UserRepository) UpdateTokens(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	user.SetUpdatedAt(now)

	query := `
		UPDATE users
		SET discogs_id = ?, access_token = ?, access_token_secret = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, user.DiscogsID(), user.AccessToken(), user.AccessTokenSecret(), now, user.ID())
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrUserNotFound, user.ID())
	}

	return nil
}

// SaveAuthorized stores the tokens from a completed OAuth flow, creating the user when the username is new.
func (r *UserRepository) SaveAuthorized(ctx context.Context, username string, discogsID int64, token, secret string) (*models.User, error) {
	user, err := r.GetByUsername(ctx, username)
	switch {
	case errors.Is(err, shared.ErrUserNotFound):
		user = models.NewUser(0, username)
		user.SetDiscogsID(discogsID)
		user.SetTokens(token, secret)
		if err := r.Create(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	case err != nil:
		return nil, err
	}

	user.SetDiscogsID(discogsID)
	user.SetTokens(token, secret)
	if err := r.UpdateTokens(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Credentials returns the user for a sync run, failing before any network call when tokens are missing.
func (r *UserRepository) Credentials(ctx context.Context, userID string) (*models.User, error) {
	user, err := r.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasTokens() {
		return nil, fmt.Errorf("%w: user %s has no access token", shared.ErrMissingCredentials, user.Username())
	}
	return user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		id, username, token, secret string
		sequence                    int
		discogsID                   int64
		createdAt, updatedAt        time.Time
	)

	if err := row.Scan(&id, &sequence, &username, &discogsID, &token, &secret, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	user := models.NewUser(sequence, username)
	user.SetID(id)
	user.SetDiscogsID(discogsID)
	user.SetTokens(token, secret)
	user.SetCreatedAt(createdAt)
	user.SetUpdatedAt(updatedAt)
	return user, nil
}
