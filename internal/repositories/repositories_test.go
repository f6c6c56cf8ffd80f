package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/huandu/go-sqlbuilder"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, db *sql.DB, username string) *models.User {
	t.Helper()

	user := models.NewUser(0, username)
	user.SetTokens("token-"+username, "secret-"+username)
	if err := NewUserRepository(db).Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(ctx, db, "users")
		if err != nil {
			t.Fatalf("failed to get next sequence: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}
}

func TestBuildInsertIgnore(t *testing.T) {
	genres := models.Records([]models.Genre{{Name: "Rock"}, {Name: "Jazz"}, {Name: "Pop"}})

	t.Run("SQLite", func(t *testing.T) {
		stmts, err := BuildInsertIgnore(sqlbuilder.SQLite, models.KindGenres, genres, SQLiteMaxParams)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(stmts) != 1 {
			t.Fatalf("expected 1 statement, got %d", len(stmts))
		}
		if !strings.HasPrefix(stmts[0].SQL, "INSERT OR IGNORE INTO genres") {
			t.Errorf("unexpected SQL: %s", stmts[0].SQL)
		}
		if len(stmts[0].Args) != 3 {
			t.Errorf("expected 3 args, got %d", len(stmts[0].Args))
		}
	})

	t.Run("PostgreSQL", func(t *testing.T) {
		stmts, err := BuildInsertIgnore(sqlbuilder.PostgreSQL, models.KindGenres, genres, 65535)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		sql := stmts[0].SQL
		if !strings.HasPrefix(sql, "INSERT INTO genres") || !strings.HasSuffix(sql, "ON CONFLICT DO NOTHING") {
			t.Errorf("unexpected SQL: %s", sql)
		}
		if !strings.Contains(sql, "$3") {
			t.Errorf("expected numbered placeholders: %s", sql)
		}
	})

	t.Run("chunks by parameter count", func(t *testing.T) {
		pairs := make([]models.ReleaseLabel, 10)
		for i := range pairs {
			pairs[i] = models.ReleaseLabel{ReleaseID: int64(i), LabelID: 1}
		}

		stmts, err := BuildInsertIgnore(sqlbuilder.SQLite, models.KindReleaseLabels, models.Records(pairs), 9)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(stmts) != 4 {
			t.Errorf("expected 4 statements of at most 3 rows, got %d", len(stmts))
		}
	})

	t.Run("rejects mixed kinds", func(t *testing.T) {
		mixed := []models.Record{models.Genre{Name: "Rock"}, models.Style{Name: "Punk"}}
		if _, err := BuildInsertIgnore(sqlbuilder.SQLite, models.KindGenres, mixed, SQLiteMaxParams); err == nil {
			t.Error("expected an error for a style in a genre batch")
		}
	})
}

func TestCatalogRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("FindOrCreateCollection", func(t *testing.T) {
		db := setupTestDB(t)
		user := createUser(t, db, "alice")
		repo := NewCatalogRepository(db)

		first, created, err := repo.FindOrCreateCollection(ctx, user.ID())
		if err != nil {
			t.Fatalf("failed to create collection: %v", err)
		}
		if !created {
			t.Error("first call should create the collection")
		}

		second, created, err := repo.FindOrCreateCollection(ctx, user.ID())
		if err != nil {
			t.Fatalf("failed to find collection: %v", err)
		}
		if created {
			t.Error("second call should not create a collection")
		}
		if first.ID != second.ID {
			t.Errorf("expected the same collection, got %s and %s", first.ID, second.ID)
		}
	})

	t.Run("FindOrCreateCollection concurrently", func(t *testing.T) {
		db := setupTestDB(t)
		user := createUser(t, db, "alice")
		repo := NewCatalogRepository(db)

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			ids     = map[string]bool{}
			creates int
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c, created, err := repo.FindOrCreateCollection(ctx, user.ID())
				if err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				mu.Lock()
				defer mu.Unlock()
				ids[c.ID] = true
				if created {
					creates++
				}
			}()
		}
		wg.Wait()

		if len(ids) != 1 || creates != 1 {
			t.Errorf("expected one collection created once, got %d ids and %d creates", len(ids), creates)
		}
	})

	t.Run("FindOrCreateCollection unknown user", func(t *testing.T) {
		db := setupTestDB(t)
		if _, _, err := NewCatalogRepository(db).FindOrCreateCollection(ctx, "missing"); err == nil {
			t.Error("expected a foreign key error")
		}
	})

	t.Run("Collection", func(t *testing.T) {
		db := setupTestDB(t)
		user := createUser(t, db, "alice")
		repo := NewCatalogRepository(db)

		c, err := repo.Collection(ctx, user.ID())
		if err != nil || c != nil {
			t.Fatalf("expected no collection yet, got %v, %v", c, err)
		}
	})

	t.Run("InsertIgnoring", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewCatalogRepository(db)

		artists := models.Records([]models.Artist{{ID: 1, Name: "Bob"}, {ID: 1, Name: "Bob"}, {ID: 2, Name: "Sue"}})

		n, err := repo.InsertIgnoring(ctx, models.KindArtists, artists)
		if err != nil {
			t.Fatalf("failed to insert artists: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 inserted rows, got %d", n)
		}

		n, err = repo.InsertIgnoring(ctx, models.KindArtists, artists)
		if err != nil {
			t.Fatalf("failed to re-insert artists: %v", err)
		}
		if n != 0 {
			t.Errorf("expected 0 inserted rows on repeat, got %d", n)
		}

		total, err := repo.Count(ctx, models.KindArtists)
		if err != nil {
			t.Fatalf("failed to count: %v", err)
		}
		if total != 2 {
			t.Errorf("expected 2 artists, got %d", total)
		}
	})

	t.Run("InsertIgnoring keeps first values", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewCatalogRepository(db)

		if _, err := repo.InsertIgnoring(ctx, models.KindReleases, []models.Record{models.Release{ID: 1, Title: "Old"}}); err != nil {
			t.Fatalf("failed to insert: %v", err)
		}
		if _, err := repo.InsertIgnoring(ctx, models.KindReleases, []models.Record{models.Release{ID: 1, Title: "New"}}); err != nil {
			t.Fatalf("failed to insert: %v", err)
		}

		var title string
		if err := db.QueryRow("SELECT title FROM releases WHERE id = 1").Scan(&title); err != nil {
			t.Fatalf("failed to query title: %v", err)
		}
		if title != "Old" {
			t.Errorf("existing rows must not be updated, got title %q", title)
		}
	})

	t.Run("InsertIgnoring large batch", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewCatalogRepository(db)

		genres := make([]models.Genre, 2500)
		for i := range genres {
			genres[i] = models.Genre{Name: fmt.Sprintf("genre-%d", i)}
		}

		n, err := repo.InsertIgnoring(ctx, models.KindGenres, models.Records(genres))
		if err != nil {
			t.Fatalf("failed to insert: %v", err)
		}
		if n != 2500 {
			t.Errorf("expected 2500 rows, got %d", n)
		}
	})

	t.Run("junction requires parents", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewCatalogRepository(db)

		_, err := repo.InsertIgnoring(ctx, models.KindReleaseArtists, []models.Record{models.ReleaseArtist{ReleaseID: 1, ArtistID: 1}})
		if err == nil {
			t.Fatal("expected a foreign key error")
		}

		total, _ := repo.Count(ctx, models.KindReleaseArtists)
		if total != 0 {
			t.Errorf("failed batch should roll back, found %d rows", total)
		}
	})

	t.Run("InsertIgnoring empty", func(t *testing.T) {
		db := setupTestDB(t)
		n, err := NewCatalogRepository(db).InsertIgnoring(ctx, models.KindStyles, nil)
		if err != nil || n != 0 {
			t.Errorf("expected 0, nil; got %d, %v", n, err)
		}
	})
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create and Get", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewUserRepository(db)
		user := createUser(t, db, "alice")

		if user.ID() == "" || user.Sequence() != 1 {
			t.Errorf("expected id and sequence 1, got %q and %d", user.ID(), user.Sequence())
		}

		got, err := repo.Get(ctx, user.ID())
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}
		if got.Username() != "alice" || got.AccessToken() != "token-alice" {
			t.Errorf("unexpected user: %s / %s", got.Username(), got.AccessToken())
		}

		byName, err := repo.GetByUsername(ctx, "alice")
		if err != nil {
			t.Fatalf("failed to get user by username: %v", err)
		}
		if byName.ID() != user.ID() {
			t.Errorf("expected %s, got %s", user.ID(), byName.ID())
		}
	})

	t.Run("Create validation", func(t *testing.T) {
		db := setupTestDB(t)
		if err := NewUserRepository(db).Create(ctx, models.NewUser(0, " ")); err == nil {
			t.Error("expected validation error for blank username")
		}
	})

	t.Run("Duplicate username", func(t *testing.T) {
		db := setupTestDB(t)
		createUser(t, db, "alice")
		if err := NewUserRepository(db).Create(ctx, models.NewUser(0, "alice")); err == nil {
			t.Error("expected error when creating user with duplicate username")
		}
	})

	t.Run("Get NotFound", func(t *testing.T) {
		db := setupTestDB(t)
		_, err := NewUserRepository(db).Get(ctx, "nonexistent-id")
		if !errors.Is(err, shared.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		createUser(t, db, "alice")
		createUser(t, db, "bob")

		users, err := NewUserRepository(db).List(ctx)
		if err != nil {
			t.Fatalf("failed to list users: %v", err)
		}
		if len(users) != 2 || users[0].Username() != "alice" || users[1].Username() != "bob" {
			t.Errorf("unexpected users: %v", users)
		}
	})

	t.Run("SaveAuthorized", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewUserRepository(db)

		created, err := repo.SaveAuthorized(ctx, "carol", 42, "t1", "s1")
		if err != nil {
			t.Fatalf("failed to save new user: %v", err)
		}

		updated, err := repo.SaveAuthorized(ctx, "carol", 42, "t2", "s2")
		if err != nil {
			t.Fatalf("failed to update user: %v", err)
		}
		if updated.ID() != created.ID() {
			t.Error("re-authorizing should keep the same user")
		}

		got, _ := repo.Get(ctx, created.ID())
		if got.AccessToken() != "t2" || got.AccessTokenSecret() != "s2" || got.DiscogsID() != 42 {
			t.Errorf("tokens not updated: %s/%s/%d", got.AccessToken(), got.AccessTokenSecret(), got.DiscogsID())
		}
	})

	t.Run("UpdateTokens NotFound", func(t *testing.T) {
		db := setupTestDB(t)
		user := models.NewUser(1, "ghost")
		user.SetID("ghost")
		if err := NewUserRepository(db).UpdateTokens(ctx, user); !errors.Is(err, shared.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("Credentials", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewUserRepository(db)

		authorized := createUser(t, db, "alice")
		if _, err := repo.Credentials(ctx, authorized.ID()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}

		bare := models.NewUser(0, "bob")
		if err := repo.Create(ctx, bare); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
		if _, err := repo.Credentials(ctx, bare.ID()); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}

		if _, err := repo.Credentials(ctx, "missing"); !errors.Is(err, shared.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})
}
