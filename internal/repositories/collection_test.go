package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/desertthunder/crate/internal/models"
)

// seedCollection links three releases to a new user's collection.
func seedCollection(t *testing.T, db *sql.DB) *models.User {
	t.Helper()
	ctx := context.Background()

	user := createUser(t, db, "alice")
	repo := NewCatalogRepository(db)
	collection, _, err := repo.FindOrCreateCollection(ctx, user.ID())
	if err != nil {
		t.Fatalf("failed to create collection: %v", err)
	}

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	batches := []struct {
		kind    models.Kind
		records []models.Record
	}{
		{models.KindReleases, models.Records([]models.Release{
			{ID: 1, Title: "Unknown Pleasures", Year: 1979, DateAdded: base},
			{ID: 2, Title: "Closer", Year: 1980, DateAdded: base.Add(time.Hour)},
			{ID: 3, Title: "Kind of Blue", Year: 1959, DateAdded: base.Add(2 * time.Hour)},
		})},
		{models.KindArtists, models.Records([]models.Artist{{ID: 10, Name: "Joy Division"}, {ID: 20, Name: "Miles Davis"}})},
		{models.KindLabels, models.Records([]models.Label{{ID: 100, Name: "Factory"}, {ID: 200, Name: "Columbia"}})},
		{models.KindGenres, models.Records([]models.Genre{{Name: "Rock"}, {Name: "Jazz"}})},
		{models.KindStyles, models.Records([]models.Style{{Name: "Post-Punk"}, {Name: "Modal"}})},
		{models.KindReleaseCollection, models.Records([]models.ReleaseCollection{
			{ReleaseID: 1, CollectionID: collection.ID},
			{ReleaseID: 2, CollectionID: collection.ID},
			{ReleaseID: 3, CollectionID: collection.ID},
		})},
		{models.KindReleaseArtists, models.Records([]models.ReleaseArtist{{ReleaseID: 1, ArtistID: 10}, {ReleaseID: 2, ArtistID: 10}, {ReleaseID: 3, ArtistID: 20}})},
		{models.KindReleaseLabels, models.Records([]models.ReleaseLabel{
			{ReleaseID: 1, LabelID: 100, CatalogNumber: "FACT 10"},
			{ReleaseID: 2, LabelID: 100, CatalogNumber: "FACT 25"},
			{ReleaseID: 3, LabelID: 200, CatalogNumber: "CL 1355"},
		})},
		{models.KindReleaseGenres, models.Records([]models.ReleaseGenre{{ReleaseID: 1, GenreName: "Rock"}, {ReleaseID: 2, GenreName: "Rock"}, {ReleaseID: 3, GenreName: "Jazz"}})},
		{models.KindReleaseStyles, models.Records([]models.ReleaseStyle{{ReleaseID: 1, StyleName: "Post-Punk"}, {ReleaseID: 2, StyleName: "Post-Punk"}, {ReleaseID: 3, StyleName: "Modal"}})},
	}

	for _, b := range batches {
		if _, err := repo.InsertIgnoring(ctx, b.kind, b.records); err != nil {
			t.Fatalf("failed to seed %s: %v", b.kind, err)
		}
	}
	return user
}

func TestCollectionRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("ListReleases", func(t *testing.T) {
		db := setupTestDB(t)
		user := seedCollection(t, db)
		repo := NewCollectionRepository(db)

		views, total, err := repo.ListReleases(ctx, user.ID(), models.ReleaseFilter{})
		if err != nil {
			t.Fatalf("failed to list releases: %v", err)
		}
		if total != 3 || len(views) != 3 {
			t.Fatalf("expected 3 releases, got %d (total %d)", len(views), total)
		}
		if views[0].ID != 3 {
			t.Errorf("expected newest addition first, got release %d", views[0].ID)
		}
		if len(views[0].Artists) != 1 || views[0].Artists[0] != "Miles Davis" {
			t.Errorf("unexpected artists: %v", views[0].Artists)
		}
		if len(views[2].Labels) != 1 || views[2].Labels[0] != "Factory" {
			t.Errorf("unexpected labels: %v", views[2].Labels)
		}
		if views[2].DateAdded.IsZero() {
			t.Error("expected date added to be scanned")
		}
	})

	t.Run("ListReleases filters", func(t *testing.T) {
		db := setupTestDB(t)
		user := seedCollection(t, db)
		repo := NewCollectionRepository(db)

		tc := []struct {
			name   string
			filter models.ReleaseFilter
			want   int
		}{
			{name: "genre", filter: models.ReleaseFilter{Genre: "Rock"}, want: 2},
			{name: "style", filter: models.ReleaseFilter{Style: "Modal"}, want: 1},
			{name: "artist substring", filter: models.ReleaseFilter{Artist: "joy"}, want: 2},
			{name: "label", filter: models.ReleaseFilter{Label: "Columbia"}, want: 1},
			{name: "year", filter: models.ReleaseFilter{Year: 1980}, want: 1},
			{name: "title query", filter: models.ReleaseFilter{Query: "blue"}, want: 1},
			{name: "combined", filter: models.ReleaseFilter{Genre: "Rock", Year: 1959}, want: 0},
			{name: "percent is literal", filter: models.ReleaseFilter{Query: "%"}, want: 0},
			{name: "underscore is literal", filter: models.ReleaseFilter{Artist: "J_y"}, want: 0},
			{name: "label wildcard is literal", filter: models.ReleaseFilter{Label: "F%y"}, want: 0},
			{name: "backslash is literal", filter: models.ReleaseFilter{Query: `\`}, want: 0},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				views, total, err := repo.ListReleases(ctx, user.ID(), tt.filter)
				if err != nil {
					t.Fatalf("failed to list releases: %v", err)
				}
				if total != tt.want || len(views) != tt.want {
					t.Errorf("expected %d releases, got %d (total %d)", tt.want, len(views), total)
				}
			})
		}
	})

	t.Run("ListReleases paging", func(t *testing.T) {
		db := setupTestDB(t)
		user := seedCollection(t, db)
		repo := NewCollectionRepository(db)

		views, total, err := repo.ListReleases(ctx, user.ID(), models.ReleaseFilter{Limit: 2, Offset: 2})
		if err != nil {
			t.Fatalf("failed to list releases: %v", err)
		}
		if total != 3 || len(views) != 1 || views[0].ID != 1 {
			t.Errorf("unexpected page: total %d, %v", total, views)
		}
	})

	t.Run("ListReleases other user", func(t *testing.T) {
		db := setupTestDB(t)
		seedCollection(t, db)
		other := createUser(t, db, "bob")

		views, total, err := NewCollectionRepository(db).ListReleases(ctx, other.ID(), models.ReleaseFilter{})
		if err != nil {
			t.Fatalf("failed to list releases: %v", err)
		}
		if total != 0 || len(views) != 0 {
			t.Errorf("expected an empty listing, got %d", total)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		db := setupTestDB(t)
		user := seedCollection(t, db)
		repo := NewCollectionRepository(db)

		stats, err := repo.Stats(ctx, user.ID())
		if err != nil {
			t.Fatalf("failed to get stats: %v", err)
		}
		if stats.Releases != 3 || stats.Artists != 2 || stats.Labels != 2 || stats.Genres != 2 || stats.Styles != 2 {
			t.Errorf("unexpected stats: %+v", stats)
		}

		empty, err := repo.Stats(ctx, "nobody")
		if err != nil {
			t.Fatalf("failed to get empty stats: %v", err)
		}
		if empty.Releases != 0 {
			t.Errorf("expected zero stats, got %+v", empty)
		}
	})
}
