package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"

	"github.com/desertthunder/crate/internal/models"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// CollectionRepository reads what a user's collection links to.
type CollectionRepository struct {
	db *sqlx.DB
}

// NewCollectionRepository wraps db for struct scanning.
func NewCollectionRepository(db *sql.DB) *CollectionRepository {
	return &CollectionRepository{db: sqlx.NewDb(db, "sqlite3")}
}

type releaseRow struct {
	ID         int64        `db:"id"`
	Title      string       `db:"title"`
	Year       int          `db:"year"`
	Thumb      string       `db:"thumb"`
	CoverImage string       `db:"cover_image"`
	DateAdded  sql.NullTime `db:"date_added"`
}

type nameRow struct {
	ReleaseID int64  `db:"release_id"`
	Name      string `db:"name"`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// contains matches text anywhere in field, with % and _ in text taken literally.
func contains(cond *sqlbuilder.Cond, field, text string) string {
	return field + " LIKE " + cond.Var("%"+likeEscaper.Replace(text)+"%") + ` ESCAPE '\'`
}

// applyFilter adds the collection scope and the filter conditions to sb.
func applyFilter(sb *sqlbuilder.SelectBuilder, userID string, f models.ReleaseFilter) {
	sb.From("releases r").
		Join("release_collections rc", "rc.release_id = r.id").
		Join("collections c", "c.id = rc.collection_id")
	sb.Where(sb.Equal("c.user_id", userID))

	if f.Year > 0 {
		sb.Where(sb.Equal("r.year", f.Year))
	}
	if f.Query != "" {
		sb.Where(contains(&sb.Cond, "r.title", f.Query))
	}
	if f.Artist != "" {
		sub := sqlbuilder.SQLite.NewSelectBuilder()
		sub.Select("1").From("release_artists ra").Join("artists a", "a.id = ra.artist_id")
		sub.Where("ra.release_id = r.id", contains(&sub.Cond, "a.name", f.Artist))
		sb.Where(sb.Exists(sub))
	}
	if f.Label != "" {
		sub := sqlbuilder.SQLite.NewSelectBuilder()
		sub.Select("1").From("release_labels rl").Join("labels l", "l.id = rl.label_id")
		sub.Where("rl.release_id = r.id", contains(&sub.Cond, "l.name", f.Label))
		sb.Where(sb.Exists(sub))
	}
	if f.Genre != "" {
		sub := sqlbuilder.SQLite.NewSelectBuilder()
		sub.Select("1").From("release_genres rg")
		sub.Where("rg.release_id = r.id", sub.Equal("rg.genre_name", f.Genre))
		sb.Where(sb.Exists(sub))
	}
	if f.Style != "" {
		sub := sqlbuilder.SQLite.NewSelectBuilder()
		sub.Select("1").From("release_styles rs")
		sub.Where("rs.release_id = r.id", sub.Equal("rs.style_name", f.Style))
		sb.Where(sb.Exists(sub))
	}
}

// ListReleases returns one page of the user's releases, newest additions first, and the total matching the filter.
func (r *CollectionRepository) ListReleases(ctx context.Context, userID string, f models.ReleaseFilter) ([]models.ReleaseView, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	cb := sqlbuilder.SQLite.NewSelectBuilder()
	cb.Select("COUNT(*)")
	applyFilter(cb, userID, f)
	countSQL, countArgs := cb.Build()

	var total int
	if err := r.db.GetContext(ctx, &total, countSQL, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count releases: %w", err)
	}

	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("r.id", "r.title", "r.year", "r.thumb", "r.cover_image", "r.date_added")
	applyFilter(sb, userID, f)
	sb.OrderBy("r.date_added DESC", "r.id ASC").Limit(limit).Offset(max(f.Offset, 0))
	query, args := sb.Build()

	var rows []releaseRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to query releases: %w", err)
	}

	views := make([]models.ReleaseView, len(rows))
	index := make(map[int64]*models.ReleaseView, len(rows))
	ids := make([]int64, len(rows))
	for i, row := range rows {
		views[i] = models.ReleaseView{Release: models.Release{
			ID:         row.ID,
			Title:      row.Title,
			Year:       row.Year,
			Thumb:      row.Thumb,
			CoverImage: row.CoverImage,
			DateAdded:  row.DateAdded.Time,
		}}
		index[row.ID] = &views[i]
		ids[i] = row.ID
	}

	if len(ids) == 0 {
		return views, total, nil
	}

	names := []struct {
		query  string
		assign func(v *models.ReleaseView, name string)
	}{
		{
			"SELECT ra.release_id, a.name FROM release_artists ra JOIN artists a ON a.id = ra.artist_id WHERE ra.release_id IN (?) ORDER BY a.name",
			func(v *models.ReleaseView, name string) { v.Artists = append(v.Artists, name) },
		},
		{
			"SELECT rl.release_id, l.name FROM release_labels rl JOIN labels l ON l.id = rl.label_id WHERE rl.release_id IN (?) ORDER BY l.name",
			func(v *models.ReleaseView, name string) { v.Labels = append(v.Labels, name) },
		},
		{
			"SELECT release_id, genre_name AS name FROM release_genres WHERE release_id IN (?) ORDER BY genre_name",
			func(v *models.ReleaseView, name string) { v.Genres = append(v.Genres, name) },
		},
		{
			"SELECT release_id, style_name AS name FROM release_styles WHERE release_id IN (?) ORDER BY style_name",
			func(v *models.ReleaseView, name string) { v.Styles = append(v.Styles, name) },
		},
	}

	for _, n := range names {
		q, qargs, err := sqlx.In(n.query, ids)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to expand release ids: %w", err)
		}

		var found []nameRow
		if err := r.db.SelectContext(ctx, &found, r.db.Rebind(q), qargs...); err != nil {
			return nil, 0, fmt.Errorf("failed to query release names: %w", err)
		}
		for _, row := range found {
			if v, ok := index[row.ReleaseID]; ok {
				n.assign(v, row.Name)
			}
		}
	}

	return views, total, nil
}

// Stats counts the distinct rows linked to the user's collection. A user without a collection has zero stats.
func (r *CollectionRepository) Stats(ctx context.Context, userID string) (*models.CollectionStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM release_collections rc WHERE rc.collection_id = c.id) AS releases,
			(SELECT COUNT(DISTINCT ra.artist_id) FROM release_artists ra
				JOIN release_collections rc ON rc.release_id = ra.release_id
				WHERE rc.collection_id = c.id) AS artists,
			(SELECT COUNT(DISTINCT rl.label_id) FROM release_labels rl
				JOIN release_collections rc ON rc.release_id = rl.release_id
				WHERE rc.collection_id = c.id) AS labels,
			(SELECT COUNT(DISTINCT rg.genre_name) FROM release_genres rg
				JOIN release_collections rc ON rc.release_id = rg.release_id
				WHERE rc.collection_id = c.id) AS genres,
			(SELECT COUNT(DISTINCT rs.style_name) FROM release_styles rs
				JOIN release_collections rc ON rc.release_id = rs.release_id
				WHERE rc.collection_id = c.id) AS styles,
			c.created_at AS since
		FROM collections c
		WHERE c.user_id = ?
	`

	var stats models.CollectionStats
	err := r.db.GetContext(ctx, &stats, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.CollectionStats{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query collection stats: %w", err)
	}
	return &stats, nil
}
