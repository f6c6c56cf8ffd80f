package models

import (
	"fmt"
	"time"
)

// Kind identifies one of the ten row kinds the sync engine writes.
type Kind int

const (
	KindReleases Kind = iota
	KindArtists
	KindLabels
	KindGenres
	KindStyles
	KindReleaseCollection
	KindReleaseArtists
	KindReleaseLabels
	KindReleaseGenres
	KindReleaseStyles
)

// EntityKinds are written before any junction.
var EntityKinds = []Kind{KindReleases, KindArtists, KindLabels, KindGenres, KindStyles}

// RelationKinds reference entity rows and the user's collection.
var RelationKinds = []Kind{KindReleaseCollection, KindReleaseArtists, KindReleaseLabels, KindReleaseGenres, KindReleaseStyles}

type kindInfo struct {
	key     string
	table   string
	columns []string
}

var kinds = [...]kindInfo{
	KindReleases:          {"releases", "releases", []string{"id", "title", "year", "thumb", "cover_image", "date_added"}},
	KindArtists:           {"artists", "artists", []string{"id", "name"}},
	KindLabels:            {"labels", "labels", []string{"id", "name"}},
	KindGenres:            {"genres", "genres", []string{"name"}},
	KindStyles:            {"styles", "styles", []string{"name"}},
	KindReleaseCollection: {"releaseCollection", "release_collections", []string{"release_id", "collection_id"}},
	KindReleaseArtists:    {"releaseArtists", "release_artists", []string{"release_id", "artist_id"}},
	KindReleaseLabels:     {"releaseLabels", "release_labels", []string{"release_id", "label_id", "catalog_number"}},
	KindReleaseGenres:     {"releaseGenres", "release_genres", []string{"release_id", "genre_name"}},
	KindReleaseStyles:     {"releaseStyles", "release_styles", []string{"release_id", "style_name"}},
}

func (k Kind) valid() bool { return k >= 0 && int(k) < len(kinds) }

// String returns the summary key for the kind, e.g. "releaseArtists".
func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kinds[k].key
}

// Table returns the SQL table the kind is stored in.
func (k Kind) Table() string {
	if !k.valid() {
		return ""
	}
	return kinds[k].table
}

// Columns returns the insert columns, in the order [Record.Values] produces them.
func (k Kind) Columns() []string {
	if !k.valid() {
		return nil
	}
	return kinds[k].columns
}

// Record is a typed row of a single [Kind].
type Record interface {
	Kind() Kind
	Values() []any
}

// Release is a catalog item identified by its remote id.
type Release struct {
	ID         int64     `json:"id" db:"id"`
	Title      string    `json:"title" db:"title"`
	Year       int       `json:"year" db:"year"`
	Thumb      string    `json:"thumb" db:"thumb"`
	CoverImage string    `json:"cover_image" db:"cover_image"`
	DateAdded  time.Time `json:"date_added" db:"date_added"`
}

func (Release) Kind() Kind { return KindReleases }
func (r Release) Values() []any {
	var added any
	if !r.DateAdded.IsZero() {
		added = r.DateAdded.UTC()
	}
	return []any{r.ID, r.Title, r.Year, r.Thumb, r.CoverImage, added}
}

type Artist struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

func (Artist) Kind() Kind      { return KindArtists }
func (a Artist) Values() []any { return []any{a.ID, a.Name} }

type Label struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

func (Label) Kind() Kind      { return KindLabels }
func (l Label) Values() []any { return []any{l.ID, l.Name} }

// Genre is keyed by its name.
type Genre struct {
	Name string `json:"name" db:"name"`
}

func (Genre) Kind() Kind      { return KindGenres }
func (g Genre) Values() []any { return []any{g.Name} }

// Style is keyed by its name.
type Style struct {
	Name string `json:"name" db:"name"`
}

func (Style) Kind() Kind      { return KindStyles }
func (s Style) Values() []any { return []any{s.Name} }

type ReleaseCollection struct {
	ReleaseID    int64  `db:"release_id"`
	CollectionID string `db:"collection_id"`
}

func (ReleaseCollection) Kind() Kind      { return KindReleaseCollection }
func (r ReleaseCollection) Values() []any { return []any{r.ReleaseID, r.CollectionID} }

type ReleaseArtist struct {
	ReleaseID int64 `db:"release_id"`
	ArtistID  int64 `db:"artist_id"`
}

func (ReleaseArtist) Kind() Kind      { return KindReleaseArtists }
func (r ReleaseArtist) Values() []any { return []any{r.ReleaseID, r.ArtistID} }

// ReleaseLabel links a release to a label. CatalogNumber is not part of the key.
type ReleaseLabel struct {
	ReleaseID     int64  `db:"release_id"`
	LabelID       int64  `db:"label_id"`
	CatalogNumber string `db:"catalog_number"`
}

func (ReleaseLabel) Kind() Kind      { return KindReleaseLabels }
func (r ReleaseLabel) Values() []any { return []any{r.ReleaseID, r.LabelID, r.CatalogNumber} }

type ReleaseGenre struct {
	ReleaseID int64  `db:"release_id"`
	GenreName string `db:"genre_name"`
}

func (ReleaseGenre) Kind() Kind      { return KindReleaseGenres }
func (r ReleaseGenre) Values() []any { return []any{r.ReleaseID, r.GenreName} }

type ReleaseStyle struct {
	ReleaseID int64  `db:"release_id"`
	StyleName string `db:"style_name"`
}

func (ReleaseStyle) Kind() Kind      { return KindReleaseStyles }
func (r ReleaseStyle) Values() []any { return []any{r.ReleaseID, r.StyleName} }

// Records converts a typed slice into the [Record] interface slice stores accept.
func Records[T Record](rows []T) []Record {
	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}

// Collection is the per-user container releases are linked to. A user owns at most one.
type Collection struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
