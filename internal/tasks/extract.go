package tasks

import (
	"fmt"
	"time"

	"github.com/desertthunder/crate/internal/discogs"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

// MalformedEntryError reports a collection entry missing required fields.
type MalformedEntryError struct {
	Index     int   // Position in the fetched collection
	ReleaseID int64 // Entry id as sent, possibly zero
	Err       error
}

func (e *MalformedEntryError) Error() string {
	return fmt.Sprintf("%v: entry %d (release %d): %v", shared.ErrMalformedEntry, e.Index, e.ReleaseID, e.Err)
}

// Unwrap exposes both [shared.ErrMalformedEntry] and the validation cause.
func (e *MalformedEntryError) Unwrap() []error {
	return []error{shared.ErrMalformedEntry, e.Err}
}

// Dataset is one kind's rows, ready for [Store.InsertIgnoring].
type Dataset struct {
	Kind    models.Kind
	Records []models.Record
}

// Entities holds the flattened entity rows of a collection.
//
// Rows are not deduplicated: an artist on ten releases appears ten times.
type Entities struct {
	Releases []models.Release
	Artists  []models.Artist
	Labels   []models.Label
	Genres   []models.Genre
	Styles   []models.Style
}

// Datasets returns the entity rows in [models.EntityKinds] order.
func (e *Entities) Datasets() []Dataset {
	return []Dataset{
		{Kind: models.KindReleases, Records: models.Records(e.Releases)},
		{Kind: models.KindArtists, Records: models.Records(e.Artists)},
		{Kind: models.KindLabels, Records: models.Records(e.Labels)},
		{Kind: models.KindGenres, Records: models.Records(e.Genres)},
		{Kind: models.KindStyles, Records: models.Records(e.Styles)},
	}
}

// Relations holds the junction rows linking releases to a collection and to their entities.
type Relations struct {
	ReleaseCollection []models.ReleaseCollection
	ReleaseArtists    []models.ReleaseArtist
	ReleaseLabels     []models.ReleaseLabel
	ReleaseGenres     []models.ReleaseGenre
	ReleaseStyles     []models.ReleaseStyle
}

// Datasets returns the junction rows in [models.RelationKinds] order.
func (r *Relations) Datasets() []Dataset {
	return []Dataset{
		{Kind: models.KindReleaseCollection, Records: models.Records(r.ReleaseCollection)},
		{Kind: models.KindReleaseArtists, Records: models.Records(r.ReleaseArtists)},
		{Kind: models.KindReleaseLabels, Records: models.Records(r.ReleaseLabels)},
		{Kind: models.KindReleaseGenres, Records: models.Records(r.ReleaseGenres)},
		{Kind: models.KindReleaseStyles, Records: models.Records(r.ReleaseStyles)},
	}
}

// Extract flattens entries into entity rows.
//
// Every entry is validated first; the first malformed entry aborts extraction with a [*MalformedEntryError].
func Extract(entries []discogs.CollectionEntry) (*Entities, error) {
	if err := validateEntries(entries); err != nil {
		return nil, err
	}

	e := &Entities{Releases: make([]models.Release, 0, len(entries))}
	for _, entry := range entries {
		info := entry.BasicInformation
		e.Releases = append(e.Releases, models.Release{
			ID:         info.ID,
			Title:      info.Title,
			Year:       info.Year,
			Thumb:      info.Thumb,
			CoverImage: info.CoverImage,
			DateAdded:  parseDateAdded(entry.DateAdded),
		})
		for _, a := range info.Artists {
			e.Artists = append(e.Artists, models.Artist{ID: a.ID, Name: a.Name})
		}
		for _, l := range info.Labels {
			e.Labels = append(e.Labels, models.Label{ID: l.ID, Name: l.Name})
		}
		for _, g := range info.Genres {
			e.Genres = append(e.Genres, models.Genre{Name: g})
		}
		for _, s := range info.Styles {
			e.Styles = append(e.Styles, models.Style{Name: s})
		}
	}
	return e, nil
}

// BuildRelations links every entry's release to collectionID and to its artists, labels, genres and styles.
//
// entries must already have passed [Extract].
func BuildRelations(entries []discogs.CollectionEntry, collectionID string) *Relations {
	r := &Relations{ReleaseCollection: make([]models.ReleaseCollection, 0, len(entries))}
	for _, entry := range entries {
		info := entry.BasicInformation
		if info == nil {
			continue
		}

		r.ReleaseCollection = append(r.ReleaseCollection, models.ReleaseCollection{ReleaseID: info.ID, CollectionID: collectionID})
		for _, a := range info.Artists {
			r.ReleaseArtists = append(r.ReleaseArtists, models.ReleaseArtist{ReleaseID: info.ID, ArtistID: a.ID})
		}
		for _, l := range info.Labels {
			r.ReleaseLabels = append(r.ReleaseLabels, models.ReleaseLabel{ReleaseID: info.ID, LabelID: l.ID, CatalogNumber: l.CatNo})
		}
		for _, g := range info.Genres {
			r.ReleaseGenres = append(r.ReleaseGenres, models.ReleaseGenre{ReleaseID: info.ID, GenreName: g})
		}
		for _, s := range info.Styles {
			r.ReleaseStyles = append(r.ReleaseStyles, models.ReleaseStyle{ReleaseID: info.ID, StyleName: s})
		}
	}
	return r
}

func validateEntries(entries []discogs.CollectionEntry) error {
	for i, entry := range entries {
		if err := shared.Validate(entry); err != nil {
			return &MalformedEntryError{Index: i, ReleaseID: entry.ID, Err: err}
		}
	}
	return nil
}

// parseDateAdded returns the zero time for missing or unparseable values.
func parseDateAdded(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
