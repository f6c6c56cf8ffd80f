package models

import "time"

// Summary reports what one synchronization run did.
type Summary struct {
	User       SummaryUser       `json:"user"`
	Collection SummaryCollection `json:"collection"`
	Synced     SyncCounts        `json:"synced"`
}

type SummaryUser struct {
	Username string `json:"username"`
}

// SummaryCollection reports whether the run created the user's collection.
type SummaryCollection struct {
	Created bool `json:"created"`
}

// SyncCounts holds the number of rows newly inserted per kind.
type SyncCounts struct {
	Releases          int `json:"releases"`
	Artists           int `json:"artists"`
	ReleaseArtists    int `json:"releaseArtists"`
	Labels            int `json:"labels"`
	ReleaseLabels     int `json:"releaseLabels"`
	Genres            int `json:"genres"`
	ReleaseGenres     int `json:"releaseGenres"`
	Styles            int `json:"styles"`
	ReleaseStyles     int `json:"releaseStyles"`
	ReleaseCollection int `json:"releaseCollection"`
}

func (c *SyncCounts) field(k Kind) *int {
	switch k {
	case KindReleases:
		return &c.Releases
	case KindArtists:
		return &c.Artists
	case KindLabels:
		return &c.Labels
	case KindGenres:
		return &c.Genres
	case KindStyles:
		return &c.Styles
	case KindReleaseCollection:
		return &c.ReleaseCollection
	case KindReleaseArtists:
		return &c.ReleaseArtists
	case KindReleaseLabels:
		return &c.ReleaseLabels
	case KindReleaseGenres:
		return &c.ReleaseGenres
	case KindReleaseStyles:
		return &c.ReleaseStyles
	}
	return nil
}

// Set records n inserted rows for kind.
func (c *SyncCounts) Set(k Kind, n int) {
	if f := c.field(k); f != nil {
		*f = n
	}
}

// Get returns the inserted count for kind.
func (c SyncCounts) Get(k Kind) int {
	if f := c.field(k); f != nil {
		return *f
	}
	return 0
}

// Total sums every kind.
func (c SyncCounts) Total() int {
	total := 0
	for _, k := range append(EntityKinds, RelationKinds...) {
		total += c.Get(k)
	}
	return total
}

// ReleaseView is a release joined with its names for the read path.
type ReleaseView struct {
	Release
	Artists []string `json:"artists"`
	Labels  []string `json:"labels"`
	Genres  []string `json:"genres"`
	Styles  []string `json:"styles"`
}

// ReleaseFilter narrows a collection listing. Zero values match everything.
type ReleaseFilter struct {
	Artist string
	Label  string
	Genre  string
	Style  string
	Year   int
	Query  string
	Limit  int
	Offset int
}

// CollectionStats counts what is linked to a user's collection.
type CollectionStats struct {
	Releases int       `json:"releases" db:"releases"`
	Artists  int       `json:"artists" db:"artists"`
	Labels   int       `json:"labels" db:"labels"`
	Genres   int       `json:"genres" db:"genres"`
	Styles   int       `json:"styles" db:"styles"`
	Since    time.Time `json:"since" db:"since"`
}
