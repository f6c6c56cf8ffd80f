// package testing contains shared testing utilities
package testing

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/desertthunder/crate/internal/discogs"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// EntryBuilder assembles a [discogs.CollectionEntry] fixture.
type EntryBuilder struct {
	entry discogs.CollectionEntry
}

// NewEntry starts a collection entry for release id with the given title.
func NewEntry(id int64, title string) *EntryBuilder {
	return &EntryBuilder{entry: discogs.CollectionEntry{
		ID:        id,
		DateAdded: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Minute).Format(time.RFC3339),
		BasicInformation: &discogs.BasicInformation{
			ID:    id,
			Title: title,
			Year:  1990,
		},
	}}
}

func (b *EntryBuilder) Artist(id int64, name string) *EntryBuilder {
	b.entry.BasicInformation.Artists = append(b.entry.BasicInformation.Artists, discogs.ArtistRef{ID: id, Name: name})
	return b
}

func (b *EntryBuilder) Label(id int64, name, catno string) *EntryBuilder {
	b.entry.BasicInformation.Labels = append(b.entry.BasicInformation.Labels, discogs.LabelRef{ID: id, Name: name, CatNo: catno})
	return b
}

func (b *EntryBuilder) Genres(names ...string) *EntryBuilder {
	b.entry.BasicInformation.Genres = append(b.entry.BasicInformation.Genres, names...)
	return b
}

func (b *EntryBuilder) Styles(names ...string) *EntryBuilder {
	b.entry.BasicInformation.Styles = append(b.entry.BasicInformation.Styles, names...)
	return b
}

func (b *EntryBuilder) Year(year int) *EntryBuilder {
	b.entry.BasicInformation.Year = year
	return b
}

func (b *EntryBuilder) Build() discogs.CollectionEntry {
	return b.entry
}

// TwoReleaseCollection is two releases sharing artist Bob and genre Rock:
// 2 releases, 2 artists, 2 genres, 3 release-artist and 3 release-genre pairs.
func TwoReleaseCollection() []discogs.CollectionEntry {
	return []discogs.CollectionEntry{
		NewEntry(100, "A").Artist(1, "Bob").Genres("Rock").Build(),
		NewEntry(200, "B").Artist(1, "Bob").Artist(2, "Sue").Genres("Rock", "Jazz").Build(),
	}
}

// NumberedCollection returns n releases with ids 1..n, each with one artist, label, genre and style.
func NumberedCollection(n int) []discogs.CollectionEntry {
	entries := make([]discogs.CollectionEntry, n)
	for i := range entries {
		id := int64(i + 1)
		entries[i] = NewEntry(id, fmt.Sprintf("Release %d", id)).
			Artist(id%3+1, fmt.Sprintf("Artist %d", id%3+1)).
			Label(id%2+1, fmt.Sprintf("Label %d", id%2+1), fmt.Sprintf("CAT-%03d", id)).
			Genres("Electronic").
			Styles(fmt.Sprintf("Style %d", id%4)).
			Build()
	}
	return entries
}

// CollectionServer is a fake collection endpoint serving entries in pages.
//
// Pages listed in Fail answer with the mapped status. Requests records every page requested.
type CollectionServer struct {
	Entries []discogs.CollectionEntry
	Fail    map[int]int

	mu       sync.Mutex
	requests []int
}

func (s *CollectionServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 50
	}

	s.mu.Lock()
	s.requests = append(s.requests, page)
	s.mu.Unlock()

	if status, ok := s.Fail[page]; ok {
		w.WriteHeader(status)
		w.Write([]byte(`{"message": "injected failure"}`))
		return
	}

	pages := (len(s.Entries) + perPage - 1) / perPage
	start := min((page-1)*perPage, len(s.Entries))
	end := min(page*perPage, len(s.Entries))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(discogs.CollectionPage{
		Pagination: discogs.Pagination{Page: page, Pages: pages, PerPage: perPage, Items: len(s.Entries)},
		Releases:   s.Entries[start:end],
	})
}

// Requests returns the pages requested so far.
func (s *CollectionServer) Requests() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.requests...)
}
