package models

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestKinds(t *testing.T) {
	records := []Record{
		Release{ID: 1, Title: "t", DateAdded: time.Now()},
		Artist{ID: 1, Name: "a"},
		Label{ID: 1, Name: "l"},
		Genre{Name: "Rock"},
		Style{Name: "Punk"},
		ReleaseCollection{ReleaseID: 1, CollectionID: "c"},
		ReleaseArtist{ReleaseID: 1, ArtistID: 1},
		ReleaseLabel{ReleaseID: 1, LabelID: 1, CatalogNumber: "CAT-1"},
		ReleaseGenre{ReleaseID: 1, GenreName: "Rock"},
		ReleaseStyle{ReleaseID: 1, StyleName: "Punk"},
	}

	seen := map[Kind]bool{}
	for _, r := range records {
		k := r.Kind()
		seen[k] = true

		t.Run(k.String(), func(t *testing.T) {
			if k.Table() == "" {
				t.Error("expected a table name")
			}
			if got, want := len(r.Values()), len(k.Columns()); got != want {
				t.Errorf("Values() has %d items, Columns() has %d", got, want)
			}
		})
	}

	if len(seen) != len(EntityKinds)+len(RelationKinds) {
		t.Errorf("expected a record for every kind, got %d", len(seen))
	}

	if Kind(99).String() != "Kind(99)" || Kind(99).Table() != "" {
		t.Error("unknown kinds should not resolve")
	}
}

func TestReleaseValues(t *testing.T) {
	vals := Release{ID: 7, Title: "x"}.Values()
	if vals[5] != nil {
		t.Errorf("zero DateAdded should be stored as NULL, got %v", vals[5])
	}
}

func TestSummary(t *testing.T) {
	var s Summary
	s.User.Username = "alice"
	s.Collection.Created = true
	for i, k := range append(EntityKinds, RelationKinds...) {
		s.Synced.Set(k, i+1)
	}

	if s.Synced.Get(KindReleaseStyles) != 10 {
		t.Errorf("expected releaseStyles=10, got %d", s.Synced.Get(KindReleaseStyles))
	}
	if s.Synced.Total() != 55 {
		t.Errorf("expected total 55, got %d", s.Synced.Total())
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("failed to marshal summary: %v", err)
	}

	var decoded map[string]map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal summary: %v", err)
	}

	if decoded["user"]["username"] != "alice" || decoded["collection"]["created"] != true {
		t.Errorf("unexpected summary: %s", data)
	}
	for _, k := range append(EntityKinds, RelationKinds...) {
		if _, ok := decoded["synced"][k.String()]; !ok {
			t.Errorf("synced is missing %q", k)
		}
	}
}

func TestUser(t *testing.T) {
	u := NewUser(1, "alice")
	if err := u.Validate(); err == nil {
		t.Error("user without id should not validate")
	}

	u.SetID("u1")
	if err := u.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if u.HasTokens() {
		t.Error("new user should not have tokens")
	}
	u.SetTokens("tok", "sec")
	if !u.HasTokens() {
		t.Error("expected tokens after SetTokens")
	}
}
