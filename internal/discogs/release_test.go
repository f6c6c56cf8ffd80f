package discogs

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/crate/internal/shared"
)

func TestSanitizeText(t *testing.T) {
	tc := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "Blue Monday", want: "Blue Monday"},
		{name: "whitespace", in: "  Blue \t\n Monday  ", want: "Blue Monday"},
		{name: "markup", in: "<b>Blue</b> Monday", want: "Blue Monday"},
		{name: "entities", in: "Rock &amp; Roll", want: "Rock & Roll"},
		{name: "zero width", in: "Blue\u200bMon\ufeffday", want: "BlueMonday"},
		{name: "control", in: "Blue\x00 Monday\x07", want: "Blue Monday"},
		{name: "compatibility forms", in: "\ufb01le \uff2donday", want: "file Monday"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeText(tt.in))
		})
	}
}

func TestDedupeVideos(t *testing.T) {
	videos := []Video{
		{URI: "https://youtu.be/a", Title: " First  "},
		{URI: "https://youtu.be/b", Title: "Second"},
		{URI: "https://youtu.be/a", Title: "Duplicate"},
		{URI: "", Title: "No URI"},
	}

	got := DedupeVideos(videos)
	require.Len(t, got, 2)
	assert.Equal(t, "First", got[0].Title)
	assert.Equal(t, "https://youtu.be/b", got[1].URI)
}

func TestReleaseVideos(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/releases/42", r.URL.Path)
		w.Write([]byte(`{"id": 42, "title": "T", "videos": [
			{"uri": "https://youtu.be/x", "title": "A &amp; B", "duration": 100},
			{"uri": "https://youtu.be/x", "title": "again"}
		]}`))
	}))

	videos, err := c.ReleaseVideos(context.Background(), 42, nil)
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "A & B", videos[0].Title)
	assert.Equal(t, 100, videos[0].Duration)

	_, err = c.ReleaseVideos(context.Background(), 0, nil)
	assert.Error(t, err)
}

func TestReleaseNotFound(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message": "Release not found."}`))
	}))

	_, err := c.Release(context.Background(), 7, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrReleaseNotFound)
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
}
