package discogs

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/desertthunder/crate/internal/shared"
)

var markupPattern = regexp.MustCompile(`<[^>]*>`)

// invisible matches control and zero-width characters that are not whitespace.
func invisible(r rune) bool {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff':
		return true
	}
	return unicode.IsControl(r) && !unicode.IsSpace(r)
}

// SanitizeText normalizes user-supplied text from the API for display.
//
// Entities are unescaped, markup is stripped, the result is NFKC-normalized
// with invisible characters removed, and runs of whitespace become one space.
func SanitizeText(s string) string {
	s = html.UnescapeString(s)
	s = markupPattern.ReplaceAllString(s, " ")

	t := transform.Chain(norm.NFKC, runes.Remove(runes.Predicate(invisible)))
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}

	return strings.Join(strings.Fields(s), " ")
}

// Release fetches a release by id.
func (c *Client) Release(ctx context.Context, id int64, creds *Credentials) (*Release, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: release id %d", shared.ErrInvalidArgument, id)
	}

	var release Release
	if err := c.Call(ctx, http.MethodGet, fmt.Sprintf("/releases/%d", id), nil, creds, &release); err != nil {
		if StatusOf(err) == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %d: %w", shared.ErrReleaseNotFound, id, err)
		}
		return nil, err
	}
	return &release, nil
}

// ReleaseVideos returns a release's videos deduplicated by URI (first wins) with sanitized text.
func (c *Client) ReleaseVideos(ctx context.Context, id int64, creds *Credentials) ([]Video, error) {
	release, err := c.Release(ctx, id, creds)
	if err != nil {
		return nil, err
	}
	return DedupeVideos(release.Videos), nil
}

// DedupeVideos drops repeated URIs and videos without one, and sanitizes titles and descriptions.
func DedupeVideos(videos []Video) []Video {
	seen := make(map[string]struct{}, len(videos))
	out := make([]Video, 0, len(videos))
	for _, v := range videos {
		uri := strings.TrimSpace(v.URI)
		if uri == "" {
			continue
		}
		if _, ok := seen[uri]; ok {
			continue
		}
		seen[uri] = struct{}{}

		v.URI = uri
		v.Title = SanitizeText(v.Title)
		v.Description = SanitizeText(v.Description)
		out = append(out, v)
	}
	return out
}
