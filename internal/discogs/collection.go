package discogs

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/crate/internal/shared"
)

// DefaultPageSize is the largest page the collection endpoint serves.
const DefaultPageSize = 100

// maxCollectionPages bounds the page count accepted from page 1 metadata.
const maxCollectionPages = 10_000

func collectionEndpoint(username string, page, perPage int) string {
	return fmt.Sprintf("/users/%s/collection/folders/0/releases?page=%d&per_page=%d",
		url.PathEscape(username), page, perPage)
}

// CollectionPage fetches a single page of username's collection (folder 0, all items).
func (c *Client) CollectionPage(ctx context.Context, username string, page, perPage int, creds *Credentials) (*CollectionPage, error) {
	var result CollectionPage
	if err := c.Call(ctx, http.MethodGet, collectionEndpoint(username, page, perPage), nil, creds, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FetchCollection returns every entry of username's collection in page order.
//
// Page 1 is fetched first to learn the page count, then pages 2..N are fetched
// concurrently. Entries keep their page and in-page order regardless of which
// request finishes first. Any page failure fails the whole fetch. onPage, when
// non-nil, is called after each page arrives and may run concurrently.
func (c *Client) FetchCollection(ctx context.Context, username string, perPage int, creds *Credentials, onPage func(page, pages int)) ([]CollectionEntry, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username", shared.ErrMissingArgument)
	}
	if perPage <= 0 {
		perPage = DefaultPageSize
	}

	first, err := c.CollectionPage(ctx, username, 1, perPage, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch collection page 1: %w", err)
	}

	pages, err := pageCount(first.Pagination, perPage)
	if err != nil {
		return nil, newMalformedError(http.MethodGet, collectionEndpoint(username, 1, perPage), err)
	}
	if onPage != nil {
		onPage(1, pages)
	}

	results := make([][]CollectionEntry, pages)
	results[0] = first.Releases

	tasks := make([]shared.Task, 0, pages-1)
	for page := 2; page <= pages; page++ {
		tasks = append(tasks, func(ctx context.Context) error {
			p, err := c.CollectionPage(ctx, username, page, perPage, creds)
			if err != nil {
				return fmt.Errorf("failed to fetch collection page %d: %w", page, err)
			}
			results[page-1] = p.Releases
			if onPage != nil {
				onPage(page, pages)
			}
			return nil
		})
	}

	if err := shared.Join(ctx, c.fetchConcurrency, tasks...); err != nil {
		return nil, err
	}

	var entries []CollectionEntry
	for _, r := range results {
		entries = append(entries, r...)
	}

	c.logger.Debug("fetched collection", "username", username, "pages", pages, "entries", len(entries))
	return entries, nil
}

// pageCount returns how many pages to fetch, rejecting counts that disagree
// with the reported item total.
func pageCount(p Pagination, perPage int) (int, error) {
	if p.PerPage > 0 {
		perPage = p.PerPage
	}
	if p.Pages < 0 || p.Items < 0 {
		return 0, fmt.Errorf("negative pagination: pages=%d items=%d", p.Pages, p.Items)
	}
	expected := max((p.Items+perPage-1)/perPage, 1)
	if p.Pages > expected || p.Pages > maxCollectionPages {
		return 0, fmt.Errorf("pagination reports %d pages for %d items of %d per page", p.Pages, p.Items, perPage)
	}
	return max(p.Pages, 1), nil
}
