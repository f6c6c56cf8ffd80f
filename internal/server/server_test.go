package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/desertthunder/crate/internal/discogs"
	"github.com/desertthunder/crate/internal/metrics"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/desertthunder/crate/internal/tasks"
)

type fakeEngine struct {
	summary *models.Summary
	err     error
	userID  string
}

func (f *fakeEngine) Synchronize(_ context.Context, userID string, _ chan<- tasks.ProgressUpdate) (*models.Summary, error) {
	f.userID = userID
	return f.summary, f.err
}

type fakeCatalog struct {
	filter   models.ReleaseFilter
	releases []models.ReleaseView
	stats    *models.CollectionStats
	err      error
}

func (f *fakeCatalog) ListReleases(_ context.Context, _ string, filter models.ReleaseFilter) ([]models.ReleaseView, int, error) {
	f.filter = filter
	return f.releases, len(f.releases), f.err
}

func (f *fakeCatalog) Stats(context.Context, string) (*models.CollectionStats, error) {
	return f.stats, f.err
}

func newTestHandler(engine *fakeEngine, catalog *fakeCatalog) http.Handler {
	return NewHandler(Services{Engine: engine, Catalog: catalog, Logger: log.New(io.Discard)})
}

func TestBasicRouter(t *testing.T) {
	t.Run("middleware wraps in registration order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mark("first"), mark("second"))
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

		if got := strings.Join(order, ","); got != "first,second,handler" {
			t.Errorf("expected first,second,handler, got %s", got)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodPost, "/users/{id}/sync", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/u1/sync", nil))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("path values", func(t *testing.T) {
		router := NewBasicRouter()
		var got string
		router.Handle(http.MethodGet, "/users/{id}/releases", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.PathValue("id")
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users/abc-123/releases", nil))

		if got != "abc-123" {
			t.Errorf("expected path value abc-123, got %q", got)
		}
	})
}

func TestAPISync(t *testing.T) {
	summary := &models.Summary{
		User:       models.SummaryUser{Username: "digger"},
		Collection: models.SummaryCollection{Created: true},
		Synced:     models.SyncCounts{Releases: 2, Artists: 2, ReleaseArtists: 3},
	}

	t.Run("success", func(t *testing.T) {
		engine := &fakeEngine{summary: summary}
		rec := httptest.NewRecorder()
		newTestHandler(engine, &fakeCatalog{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users/u1/sync", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if engine.userID != "u1" {
			t.Errorf("expected engine called for u1, got %q", engine.userID)
		}

		var got models.Summary
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("failed to decode summary: %v", err)
		}
		if got != *summary {
			t.Errorf("expected %+v, got %+v", *summary, got)
		}
		if !strings.Contains(rec.Body.String(), `"releaseArtists":3`) {
			t.Errorf("expected camelCase count keys, got %s", rec.Body.String())
		}
	})

	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantStage string
	}{
		{
			name:      "unknown user",
			err:       &tasks.StageError{Stage: tasks.ResolveUser, Err: fmt.Errorf("%w: u1", shared.ErrUserNotFound)},
			wantCode:  http.StatusNotFound,
			wantStage: "resolve_user",
		},
		{
			name:      "missing credentials",
			err:       &tasks.StageError{Stage: tasks.ResolveUser, Err: shared.ErrMissingCredentials},
			wantCode:  http.StatusPreconditionFailed,
			wantStage: "resolve_user",
		},
		{
			name:      "upstream unavailable",
			err:       &tasks.StageError{Stage: tasks.FetchCollection, Err: fmt.Errorf("page 2: %w", shared.ErrServiceUnavailable)},
			wantCode:  http.StatusServiceUnavailable,
			wantStage: "fetch_collection",
		},
		{
			name:      "malformed entry",
			err:       &tasks.StageError{Stage: tasks.ExtractEntities, Err: &tasks.MalformedEntryError{Index: 3, Err: shared.ErrInvalidInput}},
			wantCode:  http.StatusBadGateway,
			wantStage: "extract_entities",
		},
		{
			name:     "store failure",
			err:      errors.New("database is locked"),
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newTestHandler(&fakeEngine{err: tt.err}, &fakeCatalog{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users/u1/sync", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}

			var body errorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to decode error: %v", err)
			}
			if body.Stage != tt.wantStage {
				t.Errorf("expected stage %q, got %q", tt.wantStage, body.Stage)
			}
			if body.Error == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestAPIReleases(t *testing.T) {
	t.Run("filters from query", func(t *testing.T) {
		catalog := &fakeCatalog{releases: []models.ReleaseView{
			{Release: models.Release{ID: 1, Title: "Closer", Year: 1980}, Artists: []string{"Joy Division"}},
		}}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/users/u1/releases?artist=Joy&genre=Rock&year=1980&q=clo&limit=10&offset=20", nil)
		newTestHandler(&fakeEngine{}, catalog).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		want := models.ReleaseFilter{Artist: "Joy", Genre: "Rock", Year: 1980, Query: "clo", Limit: 10, Offset: 20}
		if catalog.filter != want {
			t.Errorf("expected filter %+v, got %+v", want, catalog.filter)
		}

		var body releasesBody
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if body.Total != 1 || len(body.Releases) != 1 || body.Releases[0].Title != "Closer" {
			t.Errorf("unexpected body %+v", body)
		}
	})

	t.Run("empty list is an array", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newTestHandler(&fakeEngine{}, &fakeCatalog{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/u1/releases", nil))

		if !strings.Contains(rec.Body.String(), `"releases":[]`) {
			t.Errorf("expected empty releases array, got %s", rec.Body.String())
		}
	})

	for _, query := range []string{"limit=ten", "offset=-1", "year=nineteen"} {
		t.Run("invalid "+query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newTestHandler(&fakeEngine{}, &fakeCatalog{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/u1/releases?"+query, nil))

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestAPIStatsAndHealth(t *testing.T) {
	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	catalog := &fakeCatalog{stats: &models.CollectionStats{Releases: 3, Artists: 2, Since: since}}
	handler := newTestHandler(&fakeEngine{}, catalog)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/u1/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var stats models.CollectionStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if stats.Releases != 3 || !stats.Since.Equal(since) {
		t.Errorf("unexpected stats %+v", stats)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("unexpected health response %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAPIWithoutCatalog(t *testing.T) {
	handler := NewHandler(Services{Engine: &fakeEngine{}, Logger: log.New(io.Discard)})

	for _, path := range []string{"/users/u1/releases", "/users/u1/stats"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotImplemented {
			t.Errorf("%s: expected 501, got %d", path, rec.Code)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	handler := NewHandler(Services{
		Engine:   &fakeEngine{summary: &models.Summary{}},
		Catalog:  &fakeCatalog{},
		Gatherer: reg,
		Metrics:  m,
		Logger:   log.New(io.Discard),
	})

	for range 2 {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/users/u1/sync", nil))
	}

	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "POST /users/{id}/sync", "200")); got != 2 {
		t.Errorf("expected 2 sync requests counted, got %v", got)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "crate_http_requests_total") {
		t.Errorf("expected http request counter in exposition, got:\n%s", rec.Body.String())
	}
}

type fakeExchanger struct {
	token    *discogs.Credentials
	err      error
	verifier string
}

func (f *fakeExchanger) AccessToken(_ context.Context, _ *discogs.Credentials, verifier string) (*discogs.Credentials, error) {
	f.verifier = verifier
	return f.token, f.err
}

func TestOAuthHandler(t *testing.T) {
	requestToken := &discogs.Credentials{Token: "req-token", TokenSecret: "req-secret"}

	t.Run("exchanges verifier", func(t *testing.T) {
		exchanger := &fakeExchanger{token: &discogs.Credentials{Token: "access", TokenSecret: "secret"}}
		h := NewOAuthHandler(exchanger, requestToken)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?oauth_token=req-token&oauth_verifier=v123", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if exchanger.verifier != "v123" {
			t.Errorf("expected verifier v123, got %q", exchanger.verifier)
		}

		result := <-h.Result()
		if result.Error() != nil {
			t.Fatalf("unexpected error: %v", result.Error())
		}
		if result.Token.Token != "access" {
			t.Errorf("expected access token, got %+v", result.Token)
		}

		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?oauth_token=req-token&oauth_verifier=v123", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected replayed callback to be rejected, got %d", rec.Code)
		}
	})

	tests := []struct {
		name     string
		query    string
		err      error
		wantCode int
	}{
		{name: "token mismatch", query: "oauth_token=other&oauth_verifier=v", wantCode: http.StatusBadRequest},
		{name: "missing verifier", query: "oauth_token=req-token", wantCode: http.StatusBadRequest},
		{name: "denied", query: "denied=req-token", wantCode: http.StatusBadRequest},
		{name: "exchange fails", query: "oauth_token=req-token&oauth_verifier=v", err: shared.ErrAuthFailed, wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewOAuthHandler(&fakeExchanger{err: tt.err}, requestToken)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?"+tt.query, nil))

			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			result := <-h.Result()
			if result.Error() == nil {
				t.Error("expected error result")
			}
			if tt.err != nil && !errors.Is(result.Error(), tt.err) {
				t.Errorf("expected %v in chain, got %v", tt.err, result.Error())
			}
		})
	}
}
