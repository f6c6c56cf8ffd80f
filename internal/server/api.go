package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/desertthunder/crate/internal/metrics"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/desertthunder/crate/internal/tasks"
)

// Synchronizer runs a collection sync for one user.
type Synchronizer interface {
	Synchronize(ctx context.Context, userID string, progress chan<- tasks.ProgressUpdate) (*models.Summary, error)
}

// CatalogReader serves already-synced collection data.
type CatalogReader interface {
	ListReleases(ctx context.Context, userID string, f models.ReleaseFilter) ([]models.ReleaseView, int, error)
	Stats(ctx context.Context, userID string) (*models.CollectionStats, error)
}

// Services are the collaborators behind the HTTP API.
type Services struct {
	Engine   Synchronizer
	Catalog  CatalogReader
	Gatherer prometheus.Gatherer // Served on /metrics when set
	Metrics  *metrics.Metrics
	Logger   *log.Logger
}

type errorBody struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

type releasesBody struct {
	Releases []models.ReleaseView `json:"releases"`
	Total    int                  `json:"total"`
	Limit    int                  `json:"limit"`
	Offset   int                  `json:"offset"`
}

// API serves sync and read requests.
type API struct {
	engine  Synchronizer
	catalog CatalogReader
	logger  *log.Logger
}

// NewHandler builds the routed, instrumented HTTP handler for s.
func NewHandler(s Services) http.Handler {
	logger := s.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	api := &API{engine: s.Engine, catalog: s.Catalog, logger: logger}

	router := NewBasicRouter()
	router.Use(Recover(logger), Logging(logger), Instrument(s.Metrics))
	api.Register(router)

	if s.Gatherer != nil {
		router.Handle(http.MethodGet, "/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	return router
}

// Register adds the API routes to router.
func (a *API) Register(router Router) {
	router.Handle(http.MethodGet, "/health", http.HandlerFunc(a.Health))
	router.Handle(http.MethodPost, "/users/{id}/sync", http.HandlerFunc(a.Sync))
	if a.catalog == nil {
		router.Handle(http.MethodGet, "/users/{id}/releases", http.HandlerFunc(a.readsDisabled))
		router.Handle(http.MethodGet, "/users/{id}/stats", http.HandlerFunc(a.readsDisabled))
		return
	}
	router.Handle(http.MethodGet, "/users/{id}/releases", http.HandlerFunc(a.Releases))
	router.Handle(http.MethodGet, "/users/{id}/stats", http.HandlerFunc(a.Stats))
}

func (a *API) readsDisabled(w http.ResponseWriter, r *http.Request) {
	a.writeError(w, r, fmt.Errorf("%w: no catalog reader configured", shared.ErrNotImplemented))
}

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "crate"})
}

// Sync runs a synchronization for the user in the path and responds with its summary.
func (a *API) Sync(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")

	summary, err := a.engine.Synchronize(r.Context(), userID, nil)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Releases lists the user's synced releases. Filters come from the query string.
func (a *API) Releases(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	releases, total, err := a.catalog.ListReleases(r.Context(), r.PathValue("id"), f)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if releases == nil {
		releases = []models.ReleaseView{}
	}
	writeJSON(w, http.StatusOK, releasesBody{Releases: releases, Total: total, Limit: f.Limit, Offset: f.Offset})
}

func (a *API) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.catalog.Stats(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func parseFilter(r *http.Request) (models.ReleaseFilter, error) {
	q := r.URL.Query()
	f := models.ReleaseFilter{
		Artist: q.Get("artist"),
		Label:  q.Get("label"),
		Genre:  q.Get("genre"),
		Style:  q.Get("style"),
		Query:  q.Get("q"),
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"year", &f.Year},
		{"limit", &f.Limit},
		{"offset", &f.Offset},
	}
	for _, p := range ints {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("%w: %s must be a non-negative integer", shared.ErrInvalidArgument, p.name)
		}
		*p.dst = n
	}
	return f, nil
}

// statusFor maps an error to the HTTP status reported to the caller.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrInvalidInput) && !errors.Is(err, shared.ErrMalformedEntry):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrMissingCredentials):
		return http.StatusPreconditionFailed
	case errors.Is(err, shared.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, shared.ErrMalformedEntry),
		errors.Is(err, shared.ErrMalformedResponse),
		errors.Is(err, shared.ErrAPIRequest):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, shared.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, shared.ErrNotImplemented):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}

	var stageErr *tasks.StageError
	if errors.As(err, &stageErr) {
		body.Stage = stageErr.Stage.String()
	}

	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	} else {
		a.logger.Warn("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
