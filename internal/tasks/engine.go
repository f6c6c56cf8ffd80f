package tasks

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/desertthunder/crate/internal/discogs"
	"github.com/desertthunder/crate/internal/metrics"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

const defaultWriteConcurrency = 5

// CredentialsProvider resolves a local user with their stored access token.
//
// Implementations return [shared.ErrUserNotFound] or [shared.ErrMissingCredentials]
// before any network call is made.
type CredentialsProvider interface {
	Credentials(ctx context.Context, userID string) (*models.User, error)
}

// Store persists the catalog. Both methods must be idempotent.
type Store interface {
	FindOrCreateCollection(ctx context.Context, userID string) (*models.Collection, bool, error)
	InsertIgnoring(ctx context.Context, kind models.Kind, records []models.Record) (int, error)
}

// CollectionFetcher returns a user's whole remote collection in page order.
type CollectionFetcher interface {
	FetchCollection(ctx context.Context, username string, perPage int, creds *discogs.Credentials, onPage func(page, pages int)) ([]discogs.CollectionEntry, error)
}

// StageError records the pipeline stage a sync failed in.
type StageError struct {
	Stage Phase
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("sync failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// EngineOptions configures a [CatalogEngine]. Zero values fall back to defaults.
type EngineOptions struct {
	PageSize         int           // Collection page size, at most [discogs.DefaultPageSize]
	WriteConcurrency int           // Concurrent inserts per join group
	RunTimeout       time.Duration // Upper bound on one run, zero for none
	Logger           *log.Logger
	Metrics          *metrics.Metrics
}

// CatalogEngine synchronizes remote collections into a [Store].
type CatalogEngine struct {
	users            CredentialsProvider
	store            Store
	fetcher          CollectionFetcher
	pageSize         int
	writeConcurrency int
	runTimeout       time.Duration
	logger           *log.Logger
	metrics          *metrics.Metrics
	inflight         singleflight.Group
}

// NewCatalogEngine creates a [CatalogEngine] over the given collaborators.
func NewCatalogEngine(users CredentialsProvider, store Store, fetcher CollectionFetcher, opts EngineOptions) *CatalogEngine {
	e := &CatalogEngine{
		users:            users,
		store:            store,
		fetcher:          fetcher,
		pageSize:         opts.PageSize,
		writeConcurrency: opts.WriteConcurrency,
		runTimeout:       opts.RunTimeout,
		logger:           opts.Logger,
		metrics:          opts.Metrics,
	}

	if e.pageSize <= 0 || e.pageSize > discogs.DefaultPageSize {
		e.pageSize = discogs.DefaultPageSize
	}
	if e.writeConcurrency <= 0 {
		e.writeConcurrency = defaultWriteConcurrency
	}
	if e.logger == nil {
		e.logger = shared.NewLogger(nil)
	}
	return e
}

// Synchronize mirrors userID's remote collection into the store and returns what was newly inserted.
//
// The first failing stage ends the run with a [*StageError] wrapping the cause.
// Rows written before the failure stay in place. A call made while a run for the
// same user is in flight waits for that run and returns its result.
//
// The run outlives the caller that started it: cancelling ctx returns ctx.Err()
// to that caller only, and the run keeps going for everyone else waiting on it.
func (e *CatalogEngine) Synchronize(ctx context.Context, userID string, progress chan<- ProgressUpdate) (*models.Summary, error) {
	if userID == "" {
		return nil, &StageError{Stage: ResolveUser, Err: fmt.Errorf("%w: user id", shared.ErrMissingArgument)}
	}

	// Only the caller that starts a run is reported to. Stopping on every
	// return path lets callers close progress even if the run is still going.
	rep := newReporter(progress)
	defer rep.stop()

	ch := e.inflight.DoChan(userID, func() (any, error) {
		runCtx, cancel := e.runContext(ctx)
		defer cancel()
		return e.run(runCtx, userID, rep)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			e.logger.Debug("shared in-flight sync", "user", userID)
		}
		summary := *res.Val.(*models.Summary)
		return &summary, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// runContext detaches a run from its starter's cancellation, keeping its values.
func (e *CatalogEngine) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if e.runTimeout > 0 {
		return context.WithTimeout(detached, e.runTimeout)
	}
	return context.WithCancel(detached)
}

func (e *CatalogEngine) run(ctx context.Context, userID string, rep *reporter) (summary *models.Summary, err error) {
	logger := shared.WithLogger(e.logger, "user", userID, "run", shared.GenerateID())
	finish := e.metrics.SyncStarted()
	start := time.Now()

	defer func() {
		rep.stop()
		if err != nil {
			finish("failure")
			logger.Error("sync failed", "error", err, "kind", discogs.KindOf(err), "duration", time.Since(start))
			return
		}
		finish("success")
		logger.Info("sync complete", "new_rows", summary.Synced.Total(), "duration", time.Since(start))
	}()

	rep.send(resolveUserUpdate())
	user, err := e.users.Credentials(ctx, userID)
	if err != nil {
		return nil, &StageError{Stage: ResolveUser, Err: err}
	}
	creds := &discogs.Credentials{Token: user.AccessToken(), TokenSecret: user.AccessTokenSecret()}

	logger.Debug("fetching collection", "username", user.Username(), "page_size", e.pageSize)
	entries, err := e.fetcher.FetchCollection(ctx, user.Username(), e.pageSize, creds, func(page, pages int) {
		rep.send(fetchPageUpdate(page, pages, user.Username()))
	})
	if err != nil {
		return nil, &StageError{Stage: FetchCollection, Err: err}
	}
	rep.send(fetchedCollectionUpdate(len(entries)))

	collection, created, err := e.store.FindOrCreateCollection(ctx, userID)
	if err != nil {
		return nil, &StageError{Stage: EnsureCollection, Err: err}
	}
	rep.send(ensureCollectionUpdate(created))

	entities, err := Extract(entries)
	if err != nil {
		return nil, &StageError{Stage: ExtractEntities, Err: err}
	}
	rep.send(extractUpdate(entities))

	counts := models.SyncCounts{}
	if err := e.insertAll(ctx, UpsertEntities, entities.Datasets(), &counts, rep); err != nil {
		return nil, &StageError{Stage: UpsertEntities, Err: err}
	}
	logger.Debug("entities stored", "releases", counts.Releases, "artists", counts.Artists, "labels", counts.Labels)

	if err := e.materializeRelations(ctx, entries, collection.ID, &counts, rep); err != nil {
		return nil, &StageError{Stage: MaterializeRelations, Err: err}
	}

	summary = &models.Summary{
		User:       models.SummaryUser{Username: user.Username()},
		Collection: models.SummaryCollection{Created: created},
		Synced:     counts,
	}
	rep.send(doneUpdate(summary))
	return summary, nil
}

// materializeRelations writes the junction rows. Every referenced entity and the collection must already exist.
func (e *CatalogEngine) materializeRelations(ctx context.Context, entries []discogs.CollectionEntry, collectionID string, counts *models.SyncCounts, rep *reporter) error {
	relations := BuildRelations(entries, collectionID)
	return e.insertAll(ctx, MaterializeRelations, relations.Datasets(), counts, rep)
}

// insertAll inserts each dataset concurrently behind one join barrier and records per-kind counts.
//
// counts is only updated when every insert succeeded.
func (e *CatalogEngine) insertAll(ctx context.Context, phase Phase, datasets []Dataset, counts *models.SyncCounts, rep *reporter) error {
	inserted := make([]int, len(datasets))
	var finished atomic.Int32

	tasks := make([]shared.Task, len(datasets))
	for i, ds := range datasets {
		tasks[i] = func(ctx context.Context) error {
			n, err := e.store.InsertIgnoring(ctx, ds.Kind, ds.Records)
			if err != nil {
				return fmt.Errorf("failed to store %s: %w", ds.Kind, err)
			}
			inserted[i] = n
			rep.send(insertUpdate(phase, int(finished.Add(1)), len(datasets), ds.Kind, n))
			return nil
		}
	}

	if err := shared.Join(ctx, e.writeConcurrency, tasks...); err != nil {
		return err
	}

	for i, ds := range datasets {
		counts.Set(ds.Kind, inserted[i])
		e.metrics.AddRows(ds.Kind.String(), inserted[i])
	}
	return nil
}
