package tasks

import (
	"fmt"
	"sync"

	"github.com/desertthunder/crate/internal/models"
)

// ProgressUpdate represents a progress event during a sync run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Pipeline stage
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data, the [models.Summary] on Done
}

// Phase is a stage of the sync pipeline.
type Phase int

const (
	ResolveUser Phase = iota
	FetchCollection
	EnsureCollection
	ExtractEntities
	UpsertEntities
	MaterializeRelations
	Done
)

func (p Phase) String() string {
	switch p {
	case ResolveUser:
		return "resolve_user"
	case FetchCollection:
		return "fetch_collection"
	case EnsureCollection:
		return "ensure_collection"
	case ExtractEntities:
		return "extract_entities"
	case UpsertEntities:
		return "upsert_entities"
	case MaterializeRelations:
		return "materialize_relations"
	case Done:
		return "done"
	default:
		return ""
	}
}

// reporter forwards updates to a caller's channel until stopped.
//
// Writers that outlive the run (page fetches or inserts still in flight after a
// failed join) are silenced by stop, so the caller may close the channel as soon
// as Synchronize returns.
type reporter struct {
	mu      sync.Mutex
	ch      chan<- ProgressUpdate
	stopped bool
}

func newReporter(ch chan<- ProgressUpdate) *reporter {
	return &reporter{ch: ch}
}

// send delivers update without blocking.
func (r *reporter) send(update ProgressUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch == nil || r.stopped {
		return
	}
	select {
	case r.ch <- update:
	default:
	}
}

func (r *reporter) stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
}

func resolveUserUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveUser,
		Step:    1,
		Total:   1,
		Message: "Resolving user credentials...",
	}
}

func fetchPageUpdate(page, pages int, username string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchCollection,
		Step:    page,
		Total:   pages,
		Message: fmt.Sprintf("[%d/%d] Fetched collection page for %s", page, pages, username),
	}
}

func fetchedCollectionUpdate(entries int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchCollection,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetched %d collection entries", entries),
	}
}

func ensureCollectionUpdate(created bool) ProgressUpdate {
	msg := "Using existing collection"
	if created {
		msg = "Created collection"
	}
	return ProgressUpdate{
		Phase:   EnsureCollection,
		Step:    1,
		Total:   1,
		Message: msg,
	}
}

func extractUpdate(e *Entities) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExtractEntities,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Extracted %d releases, %d artists, %d labels", len(e.Releases), len(e.Artists), len(e.Labels)),
	}
}

func insertUpdate(phase Phase, step, total int, kind models.Kind, inserted int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s: %d new", step, total, kind, inserted),
	}
}

func doneUpdate(summary *models.Summary) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Synced %d new rows for %s", summary.Synced.Total(), summary.User.Username),
		Data:    summary,
	}
}
