package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/crate/internal/formatter"
	"github.com/desertthunder/crate/internal/tasks"
)

// Sync mirrors one user's remote collection into the catalog store.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("tui") {
		if err := r.logToFile(); err != nil {
			return err
		}
	}
	if err := r.open(ctx); err != nil {
		return err
	}

	user, err := r.resolveUser(ctx, cmd.String("user"))
	if err != nil {
		return err
	}

	if cmd.Bool("tui") {
		return r.runTUI(ctx, user, true)
	}

	useJSON := cmd.Bool("json")
	verbose := !useJSON && !cmd.Bool("quiet")

	r.logger.Info("starting sync", "user", user.Username())
	if verbose {
		r.writePlain("Synchronizing collection for %s...\n\n", user.Username())
	}

	progressCh := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			if verbose {
				r.printProgress(update)
			}
		}
	}()

	// Synchronize stops sending before it returns, so closing here is safe.
	summary, err := r.engine.Synchronize(ctx, user.ID(), progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(summary, cmd.Bool("pretty"))
	}

	r.writePlain("\n")
	r.writePlainHeader("Sync Complete!")
	return formatter.WriteSummary(r.output, summary)
}

func (r *Runner) printProgress(update tasks.ProgressUpdate) {
	switch update.Phase {
	case tasks.ResolveUser:
		r.writePlain("👤 %s\n", update.Message)
	case tasks.FetchCollection:
		r.writePlain("📥 %s\n", update.Message)
	case tasks.EnsureCollection:
		r.writePlain("🗂  %s\n", update.Message)
	case tasks.ExtractEntities:
		r.writePlain("🔍 %s\n", update.Message)
	case tasks.UpsertEntities, tasks.MaterializeRelations:
		r.writePlain("   [%d/%d] %s\n", update.Step, update.Total, update.Message)
	case tasks.Done:
		r.writePlain("✓ %s\n", update.Message)
	}
}
