package main

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/desertthunder/crate/internal/ui"
)

const tuiLogFile = "crate-tui.log"

// logToFile redirects logging to a file so output does not interfere with TUI rendering.
//
// It must run before [Runner.open] so the engine and client pick up the file logger.
func (r *Runner) logToFile() error {
	if r.logFile != nil {
		return nil
	}

	logPath := r.config.Log.File
	if logPath == "" {
		logPath = filepath.Join("tmp", tuiLogFile)
	}
	fileLogger, f, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)
	r.logFile = f
	return nil
}

// runTUI launches the interactive terminal UI for user. With sync set the run starts immediately.
func (r *Runner) runTUI(ctx context.Context, user *models.User, sync bool) error {
	if r.engine == nil {
		return fmt.Errorf("%w: engine not initialized", shared.ErrServiceUnavailable)
	}

	model := ui.NewModel(ctx, r.engine, r.collection, ui.Options{
		UserID:      user.ID(),
		Username:    user.Username(),
		SyncOnStart: sync,
	})

	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	if sync {
		return model.Err()
	}
	return nil
}
