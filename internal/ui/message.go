package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgReleasesLoaded MsgKind = iota
	MsgProgressUpdate
	MsgSyncComplete
)

type releasesLoaded struct {
	releases []models.ReleaseView
	total    int
	err      error
}

type syncOutcome struct {
	summary *models.Summary
	err     error
}

// releasesLoadedMsg is the constructor for [MsgReleasesLoaded]
func releasesLoadedMsg(releases []models.ReleaseView, total int, err error) Msg {
	return Msg{kind: MsgReleasesLoaded, data: releasesLoaded{releases, total, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// syncCompleteMsg is the constructor for [MsgSyncComplete]
func syncCompleteMsg(summary *models.Summary, err error) Msg {
	return Msg{kind: MsgSyncComplete, data: syncOutcome{summary, err}}
}
