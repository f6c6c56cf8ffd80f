package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ReleaseListView ViewState = iota
	DetailView
	ConfirmView
	SyncView
	ResultView
)

// Synchronizer runs a collection synchronization for one user.
type Synchronizer interface {
	Synchronize(ctx context.Context, userID string, progress chan<- tasks.ProgressUpdate) (*models.Summary, error)
}

// ReleaseLister pages through a user's stored releases.
type ReleaseLister interface {
	ListReleases(ctx context.Context, userID string, f models.ReleaseFilter) ([]models.ReleaseView, int, error)
}

// Options configures a [Model].
type Options struct {
	UserID   string
	Username string
	// Limit caps how many releases the browser loads. Zero loads everything.
	Limit int
	// SyncOnStart skips the browser and confirmation and starts a run immediately.
	SyncOnStart bool
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	engine   Synchronizer
	catalog  ReleaseLister
	opts     Options
	width    int
	height   int
	releases list.Model
	total    int
	selected *models.ReleaseView
	spinner  spinner.Model
	progress tasks.ProgressUpdate
	updates  chan tasks.ProgressUpdate
	outcome  chan syncOutcome
	summary  *models.Summary
	err      error
	help     help.Model
	keys     keyMap
}

// NewModel creates a new TUI model for one user's collection.
func NewModel(ctx context.Context, engine Synchronizer, catalog ReleaseLister, opts Options) *Model {
	m := &Model{
		ctx:     ctx,
		view:    ReleaseListView,
		engine:  engine,
		catalog: catalog,
		opts:    opts,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.title.UnsetMarginBottom())),
		help:    help.New(),
		keys:    newKeyMap(),
	}
	m.releases = m.newReleaseList(nil)
	return m
}

// Init loads the stored releases, or starts a run when [Options.SyncOnStart] is set.
func (m *Model) Init() tea.Cmd {
	if m.opts.SyncOnStart {
		m.view = SyncView
		return tea.Batch(m.spinner.Tick, m.startSync())
	}
	return m.loadReleases()
}

// Summary returns the result of the last completed run, if any.
func (m *Model) Summary() *models.Summary { return m.summary }

// Err returns the error of the last failed run or load.
func (m *Model) Err() error { return m.err }

// View returns the current view state.
func (m *Model) View() string {
	switch m.view {
	case ReleaseListView:
		return m.renderReleaseList()
	case DetailView:
		return m.renderDetail()
	case ConfirmView:
		return m.renderConfirm()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.releases.SetSize(max(msg.Width-4, 0), max(msg.Height-6, 0))
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ReleaseListView:
			return m.handleReleaseListKeys(msg)
		case DetailView:
			return m.handleDetailKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case SyncView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != SyncView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.releases, cmd = m.releases.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgReleasesLoaded:
		data := msg.data.(releasesLoaded)
		m.err = data.err
		if data.err == nil {
			m.total = data.total
			m.releases = m.newReleaseList(data.releases)
		}
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgSyncComplete:
		data := msg.data.(syncOutcome)
		m.summary = data.summary
		m.err = data.err
		m.updates = nil
		m.outcome = nil
		m.view = ResultView
		return m, nil
	}
	return m, nil
}

func (m *Model) handleReleaseListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.releases.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.releases, cmd = m.releases.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.sync):
		m.view = ConfirmView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.releases.SelectedItem().(releaseItem); ok {
			release := item.release
			m.selected = &release
			m.view = DetailView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.releases, cmd = m.releases.Update(msg)
	return m, cmd
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.selected = nil
		m.view = ReleaseListView
	}
	return m, nil
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = SyncView
		return m, tea.Batch(m.spinner.Tick, m.startSync())
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.view = ReleaseListView
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = ReleaseListView
		m.progress = tasks.ProgressUpdate{}
		m.err = nil
		return m, m.loadReleases()
	}
	return m, nil
}

func (m *Model) newReleaseList(releases []models.ReleaseView) list.Model {
	l := list.New(releaseItems(releases), list.NewDefaultDelegate(), max(m.width-4, 0), max(m.height-6, 0))
	l.Title = fmt.Sprintf("%s's collection", m.opts.Username)
	l.Styles.Title = l.Styles.Title.Background(styles.title.GetForeground())
	l.AdditionalShortHelpKeys = func() []key.Binding { return []key.Binding{m.keys.sync} }
	return l
}

func (m *Model) loadReleases() tea.Cmd {
	return func() tea.Msg {
		releases, total, err := m.catalog.ListReleases(m.ctx, m.opts.UserID, models.ReleaseFilter{Limit: m.opts.Limit})
		return releasesLoadedMsg(releases, total, err)
	}
}

// startSync runs the engine in a goroutine. updates is closed once Synchronize has returned,
// so waitForProgress drains every progress update before reading the outcome.
func (m *Model) startSync() tea.Cmd {
	m.summary = nil
	m.err = nil
	m.progress = tasks.ProgressUpdate{}
	updates := make(chan tasks.ProgressUpdate, 64)
	outcome := make(chan syncOutcome, 1)
	m.updates = updates
	m.outcome = outcome

	go func() {
		summary, err := m.engine.Synchronize(m.ctx, m.opts.UserID, updates)
		outcome <- syncOutcome{summary: summary, err: err}
		close(updates)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	updates, outcome := m.updates, m.outcome
	return func() tea.Msg {
		if updates == nil {
			return syncCompleteMsg(nil, errors.New("no synchronization running"))
		}
		if update, ok := <-updates; ok {
			return progressUpdateMsg(update)
		}
		result := <-outcome
		return syncCompleteMsg(result.summary, result.err)
	}
}

func (m *Model) footer() string {
	return m.help.ShortHelpView(m.keys.helpFor(m.view))
}

func (m *Model) renderReleaseList() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n" + m.footer()
	}
	if len(m.releases.Items()) == 0 {
		title := styles.title.Render(fmt.Sprintf("%s's collection", m.opts.Username))
		hint := styles.warn.Render("No releases stored yet. Press s to synchronize.")
		return fmt.Sprintf("%s\n%s\n\n%s", title, hint, m.footer())
	}
	footer := styles.help.Render(fmt.Sprintf("showing %d of %d releases", len(m.releases.Items()), m.total))
	return fmt.Sprintf("%s\n%s", m.releases.View(), footer)
}

func (m *Model) renderDetail() string {
	if m.selected == nil {
		return ""
	}
	r := m.selected

	var b strings.Builder
	b.WriteString(styles.title.Render(r.Title))
	b.WriteString("\n")
	row := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "%s%s\n", styles.label.Render(label), value)
	}
	row("Release ID", fmt.Sprintf("%d", r.ID))
	row("Artists", strings.Join(r.Artists, ", "))
	if r.Year > 0 {
		row("Year", fmt.Sprintf("%d", r.Year))
	}
	row("Labels", strings.Join(r.Labels, ", "))
	row("Genres", strings.Join(r.Genres, ", "))
	row("Styles", strings.Join(r.Styles, ", "))
	if !r.DateAdded.IsZero() {
		row("Added", r.DateAdded.Format("2006-01-02"))
	}

	b.WriteString("\n")
	b.WriteString(m.footer())
	return b.String()
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Synchronize %s's collection?", m.opts.Username))
	info := fmt.Sprintf("Releases stored: %d\nNew releases, artists, labels, genres and styles are added; existing rows are kept.", m.total)
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, m.footer())
}

func (m *Model) renderSync() string {
	title := styles.title.Render(fmt.Sprintf("Synchronizing %s", m.opts.Username))
	status := fmt.Sprintf("%s %s", m.spinner.View(), phaseLabel(m.progress))
	if m.progress.Message != "" {
		status += "\n" + styles.help.Render(m.progress.Message)
	}
	return fmt.Sprintf("%s\n%s\n\n%s", title, status, m.footer())
}

func (m *Model) renderResult() string {
	helpView := m.footer()

	if m.err != nil {
		msg := fmt.Sprintf("Synchronization failed: %v", m.err)
		var stageErr *tasks.StageError
		if errors.As(m.err, &stageErr) {
			msg = fmt.Sprintf("Synchronization failed during %s: %v", stageErr.Stage, stageErr.Err)
		}
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(msg), helpView)
	}
	if m.summary == nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("No result available"), helpView)
	}

	var b strings.Builder
	b.WriteString(styles.ok.Render("✓ Synchronization complete"))
	b.WriteString("\n\n")
	if m.summary.Collection.Created {
		b.WriteString(styles.warn.Render("Created a new collection") + "\n")
	}
	for _, k := range append(append([]models.Kind{}, models.EntityKinds...), models.RelationKinds...) {
		fmt.Fprintf(&b, "%s%d\n", styles.label.Width(22).Render(k.String()), m.summary.Synced.Get(k))
	}
	fmt.Fprintf(&b, "\n%d new rows\n\n%s", m.summary.Synced.Total(), helpView)
	return b.String()
}

func phaseLabel(u tasks.ProgressUpdate) string {
	switch u.Phase {
	case tasks.ResolveUser:
		return "Resolving user..."
	case tasks.FetchCollection:
		if u.Total > 0 {
			return fmt.Sprintf("Fetching collection (page %d/%d)", u.Step, u.Total)
		}
		return "Fetching collection..."
	case tasks.EnsureCollection:
		return "Preparing collection..."
	case tasks.ExtractEntities:
		return "Extracting entities..."
	case tasks.UpsertEntities:
		return fmt.Sprintf("Storing entities (%d/%d)", u.Step, u.Total)
	case tasks.MaterializeRelations:
		return fmt.Sprintf("Linking releases (%d/%d)", u.Step, u.Total)
	case tasks.Done:
		return "Finishing..."
	default:
		return "Starting..."
	}
}
