package ui

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"inkdrop/api"
	"inkdrop/catalog"
	"inkdrop/kindle"
	"inkdrop/sources"
)

type AppState int

const (
	StateBrowse AppState = iota
	StateDetail
	StateEdit
)

// Deps is the injected dependency container; no package-level singletons so
// models stay testable without a live server or terminal.
type Deps struct {
	API    *api.Client
	Source *sources.Source
	Kindle *kindle.Sender
	Cache  *catalog.Cache
	Loader *catalog.Loader
	Memory *catalog.ScrollMemory
	Ctrl   *catalog.Controller
}

type AppModel struct {
	state    AppState
	browseUI BrowseModel
	detailUI DetailModel
	editUI   EditModel
}

// ---------------- Async messages ----------------

type errMsg struct{ err error }

// reconcileTickMsg drives the controller's state machine between events:
// debounced page writes and delete-animation purges both need a clock.
type reconcileTickMsg time.Time

type pagesLoadedMsg struct{}

type statsMsg api.Stats

type bookDeletedMsg struct {
	id  int64
	err error
}

type booksDeletedMsg struct {
	result api.BulkDeleteResult
	err    error
}

type detailsMsg struct{ book catalog.Book }

type bookSavedMsg struct {
	book catalog.Book
	err  error
}

type kindleSentMsg struct {
	title string
	err   error
}

type downloadedMsg struct {
	path string
	err  error
}

type uploadedMsg struct {
	path string
	err  error
}

type sourceResultsMsg struct {
	query string
	books []catalog.Book
}

type grabbedMsg struct {
	title string
	err   error
}

func reconcileTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return reconcileTickMsg(t)
	})
}

// ---------------- App model ----------------

func NewAppModel(deps Deps) AppModel {
	return AppModel{
		state:    StateBrowse,
		browseUI: NewBrowseModel(deps),
	}
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.browseUI.Init(), reconcileTick())
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.state {
	case StateBrowse:
		return m.handleStateBrowse(msg)
	case StateDetail:
		return m.handleStateDetail(msg)
	case StateEdit:
		return m.handleStateEdit(msg)
	default:
		return m, nil
	}
}

func (m AppModel) handleStateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.browseUI, cmd = m.browseUI.Update(msg)

	switch tm := msg.(type) {
	case detailsMsg:
		m.browseUI.deps.Ctrl.HandleBookClick(tm.book)
		m.detailUI = NewDetailModel(m.browseUI.deps, tm.book, m.browseUI.width, m.browseUI.height)
		m.state = StateDetail
	case reconcileTickMsg:
		cmd = tea.Batch(cmd, reconcileTick())
	}

	return m, cmd
}

func (m AppModel) handleStateDetail(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The browse model keeps absorbing loader and animation messages so the
	// list underneath stays current while the overlay is up.
	switch tm := msg.(type) {
	case reconcileTickMsg, pagesLoadedMsg, bookDeletedMsg, booksDeletedMsg, statsMsg:
		var cmd tea.Cmd
		m.browseUI, cmd = m.browseUI.Update(tm)
		if _, ok := tm.(reconcileTickMsg); ok {
			cmd = tea.Batch(cmd, reconcileTick())
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.detailUI, cmd = m.detailUI.Update(msg)

	switch tm := msg.(type) {
	case tea.KeyMsg:
		switch tm.String() {
		case "esc", "q":
			m.browseUI.deps.Ctrl.CloseModal()
			m.state = StateBrowse
		case "e":
			m.editUI = NewEditModel(m.browseUI.deps, m.detailUI.book, m.browseUI.width, m.browseUI.height)
			m.state = StateEdit
		}
	case tea.WindowSizeMsg:
		m.browseUI, _ = m.browseUI.Update(tm)
	}

	return m, cmd
}

func (m AppModel) handleStateEdit(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.editUI, cmd = m.editUI.Update(msg)

	switch tm := msg.(type) {
	case tea.KeyMsg:
		if tm.String() == "esc" {
			m.state = StateDetail
		}
	case bookSavedMsg:
		if tm.err != nil {
			m.editUI.saveErr = tm.err
			break
		}
		m.browseUI.deps.Ctrl.HandleBookUpdated(tm.book)
		m.detailUI.book = tm.book
		m.browseUI.status = fmt.Sprintf("Saved %q", tm.book.Title)
		m.state = StateDetail
	}

	return m, cmd
}

func (m AppModel) View() string {
	switch m.state {
	case StateBrowse:
		return m.browseUI.View()
	case StateDetail:
		return m.detailUI.View()
	case StateEdit:
		return m.editUI.View()
	default:
		return "unknown state"
	}
}

func RunApp(deps Deps) {
	app := NewAppModel(deps)

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Println("Error running program:", err)
		os.Exit(1)
	}
}
