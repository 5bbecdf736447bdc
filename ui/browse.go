package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"inkdrop/api"
	"inkdrop/catalog"
	"inkdrop/utils"
)

// ---------------- BrowseModel ----------------

type BrowseModel struct {
	deps   Deps
	width  int
	height int

	tabs      []string
	activeTab int

	// library pane
	scrollRow     int
	cursor        int
	markedPages   int // highest page ever reported to the tracker
	marked        map[int64]bool
	fetching      bool
	searchInput   textinput.Model
	searchFocused bool
	pageInput     textinput.Model
	pageFocused   bool
	uploadInput   textinput.Model
	uploadFocused bool
	confirmDelete *catalog.Book
	confirmBulk   bool
	spin          spinner.Model
	stats         *api.Stats
	status        string
	lastErr       error

	// discovery tab
	discoveryInput textinput.Model
	results        list.Model
	searchLoading  bool
	grabbing       bool
}

func NewBrowseModel(deps Deps) BrowseModel {
	search := textinput.New()
	search.Prompt = "Search: "
	search.Placeholder = "title, author, tag..."
	search.PromptStyle = PromptStyle
	search.TextStyle = PromptTextStyle

	page := textinput.New()
	page.Prompt = "Go to page: "
	page.CharLimit = 6
	page.PromptStyle = PromptStyle

	upload := textinput.New()
	upload.Prompt = "Upload file: "
	upload.Placeholder = "~/books/novel.epub"
	upload.PromptStyle = PromptStyle

	discovery := textinput.New()
	discovery.Prompt = "Search: "
	discovery.Placeholder = "find books online..."
	discovery.PromptStyle = PromptStyle

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	delegate := list.NewDefaultDelegate()
	results := list.New(nil, delegate, 0, 0)
	results.SetShowTitle(false)
	results.SetShowStatusBar(false)

	return BrowseModel{
		deps:           deps,
		tabs:           []string{"Library", "Discovery", "Settings"},
		marked:         make(map[int64]bool),
		searchInput:    search,
		pageInput:      page,
		uploadInput:    upload,
		discoveryInput: discovery,
		spin:           sp,
		results:        results,
	}
}

func (m BrowseModel) Init() tea.Cmd {
	return tea.Batch(statsCmd(m.deps), m.spin.Tick)
}

// ---------------- Commands ----------------

func fetchNextCmd(deps Deps) tea.Cmd {
	return func() tea.Msg {
		if err := deps.Loader.FetchNext(context.Background()); err != nil {
			return errMsg{err}
		}
		return pagesLoadedMsg{}
	}
}

func statsCmd(deps Deps) tea.Cmd {
	return func() tea.Msg {
		v, err := deps.Cache.Fetch(context.Background(), catalog.StatsKey, func(ctx context.Context) (any, error) {
			return deps.API.Stats(ctx)
		})
		if err != nil {
			return errMsg{err}
		}
		if s, ok := v.(api.Stats); ok {
			return statsMsg(s)
		}
		return errMsg{fmt.Errorf("unexpected stats cache entry")}
	}
}

func detailsCmd(deps Deps, id int64) tea.Cmd {
	return func() tea.Msg {
		key := fmt.Sprintf("%s%d", catalog.BookDetailPrefix, id)
		v, err := deps.Cache.Fetch(context.Background(), key, func(ctx context.Context) (any, error) {
			return deps.API.BookDetails(ctx, id)
		})
		if err != nil {
			return errMsg{err}
		}
		if b, ok := v.(catalog.Book); ok {
			return detailsMsg{book: b}
		}
		return errMsg{fmt.Errorf("unexpected detail cache entry")}
	}
}

func deleteCmd(deps Deps, id int64) tea.Cmd {
	return func() tea.Msg {
		err := deps.API.DeleteBook(context.Background(), id)
		return bookDeletedMsg{id: id, err: err}
	}
}

func bulkDeleteCmd(deps Deps, ids []int64) tea.Cmd {
	return func() tea.Msg {
		res, err := deps.API.BulkDelete(context.Background(), ids)
		return booksDeletedMsg{result: res, err: err}
	}
}

func uploadCmd(deps Deps, path string) tea.Cmd {
	return func() tea.Msg {
		err := deps.API.Upload(context.Background(), utils.ExpandPath(path))
		return uploadedMsg{path: path, err: err}
	}
}

func searchSourcesCmd(deps Deps, query string) tea.Cmd {
	return func() tea.Msg {
		books, err := deps.Source.Search(context.Background(), query)
		if err != nil {
			return errMsg{err}
		}
		return sourceResultsMsg{query: query, books: books}
	}
}

// grabCmd pulls a discovery result down from its source and pushes it into
// the server's ingest pipeline.
func grabCmd(deps Deps, b catalog.Book) tea.Cmd {
	return func() tea.Msg {
		data, err := deps.Source.Fetch(context.Background(), b)
		if err != nil {
			return grabbedMsg{title: b.Title, err: err}
		}
		tmp, err := os.CreateTemp("", "inkdrop-*.epub")
		if err != nil {
			return grabbedMsg{title: b.Title, err: err}
		}
		defer os.Remove(tmp.Name())
		if _, err := tmp.Write(data); err != nil {
			tmp.Close()
			return grabbedMsg{title: b.Title, err: err}
		}
		tmp.Close()
		if err := deps.API.Upload(context.Background(), tmp.Name()); err != nil {
			return grabbedMsg{title: b.Title, err: err}
		}
		return grabbedMsg{title: b.Title}
	}
}

// ---------------- Discovery list item ----------------

type bookItem struct{ book catalog.Book }

func (i bookItem) Title() string       { return i.book.Title }
func (i bookItem) Description() string { return i.book.AuthorLine() }
func (i bookItem) FilterValue() string { return i.book.Title + " " + i.book.AuthorLine() }

// ---------------- Update ----------------

func (m BrowseModel) Update(msg tea.Msg) (BrowseModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch tm := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = tm.Width
		m.height = tm.Height
		m.results.SetSize(tm.Width-4, tm.Height-8)
		m.emitMarkers()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(tm)
		cmds = append(cmds, cmd)

	case reconcileTickMsg:
		cmds = append(cmds, m.runReconcile())

	case pagesLoadedMsg:
		m.fetching = false
		m.lastErr = nil
		m.emitMarkers()
		cmds = append(cmds, m.runReconcile())

	case errMsg:
		m.fetching = false
		m.lastErr = tm.err

	case statsMsg:
		s := api.Stats(tm)
		m.stats = &s

	case bookDeletedMsg:
		if tm.err != nil {
			m.lastErr = tm.err
			m.status = ""
			break
		}
		// Server confirmed: start the removal animation, purge follows in
		// Reconcile once the window elapses.
		m.deps.Ctrl.HandleBookDeleted(tm.id)
		m.status = "Book deleted"

	case booksDeletedMsg:
		if tm.err != nil {
			m.lastErr = tm.err
			break
		}
		// Ids the server confirmed animate out; failed ids stay in the
		// list and keep their mark so the user can retry.
		m.deps.Ctrl.HandleBooksDeleted(tm.result.Deleted)
		for _, id := range tm.result.Deleted {
			delete(m.marked, id)
		}
		if tm.result.FailedCount > 0 {
			m.lastErr = fmt.Errorf("deleted %d books, %d failed",
				len(tm.result.Deleted), tm.result.FailedCount)
			m.status = ""
		} else {
			m.status = fmt.Sprintf("Deleted %d books", len(tm.result.Deleted))
		}

	case uploadedMsg:
		if tm.err != nil {
			m.lastErr = tm.err
			break
		}
		m.deps.Ctrl.InvalidateList()
		m.status = fmt.Sprintf("Uploaded %s", filepath.Base(tm.path))
		cmds = append(cmds, statsCmd(m.deps))

	case grabbedMsg:
		m.grabbing = false
		if tm.err != nil {
			m.lastErr = tm.err
			break
		}
		m.deps.Ctrl.InvalidateList()
		m.status = fmt.Sprintf("Added %q to library", tm.title)

	case sourceResultsMsg:
		m.searchLoading = false
		items := make([]list.Item, len(tm.books))
		for i, b := range tm.books {
			items[i] = bookItem{book: b}
		}
		m.results.SetItems(items)
		m.status = fmt.Sprintf("%d results for %q", len(tm.books), tm.query)

	case tea.KeyMsg:
		return m.handleKey(tm)
	}

	return m, tea.Batch(cmds...)
}

func (m BrowseModel) handleKey(msg tea.KeyMsg) (BrowseModel, tea.Cmd) {
	// Focused inputs swallow everything except esc/enter.
	if m.searchFocused {
		return m.handleSearchKey(msg)
	}
	if m.pageFocused {
		return m.handlePageKey(msg)
	}
	if m.uploadFocused {
		return m.handleUploadKey(msg)
	}
	if m.confirmDelete != nil || m.confirmBulk {
		return m.handleConfirmKey(msg)
	}

	switch msg.String() {
	case "tab":
		m.activeTab = (m.activeTab + 1) % len(m.tabs)
		return m, nil
	case "shift+tab":
		m.activeTab = (m.activeTab + len(m.tabs) - 1) % len(m.tabs)
		return m, nil
	}

	switch m.activeTab {
	case 0:
		return m.handleLibraryKey(msg)
	case 1:
		return m.handleDiscoveryKey(msg)
	case 2:
		return m.handleSettingsKey(msg)
	}
	return m, nil
}

func (m BrowseModel) handleLibraryKey(msg tea.KeyMsg) (BrowseModel, tea.Cmd) {
	g := m.geometry()
	paneH := m.paneHeight()

	switch msg.String() {
	case "up":
		m.moveCursor(-g.cols)
	case "down":
		m.moveCursor(g.cols)
	case "left":
		if g.cols > 1 {
			m.moveCursor(-1)
		}
	case "right":
		if g.cols > 1 {
			m.moveCursor(1)
		}
	case "pgup":
		m.scrollBy(-paneH)
	case "pgdown":
		m.scrollBy(paneH)
	case "home":
		m.cursor = 0
		m.scrollRow = 0
		m.afterScroll()
	case "end":
		n := m.deps.Loader.Len()
		if n > 0 {
			m.cursor = n - 1
			m.ensureCursorVisible()
			m.afterScroll()
		}
	case "enter":
		if b, ok := m.deps.Loader.BookAt(m.cursor); ok {
			return m, detailsCmd(m.deps, b.ID)
		}
	case "/":
		m.searchFocused = true
		m.searchInput.SetValue(m.deps.Ctrl.Query().Search)
		m.searchInput.Focus()
		return m, textinput.Blink
	case "s":
		m.deps.Ctrl.HandleSortChange(m.deps.Ctrl.Query().Sort.Next())
		m.resetPane()
	case "v":
		q := m.deps.Ctrl.Query()
		next := catalog.ViewList
		if q.View == catalog.ViewList {
			next = catalog.ViewGrid
		}
		m.deps.Ctrl.HandleViewModeChange(next)
		m.emitMarkers()
	case "f":
		m.deps.Ctrl.HandleStatusChange(nextStatus(m.deps.Ctrl.Query().Status))
		m.resetPane()
	case "g":
		m.pageFocused = true
		m.pageInput.SetValue("")
		m.pageInput.Focus()
		return m, textinput.Blink
	case "u":
		m.uploadFocused = true
		m.uploadInput.SetValue("")
		m.uploadInput.Focus()
		return m, textinput.Blink
	case "x":
		if b, ok := m.deps.Loader.BookAt(m.cursor); ok {
			if m.marked[b.ID] {
				delete(m.marked, b.ID)
			} else {
				m.marked[b.ID] = true
			}
			m.moveCursor(m.geometry().cols)
		}
	case "d":
		if len(m.marked) > 0 {
			m.confirmBulk = true
		} else if b, ok := m.deps.Loader.BookAt(m.cursor); ok && !m.deps.Ctrl.Deleting(b.ID) {
			m.confirmDelete = &b
		}
	case "r":
		if m.deps.Loader.State() == catalog.LoaderError {
			m.lastErr = nil
			m.fetching = true
			return m, fetchNextCmd(m.deps)
		}
	case "R":
		m.deps.Ctrl.InvalidateList()
		m.deps.Loader.Reset(m.deps.Ctrl.Query())
		m.resetPane()
	}
	return m, m.maybeLoadMore()
}

func nextStatus(s catalog.Status) catalog.Status {
	switch s {
	case catalog.StatusAll:
		return catalog.StatusUnread
	case catalog.StatusUnread:
		return catalog.StatusReading
	case catalog.StatusReading:
		return catalog.StatusRead
	default:
		return catalog.StatusAll
	}
}

func (m BrowseModel) handleSearchKey(msg tea.KeyMsg) (BrowseModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searchFocused = false
		m.searchInput.Blur()
		return m, nil
	case "enter":
		m.searchFocused = false
		m.searchInput.Blur()
		m.deps.Ctrl.HandleSearchChange(strings.TrimSpace(m.searchInput.Value()))
		m.resetPane()
		return m, nil
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m BrowseModel) handlePageKey(msg tea.KeyMsg) (BrowseModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.pageFocused = false
		m.pageInput.Blur()
		return m, nil
	case "enter":
		m.pageFocused = false
		m.pageInput.Blur()
		if n, err := strconv.Atoi(strings.TrimSpace(m.pageInput.Value())); err == nil {
			m.deps.Ctrl.HandlePageChange(n)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.pageInput, cmd = m.pageInput.Update(msg)
	return m, cmd
}

func (m BrowseModel) handleUploadKey(msg tea.KeyMsg) (BrowseModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.uploadFocused = false
		m.uploadInput.Blur()
		return m, nil
	case "enter":
		m.uploadFocused = false
		m.uploadInput.Blur()
		path := strings.TrimSpace(m.uploadInput.Value())
		if path == "" {
			return m, nil
		}
		m.status = "Uploading..."
		return m, uploadCmd(m.deps, path)
	}
	var cmd tea.Cmd
	m.uploadInput, cmd = m.uploadInput.Update(msg)
	return m, cmd
}

func (m BrowseModel) handleConfirmKey(msg tea.KeyMsg) (BrowseModel, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		if m.confirmBulk {
			m.confirmBulk = false
			ids := make([]int64, 0, len(m.marked))
			for id := range m.marked {
				ids = append(ids, id)
			}
			m.status = fmt.Sprintf("Deleting %d books...", len(ids))
			return m, bulkDeleteCmd(m.deps, ids)
		}
		b := *m.confirmDelete
		m.confirmDelete = nil
		m.status = fmt.Sprintf("Deleting %q...", b.Title)
		return m, deleteCmd(m.deps, b.ID)
	case "n", "esc":
		m.confirmDelete = nil
		m.confirmBulk = false
	}
	return m, nil
}

// handleSettingsKey lets the Settings tab persist the current view and sort
// as the startup defaults.
func (m BrowseModel) handleSettingsKey(msg tea.KeyMsg) (BrowseModel, tea.Cmd) {
	if msg.String() != "w" {
		return m, nil
	}
	q := m.deps.Ctrl.Query()
	utils.AppConfig.UI.View = string(q.View)
	utils.AppConfig.UI.Sort = string(q.Sort)
	if err := utils.SaveConfig(); err != nil {
		m.lastErr = err
	} else {
		m.status = "Defaults saved"
	}
	return m, nil
}

func (m BrowseModel) handleDiscoveryKey(msg tea.KeyMsg) (BrowseModel, tea.Cmd) {
	if m.discoveryInput.Focused() {
		switch msg.String() {
		case "esc":
			m.discoveryInput.Blur()
			return m, nil
		case "enter":
			query := strings.TrimSpace(m.discoveryInput.Value())
			m.discoveryInput.Blur()
			if query == "" {
				return m, nil
			}
			m.searchLoading = true
			return m, searchSourcesCmd(m.deps, query)
		}
		var cmd tea.Cmd
		m.discoveryInput, cmd = m.discoveryInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "/":
		m.discoveryInput.Focus()
		return m, textinput.Blink
	case "enter":
		if item, ok := m.results.SelectedItem().(bookItem); ok && !m.grabbing {
			m.grabbing = true
			m.status = fmt.Sprintf("Fetching %q...", item.book.Title)
			return m, grabCmd(m.deps, item.book)
		}
	}

	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

// ---------------- Scroll plumbing ----------------

func (m *BrowseModel) geometry() paneGeometry {
	return geometryFor(m.deps.Ctrl.Query().View, m.paneWidth())
}

func (m *BrowseModel) paneWidth() int {
	if m.width <= 0 {
		return 80
	}
	return m.width - 2
}

func (m *BrowseModel) paneHeight() int {
	h := m.height - 7 // tabs, search row, footer, hints
	if h < 4 {
		h = 4
	}
	return h
}

func (m *BrowseModel) perPage() int {
	if pp := m.deps.Loader.PerPage(); pp > 0 {
		return pp
	}
	return api.PerPage
}

func (m *BrowseModel) moveCursor(delta int) {
	n := m.deps.Loader.Len()
	if n == 0 {
		return
	}
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= n {
		m.cursor = n - 1
	}
	m.ensureCursorVisible()
	m.afterScroll()
}

func (m *BrowseModel) scrollBy(rows int) {
	m.scrollRow += rows
	m.clampScroll()
	m.cursor = m.geometry().indexAtRow(m.scrollRow)
	m.afterScroll()
}

func (m *BrowseModel) clampScroll() {
	max := m.geometry().totalRows(m.deps.Loader.Len()) - m.paneHeight()
	if max < 0 {
		max = 0
	}
	if m.scrollRow > max {
		m.scrollRow = max
	}
	if m.scrollRow < 0 {
		m.scrollRow = 0
	}
}

func (m *BrowseModel) ensureCursorVisible() {
	g := m.geometry()
	row := g.rowOfIndex(m.cursor)
	if row < m.scrollRow {
		m.scrollRow = row
	}
	if bottom := row + g.rowsPerItem; bottom > m.scrollRow+m.paneHeight() {
		m.scrollRow = bottom - m.paneHeight()
	}
}

func (m *BrowseModel) resetPane() {
	m.scrollRow = 0
	m.cursor = 0
	m.status = ""
	m.lastErr = nil
	m.emitMarkers()
}

// afterScroll reports the new viewport to the controller: marker positions
// for page detection and the anchor book for scroll memory.
func (m *BrowseModel) afterScroll() {
	m.emitMarkers()
	anchor := int64(0)
	if b, ok := m.deps.Loader.BookAt(m.geometry().indexAtRow(m.scrollRow)); ok {
		anchor = b.ID
	}
	m.deps.Ctrl.SaveScroll(m.scrollRow, anchor)
}

func (m *BrowseModel) emitMarkers() {
	g := m.geometry()
	loaded := m.deps.Loader.LoadedPages()
	// Pages that left the loaded range (refresh, new query through a path
	// that bypasses the controller) must not keep a stale observation.
	for p := loaded + 1; p <= m.markedPages; p++ {
		m.deps.Ctrl.RemoveMarker(p)
	}
	m.markedPages = loaded
	for _, ev := range pageMarkers(loaded, m.perPage(), g, m.scrollRow) {
		m.deps.Ctrl.ObserveMarker(ev)
	}
}

// maybeLoadMore starts a continuation fetch when the viewport is near the
// bottom of what is loaded.
func (m *BrowseModel) maybeLoadMore() tea.Cmd {
	g := m.geometry()
	total := g.totalRows(m.deps.Loader.Len())
	if total == 0 {
		return nil
	}
	nearBottom := m.scrollRow+m.paneHeight() >= total-2*g.rowsPerItem
	if nearBottom && m.deps.Ctrl.HandleLoadMore() && !m.fetching {
		m.fetching = true
		return fetchNextCmd(m.deps)
	}
	return nil
}

func (m *BrowseModel) runReconcile() tea.Cmd {
	res := m.deps.Ctrl.Reconcile()
	var cmds []tea.Cmd
	if res.FetchNeeded && !m.fetching {
		m.fetching = true
		cmds = append(cmds, fetchNextCmd(m.deps))
	}
	if res.Scroll != nil {
		m.applyScroll(*res.Scroll)
		m.deps.Ctrl.ScrollDone()
		m.emitMarkers()
	}
	if len(res.Purged) > 0 {
		// List shrank: markers move and server totals need a refresh.
		m.clampScroll()
		m.emitMarkers()
		cmds = append(cmds, statsCmd(m.deps))
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

func (m *BrowseModel) applyScroll(t catalog.ScrollTarget) {
	g := m.geometry()
	if t.Index >= 0 {
		m.cursor = t.Index
		m.scrollRow = g.rowOfIndex(t.Index)
	} else {
		m.scrollRow = t.Offset
	}
	m.clampScroll()
}

// ---------------- View ----------------

func (m BrowseModel) View() string {
	var b strings.Builder
	b.WriteString(m.renderTabs())
	b.WriteString("\n")

	switch m.activeTab {
	case 0:
		b.WriteString(m.renderLibrary())
	case 1:
		b.WriteString(m.renderDiscovery())
	case 2:
		b.WriteString(m.renderSettings())
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m BrowseModel) renderTabs() string {
	var cells []string
	for i, t := range m.tabs {
		if i == m.activeTab {
			cells = append(cells, ActiveTabStyle.Render(t))
		} else {
			cells = append(cells, InactiveTabStyle.Render(t))
		}
	}
	return strings.Join(cells, "")
}

func (m BrowseModel) renderLibrary() string {
	var b strings.Builder

	q := m.deps.Ctrl.Query()
	if m.searchFocused {
		b.WriteString("  " + m.searchInput.View())
	} else if m.pageFocused {
		b.WriteString("  " + m.pageInput.View())
	} else if m.uploadFocused {
		b.WriteString("  " + m.uploadInput.View())
	} else {
		line := fmt.Sprintf("  %s  •  %s", q.Sort.Label(), q.View)
		if q.Search != "" {
			line += fmt.Sprintf("  •  search: %q", q.Search)
		}
		if q.Status != catalog.StatusAll {
			line += fmt.Sprintf("  •  %s", q.Status)
		}
		b.WriteString(StatusMutedStyle.Render(line))
	}
	b.WriteString("\n")

	books := m.deps.Loader.Books()
	if len(books) == 0 {
		if m.deps.Loader.IsFetching() || m.fetching {
			b.WriteString("\n  " + m.spin.View() + " loading library...")
		} else if m.deps.Loader.State() == catalog.LoaderError {
			b.WriteString("\n" + ErrorStyle.Render("Could not load the library. Press r to try again."))
		} else {
			b.WriteString("\n" + StatusMutedStyle.Render("No books found."))
		}
		return b.String()
	}

	lines := m.renderPaneLines(books)
	top := m.scrollRow
	if top > len(lines) {
		top = len(lines)
	}
	bottom := top + m.paneHeight()
	if bottom > len(lines) {
		bottom = len(lines)
	}
	b.WriteString(strings.Join(lines[top:bottom], "\n"))

	if m.deps.Loader.IsFetching() {
		b.WriteString("\n  " + m.spin.View() + " loading more...")
	}
	if m.confirmDelete != nil {
		b.WriteString("\n" + ConfirmStyle.Render(
			fmt.Sprintf("Delete %q? (y/n)", m.confirmDelete.Title)))
	}
	if m.confirmBulk {
		b.WriteString("\n" + ConfirmStyle.Render(
			fmt.Sprintf("Delete %d marked books? (y/n)", len(m.marked))))
	}
	return b.String()
}

func (m BrowseModel) renderPaneLines(books []catalog.Book) []string {
	g := m.geometry()
	if g.view == catalog.ViewList {
		return m.renderListLines(books, g)
	}
	return m.renderGridLines(books, g)
}

func (m BrowseModel) renderListLines(books []catalog.Book, g paneGeometry) []string {
	lines := make([]string, 0, len(books)*listRowsPerItem)
	w := g.width - 4
	pp := m.perPage()
	for i, bk := range books {
		title := runewidth.Truncate(bk.Title, w, "…")
		if pp > 0 && i > 0 && i%pp == 0 {
			title += " " + PageMarkerStyle.Render(fmt.Sprintf("· p%d", i/pp+1))
		}
		desc := bk.AuthorLine()
		if bk.Series != "" {
			desc += fmt.Sprintf("  (%s #%.1f)", bk.Series, bk.SeriesIndex)
		}
		if stars := bk.Stars(); stars != "" {
			desc += "  " + stars
		}
		desc = runewidth.Truncate(desc, w, "…")

		titleStyle, descStyle := NormalTitleStyle, NormalDescStyle
		switch {
		case m.deps.Ctrl.Deleting(bk.ID):
			titleStyle, descStyle = DeletingStyle, DeletingStyle
		case i == m.cursor:
			titleStyle, descStyle = SelectedTitleStyle, SelectedDescStyle
		}
		prefix := "  "
		if m.marked[bk.ID] {
			prefix = "* "
		}
		if i == m.cursor {
			prefix = "> "
		}
		lines = append(lines, prefix+titleStyle.Render(title))
		lines = append(lines, "  "+descStyle.Render(desc))
	}
	return lines
}

func (m BrowseModel) renderGridLines(books []catalog.Book, g paneGeometry) []string {
	cellW := gridCellWidth - 2
	var lines []string
	for start := 0; start < len(books); start += g.cols {
		end := start + g.cols
		if end > len(books) {
			end = len(books)
		}
		row := books[start:end]
		titleCells := make([]string, len(row))
		authorCells := make([]string, len(row))
		metaCells := make([]string, len(row))
		for c, bk := range row {
			i := start + c
			name := bk.Title
			if m.marked[bk.ID] {
				name = "* " + name
			}
			title := runewidth.FillRight(runewidth.Truncate(name, cellW, "…"), cellW)
			author := runewidth.FillRight(runewidth.Truncate(bk.AuthorLine(), cellW, "…"), cellW)
			meta := bk.Stars()
			if len(bk.Formats) > 0 {
				meta += " " + strings.Join(bk.Formats, ",")
			}
			meta = runewidth.FillRight(runewidth.Truncate(strings.TrimSpace(meta), cellW, "…"), cellW)

			style := NormalTitleStyle
			descStyle := NormalDescStyle
			switch {
			case m.deps.Ctrl.Deleting(bk.ID):
				style, descStyle = DeletingStyle, DeletingStyle
			case i == m.cursor:
				style, descStyle = SelectedTitleStyle, SelectedDescStyle
			}
			titleCells[c] = style.Render(title)
			authorCells[c] = descStyle.Render(author)
			metaCells[c] = descStyle.Render(meta)
		}
		lines = append(lines, "  "+strings.Join(titleCells, "  "))
		lines = append(lines, "  "+strings.Join(authorCells, "  "))
		lines = append(lines, "  "+strings.Join(metaCells, "  "))
	}
	return lines
}

func (m BrowseModel) renderDiscovery() string {
	var b strings.Builder
	b.WriteString("  " + m.discoveryInput.View() + "\n")
	if m.searchLoading {
		b.WriteString("  " + m.spin.View() + " searching...\n")
	}
	b.WriteString(m.results.View())
	return b.String()
}

func (m BrowseModel) renderSettings() string {
	cfg := utils.AppConfig
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(StatusStyle.Render("Server: "+cfg.Server.BaseURL) + "\n")
	b.WriteString(StatusStyle.Render("Source: "+cfg.Sources.BaseURL) + "\n")
	if cfg.SMTP.KindleEmail != "" {
		b.WriteString(StatusStyle.Render("Kindle: "+cfg.SMTP.KindleEmail) + "\n")
	} else {
		b.WriteString(StatusMutedStyle.Render("Kindle: not configured") + "\n")
	}
	b.WriteString(StatusMutedStyle.Render(fmt.Sprintf(
		"Cache: fresh %ds, stale %ds, %d retries",
		cfg.Cache.FreshSeconds, cfg.Cache.StaleSeconds, cfg.Cache.Retries)) + "\n")
	if m.stats != nil {
		b.WriteString(StatusStyle.Render(fmt.Sprintf(
			"Library: %d books, %d authors, %d series",
			m.stats.TotalBooks, m.stats.TotalAuthors, m.stats.TotalSeries)) + "\n")
	}
	b.WriteString("\n" + StatusMutedStyle.Render("w save current view/sort as defaults"))
	return b.String()
}

func (m BrowseModel) renderFooter() string {
	var b strings.Builder

	q := m.deps.Ctrl.Query()
	total := m.deps.Loader.Total()
	pages := m.deps.Loader.TotalPages()
	if pages > 0 {
		b.WriteString(StatusStyle.Render(fmt.Sprintf("Page %d/%d  •  %d books", q.Page, pages, total)))
	} else {
		b.WriteString(StatusStyle.Render("Inkdrop"))
	}

	if m.lastErr != nil {
		b.WriteString("\n" + ErrorStyle.Render(m.lastErr.Error()))
	} else if m.status != "" {
		b.WriteString("\n" + StatusMutedStyle.Render(m.status))
	} else {
		b.WriteString("\n" + StatusMutedStyle.Render(
			"/ search  s sort  v view  f filter  g page  u upload  x mark  d delete  enter open  tab switch"))
	}
	return b.String()
}
