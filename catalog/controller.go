package catalog

import (
	"sync"
	"time"
)

type Phase int

const (
	PhaseInitializing Phase = iota
	PhaseAwaitingData
	PhaseSettled
	PhaseNavigating
)

const (
	// How long the detected page must hold still before it is written back
	// to the query. Keeps passive scrolling from spamming page rewrites.
	pageWriteDebounce = 500 * time.Millisecond

	// How long a deleted book stays rendered so the removal can animate.
	deleteAnimation = 300 * time.Millisecond
)

// ScrollTarget tells the view where to go. Index wins when >= 0; Offset is
// the raw fallback when the anchor book is not loaded.
type ScrollTarget struct {
	Index  int
	BookID int64
	Offset int
}

// ReconcileResult is what one reconcile pass asks of the view layer.
type ReconcileResult struct {
	FetchNeeded bool          // start a loader fetch
	Scroll      *ScrollTarget // programmatic scroll requested
	Purged      []int64       // delete animations that just finished
	PageWritten bool          // detected page committed to the query
}

// Controller reconciles the query page, the loader's progress, the
// tracker's detected page, pending manual navigation and scroll
// restoration into one consistent state.
//
// Two hazards it exists to prevent: the scroll->page->scroll feedback loop
// (page writes from passive scrolling are debounced and never trigger a
// programmatic scroll; only explicit page requests do), and navigating to a
// page that is not loaded yet (catch-up fetches run strictly in order and
// the scroll fires only once the target page is in).
type Controller struct {
	mu      sync.Mutex
	loader  *Loader
	cache   *Cache
	memory  *ScrollMemory
	tracker *Tracker
	now     func() time.Time

	query        Query
	phase        Phase
	pendingPage  int // 0 = no manual navigation pending
	detectedPage int
	detectedAt   time.Time
	restoreDone  bool
	scrollSent   bool
	deleting     map[int64]time.Time // id -> purge deadline
	selected     *Book
}

func NewController(loader *Loader, cache *Cache, memory *ScrollMemory, q Query) *Controller {
	c := &Controller{
		loader:   loader,
		cache:    cache,
		memory:   memory,
		tracker:  NewTracker(),
		now:      time.Now,
		query:    q,
		phase:    PhaseInitializing,
		deleting: make(map[int64]time.Time),
	}
	loader.Reset(q)
	return c
}

// SetClock replaces the time source. Tests only.
func (c *Controller) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

func (c *Controller) Query() Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Controller) Loader() *Loader { return c.loader }

// ---------------- Query mutations ----------------

// resetListLocked rebinds everything to a new list identity. The previous
// key's scroll memory is gone, pending navigation is dropped, but running
// delete animations keep going (they belong to ids, not to a query).
func (c *Controller) resetListLocked(q Query) {
	c.memory.Clear(c.query.Key())
	c.query = q
	c.loader.Reset(q)
	c.tracker.Clear()
	c.phase = PhaseAwaitingData
	c.pendingPage = 0
	c.detectedPage = 0
	c.restoreDone = false
	c.scrollSent = false
}

func (c *Controller) HandleSearchChange(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if text == c.query.Search {
		return
	}
	c.resetListLocked(c.query.WithSearch(text))
}

func (c *Controller) HandleSortChange(s Sort) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s == c.query.Sort || !s.Valid() {
		return
	}
	c.resetListLocked(c.query.WithSort(s))
}

func (c *Controller) HandleStatusChange(s Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s == c.query.Status {
		return
	}
	c.resetListLocked(c.query.WithStatus(s))
}

// HandleViewModeChange flips grid/list. Pagination and scroll memory are
// untouched; only geometry changes.
func (c *Controller) HandleViewModeChange(v View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query = c.query.WithView(v)
}

// HandlePageChange is explicit navigation: the one path that may trigger a
// programmatic scroll. Offset memory for this key is dropped since the user
// switched to page-based positioning.
func (c *Controller) HandlePageChange(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 1 {
		n = 1
	}
	if tp := c.loader.TotalPages(); tp > 0 && n > tp {
		n = tp
	}
	c.memory.Clear(c.query.Key())
	c.query = c.query.WithPage(n)
	c.pendingPage = n
	c.phase = PhaseNavigating
	c.scrollSent = false
}

// HandleLoadMore reports whether a passive continuation fetch should start.
func (c *Controller) HandleLoadMore() bool {
	return c.loader.HasMore() && !c.loader.IsFetching() && c.loader.State() != LoaderError
}

// ---------------- Viewport and scroll ----------------

// ObserveMarker feeds one page-marker observation in. The detected page
// only moves when the nearest marker actually changes, and the debounce
// clock restarts on every change.
func (c *Controller) ObserveMarker(ev MarkerEvent) {
	c.tracker.Observe(ev)
	current := c.tracker.Current()
	c.mu.Lock()
	defer c.mu.Unlock()
	if current > 0 && current != c.detectedPage {
		c.detectedPage = current
		c.detectedAt = c.now()
	}
}

// RemoveMarker unregisters a page marker that left the rendered list.
func (c *Controller) RemoveMarker(page int) {
	c.tracker.Remove(page)
}

func (c *Controller) DetectedPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.detectedPage
}

// SaveScroll remembers the current position for this search+sort. Ignored
// mid-navigation so a programmatic jump does not clobber the memory it is
// about to replace.
func (c *Controller) SaveScroll(offset int, anchorID int64) {
	c.mu.Lock()
	if c.phase != PhaseSettled {
		c.mu.Unlock()
		return
	}
	key := c.query.Key()
	c.mu.Unlock()
	c.memory.Save(key, ScrollRecord{Offset: offset, AnchorID: anchorID})
}

// ScrollDone is the view acknowledging that a requested scroll happened.
func (c *Controller) ScrollDone() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseNavigating {
		c.phase = PhaseSettled
		c.pendingPage = 0
	}
	c.scrollSent = false
}

// ---------------- Selection ----------------

func (c *Controller) HandleBookClick(b Book) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = &b
}

func (c *Controller) CloseModal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = nil
}

func (c *Controller) Selected() (Book, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return Book{}, false
	}
	return *c.selected, true
}

// ---------------- Deletion ----------------

// HandleBookDeleted starts the delete animation for id. The book stays in
// the flattened sequence until the animation window elapses; the purge and
// the list-cache invalidation happen in Reconcile.
func (c *Controller) HandleBookDeleted(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.deleting[id]; ok {
		return
	}
	c.deleting[id] = c.now().Add(deleteAnimation)
	if c.selected != nil && c.selected.ID == id {
		c.selected = nil
	}
}

// HandleBooksDeleted starts delete animations for every id the server
// confirmed in a bulk delete. Ids the server failed on are not passed in, so
// they stay in the list untouched.
func (c *Controller) HandleBooksDeleted(ids []int64) {
	for _, id := range ids {
		c.HandleBookDeleted(id)
	}
}

func (c *Controller) Deleting(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.deleting[id]
	return ok
}

// HandleBookUpdated applies an edited book optimistically: the flattened
// sequence and the detail cache see the new metadata right away.
func (c *Controller) HandleBookUpdated(b Book) {
	c.loader.Update(b)
	c.cache.Invalidate(BookDetailPrefix)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected != nil && c.selected.ID == b.ID {
		c.selected = &b
	}
}

// InvalidateList marks every cached list page for refetch, e.g. after an
// upload landed. Stats and detail entries are untouched.
func (c *Controller) InvalidateList() {
	c.cache.Invalidate(BookListPrefix)
}

// ---------------- Reconcile ----------------

// Reconcile runs one pass of the state machine and reports what the view
// should do. The view calls it after every loader event, tracker change and
// animation tick; it is cheap and idempotent between events.
func (c *Controller) Reconcile() ReconcileResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	var res ReconcileResult

	// Finished delete animations: purge from the flattened list and mark
	// cached pages stale so fresh server totals replace local arithmetic.
	for id, deadline := range c.deleting {
		if now.Before(deadline) {
			continue
		}
		delete(c.deleting, id)
		c.loader.Remove(id)
		res.Purged = append(res.Purged, id)
	}
	if len(res.Purged) > 0 {
		c.cache.Invalidate(BookListPrefix)
	}

	if c.phase == PhaseInitializing {
		c.phase = PhaseAwaitingData
	}

	if c.phase == PhaseAwaitingData {
		switch {
		case c.loader.LoadedPages() == 0:
			res.FetchNeeded = c.fetchWanted()
		case c.pendingPage > 0:
			c.phase = PhaseNavigating
		default:
			if !c.restoreDone {
				c.restoreDone = true
				if rec, ok := c.memory.Restore(c.query.Key()); ok {
					res.Scroll = c.restoreTarget(rec)
				}
			}
			c.phase = PhaseSettled
		}
	}

	if c.phase == PhaseNavigating {
		// The jump may have been requested before totals were known; clamp
		// as soon as the loader can say how many pages really exist.
		if tp := c.loader.TotalPages(); tp > 0 && c.pendingPage > tp {
			c.pendingPage = tp
			c.query.Page = tp
		}
		switch {
		case c.loader.LoadedPages() >= c.pendingPage:
			if !c.scrollSent {
				c.scrollSent = true
				res.Scroll = c.navigateTarget()
			}
		case c.loader.State() == LoaderError:
			// Can't reach the target; settle where we are instead of
			// spinning on a dead fetch.
			c.phase = PhaseSettled
			c.pendingPage = 0
		case !c.loader.HasMore():
			// The list ran out short of the target (e.g. it is empty).
			// Nothing left to fetch, so settle on the last real page.
			c.phase = PhaseSettled
			c.pendingPage = 0
			if tp := c.loader.TotalPages(); tp > 0 {
				c.query.Page = tp
			} else {
				c.query.Page = 1
			}
		default:
			c.phase = PhaseAwaitingData
			res.FetchNeeded = c.fetchWanted()
		}
	}

	if c.phase == PhaseSettled && c.pendingPage == 0 {
		if c.detectedPage > 0 && c.detectedPage != c.query.Page &&
			now.Sub(c.detectedAt) >= pageWriteDebounce {
			// Replace-style write: the query follows the viewport, never
			// the other way around.
			c.query.Page = c.detectedPage
			res.PageWritten = true
		}
	}

	return res
}

func (c *Controller) fetchWanted() bool {
	return !c.loader.IsFetching() && c.loader.State() != LoaderError
}

func (c *Controller) restoreTarget(rec ScrollRecord) *ScrollTarget {
	t := &ScrollTarget{Index: -1, BookID: rec.AnchorID, Offset: rec.Offset}
	if rec.AnchorID != 0 {
		if i := c.loader.IndexOf(rec.AnchorID); i >= 0 {
			t.Index = i
		}
	}
	return t
}

func (c *Controller) navigateTarget() *ScrollTarget {
	perPage := c.loader.PerPage()
	if perPage <= 0 {
		perPage = 1
	}
	index := (c.pendingPage - 1) * perPage
	if n := c.loader.Len(); index >= n && n > 0 {
		index = n - 1
	}
	t := &ScrollTarget{Index: index}
	if b, ok := c.loader.BookAt(index); ok {
		t.BookID = b.ID
	}
	return t
}
