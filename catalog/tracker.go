package catalog

import "sync"

// MarkerEvent reports where a page's marker (the row of its first item)
// currently sits, relative to the top of the viewport. Negative tops are
// above the fold.
type MarkerEvent struct {
	Page int
	Top  int
}

// NearestPage picks the marker whose top edge is closest to the viewport's
// top edge, ties going to the higher page number. It is a pure function so
// the selection logic can be tested without any rendering loop behind it.
func NearestPage(markers []MarkerEvent) (int, bool) {
	best := 0
	bestDist := 0
	found := false
	for _, m := range markers {
		if m.Page < 1 {
			continue
		}
		dist := m.Top
		if dist < 0 {
			dist = -dist
		}
		if !found || dist < bestDist || (dist == bestDist && m.Page > best) {
			best = m.Page
			bestDist = dist
			found = true
		}
	}
	return best, found
}

// Tracker keeps the latest marker observation per page and answers "which
// logical page is the user looking at". Markers for pages that leave the
// rendered list must be removed so a mid-delete re-render never reports a
// stale page.
type Tracker struct {
	mu      sync.Mutex
	markers map[int]int // page -> top offset
	current int
}

func NewTracker() *Tracker {
	return &Tracker{markers: make(map[int]int)}
}

func (t *Tracker) Observe(ev MarkerEvent) {
	if ev.Page < 1 {
		return
	}
	t.mu.Lock()
	t.markers[ev.Page] = ev.Top
	t.mu.Unlock()
}

// Remove unregisters the marker for a page that is no longer rendered.
func (t *Tracker) Remove(page int) {
	t.mu.Lock()
	delete(t.markers, page)
	t.mu.Unlock()
}

// Clear drops every observation, used when the underlying list resets.
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.markers = make(map[int]int)
	t.current = 0
	t.mu.Unlock()
}

// Current recomputes and returns the detected page. With no observations it
// reports the last known page (0 until anything was seen).
func (t *Tracker) Current() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	events := make([]MarkerEvent, 0, len(t.markers))
	for page, top := range t.markers {
		events = append(events, MarkerEvent{Page: page, Top: top})
	}
	if page, ok := NearestPage(events); ok {
		t.current = page
	}
	return t.current
}
