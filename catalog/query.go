package catalog

import (
	"net/url"
	"strconv"
)

// Sort keys understood by the server. These match the Calibre-backed list
// endpoint exactly; anything else falls back to SortNew.
type Sort string

const (
	SortNew        Sort = "new"
	SortOld        Sort = "old"
	SortTitleAZ    Sort = "abc"
	SortTitleZA    Sort = "zyx"
	SortAuthorAZ   Sort = "authaz"
	SortAuthorZA   Sort = "authza"
	SortPubNew     Sort = "pubnew"
	SortPubOld     Sort = "pubold"
	SortSeriesAsc  Sort = "seriesasc"
	SortSeriesDesc Sort = "seriesdesc"
	SortHotAsc     Sort = "hotasc"
	SortHotDesc    Sort = "hotdesc"
)

var sortOrder = []Sort{
	SortNew, SortOld, SortTitleAZ, SortTitleZA,
	SortAuthorAZ, SortAuthorZA, SortPubNew, SortPubOld,
	SortSeriesAsc, SortSeriesDesc, SortHotAsc, SortHotDesc,
}

func (s Sort) Valid() bool {
	for _, k := range sortOrder {
		if s == k {
			return true
		}
	}
	return false
}

// Next cycles to the following sort key, wrapping around.
func (s Sort) Next() Sort {
	for i, k := range sortOrder {
		if s == k {
			return sortOrder[(i+1)%len(sortOrder)]
		}
	}
	return SortNew
}

func (s Sort) Label() string {
	switch s {
	case SortNew:
		return "Newest added"
	case SortOld:
		return "Oldest added"
	case SortTitleAZ:
		return "Title A-Z"
	case SortTitleZA:
		return "Title Z-A"
	case SortAuthorAZ:
		return "Author A-Z"
	case SortAuthorZA:
		return "Author Z-A"
	case SortPubNew:
		return "Recently published"
	case SortPubOld:
		return "Earliest published"
	case SortSeriesAsc:
		return "Series index asc"
	case SortSeriesDesc:
		return "Series index desc"
	case SortHotAsc:
		return "Least popular"
	case SortHotDesc:
		return "Most popular"
	}
	return string(s)
}

type View string

const (
	ViewGrid View = "grid"
	ViewList View = "list"
)

// Status is the read-status filter.
type Status string

const (
	StatusAll     Status = "all"
	StatusRead    Status = "read"
	StatusUnread  Status = "unread"
	StatusReading Status = "reading"
)

// Query is the authoritative search/sort/view/page state. It round-trips
// through a query string so the whole browse state is one shareable value.
type Query struct {
	Search string
	Sort   Sort
	View   View
	Page   int
	Status Status
}

func DefaultQuery() Query {
	return Query{
		Sort:   SortNew,
		View:   ViewGrid,
		Page:   1,
		Status: StatusAll,
	}
}

// ParseQuery reads a query string, tolerating missing or junk values.
func ParseQuery(v url.Values) Query {
	q := DefaultQuery()
	q.Search = v.Get("search")
	if s := Sort(v.Get("sort")); s.Valid() {
		q.Sort = s
	}
	if view := View(v.Get("view")); view == ViewGrid || view == ViewList {
		q.View = view
	}
	if n, err := strconv.Atoi(v.Get("page")); err == nil && n > 0 {
		q.Page = n
	}
	switch st := Status(v.Get("status")); st {
	case StatusRead, StatusUnread, StatusReading:
		q.Status = st
	}
	return q
}

// Values encodes the query, omitting defaults. A page carried over from a
// stale search would be misleading, so page 1 is never written.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Sort != SortNew && q.Sort.Valid() {
		v.Set("sort", string(q.Sort))
	}
	if q.View == ViewList {
		v.Set("view", string(q.View))
	}
	if q.Page > 1 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Status != "" && q.Status != StatusAll {
		v.Set("status", string(q.Status))
	}
	return v
}

// WithSearch changes the search text and resets pagination.
func (q Query) WithSearch(text string) Query {
	q.Search = text
	q.Page = 1
	return q
}

// WithSort changes the sort key and resets pagination.
func (q Query) WithSort(s Sort) Query {
	if s.Valid() {
		q.Sort = s
	}
	q.Page = 1
	return q
}

// WithView switches grid/list without touching pagination.
func (q Query) WithView(v View) Query {
	if v == ViewGrid || v == ViewList {
		q.View = v
	}
	return q
}

func (q Query) WithPage(n int) Query {
	if n < 1 {
		n = 1
	}
	q.Page = n
	return q
}

// WithStatus changes the read-status filter and resets pagination.
func (q Query) WithStatus(s Status) Query {
	q.Status = s
	q.Page = 1
	return q
}

// Key identifies the search+sort combination. Scroll memory is kept per
// key, mirroring scroll-position-<search>-<sort> session keys.
func (q Query) Key() string {
	return q.Search + "|" + string(q.Sort)
}

// SameList reports whether two queries describe the same remote sequence,
// ignoring presentation-only fields. Used as the stale-response guard.
func (q Query) SameList(other Query) bool {
	return q.Search == other.Search && q.Sort == other.Sort && q.Status == other.Status
}
