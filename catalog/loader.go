package catalog

import (
	"context"
	"fmt"
	"sync"
)

// Fetcher retrieves one page of the remote list for a query. Page numbers
// are 1-based.
type Fetcher interface {
	FetchPage(ctx context.Context, q Query, page int) (Page, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, q Query, page int) (Page, error)

func (f FetcherFunc) FetchPage(ctx context.Context, q Query, page int) (Page, error) {
	return f(ctx, q, page)
}

type LoaderState int

const (
	LoaderIdle LoaderState = iota
	LoaderLoadingFirst
	LoaderReady
	LoaderLoadingMore
	LoaderError
)

// Loader owns the next-page cursor for one query. Pages load strictly in
// increasing order so the flattened sequence stays a valid prefix of the
// server's ordering. A fetch that resolves after the query changed is
// discarded (stale-response guard keyed by query parameters plus a
// generation counter).
type Loader struct {
	mu         sync.Mutex
	fetcher    Fetcher
	state      LoaderState
	query      Query
	gen        int
	pages      int // count of loaded pages
	books      []Book
	seen       map[int64]bool
	total      int
	totalPages int
	perPage    int
	failedPage int
	lastErr    error
}

func NewLoader(f Fetcher) *Loader {
	return &Loader{
		fetcher: f,
		seen:    make(map[int64]bool),
	}
}

// Reset discards all loaded pages and rebinds the loader to q. Any fetch
// still in flight for the old query will be dropped when it resolves.
func (l *Loader) Reset(q Query) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.query = q
	l.state = LoaderIdle
	l.pages = 0
	l.books = nil
	l.seen = make(map[int64]bool)
	l.total = 0
	l.totalPages = 0
	l.failedPage = 0
	l.lastErr = nil
}

func (l *Loader) State() LoaderState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loader) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// Books returns the flattened ordered sequence of all loaded pages.
func (l *Loader) Books() []Book {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Book, len(l.books))
	copy(out, l.books)
	return out
}

func (l *Loader) BookAt(i int) (Book, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= len(l.books) {
		return Book{}, false
	}
	return l.books[i], true
}

func (l *Loader) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.books)
}

func (l *Loader) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

func (l *Loader) TotalPages() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalPages
}

func (l *Loader) PerPage() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perPage
}

// LoadedPages reports how many pages have been incorporated.
func (l *Loader) LoadedPages() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pages
}

func (l *Loader) HasMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hasMoreLocked()
}

func (l *Loader) hasMoreLocked() bool {
	if l.pages == 0 {
		return true
	}
	return l.pages < l.totalPages
}

func (l *Loader) IsFetching() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == LoaderLoadingFirst || l.state == LoaderLoadingMore
}

// FetchNext loads the next unloaded page, or retries the failed page after
// an error. Calling it while a fetch is running is a no-op, as is calling
// it once every page is in.
func (l *Loader) FetchNext(ctx context.Context) error {
	l.mu.Lock()
	switch l.state {
	case LoaderLoadingFirst, LoaderLoadingMore:
		l.mu.Unlock()
		return nil
	case LoaderReady:
		if !l.hasMoreLocked() {
			l.mu.Unlock()
			return nil
		}
	}

	next := l.pages + 1
	if l.state == LoaderError && l.failedPage > 0 {
		next = l.failedPage
	}
	if next == 1 {
		l.state = LoaderLoadingFirst
	} else {
		l.state = LoaderLoadingMore
	}
	gen := l.gen
	q := l.query
	l.mu.Unlock()

	page, err := l.fetcher.FetchPage(ctx, q, next)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen || !q.SameList(l.query) {
		// Stale response: the list changed underneath this fetch.
		return nil
	}
	if err != nil {
		l.state = LoaderError
		l.failedPage = next
		l.lastErr = fmt.Errorf("page %d: %w", next, err)
		return l.lastErr
	}

	for _, b := range page.Books {
		if l.seen[b.ID] {
			continue
		}
		l.seen[b.ID] = true
		l.books = append(l.books, b)
	}
	l.pages = next
	l.total = page.Total
	l.totalPages = page.Pages
	if page.PerPage > 0 {
		l.perPage = page.PerPage
	}
	l.state = LoaderReady
	l.failedPage = 0
	l.lastErr = nil
	return nil
}

// Remove drops a book from the flattened sequence, used once a delete
// animation has finished. Server totals are re-derived on the next refetch;
// the local decrement just keeps the footer plausible until then.
func (l *Loader) Remove(id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, b := range l.books {
		if b.ID == id {
			l.books = append(l.books[:i], l.books[i+1:]...)
			delete(l.seen, id)
			if l.total > 0 {
				l.total--
			}
			return true
		}
	}
	return false
}

// Update replaces a loaded book in place after a metadata edit.
func (l *Loader) Update(b Book) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.books {
		if l.books[i].ID == b.ID {
			l.books[i] = b
			return true
		}
	}
	return false
}

// IndexOf returns the flattened position of a book, or -1.
func (l *Loader) IndexOf(id int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.books {
		if l.books[i].ID == id {
			return i
		}
	}
	return -1
}

// ---------------- Cache-backed fetcher ----------------

// CachedFetcher routes page fetches through a Cache so re-visiting a page
// inside the freshness window costs nothing.
type CachedFetcher struct {
	cache *Cache
	next  Fetcher
}

func NewCachedFetcher(cache *Cache, next Fetcher) *CachedFetcher {
	return &CachedFetcher{cache: cache, next: next}
}

func ListPageKey(q Query, page int) string {
	return fmt.Sprintf("%s%s|%s|page=%d", BookListPrefix, q.Key(), q.Status, page)
}

func (f *CachedFetcher) FetchPage(ctx context.Context, q Query, page int) (Page, error) {
	v, err := f.cache.Fetch(ctx, ListPageKey(q, page), func(ctx context.Context) (any, error) {
		return f.next.FetchPage(ctx, q, page)
	})
	if err != nil {
		if p, ok := v.(Page); ok {
			return p, err
		}
		return Page{}, err
	}
	p, ok := v.(Page)
	if !ok {
		return Page{}, fmt.Errorf("cache entry for page %d holds %T", page, v)
	}
	return p, nil
}
