package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher serves a deterministic library: book IDs run sequentially so
// page p, item i gets ID (p-1)*perPage+i+1.
type fakeFetcher struct {
	mu      sync.Mutex
	perPage int
	total   int
	fail    map[int]bool
	calls   []int
}

func newFakeFetcher(total, perPage int) *fakeFetcher {
	return &fakeFetcher{perPage: perPage, total: total, fail: make(map[int]bool)}
}

func (f *fakeFetcher) FetchPage(_ context.Context, _ Query, page int) (Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, page)
	if f.fail[page] {
		return Page{}, errors.New("server exploded")
	}
	return f.pageLocked(page), nil
}

func (f *fakeFetcher) pageLocked(page int) Page {
	pages := (f.total + f.perPage - 1) / f.perPage
	start := (page - 1) * f.perPage
	var books []Book
	for i := start; i < start+f.perPage && i < f.total; i++ {
		books = append(books, Book{
			ID:    int64(i + 1),
			Title: fmt.Sprintf("Book %d", i+1),
		})
	}
	return Page{Books: books, Total: f.total, Pages: pages, PerPage: f.perPage}
}

func (f *fakeFetcher) pagesFetched() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.calls))
	copy(out, f.calls)
	return out
}

func TestLoaderSequentialPages(t *testing.T) {
	f := newFakeFetcher(45, 20)
	l := NewLoader(f)
	l.Reset(DefaultQuery())
	ctx := context.Background()

	assert.Equal(t, LoaderIdle, l.State())
	require.True(t, l.HasMore())

	require.NoError(t, l.FetchNext(ctx))
	assert.Equal(t, LoaderReady, l.State())
	assert.Equal(t, 20, l.Len())
	assert.Equal(t, 45, l.Total())
	assert.Equal(t, 3, l.TotalPages())
	assert.Equal(t, 20, l.PerPage())

	require.NoError(t, l.FetchNext(ctx))
	require.NoError(t, l.FetchNext(ctx))
	assert.Equal(t, 45, l.Len())
	assert.False(t, l.HasMore())

	// Flattened sequence is the server ordering with no duplicates.
	books := l.Books()
	for i, b := range books {
		assert.Equal(t, int64(i+1), b.ID)
	}
	assert.Equal(t, []int{1, 2, 3}, f.pagesFetched())

	// Exhausted list: further calls are no-ops.
	require.NoError(t, l.FetchNext(ctx))
	assert.Equal(t, []int{1, 2, 3}, f.pagesFetched())
}

func TestLoaderDedupesAcrossPages(t *testing.T) {
	// A book added at the top mid-scroll shifts the window so page 2 repeats
	// the last item of page 1. The flattened list must not show it twice.
	f := newFakeFetcher(40, 20)
	ctx := context.Background()

	overlapping := f.pageLocked(2)
	overlapping.Books = append([]Book{{ID: 20, Title: "Book 20"}}, overlapping.Books...)

	stub := FetcherFunc(func(_ context.Context, _ Query, page int) (Page, error) {
		if page == 1 {
			return f.pageLocked(1), nil
		}
		return overlapping, nil
	})
	l := NewLoader(stub)
	l.Reset(DefaultQuery())
	require.NoError(t, l.FetchNext(ctx))
	require.NoError(t, l.FetchNext(ctx))

	seen := map[int64]int{}
	for _, b := range l.Books() {
		seen[b.ID]++
	}
	assert.Equal(t, 1, seen[20], "overlapping item appears once")
	assert.Equal(t, 40, l.Len())
}

type gatedFetcher struct {
	inner   Fetcher
	started chan struct{}
	release chan struct{}
	calls   int
	mu      sync.Mutex
}

func newGatedFetcher(inner Fetcher) *gatedFetcher {
	return &gatedFetcher{
		inner:   inner,
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (g *gatedFetcher) FetchPage(ctx context.Context, q Query, page int) (Page, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	g.started <- struct{}{}
	<-g.release
	return g.inner.FetchPage(ctx, q, page)
}

func (g *gatedFetcher) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func TestLoaderFetchNextIsReentrantSafe(t *testing.T) {
	g := newGatedFetcher(newFakeFetcher(40, 20))
	l := NewLoader(g)
	l.Reset(DefaultQuery())
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- l.FetchNext(ctx) }()
	<-g.started

	assert.True(t, l.IsFetching())
	// A second call while the first is in flight must not start another
	// fetch.
	require.NoError(t, l.FetchNext(ctx))
	assert.Equal(t, 1, g.callCount())

	close(g.release)
	require.NoError(t, <-done)
	assert.Equal(t, 20, l.Len())
}

func TestLoaderDiscardsStaleResponseAfterReset(t *testing.T) {
	g := newGatedFetcher(newFakeFetcher(40, 20))
	l := NewLoader(g)
	l.Reset(DefaultQuery())
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- l.FetchNext(ctx) }()
	<-g.started

	// The query changes while page 1 is still in flight.
	l.Reset(DefaultQuery().WithSearch("dune"))
	close(g.release)
	require.NoError(t, <-done)

	assert.Equal(t, 0, l.Len(), "response for the old query must be dropped")
	assert.Equal(t, 0, l.LoadedPages())
	assert.Equal(t, LoaderIdle, l.State())
}

func TestLoaderErrorKeepsPagesAndRetriesFailedPage(t *testing.T) {
	f := newFakeFetcher(60, 20)
	f.fail[2] = true
	l := NewLoader(f)
	l.Reset(DefaultQuery())
	ctx := context.Background()

	require.NoError(t, l.FetchNext(ctx))
	err := l.FetchNext(ctx)
	require.Error(t, err)
	assert.Equal(t, LoaderError, l.State())
	assert.Equal(t, 20, l.Len(), "page 1 survives the page 2 failure")
	require.Error(t, l.Err())

	// Retry hits page 2 again, not page 3.
	f.mu.Lock()
	f.fail[2] = false
	f.mu.Unlock()
	require.NoError(t, l.FetchNext(ctx))
	assert.Equal(t, []int{1, 2, 2}, f.pagesFetched())
	assert.Equal(t, 40, l.Len())
	assert.Equal(t, LoaderReady, l.State())
	assert.NoError(t, l.Err())
}

func TestLoaderRemoveAndUpdate(t *testing.T) {
	f := newFakeFetcher(20, 20)
	l := NewLoader(f)
	l.Reset(DefaultQuery())
	require.NoError(t, l.FetchNext(context.Background()))

	require.True(t, l.Remove(5))
	assert.Equal(t, 19, l.Len())
	assert.Equal(t, 19, l.Total())
	assert.Equal(t, -1, l.IndexOf(5))
	assert.False(t, l.Remove(5))

	edited := Book{ID: 7, Title: "Renamed"}
	require.True(t, l.Update(edited))
	got, ok := l.BookAt(l.IndexOf(7))
	require.True(t, ok)
	assert.Equal(t, "Renamed", got.Title)
	assert.False(t, l.Update(Book{ID: 999}))
}

func TestCachedFetcherSharesPagesAcrossLoaders(t *testing.T) {
	clock := newFakeClock()
	cache := NewCache(DefaultPolicy())
	cache.SetClock(clock.Now)
	f := newFakeFetcher(40, 20)
	cached := NewCachedFetcher(cache, f)
	ctx := context.Background()
	q := DefaultQuery()

	first, err := cached.FetchPage(ctx, q, 1)
	require.NoError(t, err)
	second, err := cached.FetchPage(ctx, q, 1)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []int{1}, f.pagesFetched(), "second fetch served from cache")

	// Different list parameters get their own entry.
	_, err = cached.FetchPage(ctx, q.WithSearch("dune"), 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1}, f.pagesFetched())
}

func TestListPageKeyCarriesListIdentity(t *testing.T) {
	q := DefaultQuery()
	a := ListPageKey(q, 1)
	assert.NotEqual(t, a, ListPageKey(q, 2))
	assert.NotEqual(t, a, ListPageKey(q.WithSearch("x"), 1))
	assert.NotEqual(t, a, ListPageKey(q.WithStatus(StatusRead), 1))
	assert.True(t, len(a) > len(BookListPrefix) && a[:len(BookListPrefix)] == BookListPrefix)
}
