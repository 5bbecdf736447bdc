package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkdrop/catalog"
	"inkdrop/utils"
)

const resultsHTML = `<html><body>
<ul>
<li class="booklink">
  <a href="/ebooks/1342">
    <span class="title">Pride and Prejudice</span>
    <span class="subtitle">Jane Austen</span>
  </a>
</li>
<li class="booklink">
  <a href="/ebooks/345">
    <span class="title">Dracula</span>
    <span class="subtitle">Bram Stoker and Someone Else</span>
  </a>
</li>
<li class="booklink">
  <a href="/ebooks/999"><span class="title"></span></a>
</li>
</ul>
</body></html>`

func newTestSource(t *testing.T, handler http.Handler) (*Source, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := utils.SourcesConfig{BaseURL: srv.URL, SearchPath: "/ebooks/search/"}
	return New(cfg, catalog.DefaultPolicy()), srv
}

func TestSearchParsesResults(t *testing.T) {
	var gotQuery string
	src, srv := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		w.Write([]byte(resultsHTML))
	}))

	books, err := src.Search(context.Background(), "pride & prejudice")
	require.NoError(t, err)
	assert.Equal(t, "pride & prejudice", gotQuery)
	require.Len(t, books, 2, "entries without a title are skipped")

	b := books[0]
	assert.Equal(t, catalog.KindSearch, b.Kind)
	assert.Equal(t, int64(1342), b.ID)
	assert.Equal(t, "Pride and Prejudice", b.Title)
	assert.Equal(t, []string{"Jane Austen"}, b.Authors)
	assert.Equal(t, srv.URL+"/ebooks/1342", b.SourceURL)

	assert.Equal(t, []string{"Bram Stoker", "Someone Else"}, books[1].Authors)
}

func TestSearchBadStatus(t *testing.T) {
	src, _ := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	_, err := src.Search(context.Background(), "x")
	require.Error(t, err)
}

func TestIDFromHref(t *testing.T) {
	assert.Equal(t, int64(1342), idFromHref("https://example.org/ebooks/1342"))
	assert.Equal(t, int64(1342), idFromHref("https://example.org/ebooks/1342/"))
	assert.Equal(t, int64(0), idFromHref("https://example.org/ebooks/"))
	assert.Equal(t, int64(0), idFromHref(""))
}

func TestFetchRequiresSourceURL(t *testing.T) {
	src, _ := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("content"))
	}))
	_, err := src.Fetch(context.Background(), catalog.Book{Title: "no url"})
	require.Error(t, err)
}

func TestFetchDownloadsResult(t *testing.T) {
	src, srv := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ebooks/1342.epub", r.URL.Path)
		w.Write([]byte("epub bytes"))
	}))

	data, err := src.Fetch(context.Background(), catalog.Book{
		Title:     "Pride and Prejudice",
		SourceURL: srv.URL + "/ebooks/1342.epub",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("epub bytes"), data)
}

func TestDecodeToUTF8(t *testing.T) {
	assert.Equal(t, "plain", decodeToUTF8([]byte("plain")))
	assert.Equal(t, "bom", decodeToUTF8([]byte{0xEF, 0xBB, 0xBF, 'b', 'o', 'm'}))

	// UTF-16 LE with BOM: "hi"
	assert.Equal(t, "hi", decodeToUTF8([]byte{0xFF, 0xFE, 'h', 0x00, 'i', 0x00}))

	// Latin-1 fallback: 0xE9 is é
	assert.Equal(t, "café", decodeToUTF8([]byte{'c', 'a', 'f', 0xE9}))

	assert.Equal(t, "", decodeToUTF8(nil))
}
