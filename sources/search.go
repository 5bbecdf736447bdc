package sources

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"inkdrop/catalog"
	"inkdrop/utils"
)

// Source searches a public book catalog for titles that are not in the
// local library yet. Results are normalized into catalog.Book with
// KindSearch so the rest of the app never special-cases their shape.
type Source struct {
	baseURL    string
	searchPath string
	http       *http.Client
}

func New(cfg utils.SourcesConfig, policy catalog.Policy) *Source {
	return &Source{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		searchPath: cfg.SearchPath,
		http:       &http.Client{Timeout: policy.Timeout},
	}
}

func (s *Source) Search(ctx context.Context, query string) ([]catalog.Book, error) {
	u := s.baseURL + s.searchPath + "?query=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(decodeToUTF8(raw)))
	if err != nil {
		return nil, err
	}

	var books []catalog.Book
	doc.Find("li.booklink").Each(func(i int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Find("span.title").Text())
		if title == "" {
			return
		}
		author := strings.TrimSpace(sel.Find("span.subtitle").Text())
		href, _ := sel.Find("a").Attr("href")
		if href != "" && !strings.HasPrefix(href, "http") {
			href = s.baseURL + href
		}

		b := catalog.Book{
			Kind:       catalog.KindSearch,
			ID:         idFromHref(href),
			Title:      title,
			SourceName: s.baseURL,
			SourceURL:  href,
		}
		if author != "" {
			b.Authors = strings.Split(author, " and ")
			for i := range b.Authors {
				b.Authors[i] = strings.TrimSpace(b.Authors[i])
			}
		}
		books = append(books, b)
	})

	slog.Debug("source search",
		slog.String("query", query),
		slog.Int("results", len(books)),
	)
	return books, nil
}

// idFromHref pulls the trailing numeric id out of a result link so search
// results still have a usable (source-local) id.
func idFromHref(href string) int64 {
	idx := strings.LastIndexByte(strings.TrimRight(href, "/"), '/')
	if idx < 0 {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimRight(href, "/")[idx+1:], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Fetch downloads the book behind a search result, following the source's
// plain-text or epub link.
func (s *Source) Fetch(ctx context.Context, b catalog.Book) ([]byte, error) {
	if b.SourceURL == "" {
		return nil, fmt.Errorf("no source url for %q", b.Title)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.SourceURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// bomUTF8 is the byte-order mark some sources prepend to UTF-8 pages.
var bomUTF8 = []byte{0xEF, 0xBB, 0xBF}

// decodeToUTF8 makes a best effort at decoding a fetched page:
// UTF-8 (with or without BOM), UTF-16 with BOM, then Latin-1 fallback.
func decodeToUTF8(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if bytes.HasPrefix(data, bomUTF8) {
		data = data[3:]
	}
	if s, ok := decodeUTF16(data); ok {
		return s
	}
	if utf8.Valid(data) {
		return string(data)
	}
	return decodeLatin1(data)
}
