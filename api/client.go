package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"inkdrop/catalog"
)

// StatusError is a non-2xx response, kept typed so callers can tell a
// missing book from a dead server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("server returned %d", e.Code)
}

// Client talks to the Inkdrop server. Every request goes through one
// retry/backoff policy instead of per-call magic numbers.
type Client struct {
	baseURL string
	http    *http.Client
	policy  catalog.Policy
}

func New(baseURL string, policy catalog.Policy) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: policy.Timeout},
		policy:  policy,
	}
}

// do runs a request with retries on transport errors and 5xx responses.
// 4xx responses are the server's final word and are never retried.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = io.ReadAll(body)
		if err != nil {
			return nil, err
		}
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	backoff := c.policy.RetryBackoff
	var lastErr error
	for attempt := 0; attempt <= c.policy.Retries; attempt++ {
		if attempt > 0 {
			slog.Debug("retrying request",
				slog.String("path", path),
				slog.Int("attempt", attempt),
				slog.String("err", lastErr.Error()),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
		if err != nil {
			return nil, err
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = decodeStatusError(resp)
			continue
		}
		if resp.StatusCode >= 400 {
			return nil, decodeStatusError(resp)
		}
		return resp, nil
	}
	return nil, fmt.Errorf("%s %s: %w", method, path, lastErr)
}

func decodeStatusError(resp *http.Response) error {
	defer resp.Body.Close()
	var wire struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&wire)
	return &StatusError{Code: resp.StatusCode, Message: wire.Error}
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, query, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

// ---------------- Book list ----------------

type listResponse struct {
	Books   []bookJSON `json:"books"`
	Total   int        `json:"total"`
	Page    int        `json:"page"`
	PerPage int        `json:"per_page"`
	Pages   int        `json:"pages"`
}

// PerPage is the fixed page size requested from the list endpoint.
const PerPage = 20

// FetchPage implements catalog.Fetcher against the offset/limit style of
// the metadata books endpoint.
func (c *Client) FetchPage(ctx context.Context, q catalog.Query, page int) (catalog.Page, error) {
	v := url.Values{}
	v.Set("offset", strconv.Itoa((page-1)*PerPage))
	v.Set("limit", strconv.Itoa(PerPage))
	v.Set("sort", string(q.Sort))
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Status != "" && q.Status != catalog.StatusAll {
		v.Set("status", string(q.Status))
	}

	var wire listResponse
	if err := c.getJSON(ctx, "/api/metadata/books", v, &wire); err != nil {
		return catalog.Page{}, err
	}

	p := catalog.Page{
		Total:   wire.Total,
		Page:    wire.Page,
		PerPage: wire.PerPage,
		Pages:   wire.Pages,
	}
	if p.Page == 0 {
		p.Page = page
	}
	if p.PerPage == 0 {
		p.PerPage = PerPage
	}
	for _, b := range wire.Books {
		p.Books = append(p.Books, b.normalize())
	}
	return p, nil
}

// BookDetails fetches one book by id.
func (c *Client) BookDetails(ctx context.Context, id int64) (catalog.Book, error) {
	var wire bookJSON
	if err := c.getJSON(ctx, fmt.Sprintf("/api/metadata/books/%d", id), nil, &wire); err != nil {
		return catalog.Book{}, err
	}
	return wire.normalize(), nil
}

// ---------------- Library actions ----------------

func (c *Client) DeleteBook(ctx context.Context, id int64) error {
	resp, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/cwa/library/books/%d", id), nil, nil, "")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// BulkDeleteResult reports which ids a bulk delete actually removed. The
// server deletes what it can and lists the rest, so a partial failure is a
// normal outcome, not an error.
type BulkDeleteResult struct {
	Deleted     []int64
	Failed      []int64
	FailedCount int
}

type bulkDeleteResponse struct {
	DeletedCount int `json:"deleted_count"`
	FailedCount  int `json:"failed_count"`
	DeletedBooks []struct {
		ID int64 `json:"id"`
	} `json:"deleted_books"`
	FailedBooks []struct {
		ID    int64  `json:"id"`
		Error string `json:"error"`
	} `json:"failed_books"`
}

// BulkDelete removes several books in one request.
func (c *Client) BulkDelete(ctx context.Context, ids []int64) (BulkDeleteResult, error) {
	buf, err := json.Marshal(struct {
		BookIDs []int64 `json:"book_ids"`
	}{BookIDs: ids})
	if err != nil {
		return BulkDeleteResult{}, err
	}
	resp, err := c.do(ctx, http.MethodDelete, "/api/admin/books/bulk-delete", nil, bytes.NewReader(buf), "application/json")
	if err != nil {
		return BulkDeleteResult{}, err
	}
	defer resp.Body.Close()

	var wire bulkDeleteResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return BulkDeleteResult{}, err
	}

	res := BulkDeleteResult{FailedCount: wire.FailedCount}
	for _, b := range wire.DeletedBooks {
		res.Deleted = append(res.Deleted, b.ID)
	}
	for _, b := range wire.FailedBooks {
		res.Failed = append(res.Failed, b.ID)
	}
	// Some server versions only report a count. With no failures that means
	// every requested id went through.
	if len(res.Deleted) == 0 && wire.FailedCount == 0 && wire.DeletedCount == len(ids) {
		res.Deleted = ids
	}
	return res, nil
}

// UpdateRequest carries only the fields being edited; nil means unchanged.
type UpdateRequest struct {
	Title       *string  `json:"title,omitempty"`
	Authors     []string `json:"authors,omitempty"`
	Series      *string  `json:"series,omitempty"`
	SeriesIndex *float64 `json:"series_index,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Comments    *string  `json:"comments,omitempty"`
}

func (c *Client) UpdateBook(ctx context.Context, id int64, req UpdateRequest) (catalog.Book, error) {
	buf, err := json.Marshal(req)
	if err != nil {
		return catalog.Book{}, err
	}
	resp, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/cwa/library/books/%d/metadata", id), nil, bytes.NewReader(buf), "application/json")
	if err != nil {
		return catalog.Book{}, err
	}
	defer resp.Body.Close()
	var wire bookJSON
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return catalog.Book{}, err
	}
	return wire.normalize(), nil
}

// Download fetches a book file in the given format.
func (c *Client) Download(ctx context.Context, id int64, format string) ([]byte, error) {
	path := fmt.Sprintf("/api/cwa/library/books/%d/download/%s", id, strings.ToLower(format))
	resp, err := c.do(ctx, http.MethodGet, path, nil, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// SendToKindle asks the server to mail the book to the user's device.
func (c *Client) SendToKindle(ctx context.Context, id int64) error {
	body := bytes.NewReader([]byte("{}"))
	resp, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/cwa/library/books/%d/send-to-kindle", id), nil, body, "application/json")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Upload pushes a local file into the server's ingest pipeline.
func (c *Client) Upload(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/cwa/library/upload", nil, &buf, w.FormDataContentType())
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// ---------------- Stats ----------------

type Stats struct {
	TotalBooks   int `json:"total_books"`
	TotalAuthors int `json:"total_authors"`
	TotalSeries  int `json:"total_series"`
}

func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := c.getJSON(ctx, "/api/metadata/stats", nil, &s)
	return s, err
}
