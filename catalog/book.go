package catalog

import (
	"strings"
	"time"
)

// Kind tags where a Book came from. Library books carry a stable server ID
// and format data; search results only carry what the source page showed.
type Kind int

const (
	KindLibrary Kind = iota
	KindSearch
)

type Book struct {
	Kind        Kind
	ID          int64
	Title       string
	Authors     []string
	Series      string
	SeriesIndex float64
	Rating      float64 // 0-5, server halves Calibre's 0-10 scale
	Tags        []string
	Formats     []string
	FormatSizes map[string]int64
	HasCover    bool
	Added       time.Time
	Modified    time.Time
	Comments    string

	// Search-result extras, empty for library books
	SourceName string
	SourceURL  string
}

func (b Book) AuthorLine() string {
	if len(b.Authors) == 0 {
		return "Unknown"
	}
	return strings.Join(b.Authors, ", ")
}

// Stars renders the rating at half-star granularity, e.g. 3.5 -> "★★★½".
func (b Book) Stars() string {
	half := int(b.Rating*2 + 0.5)
	if half <= 0 {
		return ""
	}
	if half > 10 {
		half = 10
	}
	s := strings.Repeat("★", half/2)
	if half%2 == 1 {
		s += "½"
	}
	return s
}

// Page is one fetch unit of the remote list.
type Page struct {
	Books   []Book
	Total   int
	Page    int // 1-based
	PerPage int
	Pages   int
}
