package api

import (
	"time"

	"inkdrop/catalog"
)

// bookJSON is the wire shape of a library book as the Calibre-backed
// server sends it. normalize is the single place the duck-typed JSON turns
// into a catalog.Book; nothing downstream touches optional wire fields.
type bookJSON struct {
	ID      int64    `json:"id"`
	Title   string   `json:"title"`
	Authors []string `json:"authors"`
	Series  *struct {
		Name  string  `json:"name"`
		Index float64 `json:"index"`
	} `json:"series"`
	Rating  *float64 `json:"rating"`
	PubDate string   `json:"pubdate"`
	Tags    []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"tags"`
	Formats []struct {
		Format string `json:"format"`
		Size   int64  `json:"size"`
	} `json:"formats"`
	HasCover     bool   `json:"has_cover"`
	Timestamp    string `json:"timestamp"`
	LastModified string `json:"last_modified"`
	Comments     string `json:"comments"`
}

func (w bookJSON) normalize() catalog.Book {
	b := catalog.Book{
		Kind:     catalog.KindLibrary,
		ID:       w.ID,
		Title:    w.Title,
		Authors:  w.Authors,
		HasCover: w.HasCover,
		Comments: w.Comments,
	}
	if w.Series != nil {
		b.Series = w.Series.Name
		b.SeriesIndex = w.Series.Index
	}
	if w.Rating != nil {
		b.Rating = *w.Rating
	}
	for _, t := range w.Tags {
		b.Tags = append(b.Tags, t.Name)
	}
	if len(w.Formats) > 0 {
		b.FormatSizes = make(map[string]int64, len(w.Formats))
		for _, f := range w.Formats {
			b.Formats = append(b.Formats, f.Format)
			b.FormatSizes[f.Format] = f.Size
		}
	}
	b.Added = parseISO(w.Timestamp)
	b.Modified = parseISO(w.LastModified)
	return b
}

func parseISO(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
