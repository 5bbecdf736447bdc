package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"inkdrop/catalog"
	"inkdrop/kindle"
)

// ---------------- DetailModel ----------------

type DetailModel struct {
	deps   Deps
	book   catalog.Book
	width  int
	height int
	busy   bool
	status string
}

func NewDetailModel(deps Deps, book catalog.Book, width, height int) DetailModel {
	return DetailModel{deps: deps, book: book, width: width, height: height}
}

// sendToKindleCmd tries the server endpoint first and falls back to direct
// SMTP when the server can't deliver but local SMTP is configured.
func sendToKindleCmd(deps Deps, b catalog.Book) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		serverErr := deps.API.SendToKindle(ctx, b.ID)
		if serverErr == nil {
			return kindleSentMsg{title: b.Title}
		}
		if deps.Kindle == nil || !deps.Kindle.Configured() {
			return kindleSentMsg{title: b.Title, err: serverErr}
		}

		format, ok := kindle.PickFormat(b)
		if !ok {
			return kindleSentMsg{title: b.Title, err: fmt.Errorf("no sendable format")}
		}
		data, err := deps.API.Download(ctx, b.ID, format)
		if err != nil {
			return kindleSentMsg{title: b.Title, err: err}
		}
		if err := deps.Kindle.Send(b, format, data); err != nil {
			return kindleSentMsg{title: b.Title, err: err}
		}
		return kindleSentMsg{title: b.Title}
	}
}

func downloadCmd(deps Deps, b catalog.Book) tea.Cmd {
	return func() tea.Msg {
		format, ok := kindle.PickFormat(b)
		if !ok {
			return downloadedMsg{err: fmt.Errorf("no downloadable format")}
		}
		data, err := deps.API.Download(context.Background(), b.ID, format)
		if err != nil {
			return downloadedMsg{err: err}
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return downloadedMsg{err: err}
		}
		name := fmt.Sprintf("%s.%s", strings.ReplaceAll(b.Title, "/", "_"), strings.ToLower(format))
		path := filepath.Join(home, "Downloads", name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return downloadedMsg{err: err}
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return downloadedMsg{err: err}
		}
		return downloadedMsg{path: path}
	}
}

func (m DetailModel) Update(msg tea.Msg) (DetailModel, tea.Cmd) {
	switch tm := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = tm.Width
		m.height = tm.Height

	case kindleSentMsg:
		m.busy = false
		if tm.err != nil {
			m.status = "Send failed: " + tm.err.Error()
		} else {
			m.status = fmt.Sprintf("Sent %q to your Kindle", tm.title)
		}

	case downloadedMsg:
		m.busy = false
		if tm.err != nil {
			m.status = "Download failed: " + tm.err.Error()
		} else {
			m.status = "Saved to " + tm.path
		}

	case tea.KeyMsg:
		switch tm.String() {
		case "k":
			if !m.busy {
				m.busy = true
				m.status = "Sending to Kindle..."
				return m, sendToKindleCmd(m.deps, m.book)
			}
		case "D":
			if !m.busy {
				m.busy = true
				m.status = "Downloading..."
				return m, downloadCmd(m.deps, m.book)
			}
		}
	}
	return m, nil
}

func (m DetailModel) View() string {
	b := m.book
	w := m.width - 10
	if w < 30 {
		w = 30
	}

	var s strings.Builder
	s.WriteString(DetailTitleStyle.Render(b.Title) + "\n\n")
	s.WriteString(DetailLabelStyle.Render("Author   ") + DetailTextStyle.Render(b.AuthorLine()) + "\n")
	if b.Series != "" {
		s.WriteString(DetailLabelStyle.Render("Series   ") +
			DetailTextStyle.Render(fmt.Sprintf("%s #%.1f", b.Series, b.SeriesIndex)) + "\n")
	}
	if stars := b.Stars(); stars != "" {
		s.WriteString(DetailLabelStyle.Render("Rating   ") + DetailTextStyle.Render(stars) + "\n")
	}
	if len(b.Tags) > 0 {
		s.WriteString(DetailLabelStyle.Render("Tags     ") +
			DetailTextStyle.Render(strings.Join(b.Tags, ", ")) + "\n")
	}
	if len(b.Formats) > 0 {
		parts := make([]string, len(b.Formats))
		for i, f := range b.Formats {
			parts[i] = fmt.Sprintf("%s (%s)", f, humanSize(b.FormatSizes[f]))
		}
		s.WriteString(DetailLabelStyle.Render("Formats  ") +
			DetailTextStyle.Render(strings.Join(parts, ", ")) + "\n")
	}
	if !b.Added.IsZero() {
		s.WriteString(DetailLabelStyle.Render("Added    ") +
			DetailTextStyle.Render(b.Added.Format("2006-01-02")) + "\n")
	}
	if b.Comments != "" {
		s.WriteString("\n" + DetailTextStyle.Render(wordwrap.String(stripMarkup(b.Comments), w)) + "\n")
	}

	s.WriteString("\n" + StatusMutedStyle.Render("k kindle  D download  e edit  esc back"))
	if m.status != "" {
		s.WriteString("\n" + StatusStyle.Render(m.status))
	}

	return DetailBoxStyle.Width(w + 4).Render(s.String())
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.0f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// stripMarkup drops the limited HTML Calibre allows in comments.
func stripMarkup(s string) string {
	var out strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			out.WriteRune(r)
		}
	}
	return strings.TrimSpace(out.String())
}
