package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"inkdrop/api"
	"inkdrop/catalog"
)

// ---------------- EditModel ----------------

// Field order in the edit form.
const (
	fieldTitle = iota
	fieldAuthors
	fieldSeries
	fieldSeriesIndex
	fieldRating
	fieldTags
	fieldCount
)

type EditModel struct {
	deps    Deps
	book    catalog.Book
	inputs  []textinput.Model
	focus   int
	width   int
	height  int
	saving  bool
	saveErr error
}

func NewEditModel(deps Deps, book catalog.Book, width, height int) EditModel {
	labels := []string{"Title", "Authors", "Series", "Series #", "Rating", "Tags"}
	values := []string{
		book.Title,
		strings.Join(book.Authors, ", "),
		book.Series,
		trimFloat(book.SeriesIndex),
		trimFloat(book.Rating),
		strings.Join(book.Tags, ", "),
	}

	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		in := textinput.New()
		in.Prompt = fmt.Sprintf("%-9s ", labels[i]+":")
		in.PromptStyle = PromptStyle
		in.TextStyle = PromptTextStyle
		in.SetValue(values[i])
		inputs[i] = in
	}
	inputs[0].Focus()

	return EditModel{deps: deps, book: book, inputs: inputs, width: width, height: height}
}

func trimFloat(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func saveCmd(deps Deps, book catalog.Book, req api.UpdateRequest) tea.Cmd {
	return func() tea.Msg {
		updated, err := deps.API.UpdateBook(context.Background(), book.ID, req)
		if err != nil {
			return bookSavedMsg{err: err}
		}
		return bookSavedMsg{book: updated}
	}
}

func (m EditModel) Update(msg tea.Msg) (EditModel, tea.Cmd) {
	switch tm := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = tm.Width
		m.height = tm.Height

	case tea.KeyMsg:
		switch tm.String() {
		case "tab", "down":
			m.setFocus((m.focus + 1) % fieldCount)
			return m, textinput.Blink
		case "shift+tab", "up":
			m.setFocus((m.focus + fieldCount - 1) % fieldCount)
			return m, textinput.Blink
		case "enter":
			if m.saving {
				return m, nil
			}
			req, err := m.buildRequest()
			if err != nil {
				m.saveErr = err
				return m, nil
			}
			m.saving = true
			m.saveErr = nil
			return m, saveCmd(m.deps, m.book, req)
		case "esc":
			return m, nil // app model leaves the edit state
		}

		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(tm)
		return m, cmd

	case bookSavedMsg:
		m.saving = false
		if tm.err != nil {
			m.saveErr = tm.err
		}
	}
	return m, nil
}

func (m *EditModel) setFocus(i int) {
	m.inputs[m.focus].Blur()
	m.focus = i
	m.inputs[i].Focus()
}

// buildRequest diffs the form against the book so the server only sees the
// fields that actually changed.
func (m EditModel) buildRequest() (api.UpdateRequest, error) {
	var req api.UpdateRequest

	if v := strings.TrimSpace(m.inputs[fieldTitle].Value()); v != m.book.Title {
		if v == "" {
			return req, fmt.Errorf("title cannot be empty")
		}
		req.Title = &v
	}
	if v := splitList(m.inputs[fieldAuthors].Value()); !equalStrings(v, m.book.Authors) {
		req.Authors = v
	}
	if v := strings.TrimSpace(m.inputs[fieldSeries].Value()); v != m.book.Series {
		req.Series = &v
	}
	if raw := strings.TrimSpace(m.inputs[fieldSeriesIndex].Value()); raw != trimFloat(m.book.SeriesIndex) {
		f, err := parseOptionalFloat(raw)
		if err != nil {
			return req, fmt.Errorf("series #: %w", err)
		}
		if f < 0 {
			return req, fmt.Errorf("series # cannot be negative")
		}
		req.SeriesIndex = &f
	}
	if raw := strings.TrimSpace(m.inputs[fieldRating].Value()); raw != trimFloat(m.book.Rating) {
		f, err := parseOptionalFloat(raw)
		if err != nil {
			return req, fmt.Errorf("rating: %w", err)
		}
		if f < 0 || f > 5 {
			return req, fmt.Errorf("rating must be 0-5")
		}
		req.Rating = &f
	}
	if v := splitList(m.inputs[fieldTags].Value()); !equalStrings(v, m.book.Tags) {
		req.Tags = v
	}

	return req, nil
}

func parseOptionalFloat(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (m EditModel) View() string {
	var s strings.Builder
	s.WriteString(DetailTitleStyle.Render("Edit metadata") + "\n\n")
	for i := range m.inputs {
		s.WriteString(m.inputs[i].View() + "\n")
	}
	s.WriteString("\n" + StatusMutedStyle.Render("tab next field  enter save  esc cancel"))
	if m.saving {
		s.WriteString("\n" + StatusStyle.Render("Saving..."))
	}
	if m.saveErr != nil {
		s.WriteString("\n" + ErrorStyle.Render(m.saveErr.Error()))
	}

	w := m.width - 10
	if w < 40 {
		w = 40
	}
	return DetailBoxStyle.Width(w).Render(s.String())
}
