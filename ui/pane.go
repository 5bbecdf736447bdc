package ui

import "inkdrop/catalog"

// Library pane geometry. The pane renders the flattened book sequence as
// rows; grid view packs several books per row. Page markers are logical
// row positions (the row of each page's first book), not rendered rows, so
// geometry stays trivial to reason about.
const (
	listRowsPerItem = 2
	gridRowsPerItem = 3
	gridCellWidth   = 30
)

type paneGeometry struct {
	view        catalog.View
	width       int
	cols        int
	rowsPerItem int
}

func geometryFor(view catalog.View, width int) paneGeometry {
	if view == catalog.ViewGrid {
		cols := (width - 2) / gridCellWidth
		if cols < 1 {
			cols = 1
		}
		return paneGeometry{view: view, width: width, cols: cols, rowsPerItem: gridRowsPerItem}
	}
	return paneGeometry{view: view, width: width, cols: 1, rowsPerItem: listRowsPerItem}
}

func (g paneGeometry) rowOfIndex(i int) int {
	if i < 0 {
		return 0
	}
	return (i / g.cols) * g.rowsPerItem
}

// indexAtRow returns the first flattened index rendered on the given row.
func (g paneGeometry) indexAtRow(row int) int {
	if row < 0 {
		return 0
	}
	return (row / g.rowsPerItem) * g.cols
}

func (g paneGeometry) totalRows(n int) int {
	if n <= 0 {
		return 0
	}
	itemRows := (n + g.cols - 1) / g.cols
	return itemRows * g.rowsPerItem
}

// pageMarkers produces one observation per loaded page, with each marker's
// row position expressed relative to the viewport top.
func pageMarkers(loadedPages, perPage int, g paneGeometry, scrollRow int) []catalog.MarkerEvent {
	if perPage <= 0 {
		return nil
	}
	events := make([]catalog.MarkerEvent, 0, loadedPages)
	for p := 1; p <= loadedPages; p++ {
		row := g.rowOfIndex((p - 1) * perPage)
		events = append(events, catalog.MarkerEvent{Page: p, Top: row - scrollRow})
	}
	return events
}
