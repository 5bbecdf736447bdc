package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkdrop/catalog"
)

func TestGeometryList(t *testing.T) {
	g := geometryFor(catalog.ViewList, 100)
	assert.Equal(t, 1, g.cols)
	assert.Equal(t, 0, g.rowOfIndex(0))
	assert.Equal(t, 2, g.rowOfIndex(1))
	assert.Equal(t, 40, g.rowOfIndex(20))
	assert.Equal(t, 40, g.totalRows(20))
	assert.Equal(t, 5, g.indexAtRow(10))
}

func TestGeometryGrid(t *testing.T) {
	g := geometryFor(catalog.ViewGrid, 100) // 3 columns of 30
	require.Equal(t, 3, g.cols)
	assert.Equal(t, 0, g.rowOfIndex(2))
	assert.Equal(t, 3, g.rowOfIndex(3))
	assert.Equal(t, 3, g.rowOfIndex(5))
	assert.Equal(t, 21, g.totalRows(20), "7 item rows of 3 lines")
	assert.Equal(t, 3, g.indexAtRow(3))
	assert.Equal(t, 3, g.indexAtRow(5))
}

func TestGeometryNarrowWindow(t *testing.T) {
	g := geometryFor(catalog.ViewGrid, 10)
	assert.Equal(t, 1, g.cols, "grid never drops below one column")
}

func TestGeometryBounds(t *testing.T) {
	g := geometryFor(catalog.ViewList, 80)
	assert.Equal(t, 0, g.rowOfIndex(-1))
	assert.Equal(t, 0, g.indexAtRow(-5))
	assert.Equal(t, 0, g.totalRows(0))
}

func TestPageMarkersRelativeToViewport(t *testing.T) {
	g := geometryFor(catalog.ViewList, 80)
	events := pageMarkers(3, 20, g, 45)
	require.Len(t, events, 3)
	assert.Equal(t, catalog.MarkerEvent{Page: 1, Top: -45}, events[0])
	assert.Equal(t, catalog.MarkerEvent{Page: 2, Top: -5}, events[1])
	assert.Equal(t, catalog.MarkerEvent{Page: 3, Top: 35}, events[2])

	// Feeding these through the pure selector picks the page whose first
	// row sits closest to the viewport top.
	page, ok := catalog.NearestPage(events)
	require.True(t, ok)
	assert.Equal(t, 2, page)
}

func TestPageMarkersGuardRails(t *testing.T) {
	g := geometryFor(catalog.ViewList, 80)
	assert.Nil(t, pageMarkers(3, 0, g, 0))
	assert.Empty(t, pageMarkers(0, 20, g, 0))
}
