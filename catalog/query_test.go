package catalog

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQueryDefaults(t *testing.T) {
	q := ParseQuery(url.Values{})
	assert.Equal(t, "", q.Search)
	assert.Equal(t, SortNew, q.Sort)
	assert.Equal(t, ViewGrid, q.View)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, StatusAll, q.Status)
}

func TestParseQueryTolerant(t *testing.T) {
	v := url.Values{}
	v.Set("sort", "nonsense")
	v.Set("view", "carousel")
	v.Set("page", "-3")
	v.Set("status", "maybe")
	q := ParseQuery(v)
	assert.Equal(t, DefaultQuery(), q)
}

func TestQueryRoundTrip(t *testing.T) {
	q := Query{
		Search: "dune",
		Sort:   SortAuthorAZ,
		View:   ViewList,
		Page:   4,
		Status: StatusUnread,
	}
	got := ParseQuery(q.Values())
	assert.Equal(t, q, got)
}

func TestValuesOmitsDefaults(t *testing.T) {
	v := DefaultQuery().Values()
	assert.Empty(t, v.Encode())
}

func TestSearchAndSortResetPage(t *testing.T) {
	q := DefaultQuery().WithPage(7)

	assert.Equal(t, 1, q.WithSearch("herbert").Page)
	assert.Equal(t, 1, q.WithSort(SortTitleZA).Page)
	assert.Equal(t, 1, q.WithStatus(StatusRead).Page)

	// View flips keep pagination.
	assert.Equal(t, 7, q.WithView(ViewList).Page)
}

func TestValuesOmitsPageAfterSearchChange(t *testing.T) {
	q := DefaultQuery().WithPage(3).WithSearch("dune")
	require.Empty(t, q.Values().Get("page"))
}

func TestSortCycle(t *testing.T) {
	s := SortNew
	seen := map[Sort]bool{}
	for i := 0; i < len(sortOrder); i++ {
		require.True(t, s.Valid())
		require.False(t, seen[s], "sort %q repeated before full cycle", s)
		seen[s] = true
		s = s.Next()
	}
	assert.Equal(t, SortNew, s)
}

func TestSameListIgnoresPresentation(t *testing.T) {
	a := Query{Search: "x", Sort: SortNew, View: ViewGrid, Page: 1}
	b := a.WithPage(5).WithView(ViewList)
	assert.True(t, a.SameList(b))
	assert.False(t, a.SameList(a.WithSearch("y")))
	assert.False(t, a.SameList(a.WithStatus(StatusRead)))
}
