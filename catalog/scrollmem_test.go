package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrollMemorySaveRestore(t *testing.T) {
	m := NewScrollMemory()
	clock := newFakeClock()
	m.SetClock(clock.Now)

	_, ok := m.Restore("dune|new")
	assert.False(t, ok)

	m.Save("dune|new", ScrollRecord{Offset: 12, AnchorID: 7})
	rec, ok := m.Restore("dune|new")
	require.True(t, ok)
	assert.Equal(t, ScrollRecord{Offset: 12, AnchorID: 7}, rec)
}

func TestScrollMemoryThrottleStagesLatestWrite(t *testing.T) {
	m := NewScrollMemory()
	clock := newFakeClock()
	m.SetClock(clock.Now)
	key := "|new"

	m.Save(key, ScrollRecord{Offset: 10})

	// A burst inside the throttle window: none of these commit yet, but the
	// last one is staged.
	clock.Advance(20 * time.Millisecond)
	m.Save(key, ScrollRecord{Offset: 20})
	clock.Advance(20 * time.Millisecond)
	m.Save(key, ScrollRecord{Offset: 30})

	// Restore must see the staged value, not the stale committed one.
	rec, ok := m.Restore(key)
	require.True(t, ok)
	assert.Equal(t, 30, rec.Offset)
}

func TestScrollMemoryCommitsAfterThrottleWindow(t *testing.T) {
	m := NewScrollMemory()
	clock := newFakeClock()
	m.SetClock(clock.Now)
	key := "|new"

	m.Save(key, ScrollRecord{Offset: 10})
	clock.Advance(50 * time.Millisecond)
	m.Save(key, ScrollRecord{Offset: 20}) // staged

	clock.Advance(200 * time.Millisecond)
	m.Save(key, ScrollRecord{Offset: 40}) // past the window, commits directly

	rec, ok := m.Restore(key)
	require.True(t, ok)
	assert.Equal(t, 40, rec.Offset)
}

func TestScrollMemoryKeysAreIndependent(t *testing.T) {
	m := NewScrollMemory()
	clock := newFakeClock()
	m.SetClock(clock.Now)

	m.Save("a|new", ScrollRecord{Offset: 1})
	m.Save("b|new", ScrollRecord{Offset: 2})

	m.Clear("a|new")
	_, ok := m.Restore("a|new")
	assert.False(t, ok)
	rec, ok := m.Restore("b|new")
	require.True(t, ok)
	assert.Equal(t, 2, rec.Offset)
}
