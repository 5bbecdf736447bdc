package catalog

import (
	"sync"
	"time"
)

const saveThrottle = 100 * time.Millisecond

// ScrollRecord remembers where the user was in one search+sort view.
// AnchorID beats Offset on restore: raw offsets drift when the window is
// resized, the anchor book does not.
type ScrollRecord struct {
	Offset   int
	AnchorID int64
}

// ScrollMemory is the session-scoped scroll store, keyed by Query.Key().
// Saves are throttled: writes landing inside the throttle window are staged
// and committed by the next save or read, so the latest position is never
// lost. Nothing here survives the process, by design.
type ScrollMemory struct {
	mu        sync.Mutex
	records   map[string]ScrollRecord
	pending   map[string]ScrollRecord
	lastWrite map[string]time.Time
	now       func() time.Time
}

func NewScrollMemory() *ScrollMemory {
	return &ScrollMemory{
		records:   make(map[string]ScrollRecord),
		pending:   make(map[string]ScrollRecord),
		lastWrite: make(map[string]time.Time),
		now:       time.Now,
	}
}

// SetClock replaces the time source. Tests only.
func (m *ScrollMemory) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

func (m *ScrollMemory) Save(key string, rec ScrollRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if last, ok := m.lastWrite[key]; ok && now.Sub(last) < saveThrottle {
		m.pending[key] = rec
		return
	}
	m.commitLocked(key, rec, now)
}

func (m *ScrollMemory) commitLocked(key string, rec ScrollRecord, now time.Time) {
	m.records[key] = rec
	m.lastWrite[key] = now
	delete(m.pending, key)
}

// Restore returns the remembered position for key, flushing any staged
// write first so a throttled save is not silently dropped.
func (m *ScrollMemory) Restore(key string) (ScrollRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.pending[key]; ok {
		m.commitLocked(key, rec, m.now())
	}
	rec, ok := m.records[key]
	return rec, ok
}

// Clear forgets the position for key. Called when search or sort changes
// and on explicit go-to-page navigation.
func (m *ScrollMemory) Clear(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	delete(m.pending, key)
	delete(m.lastWrite, key)
}
