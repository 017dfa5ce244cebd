// memo.go — Bounded memoization of auto-fit results. Rows in a batch often
// share text, so identical queries recur; the memo skips their binary search.
package textfit

import (
	"sync"
	"time"
)

const (
	memoCapacity = 200
	memoTTL      = time.Minute
	// Fraction of oldest entries dropped when the memo overflows.
	memoEvictFraction = 0.2
)

type memoEntry struct {
	size    float64
	savedAt time.Time
}

// Memo is a bounded, TTL-expiring cache of auto-fit results keyed by the full
// option set. Safe for concurrent use.
type Memo struct {
	mu      sync.Mutex
	entries map[Options]memoEntry
	order   []Options // insertion order, oldest first
	now     func() time.Time
}

// NewMemo returns an empty memo.
func NewMemo() *Memo {
	return &Memo{
		entries: make(map[Options]memoEntry, memoCapacity),
		now:     time.Now,
	}
}

// Get returns the memoized size for opts if present and fresh.
func (m *Memo) Get(opts Options) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[opts]
	if !ok {
		return 0, false
	}
	if m.now().Sub(e.savedAt) > memoTTL {
		delete(m.entries, opts)
		m.dropOrder(opts)
		return 0, false
	}
	return e.size, true
}

// Put stores a result, evicting the oldest 20% of entries on overflow.
func (m *Memo) Put(opts Options, size float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, exists := m.entries[opts]
	if !exists && len(m.entries) >= memoCapacity {
		m.evictOldest()
	}
	m.entries[opts] = memoEntry{size: size, savedAt: m.now()}
	// Re-inserting a live key keeps its original order slot; otherwise the
	// order slice would grow without bound under churn.
	if !exists {
		m.order = append(m.order, opts)
	}
}

// dropOrder removes one key's slot. Caller holds the lock.
func (m *Memo) dropOrder(opts Options) {
	for i, k := range m.order {
		if k == opts {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

// evictOldest drops the oldest memoEvictFraction of live entries.
// Caller holds the lock.
func (m *Memo) evictOldest() {
	target := int(float64(memoCapacity) * memoEvictFraction)
	if target < 1 {
		target = 1
	}
	removed := 0
	i := 0
	for ; i < len(m.order) && removed < target; i++ {
		key := m.order[i]
		if _, ok := m.entries[key]; ok {
			delete(m.entries, key)
			removed++
		}
	}
	m.order = m.order[i:]
}

// Len reports the number of live entries.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
