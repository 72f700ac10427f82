// Package store holds the playback agent's persistence and in-memory stores:
// the flat JSON favorites/playlists documents and the bounded play history.
package store

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// HistoryEntry is one recently played item.
type HistoryEntry struct {
	ID    string
	Title string
}

// History is a thread-safe bounded FIFO of recently played items. A Bloom
// filter fast-rejects ids that were never seen before touching the map.
type History struct {
	entries           map[string]struct{}
	bloom             *bloom.BloomFilter
	lru               *lru.Cache[string, string] // id -> title, insertion ordered
	mutex             sync.RWMutex
	capacity          int
	falsePositiveRate float64
}

// NewHistory creates a history bounded to capacity items.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 1
	}
	cache, _ := lru.New[string, string](capacity)

	return &History{
		entries:           make(map[string]struct{}),
		bloom:             bloom.NewWithEstimates(uint(capacity), 0.01),
		lru:               cache,
		capacity:          capacity,
		falsePositiveRate: 0.01,
	}
}

// Has reports whether id was recently played.
func (h *History) Has(id string) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if !h.bloom.TestString(id) {
		return false
	}
	_, exists := h.entries[id]
	return exists
}

// Add records a played item, evicting the oldest when over capacity.
// Re-adding a known id refreshes its position.
func (h *History) Add(id, title string) {
	if id == "" {
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.entries[id] = struct{}{}
	h.bloom.AddString(id)
	h.lru.Add(id, title)

	for len(h.entries) > h.capacity {
		h.evictOldest()
	}
	// The lru may have evicted silently when the id was new and the cache
	// full; reconcile the map with it.
	if h.lru.Len() < len(h.entries) {
		h.reconcile()
	}
}

// Items returns the history oldest first.
func (h *History) Items() []HistoryEntry {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	keys := h.lru.Keys()
	out := make([]HistoryEntry, 0, len(keys))
	for _, id := range keys {
		title, _ := h.lru.Peek(id)
		out = append(out, HistoryEntry{ID: id, Title: title})
	}
	return out
}

// RecentTitles returns just the titles, oldest first. Used by the similarity
// guard when vetting radio candidates.
func (h *History) RecentTitles() []string {
	items := h.Items()
	titles := make([]string, len(items))
	for i, e := range items {
		titles[i] = e.Title
	}
	return titles
}

// Len returns the number of items currently held.
func (h *History) Len() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.entries)
}

// Clear empties the history.
func (h *History) Clear() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.entries = make(map[string]struct{})
	h.bloom = bloom.NewWithEstimates(uint(h.capacity), h.falsePositiveRate)
	h.lru.Purge()
}

func (h *History) evictOldest() {
	oldest, _, ok := h.lru.GetOldest()
	if !ok {
		return
	}
	delete(h.entries, oldest)
	h.lru.Remove(oldest)
}

func (h *History) reconcile() {
	live := make(map[string]struct{}, h.lru.Len())
	for _, id := range h.lru.Keys() {
		live[id] = struct{}{}
	}
	for id := range h.entries {
		if _, ok := live[id]; !ok {
			delete(h.entries, id)
		}
	}
}
