package routing

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

// GraphStore holds snapshots under opaque string keys.
// Implementations must be safe for concurrent use.
type GraphStore interface {
	Get(key string) (*Snapshot, bool)
	Put(key string, s *Snapshot)
	Delete(key string)
}

// StoreStats is a point-in-time view of a MemoryStore.
type StoreStats struct {
	Entries    int           `json:"entries"`
	Hits       int64         `json:"hits"`
	Misses     int64         `json:"misses"`
	Evictions  int64         `json:"evictions"`
	MaxEntries int           `json:"max_entries"`
	MaxAge     time.Duration `json:"max_age"`
}

type storeEntry struct {
	key      string
	snapshot *Snapshot
	storedAt time.Time
	elem     *list.Element
}

// MemoryStore is an in-process GraphStore bounded by entry count (LRU)
// and age (TTL).
//
// Thread Safety:
//
//	MemoryStore is safe for concurrent use. A single mutex guards the entry
//	map and the LRU list; stats are atomic.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]*storeEntry
	lru        *list.List
	maxEntries int
	maxAge     time.Duration
	now        func() time.Time

	hits      int64
	misses    int64
	evictions int64
}

// StoreOption configures a MemoryStore.
type StoreOption func(*MemoryStore)

// WithMaxEntries bounds the number of cached snapshots. Zero means unbounded.
//
// Default: 1024
func WithMaxEntries(n int) StoreOption {
	return func(s *MemoryStore) {
		s.maxEntries = n
	}
}

// WithMaxAge expires snapshots older than d. Zero disables expiry.
//
// Default: 5m
func WithMaxAge(d time.Duration) StoreOption {
	return func(s *MemoryStore) {
		s.maxAge = d
	}
}

// WithStoreClock replaces the wall clock used for expiry.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	s := &MemoryStore{
		entries:    make(map[string]*storeEntry),
		lru:        list.New(),
		maxEntries: 1024,
		maxAge:     5 * time.Minute,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the snapshot stored under key. Expired entries are removed
// and reported as missing.
func (s *MemoryStore) Get(key string) (*Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		atomic.AddInt64(&s.misses, 1)
		return nil, false
	}
	if s.expired(e) {
		s.removeLocked(e)
		atomic.AddInt64(&s.misses, 1)
		return nil, false
	}

	s.lru.MoveToFront(e.elem)
	atomic.AddInt64(&s.hits, 1)
	return e.snapshot, true
}

// Put stores snap under key, replacing any previous snapshot. The least
// recently used entries are evicted when the store is full.
func (s *MemoryStore) Put(key string, snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		e.snapshot = snap
		e.storedAt = s.now()
		s.lru.MoveToFront(e.elem)
		return
	}

	e := &storeEntry{key: key, snapshot: snap, storedAt: s.now()}
	e.elem = s.lru.PushFront(e)
	s.entries[key] = e
	s.evictLocked()
}

// Delete removes key. Deleting a missing key is a no-op.
func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		s.removeLocked(e)
	}
}

// Len returns the number of stored snapshots, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats returns current store statistics.
func (s *MemoryStore) Stats() StoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return StoreStats{
		Entries:    len(s.entries),
		Hits:       atomic.LoadInt64(&s.hits),
		Misses:     atomic.LoadInt64(&s.misses),
		Evictions:  atomic.LoadInt64(&s.evictions),
		MaxEntries: s.maxEntries,
		MaxAge:     s.maxAge,
	}
}

func (s *MemoryStore) expired(e *storeEntry) bool {
	if s.maxAge == 0 {
		return false
	}
	return s.now().Sub(e.storedAt) > s.maxAge
}

// evictLocked drops least recently used entries until the store fits
// (must hold mu).
func (s *MemoryStore) evictLocked() {
	if s.maxEntries <= 0 {
		return
	}
	for len(s.entries) > s.maxEntries {
		back := s.lru.Back()
		if back == nil {
			return
		}
		s.removeLocked(back.Value.(*storeEntry))
		atomic.AddInt64(&s.evictions, 1)
	}
}

func (s *MemoryStore) removeLocked(e *storeEntry) {
	s.lru.Remove(e.elem)
	delete(s.entries, e.key)
}
