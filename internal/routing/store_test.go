package routing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/routegraph/internal/testutil"
)

func TestMemoryStoreGetPut(t *testing.T) {
	s := NewMemoryStore()
	_, ok := s.Get("a")
	assert.False(t, ok)

	first := &Snapshot{ID: "1"}
	s.Put("a", first)
	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Same(t, first, got)

	second := &Snapshot{ID: "2"}
	s.Put("a", second)
	got, _ = s.Get("a")
	assert.Same(t, second, got, "Put replaces the snapshot")
	assert.Equal(t, 1, s.Len())

	stats := s.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestMemoryStoreEvictsLeastRecentlyUsed(t *testing.T) {
	s := NewMemoryStore(WithMaxEntries(2))
	s.Put("a", &Snapshot{ID: "a"})
	s.Put("b", &Snapshot{ID: "b"})

	// touch a so b becomes the oldest
	_, ok := s.Get("a")
	require.True(t, ok)

	s.Put("c", &Snapshot{ID: "c"})

	_, ok = s.Get("b")
	assert.False(t, ok)
	_, ok = s.Get("a")
	assert.True(t, ok)
	_, ok = s.Get("c")
	assert.True(t, ok)
	assert.Equal(t, int64(1), s.Stats().Evictions)
}

func TestMemoryStoreExpires(t *testing.T) {
	clock := testutil.NewManualClock()
	s := NewMemoryStore(WithMaxAge(time.Minute), WithStoreClock(clock.Now))
	s.Put("a", &Snapshot{ID: "a"})

	clock.Advance(59 * time.Second)
	_, ok := s.Get("a")
	assert.True(t, ok)

	clock.Advance(2 * time.Second)
	_, ok = s.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len(), "expired entries are removed on lookup")
}

func TestMemoryStoreNoExpiry(t *testing.T) {
	clock := testutil.NewManualClock()
	s := NewMemoryStore(WithMaxAge(0), WithStoreClock(clock.Now))
	s.Put("a", &Snapshot{ID: "a"})

	clock.Advance(24 * time.Hour)
	_, ok := s.Get("a")
	assert.True(t, ok)
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	s.Put("a", &Snapshot{ID: "a"})
	s.Delete("a")
	s.Delete("missing")

	_, ok := s.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}
