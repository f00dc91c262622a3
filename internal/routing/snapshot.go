package routing

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/routegraph/internal/kgraph"
)

// Snapshot is one immutable build of a cache key's knowledge graph.
// Readers share a Snapshot freely; a refresh publishes a new one.
type Snapshot struct {
	ID       string                `json:"id"`
	Version  int64                 `json:"version"`
	Key      CacheKey              `json:"key"`
	Graph    *kgraph.Graph         `json:"-"`
	BuiltAt  time.Time             `json:"built_at"`
	Warnings []kgraph.CycleWarning `json:"warnings,omitempty"`
}

// IDGenerator issues snapshot ids.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 snapshot ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// VersionSource issues strictly increasing snapshot versions.
type VersionSource interface {
	Next() int64
}

// Clock is a monotonic logical clock for snapshot versions. A later
// snapshot of the same key always carries a larger version.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock that resumes after start.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next version.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued version without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
