package routing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/roach88/routegraph/internal/ir"
)

// GraphCache serves knowledge graph snapshots cache-aside: a lookup that
// misses loads the configuration, builds the graph and stores the snapshot
// before returning it.
//
// Thread Safety:
//
//	GraphCache is safe for concurrent use. At most one build per key is in
//	flight; concurrent callers for that key share its result. Snapshots are
//	immutable, so readers never lock.
//
//	Every key has a generation that Invalidate and Refresh advance. A build
//	stores its snapshot only if the generation it started under is still
//	current, so a build that raced a configuration change never replaces
//	the newer state.
type GraphCache struct {
	source ConfigSource
	store  GraphStore
	schema *ir.Schema
	ids    IDGenerator
	clock  VersionSource
	now    func() time.Time
	logger *zap.Logger
	flight singleflight.Group

	mu   sync.Mutex
	gens map[string]uint64
}

// CacheOption configures a GraphCache.
type CacheOption func(*GraphCache)

// WithStore replaces the snapshot store.
//
// Default: NewMemoryStore()
func WithStore(s GraphStore) CacheOption {
	return func(c *GraphCache) {
		c.store = s
	}
}

// WithSchema sets the schema graphs are built against.
//
// Default: ir.DefaultSchema()
func WithSchema(s *ir.Schema) CacheOption {
	return func(c *GraphCache) {
		c.schema = s
	}
}

// WithIDGenerator replaces the snapshot id generator.
//
// Default: UUIDv7Generator
func WithIDGenerator(g IDGenerator) CacheOption {
	return func(c *GraphCache) {
		c.ids = g
	}
}

// WithVersionSource replaces the snapshot version clock.
//
// Default: NewClock()
func WithVersionSource(v VersionSource) CacheOption {
	return func(c *GraphCache) {
		c.clock = v
	}
}

// WithNow replaces the wall clock used for BuiltAt.
func WithNow(now func() time.Time) CacheOption {
	return func(c *GraphCache) {
		c.now = now
	}
}

// NewGraphCache creates a cache that builds from source.
// A nil logger is replaced by zap.NewNop().
func NewGraphCache(source ConfigSource, logger *zap.Logger, opts ...CacheOption) *GraphCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &GraphCache{
		source: source,
		store:  NewMemoryStore(),
		schema: ir.DefaultSchema(),
		ids:    UUIDv7Generator{},
		clock:  NewClock(),
		now:    time.Now,
		logger: logger,
		gens:   make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetGraph returns the snapshot for key, building it on a miss.
// Build errors are returned to every waiting caller and nothing is stored.
// The build runs detached from ctx cancellation, since other callers may
// be waiting on it.
func (c *GraphCache) GetGraph(ctx context.Context, key CacheKey) (*Snapshot, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	k := key.String()

	if s, ok := c.store.Get(k); ok {
		cacheLookups.WithLabelValues("hit").Inc()
		return s, nil
	}
	cacheLookups.WithLabelValues("miss").Inc()

	v, err, shared := c.flight.Do(k, func() (interface{}, error) {
		gen := c.generation(k)
		// A build that finished between the lookup and Do already stored it.
		if s, ok := c.store.Get(k); ok {
			return s, nil
		}
		s, err := c.build(context.WithoutCancel(ctx), key)
		if err != nil {
			return nil, err
		}
		if !c.putIfCurrent(k, gen, s) {
			c.logger.Debug("discarded superseded graph build",
				zap.String("key", k), zap.String("snapshot", s.ID))
		}
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("shared in-flight graph build", zap.String("key", k))
	}
	return v.(*Snapshot), nil
}

// Refresh rebuilds the snapshot for key from current configuration and
// replaces the stored one. Readers holding the old snapshot keep using it.
// On error the stored snapshot is left in place. Builds already in flight
// for key are superseded and will not be stored.
func (c *GraphCache) Refresh(ctx context.Context, key CacheKey) (*Snapshot, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	k := key.String()
	c.advance(k, false)

	v, err, _ := c.flight.Do(k, func() (interface{}, error) {
		gen := c.generation(k)
		s, err := c.build(context.WithoutCancel(ctx), key)
		if err != nil {
			return nil, err
		}
		c.putIfCurrent(k, gen, s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Invalidate drops the snapshot for key; the next GetGraph rebuilds it.
// A build in flight for key is not stored and new callers do not join it.
func (c *GraphCache) Invalidate(key CacheKey) {
	c.advance(key.String(), true)
	c.logger.Debug("invalidated graph", zap.String("key", key.String()))
}

func (c *GraphCache) generation(k string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[k]
}

// advance starts a new generation for k and detaches callers from any
// build in flight. drop also removes the stored snapshot.
func (c *GraphCache) advance(k string, drop bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[k]++
	c.flight.Forget(k)
	if drop {
		c.store.Delete(k)
	}
}

// putIfCurrent stores s unless the generation moved past gen.
func (c *GraphCache) putIfCurrent(k string, gen uint64, s *Snapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[k] != gen {
		return false
	}
	c.store.Put(k, s)
	return true
}

func (c *GraphCache) build(ctx context.Context, key CacheKey) (*Snapshot, error) {
	start := time.Now()
	defer func() {
		graphBuildDuration.Observe(time.Since(start).Seconds())
	}()

	cfg, err := c.source.LoadConfig(ctx, key)
	if err != nil {
		graphBuilds.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load config for %s: %w", key, err)
	}
	g, err := BuildGraph(cfg, c.schema)
	if err != nil {
		graphBuilds.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("build graph for %s: %w", key, err)
	}
	graphBuilds.WithLabelValues("ok").Inc()

	s := &Snapshot{
		ID:       c.ids.Generate(),
		Version:  c.clock.Next(),
		Key:      key,
		Graph:    g,
		BuiltAt:  c.now(),
		Warnings: g.Cycles(),
	}
	for _, w := range s.Warnings {
		c.logger.Warn("knowledge graph cycle",
			zap.String("key", key.String()),
			zap.String("message", w.Message))
	}
	c.logger.Info("built knowledge graph",
		zap.String("key", key.String()),
		zap.String("snapshot", s.ID),
		zap.Int64("version", s.Version),
		zap.Int("nodes", g.Len()),
		zap.Int("accounts", len(cfg.Accounts)))
	return s, nil
}
