package taproot

import (
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/jward/taproot/internal/edgetype"
	"github.com/jward/taproot/internal/store"
)

// Inference error kinds.
var (
	ErrUnknownNode     = errors.New("taproot: unknown node")
	ErrUnknownEdgeType = errors.New("taproot: unknown edge type")
	ErrNotTransitive   = errors.New("taproot: edge type is not transitive")
	ErrNotInheritable  = errors.New("taproot: edge type is not inheritable")
)

// defaultCacheCapacity bounds the inference result cache.
const defaultCacheCapacity = 256

// resultCache is the common surface of the plain and expirable LRUs.
type resultCache interface {
	Get(key string) (any, bool)
	Add(key string, value any) bool
}

// Engine computes derived relationships over the store's base edges:
// hierarchical rollup, transitive closure, and inheritable propagation.
// Results are cached in an LRU keyed by (operation, inputs,
// registry-version, store-version); any store or registry mutation
// changes the key and so invalidates prior entries.
type Engine struct {
	store    *store.Store
	registry *edgetype.Registry
	cache    resultCache
}

// EngineOption configures an Engine.
type EngineOption func(*engineConfig)

type engineConfig struct {
	capacity int
	ttl      time.Duration
}

// WithCacheCapacity sets the LRU entry bound.
func WithCacheCapacity(n int) EngineOption {
	return func(c *engineConfig) { c.capacity = n }
}

// WithCacheTTL additionally expires cached results after d.
func WithCacheTTL(d time.Duration) EngineOption {
	return func(c *engineConfig) { c.ttl = d }
}

// NewEngine creates an Engine over a store and registry.
func NewEngine(s *store.Store, registry *edgetype.Registry, opts ...EngineOption) *Engine {
	cfg := engineConfig{capacity: defaultCacheCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}

	var cache resultCache
	if cfg.ttl > 0 {
		cache = expirableAdapter{expirable.NewLRU[string, any](cfg.capacity, nil, cfg.ttl)}
	} else {
		plain, err := lru.New[string, any](cfg.capacity)
		if err != nil {
			// Only reachable with a non-positive capacity.
			plain, _ = lru.New[string, any](defaultCacheCapacity)
		}
		cache = plain
	}
	return &Engine{store: s, registry: registry, cache: cache}
}

// expirableAdapter wraps expirable.LRU as a resultCache; its Add passes
// through the eviction flag unchanged.
type expirableAdapter struct {
	lru *expirable.LRU[string, any]
}

func (a expirableAdapter) Get(key string) (any, bool) { return a.lru.Get(key) }
func (a expirableAdapter) Add(key string, value any) bool {
	return a.lru.Add(key, value)
}

// cacheKey builds a version-stamped cache key. Embedding both versions
// means a bump orphans every older entry; orphans age out of the LRU.
func (e *Engine) cacheKey(operation, inputs string) string {
	return fmt.Sprintf("%s|%s|rv=%d|sv=%d", operation, inputs, e.registry.Version(), e.store.Version())
}

// requireNode resolves an identifier or fails with ErrUnknownNode.
func (e *Engine) requireNode(identifier string) error {
	n, err := e.store.NodeByIdentifier(identifier)
	if err != nil {
		return err
	}
	if n == nil {
		return fmt.Errorf("%w: %s", ErrUnknownNode, identifier)
	}
	return nil
}
