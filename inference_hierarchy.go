package taproot

import (
	"fmt"

	"github.com/jward/taproot/internal/store"
)

// QueryHierarchical returns every edge whose type is edgeType or a
// descendant of it in the registry. Pure lookup, no closure. maxDepth
// bounds how far down the type tree to descend; negative means
// unbounded.
func (e *Engine) QueryHierarchical(edgeType string, maxDepth int) ([]*store.Edge, error) {
	if _, ok := e.registry.Lookup(edgeType); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEdgeType, edgeType)
	}

	key := e.cacheKey("hierarchical", fmt.Sprintf("%s|%d", edgeType, maxDepth))
	if cached, ok := e.cache.Get(key); ok {
		return cached.([]*store.Edge), nil
	}

	types, err := e.registry.DescendantsOf(edgeType, maxDepth)
	if err != nil {
		return nil, err
	}
	edges, err := e.store.FindEdges(store.EdgeFilter{Types: types})
	if err != nil {
		return nil, fmt.Errorf("hierarchical query %q: %w", edgeType, err)
	}

	e.cache.Add(key, edges)
	return edges, nil
}
