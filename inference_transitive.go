package taproot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jward/taproot/internal/store"
)

// TransitiveOptions parameterize a transitive closure query.
type TransitiveOptions struct {
	// MaxPathLength caps traversal depth in hops. Zero is meaningful:
	// only the seed is returned (or nothing without IncludeSelf).
	MaxPathLength int
	// DetectCycles records each cycle met (with a diagnostic). Re-entry
	// into a node already on the path is skipped either way; a cycle
	// never fails the query.
	DetectCycles bool
	// IncludeIntermediate yields every reachable node; when false only
	// terminals (no further outgoing edges) are returned.
	IncludeIntermediate bool
	// IncludeHierarchy follows descendant edge types as well.
	IncludeHierarchy bool
	// IncludeSelf adds the seed node at depth 0.
	IncludeSelf bool
	// Materialize writes the closure back as derived edges.
	Materialize bool
}

// DefaultTransitiveOptions are the documented defaults: ten hops, cycle
// detection on, every intermediate included.
func DefaultTransitiveOptions() TransitiveOptions {
	return TransitiveOptions{
		MaxPathLength:       10,
		DetectCycles:        true,
		IncludeIntermediate: true,
	}
}

// TransitiveTarget is one node reached by the closure, with the path of
// edge row ids that reached it.
type TransitiveTarget struct {
	Identifier string
	Depth      int
	Path       []int64
}

// TransitiveResult is the closure of one seed node under one edge type.
type TransitiveResult struct {
	Start    string
	EdgeType string
	Targets  []TransitiveTarget
	// Cycles lists each detected cycle as its participating node
	// sequence, first node repeated at the end.
	Cycles      [][]string
	Diagnostics []Diagnostic
}

// QueryTransitive computes the set of nodes reachable from start along
// edges of edgeType. The type must be registered and transitive. Edges
// are bulk-loaded once and walked breadth-first — shortest path wins;
// equal-length paths tie-break on the lexicographically smaller edge-id
// sequence.
func (e *Engine) QueryTransitive(ctx context.Context, start, edgeType string, opts TransitiveOptions) (*TransitiveResult, error) {
	rec, ok := e.registry.Lookup(edgeType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEdgeType, edgeType)
	}
	if !rec.IsTransitive {
		return nil, fmt.Errorf("%w: %s", ErrNotTransitive, edgeType)
	}
	if opts.MaxPathLength < 0 {
		return nil, fmt.Errorf("transitive query: maxPathLength must be non-negative, got %d", opts.MaxPathLength)
	}
	if err := e.requireNode(start); err != nil {
		return nil, err
	}

	key := e.cacheKey("transitive", fmt.Sprintf("%s|%s|%+v", start, edgeType, opts))
	if cached, ok := e.cache.Get(key); ok {
		return cached.(*TransitiveResult), nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	types := []string{edgeType}
	if opts.IncludeHierarchy {
		var err error
		types, err = e.registry.DescendantsOf(edgeType, -1)
		if err != nil {
			return nil, err
		}
	}
	edges, err := e.store.EdgesOfTypes(types, false)
	if err != nil {
		return nil, fmt.Errorf("transitive query %q: %w", edgeType, err)
	}

	// Forward adjacency, neighbors ordered by edge row id so expansion
	// order (and therefore path tie-breaking) is deterministic.
	forward := make(map[string][]*store.Edge)
	for _, edge := range edges {
		forward[edge.FromNode] = append(forward[edge.FromNode], edge)
	}
	for _, neighbors := range forward {
		sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].ID < neighbors[j].ID })
	}

	result := &TransitiveResult{Start: start, EdgeType: edgeType}
	if opts.IncludeSelf {
		result.Targets = append(result.Targets, TransitiveTarget{Identifier: start, Depth: 0})
	}

	type entry struct {
		node      string
		depth     int
		path      []int64
		pathNodes []string
	}

	visited := map[string]entry{start: {node: start, pathNodes: []string{start}}}
	frontier := []entry{visited[start]}

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Smaller paths expand first so an equal-depth revisit can only
		// come from a lexicographically larger path.
		sort.Slice(frontier, func(i, j int) bool {
			return lessPath(frontier[i].path, frontier[j].path)
		})

		var next []entry
		for _, cur := range frontier {
			if cur.depth >= opts.MaxPathLength {
				continue
			}
			for _, edge := range forward[cur.node] {
				target := edge.ToNode
				if onPath(cur.pathNodes, target) {
					if opts.DetectCycles {
						cycle := append(append([]string(nil), cur.pathNodes...), target)
						result.Cycles = append(result.Cycles, cycle)
						result.Diagnostics = append(result.Diagnostics, Diagnostic{
							Severity: SeverityWarning,
							Code:     "cycle-detected",
							Message:  fmt.Sprintf("cycle: %s", strings.Join(cycle, " -> ")),
						})
					}
					continue
				}
				if _, seen := visited[target]; seen {
					continue
				}
				cand := entry{
					node:      target,
					depth:     cur.depth + 1,
					path:      append(append([]int64(nil), cur.path...), edge.ID),
					pathNodes: append(append([]string(nil), cur.pathNodes...), target),
				}
				visited[target] = cand
				next = append(next, cand)
			}
		}
		frontier = next
	}

	// Collect targets deterministically: by depth, then identifier.
	var targets []TransitiveTarget
	for node, v := range visited {
		if node == start {
			continue
		}
		if !opts.IncludeIntermediate && len(forward[node]) > 0 {
			continue
		}
		targets = append(targets, TransitiveTarget{Identifier: node, Depth: v.depth, Path: v.path})
	}
	sort.Slice(targets, func(i, j int) bool {
		if targets[i].Depth != targets[j].Depth {
			return targets[i].Depth < targets[j].Depth
		}
		return targets[i].Identifier < targets[j].Identifier
	})
	result.Targets = append(result.Targets, targets...)

	if opts.Materialize {
		if err := e.materializeTransitive(result); err != nil {
			return nil, err
		}
	}

	e.cache.Add(key, result)
	return result, nil
}

// materializeTransitive writes closure results back as derived edges.
// Derived edges never masquerade as base edges: they carry the derived
// flag and a via property recording the path.
func (e *Engine) materializeTransitive(result *TransitiveResult) error {
	for _, t := range result.Targets {
		if t.Depth <= 1 {
			continue // depth-1 targets are the base edges themselves
		}
		err := e.store.UpsertEdge(&store.Edge{
			FromNode: result.Start,
			ToNode:   t.Identifier,
			Type:     result.EdgeType,
			Derived:  true,
			Properties: map[string]string{
				"via":   joinPath(t.Path),
				"depth": fmt.Sprintf("%d", t.Depth),
			},
		})
		if err != nil {
			return fmt.Errorf("materialize transitive: %w", err)
		}
	}
	return nil
}

func joinPath(path []int64) string {
	parts := make([]string, len(path))
	for i, id := range path {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ",")
}

func onPath(pathNodes []string, node string) bool {
	for _, n := range pathNodes {
		if n == node {
			return true
		}
	}
	return false
}

// lessPath compares edge-id sequences lexicographically.
func lessPath(a, b []int64) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
