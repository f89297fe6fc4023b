package taproot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jward/taproot/internal/store"
)

// InheritableOptions parameterize inheritable propagation.
type InheritableOptions struct {
	// MaxDepth bounds the containment chain length.
	MaxDepth int
	// Materialize writes the derived edges to the store.
	Materialize bool
}

// DefaultInheritableOptions allow containment chains up to ten hops.
func DefaultInheritableOptions() InheritableOptions {
	return InheritableOptions{MaxDepth: 10}
}

// InferredEdge is one propagated relation: From holds Relation to To
// because From reaches the relation's true source through a
// containment chain (Via, excluding From itself).
type InferredEdge struct {
	FromNode string
	ToNode   string
	Type     string
	Via      []string
	Depth    int
}

// QueryInheritable infers relation edges across a containment
// hierarchy: if A -C-> B (or a longer C-chain within MaxDepth) and
// B -R-> X, then A -R-> X is derived. Both C and R must be declared
// inheritable.
func (e *Engine) QueryInheritable(ctx context.Context, containment, relation string, opts InheritableOptions) ([]InferredEdge, error) {
	crec, ok := e.registry.Lookup(containment)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEdgeType, containment)
	}
	if !crec.IsInheritable {
		return nil, fmt.Errorf("%w: %s", ErrNotInheritable, containment)
	}
	rrec, ok := e.registry.Lookup(relation)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEdgeType, relation)
	}
	if !rrec.IsInheritable {
		return nil, fmt.Errorf("%w: %s", ErrNotInheritable, relation)
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultInheritableOptions().MaxDepth
	}

	key := e.cacheKey("inheritable", fmt.Sprintf("%s|%s|%+v", containment, relation, opts))
	if cached, ok := e.cache.Get(key); ok {
		return cached.([]InferredEdge), nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	containmentEdges, err := e.store.EdgesOfTypes([]string{containment}, false)
	if err != nil {
		return nil, fmt.Errorf("inheritable query: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	relationEdges, err := e.store.EdgesOfTypes([]string{relation}, false)
	if err != nil {
		return nil, fmt.Errorf("inheritable query: %w", err)
	}

	down := make(map[string][]string)
	for _, edge := range containmentEdges {
		down[edge.FromNode] = append(down[edge.FromNode], edge.ToNode)
	}
	relBySource := make(map[string][]*store.Edge)
	for _, edge := range relationEdges {
		relBySource[edge.FromNode] = append(relBySource[edge.FromNode], edge)
	}

	seen := make(map[string]bool)
	var derived []InferredEdge
	for ancestor := range down {
		// BFS down the containment chain from each ancestor.
		type hop struct {
			node  string
			depth int
			via   []string
		}
		visited := map[string]bool{ancestor: true}
		queue := []hop{{node: ancestor}}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			if cur.depth >= opts.MaxDepth {
				continue
			}
			for _, child := range down[cur.node] {
				if visited[child] {
					continue
				}
				visited[child] = true
				via := append(append([]string(nil), cur.via...), child)
				for _, rel := range relBySource[child] {
					k := ancestor + "\x00" + rel.ToNode
					if seen[k] || ancestor == rel.ToNode {
						continue
					}
					seen[k] = true
					derived = append(derived, InferredEdge{
						FromNode: ancestor,
						ToNode:   rel.ToNode,
						Type:     relation,
						Via:      via,
						Depth:    cur.depth + 1,
					})
				}
				queue = append(queue, hop{node: child, depth: cur.depth + 1, via: via})
			}
		}
	}

	sort.Slice(derived, func(i, j int) bool {
		if derived[i].FromNode != derived[j].FromNode {
			return derived[i].FromNode < derived[j].FromNode
		}
		if derived[i].ToNode != derived[j].ToNode {
			return derived[i].ToNode < derived[j].ToNode
		}
		return derived[i].Depth < derived[j].Depth
	})

	if opts.Materialize {
		for _, d := range derived {
			err := e.store.UpsertEdge(&store.Edge{
				FromNode: d.FromNode,
				ToNode:   d.ToNode,
				Type:     d.Type,
				Derived:  true,
				Properties: map[string]string{
					"via":   strings.Join(d.Via, ","),
					"depth": fmt.Sprintf("%d", d.Depth),
				},
			})
			if err != nil {
				return nil, fmt.Errorf("materialize inheritable: %w", err)
			}
		}
	}

	e.cache.Add(key, derived)
	return derived, nil
}
