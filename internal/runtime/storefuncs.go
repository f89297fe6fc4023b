package runtime

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"

	"github.com/jward/taproot/internal/store"
)

// Graph host functions. Risor scripts cannot construct Go struct
// pointers, so these accept Risor maps with primitive values and build
// the structs on the Go side.

// upsert_node({identifier, kind, name, source_file, language?, tags?, metadata?}) → id
func makeUpsertNodeFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("upsert_node", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("upsert_node", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("upsert_node: %v", err)
		}

		node := &store.Node{
			Identifier:   getString(m, "identifier"),
			Kind:         getString(m, "kind"),
			Name:         getString(m, "name"),
			SourceFile:   getString(m, "source_file"),
			Language:     getString(m, "language"),
			SemanticTags: getStringList(m, "tags"),
			Metadata:     getStringMap(m, "metadata"),
		}
		if v, ok := getOptionalInt(m, "start_line"); ok {
			node.StartLine = &v
		}
		if v, ok := getOptionalInt(m, "start_col"); ok {
			node.StartCol = &v
		}

		id, upsertErr := s.UpsertNode(node)
		if upsertErr != nil {
			return object.Errorf("upsert_node: %v", upsertErr)
		}
		return object.NewInt(id)
	})
}

// upsert_edge({from, to, type, properties?, weight?, source_file?}) → nil
func makeUpsertEdgeFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("upsert_edge", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("upsert_edge", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("upsert_edge: %v", err)
		}

		edge := &store.Edge{
			FromNode:   getString(m, "from"),
			ToNode:     getString(m, "to"),
			Type:       getString(m, "type"),
			Properties: getStringMap(m, "properties"),
			Weight:     getFloat(m, "weight"),
			SourceFile: getString(m, "source_file"),
		}
		if upsertErr := s.UpsertEdge(edge); upsertErr != nil {
			return object.Errorf("upsert_edge: %v", upsertErr)
		}
		return object.Nil
	})
}

// bind_namespace(namespace, identifier) → nil
func makeBindNamespaceFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("bind_namespace", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("bind_namespace", 2, len(args))
		}
		ns, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("bind_namespace: namespace must be a string, got %s", args[0].Type())
		}
		id, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("bind_namespace: identifier must be a string, got %s", args[1].Type())
		}
		if err := s.BindNamespace(ns.Value(), id.Value(), "script"); err != nil {
			return object.Errorf("bind_namespace: %v", err)
		}
		return object.Nil
	})
}

// node_by_identifier(identifier) → map or nil
func makeNodeByIdentifierFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("node_by_identifier", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node_by_identifier", 1, len(args))
		}
		id, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("node_by_identifier: identifier must be a string, got %s", args[0].Type())
		}
		n, err := s.NodeByIdentifier(id.Value())
		if err != nil {
			return object.Errorf("node_by_identifier: %v", err)
		}
		if n == nil {
			return object.Nil
		}
		return object.NewMap(nodeToMap(n))
	})
}

// find_nodes({kind?, language?, namespace?, tag?, pattern?}) → []map
func makeFindNodesFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("find_nodes", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("find_nodes", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("find_nodes: %v", err)
		}

		filter := store.NodeFilter{
			Language:          getString(m, "language"),
			Namespace:         getString(m, "namespace"),
			Tag:               getString(m, "tag"),
			IdentifierPattern: getString(m, "pattern"),
		}
		if kind := getString(m, "kind"); kind != "" {
			filter.Kinds = []string{kind}
		}

		nodes, err := s.FindNodes(filter)
		if err != nil {
			return object.Errorf("find_nodes: %v", err)
		}
		results := make([]object.Object, 0, len(nodes))
		for _, n := range nodes {
			results = append(results, object.NewMap(nodeToMap(n)))
		}
		return object.NewList(results)
	})
}

// find_edges({type?, from?, to?}) → []map
func makeFindEdgesFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("find_edges", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("find_edges", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("find_edges: %v", err)
		}

		filter := store.EdgeFilter{
			FromNode: getString(m, "from"),
			ToNode:   getString(m, "to"),
		}
		if t := getString(m, "type"); t != "" {
			filter.Types = []string{t}
		}

		edges, err := s.FindEdges(filter)
		if err != nil {
			return object.Errorf("find_edges: %v", err)
		}
		results := make([]object.Object, 0, len(edges))
		for _, e := range edges {
			results = append(results, object.NewMap(map[string]object.Object{
				"from":   object.NewString(e.FromNode),
				"to":     object.NewString(e.ToNode),
				"type":   object.NewString(e.Type),
				"weight": object.NewFloat(e.Weight),
			}))
		}
		return object.NewList(results)
	})
}

func nodeToMap(n *store.Node) map[string]object.Object {
	tags := make([]object.Object, 0, len(n.SemanticTags))
	for _, t := range n.SemanticTags {
		tags = append(tags, object.NewString(t))
	}
	return map[string]object.Object{
		"identifier":  object.NewString(n.Identifier),
		"kind":        object.NewString(n.Kind),
		"name":        object.NewString(n.Name),
		"source_file": object.NewString(n.SourceFile),
		"language":    object.NewString(n.Language),
		"tags":        object.NewList(tags),
	}
}

// ---- map extraction helpers ----

func extractMap(obj object.Object) (map[string]object.Object, error) {
	m, ok := obj.(*object.Map)
	if !ok {
		return nil, fmt.Errorf("expected map, got %s", obj.Type())
	}
	return m.Value(), nil
}

func getString(m map[string]object.Object, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	if s, ok := v.(*object.String); ok {
		return s.Value()
	}
	return ""
}

func getFloat(m map[string]object.Object, key string) float64 {
	v, ok := m[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case *object.Float:
		return n.Value()
	case *object.Int:
		return float64(n.Value())
	}
	return 0
}

func getOptionalInt(m map[string]object.Object, key string) (int, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	if n, ok := v.(*object.Int); ok {
		return int(n.Value()), true
	}
	return 0, false
}

func getStringList(m map[string]object.Object, key string) []string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	l, ok := v.(*object.List)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range l.Value() {
		if s, ok := item.(*object.String); ok {
			out = append(out, s.Value())
		}
	}
	return out
}

func getStringMap(m map[string]object.Object, key string) map[string]string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	inner, ok := v.(*object.Map)
	if !ok {
		return nil
	}
	out := make(map[string]string)
	for k, val := range inner.Value() {
		if s, ok := val.(*object.String); ok {
			out[k] = s.Value()
		}
	}
	return out
}
