package lang

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Host parses source text into concrete syntax trees. A fresh parser is
// created per call — tree-sitter parser handles must not be shared
// across goroutines, and per-call construction keeps Parse re-entrant.
type Host struct{}

// NewHost creates a Host. Grammar initialization is lazy and shared
// process-wide, so Hosts are cheap.
func NewHost() *Host {
	return &Host{}
}

// ParseResult bundles a parsed tree with its source and parse metrics.
// Syntax errors never fail the parse; ErrorNodeCount reports how many
// error nodes the grammar produced so callers can decide recoverability.
type ParseResult struct {
	Tree           *sitter.Tree
	Source         []byte
	Language       Language
	NodeCount      int
	ErrorNodeCount int
}

// Parse parses source as the given language. The returned tree is
// complete even in the presence of syntax errors (error nodes are
// embedded in the tree). Identical source and language always produce
// structurally equivalent trees.
func (h *Host) Parse(ctx context.Context, l Language, source []byte) (*ParseResult, error) {
	grammar, ok := Grammar(l)
	if !ok {
		return nil, fmt.Errorf("lang: unsupported language %q", l)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("lang: parse %s: %w", l, err)
	}

	nodes, errNodes := countNodes(tree.RootNode())
	return &ParseResult{
		Tree:           tree,
		Source:         source,
		Language:       l,
		NodeCount:      nodes,
		ErrorNodeCount: errNodes,
	}, nil
}

// Close releases the tree owned by the result. Safe on nil.
func (r *ParseResult) Close() {
	if r != nil && r.Tree != nil {
		r.Tree.Close()
	}
}

// countNodes walks the tree iteratively, counting every node (named and
// anonymous) and, separately, the error/missing nodes.
func countNodes(root *sitter.Node) (total, errors int) {
	if root == nil {
		return 0, 0
	}
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		total++
		if n.IsError() || n.IsMissing() {
			errors++
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			stack = append(stack, n.Child(i))
		}
	}
	return total, errors
}
