package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertEdge_Basic(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestNode(t, s, "p/a.ts", "File")
	insertTestNode(t, s, "p/b.ts", "File")

	err := s.UpsertEdge(&Edge{FromNode: "p/a.ts", ToNode: "p/b.ts", Type: "depends_on"})
	require.NoError(t, err)

	edges, err := s.FindEdges(EdgeFilter{Types: []string{"depends_on"}})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "p/a.ts", edges[0].FromNode)
	assert.Equal(t, "p/b.ts", edges[0].ToNode)
	assert.Equal(t, 1.0, edges[0].Weight, "weight defaults to 1")
	assert.False(t, edges[0].Derived)
}

func TestUpsertEdge_WeightMergesByMax(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestNode(t, s, "p/a.ts", "File")
	insertTestNode(t, s, "p/b.ts", "File")

	require.NoError(t, s.UpsertEdge(&Edge{FromNode: "p/a.ts", ToNode: "p/b.ts", Type: "calls", Weight: 3}))
	require.NoError(t, s.UpsertEdge(&Edge{FromNode: "p/a.ts", ToNode: "p/b.ts", Type: "calls", Weight: 2}))

	edges, err := s.FindEdges(EdgeFilter{Types: []string{"calls"}})
	require.NoError(t, err)
	require.Len(t, edges, 1, "identical key merges instead of duplicating")
	assert.Equal(t, 3.0, edges[0].Weight)

	require.NoError(t, s.UpsertEdge(&Edge{FromNode: "p/a.ts", ToNode: "p/b.ts", Type: "calls", Weight: 5}))
	edges, err = s.FindEdges(EdgeFilter{Types: []string{"calls"}})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, 5.0, edges[0].Weight)
}

func TestUpsertEdge_DistinctPropertiesDistinctEdges(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestNode(t, s, "p/a.ts", "File")
	insertTestNode(t, s, "p/b.ts", "File")

	require.NoError(t, s.UpsertEdge(&Edge{
		FromNode: "p/a.ts", ToNode: "p/b.ts", Type: "imports",
		Properties: map[string]string{"source": "./b"},
	}))
	require.NoError(t, s.UpsertEdge(&Edge{
		FromNode: "p/a.ts", ToNode: "p/b.ts", Type: "imports",
		Properties: map[string]string{"source": "./b.ts"},
	}))

	edges, err := s.FindEdges(EdgeFilter{Types: []string{"imports"}})
	require.NoError(t, err)
	assert.Len(t, edges, 2, "properties digest participates in the uniqueness key")
}

func TestUpsertEdge_UnknownEndpointStrict(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestNode(t, s, "p/a.ts", "File")

	err := s.UpsertEdge(&Edge{FromNode: "p/a.ts", ToNode: "p/ghost.ts", Type: "depends_on"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownEndpoint)
}

func TestUpsertEdge_PlaceholderMode(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	s.SetCreatePlaceholders(true)
	insertTestNode(t, s, "p/a.ts", "File")

	err := s.UpsertEdge(&Edge{FromNode: "p/a.ts", ToNode: "p/ghost.ts", Type: "depends_on"})
	require.NoError(t, err)

	ghost, err := s.NodeByIdentifier("p/ghost.ts")
	require.NoError(t, err)
	require.NotNil(t, ghost, "placeholder node created in the same transaction")
	assert.Equal(t, "File", ghost.Kind, "placeholder kind comes from the parsed identifier")

	sym, err := s.NodeByIdentifier("p/x.ts#Class:Thing")
	require.NoError(t, err)
	require.Nil(t, sym)
	require.NoError(t, s.UpsertEdge(&Edge{FromNode: "p/a.ts", ToNode: "p/x.ts#Class:Thing", Type: "depends_on"}))
	sym, err = s.NodeByIdentifier("p/x.ts#Class:Thing")
	require.NoError(t, err)
	require.NotNil(t, sym)
	assert.Equal(t, "Class", sym.Kind)
	assert.Equal(t, "Thing", sym.Name)
}

func TestUpsertEdge_UnregisteredTypeFails(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestNode(t, s, "p/a.ts", "File")
	insertTestNode(t, s, "p/b.ts", "File")

	err := s.UpsertEdge(&Edge{FromNode: "p/a.ts", ToNode: "p/b.ts", Type: "made_up"})
	assert.Error(t, err, "edge_types FK rejects unregistered types")
}

func TestFindEdges_Filters(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestNode(t, s, "p/a.ts", "File")
	insertTestNode(t, s, "p/b.ts", "File")
	insertTestNode(t, s, "p/c.ts", "File")

	require.NoError(t, s.UpsertEdge(&Edge{FromNode: "p/a.ts", ToNode: "p/b.ts", Type: "depends_on", SourceFile: "a.ts"}))
	require.NoError(t, s.UpsertEdge(&Edge{FromNode: "p/b.ts", ToNode: "p/c.ts", Type: "depends_on"}))
	require.NoError(t, s.UpsertEdge(&Edge{FromNode: "p/a.ts", ToNode: "p/c.ts", Type: "calls"}))

	from, err := s.FindEdges(EdgeFilter{FromNode: "p/a.ts"})
	require.NoError(t, err)
	assert.Len(t, from, 2)

	typed, err := s.FindEdges(EdgeFilter{Types: []string{"depends_on"}, ToNode: "p/c.ts"})
	require.NoError(t, err)
	require.Len(t, typed, 1)
	assert.Equal(t, "p/b.ts", typed[0].FromNode)

	bySource, err := s.FindEdges(EdgeFilter{SourceFile: "a.ts"})
	require.NoError(t, err)
	assert.Len(t, bySource, 1)
}

func TestDerivedEdges(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestNode(t, s, "p/a.ts", "File")
	insertTestNode(t, s, "p/c.ts", "File")

	require.NoError(t, s.UpsertEdge(&Edge{
		FromNode: "p/a.ts", ToNode: "p/c.ts", Type: "depends_on",
		Derived: true, Properties: map[string]string{"via": "1,2"},
	}))

	derived := true
	edges, err := s.FindEdges(EdgeFilter{Derived: &derived})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "1,2", edges[0].Properties["via"])

	// Bulk loads for inference exclude derived edges.
	base, err := s.EdgesOfTypes([]string{"depends_on"}, false)
	require.NoError(t, err)
	assert.Empty(t, base)

	require.NoError(t, s.DeleteDerivedEdges("depends_on"))
	edges, err = s.FindEdges(EdgeFilter{Derived: &derived})
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestCountEdgesByType(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestNode(t, s, "p/a.ts", "File")
	insertTestNode(t, s, "p/b.ts", "File")

	require.NoError(t, s.UpsertEdge(&Edge{FromNode: "p/a.ts", ToNode: "p/b.ts", Type: "calls"}))
	require.NoError(t, s.UpsertEdge(&Edge{FromNode: "p/b.ts", ToNode: "p/a.ts", Type: "calls"}))
	require.NoError(t, s.UpsertEdge(&Edge{FromNode: "p/a.ts", ToNode: "p/b.ts", Type: "imports"}))

	counts, err := s.CountEdgesByType()
	require.NoError(t, err)
	assert.Equal(t, 2, counts["calls"])
	assert.Equal(t, 1, counts["imports"])

	total, err := s.CountEdges()
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestPropertiesDigestDeterministic(t *testing.T) {
	t.Parallel()
	a := PropertiesDigest(map[string]string{"x": "1", "y": "2"})
	b := PropertiesDigest(map[string]string{"y": "2", "x": "1"})
	assert.Equal(t, a, b, "key order must not matter")
	assert.NotEqual(t, a, PropertiesDigest(map[string]string{"x": "1"}))
	assert.NotEmpty(t, PropertiesDigest(nil))
}
