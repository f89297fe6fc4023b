package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertNode_InsertThenMerge(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	first := &Node{
		Identifier:   "p/src/a.ts#Class:A",
		Kind:         "Class",
		Name:         "A",
		SourceFile:   "src/a.ts",
		Language:     "typescript",
		SemanticTags: []string{"a", "b"},
		Metadata:     map[string]string{"visibility": "public"},
		StartLine:    ptr(3),
	}
	id1, err := s.UpsertNode(first)
	require.NoError(t, err)

	second := &Node{
		Identifier:   "p/src/a.ts#Class:A",
		Kind:         "Class",
		Name:         "A",
		SourceFile:   "src/a.ts",
		SemanticTags: []string{"b", "c"},
		Metadata:     map[string]string{"modifiers": "abstract"},
	}
	id2, err := s.UpsertNode(second)
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "same identifier means same entity")

	got, err := s.NodeByIdentifier("p/src/a.ts#Class:A")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, got.SemanticTags, "tags are set-unioned")
	assert.Equal(t, "public", got.Metadata["visibility"])
	assert.Equal(t, "abstract", got.Metadata["modifiers"])
	assert.Equal(t, "typescript", got.Language, "language survives a merge that omits it")
	require.NotNil(t, got.StartLine)
	assert.Equal(t, 3, *got.StartLine)
}

func TestUpsertNode_TagUnionAcrossManyUpserts(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	sets := [][]string{{"a", "b"}, {"b", "c"}, {"d"}, nil}
	for _, tags := range sets {
		_, err := s.UpsertNode(&Node{
			Identifier: "p/x.ts", Kind: "File", Name: "x.ts",
			SourceFile: "x.ts", SemanticTags: tags,
		})
		require.NoError(t, err)
	}

	got, err := s.NodeByIdentifier("p/x.ts")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, got.SemanticTags)
}

func TestUpsertNode_EmptyIdentifierFails(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	_, err := s.UpsertNode(&Node{Kind: "File", Name: "x"})
	assert.Error(t, err)
}

func TestNodeByIdentifier_Missing(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	n, err := s.NodeByIdentifier("p/ghost.ts")
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestFindNodes_Filters(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.UpsertNode(&Node{
		Identifier: "p/src/a.ts", Kind: "File", Name: "a.ts",
		SourceFile: "src/a.ts", Language: "typescript",
	})
	require.NoError(t, err)
	_, err = s.UpsertNode(&Node{
		Identifier: "p/src/a.ts#Class:A", Kind: "Class", Name: "A",
		SourceFile: "src/a.ts", SemanticTags: []string{"exported"},
	})
	require.NoError(t, err)
	_, err = s.UpsertNode(&Node{
		Identifier: "p/pkg/b.go", Kind: "File", Name: "b.go",
		SourceFile: "pkg/b.go", Language: "go",
	})
	require.NoError(t, err)

	byKind, err := s.FindNodes(NodeFilter{Kinds: []string{"File"}})
	require.NoError(t, err)
	assert.Len(t, byKind, 2)

	byLang, err := s.FindNodes(NodeFilter{Kinds: []string{"File"}, Language: "go"})
	require.NoError(t, err)
	require.Len(t, byLang, 1)
	assert.Equal(t, "p/pkg/b.go", byLang[0].Identifier)

	byTag, err := s.FindNodes(NodeFilter{Tag: "exported"})
	require.NoError(t, err)
	require.Len(t, byTag, 1)
	assert.Equal(t, "Class", byTag[0].Kind)

	byPattern, err := s.FindNodes(NodeFilter{IdentifierPattern: "p/src/*"})
	require.NoError(t, err)
	assert.Len(t, byPattern, 2)

	bySource, err := s.FindNodes(NodeFilter{SourceFile: "src/a.ts"})
	require.NoError(t, err)
	assert.Len(t, bySource, 2)

	none, err := s.FindNodes(NodeFilter{Kinds: []string{"Enum"}})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFindNodes_DeterministicOrder(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	for _, id := range []string{"p/c.ts", "p/a.ts", "p/b.ts"} {
		_, err := s.UpsertNode(&Node{Identifier: id, Kind: "File", Name: id, SourceFile: id})
		require.NoError(t, err)
	}
	nodes, err := s.FindNodes(NodeFilter{})
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, "p/a.ts", nodes[0].Identifier)
	assert.Equal(t, "p/b.ts", nodes[1].Identifier)
	assert.Equal(t, "p/c.ts", nodes[2].Identifier)
}
