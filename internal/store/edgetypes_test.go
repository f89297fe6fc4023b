package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncEdgeTypes_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	rows, err := s.EdgeTypes()
	require.NoError(t, err)
	require.Len(t, rows, len(testEdgeTypes()))

	byName := make(map[string]EdgeTypeRow)
	for _, r := range rows {
		byName[r.Name] = r
	}
	assert.True(t, byName["contains"].IsTransitive)
	assert.True(t, byName["contains"].IsInheritable)
	assert.Equal(t, "imports", byName["imports_library"].Parent)
	assert.False(t, byName["imports"].IsTransitive)
}

func TestSyncEdgeTypes_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.SyncEdgeTypes(testEdgeTypes()))
	require.NoError(t, s.SyncEdgeTypes(testEdgeTypes()))

	rows, err := s.EdgeTypes()
	require.NoError(t, err)
	assert.Len(t, rows, len(testEdgeTypes()))
}

func TestSyncEdgeTypes_ChildBeforeParentOrder(t *testing.T) {
	t.Parallel()
	dbPath := t.TempDir() + "/order.db"
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Migrate())

	// Children listed before parents must still sync (alphabetical
	// registry order puts imports_file before imports' siblings).
	rows := []EdgeTypeRow{
		{Name: "imports_file", Parent: "imports", IsDirected: true},
		{Name: "imports", IsDirected: true},
	}
	require.NoError(t, s.SyncEdgeTypes(rows))

	got, err := s.EdgeTypes()
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
