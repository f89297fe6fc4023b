package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	require.NoError(t, s.SyncEdgeTypes(testEdgeTypes()))
	t.Cleanup(func() { s.Close() })
	return s
}

// testEdgeTypes is a minimal catalogue for store tests.
func testEdgeTypes() []EdgeTypeRow {
	return []EdgeTypeRow{
		{Name: "contains", IsDirected: true, IsTransitive: true, IsInheritable: true},
		{Name: "declares", IsDirected: true, IsInheritable: true},
		{Name: "depends_on", IsDirected: true, IsTransitive: true},
		{Name: "imports", IsDirected: true},
		{Name: "imports_library", Parent: "imports", IsDirected: true},
		{Name: "calls", IsDirected: true},
		{Name: "aliasOf", IsDirected: true},
	}
}

func ptr[T any](v T) *T { return &v }

func insertTestNode(t *testing.T, s *Store, identifier, kind string) *Node {
	t.Helper()
	n := &Node{
		Identifier: identifier,
		Kind:       kind,
		Name:       identifier,
		SourceFile: "src/test.ts",
	}
	id, err := s.UpsertNode(n)
	require.NoError(t, err)
	require.Positive(t, id)
	return n
}

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	expectedTables := []string{
		"schema_migrations", "graph_meta", "nodes", "edge_types",
		"edges", "namespace_members",
	}
	for _, table := range expectedTables {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	require.NoError(t, s.Migrate(), "second migrate must not fail")
	require.NoError(t, s.Close())

	// Re-opening an existing store never fails on existing tables.
	s2, err := NewStore(dbPath)
	require.NoError(t, err)
	defer s2.Close()
	require.NoError(t, s2.Migrate())
}

func TestMetadataRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	v, err := s.GetMetadata("missing")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetMetadata("k", "v1"))
	require.NoError(t, s.SetMetadata("k", "v2"))
	v, err = s.GetMetadata("k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
}

func TestVersionBumpsOnMutation(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	v := s.Version()
	insertTestNode(t, s, "p/a.ts", "File")
	assert.Greater(t, s.Version(), v)
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	err := s.WithTransaction(func(tx *sql.Tx) error {
		if _, err := UpsertNodeTx(tx, &Node{Identifier: "p/x.ts", Kind: "File", Name: "x", SourceFile: "x.ts"}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	n, err := s.NodeByIdentifier("p/x.ts")
	require.NoError(t, err)
	assert.Nil(t, n, "rolled-back node must not be visible")
}
