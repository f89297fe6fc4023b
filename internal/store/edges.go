package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jward/taproot/internal/ident"
)

// ErrUnknownEndpoint is returned by edge upserts referencing a node
// that does not exist, when placeholder creation is off.
var ErrUnknownEndpoint = errors.New("store: edge endpoint does not exist")

const edgeCols = `e.id, nf.identifier, nt.identifier, e.type, e.properties, e.weight, COALESCE(e.source_file, ''), e.derived`

// UpsertEdge inserts an edge or merges it into the existing row with
// the same (from, to, type, properties-digest) key; weight is merged by
// max. Endpoints are resolved by identifier. Unknown endpoints either
// fail with ErrUnknownEndpoint or, in placeholder mode, create a
// placeholder node in the same transaction (see placeholderNode).
func (s *Store) UpsertEdge(e *Edge) error {
	placeholders := s.CreatePlaceholders()
	return s.WithTransaction(func(tx *sql.Tx) error {
		return upsertEdgeIn(tx, e, placeholders)
	})
}

// UpsertEdgeTx is UpsertEdge inside a caller-owned transaction.
func UpsertEdgeTx(tx *sql.Tx, e *Edge, createPlaceholders bool) error {
	return upsertEdgeIn(tx, e, createPlaceholders)
}

func upsertEdgeIn(q dbtx, e *Edge, createPlaceholders bool) error {
	if e.Type == "" {
		return fmt.Errorf("upsert edge: empty type")
	}

	fromID, err := resolveEndpoint(q, e.FromNode, createPlaceholders)
	if err != nil {
		return fmt.Errorf("upsert edge %s -[%s]-> %s: from: %w", e.FromNode, e.Type, e.ToNode, err)
	}
	toID, err := resolveEndpoint(q, e.ToNode, createPlaceholders)
	if err != nil {
		return fmt.Errorf("upsert edge %s -[%s]-> %s: to: %w", e.FromNode, e.Type, e.ToNode, err)
	}

	weight := e.Weight
	if weight == 0 {
		weight = 1
	}
	digest := PropertiesDigest(e.Properties)

	_, err = q.Exec(
		`INSERT INTO edges (from_node, to_node, type, properties, properties_digest, weight, source_file, derived)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(from_node, to_node, type, properties_digest)
		 DO UPDATE SET weight = max(edges.weight, excluded.weight)`,
		fromID, toID, e.Type, marshalProps(e.Properties), digest, weight,
		nullableString(e.SourceFile), e.Derived,
	)
	if err != nil {
		return fmt.Errorf("upsert edge %s -[%s]-> %s: %w", e.FromNode, e.Type, e.ToNode, err)
	}
	return nil
}

// resolveEndpoint maps an identifier to a node row id, creating a
// placeholder node when permitted.
func resolveEndpoint(q dbtx, identifier string, createPlaceholder bool) (int64, error) {
	n, err := nodeByIdentifierIn(q, identifier)
	if err != nil {
		return 0, err
	}
	if n != nil {
		return n.ID, nil
	}
	if !createPlaceholder {
		return 0, fmt.Errorf("%w: %s", ErrUnknownEndpoint, identifier)
	}
	return upsertNodeIn(q, placeholderNode(identifier))
}

// placeholderNode builds a node for an as-yet-unresolved identifier.
// When the identifier parses, its kind, source file and symbol path
// seed the placeholder, so it is not of kind Unknown; otherwise it is
// an Unknown node with the whole string as its name.
func placeholderNode(identifier string) *Node {
	n := &Node{
		Identifier: identifier,
		Kind:       ident.KindUnknown,
		Name:       identifier,
	}
	if id, err := ident.Parse(identifier); err == nil {
		n.Kind = id.Kind
		n.SourceFile = id.SourceFile
		n.Name = id.SymbolPath
		if n.Name == "" {
			n.Name = id.SourceFile
		}
	}
	return n
}

// EdgeFilter selects edges for FindEdges. Types lists the exact edge
// types to match (callers expand subtype hierarchies before querying).
type EdgeFilter struct {
	Types      []string
	FromNode   string
	ToNode     string
	SourceFile string
	Derived    *bool
}

// FindEdges returns all edges matching the filter with endpoint
// identifiers resolved, ordered by row id.
func (s *Store) FindEdges(filter EdgeFilter) ([]*Edge, error) {
	var where []string
	var args []any

	if len(filter.Types) > 0 {
		where = append(where, "e.type IN ("+placeholderList(len(filter.Types))+")")
		args = append(args, stringsToArgs(filter.Types)...)
	}
	if filter.FromNode != "" {
		where = append(where, "nf.identifier = ?")
		args = append(args, filter.FromNode)
	}
	if filter.ToNode != "" {
		where = append(where, "nt.identifier = ?")
		args = append(args, filter.ToNode)
	}
	if filter.SourceFile != "" {
		where = append(where, "e.source_file = ?")
		args = append(args, filter.SourceFile)
	}
	if filter.Derived != nil {
		where = append(where, "e.derived = ?")
		args = append(args, *filter.Derived)
	}

	query := `SELECT ` + edgeCols + `
		FROM edges e
		JOIN nodes nf ON nf.id = e.from_node
		JOIN nodes nt ON nt.id = e.to_node`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY e.id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("find edges: %w", err)
	}
	defer rows.Close()

	var edges []*Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("find edges: scan: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// EdgesOfTypes bulk-loads every edge whose type is in types. The
// inference engine builds its adjacency maps from this — one query, no
// N+1 traversal.
func (s *Store) EdgesOfTypes(types []string, includeDerived bool) ([]*Edge, error) {
	if len(types) == 0 {
		return nil, nil
	}
	query := `SELECT ` + edgeCols + `
		FROM edges e
		JOIN nodes nf ON nf.id = e.from_node
		JOIN nodes nt ON nt.id = e.to_node
		WHERE e.type IN (` + placeholderList(len(types)) + `)`
	if !includeDerived {
		query += " AND e.derived = FALSE"
	}
	query += " ORDER BY e.id"

	rows, err := s.db.Query(query, stringsToArgs(types)...)
	if err != nil {
		return nil, fmt.Errorf("edges of types: %w", err)
	}
	defer rows.Close()

	var edges []*Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("edges of types: scan: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// DeleteDerivedEdges removes previously materialised edges of the given
// type, for clean re-materialisation. Empty type removes all derived
// edges.
func (s *Store) DeleteDerivedEdges(edgeType string) error {
	return s.WithTransaction(func(tx *sql.Tx) error {
		var err error
		if edgeType == "" {
			_, err = tx.Exec("DELETE FROM edges WHERE derived = TRUE")
		} else {
			_, err = tx.Exec("DELETE FROM edges WHERE derived = TRUE AND type = ?", edgeType)
		}
		if err != nil {
			return fmt.Errorf("delete derived edges: %w", err)
		}
		return nil
	})
}

// CountEdges returns the total edge count.
func (s *Store) CountEdges() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM edges").Scan(&n); err != nil {
		return 0, fmt.Errorf("count edges: %w", err)
	}
	return n, nil
}

// CountEdgesByType returns per-type edge counts.
func (s *Store) CountEdgesByType() (map[string]int, error) {
	rows, err := s.db.Query("SELECT type, COUNT(*) FROM edges GROUP BY type")
	if err != nil {
		return nil, fmt.Errorf("count edges by type: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, fmt.Errorf("count edges by type: scan: %w", err)
		}
		counts[t] = n
	}
	return counts, rows.Err()
}

func scanEdge(row scanner) (*Edge, error) {
	var e Edge
	var props string
	err := row.Scan(
		&e.ID, &e.FromNode, &e.ToNode, &e.Type, &props, &e.Weight,
		&e.SourceFile, &e.Derived,
	)
	if err != nil {
		return nil, err
	}
	e.Properties = unmarshalProps(props)
	return &e, nil
}
