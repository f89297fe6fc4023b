package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// dbtx abstracts *sql.DB and *sql.Tx so upserts can run standalone or
// inside a caller-owned transaction.
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

const nodeCols = "id, identifier, kind, name, source_file, COALESCE(language, ''), semantic_tags, metadata, start_line, start_col"

// UpsertNode inserts a node or merges it into the existing row with the
// same identifier: semantic tags are set-unioned, metadata keys merged,
// name, language and start position updated when the incoming value is
// set; kind and source file keep the values first stored. Returns the
// stable internal row id.
func (s *Store) UpsertNode(n *Node) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	id, err := upsertNodeIn(s.db, n)
	if err != nil {
		return 0, err
	}
	s.version.bump()
	return id, nil
}

// UpsertNodeTx is UpsertNode inside a caller-owned transaction (the
// caller holds the writer lock via WithTransaction or CommitBatch).
func UpsertNodeTx(tx *sql.Tx, n *Node) (int64, error) {
	return upsertNodeIn(tx, n)
}

func upsertNodeIn(q dbtx, n *Node) (int64, error) {
	if n.Identifier == "" {
		return 0, fmt.Errorf("upsert node: empty identifier")
	}

	existing, err := nodeByIdentifierIn(q, n.Identifier)
	if err != nil {
		return 0, fmt.Errorf("upsert node %q: %w", n.Identifier, err)
	}

	if existing == nil {
		res, err := q.Exec(
			`INSERT INTO nodes (identifier, kind, name, source_file, language, semantic_tags, metadata, start_line, start_col)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			n.Identifier, n.Kind, n.Name, n.SourceFile, nullableString(n.Language),
			marshalTags(n.SemanticTags), marshalProps(n.Metadata), n.StartLine, n.StartCol,
		)
		if err != nil {
			return 0, fmt.Errorf("upsert node %q: insert: %w", n.Identifier, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("upsert node %q: last insert id: %w", n.Identifier, err)
		}
		n.ID = id
		return id, nil
	}

	// Merge into the existing row — same identifier, same entity.
	tags := mergeTags(existing.SemanticTags, n.SemanticTags)
	meta := mergeProps(existing.Metadata, n.Metadata)
	name := existing.Name
	if n.Name != "" {
		name = n.Name
	}
	language := existing.Language
	if n.Language != "" {
		language = n.Language
	}
	startLine := existing.StartLine
	if n.StartLine != nil {
		startLine = n.StartLine
	}
	startCol := existing.StartCol
	if n.StartCol != nil {
		startCol = n.StartCol
	}

	_, err = q.Exec(
		`UPDATE nodes SET name = ?, language = ?, semantic_tags = ?, metadata = ?, start_line = ?, start_col = ?
		 WHERE id = ?`,
		name, nullableString(language), marshalTags(tags), marshalProps(meta),
		startLine, startCol, existing.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert node %q: merge: %w", n.Identifier, err)
	}
	n.ID = existing.ID
	return existing.ID, nil
}

// NodeByIdentifier returns the node with the given canonical address,
// or nil if absent.
func (s *Store) NodeByIdentifier(identifier string) (*Node, error) {
	return nodeByIdentifierIn(s.db, identifier)
}

func nodeByIdentifierIn(q dbtx, identifier string) (*Node, error) {
	row := q.QueryRow("SELECT "+nodeCols+" FROM nodes WHERE identifier = ?", identifier)
	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("node by identifier: %w", err)
	}
	return n, nil
}

// NodeByID returns the node with the given internal id, or nil.
func (s *Store) NodeByID(id int64) (*Node, error) {
	row := s.db.QueryRow("SELECT "+nodeCols+" FROM nodes WHERE id = ?", id)
	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("node by id: %w", err)
	}
	return n, nil
}

// NodeFilter selects nodes for FindNodes. Zero-valued fields are
// ignored. IdentifierPattern supports * and ? wildcards.
type NodeFilter struct {
	Kinds             []string
	Language          string
	IdentifierPattern string
	Namespace         string
	Tag               string
	SourceFile        string
}

// FindNodes returns all nodes matching the filter, ordered by
// identifier for determinism.
func (s *Store) FindNodes(filter NodeFilter) ([]*Node, error) {
	var where []string
	var args []any

	if len(filter.Kinds) > 0 {
		where = append(where, "n.kind IN ("+placeholderList(len(filter.Kinds))+")")
		args = append(args, stringsToArgs(filter.Kinds)...)
	}
	if filter.Language != "" {
		where = append(where, "n.language = ?")
		args = append(args, filter.Language)
	}
	if filter.IdentifierPattern != "" {
		where = append(where, `n.identifier LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(filter.IdentifierPattern))
	}
	if filter.SourceFile != "" {
		where = append(where, "n.source_file = ?")
		args = append(args, filter.SourceFile)
	}
	if filter.Namespace != "" {
		where = append(where, "EXISTS (SELECT 1 FROM namespace_members nm WHERE nm.node_id = n.id AND nm.namespace = ?)")
		args = append(args, filter.Namespace)
	}
	if filter.Tag != "" {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(n.semantic_tags) WHERE json_each.value = ?)")
		args = append(args, filter.Tag)
	}

	query := "SELECT n.id, n.identifier, n.kind, n.name, n.source_file, COALESCE(n.language, ''), n.semantic_tags, n.metadata, n.start_line, n.start_col FROM nodes n"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY n.identifier"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("find nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("find nodes: scan: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// CountNodes returns the total node count.
func (s *Store) CountNodes() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM nodes").Scan(&n); err != nil {
		return 0, fmt.Errorf("count nodes: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(row scanner) (*Node, error) {
	var n Node
	var tags, meta string
	err := row.Scan(
		&n.ID, &n.Identifier, &n.Kind, &n.Name, &n.SourceFile, &n.Language,
		&tags, &meta, &n.StartLine, &n.StartCol,
	)
	if err != nil {
		return nil, err
	}
	n.SemanticTags = unmarshalTags(tags)
	n.Metadata = unmarshalProps(meta)
	return &n, nil
}

// nullableString maps "" to NULL for nullable text columns.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
