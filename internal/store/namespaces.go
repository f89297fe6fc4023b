package store

import (
	"database/sql"
	"fmt"
)

// BindNamespace records a node's membership in a namespace. Idempotent
// per (namespace, node); a later bind updates included_by.
func (s *Store) BindNamespace(namespace, identifier, includedBy string) error {
	return s.WithTransaction(func(tx *sql.Tx) error {
		return BindNamespaceTx(tx, namespace, identifier, includedBy)
	})
}

// BindNamespaceTx is BindNamespace inside a caller-owned transaction.
func BindNamespaceTx(tx *sql.Tx, namespace, identifier, includedBy string) error {
	n, err := nodeByIdentifierIn(tx, identifier)
	if err != nil {
		return fmt.Errorf("bind namespace %q: %w", namespace, err)
	}
	if n == nil {
		return fmt.Errorf("bind namespace %q: %w: %s", namespace, ErrUnknownEndpoint, identifier)
	}
	_, err = tx.Exec(
		`INSERT INTO namespace_members (namespace, node_id, included_by) VALUES (?, ?, ?)
		 ON CONFLICT(namespace, node_id) DO UPDATE SET included_by = excluded.included_by`,
		namespace, n.ID, nullableString(includedBy),
	)
	if err != nil {
		return fmt.Errorf("bind namespace %q: %w", namespace, err)
	}
	return nil
}

// ClearNamespaceBindings removes all membership rows for a namespace.
// Nodes and edges remain.
func (s *Store) ClearNamespaceBindings(namespace string) error {
	return s.WithTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM namespace_members WHERE namespace = ?", namespace); err != nil {
			return fmt.Errorf("clear namespace bindings %q: %w", namespace, err)
		}
		return nil
	})
}

// NamespacesOf lists the namespaces a node belongs to.
func (s *Store) NamespacesOf(identifier string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT nm.namespace FROM namespace_members nm
		 JOIN nodes n ON n.id = nm.node_id
		 WHERE n.identifier = ? ORDER BY nm.namespace`,
		identifier,
	)
	if err != nil {
		return nil, fmt.Errorf("namespaces of %q: %w", identifier, err)
	}
	defer rows.Close()

	var namespaces []string
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, fmt.Errorf("namespaces of %q: scan: %w", identifier, err)
		}
		namespaces = append(namespaces, ns)
	}
	return namespaces, rows.Err()
}

// CrossNamespaceEdge is one non-derived edge whose endpoints sit in
// different namespaces. An endpoint in several namespaces contributes a
// row per distinct pair.
type CrossNamespaceEdge struct {
	Edge          Edge
	FromNamespace string
	ToNamespace   string
}

// CrossNamespaceEdges returns edges spanning namespace boundaries,
// ordered by (from namespace, to namespace, edge id).
func (s *Store) CrossNamespaceEdges() ([]*CrossNamespaceEdge, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT ` + edgeCols + `, nmf.namespace, nmt.namespace
		FROM edges e
		JOIN nodes nf ON nf.id = e.from_node
		JOIN nodes nt ON nt.id = e.to_node
		JOIN namespace_members nmf ON nmf.node_id = e.from_node
		JOIN namespace_members nmt ON nmt.node_id = e.to_node
		WHERE nmf.namespace != nmt.namespace AND e.derived = FALSE
		ORDER BY nmf.namespace, nmt.namespace, e.id`)
	if err != nil {
		return nil, fmt.Errorf("cross namespace edges: %w", err)
	}
	defer rows.Close()

	var result []*CrossNamespaceEdge
	for rows.Next() {
		var ce CrossNamespaceEdge
		var props string
		err := rows.Scan(
			&ce.Edge.ID, &ce.Edge.FromNode, &ce.Edge.ToNode, &ce.Edge.Type,
			&props, &ce.Edge.Weight, &ce.Edge.SourceFile, &ce.Edge.Derived,
			&ce.FromNamespace, &ce.ToNamespace,
		)
		if err != nil {
			return nil, fmt.Errorf("cross namespace edges: scan: %w", err)
		}
		ce.Edge.Properties = unmarshalProps(props)
		result = append(result, &ce)
	}
	return result, rows.Err()
}
