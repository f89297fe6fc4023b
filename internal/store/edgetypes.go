package store

import (
	"database/sql"
	"fmt"
)

// SyncEdgeTypes persists registry records into the edge_types table.
// Insert-or-replace by name; called at initialization, after the
// in-memory registry has validated the catalogue. Parents are written
// before children so the self-referencing FK holds.
func (s *Store) SyncEdgeTypes(rows []EdgeTypeRow) error {
	return s.WithTransaction(func(tx *sql.Tx) error {
		pending := append([]EdgeTypeRow(nil), rows...)
		written := make(map[string]bool)
		for len(pending) > 0 {
			progressed := false
			var next []EdgeTypeRow
			for _, r := range pending {
				if r.Parent != "" && !written[r.Parent] && !edgeTypeExistsTx(tx, r.Parent) {
					next = append(next, r)
					continue
				}
				_, err := tx.Exec(
					`INSERT INTO edge_types (name, parent, is_directed, is_transitive, is_inheritable, description)
					 VALUES (?, ?, ?, ?, ?, ?)
					 ON CONFLICT(name) DO UPDATE SET
					   parent = excluded.parent,
					   is_directed = excluded.is_directed,
					   is_transitive = excluded.is_transitive,
					   is_inheritable = excluded.is_inheritable,
					   description = excluded.description`,
					r.Name, nullableString(r.Parent), r.IsDirected, r.IsTransitive,
					r.IsInheritable, r.Description,
				)
				if err != nil {
					return fmt.Errorf("sync edge types: %q: %w", r.Name, err)
				}
				written[r.Name] = true
				progressed = true
			}
			if !progressed {
				return fmt.Errorf("sync edge types: unresolved parents among %d records", len(next))
			}
			pending = next
		}
		return nil
	})
}

func edgeTypeExistsTx(tx *sql.Tx, name string) bool {
	var one int
	return tx.QueryRow("SELECT 1 FROM edge_types WHERE name = ?", name).Scan(&one) == nil
}

// EdgeTypes reads every persisted edge-type record, ordered by name.
func (s *Store) EdgeTypes() ([]EdgeTypeRow, error) {
	rows, err := s.db.Query(
		`SELECT name, COALESCE(parent, ''), is_directed, is_transitive, is_inheritable, COALESCE(description, '')
		 FROM edge_types ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("edge types: %w", err)
	}
	defer rows.Close()

	var result []EdgeTypeRow
	for rows.Next() {
		var r EdgeTypeRow
		if err := rows.Scan(&r.Name, &r.Parent, &r.IsDirected, &r.IsTransitive, &r.IsInheritable, &r.Description); err != nil {
			return nil, fmt.Errorf("edge types: scan: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
