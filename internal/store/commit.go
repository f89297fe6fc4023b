package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// CommitBatch applies all buffered writes from a Batch in a single
// transaction. Insert order respects referential integrity:
//
//  1. Nodes (edges and bindings reference them by identifier)
//  2. Edges (may create placeholder endpoints when the store permits)
//  3. Namespace bindings
//
// In strict mode (placeholders off) an edge referencing an unknown node
// is rejected individually: it is skipped and returned, and the rest of
// the batch still applies. Any other failure discards the whole batch.
func (s *Store) CommitBatch(batch *Batch) (skipped []Edge, err error) {
	placeholders := s.CreatePlaceholders()
	err = s.WithTransaction(func(tx *sql.Tx) error {
		batch.mu.Lock()
		defer batch.mu.Unlock()

		for i := range batch.Nodes {
			if _, err := upsertNodeIn(tx, &batch.Nodes[i]); err != nil {
				return fmt.Errorf("commit batch: node %q: %w", batch.Nodes[i].Identifier, err)
			}
		}
		for i := range batch.Edges {
			if err := upsertEdgeIn(tx, &batch.Edges[i], placeholders); err != nil {
				if errors.Is(err, ErrUnknownEndpoint) {
					skipped = append(skipped, batch.Edges[i])
					continue
				}
				return fmt.Errorf("commit batch: %w", err)
			}
		}
		for _, binding := range batch.Bindings {
			if err := BindNamespaceTx(tx, binding.Namespace, binding.Identifier, binding.IncludedBy); err != nil {
				return fmt.Errorf("commit batch: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return skipped, nil
}
