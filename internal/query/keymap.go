package query

import (
	"fmt"
	"sort"
)

// KeyMapper binds user-visible names to internal library keys so
// callers can request a subset of results by their own vocabulary
// (e.g. "all_imports" -> "ts-import-sources").
type KeyMapper struct {
	bindings map[string]string
}

// NewKeyMapper creates an empty mapper.
func NewKeyMapper() *KeyMapper {
	return &KeyMapper{bindings: make(map[string]string)}
}

// Bind registers userKey as a name for queryKey. Fails if queryKey is
// not in the library. Rebinding an existing user key replaces it.
func (m *KeyMapper) Bind(userKey, queryKey string) error {
	if userKey == "" {
		return fmt.Errorf("query: bind: empty user key")
	}
	if _, ok := Lookup(queryKey); !ok {
		return fmt.Errorf("query: bind %q: unknown query key %q", userKey, queryKey)
	}
	m.bindings[userKey] = queryKey
	return nil
}

// QueryKeyFor resolves a user key.
func (m *KeyMapper) QueryKeyFor(userKey string) (string, bool) {
	qk, ok := m.bindings[userKey]
	return qk, ok
}

// UserKeys lists the bound user keys, sorted.
func (m *KeyMapper) UserKeys() []string {
	keys := make([]string, 0, len(m.bindings))
	for k := range m.bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Execute processes only the listed user keys against the already
// executed matches, returning records grouped by user key.
func (m *KeyMapper) Execute(userKeys []string, matchesByQueryKey map[string][]Match, ctx Context) (map[string][]Record, []Warning, error) {
	results := make(map[string][]Record, len(userKeys))
	var warnings []Warning
	for _, uk := range userKeys {
		qk, ok := m.bindings[uk]
		if !ok {
			return nil, nil, fmt.Errorf("query: execute: unmapped user key %q", uk)
		}
		records, ws, err := Process(qk, matchesByQueryKey[qk], ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("query: execute user key %q: %w", uk, err)
		}
		results[uk] = records
		warnings = append(warnings, ws...)
	}
	return results, warnings, nil
}

// ExecuteConditional is Execute with per-key enable flags; user keys
// whose flag is false are skipped entirely. A missing flag counts as
// enabled.
func (m *KeyMapper) ExecuteConditional(userKeys []string, enabled map[string]bool, matchesByQueryKey map[string][]Match, ctx Context) (map[string][]Record, []Warning, error) {
	var active []string
	for _, uk := range userKeys {
		if on, ok := enabled[uk]; ok && !on {
			continue
		}
		active = append(active, uk)
	}
	return m.Execute(active, matchesByQueryKey, ctx)
}
