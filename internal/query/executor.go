package query

import (
	"fmt"
	"sort"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/taproot/internal/lang"
)

// Executor runs library queries against parsed trees. Compiled queries
// are cached per (language, key) with unbounded lifetime within the
// process; the cache is shared and guarded by a read-mostly lock.
type Executor struct {
	mu    sync.RWMutex
	cache map[compileKey]*sitter.Query
}

type compileKey struct {
	language lang.Language
	key      string
}

// NewExecutor creates an Executor with an empty compile cache.
func NewExecutor() *Executor {
	return &Executor{cache: make(map[compileKey]*sitter.Query)}
}

// Execute runs the library query named by key against the parsed tree.
// Matches are yielded in document order; ties break on the smallest
// capture start offset.
func (e *Executor) Execute(l lang.Language, key string, parsed *lang.ParseResult) ([]Match, error) {
	entry, ok := Lookup(key)
	if !ok {
		return nil, fmt.Errorf("query: execute: unknown query key %q", key)
	}
	effective := l
	if l == lang.TSX {
		effective = lang.TypeScript
	}
	if entry.Language != effective {
		return nil, fmt.Errorf("query: execute %q: key is registered for %s, source is %s", key, entry.Language, l)
	}

	q, err := e.compiled(l, key, entry.Pattern)
	if err != nil {
		return nil, err
	}

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(q, parsed.Tree.RootNode())

	var matches []Match
	for {
		m, ok := cursor.NextMatch()
		if !ok {
			break
		}
		m = cursor.FilterPredicates(m, parsed.Source)
		if len(m.Captures) == 0 {
			continue
		}

		captures := make(map[string]NodeRegion, len(m.Captures))
		start := ^uint32(0)
		for _, c := range m.Captures {
			name := q.CaptureNameForId(c.Index)
			captures[name] = NodeRegion{
				StartPoint: Point{Row: int(c.Node.StartPoint().Row), Column: int(c.Node.StartPoint().Column)},
				EndPoint:   Point{Row: int(c.Node.EndPoint().Row), Column: int(c.Node.EndPoint().Column)},
				Text:       c.Node.Content(parsed.Source),
			}
			if c.Node.StartByte() < start {
				start = c.Node.StartByte()
			}
		}
		matches = append(matches, Match{QueryKey: key, Captures: captures, startByte: start})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].startByte < matches[j].startByte
	})
	return matches, nil
}

// compiled returns the cached compiled query, compiling on miss. The
// grammar used for compilation is the source language's own grammar so
// tsx captures resolve against tsx node tables.
func (e *Executor) compiled(l lang.Language, key, pattern string) (*sitter.Query, error) {
	ck := compileKey{language: l, key: key}

	e.mu.RLock()
	q, ok := e.cache[ck]
	e.mu.RUnlock()
	if ok {
		return q, nil
	}

	grammar, ok := lang.Grammar(l)
	if !ok {
		return nil, fmt.Errorf("query: compile %q: unsupported language %q", key, l)
	}
	compiled, err := sitter.NewQuery([]byte(pattern), grammar)
	if err != nil {
		return nil, fmt.Errorf("query: compile %q: %w", key, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, ok := e.cache[ck]; ok {
		compiled.Close()
		return existing, nil
	}
	e.cache[ck] = compiled
	return compiled, nil
}
