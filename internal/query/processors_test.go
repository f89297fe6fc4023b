package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/taproot/internal/lang"
)

func mkMatch(key string, captures map[string]string) Match {
	m := Match{QueryKey: key, Captures: make(map[string]NodeRegion)}
	for name, text := range captures {
		m.Captures[name] = NodeRegion{Text: text}
	}
	return m
}

func tsCtx() Context {
	return Context{FilePath: "src/App.tsx", Language: lang.TypeScript}
}

func TestEveryLibraryKeyHasAProcessor(t *testing.T) {
	t.Parallel()
	for _, key := range AllKeys() {
		_, _, err := Process(key, nil, tsCtx())
		assert.NoError(t, err, "key %s", key)
	}
}

func TestProcessUnknownKey(t *testing.T) {
	t.Parallel()
	_, _, err := Process("ts-made-up", nil, tsCtx())
	assert.Error(t, err)
}

func TestProcessImportSources(t *testing.T) {
	t.Parallel()
	matches := []Match{
		mkMatch("ts-import-sources", map[string]string{"source": "'react'"}),
		mkMatch("ts-import-sources", map[string]string{"source": `"./util"`}),
	}
	records, warnings, err := Process("ts-import-sources", matches, tsCtx())
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, records, 2)

	first := records[0].(ImportSource)
	assert.Equal(t, "react", first.Source)
	assert.False(t, first.IsRelative)

	second := records[1].(ImportSource)
	assert.Equal(t, "./util", second.Source)
	assert.True(t, second.IsRelative)
}

func TestProcessImportSources_MissingCaptureWarns(t *testing.T) {
	t.Parallel()
	matches := []Match{
		mkMatch("ts-import-sources", map[string]string{"wrong": "'x'"}),
		mkMatch("ts-import-sources", map[string]string{"source": "'ok'"}),
	}
	records, warnings, err := Process("ts-import-sources", matches, tsCtx())
	require.NoError(t, err)
	require.Len(t, records, 1, "bad match is skipped, good match survives")
	require.Len(t, warnings, 1)
	assert.Equal(t, "missing-capture", warnings[0].Code)
}

func TestProcessImportSources_EmptySourceWarns(t *testing.T) {
	t.Parallel()
	matches := []Match{mkMatch("ts-import-sources", map[string]string{"source": "''"})}
	records, warnings, err := Process("ts-import-sources", matches, tsCtx())
	require.NoError(t, err)
	assert.Empty(t, records)
	require.Len(t, warnings, 1)
	assert.Equal(t, "empty-import", warnings[0].Code)
}

func TestProcessDeclarations(t *testing.T) {
	t.Parallel()
	matches := []Match{
		mkMatch("ts-class-declarations", map[string]string{"name": "App", "decl": "class App {}"}),
	}
	records, warnings, err := Process("ts-class-declarations", matches, tsCtx())
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, records, 1)

	decl := records[0].(SymbolDeclaration)
	assert.Equal(t, "App", decl.Name)
	assert.Equal(t, "Class", decl.Kind)
}

func TestProcessRelations(t *testing.T) {
	t.Parallel()
	records, _, err := Process("ts-extends-clauses",
		[]Match{mkMatch("ts-extends-clauses", map[string]string{"target": "Base"})}, tsCtx())
	require.NoError(t, err)
	require.Len(t, records, 1)
	rel := records[0].(RelationTarget)
	assert.Equal(t, "Base", rel.Target)
	assert.Equal(t, "extends", rel.Relation)

	records, _, err = Process("ts-implements-clauses",
		[]Match{mkMatch("ts-implements-clauses", map[string]string{"target": "Runner"})}, tsCtx())
	require.NoError(t, err)
	rel = records[0].(RelationTarget)
	assert.Equal(t, "implements", rel.Relation)
}

func TestProcessCalls(t *testing.T) {
	t.Parallel()
	records, _, err := Process("go-call-expressions",
		[]Match{mkMatch("go-call-expressions", map[string]string{"callee": "helper"})},
		Context{FilePath: "main.go", Language: lang.Go})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "helper", records[0].(CallReference).Callee)
}

func TestProcessHeadings(t *testing.T) {
	t.Parallel()
	ctx := Context{FilePath: "README.md", Language: lang.Markdown}
	matches := []Match{
		mkMatch("md-headings", map[string]string{"heading": "# Title"}),
		mkMatch("md-headings", map[string]string{"heading": "### Sub  "}),
		mkMatch("md-headings", map[string]string{"heading": "no marker"}),
	}
	records, warnings, err := Process("md-headings", matches, ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Len(t, warnings, 1)

	h1 := records[0].(MarkdownHeading)
	assert.Equal(t, 1, h1.Level)
	assert.Equal(t, "Title", h1.Text)
	h3 := records[1].(MarkdownHeading)
	assert.Equal(t, 3, h3.Level)
	assert.Equal(t, "Sub", h3.Text)
}

func TestProcessCodeFences(t *testing.T) {
	t.Parallel()
	ctx := Context{FilePath: "README.md", Language: lang.Markdown}
	matches := []Match{
		mkMatch("md-fenced-code-blocks", map[string]string{"fence": "```go\nfunc main() {}\n```"}),
	}
	records, _, err := Process("md-fenced-code-blocks", matches, ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "go", records[0].(CodeFence).Language)
}

func TestProcessorsArePure(t *testing.T) {
	t.Parallel()
	matches := []Match{mkMatch("ts-import-sources", map[string]string{"source": "'react'"})}
	a, _, err := Process("ts-import-sources", matches, tsCtx())
	require.NoError(t, err)
	b, _, err := Process("ts-import-sources", matches, tsCtx())
	require.NoError(t, err)
	assert.Equal(t, a, b, "same matches and context produce identical output")
}
