package taproot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/taproot/internal/lang"
	"github.com/jward/taproot/internal/query"
)

func TestCoordinator_TypeScriptBundle(t *testing.T) {
	t.Parallel()
	c := NewCoordinator()

	source := []byte(`import { useState } from 'react';
import helper from './helper';

interface Runner {
  run(): void;
}

class App implements Runner {
  run(): void {}
}
`)
	analysis, err := c.Analyze(context.Background(), lang.TypeScript, "src/App.tsx", source, nil)
	require.NoError(t, err)

	assert.Equal(t, "src/App.tsx", analysis.Path)
	assert.Positive(t, analysis.Parse.NodeCount)
	assert.Zero(t, analysis.Parse.ErrorNodeCount)
	assert.Empty(t, analysis.Diagnostics)

	imports := analysis.Records["ts-import-sources"]
	require.Len(t, imports, 2)
	first := imports[0].(query.ImportSource)
	assert.Equal(t, "react", first.Source)
	assert.False(t, first.IsRelative)
	second := imports[1].(query.ImportSource)
	assert.Equal(t, "./helper", second.Source)
	assert.True(t, second.IsRelative)

	classes := analysis.Records["ts-class-declarations"]
	require.Len(t, classes, 1)
	assert.Equal(t, "App", classes[0].(query.SymbolDeclaration).Name)

	ifaces := analysis.Records["ts-interface-declarations"]
	require.Len(t, ifaces, 1)
	assert.Equal(t, "Runner", ifaces[0].(query.SymbolDeclaration).Name)

	impls := analysis.Records["ts-implements-clauses"]
	require.Len(t, impls, 1)
	assert.Equal(t, "Runner", impls[0].(query.RelationTarget).Target)

	// Per-key metrics are recorded even for keys with no matches.
	m, ok := analysis.Processors["ts-import-sources"]
	require.True(t, ok)
	assert.Equal(t, 2, m.MatchCount)
	assert.Equal(t, 2, m.RecordCount)
	assert.Contains(t, analysis.Processors, "ts-enum-declarations")
}

func TestCoordinator_SubsetOfKeys(t *testing.T) {
	t.Parallel()
	c := NewCoordinator()
	source := []byte("import x from './x';\nclass Y {}\n")

	analysis, err := c.Analyze(context.Background(), lang.TypeScript, "a.ts", source,
		[]string{"ts-import-sources"})
	require.NoError(t, err)

	assert.Contains(t, analysis.Records, "ts-import-sources")
	assert.NotContains(t, analysis.Records, "ts-class-declarations", "unrequested keys don't run")
	assert.Len(t, analysis.Processors, 1)
}

func TestCoordinator_SyntaxErrorsProduceDiagnostic(t *testing.T) {
	t.Parallel()
	c := NewCoordinator()
	analysis, err := c.Analyze(context.Background(), lang.TypeScript, "broken.ts",
		[]byte("class {{{ ]] nonsense"), nil)
	require.NoError(t, err, "syntax errors are recoverable")

	assert.Positive(t, analysis.Parse.ErrorNodeCount)
	require.NotEmpty(t, analysis.Diagnostics)
	assert.Equal(t, "parse-errors", analysis.Diagnostics[0].Code)
	assert.Equal(t, SeverityWarning, analysis.Diagnostics[0].Severity)
}

func TestCoordinator_UnknownKey(t *testing.T) {
	t.Parallel()
	c := NewCoordinator()
	_, err := c.Analyze(context.Background(), lang.Go, "main.go",
		[]byte("package main\n"), []string{"go-no-such-key"})
	assert.Error(t, err)
}

func TestCoordinator_Deterministic(t *testing.T) {
	t.Parallel()
	c := NewCoordinator()
	source := []byte("package main\n\nimport \"fmt\"\n\nfunc main() { fmt.Println() }\n")

	a, err := c.Analyze(context.Background(), lang.Go, "main.go", source, nil)
	require.NoError(t, err)
	b, err := c.Analyze(context.Background(), lang.Go, "main.go", source, nil)
	require.NoError(t, err)
	assert.Equal(t, a.Records, b.Records)
}

func TestCoordinator_AnalyzeMapped(t *testing.T) {
	t.Parallel()
	c := NewCoordinator()
	mapper := query.NewKeyMapper()
	require.NoError(t, mapper.Bind("all_imports", "ts-import-sources"))
	require.NoError(t, mapper.Bind("classes", "ts-class-declarations"))

	source := []byte("import x from './x';\nclass Y {}\n")
	records, diags, err := c.AnalyzeMapped(context.Background(), lang.TypeScript, "a.ts", source,
		mapper, []string{"all_imports", "classes"}, map[string]bool{"classes": false})
	require.NoError(t, err)
	assert.Empty(t, diags)

	require.Contains(t, records, "all_imports")
	assert.NotContains(t, records, "classes", "disabled user keys are skipped")
	require.Len(t, records["all_imports"], 1)
	assert.Equal(t, "./x", records["all_imports"][0].(query.ImportSource).Source)

	_, _, err = c.AnalyzeMapped(context.Background(), lang.TypeScript, "a.ts", source,
		mapper, []string{"ghost"}, nil)
	assert.Error(t, err)
}

func TestCoordinator_Cancellation(t *testing.T) {
	t.Parallel()
	c := NewCoordinator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Analyze(ctx, lang.Go, "main.go", []byte("package main\n"), nil)
	assert.Error(t, err)
}
