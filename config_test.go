package taproot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfigYAML = `default: src

namespaces:
  src:
    filePatterns:
      - "src/**/*.ts"
      - "src/**/*.tsx"
    excludePatterns:
      - "**/*.test.ts"
    projectName: myproj
    semanticTags: [app, frontend]
    scenarios: [basic-structure, file-dependency]
    futureKnob: 42
  docs:
    filePatterns:
      - "docs/**/*.md"
`

func TestParseNamespaceConfig(t *testing.T) {
	t.Parallel()
	cfg, err := ParseNamespaceConfig([]byte(sampleConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "src", cfg.Default)
	require.Len(t, cfg.Namespaces, 2)
	assert.Equal(t, "src", cfg.Namespaces[0].Name, "declaration order is preserved")
	assert.Equal(t, "docs", cfg.Namespaces[1].Name)

	src, ok := cfg.Namespace("src")
	require.True(t, ok)
	assert.Equal(t, []string{"src/**/*.ts", "src/**/*.tsx"}, src.FilePatterns)
	assert.Equal(t, []string{"**/*.test.ts"}, src.ExcludePatterns)
	assert.Equal(t, "myproj", src.Project())
	assert.Equal(t, []string{"app", "frontend"}, src.SemanticTags)
	assert.Equal(t, []string{"basic-structure", "file-dependency"}, src.Scenarios)

	docs, ok := cfg.Namespace("docs")
	require.True(t, ok)
	assert.Equal(t, "docs", docs.Project(), "project falls back to namespace name")

	def, ok := cfg.DefaultNamespace()
	require.True(t, ok)
	assert.Equal(t, "src", def.Name)
}

func TestParseNamespaceConfig_Errors(t *testing.T) {
	t.Parallel()

	_, err := ParseNamespaceConfig([]byte("default: ghost\nnamespaces:\n  src:\n    filePatterns: [\"**/*.go\"]\n"))
	assert.Error(t, err, "default must name a declared namespace")

	_, err = ParseNamespaceConfig([]byte("namespaces:\n  src:\n    description: missing patterns\n"))
	assert.Error(t, err, "filePatterns is required")

	_, err = ParseNamespaceConfig([]byte("- just\n- a\n- list\n"))
	assert.Error(t, err, "top level must be a mapping")
}

func TestParseNamespaceConfig_DefaultFallsBackToFirst(t *testing.T) {
	t.Parallel()
	cfg, err := ParseNamespaceConfig([]byte("namespaces:\n  alpha:\n    filePatterns: [\"**/*.go\"]\n  beta:\n    filePatterns: [\"**/*.ts\"]\n"))
	require.NoError(t, err)
	def, ok := cfg.DefaultNamespace()
	require.True(t, ok)
	assert.Equal(t, "alpha", def.Name)
}

func TestLoadAndSavePreservesUnknownKeys(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "namespaces.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfigYAML), 0o644))

	cfg, err := LoadNamespaceConfig(path)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.BaseDir)

	out := filepath.Join(dir, "resaved.yaml")
	require.NoError(t, cfg.Save(out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "futureKnob", "unknown keys survive a re-save")

	reparsed, err := ParseNamespaceConfig(data)
	require.NoError(t, err)
	assert.Equal(t, cfg.Default, reparsed.Default)
	assert.Len(t, reparsed.Namespaces, 2)
}

func TestLoadNamespaceConfig_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := LoadNamespaceConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
