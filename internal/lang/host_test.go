package lang

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForFile(t *testing.T) {
	t.Parallel()
	cases := map[string]Language{
		"src/App.tsx":   TSX,
		"src/index.ts":  TypeScript,
		"lib/util.js":   JavaScript,
		"lib/view.jsx":  JavaScript,
		"Main.java":     Java,
		"app.py":        Python,
		"main.go":       Go,
		"README.md":     Markdown,
		"notes.MARKDOWN": Markdown,
	}
	for path, want := range cases {
		got, ok := ForFile(path)
		require.True(t, ok, "path %s", path)
		assert.Equal(t, want, got, "path %s", path)
	}

	_, ok := ForFile("binary.wasm")
	assert.False(t, ok)
	_, ok = ForFile("Makefile")
	assert.False(t, ok)
}

func TestGrammarsAvailable(t *testing.T) {
	t.Parallel()
	for _, l := range Supported() {
		g, ok := Grammar(l)
		require.True(t, ok, "language %s", l)
		assert.NotNil(t, g, "language %s", l)
		assert.True(t, IsSupported(l))
	}
	assert.False(t, IsSupported(Language("cobol")))
}

func TestParse_CleanSource(t *testing.T) {
	t.Parallel()
	h := NewHost()
	res, err := h.Parse(context.Background(), Go, []byte("package main\n\nfunc main() {}\n"))
	require.NoError(t, err)
	defer res.Close()

	assert.Equal(t, Go, res.Language)
	assert.Positive(t, res.NodeCount)
	assert.Zero(t, res.ErrorNodeCount)
	assert.Equal(t, "source_file", res.Tree.RootNode().Type())
}

func TestParse_SyntaxErrorsAreRecoverable(t *testing.T) {
	t.Parallel()
	h := NewHost()
	res, err := h.Parse(context.Background(), TypeScript, []byte("class {{{ nonsense ]]"))
	require.NoError(t, err, "the host never fails on syntax errors")
	defer res.Close()
	assert.Positive(t, res.ErrorNodeCount, "error nodes are counted, not thrown")
}

func TestParse_UnsupportedLanguage(t *testing.T) {
	t.Parallel()
	h := NewHost()
	_, err := h.Parse(context.Background(), Language("cobol"), []byte("x"))
	assert.Error(t, err)
}

func TestParse_Deterministic(t *testing.T) {
	t.Parallel()
	h := NewHost()
	src := []byte("const x = 1;\nexport function f() { return x; }\n")

	a, err := h.Parse(context.Background(), TypeScript, src)
	require.NoError(t, err)
	defer a.Close()
	b, err := h.Parse(context.Background(), TypeScript, src)
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, a.Tree.RootNode().String(), b.Tree.RootNode().String(),
		"identical source parses to structurally equivalent trees")
	assert.Equal(t, a.NodeCount, b.NodeCount)
}
