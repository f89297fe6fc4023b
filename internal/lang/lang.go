// Package lang owns the tree-sitter grammar table and parsing. One
// grammar per supported language, parsers created per call so parsing
// is safe from any goroutine.
package lang

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	markdown "github.com/smacker/go-tree-sitter/markdown/tree-sitter-markdown"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language is a canonical language name.
type Language string

const (
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
	JavaScript Language = "javascript"
	Java       Language = "java"
	Python     Language = "python"
	Go         Language = "go"
	Markdown   Language = "markdown"
)

// extToLanguage maps file extensions to canonical language names.
// The JSX variant parses with the javascript grammar; TSX has its own.
var extToLanguage = map[string]Language{
	".ts":       TypeScript,
	".mts":      TypeScript,
	".cts":      TypeScript,
	".tsx":      TSX,
	".js":       JavaScript,
	".mjs":      JavaScript,
	".cjs":      JavaScript,
	".jsx":      JavaScript,
	".java":     Java,
	".py":       Python,
	".pyi":      Python,
	".go":       Go,
	".md":       Markdown,
	".markdown": Markdown,
}

var (
	langToGrammar map[Language]*sitter.Language
	grammarsOnce  sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		langToGrammar = map[Language]*sitter.Language{
			TypeScript: ts.GetLanguage(),
			TSX:        tsx.GetLanguage(),
			JavaScript: javascript.GetLanguage(),
			Java:       java.GetLanguage(),
			Python:     python.GetLanguage(),
			Go:         golang.GetLanguage(),
			Markdown:   markdown.GetLanguage(),
		}
	})
}

// ForFile returns the canonical language for a file path based on its
// extension. Returns ("", false) if the extension is not recognized.
func ForFile(path string) (Language, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	l, ok := extToLanguage[ext]
	return l, ok
}

// Grammar returns the tree-sitter grammar for a canonical language name.
// Returns (nil, false) if the language is not supported.
func Grammar(l Language) (*sitter.Language, bool) {
	initGrammars()
	g, ok := langToGrammar[l]
	return g, ok
}

// Supported lists all supported languages in stable order.
func Supported() []Language {
	return []Language{TypeScript, TSX, JavaScript, Java, Python, Go, Markdown}
}

// IsSupported reports whether l names a supported language.
func IsSupported(l Language) bool {
	_, ok := Grammar(l)
	return ok
}
