package query

import (
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/taproot/internal/lang"
)

// Entry is one named library query. Keys are namespaced by language
// prefix and stable across releases — the library is append-only.
type Entry struct {
	Key         string
	Language    lang.Language
	Pattern     string
	Captures    []string
	Description string
}

// entries is the static catalogue. Every entry has exactly one
// processor registered in processors.go.
var entries = []Entry{
	// ---- TypeScript (also runs for TSX sources) ----
	{
		Key: "ts-import-sources", Language: lang.TypeScript,
		Pattern:  `(import_statement source: (string) @source)`,
		Captures: []string{"source"},
		Description: "module specifiers of import statements",
	},
	{
		Key: "ts-export-declarations", Language: lang.TypeScript,
		Pattern:  `(export_statement) @export`,
		Captures: []string{"export"},
		Description: "export statements",
	},
	{
		Key: "ts-class-declarations", Language: lang.TypeScript,
		Pattern:  `(class_declaration name: (type_identifier) @name) @decl`,
		Captures: []string{"name", "decl"},
		Description: "class declarations",
	},
	{
		Key: "ts-interface-declarations", Language: lang.TypeScript,
		Pattern:  `(interface_declaration name: (type_identifier) @name) @decl`,
		Captures: []string{"name", "decl"},
		Description: "interface declarations",
	},
	{
		Key: "ts-function-declarations", Language: lang.TypeScript,
		Pattern:  `(function_declaration name: (identifier) @name) @decl`,
		Captures: []string{"name", "decl"},
		Description: "top-level function declarations",
	},
	{
		Key: "ts-method-declarations", Language: lang.TypeScript,
		Pattern:  `(method_definition name: (property_identifier) @name) @decl`,
		Captures: []string{"name", "decl"},
		Description: "class method definitions",
	},
	{
		Key: "ts-enum-declarations", Language: lang.TypeScript,
		Pattern:  `(enum_declaration name: (identifier) @name) @decl`,
		Captures: []string{"name", "decl"},
		Description: "enum declarations",
	},
	{
		Key: "ts-type-aliases", Language: lang.TypeScript,
		Pattern:  `(type_alias_declaration name: (type_identifier) @name) @decl`,
		Captures: []string{"name", "decl"},
		Description: "type alias declarations",
	},
	{
		Key: "ts-variable-declarations", Language: lang.TypeScript,
		Pattern:  `(variable_declarator name: (identifier) @name) @decl`,
		Captures: []string{"name", "decl"},
		Description: "variable declarators",
	},
	{
		Key: "ts-extends-clauses", Language: lang.TypeScript,
		Pattern:  `(extends_clause (identifier) @target)`,
		Captures: []string{"target"},
		Description: "class extends targets",
	},
	{
		Key: "ts-implements-clauses", Language: lang.TypeScript,
		Pattern:  `(implements_clause (type_identifier) @target)`,
		Captures: []string{"target"},
		Description: "class implements targets",
	},
	{
		Key: "ts-call-expressions", Language: lang.TypeScript,
		Pattern:  `(call_expression function: (identifier) @callee)`,
		Captures: []string{"callee"},
		Description: "direct call expressions",
	},

	// ---- JavaScript (js and jsx) ----
	{
		Key: "js-import-sources", Language: lang.JavaScript,
		Pattern:  `(import_statement source: (string) @source)`,
		Captures: []string{"source"},
		Description: "module specifiers of import statements",
	},
	{
		Key: "js-require-calls", Language: lang.JavaScript,
		Pattern: `(call_expression
  function: (identifier) @fn
  arguments: (arguments (string) @source)
  (#eq? @fn "require"))`,
		Captures: []string{"fn", "source"},
		Description: "CommonJS require() sources",
	},
	{
		Key: "js-class-declarations", Language: lang.JavaScript,
		Pattern:  `(class_declaration name: (identifier) @name) @decl`,
		Captures: []string{"name", "decl"},
		Description: "class declarations",
	},
	{
		Key: "js-function-declarations", Language: lang.JavaScript,
		Pattern:  `(function_declaration name: (identifier) @name) @decl`,
		Captures: []string{"name", "decl"},
		Description: "function declarations",
	},
	{
		Key: "js-method-declarations", Language: lang.JavaScript,
		Pattern:  `(method_definition name: (property_identifier) @name) @decl`,
		Captures: []string{"name", "decl"},
		Description: "class method definitions",
	},
	{
		Key: "js-variable-declarations", Language: lang.JavaScript,
		Pattern:  `(variable_declarator name: (identifier) @name) @decl`,
		Captures: []string{"name", "decl"},
		Description: "variable declarators",
	},
	{
		Key: "js-call-expressions", Language: lang.JavaScript,
		Pattern:  `(call_expression function: (identifier) @callee)`,
		Captures: []string{"callee"},
		Description: "direct call expressions",
	},

	// ---- Java ----
	{
		Key: "java-import-sources", Language: lang.Java,
		Pattern:  `(import_declaration (scoped_identifier) @source)`,
		Captures: []string{"source"},
		Description: "import declarations",
	},
	{
		Key: "java-package-declarations", Language: lang.Java,
		Pattern:  `(package_declaration (scoped_identifier) @name)`,
		Captures: []string{"name"},
		Description: "package declarations",
	},
	{
		Key: "java-class-declarations", Language: lang.Java,
		Pattern:  `(class_declaration name: (identifier) @name) @decl`,
		Captures: []string{"name", "decl"},
		Description: "class declarations",
	},
	{
		Key: "java-interface-declarations", Language: lang.Java,
		Pattern:  `(interface_declaration name: (identifier) @name) @decl`,
		Captures: []string{"name", "decl"},
		Description: "interface declarations",
	},
	{
		Key: "java-enum-declarations", Language: lang.Java,
		Pattern:  `(enum_declaration name: (identifier) @name) @decl`,
		Captures: []string{"name", "decl"},
		Description: "enum declarations",
	},
	{
		Key: "java-method-declarations", Language: lang.Java,
		Pattern:  `(method_declaration name: (identifier) @name) @decl`,
		Captures: []string{"name", "decl"},
		Description: "method declarations",
	},
	{
		Key: "java-extends-clauses", Language: lang.Java,
		Pattern:  `(superclass (type_identifier) @target)`,
		Captures: []string{"target"},
		Description: "class extends targets",
	},
	{
		Key: "java-implements-clauses", Language: lang.Java,
		Pattern:  `(super_interfaces (type_list (type_identifier) @target))`,
		Captures: []string{"target"},
		Description: "class implements targets",
	},
	{
		Key: "java-method-invocations", Language: lang.Java,
		Pattern:  `(method_invocation name: (identifier) @callee)`,
		Captures: []string{"callee"},
		Description: "method invocations",
	},

	// ---- Python ----
	{
		Key: "py-import-statements", Language: lang.Python,
		Pattern:  `(import_statement (dotted_name) @source)`,
		Captures: []string{"source"},
		Description: "plain import statements",
	},
	{
		Key: "py-from-imports", Language: lang.Python,
		Pattern:  `(import_from_statement module_name: (dotted_name) @source)`,
		Captures: []string{"source"},
		Description: "from-import module names",
	},
	{
		Key: "py-class-definitions", Language: lang.Python,
		Pattern:  `(class_definition name: (identifier) @name) @decl`,
		Captures: []string{"name", "decl"},
		Description: "class definitions",
	},
	{
		Key: "py-function-definitions", Language: lang.Python,
		Pattern:  `(function_definition name: (identifier) @name) @decl`,
		Captures: []string{"name", "decl"},
		Description: "function and method definitions",
	},
	{
		Key: "py-superclasses", Language: lang.Python,
		Pattern:  `(class_definition superclasses: (argument_list (identifier) @target))`,
		Captures: []string{"target"},
		Description: "base classes",
	},
	{
		Key: "py-call-expressions", Language: lang.Python,
		Pattern:  `(call function: (identifier) @callee)`,
		Captures: []string{"callee"},
		Description: "direct call expressions",
	},

	// ---- Go ----
	{
		Key: "go-import-specs", Language: lang.Go,
		Pattern:  `(import_spec path: (interpreted_string_literal) @source)`,
		Captures: []string{"source"},
		Description: "import spec paths",
	},
	{
		Key: "go-package-clauses", Language: lang.Go,
		Pattern:  `(package_clause (package_identifier) @name)`,
		Captures: []string{"name"},
		Description: "package clause",
	},
	{
		Key: "go-function-declarations", Language: lang.Go,
		Pattern:  `(function_declaration name: (identifier) @name) @decl`,
		Captures: []string{"name", "decl"},
		Description: "function declarations",
	},
	{
		Key: "go-method-declarations", Language: lang.Go,
		Pattern:  `(method_declaration name: (field_identifier) @name) @decl`,
		Captures: []string{"name", "decl"},
		Description: "method declarations",
	},
	{
		Key: "go-type-declarations", Language: lang.Go,
		Pattern:  `(type_spec name: (type_identifier) @name) @decl`,
		Captures: []string{"name", "decl"},
		Description: "type specs",
	},
	{
		Key: "go-call-expressions", Language: lang.Go,
		Pattern:  `(call_expression function: (identifier) @callee)`,
		Captures: []string{"callee"},
		Description: "direct call expressions",
	},

	// ---- Markdown ----
	{
		Key: "md-headings", Language: lang.Markdown,
		Pattern:  `(atx_heading) @heading`,
		Captures: []string{"heading"},
		Description: "ATX headings",
	},
	{
		Key: "md-fenced-code-blocks", Language: lang.Markdown,
		Pattern:  `(fenced_code_block) @fence`,
		Captures: []string{"fence"},
		Description: "fenced code blocks",
	},
	{
		Key: "md-link-definitions", Language: lang.Markdown,
		Pattern:  `(link_reference_definition (link_destination) @url)`,
		Captures: []string{"url"},
		Description: "reference-style link destinations",
	},
}

var (
	entryByKey map[string]Entry
	keysByLang map[lang.Language][]string
)

func init() {
	entryByKey = make(map[string]Entry, len(entries))
	keysByLang = make(map[lang.Language][]string)
	for _, e := range entries {
		if _, dup := entryByKey[e.Key]; dup {
			panic(fmt.Sprintf("query: duplicate library key %q", e.Key))
		}
		entryByKey[e.Key] = e
		keysByLang[e.Language] = append(keysByLang[e.Language], e.Key)
	}
	for _, keys := range keysByLang {
		sort.Strings(keys)
	}
}

// Lookup returns the entry for a library key.
func Lookup(key string) (Entry, bool) {
	e, ok := entryByKey[key]
	return e, ok
}

// KeysForLanguage lists library keys registered for a language, sorted.
// TSX sources run the TypeScript entries — the tsx grammar shares its
// node vocabulary with typescript.
func KeysForLanguage(l lang.Language) []string {
	effective := l
	if l == lang.TSX {
		effective = lang.TypeScript
	}
	return append([]string(nil), keysByLang[effective]...)
}

// AllKeys lists every library key, sorted.
func AllKeys() []string {
	keys := make([]string, 0, len(entryByKey))
	for k := range entryByKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidateLibrary compiles every library pattern against its grammar.
// Called once at startup; a malformed S-expression is fatal there
// rather than per-file.
func ValidateLibrary() error {
	for _, e := range entries {
		grammar, ok := lang.Grammar(e.Language)
		if !ok {
			return fmt.Errorf("query: library entry %q: unsupported language %q", e.Key, e.Language)
		}
		q, err := sitter.NewQuery([]byte(e.Pattern), grammar)
		if err != nil {
			return fmt.Errorf("query: library entry %q: malformed pattern: %w", e.Key, err)
		}
		q.Close()
	}
	return nil
}
