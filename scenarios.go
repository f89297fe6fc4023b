package taproot

import (
	"strings"

	"github.com/jward/taproot/internal/lang"
	"github.com/jward/taproot/internal/query"
)

// builtinScenarios are the labels that gate builtin query-key subsets.
// Any other scenario label must name a loadable script.
var builtinScenarios = map[string]bool{
	"basic-structure":   true,
	"symbol-dependency": true,
	"file-dependency":   true,
	"markdown-linking":  true,
}

// scenarioKeys returns the library keys a namespace's scenarios select
// for a language. With no builtin scenario labels, every key for the
// language runs (the default set).
func scenarioKeys(scenarios []string, l lang.Language) []string {
	var active []string
	for _, s := range scenarios {
		if builtinScenarios[s] {
			active = append(active, s)
		}
	}
	if len(active) == 0 {
		return nil // coordinator default: all keys for the language
	}

	keys := []string{} // non-nil: an empty selection runs nothing
	for _, key := range query.KeysForLanguage(l) {
		for _, scenario := range active {
			if scenarioSelects(scenario, key) {
				keys = append(keys, key)
				break
			}
		}
	}
	return keys
}

// scenarioSelects reports whether a builtin scenario covers a library
// key. Classification follows the key naming convention.
func scenarioSelects(scenario, key string) bool {
	switch scenario {
	case "basic-structure":
		return strings.Contains(key, "declaration") ||
			strings.Contains(key, "definition") ||
			strings.Contains(key, "package-clauses") ||
			strings.Contains(key, "type-aliases") ||
			strings.Contains(key, "export")
	case "symbol-dependency":
		return strings.Contains(key, "declaration") ||
			strings.Contains(key, "definition") ||
			strings.Contains(key, "extends") ||
			strings.Contains(key, "implements") ||
			strings.Contains(key, "superclasses") ||
			strings.Contains(key, "call") ||
			strings.Contains(key, "invocation")
	case "file-dependency":
		return strings.Contains(key, "import") || strings.Contains(key, "require")
	case "markdown-linking":
		return strings.HasPrefix(key, "md-")
	}
	return false
}
