package query

import (
	"fmt"
	"strings"

	"github.com/jward/taproot/internal/ident"
	"github.com/jward/taproot/internal/lang"
)

// Context carries per-file state into processors.
type Context struct {
	FilePath string
	Language lang.Language
}

// Warning is a structured per-match diagnostic. A match that cannot be
// interpreted yields no record and one warning; other matches proceed.
type Warning struct {
	Code     string
	Message  string
	Location *Location
}

// ProcessorFunc converts the matches of one query key into typed
// records. Processors are pure: same matches and context produce
// identical output.
type ProcessorFunc func(matches []Match, ctx Context) ([]Record, []Warning)

// processors maps every library key to its processor. init verifies the
// mapping is total.
var processors = map[string]ProcessorFunc{
	"ts-import-sources":       processImportSources,
	"ts-export-declarations":  processExports,
	"ts-class-declarations":   declProcessor(ident.KindClass),
	"ts-interface-declarations": declProcessor(ident.KindInterface),
	"ts-function-declarations": declProcessor(ident.KindFunction),
	"ts-method-declarations":  declProcessor(ident.KindMethod),
	"ts-enum-declarations":    declProcessor(ident.KindEnum),
	"ts-type-aliases":         declProcessor(ident.KindType),
	"ts-variable-declarations": declProcessor(ident.KindVariable),
	"ts-extends-clauses":      relationProcessor("extends"),
	"ts-implements-clauses":   relationProcessor("implements"),
	"ts-call-expressions":     processCalls,

	"js-import-sources":       processImportSources,
	"js-require-calls":        processImportSources,
	"js-class-declarations":   declProcessor(ident.KindClass),
	"js-function-declarations": declProcessor(ident.KindFunction),
	"js-method-declarations":  declProcessor(ident.KindMethod),
	"js-variable-declarations": declProcessor(ident.KindVariable),
	"js-call-expressions":     processCalls,

	"java-import-sources":        processImportSources,
	"java-package-declarations":  declProcessor(ident.KindPackage),
	"java-class-declarations":    declProcessor(ident.KindClass),
	"java-interface-declarations": declProcessor(ident.KindInterface),
	"java-enum-declarations":     declProcessor(ident.KindEnum),
	"java-method-declarations":   declProcessor(ident.KindMethod),
	"java-extends-clauses":       relationProcessor("extends"),
	"java-implements-clauses":    relationProcessor("implements"),
	"java-method-invocations":    processCalls,

	"py-import-statements":  processImportSources,
	"py-from-imports":       processImportSources,
	"py-class-definitions":  declProcessor(ident.KindClass),
	"py-function-definitions": declProcessor(ident.KindFunction),
	"py-superclasses":       relationProcessor("extends"),
	"py-call-expressions":   processCalls,

	"go-import-specs":         processImportSources,
	"go-package-clauses":      declProcessor(ident.KindPackage),
	"go-function-declarations": declProcessor(ident.KindFunction),
	"go-method-declarations":  declProcessor(ident.KindMethod),
	"go-type-declarations":    declProcessor(ident.KindType),
	"go-call-expressions":     processCalls,

	"md-headings":            processHeadings,
	"md-fenced-code-blocks":  processCodeFences,
	"md-link-definitions":    processLinkDefinitions,
}

func init() {
	for _, key := range AllKeys() {
		if _, ok := processors[key]; !ok {
			panic(fmt.Sprintf("query: library key %q has no processor", key))
		}
	}
}

// Process routes the matches of one query key through its processor.
func Process(key string, matches []Match, ctx Context) ([]Record, []Warning, error) {
	p, ok := processors[key]
	if !ok {
		return nil, nil, fmt.Errorf("query: process: unknown query key %q", key)
	}
	records, warnings := p(matches, ctx)
	return records, warnings, nil
}

// capture fetches a named capture, warning-and-skipping on absence.
func capture(m Match, name string, ctx Context, warnings *[]Warning) (NodeRegion, bool) {
	r, ok := m.Captures[name]
	if !ok {
		*warnings = append(*warnings, Warning{
			Code:    "missing-capture",
			Message: fmt.Sprintf("%s: match has no %q capture", m.QueryKey, name),
		})
		return NodeRegion{}, false
	}
	return r, true
}

func processImportSources(matches []Match, ctx Context) ([]Record, []Warning) {
	var records []Record
	var warnings []Warning
	for _, m := range matches {
		r, ok := capture(m, "source", ctx, &warnings)
		if !ok {
			continue
		}
		source := strings.Trim(r.Text, "\"'`")
		if source == "" {
			warnings = append(warnings, Warning{
				Code:     "empty-import",
				Message:  fmt.Sprintf("%s: empty import source", m.QueryKey),
				Location: ptrLocation(locationOf(ctx.FilePath, r)),
			})
			continue
		}
		records = append(records, ImportSource{
			Source:     source,
			IsRelative: strings.HasPrefix(source, "."),
			Location:   locationOf(ctx.FilePath, r),
		})
	}
	return records, warnings
}

// declProcessor builds a processor for name-captured declarations of a
// fixed node kind.
func declProcessor(kind string) ProcessorFunc {
	return func(matches []Match, ctx Context) ([]Record, []Warning) {
		var records []Record
		var warnings []Warning
		for _, m := range matches {
			name, ok := capture(m, "name", ctx, &warnings)
			if !ok {
				continue
			}
			// Span the whole declaration when captured, else the name.
			span := name
			if decl, ok := m.Captures["decl"]; ok {
				span = decl
			}
			records = append(records, SymbolDeclaration{
				Name:     name.Text,
				Kind:     kind,
				Location: locationOf(ctx.FilePath, span),
			})
		}
		return records, warnings
	}
}

func relationProcessor(relation string) ProcessorFunc {
	return func(matches []Match, ctx Context) ([]Record, []Warning) {
		var records []Record
		var warnings []Warning
		for _, m := range matches {
			r, ok := capture(m, "target", ctx, &warnings)
			if !ok {
				continue
			}
			records = append(records, RelationTarget{
				Target:   r.Text,
				Relation: relation,
				Location: locationOf(ctx.FilePath, r),
			})
		}
		return records, warnings
	}
}

func processCalls(matches []Match, ctx Context) ([]Record, []Warning) {
	var records []Record
	var warnings []Warning
	for _, m := range matches {
		r, ok := capture(m, "callee", ctx, &warnings)
		if !ok {
			continue
		}
		records = append(records, CallReference{
			Callee:   r.Text,
			Location: locationOf(ctx.FilePath, r),
		})
	}
	return records, warnings
}

func processExports(matches []Match, ctx Context) ([]Record, []Warning) {
	var records []Record
	var warnings []Warning
	for _, m := range matches {
		r, ok := capture(m, "export", ctx, &warnings)
		if !ok {
			continue
		}
		text := r.Text
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = text[:i]
		}
		records = append(records, ExportDeclaration{
			Text:     strings.TrimSpace(text),
			Location: locationOf(ctx.FilePath, r),
		})
	}
	return records, warnings
}

func processHeadings(matches []Match, ctx Context) ([]Record, []Warning) {
	var records []Record
	var warnings []Warning
	for _, m := range matches {
		r, ok := capture(m, "heading", ctx, &warnings)
		if !ok {
			continue
		}
		text := strings.TrimSpace(r.Text)
		level := 0
		for level < len(text) && text[level] == '#' {
			level++
		}
		if level == 0 || level > 6 {
			warnings = append(warnings, Warning{
				Code:     "malformed-heading",
				Message:  "md-headings: heading without ATX marker",
				Location: ptrLocation(locationOf(ctx.FilePath, r)),
			})
			continue
		}
		records = append(records, MarkdownHeading{
			Level:    level,
			Text:     strings.TrimSpace(text[level:]),
			Location: locationOf(ctx.FilePath, r),
		})
	}
	return records, warnings
}

func processCodeFences(matches []Match, ctx Context) ([]Record, []Warning) {
	var records []Record
	var warnings []Warning
	for _, m := range matches {
		r, ok := capture(m, "fence", ctx, &warnings)
		if !ok {
			continue
		}
		firstLine := r.Text
		if i := strings.IndexByte(firstLine, '\n'); i >= 0 {
			firstLine = firstLine[:i]
		}
		language := strings.TrimSpace(strings.TrimLeft(firstLine, "`~"))
		records = append(records, CodeFence{
			Language: language,
			Location: locationOf(ctx.FilePath, r),
		})
	}
	return records, warnings
}

func processLinkDefinitions(matches []Match, ctx Context) ([]Record, []Warning) {
	var records []Record
	var warnings []Warning
	for _, m := range matches {
		r, ok := capture(m, "url", ctx, &warnings)
		if !ok {
			continue
		}
		records = append(records, LinkTarget{
			URL:      strings.TrimSpace(r.Text),
			Location: locationOf(ctx.FilePath, r),
		})
	}
	return records, warnings
}

func ptrLocation(l Location) *Location { return &l }
