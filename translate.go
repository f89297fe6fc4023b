package taproot

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/jward/taproot/internal/ident"
	"github.com/jward/taproot/internal/lang"
	"github.com/jward/taproot/internal/query"
	"github.com/jward/taproot/internal/store"
)

// declared is one symbol declaration with its resolved identifier and
// nesting, used while translating a file's records into graph writes.
type declared struct {
	rec        query.SymbolDeclaration
	symbolPath string
	identifier string
	container  int // index into decls, -1 for top level
}

// buildBatch translates a file's analysis records into one atomic batch
// of node/edge/binding writes. resolveFile maps an extensionless
// relative-import path to an existing project file (or returns it
// unchanged). Unresolvable in-file references become alias nodes only
// when dualNode is on; otherwise they are dropped.
func buildBatch(analysis *FileAnalysis, ns Namespace, relPath, includedBy, contentHash string, dualNode bool, resolveFile func(string) string) *store.Batch {
	if resolveFile == nil {
		resolveFile = func(p string) string { return p }
	}
	t := &translator{
		batch:       store.NewBatch(),
		ns:          ns,
		project:     ns.Project(),
		relPath:     relPath,
		includedBy:  includedBy,
		dualNode:    dualNode,
		resolveFile: resolveFile,
	}

	t.addFileNode(analysis, contentHash)
	t.collectDeclarations(analysis)
	t.addDeclarationNodes()
	t.addImports(analysis)
	t.addRelations(analysis)
	t.addCalls(analysis)
	t.addExports(analysis)
	t.addMarkdown(analysis)

	return t.batch
}

type translator struct {
	batch       *store.Batch
	ns          Namespace
	project     string
	relPath     string
	includedBy  string
	dualNode    bool
	resolveFile func(string) string

	fileID string
	decls  []declared
}

func (t *translator) addNode(n store.Node) {
	n.SemanticTags = append(n.SemanticTags, t.ns.SemanticTags...)
	t.batch.AddNode(n)
	t.batch.AddBinding(store.NamespaceBinding{
		Namespace:  t.ns.Name,
		Identifier: n.Identifier,
		IncludedBy: t.includedBy,
	})
}

func (t *translator) addEdge(from, to, edgeType string, props map[string]string) {
	t.batch.AddEdge(store.Edge{
		FromNode:   from,
		ToNode:     to,
		Type:       edgeType,
		Properties: props,
		SourceFile: t.relPath,
	})
}

func (t *translator) addFileNode(analysis *FileAnalysis, contentHash string) {
	t.fileID = ident.Build(t.project, t.relPath, ident.KindFile, "")
	t.addNode(store.Node{
		Identifier: t.fileID,
		Kind:       ident.KindFile,
		Name:       path.Base(t.relPath),
		SourceFile: t.relPath,
		Language:   string(analysis.Language),
		Metadata: map[string]string{
			"content_hash": contentHash,
			"node_count":   fmt.Sprintf("%d", analysis.Parse.NodeCount),
		},
	})
}

// collectDeclarations gathers every SymbolDeclaration record and
// resolves nesting by span containment: a method declared inside a
// class span gets the class as its container and a dotted symbol path.
func (t *translator) collectDeclarations(analysis *FileAnalysis) {
	for _, records := range analysis.Records {
		for _, r := range records {
			if d, ok := r.(query.SymbolDeclaration); ok {
				t.decls = append(t.decls, declared{rec: d, container: -1})
			}
		}
	}
	// Deterministic order: by position, outermost first on ties.
	sort.Slice(t.decls, func(i, j int) bool {
		a, b := t.decls[i].rec.Location, t.decls[j].rec.Location
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		if a.StartCol != b.StartCol {
			return a.StartCol < b.StartCol
		}
		return locSpanSize(b) < locSpanSize(a)
	})

	for i := range t.decls {
		t.decls[i].container = t.smallestEnclosing(i)
	}
	for i := range t.decls {
		t.decls[i].symbolPath = t.symbolPathOf(i)
		t.decls[i].identifier = ident.Build(t.project, t.relPath, t.decls[i].rec.Kind, t.decls[i].symbolPath)
	}
}

func spanSize(d declared) int {
	return locSpanSize(d.rec.Location)
}

func locSpanSize(l query.Location) int {
	return (l.EndLine-l.StartLine)*10000 + (l.EndCol - l.StartCol)
}

// smallestEnclosing finds the narrowest container declaration whose
// span strictly contains declaration i. Only scope-forming kinds count
// as containers.
func (t *translator) smallestEnclosing(i int) int {
	inner := t.decls[i].rec.Location
	best := -1
	bestSize := -1
	for j := range t.decls {
		if j == i || !containerKind(t.decls[j].rec.Kind) {
			continue
		}
		outer := t.decls[j].rec.Location
		if !contains(outer, inner) {
			continue
		}
		size := spanSize(t.decls[j])
		if best == -1 || size < bestSize {
			best, bestSize = j, size
		}
	}
	return best
}

func containerKind(kind string) bool {
	switch kind {
	case ident.KindClass, ident.KindInterface, ident.KindEnum:
		return true
	}
	return false
}

// contains reports whether outer strictly contains inner.
func contains(outer, inner query.Location) bool {
	if outer == inner {
		return false
	}
	startsBefore := outer.StartLine < inner.StartLine ||
		(outer.StartLine == inner.StartLine && outer.StartCol <= inner.StartCol)
	endsAfter := outer.EndLine > inner.EndLine ||
		(outer.EndLine == inner.EndLine && outer.EndCol >= inner.EndCol)
	return startsBefore && endsAfter
}

func (t *translator) symbolPathOf(i int) string {
	parts := []string{t.decls[i].rec.Name}
	seen := map[int]bool{i: true}
	for c := t.decls[i].container; c >= 0 && !seen[c]; c = t.decls[c].container {
		seen[c] = true
		parts = append([]string{t.decls[c].rec.Name}, parts...)
	}
	return strings.Join(parts, ".")
}

func (t *translator) addDeclarationNodes() {
	for _, d := range t.decls {
		line, col := d.rec.Location.StartLine, d.rec.Location.StartCol
		t.addNode(store.Node{
			Identifier: d.identifier,
			Kind:       d.rec.Kind,
			Name:       d.rec.Name,
			SourceFile: t.relPath,
			StartLine:  &line,
			StartCol:   &col,
		})
		if d.container >= 0 {
			// A scope declares its members; the file contains only
			// top-level symbols.
			t.addEdge(t.decls[d.container].identifier, d.identifier, "declares", nil)
		} else {
			t.addEdge(t.fileID, d.identifier, "contains", nil)
		}
	}
}

func (t *translator) addImports(analysis *FileAnalysis) {
	for _, records := range analysis.Records {
		for _, r := range records {
			imp, ok := r.(query.ImportSource)
			if !ok {
				continue
			}
			target, edgeType := t.importTarget(imp, analysis.Language)
			t.addEdge(t.fileID, target, edgeType, map[string]string{"source": imp.Source})
			if edgeType == "imports_file" {
				t.addEdge(t.fileID, target, "depends_on", nil)
			}
		}
	}
}

// importTarget classifies an import and returns the target node
// identifier plus the imports_* subtype. Relative sources resolve to a
// project file; package-style paths become Package nodes; bare module
// specifiers become Library nodes.
func (t *translator) importTarget(imp query.ImportSource, l lang.Language) (string, string) {
	if imp.IsRelative {
		resolved := t.resolveFile(path.Clean(path.Join(path.Dir(t.relPath), imp.Source)))
		id := ident.Build(t.project, resolved, ident.KindFile, "")
		return id, "imports_file"
	}

	kind, edgeType := ident.KindLibrary, "imports_library"
	switch l {
	case lang.Java, lang.Python:
		kind, edgeType = ident.KindPackage, "imports_package"
	case lang.Go:
		// Module-path imports (host/org/pkg) are external libraries;
		// bare paths are packages.
		if first, _, found := strings.Cut(imp.Source, "/"); !found || !strings.Contains(first, ".") {
			kind, edgeType = ident.KindPackage, "imports_package"
		}
	}

	id := ident.Build(t.project, imp.Source, kind, lastSegment(imp.Source))
	t.addNode(store.Node{
		Identifier: id,
		Kind:       kind,
		Name:       lastSegment(imp.Source),
		SourceFile: imp.Source,
	})
	return id, edgeType
}

func lastSegment(source string) string {
	s := source
	if i := strings.LastIndexAny(s, "/."); i >= 0 && i+1 < len(s) {
		s = s[i+1:]
	}
	return s
}

func (t *translator) addRelations(analysis *FileAnalysis) {
	for _, records := range analysis.Records {
		for _, r := range records {
			rel, ok := r.(query.RelationTarget)
			if !ok {
				continue
			}
			from := t.enclosingDecl(rel.Location, containerKind)
			if from == "" {
				continue
			}
			wantKind := ident.KindClass
			if rel.Relation == "implements" {
				wantKind = ident.KindInterface
			}
			to := t.resolveName(rel.Target, typeKinds)
			if to == "" {
				if !t.dualNode {
					continue
				}
				to = t.aliasNode(rel.Target, wantKind)
			}
			t.addEdge(from, to, rel.Relation, nil)
		}
	}
}

func (t *translator) addCalls(analysis *FileAnalysis) {
	for _, records := range analysis.Records {
		for _, r := range records {
			call, ok := r.(query.CallReference)
			if !ok {
				continue
			}
			from := t.enclosingDecl(call.Location, callableKind)
			if from == "" {
				from = t.fileID
			}
			to := t.resolveName(call.Callee, callableKinds)
			if to == "" {
				if !t.dualNode {
					continue
				}
				to = t.aliasNode(call.Callee, ident.KindFunction)
			}
			if to == from {
				continue // self recursion stays out of the call graph
			}
			t.addEdge(from, to, "calls", nil)
		}
	}
}

var (
	typeKinds     = map[string]bool{ident.KindClass: true, ident.KindInterface: true, ident.KindEnum: true, ident.KindType: true}
	callableKinds = map[string]bool{ident.KindFunction: true, ident.KindMethod: true}
)

func callableKind(kind string) bool {
	return callableKinds[kind]
}

// enclosingDecl returns the identifier of the narrowest declaration of
// an accepted kind whose span contains loc, or "".
func (t *translator) enclosingDecl(loc query.Location, accept func(string) bool) string {
	best := ""
	bestSize := -1
	for _, d := range t.decls {
		if !accept(d.rec.Kind) || !spanContainsPoint(d.rec.Location, loc) {
			continue
		}
		size := spanSize(d)
		if bestSize == -1 || size < bestSize {
			best, bestSize = d.identifier, size
		}
	}
	return best
}

func spanContainsPoint(outer, point query.Location) bool {
	startsBefore := outer.StartLine < point.StartLine ||
		(outer.StartLine == point.StartLine && outer.StartCol <= point.StartCol)
	endsAfter := outer.EndLine > point.StartLine ||
		(outer.EndLine == point.StartLine && outer.EndCol >= point.StartCol)
	return startsBefore && endsAfter
}

// resolveName finds a same-file declaration by name among the accepted
// kinds. Ambiguous names resolve to the first declaration in document
// order.
func (t *translator) resolveName(name string, kinds map[string]bool) string {
	for _, d := range t.decls {
		if d.rec.Name == name && kinds[d.rec.Kind] {
			return d.identifier
		}
	}
	return ""
}

// aliasNode creates the call-site alias for a reference that did not
// resolve locally. A later resolution pass links it to its canonical
// target with an aliasOf edge.
func (t *translator) aliasNode(name, kind string) string {
	id := ident.Build(t.project, t.relPath, ident.KindUnknown, name)
	t.addNode(store.Node{
		Identifier:   id,
		Kind:         ident.KindUnknown,
		Name:         name,
		SourceFile:   t.relPath,
		SemanticTags: []string{"unresolved"},
		Metadata:     map[string]string{"expected_kind": kind},
	})
	return id
}

func (t *translator) addExports(analysis *FileAnalysis) {
	count := 0
	for _, records := range analysis.Records {
		for _, r := range records {
			if _, ok := r.(query.ExportDeclaration); ok {
				count++
			}
		}
	}
	if count > 0 {
		t.addNode(store.Node{
			Identifier: t.fileID,
			Kind:       ident.KindFile,
			Name:       path.Base(t.relPath),
			SourceFile: t.relPath,
			Metadata:   map[string]string{"export_count": fmt.Sprintf("%d", count)},
		})
	}
}

func (t *translator) addMarkdown(analysis *FileAnalysis) {
	var title string
	var fenceLangs []string
	for _, records := range analysis.Records {
		for _, r := range records {
			switch rec := r.(type) {
			case query.MarkdownHeading:
				if rec.Level == 1 && title == "" {
					title = rec.Text
				}
			case query.CodeFence:
				if rec.Language != "" {
					fenceLangs = append(fenceLangs, "code:"+rec.Language)
				}
			case query.LinkTarget:
				if !strings.HasPrefix(rec.URL, ".") {
					continue
				}
				resolved := t.resolveFile(path.Clean(path.Join(path.Dir(t.relPath), rec.URL)))
				target := ident.Build(t.project, resolved, ident.KindFile, "")
				t.addEdge(t.fileID, target, "references", map[string]string{"url": rec.URL})
			}
		}
	}
	if title != "" || len(fenceLangs) > 0 {
		n := store.Node{
			Identifier:   t.fileID,
			Kind:         ident.KindFile,
			Name:         path.Base(t.relPath),
			SourceFile:   t.relPath,
			SemanticTags: fenceLangs,
		}
		if title != "" {
			n.Metadata = map[string]string{"title": title}
		}
		t.addNode(n)
	}
}
