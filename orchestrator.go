package taproot

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jward/taproot/internal/edgetype"
	"github.com/jward/taproot/internal/ident"
	"github.com/jward/taproot/internal/lang"
	"github.com/jward/taproot/internal/query"
	"github.com/jward/taproot/internal/store"
	taprootrt "github.com/jward/taproot/internal/runtime"
)

// ErrConfiguration marks malformed namespace records and unknown
// scenario references.
var ErrConfiguration = errors.New("taproot: configuration error")

// defaultWorkerCap bounds the analysis worker pool.
const defaultWorkerCap = 8

// Orchestrator drives namespace analysis: glob resolution, per-file
// coordinated analysis, and atomic graph writes.
type Orchestrator struct {
	store       *store.Store
	registry    *edgetype.Registry
	coordinator *Coordinator
	config      *NamespaceConfig

	workers     int
	serial      bool
	dualNode    bool
	force       bool
	fileTimeout time.Duration
	scriptsDir  string
	scriptsFS   fs.FS
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWorkers sets the analysis worker pool size. Values < 1 fall back
// to the default (logical processor count, capped at 8).
func WithWorkers(n int) Option {
	return func(o *Orchestrator) { o.workers = n }
}

// WithSerial forces one-file-at-a-time analysis; commit order then
// follows file-list order.
func WithSerial(serial bool) Option {
	return func(o *Orchestrator) { o.serial = serial }
}

// WithDualNode enables placeholder creation for edges whose target has
// not been analyzed yet (the dual-node pattern). Off, such edges are
// rejected individually and reported as diagnostics.
func WithDualNode(on bool) Option {
	return func(o *Orchestrator) { o.dualNode = on }
}

// WithForce disables content-hash skipping of unchanged files.
func WithForce(force bool) Option {
	return func(o *Orchestrator) { o.force = force }
}

// WithFileTimeout bounds each file's analysis wall-clock time. Zero
// means unbounded.
func WithFileTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.fileTimeout = d }
}

// WithScriptsFS loads scenario scripts from the given filesystem
// (typically the embedded default set) instead of from disk.
func WithScriptsFS(fsys fs.FS) Option {
	return func(o *Orchestrator) { o.scriptsFS = fsys }
}

// WithScriptsDir loads scenario scripts from a directory on disk.
func WithScriptsDir(dir string) Option {
	return func(o *Orchestrator) { o.scriptsDir = dir }
}

// New opens (or creates) the graph store at dbPath and builds an
// Orchestrator over cfg. The query library and the builtin edge-type
// catalogue are validated here — malformed entries are fatal at
// startup, not per-file.
func New(dbPath string, cfg *NamespaceConfig, opts ...Option) (*Orchestrator, error) {
	if err := query.ValidateLibrary(); err != nil {
		return nil, fmt.Errorf("taproot: %w", err)
	}

	registry := edgetype.NewRegistry()
	if err := registry.Validate(); err != nil {
		return nil, fmt.Errorf("taproot: %w", err)
	}

	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("taproot: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("taproot: migrate: %w", err)
	}
	if err := s.SyncEdgeTypes(registryRows(registry)); err != nil {
		s.Close()
		return nil, fmt.Errorf("taproot: %w", err)
	}

	o := &Orchestrator{
		store:       s,
		registry:    registry,
		coordinator: NewCoordinator(),
		config:      cfg,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.workers < 1 {
		o.workers = min(runtime.NumCPU(), defaultWorkerCap)
	}
	s.SetCreatePlaceholders(o.dualNode)

	if err := o.validateScenarios(); err != nil {
		s.Close()
		return nil, err
	}
	return o, nil
}

func registryRows(r *edgetype.Registry) []store.EdgeTypeRow {
	recs := r.All()
	rows := make([]store.EdgeTypeRow, len(recs))
	for i, rec := range recs {
		rows[i] = store.EdgeTypeRow{
			Name:          rec.Name,
			Parent:        rec.Parent,
			IsDirected:    rec.IsDirected,
			IsTransitive:  rec.IsTransitive,
			IsInheritable: rec.IsInheritable,
			Description:   rec.Description,
		}
	}
	return rows
}

// Close releases the store.
func (o *Orchestrator) Close() error {
	return o.store.Close()
}

// Store exposes the graph store for direct queries.
func (o *Orchestrator) Store() *store.Store { return o.store }

// Registry exposes the edge-type registry.
func (o *Orchestrator) Registry() *edgetype.Registry { return o.registry }

// Engine returns an inference engine over this orchestrator's store and
// registry.
func (o *Orchestrator) Engine(opts ...EngineOption) *Engine {
	return NewEngine(o.store, o.registry, opts...)
}

// fileMatch pairs a discovered path with the include pattern that
// admitted it.
type fileMatch struct {
	rel        string
	includedBy string
}

// ListFiles expands a namespace's include globs, applies excludes, and
// returns the matched paths relative to the config base directory in
// deterministic sorted order.
func (o *Orchestrator) ListFiles(namespace string) ([]string, error) {
	matches, err := o.listFiles(namespace)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = m.rel
	}
	return paths, nil
}

func (o *Orchestrator) listFiles(namespace string) ([]fileMatch, error) {
	ns, ok := o.config.Namespace(namespace)
	if !ok {
		return nil, fmt.Errorf("%w: unknown namespace %q", ErrConfiguration, namespace)
	}

	baseDir := o.config.BaseDir
	if baseDir == "" {
		baseDir = "."
	}
	fsys := os.DirFS(baseDir)

	byPath := make(map[string]string) // rel path -> first matching include pattern
	for _, pattern := range ns.FilePatterns {
		hits, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: namespace %q: bad pattern %q: %v", ErrConfiguration, namespace, pattern, err)
		}
		for _, h := range hits {
			if _, seen := byPath[h]; !seen {
				byPath[h] = pattern
			}
		}
	}

	var matches []fileMatch
	for p, includedBy := range byPath {
		if info, err := fs.Stat(fsys, p); err != nil || info.IsDir() {
			continue
		}
		excluded := false
		for _, ex := range ns.ExcludePatterns {
			if ok, err := doublestar.Match(ex, p); err == nil && ok {
				excluded = true
				break
			}
		}
		if !excluded {
			matches = append(matches, fileMatch{rel: p, includedBy: includedBy})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].rel < matches[j].rel })
	return matches, nil
}

// NamespaceResult summarizes one namespace analysis run.
type NamespaceResult struct {
	Namespace string
	Project   string

	FilesAnalyzed int
	FilesSkipped  int
	FilesFailed   int
	EdgesSkipped  int

	Diagnostics []Diagnostic
	Duration    time.Duration
	Cancelled   bool
}

// AnalyzeNamespace analyzes every file the namespace matches. Prior
// bindings for the namespace are cleared first (replace-namespace
// policy); each file's nodes, edges, and bindings commit atomically.
// Per-file failures become diagnostics; the run continues.
func (o *Orchestrator) AnalyzeNamespace(ctx context.Context, namespace string) (*NamespaceResult, error) {
	start := time.Now()
	ns, ok := o.config.Namespace(namespace)
	if !ok {
		return nil, fmt.Errorf("%w: unknown namespace %q", ErrConfiguration, namespace)
	}

	matches, err := o.listFiles(namespace)
	if err != nil {
		return nil, err
	}

	if err := o.store.ClearNamespaceBindings(namespace); err != nil {
		return nil, fmt.Errorf("taproot: analyze %q: %w", namespace, err)
	}

	result := &NamespaceResult{Namespace: namespace, Project: ns.Project()}
	if len(matches) == 0 {
		result.Duration = time.Since(start)
		return result, nil
	}

	if o.serial || o.workers == 1 {
		o.analyzeSerial(ctx, ns, matches, result)
	} else {
		o.analyzeParallel(ctx, ns, matches, result)
	}

	if !result.Cancelled {
		if err := o.runScenarioScripts(ctx, ns, matches, result); err != nil {
			return nil, err
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (o *Orchestrator) analyzeSerial(ctx context.Context, ns Namespace, matches []fileMatch, result *NamespaceResult) {
	for _, m := range matches {
		if ctx.Err() != nil {
			result.Cancelled = true
			return
		}
		o.analyzeOne(ctx, ns, m, result)
	}
}

// analyzeOne runs the whole per-file pipeline serially: prepare,
// analyze, commit. Failures are recorded and the caller moves on.
func (o *Orchestrator) analyzeOne(ctx context.Context, ns Namespace, m fileMatch, result *NamespaceResult) {
	item, skip, err := o.prepareFile(ns, m)
	if err != nil {
		result.FilesFailed++
		result.Diagnostics = append(result.Diagnostics, ioDiagnostic(m.rel, err))
		return
	}
	if skip {
		result.FilesSkipped++
		if err := o.rebindFile(ns, m); err != nil {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				Severity: SeverityWarning, Code: "rebind-failed",
				Message: err.Error(), File: m.rel,
			})
		}
		return
	}

	batch, diags, err := o.analyzeItem(ctx, item)
	result.Diagnostics = append(result.Diagnostics, diags...)
	if err != nil {
		result.FilesFailed++
		result.Diagnostics = append(result.Diagnostics, analysisDiagnostic(m.rel, err))
		return
	}

	o.commitItem(batch, m.rel, result)
}

func (o *Orchestrator) commitItem(batch *store.Batch, rel string, result *NamespaceResult) {
	skipped, err := o.store.CommitBatch(batch)
	if err != nil {
		result.FilesFailed++
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			Severity: SeverityError, Code: "store-commit",
			Message: err.Error(), File: rel,
		})
		return
	}
	result.FilesAnalyzed++
	result.EdgesSkipped += len(skipped)
	for _, e := range skipped {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			Severity: SeverityWarning, Code: "unknown-endpoint",
			Message: fmt.Sprintf("edge %s -[%s]-> %s references an unknown node", e.FromNode, e.Type, e.ToNode),
			File:    rel,
		})
	}
}

// workItem carries a prepared file through analysis to commit.
type workItem struct {
	match       fileMatch
	ns          Namespace
	language    lang.Language
	source      []byte
	contentHash string
}

// prepareFile reads the source, detects the language, and decides
// whether the file can be skipped (unchanged content hash).
func (o *Orchestrator) prepareFile(ns Namespace, m fileMatch) (workItem, bool, error) {
	l, ok := lang.ForFile(m.rel)
	if !ok {
		return workItem{}, true, nil // unsupported extension
	}

	abs := filepath.Join(o.config.BaseDir, filepath.FromSlash(m.rel))
	source, err := os.ReadFile(abs)
	if err != nil {
		return workItem{}, false, fmt.Errorf("read file: %w", err)
	}
	hash := fmt.Sprintf("%x", sha256.Sum256(source))

	if !o.force {
		fileID := ident.Build(ns.Project(), m.rel, ident.KindFile, "")
		existing, err := o.store.NodeByIdentifier(fileID)
		if err != nil {
			return workItem{}, false, fmt.Errorf("lookup file node: %w", err)
		}
		if existing != nil && existing.Metadata["content_hash"] == hash {
			return workItem{}, true, nil // unchanged
		}
	}

	return workItem{match: m, ns: ns, language: l, source: source, contentHash: hash}, false, nil
}

// analyzeItem runs coordinated analysis and translates the records to a
// batch. The per-file timeout applies here.
func (o *Orchestrator) analyzeItem(ctx context.Context, item workItem) (*store.Batch, []Diagnostic, error) {
	if o.fileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.fileTimeout)
		defer cancel()
	}

	keys := scenarioKeys(item.ns.Scenarios, item.language)
	analysis, err := o.coordinator.Analyze(ctx, item.language, item.match.rel, item.source, keys)
	if err != nil {
		return nil, nil, err
	}

	batch := buildBatch(analysis, item.ns, item.match.rel, item.match.includedBy, item.contentHash, o.dualNode, o.resolveProjectFile)
	return batch, analysis.Diagnostics, nil
}

// importExtensions are probed, in order, for extensionless relative
// imports.
var importExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".py", ".go", ".md"}

// resolveProjectFile maps a cleaned relative-import path to an existing
// file under the config base directory: the path itself, the path plus
// a known extension, or an index file in a directory of that name.
// Unresolvable paths come back unchanged.
func (o *Orchestrator) resolveProjectFile(rel string) string {
	try := func(candidate string) bool {
		info, err := os.Stat(filepath.Join(o.config.BaseDir, filepath.FromSlash(candidate)))
		return err == nil && !info.IsDir()
	}
	if try(rel) {
		return rel
	}
	for _, ext := range importExtensions {
		if try(rel + ext) {
			return rel + ext
		}
	}
	for _, ext := range []string{".ts", ".tsx", ".js", ".jsx"} {
		if try(rel + "/index" + ext) {
			return rel + "/index" + ext
		}
	}
	return rel
}

// rebindFile restores namespace bindings for a skipped (unchanged)
// file: the file node, every node declared in it, and the direct
// targets of its outgoing edges.
func (o *Orchestrator) rebindFile(ns Namespace, m fileMatch) error {
	nodes, err := o.store.FindNodes(store.NodeFilter{SourceFile: m.rel})
	if err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, n := range nodes {
		seen[n.Identifier] = true
		if err := o.store.BindNamespace(ns.Name, n.Identifier, m.includedBy); err != nil {
			return err
		}
	}
	edges, err := o.store.FindEdges(store.EdgeFilter{SourceFile: m.rel})
	if err != nil {
		return err
	}
	for _, e := range edges {
		if seen[e.ToNode] {
			continue
		}
		seen[e.ToNode] = true
		if err := o.store.BindNamespace(ns.Name, e.ToNode, m.includedBy); err != nil {
			return err
		}
	}
	return nil
}

// RunResult aggregates an AnalyzeAll pass.
type RunResult struct {
	Namespaces  []*NamespaceResult
	Diagnostics []Diagnostic
	Cancelled   bool
}

// AnalyzeAll analyzes every configured namespace in declaration order,
// then resolves alias nodes across the whole store.
func (o *Orchestrator) AnalyzeAll(ctx context.Context) (*RunResult, error) {
	run := &RunResult{}
	for _, ns := range o.config.Namespaces {
		if ctx.Err() != nil {
			run.Cancelled = true
			return run, nil
		}
		res, err := o.AnalyzeNamespace(ctx, ns.Name)
		if err != nil {
			return nil, err
		}
		run.Namespaces = append(run.Namespaces, res)
		run.Diagnostics = append(run.Diagnostics, res.Diagnostics...)
		if res.Cancelled {
			run.Cancelled = true
			return run, nil
		}
	}
	if err := o.ResolveAliases(ctx); err != nil {
		return nil, err
	}
	return run, nil
}

// ResolveAliases links unresolved alias nodes to their canonical
// targets. An alias resolves when exactly one node store-wide shares
// its name and expected kind; the link is an aliasOf edge, so the
// ambiguity stays explicit in the data model.
func (o *Orchestrator) ResolveAliases(ctx context.Context) error {
	aliases, err := o.store.FindNodes(store.NodeFilter{
		Kinds: []string{ident.KindUnknown},
		Tag:   "unresolved",
	})
	if err != nil {
		return fmt.Errorf("taproot: resolve aliases: %w", err)
	}

	for _, alias := range aliases {
		if err := ctx.Err(); err != nil {
			return err
		}
		wantKind := alias.Metadata["expected_kind"]
		if wantKind == "" {
			continue
		}
		candidates, err := o.store.FindNodes(store.NodeFilter{Kinds: []string{wantKind}})
		if err != nil {
			return fmt.Errorf("taproot: resolve aliases: %w", err)
		}
		var hits []*store.Node
		for _, c := range candidates {
			if c.Name == alias.Name {
				hits = append(hits, c)
			}
		}
		if len(hits) != 1 {
			continue // unresolved or ambiguous; leave the alias as-is
		}
		err = o.store.UpsertEdge(&store.Edge{
			FromNode: alias.Identifier,
			ToNode:   hits[0].Identifier,
			Type:     "aliasOf",
		})
		if err != nil {
			return fmt.Errorf("taproot: resolve aliases: %w", err)
		}
	}
	return nil
}

// CrossNamespaceEdges lists edges whose endpoints sit in different
// namespaces.
func (o *Orchestrator) CrossNamespaceEdges() ([]*store.CrossNamespaceEdge, error) {
	return o.store.CrossNamespaceEdges()
}

// runScenarioScripts executes each script-backed scenario the namespace
// names, after builtin analysis has committed.
func (o *Orchestrator) runScenarioScripts(ctx context.Context, ns Namespace, matches []fileMatch, result *NamespaceResult) error {
	for _, scenario := range ns.Scenarios {
		if builtinScenarios[scenario] {
			continue
		}
		rt := taprootrt.NewRuntime(o.store, o.scriptsDir, o.runtimeOptions()...)
		files := make([]map[string]any, len(matches))
		for i, m := range matches {
			l, _ := lang.ForFile(m.rel)
			files[i] = map[string]any{
				"path":     filepath.Join(o.config.BaseDir, filepath.FromSlash(m.rel)),
				"rel":      m.rel,
				"language": string(l),
			}
		}
		extras := map[string]any{
			"namespace": ns.Name,
			"project":   ns.Project(),
			"files":     files,
		}
		if err := rt.RunScript(ctx, taprootrt.ScenarioScriptPath(scenario), extras); err != nil {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				Severity: SeverityError, Code: "scenario-script",
				Message: err.Error(),
			})
		}
	}
	return nil
}

func (o *Orchestrator) runtimeOptions() []taprootrt.RuntimeOption {
	var opts []taprootrt.RuntimeOption
	if o.scriptsFS != nil {
		opts = append(opts, taprootrt.WithRuntimeFS(o.scriptsFS))
	}
	return opts
}

// validateScenarios checks every scenario label up front: builtin
// labels pass, labels naming a loadable script pass, anything else is a
// ConfigurationError.
func (o *Orchestrator) validateScenarios() error {
	if o.config == nil {
		return nil
	}
	for _, ns := range o.config.Namespaces {
		for _, scenario := range ns.Scenarios {
			if builtinScenarios[scenario] {
				continue
			}
			rt := taprootrt.NewRuntime(o.store, o.scriptsDir, o.runtimeOptions()...)
			if _, err := rt.LoadScript(taprootrt.ScenarioScriptPath(scenario)); err != nil {
				return fmt.Errorf("%w: namespace %q: unknown scenario %q", ErrConfiguration, ns.Name, scenario)
			}
		}
	}
	return nil
}

func ioDiagnostic(file string, err error) Diagnostic {
	return Diagnostic{Severity: SeverityError, Code: "io", Message: err.Error(), File: file}
}

func analysisDiagnostic(file string, err error) Diagnostic {
	code := "analysis"
	if errors.Is(err, context.DeadlineExceeded) {
		code = "timeout"
	}
	return Diagnostic{Severity: SeverityError, Code: code, Message: err.Error(), File: file}
}
