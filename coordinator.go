package taproot

import (
	"context"
	"fmt"
	"time"

	"github.com/jward/taproot/internal/lang"
	"github.com/jward/taproot/internal/query"
)

// Coordinator analyzes a single file: parse, select the library queries
// for the language, execute, process, and return the bundle. It never
// writes to the store — that is the orchestrator's job.
type Coordinator struct {
	host *lang.Host
	exec *query.Executor
}

// NewCoordinator creates a Coordinator with a fresh compile cache.
func NewCoordinator() *Coordinator {
	return &Coordinator{host: lang.NewHost(), exec: query.NewExecutor()}
}

// ParseMetrics reports what the grammar produced for one file.
type ParseMetrics struct {
	NodeCount      int
	ErrorNodeCount int
	Duration       time.Duration
}

// ProcessorMetrics reports one query key's processing outcome.
type ProcessorMetrics struct {
	MatchCount   int
	RecordCount  int
	WarningCount int
}

// FileAnalysis is the per-file result bundle.
type FileAnalysis struct {
	Path     string
	Language lang.Language

	// Records grouped by query key.
	Records map[string][]query.Record

	Parse       ParseMetrics
	Processors  map[string]ProcessorMetrics
	Diagnostics []Diagnostic
}

// RecordCount sums records across all query keys.
func (a *FileAnalysis) RecordCount() int {
	n := 0
	for _, rs := range a.Records {
		n += len(rs)
	}
	return n
}

// AnalyzeMapped analyzes a file and routes results through a KeyMapper:
// only the listed user keys run, honoring per-key enable flags, and
// records come back grouped by user key.
func (c *Coordinator) AnalyzeMapped(ctx context.Context, l lang.Language, path string, source []byte, mapper *query.KeyMapper, userKeys []string, enabled map[string]bool) (map[string][]query.Record, []Diagnostic, error) {
	// Execute every mapped query first; the mapper then processes the
	// enabled subset.
	var queryKeys []string
	for _, uk := range userKeys {
		qk, ok := mapper.QueryKeyFor(uk)
		if !ok {
			return nil, nil, fmt.Errorf("coordinator: %s: unmapped user key %q", path, uk)
		}
		queryKeys = append(queryKeys, qk)
	}

	parsed, err := c.host.Parse(ctx, l, source)
	if err != nil {
		return nil, nil, fmt.Errorf("coordinator: %s: %w", path, err)
	}
	defer parsed.Close()

	matchesByKey := make(map[string][]query.Match, len(queryKeys))
	for _, qk := range queryKeys {
		matches, err := c.exec.Execute(l, qk, parsed)
		if err != nil {
			return nil, nil, fmt.Errorf("coordinator: %s: %w", path, err)
		}
		matchesByKey[qk] = matches
	}

	pctx := query.Context{FilePath: path, Language: l}
	records, warnings, err := mapper.ExecuteConditional(userKeys, enabled, matchesByKey, pctx)
	if err != nil {
		return nil, nil, fmt.Errorf("coordinator: %s: %w", path, err)
	}

	var diags []Diagnostic
	for _, w := range warnings {
		d := Diagnostic{Severity: SeverityWarning, Code: w.Code, Message: w.Message, File: path}
		if w.Location != nil {
			d.Line = w.Location.StartLine
			d.Col = w.Location.StartCol
		}
		diags = append(diags, d)
	}
	return records, diags, nil
}

// Analyze runs the full per-file pipeline. keys selects a subset of the
// library; nil means every key registered for the language. Syntax
// errors are recoverable: analysis proceeds on the partial tree and a
// parse diagnostic is attached.
func (c *Coordinator) Analyze(ctx context.Context, l lang.Language, path string, source []byte, keys []string) (*FileAnalysis, error) {
	parseStart := time.Now()
	parsed, err := c.host.Parse(ctx, l, source)
	if err != nil {
		return nil, fmt.Errorf("coordinator: %s: %w", path, err)
	}
	defer parsed.Close()

	analysis := &FileAnalysis{
		Path:     path,
		Language: l,
		Records:  make(map[string][]query.Record),
		Parse: ParseMetrics{
			NodeCount:      parsed.NodeCount,
			ErrorNodeCount: parsed.ErrorNodeCount,
			Duration:       time.Since(parseStart),
		},
		Processors: make(map[string]ProcessorMetrics),
	}

	if parsed.ErrorNodeCount > 0 {
		analysis.Diagnostics = append(analysis.Diagnostics, Diagnostic{
			Severity: SeverityWarning,
			Code:     "parse-errors",
			Message:  fmt.Sprintf("%d error node(s) in parse tree", parsed.ErrorNodeCount),
			File:     path,
		})
	}

	if keys == nil {
		keys = query.KeysForLanguage(l)
	}
	pctx := query.Context{FilePath: path, Language: l}

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return analysis, err
		}

		matches, err := c.exec.Execute(l, key, parsed)
		if err != nil {
			return nil, fmt.Errorf("coordinator: %s: %w", path, err)
		}
		records, warnings, err := query.Process(key, matches, pctx)
		if err != nil {
			return nil, fmt.Errorf("coordinator: %s: %w", path, err)
		}

		if len(records) > 0 {
			analysis.Records[key] = records
		}
		analysis.Processors[key] = ProcessorMetrics{
			MatchCount:   len(matches),
			RecordCount:  len(records),
			WarningCount: len(warnings),
		}
		for _, w := range warnings {
			d := Diagnostic{
				Severity: SeverityWarning,
				Code:     w.Code,
				Message:  w.Message,
				File:     path,
			}
			if w.Location != nil {
				d.Line = w.Location.StartLine
				d.Col = w.Location.StartCol
			}
			analysis.Diagnostics = append(analysis.Diagnostics, d)
		}
	}

	return analysis, nil
}
