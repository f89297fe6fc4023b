package taproot

import (
	"context"
	"sync"

	"github.com/jward/taproot/internal/store"
)

// analyzeParallel analyzes a namespace's files with a three-phase
// pipeline:
//
//	Phase A (serial):   read sources, hash check, skip unchanged.
//	Phase B (parallel): parse, query, process, build batches.
//	Phase C (serial):   commit batches — the single-writer section.
//
// Each file's batch commits atomically; commit order across files is
// unspecified. Cancellation is observed at file boundaries.
func (o *Orchestrator) analyzeParallel(ctx context.Context, ns Namespace, matches []fileMatch, result *NamespaceResult) {
	// ---- Phase A: serial preparation ----
	var items []workItem
	for _, m := range matches {
		if ctx.Err() != nil {
			result.Cancelled = true
			return
		}
		item, skip, err := o.prepareFile(ns, m)
		if err != nil {
			result.FilesFailed++
			result.Diagnostics = append(result.Diagnostics, ioDiagnostic(m.rel, err))
			continue
		}
		if skip {
			result.FilesSkipped++
			if err := o.rebindFile(ns, m); err != nil {
				result.Diagnostics = append(result.Diagnostics, Diagnostic{
					Severity: SeverityWarning, Code: "rebind-failed",
					Message: err.Error(), File: m.rel,
				})
			}
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return
	}

	// ---- Phase B: parallel analysis ----
	workers := min(o.workers, len(items))
	workCh := make(chan workItem, len(items))
	for _, item := range items {
		workCh <- item
	}
	close(workCh)

	type analyzed struct {
		item  workItem
		batch *store.Batch
		diags []Diagnostic
		err   error
	}
	resultCh := make(chan analyzed, len(items))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workCh {
				if ctx.Err() != nil {
					resultCh <- analyzed{item: item, err: ctx.Err()}
					continue
				}
				batch, diags, err := o.analyzeItem(ctx, item)
				resultCh <- analyzed{item: item, batch: batch, diags: diags, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// ---- Phase C: serial commit ----
	for res := range resultCh {
		result.Diagnostics = append(result.Diagnostics, res.diags...)
		if res.err != nil {
			if ctx.Err() != nil {
				result.Cancelled = true
				continue // drain; already-committed files stay committed
			}
			result.FilesFailed++
			result.Diagnostics = append(result.Diagnostics, analysisDiagnostic(res.item.match.rel, res.err))
			continue
		}
		o.commitItem(res.batch, res.item.match.rel, result)
	}
}
