package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jward/taproot"
	"github.com/jward/taproot/scripts"
)

var (
	flagSerial      bool
	flagWorkers     int
	flagDualNode    bool
	flagForce       bool
	flagFileTimeout time.Duration
	flagScriptsDir  string
	flagStrict      bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [namespace]",
	Short: "Analyze configured namespaces into the graph store",
	Long:  "Resolves each namespace's file patterns, analyzes every matched file with tree-sitter queries, and writes nodes and edges to the graph database. With no argument, every namespace is analyzed in declaration order.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&flagSerial, "serial", false, "analyze files one at a time, committing in file-list order")
	analyzeCmd.Flags().IntVar(&flagWorkers, "workers", 0, "analysis worker count (default: CPU count, capped at 8)")
	analyzeCmd.Flags().BoolVar(&flagDualNode, "dual-node", true, "create placeholder nodes for unresolved imports")
	analyzeCmd.Flags().BoolVar(&flagForce, "force", false, "re-analyze files even when content is unchanged")
	analyzeCmd.Flags().DurationVar(&flagFileTimeout, "file-timeout", 0, "per-file analysis timeout (0 = unbounded)")
	analyzeCmd.Flags().StringVar(&flagScriptsDir, "scripts-dir", "", "load scenario scripts from disk path instead of embedded")
	analyzeCmd.Flags().BoolVar(&flagStrict, "strict", false, "treat diagnostics as failure")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := taproot.LoadNamespaceConfig(flagConfig)
	if err != nil {
		return err
	}

	dbPath := resolveDBPath(flagConfig)
	if err := ensureDBDir(dbPath); err != nil {
		return err
	}

	opts := []taproot.Option{
		taproot.WithSerial(flagSerial),
		taproot.WithWorkers(flagWorkers),
		taproot.WithDualNode(flagDualNode),
		taproot.WithForce(flagForce),
		taproot.WithFileTimeout(flagFileTimeout),
	}
	if flagScriptsDir != "" {
		opts = append(opts, taproot.WithScriptsDir(flagScriptsDir))
	} else {
		opts = append(opts, taproot.WithScriptsFS(scripts.FS))
	}

	orch, err := taproot.New(dbPath, cfg, opts...)
	if err != nil {
		return err
	}
	defer orch.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	var results []*taproot.NamespaceResult
	var diags []taproot.Diagnostic

	if len(args) == 1 {
		res, err := orch.AnalyzeNamespace(ctx, args[0])
		if err != nil {
			return err
		}
		if err := orch.ResolveAliases(ctx); err != nil {
			return err
		}
		results = append(results, res)
		diags = res.Diagnostics
	} else {
		bar := progressbar.NewOptions(len(cfg.Namespaces),
			progressbar.OptionSetDescription("analyzing"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionClearOnFinish(),
		)
		for _, ns := range cfg.Namespaces {
			res, err := orch.AnalyzeNamespace(ctx, ns.Name)
			if err != nil {
				return err
			}
			results = append(results, res)
			diags = append(diags, res.Diagnostics...)
			bar.Add(1)
			if res.Cancelled {
				break
			}
		}
		bar.Finish()
		if err := orch.ResolveAliases(ctx); err != nil {
			return err
		}
	}

	printSummary(orch, results, diags, time.Since(start))

	if flagStrict && len(diags) > 0 {
		return fmt.Errorf("analysis produced %d diagnostic(s)", len(diags))
	}
	return nil
}

func printSummary(orch *taproot.Orchestrator, results []*taproot.NamespaceResult, diags []taproot.Diagnostic, elapsed time.Duration) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	for _, res := range results {
		status := green("ok")
		if res.FilesFailed > 0 {
			status = red("failed")
		} else if res.Cancelled {
			status = yellow("cancelled")
		}
		fmt.Fprintf(os.Stderr, "%s %s: %d analyzed, %d skipped, %d failed (%s)\n",
			status, res.Namespace, res.FilesAnalyzed, res.FilesSkipped, res.FilesFailed,
			res.Duration.Round(time.Millisecond))
	}

	nodes, _ := orch.Store().CountNodes()
	edges, _ := orch.Store().CountEdges()
	fmt.Fprintf(os.Stderr, "Graph: %d nodes, %d edges in %s\n", nodes, edges, elapsed.Round(time.Millisecond))

	for _, d := range diags {
		if d.Severity == taproot.SeverityError {
			fmt.Fprintf(os.Stderr, "%s %s\n", red("diagnostic:"), d)
		} else {
			fmt.Fprintf(os.Stderr, "%s %s\n", yellow("diagnostic:"), d)
		}
	}
}
