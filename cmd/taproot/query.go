package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jward/taproot"
	"github.com/jward/taproot/internal/store"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the dependency graph",
}

func init() {
	queryCmd.AddCommand(queryNodesCmd)
	queryCmd.AddCommand(queryEdgesCmd)
	queryCmd.AddCommand(queryTransitiveCmd)
	queryCmd.AddCommand(queryInheritableCmd)
	queryCmd.AddCommand(queryCrossCmd)
	queryCmd.AddCommand(queryStatsCmd)

	queryNodesCmd.Flags().StringVar(&flagNodeKind, "kind", "", "filter by node kind")
	queryNodesCmd.Flags().StringVar(&flagNodeLang, "language", "", "filter by language")
	queryNodesCmd.Flags().StringVar(&flagNodeNS, "namespace", "", "filter by namespace")
	queryNodesCmd.Flags().StringVar(&flagNodeTag, "tag", "", "filter by semantic tag")
	queryNodesCmd.Flags().StringVar(&flagNodePattern, "pattern", "", "identifier pattern (* and ? wildcards)")

	queryEdgesCmd.Flags().StringVar(&flagEdgeType, "type", "", "edge type")
	queryEdgesCmd.Flags().BoolVar(&flagEdgeHier, "hierarchical", false, "include descendant edge types")
	queryEdgesCmd.Flags().StringVar(&flagEdgeFrom, "from", "", "filter by source node identifier")
	queryEdgesCmd.Flags().StringVar(&flagEdgeTo, "to", "", "filter by target node identifier")

	queryTransitiveCmd.Flags().IntVar(&flagMaxPath, "max-path-length", 10, "maximum traversal depth")
	queryTransitiveCmd.Flags().BoolVar(&flagMaterialize, "materialize", false, "write results back as derived edges")

	queryInheritableCmd.Flags().IntVar(&flagMaxDepth, "max-depth", 10, "maximum containment chain length")
	queryInheritableCmd.Flags().BoolVar(&flagMaterialize, "materialize", false, "write results back as derived edges")
}

var (
	flagNodeKind    string
	flagNodeLang    string
	flagNodeNS      string
	flagNodeTag     string
	flagNodePattern string
	flagEdgeType    string
	flagEdgeHier    bool
	flagEdgeFrom    string
	flagEdgeTo      string
	flagMaxPath     int
	flagMaxDepth    int
	flagMaterialize bool
)

// openOrchestrator opens the store read-side for query commands.
func openOrchestrator() (*taproot.Orchestrator, error) {
	cfg, err := taproot.LoadNamespaceConfig(flagConfig)
	if err != nil {
		return nil, err
	}
	return taproot.New(resolveDBPath(flagConfig), cfg)
}

var queryNodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List nodes matching filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer orch.Close()

		filter := store.NodeFilter{
			Language:          flagNodeLang,
			Namespace:         flagNodeNS,
			Tag:               flagNodeTag,
			IdentifierPattern: flagNodePattern,
		}
		if flagNodeKind != "" {
			filter.Kinds = []string{flagNodeKind}
		}
		nodes, err := orch.Store().FindNodes(filter)
		if err != nil {
			return err
		}
		return output(nodes, func() []string {
			lines := make([]string, len(nodes))
			for i, n := range nodes {
				lines[i] = fmt.Sprintf("%-10s %s", n.Kind, n.Identifier)
			}
			return lines
		})
	},
}

var queryEdgesCmd = &cobra.Command{
	Use:   "edges",
	Short: "List edges, optionally folding in descendant edge types",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer orch.Close()

		var edges []*store.Edge
		if flagEdgeHier && flagEdgeType != "" {
			edges, err = orch.Engine().QueryHierarchical(flagEdgeType, -1)
		} else {
			filter := store.EdgeFilter{FromNode: flagEdgeFrom, ToNode: flagEdgeTo}
			if flagEdgeType != "" {
				filter.Types = []string{flagEdgeType}
			}
			edges, err = orch.Store().FindEdges(filter)
		}
		if err != nil {
			return err
		}
		return output(edges, func() []string {
			lines := make([]string, len(edges))
			for i, e := range edges {
				lines[i] = fmt.Sprintf("%s -[%s]-> %s", e.FromNode, e.Type, e.ToNode)
			}
			return lines
		})
	},
}

var queryTransitiveCmd = &cobra.Command{
	Use:   "transitive <node> <edge-type>",
	Short: "Compute the transitive closure from a node",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer orch.Close()

		opts := taproot.DefaultTransitiveOptions()
		opts.MaxPathLength = flagMaxPath
		opts.Materialize = flagMaterialize
		result, err := orch.Engine().QueryTransitive(context.Background(), args[0], args[1], opts)
		if err != nil {
			return err
		}
		return output(result, func() []string {
			lines := make([]string, 0, len(result.Targets)+len(result.Cycles))
			for _, t := range result.Targets {
				lines = append(lines, fmt.Sprintf("d=%d %s", t.Depth, t.Identifier))
			}
			for _, c := range result.Cycles {
				lines = append(lines, fmt.Sprintf("cycle: %v", c))
			}
			return lines
		})
	},
}

var queryInheritableCmd = &cobra.Command{
	Use:   "inheritable <containment-type> <relation-type>",
	Short: "Propagate an inheritable relation across a containment hierarchy",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer orch.Close()

		opts := taproot.DefaultInheritableOptions()
		opts.MaxDepth = flagMaxDepth
		opts.Materialize = flagMaterialize
		derived, err := orch.Engine().QueryInheritable(context.Background(), args[0], args[1], opts)
		if err != nil {
			return err
		}
		return output(derived, func() []string {
			lines := make([]string, len(derived))
			for i, d := range derived {
				lines[i] = fmt.Sprintf("%s -[%s]-> %s (via %v)", d.FromNode, d.Type, d.ToNode, d.Via)
			}
			return lines
		})
	},
}

var queryCrossCmd = &cobra.Command{
	Use:   "cross-namespace",
	Short: "List edges whose endpoints sit in different namespaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer orch.Close()

		edges, err := orch.CrossNamespaceEdges()
		if err != nil {
			return err
		}
		return output(edges, func() []string {
			lines := make([]string, len(edges))
			for i, ce := range edges {
				lines[i] = fmt.Sprintf("[%s -> %s] %s -[%s]-> %s",
					ce.FromNamespace, ce.ToNamespace, ce.Edge.FromNode, ce.Edge.Type, ce.Edge.ToNode)
			}
			return lines
		})
	},
}

var queryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show graph counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer orch.Close()

		nodes, err := orch.Store().CountNodes()
		if err != nil {
			return err
		}
		edges, err := orch.Store().CountEdges()
		if err != nil {
			return err
		}
		byType, err := orch.Store().CountEdgesByType()
		if err != nil {
			return err
		}
		stats := map[string]any{"nodes": nodes, "edges": edges, "edgesByType": byType}
		return output(stats, func() []string {
			lines := []string{
				fmt.Sprintf("nodes: %d", nodes),
				fmt.Sprintf("edges: %d", edges),
			}
			for t, n := range byType {
				lines = append(lines, fmt.Sprintf("  %s: %d", t, n))
			}
			return lines
		})
	},
}
