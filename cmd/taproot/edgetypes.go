package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var edgeTypesCmd = &cobra.Command{
	Use:   "edge-types",
	Short: "List the registered edge types and their properties",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer orch.Close()

		recs := orch.Registry().All()
		return output(recs, func() []string {
			lines := make([]string, len(recs))
			for i, r := range recs {
				flags := ""
				if r.IsTransitive {
					flags += " transitive"
				}
				if r.IsInheritable {
					flags += " inheritable"
				}
				parent := ""
				if r.Parent != "" {
					parent = " < " + r.Parent
				}
				lines[i] = fmt.Sprintf("%s%s%s — %s", r.Name, parent, flags, r.Description)
			}
			return lines
		})
	},
}
