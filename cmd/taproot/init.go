package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const sampleConfig = `# taproot namespace configuration
default: src

namespaces:
  src:
    filePatterns:
      - "src/**/*.ts"
      - "src/**/*.tsx"
    excludePatterns:
      - "**/*.test.ts"
    projectName: myproj
    description: Application sources
    semanticTags: [app]
    scenarios: []

  docs:
    filePatterns:
      - "docs/**/*.md"
    scenarios: [markdown-linking]
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter namespace configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(flagConfig); err == nil {
			return fmt.Errorf("%s already exists", flagConfig)
		}
		if err := os.WriteFile(flagConfig, []byte(sampleConfig), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", flagConfig, err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", flagConfig)
		return nil
	},
}
