package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	flagDB     string
	flagConfig string
	flagFormat string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "taproot",
	Short:         "Multi-language source-code dependency analysis",
	Long:          "Taproot parses source files with tree-sitter, extracts imports, declarations, and references, and stores them as a typed graph in SQLite for dependency queries.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	// No Run — prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .dependency-linker/graph.db next to the config)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "namespaces.yaml", "namespace configuration file")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(edgeTypesCmd)
}

// resolveDBPath returns the database path from --db or the default
// location next to the configuration file.
func resolveDBPath(configPath string) string {
	if flagDB != "" {
		return flagDB
	}
	return filepath.Join(filepath.Dir(configPath), ".dependency-linker", "graph.db")
}

// ensureDBDir creates the database directory if needed.
func ensureDBDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}
