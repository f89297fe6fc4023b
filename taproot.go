// Package taproot analyzes source-code dependencies across languages.
// Files are parsed with tree-sitter, per-language queries extract
// imports, declarations, and references, and the results are stored as
// a typed node/edge graph in embedded SQLite. The inference engine
// answers hierarchical, transitive, and inheritable queries over the
// stored graph.
package taproot
