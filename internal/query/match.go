// Package query holds the static per-language S-expression query
// library, the executor that runs library queries against parsed trees,
// and the processors that turn raw captures into typed records.
package query

// Point is a zero-based source position (tree-sitter convention).
type Point struct {
	Row    int
	Column int
}

// NodeRegion is the span and text of one captured node.
type NodeRegion struct {
	StartPoint Point
	EndPoint   Point
	Text       string
}

// Match is one normalized query match: the library key that produced it
// and its named captures.
type Match struct {
	QueryKey string
	Captures map[string]NodeRegion

	// startByte orders matches within a document; ties between matches
	// break on the smallest capture start offset.
	startByte uint32
}

// Location is a resolved source range attached to result records.
type Location struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// locationOf builds a Location from a captured region.
func locationOf(file string, r NodeRegion) Location {
	return Location{
		File:      file,
		StartLine: r.StartPoint.Row,
		StartCol:  r.StartPoint.Column,
		EndLine:   r.EndPoint.Row,
		EndCol:    r.EndPoint.Column,
	}
}
