package query

// Record is a typed result produced by a processor. Concrete record
// types below are what the orchestrator translates into graph writes.
type Record interface {
	Loc() Location
}

// ImportSource is one import/require/from target in a source file.
type ImportSource struct {
	Source     string
	IsRelative bool
	Location   Location
}

func (r ImportSource) Loc() Location { return r.Location }

// SymbolDeclaration is a named declaration (class, interface, function,
// method, enum, type, variable, package). Kind uses the node-kind
// vocabulary from the identifier scheme.
type SymbolDeclaration struct {
	Name     string
	Kind     string
	Location Location
}

func (r SymbolDeclaration) Loc() Location { return r.Location }

// RelationTarget is the target of an extends/implements clause.
type RelationTarget struct {
	Target   string
	Relation string // "extends" or "implements"
	Location Location
}

func (r RelationTarget) Loc() Location { return r.Location }

// CallReference is a direct call to a named function.
type CallReference struct {
	Callee   string
	Location Location
}

func (r CallReference) Loc() Location { return r.Location }

// ExportDeclaration is one export statement; Text holds the first line
// of the statement, whitespace-trimmed.
type ExportDeclaration struct {
	Text     string
	Location Location
}

func (r ExportDeclaration) Loc() Location { return r.Location }

// MarkdownHeading is one ATX heading with its level.
type MarkdownHeading struct {
	Level    int
	Text     string
	Location Location
}

func (r MarkdownHeading) Loc() Location { return r.Location }

// CodeFence is one fenced code block with its info-string language.
type CodeFence struct {
	Language string
	Location Location
}

func (r CodeFence) Loc() Location { return r.Location }

// LinkTarget is a reference-style markdown link destination.
type LinkTarget struct {
	URL      string
	Location Location
}

func (r LinkTarget) Loc() Location { return r.Location }
