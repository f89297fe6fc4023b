package edgetype

// Builtin returns the builtin edge-type catalogue in registration order
// (parents before children).
func Builtin() []Record {
	return []Record{
		// Structural
		{Name: "contains", IsDirected: true, IsTransitive: true, IsInheritable: true,
			Description: "containment between a scope and its members"},
		{Name: "declares", IsDirected: true, IsInheritable: true,
			Description: "a scope declares a symbol"},
		{Name: "belongs_to", IsDirected: true,
			Description: "membership in a grouping construct"},

		// Dependency
		{Name: "depends_on", IsDirected: true, IsTransitive: true,
			Description: "general dependency"},
		{Name: "imports", IsDirected: true,
			Description: "an import statement, any target"},
		{Name: "imports_file", Parent: "imports", IsDirected: true,
			Description: "import of a project-relative file"},
		{Name: "imports_package", Parent: "imports", IsDirected: true,
			Description: "import of a package within the project"},
		{Name: "imports_library", Parent: "imports", IsDirected: true,
			Description: "import of an external library"},
		{Name: "exports_to", IsDirected: true,
			Description: "re-export of a symbol to another module"},

		// Code
		{Name: "calls", IsDirected: true,
			Description: "caller invokes callee"},
		{Name: "references", IsDirected: true,
			Description: "identifier reference"},
		{Name: "extends", IsDirected: true, IsInheritable: true,
			Description: "subtype extends supertype"},
		{Name: "implements", IsDirected: true, IsInheritable: true,
			Description: "type implements interface"},
		{Name: "uses", IsDirected: true,
			Description: "general usage relation"},
		{Name: "instantiates", IsDirected: true,
			Description: "constructor or literal instantiation"},

		// Typing
		{Name: "has_type", IsDirected: true,
			Description: "value has declared type"},
		{Name: "returns", IsDirected: true,
			Description: "function return type"},
		{Name: "throws", IsDirected: true,
			Description: "function may raise type"},

		// Access
		{Name: "assigns_to", IsDirected: true,
			Description: "assignment target"},
		{Name: "accesses", IsDirected: true,
			Description: "member or property access"},

		// Pattern support
		{Name: "aliasOf", IsDirected: true,
			Description: "unresolved alias node linked to its canonical target"},
	}
}
