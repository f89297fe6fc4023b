package taproot

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Namespace is one named subset of the project's files.
type Namespace struct {
	Name            string   `yaml:"-"`
	FilePatterns    []string `yaml:"filePatterns"`
	ExcludePatterns []string `yaml:"excludePatterns,omitempty"`
	ProjectName     string   `yaml:"projectName,omitempty"`
	Description     string   `yaml:"description,omitempty"`
	SemanticTags    []string `yaml:"semanticTags,omitempty"`
	Scenarios       []string `yaml:"scenarios,omitempty"`
}

// Project returns the project component used in node identifiers:
// projectName when set, otherwise the namespace name.
func (n Namespace) Project() string {
	if n.ProjectName != "" {
		return n.ProjectName
	}
	return n.Name
}

// NamespaceConfig is the parsed namespace file. Namespaces keep their
// declaration order; unknown keys in the document are preserved on
// re-save by retaining the decoded yaml document.
type NamespaceConfig struct {
	Default    string
	Namespaces []Namespace

	// BaseDir anchors relative glob patterns: the directory of the
	// config file, or the working directory for in-memory configs.
	BaseDir string

	doc *yaml.Node
}

// LoadNamespaceConfig reads and parses a namespace file. Glob patterns
// resolve relative to the file's directory.
func LoadNamespaceConfig(path string) (*NamespaceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := ParseNamespaceConfig(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.BaseDir = abs
	return cfg, nil
}

// ParseNamespaceConfig parses namespace YAML. The document shape is a
// top-level "default" plus a "namespaces" mapping; namespace order
// follows the document.
func ParseNamespaceConfig(data []byte) (*NamespaceConfig, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	cfg := &NamespaceConfig{doc: &doc}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return cfg, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse: top level must be a mapping")
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		switch key.Value {
		case "default":
			cfg.Default = value.Value
		case "namespaces":
			if value.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("parse: namespaces must be a mapping")
			}
			for j := 0; j+1 < len(value.Content); j += 2 {
				nameNode, record := value.Content[j], value.Content[j+1]
				var ns Namespace
				if err := record.Decode(&ns); err != nil {
					return nil, fmt.Errorf("parse: namespace %q: %w", nameNode.Value, err)
				}
				ns.Name = nameNode.Value
				if len(ns.FilePatterns) == 0 {
					return nil, fmt.Errorf("parse: namespace %q: filePatterns is required", ns.Name)
				}
				cfg.Namespaces = append(cfg.Namespaces, ns)
			}
		}
		// Unknown top-level keys are tolerated and survive in doc.
	}

	if cfg.Default != "" {
		if _, ok := cfg.Namespace(cfg.Default); !ok {
			return nil, fmt.Errorf("parse: default namespace %q is not declared", cfg.Default)
		}
	}
	return cfg, nil
}

// Namespace looks a namespace up by name.
func (c *NamespaceConfig) Namespace(name string) (Namespace, bool) {
	for _, ns := range c.Namespaces {
		if ns.Name == name {
			return ns, true
		}
	}
	return Namespace{}, false
}

// DefaultNamespace returns the configured default, or the first
// declared namespace when no default is named.
func (c *NamespaceConfig) DefaultNamespace() (Namespace, bool) {
	if c.Default != "" {
		return c.Namespace(c.Default)
	}
	if len(c.Namespaces) > 0 {
		return c.Namespaces[0], true
	}
	return Namespace{}, false
}

// Save writes the config back to path. The retained document node is
// re-encoded, so keys this version does not understand round-trip
// unchanged.
func (c *NamespaceConfig) Save(path string) error {
	if c.doc == nil || len(c.doc.Content) == 0 {
		return fmt.Errorf("config: save: nothing to save")
	}
	data, err := yaml.Marshal(c.doc.Content[0])
	if err != nil {
		return fmt.Errorf("config: save: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: save %s: %w", path, err)
	}
	return nil
}
