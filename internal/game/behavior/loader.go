package behavior

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// IsSourceFile reports whether path has a behavior data extension.
func IsSourceFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}

// Parse decodes behavior definitions from YAML or JSON. data holds either a
// mapping with a top-level "behaviors" list or a bare list of definitions.
//
// Postcondition: every returned definition has passed Validate.
func Parse(data []byte) ([]*Definition, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("behavior.Parse: %w", err)
	}
	if root.Kind == 0 {
		return nil, nil
	}
	node := &root
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}

	var defs []*Definition
	switch node.Kind {
	case yaml.SequenceNode:
		if err := node.Decode(&defs); err != nil {
			return nil, fmt.Errorf("behavior.Parse: %w", err)
		}
	case yaml.MappingNode:
		var doc struct {
			Behaviors []*Definition `yaml:"behaviors"`
		}
		if err := node.Decode(&doc); err != nil {
			return nil, fmt.Errorf("behavior.Parse: %w", err)
		}
		if doc.Behaviors == nil {
			return nil, fmt.Errorf("behavior.Parse: missing top-level 'behaviors' key")
		}
		defs = doc.Behaviors
	default:
		return nil, fmt.Errorf("behavior.Parse: expected a list or a 'behaviors' mapping")
	}

	for i, d := range defs {
		if d == nil {
			return nil, fmt.Errorf("behavior.Parse: entry %d is empty", i)
		}
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}
	return defs, nil
}

// LoadDir reads every behavior file in dir in filename order.
//
// Precondition: dir must be a readable directory.
// Postcondition: returns all definitions in load order, or an error on the
// first unreadable file, parse failure or duplicate id.
func LoadDir(dir string) ([]*Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("behavior.LoadDir: reading %q: %w", dir, err)
	}
	seen := make(map[string]string)
	var all []*Definition
	for _, e := range entries {
		if e.IsDir() || !IsSourceFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("behavior.LoadDir: reading %s: %w", e.Name(), err)
		}
		defs, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("behavior.LoadDir: %s: %w", e.Name(), err)
		}
		for _, d := range defs {
			if prev, dup := seen[d.ID]; dup {
				return nil, fmt.Errorf("behavior.LoadDir: %s: duplicate behavior id %q (first defined in %s)", e.Name(), d.ID, prev)
			}
			seen[d.ID] = e.Name()
			all = append(all, d)
		}
	}
	return all, nil
}
