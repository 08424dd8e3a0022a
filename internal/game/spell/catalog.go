// Package spell resolves spellcasting for every caster: mana, targeting,
// area and bolt damage, and delegation to scripted cast routines.
package spell

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/crawl/internal/game/world"
)

// Catalog holds the shared spell definitions loaded from data.
//
// Invariant: each spell id is stored at most once.
type Catalog struct {
	spells map[string]world.Spell
	order  []string
}

// NewCatalog returns a catalog of spells.
//
// Postcondition: returns an error on an empty or duplicate id.
func NewCatalog(spells ...world.Spell) (*Catalog, error) {
	c := &Catalog{spells: make(map[string]world.Spell)}
	for _, s := range spells {
		if err := c.add(s); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) add(s world.Spell) error {
	if s.ID == "" {
		return fmt.Errorf("spell.Catalog: spell id must not be empty")
	}
	if _, dup := c.spells[s.ID]; dup {
		return fmt.Errorf("spell.Catalog: duplicate spell id %q", s.ID)
	}
	if s.TargetType == "" {
		s.TargetType = world.TargetEntity
	}
	switch s.TargetType {
	case world.TargetSelf, world.TargetEntity, world.TargetLocation:
	default:
		return fmt.Errorf("spell.Catalog: spell %q has unknown target_type %q", s.ID, s.TargetType)
	}
	if s.ManaCost < 0 {
		return fmt.Errorf("spell.Catalog: spell %q has negative mana_cost", s.ID)
	}
	c.spells[s.ID] = s.Clone()
	c.order = append(c.order, s.ID)
	return nil
}

// Get returns a copy of the spell with the given id.
func (c *Catalog) Get(id string) (world.Spell, bool) {
	s, ok := c.spells[id]
	if !ok {
		return world.Spell{}, false
	}
	return s.Clone(), true
}

// Has reports whether the catalog defines id.
func (c *Catalog) Has(id string) bool {
	_, ok := c.spells[id]
	return ok
}

// IDs returns every spell id in load order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.order...)
}

// LoadCatalog reads every *.yaml file in dir; each holds a top-level "spells" list.
//
// Precondition: dir must be a readable directory.
// Postcondition: returns an error on the first unreadable, malformed or duplicate entry.
func LoadCatalog(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("spell.LoadCatalog: reading %q: %w", dir, err)
	}
	c := &Catalog{spells: make(map[string]world.Spell)}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("spell.LoadCatalog: reading %s: %w", e.Name(), err)
		}
		var doc struct {
			Spells []world.Spell `yaml:"spells"`
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("spell.LoadCatalog: parsing %s: %w", e.Name(), err)
		}
		for _, s := range doc.Spells {
			if err := c.add(s); err != nil {
				return nil, fmt.Errorf("spell.LoadCatalog: %s: %w", e.Name(), err)
			}
		}
	}
	return c, nil
}
