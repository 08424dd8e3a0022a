// Package npc provides actor templates loaded from YAML and the spawner that
// turns them into live world actors.
package npc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/crawl/internal/game/dice"
	"github.com/cory-johannsen/crawl/internal/game/world"
)

// ManaSpec is the mana pool of a template.
type ManaSpec struct {
	Max   int `yaml:"max"`
	Regen int `yaml:"regen"`
}

// AllySpec makes actors of a template ally-controlled.
type AllySpec struct {
	Archetype      world.AllyArchetype `yaml:"archetype"`
	AttackRange    int                 `yaml:"attack_range"`
	AttackCooldown int                 `yaml:"attack_cooldown"`
}

// Template defines a reusable actor archetype loaded from YAML.
type Template struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	// Behavior is the behavior definition id; empty falls back to Category.
	Behavior string        `yaml:"behavior"`
	Faction  world.Faction `yaml:"faction"`
	MaxHP    int           `yaml:"max_hp"`
	// HPDice, when set, is rolled for each spawned actor instead of using MaxHP.
	HPDice    string          `yaml:"hp_dice"`
	Regen     int             `yaml:"regen"`
	Immortal  bool            `yaml:"immortal"`
	Speed     int             `yaml:"speed"`
	Stats     world.Stats     `yaml:"stats"`
	Mana      ManaSpec        `yaml:"mana"`
	Spells    []string        `yaml:"spells"`
	Abilities []world.Ability `yaml:"abilities"`
	Ally      *AllySpec       `yaml:"ally"`
}

// Validate checks that the template satisfies basic invariants.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil iff ID and Name are non-empty, hit points come
// from either MaxHP >= 1 or a parseable HPDice, Speed and mana are
// non-negative, and Faction and the ally archetype are known; returns an error
// on the first violation otherwise.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("npc template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("npc template %q: name must not be empty", t.ID)
	}
	if t.HPDice != "" {
		if _, err := dice.Parse(t.HPDice); err != nil {
			return fmt.Errorf("npc template %q: hp_dice %q: %w", t.ID, t.HPDice, err)
		}
	} else if t.MaxHP < 1 {
		return fmt.Errorf("npc template %q: max_hp must be >= 1", t.ID)
	}
	if t.Speed < 0 {
		return fmt.Errorf("npc template %q: speed must be >= 0", t.ID)
	}
	if t.Mana.Max < 0 || t.Mana.Regen < 0 {
		return fmt.Errorf("npc template %q: mana must not be negative", t.ID)
	}
	switch t.Faction {
	case world.FactionNone, world.FactionHostile, world.FactionAlly, world.FactionNeutral:
	default:
		return fmt.Errorf("npc template %q: unknown faction %q", t.ID, t.Faction)
	}
	if t.Ally != nil {
		switch t.Ally.Archetype {
		case world.ArchetypeStationary, world.ArchetypeFollower:
		default:
			return fmt.Errorf("npc template %q: unknown ally archetype %q", t.ID, t.Ally.Archetype)
		}
	}
	for _, ab := range t.Abilities {
		if ab.ID == "" {
			return fmt.Errorf("npc template %q: ability id must not be empty", t.ID)
		}
	}
	return nil
}

// ParseTemplates decodes a YAML document with a top-level "npcs" list.
//
// Postcondition: every returned template has passed Validate.
func ParseTemplates(data []byte) ([]*Template, error) {
	var doc struct {
		NPCs []*Template `yaml:"npcs"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing template YAML: %w", err)
	}
	for _, tmpl := range doc.NPCs {
		if err := tmpl.Validate(); err != nil {
			return nil, err
		}
	}
	return doc.NPCs, nil
}

// LoadTemplates reads all *.yaml and *.yml files in dir and returns the parsed templates.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse or validate
// failure; on error, the partial result is discarded.
func LoadTemplates(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading npc dir %q: %w", dir, err)
	}

	var templates []*Template
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}

		tmpls, err := ParseTemplates(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		templates = append(templates, tmpls...)
	}
	return templates, nil
}

// HealthDescription returns a visible health state string for h.
//
// Postcondition: Returns a non-empty string.
func HealthDescription(h *world.Health) string {
	if h == nil || h.IsDead() {
		return "dead"
	}
	pct := h.Percent() / 100
	switch {
	case pct >= 1.0:
		return "unharmed"
	case pct >= 0.85:
		return "barely scratched"
	case pct >= 0.60:
		return "lightly wounded"
	case pct >= 0.40:
		return "moderately wounded"
	case pct >= 0.20:
		return "heavily wounded"
	default:
		return "critically wounded"
	}
}
