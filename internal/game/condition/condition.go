// Package condition evaluates the named predicates behavior definitions use
// for state transitions and priority-action gating.
package condition

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/crawl/internal/game/world"
)

// Kinds understood by the Evaluator.
const (
	KindDistanceToTarget = "distanceToTarget"
	KindHP               = "hp"
	KindLastAction       = "lastAction"
	KindState            = "state"
	KindHasClearShot     = "hasClearShot"
	KindHasSpell         = "hasSpell"
	KindSpellCooldown    = "spellCooldown"
	KindExpr             = "expr"
)

// Condition is one predicate as authored in behavior data.
type Condition struct {
	// Action scopes a priority condition to one action ID; unused in transitions.
	Action string `yaml:"action,omitempty"`
	Type   string `yaml:"type"`
	Op     string `yaml:"op,omitempty"`
	Value  string `yaml:"value,omitempty"`
	Spell  string `yaml:"spell,omitempty"`
	Expr   string `yaml:"expr,omitempty"`
}

// UnmarshalYAML accepts numeric and boolean scalars for Value.
func (c *Condition) UnmarshalYAML(n *yaml.Node) error {
	var raw struct {
		Action string    `yaml:"action"`
		Type   string    `yaml:"type"`
		Op     string    `yaml:"op"`
		Value  yaml.Node `yaml:"value"`
		Spell  string    `yaml:"spell"`
		Expr   string    `yaml:"expr"`
	}
	if err := n.Decode(&raw); err != nil {
		return err
	}
	*c = Condition{Action: raw.Action, Type: raw.Type, Op: raw.Op, Spell: raw.Spell, Expr: raw.Expr}
	if raw.Value.Kind == yaml.ScalarNode {
		c.Value = raw.Value.Value
	}
	return nil
}

// SpellID returns Spell, falling back to Value.
func (c *Condition) SpellID() string {
	if c.Spell != "" {
		return c.Spell
	}
	return c.Value
}

// Percent reports whether Value is a percentage such as "50%".
func (c *Condition) Percent() bool {
	return strings.HasSuffix(strings.TrimSpace(c.Value), "%")
}

// Number parses Value as a float, ignoring a trailing '%'.
func (c *Condition) Number() (float64, bool) {
	s := strings.TrimSuffix(strings.TrimSpace(c.Value), "%")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// List is one condition or an AND-list of conditions. In data it is written
// either as a single mapping or as a sequence of mappings.
type List []Condition

// UnmarshalYAML accepts a mapping or a sequence.
func (l *List) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.MappingNode:
		var c Condition
		if err := n.Decode(&c); err != nil {
			return err
		}
		*l = List{c}
		return nil
	case yaml.SequenceNode:
		var cs []Condition
		if err := n.Decode(&cs); err != nil {
			return err
		}
		*l = cs
		return nil
	default:
		*l = nil
		return nil
	}
}

// Context is everything a condition may read. Target may be nil.
type Context struct {
	World  *world.World
	Actor  *world.Actor
	Target *world.Actor
}

// Compare applies op to a and b. An empty op means "==". Unknown operators are false.
func Compare(op string, a, b float64) bool {
	switch op {
	case "", "==":
		return a == b
	case "!=":
		return a != b
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	default:
		return false
	}
}

// CompareString applies an equality operator to strings. Ordering operators are false.
func CompareString(op, a, b string) bool {
	switch op {
	case "", "==":
		return a == b
	case "!=":
		return a != b
	default:
		return false
	}
}
