// Package behavior loads and stores the data-authored state machines that
// drive non-player actors.
package behavior

import (
	"fmt"
	"sort"

	"github.com/cory-johannsen/crawl/internal/game/condition"
)

// DefaultState is the conventional initial state when none is declared.
const DefaultState = "idle"

// Transition moves the actor to Target when every condition in Condition holds.
type Transition struct {
	Condition condition.List `yaml:"condition"`
	Target    string         `yaml:"target"`
}

// State is one node of a behavior state machine.
type State struct {
	// Action is executed every turn the actor spends in this state; empty means none.
	Action      string       `yaml:"action,omitempty"`
	Transitions []Transition `yaml:"transitions,omitempty"`
	// OnEnter actions run in order when a transition lands on this state.
	OnEnter []string `yaml:"onEnter,omitempty"`
}

// Actions holds the priority fallback list.
type Actions struct {
	Priority []string `yaml:"priority"`
}

// Definition is one behavior as loaded from data.
type Definition struct {
	ID           string                `yaml:"id"`
	InitialState string                `yaml:"initial_state"`
	States       map[string]*State     `yaml:"states"`
	Actions      Actions               `yaml:"actions"`
	Conditions   []condition.Condition `yaml:"conditions"`
	ActionParams map[string]Params     `yaml:"actionParams"`
	// Targeting picks how a target is acquired: "nearest_enemy" (default) or "weakest_enemy".
	Targeting string `yaml:"targeting,omitempty"`
}

// Validate checks the definition's structural invariants and fills defaults.
//
// Precondition: d must not be nil.
// Postcondition: on success every state is non-nil, InitialState names a
// declared state whenever states are declared, and every transition targets a
// declared state.
func (d *Definition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("behavior.Definition: id must not be empty")
	}
	for _, c := range d.Conditions {
		if c.Action == "" {
			return fmt.Errorf("behavior.Definition %q: priority condition of type %q has no action", d.ID, c.Type)
		}
		if err := checkCondition(c); err != nil {
			return fmt.Errorf("behavior.Definition %q action %q: %w", d.ID, c.Action, err)
		}
	}
	if len(d.States) == 0 {
		return nil
	}
	for name, st := range d.States {
		if st == nil {
			d.States[name] = &State{}
		}
	}
	if d.InitialState == "" {
		if _, ok := d.States[DefaultState]; !ok {
			return fmt.Errorf("behavior.Definition %q: initial_state is empty and no %q state is declared", d.ID, DefaultState)
		}
		d.InitialState = DefaultState
	}
	if _, ok := d.States[d.InitialState]; !ok {
		return fmt.Errorf("behavior.Definition %q: initial_state %q is not a declared state", d.ID, d.InitialState)
	}
	for _, name := range d.StateNames() {
		for i, tr := range d.States[name].Transitions {
			if tr.Target == "" {
				return fmt.Errorf("behavior.Definition %q state %q: transition %d has no target", d.ID, name, i)
			}
			if _, ok := d.States[tr.Target]; !ok {
				return fmt.Errorf("behavior.Definition %q state %q: transition %d targets unknown state %q", d.ID, name, i, tr.Target)
			}
			for _, c := range tr.Condition {
				if err := checkCondition(c); err != nil {
					return fmt.Errorf("behavior.Definition %q state %q: transition %d: %w", d.ID, name, i, err)
				}
			}
		}
	}
	return nil
}

// checkCondition rejects conditions whose required keys are missing.
// spellCooldown compares its value, so the spell must be named by the spell key.
func checkCondition(c condition.Condition) error {
	if c.Type == condition.KindSpellCooldown && c.Spell == "" {
		return fmt.Errorf("spellCooldown condition has no spell")
	}
	return nil
}

// State returns the named state.
func (d *Definition) State(name string) (*State, bool) {
	st, ok := d.States[name]
	return st, ok && st != nil
}

// HasStates reports whether the definition declares a state machine.
func (d *Definition) HasStates() bool {
	return len(d.States) > 0
}

// StateNames returns the declared state names sorted for stable iteration.
func (d *Definition) StateNames() []string {
	names := make([]string, 0, len(d.States))
	for n := range d.States {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ConditionsFor returns, in declaration order, the priority conditions attached to actionID.
func (d *Definition) ConditionsFor(actionID string) []condition.Condition {
	var out []condition.Condition
	for _, c := range d.Conditions {
		if c.Action == actionID {
			out = append(out, c)
		}
	}
	return out
}

// Params returns the parameters for actionID; never nil.
func (d *Definition) Params(actionID string) Params {
	if p, ok := d.ActionParams[actionID]; ok && p != nil {
		return p
	}
	return Params{}
}
