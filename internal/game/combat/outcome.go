// Package combat holds the shared hit, dodge, damage and death rules used by
// melee, ranged and spell resolution, and the Outcome record every action returns.
package combat

import "github.com/cory-johannsen/crawl/internal/game/world"

// Reason tags why an action failed.
const (
	ReasonDodged             = "dodged"
	ReasonInsufficientMana   = "insufficientMana"
	ReasonInsufficientEnergy = "insufficientEnergy"
	ReasonBehaviorNotFound   = "behaviorNotFound"
	ReasonUnknownAction      = "unknownAction"
	ReasonSpellNotFound      = "spellNotFound"
	ReasonNoTarget           = "noTarget"
	ReasonOutOfRange         = "outOfRange"
	ReasonNoLineOfSight      = "noLineOfSight"
	ReasonMissingComponent   = "missingComponent"
	ReasonAbilityNotFound    = "abilityNotFound"
	ReasonOnCooldown         = "onCooldown"
	ReasonNoAction           = "noAction"
	ReasonSpawnFailed        = "spawnFailed"
)

// Outcome is the result of any action, spell or ability. It is always
// returned; failures are described by Reason, never by a Go error.
type Outcome struct {
	Success bool
	// Acted is true when the action consumed the actor's turn.
	Acted bool
	Kind  world.ActionKind
	// ActionID is the executed action identifier, filled in by the executor.
	ActionID string
	Damage   int
	Killed   bool
	Dodged   bool
	Moved    bool
	Reason   string
	Targets  []world.ActorID
	SpellID  string
	Element  string
	Point    world.Position
}

// Fail returns an unsuccessful outcome that did not consume a turn.
func Fail(reason string) Outcome {
	return Outcome{Reason: reason}
}

// Succeed returns a successful outcome of kind that consumed the turn.
func Succeed(kind world.ActionKind) Outcome {
	return Outcome{Success: true, Acted: true, Kind: kind}
}

// Merge folds o2 into o: damage accumulates, flags are ORed and targets appended.
// The first failure reason is kept only while no merged part succeeded.
func (o Outcome) Merge(o2 Outcome) Outcome {
	o.Success = o.Success || o2.Success
	o.Acted = o.Acted || o2.Acted
	if o.Kind == "" {
		o.Kind = o2.Kind
	}
	o.Damage += o2.Damage
	o.Killed = o.Killed || o2.Killed
	o.Dodged = o.Dodged || o2.Dodged
	o.Moved = o.Moved || o2.Moved
	if o.Reason == "" {
		o.Reason = o2.Reason
	}
	if o.Success {
		o.Reason = ""
	}
	o.Targets = append(o.Targets, o2.Targets...)
	return o
}
