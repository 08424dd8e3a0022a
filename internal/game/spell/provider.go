package spell

import (
	"context"

	"github.com/cory-johannsen/crawl/internal/game/world"
)

// Target is what a cast routine acts on. Actor is nil for a bare location.
type Target struct {
	Actor *world.Actor
	Point world.Position
}

// CastFunc is a spell's own cast routine. It reports whether the spell took effect.
type CastFunc func(ctx context.Context, caster *world.Actor, spell world.Spell, target Target) (bool, error)

// Implementation is the live description of a spell shared by every caster.
type Implementation struct {
	Spell world.Spell
	// Cast is optional; spells without one resolve purely through damage math.
	Cast CastFunc
}

// Provider supplies real spell implementations.
type Provider interface {
	HasSpell(id string) bool
	Implementation(id string) (Implementation, bool)
}

// StaticProvider serves a fixed set of implementations keyed by spell id.
type StaticProvider map[string]Implementation

// HasSpell implements Provider.
func (p StaticProvider) HasSpell(id string) bool {
	_, ok := p[id]
	return ok
}

// Implementation implements Provider.
func (p StaticProvider) Implementation(id string) (Implementation, bool) {
	impl, ok := p[id]
	if ok {
		impl.Spell = impl.Spell.Clone()
	}
	return impl, ok
}

// FallbackSpell is the minimal spell used when a caster asks for no particular
// spell and knows none.
var FallbackSpell = world.Spell{
	ID:         "arcane_spark",
	Name:       "Arcane Spark",
	Element:    "arcane",
	TargetType: world.TargetEntity,
	ManaCost:   3,
	BaseDamage: 4,
	Range:      5,
}
