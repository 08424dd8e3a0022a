package world

import "github.com/yohamta/donburi"

// Actor is a handle to one entity in a World. A handle outlives its entity:
// once the actor is removed, Valid returns false and every component accessor
// returns nil.
//
// Component pointers are only valid until the next SetX call on the same actor.
type Actor struct {
	id    ActorID
	world *World
	entry *donburi.Entry
}

// ID returns the actor's process-unique ID; 0 for a nil handle.
func (a *Actor) ID() ActorID {
	if a == nil {
		return 0
	}
	return a.id
}

// Valid reports whether the actor is still in its world.
func (a *Actor) Valid() bool {
	return a != nil && a.entry != nil && a.entry.Valid()
}

// World returns the world that spawned the actor.
func (a *Actor) World() *World { return a.world }

// Name returns the display name; empty for removed actors.
func (a *Actor) Name() string {
	if !a.Valid() {
		return ""
	}
	return IdentityComponent.Get(a.entry).Name
}

// Category returns the actor's category tag.
func (a *Actor) Category() string {
	if !a.Valid() {
		return ""
	}
	return IdentityComponent.Get(a.entry).Category
}

// Position returns the actor's tile; the zero Position for removed actors.
func (a *Actor) Position() Position {
	if !a.Valid() {
		return Position{}
	}
	return *PositionComponent.Get(a.entry)
}

// SetPosition moves the actor to p without any walkability check.
func (a *Actor) SetPosition(p Position) {
	if a.Valid() {
		PositionComponent.SetValue(a.entry, p)
	}
}

// Has reports whether the actor carries every one of kinds.
func (a *Actor) Has(kinds ...ComponentKind) bool {
	if !a.Valid() {
		return false
	}
	for _, k := range kinds {
		ct := k.componentType()
		if ct == nil || !a.entry.HasComponent(ct) {
			return false
		}
	}
	return true
}

// Health returns the Health component or nil.
func (a *Actor) Health() *Health {
	if !a.Has(CompHealth) {
		return nil
	}
	return HealthComponent.Get(a.entry)
}

// Stats returns the Stats component or nil.
func (a *Actor) Stats() *Stats {
	if !a.Has(CompStats) {
		return nil
	}
	return StatsComponent.Get(a.entry)
}

// Mana returns the Mana component or nil.
func (a *Actor) Mana() *Mana {
	if !a.Has(CompMana) {
		return nil
	}
	return ManaComponent.Get(a.entry)
}

// Spellbook returns the Spellbook component or nil.
func (a *Actor) Spellbook() *Spellbook {
	if !a.Has(CompSpellbook) {
		return nil
	}
	return SpellbookComponent.Get(a.entry)
}

// AI returns the AI component or nil.
func (a *Actor) AI() *AI {
	if !a.Has(CompAI) {
		return nil
	}
	return AIComponent.Get(a.entry)
}

// Energy returns the Energy component or nil.
func (a *Actor) Energy() *Energy {
	if !a.Has(CompEnergy) {
		return nil
	}
	return EnergyComponent.Get(a.entry)
}

// Summon returns the Summon component or nil.
func (a *Actor) Summon() *Summon {
	if !a.Has(CompSummon) {
		return nil
	}
	return SummonComponent.Get(a.entry)
}

// IsPlayer reports whether the actor is the protected player.
func (a *Actor) IsPlayer() bool {
	return a.Has(CompPlayer)
}

// IsAlive reports whether the actor is live and has a Health component that is not dead.
func (a *Actor) IsAlive() bool {
	h := a.Health()
	return h != nil && !h.IsDead()
}

// KnowsSpell reports whether the actor's spellbook contains id.
func (a *Actor) KnowsSpell(id string) bool {
	b := a.Spellbook()
	return b != nil && b.Has(id)
}

// Learn adds a copy of s to the actor's spellbook, attaching one if needed.
func (a *Actor) Learn(s Spell) {
	if !a.Valid() {
		return
	}
	if b := a.Spellbook(); b != nil {
		b.Learn(s)
		return
	}
	donburi.Add(a.entry, SpellbookComponent, NewSpellbook(s))
}

// SetHealth attaches or replaces the Health component.
func (a *Actor) SetHealth(h Health) {
	setComponent(a, HealthComponent, CompHealth, h)
}

// SetStats attaches or replaces the Stats component.
func (a *Actor) SetStats(s Stats) {
	setComponent(a, StatsComponent, CompStats, s)
}

// SetMana attaches or replaces the Mana component.
func (a *Actor) SetMana(m Mana) {
	setComponent(a, ManaComponent, CompMana, m)
}

// SetAI attaches or replaces the AI component.
func (a *Actor) SetAI(ai AI) {
	setComponent(a, AIComponent, CompAI, ai)
}

// SetEnergy attaches or replaces the Energy component.
func (a *Actor) SetEnergy(e Energy) {
	setComponent(a, EnergyComponent, CompEnergy, e)
}

// SetSummon attaches or replaces the Summon component.
func (a *Actor) SetSummon(s Summon) {
	setComponent(a, SummonComponent, CompSummon, s)
}

func setComponent[T any](a *Actor, ct *donburi.ComponentType[T], kind ComponentKind, v T) {
	if !a.Valid() {
		return
	}
	if a.Has(kind) {
		ct.SetValue(a.entry, v)
		return
	}
	donburi.Add(a.entry, ct, &v)
}
