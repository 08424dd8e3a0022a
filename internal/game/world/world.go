// Package world owns every actor in a dungeon level and the tile grid they stand on.
//
// Actors are donburi entities with a closed set of typed components. The World
// adds what donburi does not provide: process-unique monotonic actor IDs,
// insertion-ordered iteration, removal that happens at most once, and the
// spatial queries the decision and resolution layers need.
package world

import (
	"fmt"
	"sync/atomic"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/component"
)

// ActorID identifies an actor for the lifetime of the process. The zero value means "no actor".
type ActorID uint64

// String renders the ID for log output.
func (id ActorID) String() string {
	return fmt.Sprintf("actor-%d", uint64(id))
}

var nextActorID atomic.Uint64

func allocateID() ActorID {
	return ActorID(nextActorID.Add(1))
}

// Component types. Every actor has Identity and Position.
var (
	IdentityComponent  = donburi.NewComponentType[Identity]()
	PositionComponent  = donburi.NewComponentType[Position]()
	HealthComponent    = donburi.NewComponentType[Health]()
	StatsComponent     = donburi.NewComponentType[Stats]()
	ManaComponent      = donburi.NewComponentType[Mana]()
	SpellbookComponent = donburi.NewComponentType[Spellbook]()
	AIComponent        = donburi.NewComponentType[AI]()
	EnergyComponent    = donburi.NewComponentType[Energy]()
	SummonComponent    = donburi.NewComponentType[Summon]()
	PlayerTag          = donburi.NewComponentType[Player]()
)

// ComponentKind names an optional component for ActorsWith queries.
type ComponentKind uint8

const (
	CompHealth ComponentKind = iota + 1
	CompStats
	CompMana
	CompSpellbook
	CompAI
	CompEnergy
	CompSummon
	CompPlayer
)

func (k ComponentKind) componentType() component.IComponentType {
	switch k {
	case CompHealth:
		return HealthComponent
	case CompStats:
		return StatsComponent
	case CompMana:
		return ManaComponent
	case CompSpellbook:
		return SpellbookComponent
	case CompAI:
		return AIComponent
	case CompEnergy:
		return EnergyComponent
	case CompSummon:
		return SummonComponent
	case CompPlayer:
		return PlayerTag
	default:
		return nil
	}
}

// ActorSpec describes a new actor. Nil component fields are not attached.
type ActorSpec struct {
	Name     string
	Category string
	Position Position
	Health   *Health
	Stats    *Stats
	Mana     *Mana
	Spells   []Spell
	AI       *AI
	Energy   *Energy
	Summon   *Summon
	Player   bool
}

// World is the actor store and tile grid for one level or arena.
// It is not safe for concurrent use; the turn loop owns it.
type World struct {
	ecs    donburi.World
	grid   *Grid
	log    MessageLog
	actors map[ActorID]*Actor
	order  []ActorID
	turn   int
}

// New returns an empty world over grid that writes messages to log.
//
// Precondition: grid must not be nil. A nil log discards messages.
func New(grid *Grid, log MessageLog) *World {
	if grid == nil {
		panic("world.New: grid must not be nil")
	}
	if log == nil {
		log = Discard
	}
	return &World{
		ecs:    donburi.NewWorld(),
		grid:   grid,
		log:    log,
		actors: make(map[ActorID]*Actor),
	}
}

// Grid returns the tile grid.
func (w *World) Grid() *Grid { return w.grid }

// Log returns the message sink.
func (w *World) Log() MessageLog { return w.log }

// SetLog replaces the message sink. A nil log discards messages.
func (w *World) SetLog(log MessageLog) {
	if log == nil {
		log = Discard
	}
	w.log = log
}

// Message writes text to the world's message sink.
func (w *World) Message(text string, severity Severity) {
	w.log.AddMessage(text, severity)
}

// Turn returns the current world turn number.
func (w *World) Turn() int { return w.turn }

// AdvanceTurn increments and returns the world turn number.
func (w *World) AdvanceTurn() int {
	w.turn++
	return w.turn
}

// Spawn creates an actor from spec and appends it to the iteration order.
//
// Postcondition: the returned actor has a fresh ID never used before in this process.
func (w *World) Spawn(spec ActorSpec) *Actor {
	types := []component.IComponentType{IdentityComponent, PositionComponent}
	if spec.Health != nil {
		types = append(types, HealthComponent)
	}
	if spec.Stats != nil {
		types = append(types, StatsComponent)
	}
	if spec.Mana != nil {
		types = append(types, ManaComponent)
	}
	if len(spec.Spells) > 0 {
		types = append(types, SpellbookComponent)
	}
	if spec.AI != nil {
		types = append(types, AIComponent)
	}
	if spec.Energy != nil {
		types = append(types, EnergyComponent)
	}
	if spec.Summon != nil {
		types = append(types, SummonComponent)
	}
	if spec.Player {
		types = append(types, PlayerTag)
	}

	id := allocateID()
	entry := w.ecs.Entry(w.ecs.Create(types...))
	IdentityComponent.SetValue(entry, Identity{ID: id, Name: spec.Name, Category: spec.Category})
	PositionComponent.SetValue(entry, spec.Position)
	if spec.Health != nil {
		h := *spec.Health
		h.clamp()
		HealthComponent.SetValue(entry, h)
	}
	if spec.Stats != nil {
		StatsComponent.SetValue(entry, *spec.Stats)
	}
	if spec.Mana != nil {
		m := *spec.Mana
		if m.Current > m.Max {
			m.Current = m.Max
		}
		if m.Current < 0 {
			m.Current = 0
		}
		ManaComponent.SetValue(entry, m)
	}
	if len(spec.Spells) > 0 {
		SpellbookComponent.SetValue(entry, *NewSpellbook(spec.Spells...))
	}
	if spec.AI != nil {
		AIComponent.SetValue(entry, *spec.AI)
	}
	if spec.Energy != nil {
		e := *spec.Energy
		if e.Costs == nil {
			e.Costs = DefaultCosts()
		} else {
			e.Costs = e.Costs.Clone()
		}
		EnergyComponent.SetValue(entry, e)
	}
	if spec.Summon != nil {
		SummonComponent.SetValue(entry, *spec.Summon)
	}

	a := &Actor{id: id, world: w, entry: entry}
	w.actors[id] = a
	w.order = append(w.order, id)
	return a
}

// Actor returns the live actor with the given ID.
//
// Postcondition: returns (nil, false) once the actor has been removed.
func (w *World) Actor(id ActorID) (*Actor, bool) {
	a, ok := w.actors[id]
	if !ok || !a.Valid() {
		return nil, false
	}
	return a, true
}

// Remove destroys the actor with the given ID.
//
// Postcondition: returns true exactly once per actor; later calls return false.
func (w *World) Remove(id ActorID) bool {
	a, ok := w.actors[id]
	if !ok {
		return false
	}
	delete(w.actors, id)
	for i, oid := range w.order {
		if oid == id {
			w.order = append(w.order[:i:i], w.order[i+1:]...)
			break
		}
	}
	if a.entry.Valid() {
		w.ecs.Remove(a.entry.Entity())
	}
	return true
}

// Len returns the number of live actors.
func (w *World) Len() int { return len(w.order) }

// Snapshot returns the live actors in insertion order. The slice is a copy;
// removing actors while iterating it is safe.
func (w *World) Snapshot() []*Actor {
	out := make([]*Actor, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.actors[id])
	}
	return out
}

// ActorsWith returns, in insertion order, every actor carrying all of kinds.
func (w *World) ActorsWith(kinds ...ComponentKind) []*Actor {
	var out []*Actor
	for _, a := range w.Snapshot() {
		if a.Has(kinds...) {
			out = append(out, a)
		}
	}
	return out
}

// ActorsAt returns, in insertion order, every actor standing on p.
func (w *World) ActorsAt(p Position) []*Actor {
	var out []*Actor
	for _, a := range w.Snapshot() {
		if a.Position() == p {
			out = append(out, a)
		}
	}
	return out
}

// BlockingActorAt returns a living actor with Health at p other than except.
func (w *World) BlockingActorAt(p Position, except ActorID) (*Actor, bool) {
	for _, a := range w.ActorsAt(p) {
		if a.ID() != except && a.IsAlive() {
			return a, true
		}
	}
	return nil, false
}

// Blocked reports whether p is a wall, off the map, or occupied by a living actor other than mover.
func (w *World) Blocked(p Position, mover ActorID) bool {
	if !w.grid.Walkable(p) {
		return true
	}
	_, occupied := w.BlockingActorAt(p, mover)
	return occupied
}

// Walkable reports whether p is an in-bounds floor tile.
func (w *World) Walkable(p Position) bool { return w.grid.Walkable(p) }

// InBounds reports whether p lies on the grid.
func (w *World) InBounds(p Position) bool { return w.grid.InBounds(p) }

// HasLineOfSight reports whether the grid has a clear line between a and b.
func (w *World) HasLineOfSight(a, b Position) bool { return w.grid.HasLineOfSight(a, b) }

// Player returns the protected player actor, if one is live.
func (w *World) Player() (*Actor, bool) {
	for _, a := range w.Snapshot() {
		if a.IsPlayer() {
			return a, true
		}
	}
	return nil, false
}

// Nearest returns the living actor closest to origin by Euclidean distance that
// satisfies keep. Ties go to the earlier actor in insertion order.
func (w *World) Nearest(origin Position, keep func(*Actor) bool) (*Actor, bool) {
	var best *Actor
	bestDist := 0
	for _, a := range w.Snapshot() {
		if !a.IsAlive() || (keep != nil && !keep(a)) {
			continue
		}
		d := origin.DistanceSq(a.Position())
		if best == nil || d < bestDist {
			best, bestDist = a, d
		}
	}
	return best, best != nil
}

// WithinChebyshev returns, in insertion order, every living actor within radius of center.
func (w *World) WithinChebyshev(center Position, radius int) []*Actor {
	var out []*Actor
	for _, a := range w.Snapshot() {
		if a.IsAlive() && center.Chebyshev(a.Position()) <= radius {
			out = append(out, a)
		}
	}
	return out
}
