// Package ai drives non-player actors: it picks targets, walks the behavior
// state machine and falls back to the priority action list.
package ai

import (
	"strings"

	"github.com/cory-johannsen/crawl/internal/game/world"
)

// HostileNames are the species names the legacy friend/foe heuristic treats as enemies.
var HostileNames = []string{"goblin", "orc", "troll", "skeleton", "rat", "spider"}

// Target tokens understood by Percept.ResolveTarget.
const (
	TargetNearestEnemy = "nearest_enemy"
	TargetWeakestEnemy = "weakest_enemy"
	TargetSelf         = "self"
)

// FactionOf returns the actor's effective faction. The player is always
// FactionPlayer; actors without AI have no faction.
func FactionOf(a *world.Actor) world.Faction {
	if a.IsPlayer() {
		return world.FactionPlayer
	}
	if ai := a.AI(); ai != nil {
		return ai.Faction
	}
	return world.FactionNone
}

// Classifier decides who an actor fights.
type Classifier struct {
	// NameHeuristic lets allies treat untagged actors with a hostile species
	// name as enemies.
	NameHeuristic bool
}

// IsEnemy reports whether other is a living enemy of self.
//
// Postcondition: false for self, for dead actors and between ally-side actors.
// An untagged self acts as hostile.
func (c Classifier) IsEnemy(self, other *world.Actor) bool {
	if other.ID() == self.ID() || !other.IsAlive() {
		return false
	}
	mine, theirs := FactionOf(self), FactionOf(other)
	if mine == world.FactionNone {
		mine = world.FactionHostile
	}
	if mine.Opposes(theirs) {
		return true
	}
	if theirs == world.FactionNone && (mine == world.FactionAlly || mine == world.FactionPlayer) {
		return c.NameHeuristic && HostileName(other.Name())
	}
	return false
}

// HostileName reports whether name contains one of HostileNames, ignoring case.
func HostileName(name string) bool {
	n := strings.ToLower(name)
	for _, h := range HostileNames {
		if strings.Contains(n, h) {
			return true
		}
	}
	return false
}

// Percept is one actor's view of the others in its world, in insertion order.
//
// Invariant: Self is never in Enemies or Allies; neither holds dead actors.
type Percept struct {
	Self    *world.Actor
	Enemies []*world.Actor
	Allies  []*world.Actor
}

// Perceive snapshots w from self's point of view.
//
// Precondition: w and self must not be nil.
func Perceive(w *world.World, self *world.Actor, c Classifier) *Percept {
	p := &Percept{Self: self}
	mine := FactionOf(self)
	for _, a := range w.Snapshot() {
		if a.ID() == self.ID() || !a.IsAlive() {
			continue
		}
		switch {
		case c.IsEnemy(self, a):
			p.Enemies = append(p.Enemies, a)
		case FactionOf(a) == mine:
			p.Allies = append(p.Allies, a)
		}
	}
	return p
}

// Without returns a copy of p with id removed from Enemies and Allies.
func (p *Percept) Without(id world.ActorID) *Percept {
	if id == 0 {
		return p
	}
	out := &Percept{Self: p.Self}
	for _, a := range p.Enemies {
		if a.ID() != id {
			out.Enemies = append(out.Enemies, a)
		}
	}
	for _, a := range p.Allies {
		if a.ID() != id {
			out.Allies = append(out.Allies, a)
		}
	}
	return out
}

// HasEnemies reports whether any living enemy exists.
func (p *Percept) HasEnemies() bool { return len(p.Enemies) > 0 }

// NearestEnemy returns the enemy closest to Self by Euclidean distance, or nil.
// Ties go to the earlier actor.
func (p *Percept) NearestEnemy() *world.Actor {
	return nearest(p.Self.Position(), p.Enemies)
}

// NearestEnemyWithin returns the nearest enemy no more than maxRange tiles away (Chebyshev).
func (p *Percept) NearestEnemyWithin(maxRange int) *world.Actor {
	var in []*world.Actor
	origin := p.Self.Position()
	for _, e := range p.Enemies {
		if origin.Chebyshev(e.Position()) <= maxRange {
			in = append(in, e)
		}
	}
	return nearest(origin, in)
}

// WeakestEnemy returns the enemy with the lowest hp percentage, or nil.
// Ties go to the earlier actor.
func (p *Percept) WeakestEnemy() *world.Actor {
	var weakest *world.Actor
	for _, e := range p.Enemies {
		if weakest == nil || e.Health().Percent() < weakest.Health().Percent() {
			weakest = e
		}
	}
	return weakest
}

// ResolveTarget maps a target token to an actor. Unknown tokens resolve as
// TargetNearestEnemy.
func (p *Percept) ResolveTarget(token string) *world.Actor {
	switch token {
	case TargetWeakestEnemy:
		return p.WeakestEnemy()
	case TargetSelf:
		return p.Self
	default:
		return p.NearestEnemy()
	}
}

func nearest(origin world.Position, actors []*world.Actor) *world.Actor {
	var best *world.Actor
	bestDist := 0
	for _, a := range actors {
		d := origin.DistanceSq(a.Position())
		if best == nil || d < bestDist {
			best, bestDist = a, d
		}
	}
	return best
}
