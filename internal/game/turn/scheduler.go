// Package turn advances the world one turn at a time, granting energy and
// letting every non-player actor act while it can pay for it.
package turn

import (
	"context"

	"go.uber.org/zap"

	"github.com/cory-johannsen/crawl/internal/game/ai"
	"github.com/cory-johannsen/crawl/internal/game/ally"
	"github.com/cory-johannsen/crawl/internal/game/combat"
	"github.com/cory-johannsen/crawl/internal/game/world"
)

// DefaultMaxActions caps how many actions one actor may take in a single turn.
const DefaultMaxActions = 8

// Config tunes the scheduler.
type Config struct {
	// EnergyPerTurn is granted at speed 100 and scaled by speed/100.
	EnergyPerTurn int
	// MaxActions bounds the per-actor action loop.
	MaxActions int
}

// DefaultConfig returns the stock turn settings.
func DefaultConfig() Config {
	return Config{EnergyPerTurn: world.BaselineEnergy, MaxActions: DefaultMaxActions}
}

// Action records one executed decision.
type Action struct {
	Actor   world.ActorID
	Outcome combat.Outcome
}

// Report summarises one world turn. Expired lists summons whose duration ran
// out; removing them is left to the owning loop.
type Report struct {
	Turn    int
	Actions []Action
	Expired []world.ActorID
}

// Scheduler runs world turns.
//
// Invariant: world and coordinator are never nil.
type Scheduler struct {
	world  *world.World
	coord  *ai.Coordinator
	allies *ally.Controller
	cfg    Config
	logger *zap.Logger
}

// NewScheduler returns a Scheduler over w. A nil allies controller sends every
// actor through the coordinator.
//
// Precondition: w and coord must not be nil.
func NewScheduler(w *world.World, coord *ai.Coordinator, allies *ally.Controller, cfg Config, logger *zap.Logger) *Scheduler {
	if w == nil {
		panic("turn.NewScheduler: world must not be nil")
	}
	if coord == nil {
		panic("turn.NewScheduler: coordinator must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.EnergyPerTurn <= 0 {
		cfg.EnergyPerTurn = world.BaselineEnergy
	}
	if cfg.MaxActions <= 0 {
		cfg.MaxActions = DefaultMaxActions
	}
	return &Scheduler{world: w, coord: coord, allies: allies, cfg: cfg, logger: logger}
}

// World returns the scheduled world.
func (s *Scheduler) World() *world.World { return s.world }

// RunTurn advances the world turn and processes every actor once.
//
// Postcondition: actors act in insertion order from a snapshot taken at the
// start of the turn; an actor removed mid-turn does not act. Arena fighters
// are left to their match.
func (s *Scheduler) RunTurn(ctx context.Context) Report {
	w := s.world
	rep := Report{Turn: w.AdvanceTurn()}
	actors := w.Snapshot()

	for _, a := range actors {
		if expired := s.upkeep(a); expired {
			rep.Expired = append(rep.Expired, a.ID())
		}
	}
	for _, a := range actors {
		if ctx.Err() != nil {
			break
		}
		if !a.Valid() || a.IsPlayer() || !a.IsAlive() || a.AI() == nil || a.AI().InArena {
			continue
		}
		rep.Actions = append(rep.Actions, s.runActor(ctx, a)...)
	}

	s.logger.Debug("turn complete",
		zap.Int("turn", rep.Turn),
		zap.Int("actions", len(rep.Actions)),
		zap.Int("expired", len(rep.Expired)),
	)
	return rep
}

// upkeep grants energy, regenerates and ticks counters. It reports whether a
// summon link has expired.
func (s *Scheduler) upkeep(a *world.Actor) bool {
	if !a.IsAlive() {
		return false
	}
	if en := a.Energy(); en != nil {
		en.Grant(s.cfg.EnergyPerTurn)
	}
	if h := a.Health(); h != nil && h.Regen > 0 {
		h.Heal(h.Regen)
	}
	if m := a.Mana(); m != nil && m.Regen > 0 {
		m.Restore(m.Regen)
	}
	if st := a.AI(); st != nil {
		st.TickCooldowns()
	}
	if sm := a.Summon(); sm != nil {
		sm.Tick()
		return sm.IsExpired()
	}
	return false
}

// runActor lets a act until it runs out of energy, does nothing or hits the cap.
// Actors without an Energy component act exactly once.
func (s *Scheduler) runActor(ctx context.Context, a *world.Actor) []Action {
	en := a.Energy()
	var done []Action
	for n := 0; n < s.cfg.MaxActions; n++ {
		if !a.Valid() || !a.IsAlive() {
			break
		}
		if en != nil && !en.CanAfford(world.KindWait) {
			break
		}
		out := s.decide(ctx, a, en != nil)
		if en == nil {
			if out.Acted || out.Success {
				done = append(done, Action{Actor: a.ID(), Outcome: out})
			}
			break
		}
		if !out.Acted {
			// Saving up for an action it cannot pay for yet.
			if out.Reason == combat.ReasonInsufficientEnergy {
				break
			}
			en.Spend(world.KindWait)
			break
		}
		done = append(done, Action{Actor: a.ID(), Outcome: out})
		if !en.Spend(out.Kind) {
			en.Current = 0
		}
	}
	return done
}

func (s *Scheduler) decide(ctx context.Context, a *world.Actor, enforce bool) combat.Outcome {
	t := ai.Turn{World: s.world, Actor: a, EnforceEnergy: enforce}
	if s.allies != nil && ally.Controls(a) {
		return s.allies.Tick(ctx, t)
	}
	return s.coord.TakeTurn(ctx, t)
}
