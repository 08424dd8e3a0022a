// Package ally drives summoned and friendly actors: stationary casters that
// hold their ground and followers that stay near their summoner.
package ally

import (
	"context"

	"go.uber.org/zap"

	"github.com/cory-johannsen/crawl/internal/game/action"
	"github.com/cory-johannsen/crawl/internal/game/ai"
	"github.com/cory-johannsen/crawl/internal/game/behavior"
	"github.com/cory-johannsen/crawl/internal/game/combat"
	"github.com/cory-johannsen/crawl/internal/game/world"
)

// Defaults for profiles that leave a range unset.
const (
	DefaultLeashDistance   = 3
	DefaultStationaryRange = 6
	DefaultFollowerRange   = 1
)

// Config tunes the controller.
type Config struct {
	// LeashDistance is how far a follower may drift from its summoner before walking back.
	LeashDistance int
	Classifier    ai.Classifier
}

// Controller runs one tick of an ally actor.
type Controller struct {
	exec   *action.Executor
	cfg    Config
	logger *zap.Logger
}

// NewController returns a Controller.
//
// Precondition: exec must not be nil.
func NewController(exec *action.Executor, cfg Config, logger *zap.Logger) *Controller {
	if exec == nil {
		panic("ally.NewController: executor must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LeashDistance <= 0 {
		cfg.LeashDistance = DefaultLeashDistance
	}
	return &Controller{exec: exec, cfg: cfg, logger: logger}
}

// Controls reports whether a carries an ally profile with a known archetype.
func Controls(a *world.Actor) bool {
	st := a.AI()
	if st == nil || st.Ally == nil {
		return false
	}
	switch st.Ally.Archetype {
	case world.ArchetypeStationary, world.ArchetypeFollower:
		return true
	}
	return false
}

// Tick decides and executes one action for a.
//
// Postcondition: a stationary ally stands on its anchor when Tick returns.
func (c *Controller) Tick(ctx context.Context, t ai.Turn) combat.Outcome {
	a := t.Actor
	if !Controls(a) {
		return combat.Fail(combat.ReasonMissingComponent)
	}
	prof := a.AI().Ally
	if prof.Archetype == world.ArchetypeStationary {
		anchor := prof.Anchor
		a.SetPosition(anchor)
		defer a.SetPosition(anchor)
		return c.stationary(ctx, t, prof)
	}
	return c.follower(ctx, t, prof)
}

func (c *Controller) stationary(ctx context.Context, t ai.Turn, prof *world.AllyProfile) combat.Outcome {
	w, a := t.World, t.Actor
	rng := prof.AttackRange
	if rng <= 0 {
		rng = DefaultStationaryRange
	}
	enemy := ai.Perceive(w, a, c.cfg.Classifier).NearestEnemyWithin(rng)
	if enemy == nil || !prof.Ready(w.Turn()) {
		return combat.Fail(combat.ReasonNoAction)
	}
	return c.strike(ctx, t, enemy, prof, []string{action.RangedAttack}, rng)
}

func (c *Controller) follower(ctx context.Context, t ai.Turn, prof *world.AllyProfile) combat.Outcome {
	w, a := t.World, t.Actor
	rng := prof.AttackRange
	if rng <= 0 {
		rng = DefaultFollowerRange
	}
	if enemy := ai.Perceive(w, a, c.cfg.Classifier).NearestEnemyWithin(rng); enemy != nil {
		if !prof.Ready(w.Turn()) {
			return combat.Fail(combat.ReasonOnCooldown)
		}
		attacks := []string{action.RangedAttack}
		if a.Position().Chebyshev(enemy.Position()) <= 1 {
			attacks = []string{action.MeleeAttack, action.RangedAttack}
		}
		return c.strike(ctx, t, enemy, prof, attacks, rng)
	}

	leader, ok := c.leader(w, a)
	if !ok {
		return combat.Fail(combat.ReasonNoTarget)
	}
	leash := c.cfg.LeashDistance
	if a.Position().DistanceSq(leader.Position()) <= leash*leash {
		return combat.Fail(combat.ReasonNoAction)
	}
	return c.exec.Execute(ctx, action.MoveTowardTarget, &action.Context{
		World:         w,
		Actor:         a,
		Target:        leader,
		Encounter:     t.Encounter,
		EnforceEnergy: t.EnforceEnergy,
	})
}

// strike tries a spell, then each of attacks, against enemy and records the
// attack turn on the first that acts.
func (c *Controller) strike(ctx context.Context, t ai.Turn, enemy *world.Actor, prof *world.AllyProfile, attacks []string, rng int) combat.Outcome {
	w, a := t.World, t.Actor
	ids := attacks
	if b := a.Spellbook(); b != nil && b.Len() > 0 {
		ids = append([]string{action.CastSpell}, attacks...)
	}
	out := combat.Fail(combat.ReasonNoAction)
	for _, id := range ids {
		out = c.exec.Execute(ctx, id, &action.Context{
			World:         w,
			Actor:         a,
			Target:        enemy,
			Params:        behavior.Params{"range": rng},
			Encounter:     t.Encounter,
			EnforceEnergy: t.EnforceEnergy,
		})
		if out.Success || out.Acted {
			prof.MarkAttack(w.Turn())
			c.logger.Debug("ally attacked",
				zap.Stringer("ally", a.ID()),
				zap.Stringer("enemy", enemy.ID()),
				zap.String("action", id),
			)
			return out
		}
	}
	return out
}

// leader is the summoner of a, or the player when a has no live summoner.
func (c *Controller) leader(w *world.World, a *world.Actor) (*world.Actor, bool) {
	if s := a.Summon(); s != nil {
		if l, ok := w.Actor(s.Summoner); ok && l.IsAlive() {
			return l, true
		}
	}
	return w.Player()
}
