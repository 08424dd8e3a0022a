package action

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/crawl/internal/game/combat"
	"github.com/cory-johannsen/crawl/internal/game/spell"
	"github.com/cory-johannsen/crawl/internal/game/world"
)

// Defaults applied when behavior data leaves a parameter out.
const (
	DefaultMeleeReach  = 1
	DefaultRangedRange = 6
	DefaultSummonLimit = 1
	DefaultSummonTurns = 10
)

func (e *Executor) registerBuiltins() {
	e.Register(MoveTowardTarget, world.KindMove, func(_ context.Context, ac *Context) combat.Outcome {
		return step(ac, 1)
	})
	e.Register(MoveAwayFromTarget, world.KindMove, func(_ context.Context, ac *Context) combat.Outcome {
		return step(ac, -1)
	})
	e.Register(MoveRandomly, world.KindMove, e.moveRandomly)
	e.Register(MeleeAttack, world.KindAttack, e.meleeAttack)
	e.Register(RangedAttack, world.KindAttack, e.rangedAttack)
	e.Register(CastSpell, world.KindCast, e.castSpell)
	e.Register(SetState, world.KindWait, setState)
	e.Register(UseSpecialAbility, world.KindAttack, e.useSpecialAbility)
	e.Register(Wait, world.KindWait, func(context.Context, *Context) combat.Outcome {
		return combat.Succeed(world.KindWait)
	})
	e.Register(SummonMinion, world.KindCast, e.summonMinion)
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// step moves one tile toward (dir 1) or away from (dir -1) the target, trying
// the axis with the larger distance first and the other axis when blocked.
// Staying put is a successful outcome that did not act.
func step(ac *Context, dir int) combat.Outcome {
	if !ac.Target.Valid() {
		return combat.Fail(combat.ReasonNoTarget)
	}
	from, to := ac.Actor.Position(), ac.Target.Position()
	dx, dy := to.X-from.X, to.Y-from.Y
	sx, sy := sign(dx)*dir, sign(dy)*dir

	tries := []world.Position{from.Add(sx, 0), from.Add(0, sy)}
	if abs(dy) > abs(dx) {
		tries[0], tries[1] = tries[1], tries[0]
	}
	for _, p := range tries {
		if p == from || ac.World.Blocked(p, ac.Actor.ID()) {
			continue
		}
		ac.Actor.SetPosition(p)
		out := combat.Succeed(world.KindMove)
		out.Moved = true
		out.Point = p
		return out
	}
	return combat.Outcome{Success: true, Kind: world.KindMove, Point: from}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (e *Executor) moveRandomly(_ context.Context, ac *Context) combat.Outcome {
	r := e.Roller()
	dx, dy := r.Intn(3)-1, r.Intn(3)-1
	from := ac.Actor.Position()
	p := from.Add(dx, dy)
	if p == from || ac.World.Blocked(p, ac.Actor.ID()) {
		return combat.Outcome{Success: true, Kind: world.KindMove, Point: from}
	}
	ac.Actor.SetPosition(p)
	out := combat.Succeed(world.KindMove)
	out.Moved = true
	out.Point = p
	return out
}

func (e *Executor) meleeAttack(_ context.Context, ac *Context) combat.Outcome {
	if !ac.Target.IsAlive() {
		return combat.Fail(combat.ReasonNoTarget)
	}
	reach := ac.Params.Int("reach", DefaultMeleeReach)
	if ac.Actor.Position().Chebyshev(ac.Target.Position()) > reach {
		return combat.Fail(combat.ReasonOutOfRange)
	}
	return e.combat.Melee(ac.World, ac.Actor, ac.Target, ac.Encounter)
}

func (e *Executor) rangedAttack(_ context.Context, ac *Context) combat.Outcome {
	if !ac.Target.IsAlive() {
		return combat.Fail(combat.ReasonNoTarget)
	}
	return e.combat.Ranged(ac.World, ac.Actor, ac.Target, ac.Params.Int("range", DefaultRangedRange), ac.Encounter)
}

func (e *Executor) castSpell(ctx context.Context, ac *Context) combat.Outcome {
	return e.spells.Cast(ctx, spell.Request{
		World:     ac.World,
		Caster:    ac.Actor,
		Target:    ac.Target,
		SpellID:   ac.Params.String("spell", ""),
		Encounter: ac.Encounter,
	})
}

// setState forces the actor into params.state. A positive params.countdown
// holds the actor there for that many turns.
func setState(_ context.Context, ac *Context) combat.Outcome {
	ai := ac.Actor.AI()
	if ai == nil {
		return combat.Fail(combat.ReasonMissingComponent)
	}
	state := ac.Params.String("state", "")
	if state == "" {
		return combat.Fail(combat.ReasonNoAction)
	}
	ai.State = state
	ai.StateCountdown = max(0, ac.Params.Int("countdown", 0))
	return combat.Outcome{Success: true, Kind: world.KindWait}
}

func (e *Executor) useSpecialAbility(_ context.Context, ac *Context) combat.Outcome {
	ai := ac.Actor.AI()
	if ai == nil {
		return combat.Fail(combat.ReasonMissingComponent)
	}
	id := ac.Params.String("ability", "")
	ab, ok := ai.Ability(id)
	if !ok {
		return combat.Fail(combat.ReasonAbilityNotFound)
	}
	key := "ability:" + ab.ID
	turn := ac.World.Turn()
	if !ai.ReadyAt(key, turn, ab.Cooldown) {
		return combat.Fail(combat.ReasonOnCooldown)
	}

	var out combat.Outcome
	switch ab.Effect {
	case world.EffectHeal:
		out = heal(ac, ab)
	case world.EffectAttack:
		out = e.repeatMelee(ac, ab)
	default:
		e.logger.Warn("ability has unknown effect", zap.String("ability", ab.ID), zap.String("effect", string(ab.Effect)))
		return combat.Fail(combat.ReasonAbilityNotFound)
	}
	if out.Acted {
		ai.MarkUsed(key, turn)
	}
	return out
}

// heal restores a flat amount, or Amount percent of max hp when Percent is set.
func heal(ac *Context, ab world.Ability) combat.Outcome {
	h := ac.Actor.Health()
	if h == nil {
		return combat.Fail(combat.ReasonMissingComponent)
	}
	amount := ab.Amount
	if ab.Percent {
		amount = h.MaxHP * ab.Amount / 100
	}
	restored := h.Heal(amount)
	ac.World.Message(fmt.Sprintf("%s uses %s and recovers %d hit points.", ac.Actor.Name(), abilityName(ab), restored), world.SeverityInfo)
	out := combat.Succeed(world.KindUseItem)
	out.Targets = []world.ActorID{ac.Actor.ID()}
	out.Point = ac.Actor.Position()
	return out
}

// repeatMelee performs Repeat melee attacks, stopping early if the target dies.
func (e *Executor) repeatMelee(ac *Context, ab world.Ability) combat.Outcome {
	n := max(1, ab.Repeat)
	var out combat.Outcome
	for i := 0; i < n; i++ {
		if !ac.Target.IsAlive() {
			break
		}
		hit := e.meleeAttack(context.Background(), ac)
		if i == 0 {
			out = hit
			continue
		}
		out = out.Merge(hit)
	}
	if len(out.Targets) == 0 && out.Reason == "" {
		return combat.Fail(combat.ReasonNoTarget)
	}
	return out
}

func abilityName(ab world.Ability) string {
	if ab.Name != "" {
		return ab.Name
	}
	return ab.ID
}

// summonMinion spawns params.template next to the actor, linked to it for
// params.duration turns, while fewer than params.max of its summons live.
func (e *Executor) summonMinion(_ context.Context, ac *Context) combat.Outcome {
	e.mu.RLock()
	sp := e.spawner
	e.mu.RUnlock()
	template := ac.Params.String("template", "")
	if sp == nil || template == "" {
		return combat.Fail(combat.ReasonSpawnFailed)
	}
	limit := ac.Params.Int("max", DefaultSummonLimit)
	if countSummons(ac.World, ac.Actor.ID()) >= limit {
		return combat.Fail(combat.ReasonNoAction)
	}
	at, ok := freeNeighbour(ac.World, ac.Actor.Position())
	if !ok {
		return combat.Fail(combat.ReasonSpawnFailed)
	}
	link := world.Summon{Summoner: ac.Actor.ID(), Remaining: ac.Params.Int("duration", DefaultSummonTurns)}
	minion, err := sp.SpawnSummon(ac.World, template, at, link)
	if err != nil {
		e.logger.Warn("summon failed", zap.String("template", template), zap.Error(err))
		return combat.Fail(combat.ReasonSpawnFailed)
	}
	if mai, sai := minion.AI(), ac.Actor.AI(); mai != nil && sai != nil {
		mai.Faction = sai.Faction
		mai.InArena = sai.InArena
	}
	ac.World.Message(fmt.Sprintf("%s summons %s.", ac.Actor.Name(), minion.Name()), world.SeverityMagic)
	out := combat.Succeed(world.KindCast)
	out.Targets = []world.ActorID{minion.ID()}
	out.Point = at
	return out
}

func countSummons(w *world.World, summoner world.ActorID) int {
	n := 0
	for _, a := range w.ActorsWith(world.CompSummon) {
		if a.Summon().Summoner == summoner && a.IsAlive() {
			n++
		}
	}
	return n
}

var neighbourOffsets = [8][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}, {1, -1}, {1, 1}, {-1, 1}, {-1, -1}}

func freeNeighbour(w *world.World, p world.Position) (world.Position, bool) {
	for _, d := range neighbourOffsets {
		q := p.Add(d[0], d[1])
		if !w.Blocked(q, 0) {
			return q, true
		}
	}
	return world.Position{}, false
}
