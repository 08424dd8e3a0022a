package action_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/crawl/internal/game/action"
	"github.com/cory-johannsen/crawl/internal/game/behavior"
	"github.com/cory-johannsen/crawl/internal/game/combat"
	"github.com/cory-johannsen/crawl/internal/game/dice"
	"github.com/cory-johannsen/crawl/internal/game/spell"
	"github.com/cory-johannsen/crawl/internal/game/world"
)

// newExecutor returns an executor whose rolls never dodge and always use a 1.0 multiplier.
func newExecutor(t testing.TB, ints []int, logger *zap.Logger) *action.Executor {
	t.Helper()
	cfg := combat.DefaultConfig()
	cfg.MultiplierMin, cfg.MultiplierMax = 1.0, 1.0
	if ints == nil {
		ints = []int{99}
	}
	cr := combat.NewResolver(cfg, dice.NewRoller(dice.NewFixedSource(ints, nil), nil), nil)
	return action.NewExecutor(cr, spell.NewResolver(cr, nil, nil), logger)
}

func newWorld(t testing.TB, rows ...string) *world.World {
	t.Helper()
	if len(rows) == 0 {
		return world.New(world.NewGrid(10, 10), world.NewBufferLog())
	}
	g, err := world.ParseGrid(rows)
	require.NoError(t, err)
	return world.New(g, world.NewBufferLog())
}

func mob(w *world.World, name string, x, y int) *world.Actor {
	return w.Spawn(world.ActorSpec{
		Name:     name,
		Position: world.Position{X: x, Y: y},
		Health:   &world.Health{HP: 20, MaxHP: 20},
		Stats:    &world.Stats{Strength: 10},
		Mana:     &world.Mana{Current: 20, Max: 20},
		AI:       &world.AI{Faction: world.FactionHostile},
		Energy:   world.NewEnergy(100, nil),
	})
}

func exec(e *action.Executor, w *world.World, id string, a, tgt *world.Actor, params behavior.Params) combat.Outcome {
	return e.Execute(context.Background(), id, &action.Context{World: w, Actor: a, Target: tgt, Params: params})
}

func TestMoveToward_PrefersLargerAxis(t *testing.T) {
	w := newWorld(t)
	e := newExecutor(t, nil, nil)
	a := mob(w, "orc", 1, 1)
	tgt := mob(w, "knight", 2, 5)

	out := exec(e, w, action.MoveTowardTarget, a, tgt, nil)
	require.True(t, out.Success)
	assert.True(t, out.Moved)
	assert.Equal(t, world.Position{X: 1, Y: 2}, a.Position())
}

func TestMoveToward_FallsBackToOtherAxisWhenBlocked(t *testing.T) {
	w := newWorld(t,
		"......",
		"......",
		".#....",
		"......",
		"......",
	)
	e := newExecutor(t, nil, nil)
	a := mob(w, "orc", 1, 1)
	tgt := mob(w, "knight", 2, 4)

	out := exec(e, w, action.MoveTowardTarget, a, tgt, nil)
	require.True(t, out.Moved)
	assert.Equal(t, world.Position{X: 2, Y: 1}, a.Position())
}

func TestMoveToward_BlockedOnBothAxesIsNotAFailure(t *testing.T) {
	w := newWorld(t,
		"...",
		"..#",
		".#.",
	)
	e := newExecutor(t, nil, nil)
	a := mob(w, "orc", 1, 1)
	tgt := mob(w, "knight", 2, 2)

	out := exec(e, w, action.MoveTowardTarget, a, tgt, nil)
	assert.True(t, out.Success)
	assert.False(t, out.Moved)
	assert.False(t, out.Acted)
	assert.Equal(t, world.Position{X: 1, Y: 1}, a.Position())
}

func TestMoveToward_BlockingActorStopsMovement(t *testing.T) {
	w := newWorld(t)
	e := newExecutor(t, nil, nil)
	a := mob(w, "orc", 1, 1)
	tgt := mob(w, "knight", 2, 1)
	exec(e, w, action.MoveTowardTarget, a, tgt, nil)
	assert.Equal(t, world.Position{X: 1, Y: 1}, a.Position())
}

func TestMoveAway(t *testing.T) {
	w := newWorld(t)
	e := newExecutor(t, nil, nil)
	a := mob(w, "orc", 4, 4)
	tgt := mob(w, "knight", 2, 3)
	out := exec(e, w, action.MoveAwayFromTarget, a, tgt, nil)
	require.True(t, out.Moved)
	assert.Equal(t, world.Position{X: 5, Y: 4}, a.Position())
}

func TestMove_NoTarget(t *testing.T) {
	w := newWorld(t)
	e := newExecutor(t, nil, nil)
	out := exec(e, w, action.MoveTowardTarget, mob(w, "orc", 1, 1), nil, nil)
	assert.Equal(t, combat.ReasonNoTarget, out.Reason)
}

func TestMoveRandomly_AppliesRolledDelta(t *testing.T) {
	w := newWorld(t)
	// Intn(3) draws 2 then 0: delta (+1, -1).
	e := newExecutor(t, []int{2, 0}, nil)
	a := mob(w, "rat", 4, 4)
	out := exec(e, w, action.MoveRandomly, a, nil, nil)
	require.True(t, out.Moved)
	assert.Equal(t, world.Position{X: 5, Y: 3}, a.Position())
}

func TestMoveRandomly_ZeroDeltaStays(t *testing.T) {
	w := newWorld(t)
	e := newExecutor(t, []int{1, 1}, nil)
	a := mob(w, "rat", 4, 4)
	out := exec(e, w, action.MoveRandomly, a, nil, nil)
	assert.True(t, out.Success)
	assert.False(t, out.Moved)
}

func TestMeleeAttack_RequiresAdjacency(t *testing.T) {
	w := newWorld(t)
	e := newExecutor(t, nil, nil)
	a := mob(w, "orc", 1, 1)
	far := mob(w, "knight", 4, 1)
	assert.Equal(t, combat.ReasonOutOfRange, exec(e, w, action.MeleeAttack, a, far, nil).Reason)

	near := mob(w, "squire", 2, 2)
	out := exec(e, w, action.MeleeAttack, a, near, nil)
	require.True(t, out.Success)
	assert.Equal(t, 10, out.Damage)
	assert.Equal(t, action.MeleeAttack, a.AI().LastAction)
	assert.Equal(t, action.MeleeAttack, out.ActionID)
}

// TestMeleeAttack_KillRemovesOnce covers removal of a slain non-player exactly once.
func TestMeleeAttack_KillRemovesOnce(t *testing.T) {
	w := newWorld(t)
	e := newExecutor(t, nil, nil)
	a := mob(w, "orc", 1, 1)
	v := mob(w, "rat", 2, 1)
	v.Health().HP = 3

	out := exec(e, w, action.MeleeAttack, a, v, nil)
	require.True(t, out.Killed)
	_, ok := w.Actor(v.ID())
	assert.False(t, ok)
	assert.False(t, w.Remove(v.ID()))
}

func TestRangedAttack_UsesRangeParam(t *testing.T) {
	w := newWorld(t)
	e := newExecutor(t, nil, nil)
	a := mob(w, "archer", 0, 0)
	tgt := mob(w, "knight", 5, 0)
	assert.Equal(t, combat.ReasonOutOfRange, exec(e, w, action.RangedAttack, a, tgt, behavior.Params{"range": 3}).Reason)
	assert.True(t, exec(e, w, action.RangedAttack, a, tgt, nil).Success)
}

func TestCastSpell_Delegates(t *testing.T) {
	w := newWorld(t)
	e := newExecutor(t, nil, nil)
	a := mob(w, "adept", 0, 0)
	a.Learn(world.Spell{ID: "spark", TargetType: world.TargetEntity, ManaCost: 5, BaseDamage: 3, Range: 5})
	tgt := mob(w, "knight", 2, 0)

	out := exec(e, w, action.CastSpell, a, tgt, behavior.Params{"spell": "spark"})
	require.True(t, out.Success, out.Reason)
	assert.Equal(t, world.KindCast, out.Kind)
	assert.Equal(t, 15, a.Mana().Current)

	a.Mana().Current = 1
	out = exec(e, w, action.CastSpell, a, tgt, behavior.Params{"spell": "spark"})
	assert.Equal(t, combat.ReasonInsufficientMana, out.Reason)
	assert.Equal(t, 1, a.Mana().Current)
}

func TestSetState(t *testing.T) {
	w := newWorld(t)
	e := newExecutor(t, nil, nil)
	a := mob(w, "orc", 0, 0)
	out := exec(e, w, action.SetState, a, nil, behavior.Params{"state": "berserk", "countdown": 3})
	require.True(t, out.Success)
	assert.Equal(t, "berserk", a.AI().State)
	assert.Equal(t, 3, a.AI().StateCountdown)
	assert.Equal(t, combat.ReasonNoAction, exec(e, w, action.SetState, a, nil, nil).Reason)
}

func TestUseSpecialAbility_HealFlatAndPercent(t *testing.T) {
	w := newWorld(t)
	e := newExecutor(t, nil, nil)
	a := mob(w, "troll", 0, 0)
	a.AI().Abilities = []world.Ability{
		{ID: "lick", Effect: world.EffectHeal, Amount: 4},
		{ID: "regrow", Effect: world.EffectHeal, Amount: 50, Percent: true, Cooldown: 3},
	}
	a.Health().HP = 2

	require.True(t, exec(e, w, action.UseSpecialAbility, a, nil, behavior.Params{"ability": "lick"}).Success)
	assert.Equal(t, 6, a.Health().HP)
	require.True(t, exec(e, w, action.UseSpecialAbility, a, nil, behavior.Params{"ability": "regrow"}).Success)
	assert.Equal(t, 16, a.Health().HP)

	// Clamped at max and gated by cooldown.
	assert.Equal(t, combat.ReasonOnCooldown, exec(e, w, action.UseSpecialAbility, a, nil, behavior.Params{"ability": "regrow"}).Reason)
	for i := 0; i < 3; i++ {
		w.AdvanceTurn()
	}
	require.True(t, exec(e, w, action.UseSpecialAbility, a, nil, behavior.Params{"ability": "regrow"}).Success)
	assert.Equal(t, 20, a.Health().HP)

	assert.Equal(t, combat.ReasonAbilityNotFound, exec(e, w, action.UseSpecialAbility, a, nil, behavior.Params{"ability": "fly"}).Reason)
}

func TestUseSpecialAbility_AttackRepeatsMelee(t *testing.T) {
	w := newWorld(t)
	e := newExecutor(t, nil, nil)
	a := mob(w, "hydra", 0, 0)
	a.AI().Abilities = []world.Ability{{ID: "multi_bite", Effect: world.EffectAttack, Repeat: 3}}
	v := mob(w, "knight", 1, 0)
	v.Health().MaxHP, v.Health().HP = 100, 100

	out := exec(e, w, action.UseSpecialAbility, a, v, behavior.Params{"ability": "multi_bite"})
	require.True(t, out.Success)
	assert.Equal(t, 30, out.Damage)
	assert.Equal(t, 70, v.Health().HP)
}

func TestUseSpecialAbility_AttackStopsWhenTargetDies(t *testing.T) {
	w := newWorld(t)
	e := newExecutor(t, nil, nil)
	a := mob(w, "hydra", 0, 0)
	a.AI().Abilities = []world.Ability{{ID: "multi_bite", Effect: world.EffectAttack, Repeat: 5}}
	v := mob(w, "rat", 1, 0)
	out := exec(e, w, action.UseSpecialAbility, a, v, behavior.Params{"ability": "multi_bite"})
	assert.True(t, out.Killed)
	assert.Equal(t, 20, out.Damage)
}

func TestAliasDispatchesToRegisteredHandler(t *testing.T) {
	w := newWorld(t)
	e := newExecutor(t, nil, nil)
	a := mob(w, "hydra", 0, 0)
	a.AI().Abilities = []world.Ability{{ID: "regrow", Effect: world.EffectHeal, Amount: 5}}
	a.Health().HP = 10

	out := exec(e, w, "regrowHeads", a, nil, behavior.Params{"as": action.UseSpecialAbility, "ability": "regrow"})
	require.True(t, out.Success)
	assert.Equal(t, 15, a.Health().HP)
	assert.Equal(t, "regrowHeads", a.AI().LastAction)
	assert.True(t, e.Has("regrowHeads", behavior.Params{"as": action.UseSpecialAbility}))
}

func TestUnknownActionWarns(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	w := newWorld(t)
	e := newExecutor(t, nil, zap.New(core))
	a := mob(w, "orc", 0, 0)

	out := exec(e, w, "danceWildly", a, nil, nil)
	assert.False(t, out.Success)
	assert.Equal(t, combat.ReasonUnknownAction, out.Reason)
	assert.Equal(t, 1, logs.FilterMessage("unknown action").Len())
	assert.Empty(t, a.AI().LastAction)
}

func TestEnforceEnergyRejectsUnaffordable(t *testing.T) {
	w := newWorld(t)
	e := newExecutor(t, nil, nil)
	a := mob(w, "adept", 0, 0)
	a.Energy().Current = 1200
	tgt := mob(w, "knight", 1, 0)

	ac := &action.Context{World: w, Actor: a, Target: tgt, EnforceEnergy: true}
	out := e.Execute(context.Background(), action.CastSpell, ac)
	assert.Equal(t, combat.ReasonInsufficientEnergy, out.Reason)
	assert.Equal(t, 20, a.Mana().Current)
	assert.True(t, e.Execute(context.Background(), action.MeleeAttack, ac).Success)
}

func TestObserveAndCancel(t *testing.T) {
	w := newWorld(t)
	e := newExecutor(t, nil, nil)
	a := mob(w, "orc", 0, 0)
	var got []action.Resolved
	cancel := e.Observe(func(r action.Resolved) { got = append(got, r) })

	exec(e, w, action.Wait, a, nil, nil)
	exec(e, w, "nope", a, nil, nil)
	cancel()
	exec(e, w, action.Wait, a, nil, nil)

	require.Len(t, got, 2)
	assert.Equal(t, action.Wait, got[0].ActionID)
	assert.Equal(t, a.ID(), got[0].Actor)
	assert.True(t, got[0].Outcome.Success)
	assert.Equal(t, combat.ReasonUnknownAction, got[1].Outcome.Reason)
}

func TestRegisterCustomHandler(t *testing.T) {
	w := newWorld(t)
	e := newExecutor(t, nil, nil)
	a := mob(w, "orc", 0, 0)
	e.Register("roar", world.KindWait, func(_ context.Context, ac *action.Context) combat.Outcome {
		ac.World.Message(ac.Actor.Name()+" roars!", world.SeverityInfo)
		return combat.Outcome{Success: true, Acted: true}
	})
	out := exec(e, w, "roar", a, nil, nil)
	assert.True(t, out.Success)
	assert.Equal(t, world.KindWait, out.Kind)
	kind, ok := e.Kind("roar", nil)
	require.True(t, ok)
	assert.Equal(t, world.KindWait, kind)
}

type fakeSpawner struct {
	err  error
	made []world.Summon
}

func (f *fakeSpawner) SpawnSummon(w *world.World, template string, at world.Position, link world.Summon) (*world.Actor, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.made = append(f.made, link)
	return w.Spawn(world.ActorSpec{
		Name:     template,
		Position: at,
		Health:   &world.Health{HP: 5, MaxHP: 5},
		AI:       &world.AI{},
		Summon:   &link,
	}), nil
}

func TestSummonMinion(t *testing.T) {
	w := newWorld(t)
	e := newExecutor(t, nil, nil)
	sp := &fakeSpawner{}
	e.SetSpawner(sp)
	necro := mob(w, "necromancer", 3, 3)
	params := behavior.Params{"template": "skeleton", "duration": 4, "max": 2}

	out := exec(e, w, action.SummonMinion, necro, nil, params)
	require.True(t, out.Success, out.Reason)
	require.Len(t, out.Targets, 1)
	minion, ok := w.Actor(out.Targets[0])
	require.True(t, ok)
	assert.Equal(t, world.Position{X: 3, Y: 2}, minion.Position())
	assert.Equal(t, necro.ID(), minion.Summon().Summoner)
	assert.Equal(t, 4, minion.Summon().Remaining)
	assert.Equal(t, world.FactionHostile, minion.AI().Faction)

	require.True(t, exec(e, w, action.SummonMinion, necro, nil, params).Success)
	assert.Equal(t, combat.ReasonNoAction, exec(e, w, action.SummonMinion, necro, nil, params).Reason)
}

func TestSummonMinion_Failures(t *testing.T) {
	w := newWorld(t)
	e := newExecutor(t, nil, nil)
	necro := mob(w, "necromancer", 3, 3)
	assert.Equal(t, combat.ReasonSpawnFailed, exec(e, w, action.SummonMinion, necro, nil, behavior.Params{"template": "skeleton"}).Reason)

	e.SetSpawner(&fakeSpawner{err: errors.New("no such template")})
	assert.Equal(t, combat.ReasonSpawnFailed, exec(e, w, action.SummonMinion, necro, nil, behavior.Params{"template": "skeleton"}).Reason)
}

func TestProperty_MovementNeverEntersWalls(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		g := world.NewGrid(8, 8)
		for i := 0; i < 12; i++ {
			g.SetWall(world.Position{X: rapid.IntRange(0, 7).Draw(rt, "wx"), Y: rapid.IntRange(0, 7).Draw(rt, "wy")}, true)
		}
		start := world.Position{X: rapid.IntRange(0, 7).Draw(rt, "ax"), Y: rapid.IntRange(0, 7).Draw(rt, "ay")}
		g.SetWall(start, false)
		w := world.New(g, nil)
		e := newExecutor(t, nil, nil)
		a := mob(w, "orc", start.X, start.Y)
		tgt := mob(w, "knight", rapid.IntRange(-2, 10).Draw(rt, "tx"), rapid.IntRange(-2, 10).Draw(rt, "ty"))
		id := rapid.SampledFrom([]string{action.MoveTowardTarget, action.MoveAwayFromTarget}).Draw(rt, "action")

		for i := 0; i < 10; i++ {
			exec(e, w, id, a, tgt, nil)
			if !g.Walkable(a.Position()) {
				rt.Fatalf("actor entered unwalkable tile %+v", a.Position())
			}
			if a.Position().Chebyshev(start) > i+1 {
				rt.Fatalf("actor moved more than one tile per step")
			}
		}
	})
}
