package condition_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/crawl/internal/game/condition"
	"github.com/cory-johannsen/crawl/internal/game/world"
)

type fixture struct {
	w      *world.World
	actor  *world.Actor
	target *world.Actor
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	g, err := world.ParseGrid([]string{
		"..........",
		".....#....",
		"..........",
	})
	require.NoError(t, err)
	w := world.New(g, nil)
	actor := w.Spawn(world.ActorSpec{
		Name:     "goblin shaman",
		Position: world.Position{X: 0, Y: 0},
		Health:   &world.Health{HP: 4, MaxHP: 10},
		Mana:     &world.Mana{Current: 7, Max: 10},
		Spells:   []world.Spell{{ID: "firebolt"}},
		AI:       &world.AI{State: "hunt", LastAction: "meleeAttack", SpellCooldowns: map[string]int{"firebolt": 2}},
	})
	target := w.Spawn(world.ActorSpec{
		Name:     "hero",
		Position: world.Position{X: 3, Y: 4},
		Health:   &world.Health{HP: 10, MaxHP: 10},
		Player:   true,
	})
	return fixture{w: w, actor: actor, target: target}
}

func (f fixture) ctx() condition.Context {
	return condition.Context{World: f.w, Actor: f.actor, Target: f.target}
}

func TestEvaluate_NilIsTrue(t *testing.T) {
	f := newFixture(t)
	assert.True(t, condition.NewEvaluator(nil).Evaluate(nil, f.ctx()))
}

func TestEvaluate_Kinds(t *testing.T) {
	f := newFixture(t)
	e := condition.NewEvaluator(nil)
	cases := []struct {
		name string
		c    condition.Condition
		want bool
	}{
		{"distance equal", condition.Condition{Type: "distanceToTarget", Value: "5"}, true},
		{"distance less", condition.Condition{Type: "distanceToTarget", Op: "<", Value: "5"}, false},
		{"distance le", condition.Condition{Type: "distanceToTarget", Op: "<=", Value: "5"}, true},
		{"hp absolute", condition.Condition{Type: "hp", Op: "<", Value: "5"}, true},
		{"hp percent", condition.Condition{Type: "hp", Op: "<", Value: "50%"}, true},
		{"hp percent ge", condition.Condition{Type: "hp", Op: ">=", Value: "50%"}, false},
		{"last action", condition.Condition{Type: "lastAction", Value: "meleeAttack"}, true},
		{"last action ne", condition.Condition{Type: "lastAction", Op: "!=", Value: "meleeAttack"}, false},
		{"state", condition.Condition{Type: "state", Value: "hunt"}, true},
		{"state other", condition.Condition{Type: "state", Value: "flee"}, false},
		{"has spell", condition.Condition{Type: "hasSpell", Value: "firebolt"}, true},
		{"has spell field", condition.Condition{Type: "hasSpell", Spell: "firebolt"}, true},
		{"missing spell", condition.Condition{Type: "hasSpell", Value: "meteor"}, false},
		{"cooldown", condition.Condition{Type: "spellCooldown", Spell: "firebolt", Op: ">", Value: "0"}, true},
		{"missing cooldown is zero", condition.Condition{Type: "spellCooldown", Spell: "meteor", Value: "0"}, true},
		{"unknown kind", condition.Condition{Type: "phaseOfMoon", Value: "full"}, false},
		{"unknown op", condition.Condition{Type: "hp", Op: "=~", Value: "4"}, false},
		{"bad number", condition.Condition{Type: "hp", Value: "lots"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := tc.c
			assert.Equal(t, tc.want, e.Evaluate(&c, f.ctx()))
		})
	}
}

func TestEvaluate_HasClearShot(t *testing.T) {
	f := newFixture(t)
	e := condition.NewEvaluator(nil)
	c := condition.Condition{Type: "hasClearShot"}
	assert.True(t, e.Evaluate(&c, f.ctx()))

	f.actor.SetPosition(world.Position{X: 3, Y: 1})
	f.target.SetPosition(world.Position{X: 8, Y: 1})
	assert.False(t, e.Evaluate(&c, f.ctx()))
	negated := condition.Condition{Type: "hasClearShot", Value: "false"}
	assert.True(t, e.Evaluate(&negated, f.ctx()))
}

// TestEvaluate_NoTargetIsFalse verifies target-dependent kinds fail closed.
func TestEvaluate_NoTargetIsFalse(t *testing.T) {
	f := newFixture(t)
	e := condition.NewEvaluator(nil)
	ctx := f.ctx()
	ctx.Target = nil
	for _, kind := range []string{"distanceToTarget", "hasClearShot"} {
		c := condition.Condition{Type: kind, Value: "1"}
		assert.False(t, e.Evaluate(&c, ctx), kind)
	}
}

func TestAll_ShortCircuitsInOrder(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zapcore.DebugLevel)
	e := condition.NewEvaluator(zap.New(core))
	// The second member would log a compile warning if it were evaluated.
	conds := []condition.Condition{
		{Type: "state", Value: "flee"},
		{Type: "expr", Expr: "this is not CEL"},
	}
	assert.False(t, e.All(conds, f.ctx()))
	assert.Equal(t, 0, logs.Len())

	conds[0].Value = "hunt"
	assert.False(t, e.All(conds, f.ctx()))
	assert.Equal(t, 1, logs.FilterMessage("condition: expr does not compile").Len())

	assert.True(t, e.All(nil, f.ctx()))
}

func TestEvaluate_Expr(t *testing.T) {
	f := newFixture(t)
	e := condition.NewEvaluator(nil)
	eval := func(src string) bool {
		c := condition.Condition{Type: "expr", Expr: src}
		return e.Evaluate(&c, f.ctx())
	}
	assert.True(t, eval(`actor.hp < 5 && target.player`))
	assert.True(t, eval(`actor.mana >= 7 && actor.state == "hunt"`))
	assert.True(t, eval(`actor.distance == 5.0`))
	assert.False(t, eval(`actor.hpPercent > 50.0`))
	assert.False(t, eval(`target.mana > 0`), "missing key evaluates to false")
	assert.False(t, eval(`actor.hp`), "non-boolean result")
	assert.False(t, eval(`)(`))
	// Cached program still evaluates against fresh state.
	f.actor.Health().Heal(10)
	assert.False(t, eval(`actor.hp < 5 && target.player`))
}

func TestList_UnmarshalSingleOrSequence(t *testing.T) {
	var single struct {
		Condition condition.List `yaml:"condition"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("condition: {type: hp, op: '<', value: 30%}\n"), &single))
	require.Len(t, single.Condition, 1)
	assert.Equal(t, "30%", single.Condition[0].Value)

	var seq struct {
		Condition condition.List `yaml:"condition"`
	}
	src := "condition:\n  - {type: distanceToTarget, op: '<=', value: 1.5}\n  - {type: hasClearShot, value: true}\n"
	require.NoError(t, yaml.Unmarshal([]byte(src), &seq))
	require.Len(t, seq.Condition, 2)
	assert.Equal(t, "1.5", seq.Condition[0].Value)
	assert.Equal(t, "true", seq.Condition[1].Value)
}

func TestProperty_CompareAgreesWithGo(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.Float64Range(-100, 100).Draw(rt, "a")
		b := rapid.Float64Range(-100, 100).Draw(rt, "b")
		want := map[string]bool{"": a == b, "==": a == b, "!=": a != b, "<": a < b, "<=": a <= b, ">": a > b, ">=": a >= b}
		for op, w := range want {
			if condition.Compare(op, a, b) != w {
				rt.Fatalf("Compare(%q, %v, %v) != %v", op, a, b, w)
			}
		}
	})
}
