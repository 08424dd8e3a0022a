package spell_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/crawl/internal/game/combat"
	"github.com/cory-johannsen/crawl/internal/game/dice"
	"github.com/cory-johannsen/crawl/internal/game/spell"
	"github.com/cory-johannsen/crawl/internal/game/world"
	"github.com/cory-johannsen/crawl/internal/scripting"
)

const (
	spellsDir  = "../../../content/spells"
	scriptsDir = "../../../content/scripts"
)

func newWorld(t testing.TB) (*world.World, *world.BufferLog) {
	t.Helper()
	log := world.NewBufferLog()
	return world.New(world.NewGrid(16, 16), log), log
}

func newResolver(p spell.Provider) *spell.Resolver {
	cr := combat.NewResolver(combat.DefaultConfig(), dice.NewRoller(dice.NewFixedSource([]int{99}, []float64{0.5}), nil), nil)
	return spell.NewResolver(cr, p, nil)
}

func caster(w *world.World, x, y, mana, intel int, spells ...world.Spell) *world.Actor {
	return w.Spawn(world.ActorSpec{
		Name:     "adept",
		Position: world.Position{X: x, Y: y},
		Health:   &world.Health{HP: 20, MaxHP: 20},
		Stats:    &world.Stats{Intelligence: intel},
		Mana:     &world.Mana{Current: mana, Max: 50},
		Spells:   spells,
		AI:       &world.AI{},
	})
}

func dummy(w *world.World, name string, x, y, hp int) *world.Actor {
	return w.Spawn(world.ActorSpec{
		Name:     name,
		Position: world.Position{X: x, Y: y},
		Health:   &world.Health{HP: hp, MaxHP: hp},
	})
}

var bolt = world.Spell{ID: "bolt", Name: "Bolt", Element: "fire", TargetType: world.TargetEntity, ManaCost: 10, BaseDamage: 5, Range: 6, Cooldown: 2}

func TestDamage(t *testing.T) {
	assert.Equal(t, 11, spell.Damage(5, 10))
	assert.Equal(t, 5, spell.Damage(5, 1))
	assert.Equal(t, 5, spell.Damage(5, 0))
}

func TestCast_InsufficientManaLeavesManaUnchanged(t *testing.T) {
	w, _ := newWorld(t)
	c := caster(w, 1, 1, 5, 10, bolt)
	tgt := dummy(w, "rat", 3, 1, 30)

	out := newResolver(nil).Cast(context.Background(), spell.Request{World: w, Caster: c, Target: tgt, SpellID: "bolt"})
	assert.False(t, out.Success)
	assert.Equal(t, combat.ReasonInsufficientMana, out.Reason)
	assert.Equal(t, 5, c.Mana().Current)
	assert.Equal(t, 30, tgt.Health().HP)
}

func TestCast_BoltDealsScaledDamageAndSetsCooldown(t *testing.T) {
	w, log := newWorld(t)
	c := caster(w, 1, 1, 20, 10, bolt)
	tgt := dummy(w, "rat", 4, 3, 30)

	out := newResolver(nil).Cast(context.Background(), spell.Request{World: w, Caster: c, Target: tgt, SpellID: "bolt"})
	require.True(t, out.Success, out.Reason)
	assert.Equal(t, 11, out.Damage)
	assert.Equal(t, 19, tgt.Health().HP)
	assert.Equal(t, 10, c.Mana().Current)
	assert.Equal(t, 2, c.AI().SpellCooldown("bolt"))
	assert.Equal(t, world.KindCast, out.Kind)
	assert.Equal(t, "fire", out.Element)
	assert.True(t, log.Contains("Bolt strikes rat"))

	again := newResolver(nil).Cast(context.Background(), spell.Request{World: w, Caster: c, Target: tgt, SpellID: "bolt"})
	assert.Equal(t, combat.ReasonOnCooldown, again.Reason)
	assert.Equal(t, 10, c.Mana().Current)
}

func TestCast_OutOfRangeUsesChebyshev(t *testing.T) {
	w, _ := newWorld(t)
	c := caster(w, 0, 0, 20, 0, bolt)
	near := dummy(w, "near", 6, 6, 10)
	far := dummy(w, "far", 7, 2, 10)
	r := newResolver(nil)

	assert.True(t, r.Cast(context.Background(), spell.Request{World: w, Caster: c, Target: near, SpellID: "bolt"}).Success)
	c.AI().SetSpellCooldown("bolt", 0)
	out := r.Cast(context.Background(), spell.Request{World: w, Caster: c, Target: far, SpellID: "bolt"})
	assert.Equal(t, combat.ReasonOutOfRange, out.Reason)
	assert.Equal(t, 10, c.Mana().Current)
}

func TestCast_EntitySpellNeedsLivingTarget(t *testing.T) {
	w, _ := newWorld(t)
	c := caster(w, 0, 0, 20, 0, bolt)
	out := newResolver(nil).Cast(context.Background(), spell.Request{World: w, Caster: c, SpellID: "bolt"})
	assert.Equal(t, combat.ReasonNoTarget, out.Reason)
	assert.Equal(t, 20, c.Mana().Current)
}

func TestCast_UnknownSpellFailsCleanly(t *testing.T) {
	w, _ := newWorld(t)
	c := caster(w, 0, 0, 20, 0)
	tgt := dummy(w, "rat", 1, 0, 10)
	out := newResolver(spell.StaticProvider{}).Cast(context.Background(), spell.Request{World: w, Caster: c, Target: tgt, SpellID: "meteor"})
	assert.False(t, out.Success)
	assert.Equal(t, combat.ReasonSpellNotFound, out.Reason)
	assert.Equal(t, "meteor", out.SpellID)
}

// TestCast_AreaUsesChebyshevRadius hits (7,6) but not (8,5) around (5,5).
func TestCast_AreaUsesChebyshevRadius(t *testing.T) {
	w, _ := newWorld(t)
	blast := world.Spell{ID: "blast", TargetType: world.TargetLocation, ManaCost: 5, BaseDamage: 4, Range: 10, AOERadius: 2}
	c := caster(w, 0, 0, 20, 5, blast)
	inside := dummy(w, "inside", 7, 6, 20)
	outside := dummy(w, "outside", 8, 5, 20)
	center := world.Position{X: 5, Y: 5}

	out := newResolver(nil).Cast(context.Background(), spell.Request{World: w, Caster: c, Point: &center, SpellID: "blast"})
	require.True(t, out.Success)
	assert.Equal(t, []world.ActorID{inside.ID()}, out.Targets)
	assert.Equal(t, 13, inside.Health().HP)
	assert.Equal(t, 20, outside.Health().HP)
}

func TestCast_AreaSkipsCasterKillsOthersSparesImmortal(t *testing.T) {
	w, _ := newWorld(t)
	blast := world.Spell{ID: "blast", TargetType: world.TargetLocation, ManaCost: 5, BaseDamage: 50, Range: 10, AOERadius: 2}
	c := caster(w, 5, 5, 20, 0, blast)
	weak := dummy(w, "weak", 5, 6, 5)
	saint := w.Spawn(world.ActorSpec{Name: "saint", Position: world.Position{X: 6, Y: 6}, Health: &world.Health{HP: 5, MaxHP: 5, Immortal: true}})
	center := world.Position{X: 5, Y: 5}

	out := newResolver(nil).Cast(context.Background(), spell.Request{World: w, Caster: c, Point: &center, SpellID: "blast"})
	require.True(t, out.Success)
	assert.True(t, out.Killed)
	assert.Equal(t, 20, c.Health().HP)
	_, ok := w.Actor(weak.ID())
	assert.False(t, ok)
	assert.Equal(t, 1, saint.Health().HP)
	assert.False(t, saint.Health().IsDead())
}

func TestCast_AreaInIsolatedEncounterKeepsBodies(t *testing.T) {
	w, _ := newWorld(t)
	blast := world.Spell{ID: "blast", TargetType: world.TargetLocation, BaseDamage: 50, AOERadius: 2}
	c := caster(w, 0, 0, 0, 0, blast)
	v := dummy(w, "victim", 1, 1, 5)
	out := newResolver(nil).Cast(context.Background(), spell.Request{World: w, Caster: c, Target: v, SpellID: "blast", Encounter: combat.Encounter{Isolated: true}})
	require.True(t, out.Killed)
	_, ok := w.Actor(v.ID())
	assert.True(t, ok)
}

func TestCast_RealProviderSelfSpellDelegates(t *testing.T) {
	w, _ := newWorld(t)
	c := caster(w, 0, 0, 20, 0)
	var got spell.Target
	p := spell.StaticProvider{"ward": {
		Spell: world.Spell{ID: "ward", TargetType: world.TargetSelf, ManaCost: 4},
		Cast: func(_ context.Context, a *world.Actor, s world.Spell, tgt spell.Target) (bool, error) {
			got = tgt
			return true, nil
		},
	}}
	out := newResolver(p).Cast(context.Background(), spell.Request{World: w, Caster: c, SpellID: "ward"})
	require.True(t, out.Success)
	assert.Equal(t, c.ID(), got.Actor.ID())
	assert.Equal(t, 16, c.Mana().Current)
	assert.Zero(t, out.Damage)
}

func TestCast_CastRoutineErrorBecomesReason(t *testing.T) {
	w, _ := newWorld(t)
	c := caster(w, 0, 0, 20, 0)
	p := spell.StaticProvider{"hex": {
		Spell: world.Spell{ID: "hex", TargetType: world.TargetSelf},
		Cast: func(context.Context, *world.Actor, world.Spell, spell.Target) (bool, error) {
			return false, errors.New("the runes fizzle")
		},
	}}
	out := newResolver(p).Cast(context.Background(), spell.Request{World: w, Caster: c, SpellID: "hex"})
	assert.False(t, out.Success)
	assert.Equal(t, "the runes fizzle", out.Reason)
}

func TestCast_CastRoutinePanicIsRecovered(t *testing.T) {
	w, _ := newWorld(t)
	c := caster(w, 0, 0, 20, 0)
	p := spell.StaticProvider{"hex": {
		Spell: world.Spell{ID: "hex", TargetType: world.TargetSelf},
		Cast: func(context.Context, *world.Actor, world.Spell, spell.Target) (bool, error) {
			panic("cursed")
		},
	}}
	var out combat.Outcome
	require.NotPanics(t, func() {
		out = newResolver(p).Cast(context.Background(), spell.Request{World: w, Caster: c, SpellID: "hex"})
	})
	assert.False(t, out.Success)
	assert.Equal(t, "cursed", out.Reason)
}

func TestLookup_LearnedDataWinsOverProvider(t *testing.T) {
	w, _ := newWorld(t)
	learned := bolt
	learned.BaseDamage = 99
	learned.TargetType = ""
	c := caster(w, 0, 0, 20, 0, learned)
	p := spell.StaticProvider{"bolt": {Spell: world.Spell{ID: "bolt", TargetType: world.TargetLocation, BaseDamage: 1}}}

	impl, ok := newResolver(p).Lookup(c, "bolt")
	require.True(t, ok)
	assert.Equal(t, 99, impl.Spell.BaseDamage)
	assert.Equal(t, world.TargetLocation, impl.Spell.TargetType)
}

func TestChoose_SkipsCooldownAndUnaffordable(t *testing.T) {
	w, _ := newWorld(t)
	cheap := world.Spell{ID: "cheap", ManaCost: 1}
	big := world.Spell{ID: "big", ManaCost: 40}
	c := caster(w, 0, 0, 10, 0, big, bolt, cheap)
	c.AI().SetSpellCooldown("bolt", 3)
	assert.Equal(t, "cheap", spell.Choose(c))

	bare := caster(w, 1, 1, 10, 0)
	assert.Equal(t, spell.FallbackSpell.ID, spell.Choose(bare))
}

func TestCast_NoSpellIDUsesFallback(t *testing.T) {
	w, _ := newWorld(t)
	c := caster(w, 0, 0, 10, 0)
	tgt := dummy(w, "rat", 2, 0, 20)
	out := newResolver(nil).Cast(context.Background(), spell.Request{World: w, Caster: c, Target: tgt})
	require.True(t, out.Success, out.Reason)
	assert.Equal(t, spell.FallbackSpell.ID, out.SpellID)
	assert.Equal(t, spell.FallbackSpell.BaseDamage, out.Damage)
}

func TestLoadCatalog_ContentDir(t *testing.T) {
	cat, err := spell.LoadCatalog(spellsDir)
	require.NoError(t, err)
	for _, id := range []string{"firebolt", "frost_shard", "shadow_bolt", "fireball", "mend", "lay_hands"} {
		assert.True(t, cat.Has(id), id)
	}
	fb, _ := cat.Get("fireball")
	assert.Equal(t, world.TargetLocation, fb.TargetType)
	assert.Equal(t, 2, fb.AOERadius)
}

func TestNewCatalog_Validation(t *testing.T) {
	_, err := spell.NewCatalog(world.Spell{ID: "a"}, world.Spell{ID: "a"})
	assert.Error(t, err)
	_, err = spell.NewCatalog(world.Spell{})
	assert.Error(t, err)
	_, err = spell.NewCatalog(world.Spell{ID: "x", TargetType: "cone"})
	assert.Error(t, err)
	c, err := spell.NewCatalog(world.Spell{ID: "x"})
	require.NoError(t, err)
	s, _ := c.Get("x")
	assert.Equal(t, world.TargetEntity, s.TargetType)
}

func newLuaProvider(t *testing.T, w *world.World) *spell.LuaProvider {
	t.Helper()
	cat, err := spell.LoadCatalog(spellsDir)
	require.NoError(t, err)
	m := scripting.NewManager(dice.NewRoller(dice.NewFixedSource([]int{1}, nil), nil), nil, 0)
	t.Cleanup(m.Close)
	require.NoError(t, m.LoadDir(scriptsDir))
	p := spell.NewLuaProvider(cat, m)
	p.Bind(w)
	return p
}

func TestLuaProvider_MendHealsCaster(t *testing.T) {
	w, log := newWorld(t)
	p := newLuaProvider(t, w)
	c := caster(w, 0, 0, 20, 0)
	c.Health().HP = 5
	c.Learn(world.Spell{ID: "mend"})

	out := newResolver(p).Cast(context.Background(), spell.Request{World: w, Caster: c, SpellID: "mend"})
	require.True(t, out.Success, out.Reason)
	// 2d4+2 with every die showing 2.
	assert.Equal(t, 11, c.Health().HP)
	assert.True(t, log.Contains("adept mends 6 hit points."))
}

func TestLuaProvider_LayHandsHealsTarget(t *testing.T) {
	w, _ := newWorld(t)
	p := newLuaProvider(t, w)
	c := caster(w, 0, 0, 20, 0)
	friend := dummy(w, "squire", 1, 0, 30)
	friend.Health().HP = 10

	out := newResolver(p).Cast(context.Background(), spell.Request{World: w, Caster: c, Target: friend, SpellID: "lay_hands"})
	require.True(t, out.Success, out.Reason)
	assert.Equal(t, 22, friend.Health().HP)
	assert.Equal(t, 12, c.Mana().Current)
}

func TestLuaProvider_MissingRoutineFails(t *testing.T) {
	w, _ := newWorld(t)
	cat, err := spell.NewCatalog(world.Spell{ID: "ghost", TargetType: world.TargetSelf, Script: "no_such_fn"})
	require.NoError(t, err)
	m := scripting.NewManager(dice.NewRoller(dice.NewSeededSource(1), nil), nil, 0)
	defer m.Close()
	c := caster(w, 0, 0, 5, 0)
	out := newResolver(spell.NewLuaProvider(cat, m)).Cast(context.Background(), spell.Request{World: w, Caster: c, SpellID: "ghost"})
	assert.False(t, out.Success)
	assert.Contains(t, out.Reason, "no_such_fn")
}

func smiteProvider(t *testing.T, w *world.World) *spell.LuaProvider {
	t.Helper()
	cat, err := spell.NewCatalog(world.Spell{ID: "smite", Name: "Smite", Element: "holy", ManaCost: 2, Script: "cast_smite"})
	require.NoError(t, err)
	m := scripting.NewManager(dice.NewRoller(dice.NewSeededSource(1), nil), nil, 0)
	t.Cleanup(m.Close)
	require.NoError(t, m.LoadString("smite", `
function cast_smite(caster, target, spell)
  return engine.damage(target.id, 100) > 0
end`))
	p := spell.NewLuaProvider(cat, m)
	p.Bind(w)
	return p
}

func TestLuaProvider_ScriptKillRunsDeathHandling(t *testing.T) {
	w, log := newWorld(t)
	p := smiteProvider(t, w)
	c := caster(w, 0, 0, 20, 0)
	victim := dummy(w, "imp", 2, 0, 5)

	out := newResolver(p).Cast(context.Background(), spell.Request{World: w, Caster: c, Target: victim, SpellID: "smite"})
	require.True(t, out.Success, out.Reason)
	assert.True(t, out.Killed)
	assert.Equal(t, []world.ActorID{victim.ID()}, out.Targets)
	_, ok := w.Actor(victim.ID())
	assert.False(t, ok)
	assert.True(t, log.Contains("imp is slain by adept!"))
}

func TestLuaProvider_ScriptKillInIsolatedEncounterKeepsBody(t *testing.T) {
	w, log := newWorld(t)
	p := smiteProvider(t, w)
	c := caster(w, 0, 0, 20, 0)
	victim := dummy(w, "imp", 2, 0, 5)

	out := newResolver(p).Cast(context.Background(), spell.Request{
		World: w, Caster: c, Target: victim, SpellID: "smite", Encounter: combat.Encounter{Isolated: true},
	})
	assert.True(t, out.Killed)
	_, ok := w.Actor(victim.ID())
	assert.True(t, ok)
	assert.True(t, log.Contains("slain"))
}

func TestProperty_ManaStaysInBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		w := world.New(world.NewGrid(16, 16), nil)
		mana := rapid.IntRange(0, 50).Draw(rt, "mana")
		cost := rapid.IntRange(0, 60).Draw(rt, "cost")
		s := world.Spell{ID: "p", ManaCost: cost, BaseDamage: 1, Range: 20}
		c := caster(w, 0, 0, mana, 0, s)
		tgt := dummy(w, "t", 1, 1, 100)
		out := newResolver(nil).Cast(context.Background(), spell.Request{World: w, Caster: c, Target: tgt, SpellID: "p"})
		cur := c.Mana().Current
		if cur < 0 || cur > c.Mana().Max {
			rt.Fatalf("mana out of bounds: %d", cur)
		}
		if cost > mana && (out.Success || cur != mana) {
			rt.Fatalf("unaffordable cast changed mana: %d -> %d", mana, cur)
		}
		if cost <= mana && cur != mana-cost {
			rt.Fatalf("expected mana %d, got %d", mana-cost, cur)
		}
	})
}
