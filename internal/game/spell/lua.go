package spell

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/crawl/internal/game/world"
	"github.com/cory-johannsen/crawl/internal/scripting"
)

// LuaProvider serves catalog spells whose cast routines live in a scripting VM.
// A spell's Script field names the global Lua function called as
// fn(caster, target, spell); target is nil for location casts with no actor.
type LuaProvider struct {
	catalog *Catalog
	scripts *scripting.Manager
}

// NewLuaProvider returns a provider over catalog and scripts.
//
// Precondition: catalog must not be nil. A nil scripts disables cast routines.
func NewLuaProvider(catalog *Catalog, scripts *scripting.Manager) *LuaProvider {
	if catalog == nil {
		panic("spell.NewLuaProvider: catalog must not be nil")
	}
	return &LuaProvider{catalog: catalog, scripts: scripts}
}

// HasSpell implements Provider.
func (p *LuaProvider) HasSpell(id string) bool {
	return p.catalog.Has(id)
}

// Implementation implements Provider.
func (p *LuaProvider) Implementation(id string) (Implementation, bool) {
	s, ok := p.catalog.Get(id)
	if !ok {
		return Implementation{}, false
	}
	impl := Implementation{Spell: s}
	if s.Script != "" && p.scripts != nil {
		impl.Cast = p.castFunc(s.Script)
	}
	return impl, true
}

// Bind points the scripting engine.* callbacks at the actors of w. Messages
// go to w's log. Binding again replaces the previous world.
func (p *LuaProvider) Bind(w *world.World) {
	if p.scripts == nil || w == nil {
		return
	}
	lookup := func(id uint64) (*world.Actor, bool) { return w.Actor(world.ActorID(id)) }
	p.scripts.Heal = func(id uint64, amount int) int {
		a, ok := lookup(id)
		if !ok || a.Health() == nil {
			return 0
		}
		return a.Health().Heal(amount)
	}
	p.scripts.RestoreMana = func(id uint64, amount int) int {
		a, ok := lookup(id)
		if !ok || a.Mana() == nil {
			return 0
		}
		return a.Mana().Restore(amount)
	}
	p.scripts.Damage = func(id uint64, amount int) int {
		a, ok := lookup(id)
		if !ok || a.Health() == nil {
			return 0
		}
		return a.Health().Damage(amount)
	}
	p.scripts.Message = func(text, severity string) {
		w.Message(text, world.Severity(severity))
	}
}

func (p *LuaProvider) castFunc(fn string) CastFunc {
	return func(ctx context.Context, caster *world.Actor, s world.Spell, target Target) (bool, error) {
		if !p.scripts.Has(fn) {
			return false, fmt.Errorf("cast routine %q is not defined", fn)
		}
		var targetVal lua.LValue = lua.LNil
		if target.Actor.Valid() {
			targetVal = p.scripts.ActorTable(actorInfo(target.Actor))
		}
		ret, err := p.scripts.Call(ctx, fn, p.scripts.ActorTable(actorInfo(caster)), targetVal, p.spellTable(s, target.Point))
		if err != nil {
			return false, err
		}
		return lua.LVAsBool(ret), nil
	}
}

func (p *LuaProvider) spellTable(s world.Spell, point world.Position) *lua.LTable {
	t := p.scripts.ActorTable(scripting.ActorInfo{Name: s.Name, X: point.X, Y: point.Y})
	t.RawSetString("id", lua.LString(s.ID))
	t.RawSetString("element", lua.LString(s.Element))
	t.RawSetString("mana_cost", lua.LNumber(s.ManaCost))
	t.RawSetString("base_damage", lua.LNumber(s.BaseDamage))
	t.RawSetString("duration", lua.LNumber(s.Duration))
	return t
}

func actorInfo(a *world.Actor) scripting.ActorInfo {
	info := scripting.ActorInfo{ID: uint64(a.ID()), Name: a.Name()}
	p := a.Position()
	info.X, info.Y = p.X, p.Y
	if h := a.Health(); h != nil {
		info.HP, info.MaxHP = h.HP, h.MaxHP
	}
	if m := a.Mana(); m != nil {
		info.Mana, info.MaxMana = m.Current, m.Max
	}
	return info
}
