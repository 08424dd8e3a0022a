package fx

import (
	"github.com/cory-johannsen/crawl/internal/game/action"
	"github.com/cory-johannsen/crawl/internal/game/world"
)

// Observer returns an executor observer that turns resolved actions into
// effects on sink. keep filters which actors produce effects; nil keeps all.
func Observer(sink Sink, keep func(world.ActorID) bool) func(action.Resolved) {
	return func(r action.Resolved) {
		if keep != nil && !keep(r.Actor) {
			return
		}
		Emit(sink, r)
	}
}

// Emit sends the effects for one resolved action to sink.
func Emit(sink Sink, r action.Resolved) {
	out := r.Outcome
	if sink == nil || !(out.Success || out.Acted) {
		return
	}
	params := map[string]any{
		"actor":  uint64(r.Actor),
		"action": r.ActionID,
		"turn":   r.Turn,
		"x":      out.Point.X,
		"y":      out.Point.Y,
	}
	if out.Damage > 0 {
		params["damage"] = out.Damage
	}
	if len(out.Targets) > 0 {
		ids := make([]uint64, len(out.Targets))
		for i, id := range out.Targets {
			ids[i] = uint64(id)
		}
		params["targets"] = ids
	}

	switch {
	case r.ActionID == action.SummonMinion:
		sink.CreateEffect(KindSummon, out.Element, params)
	case out.Kind == world.KindUseItem:
		sink.CreateEffect(KindHeal, out.Element, params)
	case out.SpellID != "" && len(out.Targets) > 1:
		sink.CreateEffect(KindExplosion, out.Element, params)
	case out.SpellID != "" && out.Damage > 0:
		sink.CreateEffect(KindProjectile, out.Element, params)
	case r.ActionID == action.RangedAttack:
		sink.CreateEffect(KindProjectile, "", params)
	case out.Kind == world.KindAttack && !out.Dodged:
		sink.CreateEffect(KindSlash, "", params)
	}
	if out.Killed {
		death := map[string]any{"x": out.Point.X, "y": out.Point.Y}
		// An area outcome does not say which of its targets died.
		if len(out.Targets) == 1 {
			death["actor"] = uint64(out.Targets[0])
		}
		sink.CreateEffect(KindDeath, out.Element, death)
	}
}
