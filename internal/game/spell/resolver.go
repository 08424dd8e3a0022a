package spell

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/crawl/internal/game/combat"
	"github.com/cory-johannsen/crawl/internal/game/world"
)

// IntelligenceScale is the share of the caster's intelligence added to base damage.
const IntelligenceScale = 0.6

// Request describes one cast.
type Request struct {
	World  *world.World
	Caster *world.Actor
	// Target is the intended entity; for location spells its position is the target point.
	Target *world.Actor
	// Point is used by location spells when Target is nil.
	Point     *world.Position
	SpellID   string
	Encounter combat.Encounter
}

// Resolver casts spells for players, monsters and allies alike.
type Resolver struct {
	combat   *combat.Resolver
	provider Provider
	logger   *zap.Logger
}

// NewResolver returns a Resolver.
//
// Precondition: cr must not be nil. A nil provider resolves only learned spells
// through the fallback implementation.
func NewResolver(cr *combat.Resolver, provider Provider, logger *zap.Logger) *Resolver {
	if cr == nil {
		panic("spell.NewResolver: combat resolver must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{combat: cr, provider: provider, logger: logger}
}

// Provider returns the live implementation provider, possibly nil.
func (r *Resolver) Provider() Provider { return r.provider }

// Damage returns baseDamage + floor(intelligence * IntelligenceScale).
func Damage(baseDamage, intelligence int) int {
	return baseDamage + int(math.Floor(float64(intelligence)*IntelligenceScale))
}

// Lookup returns the spell data and implementation used to cast id for caster.
// Learned data wins over the provider's; the implementation is the provider's
// when it recognizes id and the fallback otherwise.
func (r *Resolver) Lookup(caster *world.Actor, id string) (Implementation, bool) {
	var impl Implementation
	known := r.provider != nil && r.provider.HasSpell(id)
	if known {
		impl, known = r.provider.Implementation(id)
	}
	if b := caster.Spellbook(); b != nil {
		if learned, ok := b.Get(id); ok {
			if learned.TargetType == "" {
				learned.TargetType = world.TargetEntity
				if known {
					learned.TargetType = impl.Spell.TargetType
				}
			}
			impl.Spell = learned
			return impl, true
		}
	}
	if known {
		return impl, true
	}
	if id == FallbackSpell.ID {
		return Implementation{Spell: FallbackSpell.Clone()}, true
	}
	return Implementation{}, false
}

// Choose picks the spell a caster with no explicit spell id should cast: the
// first learned spell, in learn order, that is off cooldown and affordable.
// A caster that knows no spells falls back to FallbackSpell.
func Choose(caster *world.Actor) string {
	b := caster.Spellbook()
	if b == nil || b.Len() == 0 {
		return FallbackSpell.ID
	}
	mana := 0
	if m := caster.Mana(); m != nil {
		mana = m.Current
	}
	ai := caster.AI()
	for _, id := range b.IDs() {
		s, _ := b.Get(id)
		if ai != nil && ai.SpellCooldown(id) > 0 {
			continue
		}
		if s.ManaCost <= mana {
			return id
		}
	}
	ids := b.IDs()
	return ids[0]
}

// Cast resolves one spell.
//
// Postcondition: the outcome is always returned; mana is deducted only once
// targeting and range checks pass, and never drops below zero.
func (r *Resolver) Cast(ctx context.Context, req Request) (out combat.Outcome) {
	w, caster := req.World, req.Caster
	if !caster.Valid() {
		return combat.Fail(combat.ReasonNoTarget)
	}
	id := req.SpellID
	if id == "" {
		id = Choose(caster)
	}
	impl, ok := r.Lookup(caster, id)
	if !ok {
		r.logger.Debug("spell not found", zap.Stringer("caster", caster.ID()), zap.String("spell", id))
		return withSpell(combat.Fail(combat.ReasonSpellNotFound), id, "")
	}
	s := impl.Spell

	target, point, reason := r.aim(w, caster, s, req)
	if reason != "" {
		return withSpell(combat.Fail(reason), s.ID, s.Element)
	}
	if ai := caster.AI(); ai != nil && ai.SpellCooldown(s.ID) > 0 {
		return withSpell(combat.Fail(combat.ReasonOnCooldown), s.ID, s.Element)
	}
	if !spendMana(caster, s.ManaCost) {
		return withSpell(combat.Fail(combat.ReasonInsufficientMana), s.ID, s.Element)
	}

	w.Message(fmt.Sprintf("%s casts %s.", caster.Name(), displayName(s)), world.SeverityMagic)
	out = combat.Outcome{Acted: true, Kind: world.KindCast, SpellID: s.ID, Element: s.Element, Point: point}
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("spell cast routine panicked", zap.String("spell", s.ID), zap.Any("panic", p))
			out.Success = false
			out.Reason = fmt.Sprint(p)
		}
	}()

	switch {
	case s.TargetType == world.TargetSelf || (impl.Cast != nil && s.BaseDamage == 0):
		out = r.delegate(ctx, w, impl, caster, Target{Actor: target, Point: point}, req.Encounter, out)
	case s.AOERadius > 1:
		out = r.area(w, caster, s, point, req.Encounter, out)
	default:
		out = r.bolt(w, caster, s, target, req.Encounter, out)
	}
	if out.Success {
		if ai := caster.AI(); ai != nil && s.Cooldown > 0 {
			ai.SetSpellCooldown(s.ID, s.Cooldown)
		}
	}
	r.logger.Debug("spell resolved",
		zap.Stringer("caster", caster.ID()),
		zap.String("spell", s.ID),
		zap.Bool("success", out.Success),
		zap.Int("damage", out.Damage),
		zap.String("reason", out.Reason),
	)
	return out
}

// aim resolves the target entity and point for s, returning a failure reason
// when the spell cannot be aimed.
func (r *Resolver) aim(w *world.World, caster *world.Actor, s world.Spell, req Request) (*world.Actor, world.Position, string) {
	switch s.TargetType {
	case world.TargetSelf:
		return caster, caster.Position(), ""
	case world.TargetLocation:
		var point world.Position
		var target *world.Actor
		switch {
		case req.Target.Valid():
			target, point = req.Target, req.Target.Position()
		case req.Point != nil:
			point = *req.Point
		default:
			return nil, world.Position{}, combat.ReasonNoTarget
		}
		if !inRange(caster, point, s.Range) {
			return nil, world.Position{}, combat.ReasonOutOfRange
		}
		return target, point, ""
	default:
		if !req.Target.IsAlive() {
			return nil, world.Position{}, combat.ReasonNoTarget
		}
		point := req.Target.Position()
		if !inRange(caster, point, s.Range) {
			return nil, world.Position{}, combat.ReasonOutOfRange
		}
		return req.Target, point, ""
	}
}

func inRange(caster *world.Actor, p world.Position, maxRange int) bool {
	return maxRange <= 0 || caster.Position().Chebyshev(p) <= maxRange
}

// delegate runs a cast routine. Actors the routine kills through the script
// callbacks get the same death handling as a bolt or area kill.
func (r *Resolver) delegate(ctx context.Context, w *world.World, impl Implementation, caster *world.Actor, target Target, enc combat.Encounter, out combat.Outcome) combat.Outcome {
	if impl.Cast == nil {
		// A self spell with no routine has nothing to resolve.
		out.Success = true
		out.Targets = []world.ActorID{caster.ID()}
		return out
	}
	var living []*world.Actor
	for _, a := range w.Snapshot() {
		if a.Health() != nil && a.IsAlive() {
			living = append(living, a)
		}
	}
	ok, err := impl.Cast(ctx, caster, impl.Spell, target)
	if target.Actor.Valid() {
		out.Targets = []world.ActorID{target.Actor.ID()}
	}
	for _, a := range living {
		if !a.Valid() || a.IsAlive() {
			continue
		}
		r.combat.Kill(w, caster, a, enc)
		out.Killed = true
		if !target.Actor.Valid() || a.ID() != target.Actor.ID() {
			out.Targets = append(out.Targets, a.ID())
		}
	}
	if err != nil {
		r.logger.Warn("spell cast routine failed", zap.String("spell", impl.Spell.ID), zap.Error(err))
		out.Reason = err.Error()
		return out
	}
	out.Success = ok
	if !ok {
		out.Reason = combat.ReasonNoAction
	}
	return out
}

func (r *Resolver) area(w *world.World, caster *world.Actor, s world.Spell, point world.Position, enc combat.Encounter, out combat.Outcome) combat.Outcome {
	dmg := Damage(s.BaseDamage, intelligence(caster))
	for _, a := range w.WithinChebyshev(point, s.AOERadius) {
		if a.ID() == caster.ID() || a.Health() == nil {
			continue
		}
		dealt, killed := r.combat.ApplyDamage(w, caster, a, dmg, enc)
		w.Message(fmt.Sprintf("%s engulfs %s for %d damage.", displayName(s), a.Name(), dealt), world.SeverityMagic)
		out.Damage += dealt
		out.Killed = out.Killed || killed
		out.Targets = append(out.Targets, a.ID())
	}
	out.Success = true
	return out
}

func (r *Resolver) bolt(w *world.World, caster *world.Actor, s world.Spell, target *world.Actor, enc combat.Encounter, out combat.Outcome) combat.Outcome {
	if target == nil {
		if hit, ok := w.BlockingActorAt(out.Point, caster.ID()); ok {
			target = hit
		}
	}
	if !target.IsAlive() {
		// The mana is already spent; the bolt simply lands on empty ground.
		out.Success = true
		return out
	}
	dealt, killed := r.combat.ApplyDamage(w, caster, target, Damage(s.BaseDamage, intelligence(caster)), enc)
	w.Message(fmt.Sprintf("%s strikes %s for %d damage.", displayName(s), target.Name(), dealt), world.SeverityMagic)
	out.Success = true
	out.Damage = dealt
	out.Killed = killed
	out.Targets = []world.ActorID{target.ID()}
	return out
}

func spendMana(caster *world.Actor, cost int) bool {
	if cost <= 0 {
		return true
	}
	m := caster.Mana()
	return m != nil && m.Spend(cost)
}

func intelligence(a *world.Actor) int {
	if st := a.Stats(); st != nil {
		return st.Intelligence
	}
	return 0
}

func displayName(s world.Spell) string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

func withSpell(o combat.Outcome, id, element string) combat.Outcome {
	o.SpellID = id
	o.Element = element
	return o
}
