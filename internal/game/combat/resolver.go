package combat

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/crawl/internal/game/dice"
	"github.com/cory-johannsen/crawl/internal/game/world"
)

// Reduction selects how armour is subtracted from raw damage.
type Reduction string

const (
	// ReductionStructured applies max(1, raw-PV) then max(1, d-Defense).
	ReductionStructured Reduction = "structured"
	// ReductionLegacy applies max(1, raw - floor(Defense/2)).
	ReductionLegacy Reduction = "legacy"
)

// Config holds the tunable combat constants.
type Config struct {
	DodgePerPoint int
	DodgeCap      int
	MultiplierMin float64
	MultiplierMax float64
	Reduction     Reduction
}

// DefaultConfig returns the stock combat constants.
func DefaultConfig() Config {
	return Config{
		DodgePerPoint: 5,
		DodgeCap:      75,
		MultiplierMin: 0.8,
		MultiplierMax: 1.2,
		Reduction:     ReductionStructured,
	}
}

// Encounter flags the context an attack happens in.
type Encounter struct {
	// Isolated marks arena combat: deaths are recorded but actors are not removed.
	Isolated bool
}

// Resolver applies the combat rules to actors in a world.
type Resolver struct {
	cfg    Config
	roller *dice.Roller
	logger *zap.Logger
}

// NewResolver returns a Resolver.
//
// Precondition: roller must not be nil. A nil logger disables logging.
func NewResolver(cfg Config, roller *dice.Roller, logger *zap.Logger) *Resolver {
	if roller == nil {
		panic("combat.NewResolver: roller must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Reduction == "" {
		cfg.Reduction = ReductionStructured
	}
	return &Resolver{cfg: cfg, roller: roller, logger: logger}
}

// Config returns the resolver's constants.
func (r *Resolver) Config() Config { return r.cfg }

// Roller returns the resolver's roller.
func (r *Resolver) Roller() *dice.Roller { return r.roller }

// DodgeChance returns the percent chance to dodge for a dodge value.
//
// Postcondition: result is in [0, DodgeCap].
func (r *Resolver) DodgeChance(dv int) int {
	return DodgeChance(dv, r.cfg.DodgePerPoint, r.cfg.DodgeCap)
}

// DodgeChance returns min(capPct, dv*perPoint), floored at 0.
func DodgeChance(dv, perPoint, capPct int) int {
	c := dv * perPoint
	if c > capPct {
		c = capPct
	}
	if c < 0 {
		c = 0
	}
	return c
}

// StructuredReduction subtracts PV then Defense, clamping to at least 1 after each stage.
func StructuredReduction(raw, pv, defense int) int {
	d := max(1, raw-pv)
	return max(1, d-defense)
}

// LegacyReduction subtracts half the defense, clamping to at least 1.
func LegacyReduction(raw, defense int) int {
	return max(1, raw-defense/2)
}

// Reduce applies the configured reduction for a defender's stats. A nil
// stats block only clamps the damage to at least 1.
func (r *Resolver) Reduce(raw int, defender *world.Stats) int {
	if defender == nil {
		return max(1, raw)
	}
	if r.cfg.Reduction == ReductionLegacy {
		return LegacyReduction(raw, defender.Defense)
	}
	return StructuredReduction(raw, defender.PV, defender.Defense)
}

// ScaledDamage returns floor(base * multiplier) for a uniformly rolled multiplier.
func (r *Resolver) ScaledDamage(label string, base int) int {
	m := r.roller.Uniform(label, r.cfg.MultiplierMin, r.cfg.MultiplierMax)
	return int(math.Floor(float64(base) * m))
}

// RollDodge reports whether defender avoids an attack.
func (r *Resolver) RollDodge(defender *world.Actor) bool {
	st := defender.Stats()
	if st == nil {
		return false
	}
	return r.roller.Chance("dodge", r.DodgeChance(st.DV))
}

// Melee resolves one melee attack.
//
// Precondition: attacker has Stats and defender has Health.
// Postcondition: a failed precondition or a dodge is a failure outcome; HP bounds hold.
func (r *Resolver) Melee(w *world.World, attacker, defender *world.Actor, enc Encounter) Outcome {
	return r.strike(w, attacker, defender, enc, "hits", func(st *world.Stats) int { return st.Strength })
}

// Ranged resolves one ranged attack over a clear line within maxRange tiles (Chebyshev).
// A maxRange <= 0 skips the range check.
func (r *Resolver) Ranged(w *world.World, attacker, defender *world.Actor, maxRange int, enc Encounter) Outcome {
	if !attacker.Valid() || !defender.Valid() {
		return Fail(ReasonNoTarget)
	}
	if maxRange > 0 && attacker.Position().Chebyshev(defender.Position()) > maxRange {
		return Fail(ReasonOutOfRange)
	}
	if !w.HasLineOfSight(attacker.Position(), defender.Position()) {
		return Fail(ReasonNoLineOfSight)
	}
	return r.strike(w, attacker, defender, enc, "shoots", func(st *world.Stats) int {
		return max(st.Dexterity, st.Perception)
	})
}

func (r *Resolver) strike(w *world.World, attacker, defender *world.Actor, enc Encounter, verb string, base func(*world.Stats) int) Outcome {
	if !defender.Valid() || defender.Health() == nil || !defender.IsAlive() {
		return Fail(ReasonNoTarget)
	}
	st := attacker.Stats()
	if st == nil {
		return Fail(ReasonMissingComponent)
	}

	out := Outcome{Acted: true, Kind: world.KindAttack, Targets: []world.ActorID{defender.ID()}, Point: defender.Position()}
	if r.RollDodge(defender) {
		w.Message(fmt.Sprintf("%s dodges %s's attack.", defender.Name(), attacker.Name()), world.SeverityCombat)
		out.Dodged = true
		out.Reason = ReasonDodged
		return out
	}

	raw := r.ScaledDamage("multiplier", base(st))
	dmg := r.Reduce(raw, defender.Stats())
	dealt, killed := r.ApplyDamage(w, attacker, defender, dmg, enc)
	w.Message(fmt.Sprintf("%s %s %s for %d damage.", attacker.Name(), verb, defender.Name(), dealt), world.SeverityCombat)
	r.logger.Debug("attack resolved",
		zap.Stringer("attacker", attacker.ID()),
		zap.Stringer("defender", defender.ID()),
		zap.Int("raw", raw),
		zap.Int("damage", dmg),
		zap.Bool("killed", killed),
	)
	out.Success = true
	out.Damage = dealt
	out.Killed = killed
	return out
}

// ApplyDamage deals amount to target and handles death. A killed target is
// announced and removed from w unless it is the player or enc is isolated.
//
// Postcondition: returns the hit points actually lost and whether the target died.
func (r *Resolver) ApplyDamage(w *world.World, source, target *world.Actor, amount int, enc Encounter) (int, bool) {
	h := target.Health()
	if h == nil || h.IsDead() {
		return 0, false
	}
	dealt := h.Damage(amount)
	if !h.IsDead() {
		return dealt, false
	}
	r.Kill(w, source, target, enc)
	return dealt, true
}

// Kill announces target's death and removes it unless it is protected.
func (r *Resolver) Kill(w *world.World, source, target *world.Actor, enc Encounter) {
	killer := "something"
	if source.Valid() {
		killer = source.Name()
	}
	w.Message(fmt.Sprintf("%s is slain by %s!", target.Name(), killer), world.SeverityDeath)
	if target.IsPlayer() || enc.Isolated {
		r.logger.Debug("death recorded without removal",
			zap.Stringer("actor", target.ID()),
			zap.Bool("player", target.IsPlayer()),
			zap.Bool("isolated", enc.Isolated),
		)
		return
	}
	w.Remove(target.ID())
}
