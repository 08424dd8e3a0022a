package world

import "math"

// Position is an integer tile coordinate.
type Position struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// Add returns p translated by (dx, dy).
func (p Position) Add(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Distance returns the Euclidean distance between p and o.
func (p Position) Distance(o Position) float64 {
	dx := float64(o.X - p.X)
	dy := float64(o.Y - p.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// DistanceSq returns the squared Euclidean distance between p and o.
func (p Position) DistanceSq(o Position) int {
	dx := o.X - p.X
	dy := o.Y - p.Y
	return dx*dx + dy*dy
}

// Chebyshev returns max(|dx|, |dy|) between p and o.
func (p Position) Chebyshev(o Position) int {
	dx := abs(o.X - p.X)
	dy := abs(o.Y - p.Y)
	if dx > dy {
		return dx
	}
	return dy
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Identity names an actor. Every actor carries one.
type Identity struct {
	ID       ActorID
	Name     string
	Category string
}

// Health tracks hit points.
//
// Invariant: 0 <= HP <= MaxHP; an Immortal actor is never dead (HP floors at 1).
type Health struct {
	HP       int
	MaxHP    int
	Regen    int
	Immortal bool
}

// IsDead reports whether the actor has no hit points left.
//
// Postcondition: always false for Immortal actors.
func (h *Health) IsDead() bool {
	return !h.Immortal && h.HP <= 0
}

// Damage subtracts amount from HP, flooring at 0 (1 for Immortal actors).
//
// Precondition: amount >= 0.
// Postcondition: returns the hit points actually lost; invariant holds.
func (h *Health) Damage(amount int) int {
	if amount <= 0 {
		return 0
	}
	before := h.HP
	h.HP -= amount
	floor := 0
	if h.Immortal {
		floor = 1
	}
	if h.HP < floor {
		h.HP = floor
	}
	h.clamp()
	if lost := before - h.HP; lost > 0 {
		return lost
	}
	return 0
}

// Heal adds amount to HP, capped at MaxHP.
//
// Postcondition: returns the hit points actually restored.
func (h *Health) Heal(amount int) int {
	if amount <= 0 {
		return 0
	}
	before := h.HP
	h.HP += amount
	h.clamp()
	return h.HP - before
}

// Percent returns HP as a percentage of MaxHP; 0 when MaxHP <= 0.
func (h *Health) Percent() float64 {
	if h.MaxHP <= 0 {
		return 0
	}
	return float64(h.HP) / float64(h.MaxHP) * 100
}

func (h *Health) clamp() {
	if h.MaxHP < 0 {
		h.MaxHP = 0
	}
	if h.HP > h.MaxHP {
		h.HP = h.MaxHP
	}
	if h.HP < 0 {
		h.HP = 0
	}
}

// Stats holds primary attributes and the derived combat values.
//
// PV is flat damage reduction; DV converts to a percentage dodge chance.
// Defense is the legacy armour value applied after PV.
type Stats struct {
	Strength     int `yaml:"strength"`
	Dexterity    int `yaml:"dexterity"`
	Toughness    int `yaml:"toughness"`
	Perception   int `yaml:"perception"`
	Intelligence int `yaml:"intelligence"`
	Wisdom       int `yaml:"wisdom"`
	Charisma     int `yaml:"charisma"`
	Speed        int `yaml:"speed"`
	Accuracy     int `yaml:"accuracy"`
	PV           int `yaml:"pv"`
	DV           int `yaml:"dv"`
	Defense      int `yaml:"defense"`
	Level        int `yaml:"level"`
	XP           int `yaml:"xp"`
}

// Mana is the spellcasting resource.
//
// Invariant: 0 <= Current <= Max.
type Mana struct {
	Current int
	Max     int
	Regen   int
}

// Spend deducts cost if enough mana is available.
//
// Postcondition: returns false and leaves Current unchanged when Current < cost.
func (m *Mana) Spend(cost int) bool {
	if cost < 0 {
		cost = 0
	}
	if m.Current < cost {
		return false
	}
	m.Current -= cost
	return true
}

// Restore adds amount to Current, capped at Max.
func (m *Mana) Restore(amount int) int {
	if amount <= 0 {
		return 0
	}
	before := m.Current
	m.Current += amount
	if m.Current > m.Max {
		m.Current = m.Max
	}
	return m.Current - before
}

// Faction is the explicit friend/foe tag used for targeting.
type Faction string

const (
	FactionNone    Faction = ""
	FactionHostile Faction = "hostile"
	FactionAlly    Faction = "ally"
	FactionPlayer  Faction = "player"
	FactionNeutral Faction = "neutral"
)

// Opposes reports whether f and o are enemies of each other.
func (f Faction) Opposes(o Faction) bool {
	switch f {
	case FactionHostile:
		return o == FactionAlly || o == FactionPlayer
	case FactionAlly, FactionPlayer:
		return o == FactionHostile
	default:
		return false
	}
}

// AbilityEffect identifies what a special ability does.
type AbilityEffect string

const (
	EffectHeal   AbilityEffect = "heal"
	EffectAttack AbilityEffect = "attack"
)

// Ability is a named special ability carried by an actor.
type Ability struct {
	ID       string        `yaml:"id"`
	Name     string        `yaml:"name"`
	Effect   AbilityEffect `yaml:"effect"`
	Amount   int           `yaml:"amount"`
	Percent  bool          `yaml:"percent"`
	Repeat   int           `yaml:"repeat"`
	Cooldown int           `yaml:"cooldown"`
}

// AllyArchetype selects the ally controller strategy.
type AllyArchetype string

const (
	ArchetypeNone       AllyArchetype = ""
	ArchetypeStationary AllyArchetype = "stationary"
	ArchetypeFollower   AllyArchetype = "follower"
)

// AllyProfile carries the per-ally controller state.
type AllyProfile struct {
	Archetype      AllyArchetype
	Anchor         Position
	AttackRange    int
	AttackCooldown int
	LastAttackTurn int
	HasAttacked    bool
}

// Ready reports whether at least AttackCooldown turns have passed since the last attack.
func (p *AllyProfile) Ready(turn int) bool {
	if !p.HasAttacked {
		return true
	}
	return turn-p.LastAttackTurn >= p.AttackCooldown
}

// MarkAttack records an attack on turn.
func (p *AllyProfile) MarkAttack(turn int) {
	p.LastAttackTurn = turn
	p.HasAttacked = true
}

// AI is the decision state of a non-player actor.
//
// Target is a weak reference: it names an actor but does not keep it alive.
type AI struct {
	BehaviorID     string
	Category       string
	State          string
	StateCountdown int
	Target         ActorID
	TargetLost     int
	LastAction     string
	// Cooldowns maps action or ability ID to the turn it was last used.
	Cooldowns map[string]int
	// SpellCooldowns maps spell ID to turns remaining before it may be cast again.
	SpellCooldowns map[string]int
	Abilities      []Ability
	Faction        Faction
	InArena        bool
	Ally           *AllyProfile
}

// Ability returns the ability with the given ID.
func (a *AI) Ability(id string) (Ability, bool) {
	for _, ab := range a.Abilities {
		if ab.ID == id {
			return ab, true
		}
	}
	return Ability{}, false
}

// SpellCooldown returns the remaining cooldown for spellID; 0 when absent.
func (a *AI) SpellCooldown(spellID string) int {
	return a.SpellCooldowns[spellID]
}

// SetSpellCooldown records turns remaining for spellID.
func (a *AI) SetSpellCooldown(spellID string, turns int) {
	if a.SpellCooldowns == nil {
		a.SpellCooldowns = make(map[string]int)
	}
	if turns <= 0 {
		delete(a.SpellCooldowns, spellID)
		return
	}
	a.SpellCooldowns[spellID] = turns
}

// TickCooldowns decrements every spell cooldown, dropping those that reach 0.
func (a *AI) TickCooldowns() {
	for id, n := range a.SpellCooldowns {
		if n <= 1 {
			delete(a.SpellCooldowns, id)
			continue
		}
		a.SpellCooldowns[id] = n - 1
	}
}

// MarkUsed stores turn as the last use of id.
func (a *AI) MarkUsed(id string, turn int) {
	if a.Cooldowns == nil {
		a.Cooldowns = make(map[string]int)
	}
	a.Cooldowns[id] = turn
}

// ReadyAt reports whether id may be used on turn given a cooldown in turns.
func (a *AI) ReadyAt(id string, turn, cooldown int) bool {
	if cooldown <= 0 {
		return true
	}
	last, ok := a.Cooldowns[id]
	if !ok {
		return true
	}
	return turn-last >= cooldown
}

// Summon links a temporary actor to its summoner.
type Summon struct {
	Summoner  ActorID
	Remaining int
}

// IsExpired reports whether the summon's duration has run out.
func (s *Summon) IsExpired() bool {
	return s.Remaining <= 0
}

// Tick decrements the remaining duration by one turn.
func (s *Summon) Tick() {
	if s.Remaining > 0 {
		s.Remaining--
	}
}

// Player marks the protected player actor.
type Player struct{}
