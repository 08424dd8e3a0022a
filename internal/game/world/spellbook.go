package world

// TargetType is how a spell selects what it affects.
type TargetType string

const (
	TargetSelf     TargetType = "self"
	TargetEntity   TargetType = "entity"
	TargetLocation TargetType = "location"
)

// Spell is a learned spell record.
type Spell struct {
	ID         string     `yaml:"id"`
	Name       string     `yaml:"name"`
	Element    string     `yaml:"element"`
	TargetType TargetType `yaml:"target_type"`
	ManaCost   int        `yaml:"mana_cost"`
	BaseDamage int        `yaml:"base_damage"`
	Range      int        `yaml:"range"`
	AOERadius  int        `yaml:"aoe_radius"`
	Duration   int        `yaml:"duration"`
	Cooldown   int        `yaml:"cooldown"`
	Script     string     `yaml:"script"`
	Effects    []string   `yaml:"effects"`
}

// Clone returns a deep copy of s.
func (s Spell) Clone() Spell {
	if s.Effects != nil {
		s.Effects = append([]string(nil), s.Effects...)
	}
	return s
}

// Spellbook holds the spells an actor knows, keyed by spell ID, in learn order.
type Spellbook struct {
	spells map[string]Spell
	order  []string
}

// NewSpellbook returns a spellbook that has learned each of spells.
func NewSpellbook(spells ...Spell) *Spellbook {
	b := &Spellbook{spells: make(map[string]Spell)}
	for _, s := range spells {
		b.Learn(s)
	}
	return b
}

// Learn stores a copy of s, replacing any spell with the same ID.
//
// Postcondition: later mutation of s (including its Effects) does not affect the book.
func (b *Spellbook) Learn(s Spell) {
	if b.spells == nil {
		b.spells = make(map[string]Spell)
	}
	if _, ok := b.spells[s.ID]; !ok {
		b.order = append(b.order, s.ID)
	}
	b.spells[s.ID] = s.Clone()
}

// Get returns a copy of the spell with the given ID.
func (b *Spellbook) Get(id string) (Spell, bool) {
	s, ok := b.spells[id]
	if !ok {
		return Spell{}, false
	}
	return s.Clone(), true
}

// Has reports whether the book contains id.
func (b *Spellbook) Has(id string) bool {
	_, ok := b.spells[id]
	return ok
}

// IDs returns the known spell IDs in learn order.
func (b *Spellbook) IDs() []string {
	return append([]string(nil), b.order...)
}

// Len returns the number of spells known.
func (b *Spellbook) Len() int {
	return len(b.order)
}
