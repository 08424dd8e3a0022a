package npc

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/cory-johannsen/crawl/internal/game/dice"
	"github.com/cory-johannsen/crawl/internal/game/spell"
	"github.com/cory-johannsen/crawl/internal/game/world"
)

// Spawner turns templates into world actors.
// All methods are safe for concurrent use; the worlds it spawns into are not.
type Spawner struct {
	mu        sync.RWMutex
	templates map[string]*Template
	catalog   *spell.Catalog
	roller    *dice.Roller
	logger    *zap.Logger
	costs     world.CostTable
	counter   atomic.Uint64
}

// NewSpawner indexes templates by ID.
//
// Precondition: roller must not be nil. A nil catalog allows only templates without spells.
// Postcondition: Returns an error on a duplicate template ID or a spell the catalog lacks.
func NewSpawner(templates []*Template, catalog *spell.Catalog, roller *dice.Roller, logger *zap.Logger) (*Spawner, error) {
	if roller == nil {
		panic("npc.NewSpawner: roller must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Spawner{catalog: catalog, roller: roller, logger: logger}
	if err := s.Replace(templates); err != nil {
		return nil, err
	}
	return s, nil
}

// Replace swaps the template set atomically.
//
// Postcondition: on error the previous set is kept.
func (s *Spawner) Replace(templates []*Template) error {
	next := make(map[string]*Template, len(templates))
	for _, t := range templates {
		if t == nil {
			continue
		}
		if _, dup := next[t.ID]; dup {
			return fmt.Errorf("npc.Spawner: duplicate template id %q", t.ID)
		}
		for _, id := range t.Spells {
			if s.catalog == nil || !s.catalog.Has(id) {
				return fmt.Errorf("npc.Spawner: template %q knows unknown spell %q", t.ID, id)
			}
		}
		next[t.ID] = t
	}
	s.mu.Lock()
	s.templates = next
	s.mu.Unlock()
	return nil
}

// SetCosts sets the energy cost table given to spawned actors. nil restores
// the stock table.
func (s *Spawner) SetCosts(costs world.CostTable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.costs = costs.Clone()
}

// Template returns the template with the given ID.
func (s *Spawner) Template(id string) (*Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	return t, ok
}

// IDs returns every template ID in sorted order.
func (s *Spawner) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.templates))
	for id := range s.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Spawned returns how many actors this spawner has created.
func (s *Spawner) Spawned() uint64 { return s.counter.Load() }

// Spawn creates an actor from template id at p.
//
// Precondition: w must not be nil.
// Postcondition: Returns an error if id is unknown; otherwise the actor carries
// Health, Stats, AI and Energy components built from the template.
func (s *Spawner) Spawn(w *world.World, id string, p world.Position) (*world.Actor, error) {
	return s.spawn(w, id, p, nil)
}

// SpawnSummon creates an actor from template id at p linked to a summoner.
// An ally template is anchored at p.
func (s *Spawner) SpawnSummon(w *world.World, id string, p world.Position, link world.Summon) (*world.Actor, error) {
	return s.spawn(w, id, p, &link)
}

func (s *Spawner) spawn(w *world.World, id string, p world.Position, link *world.Summon) (*world.Actor, error) {
	s.mu.RLock()
	tmpl, ok := s.templates[id]
	costs := s.costs
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("npc.Spawner.Spawn: template %q not found", id)
	}
	hp := tmpl.MaxHP
	if tmpl.HPDice != "" {
		res, err := s.roller.RollExpr(tmpl.HPDice)
		if err != nil {
			return nil, fmt.Errorf("npc.Spawner.Spawn: template %q: %w", id, err)
		}
		hp = max(1, res.Total())
	}
	speed := tmpl.Speed
	if speed == 0 {
		speed = world.BaselineSpeed
	}

	st := &world.AI{
		BehaviorID: tmpl.Behavior,
		Category:   tmpl.Category,
		Faction:    tmpl.Faction,
		Abilities:  append([]world.Ability(nil), tmpl.Abilities...),
	}
	if tmpl.Ally != nil {
		st.Ally = &world.AllyProfile{
			Archetype:      tmpl.Ally.Archetype,
			Anchor:         p,
			AttackRange:    tmpl.Ally.AttackRange,
			AttackCooldown: tmpl.Ally.AttackCooldown,
		}
	}
	stats := tmpl.Stats
	spec := world.ActorSpec{
		Name:     tmpl.Name,
		Category: tmpl.Category,
		Position: p,
		Health:   &world.Health{HP: hp, MaxHP: hp, Regen: tmpl.Regen, Immortal: tmpl.Immortal},
		Stats:    &stats,
		AI:       st,
		Energy:   world.NewEnergy(speed, costs),
		Summon:   link,
	}
	if tmpl.Mana.Max > 0 {
		spec.Mana = &world.Mana{Current: tmpl.Mana.Max, Max: tmpl.Mana.Max, Regen: tmpl.Mana.Regen}
	}
	for _, sid := range tmpl.Spells {
		if sp, ok := s.catalog.Get(sid); ok {
			spec.Spells = append(spec.Spells, sp)
		}
	}

	a := w.Spawn(spec)
	n := s.counter.Add(1)
	s.logger.Debug("npc spawned",
		zap.String("template", id),
		zap.Stringer("actor", a.ID()),
		zap.Uint64("serial", n),
		zap.Int("hp", hp),
		zap.Bool("summon", link != nil),
	)
	return a, nil
}
