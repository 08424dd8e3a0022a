// Package engine wires the decision and resolution services together from
// configuration.
package engine

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/crawl/internal/config"
	"github.com/cory-johannsen/crawl/internal/game/action"
	"github.com/cory-johannsen/crawl/internal/game/ai"
	"github.com/cory-johannsen/crawl/internal/game/ally"
	"github.com/cory-johannsen/crawl/internal/game/arena"
	"github.com/cory-johannsen/crawl/internal/game/behavior"
	"github.com/cory-johannsen/crawl/internal/game/combat"
	"github.com/cory-johannsen/crawl/internal/game/condition"
	"github.com/cory-johannsen/crawl/internal/game/dice"
	"github.com/cory-johannsen/crawl/internal/game/fx"
	"github.com/cory-johannsen/crawl/internal/game/npc"
	"github.com/cory-johannsen/crawl/internal/game/spell"
	"github.com/cory-johannsen/crawl/internal/game/turn"
	"github.com/cory-johannsen/crawl/internal/game/world"
	"github.com/cory-johannsen/crawl/internal/scripting"
)

// Engine owns the long-lived services shared by every world it runs.
// Worlds themselves are not shared: Bind re-targets the script callbacks.
type Engine struct {
	cfg    config.Config
	logger *zap.Logger

	roller      *dice.Roller
	combat      *combat.Resolver
	catalog     *spell.Catalog
	scripts     *scripting.Manager
	provider    *spell.LuaProvider
	executor    *action.Executor
	behaviors   *behavior.Registry
	coordinator *ai.Coordinator
	allies      *ally.Controller
	spawner     *npc.Spawner
	costs       world.CostTable
}

// New builds an Engine from cfg.
//
// Precondition: cfg must have passed Validate.
// Postcondition: Returns an error if the spell catalog, scripts or NPC
// templates cannot be loaded. Missing behavior definitions are logged and
// leave actors idle.
func New(cfg config.Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{cfg: cfg, logger: logger}

	var src dice.Source
	if cfg.Combat.Seed != 0 {
		src = dice.NewSeededSource(cfg.Combat.Seed)
	} else {
		src = dice.NewCryptoSource()
	}
	e.roller = dice.NewRoller(src, logger.Named("dice"))

	e.combat = combat.NewResolver(combat.Config{
		DodgePerPoint: cfg.Combat.DodgePerPoint,
		DodgeCap:      cfg.Combat.DodgeCap,
		MultiplierMin: cfg.Combat.MultiplierMin,
		MultiplierMax: cfg.Combat.MultiplierMax,
		Reduction:     combat.Reduction(cfg.Combat.Reduction),
	}, e.roller, logger.Named("combat"))

	catalog, err := spell.LoadCatalog(cfg.Content.SpellsDir)
	if err != nil {
		return nil, fmt.Errorf("engine.New: %w", err)
	}
	e.catalog = catalog

	if cfg.Content.ScriptsDir != "" {
		e.scripts = scripting.NewManager(e.roller, logger.Named("scripting"), 0)
		if err := e.scripts.LoadDir(cfg.Content.ScriptsDir); err != nil {
			e.scripts.Close()
			return nil, fmt.Errorf("engine.New: %w", err)
		}
	}
	e.provider = spell.NewLuaProvider(catalog, e.scripts)
	spells := spell.NewResolver(e.combat, e.provider, logger.Named("spell"))

	e.executor = action.NewExecutor(e.combat, spells, logger.Named("action"))

	templates, err := npc.LoadTemplates(cfg.Content.NPCsDir)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("engine.New: %w", err)
	}
	e.spawner, err = npc.NewSpawner(templates, catalog, e.roller, logger.Named("npc"))
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("engine.New: %w", err)
	}
	e.costs = world.CostTable{
		world.KindMove:    cfg.Engine.Costs.Move,
		world.KindAttack:  cfg.Engine.Costs.Attack,
		world.KindCast:    cfg.Engine.Costs.Cast,
		world.KindUseItem: cfg.Engine.Costs.UseItem,
		world.KindWait:    cfg.Engine.Costs.Wait,
	}
	e.spawner.SetCosts(e.costs)
	e.executor.SetSpawner(e.spawner)

	e.behaviors = behavior.NewRegistryFromDir(cfg.Content.BehaviorsDir, logger.Named("behavior"))
	classifier := ai.Classifier{NameHeuristic: cfg.Ally.LegacyNameHeuristic}
	e.coordinator = ai.NewCoordinator(e.behaviors, e.executor, condition.NewEvaluator(logger.Named("condition")), ai.Config{
		TargetMemoryTurns: cfg.Engine.TargetMemoryTurns,
		Classifier:        classifier,
	}, logger.Named("ai"))
	e.allies = ally.NewController(e.executor, ally.Config{
		LeashDistance: cfg.Ally.LeashDistance,
		Classifier:    classifier,
	}, logger.Named("ally"))

	logger.Info("engine ready",
		zap.Int("behaviors", e.behaviors.Len()),
		zap.Int("spells", len(catalog.IDs())),
		zap.Int("npcs", len(e.spawner.IDs())),
		zap.Bool("scripts", e.scripts != nil),
	)
	return e, nil
}

// Close releases the script VM.
func (e *Engine) Close() {
	if e.scripts != nil {
		e.scripts.Close()
	}
}

// Config returns the configuration the engine was built from.
func (e *Engine) Config() config.Config { return e.cfg }

// Executor returns the shared action executor.
func (e *Engine) Executor() *action.Executor { return e.executor }

// Coordinator returns the AI coordinator.
func (e *Engine) Coordinator() *ai.Coordinator { return e.coordinator }

// Behaviors returns the behavior registry.
func (e *Engine) Behaviors() *behavior.Registry { return e.behaviors }

// Spawner returns the NPC spawner.
func (e *Engine) Spawner() *npc.Spawner { return e.spawner }

// Catalog returns the spell catalog.
func (e *Engine) Catalog() *spell.Catalog { return e.catalog }

// HasScript reports whether fn is a defined Lua cast routine.
func (e *Engine) HasScript(fn string) bool {
	return e.scripts != nil && e.scripts.Has(fn)
}

// Costs returns a copy of the configured energy cost table.
func (e *Engine) Costs() world.CostTable { return e.costs.Clone() }

// Watch hot-reloads behavior definitions until ctx is done when
// content.watch is set. Otherwise it does nothing.
func (e *Engine) Watch(ctx context.Context) error {
	if !e.cfg.Content.Watch {
		return nil
	}
	return behavior.Watch(ctx, e.cfg.Content.BehaviorsDir, e.behaviors, e.logger.Named("behavior"))
}

// Bind points script callbacks at w. Call it before running turns in w.
func (e *Engine) Bind(w *world.World) {
	e.provider.Bind(w)
}

// NewWorld creates an empty world of the given size and binds the scripts to it.
// A nil log discards messages.
func (e *Engine) NewWorld(width, height int, log world.MessageLog) *world.World {
	w := world.New(world.NewGrid(width, height), log)
	e.Bind(w)
	return w
}

// Scheduler returns a turn scheduler over w.
func (e *Engine) Scheduler(w *world.World) *turn.Scheduler {
	return turn.NewScheduler(w, e.coordinator, e.allies, turn.Config{
		EnergyPerTurn: e.cfg.Engine.EnergyPerTurn,
		MaxActions:    e.cfg.Engine.MaxActionsPerTurn,
	}, e.logger.Named("turn"))
}

// RunTurn runs one world turn on s and removes the summons that expired during it.
func (e *Engine) RunTurn(ctx context.Context, s *turn.Scheduler) turn.Report {
	rep := s.RunTurn(ctx)
	w := s.World()
	for _, id := range rep.Expired {
		a, ok := w.Actor(id)
		if !ok {
			continue
		}
		name := a.Name()
		if w.Remove(id) {
			w.Message(fmt.Sprintf("%s fades away.", name), world.SeverityMagic)
		}
	}
	return rep
}

// NewArena starts a duel between fighters in w using the configured pacing.
func (e *Engine) NewArena(w *world.World, fighters []*world.Actor, sink fx.Sink) (*arena.Arena, error) {
	return arena.New(w, e.coordinator, fighters, sink, arena.Config{
		TickInterval: e.cfg.Arena.TickInterval,
		MaxTicks:     e.cfg.Arena.MaxTicks,
		EffectDelay:  e.cfg.Arena.EffectDelay,
	}, e.logger.Named("arena"))
}

// SpawnAll spawns one actor per entry of placements, in template id order.
//
// Postcondition: on error no further actors are spawned; those already
// spawned stay in w.
func (e *Engine) SpawnAll(w *world.World, placements map[string]world.Position) ([]*world.Actor, error) {
	ids := make([]string, 0, len(placements))
	for id := range placements {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*world.Actor, 0, len(ids))
	for _, id := range ids {
		a, err := e.spawner.Spawn(w, id, placements[id])
		if err != nil {
			return out, fmt.Errorf("engine.SpawnAll: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}
