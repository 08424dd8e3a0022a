package ai

import (
	"context"

	"go.uber.org/zap"

	"github.com/cory-johannsen/crawl/internal/game/action"
	"github.com/cory-johannsen/crawl/internal/game/behavior"
	"github.com/cory-johannsen/crawl/internal/game/combat"
	"github.com/cory-johannsen/crawl/internal/game/condition"
	"github.com/cory-johannsen/crawl/internal/game/world"
)

// DefaultTargetMemory is how many turns a target out of sight is remembered.
const DefaultTargetMemory = 5

// Config tunes the coordinator.
type Config struct {
	// TargetMemoryTurns drops a target after this many consecutive turns without line of sight.
	TargetMemoryTurns int
	Classifier        Classifier
}

// Turn is the input to one decision.
type Turn struct {
	World *world.World
	Actor *world.Actor
	// Target overrides target acquisition when set.
	Target        *world.Actor
	Encounter     combat.Encounter
	EnforceEnergy bool
}

// Coordinator walks each actor's behavior definition and executes the chosen action.
//
// Invariant: registry, executor and evaluator are never nil.
type Coordinator struct {
	registry  *behavior.Registry
	executor  *action.Executor
	evaluator *condition.Evaluator
	cfg       Config
	logger    *zap.Logger
}

// NewCoordinator returns a Coordinator.
//
// Precondition: registry, executor and evaluator must not be nil.
func NewCoordinator(registry *behavior.Registry, executor *action.Executor, evaluator *condition.Evaluator, cfg Config, logger *zap.Logger) *Coordinator {
	if registry == nil {
		panic("ai.NewCoordinator: registry must not be nil")
	}
	if executor == nil {
		panic("ai.NewCoordinator: executor must not be nil")
	}
	if evaluator == nil {
		panic("ai.NewCoordinator: evaluator must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TargetMemoryTurns <= 0 {
		cfg.TargetMemoryTurns = DefaultTargetMemory
	}
	return &Coordinator{registry: registry, executor: executor, evaluator: evaluator, cfg: cfg, logger: logger}
}

// Executor returns the action executor.
func (c *Coordinator) Executor() *action.Executor { return c.executor }

// Classifier returns the friend/foe classifier.
func (c *Coordinator) Classifier() Classifier { return c.cfg.Classifier }

// BehaviorFor returns the definition driving ai, falling back to the category table
// when no behavior id is set.
func (c *Coordinator) BehaviorFor(ai *world.AI) (*behavior.Definition, bool) {
	id := ai.BehaviorID
	if id == "" {
		id = behavior.CategoryBehaviorID(ai.Category)
	}
	return c.registry.Get(id)
}

// TakeTurn decides and executes one action for t.Actor.
//
// Postcondition: always returns an Outcome. ReasonBehaviorNotFound when the
// actor's behavior is unknown; ReasonNoAction when nothing was executed, which
// is a valid idle turn.
func (c *Coordinator) TakeTurn(ctx context.Context, t Turn) combat.Outcome {
	a := t.Actor
	ai := a.AI()
	if ai == nil {
		return combat.Fail(combat.ReasonMissingComponent)
	}
	def, ok := c.BehaviorFor(ai)
	if !ok {
		c.logger.Debug("behavior not found",
			zap.Stringer("actor", a.ID()),
			zap.String("behavior", ai.BehaviorID),
			zap.String("category", ai.Category),
		)
		return combat.Fail(combat.ReasonBehaviorNotFound)
	}

	target := t.Target
	if target.Valid() {
		ai.Target, ai.TargetLost = target.ID(), 0
	} else {
		target = c.acquire(t.World, a, ai, def)
	}
	cctx := condition.Context{World: t.World, Actor: a, Target: target}

	var state combat.Outcome
	if def.HasStates() {
		var done bool
		if state, done = c.runStateMachine(ctx, t, def, ai, cctx); done {
			return state
		}
	}
	out := c.runPriority(ctx, t, def, cctx)
	if out.Reason == combat.ReasonNoAction && state.Reason == combat.ReasonInsufficientEnergy {
		return state
	}
	return out
}

// runStateMachine applies at most one transition and runs the current state's action.
// done is false when the state yielded nothing and the priority list should run.
func (c *Coordinator) runStateMachine(ctx context.Context, t Turn, def *behavior.Definition, ai *world.AI, cctx condition.Context) (combat.Outcome, bool) {
	if _, ok := def.State(ai.State); !ok {
		ai.State = def.InitialState
		ai.StateCountdown = 0
	}
	if ai.StateCountdown > 0 {
		ai.StateCountdown--
	} else if st, _ := def.State(ai.State); st != nil {
		for _, tr := range st.Transitions {
			if !c.evaluator.All(tr.Condition, cctx) {
				continue
			}
			c.logger.Debug("state transition",
				zap.Stringer("actor", t.Actor.ID()),
				zap.String("from", ai.State),
				zap.String("to", tr.Target),
			)
			ai.State = tr.Target
			c.enter(ctx, t, def, cctx)
			break
		}
	}
	if !t.Actor.Valid() {
		return combat.Fail(combat.ReasonNoAction), true
	}

	st, ok := def.State(ai.State)
	if !ok || st.Action == "" {
		return combat.Outcome{}, false
	}
	out := c.execute(ctx, t, def, st.Action, cctx.Target)
	return out, out.Success || out.Acted
}

// enter runs the onEnter list of the actor's new state. An onEnter action may
// itself change state; the list that started keeps running.
func (c *Coordinator) enter(ctx context.Context, t Turn, def *behavior.Definition, cctx condition.Context) {
	st, ok := def.State(t.Actor.AI().State)
	if !ok {
		return
	}
	for _, id := range st.OnEnter {
		if !t.Actor.Valid() {
			return
		}
		c.execute(ctx, t, def, id, cctx.Target)
	}
}

// runPriority returns ReasonInsufficientEnergy instead of ReasonNoAction when
// an entry was skipped only because the actor could not pay for it.
func (c *Coordinator) runPriority(ctx context.Context, t Turn, def *behavior.Definition, cctx condition.Context) combat.Outcome {
	starved := false
	for _, id := range def.Actions.Priority {
		if !t.Actor.Valid() {
			break
		}
		if conds := def.ConditionsFor(id); len(conds) > 0 && !c.evaluator.All(conds, cctx) {
			continue
		}
		out := c.execute(ctx, t, def, id, cctx.Target)
		if out.Success || out.Acted {
			return out
		}
		starved = starved || out.Reason == combat.ReasonInsufficientEnergy
	}
	if starved {
		return combat.Fail(combat.ReasonInsufficientEnergy)
	}
	return combat.Fail(combat.ReasonNoAction)
}

func (c *Coordinator) execute(ctx context.Context, t Turn, def *behavior.Definition, id string, target *world.Actor) combat.Outcome {
	return c.executor.Execute(ctx, id, &action.Context{
		World:         t.World,
		Actor:         t.Actor,
		Target:        target,
		Params:        def.Params(id),
		Encounter:     t.Encounter,
		EnforceEnergy: t.EnforceEnergy,
	})
}

// acquire keeps the remembered target while it lives and has been seen within
// TargetMemoryTurns, otherwise picks a new one by the definition's targeting policy.
func (c *Coordinator) acquire(w *world.World, a *world.Actor, ai *world.AI, def *behavior.Definition) *world.Actor {
	var dropped world.ActorID
	if ai.Target != 0 {
		cur, ok := w.Actor(ai.Target)
		switch {
		case !ok || !cur.IsAlive():
			ai.Target, ai.TargetLost = 0, 0
		case w.HasLineOfSight(a.Position(), cur.Position()):
			ai.TargetLost = 0
			return cur
		default:
			ai.TargetLost++
			if ai.TargetLost <= c.cfg.TargetMemoryTurns {
				return cur
			}
			c.logger.Debug("target lost", zap.Stringer("actor", a.ID()), zap.Stringer("target", cur.ID()))
			dropped = cur.ID()
			ai.Target, ai.TargetLost = 0, 0
		}
	}
	next := Perceive(w, a, c.cfg.Classifier).Without(dropped).ResolveTarget(def.Targeting)
	if next != nil {
		ai.Target = next.ID()
	}
	return next
}
