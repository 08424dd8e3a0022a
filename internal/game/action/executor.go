// Package action maps action ids from behavior data to the handlers that
// carry them out.
package action

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/crawl/internal/game/behavior"
	"github.com/cory-johannsen/crawl/internal/game/combat"
	"github.com/cory-johannsen/crawl/internal/game/dice"
	"github.com/cory-johannsen/crawl/internal/game/spell"
	"github.com/cory-johannsen/crawl/internal/game/world"
)

// Built-in action ids.
const (
	MoveTowardTarget   = "moveTowardTarget"
	MoveAwayFromTarget = "moveAwayFromTarget"
	MoveRandomly       = "moveRandomly"
	MeleeAttack        = "meleeAttack"
	RangedAttack       = "rangedAttack"
	CastSpell          = "castSpell"
	SetState           = "setState"
	UseSpecialAbility  = "useSpecialAbility"
	Wait               = "wait"
	SummonMinion       = "summonMinion"
)

// AliasParam names the params key that dispatches a data-defined action id
// to a registered handler, e.g. regrowHeads: {as: useSpecialAbility}.
const AliasParam = "as"

// Context is everything a handler may read or change for one action.
type Context struct {
	World  *world.World
	Actor  *world.Actor
	Target *world.Actor
	Params behavior.Params
	// Encounter is forwarded to combat and spell resolution.
	Encounter combat.Encounter
	// EnforceEnergy rejects actions the actor cannot pay for.
	EnforceEnergy bool
}

// Handler carries out one action. It always returns an Outcome.
type Handler func(ctx context.Context, ac *Context) combat.Outcome

// Resolved is delivered to observers after every execution.
type Resolved struct {
	ActionID string
	Actor    world.ActorID
	Name     string
	Target   world.ActorID
	Turn     int
	Outcome  combat.Outcome
}

// Spawner creates summoned actors from named templates.
type Spawner interface {
	SpawnSummon(w *world.World, template string, at world.Position, link world.Summon) (*world.Actor, error)
}

type entry struct {
	kind    world.ActionKind
	handler Handler
}

// Executor dispatches actions by id and notifies observers of each result.
//
// Handlers run on the caller's goroutine. Register and Observe are safe for
// concurrent use with Execute.
type Executor struct {
	mu        sync.RWMutex
	handlers  map[string]entry
	observers map[int]func(Resolved)
	nextObs   int

	combat  *combat.Resolver
	spells  *spell.Resolver
	spawner Spawner
	logger  *zap.Logger
}

// NewExecutor returns an Executor with every built-in action registered.
//
// Precondition: cr and sr must not be nil. A nil logger disables logging.
func NewExecutor(cr *combat.Resolver, sr *spell.Resolver, logger *zap.Logger) *Executor {
	if cr == nil {
		panic("action.NewExecutor: combat resolver must not be nil")
	}
	if sr == nil {
		panic("action.NewExecutor: spell resolver must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Executor{
		handlers:  make(map[string]entry),
		observers: make(map[int]func(Resolved)),
		combat:    cr,
		spells:    sr,
		logger:    logger,
	}
	e.registerBuiltins()
	return e
}

// SetSpawner installs the summon spawner used by summonMinion.
func (e *Executor) SetSpawner(s Spawner) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.spawner = s
}

// Combat returns the combat resolver handlers use.
func (e *Executor) Combat() *combat.Resolver { return e.combat }

// Spells returns the spell resolver handlers use.
func (e *Executor) Spells() *spell.Resolver { return e.spells }

// Roller returns the roller shared with the combat resolver.
func (e *Executor) Roller() *dice.Roller { return e.combat.Roller() }

// Register binds id to h; the energy gate charges kind. Registering an existing
// id replaces its handler.
func (e *Executor) Register(id string, kind world.ActionKind, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[id] = entry{kind: kind, handler: h}
}

// Has reports whether id resolves to a handler, following an alias in params.
func (e *Executor) Has(id string, params behavior.Params) bool {
	_, ok := e.lookup(id, params)
	return ok
}

// Kind returns the energy kind of id.
func (e *Executor) Kind(id string, params behavior.Params) (world.ActionKind, bool) {
	en, ok := e.lookup(id, params)
	return en.kind, ok
}

func (e *Executor) lookup(id string, params behavior.Params) (entry, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if en, ok := e.handlers[id]; ok {
		return en, true
	}
	if as := params.String(AliasParam, ""); as != "" {
		en, ok := e.handlers[as]
		return en, ok
	}
	return entry{}, false
}

// Observe registers fn to be called synchronously after every execution.
// The returned func removes the observer.
func (e *Executor) Observe(fn func(Resolved)) (cancel func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextObs
	e.nextObs++
	e.observers[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.observers, id)
	}
}

// Execute runs the action registered under id.
//
// Postcondition: an unknown id yields a warning and ReasonUnknownAction; an
// unaffordable action under EnforceEnergy yields ReasonInsufficientEnergy
// without running. Every execution that acted or succeeded records id as the
// actor's last action and stamps its cooldown with the world turn.
func (e *Executor) Execute(ctx context.Context, id string, ac *Context) combat.Outcome {
	if ac.Params == nil {
		ac.Params = behavior.Params{}
	}
	en, ok := e.lookup(id, ac.Params)
	var out combat.Outcome
	switch {
	case !ok:
		e.logger.Warn("unknown action", zap.String("action", id), zap.Stringer("actor", ac.Actor.ID()))
		out = combat.Fail(combat.ReasonUnknownAction)
	case !ac.Actor.Valid():
		out = combat.Fail(combat.ReasonMissingComponent)
	case ac.EnforceEnergy && !canAfford(ac.Actor, en.kind):
		out = combat.Fail(combat.ReasonInsufficientEnergy)
	default:
		out = en.handler(ctx, ac)
		if out.Kind == "" {
			out.Kind = en.kind
		}
		if out.Acted || out.Success {
			if ai := ac.Actor.AI(); ai != nil {
				ai.LastAction = id
				ai.MarkUsed(id, ac.World.Turn())
			}
		}
	}
	out.ActionID = id
	e.notify(ac, out)
	return out
}

func canAfford(a *world.Actor, kind world.ActionKind) bool {
	en := a.Energy()
	return en == nil || en.CanAfford(kind)
}

func (e *Executor) notify(ac *Context, out combat.Outcome) {
	e.mu.RLock()
	if len(e.observers) == 0 {
		e.mu.RUnlock()
		return
	}
	fns := make([]func(Resolved), 0, len(e.observers))
	for i := 0; i < e.nextObs; i++ {
		if fn, ok := e.observers[i]; ok {
			fns = append(fns, fn)
		}
	}
	e.mu.RUnlock()

	r := Resolved{ActionID: out.ActionID, Actor: ac.Actor.ID(), Name: ac.Actor.Name(), Outcome: out}
	if ac.World != nil {
		r.Turn = ac.World.Turn()
	}
	if ac.Target != nil {
		r.Target = ac.Target.ID()
	}
	for _, fn := range fns {
		fn(r)
	}
}
