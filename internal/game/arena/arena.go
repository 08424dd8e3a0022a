// Package arena runs isolated round-robin duels between fighters on a timer,
// outside the main world turn loop.
package arena

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/crawl/internal/game/action"
	"github.com/cory-johannsen/crawl/internal/game/ai"
	"github.com/cory-johannsen/crawl/internal/game/behavior"
	"github.com/cory-johannsen/crawl/internal/game/combat"
	"github.com/cory-johannsen/crawl/internal/game/fx"
	"github.com/cory-johannsen/crawl/internal/game/npc"
	"github.com/cory-johannsen/crawl/internal/game/world"
)

// Defaults for an unset Config.
const (
	DefaultTickInterval = 500 * time.Millisecond
	DefaultMaxTicks     = 200
	DefaultEffectDelay  = 150 * time.Millisecond
)

// Config tunes a match.
type Config struct {
	TickInterval time.Duration
	// MaxTicks ends a stalled match in a draw.
	MaxTicks    int
	EffectDelay time.Duration
}

// DefaultConfig returns the stock arena settings.
func DefaultConfig() Config {
	return Config{TickInterval: DefaultTickInterval, MaxTicks: DefaultMaxTicks, EffectDelay: DefaultEffectDelay}
}

// Result is the final state of a match.
type Result struct {
	MatchID uuid.UUID
	// Winner is 0 for a draw.
	Winner     world.ActorID
	WinnerName string
	Draw       bool
	Ticks      int
}

// Arena is one running match. It is not safe for concurrent use; Run owns it
// while it is running.
type Arena struct {
	id        uuid.UUID
	world     *world.World
	coord     *ai.Coordinator
	fighters  []world.ActorID
	cfg       Config
	logger    *zap.Logger
	cursor    int
	ticks     int
	finished  bool
	result    Result
	stopWatch func()
}

// New starts a match between fighters in w. Resolved actions of the fighters
// are forwarded to sink after cfg.EffectDelay.
//
// Precondition: w and coord must not be nil.
// Postcondition: Returns an error unless at least two live fighters are given.
// Every fighter with an AI component is flagged as in-arena.
func New(w *world.World, coord *ai.Coordinator, fighters []*world.Actor, sink fx.Sink, cfg Config, logger *zap.Logger) (*Arena, error) {
	if w == nil {
		panic("arena.New: world must not be nil")
	}
	if coord == nil {
		panic("arena.New: coordinator must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.MaxTicks <= 0 {
		cfg.MaxTicks = DefaultMaxTicks
	}

	a := &Arena{id: uuid.New(), world: w, coord: coord, cfg: cfg}
	seen := make(map[world.ActorID]bool)
	var names []string
	for _, f := range fighters {
		if !f.IsAlive() || seen[f.ID()] {
			continue
		}
		seen[f.ID()] = true
		a.fighters = append(a.fighters, f.ID())
		names = append(names, f.Name())
		if st := f.AI(); st != nil {
			st.InArena = true
		}
	}
	if len(a.fighters) < 2 {
		return nil, fmt.Errorf("arena.New: need at least two live fighters, got %d", len(a.fighters))
	}
	a.logger = logger.With(zap.Stringer("match", a.id))

	if sink != nil {
		delayed := fx.Delayed{Next: sink, Delay: cfg.EffectDelay}
		a.stopWatch = coord.Executor().Observe(fx.Observer(delayed, func(id world.ActorID) bool { return seen[id] }))
	}
	w.Message(fmt.Sprintf("The duel begins: %s!", strings.Join(names, " vs ")), world.SeverityInfo)
	a.logger.Info("arena match started", zap.Strings("fighters", names))
	return a, nil
}

// MatchID returns the match identifier.
func (a *Arena) MatchID() uuid.UUID { return a.id }

// Result returns the outcome once the match has finished.
func (a *Arena) Result() (Result, bool) { return a.result, a.finished }

// Step runs one arena tick: the next living fighter takes its turn against the
// first other living fighter.
//
// Postcondition: returns true once the match has finished; later calls do nothing.
func (a *Arena) Step(ctx context.Context) bool {
	if a.finished {
		return true
	}
	living := a.living()
	if len(living) <= 1 {
		a.finish(living)
		return true
	}
	if a.ticks >= a.cfg.MaxTicks {
		a.finish(nil)
		return true
	}
	a.ticks++

	fighter := a.next()
	target := a.opponent(fighter, living)
	enc := combat.Encounter{Isolated: true}

	var out combat.Outcome
	if fighter.AI() != nil {
		out = a.coord.TakeTurn(ctx, ai.Turn{World: a.world, Actor: fighter, Target: target, Encounter: enc})
	} else {
		out = a.coord.Executor().Execute(ctx, action.MeleeAttack, &action.Context{
			World:     a.world,
			Actor:     fighter,
			Target:    target,
			Params:    behavior.Params{"reach": math.MaxInt32},
			Encounter: enc,
		})
	}
	a.logger.Debug("arena tick",
		zap.Int("tick", a.ticks),
		zap.Stringer("fighter", fighter.ID()),
		zap.Stringer("target", target.ID()),
		zap.String("action", out.ActionID),
		zap.Bool("success", out.Success),
	)

	if living = a.living(); len(living) <= 1 {
		a.finish(living)
		return true
	}
	return false
}

// Run drives Step every cfg.TickInterval until the match finishes or ctx is done.
//
// Postcondition: returns the Result, or ctx.Err() when cancelled first. Either
// way every fighter is back under the world turn loop.
func (a *Arena) Run(ctx context.Context) (Result, error) {
	if a.Step(ctx) {
		return a.result, nil
	}
	ticker := time.NewTicker(a.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.release()
			return Result{}, ctx.Err()
		case <-ticker.C:
			if a.Step(ctx) {
				return a.result, nil
			}
		}
	}
}

// Close stops effect forwarding. It is idempotent; finish and a cancelled Run call it.
func (a *Arena) Close() {
	if a.stopWatch != nil {
		a.stopWatch()
		a.stopWatch = nil
	}
}

// release hands the fighters and the minions they summoned back to the world
// turn loop and stops effect forwarding.
func (a *Arena) release() {
	fighters := make(map[world.ActorID]bool, len(a.fighters))
	for _, id := range a.fighters {
		fighters[id] = true
	}
	for _, act := range a.world.Snapshot() {
		st := act.AI()
		if st == nil {
			continue
		}
		if sm := act.Summon(); fighters[act.ID()] || (sm != nil && fighters[sm.Summoner]) {
			st.InArena = false
		}
	}
	a.Close()
}

func (a *Arena) living() []*world.Actor {
	var out []*world.Actor
	for _, id := range a.fighters {
		if f, ok := a.world.Actor(id); ok && f.IsAlive() {
			out = append(out, f)
		}
	}
	return out
}

// next advances the round-robin cursor to the next living fighter.
//
// Precondition: at least one fighter is alive.
func (a *Arena) next() *world.Actor {
	for range a.fighters {
		id := a.fighters[a.cursor]
		a.cursor = (a.cursor + 1) % len(a.fighters)
		if f, ok := a.world.Actor(id); ok && f.IsAlive() {
			return f
		}
	}
	panic("arena: no living fighter")
}

func (a *Arena) opponent(self *world.Actor, living []*world.Actor) *world.Actor {
	for _, f := range living {
		if f.ID() != self.ID() {
			return f
		}
	}
	return nil
}

func (a *Arena) finish(living []*world.Actor) {
	a.finished = true
	a.result = Result{MatchID: a.id, Ticks: a.ticks, Draw: len(living) != 1}
	if len(living) == 1 {
		w := living[0]
		a.result.Winner, a.result.WinnerName = w.ID(), w.Name()
		a.world.Message(fmt.Sprintf("%s wins the duel (%s).", w.Name(), npc.HealthDescription(w.Health())), world.SeverityInfo)
	} else {
		a.world.Message("The duel ends in a draw.", world.SeverityInfo)
	}
	a.release()
	a.logger.Info("arena match finished",
		zap.Bool("draw", a.result.Draw),
		zap.String("winner", a.result.WinnerName),
		zap.Int("ticks", a.ticks),
	)
}
