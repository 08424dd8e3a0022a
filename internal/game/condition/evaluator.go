package condition

import (
	"strconv"
	"sync"

	"github.com/google/cel-go/cel"
	"go.uber.org/zap"

	"github.com/cory-johannsen/crawl/internal/game/world"
)

// Evaluator evaluates conditions. It has no side effects on the world; the
// only state it keeps is a cache of compiled expr programs.
// All methods are safe for concurrent use.
type Evaluator struct {
	logger *zap.Logger
	env    *cel.Env

	mu       sync.Mutex
	programs map[string]cel.Program
	// broken remembers expressions that failed to compile so they are reported once.
	broken map[string]bool
}

// NewEvaluator returns an Evaluator. A nil logger disables logging.
//
// Postcondition: expr conditions are unavailable (always false) if the CEL
// environment cannot be built; all other kinds are unaffected.
func NewEvaluator(logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	env, err := cel.NewEnv(
		cel.Variable("actor", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("target", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("turn", cel.IntType),
	)
	if err != nil {
		logger.Warn("condition: CEL environment unavailable", zap.Error(err))
	}
	return &Evaluator{
		logger:   logger,
		env:      env,
		programs: make(map[string]cel.Program),
		broken:   make(map[string]bool),
	}
}

// Evaluate reports whether c holds in ctx.
//
// Postcondition: a nil condition is true; unknown kinds and conditions that
// need a missing actor, target or component are false.
func (e *Evaluator) Evaluate(c *Condition, ctx Context) bool {
	if c == nil {
		return true
	}
	if !ctx.Actor.Valid() {
		return false
	}
	switch c.Type {
	case KindDistanceToTarget:
		if !ctx.Target.Valid() {
			return false
		}
		want, ok := c.Number()
		if !ok {
			return false
		}
		return Compare(c.Op, ctx.Actor.Position().Distance(ctx.Target.Position()), want)

	case KindHP:
		h := ctx.Actor.Health()
		if h == nil {
			return false
		}
		want, ok := c.Number()
		if !ok {
			return false
		}
		if c.Percent() {
			return Compare(c.Op, h.Percent(), want)
		}
		return Compare(c.Op, float64(h.HP), want)

	case KindLastAction:
		ai := ctx.Actor.AI()
		if ai == nil {
			return false
		}
		return CompareString(c.Op, ai.LastAction, c.Value)

	case KindState:
		ai := ctx.Actor.AI()
		if ai == nil {
			return false
		}
		return CompareString(c.Op, ai.State, c.Value)

	case KindHasClearShot:
		if !ctx.Target.Valid() || ctx.World == nil {
			return false
		}
		visible := ctx.World.HasLineOfSight(ctx.Actor.Position(), ctx.Target.Position())
		if want, err := strconv.ParseBool(c.Value); err == nil {
			return visible == want
		}
		return visible

	case KindHasSpell:
		id := c.SpellID()
		return id != "" && ctx.Actor.KnowsSpell(id)

	case KindSpellCooldown:
		want, ok := c.Number()
		if !ok {
			return false
		}
		cd := 0
		if ai := ctx.Actor.AI(); ai != nil {
			cd = ai.SpellCooldown(c.Spell)
		}
		return Compare(c.Op, float64(cd), want)

	case KindExpr:
		return e.evalExpr(c.Expr, ctx)

	default:
		return false
	}
}

// All evaluates conds as a logical AND in order, stopping at the first false member.
//
// Postcondition: an empty list is true.
func (e *Evaluator) All(conds []Condition, ctx Context) bool {
	for i := range conds {
		if !e.Evaluate(&conds[i], ctx) {
			return false
		}
	}
	return true
}

func (e *Evaluator) evalExpr(src string, ctx Context) bool {
	prg, ok := e.program(src)
	if !ok {
		return false
	}
	turn := 0
	if ctx.World != nil {
		turn = ctx.World.Turn()
	}
	out, _, err := prg.Eval(map[string]any{
		"actor":  actorVars(ctx.Actor, ctx.Target),
		"target": actorVars(ctx.Target, ctx.Actor),
		"turn":   int64(turn),
	})
	if err != nil {
		e.logger.Debug("condition: expr evaluation failed", zap.String("expr", src), zap.Error(err))
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

func (e *Evaluator) program(src string) (cel.Program, bool) {
	if e.env == nil || src == "" {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if prg, ok := e.programs[src]; ok {
		return prg, true
	}
	if e.broken[src] {
		return nil, false
	}
	ast, issues := e.env.Compile(src)
	if issues != nil && issues.Err() != nil {
		e.broken[src] = true
		e.logger.Warn("condition: expr does not compile", zap.String("expr", src), zap.Error(issues.Err()))
		return nil, false
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		e.broken[src] = true
		e.logger.Warn("condition: expr program failed", zap.String("expr", src), zap.Error(err))
		return nil, false
	}
	e.programs[src] = prg
	return prg, true
}

// actorVars flattens a for expression access. other supplies the distance field.
func actorVars(a, other *world.Actor) map[string]any {
	if !a.Valid() {
		return map[string]any{"present": false}
	}
	p := a.Position()
	vars := map[string]any{
		"present":  true,
		"name":     a.Name(),
		"category": a.Category(),
		"x":        int64(p.X),
		"y":        int64(p.Y),
		"player":   a.IsPlayer(),
	}
	if h := a.Health(); h != nil {
		vars["hp"] = int64(h.HP)
		vars["maxHp"] = int64(h.MaxHP)
		vars["hpPercent"] = h.Percent()
	}
	if m := a.Mana(); m != nil {
		vars["mana"] = int64(m.Current)
		vars["maxMana"] = int64(m.Max)
	}
	if ai := a.AI(); ai != nil {
		vars["state"] = ai.State
		vars["lastAction"] = ai.LastAction
		vars["faction"] = string(ai.Faction)
	}
	if other.Valid() {
		vars["distance"] = p.Distance(other.Position())
	}
	return vars
}
