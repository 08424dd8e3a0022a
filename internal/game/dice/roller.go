package dice

import "go.uber.org/zap"

// Roller wraps a Source and logs every combat-relevant draw at debug level.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewRoller returns a Roller drawing from src. A nil logger disables logging.
//
// Precondition: src must not be nil.
func NewRoller(src Source, logger *zap.Logger) *Roller {
	if src == nil {
		panic("dice.NewRoller: src must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roller{src: src, logger: logger}
}

// Source returns the underlying randomness source.
func (r *Roller) Source() Source { return r.src }

// Intn returns a value in [0, n) without logging.
func (r *Roller) Intn(n int) int { return r.src.Intn(n) }

// Chance rolls a percentage check.
//
// Postcondition: always false when percent <= 0, always true when percent >= 100.
func (r *Roller) Chance(label string, percent int) bool {
	if percent <= 0 {
		return false
	}
	roll := r.src.Intn(100)
	hit := roll < percent
	r.logger.Debug("chance roll",
		zap.String("label", label),
		zap.Int("percent", percent),
		zap.Int("roll", roll),
		zap.Bool("success", hit),
	)
	return hit
}

// Uniform returns a value in [lo, hi].
func (r *Roller) Uniform(label string, lo, hi float64) float64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	v := lo + r.src.Float64()*(hi-lo)
	if v > hi {
		v = hi
	}
	r.logger.Debug("uniform roll",
		zap.String("label", label),
		zap.Float64("lo", lo),
		zap.Float64("hi", hi),
		zap.Float64("value", v),
	)
	return v
}

// Roll evaluates expr and logs the result.
func (r *Roller) Roll(expr Expression) RollResult {
	result := Roll(expr, r.src)
	r.logger.Debug("dice roll",
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total()),
	)
	return result
}

// RollExpr parses expr and rolls it.
func (r *Roller) RollExpr(expr string) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	return r.Roll(e), nil
}
