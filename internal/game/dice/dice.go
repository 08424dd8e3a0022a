// Package dice provides the randomness sources and logged roller used by
// combat, spell and spawn resolution.
package dice

import "fmt"

// Source is the randomness provider for every roll in the engine.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
	// Float64 returns a random float in [0, 1).
	Float64() float64
}

// RollResult is the audit trail of one dice expression evaluation.
//
// Postcondition: Total() == sum(Dice) + Modifier.
type RollResult struct {
	Expression string
	Dice       []int
	Modifier   int
}

// Total returns the sum of all die results plus the modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// String renders the roll as "2d6+3 = [4 5]+3 = 12".
func (r RollResult) String() string {
	return fmt.Sprintf("%s = %v%+d = %d", r.Expression, r.Dice, r.Modifier, r.Total())
}
