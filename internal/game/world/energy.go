package world

// ActionKind classifies actions for energy accounting.
type ActionKind string

const (
	KindMove    ActionKind = "move"
	KindAttack  ActionKind = "attack"
	KindCast    ActionKind = "cast"
	KindUseItem ActionKind = "use_item"
	KindWait    ActionKind = "wait"
)

// BaselineEnergy is the energy granted per world turn at speed 100.
const BaselineEnergy = 1000

// BaselineSpeed is the speed at which an actor receives exactly the per-turn grant.
const BaselineSpeed = 100

// CostTable maps an action kind to its energy cost.
type CostTable map[ActionKind]int

// DefaultCosts returns the stock cost table.
func DefaultCosts() CostTable {
	return CostTable{
		KindMove:    1000,
		KindAttack:  1000,
		KindCast:    1500,
		KindUseItem: 1000,
		KindWait:    500,
	}
}

// Clone returns an independent copy of c.
func (c CostTable) Clone() CostTable {
	out := make(CostTable, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Energy is an actor's action-point pool.
type Energy struct {
	Current   int
	BaseSpeed int
	Speed     int
	Costs     CostTable
}

// NewEnergy returns an empty pool at speed with the given cost table.
// A nil table uses DefaultCosts.
func NewEnergy(speed int, costs CostTable) *Energy {
	if costs == nil {
		costs = DefaultCosts()
	}
	return &Energy{BaseSpeed: speed, Speed: speed, Costs: costs.Clone()}
}

// Cost returns the cost of kind, falling back to the default table for unknown kinds.
func (e *Energy) Cost(kind ActionKind) int {
	if c, ok := e.Costs[kind]; ok {
		return c
	}
	return DefaultCosts()[kind]
}

// Grant adds perTurn * Speed / 100 to the pool.
//
// Postcondition: returns the amount granted; never negative.
func (e *Energy) Grant(perTurn int) int {
	gain := perTurn * e.Speed / BaselineSpeed
	if gain < 0 {
		gain = 0
	}
	e.Current += gain
	return gain
}

// CanAfford reports whether Current >= Cost(kind).
func (e *Energy) CanAfford(kind ActionKind) bool {
	return e.Current >= e.Cost(kind)
}

// Spend deducts exactly Cost(kind).
//
// Postcondition: returns false and leaves Current unchanged when the cost cannot be afforded.
func (e *Energy) Spend(kind ActionKind) bool {
	if !e.CanAfford(kind) {
		return false
	}
	e.Current -= e.Cost(kind)
	return true
}
