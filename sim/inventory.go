package sim

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/NREL/celavi-sub000/sim/costgraph"
)

// ErrNegativeInventory is wrapped by every InventoryError.
var ErrNegativeInventory = errors.New("inventory cannot go negative")

// InventoryError names the inventory and item whose rounded level dropped
// below zero. It aborts the run.
type InventoryError struct {
	Key      costgraph.StageKey
	Unit     string
	Item     string
	Level    float64
	Timestep int64
}

func (e *InventoryError) Error() string {
	return fmt.Sprintf("inventory %s (%s) item %q at timestep %d: level %v: %v",
		e.Key, e.Unit, e.Item, e.Timestep, e.Level, ErrNegativeInventory)
}

func (e *InventoryError) Unwrap() error { return ErrNegativeInventory }

// Inventory is a time-indexed ledger of quantity held at one stage. Count
// inventories track items by kind; mass inventories track tonnes by
// material.
type Inventory struct {
	Key           costgraph.StageKey
	FacilityType  string
	Unit          string
	CanBeNegative bool

	items        []string
	index        map[string]int
	levels       []float64
	transactions [][]float64 // [item][timestep]
	inputs       [][]float64 // positive transactions only
}

// NewInventory creates an inventory over items for timesteps steps.
func NewInventory(key costgraph.StageKey, facilityType string, items []string, timesteps int, unit string, canBeNegative bool) *Inventory {
	inv := &Inventory{
		Key:           key,
		FacilityType:  facilityType,
		Unit:          unit,
		CanBeNegative: canBeNegative,
		items:         append([]string(nil), items...),
		index:         make(map[string]int, len(items)),
		levels:        make([]float64, len(items)),
		transactions:  make([][]float64, len(items)),
		inputs:        make([][]float64, len(items)),
	}
	for i, it := range items {
		inv.index[it] = i
		inv.transactions[i] = make([]float64, timesteps)
		inv.inputs[i] = make([]float64, timesteps)
	}
	return inv
}

// IncrementQuantity records delta for item at timestep and returns the new
// level. Unless CanBeNegative is set, a level that rounds to below zero at
// two decimals returns an *InventoryError.
func (inv *Inventory) IncrementQuantity(item string, delta float64, timestep int64) (float64, error) {
	i, ok := inv.index[item]
	if !ok {
		return 0, fmt.Errorf("inventory %s: unknown item %q", inv.Key, item)
	}
	if timestep < 0 || timestep >= int64(len(inv.transactions[i])) {
		return 0, fmt.Errorf("inventory %s: timestep %d outside [0, %d)", inv.Key, timestep, len(inv.transactions[i]))
	}
	inv.transactions[i][timestep] += delta
	if delta > 0 {
		inv.inputs[i][timestep] += delta
	}
	inv.levels[i] += delta
	if !inv.CanBeNegative && decimal.NewFromFloat(inv.levels[i]).Round(2).IsNegative() {
		return inv.levels[i], &InventoryError{
			Key:      inv.Key,
			Unit:     inv.Unit,
			Item:     item,
			Level:    inv.levels[i],
			Timestep: timestep,
		}
	}
	return inv.levels[i], nil
}

// Items returns the tracked item names in construction order.
func (inv *Inventory) Items() []string { return append([]string(nil), inv.items...) }

// Level returns the current quantity of item.
func (inv *Inventory) Level(item string) float64 {
	if i, ok := inv.index[item]; ok {
		return inv.levels[i]
	}
	return 0
}

// Timesteps is the length of every history.
func (inv *Inventory) Timesteps() int {
	if len(inv.transactions) == 0 {
		return 0
	}
	return len(inv.transactions[0])
}

// TransactionHistory returns a copy of the per-timestep transactions of item.
func (inv *Inventory) TransactionHistory(item string) []float64 {
	i, ok := inv.index[item]
	if !ok {
		return nil
	}
	return append([]float64(nil), inv.transactions[i]...)
}

// Transaction returns the net change of item at timestep.
func (inv *Inventory) Transaction(item string, timestep int64) float64 {
	i, ok := inv.index[item]
	if !ok || timestep < 0 || timestep >= int64(len(inv.transactions[i])) {
		return 0
	}
	return inv.transactions[i][timestep]
}

// CumulativeHistory is the running level of item after each timestep.
func (inv *Inventory) CumulativeHistory(item string) []float64 {
	i, ok := inv.index[item]
	if !ok {
		return nil
	}
	return cumsum(inv.transactions[i])
}

// CumulativeInputHistory is the running total of positive transactions.
func (inv *Inventory) CumulativeInputHistory(item string) []float64 {
	i, ok := inv.index[item]
	if !ok {
		return nil
	}
	return cumsum(inv.inputs[i])
}

// CumulativeInput is the sum of positive transactions of item in [0, until).
func (inv *Inventory) CumulativeInput(item string, until int64) float64 {
	i, ok := inv.index[item]
	if !ok {
		return 0
	}
	total := 0.0
	for t := int64(0); t < until && t < int64(len(inv.inputs[i])); t++ {
		total += inv.inputs[i][t]
	}
	return total
}

func cumsum(xs []float64) []float64 {
	out := make([]float64, len(xs))
	sum := 0.0
	for i, x := range xs {
		sum += x
		out[i] = sum
	}
	return out
}
