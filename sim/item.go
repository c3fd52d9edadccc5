package sim

import (
	"maps"
	"slices"

	"github.com/NREL/celavi-sub000/sim/costgraph"
)

// Item is one simulated physical unit, e.g. a wind turbine blade.
//
// The pathway is a snapshot taken at entry and consumed front to back;
// nothing else holds a reference to it.
type Item struct {
	ID                int
	Kind              string
	Year              float64
	InUseFacilityID   int
	OriginFacilityID  int
	LifespanTimesteps int64

	// Mass is the per-material mass in tonnes the item is carrying now.
	// Fine-grinding loss reduces it.
	Mass map[string]float64

	pathway  []costgraph.Stage
	current  *costgraph.Stage
	entered  map[string]float64 // mass that entered the current stage
	terminal bool
}

// NewItem creates an item carrying a copy of mass.
func NewItem(id int, kind string, year float64, inUseFacilityID, originFacilityID int, lifespan int64, mass map[string]float64) *Item {
	return &Item{
		ID:                id,
		Kind:              kind,
		Year:              year,
		InUseFacilityID:   inUseFacilityID,
		OriginFacilityID:  originFacilityID,
		LifespanTimesteps: lifespan,
		Mass:              maps.Clone(mass),
	}
}

// assignPathway stores the snapshot with the in-use sojourn replaced by
// the item's lifespan and terminal sojourns set past the horizon.
func (it *Item) assignPathway(p costgraph.Pathway, inUseStep string, terminalDuration int64) {
	stages := p.Clone().Stages
	for i := range stages {
		switch {
		case stages[i].Terminal:
			stages[i].Duration = int(terminalDuration)
		case stages[i].Key.Step == inUseStep:
			stages[i].Duration = int(it.LifespanTimesteps)
		}
		if stages[i].Duration < 1 {
			stages[i].Duration = 1
		}
	}
	it.pathway = stages
}

// Current returns the stage the item occupies, or nil before entry.
func (it *Item) Current() *costgraph.Stage { return it.current }

// Remaining returns the stages not yet visited.
func (it *Item) Remaining() []costgraph.Stage { return slices.Clone(it.pathway) }

// Terminal reports whether the item has reached its sink.
func (it *Item) Terminal() bool { return it.terminal }

// materials returns the carried materials in sorted order.
func (it *Item) materials() []string {
	return slices.Sorted(maps.Keys(it.Mass))
}

func (it *Item) totalMass() float64 {
	total := 0.0
	for _, m := range it.materials() {
		total += it.Mass[m]
	}
	return total
}

// popStage removes and returns the next stage, or nil when none remain.
func (it *Item) popStage() *costgraph.Stage {
	if len(it.pathway) == 0 {
		return nil
	}
	next := it.pathway[0]
	it.pathway = it.pathway[1:]
	return &next
}
