package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/NREL/celavi-sub000/sim/costgraph"
	"github.com/NREL/celavi-sub000/sim/trace"
)

// Event defines the interface for all simulation events.
// Each event must have a Timestamp (in timesteps) and an Execute method
// that advances simulation state when invoked. An Execute error stops the
// run.
type Event interface {
	Timestamp() int64
	Priority() int // 0=maintenance (refresh, handoff), 1=item
	Execute(*Context) error
}

const (
	priorityMaintenance = 0
	priorityItem        = 1
)

// ItemEntryEvent is an item beginning life. It snapshots the item's
// pathway from the graph as it stands at this timestep.
type ItemEntryEvent struct {
	time int64
	Item *Item
}

// Timestamp returns the entry timestep.
func (e *ItemEntryEvent) Timestamp() int64 { return e.time }

// Priority 1: entries read the graph after any refresh due at the same
// timestep.
func (e *ItemEntryEvent) Priority() int { return priorityItem }

// Execute takes the pathway snapshot and moves the item into its first
// stage at the same timestep.
func (e *ItemEntryEvent) Execute(ctx *Context) error {
	source := costgraph.StageKey{Step: ctx.cfg.EntryStep, FacilityID: e.Item.OriginFacilityID}
	p, err := ctx.graph.Pathway(source)
	if err != nil {
		return fmt.Errorf("item %d: %w", e.Item.ID, err)
	}
	ctx.trace.RecordPathway(trace.PathwayRecord{
		ItemID: e.Item.ID,
		Kind:   e.Item.Kind,
		Clock:  e.time,
		Source: p.Source.String(),
		Target: p.Target.String(),
		Cost:   p.Cost,
		Stages: len(p.Stages),
	})
	e.Item.assignPathway(p, ctx.cfg.InUseStep, 2*ctx.cfg.MaxTimesteps)
	ctx.active++
	ctx.metrics.SetActiveItems(ctx.active)
	ctx.Schedule(&ItemTransitionEvent{time: e.time, Item: e.Item})
	return nil
}

// ItemTransitionEvent moves an item out of its current stage and into the
// next stage of its pathway.
type ItemTransitionEvent struct {
	time int64
	Item *Item
}

// Timestamp returns the transition timestep.
func (e *ItemTransitionEvent) Timestamp() int64 { return e.time }

func (e *ItemTransitionEvent) Priority() int { return priorityItem }

// Execute performs the transition and schedules the next one unless the
// item has reached a terminal stage.
func (e *ItemTransitionEvent) Execute(ctx *Context) error {
	next, err := ctx.transition(e.Item, e.time)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}
	ctx.Schedule(&ItemTransitionEvent{time: e.time + int64(next.Duration), Item: e.Item})
	return nil
}

// GraphRefreshEvent recomputes learning-curve cumulative mass from the
// inventories and asks the graph to re-evaluate its costs.
type GraphRefreshEvent struct {
	time int64
}

// Timestamp returns the refresh timestep.
func (e *GraphRefreshEvent) Timestamp() int64 { return e.time }

// Priority 0: runs before every item event at the same timestep.
func (e *GraphRefreshEvent) Priority() int { return priorityMaintenance }

// Execute refreshes the graph and schedules the next refresh.
func (e *GraphRefreshEvent) Execute(ctx *Context) error {
	if err := ctx.refreshGraph(e.time); err != nil {
		return err
	}
	if next := e.time + ctx.cfg.CostGraphUpdateInterval; next < ctx.cfg.MaxTimesteps {
		ctx.Schedule(&GraphRefreshEvent{time: next})
	}
	return nil
}

// LCAHandoffEvent forwards the flows of the year ending at its timestep.
type LCAHandoffEvent struct {
	time int64
}

// Timestamp returns the end of the year window.
func (e *LCAHandoffEvent) Timestamp() int64 { return e.time }

// Priority 0. The window excludes its own timestep, so item events at
// that timestep land in the next batch either way.
func (e *LCAHandoffEvent) Priority() int { return priorityMaintenance }

// Execute emits the window [time - timesteps_per_year, time) and schedules
// the next handoff.
func (e *LCAHandoffEvent) Execute(ctx *Context) error {
	if err := ctx.handoff(e.time-ctx.cfg.TimestepsPerYear, e.time); err != nil {
		return err
	}
	if next := e.time + ctx.cfg.TimestepsPerYear; next < ctx.cfg.MaxTimesteps {
		ctx.Schedule(&LCAHandoffEvent{time: next})
	}
	return nil
}

func eventLabel(ev Event) string {
	switch ev.(type) {
	case *ItemEntryEvent:
		return "item_entry"
	case *ItemTransitionEvent:
		return "item_transition"
	case *GraphRefreshEvent:
		return "graph_refresh"
	case *LCAHandoffEvent:
		return "lca_handoff"
	}
	return "other"
}

// windowYear is the calendar year a handoff window starts in.
func (ctx *Context) windowYear(from int64) int {
	return int(math.Floor(ctx.cfg.TimestepsToYears(from)))
}

func logTransition(item *Item, from, to *costgraph.Stage, t int64) {
	if !logrus.IsLevelEnabled(logrus.TraceLevel) {
		return
	}
	src := "entry"
	if from != nil {
		src = from.Key.String()
	}
	logrus.Tracef("[tick %07d] item %d: %s -> %s", t, item.ID, src, to.Key)
}
