// sim/simulator.go
package sim

import (
	"container/heap"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/NREL/celavi-sub000/sim/costgraph"
	"github.com/NREL/celavi-sub000/sim/costmethods"
	"github.com/NREL/celavi-sub000/sim/trace"
)

// eventEntry wraps an Event with a sequence ID for deterministic FIFO
// tie-breaking when timestamp and priority are equal.
type eventEntry struct {
	event Event
	seqID int64
}

// EventQueue is a min-heap ordered by (Timestamp, Priority, seqID).
// Implements heap.Interface.
type EventQueue []eventEntry

func (q EventQueue) Len() int { return len(q) }

func (q EventQueue) Less(i, j int) bool {
	if q[i].event.Timestamp() != q[j].event.Timestamp() {
		return q[i].event.Timestamp() < q[j].event.Timestamp()
	}
	if q[i].event.Priority() != q[j].event.Priority() {
		return q[i].event.Priority() < q[j].event.Priority()
	}
	return q[i].seqID < q[j].seqID
}

func (q EventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *EventQueue) Push(x any) {
	*q = append(*q, x.(eventEntry))
}

func (q *EventQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// Graph is the part of the supply-chain graph the kernel uses.
// *costgraph.CostGraph implements it.
type Graph interface {
	Pathway(source costgraph.StageKey) (costgraph.Pathway, error)
	UpdateCosts(pd *costmethods.PathDict) error
	FindDownstream(from costgraph.StageKey, connectTo string) (costgraph.Neighbor, bool)
	Steps() []costgraph.StageKey
	FacilityType(key costgraph.StageKey) (string, bool)
}

// Context owns the simulated clock, the items, all inventories and
// trackers, the graph and the cost-parameter store. It is single-threaded:
// events run one at a time in (timestep, priority, insertion) order.
type Context struct {
	Clock int64

	Items            []*Item
	CountInventories map[costgraph.StageKey]*Inventory
	MassInventories  map[costgraph.StageKey]*Inventory
	Trackers         map[int]*TransportationTracker

	cfg      Config
	graph    Graph
	masses   *MaterialMasses
	lca      LCA
	metrics  *Metrics
	trace    *trace.SimulationTrace
	pathDict *costmethods.PathDict

	queue      EventQueue
	seq        int64
	active     int
	lcaFlushed int64
	stageKeys  []costgraph.StageKey
}

// Result is what Run hands back: the final ledgers.
type Result struct {
	CountInventories map[costgraph.StageKey]*Inventory
	MassInventories  map[costgraph.StageKey]*Inventory
	Trackers         map[int]*TransportationTracker
}

// NewContext builds the inventories for every stage of graph and
// schedules the periodic refresh and handoff events. masses, lca and
// metrics may be nil.
func NewContext(cfg Config, graph Graph, masses *MaterialMasses, lca LCA, metrics *Metrics) (*Context, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.InUseStep == "" {
		cfg.InUseStep = "in use"
	}
	if len(cfg.PossibleMaterials) == 0 && masses != nil {
		cfg.PossibleMaterials = masses.Materials()
	}
	pd := cfg.PathDict
	if pd == nil {
		pd = &costmethods.PathDict{}
	}

	ctx := &Context{
		CountInventories: make(map[costgraph.StageKey]*Inventory),
		MassInventories:  make(map[costgraph.StageKey]*Inventory),
		Trackers:         make(map[int]*TransportationTracker),
		cfg:              cfg,
		graph:            graph,
		masses:           masses,
		lca:              lca,
		metrics:          metrics,
		pathDict:         pd.Clone(),
		queue:            make(EventQueue, 0),
	}

	steps := int(cfg.MaxTimesteps)
	ctx.stageKeys = graph.Steps()
	sort.Slice(ctx.stageKeys, func(i, j int) bool { return ctx.stageKeys[i].Less(ctx.stageKeys[j]) })
	for _, key := range ctx.stageKeys {
		ft, _ := graph.FacilityType(key)
		ctx.CountInventories[key] = NewInventory(key, ft, cfg.PossibleComponents, steps, "count", false)
		ctx.MassInventories[key] = NewInventory(key, ft, cfg.PossibleMaterials, steps, "tonne", false)
		if _, ok := ctx.Trackers[key.FacilityID]; !ok {
			ctx.Trackers[key.FacilityID] = NewTransportationTracker(key.FacilityID, steps)
		}
	}

	if cfg.CostGraphUpdateInterval > 0 && cfg.CostGraphUpdateInterval < cfg.MaxTimesteps {
		ctx.Schedule(&GraphRefreshEvent{time: cfg.CostGraphUpdateInterval})
	}
	if lca != nil && cfg.TimestepsPerYear < cfg.MaxTimesteps {
		ctx.Schedule(&LCAHandoffEvent{time: cfg.TimestepsPerYear})
	}
	return ctx, nil
}

// Config returns the run parameters.
func (ctx *Context) Config() Config { return ctx.cfg }

// PathDict returns the context's cost-parameter store. Only graph
// refreshes mutate it.
func (ctx *Context) PathDict() *costmethods.PathDict { return ctx.pathDict }

// SetTrace attaches a decision trace. Nil disables tracing.
func (ctx *Context) SetTrace(st *trace.SimulationTrace) { ctx.trace = st }

// Trace returns the attached decision trace, if any.
func (ctx *Context) Trace() *trace.SimulationTrace { return ctx.trace }

// Schedule pushes an event onto the queue.
func (ctx *Context) Schedule(ev Event) {
	heap.Push(&ctx.queue, eventEntry{event: ev, seqID: ctx.seq})
	ctx.seq++
}

// AddItem registers item and schedules its entry at the timestep of its
// year. Items entering at or after the horizon are kept but never enter.
func (ctx *Context) AddItem(item *Item) error {
	t := ctx.cfg.YearsToTimesteps(item.Year)
	if t < 0 {
		return fmt.Errorf("item %d: year %v is before the first model year %v", item.ID, item.Year, ctx.cfg.MinYear)
	}
	ctx.Items = append(ctx.Items, item)
	if t >= ctx.cfg.MaxTimesteps {
		logrus.Debugf("Item %d enters at timestep %d, after the horizon", item.ID, t)
		return nil
	}
	ctx.Schedule(&ItemEntryEvent{time: t, Item: item})
	return nil
}

// Active is the number of items that have entered and not reached a
// terminal stage.
func (ctx *Context) Active() int { return ctx.active }

// Run executes every event scheduled before MaxTimesteps, flushes the
// trailing partial year to the LCA collaborator, and returns the ledgers.
// The first event error stops the run and is returned.
func (ctx *Context) Run() (*Result, error) {
	logrus.Infof("[tick %07d] Simulation started with %d items", ctx.Clock, len(ctx.Items))
	for ctx.queue.Len() > 0 {
		if ctx.queue[0].event.Timestamp() >= ctx.cfg.MaxTimesteps {
			break
		}
		ev := heap.Pop(&ctx.queue).(eventEntry).event
		ctx.Clock = ev.Timestamp()
		logrus.Debugf("[tick %07d] Executing %T", ctx.Clock, ev)
		ctx.metrics.EventExecuted(eventLabel(ev))
		if err := ev.Execute(ctx); err != nil {
			return nil, fmt.Errorf("timestep %d: %w", ctx.Clock, err)
		}
	}
	ctx.Clock = ctx.cfg.MaxTimesteps
	if ctx.lca != nil && ctx.lcaFlushed < ctx.cfg.MaxTimesteps {
		if err := ctx.handoff(ctx.lcaFlushed, ctx.cfg.MaxTimesteps); err != nil {
			return nil, err
		}
	}
	logrus.Infof("[tick %07d] Simulation ended with %d active items", ctx.Clock, ctx.active)
	return &Result{
		CountInventories: ctx.CountInventories,
		MassInventories:  ctx.MassInventories,
		Trackers:         ctx.Trackers,
	}, nil
}

// transition moves item out of its current stage and into the next one
// at timestep t. It returns the new stage, or nil when the item is now in
// a terminal stage or has no stages left.
func (ctx *Context) transition(item *Item, t int64) (*costgraph.Stage, error) {
	prev := item.current
	if prev != nil {
		if err := ctx.leave(item, prev, t); err != nil {
			return nil, err
		}
	}
	next := item.popStage()
	if next == nil {
		item.current = nil
		item.terminal = true
		ctx.active--
		ctx.metrics.SetActiveItems(ctx.active)
		return nil, nil
	}
	if err := ctx.enter(item, next, t); err != nil {
		return nil, err
	}
	logTransition(item, prev, next, t)
	item.current = next
	if next.Terminal {
		item.terminal = true
		ctx.active--
		ctx.metrics.SetActiveItems(ctx.active)
		return nil, nil
	}
	return next, nil
}

func (ctx *Context) enter(item *Item, st *costgraph.Stage, t int64) error {
	count, mass, err := ctx.ledgers(st.Key)
	if err != nil {
		return err
	}
	if _, err := count.IncrementQuantity(item.Kind, 1, t); err != nil {
		return err
	}
	item.entered = make(map[string]float64, len(item.Mass))
	for _, m := range item.materials() {
		if _, err := mass.IncrementQuantity(m, item.Mass[m], t); err != nil {
			return err
		}
		item.entered[m] = item.Mass[m]
	}
	if st.Distance > 0 {
		if err := ctx.Trackers[st.Key.FacilityID].IncrementInboundTonneKm(item.totalMass()*st.Distance, st.RouteID, t); err != nil {
			return err
		}
	}
	ctx.metrics.StageEntered(st.Key.Step)
	return nil
}

func (ctx *Context) leave(item *Item, st *costgraph.Stage, t int64) error {
	count, mass, err := ctx.ledgers(st.Key)
	if err != nil {
		return err
	}
	if _, err := count.IncrementQuantity(item.Kind, -1, t); err != nil {
		return err
	}
	for _, m := range item.materials() {
		if _, err := mass.IncrementQuantity(m, -item.entered[m], t); err != nil {
			return err
		}
	}
	split, ok := ctx.pathDict.PathSplit[st.Key.Step]
	if !ok || split.Fraction <= 0 {
		return nil
	}
	return ctx.divert(item, st, split, t)
}

// divert deposits split.Fraction of the item's mass at the nearest
// downstream split.Destination stage, which never releases it, and
// reduces the carried mass to the remainder.
func (ctx *Context) divert(item *Item, st *costgraph.Stage, split costmethods.PathSplit, t int64) error {
	dest := split.Destination
	if dest == "" {
		dest = "landfill"
	}
	n, ok := ctx.graph.FindDownstream(st.Key, dest)
	if !ok {
		logrus.Warnf("No %s downstream of %s; item %d keeps its full mass", dest, st.Key, item.ID)
		return nil
	}
	_, sink, err := ctx.ledgers(n.Key)
	if err != nil {
		return err
	}
	lost := 0.0
	for _, m := range item.materials() {
		q := item.Mass[m] * split.Fraction
		if _, err := sink.IncrementQuantity(m, q, t); err != nil {
			return err
		}
		item.Mass[m] -= q
		lost += q
	}
	if n.Dist > 0 && lost > 0 {
		return ctx.Trackers[n.Key.FacilityID].IncrementInboundTonneKm(lost*n.Dist, n.RouteID, t)
	}
	return nil
}

func (ctx *Context) ledgers(key costgraph.StageKey) (*Inventory, *Inventory, error) {
	count, ok := ctx.CountInventories[key]
	if !ok {
		return nil, nil, fmt.Errorf("%w: no inventory for %s", costgraph.ErrUnknownNode, key)
	}
	return count, ctx.MassInventories[key], nil
}

// refreshGraph updates year, component mass and learning-curve cumulative
// mass in the cost-parameter store, then re-evaluates the graph.
func (ctx *Context) refreshGraph(t int64) error {
	pd := ctx.pathDict
	pd.Year = ctx.cfg.TimestepsToYears(t)
	if ctx.masses != nil && ctx.cfg.MassComponent != "" {
		if m := ctx.masses.ComponentMass(ctx.cfg.MassComponent, pd.Year); m > 0 {
			pd.ComponentMass = m
		}
	}
	cumuls := make(map[string]float64, len(pd.Learning))
	for _, key := range pd.LearningKeys() {
		lc := pd.Learning[key]
		observed := ctx.cumulativeInput(lc.Component, lc.Steps, t)
		cumul := lc.InitialCumul + observed
		lc.Cumul = &cumul
		cumuls[key] = cumul
	}
	if err := ctx.graph.UpdateCosts(pd); err != nil {
		return fmt.Errorf("graph refresh at year %v: %w", pd.Year, err)
	}
	ctx.trace.RecordRefresh(trace.RefreshRecord{
		Clock:         t,
		Year:          pd.Year,
		ComponentMass: pd.ComponentMass,
		LearningCumul: cumuls,
	})
	ctx.metrics.GraphRefreshed()
	logrus.Debugf("[tick %07d] Graph refreshed for year %.2f", t, pd.Year)
	return nil
}

// cumulativeInput sums the mass that entered any stage running one of
// steps before t, restricted to the materials of component when given.
func (ctx *Context) cumulativeInput(component string, steps []string, t int64) float64 {
	want := make(map[string]bool, len(steps))
	for _, s := range steps {
		want[s] = true
	}
	materials := ctx.cfg.PossibleMaterials
	if component != "" && ctx.masses != nil {
		if ms := ctx.masses.MaterialsOf(component); len(ms) > 0 {
			materials = ms
		}
	}
	total := 0.0
	for _, key := range ctx.stageKeys {
		if !want[key.Step] {
			continue
		}
		inv := ctx.MassInventories[key]
		for _, m := range materials {
			total += inv.CumulativeInput(m, t)
		}
	}
	return total
}

// handoff forwards the strictly positive flows and the transport totals of
// [from, to) to the LCA collaborator. An empty window emits nothing.
func (ctx *Context) handoff(from, to int64) error {
	ctx.lcaFlushed = to
	if ctx.lca == nil {
		return nil
	}
	year := ctx.windowYear(from)
	batch := FlowBatch{Year: year}
	for _, key := range ctx.stageKeys {
		inv := ctx.MassInventories[key]
		for _, m := range inv.Items() {
			q := 0.0
			for t := from; t < to; t++ {
				if v := inv.Transaction(m, t); v > 0 {
					q += v
				}
			}
			if q > 0 {
				batch.Flows = append(batch.Flows, FlowRow{
					FlowQuantityKg: q * 1000,
					Stage:          key.Step,
					Year:           year,
					Material:       m,
					FacilityID:     key.FacilityID,
				})
			}
		}
	}
	ids := make([]int, 0, len(ctx.Trackers))
	for id := range ctx.Trackers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if tkm := ctx.Trackers[id].Window(from, to); tkm > 0 {
			batch.Transport = append(batch.Transport, TransportRow{FacilityID: id, Year: year, TonneKm: tkm})
		}
	}
	if len(batch.Flows) == 0 && len(batch.Transport) == 0 {
		return nil
	}
	batch.sort()
	if err := ctx.lca.ProcessFlows(batch); err != nil {
		return fmt.Errorf("lca handoff for %d: %w", year, err)
	}
	ctx.metrics.LCABatch(len(batch.Flows) + len(batch.Transport))
	return nil
}
