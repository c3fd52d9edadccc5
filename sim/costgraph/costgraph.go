// Package costgraph builds the supply-chain graph of processing steps at
// facilities and chooses least-cost pathways through it.
//
// Nodes are (step, facility) pairs. Intra-facility edges come from the
// facility-edge templates and carry only the processing cost of their
// source node. Inter-facility edges come from the transport-edge templates
// and exist only where the routes table supplies a distance. Edge weights
// are re-evaluated through costmethods on every UpdateCosts call, so a
// pathway handed out before a refresh is never changed by it.
package costgraph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/NREL/celavi-sub000/sim/costmethods"
	"github.com/NREL/celavi-sub000/sim/tables"
)

var (
	// ErrNoPath is returned when an entry node cannot reach any terminal node.
	ErrNoPath = errors.New("no path to a terminal step")
	// ErrUnknownNode is returned for lookups of stages or facilities the
	// graph does not contain.
	ErrUnknownNode = errors.New("unknown node")
	// ErrNegativeCycle is returned when a negative-cost cycle is reachable
	// from an entry node; least-cost paths are undefined then.
	ErrNegativeCycle = errors.New("negative cost cycle")
)

// Connects values from the step-costs table.
const (
	ConnectsIn  = "in"
	ConnectsOut = "out"
	ConnectsBid = "bid"
)

// StageKey identifies one processing step at one facility.
type StageKey struct {
	Step       string
	FacilityID int
}

func (k StageKey) String() string { return fmt.Sprintf("%s_%d", k.Step, k.FacilityID) }

// Less orders keys by step name, then facility id.
func (k StageKey) Less(o StageKey) bool {
	if k.Step != o.Step {
		return k.Step < o.Step
	}
	return k.FacilityID < o.FacilityID
}

// Config selects the pathway boundaries and the cost state the graph is
// first evaluated with.
type Config struct {
	// Begin and InCirc name the entry steps; End and OutCirc the terminal steps.
	Begin   []string
	End     []string
	InCirc  []string
	OutCirc []string

	Year                 float64
	ComponentInitialMass float64
	Run                  int
}

type node struct {
	id           int64
	key          StageKey
	facilityType string
	costMethod   string
	connects     string
	timeout      int
	regions      [4]string
	terminal     bool
	entry        bool
	cost         float64
}

type edge struct {
	from, to  int64
	transport string
	dist      float64
	routeID   string
	cost      float64
}

// CostGraph is the supply-chain graph. It is not safe for concurrent use;
// the simulation kernel is single-threaded.
type CostGraph struct {
	g       *simple.DirectedGraph
	nodes   []*node // indexed by graph id
	byKey   map[StageKey]*node
	edges   map[[2]int64]*edge
	ordered []*edge // sorted by (from, to)

	methods  *costmethods.CostMethods
	pathDict *costmethods.PathDict
	cfg      Config
	year     float64

	paths   map[StageKey]Pathway
	history []CriterionRecord
}

// Build constructs the graph from the input tables and evaluates every
// edge against pd. It does not choose paths; call ChoosePaths next.
func Build(t *tables.Tables, pd *costmethods.PathDict, methods *costmethods.CostMethods, cfg Config) (*CostGraph, error) {
	if len(cfg.Begin)+len(cfg.InCirc) == 0 {
		return nil, fmt.Errorf("%w: no entry steps configured", ErrUnknownNode)
	}
	if len(cfg.End)+len(cfg.OutCirc) == 0 {
		return nil, fmt.Errorf("%w: no terminal steps configured", ErrUnknownNode)
	}

	cg := &CostGraph{
		g:       simple.NewDirectedGraph(),
		byKey:   make(map[StageKey]*node),
		edges:   make(map[[2]int64]*edge),
		methods: methods,
		cfg:     cfg,
		year:    cfg.Year,
	}
	if err := cg.addNodes(t); err != nil {
		return nil, err
	}
	cg.addFacilityEdges(t.FacilityEdges)
	if err := cg.addTransportEdges(t.TransportEdges, t.Routes); err != nil {
		return nil, err
	}
	cg.ordered = make([]*edge, 0, len(cg.edges))
	for _, e := range cg.edges {
		cg.ordered = append(cg.ordered, e)
	}
	sort.Slice(cg.ordered, func(i, j int) bool {
		if cg.ordered[i].from != cg.ordered[j].from {
			return cg.ordered[i].from < cg.ordered[j].from
		}
		return cg.ordered[i].to < cg.ordered[j].to
	})

	if pd == nil {
		pd = methods.PathDict()
	}
	pd = pd.Clone()
	pd.Year = cfg.Year
	pd.ComponentMass = cfg.ComponentInitialMass
	if err := cg.evaluate(pd); err != nil {
		return nil, err
	}
	logrus.Infof("Supply chain graph built: %d nodes, %d edges", len(cg.nodes), len(cg.edges))
	return cg, nil
}

func (cg *CostGraph) addNodes(t *tables.Tables) error {
	locs := make(map[int]tables.Location, len(t.Locations))
	for _, l := range t.Locations {
		if _, dup := locs[l.FacilityID]; !dup {
			locs[l.FacilityID] = l
		}
	}
	entry := stepSet(cg.cfg.Begin, cg.cfg.InCirc)
	terminal := stepSet(cg.cfg.End, cg.cfg.OutCirc)

	var staged []*node
	for _, sc := range t.StepCosts {
		loc, ok := locs[sc.FacilityID]
		if !ok {
			return fmt.Errorf("%w: facility %d has steps but no location", ErrUnknownNode, sc.FacilityID)
		}
		if !costmethods.Has(sc.StepCostMethod) {
			return fmt.Errorf("step %s at facility %d: %w: %q", sc.Step, sc.FacilityID, costmethods.ErrUnknownMethod, sc.StepCostMethod)
		}
		key := StageKey{Step: sc.Step, FacilityID: sc.FacilityID}
		if _, dup := cg.byKey[key]; dup {
			continue
		}
		n := &node{
			key:          key,
			facilityType: loc.FacilityType,
			costMethod:   sc.StepCostMethod,
			connects:     sc.Connects,
			timeout:      sc.Timeout,
			regions:      loc.RegionIDs,
			terminal:     terminal[sc.Step],
			entry:        entry[sc.Step],
		}
		if n.timeout < 1 {
			n.timeout = 1
		}
		cg.byKey[key] = n
		staged = append(staged, n)
	}

	// graph ids follow key order so every later iteration is deterministic
	sort.Slice(staged, func(i, j int) bool { return staged[i].key.Less(staged[j].key) })
	cg.nodes = staged
	for i, n := range staged {
		n.id = int64(i)
		cg.g.AddNode(simple.Node(n.id))
	}
	return nil
}

func (cg *CostGraph) addFacilityEdges(templates []tables.FacilityEdge) {
	byType := make(map[string][]tables.FacilityEdge)
	for _, fe := range templates {
		byType[fe.FacilityType] = append(byType[fe.FacilityType], fe)
	}
	for _, u := range cg.nodes {
		for _, fe := range byType[u.facilityType] {
			if fe.Step != u.key.Step {
				continue
			}
			v, ok := cg.byKey[StageKey{Step: fe.NextStep, FacilityID: u.key.FacilityID}]
			if !ok {
				logrus.Debugf("Facility %d (%s) has no %q step; skipping edge from %s", u.key.FacilityID, u.facilityType, fe.NextStep, u.key)
				continue
			}
			cg.addEdge(&edge{from: u.id, to: v.id})
		}
	}
}

func (cg *CostGraph) addTransportEdges(templates []tables.TransportEdge, routes []tables.Route) error {
	type pair struct{ src, dst int }
	byPair := make(map[pair]tables.Route, len(routes))
	for _, r := range routes {
		p := pair{r.SourceFacilityID, r.DestinationFacilityID}
		if _, dup := byPair[p]; !dup {
			byPair[p] = r
		}
	}
	byStep := make(map[string][]*node)
	for _, n := range cg.nodes {
		byStep[n.key.Step] = append(byStep[n.key.Step], n)
	}

	dropped := 0
	for _, te := range templates {
		if !costmethods.Has(te.TranspoCostMethod) {
			return fmt.Errorf("transport %s -> %s: %w: %q", te.UStep, te.VStep, costmethods.ErrUnknownMethod, te.TranspoCostMethod)
		}
		for _, u := range byStep[te.UStep] {
			if u.connects != ConnectsOut && u.connects != ConnectsBid {
				continue
			}
			for _, v := range byStep[te.VStep] {
				if u.key.FacilityID == v.key.FacilityID {
					continue
				}
				r, ok := byPair[pair{u.key.FacilityID, v.key.FacilityID}]
				if !ok {
					dropped++
					continue
				}
				cg.addEdge(&edge{
					from:      u.id,
					to:        v.id,
					transport: te.TranspoCostMethod,
					dist:      r.TotalVkmt,
					routeID:   r.RouteID,
				})
			}
		}
	}
	if dropped > 0 {
		logrus.Debugf("Dropped %d candidate transport edges without a route", dropped)
	}
	return nil
}

// addEdge keeps the first edge between a node pair.
func (cg *CostGraph) addEdge(e *edge) {
	k := [2]int64{e.from, e.to}
	if _, dup := cg.edges[k]; dup {
		return
	}
	cg.edges[k] = e
	cg.g.SetEdge(simple.Edge{F: simple.Node(e.from), T: simple.Node(e.to)})
}

// evaluate recomputes every node and edge cost against pd.
func (cg *CostGraph) evaluate(pd *costmethods.PathDict) error {
	cg.methods.SetPathDict(pd)
	cg.pathDict = pd
	for _, n := range cg.nodes {
		c, err := cg.methods.Evaluate(n.costMethod, costmethods.Inputs{})
		if err != nil {
			return fmt.Errorf("node %s: %w", n.key, err)
		}
		n.cost = c
	}
	for _, e := range cg.ordered {
		c := cg.nodes[e.from].cost
		if e.transport != "" {
			t, err := cg.methods.Evaluate(e.transport, costmethods.Inputs{Vkmt: e.dist})
			if err != nil {
				return fmt.Errorf("edge %s -> %s: %w", cg.nodes[e.from].key, cg.nodes[e.to].key, err)
			}
			c += t
		}
		if v := cg.nodes[e.to]; v.terminal {
			c += v.cost
		}
		e.cost = c
	}
	return nil
}

// UpdateCosts re-evaluates the graph against a copy of pd and refreshes
// the cached pathway choices. Pathways handed out earlier are unaffected.
// Repeated calls with identical pd yield identical choices.
func (cg *CostGraph) UpdateCosts(pd *costmethods.PathDict) error {
	clone := pd.Clone()
	cg.year = clone.Year
	if err := cg.evaluate(clone); err != nil {
		return err
	}
	return cg.ChoosePaths()
}

// Year is the calendar year of the last cost evaluation.
func (cg *CostGraph) Year() float64 { return cg.year }

// Has reports whether the graph contains key.
func (cg *CostGraph) Has(key StageKey) bool {
	_, ok := cg.byKey[key]
	return ok
}

// Steps returns every stage key in the graph, sorted.
func (cg *CostGraph) Steps() []StageKey {
	out := make([]StageKey, len(cg.nodes))
	for i, n := range cg.nodes {
		out[i] = n.key
	}
	return out
}

// Terminal reports whether key is a terminal stage.
func (cg *CostGraph) Terminal(key StageKey) bool {
	n, ok := cg.byKey[key]
	return ok && n.terminal
}

// FacilityType returns the facility type of the facility hosting key.
func (cg *CostGraph) FacilityType(key StageKey) (string, bool) {
	n, ok := cg.byKey[key]
	if !ok {
		return "", false
	}
	return n.facilityType, true
}

// EdgeCost returns the current cost of the edge u -> v.
func (cg *CostGraph) EdgeCost(u, v StageKey) (float64, bool) {
	un, ok := cg.byKey[u]
	if !ok {
		return 0, false
	}
	vn, ok := cg.byKey[v]
	if !ok {
		return 0, false
	}
	e, ok := cg.edges[[2]int64{un.id, vn.id}]
	if !ok {
		return 0, false
	}
	return e.cost, true
}

func (cg *CostGraph) sortedNeighbors(it graph.Nodes) []*node {
	ns := graph.NodesOf(it)
	out := make([]*node, len(ns))
	for i, n := range ns {
		out[i] = cg.nodes[n.ID()]
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func stepSet(lists ...[]string) map[string]bool {
	out := make(map[string]bool)
	for _, l := range lists {
		for _, s := range l {
			out[s] = true
		}
	}
	return out
}
