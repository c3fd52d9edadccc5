package sim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NREL/celavi-sub000/sim/costgraph"
	"github.com/NREL/celavi-sub000/sim/costmethods"
)

// stubGraph serves canned pathways. UpdateCosts records a copy of every
// parameter store it sees and swaps in the next generation of pathways
// queued by after, one per call.
type stubGraph struct {
	keys  []costgraph.StageKey
	types map[costgraph.StageKey]string
	paths map[costgraph.StageKey]costgraph.Pathway
	next  []map[costgraph.StageKey]costgraph.Pathway
	down  map[string]costgraph.Neighbor

	updates   []*costmethods.PathDict
	updateErr error
}

func newStubGraph(paths ...costgraph.Pathway) *stubGraph {
	g := &stubGraph{
		types: make(map[costgraph.StageKey]string),
		paths: make(map[costgraph.StageKey]costgraph.Pathway),
		down:  make(map[string]costgraph.Neighbor),
	}
	for _, p := range paths {
		g.paths[p.Source] = p
		g.addKeys(p)
	}
	return g
}

func (g *stubGraph) addKeys(p costgraph.Pathway) {
	for _, st := range p.Stages {
		if _, ok := g.types[st.Key]; ok {
			continue
		}
		g.types[st.Key] = st.Key.Step
		g.keys = append(g.keys, st.Key)
	}
}

// after queues the pathways served once one more refresh has run.
func (g *stubGraph) after(paths ...costgraph.Pathway) {
	gen := make(map[costgraph.StageKey]costgraph.Pathway)
	for _, p := range paths {
		gen[p.Source] = p
		g.addKeys(p)
	}
	g.next = append(g.next, gen)
}

func (g *stubGraph) Pathway(source costgraph.StageKey) (costgraph.Pathway, error) {
	p, ok := g.paths[source]
	if !ok {
		return costgraph.Pathway{}, costgraph.ErrNoPath
	}
	return p.Clone(), nil
}

func (g *stubGraph) UpdateCosts(pd *costmethods.PathDict) error {
	g.updates = append(g.updates, pd.Clone())
	if len(g.next) > 0 {
		g.paths, g.next = g.next[0], g.next[1:]
	}
	return g.updateErr
}

func (g *stubGraph) FindDownstream(_ costgraph.StageKey, connectTo string) (costgraph.Neighbor, bool) {
	n, ok := g.down[connectTo]
	return n, ok
}

func (g *stubGraph) Steps() []costgraph.StageKey { return append([]costgraph.StageKey(nil), g.keys...) }

func (g *stubGraph) FacilityType(key costgraph.StageKey) (string, bool) {
	ft, ok := g.types[key]
	return ft, ok
}

func sk(step string, facility int) costgraph.StageKey {
	return costgraph.StageKey{Step: step, FacilityID: facility}
}

func stage(step string, facility, duration int) costgraph.Stage {
	return costgraph.Stage{Key: sk(step, facility), Duration: duration}
}

// via sets the inbound edge of st.
func via(st costgraph.Stage, dist float64, route string) costgraph.Stage {
	st.Distance = dist
	st.RouteID = route
	return st
}

// pathway marks the last stage terminal.
func pathway(stages ...costgraph.Stage) costgraph.Pathway {
	stages[len(stages)-1].Terminal = true
	return costgraph.Pathway{
		Source: stages[0].Key,
		Target: stages[len(stages)-1].Key,
		Stages: stages,
	}
}

const glass = "glass fiber"

// testConfig is 12 timesteps per year from 2000 with the in-use stage as
// the entry stage and one blade kind.
func testConfig(maxTimesteps int64) Config {
	return Config{
		MinYear:            2000,
		MaxTimesteps:       maxTimesteps,
		TimestepsPerYear:   12,
		EntryStep:          "in use",
		InUseStep:          "in use",
		PossibleComponents: []string{"blade"},
		PossibleMaterials:  []string{glass},
	}
}

func blade(id int, year float64, lifespan int64, tonnes float64) *Item {
	return NewItem(id, "blade", year, 2, 2, lifespan, map[string]float64{glass: tonnes})
}

func mustContext(t *testing.T, cfg Config, g Graph, masses *MaterialMasses, lca LCA, items ...*Item) *Context {
	t.Helper()
	ctx, err := NewContext(cfg, g, masses, lca, nil)
	require.NoError(t, err)
	for _, it := range items {
		require.NoError(t, ctx.AddItem(it))
	}
	return ctx
}

func sumAt(invs map[costgraph.StageKey]*Inventory, item string, t int64) float64 {
	total := 0.0
	for _, inv := range invs {
		total += inv.CumulativeHistory(item)[t]
	}
	return total
}
