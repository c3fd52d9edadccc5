package cmd

import (
	"fmt"
	"maps"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/NREL/celavi-sub000/sim"
	"github.com/NREL/celavi-sub000/sim/costgraph"
	"github.com/NREL/celavi-sub000/sim/costmethods"
	"github.com/NREL/celavi-sub000/sim/store"
	"github.com/NREL/celavi-sub000/sim/tables"
	"github.com/NREL/celavi-sub000/sim/trace"
)

// Summary is printed at the end of a run.
type Summary struct {
	Seed        int64               `json:"seed"`
	Run         int                 `json:"run"`
	Items       int                 `json:"items"`
	Terminal    int                 `json:"terminal_items"`
	Active      int                 `json:"active_items"`
	EntryStages []string            `json:"entry_stages"`
	CountByStep map[string]float64  `json:"count_by_step"`
	MassByStep  map[string]float64  `json:"mass_tonnes_by_step"`
	LCABatches  int                 `json:"lca_batches"`
	Criteria    int                 `json:"criterion_records"`
	Trace       *trace.TraceSummary `json:"trace,omitempty"`
}

// runScenario wires the input tables, the cost graph and the kernel for
// one run and persists the results.
func runScenario(sc *Scenario) (*Summary, error) {
	mr := sc.ModelRun
	tbl, err := tables.Load(sc.Files.tables())
	if err != nil {
		return nil, fmt.Errorf("load tables: %w", err)
	}
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(mr.Seed))
	masses := sim.NewMaterialMasses(tbl.ComponentMaterialMasses)

	pd := sc.Pathways.PathDict.Clone()
	methods, err := costmethods.New(pd, mr.Run, rng.Source(sim.SubsystemCostMethods))
	if err != nil {
		return nil, err
	}
	initialMass := mr.ComponentInitialMass
	if initialMass == 0 {
		initialMass = masses.ComponentMass(sc.Technology.MassComponent, mr.StartYear)
	}
	graph, err := costgraph.Build(tbl, pd, methods, costgraph.Config{
		Begin:                sc.Pathways.Begin,
		End:                  sc.Pathways.End,
		InCirc:               sc.Pathways.InCirc,
		OutCirc:              sc.Pathways.OutCirc,
		Year:                 mr.StartYear,
		ComponentInitialMass: initialMass,
		Run:                  mr.Run,
	})
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}
	if err := graph.ChoosePaths(); err != nil {
		return nil, fmt.Errorf("choose paths: %w", err)
	}
	sources := graph.Sources()
	logrus.Infof("Chose pathways from %d entry stages", len(sources))

	items, err := sim.BuildItems(tbl.Installations, sim.PopulationConfig{
		Kinds:            sc.Technology.Kinds(),
		TimestepsPerYear: mr.TimestepsPerYear,
		OriginStep:       mr.EntryStep,
		InUseStep:        mr.InUseStep,
	}, masses, graph, lifespanSampler(sc, rng))
	if err != nil {
		return nil, fmt.Errorf("build items: %w", err)
	}

	var (
		sink *store.Store
		lca  sim.MultiLCA
	)
	counted := &batchCounter{}
	lca = append(lca, counted)
	if sc.Files.Output != "" {
		sink, err = store.Open(sc.Files.Output, mr.Run)
		if err != nil {
			return nil, err
		}
		defer func() {
			if cerr := sink.Close(); cerr != nil {
				logrus.Warnf("Closing %s: %v", sink.Path(), cerr)
			}
		}()
		lca = append(lca, sink)
	}

	metrics := sim.NewMetrics()
	pd.Year = mr.StartYear
	pd.ComponentMass = initialMass
	ctx, err := sim.NewContext(sim.Config{
		MinYear:                 mr.StartYear,
		MaxTimesteps:            mr.MaxTimesteps(),
		TimestepsPerYear:        mr.TimestepsPerYear,
		CostGraphUpdateInterval: mr.UpdateInterval(),
		Run:                     mr.Run,
		EntryStep:               mr.EntryStep,
		InUseStep:               mr.InUseStep,
		PossibleComponents:      dedupe(sc.Technology.CircularComponents),
		MassComponent:           sc.Technology.MassComponent,
		PathDict:                pd,
	}, graph, masses, lca, metrics)
	if err != nil {
		return nil, err
	}
	var st *trace.SimulationTrace
	if tc := (trace.TraceConfig{Level: trace.TraceLevel(mr.TraceLevel)}); tc.Enabled() {
		st = trace.NewSimulationTrace(tc)
		ctx.SetTrace(st)
	}
	for _, it := range items {
		if err := ctx.AddItem(it); err != nil {
			return nil, err
		}
	}

	res, err := ctx.Run()
	if err != nil {
		return nil, fmt.Errorf("simulation: %w", err)
	}

	history := graph.CriterionHistory()
	if sink != nil {
		if err := sink.SaveCriterionHistory(history); err != nil {
			return nil, err
		}
		if err := sink.SaveInventories(res.CountInventories); err != nil {
			return nil, err
		}
		if err := sink.SaveInventories(res.MassInventories); err != nil {
			return nil, err
		}
		logrus.Infof("Results written to %s", sink.Path())
	}
	if sc.Files.MetricsOut != "" {
		if err := metrics.WriteTextfile(sc.Files.MetricsOut); err != nil {
			return nil, fmt.Errorf("write metrics: %w", err)
		}
	}
	summary := summarize(sc, ctx, res, counted.n, len(history))
	for _, k := range sources {
		summary.EntryStages = append(summary.EntryStages, k.String())
	}
	if st != nil {
		summary.Trace = trace.Summarize(st)
	}
	return summary, nil
}

// lifespanSampler picks fixed lifetimes or Weibull draws. Weibull kinds
// without parameters fall back to their fixed lifetime.
func lifespanSampler(sc *Scenario, rng *sim.PartitionedRNG) sim.LifespanSampler {
	fixed := sim.FixedLifespan{Years: sc.Technology.FixedLifetimes, Run: sc.ModelRun.Run}
	if sc.Technology.UseFixedLifetime {
		return fixed
	}
	return sim.WeibullLifespan{
		Params:      sc.Technology.WeibullParams,
		MinLifespan: sc.ModelRun.MinLifespan,
		Fallback:    fixed,
		Src:         rng.Source(sim.SubsystemLifespan),
	}
}

// batchCounter counts the yearly batches handed off.
type batchCounter struct{ n int }

func (b *batchCounter) ProcessFlows(sim.FlowBatch) error {
	b.n++
	return nil
}

func summarize(sc *Scenario, ctx *sim.Context, res *sim.Result, batches, criteria int) *Summary {
	s := &Summary{
		Seed:        sc.ModelRun.Seed,
		Run:         sc.ModelRun.Run,
		Items:       len(ctx.Items),
		Active:      ctx.Active(),
		CountByStep: make(map[string]float64),
		MassByStep:  make(map[string]float64),
		LCABatches:  batches,
		Criteria:    criteria,
	}
	for _, it := range ctx.Items {
		if it.Terminal() {
			s.Terminal++
		}
	}
	for _, k := range slices.SortedFunc(maps.Keys(res.CountInventories), func(a, b costgraph.StageKey) int {
		if a.Less(b) {
			return -1
		}
		if b.Less(a) {
			return 1
		}
		return 0
	}) {
		for _, item := range res.CountInventories[k].Items() {
			s.CountByStep[k.Step] += res.CountInventories[k].Level(item)
		}
		for _, m := range res.MassInventories[k].Items() {
			s.MassByStep[k.Step] += res.MassInventories[k].Level(m)
		}
	}
	return s
}

func dedupe(xs []string) []string {
	seen := make(map[string]bool, len(xs))
	var out []string
	for _, x := range xs {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}
