package costgraph

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Stage is one step of a pathway. Distance and RouteID describe the edge
// the item arrives on; both are zero for the first stage and for
// intra-facility moves.
type Stage struct {
	Key      StageKey
	Duration int
	Distance float64
	RouteID  string
	Terminal bool
}

// Pathway is the least-cost path from an entry stage to a terminal stage.
type Pathway struct {
	Source StageKey
	Target StageKey
	Cost   float64
	Stages []Stage
}

// Clone returns a copy whose Stages slice is not shared.
func (p Pathway) Clone() Pathway {
	p.Stages = append([]Stage(nil), p.Stages...)
	return p
}

// CriterionRecord is the cost of reaching one terminal stage from one
// entry stage at the time paths were chosen.
type CriterionRecord struct {
	Year                  float64
	Run                   int
	SourceFacilityID      int
	DestinationFacilityID int
	RegionIDs             [4]string
	EOLPathwayType        string
	EOLCriterion          float64
	// BOLCriterion is the cost from the nearest upstream manufacturing
	// stage to the source; nil when the source has none.
	BOLCriterion *float64
}

// shortest holds single-source Bellman-Ford results indexed by node id.
type shortest struct {
	dist []float64
	prev []int64
}

func (s shortest) reachable(id int64) bool { return !math.IsInf(s.dist[id], 1) }

// bellmanFord relaxes edges in (from, to) order with a strict comparison,
// so equal-cost alternatives resolve to the same predecessor every run.
// Edges leaving terminal stages are not relaxed: terminals are sinks.
func (cg *CostGraph) bellmanFord(src int64) (shortest, error) {
	n := len(cg.nodes)
	s := shortest{dist: make([]float64, n), prev: make([]int64, n)}
	for i := range s.dist {
		s.dist[i] = math.Inf(1)
		s.prev[i] = -1
	}
	s.dist[src] = 0

	relax := func() bool {
		changed := false
		for _, e := range cg.ordered {
			if math.IsInf(s.dist[e.from], 1) || (e.from != src && cg.nodes[e.from].terminal) {
				continue
			}
			if d := s.dist[e.from] + e.cost; d < s.dist[e.to] {
				s.dist[e.to] = d
				s.prev[e.to] = e.from
				changed = true
			}
		}
		return changed
	}
	for i := 0; i < n-1; i++ {
		if !relax() {
			return s, nil
		}
	}
	if relax() {
		return s, fmt.Errorf("%w: reachable from %s", ErrNegativeCycle, cg.nodes[src].key)
	}
	return s, nil
}

func (cg *CostGraph) entryNodes() []*node {
	var out []*node
	for _, n := range cg.nodes {
		if n.entry {
			out = append(out, n)
		}
	}
	return out
}

// ChoosePaths computes and caches the least-cost pathway from every entry
// stage to any terminal stage. Ties between equal-cost terminals go to the
// smaller StageKey. An entry stage with no reachable terminal is a
// configuration error.
func (cg *CostGraph) ChoosePaths() error {
	paths := make(map[StageKey]Pathway)
	var records []CriterionRecord
	for _, src := range cg.entryNodes() {
		sp, err := cg.bellmanFord(src.id)
		if err != nil {
			return err
		}
		target := int64(-1)
		for _, n := range cg.nodes {
			if !n.terminal || n.id == src.id || !sp.reachable(n.id) {
				continue
			}
			// nodes are in key order, so strict < keeps the smaller key on ties
			if target < 0 || sp.dist[n.id] < sp.dist[target] {
				target = n.id
			}
		}
		if target < 0 {
			return fmt.Errorf("%w: from %s", ErrNoPath, src.key)
		}
		paths[src.key] = cg.pathwayTo(src.id, target, sp)
		records = append(records, cg.criteria(src, sp)...)
	}
	cg.paths = paths
	cg.history = append(cg.history, records...)
	logrus.Debugf("Chose %d pathways for year %v", len(paths), cg.year)
	return nil
}

func (cg *CostGraph) pathwayTo(src, target int64, sp shortest) Pathway {
	var ids []int64
	for at := target; at >= 0; at = sp.prev[at] {
		ids = append(ids, at)
		if at == src {
			break
		}
	}
	stages := make([]Stage, len(ids))
	for i := range ids {
		id := ids[len(ids)-1-i]
		n := cg.nodes[id]
		st := Stage{Key: n.key, Duration: n.timeout, Terminal: n.terminal}
		if i > 0 {
			e := cg.edges[[2]int64{ids[len(ids)-i], id}]
			st.Distance = e.dist
			st.RouteID = e.routeID
		}
		stages[i] = st
	}
	return Pathway{
		Source: cg.nodes[src].key,
		Target: cg.nodes[target].key,
		Cost:   sp.dist[target],
		Stages: stages,
	}
}

// criteria records the cost to every reachable terminal, grouped by
// terminal step in configuration order.
func (cg *CostGraph) criteria(src *node, sp shortest) []CriterionRecord {
	bol := cg.bolCriterion(src)
	var out []CriterionRecord
	seen := make(map[string]bool)
	for _, step := range append(append([]string(nil), cg.cfg.End...), cg.cfg.OutCirc...) {
		if seen[step] {
			continue
		}
		seen[step] = true
		for _, n := range cg.nodes {
			if n.key.Step != step || n.id == src.id || !sp.reachable(n.id) {
				continue
			}
			out = append(out, CriterionRecord{
				Year:                  cg.year,
				Run:                   cg.cfg.Run,
				SourceFacilityID:      src.key.FacilityID,
				DestinationFacilityID: n.key.FacilityID,
				RegionIDs:             src.regions,
				EOLPathwayType:        step,
				EOLCriterion:          roundCost(sp.dist[n.id]),
				BOLCriterion:          bol,
			})
		}
	}
	return out
}

func (cg *CostGraph) bolCriterion(src *node) *float64 {
	up, ok := cg.upstream(src.key.FacilityID, DefaultUpstreamStep)
	if !ok {
		return nil
	}
	from, ok := cg.byKey[StageKey{Step: DefaultUpstreamStep, FacilityID: up}]
	if !ok || from.id == src.id {
		return nil
	}
	sp, err := cg.bellmanFord(from.id)
	if err != nil || !sp.reachable(src.id) {
		return nil
	}
	v := roundCost(sp.dist[src.id])
	return &v
}

func roundCost(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// Pathway returns a snapshot of the cached pathway from source. The
// snapshot is owned by the caller.
func (cg *CostGraph) Pathway(source StageKey) (Pathway, error) {
	p, ok := cg.paths[source]
	if !ok {
		if !cg.Has(source) {
			return Pathway{}, fmt.Errorf("%w: %s", ErrUnknownNode, source)
		}
		return Pathway{}, fmt.Errorf("%w: %s is not an entry stage", ErrNoPath, source)
	}
	return p.Clone(), nil
}

// Sources returns the entry stages with a cached pathway, sorted.
func (cg *CostGraph) Sources() []StageKey {
	out := make([]StageKey, 0, len(cg.paths))
	for k := range cg.paths {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// CriterionHistory returns every criterion record since the graph was
// built, in the order paths were chosen.
func (cg *CostGraph) CriterionHistory() []CriterionRecord {
	return append([]CriterionRecord(nil), cg.history...)
}
