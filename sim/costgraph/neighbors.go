package costgraph

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultUpstreamStep is the step an item's origin facility runs.
const DefaultUpstreamStep = "manufacturing"

// Neighbor is an adjacent stage reached over one edge.
type Neighbor struct {
	Key     StageKey
	Dist    float64
	RouteID string
}

// FindUpstreamNeighbor returns the facility id of the nearest (by route
// distance) stage whose step starts with connectTo and has an edge into
// the "bid" stage of facilityID. Equal distances go to the lower facility
// id.
func (cg *CostGraph) FindUpstreamNeighbor(facilityID int, connectTo string) (int, bool) {
	id, ok := cg.upstream(facilityID, connectTo)
	if !ok {
		logrus.Warnf("Facility %d has no upstream neighbors of type %s", facilityID, connectTo)
	}
	return id, ok
}

func (cg *CostGraph) upstream(facilityID int, connectTo string) (int, bool) {
	var bid *node
	for _, n := range cg.nodes {
		if n.key.FacilityID == facilityID && n.connects == ConnectsBid {
			bid = n
			break
		}
	}
	if bid == nil {
		return 0, false
	}
	best, ok := cg.nearest(cg.sortedNeighbors(cg.g.To(bid.id)), connectTo, func(n *node) *edge {
		return cg.edges[[2]int64{n.id, bid.id}]
	})
	if !ok {
		return 0, false
	}
	return best.Key.FacilityID, true
}

// FindDownstream returns the nearest stage after from whose step starts
// with connectTo.
func (cg *CostGraph) FindDownstream(from StageKey, connectTo string) (Neighbor, bool) {
	src, ok := cg.byKey[from]
	if !ok {
		return Neighbor{}, false
	}
	return cg.nearest(cg.sortedNeighbors(cg.g.From(src.id)), connectTo, func(n *node) *edge {
		return cg.edges[[2]int64{src.id, n.id}]
	})
}

// nearest scans candidates in id order and keeps the first minimum.
func (cg *CostGraph) nearest(candidates []*node, connectTo string, edgeOf func(*node) *edge) (Neighbor, bool) {
	var best Neighbor
	found := false
	for _, n := range candidates {
		if !strings.HasPrefix(n.key.Step, connectTo) {
			continue
		}
		e := edgeOf(n)
		if !found || e.dist < best.Dist || (e.dist == best.Dist && n.key.FacilityID < best.Key.FacilityID) {
			best = Neighbor{Key: n.key, Dist: e.dist, RouteID: e.routeID}
			found = true
		}
	}
	return best, found
}
