package sim

import "sort"

// FlowRow is the mass that entered one stage at one facility during a
// year, in kilograms.
type FlowRow struct {
	FlowQuantityKg float64
	Stage          string
	Year           int
	Material       string
	FacilityID     int
}

// TransportRow is the inbound tonne-km of one facility during a year.
type TransportRow struct {
	FacilityID int
	Year       int
	TonneKm    float64
}

// FlowBatch is one year's handoff to the LCA collaborator.
type FlowBatch struct {
	Year      int
	Flows     []FlowRow
	Transport []TransportRow
}

func (b *FlowBatch) sort() {
	sort.SliceStable(b.Flows, func(i, j int) bool {
		x, y := b.Flows[i], b.Flows[j]
		if x.FacilityID != y.FacilityID {
			return x.FacilityID < y.FacilityID
		}
		if x.Stage != y.Stage {
			return x.Stage < y.Stage
		}
		return x.Material < y.Material
	})
	sort.SliceStable(b.Transport, func(i, j int) bool {
		return b.Transport[i].FacilityID < b.Transport[j].FacilityID
	})
}

// LCA consumes yearly flow batches. Implementations may be slow; the
// kernel calls them once per simulated year, never per timestep.
type LCA interface {
	ProcessFlows(batch FlowBatch) error
}

// RecordingLCA keeps every batch in memory.
type RecordingLCA struct {
	Batches []FlowBatch
}

// ProcessFlows appends batch.
func (r *RecordingLCA) ProcessFlows(batch FlowBatch) error {
	r.Batches = append(r.Batches, batch)
	return nil
}

// MultiLCA fans a batch out to several collaborators in order, stopping at
// the first error.
type MultiLCA []LCA

// ProcessFlows forwards batch to each collaborator.
func (m MultiLCA) ProcessFlows(batch FlowBatch) error {
	for _, l := range m {
		if err := l.ProcessFlows(batch); err != nil {
			return err
		}
	}
	return nil
}
