package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NREL/celavi-sub000/sim"
	"github.com/NREL/celavi-sub000/sim/costgraph"
)

func openStore(t *testing.T, run int) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "out", "celavi.db"), run)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestProcessFlows(t *testing.T) {
	// GIVEN a store for run 3
	s := openStore(t, 3)

	// WHEN a yearly batch is stored
	err := s.ProcessFlows(sim.FlowBatch{
		Year: 2001,
		Flows: []sim.FlowRow{
			{FlowQuantityKg: 2000, Stage: "landfill", Year: 2001, Material: "glass fiber", FacilityID: 3},
			{FlowQuantityKg: 500, Stage: "landfill", Year: 2001, Material: "resin", FacilityID: 3},
		},
		Transport: []sim.TransportRow{{FacilityID: 3, Year: 2001, TonneKm: 20}},
	})
	require.NoError(t, err)

	// THEN the rows are queryable by run and year
	var total float64
	require.NoError(t, s.DB().QueryRow(`SELECT SUM(flow_quantity_kg) FROM lca_flows WHERE run = 3 AND year = 2001`).Scan(&total))
	assert.Equal(t, 2500.0, total)

	var tkm float64
	require.NoError(t, s.DB().QueryRow(`SELECT tonne_km FROM lca_transport WHERE facility_id = 3`).Scan(&tkm))
	assert.Equal(t, 20.0, tkm)
}

func TestSaveCriterionHistory(t *testing.T) {
	s := openStore(t, 0)
	bol := 12.5

	err := s.SaveCriterionHistory([]costgraph.CriterionRecord{
		{Year: 2000, SourceFacilityID: 2, DestinationFacilityID: 3, RegionIDs: [4]string{"TX"}, EOLPathwayType: "landfilling", EOLCriterion: 16, BOLCriterion: &bol},
		{Year: 2000, SourceFacilityID: 2, DestinationFacilityID: 4, EOLPathwayType: "landfilling", EOLCriterion: 40},
	})
	require.NoError(t, err)

	rows, err := s.DB().Query(`SELECT destination_facility_id, region_id_1, bol_pathway_criterion FROM criterion_history ORDER BY destination_facility_id`)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	type row struct {
		dest   int
		region string
		bol    *float64
	}
	var got []row
	for rows.Next() {
		var r row
		require.NoError(t, rows.Scan(&r.dest, &r.region, &r.bol))
		got = append(got, r)
	}
	require.NoError(t, rows.Err())
	require.Len(t, got, 2)
	assert.Equal(t, "TX", got[0].region)
	require.NotNil(t, got[0].bol)
	assert.Equal(t, 12.5, *got[0].bol)
	assert.Nil(t, got[1].bol, "no manufacturing upstream stores NULL")
}

func TestSaveInventories_OnlyChangedTimesteps(t *testing.T) {
	// GIVEN an inventory touched at two timesteps
	s := openStore(t, 1)
	k := costgraph.StageKey{Step: "landfill", FacilityID: 3}
	inv := sim.NewInventory(k, "landfill", []string{"blade"}, 10, "count", false)
	_, err := inv.IncrementQuantity("blade", 2, 1)
	require.NoError(t, err)
	_, err = inv.IncrementQuantity("blade", 1, 7)
	require.NoError(t, err)

	// WHEN the ledgers are saved
	require.NoError(t, s.SaveInventories(map[costgraph.StageKey]*sim.Inventory{k: inv}))

	// THEN one row per change carries the running level
	var n int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM inventory_history WHERE run = 1`).Scan(&n))
	assert.Equal(t, 2, n)
	var level float64
	require.NoError(t, s.DB().QueryRow(`SELECT level FROM inventory_history WHERE timestep = 7`).Scan(&level))
	assert.Equal(t, 3.0, level)
}

func TestOpen_ReopensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "celavi.db")
	s, err := Open(path, 0)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	require.NoError(t, s.ProcessFlows(sim.FlowBatch{Year: 2000, Flows: []sim.FlowRow{{FlowQuantityKg: 1, Stage: "in use", Year: 2000, Material: "glass fiber", FacilityID: 2}}}))
	require.NoError(t, s.Close())

	s2, err := Open(path, 1)
	require.NoError(t, err)
	defer func() { _ = s2.Close() }()
	var n int
	require.NoError(t, s2.DB().QueryRow(`SELECT COUNT(*) FROM lca_flows`).Scan(&n))
	assert.Equal(t, 1, n)
	assert.Equal(t, path, s2.Path())
}
