package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NREL/celavi-sub000/sim/tables"
)

type upstreamMap map[int]int

func (u upstreamMap) FindUpstreamNeighbor(facilityID int, _ string) (int, bool) {
	id, ok := u[facilityID]
	return id, ok
}

func TestBuildItems(t *testing.T) {
	// GIVEN installations at two facilities, only one with a manufacturer
	installs := []tables.Installation{
		{Year: 2000, FacilityID: 2, NTechnology: 2},
		{Year: 2001, FacilityID: 9, NTechnology: 1},
		{Year: 2003, FacilityID: 2, NTechnology: 1},
	}
	masses := NewMaterialMasses([]tables.ComponentMaterialMass{
		{Year: 2000, Component: "blade", Material: glass, MassTonnes: 5},
		{Year: 2004, Component: "blade", Material: glass, MassTonnes: 8},
		{Year: 2000, Component: "nacelle", Material: "steel", MassTonnes: 50},
	})
	cfg := PopulationConfig{
		Kinds:            []string{"blade", "nacelle"},
		TimestepsPerYear: 12,
		OriginStep:       "manufacturing",
		InUseStep:        "in use",
	}
	lifespans := FixedLifespan{Years: map[string][]float64{"blade": {20}, "nacelle": {25}}}

	// WHEN items are built
	items, err := BuildItems(installs, cfg, masses, upstreamMap{2: 1}, lifespans)

	// THEN each unit yields one item per kind and the orphan facility is skipped
	require.NoError(t, err)
	require.Len(t, items, 6)
	for i, it := range items {
		assert.Equal(t, i, it.ID)
		assert.Equal(t, 2, it.InUseFacilityID)
		assert.Equal(t, 1, it.OriginFacilityID)
	}
	assert.Equal(t, "blade", items[0].Kind)
	assert.Equal(t, "nacelle", items[1].Kind)
	assert.Equal(t, int64(240), items[0].LifespanTimesteps)
	assert.Equal(t, int64(300), items[1].LifespanTimesteps)
	assert.Equal(t, map[string]float64{glass: 5}, items[0].Mass)
	assert.Equal(t, map[string]float64{glass: 8}, items[4].Mass, "nearest mass year")
	assert.Equal(t, 2003.0, items[5].Year)
}

func TestBuildItems_InUseIsItsOwnOrigin(t *testing.T) {
	cfg := PopulationConfig{Kinds: []string{"blade"}, TimestepsPerYear: 1, OriginStep: "in use", InUseStep: "in use"}

	items, err := BuildItems([]tables.Installation{{Year: 2000, FacilityID: 7, NTechnology: 1}}, cfg, nil, upstreamMap{}, FixedLifespan{Years: map[string][]float64{"blade": {0.1}}})

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 7, items[0].OriginFacilityID)
	assert.Equal(t, int64(1), items[0].LifespanTimesteps, "lifespans are at least one timestep")
}

func TestFixedLifespan(t *testing.T) {
	f := FixedLifespan{Years: map[string][]float64{"blade": {20, 25, 30}}, Run: 1}

	v, err := f.Lifespan("blade")
	require.NoError(t, err)
	assert.Equal(t, 25.0, v)

	_, err = f.Lifespan("tower")
	assert.Error(t, err)

	f.Run = 3
	_, err = f.Lifespan("blade")
	assert.Error(t, err)
}

func TestWeibullLifespan(t *testing.T) {
	draw := func(seed int64) []float64 {
		w := WeibullLifespan{
			Params:      map[string]WeibullParams{"blade": {K: 2.2, L: 20}},
			MinLifespan: 10,
			Src:         NewPartitionedRNG(NewSimulationKey(seed)).Source(SubsystemLifespan),
		}
		var out []float64
		for i := 0; i < 50; i++ {
			v, err := w.Lifespan("blade")
			require.NoError(t, err)
			out = append(out, v)
		}
		return out
	}

	a := draw(1)
	assert.Equal(t, a, draw(1), "same seed, same lifespans")
	assert.NotEqual(t, a, draw(2))
	for _, v := range a {
		assert.GreaterOrEqual(t, v, 10.0)
	}
}

func TestWeibullLifespan_FallbackAndErrors(t *testing.T) {
	src := NewPartitionedRNG(NewSimulationKey(1)).Source(SubsystemLifespan)
	w := WeibullLifespan{
		Params:      map[string]WeibullParams{"blade": {K: 2, L: 5}},
		MinLifespan: 10,
		Src:         src,
		Fallback:    FixedLifespan{Years: map[string][]float64{"tower": {50}}},
	}

	v, err := w.Lifespan("tower")
	require.NoError(t, err)
	assert.Equal(t, 50.0, v)

	_, err = w.Lifespan("blade")
	assert.Error(t, err, "characteristic life below the minimum")

	w.Fallback = nil
	_, err = w.Lifespan("tower")
	assert.Error(t, err)
}
