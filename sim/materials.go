package sim

import (
	"maps"
	"math"
	"slices"

	"github.com/NREL/celavi-sub000/sim/tables"
)

// MaterialMasses answers per-unit material mass questions for component
// kinds by installation year.
type MaterialMasses struct {
	// component -> year -> material -> tonnes
	byComponent map[string]map[int]map[string]float64
	materials   []string
}

// NewMaterialMasses indexes the component-material-mass table. Rows with
// the same component, year and material are summed.
func NewMaterialMasses(rows []tables.ComponentMaterialMass) *MaterialMasses {
	mm := &MaterialMasses{byComponent: make(map[string]map[int]map[string]float64)}
	seen := make(map[string]bool)
	for _, r := range rows {
		years, ok := mm.byComponent[r.Component]
		if !ok {
			years = make(map[int]map[string]float64)
			mm.byComponent[r.Component] = years
		}
		mats, ok := years[r.Year]
		if !ok {
			mats = make(map[string]float64)
			years[r.Year] = mats
		}
		mats[r.Material] += r.MassTonnes
		seen[r.Material] = true
	}
	mm.materials = slices.Sorted(maps.Keys(seen))
	return mm
}

// Materials returns every material in the table, sorted.
func (mm *MaterialMasses) Materials() []string { return slices.Clone(mm.materials) }

// MaterialsOf returns the materials of component, sorted.
func (mm *MaterialMasses) MaterialsOf(component string) []string {
	seen := make(map[string]bool)
	for _, mats := range mm.byComponent[component] {
		for m := range mats {
			seen[m] = true
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Lookup returns a copy of the material masses of one component unit
// installed in year. When year has no row the nearest year is used,
// preferring the earlier one on ties.
func (mm *MaterialMasses) Lookup(component string, year float64) map[string]float64 {
	years := mm.byComponent[component]
	if len(years) == 0 {
		return nil
	}
	best := 0
	bestDist := math.Inf(1)
	for _, y := range slices.Sorted(maps.Keys(years)) {
		if d := math.Abs(float64(y) - year); d < bestDist {
			best, bestDist = y, d
		}
	}
	return maps.Clone(years[best])
}

// ComponentMass is the total tonnes of one component unit installed in year.
func (mm *MaterialMasses) ComponentMass(component string, year float64) float64 {
	total := 0.0
	mats := mm.Lookup(component, year)
	for _, m := range slices.Sorted(maps.Keys(mats)) {
		total += mats[m]
	}
	return total
}
