package sim

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/NREL/celavi-sub000/sim/tables"
)

// LifespanSampler returns an item's in-use lifespan in years.
type LifespanSampler interface {
	Lifespan(kind string) (float64, error)
}

// FixedLifespan gives every kind a fixed lifetime. A kind with several
// values picks the one for Run.
type FixedLifespan struct {
	Years map[string][]float64
	Run   int
}

// Lifespan returns the configured lifetime of kind.
func (f FixedLifespan) Lifespan(kind string) (float64, error) {
	vs, ok := f.Years[kind]
	if !ok || len(vs) == 0 {
		return 0, fmt.Errorf("no fixed lifetime for component %q", kind)
	}
	if len(vs) == 1 {
		return vs[0], nil
	}
	if f.Run < 0 || f.Run >= len(vs) {
		return 0, fmt.Errorf("component %q: run %d outside %d fixed lifetimes", kind, f.Run, len(vs))
	}
	return vs[f.Run], nil
}

// WeibullParams are the shape K and the characteristic life L in years.
type WeibullParams struct {
	K float64 `yaml:"K" validate:"gt=0"`
	L float64 `yaml:"L" validate:"gt=0"`
}

// WeibullLifespan draws lifetimes as MinLifespan plus a Weibull variate
// with shape K and scale L - MinLifespan. Kinds without parameters fall
// back to Fallback.
type WeibullLifespan struct {
	Params      map[string]WeibullParams
	MinLifespan float64
	Fallback    LifespanSampler
	Src         rand.Source
}

// Lifespan draws one lifetime for kind.
func (w WeibullLifespan) Lifespan(kind string) (float64, error) {
	p, ok := w.Params[kind]
	if !ok {
		if w.Fallback == nil {
			return 0, fmt.Errorf("no Weibull parameters for component %q", kind)
		}
		return w.Fallback.Lifespan(kind)
	}
	scale := p.L - w.MinLifespan
	if scale <= 0 {
		return 0, fmt.Errorf("component %q: Weibull L %v must exceed the minimum lifespan %v", kind, p.L, w.MinLifespan)
	}
	d := distuv.Weibull{K: p.K, Lambda: scale, Src: w.Src}
	return w.MinLifespan + d.Rand(), nil
}

// UpstreamFinder locates the facility feeding an in-use facility.
type UpstreamFinder interface {
	FindUpstreamNeighbor(facilityID int, connectTo string) (int, bool)
}

// PopulationConfig controls BuildItems.
type PopulationConfig struct {
	// Kinds are the circular component kinds; each installed unit yields
	// one item per kind.
	Kinds            []string
	TimestepsPerYear int64
	// OriginStep is the step of the origin facility. When it equals
	// InUseStep the in-use facility is its own origin.
	OriginStep string
	InUseStep  string
}

// BuildItems creates items from installation rows in table order. Item
// ids are sequential from zero. Installations whose facility has no
// upstream origin are skipped with a warning.
func BuildItems(installs []tables.Installation, cfg PopulationConfig, masses *MaterialMasses, finder UpstreamFinder, lifespans LifespanSampler) ([]*Item, error) {
	var items []*Item
	origins := make(map[int]int)
	skipped := make(map[int]bool)
	for _, inst := range installs {
		origin, ok := origins[inst.FacilityID]
		if !ok && !skipped[inst.FacilityID] {
			origin, ok = resolveOrigin(inst.FacilityID, cfg, finder)
			if ok {
				origins[inst.FacilityID] = origin
			} else {
				skipped[inst.FacilityID] = true
				logrus.Warnf("Facility %d has no %s origin; its installations are skipped", inst.FacilityID, cfg.OriginStep)
			}
		}
		if !ok {
			continue
		}
		for n := 0; n < inst.NTechnology; n++ {
			for _, kind := range cfg.Kinds {
				years, err := lifespans.Lifespan(kind)
				if err != nil {
					return nil, err
				}
				lifespan := int64(math.Round(years * float64(cfg.TimestepsPerYear)))
				if lifespan < 1 {
					lifespan = 1
				}
				var mass map[string]float64
				if masses != nil {
					mass = masses.Lookup(kind, inst.Year)
				}
				items = append(items, NewItem(len(items), kind, inst.Year, inst.FacilityID, origin, lifespan, mass))
			}
		}
	}
	return items, nil
}

func resolveOrigin(facilityID int, cfg PopulationConfig, finder UpstreamFinder) (int, bool) {
	if cfg.OriginStep == cfg.InUseStep {
		return facilityID, true
	}
	return finder.FindUpstreamNeighbor(facilityID, cfg.OriginStep)
}
