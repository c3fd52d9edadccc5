package costmethods

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// resolver turns configured parameters into run-specific values. Stochastic
// draws are made once per (method, parameter) and reused for the rest of the
// run, so every call within a run sees the same number.
type resolver struct {
	run   int
	src   rand.Source
	draws map[string]float64
}

func newResolver(run int, src rand.Source) *resolver {
	return &resolver{run: run, src: src, draws: make(map[string]float64)}
}

func (r *resolver) resolve(method, key string, cp CostParams, p Param) (float64, error) {
	mode, err := cp.Uncertainty.normalize()
	if err != nil {
		return 0, err
	}
	if mode != UncertaintyStochastic || p.Dist == nil {
		return p.check(mode, r.run)
	}
	cacheKey := method + "\x00" + key
	if v, ok := r.draws[cacheKey]; ok {
		return v, nil
	}
	if _, err := p.check(mode, r.run); err != nil {
		return 0, err
	}
	v := r.drawTriangular(*p.Dist)
	r.draws[cacheKey] = v
	return v, nil
}

func (r *resolver) drawTriangular(t Triangular) float64 {
	if t.Scale == 0 {
		return t.Loc
	}
	lo, hi := t.Loc, t.Loc+t.Scale
	mode := t.Loc + t.C*t.Scale
	return distuv.NewTriangle(lo, hi, mode, r.src).Rand()
}
