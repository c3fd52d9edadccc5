// Package costmethods holds the per-processing-step cost and revenue
// functions used to weight the supply-chain graph.
//
// Every method returns USD per metric ton; negative values are revenue.
// Parameters are read from a PathDict through one of three uncertainty
// modes (none, array, stochastic) and fall back to the published defaults
// when a parameter is not configured.
package costmethods

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrUnknownMethod is returned when a step or transport table names a cost
// method that is not registered.
var ErrUnknownMethod = errors.New("unknown cost method")

// Inputs carries the per-evaluation quantities that are not part of the
// PathDict: the transport distance of the edge being costed.
type Inputs struct {
	Vkmt float64
}

// Method computes a cost in USD/tonne.
type Method func(cm *CostMethods, in Inputs) (float64, error)

// Learning-curve keys read by the grinding methods.
const (
	LearningCoarseGrinding = "coarse grinding"
	LearningFineGrinding   = "fine grinding"
)

// SplitFineGrinding is the path_split key for fine-grinding material loss.
const SplitFineGrinding = "fine grinding"

const defaultTransportCostPerKm = 0.08

var registry = map[string]Method{
	"zero_method":             zeroMethod,
	"landfilling":             landfilling,
	"rotor_teardown":          rotorTeardown,
	"segmenting":              segmenting,
	"coarse_grinding_onsite":  coarseGrinding("coarse_grinding_onsite"),
	"coarse_grinding":         coarseGrinding("coarse_grinding"),
	"fine_grinding":           fineGrinding,
	"coprocessing":            coprocessing,
	"segment_transpo":         bandedTransport("segment_transpo"),
	"blade_transpo":           bandedTransport("blade_transpo"),
	"shred_transpo":           shredTransport,
	"finegrind_shred_transpo": finegrindShredTransport,
	"finegrind_loss_transpo":  finegrindLossTransport,
	"manufacturing":           manufacturing,
}

// Names returns every registered method name, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// CostMethods evaluates registered methods against the current PathDict
// for a single model run.
type CostMethods struct {
	pathDict *PathDict
	res      *resolver
}

// New creates the cost methods for one run. src drives stochastic draws and
// must come from the run's partitioned RNG.
func New(pd *PathDict, run int, src rand.Source) (*CostMethods, error) {
	if pd == nil {
		pd = &PathDict{}
	}
	if err := pd.Validate(run); err != nil {
		return nil, err
	}
	return &CostMethods{
		pathDict: pd,
		res:      newResolver(run, src),
	}, nil
}

// SetPathDict replaces the parameter store. Cached stochastic draws are
// kept: they are fixed for the whole run.
func (cm *CostMethods) SetPathDict(pd *PathDict) {
	cm.pathDict = pd
}

// PathDict returns the store currently in use.
func (cm *CostMethods) PathDict() *PathDict { return cm.pathDict }

// Has reports whether name is a registered method.
func Has(name string) bool {
	_, ok := registry[name]
	return ok
}

// Evaluate runs the named method.
func (cm *CostMethods) Evaluate(name string, in Inputs) (float64, error) {
	m, ok := registry[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q (known: %s)", ErrUnknownMethod, name, strings.Join(Names(), ", "))
	}
	v, err := m(cm, in)
	if err != nil {
		return 0, fmt.Errorf("cost method %s: %w", name, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("cost method %s: %w: non-finite result %v", name, ErrMalformedParam, v)
	}
	return v, nil
}

// Param resolves a configured parameter for method, or returns fallback
// when the method or the key is not configured.
func (cm *CostMethods) Param(method, key string, fallback float64) (float64, error) {
	cp, ok := cm.pathDict.CostUncertainty[method]
	if !ok {
		return fallback, nil
	}
	p, ok := cp.Params[key]
	if !ok {
		return fallback, nil
	}
	return cm.res.resolve(method, key, cp, p)
}

// configured reports whether both keys are present for method.
func (cm *CostMethods) configured(method string, keys ...string) bool {
	cp, ok := cm.pathDict.CostUncertainty[method]
	if !ok {
		return false
	}
	for _, k := range keys {
		if _, ok := cp.Params[k]; !ok {
			return false
		}
	}
	return true
}

// linearInYear returns m*year+b when both are configured for method and
// def(year) otherwise.
func (cm *CostMethods) linearInYear(method string, def func(year float64) float64) (float64, error) {
	year := cm.pathDict.Year
	if !cm.configured(method, "m", "b") {
		return def(year), nil
	}
	m, err := cm.Param(method, "m", 0)
	if err != nil {
		return 0, err
	}
	b, err := cm.Param(method, "b", 0)
	if err != nil {
		return 0, err
	}
	return m*year + b, nil
}

// LearningCost is the learning-by-doing unit cost. The floor of one on
// cumulative mass keeps the result finite at zero throughput.
func LearningCost(initialCost, cumul, learnRate float64) float64 {
	return initialCost * math.Pow(math.Max(1, cumul), learnRate)
}

func (cm *CostMethods) learningCost(method, key string) (float64, *LearningCurve, error) {
	lc, ok := cm.pathDict.Learning[key]
	if !ok || lc == nil {
		return 0, nil, fmt.Errorf("%w: learning curve %q not configured", ErrMalformedParam, key)
	}
	cumul := lc.InitialCumul
	if lc.Cumul != nil {
		cumul = *lc.Cumul
	}
	initialCost, err := cm.Param(method, "initial_cost", lc.InitialCost)
	if err != nil {
		return 0, nil, err
	}
	learnRate, err := cm.Param(method, "learn_rate", lc.LearnRate)
	if err != nil {
		return 0, nil, err
	}
	return LearningCost(initialCost, cumul, learnRate), lc, nil
}

func (cm *CostMethods) lossFraction() float64 {
	return cm.pathDict.PathSplit[SplitFineGrinding].Fraction
}

var defaultTransportBands = []YearBand{
	{From: math.Inf(-1), To: 2001, Cost: 4.35},
	{From: 2001, To: 2002, Cost: 8.70},
	{From: 2002, To: 2003, Cost: 4.35},
	{From: 2003, To: 2019, Cost: 8.70},
	{From: 2019, To: 2031, Cost: 13.05},
	{From: 2031, To: 2044, Cost: 17.40},
	{From: 2044, To: 2050, Cost: 21.75},
}

// BandCost picks the bracket covering year. The last bracket includes its
// upper bound. A year outside every bracket logs a warning and uses the
// nearest one.
func BandCost(name string, bands []YearBand, year float64) (float64, bool) {
	if len(bands) == 0 {
		return 0, false
	}
	for i, b := range bands {
		if year >= b.From && (year < b.To || (i == len(bands)-1 && year == b.To)) {
			return b.Cost, true
		}
	}
	nearest := bands[0]
	best := math.Inf(1)
	for _, b := range bands {
		d := math.Min(math.Abs(year-b.From), math.Abs(year-b.To))
		if d < best {
			best = d
			nearest = b
		}
	}
	logrus.Warnf("Year %v out of range for %s; using bracket [%v, %v) cost %v", year, name, nearest.From, nearest.To, nearest.Cost)
	return nearest.Cost, false
}

func (cm *CostMethods) yearBandCost(method string) float64 {
	bands, ok := cm.pathDict.YearBands[method]
	if !ok || len(bands) == 0 {
		bands = defaultTransportBands
	}
	c, _ := BandCost(method, bands, cm.pathDict.Year)
	return c
}
