package costmethods

import (
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrMalformedParam is returned when a cost parameter cannot be resolved
// under the uncertainty mode configured for its cost method.
var ErrMalformedParam = errors.New("malformed cost parameter")

// UncertaintyMode selects how a cost parameter is resolved for a run.
type UncertaintyMode string

const (
	// UncertaintyNone uses the configured scalar as-is.
	UncertaintyNone UncertaintyMode = "none"
	// UncertaintyArray indexes the configured list by run number.
	UncertaintyArray UncertaintyMode = "array"
	// UncertaintyStochastic draws once per run from a triangular distribution.
	UncertaintyStochastic UncertaintyMode = "stochastic"
)

// normalize maps the accepted spellings onto the three modes.
// "random" is the older name for stochastic; blank means none.
func (m UncertaintyMode) normalize() (UncertaintyMode, error) {
	switch m {
	case "", UncertaintyNone:
		return UncertaintyNone, nil
	case UncertaintyArray:
		return UncertaintyArray, nil
	case UncertaintyStochastic, "random":
		return UncertaintyStochastic, nil
	}
	return "", fmt.Errorf("%w: unknown uncertainty mode %q", ErrMalformedParam, string(m))
}

// Triangular holds scipy-style triangular distribution parameters:
// min = Loc, max = Loc+Scale, mode = Loc+C*Scale.
type Triangular struct {
	C     float64 `yaml:"c"`
	Loc   float64 `yaml:"loc"`
	Scale float64 `yaml:"scale"`
}

// Param is one configured cost parameter. In YAML it is written as a
// scalar, a list (one value per run), or a mapping with a "value" key and
// optional triangular distribution parameters.
type Param struct {
	Value  *float64
	Values []float64
	Dist   *Triangular
}

// Scalar returns a Param holding a single fixed value.
func Scalar(v float64) Param { return Param{Value: &v} }

// List returns a Param holding one value per run.
func List(vs ...float64) Param { return Param{Values: append([]float64(nil), vs...)} }

// UnmarshalYAML accepts the three parameter shapes.
func (p *Param) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrMalformedParam, node.Line, err)
		}
		p.Value = &v
	case yaml.SequenceNode:
		var vs []float64
		if err := node.Decode(&vs); err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrMalformedParam, node.Line, err)
		}
		p.Values = vs
	case yaml.MappingNode:
		var raw struct {
			Value *float64 `yaml:"value"`
			C     *float64 `yaml:"c"`
			Loc   *float64 `yaml:"loc"`
			Scale *float64 `yaml:"scale"`
		}
		if err := node.Decode(&raw); err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrMalformedParam, node.Line, err)
		}
		p.Value = raw.Value
		if raw.C != nil && raw.Loc != nil && raw.Scale != nil {
			p.Dist = &Triangular{C: *raw.C, Loc: *raw.Loc, Scale: *raw.Scale}
		}
	default:
		return fmt.Errorf("%w: line %d: unsupported node kind", ErrMalformedParam, node.Line)
	}
	return nil
}

// CostParams is the per-cost-method entry of the "cost_uncertainty" section.
type CostParams struct {
	Uncertainty UncertaintyMode  `yaml:"uncertainty"`
	Params      map[string]Param `yaml:",inline"`
}

// LearningCurve is one learning-by-doing entry. Cumul is nil until the
// first graph refresh has observed processed mass; InitialCumul is used
// until then.
type LearningCurve struct {
	Component    string   `yaml:"component"`
	Steps        []string `yaml:"steps"`
	Cumul        *float64 `yaml:"cumul"`
	InitialCumul float64  `yaml:"initial_cumul"`
	InitialCost  float64  `yaml:"initial_cost"`
	LearnRate    float64  `yaml:"learn_rate"`
	Revenue      float64  `yaml:"revenue"`
}

// PathSplit diverts a fraction of the mass leaving a step to the nearest
// downstream facility running Destination.
type PathSplit struct {
	Fraction    float64 `yaml:"fraction"`
	Destination string  `yaml:"destination"`
}

// YearBand is a piecewise-constant cost bracket covering [From, To).
type YearBand struct {
	From float64 `yaml:"from"`
	To   float64 `yaml:"to"`
	Cost float64 `yaml:"cost"`
}

// PathDict is the mutable cost-parameter store shared by the graph and the
// simulation context. Year and ComponentMass are runtime state set by the
// context before every cost refresh.
type PathDict struct {
	CostUncertainty map[string]CostParams     `yaml:"cost_uncertainty"`
	Learning        map[string]*LearningCurve `yaml:"learning"`
	PathSplit       map[string]PathSplit      `yaml:"path_split"`
	YearBands       map[string][]YearBand     `yaml:"year_bands"`

	Year          float64 `yaml:"-"`
	ComponentMass float64 `yaml:"-"`
}

// Clone returns a deep copy so a refresh never aliases the previous state.
func (pd *PathDict) Clone() *PathDict {
	if pd == nil {
		return &PathDict{}
	}
	out := &PathDict{
		Year:          pd.Year,
		ComponentMass: pd.ComponentMass,
	}
	if pd.CostUncertainty != nil {
		out.CostUncertainty = make(map[string]CostParams, len(pd.CostUncertainty))
		for name, cp := range pd.CostUncertainty {
			params := make(map[string]Param, len(cp.Params))
			for k, p := range cp.Params {
				params[k] = p.clone()
			}
			out.CostUncertainty[name] = CostParams{Uncertainty: cp.Uncertainty, Params: params}
		}
	}
	if pd.Learning != nil {
		out.Learning = make(map[string]*LearningCurve, len(pd.Learning))
		for key, lc := range pd.Learning {
			if lc == nil {
				continue
			}
			c := *lc
			c.Steps = append([]string(nil), lc.Steps...)
			if lc.Cumul != nil {
				v := *lc.Cumul
				c.Cumul = &v
			}
			out.Learning[key] = &c
		}
	}
	if pd.PathSplit != nil {
		out.PathSplit = make(map[string]PathSplit, len(pd.PathSplit))
		for k, v := range pd.PathSplit {
			out.PathSplit[k] = v
		}
	}
	if pd.YearBands != nil {
		out.YearBands = make(map[string][]YearBand, len(pd.YearBands))
		for k, v := range pd.YearBands {
			out.YearBands[k] = append([]YearBand(nil), v...)
		}
	}
	return out
}

// LearningKeys returns the learning-curve keys in sorted order.
func (pd *PathDict) LearningKeys() []string {
	keys := make([]string, 0, len(pd.Learning))
	for k := range pd.Learning {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks that every configured parameter can be resolved for the
// given run under its method's uncertainty mode.
func (pd *PathDict) Validate(run int) error {
	names := make([]string, 0, len(pd.CostUncertainty))
	for name := range pd.CostUncertainty {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cp := pd.CostUncertainty[name]
		mode, err := cp.Uncertainty.normalize()
		if err != nil {
			return fmt.Errorf("cost method %s: %w", name, err)
		}
		for key, p := range cp.Params {
			if _, err := p.check(mode, run); err != nil {
				return fmt.Errorf("cost method %s parameter %s: %w", name, key, err)
			}
		}
	}
	for key, lc := range pd.Learning {
		if lc == nil {
			return fmt.Errorf("%w: learning curve %q is empty", ErrMalformedParam, key)
		}
		if len(lc.Steps) == 0 {
			return fmt.Errorf("%w: learning curve %q has no steps", ErrMalformedParam, key)
		}
	}
	for step, split := range pd.PathSplit {
		if split.Fraction < 0 || split.Fraction > 1 {
			return fmt.Errorf("%w: path split %q fraction %v outside [0, 1]", ErrMalformedParam, step, split.Fraction)
		}
	}
	return nil
}

func (p Param) clone() Param {
	out := Param{Values: append([]float64(nil), p.Values...)}
	if p.Value != nil {
		v := *p.Value
		out.Value = &v
	}
	if p.Dist != nil {
		d := *p.Dist
		out.Dist = &d
	}
	return out
}

// check reports whether the parameter has the shape its mode needs. For
// none and array modes it also returns the resolved value.
func (p Param) check(mode UncertaintyMode, run int) (float64, error) {
	switch mode {
	case UncertaintyArray:
		if len(p.Values) == 0 {
			if p.Value != nil {
				return *p.Value, nil
			}
			return 0, fmt.Errorf("%w: array mode needs a list", ErrMalformedParam)
		}
		if run < 0 || run >= len(p.Values) {
			return 0, fmt.Errorf("%w: run %d outside list of length %d", ErrMalformedParam, run, len(p.Values))
		}
		return p.Values[run], nil
	case UncertaintyStochastic:
		if p.Dist == nil && p.Value == nil {
			return 0, fmt.Errorf("%w: stochastic mode needs c, loc and scale or a value", ErrMalformedParam)
		}
		if p.Dist != nil && p.Dist.Scale < 0 {
			return 0, fmt.Errorf("%w: negative scale %v", ErrMalformedParam, p.Dist.Scale)
		}
		if p.Dist != nil && (p.Dist.C < 0 || p.Dist.C > 1) {
			return 0, fmt.Errorf("%w: shape c=%v outside [0, 1]", ErrMalformedParam, p.Dist.C)
		}
		if p.Value != nil {
			return *p.Value, nil
		}
		return 0, nil
	default:
		if p.Value != nil {
			return *p.Value, nil
		}
		if len(p.Values) == 1 {
			return p.Values[0], nil
		}
		return 0, fmt.Errorf("%w: mode none needs a scalar", ErrMalformedParam)
	}
}
