package sim

import (
	"errors"
	"math"
	"strings"

	"github.com/NREL/celavi-sub000/sim/costmethods"
)

// Config holds the run parameters of a Context.
type Config struct {
	MinYear                 float64
	MaxTimesteps            int64
	TimestepsPerYear        int64
	CostGraphUpdateInterval int64 // 0 disables refreshes
	Run                     int

	// EntryStep is the step at the origin facility every pathway starts
	// from; InUseStep is the step whose sojourn is the item lifespan.
	EntryStep string
	InUseStep string

	PossibleComponents []string
	PossibleMaterials  []string

	// MassComponent names the component whose per-unit mass feeds the
	// per-tonne cost methods on every refresh.
	MassComponent string

	PathDict *costmethods.PathDict
}

// YearsToTimesteps converts a calendar year to the nearest timestep.
func (c Config) YearsToTimesteps(year float64) int64 {
	return int64(math.Round((year - c.MinYear) * float64(c.TimestepsPerYear)))
}

// TimestepsToYears converts a timestep to a fractional calendar year.
func (c Config) TimestepsToYears(t int64) float64 {
	return c.MinYear + float64(t)/float64(c.TimestepsPerYear)
}

func (c Config) validate() error {
	var errs []string
	if c.TimestepsPerYear <= 0 {
		errs = append(errs, "timesteps per year must be positive")
	}
	if c.MaxTimesteps <= 0 {
		errs = append(errs, "max timesteps must be positive")
	}
	if c.CostGraphUpdateInterval < 0 {
		errs = append(errs, "cost graph update interval must not be negative")
	}
	if c.EntryStep == "" {
		errs = append(errs, "entry step is required")
	}
	if len(c.PossibleComponents) == 0 {
		errs = append(errs, "at least one component kind is required")
	}
	if len(errs) > 0 {
		return errors.New("invalid context config: " + strings.Join(errs, "; "))
	}
	return nil
}
