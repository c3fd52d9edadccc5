package cmd

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/NREL/celavi-sub000/sim"
	"github.com/NREL/celavi-sub000/sim/costmethods"
	"github.com/NREL/celavi-sub000/sim/tables"
)

// Scenario is the full scenario file.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Scenario struct {
	ModelRun   ModelRun         `yaml:"model_run" validate:"required"`
	Files      ScenarioFiles    `yaml:"files" validate:"required"`
	Pathways   CircularPathways `yaml:"circular_pathways" validate:"required"`
	Technology Technology       `yaml:"technology_components" validate:"required"`
}

// ModelRun holds the timeline and run selection.
type ModelRun struct {
	StartYear        float64 `yaml:"start_year" validate:"gt=0"`
	EndYear          float64 `yaml:"end_year" validate:"gtfield=StartYear"`
	TimestepsPerYear int64   `yaml:"timesteps_per_year" validate:"gt=0"`
	CGUpdate         float64 `yaml:"cg_update" validate:"gte=0"` // years between cost refreshes; 0 disables
	Seed             int64   `yaml:"seed"`
	Run              int     `yaml:"run" validate:"gte=0"`
	MinLifespan      float64 `yaml:"min_lifespan" validate:"gte=0"`
	TraceLevel       string  `yaml:"trace_level" validate:"omitempty,oneof=none decisions"`

	// EntryStep defaults to manufacturing, InUseStep to "in use".
	EntryStep string `yaml:"entry_step"`
	InUseStep string `yaml:"in_use_step"`

	// ComponentInitialMass seeds the per-tonne cost methods before the
	// first refresh; when zero it is looked up for MassComponent.
	ComponentInitialMass float64 `yaml:"component_initial_mass" validate:"gte=0"`
}

// ScenarioFiles are input table paths and output paths. Relative paths
// are resolved against the scenario file's directory.
type ScenarioFiles struct {
	Locations             string `yaml:"locations" validate:"required"`
	StepCosts             string `yaml:"step_costs" validate:"required"`
	FacilityEdges         string `yaml:"fac_edges" validate:"required"`
	TransportEdges        string `yaml:"transpo_edges" validate:"required"`
	Routes                string `yaml:"routes" validate:"required"`
	ComponentMaterialMass string `yaml:"component_material_mass" validate:"required"`
	TechnologyData        string `yaml:"technology_data" validate:"required"`

	Output     string `yaml:"output"`
	MetricsOut string `yaml:"metrics_out"`
}

// CircularPathways bounds the pathways and carries the cost parameters.
type CircularPathways struct {
	Begin    []string             `yaml:"sc_begin" validate:"required,min=1"`
	End      []string             `yaml:"sc_end" validate:"required,min=1"`
	InCirc   []string             `yaml:"sc_in_circ"`
	OutCirc  []string             `yaml:"sc_out_circ"`
	PathDict costmethods.PathDict `yaml:"path_dict"`
}

// Technology describes the simulated components.
type Technology struct {
	Technology         string   `yaml:"technology"`
	CircularComponents []string `yaml:"circular_components" validate:"required,min=1,dive,required"`
	// ComponentList is the number of each component per installed unit;
	// components not listed count once.
	ComponentList    map[string]int               `yaml:"component_list" validate:"dive,gte=0"`
	FixedLifetimes   map[string][]float64         `yaml:"component_fixed_lifetimes"`
	WeibullParams    map[string]sim.WeibullParams `yaml:"component_weibull_params" validate:"dive"`
	UseFixedLifetime bool                         `yaml:"use_fixed_lifetime"`
	// MassComponent feeds the per-tonne cost methods; defaults to the
	// first circular component.
	MassComponent string `yaml:"mass_component"`
}

// LoadScenario reads, resolves and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	sc, err := parseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	sc.Files.resolve(filepath.Dir(path))
	return sc, nil
}

// parseScenario decodes with strict field checking (typos must cause
// errors), applies defaults and validates.
func parseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	sc.applyDefaults()
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (sc *Scenario) applyDefaults() {
	if sc.ModelRun.EntryStep == "" {
		sc.ModelRun.EntryStep = "manufacturing"
	}
	if sc.ModelRun.InUseStep == "" {
		sc.ModelRun.InUseStep = "in use"
	}
	if sc.Technology.MassComponent == "" && len(sc.Technology.CircularComponents) > 0 {
		sc.Technology.MassComponent = sc.Technology.CircularComponents[0]
	}
}

// Validate checks struct tags, then the rules tags cannot express.
func (sc *Scenario) Validate() error {
	if err := newValidator().Validate(sc); err != nil {
		return err
	}
	tech := sc.Technology
	for _, c := range tech.CircularComponents {
		if tech.UseFixedLifetime {
			if len(tech.FixedLifetimes[c]) == 0 {
				return fmt.Errorf("component %q has no fixed lifetime", c)
			}
			continue
		}
		if _, ok := tech.WeibullParams[c]; !ok && len(tech.FixedLifetimes[c]) == 0 {
			return fmt.Errorf("component %q has neither Weibull parameters nor a fixed lifetime", c)
		}
	}
	if err := sc.Pathways.PathDict.Validate(sc.ModelRun.Run); err != nil {
		return fmt.Errorf("path_dict: %w", err)
	}
	return nil
}

// MaxTimesteps is the length of the simulated timeline.
func (m ModelRun) MaxTimesteps() int64 {
	return int64(math.Round((m.EndYear - m.StartYear) * float64(m.TimestepsPerYear)))
}

// UpdateInterval is cg_update in timesteps.
func (m ModelRun) UpdateInterval() int64 {
	return int64(math.Round(m.CGUpdate * float64(m.TimestepsPerYear)))
}

// Kinds expands the circular components by their per-unit count.
func (t Technology) Kinds() []string {
	var kinds []string
	for _, c := range t.CircularComponents {
		n, ok := t.ComponentList[c]
		if !ok {
			n = 1
		}
		for i := 0; i < n; i++ {
			kinds = append(kinds, c)
		}
	}
	return kinds
}

func (f *ScenarioFiles) resolve(dir string) {
	for _, p := range []*string{
		&f.Locations, &f.StepCosts, &f.FacilityEdges, &f.TransportEdges,
		&f.Routes, &f.ComponentMaterialMass, &f.TechnologyData,
		&f.Output, &f.MetricsOut,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

func (f ScenarioFiles) tables() tables.Files {
	return tables.Files{
		Locations:             f.Locations,
		StepCosts:             f.StepCosts,
		FacilityEdges:         f.FacilityEdges,
		TransportEdges:        f.TransportEdges,
		Routes:                f.Routes,
		ComponentMaterialMass: f.ComponentMaterialMass,
		TechnologyData:        f.TechnologyData,
	}
}

// scenarioValidator is a wrapper around go-playground/validator.
type scenarioValidator struct {
	validate *validator.Validate
}

func newValidator() *scenarioValidator {
	return &scenarioValidator{validate: validator.New()}
}

// Validate validates a struct using validation tags.
func (v *scenarioValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return v.formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors into readable messages.
func (v *scenarioValidator) formatValidationError(err error) error {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	messages := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		messages = append(messages, fmt.Sprintf("field '%s' failed validation: %s (value: '%v')",
			e.Namespace(), e.Tag(), e.Value()))
	}
	return fmt.Errorf("validation failed:\n  %s", strings.Join(messages, "\n  "))
}
