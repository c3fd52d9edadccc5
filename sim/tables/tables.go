// Package tables reads the external input tables the engine consumes:
// facility locations, per-facility processing steps, facility-type edge
// templates, transport edge templates, routes, component material masses
// and installed technology. All files are CSV with a header row; columns
// are matched by name so extra columns are ignored.
package tables

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("missing column")

// Location is one facility.
type Location struct {
	FacilityID   int
	FacilityType string
	Lat          float64
	Long         float64
	RegionIDs    [4]string
}

// StepCost names one processing step run at a facility and its cost method.
// Connects is "in", "out" or "bid" and marks which steps may receive or send
// inter-facility shipments. Timeout is the default sojourn in timesteps.
type StepCost struct {
	FacilityID     int
	Step           string
	StepCostMethod string
	Connects       string
	Timeout        int
}

// FacilityEdge is an intra-facility step transition template, applied to
// every facility of FacilityType.
type FacilityEdge struct {
	FacilityType string
	Step         string
	NextStep     string
}

// TransportEdge is an inter-facility step transition template.
type TransportEdge struct {
	UStep             string
	VStep             string
	TranspoCostMethod string
}

// Route is a precomputed road route between two facilities.
type Route struct {
	RouteID                 string
	SourceFacilityID        int
	SourceFacilityType      string
	DestinationFacilityID   int
	DestinationFacilityType string
	TotalVkmt               float64
	Mode                    string
}

// ComponentMaterialMass is the mass of one material in one component kind
// for units installed in Year.
type ComponentMaterialMass struct {
	Year       int
	Technology string
	Component  string
	Material   string
	MassTonnes float64
}

// Installation is a batch of technology units entering use.
type Installation struct {
	Year        float64
	FacilityID  int
	NTechnology int
}

// Files lists the table paths. Empty optional paths yield empty tables.
type Files struct {
	Locations             string
	StepCosts             string
	FacilityEdges         string
	TransportEdges        string
	Routes                string
	ComponentMaterialMass string
	TechnologyData        string
}

// Tables is the full set of inputs.
type Tables struct {
	Locations               []Location
	StepCosts               []StepCost
	FacilityEdges           []FacilityEdge
	TransportEdges          []TransportEdge
	Routes                  []Route
	ComponentMaterialMasses []ComponentMaterialMass
	Installations           []Installation
}

// Load reads every table named in files.
func Load(files Files) (*Tables, error) {
	t := &Tables{}
	var err error
	if t.Locations, err = loadFile(files.Locations, ReadLocations); err != nil {
		return nil, err
	}
	if t.StepCosts, err = loadFile(files.StepCosts, ReadStepCosts); err != nil {
		return nil, err
	}
	if t.FacilityEdges, err = loadFile(files.FacilityEdges, ReadFacilityEdges); err != nil {
		return nil, err
	}
	if t.TransportEdges, err = loadFile(files.TransportEdges, ReadTransportEdges); err != nil {
		return nil, err
	}
	if t.Routes, err = loadFile(files.Routes, ReadRoutes); err != nil {
		return nil, err
	}
	if files.ComponentMaterialMass != "" {
		if t.ComponentMaterialMasses, err = loadFile(files.ComponentMaterialMass, ReadComponentMaterialMasses); err != nil {
			return nil, err
		}
	}
	if files.TechnologyData != "" {
		if t.Installations, err = loadFile(files.TechnologyData, ReadInstallations); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func loadFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()
	rows, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

// ReadLocations parses facility_id, facility_type, lat, long, region_id_1..4.
func ReadLocations(r io.Reader) ([]Location, error) {
	return readRows(r, []string{"facility_id", "facility_type"}, func(rec *record) Location {
		return Location{
			FacilityID:   rec.int("facility_id"),
			FacilityType: rec.str("facility_type"),
			Lat:          rec.optFloat("lat", 0),
			Long:         rec.optFloat("long", 0),
			RegionIDs: [4]string{
				rec.str("region_id_1"), rec.str("region_id_2"),
				rec.str("region_id_3"), rec.str("region_id_4"),
			},
		}
	})
}

// ReadStepCosts parses facility_id, step, step_cost_method, connects and an
// optional timeout column (default 1).
func ReadStepCosts(r io.Reader) ([]StepCost, error) {
	return readRows(r, []string{"facility_id", "step", "step_cost_method", "connects"}, func(rec *record) StepCost {
		return StepCost{
			FacilityID:     rec.int("facility_id"),
			Step:           rec.str("step"),
			StepCostMethod: rec.str("step_cost_method"),
			Connects:       rec.str("connects"),
			Timeout:        int(rec.optFloat("timeout", 1)),
		}
	})
}

// ReadFacilityEdges parses facility_type, step, next_step. Rows with an
// empty next_step describe steps without an intra-facility successor and
// are dropped.
func ReadFacilityEdges(r io.Reader) ([]FacilityEdge, error) {
	rows, err := readRows(r, []string{"facility_type", "step", "next_step"}, func(rec *record) FacilityEdge {
		return FacilityEdge{
			FacilityType: rec.str("facility_type"),
			Step:         rec.str("step"),
			NextStep:     rec.str("next_step"),
		}
	})
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, e := range rows {
		if e.NextStep != "" {
			out = append(out, e)
		}
	}
	return out, nil
}

// ReadTransportEdges parses u_step, v_step, transpo_cost_method.
func ReadTransportEdges(r io.Reader) ([]TransportEdge, error) {
	return readRows(r, []string{"u_step", "v_step", "transpo_cost_method"}, func(rec *record) TransportEdge {
		return TransportEdge{
			UStep:             rec.str("u_step"),
			VStep:             rec.str("v_step"),
			TranspoCostMethod: rec.str("transpo_cost_method"),
		}
	})
}

// ReadRoutes parses the routes table. Only the columns the graph needs are
// required; route_id defaults to "<source>-<destination>".
func ReadRoutes(r io.Reader) ([]Route, error) {
	return readRows(r, []string{"source_facility_id", "destination_facility_id", "total_vkmt"}, func(rec *record) Route {
		src := rec.int("source_facility_id")
		dst := rec.int("destination_facility_id")
		id := rec.str("route_id")
		if id == "" {
			id = fmt.Sprintf("%d-%d", src, dst)
		}
		return Route{
			RouteID:                 id,
			SourceFacilityID:        src,
			SourceFacilityType:      rec.str("source_facility_type"),
			DestinationFacilityID:   dst,
			DestinationFacilityType: rec.str("destination_facility_type"),
			TotalVkmt:               rec.float("total_vkmt"),
			Mode:                    rec.str("mode"),
		}
	})
}

// ReadComponentMaterialMasses parses year, technology, component, material,
// mass_tonnes.
func ReadComponentMaterialMasses(r io.Reader) ([]ComponentMaterialMass, error) {
	return readRows(r, []string{"year", "component", "material", "mass_tonnes"}, func(rec *record) ComponentMaterialMass {
		return ComponentMaterialMass{
			Year:       int(rec.float("year")),
			Technology: rec.str("technology"),
			Component:  rec.str("component"),
			Material:   rec.str("material"),
			MassTonnes: rec.float("mass_tonnes"),
		}
	})
}

// ReadInstallations parses year, facility_id, n_technology.
func ReadInstallations(r io.Reader) ([]Installation, error) {
	return readRows(r, []string{"year", "facility_id", "n_technology"}, func(rec *record) Installation {
		return Installation{
			Year:        rec.float("year"),
			FacilityID:  rec.int("facility_id"),
			NTechnology: int(rec.float("n_technology")),
		}
	})
}

// record wraps one CSV row and collects the first parse error so row
// builders can read fields without checking each one.
type record struct {
	line   int
	cols   map[string]int
	fields []string
	err    error
}

func (r *record) raw(col string) (string, bool) {
	i, ok := r.cols[col]
	if !ok || i >= len(r.fields) {
		return "", false
	}
	return strings.TrimSpace(r.fields[i]), true
}

func (r *record) fail(col string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("line %d column %s: %w", r.line, col, err)
	}
}

func (r *record) str(col string) string {
	v, _ := r.raw(col)
	return v
}

func (r *record) float(col string) float64 {
	v, _ := r.raw(col)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(col, err)
	}
	return f
}

func (r *record) optFloat(col string, def float64) float64 {
	v, ok := r.raw(col)
	if !ok || v == "" {
		return def
	}
	return r.float(col)
}

func (r *record) int(col string) int {
	v, _ := r.raw(col)
	i, err := strconv.Atoi(v)
	if err == nil {
		return i
	}
	// pandas writes integer ids as floats ("12.0")
	f, ferr := strconv.ParseFloat(v, 64)
	if ferr != nil {
		r.fail(col, err)
		return 0
	}
	return int(f)
}

func readRows[T any](r io.Reader, required []string, build func(*record) T) ([]T, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, req := range required {
		if _, ok := cols[req]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, req)
		}
	}

	var out []T
	line := 1
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec := &record{line: line, cols: cols, fields: fields}
		row := build(rec)
		if rec.err != nil {
			return nil, rec.err
		}
		out = append(out, row)
	}
	return out, nil
}
