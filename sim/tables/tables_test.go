package tables

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLocations_ParsesFloatIDsAndRegions(t *testing.T) {
	src := "facility_id,facility_type,lat,long,region_id_1,region_id_2,region_id_3,region_id_4\n" +
		"12.0,in use,30.1,-97.5,TX,Travis,,\n" +
		"7,landfill,,,TX,,,\n"

	locs, err := ReadLocations(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, 12, locs[0].FacilityID)
	assert.Equal(t, "in use", locs[0].FacilityType)
	assert.Equal(t, 30.1, locs[0].Lat)
	assert.Equal(t, [4]string{"TX", "Travis", "", ""}, locs[0].RegionIDs)
	assert.Equal(t, 0.0, locs[1].Lat)
}

func TestReadStepCosts_DefaultsTimeout(t *testing.T) {
	src := "facility_id,step,step_cost_method,connects\n1,in use,zero_method,bid\n"
	rows, err := ReadStepCosts(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, StepCost{FacilityID: 1, Step: "in use", StepCostMethod: "zero_method", Connects: "bid", Timeout: 1}, rows[0])
}

func TestReadFacilityEdges_DropsTerminalRows(t *testing.T) {
	src := "facility_type,step,next_step\nin use,in use,rotor teardown\nlandfill,landfilling,\n"
	rows, err := ReadFacilityEdges(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []FacilityEdge{{FacilityType: "in use", Step: "in use", NextStep: "rotor teardown"}}, rows)
}

func TestReadRoutes_DefaultsRouteID(t *testing.T) {
	src := "source_facility_id,destination_facility_id,total_vkmt\n1,2,150.5\n"
	rows, err := ReadRoutes(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1-2", rows[0].RouteID)
	assert.Equal(t, 150.5, rows[0].TotalVkmt)
}

func TestReadRows_MissingColumn(t *testing.T) {
	_, err := ReadTransportEdges(strings.NewReader("u_step,v_step\na,b\n"))
	assert.True(t, errors.Is(err, ErrMissingColumn))
}

func TestReadRows_BadNumberReportsLine(t *testing.T) {
	_, err := ReadInstallations(strings.NewReader("year,facility_id,n_technology\n2000,1,3\n2001,x,2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
	assert.Contains(t, err.Error(), "facility_id")
}

func TestLoad_ReadsAllFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		return p
	}
	files := Files{
		Locations:             write("locations.csv", "facility_id,facility_type\n1,in use\n"),
		StepCosts:             write("step_costs.csv", "facility_id,step,step_cost_method,connects\n1,in use,zero_method,bid\n"),
		FacilityEdges:         write("fac_edges.csv", "facility_type,step,next_step\n"),
		TransportEdges:        write("transpo_edges.csv", "u_step,v_step,transpo_cost_method\n"),
		Routes:                write("routes.csv", "source_facility_id,destination_facility_id,total_vkmt\n"),
		ComponentMaterialMass: write("mass.csv", "year,technology,component,material,mass_tonnes\n2000,wind,blade,glass fiber,5.5\n"),
	}

	tbl, err := Load(files)
	require.NoError(t, err)
	assert.Len(t, tbl.Locations, 1)
	assert.Len(t, tbl.StepCosts, 1)
	assert.Empty(t, tbl.Routes)
	require.Len(t, tbl.ComponentMaterialMasses, 1)
	assert.Equal(t, 5.5, tbl.ComponentMaterialMasses[0].MassTonnes)
	assert.Empty(t, tbl.Installations)
}
