package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// A manufacturer (1) supplies a power plant (2) whose blades are torn down
// on site and shipped to a landfill (3).
var fixtureTables = map[string]string{
	"locations.csv": `facility_id,facility_type,lat,long,region_id_1,region_id_2
1,manufacturing,39.7,-105.0,CO,Denver
2,power plant,31.0,-100.0,TX,Travis
3,landfill,30.5,-99.5,TX,Travis
`,
	"step_costs.csv": `facility_id,step,step_cost_method,connects,timeout
1,manufacturing,zero_method,out,1
2,in use,zero_method,bid,1
2,teardown,zero_method,out,1
3,landfilling,landfilling,in,1
`,
	"fac_edges.csv": `facility_type,step,next_step
manufacturing,manufacturing,
power plant,in use,teardown
landfill,landfilling,
`,
	"transpo_edges.csv": `u_step,v_step,transpo_cost_method
manufacturing,in use,zero_method
teardown,landfilling,shred_transpo
`,
	"routes.csv": `source_facility_id,destination_facility_id,total_vkmt,route_id
1,2,50,r12
2,3,10,r23
`,
	"component_material_mass.csv": `year,technology,component,material,mass_tonnes
2000,wind,blade,glass fiber,5
`,
	"technology_data.csv": `year,facility_id,n_technology
2000,2,2
2001,2,1
`,
}

const fixtureScenario = `model_run:
  start_year: 2000
  end_year: 2030
  timesteps_per_year: 12
  cg_update: 5
  seed: 13
  run: 0
  min_lifespan: 5
files:
  locations: locations.csv
  step_costs: step_costs.csv
  fac_edges: fac_edges.csv
  transpo_edges: transpo_edges.csv
  routes: routes.csv
  component_material_mass: component_material_mass.csv
  technology_data: technology_data.csv
  output: out/celavi.db
circular_pathways:
  sc_begin: [manufacturing]
  sc_end: [landfilling]
  path_dict:
    cost_uncertainty:
      landfilling:
        uncertainty: stochastic
        m: {value: 1.0, c: 0.5, loc: 0.5, scale: 1.0}
        b: -1900
technology_components:
  technology: wind
  circular_components: [blade]
  component_fixed_lifetimes:
    blade: [10]
  component_weibull_params:
    blade: {K: 2.2, L: 12}
  use_fixed_lifetime: true
`

// writeFixture lays the tables and scenario out in a temp dir and
// returns the scenario path.
func writeFixture(t *testing.T, scenario string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range fixtureTables {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scenario), 0o600))
	return path
}
