package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyOverrides_OnlyChangedFlags(t *testing.T) {
	// GIVEN a loaded scenario with seed 13 and run 0
	sc, err := LoadScenario(writeFixture(t, fixtureScenario))
	require.NoError(t, err)
	output := sc.Files.Output

	// WHEN only --run and --metrics-out are set on the command line
	require.NoError(t, runCmd.Flags().Set("run", "2"))
	require.NoError(t, runCmd.Flags().Set("metrics-out", "/tmp/celavi.prom"))
	t.Cleanup(func() {
		runCmd.Flags().Lookup("run").Changed = false
		runCmd.Flags().Lookup("metrics-out").Changed = false
		runIndex, metricsOut = 0, ""
	})
	applyOverrides(runCmd, sc)

	// THEN those win and the rest keep the file's values
	assert.Equal(t, 2, sc.ModelRun.Run)
	assert.Equal(t, "/tmp/celavi.prom", sc.Files.MetricsOut)
	assert.Equal(t, int64(13), sc.ModelRun.Seed)
	assert.Equal(t, output, sc.Files.Output)
}

func TestRunCmd_Flags(t *testing.T) {
	for _, name := range []string{"scenario", "seed", "run", "log", "output", "metrics-out", "trace"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "warn", runCmd.Flags().Lookup("log").DefValue)
}
