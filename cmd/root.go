package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/NREL/celavi-sub000/sim/trace"
)

var (
	scenarioPath string // Scenario YAML file
	seed         int64  // Overrides model_run.seed
	runIndex     int    // Overrides model_run.run
	logLevel     string // Log verbosity level
	outputPath   string // Overrides files.output
	metricsOut   string // Overrides files.metrics_out
	traceLevel   string // Overrides model_run.trace_level
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "celavi",
	Short: "Discrete-event simulator for circular-economy supply chains",
}

// runCmd executes one model run of a scenario
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a CELAVI scenario",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if scenarioPath == "" {
			logrus.Fatalf("Scenario file not provided. Exiting simulation.")
		}
		sc, err := LoadScenario(scenarioPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		applyOverrides(cmd, sc)
		if !trace.IsValidTraceLevel(sc.ModelRun.TraceLevel) {
			logrus.Fatalf("Invalid trace level: %s", sc.ModelRun.TraceLevel)
		}

		logrus.Infof("Starting run %d of %s: %v-%v, %d timesteps/year, seed=%d",
			sc.ModelRun.Run, scenarioPath, sc.ModelRun.StartYear, sc.ModelRun.EndYear,
			sc.ModelRun.TimestepsPerYear, sc.ModelRun.Seed)
		startTime := time.Now()

		summary, err := runScenario(sc)
		if err != nil {
			logrus.Fatalf("Run failed: %v", err)
		}
		if err := printSummary(summary); err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Infof("Simulation complete in %v.", time.Since(startTime).Round(time.Millisecond))
	},
}

// applyOverrides lets explicitly set flags win over the scenario file.
func applyOverrides(cmd *cobra.Command, sc *Scenario) {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		sc.ModelRun.Seed = seed
	}
	if flags.Changed("run") {
		sc.ModelRun.Run = runIndex
	}
	if flags.Changed("output") {
		sc.Files.Output = outputPath
	}
	if flags.Changed("metrics-out") {
		sc.Files.MetricsOut = metricsOut
	}
	if flags.Changed("trace") {
		sc.ModelRun.TraceLevel = traceLevel
	}
}

func printSummary(s *Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	fmt.Println("=== Simulation Summary ===")
	fmt.Println(string(data))
	return nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Scenario YAML file")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for stochastic costs and lifespans")
	runCmd.Flags().IntVar(&runIndex, "run", 0, "Model run index for array uncertainty")
	runCmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&outputPath, "output", "", "SQLite results file")
	runCmd.Flags().StringVar(&metricsOut, "metrics-out", "", "Prometheus textfile for run metrics")
	runCmd.Flags().StringVar(&traceLevel, "trace", "none", "Decision trace level (none, decisions)")

	rootCmd.AddCommand(runCmd)
}
