package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lattice-sim/lattice-sim/sim"
	"github.com/lattice-sim/lattice-sim/sim/dispatch"
	"github.com/lattice-sim/lattice-sim/sim/store"
	"github.com/lattice-sim/lattice-sim/sim/trace"
)

// envPrefix namespaces every environment override, e.g. LATTICE_SIM_THREADS.
const envPrefix = "LATTICE_SIM_"

var (
	configPath     string  // YAML run configuration
	logLevel       string  // Log verbosity level
	modelDatabase  string  // sqlite model database
	stateDatabase  string  // sqlite state database
	baseSeed       int64   // Seed of the first replica
	numberOfSims   int     // Number of replicas
	threads        int     // Concurrent replicas
	stepCutoff     int     // Events per replica (0 = unlimited)
	timeCutoff     float64 // Simulated time per replica (0 = unlimited)
	trajectorySink string  // "sqlite" or "jsonl-zstd"
	outputDir      string  // Directory for jsonl-zstd trajectories
	metricsFile    string  // Prometheus textfile output
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "lattice-sim",
	Short: "Lattice kinetic Monte Carlo simulator for surface and electrochemical reaction networks",
}

// runCmd executes every replica described by the configuration
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the kinetic Monte Carlo replicas",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg, err := resolveRunConfig(cmd)
		if err != nil {
			logrus.Fatalf("Invalid run configuration: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		startTime := time.Now()
		if err := runSimulation(ctx, cfg, os.Stdout); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		logrus.Infof("Simulation complete in %s.", time.Since(startTime).Round(time.Millisecond))
	},
}

// resolveRunConfig layers defaults, the YAML file, LATTICE_SIM_* environment
// variables and explicitly set flags, in that order, then validates.
func resolveRunConfig(cmd *cobra.Command) (*sim.RunConfig, error) {
	cfg := sim.DefaultRunConfig()
	if configPath != "" {
		loaded, err := sim.LoadRunConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("model-db") {
		cfg.ModelDatabase = modelDatabase
	}
	if flags.Changed("state-db") {
		cfg.StateDatabase = stateDatabase
	}
	if flags.Changed("seed") {
		cfg.BaseSeed = baseSeed
	}
	if flags.Changed("num-simulations") {
		cfg.NumberOfSimulations = numberOfSims
	}
	if flags.Changed("threads") {
		cfg.Threads = threads
	}
	if flags.Changed("step-cutoff") {
		cfg.StepCutoff = stepCutoff
	}
	if flags.Changed("time-cutoff") {
		cfg.TimeCutoff = timeCutoff
	}
	if flags.Changed("sink") {
		cfg.TrajectorySink = trajectorySink
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = outputDir
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = metricsFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// runSimulation loads the model, dispatches every replica and prints the
// run summary to out.
func runSimulation(ctx context.Context, cfg *sim.RunConfig, out io.Writer) error {
	params, err := cfg.Lattice.Parameters()
	if err != nil {
		return err
	}
	modelDB, err := store.OpenModelDB(cfg.ModelDatabase)
	if err != nil {
		return err
	}
	defer modelDB.Close()
	stateDB, err := store.OpenStateDB(cfg.StateDatabase)
	if err != nil {
		return err
	}
	defer stateDB.Close()

	loader := &store.Loader{Model: modelDB, State: stateDB}
	records, err := loader.LoadModel(ctx)
	if err != nil {
		return err
	}
	net, err := sim.NewReactionNetwork(records, params)
	if err != nil {
		return err
	}

	var sink dispatch.TrajectorySink = dispatch.SQLiteSink{DB: stateDB}
	if cfg.TrajectorySink == sim.SinkJSONLZstd {
		sink = dispatch.ZstdSink{W: trace.NewJSONLZstdWriter(cfg.OutputDir, "trajectory")}
	}

	replicas, err := dispatch.New(net, stateDB, sink, dispatch.ConfigFromRun(cfg)).Run(ctx)
	if err != nil {
		return err
	}
	trace.Summarize(replicas).Print(out)
	return nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "Path to the YAML run configuration")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")

	runCmd.Flags().StringVar(&modelDatabase, "model-db", "", "Path to the sqlite model database")
	runCmd.Flags().StringVar(&stateDatabase, "state-db", "", "Path to the sqlite state database")
	runCmd.Flags().Int64Var(&baseSeed, "seed", 1000, "Seed of the first replica; replica i uses seed+i")
	runCmd.Flags().IntVar(&numberOfSims, "num-simulations", 1, "Number of replicas")
	runCmd.Flags().IntVar(&threads, "threads", 1, "Replicas run concurrently")
	runCmd.Flags().IntVar(&stepCutoff, "step-cutoff", 0, "Events per replica (0 = unlimited)")
	runCmd.Flags().Float64Var(&timeCutoff, "time-cutoff", 0, "Simulated time per replica (0 = unlimited)")
	runCmd.Flags().StringVar(&trajectorySink, "sink", sim.SinkSQLite, "Trajectory sink (sqlite, jsonl-zstd)")
	runCmd.Flags().StringVar(&outputDir, "output-dir", ".", "Directory for jsonl-zstd trajectories")
	runCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")

	rootCmd.AddCommand(runCmd)
}
