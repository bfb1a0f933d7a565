package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-sim/lattice-sim/sim"
	"github.com/lattice-sim/lattice-sim/sim/store"
)

const dimerDocument = `species:
  - {id: 0, name: A, phase: solution}
  - {id: 1, name: B, phase: solution}
reactions:
  - {id: 0, type: homogeneous, reactants: [0, 0], products: [1], rate: 0.01}
  - {id: 1, type: homogeneous, reactants: [1], products: [0, 0], rate: 0.5}
initial_state:
  - {species_id: 0, count: 100}
  - {species_id: 1, count: 0}
`

const surfaceDocument = `species:
  - {id: 0, name: "CO*", phase: lattice}
  - {id: 1, name: "CO(g)", phase: solution}
  - {id: 2, name: "CO2(g)", phase: solution}
reactions:
  - {id: 0, type: adsorption, reactants: [1], site_reactants: [-1], site_products: [0], rate: 0.001}
  - {id: 1, type: desorption, products: [1], site_reactants: [0], site_products: [-1], rate: 0.1}
  - id: 2
    type: charge_transfer
    products: [2]
    site_reactants: [0]
    site_products: [-1]
    charge_transfer:
      prefactor: 0.5
      transfer_coefficient: 0.5
      electrons: 2
      equilibrium_potential: -0.1
      reorganization_energy: 1.0
      direction: oxidation
initial_state:
  - {species_id: 0, count: 2}
  - {species_id: 1, count: 500}
  - {species_id: 2, count: 0}
initial_sites:
  - {site_id: 5, species_id: 0}
factors: {factor_zero: 1, factor_two: 1, factor_duplicate: 0.5}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// resetRunFlags restores every run flag to its default and clears Changed,
// since the command and its flag variables are package globals.
func resetRunFlags(t *testing.T) {
	t.Helper()
	runCmd.Flags().VisitAll(func(f *pflag.Flag) {
		require.NoError(t, f.Value.Set(f.DefValue))
		f.Changed = false
	})
}

func TestResolveRunConfig_LayersFileEnvAndFlags(t *testing.T) {
	resetRunFlags(t)
	t.Cleanup(func() { resetRunFlags(t) })
	dir := t.TempDir()

	// GIVEN a config file, an env override and an explicit flag
	path := writeFile(t, dir, "run.yaml", `model_database: model.sqlite
state_database: state.sqlite
number_of_simulations: 4
threads: 2
step_cutoff: 100
lattice:
  temperature: 350
`)
	t.Setenv("LATTICE_SIM_THREADS", "6")
	t.Setenv("LATTICE_SIM_STEP_CUTOFF", "200")
	require.NoError(t, runCmd.Flags().Set("config", path))
	require.NoError(t, runCmd.Flags().Set("step-cutoff", "300"))

	// WHEN resolved
	cfg, err := resolveRunConfig(runCmd)
	require.NoError(t, err)

	// THEN file < env < flag, and untouched defaults survive
	assert.Equal(t, 4, cfg.NumberOfSimulations)
	assert.Equal(t, 6, cfg.Threads)
	assert.Equal(t, 300, cfg.StepCutoff)
	assert.Equal(t, 350.0, cfg.Lattice.Temperature)
	assert.Equal(t, int64(1000), cfg.BaseSeed)
	assert.Equal(t, sim.SinkSQLite, cfg.TrajectorySink)
}

func TestResolveRunConfig_FlagsOnly(t *testing.T) {
	resetRunFlags(t)
	t.Cleanup(func() { resetRunFlags(t) })
	for flag, value := range map[string]string{
		"model-db":        "m.sqlite",
		"state-db":        "s.sqlite",
		"seed":            "7",
		"num-simulations": "3",
		"time-cutoff":     "2.5",
		"sink":            sim.SinkJSONLZstd,
	} {
		require.NoError(t, runCmd.Flags().Set(flag, value))
	}

	cfg, err := resolveRunConfig(runCmd)
	require.NoError(t, err)
	assert.Equal(t, "m.sqlite", cfg.ModelDatabase)
	assert.Equal(t, int64(7), cfg.BaseSeed)
	assert.Equal(t, 3, cfg.NumberOfSimulations)
	assert.Equal(t, 2.5, cfg.TimeCutoff)
	assert.Equal(t, sim.SinkJSONLZstd, cfg.TrajectorySink)
}

func TestResolveRunConfig_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		flags map[string]string
		env   map[string]string
	}{
		{"missing_databases", map[string]string{"step-cutoff": "10"}, nil},
		{"no_cutoff", map[string]string{"model-db": "m", "state-db": "s"}, nil},
		{"bad_env_value", map[string]string{"model-db": "m", "state-db": "s", "step-cutoff": "1"},
			map[string]string{"LATTICE_SIM_THREADS": "many"}},
		{"unknown_sink", map[string]string{"model-db": "m", "state-db": "s", "step-cutoff": "1", "sink": "csv"}, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resetRunFlags(t)
			t.Cleanup(func() { resetRunFlags(t) })
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			for k, v := range tc.flags {
				require.NoError(t, runCmd.Flags().Set(k, v))
			}
			_, err := resolveRunConfig(runCmd)
			assert.Error(t, err)
		})
	}
}

func TestImportThenRun_HomogeneousModel(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	doc := writeFile(t, dir, "model.yaml", dimerDocument)
	modelDB := filepath.Join(dir, "model.sqlite")
	stateDB := filepath.Join(dir, "state.sqlite")

	records, err := importModel(ctx, doc, modelDB, stateDB, "")
	require.NoError(t, err)
	assert.Len(t, records.Reactions, 2)

	cfg := sim.DefaultRunConfig()
	cfg.ModelDatabase = modelDB
	cfg.StateDatabase = stateDB
	cfg.NumberOfSimulations = 3
	cfg.Threads = 2
	cfg.StepCutoff = 40
	cfg.HistoryChunkSize = 16
	cfg.MetricsFile = filepath.Join(dir, "metrics.prom")
	require.NoError(t, cfg.Validate())

	var out bytes.Buffer
	require.NoError(t, runSimulation(ctx, &cfg, &out))
	assert.Contains(t, out.String(), "Replicas      : 3 (0 resumed)")
	assert.Contains(t, out.String(), "step_cutoff")
	assert.FileExists(t, cfg.MetricsFile)

	db, err := store.OpenStateDB(stateDB)
	require.NoError(t, err)
	defer db.Close()
	for seed := int64(1000); seed < 1003; seed++ {
		traj, err := db.ReadTrajectory(ctx, seed)
		require.NoError(t, err)
		assert.Len(t, traj, 40)
	}
}

func TestImportThenRun_LatticeModelWithZstdSink(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	doc := writeFile(t, dir, "model.yaml", surfaceDocument)
	runYAML := writeFile(t, dir, "run.yaml", `model_database: `+filepath.Join(dir, "model.sqlite")+`
state_database: `+filepath.Join(dir, "state.sqlite")+`
number_of_simulations: 2
step_cutoff: 25
trajectory_sink: jsonl-zstd
output_dir: `+filepath.Join(dir, "traj")+`
lattice:
  box_x_hi: 4
  box_y_hi: 4
  box_z_hi: 1
  electrode_potential: 0.2
`)

	_, err := importModel(ctx, doc, filepath.Join(dir, "model.sqlite"), filepath.Join(dir, "state.sqlite"), runYAML)
	require.NoError(t, err)

	cfg, err := sim.LoadRunConfig(runYAML)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	var out bytes.Buffer
	require.NoError(t, runSimulation(ctx, cfg, &out))
	assert.Contains(t, out.String(), "Max sites     : 16")
	assert.FileExists(t, filepath.Join(dir, "traj", "trajectory-1000.jsonl.zst"))
	assert.FileExists(t, filepath.Join(dir, "traj", "trajectory-1001.jsonl.zst"))

	// A second invocation finds every replica finished.
	out.Reset()
	require.NoError(t, runSimulation(ctx, cfg, &out))
	assert.Contains(t, out.String(), "Replicas      : 2")
}

func TestImportModel_CheckRejectsBrokenModel(t *testing.T) {
	dir := t.TempDir()
	// initial_sites names a site outside the 2x2x1 lattice
	doc := writeFile(t, dir, "model.yaml", surfaceDocument)
	runYAML := writeFile(t, dir, "run.yaml", `model_database: m
state_database: s
step_cutoff: 1
lattice: {box_x_hi: 2, box_y_hi: 2, box_z_hi: 1}
`)
	_, err := importModel(context.Background(), doc, filepath.Join(dir, "model.sqlite"), filepath.Join(dir, "state.sqlite"), runYAML)
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "model.sqlite"))
}

func TestLoadModelDocument_UnknownFieldRejected(t *testing.T) {
	path := writeFile(t, t.TempDir(), "model.yaml", dimerDocument+"extra_section: 1\n")
	_, err := LoadModelDocument(path)
	assert.Error(t, err)
}

func TestModelDocument_Records(t *testing.T) {
	path := writeFile(t, t.TempDir(), "model.yaml", surfaceDocument)
	doc, err := LoadModelDocument(path)
	require.NoError(t, err)

	records, err := doc.Records()
	require.NoError(t, err)
	require.Len(t, records.Reactions, 3)
	assert.Equal(t, 1, records.Reactions[0].NumberOfSites)
	assert.Equal(t, []int{sim.EmptySite}, records.Reactions[0].SiteReactants)
	ct := records.Reactions[2].ChargeTransfer
	require.NotNil(t, ct)
	assert.Equal(t, sim.Oxidation, ct.Direction)
	assert.Equal(t, 2, ct.Electrons)
	assert.Equal(t, 0.5, records.Factors.FactorDuplicate)
	assert.Equal(t, []sim.SiteOccupancyRecord{{SiteID: 5, SpeciesID: 0}}, records.InitialSites)
}

func TestModelDocument_Records_DefaultFactors(t *testing.T) {
	path := writeFile(t, t.TempDir(), "model.yaml", dimerDocument)
	doc, err := LoadModelDocument(path)
	require.NoError(t, err)
	records, err := doc.Records()
	require.NoError(t, err)
	assert.Equal(t, sim.DefaultFactors(), records.Factors)
}

func TestModelDocument_Records_BadDirection(t *testing.T) {
	doc := &ModelDocument{Reactions: []ReactionDocument{{
		ID: 0, Type: "charge_transfer", ChargeTransfer: &ChargeTransferDocument{Direction: "sideways"},
	}}}
	_, err := doc.Records()
	assert.Error(t, err)
}
