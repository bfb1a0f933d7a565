package sim

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// LatticeParameters configures network construction for one model.
// Box extents are in the same length unit as LatticeConstant.
type LatticeParameters struct {
	LatticeConstant     float64
	BoxXHi              float64
	BoxYHi              float64
	BoxZHi              float64
	Temperature         float64 // K
	ElectrodePotential  float64 // V
	AddSites            bool    // grow the lattice above newly occupied top sites
	ChargeTransferStyle ChargeTransferStyle
}

// Validate checks ranges and the charge-transfer theory selector.
func (p LatticeParameters) Validate() error {
	if !p.ChargeTransferStyle.Valid() {
		return fmt.Errorf("%w: %v", ErrUnknownChargeTransferStyle, p.ChargeTransferStyle)
	}
	if !(p.LatticeConstant > 0) {
		return fmt.Errorf("lattice constant must be positive, got %v", p.LatticeConstant)
	}
	if !(p.Temperature > 0) {
		return fmt.Errorf("temperature must be positive, got %v", p.Temperature)
	}
	if math.IsNaN(p.ElectrodePotential) || math.IsInf(p.ElectrodePotential, 0) {
		return fmt.Errorf("electrode potential must be finite, got %v", p.ElectrodePotential)
	}
	for _, d := range []struct {
		name string
		v    float64
	}{{"x", p.BoxXHi}, {"y", p.BoxYHi}, {"z", p.BoxZHi}} {
		if d.v < 0 || math.IsNaN(d.v) {
			return fmt.Errorf("box %s extent must be non-negative, got %v", d.name, d.v)
		}
	}
	return nil
}

// Dimensions returns the number of sites along each axis of the initial box.
func (p LatticeParameters) Dimensions() (nx, ny, nz int) {
	cells := func(hi float64) int { return int(math.Round(hi / p.LatticeConstant)) }
	return cells(p.BoxXHi), cells(p.BoxYHi), cells(p.BoxZHi)
}

// LatticeConfig is the YAML form of LatticeParameters.
type LatticeConfig struct {
	LatticeConstant     float64 `yaml:"lattice_constant" env:"LATTICE_CONSTANT"`
	BoxXHi              float64 `yaml:"box_x_hi" env:"BOX_X_HI"`
	BoxYHi              float64 `yaml:"box_y_hi" env:"BOX_Y_HI"`
	BoxZHi              float64 `yaml:"box_z_hi" env:"BOX_Z_HI"`
	Temperature         float64 `yaml:"temperature" env:"TEMPERATURE"`
	ElectrodePotential  float64 `yaml:"electrode_potential" env:"ELECTRODE_POTENTIAL"`
	AddSites            bool    `yaml:"add_sites" env:"ADD_SITES"`
	ChargeTransferStyle string  `yaml:"charge_transfer_style" env:"CHARGE_TRANSFER_STYLE"`
}

// Parameters converts the YAML form, resolving the charge-transfer style.
func (c LatticeConfig) Parameters() (LatticeParameters, error) {
	style, err := ParseChargeTransferStyle(c.ChargeTransferStyle)
	if err != nil {
		return LatticeParameters{}, err
	}
	p := LatticeParameters{
		LatticeConstant:     c.LatticeConstant,
		BoxXHi:              c.BoxXHi,
		BoxYHi:              c.BoxYHi,
		BoxZHi:              c.BoxZHi,
		Temperature:         c.Temperature,
		ElectrodePotential:  c.ElectrodePotential,
		AddSites:            c.AddSites,
		ChargeTransferStyle: style,
	}
	return p, p.Validate()
}

// Trajectory sink names.
const (
	SinkSQLite    = "sqlite"
	SinkJSONLZstd = "jsonl-zstd"
)

// ValidTrajectorySinks is the set of recognized trajectory sinks.
var ValidTrajectorySinks = map[string]bool{"": true, SinkSQLite: true, SinkJSONLZstd: true}

// RunConfig is the full configuration of a dispatch run, loadable from YAML.
// Zero cutoffs mean "no limit".
type RunConfig struct {
	ModelDatabase       string        `yaml:"model_database" env:"MODEL_DATABASE"`
	StateDatabase       string        `yaml:"state_database" env:"STATE_DATABASE"`
	BaseSeed            int64         `yaml:"base_seed" env:"BASE_SEED"`
	NumberOfSimulations int           `yaml:"number_of_simulations" env:"NUMBER_OF_SIMULATIONS"`
	Threads             int           `yaml:"threads" env:"THREADS"`
	StepCutoff          int           `yaml:"step_cutoff" env:"STEP_CUTOFF"`
	TimeCutoff          float64       `yaml:"time_cutoff" env:"TIME_CUTOFF"`
	HistoryChunkSize    int           `yaml:"history_chunk_size" env:"HISTORY_CHUNK_SIZE"`
	CheckpointInterval  int           `yaml:"checkpoint_interval" env:"CHECKPOINT_INTERVAL"`
	QueueCapacity       int           `yaml:"queue_capacity" env:"QUEUE_CAPACITY"`
	TrajectorySink      string        `yaml:"trajectory_sink" env:"TRAJECTORY_SINK"`
	OutputDir           string        `yaml:"output_dir" env:"OUTPUT_DIR"`
	MetricsFile         string        `yaml:"metrics_file" env:"METRICS_FILE"`
	Lattice             LatticeConfig `yaml:"lattice" envPrefix:"LATTICE_"`
}

// DefaultRunConfig returns the values used for anything the file leaves unset.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		BaseSeed:            1000,
		NumberOfSimulations: 1,
		Threads:             1,
		HistoryChunkSize:    1000,
		CheckpointInterval:  10000,
		QueueCapacity:       64,
		TrajectorySink:      SinkSQLite,
		OutputDir:           ".",
		Lattice: LatticeConfig{
			LatticeConstant:     1,
			Temperature:         300,
			ChargeTransferStyle: "butler_volmer",
		},
	}
}

// Validate checks ranges and enum names.
func (c *RunConfig) Validate() error {
	if c.ModelDatabase == "" {
		return fmt.Errorf("model_database must be set")
	}
	if c.StateDatabase == "" {
		return fmt.Errorf("state_database must be set")
	}
	if c.NumberOfSimulations <= 0 {
		return fmt.Errorf("number_of_simulations must be positive, got %d", c.NumberOfSimulations)
	}
	if c.Threads <= 0 {
		return fmt.Errorf("threads must be positive, got %d", c.Threads)
	}
	if c.StepCutoff < 0 {
		return fmt.Errorf("step_cutoff must be non-negative, got %d", c.StepCutoff)
	}
	if c.TimeCutoff < 0 || math.IsNaN(c.TimeCutoff) {
		return fmt.Errorf("time_cutoff must be non-negative, got %v", c.TimeCutoff)
	}
	if c.StepCutoff == 0 && c.TimeCutoff == 0 {
		return fmt.Errorf("at least one of step_cutoff and time_cutoff must be set")
	}
	if c.HistoryChunkSize <= 0 {
		return fmt.Errorf("history_chunk_size must be positive, got %d", c.HistoryChunkSize)
	}
	if c.CheckpointInterval < 0 {
		return fmt.Errorf("checkpoint_interval must be non-negative, got %d", c.CheckpointInterval)
	}
	if c.QueueCapacity < 0 {
		return fmt.Errorf("queue_capacity must be non-negative, got %d", c.QueueCapacity)
	}
	if !ValidTrajectorySinks[c.TrajectorySink] {
		return fmt.Errorf("unknown trajectory sink %q", c.TrajectorySink)
	}
	_, err := c.Lattice.Parameters()
	return err
}

const runConfigSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "model_database": {"type": "string"},
    "state_database": {"type": "string"},
    "base_seed": {"type": "integer"},
    "number_of_simulations": {"type": "integer", "minimum": 1},
    "threads": {"type": "integer", "minimum": 1},
    "step_cutoff": {"type": "integer", "minimum": 0},
    "time_cutoff": {"type": "number", "minimum": 0},
    "history_chunk_size": {"type": "integer", "minimum": 1},
    "checkpoint_interval": {"type": "integer", "minimum": 0},
    "queue_capacity": {"type": "integer", "minimum": 0},
    "trajectory_sink": {"enum": ["sqlite", "jsonl-zstd"]},
    "output_dir": {"type": "string"},
    "metrics_file": {"type": "string"},
    "lattice": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "lattice_constant": {"type": "number", "exclusiveMinimum": 0},
        "box_x_hi": {"type": "number", "minimum": 0},
        "box_y_hi": {"type": "number", "minimum": 0},
        "box_z_hi": {"type": "number", "minimum": 0},
        "temperature": {"type": "number", "exclusiveMinimum": 0},
        "electrode_potential": {"type": "number"},
        "add_sites": {"type": "boolean"},
        "charge_transfer_style": {"enum": ["butler_volmer", "marcus"]}
      }
    }
  }
}`

var compiledRunConfigSchema = jsonschema.MustCompileString("run_config.json", runConfigSchema)

// ValidateRunConfigDocument checks a raw YAML document against the run
// configuration schema, so typos in keys are reported instead of ignored.
func ValidateRunConfigDocument(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing run config: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("converting run config: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("converting run config: %w", err)
	}
	if err := compiledRunConfigSchema.Validate(v); err != nil {
		return fmt.Errorf("run config: %w", err)
	}
	return nil
}

// LoadRunConfig reads, schema-checks and parses a YAML run configuration on
// top of DefaultRunConfig. It does not call Validate, so callers can apply
// overrides first.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run config: %w", err)
	}
	if err := ValidateRunConfigDocument(data); err != nil {
		return nil, err
	}
	cfg := DefaultRunConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing run config: %w", err)
	}
	return &cfg, nil
}
