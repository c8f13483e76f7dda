// Package config provides unified configuration loading for contagion.
// It supports loading from YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/contagion/internal/constants"
	"github.com/nvandessel/contagion/internal/contagion"
	"github.com/nvandessel/contagion/internal/network"
)

// ErrUnknownKey is returned by Get and Set for a key that names no setting.
var ErrUnknownKey = errors.New("config: unknown key")

// Config contains all contagion configuration settings.
type Config struct {
	// Model holds the contagion parameters and engine selection.
	Model ModelConfig `json:"model" yaml:"model"`

	// Run controls replicates, reconstructions and partitioning.
	Run RunConfig `json:"run" yaml:"run"`

	// Output controls where and how result tables are written.
	Output OutputConfig `json:"output" yaml:"output"`

	// Store locates the run database.
	Store StoreConfig `json:"store" yaml:"store"`

	// Logging contains settings for operational and trace logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// ModelConfig configures one propagation model.
type ModelConfig struct {
	Probability float64 `json:"p" yaml:"p"`
	Dose        float64 `json:"d" yaml:"d"`
	// Threshold is also accepted under the keys "t" and "b".
	Threshold float64 `json:"threshold" yaml:"threshold"`

	BeliefType   string `json:"belief_type" yaml:"belief_type"`
	Engine       string `json:"engine" yaml:"engine"`
	WeightType   string `json:"weight_type" yaml:"weight_type"`
	WeightChoice string `json:"weight_choice" yaml:"weight_choice"`

	// InteractionBudget is the per-event exchange count of the pairwise
	// engine. Zero keeps the default.
	InteractionBudget int    `json:"interaction_budget" yaml:"interaction_budget"`
	TimeLimit         int    `json:"time_limit,omitempty" yaml:"time_limit,omitempty"`
	Exposure          string `json:"exposure" yaml:"exposure"`
	WeekendTeam       string `json:"weekend_team" yaml:"weekend_team"`
	Axis              string `json:"axis" yaml:"axis"`
}

// UnmarshalYAML accepts "t" and "b" as aliases for threshold.
func (m *ModelConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain ModelConfig
	aux := struct {
		plain `yaml:",inline"`
		T     *float64 `yaml:"t"`
		B     *float64 `yaml:"b"`
	}{plain: plain(*m)}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	*m = ModelConfig(aux.plain)
	switch {
	case aux.T != nil:
		m.Threshold = *aux.T
	case aux.B != nil:
		m.Threshold = *aux.B
	}
	return nil
}

// RunConfig configures replicates and network reconstruction.
type RunConfig struct {
	// Iterations is the number of replicates per reconstruction.
	Iterations int `json:"i" yaml:"i"`
	// Reconstructions is the number of networks built with same-time
	// events reordered at random.
	Reconstructions int    `json:"n" yaml:"n"`
	Seed            uint64 `json:"seed" yaml:"seed"`
	// Workers bounds parameter sweeps; 0 uses one per CPU.
	Workers int `json:"workers" yaml:"workers"`

	// Partition splits the records into blocks stitched in order: "" runs
	// the whole network at once, "year" or "month" partition by date.
	Partition string `json:"partition,omitempty" yaml:"partition,omitempty"`
	Interval  int    `json:"interval,omitempty" yaml:"interval,omitempty"`
	// ReseedBlocks draws fresh seeds in every block.
	ReseedBlocks bool `json:"reseed_blocks,omitempty" yaml:"reseed_blocks,omitempty"`

	NetworkType string `json:"network_type" yaml:"network_type"`
	Version     string `json:"version" yaml:"version"`
}

// OutputConfig configures result writing.
type OutputConfig struct {
	Dir string `json:"dir" yaml:"dir"`
	// Format is "json" or "arrow".
	Format  string `json:"format" yaml:"format"`
	Summary bool   `json:"summary" yaml:"summary"`
}

// StoreConfig locates the run database. An empty path uses the global
// ~/.contagion/runs.db.
type StoreConfig struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// LoggingConfig configures contagion's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables trace logging to trace.jsonl in the output directory.
	Level string `json:"level" yaml:"level"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Probability:       constants.DefaultProbability,
			Dose:              constants.DefaultDose,
			Threshold:         constants.DefaultThreshold,
			BeliefType:        string(network.BeliefEmpirical),
			Engine:            string(contagion.KindPairwise),
			WeightType:        string(network.WeightNone),
			WeightChoice:      string(contagion.ChoiceNone),
			InteractionBudget: contagion.DefaultInteractionBudget,
			Exposure:          string(contagion.ExposureDay),
			WeekendTeam:       contagion.DefaultWeekendTeam,
			Axis:              string(contagion.AxisAuto),
		},
		Run: RunConfig{
			Iterations:      constants.DefaultIterations,
			Reconstructions: 1,
			Seed:            1,
			Interval:        1,
			NetworkType:     "movie",
			Version:         "1",
		},
		Output: OutputConfig{
			Dir:    ".",
			Format: "json",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// GlobalPath returns ~/.contagion/config.yaml.
func GlobalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, constants.DirName, constants.ConfigFileName), nil
}

// PathFor returns the configuration file written for scope.
func PathFor(scope constants.Scope) (string, error) {
	switch scope {
	case constants.ScopeGlobal:
		return GlobalPath()
	case constants.ScopeLocal:
		return constants.LocalConfigFileName, nil
	}
	return "", fmt.Errorf("invalid scope: %s (valid: local, global)", scope)
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.contagion/config.yaml -> path (or ./contagion.yaml
// when path is empty) -> CONTAGION_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if global, err := GlobalPath(); err == nil {
		if err := mergeFile(cfg, global, false); err != nil {
			return nil, err
		}
	}

	required := path != ""
	if path == "" {
		path = constants.LocalConfigFileName
	}
	if err := mergeFile(cfg, path, required); err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a specific YAML file over the
// defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	if err := mergeFile(cfg, path, true); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string, required bool) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// Save writes the configuration as YAML to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if _, err := c.EngineConfig(); err != nil {
		return err
	}
	if _, err := network.ParseBeliefType(c.Model.BeliefType); err != nil {
		return err
	}
	if c.Run.Iterations < 1 {
		return fmt.Errorf("iterations must be at least 1, got %d", c.Run.Iterations)
	}
	if c.Run.Reconstructions < 1 {
		return fmt.Errorf("reconstructions must be at least 1, got %d", c.Run.Reconstructions)
	}
	if c.Run.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Run.Workers)
	}
	if _, err := c.PartitionOptions(); err != nil {
		return err
	}
	if c.Run.NetworkType == "" {
		return fmt.Errorf("network_type must be set")
	}
	if c.Output.Format != "json" && c.Output.Format != "arrow" {
		return fmt.Errorf("invalid output format: %s (valid: json, arrow)", c.Output.Format)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}
	return nil
}

// Params returns the model's parameter tuple.
func (c *Config) Params() contagion.Params {
	return contagion.Params{
		Probability: c.Model.Probability,
		Dose:        c.Model.Dose,
		Threshold:   c.Model.Threshold,
	}
}

// EngineConfig converts the model section into a validated engine
// configuration.
func (c *Config) EngineConfig() (contagion.Config, error) {
	kind, err := contagion.ParseKind(c.Model.Engine)
	if err != nil {
		return contagion.Config{}, err
	}
	wt, err := network.ParseWeightType(c.Model.WeightType)
	if err != nil {
		return contagion.Config{}, err
	}
	ec := contagion.DefaultConfig(kind, c.Params())
	ec.WeightType = wt
	ec.WeightChoice = contagion.WeightChoice(c.Model.WeightChoice)
	ec.Exposure = contagion.Exposure(c.Model.Exposure)
	ec.Axis = contagion.AxisMode(c.Model.Axis)
	ec.WeekendTeam = c.Model.WeekendTeam
	ec.TimeLimit = c.Model.TimeLimit
	if c.Model.InteractionBudget != 0 {
		ec.InteractionBudget = c.Model.InteractionBudget
	}
	if err := ec.Validate(); err != nil {
		return contagion.Config{}, err
	}
	return ec, nil
}

// NetworkOptions returns the builder options of the model section; seeds,
// beliefs and the rng are left to the caller.
func (c *Config) NetworkOptions() (network.Options, error) {
	bt, err := network.ParseBeliefType(c.Model.BeliefType)
	if err != nil {
		return network.Options{}, err
	}
	return network.Options{BeliefType: bt, Threshold: c.Model.Threshold}, nil
}

// PartitionOptions returns the block partitioning. A zero Unit means the
// run is not partitioned.
func (c *Config) PartitionOptions() (network.PartitionOptions, error) {
	switch network.PartitionUnit(c.Run.Partition) {
	case "":
		return network.PartitionOptions{}, nil
	case network.PartitionYear, network.PartitionMonth:
	default:
		return network.PartitionOptions{}, fmt.Errorf("invalid partition: %s (valid: year, month, or empty)", c.Run.Partition)
	}
	if c.Run.Interval < 1 {
		return network.PartitionOptions{}, fmt.Errorf("interval must be at least 1, got %d", c.Run.Interval)
	}
	return network.PartitionOptions{Unit: network.PartitionUnit(c.Run.Partition), Interval: c.Run.Interval}, nil
}

// field is one dot-addressable setting.
type field struct {
	key string
	get func(*Config) any
	set func(*Config, string) error
}

func stringField(key string, p func(*Config) *string) field {
	return field{
		key: key,
		get: func(c *Config) any { return *p(c) },
		set: func(c *Config, v string) error { *p(c) = v; return nil },
	}
}

func floatField(key string, p func(*Config) *float64) field {
	return field{
		key: key,
		get: func(c *Config) any { return *p(c) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid number for %s: %s", key, v)
			}
			*p(c) = f
			return nil
		},
	}
}

func intField(key string, p func(*Config) *int) field {
	return field{
		key: key,
		get: func(c *Config) any { return *p(c) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid integer for %s: %s", key, v)
			}
			*p(c) = n
			return nil
		},
	}
}

func boolField(key string, p func(*Config) *bool) field {
	return field{
		key: key,
		get: func(c *Config) any { return *p(c) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid boolean for %s: %s", key, v)
			}
			*p(c) = b
			return nil
		},
	}
}

var fields = []field{
	floatField("model.p", func(c *Config) *float64 { return &c.Model.Probability }),
	floatField("model.d", func(c *Config) *float64 { return &c.Model.Dose }),
	floatField("model.threshold", func(c *Config) *float64 { return &c.Model.Threshold }),
	stringField("model.belief_type", func(c *Config) *string { return &c.Model.BeliefType }),
	stringField("model.engine", func(c *Config) *string { return &c.Model.Engine }),
	stringField("model.weight_type", func(c *Config) *string { return &c.Model.WeightType }),
	stringField("model.weight_choice", func(c *Config) *string { return &c.Model.WeightChoice }),
	intField("model.interaction_budget", func(c *Config) *int { return &c.Model.InteractionBudget }),
	intField("model.time_limit", func(c *Config) *int { return &c.Model.TimeLimit }),
	stringField("model.exposure", func(c *Config) *string { return &c.Model.Exposure }),
	stringField("model.weekend_team", func(c *Config) *string { return &c.Model.WeekendTeam }),
	stringField("model.axis", func(c *Config) *string { return &c.Model.Axis }),
	intField("run.i", func(c *Config) *int { return &c.Run.Iterations }),
	intField("run.n", func(c *Config) *int { return &c.Run.Reconstructions }),
	{
		key: "run.seed",
		get: func(c *Config) any { return c.Run.Seed },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid seed: %s", v)
			}
			c.Run.Seed = n
			return nil
		},
	},
	intField("run.workers", func(c *Config) *int { return &c.Run.Workers }),
	stringField("run.partition", func(c *Config) *string { return &c.Run.Partition }),
	intField("run.interval", func(c *Config) *int { return &c.Run.Interval }),
	boolField("run.reseed_blocks", func(c *Config) *bool { return &c.Run.ReseedBlocks }),
	stringField("run.network_type", func(c *Config) *string { return &c.Run.NetworkType }),
	stringField("run.version", func(c *Config) *string { return &c.Run.Version }),
	stringField("output.dir", func(c *Config) *string { return &c.Output.Dir }),
	stringField("output.format", func(c *Config) *string { return &c.Output.Format }),
	boolField("output.summary", func(c *Config) *bool { return &c.Output.Summary }),
	stringField("store.path", func(c *Config) *string { return &c.Store.Path }),
	stringField("logging.level", func(c *Config) *string { return &c.Logging.Level }),
}

// aliases maps alternative keys onto their canonical setting.
var aliases = map[string]string{
	"model.t": "model.threshold",
	"model.b": "model.threshold",
}

func lookup(key string) (field, bool) {
	if canonical, ok := aliases[key]; ok {
		key = canonical
	}
	i := slices.IndexFunc(fields, func(f field) bool { return f.key == key })
	if i < 0 {
		return field{}, false
	}
	return fields[i], true
}

// Keys lists every settable key in display order.
func Keys() []string {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.key
	}
	return keys
}

// Get retrieves a configuration value by dot-notation key.
func (c *Config) Get(key string) (any, bool) {
	f, ok := lookup(key)
	if !ok {
		return nil, false
	}
	return f.get(c), true
}

// Set sets a configuration value by dot-notation key. The result is not
// validated; call Validate before use.
func (c *Config) Set(key, value string) error {
	f, ok := lookup(key)
	if !ok {
		return fmt.Errorf("%s: %w", key, ErrUnknownKey)
	}
	return f.set(c, value)
}

// EnvName returns the environment variable overriding key, for example
// CONTAGION_MODEL_P for model.p.
func EnvName(key string) string {
	return constants.EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config, lookupEnv func(string) (string, bool)) error {
	for _, f := range fields {
		v, ok := lookupEnv(EnvName(f.key))
		if !ok || v == "" {
			continue
		}
		if err := f.set(cfg, v); err != nil {
			return fmt.Errorf("%s: %w", EnvName(f.key), err)
		}
	}
	return nil
}
