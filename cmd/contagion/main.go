package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nvandessel/contagion/internal/config"
	"github.com/nvandessel/contagion/internal/constants"
	"github.com/nvandessel/contagion/internal/logging"
	"github.com/nvandessel/contagion/internal/network"
	"github.com/nvandessel/contagion/internal/records"
	"github.com/nvandessel/contagion/internal/store"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries the flag and environment bindings shared by all commands.
type app struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	a.v.SetEnvPrefix(constants.EnvPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:   "contagion",
		Short: "Adoption diffusion over temporal collaboration networks",
		Long: `contagion simulates how a practice spreads through a network of agents
who meet at dated events: movies and their producers, clinical shifts and
their staff.

Records are replayed in time order. At every event the engine exposes
co-participants to each other and tracks how many agents have adopted.
Runs are stored in ~/.contagion/runs.db so they can be listed, exported
or resumed from.`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Configuration file (default ./contagion.yaml)")
	pf.Bool("json", false, "Output as JSON (for agent consumption)")
	pf.String("log-level", "", "Log level: info, debug or trace")
	pf.String("store", "", "Run store database (default ~/.contagion/runs.db)")
	for _, name := range []string{"config", "json", "log-level", "store"} {
		_ = a.v.BindPFlag(name, pf.Lookup(name))
	}

	rootCmd.AddCommand(
		newVersionCmd(a),
		newRunCmd(a),
		newSweepCmd(a),
		newBackfillCmd(a),
		newGraphCmd(a),
		newRunsCmd(a),
		newConfigCmd(a),
		newMCPServerCmd(a),
	)
	return rootCmd
}

func (a *app) jsonOut() bool { return a.v.GetBool("json") }

// settings loads the configuration with the persistent flag overrides
// applied.
func (a *app) settings() (*config.Config, error) {
	cfg, err := config.Load(a.v.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level := a.v.GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if path := a.v.GetString("store"); path != "" {
		cfg.Store.Path = path
	}
	return cfg, nil
}

func (a *app) logger(cfg *config.Config, w io.Writer) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, w)
}

func openStore(cfg *config.Config) (*store.SQLiteRunStore, error) {
	path := cfg.Store.Path
	if path == "" {
		var err error
		if path, err = store.DefaultDBPath(); err != nil {
			return nil, err
		}
	}
	st, err := store.NewSQLiteRunStore(path)
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	return st, nil
}

// settingFlags maps command flags onto configuration keys.
var settingFlags = map[string]string{
	"engine":          "model.engine",
	"probability":     "model.p",
	"dose":            "model.d",
	"threshold":       "model.threshold",
	"belief-type":     "model.belief_type",
	"weight-type":     "model.weight_type",
	"weight-choice":   "model.weight_choice",
	"budget":          "model.interaction_budget",
	"time-limit":      "model.time_limit",
	"exposure":        "model.exposure",
	"axis":            "model.axis",
	"iterations":      "run.i",
	"reconstructions": "run.n",
	"seed":            "run.seed",
	"workers":         "run.workers",
	"partition":       "run.partition",
	"interval":        "run.interval",
	"reseed-blocks":   "run.reseed_blocks",
	"network-type":    "run.network_type",
	"result-version":  "run.version",
	"output":          "output.dir",
	"out-format":      "output.format",
	"summary":         "output.summary",
}

// applySettingFlags copies every changed setting flag of cmd into cfg and
// validates the result.
func applySettingFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	cmd.Flags().Visit(func(f *pflag.Flag) {
		key, ok := settingFlags[f.Name]
		if !ok || err != nil {
			return
		}
		if serr := cfg.Set(key, f.Value.String()); serr != nil {
			err = fmt.Errorf("--%s: %w", f.Name, serr)
		}
	})
	if err != nil {
		return err
	}
	return cfg.Validate()
}

// addModelFlags registers the model and replicate flags shared by run,
// sweep and graph.
func addModelFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("records", "", "Movie JSON or shift CSV records (required)")
	f.String("format", "", "Record format: movies or shifts (default from extension)")
	f.String("engine", "", "Engine: temporal-pairwise, sequential-walk, synchronous or temporal-full")
	f.Float64P("probability", "p", 0, "Transmission probability")
	f.Float64P("dose", "d", 0, "Belief dose of a successful exposure")
	f.Float64P("threshold", "t", 0, "Adoption threshold")
	f.String("belief-type", "", "Initial beliefs: empirical, empirical-random or apriori")
	f.String("weight-type", "", "Link weighting: none, shifts or days")
	f.String("weight-choice", "", "Partner choice: none, neighbor or influence")
	f.Int("budget", 0, "Interaction budget per event or walk length")
	f.Int("time-limit", 0, "Tick limit of the synchronous engine")
	f.String("exposure", "", "Exposure unit of the full engine: day or event")
	f.String("axis", "", "Time axis: auto, order or day")
	f.Int("iterations", 0, "Replicates per reconstruction")
	f.Uint64("seed", 0, "Random seed")
	f.String("network-type", "", "Network type used in result file names")
	f.StringSlice("seeds", nil, "Initial adopter ids")
	f.String("seeds-file", "", "File of initial adopter ids, one per line")
	f.String("beliefs", "", "A-priori belief file (id,belief per line)")
	_ = cmd.MarkFlagRequired("records")
}

// inputs are the records, seeds and beliefs named by a command's flags.
type inputs struct {
	records []network.Record
	seeds   []string
	beliefs map[string]float64
}

func loadInputs(cmd *cobra.Command) (*inputs, error) {
	path, _ := cmd.Flags().GetString("records")
	format, _ := cmd.Flags().GetString("format")
	recs, err := records.Load(path, records.Format(format))
	if err != nil {
		return nil, err
	}
	in := &inputs{records: recs}

	in.seeds, _ = cmd.Flags().GetStringSlice("seeds")
	if file, _ := cmd.Flags().GetString("seeds-file"); file != "" {
		more, err := records.LoadSeeds(file)
		if err != nil {
			return nil, err
		}
		in.seeds = append(in.seeds, more...)
	}
	if file, _ := cmd.Flags().GetString("beliefs"); file != "" {
		if in.beliefs, err = records.LoadBeliefs(file); err != nil {
			return nil, err
		}
	}
	return in, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
