package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nvandessel/contagion/internal/logging"
	"github.com/nvandessel/contagion/internal/results"
	"github.com/nvandessel/contagion/internal/simulation"
	"github.com/nvandessel/contagion/internal/store"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate adoption over a record set",
		Long: `Build the collaboration network from records and replay it with one
propagation engine.

Every reconstruction reorders same-time events at random and runs the
configured number of replicates on it. The replicate histories are merged
into one table, written to the output directory and stored so the run can
be listed, exported or resumed from.

Examples:
  contagion run --records movies.json --seeds nm001,nm002 -p 0.2 -d 0.5 -t 0.5
  contagion run --records shifts.csv --engine temporal-full --partition year
  contagion run --records movies.json --resume 6f1c...  # carry beliefs forward`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.settings()
			if err != nil {
				return err
			}
			if err := applySettingFlags(cmd, cfg); err != nil {
				return err
			}
			in, err := loadInputs(cmd)
			if err != nil {
				return err
			}
			exp, err := simulation.FromConfig(cfg, in.records)
			if err != nil {
				return err
			}
			exp.Network.Seeds = in.seeds
			exp.Network.Beliefs = in.beliefs
			if name, _ := cmd.Flags().GetString("name"); name != "" {
				exp.Name = name
			}

			logger := a.logger(cfg, cmd.ErrOrStderr())
			trace := logging.NewTraceLogger(cfg.Output.Dir, cfg.Logging.Level)
			defer trace.Close()

			var st store.RunStore
			if noStore, _ := cmd.Flags().GetBool("no-store"); !noStore {
				sqlite, err := openStore(cfg)
				if err != nil {
					return err
				}
				defer sqlite.Close()
				st = sqlite
			}
			if resume, _ := cmd.Flags().GetString("resume"); resume != "" {
				if st == nil {
					return fmt.Errorf("--resume needs the run store")
				}
				if exp.Carried, err = simulation.Resume(cmd.Context(), st, resume); err != nil {
					return err
				}
			}

			res, err := simulation.NewRunner(logger, trace, st).Run(cmd.Context(), exp)
			if err != nil {
				return err
			}

			var path string
			if noWrite, _ := cmd.Flags().GetBool("no-write"); !noWrite {
				if path, err = res.WriteFile(cfg.Output.Dir, cfg.Output.Format); err != nil {
					return err
				}
			}

			if a.jsonOut() {
				return printJSON(cmd.OutOrStdout(), runReport(res, path))
			}
			out := cmd.OutOrStdout()
			renderSeries(out, res.Table)
			fmt.Fprintf(out, "\n%d replicates of %s %s\n", len(res.Replicates), exp.Engine.Kind, exp.Engine.Params)
			if res.RunID != "" {
				fmt.Fprintf(out, "Run:    %s\n", res.RunID)
			}
			if path != "" {
				fmt.Fprintf(out, "Output: %s\n", path)
			}
			return nil
		},
	}

	addModelFlags(cmd)
	f := cmd.Flags()
	f.Int("reconstructions", 0, "Networks built with same-time events reordered")
	f.Int("workers", 0, "Concurrent replicates (0 uses one per CPU)")
	f.String("partition", "", "Run in blocks of year or month, stitched in order")
	f.Int("interval", 0, "Partition units per block")
	f.Bool("reseed-blocks", false, "Draw fresh seeds in every block")
	f.String("result-version", "", "Version tag of the result file name")
	f.String("name", "", "Experiment name")
	f.String("resume", "", "Carry in the final beliefs of a stored run")
	f.StringP("output", "o", "", "Output directory")
	f.String("out-format", "", "Result file format: json or arrow")
	f.Bool("summary", false, "Add mean, median and percentile columns")
	f.Bool("no-store", false, "Do not save the run to the store")
	f.Bool("no-write", false, "Do not write the result file")

	return cmd
}

type runJSON struct {
	RunID       string    `json:"run_id,omitempty"`
	Path        string    `json:"path,omitempty"`
	Engine      string    `json:"engine"`
	P           float64   `json:"p"`
	D           float64   `json:"d"`
	T           float64   `json:"t"`
	Axis        string    `json:"axis"`
	Time        []int     `json:"time"`
	Mean        []float64 `json:"mean"`
	FinalCounts []int     `json:"final_counts"`
}

func runReport(res *simulation.Result, path string) runJSON {
	params := res.Experiment.Engine.Params
	r := runJSON{
		RunID:  res.RunID,
		Path:   path,
		Engine: string(res.Experiment.Engine.Kind),
		P:      params.Probability,
		D:      params.Dose,
		T:      params.Threshold,
		Axis:   string(res.Table.Axis()),
		Time:   res.Table.Index(),
	}
	for i := range res.Table.Len() {
		r.Mean = append(r.Mean, results.Mean(res.Table.Row(i)))
	}
	for _, rep := range res.Replicates {
		r.FinalCounts = append(r.FinalCounts, rep.History.Final())
	}
	return r
}

// renderSeries prints one row per time point with the replicate mean and
// range.
func renderSeries(w io.Writer, tab *results.Table) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	keyName := tab.Axis().KeyName()
	header := table.Row{tab.Axis().IndexName()}
	if keyName != "" {
		header = append(header, keyName)
	}
	tw.AppendHeader(append(header, "Mean", "Min", "Max"))

	keys := tab.Keys()
	for i, t := range tab.Index() {
		row := table.Row{t}
		if keyName != "" {
			row = append(row, keys[i])
		}
		values := tab.Row(i)
		if len(values) == 0 {
			tw.AppendRow(append(row, "", "", ""))
			continue
		}
		tw.AppendRow(append(row,
			fmt.Sprintf("%.2f", results.Mean(values)),
			slices.Min(values),
			slices.Max(values),
		))
	}
	tw.Render()
}
