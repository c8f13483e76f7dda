package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nvandessel/contagion/internal/results"
	"github.com/nvandessel/contagion/internal/simulation"
	"github.com/nvandessel/contagion/internal/store"
)

func newSweepCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run a grid of (p, d, t) tuples over one record set",
		Long: `Run every combination of the listed probabilities, doses and thresholds.
An empty axis keeps the configured value. Tuples run concurrently, each on
its own networks with the same seed, and a failing tuple does not stop the
others.

Example:
  contagion sweep --records movies.json --ps 0.1,0.2,0.4 --ts 0.5,1`,
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

			var grid simulation.Grid
			grid.Probabilities, _ = cmd.Flags().GetFloat64Slice("ps")
			grid.Doses, _ = cmd.Flags().GetFloat64Slice("ds")
			grid.Thresholds, _ = cmd.Flags().GetFloat64Slice("ts")

			var st store.RunStore
			if noStore, _ := cmd.Flags().GetBool("no-store"); !noStore {
				sqlite, err := openStore(cfg)
				if err != nil {
					return err
				}
				defer sqlite.Close()
				st = sqlite
			}

			runner := simulation.NewRunner(a.logger(cfg, cmd.ErrOrStderr()), nil, st)
			sweep, err := runner.Sweep(cmd.Context(), exp, grid, cfg.Run.Workers)
			if err != nil {
				return err
			}

			rows := make([]sweepRow, len(sweep))
			failed := 0
			for i, sr := range sweep {
				rows[i] = sweepRow{P: sr.Params.Probability, D: sr.Params.Dose, T: sr.Params.Threshold}
				if sr.Err != nil {
					rows[i].Error = sr.Err.Error()
					failed++
					continue
				}
				rows[i].RunID = sr.Result.RunID
				if n := sr.Result.Table.Len(); n > 0 {
					rows[i].FinalMean = results.Mean(sr.Result.Table.Row(n - 1))
				}
			}

			if a.jsonOut() {
				return printJSON(cmd.OutOrStdout(), map[string]any{"tuples": rows, "failed": failed})
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"p", "d", "t", "Final mean", "Run", "Error"})
			for _, r := range rows {
				tw.AppendRow(table.Row{r.P, r.D, r.T, fmt.Sprintf("%.2f", r.FinalMean), r.RunID, r.Error})
			}
			tw.Render()
			if failed > 0 {
				return fmt.Errorf("%d of %d tuples failed", failed, len(rows))
			}
			return nil
		},
	}

	addModelFlags(cmd)
	f := cmd.Flags()
	f.Float64Slice("ps", nil, "Probabilities of the grid")
	f.Float64Slice("ds", nil, "Doses of the grid")
	f.Float64Slice("ts", nil, "Thresholds of the grid")
	f.Int("workers", 0, "Concurrent tuples (0 uses one per CPU)")
	f.Bool("no-store", false, "Do not save the tuple runs to the store")

	return cmd
}

type sweepRow struct {
	P         float64 `json:"p"`
	D         float64 `json:"d"`
	T         float64 `json:"t"`
	FinalMean float64 `json:"final_mean"`
	RunID     string  `json:"run_id,omitempty"`
	Error     string  `json:"error,omitempty"`
}
