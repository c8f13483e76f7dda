package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nvandessel/contagion/internal/history"
)

func newBackfillCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill [file]",
		Short: "Densify a sparse (time, count) series",
		Long: `Read a JSON array of {"time": t, "count": c} points, from a file or
stdin, and fill every missing integer time with the most recent count.

Example:
  echo '[{"time":0,"count":1},{"time":3,"count":2}]' | contagion backfill --end 5`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open series: %w", err)
				}
				defer f.Close()
				r = f
			}

			var points []history.Point
			if err := json.NewDecoder(r).Decode(&points); err != nil {
				return fmt.Errorf("decode series: %w", err)
			}
			var opts []history.Option
			if cmd.Flags().Changed("end") {
				end, _ := cmd.Flags().GetInt("end")
				opts = append(opts, history.WithEnd(end))
			}
			dense, err := history.Backfill(points, opts...)
			if err != nil {
				return err
			}

			if a.jsonOut() {
				return printJSON(cmd.OutOrStdout(), dense)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"Time", "Count"})
			for _, p := range dense {
				tw.AppendRow(table.Row{p.Time, p.Count})
			}
			tw.Render()
			return nil
		},
	}

	cmd.Flags().Int("end", 0, "Extend the series with its last count through this time")
	return cmd
}
