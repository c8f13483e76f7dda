package main

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nvandessel/contagion/internal/contagion"
	"github.com/nvandessel/contagion/internal/simulation"
	"github.com/nvandessel/contagion/internal/store"
)

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage stored runs",
		Long: `List, inspect, export and delete the runs kept in the run store.

Examples:
  contagion runs list --network-type movie
  contagion runs show 6f1c...
  contagion runs export 6f1c... -o results/ --out-format arrow
  contagion runs delete 6f1c...`,
	}
	cmd.AddCommand(
		newRunsListCmd(a),
		newRunsShowCmd(a),
		newRunsExportCmd(a),
		newRunsDeleteCmd(a),
	)
	return cmd
}

// withStore opens the configured run store for the duration of fn.
func (a *app) withStore(fn func(st store.RunStore) error) error {
	cfg, err := a.settings()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func newRunsListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			networkType, _ := cmd.Flags().GetString("network-type")
			engine, _ := cmd.Flags().GetString("engine")
			limit, _ := cmd.Flags().GetInt("limit")

			return a.withStore(func(st store.RunStore) error {
				runs, err := st.ListRuns(cmd.Context(), store.RunFilter{
					NetworkType: networkType,
					Engine:      contagion.Kind(engine),
					Limit:       limit,
				})
				if err != nil {
					return err
				}
				if a.jsonOut() {
					return printJSON(cmd.OutOrStdout(), map[string]any{"runs": runs, "count": len(runs)})
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs stored.")
					return nil
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"ID", "Network", "Engine", "p", "d", "t", "Replicates", "Axis", "Created"})
				for _, r := range runs {
					tw.AppendRow(table.Row{
						r.ID, r.NetworkType, r.Engine,
						r.Params.Probability, r.Params.Dose, r.Params.Threshold,
						r.Replicates, r.Axis, r.CreatedAt.Local().Format(time.DateTime),
					})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().String("network-type", "", "Only runs of this network type")
	cmd.Flags().String("engine", "", "Only runs of this engine")
	cmd.Flags().Int("limit", 0, "Maximum number of runs (0 for all)")
	return cmd
}

func newRunsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored run and its adoption series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(st store.RunStore) error {
				run, err := st.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				tab, err := st.LoadTable(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				if a.jsonOut() {
					return printJSON(cmd.OutOrStdout(), map[string]any{"run": run, "file_name": run.FileName()})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run:        %s\n", run.ID)
				if run.Name != "" {
					fmt.Fprintf(out, "Name:       %s\n", run.Name)
				}
				fmt.Fprintf(out, "Engine:     %s %s\n", run.Engine, run.Params)
				fmt.Fprintf(out, "Replicates: %d (seed %d)\n", run.Replicates, run.Seed)
				fmt.Fprintf(out, "File name:  %s\n", run.FileName())
				fmt.Fprintf(out, "Created:    %s\n\n", run.CreatedAt.Local().Format(time.DateTime))
				renderSeries(out, tab)
				return nil
			})
		},
	}
}

func newRunsExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a stored run's table to a result file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("output")
			format, _ := cmd.Flags().GetString("out-format")
			if format != simulation.FormatJSON && format != simulation.FormatArrow {
				return fmt.Errorf("unknown output format %q", format)
			}

			return a.withStore(func(st store.RunStore) error {
				run, err := st.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				tab, err := st.LoadTable(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				res := &simulation.Result{
					Experiment: simulation.Experiment{
						NetworkType: run.NetworkType,
						Version:     run.Version,
						Engine:      contagion.Config{Kind: run.Engine, Params: run.Params},
					},
					Table: tab,
					RunID: run.ID,
				}
				path, err := res.WriteFile(dir, format)
				if err != nil {
					return err
				}
				if a.jsonOut() {
					return printJSON(cmd.OutOrStdout(), map[string]string{"run_id": run.ID, "path": path})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", run.ID, path)
				return nil
			})
		},
	}
	cmd.Flags().StringP("output", "o", ".", "Output directory")
	cmd.Flags().String("out-format", simulation.FormatJSON, "Result file format: json or arrow")
	return cmd
}

func newRunsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(st store.RunStore) error {
				if err := st.DeleteRun(cmd.Context(), args[0]); err != nil {
					return err
				}
				if a.jsonOut() {
					return printJSON(cmd.OutOrStdout(), map[string]string{"status": "deleted", "run_id": args[0]})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
				return nil
			})
		},
	}
}
