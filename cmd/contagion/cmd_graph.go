package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/contagion/internal/config"
	"github.com/nvandessel/contagion/internal/network"
	"github.com/nvandessel/contagion/internal/simulation"
	"github.com/nvandessel/contagion/internal/visualization"
)

func newGraphCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Export the collaboration network",
		Long: `Build the network from records and output it as DOT (Graphviz) or JSON.

The bipartite view draws events as boxes linked to their agents; the
projected view links agents who shared an event, weighted by the configured
weight type. Adopters after seeding are drawn in red.

With --serve the graph and the stored runs are served over HTTP instead.

Examples:
  contagion graph --records movies.json --seeds nm001 | dot -Tsvg > net.svg
  contagion graph --records shifts.csv --view projected --weight-type days --graph-format json
  contagion graph --records movies.json --serve --open`,
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

			viewName, _ := cmd.Flags().GetString("view")
			view, err := visualization.ParseView(viewName)
			if err != nil {
				return err
			}
			formatName, _ := cmd.Flags().GetString("graph-format")
			format, err := visualization.ParseFormat(formatName)
			if err != nil {
				return err
			}

			opts, err := cfg.NetworkOptions()
			if err != nil {
				return err
			}
			opts.Seeds = in.seeds
			opts.Beliefs = in.beliefs
			opts.Rand = simulation.ReplicateRand(cfg.Run.Seed, 0, 0)
			net, err := network.Build(in.records, opts)
			if err != nil {
				return err
			}
			wt := network.WeightType(cfg.Model.WeightType)

			if serve, _ := cmd.Flags().GetBool("serve"); serve {
				addr, _ := cmd.Flags().GetString("addr")
				open, _ := cmd.Flags().GetBool("open")
				return runGraphServer(cmd, cfg, net, wt, addr, open)
			}

			switch format {
			case visualization.FormatJSON:
				g, err := visualization.RenderJSON(net, view, wt)
				if err != nil {
					return fmt.Errorf("render JSON: %w", err)
				}
				return printJSON(cmd.OutOrStdout(), g)
			default:
				dot, err := visualization.RenderDOT(net, view, wt)
				if err != nil {
					return fmt.Errorf("render DOT: %w", err)
				}
				fmt.Fprint(cmd.OutOrStdout(), dot)
				return nil
			}
		},
	}

	addModelFlags(cmd)
	f := cmd.Flags()
	f.String("view", string(visualization.ViewBipartite), "Graph view: bipartite or projected")
	f.String("graph-format", string(visualization.FormatDOT), "Output format: dot or json")
	f.Bool("serve", false, "Serve the graph and stored runs over HTTP")
	f.String("addr", "", "Listen address of --serve (default a free localhost port)")
	f.Bool("open", false, "Open the served graph in a browser")

	return cmd
}

// runGraphServer serves net until interrupted.
func runGraphServer(cmd *cobra.Command, cfg *config.Config, net *network.Network, wt network.WeightType, addr string, open bool) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := visualization.NewServer(net, wt, st)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx, addr) }()

	deadline := time.Now().Add(3 * time.Second)
	for srv.Addr() == "" && time.Now().Before(deadline) {
		select {
		case err := <-errCh:
			return fmt.Errorf("server error: %w", err)
		case <-time.After(10 * time.Millisecond):
		}
	}
	if srv.Addr() == "" {
		return fmt.Errorf("server failed to start")
	}

	url := "http://" + srv.Addr()
	fmt.Fprintf(cmd.OutOrStdout(), "Graph server running at %s\n", url)
	fmt.Fprintf(cmd.OutOrStdout(), "Press Ctrl-C to stop.\n")
	if open {
		if err := visualization.OpenBrowser(ctx, url); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, url)
		}
	}

	if err := <-errCh; err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
