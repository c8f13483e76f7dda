package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/contagion/internal/mcp"
)

func newMCPServerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve simulations to MCP clients over stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout.

Tools: contagion_run, contagion_sweep, contagion_backfill, contagion_runs
and contagion_filename. Stored run tables are readable as the resource
contagion://runs/{id}. Record and output paths must lie under --root or
~/.contagion.

Logs go to stderr; stdout carries the protocol.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.settings()
			if err != nil {
				return err
			}
			root, _ := cmd.Flags().GetString("root")
			noAudit, _ := cmd.Flags().GetBool("no-audit")
			auditDir := ""
			if noAudit {
				auditDir = "-"
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "contagion",
				Version:  version,
				Root:     root,
				Settings: cfg,
				AuditDir: auditDir,
				Logger:   a.logger(cfg, os.Stderr),
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			return server.Run(cmd.Context())
		},
	}
	cmd.Flags().String("root", ".", "Directory tool paths resolve against")
	cmd.Flags().Bool("no-audit", false, "Do not append tool calls to ~/.contagion/audit.jsonl")
	return cmd
}
