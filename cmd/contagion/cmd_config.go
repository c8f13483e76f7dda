package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/contagion/internal/config"
	"github.com/nvandessel/contagion/internal/constants"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage contagion configuration",
		Long: `View and modify contagion configuration settings.

Settings are read from ~/.contagion/config.yaml, then ./contagion.yaml (or
--config), then CONTAGION_<SECTION>_<KEY> environment variables.

Examples:
  contagion config list                         # Show all settings
  contagion config get model.p                  # Get a specific setting
  contagion config set model.engine synchronous # Set in ./contagion.yaml
  contagion config set run.i 100 --global       # Set in ~/.contagion/config.yaml`,
	}

	cmd.AddCommand(
		newConfigListCmd(a),
		newConfigGetCmd(a),
		newConfigSetCmd(a),
	)
	return cmd
}

func newConfigListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.settings()
			if err != nil {
				return err
			}
			if a.jsonOut() {
				return printJSON(cmd.OutOrStdout(), cfg)
			}
			if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
				out, err := dumpYAML(cfg)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
				return nil
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"Key", "Value", "Environment"})
			for _, key := range config.Keys() {
				v, _ := cfg.Get(key)
				tw.AppendRow(table.Row{key, v, config.EnvName(key)})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().Bool("yaml", false, "Print the effective configuration as YAML")
	return cmd
}

func newConfigGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.settings()
			if err != nil {
				return err
			}
			key := args[0]
			value, found := cfg.Get(key)
			if !found {
				return fmt.Errorf("%s: %w", key, config.ErrUnknownKey)
			}
			if a.jsonOut() {
				return printJSON(cmd.OutOrStdout(), map[string]any{"key": key, "value": value})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			return nil
		},
	}
}

func newConfigSetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			scope := constants.ScopeLocal
			if global, _ := cmd.Flags().GetBool("global"); global {
				scope = constants.ScopeGlobal
			}
			path, err := config.PathFor(scope)
			if err != nil {
				return err
			}
			if explicit := a.v.GetString("config"); explicit != "" && scope == constants.ScopeLocal {
				path = explicit
			}

			cfg, err := config.LoadFromFile(path)
			if errors.Is(err, os.ErrNotExist) {
				cfg, err = config.Default(), nil
			}
			if err != nil {
				return err
			}
			if err := cfg.Set(key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("%s = %s: %w", key, value, err)
			}
			if err := cfg.Save(path); err != nil {
				return err
			}

			if a.jsonOut() {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"status": "updated",
					"key":    key,
					"value":  value,
					"scope":  scope.String(),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", key, value, path)
			return nil
		},
	}
	cmd.Flags().Bool("global", false, "Write ~/.contagion/config.yaml instead of ./contagion.yaml")
	return cmd
}

// dumpYAML is the effective configuration as it would be saved.
func dumpYAML(cfg *config.Config) (string, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
