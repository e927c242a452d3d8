package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/oukeidos/bisrt/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the config file",
	}
	cmd.SetUsageTemplate(envUsageTemplate)
	cmd.PersistentFlags().StringVar(&path, "path", "", "Config file (default $XDG_CONFIG_HOME/bisrt/config.toml)")

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := configPath(path)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the built-in defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := configPath(path)
			if err != nil {
				return err
			}
			if _, err := os.Stat(p); err == nil {
				return fmt.Errorf("config file already exists: %s", p)
			} else if !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("stat config: %w", err)
			}
			if err := config.CreateSample(p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", p)
			return nil
		},
	}
	pathCmd.SetUsageTemplate(subcommandUsageTemplate)
	initCmd.SetUsageTemplate(subcommandUsageTemplate)
	cmd.AddCommand(pathCmd, initCmd)
	return cmd
}

func configPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return config.DefaultPath()
}
