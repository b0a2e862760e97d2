// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/baudrate/pkg/config"
)

var configPrint bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create the configuration file",
	Long: `Write a commented configuration template if no configuration file exists,
then print its path. Values in the file apply unless overridden by flags.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().BoolVar(&configPrint, "print", false, "Print the template instead of writing it")
}

func runConfig(cmd *cobra.Command, _ []string) error {
	if configPrint {
		fmt.Fprint(cmd.OutOrStdout(), config.Template())
		return nil
	}

	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	wrote, err := config.WriteTemplate(path)
	if err != nil {
		return usageError(err)
	}
	if wrote {
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s already exists\n", path)
	}
	return nil
}

// Flag overrides: a config value applies only when the flag was not set

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyDurationConfig(cmd *cobra.Command, name string, target *time.Duration, value *config.Duration) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = value.Duration
}
