// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/baudrate/pkg/config"
)

var (
	// Connection flags
	portName string

	// Ambient flags
	configPath string
	logLevel   string
	logFile    string

	// Loaded by the persistent pre-run
	fileCfg config.FileConfig
	logger  = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "baudrate",
	Short: "Serial port baud rate detector",
	Long: `Baudrate - find the speed of an unknown serial console.

Listens on a serial port and cycles through standard baud rates until the
received data looks like human-readable text. In manual mode the rate is
changed with the keyboard while watching the output.

Keys (while detecting):
  u/d or arrow keys   next faster/slower rate
  SPACE               toggle between the current and the --toggle rate
  h or ?              key reference
  CTRL-C              stop and keep the current rate

With --passthrough-keys, keys are sent to the device and CTRL-B prefixes a
single command.

Settings are also read from ` + "`$XDG_CONFIG_HOME/baudrate/config.toml`" + `
(see "baudrate config"). Command-line flags always win.

Exit codes:
  0 - Detection finished (confirmed or stopped by the operator)
  1 - Configuration or usage error
  2 - Connection error`,
	Version:           "1.0.0",
	Args:              cobra.NoArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadSettings,
	RunE:              runDetect,
}

func init() {
	// Connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device (default: picked from attached ports)")

	// Ambient flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/baudrate/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write JSON logs to this file instead of stderr")

	addDetectFlags(rootCmd)
}

// loadSettings reads the config file and sets up logging before any command runs
func loadSettings(cmd *cobra.Command, _ []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return usageError(err)
	}
	fileCfg = cfg

	applyStringConfig(cmd, "port", &portName, fileCfg.Port)
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-file", &logFile, fileCfg.Log.File)

	l, err := newLogger(logLevel, logFile)
	if err != nil {
		return usageError(err)
	}
	logger = l
	logger.Debug().Str("config", path).Msg("settings loaded")
	return nil
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	defer closeLogFile()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return fmt.Errorf("baudrate: %w", err)
	}
	return nil
}
