// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/baudrate/pkg/baudrate"
)

var ratesInitial int

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Display supported baud rates",
	Long: `Display the candidate baud rates in the order automatic detection tries
them after the initial rate, which is marked with '*'. A "rates" list in the
config file replaces the built-in list.`,
	Args: cobra.NoArgs,
	RunE: runRates,
}

func init() {
	rootCmd.AddCommand(ratesCmd)
	ratesCmd.Flags().IntVar(&ratesInitial, "initial", baudrate.DefaultRate, "Rate to mark as the starting point")
}

func runRates(cmd *cobra.Command, _ []string) error {
	applyIntConfig(cmd, "initial", &ratesInitial, fileCfg.Detect.Initial)

	rates := fileCfg.SortedRates()
	if rates == nil {
		rates = baudrate.Rates
	}

	ladder, err := baudrate.NewLadder(rates, ratesInitial, ratesInitial)
	if err != nil {
		return usageError(err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprint(out, ladder.FormatRates())
	fmt.Fprintln(out)
	return nil
}
