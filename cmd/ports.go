// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.bug.st/serial/enumerator"
	"golang.org/x/term"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Long: `List the serial ports attached to this machine, with USB vendor and
product IDs where available.

Exit codes:
  0 - At least one port found
  1 - No ports found
  2 - Enumeration failed`,
	Args: cobra.NoArgs,
	RunE: runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

// listPorts is replaceable in tests
var listPorts = enumerator.GetDetailedPortsList

func runPorts(cmd *cobra.Command, _ []string) error {
	ports, err := listPorts()
	if err != nil {
		return connectionError(fmt.Errorf("failed to list serial ports: %w", err))
	}
	if len(ports) == 0 {
		return usageError(fmt.Errorf("no serial ports found"))
	}

	fmt.Fprintln(cmd.OutOrStdout(), portsTable(ports))
	return nil
}

func portsTable(ports []*enumerator.PortDetails) string {
	rows := lo.Map(ports, func(p *enumerator.PortDetails, _ int) []string {
		if !p.IsUSB {
			return []string{p.Name, "", "", ""}
		}
		return []string{p.Name, p.VID + ":" + p.PID, p.SerialNumber, p.Product}
	})

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(headerStyle).
		Headers("PORT", "VID:PID", "SERIAL", "PRODUCT").
		Rows(rows...)
	return t.String()
}

// choosePort picks a port when none was given: the only port, the
// operator's choice on a terminal, or the first USB port
func choosePort() (string, error) {
	ports, err := listPorts()
	if err != nil || len(ports) == 0 {
		logger.Debug().Err(err).Str("port", DefaultPort).Msg("no ports discovered, using default")
		return DefaultPort, nil
	}
	if len(ports) == 1 {
		return ports[0].Name, nil
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		return pickPort(ports)
	}

	if usb, ok := lo.Find(ports, func(p *enumerator.PortDetails) bool { return p.IsUSB }); ok {
		return usb.Name, nil
	}
	return ports[0].Name, nil
}
