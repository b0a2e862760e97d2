// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/baudrate/pkg/baudrate"
	"github.com/Thermoquad/baudrate/pkg/capture"
)

var (
	inspectThreshold int
	inspectData      bool
)

// inspectPreviewWidth is the terminal width of a data preview
const inspectPreviewWidth = 60

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Replay a capture file through the classifier",
	Long: `Read a file written with "detect --capture" and report, for every window,
how detection ended and whether its data would confirm at --threshold.

Useful for tuning the threshold against a device that was misdetected.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().IntVarP(&inspectThreshold, "threshold", "c", 0, "Threshold to replay with (default: the recorded one)")
	inspectCmd.Flags().BoolVar(&inspectData, "data", false, "Show a preview of each window's data")
}

func runInspect(cmd *cobra.Command, args []string) error {
	header, windows, err := capture.ReadFile(args[0])
	if err != nil {
		return usageError(err)
	}

	threshold := inspectThreshold
	if threshold <= 0 {
		threshold = header.Threshold
	}
	if threshold <= 0 {
		threshold = baudrate.DefaultThreshold
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("BAUDRATE - CAPTURE"))
	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Port: %s | Recorded: %s | Threshold: %d (recorded %d)",
		header.Port, header.Created.Format(time.DateTime), threshold, header.Threshold)))
	fmt.Fprintln(out)

	confirmed := 0
	for i, w := range windows {
		a := capture.Analyze(w, threshold)
		if a.Confirmed {
			confirmed++
		}
		writeAnalysis(out, i+1, a)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s %d windows, %d would confirm\n", labelStyle.Render("Summary:"), len(windows), confirmed)
	return nil
}

func writeAnalysis(out io.Writer, n int, a capture.Analysis) {
	w := a.Window

	verdict := warningStyle.Render("no")
	if a.Confirmed {
		verdict = valueStyle.Render("yes @" + strconv.Itoa(a.ConfirmedAt))
	}
	outcome := string(w.Outcome)
	if w.Outcome == baudrate.OutcomeFailed {
		outcome = errorStyle.Render(outcome)
	}

	c := a.Counters
	fmt.Fprintf(out, "%3d  %7d  %-9s  %6.2fs  %5d bytes  noise %-4d  ws %-3d punct %-3d vowels %-3d  confirm: %s\n",
		n, w.Rate, outcome, w.Ended.Sub(w.Started).Seconds(), len(w.Data),
		a.Noise, c.Whitespace, c.Punctuation, c.Vowels, verdict)

	if inspectData && len(w.Data) > 0 {
		fmt.Fprintf(out, "     %s\n", headerStyle.Render(preview(w.Data)))
	}
}

// preview renders data as a single line of at most inspectPreviewWidth
// cells, with non-printable bytes shown as '.'
func preview(data []byte) string {
	var sb strings.Builder
	for _, b := range data {
		if b >= ' ' && b <= '~' {
			sb.WriteByte(b)
		} else {
			sb.WriteByte('.')
		}
	}
	return runewidth.Truncate(sb.String(), inspectPreviewWidth, "…")
}
