// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Thermoquad/baudrate/pkg/baudrate"
	"github.com/Thermoquad/baudrate/pkg/capture"
	"github.com/Thermoquad/baudrate/pkg/config"
	"github.com/Thermoquad/baudrate/pkg/minicom"
)

var (
	detectTimeout     int
	detectThreshold   int
	detectName        string
	detectAuto        bool
	detectQuiet       bool
	detectVerbose     bool
	detectPassthrough bool
	detectToggle      int
	detectInitial     int
	detectReadTimeout time.Duration
	detectCapture     string
	detectStats       bool
	minicomDir        string
	noMinicom         bool
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect the baud rate of a serial console (default command)",
	Long: `Listen on the serial port and find its baud rate.

In automatic mode (-a) each rate is tried for --timeout seconds; a rate is
confirmed once --threshold printable characters arrive that include
whitespace, punctuation and vowels. Any non-printable byte starts the count
over. Without -a the rate only changes on key presses.

After detection the result can be saved as a minicom configuration and
minicom launched with it.

Exit codes:
  0 - Detection finished (confirmed or stopped by the operator)
  1 - Configuration or usage error
  2 - Connection error`,
	Args: cobra.NoArgs,
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
	addDetectFlags(detectCmd)
}

func addDetectFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVarP(&detectTimeout, "timeout", "t", int(baudrate.DefaultTimeout/time.Second), "Seconds per rate before switching in auto detect mode")
	f.IntVarP(&detectThreshold, "threshold", "c", baudrate.DefaultThreshold, "Minimum printable character count to confirm a rate")
	f.StringVarP(&detectName, "name", "n", "", "Save the result as minicom configuration <name> and run minicom (implies -a)")
	f.BoolVarP(&detectAuto, "auto", "a", false, "Enable auto detect mode")
	f.BoolVarP(&detectQuiet, "quiet", "q", false, "Do not display data read from the serial port")
	f.BoolVarP(&detectVerbose, "verbose", "v", false, "Keep newlines in data read from the serial port")
	f.BoolVarP(&detectPassthrough, "passthrough-keys", "k", false, "Pass key presses to the serial port, "+baudrate.InterpretKeyName()+" prefixes commands")
	f.IntVarP(&detectToggle, "toggle", "T", baudrate.DefaultRate, "Rate SPACE toggles to")
	f.IntVar(&detectInitial, "initial", baudrate.DefaultRate, "First rate to listen at")
	f.DurationVar(&detectReadTimeout, "read-timeout", baudrate.DefaultReadTimeout, "Longest wait for a single byte")
	f.StringVar(&detectCapture, "capture", "", "Record every detection window to this file")
	f.BoolVar(&detectStats, "stats", false, "Print detection statistics when done")
	f.StringVar(&minicomDir, "minicom-dir", minicom.DefaultDir, "Directory for minicom configuration files")
	f.BoolVar(&noMinicom, "no-minicom", false, "Skip the minicom configuration prompt")
}

// detectSettings is the merged result of flags and the config file
type detectSettings struct {
	Port            string
	Name            string
	Rates           []int
	Initial         int
	Toggle          int
	Threshold       int
	Timeout         time.Duration
	ReadTimeout     time.Duration
	Auto            bool
	Echo            bool
	KeepNewlines    bool
	PassthroughKeys bool
	Capture         string
	Stats           bool
	Minicom         bool
	MinicomDir      string
	RunMinicom      bool
}

func resolveDetectSettings(cmd *cobra.Command, cfg config.FileConfig) detectSettings {
	d := cfg.Detect
	applyIntConfig(cmd, "timeout", &detectTimeout, d.Timeout)
	applyIntConfig(cmd, "threshold", &detectThreshold, d.Threshold)
	applyBoolConfig(cmd, "auto", &detectAuto, d.Auto)
	applyBoolConfig(cmd, "quiet", &detectQuiet, d.Quiet)
	applyBoolConfig(cmd, "verbose", &detectVerbose, d.Verbose)
	applyBoolConfig(cmd, "passthrough-keys", &detectPassthrough, d.PassthroughKeys)
	applyIntConfig(cmd, "toggle", &detectToggle, d.Toggle)
	applyIntConfig(cmd, "initial", &detectInitial, d.Initial)
	applyDurationConfig(cmd, "read-timeout", &detectReadTimeout, d.ReadTimeout)
	applyStringConfig(cmd, "minicom-dir", &minicomDir, d.MinicomDir)
	applyBoolConfig(cmd, "no-minicom", &noMinicom, d.NoMinicom)

	s := detectSettings{
		Port:            portName,
		Name:            detectName,
		Rates:           cfg.SortedRates(),
		Initial:         detectInitial,
		Toggle:          detectToggle,
		Threshold:       detectThreshold,
		Timeout:         time.Duration(detectTimeout) * time.Second,
		ReadTimeout:     detectReadTimeout,
		Auto:            detectAuto,
		Echo:            !detectQuiet,
		KeepNewlines:    detectVerbose && !detectQuiet,
		PassthroughKeys: detectPassthrough,
		Capture:         detectCapture,
		Stats:           detectStats,
		Minicom:         !noMinicom,
		MinicomDir:      minicomDir,
	}
	if s.Rates == nil {
		s.Rates = baudrate.Rates
	}
	if s.Name != "" {
		s.Auto = true
		s.RunMinicom = true
	}
	return s
}

func (s detectSettings) validate() error {
	if s.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}
	if s.Threshold <= 0 {
		return errors.New("--threshold must be > 0")
	}
	if s.ReadTimeout <= 0 {
		return errors.New("--read-timeout must be > 0")
	}
	if s.Name != "" {
		if err := minicom.ValidateName(s.Name); err != nil {
			return err
		}
	}
	if _, err := baudrate.NewLadder(s.Rates, s.Initial, s.Toggle); err != nil {
		if errors.Is(err, baudrate.ErrUnknownRate) {
			return fmt.Errorf("%w; supported rates:\n%s", err, formatRateList(s.Rates))
		}
		return err
	}
	return nil
}

// formatRateList renders one tab-indented rate per line
func formatRateList(rates []int) string {
	return strings.Join(lo.Map(rates, func(r int, _ int) string {
		return "\t" + strconv.Itoa(r)
	}), "\n")
}

func (s detectSettings) options() baudrate.Options {
	opts := baudrate.DefaultOptions()
	opts.Rates = s.Rates
	opts.InitialRate = s.Initial
	opts.ToggleRate = s.Toggle
	opts.Threshold = s.Threshold
	opts.Timeout = s.Timeout
	opts.ReadTimeout = s.ReadTimeout
	opts.Auto = s.Auto
	opts.Echo = s.Echo
	opts.KeepNewlines = s.KeepNewlines
	opts.PassthroughKeys = s.PassthroughKeys
	return opts
}

func runDetect(cmd *cobra.Command, _ []string) error {
	s := resolveDetectSettings(cmd, fileCfg)
	if err := s.validate(); err != nil {
		return usageError(err)
	}

	if s.Port == "" {
		port, err := choosePort()
		if err != nil {
			return usageError(err)
		}
		s.Port = port
	}

	out := cmd.OutOrStdout()
	if !s.PassthroughKeys {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Starting baudrate detection on %s, turn on your serial device now.\n", s.Port)
		fmt.Fprintln(out, "Press Ctrl+C to quit.")
		fmt.Fprintln(out)
	}

	transport, err := OpenSerialTransport(s.Port, s.Initial)
	if err != nil {
		return connectionError(err)
	}
	defer transport.Close()

	opts := s.options()
	opts.Output = stderr
	opts.Logger = &logger

	var recorder *capture.Writer
	if s.Capture != "" {
		recorder, err = capture.Create(s.Capture, capture.Header{Port: s.Port, Threshold: s.Threshold})
		if err != nil {
			return usageError(err)
		}
		defer recorder.Close()
		opts.Recorder = recorder
	}

	kb, err := OpenKeyboard(os.Stdin)
	if err != nil {
		logger.Debug().Err(err).Msg("key presses disabled")
	} else {
		defer kb.Close()
		opts.Keys = kb
	}

	ctrl, err := baudrate.NewController(transport, opts)
	if err != nil {
		return usageError(err)
	}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		ctrl.Display().Decorate = decorateBanner
	}

	logger.Info().
		Str("port", transport.Name()).
		Bool("auto", s.Auto).
		Bool("passthrough", s.PassthroughKeys).
		Int("threshold", s.Threshold).
		Dur("timeout", s.Timeout).
		Msg("detection started")

	if err := ctrl.Open(); err != nil {
		return connectionError(err)
	}
	rate, err := ctrl.Detect(cmd.Context())

	// Give the terminal back before anything is prompted, and let a
	// later interrupt end the process
	if kb != nil {
		kb.Close()
	}
	signal.Reset(os.Interrupt, syscall.SIGTERM)
	if recorder != nil {
		logger.Info().Int("windows", recorder.Count()).Str("file", s.Capture).Msg("capture written")
	}
	if err != nil {
		return connectionError(err)
	}

	if s.Stats {
		stats := ctrl.Stats()
		fmt.Fprint(os.Stderr, boxStyle.Render(stats.String()), "\n")
	}

	if s.PassthroughKeys {
		return nil
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, labelStyle.Render("Detected baudrate:"), valueStyle.Render(strconv.Itoa(rate)))

	if !s.Minicom {
		return nil
	}

	h := &minicom.HandOff{
		In:   os.Stdin,
		Out:  out,
		Dir:  s.MinicomDir,
		Name: s.Name,
	}
	// An interrupt may have ended detection; minicom still gets to run
	ctx := context.WithoutCancel(cmd.Context())
	if _, err := h.Do(ctx, minicom.Config{Port: s.Port, Baudrate: rate}); err != nil {
		return err
	}
	return nil
}
