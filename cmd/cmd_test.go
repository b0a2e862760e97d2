// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.bug.st/serial/enumerator"

	"github.com/Thermoquad/baudrate/pkg/baudrate"
	"github.com/Thermoquad/baudrate/pkg/capture"
	"github.com/Thermoquad/baudrate/pkg/config"
)

// newDetectTestCmd binds fresh detect flags (resetting them to their
// defaults) and parses args
func newDetectTestCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	portName = ""
	c := &cobra.Command{Use: "detect"}
	c.Flags().StringVarP(&portName, "port", "p", "", "")
	addDetectFlags(c)
	if err := c.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	return c
}

func ptr[T any](v T) *T { return &v }

// ============================================================
// Exit Code Tests
// ============================================================

func TestExitCode(t *testing.T) {
	base := errors.New("boom")
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, ExitOK},
		{"plain", base, ExitUsage},
		{"usage", usageError(base), ExitUsage},
		{"connection", connectionError(base), ExitConnection},
		{"wrapped connection", fmt.Errorf("baudrate: %w", connectionError(base)), ExitConnection},
	}

	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.expected {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.expected, got)
		}
	}
	if !errors.Is(connectionError(base), base) {
		t.Error("exitError should unwrap")
	}
}

// ============================================================
// Settings Tests
// ============================================================

func TestResolveDetectSettings_Defaults(t *testing.T) {
	s := resolveDetectSettings(newDetectTestCmd(t), config.FileConfig{})

	if s.Auto {
		t.Error("Manual mode is the default")
	}
	if !s.Echo || s.KeepNewlines {
		t.Error("Expected echo without newlines")
	}
	if s.Timeout != 5*time.Second || s.Threshold != 25 {
		t.Errorf("Unexpected defaults %v %d", s.Timeout, s.Threshold)
	}
	if s.Initial != 115200 || s.Toggle != 115200 {
		t.Errorf("Unexpected rates %d %d", s.Initial, s.Toggle)
	}
	if len(s.Rates) != len(baudrate.Rates) {
		t.Error("Expected built-in ladder")
	}
	if !s.Minicom || s.MinicomDir != "/etc/minicom" {
		t.Error("Expected minicom hand-off to /etc/minicom")
	}
	if err := s.validate(); err != nil {
		t.Errorf("Defaults should validate: %v", err)
	}
}

func TestResolveDetectSettings_Flags(t *testing.T) {
	c := newDetectTestCmd(t, "-n", "router", "-q", "-v", "-t", "2", "-c", "10", "-k", "-T", "9600")
	s := resolveDetectSettings(c, config.FileConfig{})

	if !s.Auto || !s.RunMinicom {
		t.Error("--name implies auto and run")
	}
	if s.Echo || s.KeepNewlines {
		t.Error("--quiet disables echo")
	}
	if s.Timeout != 2*time.Second || s.Threshold != 10 || s.Toggle != 9600 {
		t.Errorf("Unexpected settings %+v", s)
	}
	if !s.PassthroughKeys {
		t.Error("Expected pass-through")
	}

	opts := s.options()
	if !opts.Auto || opts.Echo || !opts.PassthroughKeys || opts.ToggleRate != 9600 {
		t.Errorf("Options do not follow settings: %+v", opts)
	}
}

func TestResolveDetectSettings_ConfigAndOverride(t *testing.T) {
	cfg := config.FileConfig{
		Port: ptr("/dev/ttyACM0"),
		Detect: config.DetectConfig{
			Timeout:     ptr(9),
			Threshold:   ptr(40),
			Auto:        ptr(true),
			ReadTimeout: &config.Duration{Duration: 250 * time.Millisecond},
			Rates:       []int{9600, 115200},
			NoMinicom:   ptr(true),
		},
	}

	c := newDetectTestCmd(t, "--threshold", "30")
	applyStringConfig(c, "port", &portName, cfg.Port)
	s := resolveDetectSettings(c, cfg)

	if s.Port != "/dev/ttyACM0" {
		t.Errorf("Expected port from config, got %q", s.Port)
	}
	if s.Threshold != 30 {
		t.Errorf("Flag must win over config, got %d", s.Threshold)
	}
	if s.Timeout != 9*time.Second || !s.Auto || s.ReadTimeout != 250*time.Millisecond {
		t.Errorf("Config values not applied: %+v", s)
	}
	if s.Minicom {
		t.Error("Expected minicom disabled by config")
	}
	if len(s.Rates) != 2 || s.Rates[0] != 115200 {
		t.Errorf("Expected sorted config ladder, got %v", s.Rates)
	}
}

func TestDetectSettings_Validate(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown toggle", []string{"-T", "12345"}, "supported rates:\n\t921600"},
		{"unknown initial", []string{"--initial", "7"}, "initial rate 7"},
		{"zero timeout", []string{"-t", "0"}, "--timeout"},
		{"zero threshold", []string{"-c", "0"}, "--threshold"},
		{"bad name", []string{"-n", "../x"}, "invalid configuration name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := resolveDetectSettings(newDetectTestCmd(t, tt.args...), config.FileConfig{})
			err := s.validate()
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected %q in %q", tt.want, err.Error())
			}
		})
	}
}

// ============================================================
// Terminal Output Tests
// ============================================================

func TestTermWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &termWriter{w: &buf}

	w.Write([]byte("a\nb"))
	w.SetRaw(true)
	n, err := w.Write([]byte("c\nd\n"))
	if err != nil || n != 4 {
		t.Errorf("Expected 4 bytes reported, got %d %v", n, err)
	}
	w.SetRaw(false)
	w.Write([]byte("\n"))

	if got := buf.String(); got != "a\nbc\r\nd\r\n\n" {
		t.Errorf("Unexpected output %q", got)
	}
}

func TestDecorateBanner(t *testing.T) {
	var out bytes.Buffer
	d := baudrate.NewDisplay(&out, baudrate.DefaultDisplayWidth, true, false)
	d.Decorate = decorateBanner

	d.Status(921600)
	if !strings.Contains(out.String(), "Baudrate: 921600") {
		t.Errorf("Expected banner text kept, got %q", out.String())
	}
}

// ============================================================
// Port Tests
// ============================================================

func withPorts(t *testing.T, ports []*enumerator.PortDetails, err error) {
	t.Helper()
	saved := listPorts
	listPorts = func() ([]*enumerator.PortDetails, error) { return ports, err }
	t.Cleanup(func() { listPorts = saved })
}

func TestChoosePort(t *testing.T) {
	withPorts(t, nil, errors.New("no sysfs"))
	if got, _ := choosePort(); got != DefaultPort {
		t.Errorf("Expected default port, got %s", got)
	}

	withPorts(t, []*enumerator.PortDetails{{Name: "/dev/ttyACM3"}}, nil)
	if got, _ := choosePort(); got != "/dev/ttyACM3" {
		t.Errorf("Expected the only port, got %s", got)
	}
}

func TestPortsTable(t *testing.T) {
	out := portsTable([]*enumerator.PortDetails{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001", SerialNumber: "A50285BI", Product: "FT232R"},
	})
	for _, want := range []string{"PORT", "/dev/ttyS0", "0403:6001", "A50285BI", "FT232R"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in table:\n%s", want, out)
		}
	}
}

func TestPickerModel(t *testing.T) {
	ports := []*enumerator.PortDetails{
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001"},
		{Name: "/dev/ttyUSB1", IsUSB: true, VID: "10c4", PID: "ea60"},
	}

	var m tea.Model = newPickerModel(ports)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("Enter should quit the picker")
	}
	if got := m.(pickerModel).choice; got != "/dev/ttyUSB1" {
		t.Errorf("Expected /dev/ttyUSB1, got %q", got)
	}

	m = newPickerModel(ports)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	pm := m.(pickerModel)
	if !pm.quitting || pm.choice != "" {
		t.Error("Esc should quit without a choice")
	}
	if pm.View() != "" {
		t.Error("View should be empty once done")
	}
}

func TestPortItem(t *testing.T) {
	native := portItem{details: &enumerator.PortDetails{Name: "/dev/ttyS0"}}
	if native.Description() != "native" || native.FilterValue() != "/dev/ttyS0" {
		t.Errorf("Unexpected item %q %q", native.Description(), native.FilterValue())
	}
}

// ============================================================
// Command Tests
// ============================================================

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	configPath = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRatesCommand(t *testing.T) {
	out, err := runRoot(t, "rates", "--initial", "9600")
	if err != nil {
		t.Fatalf("rates: %v", err)
	}
	if !strings.Contains(out, "*   9600") {
		t.Errorf("Expected 9600 marked, got:\n%s", out)
	}
	if !strings.Contains(out, "  921600") {
		t.Errorf("Expected full ladder, got:\n%s", out)
	}
}

func TestConfigCommand(t *testing.T) {
	out, err := runRoot(t, "config")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if !strings.Contains(out, "Wrote ") || !strings.Contains(out, filepath.Join("baudrate", "config.toml")) {
		t.Errorf("Unexpected output %q", out)
	}
}

func TestInspectCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.cbor")
	w, err := capture.Create(path, capture.Header{Port: "/dev/ttyUSB0", Threshold: 25})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	w.Record(baudrate.Window{Rate: 115200, Started: start, Ended: start.Add(time.Second), Outcome: baudrate.OutcomeRotated, Data: []byte{0xfe, 0x00}})
	w.Record(baudrate.Window{Rate: 76800, Started: start, Ended: start.Add(time.Second), Outcome: baudrate.OutcomeConfirmed, Data: []byte("Welcome, the login prompt is below.")})
	w.Close()

	inspectThreshold = 0
	out, err := runRoot(t, "inspect", path)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(out, "2 windows, 1 would confirm") {
		t.Errorf("Unexpected summary:\n%s", out)
	}
}

func TestInspectCommand_Missing(t *testing.T) {
	_, err := runRoot(t, "inspect", filepath.Join(t.TempDir(), "nope.cbor"))
	if ExitCode(err) != ExitUsage {
		t.Errorf("Expected usage error, got %v", err)
	}
}

func TestPreview(t *testing.T) {
	got := preview([]byte("ok\x00\xff"))
	if got != "ok.." {
		t.Errorf("Expected %q, got %q", "ok..", got)
	}

	long := preview(bytes.Repeat([]byte("a"), 100))
	if len([]rune(long)) != inspectPreviewWidth {
		t.Errorf("Expected preview truncated to %d cells, got %d", inspectPreviewWidth, len([]rune(long)))
	}
}
