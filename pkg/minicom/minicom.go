// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package minicom hands a detected serial configuration over to minicom
package minicom

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultDir is where minicom looks for minirc.<name> files
const DefaultDir = "/etc/minicom"

// ErrInvalidName is returned for names minicom cannot load
var ErrInvalidName = errors.New("invalid configuration name")

const rule = "########################################################################\n"

// Config is the serial setup written to a minirc file. The line
// discipline is always 8-N-1 without hardware flow control.
type Config struct {
	Port     string
	Baudrate int
}

// Render returns the minirc file contents
func (c Config) Render() string {
	var sb strings.Builder
	sb.WriteString(rule)
	sb.WriteString("# Minicom configuration file - use \"minicom -s\" to change parameters.\n")
	fmt.Fprintf(&sb, "pu port             %s\n", c.Port)
	fmt.Fprintf(&sb, "pu baudrate         %d\n", c.Baudrate)
	sb.WriteString("pu bits             8\n")
	sb.WriteString("pu parity           N\n")
	sb.WriteString("pu stopbits         1\n")
	sb.WriteString("pu rtscts           No\n")
	sb.WriteString(rule)
	return sb.String()
}

// Path returns the minirc file for name in dir
func Path(dir, name string) string {
	return filepath.Join(dir, "minirc."+name)
}

// ValidateName rejects names that would escape the minicom directory
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Save writes the configuration as dir/minirc.<name> and returns the path
func Save(dir, name string, c Config) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	path := Path(dir, name)
	if err := os.WriteFile(path, []byte(c.Render()), 0o644); err != nil {
		return "", fmt.Errorf("failed to save minicom config: %w", err)
	}
	return path, nil
}

// Run launches minicom with the named configuration, attached to the
// current terminal, and waits for it to exit
func Run(ctx context.Context, name string) error {
	cmd := exec.CommandContext(ctx, "minicom", name)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to run minicom: %w", err)
	}
	return nil
}
