// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package minicom

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// HandOff drives the interactive save-and-launch flow after detection
type HandOff struct {
	In  io.Reader
	Out io.Writer
	Dir string

	// Name, when set, saves without asking and launches immediately
	Name string

	// Launch starts minicom; defaults to Run
	Launch func(ctx context.Context, name string) error
}

// Result reports what the hand-off did
type Result struct {
	Name     string
	Path     string // empty when nothing was saved
	Launched bool
}

// Do saves c under a name (asking for one if needed), then offers to
// launch minicom. When nothing is saved the configuration is printed
// instead. A save failure is reported on Out and is not an error.
func (h *HandOff) Do(ctx context.Context, c Config) (Result, error) {
	if h.Dir == "" {
		h.Dir = DefaultDir
	}
	if h.Launch == nil {
		h.Launch = Run
	}
	in := bufio.NewReader(h.In)

	res := Result{Name: h.Name}
	run := h.Name != ""

	if res.Name == "" {
		fmt.Fprint(h.Out, "\nSave minicom configuration as: ")
		res.Name = readLine(in)
		fmt.Fprintln(h.Out)
	}

	if res.Name == "" {
		fmt.Fprint(h.Out, c.Render())
		return res, nil
	}

	path, err := Save(h.Dir, res.Name, c)
	if err != nil {
		fmt.Fprintln(h.Out, "Error saving minicom config file:", err)
		fmt.Fprint(h.Out, c.Render())
		return res, nil
	}
	res.Path = path

	if !run {
		fmt.Fprint(h.Out, "Configuration saved. Run minicom now [n/Y]? ")
		yn := strings.ToLower(readLine(in))
		fmt.Fprintln(h.Out)
		run = yn == "" || strings.HasPrefix(yn, "y")
	}
	if !run {
		return res, nil
	}

	if err := h.Launch(ctx, res.Name); err != nil {
		return res, err
	}
	res.Launched = true
	return res, nil
}

func readLine(r *bufio.Reader) string {
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(line)
}
