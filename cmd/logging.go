// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logFileHandle *os.File

// newLogger builds the session logger. Console output shares the
// terminal writer so log lines stay aligned while keys are in raw mode.
func newLogger(level, file string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q", level)
	}

	if file != "" {
		closeLogFile()
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("failed to open log file: %w", err)
		}
		logFileHandle = f
		return zerolog.New(f).Level(lvl).With().Timestamp().Logger(), nil
	}

	console := zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(console).Level(lvl).With().Timestamp().Logger(), nil
}

func closeLogFile() {
	if logFileHandle != nil {
		logFileHandle.Close()
		logFileHandle = nil
	}
}
