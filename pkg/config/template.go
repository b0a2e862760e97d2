// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Template returns a commented configuration file listing every key
func Template() string {
	return `# baudrate configuration
# Uncomment a value to enable it. CLI flags override config values.

# port = "/dev/ttyUSB0"

[detect]
# timeout = 5                 # Seconds per rate before rotating (auto mode)
# threshold = 25              # Printable characters needed to confirm a rate
# auto = false                # Rotate rates automatically
# quiet = false               # Do not echo received data
# verbose = false             # Keep newlines in echoed data
# passthrough-keys = false    # Forward keys to the device, CTRL-B prefixes commands
# toggle = 115200             # Rate SPACE toggles to
# initial = 115200            # First rate tried
# read-timeout = "100ms"      # Longest wait for a single byte
# rates = [115200, 57600, 38400, 19200, 9600]
# minicom-dir = "/etc/minicom"
# no-minicom = false

[log]
# level = "warn"              # trace, debug, info, warn, error
# file = ""                   # JSON log file instead of stderr
`
}

// WriteTemplate writes the template to path unless a file already
// exists there. It reports whether a file was written.
func WriteTemplate(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(Template()), 0o644); err != nil {
		return false, fmt.Errorf("failed to write config: %w", err)
	}
	return true, nil
}
