// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config reads the optional TOML configuration file. Every
// setting is a pointer so an absent key leaves the CLI default alone.
package config

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/samber/lo"
)

// FileConfig represents the TOML configuration file
type FileConfig struct {
	Port   *string      `toml:"port"`
	Detect DetectConfig `toml:"detect"`
	Log    LogConfig    `toml:"log"`
}

// DetectConfig maps detection settings
type DetectConfig struct {
	Timeout         *int      `toml:"timeout"` // seconds
	Threshold       *int      `toml:"threshold"`
	Auto            *bool     `toml:"auto"`
	Quiet           *bool     `toml:"quiet"`
	Verbose         *bool     `toml:"verbose"`
	PassthroughKeys *bool     `toml:"passthrough-keys"`
	Toggle          *int      `toml:"toggle"`
	Initial         *int      `toml:"initial"`
	ReadTimeout     *Duration `toml:"read-timeout"`
	Rates           []int     `toml:"rates"`
	MinicomDir      *string   `toml:"minicom-dir"`
	NoMinicom       *bool     `toml:"no-minicom"`
}

// LogConfig maps logging settings
type LogConfig struct {
	Level *string `toml:"level"`
	File  *string `toml:"file"`
}

// Duration is a time.Duration written as a string such as "250ms"
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, errors.New("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}

	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return FileConfig{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks values that the CLI cannot check later
func (c FileConfig) Validate() error {
	d := c.Detect
	if d.Timeout != nil && *d.Timeout <= 0 {
		return errors.New("detect.timeout must be > 0")
	}
	if d.Threshold != nil && *d.Threshold <= 0 {
		return errors.New("detect.threshold must be > 0")
	}
	if d.ReadTimeout != nil && d.ReadTimeout.Duration <= 0 {
		return errors.New("detect.read-timeout must be > 0")
	}
	if d.Rates != nil {
		if len(d.Rates) == 0 {
			return errors.New("detect.rates must not be empty")
		}
		if bad, found := lo.Find(d.Rates, func(r int) bool { return r <= 0 }); found {
			return fmt.Errorf("detect.rates contains invalid rate %d", bad)
		}
		if dups := lo.FindDuplicates(d.Rates); len(dups) > 0 {
			return fmt.Errorf("detect.rates contains duplicate rate %d", dups[0])
		}
	}
	return nil
}

// SortedRates returns the configured ladder fastest first, or nil
func (c FileConfig) SortedRates() []int {
	if len(c.Detect.Rates) == 0 {
		return nil
	}
	rates := slices.Clone(c.Detect.Rates)
	slices.SortFunc(rates, func(a, b int) int { return cmp.Compare(b, a) })
	return rates
}
