// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package baudrate

import (
	"fmt"
	"time"
)

// Statistics tracks what happened during a detection session
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	BytesRead     uint64
	ValidBytes    uint64
	NoiseBytes    uint64
	NoiseResets   uint64
	Windows       uint64
	Rotations     uint64
	ManualMoves   uint64
	Toggles       uint64
	ForwardedKeys uint64

	// Rates (calculated)
	ByteRate float64 // bytes/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// UpdateByte records one received byte and its class
func (s *Statistics) UpdateByte(class ByteClass, hadCounts bool) {
	s.BytesRead++
	if class == ClassNoise {
		s.NoiseBytes++
		// Only count resets that actually discarded progress
		if hadCounts {
			s.NoiseResets++
		}
	} else {
		s.ValidBytes++
	}
	s.LastUpdateTime = time.Now()
}

// CalculateRates calculates the byte rate
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.ByteRate = float64(s.BytesRead) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent float64
	if s.BytesRead > 0 {
		validPercent = float64(s.ValidBytes) * 100.0 / float64(s.BytesRead)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Detection statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Bytes Read:      %8d\n", s.BytesRead)
	result += fmt.Sprintf("Valid Bytes:     %8d (%.1f%%)\n", s.ValidBytes, validPercent)
	if s.NoiseBytes > 0 {
		result += fmt.Sprintf("Noise Bytes:     %8d\n", s.NoiseBytes)
		result += fmt.Sprintf("  Resets:           %5d\n", s.NoiseResets)
	}
	result += fmt.Sprintf("Windows:         %8d\n", s.Windows)
	result += fmt.Sprintf("Rotations:       %8d\n", s.Rotations)
	if s.ManualMoves > 0 || s.Toggles > 0 {
		result += fmt.Sprintf("Manual Moves:    %8d\n", s.ManualMoves)
		result += fmt.Sprintf("Toggles:         %8d\n", s.Toggles)
	}
	if s.ForwardedKeys > 0 {
		result += fmt.Sprintf("Forwarded Keys:  %8d\n", s.ForwardedKeys)
	}
	result += fmt.Sprintf("Byte Rate:       %8.1f bytes/sec\n", s.ByteRate)
	result += "==========================================\n"

	return result
}
