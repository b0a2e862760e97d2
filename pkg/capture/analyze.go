// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import "github.com/Thermoquad/baudrate/pkg/baudrate"

// Analysis is the classifier's verdict on a recorded window
type Analysis struct {
	Window    baudrate.Window
	Counters  baudrate.Counters // at confirmation, or at the end of the data
	Noise     int
	Confirmed bool
	// ConfirmedAt is the number of bytes consumed when the window
	// confirmed, zero otherwise
	ConfirmedAt int
}

// Analyze replays a window through a fresh classifier at threshold
func Analyze(w baudrate.Window, threshold int) Analysis {
	a := Analysis{Window: w}
	cls := baudrate.NewClassifier()

	for i, b := range w.Data {
		if cls.Observe(b) == baudrate.ClassNoise {
			a.Noise++
		}
		if cls.Confirmed(threshold) {
			a.Confirmed = true
			a.ConfirmedAt = i + 1
			break
		}
	}
	a.Counters = cls.Counters()
	return a
}
