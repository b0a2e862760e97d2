// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package baudrate

import "time"

// Rates is the standard candidate ladder, fastest first
var Rates = []int{
	921600,
	576000,
	460800,
	230400,
	115200,
	76800,
	57600,
	38400,
	28800,
	19200,
	9600,
	4800,
	2400,
	1800,
	1200,
	600,
	300,
	200,
	150,
	134,
	110,
	75,
	50,
}

// Detection defaults
const (
	DefaultRate        = 115200
	DefaultThreshold   = 25
	DefaultTimeout     = 5 * time.Second
	DefaultReadTimeout = 100 * time.Millisecond

	// DefaultDisplayWidth caps the echoed status line (terminal cells)
	DefaultDisplayWidth = 80
)

// Keys understood by the interpreter
const (
	KeyCtrlB byte = 0x02
	KeyCtrlC byte = 0x03
	KeyEsc   byte = 0x1B

	// KeyInterpret switches from pass-through to interpreting for one command
	KeyInterpret = KeyCtrlB

	// KeyCancel ends the session
	KeyCancel = KeyCtrlC

	// KeyEscapeContinuation follows ESC in CSI sequences (ESC [ A == up arrow)
	KeyEscapeContinuation byte = '['

	// EscapeTimeout is how long an ESC may wait for KeyEscapeContinuation
	EscapeTimeout = 100 * time.Millisecond
)

var (
	upKeys     = []byte{'u', 'U', 'A'}
	downKeys   = []byte{'d', 'D', 'B'}
	helpKeys   = []byte{'h', '?'}
	returnKeys = []byte{'\n', '\r'}
)

// Character classes used by the classifier
var (
	whitespace  = []byte{' ', '\t', '\r', '\n'}
	punctuation = []byte{'.', ',', ':', ';', '?', '!'}
	vowels      = []byte{'a', 'A', 'e', 'E', 'i', 'I', 'o', 'O', 'u', 'U'}
)
