// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package baudrate

import (
	"fmt"

	"github.com/samber/lo"
)

// ByteClass is the category a received byte falls into
type ByteClass int

const (
	ClassNoise ByteClass = iota
	ClassWhitespace
	ClassPunctuation
	ClassVowel
	ClassOther
)

// String returns a human-readable class name
func (c ByteClass) String() string {
	switch c {
	case ClassNoise:
		return "noise"
	case ClassWhitespace:
		return "whitespace"
	case ClassPunctuation:
		return "punctuation"
	case ClassVowel:
		return "vowel"
	case ClassOther:
		return "other"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// IsValid reports whether b may appear in legible text: printable ASCII
// or one of the whitespace characters.
func IsValid(b byte) bool {
	return (b >= ' ' && b <= '~') || lo.Contains(whitespace, b)
}

// Classify returns the class of a single byte
func Classify(b byte) ByteClass {
	switch {
	case !IsValid(b):
		return ClassNoise
	case lo.Contains(whitespace, b):
		return ClassWhitespace
	case lo.Contains(punctuation, b):
		return ClassPunctuation
	case lo.Contains(vowels, b):
		return ClassVowel
	default:
		return ClassOther
	}
}

// Counters holds the rolling classification counts of one window
type Counters struct {
	Total       int
	Whitespace  int
	Punctuation int
	Vowels      int
}

// Classifier accumulates byte classes and judges whether the stream
// looks like text
type Classifier struct {
	counters Counters
}

// NewClassifier creates a classifier with zeroed counters
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Observe classifies b and updates the counters. A noise byte clears
// every counter.
func (c *Classifier) Observe(b byte) ByteClass {
	class := Classify(b)
	switch class {
	case ClassNoise:
		c.Reset()
		return class
	case ClassWhitespace:
		c.counters.Whitespace++
	case ClassPunctuation:
		c.counters.Punctuation++
	case ClassVowel:
		c.counters.Vowels++
	}
	c.counters.Total++
	return class
}

// Confirmed reports whether at least threshold valid bytes were seen
// and every sub-category is represented
func (c *Classifier) Confirmed(threshold int) bool {
	return c.counters.Total >= threshold &&
		c.counters.Whitespace > 0 &&
		c.counters.Punctuation > 0 &&
		c.counters.Vowels > 0
}

// Reset zeroes all counters
func (c *Classifier) Reset() {
	c.counters = Counters{}
}

// Counters returns a snapshot of the current counts
func (c *Classifier) Counters() Counters {
	return c.counters
}
