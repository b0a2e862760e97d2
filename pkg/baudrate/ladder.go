// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package baudrate

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/samber/lo"
)

// ErrUnknownRate is returned when a rate is not on the ladder
var ErrUnknownRate = errors.New("rate not in candidate list")

// Ladder is an ordered list of candidate rates with a cursor and a
// two-slot toggle memory. It is not safe for concurrent use; the
// Controller serializes access.
type Ladder struct {
	rates []int
	index int

	// toggle[0] is the most recent rate, toggle[1] the one SPACE goes to
	toggle [2]int
}

// NewLadder creates a ladder positioned at initial, toggling against toggleRate
func NewLadder(rates []int, initial, toggleRate int) (*Ladder, error) {
	if len(rates) == 0 {
		return nil, errors.New("candidate list is empty")
	}
	for _, r := range rates {
		if r <= 0 {
			return nil, fmt.Errorf("invalid candidate rate: %d", r)
		}
	}

	l := &Ladder{rates: append([]int(nil), rates...)}

	idx, ok := l.IndexOf(initial)
	if !ok {
		return nil, fmt.Errorf("initial rate %d: %w", initial, ErrUnknownRate)
	}
	l.index = idx

	tidx, ok := l.IndexOf(toggleRate)
	if !ok {
		return nil, fmt.Errorf("toggle rate %d: %w", toggleRate, ErrUnknownRate)
	}
	l.toggle = [2]int{tidx, tidx}

	return l, nil
}

// Len returns the number of candidates
func (l *Ladder) Len() int {
	return len(l.rates)
}

// Index returns the cursor position
func (l *Ladder) Index() int {
	return l.index
}

// Current returns the selected rate
func (l *Ladder) Current() int {
	return l.rates[l.index]
}

// Rates returns a copy of the candidate list
func (l *Ladder) Rates() []int {
	return append([]int(nil), l.rates...)
}

// IndexOf looks up a rate on the ladder
func (l *Ladder) IndexOf(rate int) (int, bool) {
	idx := lo.IndexOf(l.rates, rate)
	return idx, idx >= 0
}

// TogglePair returns the (most recent, next) toggle indices
func (l *Ladder) TogglePair() (int, int) {
	return l.toggle[0], l.toggle[1]
}

// Set moves the cursor to index
func (l *Ladder) Set(index int) error {
	if index < 0 || index >= len(l.rates) {
		return fmt.Errorf("index %d out of range [0, %d)", index, len(l.rates))
	}
	l.index = index
	return nil
}

// Step moves the cursor by delta positions and returns the new rate.
// Positive delta moves toward higher rates (the list is descending, so
// the index decreases); negative delta moves toward lower rates. Both
// directions wrap around the ends of the list.
func (l *Ladder) Step(delta int) int {
	n := len(l.rates)
	l.index = ((l.index-delta)%n + n) % n
	return l.rates[l.index]
}

// Toggle alternates between the two most recently used rates. It
// reports whether the cursor moved; when the cursor already sits on the
// toggle target only the pair direction is swapped.
func (l *Ladder) Toggle() (int, bool) {
	prev, next := l.toggle[0], l.toggle[1]
	moved := false
	if l.index != next {
		prev = l.index
		l.index = next
		moved = true
	}
	l.toggle = [2]int{next, prev}
	return l.rates[l.index], moved
}

// FormatRates renders the ladder one rate per line, marking the cursor
func (l *Ladder) FormatRates() string {
	width := len(strconv.Itoa(lo.Max(l.rates)))
	result := ""
	for i, r := range l.rates {
		marker := " "
		if i == l.index {
			marker = "*"
		}
		result += fmt.Sprintf("%s %*d\n", marker, width, r)
	}
	return result
}
