// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package buttons turns raw active-low switch levels into short and long
// press events. It is a polled state machine: nothing blocks, nothing runs
// in the background.
package buttons

import (
	"fmt"
	"time"
)

// Kind classifies a press.
type Kind int

const (
	Short Kind = iota
	Long
)

func (k Kind) String() string {
	switch k {
	case Short:
		return "short"
	case Long:
		return "long"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Event is one classified press on button Index.
type Event struct {
	Index int
	Kind  Kind
}

// Timing holds the debounce and classification thresholds.
type Timing struct {
	PollInterval time.Duration // polls closer than this to the previous one are ignored
	Debounce     time.Duration // raw level must be stable for longer than this
	LongPress    time.Duration // held longer than this fires Long
	ShortWindow  time.Duration // Short fires only this soon after the release edge
	Settle       time.Duration // no events this soon after construction
}

// DefaultTiming returns the thresholds used on the reference vehicle.
func DefaultTiming() Timing {
	return Timing{
		PollInterval: 10 * time.Millisecond,
		Debounce:     20 * time.Millisecond,
		LongPress:    1000 * time.Millisecond,
		ShortWindow:  500 * time.Millisecond,
		Settle:       500 * time.Millisecond,
	}
}

// state is the per-button record. Levels are electrical: true is high,
// which means released for an active-low switch.
type state struct {
	raw        bool
	debounced  bool
	lastEdge   time.Time
	pressStart time.Time

	pressed       bool
	longFired     bool
	shortConsumed bool
}

// Debouncer tracks a fixed set of buttons for the lifetime of the process.
type Debouncer struct {
	timing  Timing
	start   time.Time
	settled bool

	polled   bool
	lastPoll time.Time

	buttons []state
}

// NewDebouncer creates a debouncer for n buttons, all assumed released.
// start marks the beginning of the power-on settle period.
func NewDebouncer(n int, t Timing, start time.Time) *Debouncer {
	d := &Debouncer{
		timing:  t,
		start:   start,
		buttons: make([]state, n),
	}
	for i := range d.buttons {
		d.buttons[i] = state{
			raw:           true,
			debounced:     true,
			lastEdge:      start,
			shortConsumed: true,
		}
	}
	return d
}

// Prime seeds raw and debounced levels from a direct read, without
// classifying anything. Extra levels are ignored.
func (d *Debouncer) Prime(levels []bool) {
	for i := range d.buttons {
		if i >= len(levels) {
			break
		}
		d.buttons[i].raw = levels[i]
		d.buttons[i].debounced = levels[i]
	}
}

// Pressed reports the debounced pressed state of button i.
func (d *Debouncer) Pressed(i int) bool {
	if i < 0 || i >= len(d.buttons) {
		return false
	}
	return d.buttons[i].pressed
}

// Poll samples the raw levels at time now and returns any events that
// became due. Levels beyond the configured button count are ignored and
// missing levels leave their button untouched.
func (d *Debouncer) Poll(levels []bool, now time.Time) []Event {
	if !d.settled {
		if now.Sub(d.start) < d.timing.Settle {
			d.prime(levels, now)
			return nil
		}
		d.settled = true
	}

	if d.polled && now.Sub(d.lastPoll) < d.timing.PollInterval {
		return nil
	}
	d.polled = true
	d.lastPoll = now

	var events []Event
	n := min(len(levels), len(d.buttons))

	for i := 0; i < n; i++ {
		b := &d.buttons[i]
		level := levels[i]

		if level != b.raw {
			b.lastEdge = now
		}

		if now.Sub(b.lastEdge) > d.timing.Debounce && level != b.debounced {
			b.debounced = level
			if !level {
				b.pressed = true
				b.pressStart = now
				b.longFired = false
				b.shortConsumed = false
			} else {
				b.pressed = false
				b.longFired = false
			}
		}

		b.raw = level

		if b.pressed && !b.longFired && now.Sub(b.pressStart) > d.timing.LongPress {
			b.longFired = true
			// a long press never also counts as a short one
			b.shortConsumed = true
			events = append(events, Event{Index: i, Kind: Long})
		}
	}

	for i := 0; i < n; i++ {
		b := &d.buttons[i]
		if !b.pressed && b.raw && b.debounced && !b.shortConsumed &&
			now.Sub(b.lastEdge) < d.timing.ShortWindow {
			b.shortConsumed = true
			events = append(events, Event{Index: i, Kind: Short})
		}
	}

	return events
}

// prime tracks levels during the settle period: edges are remembered but
// never classified.
func (d *Debouncer) prime(levels []bool, now time.Time) {
	for i := range d.buttons {
		if i >= len(levels) {
			break
		}
		b := &d.buttons[i]
		if levels[i] != b.raw {
			b.lastEdge = now
		}
		b.raw = levels[i]
		b.debounced = levels[i]
	}
}
