// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// ButtonPanel reads active-low push buttons with internal pull-ups.
type ButtonPanel struct {
	pins []gpio.PinIn
}

// NewButtonPanel opens the named pins in index order.
func NewButtonPanel(names []string) (*ButtonPanel, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("buttons: periph host init: %w", err)
	}
	pins := make([]gpio.PinIn, len(names))
	for i, n := range names {
		p := gpioreg.ByName(n)
		if p == nil {
			return nil, fmt.Errorf("buttons: pin %q not found", n)
		}
		pins[i] = p
	}
	return NewButtonPanelPins(pins...)
}

// NewButtonPanelPins configures already opened pins as pulled-up inputs.
func NewButtonPanelPins(pins ...gpio.PinIn) (*ButtonPanel, error) {
	for i, p := range pins {
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("buttons: K%d (%s): %w", i+1, p, err)
		}
	}
	return &ButtonPanel{pins: pins}, nil
}

// Levels returns the raw line levels; true is released.
func (b *ButtonPanel) Levels() []bool {
	out := make([]bool, len(b.pins))
	for i, p := range b.pins {
		out[i] = p.Read() == gpio.High
	}
	return out
}
