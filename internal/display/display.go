// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package display draws the rover status frame on a 128x64 SSD1306 OLED.
package display

import (
	"fmt"
	"image"
	"log"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"
)

// Frame geometry for basicfont.Face7x13.
const (
	Width      = 128
	Height     = 64
	lineHeight = 13
	maxLines   = Height / lineHeight
)

// Telemetry is everything shown on the status frame.
type Telemetry struct {
	DistanceCm   float64 // last good range reading
	HaveDistance bool
	PlanarSpeed  float64 // m/s
	Yaw          float64 // degrees
	TravelledM   float64
	MotorEnabled bool
	MotorForward bool
	Obstacle     bool
}

// Renderer shows telemetry frames.
type Renderer interface {
	Render(t Telemetry) error
	Clear() error
}

// Nop is used when no display is attached.
type Nop struct{}

func (Nop) Render(Telemetry) error { return nil }
func (Nop) Clear() error           { return nil }

// Lines formats the telemetry into the text rows of the frame.
func Lines(t Telemetry) []string {
	dist := "D:  --.-cm"
	if t.HaveDistance {
		dist = fmt.Sprintf("D:%6.1fcm", t.DistanceCm)
	}
	if t.Obstacle {
		dist += " OBST"
	}

	motor := "OFF"
	if t.MotorEnabled {
		motor = "ON "
	}
	dir := "REV"
	if t.MotorForward {
		dir = "FWD"
	}

	return []string{
		dist,
		fmt.Sprintf("Vt:%5.2f Y:%6.1f", t.PlanarSpeed, t.Yaw),
		fmt.Sprintf("Trip:%6.2fm", t.TravelledM),
		fmt.Sprintf("Motor:%s %s", motor, dir),
	}
}

// DrawFrame renders text rows into a display-sized 1-bit image. Rows past
// the bottom of the screen are dropped.
func DrawFrame(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, Width, Height))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, l := range lines {
		if i >= maxLines {
			break
		}
		drawer.Dot = fixed.P(0, (i+1)*lineHeight)
		drawer.DrawString(l)
	}
	return img
}

// panel is the subset of *ssd1306.Dev the renderer uses.
type panel interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Halt() error
}

// SSD1306 renders frames on an I2C OLED.
type SSD1306 struct {
	dev panel
	bus i2c.BusCloser
}

// NewSSD1306 opens the I2C bus (empty name selects the first one) and
// initializes the panel at its default address.
func NewSSD1306(busName string) (*SSD1306, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("display: periph host init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("display: open I2C bus %q: %w", busName, err)
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("display: init SSD1306: %w", err)
	}
	log.Printf("display: SSD1306 initialized on I2C bus %q", busName)
	return &SSD1306{dev: dev, bus: bus}, nil
}

// Render draws one status frame.
func (d *SSD1306) Render(t Telemetry) error {
	return d.show(Lines(t))
}

// Clear blanks the panel.
func (d *SSD1306) Clear() error {
	return d.show(nil)
}

// Banner shows free text, used as the startup splash.
func (d *SSD1306) Banner(lines ...string) error {
	return d.show(lines)
}

// Close blanks the panel, turns it off and releases the bus.
func (d *SSD1306) Close() error {
	if err := d.Clear(); err != nil {
		log.Printf("display: clear on close: %v", err)
	}
	err := d.dev.Halt()
	if d.bus != nil {
		if cerr := d.bus.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (d *SSD1306) show(lines []string) error {
	img := DrawFrame(lines)
	if err := d.dev.Draw(d.dev.Bounds(), img, image.Point{}); err != nil {
		return fmt.Errorf("display: draw: %w", err)
	}
	return nil
}
