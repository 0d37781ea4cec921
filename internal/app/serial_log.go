// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"io"
	"log"
	"os"

	serial "github.com/jacobsa/go-serial/serial"
)

// MirrorLogToSerial copies the standard logger to a UART as well as stderr,
// so the rover can be watched over a serial console. Close the returned port
// when done.
func MirrorLogToSerial(portName string, baud int) (io.Closer, error) {
	serialOpts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return nil, fmt.Errorf("serial log: open %s: %w", portName, err)
	}
	log.SetOutput(io.MultiWriter(os.Stderr, port))
	log.Printf("serial log: mirroring to %s at %d baud", portName, baud)
	return port, nil
}
