// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"os"
	"syscall"
)

// ExecRestart replaces the current process with a fresh copy of itself.
func ExecRestart() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("restart: locate executable: %w", err)
	}
	if err := syscall.Exec(exe, os.Args, os.Environ()); err != nil {
		return fmt.Errorf("restart: exec %s: %w", exe, err)
	}
	return nil
}
