// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Tether - Open Interface driver for Create 2 robots
//
// A CLI tool for commanding, driving and monitoring a robot over its
// Open Interface serial protocol.

package main

import (
	"os"

	"github.com/tetherlab/tether/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
