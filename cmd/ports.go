// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tetherlab/tether/internal/transport"
)

var portsDetails bool

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports a robot may be attached to",
	Long: `List the serial ports present on this machine.

With --details, USB ports also show their vendor/product IDs, product name
and serial number, which helps tell a Create 2 cable apart from other
adapters.`,
	RunE: runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
	portsCmd.Flags().BoolVar(&portsDetails, "details", false, "Show USB details")
}

func runPorts(cmd *cobra.Command, args []string) error {
	if portsDetails {
		details, err := transport.ListPortDetails()
		if err != nil {
			return err
		}
		if len(details) == 0 {
			fmt.Println("No serial ports found")
			return nil
		}
		for _, d := range details {
			fmt.Println(d.String())
		}
		return nil
	}

	ports, err := transport.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}
