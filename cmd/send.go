// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tetherlab/tether/pkg/oi"
)

var (
	sendSync       bool
	sendAssumeMode string
	sendDryRun     bool
	sendList       bool
)

var sendCmd = &cobra.Command{
	Use:   "send <opcode> [args...]",
	Short: "Send one validated OI command",
	Long: `Encode and send a single Open Interface command.

The opcode may be given by number or by name (e.g. 145 or drive_direct).
Arguments are range checked and the command is checked against the current
OI mode before anything is written. Since a fresh connection starts in the
Off mode, most commands need --sync (read the mode from the robot first)
or --assume-mode.

Sensor opcodes (sensors, query_list) print the decoded reply.

Examples:
  tether send start --port /dev/ttyUSB0
  tether send drive_direct 200 200 --sync --port /dev/ttyUSB0
  tether send 142 35 --port /dev/ttyUSB0
  tether send --list`,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().BoolVar(&sendSync, "sync", false, "Read the OI mode from the robot before sending")
	sendCmd.Flags().StringVar(&sendAssumeMode, "assume-mode", "", "Assume the robot is in this mode (off, passive, safe, full)")
	sendCmd.Flags().BoolVar(&sendDryRun, "dry-run", false, "Print the encoded frame without connecting")
	sendCmd.Flags().BoolVar(&sendList, "list", false, "List known opcodes")
}

func runSend(cmd *cobra.Command, args []string) error {
	if sendList {
		printOpcodes()
		return nil
	}
	if len(args) == 0 {
		return fmt.Errorf("an opcode is required")
	}

	op, err := parseOpcode(args[0])
	if err != nil {
		return err
	}
	values := make([]int, 0, len(args)-1)
	for _, a := range args[1:] {
		v, err := strconv.Atoi(a)
		if err != nil {
			return fmt.Errorf("argument %q is not an integer", a)
		}
		values = append(values, v)
	}

	// Validate before opening anything
	frame, err := oi.Encode(op, values...)
	if err != nil {
		return err
	}
	if sendDryRun {
		fmt.Print(oi.FormatFrame(frame))
		return nil
	}

	r, err := OpenRobot()
	if err != nil {
		return err
	}
	defer r.Disconnect()

	if sendAssumeMode != "" {
		m, err := parseMode(sendAssumeMode)
		if err != nil {
			return err
		}
		r.AssumeMode(m)
	}
	if sendSync {
		m, err := r.SyncMode()
		if err != nil {
			return fmt.Errorf("failed to read OI mode: %w", err)
		}
		fmt.Printf("Robot mode: %s\n", m)
	}

	if op == oi.OpSensors || op == oi.OpQueryList {
		ids := make([]oi.PacketID, 0, len(values))
		for _, v := range values {
			ids = append(ids, oi.PacketID(v))
		}
		if op == oi.OpQueryList && len(ids) > 0 {
			ids = ids[1:]
		}
		snap, err := r.QuerySensors(ids...)
		if err != nil {
			return err
		}
		fmt.Print(oi.FormatSnapshot(snap))
		return nil
	}

	if err := r.Send(op, values...); err != nil {
		return err
	}
	fmt.Print(oi.FormatFrame(frame))
	fmt.Printf("Mode: %s\n", r.Mode())
	return nil
}

func printOpcodes() {
	for _, op := range oi.Opcodes() {
		info, _ := oi.LookupOpcode(op)
		names := make([]string, 0, len(info.Args))
		for _, a := range info.Args {
			names = append(names, a.Name)
		}
		fmt.Printf("%3d  %-18s min mode %-8s %v\n", op, info.Name, info.MinMode, names)
	}
}
