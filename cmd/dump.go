// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tetherlab/tether/internal/recorder"
	"github.com/tetherlab/tether/pkg/oi"
)

var dumpYAML bool

var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print a CBOR sensor log",
	Long: `Decode a log written by 'tether record' and print every record.

With --yaml each record is emitted as a YAML document with packet names as
keys, for feeding into other tools.`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().BoolVar(&dumpYAML, "yaml", false, "Emit YAML documents")
}

// dumpRecord is the YAML shape of one record.
type dumpRecord struct {
	Time     string         `yaml:"time"`
	Session  string         `yaml:"session,omitempty"`
	Error    string         `yaml:"error,omitempty"`
	Mode     string         `yaml:"mode,omitempty"`
	Packets  map[string]int `yaml:"packets,omitempty"`
	Warnings []string       `yaml:"warnings,omitempty"`
}

func runDump(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %v", args[0], err)
	}
	defer f.Close()

	var enc *yaml.Encoder
	if dumpYAML {
		enc = yaml.NewEncoder(os.Stdout)
		defer enc.Close()
	}

	reader := recorder.NewReader(f)
	count := 0
	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("record %d: %w", count+1, err)
		}
		count++

		if enc != nil {
			if err := enc.Encode(toDumpRecord(rec)); err != nil {
				return err
			}
			continue
		}
		printRecord(rec)
	}

	if enc == nil {
		fmt.Printf("%d records\n", count)
	}
	return nil
}

func toDumpRecord(rec *recorder.Record) dumpRecord {
	out := dumpRecord{
		Time:    rec.Time().Format("2006-01-02T15:04:05.000000Z07:00"),
		Session: rec.Session,
		Error:   rec.Error,
	}
	snap, err := rec.Snapshot()
	if err != nil {
		if out.Error == "" {
			out.Error = err.Error()
		}
		return out
	}
	out.Packets = make(map[string]int, snap.Len())
	for _, id := range snap.IDs() {
		out.Packets[oi.FormatPacketID(id)] = snap.Int(id)
	}
	if m := snap.Mode(); m != oi.ModeUnknown {
		out.Mode = m.String()
	}
	for _, w := range snap.Warnings() {
		out.Warnings = append(out.Warnings, w.Error())
	}
	return out
}

func printRecord(rec *recorder.Record) {
	ts := rec.Time().Format("2006-01-02 15:04:05.000")
	if rec.Error != "" {
		fmt.Printf("[%s] \033[1;31mERROR:\033[0m %s\n\n", ts, rec.Error)
		return
	}
	snap, err := rec.Snapshot()
	if err != nil {
		fmt.Printf("[%s] \033[1;31mDECODE ERROR:\033[0m %v\n\n", ts, err)
		return
	}
	fmt.Printf("[%s] session %s\n", ts, rec.Session)
	fmt.Print(oi.FormatSnapshot(snap))
	fmt.Println()
}
