// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tetherlab/tether/internal/robot"
	"github.com/tetherlab/tether/internal/transport"
	"github.com/tetherlab/tether/pkg/oi"
)

var (
	streamShowAll       bool
	streamStatsInterval time.Duration
	streamTUI           bool
	streamStart         bool
)

var streamCmd = &cobra.Command{
	Use:   "stream [packet...]",
	Short: "Stream sensor packets and track frame errors",
	Long: `Ask the robot to stream sensor packets every 15 ms and validate each frame.

Every frame is checksummed, decoded and checked for implausible values
(unknown enum values, charge above capacity, out-of-range voltage,
temperature or velocity). Statistics are kept for frame and error rates.

Packets may be given by ID or name. The default is group 0 plus the OI mode
packet. Streaming needs at least the Passive mode; use --start to send START
first.

By default, only errors are displayed in text mode. Use --show-all to display
valid frames too.`,
	RunE: runStream,
}

func init() {
	rootCmd.AddCommand(streamCmd)
	streamCmd.Flags().BoolVar(&streamShowAll, "show-all", false, "Show all frames (not just errors)")
	streamCmd.Flags().DurationVar(&streamStatsInterval, "stats-interval", 10*time.Second, "Statistics interval (text mode)")
	streamCmd.Flags().BoolVar(&streamTUI, "tui", true, "Use terminal UI (false for text mode)")
	streamCmd.Flags().BoolVar(&streamStart, "start", false, "Send START before streaming")
}

func runStream(cmd *cobra.Command, args []string) error {
	ids, err := parsePacketIDs(args, oi.GroupBasic, oi.PacketOIMode)
	if err != nil {
		return err
	}

	r, err := OpenRobot()
	if err != nil {
		return err
	}
	defer r.Disconnect()

	if err := prepareMode(r, streamStart); err != nil {
		return err
	}

	if streamTUI {
		return runStreamTUI(r, ids)
	}
	return runStreamText(r, ids)
}

// isLinkFailure reports whether err ends the stream.
func isLinkFailure(err error) bool {
	var ioErr *transport.IOError
	return errors.Is(err, transport.ErrNotConnected) || errors.As(err, &ioErr)
}

func runStreamTUI(r *robot.Robot, ids []oi.PacketID) error {
	p := tea.NewProgram(initialStreamModel(connectionInfo(), ids, streamShowAll))

	err := r.StartStream(ids, func(snap *oi.Snapshot, err error) {
		observeSnapshot(err)
		if err != nil {
			if isLinkFailure(err) {
				p.Send(linkLostMsg{err: err})
				return
			}
			p.Send(streamDataMsg{decodeErr: err})
			return
		}
		p.Send(streamDataMsg{snap: snap, validationErrors: oi.ValidateSnapshot(snap)})
	})
	if err != nil {
		return err
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return r.StopStream()
}

func runStreamText(r *robot.Robot, ids []oi.PacketID) error {
	fmt.Printf("Tether - Sensor Stream\n")
	fmt.Printf("Connection: %s\n", connectionInfo())
	fmt.Printf("Statistics interval: %v\n", streamStatsInterval)
	if streamShowAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	type result struct {
		snap *oi.Snapshot
		err  error
	}
	results := make(chan result, 64)

	err := r.StartStream(ids, func(snap *oi.Snapshot, err error) {
		results <- result{snap, err}
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats := oi.NewStatistics()
	statsTicker := time.NewTicker(streamStatsInterval)
	defer statsTicker.Stop()

	synchronized := false
	for {
		select {
		case res := <-results:
			observeSnapshot(res.err)
			if res.err != nil {
				if isLinkFailure(res.err) {
					return res.err
				}
				// Ignore rejected frames until the first good one
				if !synchronized {
					continue
				}
				stats.Update(nil, res.err, nil)
				fmt.Printf("[%s] \033[1;31mFRAME REJECTED:\033[0m %v\n\n", time.Now().Format("15:04:05.000"), res.err)
				continue
			}

			if !synchronized {
				synchronized = true
				fmt.Printf("[SYNC] Synchronized\n\n")
			}

			validationErrors := oi.ValidateSnapshot(res.snap)
			stats.Update(res.snap, nil, validationErrors)
			if len(validationErrors) > 0 {
				printAnomalies(res.snap, validationErrors)
			} else if streamShowAll {
				fmt.Print(oi.FormatSnapshot(res.snap))
			}

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()

		case <-ctx.Done():
			// Free the reader if it is blocked on a full channel
			go func() {
				for range results {
				}
			}()
			err := r.StopStream()
			close(results)
			fmt.Println()
			fmt.Print(stats.String())
			return err
		}
	}
}

// printAnomalies prints validation errors for a frame in highlighted format
func printAnomalies(snap *oi.Snapshot, errs []oi.ValidationError) {
	fmt.Printf("[%s] \033[1;33mANOMALY:\033[0m %d packets\n", snap.Timestamp().Format("15:04:05.000"), snap.Len())
	for i, e := range errs {
		fmt.Printf("  Issue %d: %s\n", i+1, e.Message)
	}
	fmt.Printf("  >>> FRAME FLAGGED <<<\n\n")
}
