// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/tetherlab/tether/internal/robot"
	"github.com/tetherlab/tether/internal/transport"
	"github.com/tetherlab/tether/pkg/oi"
)

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv("TETHER_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// openPort picks the opener for robot links. Tests replace it.
var openPort = func(d *transport.Dialer) transport.Opener {
	return d.Open
}

// newRobot builds a disconnected robot from the resolved config.
func newRobot() (*robot.Robot, error) {
	dialer := &transport.Dialer{SkipSSLVerify: cfg.NoSSLVerify}
	if cfg.URL != "" && cfg.Username != "" {
		password, err := GetPassword()
		if err != nil {
			return nil, err
		}
		dialer.Username = cfg.Username
		dialer.Password = password
	}

	opts := robot.Options{
		Transport: transport.Options{
			Opener:     openPort(dialer),
			CommandGap: cfg.CommandGap,
		},
		Timeout: cfg.Timeout,
		Logger:  logger.Named("robot"),
	}
	if linkMetrics != nil {
		opts.Transport.Observer = linkMetrics
	}
	return robot.New(opts), nil
}

// connectionInfo describes the configured link for banners.
func connectionInfo() string {
	if cfg.URL != "" {
		return fmt.Sprintf("WebSocket: %s", cfg.URL)
	}
	return fmt.Sprintf("Serial: %s @ %d baud", cfg.Port, cfg.Baud)
}

// OpenRobot connects to the robot named by --port or --url.
func OpenRobot() (*robot.Robot, error) {
	address := cfg.Address()
	if address == "" {
		return nil, fmt.Errorf("either --port or --url must be specified")
	}

	r, err := newRobot()
	if err != nil {
		return nil, err
	}
	if err := r.Connect(address, cfg.Baud); err != nil {
		return nil, err
	}
	return r, nil
}

// prepareMode readies a fresh connection for sensor traffic. A new link
// starts out assuming OFF, so either send START or read the robot's mode.
func prepareMode(r *robot.Robot, start bool) error {
	if start {
		return r.Start()
	}
	mode, err := r.SyncMode()
	if err != nil {
		return fmt.Errorf("failed to read OI mode: %w", err)
	}
	if mode == oi.ModeOff {
		return fmt.Errorf("robot reports OI mode %s; use --start to send START", mode)
	}
	logger.Debug("Robot mode read", zap.Stringer("mode", mode))
	return nil
}

// parsePacketIDs resolves numeric ids and packet names. No arguments
// selects fallback.
func parsePacketIDs(args []string, fallback ...oi.PacketID) ([]oi.PacketID, error) {
	if len(args) == 0 {
		return fallback, nil
	}
	ids := make([]oi.PacketID, 0, len(args))
	for _, arg := range args {
		id, err := parsePacketID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parsePacketID(arg string) (oi.PacketID, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 0 || n > 255 {
			return 0, fmt.Errorf("packet id %d out of range", n)
		}
		id := oi.PacketID(n)
		if _, err := oi.Expand(id); err != nil {
			return 0, err
		}
		return id, nil
	}
	if id, ok := oi.PacketByName(arg); ok {
		return id, nil
	}
	return 0, fmt.Errorf("unknown sensor packet %q", arg)
}

// parseOpcode resolves a numeric opcode or an opcode name.
func parseOpcode(arg string) (oi.Opcode, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 0 || n > 255 {
			return 0, fmt.Errorf("opcode %d out of range", n)
		}
		op := oi.Opcode(n)
		if _, ok := oi.LookupOpcode(op); !ok {
			return 0, fmt.Errorf("unknown opcode %d", n)
		}
		return op, nil
	}
	if op, ok := oi.OpcodeByName(arg); ok {
		return op, nil
	}
	return 0, fmt.Errorf("unknown opcode %q", arg)
}

// parseMode resolves a mode name such as "safe".
func parseMode(arg string) (oi.Mode, error) {
	for _, m := range []oi.Mode{oi.ModeOff, oi.ModePassive, oi.ModeSafe, oi.ModeFull} {
		if strings.EqualFold(m.String(), arg) {
			return m, nil
		}
	}
	return oi.ModeUnknown, fmt.Errorf("unknown mode %q (use off, passive, safe or full)", arg)
}
