// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tether.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, 115200, cfg.Baud)
	assert.Equal(t, time.Second, cfg.Timeout)
	assert.Equal(t, 15*time.Millisecond, cfg.CommandGap)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "", cfg.Metrics.Addr)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
port: /dev/ttyUSB1
baud: 57600
timeout: 250ms
command_gap: 20ms
log:
  level: debug
  format: json
  file: /tmp/tether.log
metrics:
  addr: ":9100"
`)

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB1", cfg.Port)
	assert.Equal(t, "/dev/ttyUSB1", cfg.Address())
	assert.Equal(t, 57600, cfg.Baud)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout)
	assert.Equal(t, 20*time.Millisecond, cfg.CommandGap)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "/tmp/tether.log", cfg.Log.File)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "baud: 57600\nlog:\n  level: warn\n")
	t.Setenv("TETHER_BAUD", "19200")
	t.Setenv("TETHER_LOG_LEVEL", "error")
	t.Setenv("TETHER_URL", "wss://bridge.local/serial")

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, 19200, cfg.Baud)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, "wss://bridge.local/serial", cfg.Address())
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TETHER_BAUD", "19200")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("baud", 115200, "")
	fs.String("port", "", "")
	fs.Duration("command-gap", 15*time.Millisecond, "")
	require.NoError(t, fs.Parse([]string{"--baud", "38400", "--command-gap", "5ms"}))

	v := New()
	require.NoError(t, BindFlags(v, fs))

	cfg, err := Load(v, "")
	require.NoError(t, err)

	assert.Equal(t, 38400, cfg.Baud)
	assert.Equal(t, 5*time.Millisecond, cfg.CommandGap)
}

func TestLoad_UnchangedFlagKeepsEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TETHER_BAUD", "19200")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("baud", 115200, "")
	require.NoError(t, fs.Parse(nil))

	v := New()
	require.NoError(t, BindFlags(v, fs))

	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, 19200, cfg.Baud)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"baud", "baud: 12345\n"},
		{"timeout", "timeout: 0s\n"},
		{"command gap", "command_gap: -1ms\n"},
		{"log format", "log:\n  format: xml\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(New(), writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent of testing.T.Chdir, Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
