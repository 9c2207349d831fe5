// SPDX-License-Identifier: MIT
package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sessionkey/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) (*config.Config, string, error) {
	t.Helper()
	var out bytes.Buffer
	cfg, err := ParseArgs(args, &out)
	return cfg, out.String(), err
}

func TestParseArgs_NothingToRun(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"No arguments prints help", nil, "Usage:"},
		{"Help flag", []string{"--help"}, "analyze"},
		{"Version flag", []string{"--version"}, "dev"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, out, err := parse(t, tt.args...)
			require.NoError(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestParseArgs_Serve(t *testing.T) {
	cfg, _, err := parse(t, "serve",
		"--addr", ":6000",
		"--workers", "3",
		"--queue-depth", "7",
		"--history", "history.json",
		"--udp", "127.0.0.1:9999",
		"--no-websocket",
		"--log-level", "warn",
	)
	require.NoError(t, err)

	assert.Equal(t, CommandServe, cfg.Command)
	assert.Equal(t, ":6000", cfg.Server.Addr)
	assert.Equal(t, 3, cfg.Server.Workers)
	assert.Equal(t, 7, cfg.Server.QueueDepth)
	assert.Equal(t, "history.json", cfg.History.Path)
	assert.True(t, cfg.Transport.UDPEnabled)
	assert.Equal(t, "127.0.0.1:9999", cfg.Transport.UDPTargetAddress)
	assert.False(t, cfg.Transport.WebSocketEnabled)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestParseArgs_DefaultsSurviveWithoutFlags(t *testing.T) {
	cfg, _, err := parse(t, "serve")
	require.NoError(t, err)

	def := config.Default()
	assert.Equal(t, def.Server.Addr, cfg.Server.Addr)
	assert.Equal(t, def.Server.Workers, cfg.Server.Workers)
	assert.Equal(t, def.Transport.WebSocketEnabled, cfg.Transport.WebSocketEnabled)
	assert.False(t, cfg.Transport.UDPEnabled)
}

func TestParseArgs_Analyze(t *testing.T) {
	cfg, _, err := parse(t, "analyze", "a.wav", "b.mp3",
		"--output", "json",
		"--min-confidence", "12.5",
		"--max-duration", "30s",
	)
	require.NoError(t, err)

	assert.Equal(t, CommandAnalyze, cfg.Command)
	assert.Equal(t, []string{"a.wav", "b.mp3"}, cfg.Args)
	assert.Equal(t, "json", cfg.Output)
	assert.Equal(t, 12.5, cfg.Analysis.MinConfidence)
	assert.Equal(t, 30*time.Second, cfg.Decode.MaxDuration)
}

func TestParseArgs_Record(t *testing.T) {
	dir := t.TempDir()
	cfg, _, err := parse(t, "record",
		"-d", "2",
		"--channels", "2",
		"-s", "48000",
		"-t", "5s",
		"-l",
		"--bit-depth", "24",
		"-o", dir,
	)
	require.NoError(t, err)

	r := cfg.Recording
	assert.Equal(t, CommandRecord, cfg.Command)
	assert.Equal(t, 2, r.InputDevice)
	assert.Equal(t, 2, r.Channels)
	assert.Equal(t, 48000.0, r.SampleRate)
	assert.Equal(t, 5*time.Second, r.Duration)
	assert.True(t, r.LowLatency)
	assert.Equal(t, 24, r.BitDepth)
	assert.Equal(t, dir, r.OutputDir)
}

func TestParseArgs_DebugRaisesLogLevel(t *testing.T) {
	cfg, _, err := parse(t, "--debug", "keys")
	require.NoError(t, err)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "debug", cfg.LogLevel)

	cfg, _, err = parse(t, "keys", "--debug", "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel, "an explicit level wins over --debug")
}

func TestParseArgs_ConfigFileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessionkey.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\nserver:\n  addr: \":7000\"\n"), 0644))

	cfg, _, err := parse(t, "--config", path, "serve")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, ":7000", cfg.Server.Addr)

	cfg, _, err = parse(t, "-c", path, "serve", "--addr", ":7001")
	require.NoError(t, err)
	assert.Equal(t, ":7001", cfg.Server.Addr)
}

func TestParseArgs_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		invalid bool
	}{
		{"Unknown command", []string{"transcribe"}, false},
		{"Analyze without files", []string{"analyze"}, false},
		{"Unexpected argument", []string{"keys", "extra"}, false},
		{"Unknown flag", []string{"serve", "--turbo"}, false},
		{"Bad output format", []string{"analyze", "a.wav", "--output", "xml"}, true},
		{"No workers", []string{"serve", "--workers", "0"}, true},
		{"Bad log level", []string{"keys", "--log-level", "chatty"}, true},
		{"Missing config file", []string{"--config", "nonexistent.yaml", "keys"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _, err := parse(t, tt.args...)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Equal(t, tt.invalid, errors.Is(err, config.ErrInvalid), "error: %v", err)
		})
	}
}
