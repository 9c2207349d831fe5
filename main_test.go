// SPDX-License-Identifier: MIT
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sessionkey/cmd"
	"sessionkey/internal/config"
	"sessionkey/internal/log"
	"sessionkey/internal/pipeline"
	"sessionkey/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(command string, args ...string) *config.Config {
	cfg := config.Default()
	cfg.Command = command
	cfg.Args = args
	cfg.Server.Workers = 2
	cfg.Server.QueueDepth = 2
	cfg.Decode.FFmpegPath = ""
	return cfg
}

// writeMinorChord writes a two second A minor triad as 16-bit WAV.
func writeMinorChord(t *testing.T, dir, name string) string {
	t.Helper()
	const rate = config.DefaultSampleRate
	samples := utils.GenerateChord(2*rate, rate, 0.3,
		utils.NoteFrequency(9, 4), utils.NoteFrequency(0, 5), utils.NoteFrequency(4, 5))
	path := filepath.Join(dir, name)
	require.NoError(t, utils.WriteWAV(path, samples, rate, 1, 16))
	return path
}

func TestRunKeys(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), testConfig(cmd.CommandKeys), &out, io.Discard))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 25, "header plus 24 keys")
	assert.Contains(t, lines[0], "RELATIVE")

	var aMinor string
	for _, l := range lines {
		if strings.HasPrefix(l, "A Minor ") {
			aMinor = l
		}
	}
	require.NotEmpty(t, aMinor)
	assert.Contains(t, aMinor, "C Major")
}

func TestRunVersion(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), testConfig(cmd.CommandVersion), &out, io.Discard))
	assert.Contains(t, out.String(), "sessionkey")
}

func TestRunUnknownCommand(t *testing.T) {
	err := run(context.Background(), testConfig("transcribe"), io.Discard, io.Discard)
	assert.ErrorContains(t, err, "unknown command")
}

func TestRunAnalyze(t *testing.T) {
	dir := t.TempDir()
	good := writeMinorChord(t, dir, "chord.wav")
	notAudio := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notAudio, []byte("not audio at all"), 0644))
	missing := filepath.Join(dir, "missing.wav")

	cfg := testConfig(cmd.CommandAnalyze, good, notAudio, missing)
	cfg.Output = "json"

	var out bytes.Buffer
	err := run(context.Background(), cfg, &out, io.Discard)
	assert.ErrorContains(t, err, "2 of 3 files failed")

	var reports []fileReport
	dec := json.NewDecoder(&out)
	for dec.More() {
		var r fileReport
		require.NoError(t, dec.Decode(&r))
		reports = append(reports, r)
	}
	require.Len(t, reports, 3)

	assert.Equal(t, good, reports[0].File, "reports keep the argument order")
	require.NotNil(t, reports[0].Result, "error: %s", reports[0].Error)
	assert.Equal(t, "A Minor", reports[0].Result.Key)
	assert.Equal(t, pipeline.KeyDetermined, reports[0].Result.KeyStatus)

	assert.Nil(t, reports[1].Result)
	assert.NotEmpty(t, reports[1].Error)
	assert.Nil(t, reports[2].Result)
	assert.NotEmpty(t, reports[2].Error)
}

func TestRunAnalyzeTable(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(cmd.CommandAnalyze,
		writeMinorChord(t, dir, "one.wav"),
		writeMinorChord(t, dir, "two.wav"),
		writeMinorChord(t, dir, "three.wav"))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, &out, io.Discard))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "PROGRESSION")
	for _, l := range lines[1:] {
		assert.Contains(t, l, "A min")
	}
}

func TestRunAnalyzeDebugLogsEachStageOnce(t *testing.T) {
	var logs bytes.Buffer
	log.SetOutput(&logs)
	prev := log.GetLevel()
	log.SetLevel(log.LevelDebug)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetLevel(prev)
	})

	cfg := testConfig(cmd.CommandAnalyze, writeMinorChord(t, t.TempDir(), "chord.wav"))
	cfg.Debug = true
	require.NoError(t, run(context.Background(), cfg, io.Discard, io.Discard))

	assert.Equal(t, 1, strings.Count(logs.String(), "stage decode"), logs.String())
	assert.Equal(t, 1, strings.Count(logs.String(), "stage assemble"))
}

func TestNewServiceWiring(t *testing.T) {
	cfg := testConfig(cmd.CommandServe)
	cfg.History.Path = filepath.Join(t.TempDir(), "history.json")
	cfg.Transport.UDPEnabled = true
	cfg.Transport.UDPTargetAddress = "127.0.0.1:9"
	cfg.Transport.LogEvents = true

	svc, err := newService(cfg, true)
	require.NoError(t, err)
	defer svc.Close()

	assert.NotNil(t, svc.ws)
	assert.NotNil(t, svc.events)
	assert.Equal(t, cfg.History.Path, svc.history.Path())
	assert.True(t, svc.services["history"])
	assert.True(t, svc.services["websocket"])
	assert.True(t, svc.services["udp"])
	assert.False(t, svc.services["recognition"])
	assert.Equal(t, 2, svc.pool.Workers())
}

func TestNewServiceWithoutWebSocket(t *testing.T) {
	svc, err := newService(testConfig(cmd.CommandAnalyze), false)
	require.NoError(t, err)
	defer svc.Close()

	assert.Nil(t, svc.ws)
	assert.Nil(t, svc.events)
	assert.False(t, svc.services["websocket"])
}

func TestShortKey(t *testing.T) {
	assert.Equal(t, "F# min", shortKey("F# Minor"))
	assert.Equal(t, "C maj", shortKey("C Major"))
	assert.Equal(t, "-", shortKey(pipeline.UndeterminedKey))
}
