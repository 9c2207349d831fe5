// SPDX-License-Identifier: MIT
package decode

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"sessionkey/pkg/utils"
)

// writeTool writes an executable shell script standing in for ffmpeg or
// ffprobe.
func writeTool(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// writeRawF32 writes samples the way ffmpeg emits -f f32le.
func writeRawF32(t *testing.T, path string, samples []float64) {
	t.Helper()
	raw := make([]byte, 4*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(float32(s)))
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write raw samples: %v", err)
	}
}

func TestDecodeWithFFmpeg(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script tools")
	}

	bin := t.TempDir()
	raw := filepath.Join(bin, "tone.f32")
	writeRawF32(t, raw, utils.GenerateSineWave(2*testRate, testRate, 440, 0.5))

	ran := filepath.Join(bin, "ffmpeg-ran")
	probed := filepath.Join(bin, "probed")
	probeOK := func(secs string) string {
		// The input path is the last argument.
		return `for last; do :; done; printf '%s' "$last" > ` + probed + "\necho " + secs
	}

	tests := []struct {
		name      string
		ffprobe   string
		ffmpeg    string
		want      error
		wantRun   bool
		wantFrame int
	}{
		{
			name:    "Probe fails",
			ffprobe: "exit 1",
			ffmpeg:  "touch " + ran,
			want:    ErrUnsupported,
		},
		{
			name:    "Too long",
			ffprobe: probeOK("90.0"),
			ffmpeg:  "touch " + ran,
			want:    ErrTooLong,
		},
		{
			name:    "Decoder exits non-zero",
			ffprobe: probeOK("2.0"),
			ffmpeg:  "touch " + ran + "\necho 'Invalid data found when processing input' >&2\nexit 1",
			want:    ErrCorrupt,
			wantRun: true,
		},
		{
			name:      "Success",
			ffprobe:   probeOK("2.0"),
			ffmpeg:    "touch " + ran + "\ncat " + raw,
			wantRun:   true,
			wantFrame: 2 * testRate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Remove(ran)
			os.Remove(probed)

			tmp := t.TempDir()
			t.Setenv("TMPDIR", tmp)

			tools := t.TempDir()
			d := New(Options{
				SampleRate:  testRate,
				MinDuration: time.Second,
				MaxDuration: 60 * time.Second,
				FFmpegPath:  writeTool(t, tools, "ffmpeg", tt.ffmpeg),
				FFprobePath: writeTool(t, tools, "ffprobe", tt.ffprobe),
			})
			if !d.SupportsContainers() {
				t.Fatal("decoder did not pick up the ffmpeg tool")
			}

			clip := Clip{Name: "take.mp3", ContentType: "audio/mpeg", Data: []byte("ID3\x04 not really mp3")}
			pcm, err := d.Decode(context.Background(), clip)

			if tt.want != nil {
				if !errors.Is(err, tt.want) {
					t.Errorf("Decode() error = %v, want %v", err, tt.want)
				}
			} else if err != nil {
				t.Fatalf("Decode() error = %v", err)
			} else if len(pcm.Samples) != tt.wantFrame || pcm.SampleRate != testRate {
				t.Errorf("Decode() = %d samples at %d Hz, want %d at %d Hz", len(pcm.Samples), pcm.SampleRate, tt.wantFrame, testRate)
			}

			if _, err := os.Stat(ran); (err == nil) != tt.wantRun {
				t.Errorf("ffmpeg ran = %v, want %v", err == nil, tt.wantRun)
			}
			if seen, err := os.ReadFile(probed); err == nil {
				if !strings.HasPrefix(string(seen), tmp) || !strings.HasSuffix(string(seen), ".mp3") {
					t.Errorf("probed %q, want a .mp3 temp file under %s", seen, tmp)
				}
			}

			entries, err := os.ReadDir(tmp)
			if err != nil {
				t.Fatalf("ReadDir: %v", err)
			}
			for _, e := range entries {
				if strings.HasPrefix(e.Name(), "sessionkey-") {
					t.Errorf("temp file %s left behind", e.Name())
				}
			}
		})
	}
}
