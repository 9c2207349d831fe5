// SPDX-License-Identifier: MIT
package decode

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ffmpeg decodes arbitrary containers by shelling out to the ffmpeg tools.
type ffmpeg struct {
	path      string
	probePath string // "" skips the pre-decode duration probe
}

var contentTypeExt = map[string]string{
	"audio/mpeg":   ".mp3",
	"audio/mp3":    ".mp3",
	"audio/mp4":    ".m4a",
	"audio/x-m4a":  ".m4a",
	"audio/aac":    ".aac",
	"audio/ogg":    ".ogg",
	"audio/flac":   ".flac",
	"audio/x-flac": ".flac",
	"audio/webm":   ".webm",
	"audio/wav":    ".wav",
	"audio/x-wav":  ".wav",
}

// decode writes the clip to a temporary file, probes its duration and then
// decodes it to mono float32 at sampleRate. The temporary file is removed
// on every path out.
func (f *ffmpeg) decode(ctx context.Context, clip Clip, sampleRate int, check func(time.Duration) error) ([]float64, error) {
	tmp, err := os.CreateTemp("", "sessionkey-*"+extension(clip))
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	_, err = tmp.Write(clip.Data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("write temp file: %w", err)
	}

	if f.probePath != "" {
		dur, err := f.probe(ctx, path)
		if err != nil {
			return nil, err
		}
		if err := check(dur); err != nil {
			return nil, err
		}
	}

	return f.run(ctx, path, sampleRate)
}

func (f *ffmpeg) probe(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, f.probePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, newError(ErrUnsupported, "not a recognized audio container")
	}

	secs, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil || math.IsNaN(secs) || secs < 0 {
		return 0, newError(ErrCorrupt, "container reports no duration")
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func (f *ffmpeg) run(ctx context.Context, path string, sampleRate int) ([]float64, error) {
	cmd := exec.CommandContext(ctx, f.path,
		"-v", "error",
		"-i", path,
		"-vn",
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	// Ensure process is killed and reaped on any exit path.
	waited := false
	defer func() {
		if !waited && cmd.Process != nil {
			cmd.Process.Kill()
			cmd.Wait()
		}
	}()

	raw, err := io.ReadAll(stdout)
	if err != nil {
		return nil, fmt.Errorf("read ffmpeg output: %w", err)
	}
	waited = true
	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, newError(ErrCorrupt, strings.TrimSpace(stderr.String()))
	}

	samples := make([]float64, len(raw)/4)
	for i := range samples {
		samples[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
	}
	return samples, nil
}

func extension(clip Clip) string {
	if ext := filepath.Ext(clip.Name); ext != "" && len(ext) <= 6 {
		return strings.ToLower(ext)
	}
	ct := strings.TrimSpace(strings.SplitN(clip.ContentType, ";", 2)[0])
	return contentTypeExt[strings.ToLower(ct)]
}
