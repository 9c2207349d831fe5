// SPDX-License-Identifier: MIT
//
// Package decode turns uploaded audio bytes into mono PCM at the analysis
// sample rate. WAV is decoded natively; other containers go through ffmpeg
// when it is available.
package decode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"sessionkey/internal/analysis"
	"sessionkey/internal/log"
)

// Clip is an uploaded audio file. It is never modified after upload.
type Clip struct {
	Name        string
	ContentType string
	Data        []byte
}

// Options configures a Decoder.
type Options struct {
	SampleRate  int
	MinDuration time.Duration
	MaxDuration time.Duration
	FFmpegPath  string // "" disables non-WAV input
	FFprobePath string
}

// Decoder converts clips to analysis PCM. It holds no per-call state and
// is safe for concurrent use.
type Decoder struct {
	opts   Options
	ffmpeg *ffmpeg
}

// New creates a decoder. A configured but missing ffmpeg binary is logged
// and treated as disabled.
func New(opts Options) *Decoder {
	d := &Decoder{opts: opts}
	if opts.FFmpegPath == "" {
		return d
	}

	ffmpegPath, err := exec.LookPath(opts.FFmpegPath)
	if err != nil {
		log.Warnf("Decode: ffmpeg not found (%v), only WAV input is accepted", err)
		return d
	}
	ffprobePath := ""
	if opts.FFprobePath != "" {
		if p, err := exec.LookPath(opts.FFprobePath); err == nil {
			ffprobePath = p
		} else {
			log.Warnf("Decode: ffprobe not found (%v), duration is checked after decoding", err)
		}
	}
	d.ffmpeg = &ffmpeg{path: ffmpegPath, probePath: ffprobePath}
	return d
}

// SupportsContainers reports whether non-WAV input can be decoded.
func (d *Decoder) SupportsContainers() bool {
	return d.ffmpeg != nil
}

// Decode validates the clip and returns mono PCM at the configured rate.
// The duration bounds are checked from the container header before any
// sample is decoded whenever the header carries the length.
func (d *Decoder) Decode(ctx context.Context, clip Clip) (analysis.PCM, error) {
	if len(clip.Data) == 0 {
		return analysis.PCM{}, newError(ErrEmpty, "no bytes received")
	}

	var (
		samples []float64
		rate    int
		err     error
	)
	switch {
	case isWAV(clip.Data):
		samples, rate, err = d.decodeWAV(clip.Data)
		if errors.Is(err, ErrUnsupported) && d.ffmpeg != nil {
			// Compressed WAV payloads are left to ffmpeg.
			samples, err = d.ffmpeg.decode(ctx, clip, d.opts.SampleRate, d.checkDuration)
			rate = d.opts.SampleRate
		}
	case d.ffmpeg != nil:
		samples, err = d.ffmpeg.decode(ctx, clip, d.opts.SampleRate, d.checkDuration)
		rate = d.opts.SampleRate
	default:
		return analysis.PCM{}, newError(ErrUnsupported, fmt.Sprintf("%s (%s) is not WAV", clip.Name, clip.ContentType))
	}
	if err != nil {
		return analysis.PCM{}, err
	}

	pcm := analysis.PCM{Samples: resample(samples, rate, d.opts.SampleRate), SampleRate: d.opts.SampleRate}

	// Headers can lie about the data length; check what was actually read.
	if err := d.checkDuration(pcm.Duration()); err != nil {
		return analysis.PCM{}, err
	}
	return pcm, nil
}

func (d *Decoder) checkDuration(dur time.Duration) error {
	if dur < d.opts.MinDuration {
		return newError(ErrTooShort, fmt.Sprintf("%.2fs is below the %s minimum", dur.Seconds(), d.opts.MinDuration))
	}
	if d.opts.MaxDuration > 0 && dur > d.opts.MaxDuration {
		return newError(ErrTooLong, fmt.Sprintf("%.2fs exceeds the %s maximum", dur.Seconds(), d.opts.MaxDuration))
	}
	return nil
}

func isWAV(data []byte) bool {
	return len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE"))
}
