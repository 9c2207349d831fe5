// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Take is a captured clip of interleaved full-scale 32-bit samples.
type Take struct {
	Samples    []int32
	Channels   int
	SampleRate int
}

// Frames is the number of sample frames in the take.
func (t Take) Frames() int {
	if t.Channels < 1 {
		return 0
	}
	return len(t.Samples) / t.Channels
}

// Duration is the length of the take.
func (t Take) Duration() time.Duration {
	if t.SampleRate <= 0 {
		return 0
	}
	return time.Duration(t.Frames()) * time.Second / time.Duration(t.SampleRate)
}

// Peak is the largest absolute sample as a fraction of full scale.
func (t Take) Peak() float64 {
	return math.Min(1, float64(t.peak())/float64(math.MaxInt32))
}

func (t Take) peak() int64 {
	return peakAmplitude(t.Samples)
}

// TakeFileName names a take by its capture time.
func TakeFileName(at time.Time) string {
	return "take-" + at.UTC().Format("20060102-150405") + ".wav"
}

// WriteWAV saves the take as PCM WAV at the given bit depth (16, 24 or 32).
// Samples are truncated to the target depth.
func (t Take) WriteWAV(filename string, bitDepth int) error {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
	if t.Channels < 1 || t.SampleRate <= 0 {
		return fmt.Errorf("invalid take format: %d channels at %d Hz", t.Channels, t.SampleRate)
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	wavEncoder := wav.NewEncoder(file, t.SampleRate, bitDepth, t.Channels, 1)

	shift := 32 - bitDepth
	sampleBuf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: t.Channels,
			SampleRate:  t.SampleRate,
		},
		Data:           make([]int, len(t.Samples)),
		SourceBitDepth: bitDepth,
	}
	for i, sample := range t.Samples {
		sampleBuf.Data[i] = int(sample >> shift)
	}

	if err := wavEncoder.Write(sampleBuf); err != nil {
		file.Close()
		return fmt.Errorf("error writing to WAV file: %w", err)
	}
	if err := wavEncoder.Close(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
