// SPDX-License-Identifier: MIT
package utils

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV encodes interleaved float samples in [-1, 1] as PCM WAV at path.
func WriteWAV(path string, samples []float64, sampleRate, channels, bitDepth int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := wav.NewEncoder(file, sampleRate, bitDepth, channels, 1)
	scale := math.Pow(2, float64(bitDepth-1)) - 1
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: bitDepth,
	}
	for i, s := range samples {
		buf.Data[i] = int(math.Round(math.Max(-1, math.Min(1, s)) * scale))
	}

	if err := enc.Write(buf); err != nil {
		file.Close()
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		file.Close()
		return fmt.Errorf("finalize wav: %w", err)
	}
	return file.Close()
}

// EncodeWAV returns the bytes of a WAV file holding the samples. The
// encoder needs to seek back to patch the header, so it goes through a
// temporary file.
func EncodeWAV(samples []float64, sampleRate, channels, bitDepth int) ([]byte, error) {
	tmp, err := os.CreateTemp("", "sessionkey-*.wav")
	if err != nil {
		return nil, err
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	if err := WriteWAV(path, samples, sampleRate, channels, bitDepth); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}
