// SPDX-License-Identifier: MIT
package decode

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// decodeWAV reads an integer PCM WAV and returns mono samples at the file's
// own rate. The duration bounds are checked from the data chunk size before
// the samples are read.
func (d *Decoder) decodeWAV(data []byte) ([]float64, int, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if err := dec.FwdToPCM(); err != nil {
		return nil, 0, newError(ErrCorrupt, err.Error())
	}

	rate := int(dec.SampleRate)
	channels := int(dec.NumChans)
	bitDepth := int(dec.BitDepth)
	if rate <= 0 || channels <= 0 || bitDepth <= 0 {
		return nil, 0, newError(ErrCorrupt, "missing or invalid fmt chunk")
	}
	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return nil, 0, newError(ErrUnsupported, fmt.Sprintf("WAV encoding %d is not integer PCM", dec.WavAudioFormat))
	}
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, 0, newError(ErrUnsupported, fmt.Sprintf("%d-bit WAV", bitDepth))
	}

	frameBytes := int64(channels * bitDepth / 8)
	frames := dec.PCMLen() / frameBytes
	if err := d.checkDuration(time.Duration(frames) * time.Second / time.Duration(rate)); err != nil {
		return nil, 0, err
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, newError(ErrCorrupt, err.Error())
	}
	if len(buf.Data) < channels {
		return nil, 0, newError(ErrCorrupt, "no samples in data chunk")
	}

	return downmix(buf.Data, channels, bitDepth), rate, nil
}

// downmix averages interleaved integer samples into mono floats in [-1, 1].
func downmix(data []int, channels, bitDepth int) []float64 {
	scale := math.Pow(2, float64(bitDepth-1))
	offset := 0.0
	if bitDepth == 8 {
		// 8-bit WAV is unsigned.
		offset = scale
	}

	frames := len(data) / channels
	out := make([]float64, frames)
	for i := range frames {
		var sum float64
		for ch := range channels {
			sum += (float64(data[i*channels+ch]) - offset) / scale
		}
		out[i] = sum / float64(channels)
	}
	return out
}
