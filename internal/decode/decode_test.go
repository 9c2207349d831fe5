// SPDX-License-Identifier: MIT
package decode

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"sessionkey/pkg/utils"
)

const testRate = 22050

func newTestDecoder() *Decoder {
	return New(Options{
		SampleRate:  testRate,
		MinDuration: time.Second,
		MaxDuration: 60 * time.Second,
	})
}

func wavClip(t *testing.T, samples []float64, rate, channels, bitDepth int) Clip {
	t.Helper()
	data, err := utils.EncodeWAV(samples, rate, channels, bitDepth)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	return Clip{Name: "clip.wav", ContentType: "audio/wav", Data: data}
}

func TestDecodeWAV(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		rate     int
		channels int
		bitDepth int
		seconds  float64
	}{
		{"Mono 16-bit at analysis rate", testRate, 1, 16, 2},
		{"Mono 24-bit", testRate, 1, 24, 1.5},
		{"Stereo 16-bit 44.1kHz", 44100, 2, 16, 2},
		{"Mono 16-bit 48kHz", 48000, 1, 16, 1.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			frames := int(tt.seconds * float64(tt.rate))
			mono := utils.GenerateSineWave(frames, float64(tt.rate), 440, 0.5)
			interleaved := make([]float64, 0, frames*tt.channels)
			for _, s := range mono {
				for range tt.channels {
					interleaved = append(interleaved, s)
				}
			}

			pcm, err := newTestDecoder().Decode(context.Background(), wavClip(t, interleaved, tt.rate, tt.channels, tt.bitDepth))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if pcm.SampleRate != testRate {
				t.Errorf("SampleRate = %d, want %d", pcm.SampleRate, testRate)
			}

			wantLen := int(tt.seconds * testRate)
			if math.Abs(float64(len(pcm.Samples)-wantLen)) > 2 {
				t.Errorf("len = %d, want about %d", len(pcm.Samples), wantLen)
			}

			peak := 0.0
			for _, s := range pcm.Samples {
				peak = math.Max(peak, math.Abs(s))
			}
			if math.Abs(peak-0.5) > 0.01 {
				t.Errorf("peak = %.4f, want about 0.5", peak)
			}
		})
	}
}

func TestDecodeRejects(t *testing.T) {
	t.Parallel()

	short := utils.GenerateSineWave(testRate/2, testRate, 440, 0.5)
	long := make([]float64, 61*testRate)

	tests := []struct {
		name string
		clip func(t *testing.T) Clip
		want error
	}{
		{"Empty", func(*testing.T) Clip { return Clip{Name: "empty.wav"} }, ErrEmpty},
		{"Not audio without ffmpeg", func(*testing.T) Clip {
			return Clip{Name: "notes.txt", ContentType: "text/plain", Data: []byte("hello, this is not audio")}
		}, ErrUnsupported},
		{"Truncated header", func(*testing.T) Clip {
			return Clip{Name: "bad.wav", Data: []byte("RIFF\x24\x00\x00\x00WAVEfmt ")}
		}, ErrCorrupt},
		{"Too short", func(t *testing.T) Clip { return wavClip(t, short, testRate, 1, 16) }, ErrTooShort},
		{"Too long", func(t *testing.T) Clip { return wavClip(t, long, testRate, 1, 16) }, ErrTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := newTestDecoder().Decode(context.Background(), tt.clip(t))
			if !errors.Is(err, tt.want) {
				t.Fatalf("Decode() error = %v, want %v", err, tt.want)
			}
			var decErr *Error
			if !errors.As(err, &decErr) {
				t.Errorf("error %T is not *decode.Error", err)
			}
		})
	}
}

func TestDecodeTruncatedData(t *testing.T) {
	t.Parallel()

	clip := wavClip(t, utils.GenerateSineWave(2*testRate, testRate, 440, 0.5), testRate, 1, 16)
	// Keep the header claiming two seconds but drop most of the samples.
	clip.Data = clip.Data[:len(clip.Data)/4]

	_, err := newTestDecoder().Decode(context.Background(), clip)
	if err == nil {
		t.Fatal("Decode() accepted a truncated file")
	}
	if !errors.Is(err, ErrCorrupt) && !errors.Is(err, ErrTooShort) {
		t.Errorf("Decode() error = %v, want corrupt or too short", err)
	}
}

func TestResample(t *testing.T) {
	t.Parallel()

	x := []float64{0, 1, 2, 3, 4, 5, 6, 7}
	if got := resample(x, 8, 8); &got[0] != &x[0] {
		t.Error("same-rate resample copied the input")
	}
	if got := resample(x, 8, 4); len(got) != 4 {
		t.Errorf("downsampled len = %d, want 4", len(got))
	}

	up := resample([]float64{0, 1}, 1, 2)
	if len(up) != 4 || up[1] != 0.5 || up[3] != 1 {
		t.Errorf("up = %v, want [0 0.5 1 1]", up)
	}
}

func TestResampleFiltersAboveNyquist(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		from    int
		freq    float64
		wantMin float64
		wantMax float64
	}{
		{"1kHz from 44.1kHz passes", 44100, 1000, 0.49, 0.51},
		{"4kHz from 48kHz passes", 48000, 4000, 0.48, 0.51},
		{"15kHz from 44.1kHz is removed", 44100, 15000, 0, 0.005},
		{"20kHz from 48kHz is removed", 48000, 20000, 0, 0.005},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			x := utils.GenerateSineWave(tt.from, float64(tt.from), tt.freq, 0.5)
			out := resample(x, tt.from, testRate)

			// Skip the edges where the filter runs into the zero padding.
			peak := 0.0
			for _, s := range out[testRate/10 : len(out)-testRate/10] {
				peak = math.Max(peak, math.Abs(s))
			}
			if peak < tt.wantMin || peak > tt.wantMax {
				t.Errorf("peak = %.5f, want within [%v, %v]", peak, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestDecodeWAVDoesNotAlias(t *testing.T) {
	t.Parallel()

	// A tone above the analysis Nyquist must not fold back into the band.
	samples := utils.GenerateSineWave(2*44100, 44100, 15000, 0.5)
	pcm, err := newTestDecoder().Decode(context.Background(), wavClip(t, samples, 44100, 1, 16))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	peak := 0.0
	for _, s := range pcm.Samples[testRate/10 : len(pcm.Samples)-testRate/10] {
		peak = math.Max(peak, math.Abs(s))
	}
	if peak > 0.005 {
		t.Errorf("15 kHz tone left peak %.4f after decoding to %d Hz", peak, testRate)
	}
}

func TestLowPassTaps(t *testing.T) {
	t.Parallel()

	taps := lowPassTaps(0.2, 65)
	if len(taps) != 65 {
		t.Fatalf("len = %d, want 65", len(taps))
	}
	sum := 0.0
	for i, v := range taps {
		sum += v
		if math.Abs(v-taps[len(taps)-1-i]) > 1e-15 {
			t.Fatalf("taps not symmetric at %d", i)
		}
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("DC gain = %f, want 1", sum)
	}
}

func TestDownmix(t *testing.T) {
	t.Parallel()

	got := downmix([]int{16384, -16384, 32767, 32767}, 2, 16)
	if len(got) != 2 || got[0] != 0 || math.Abs(got[1]-1) > 1e-4 {
		t.Errorf("downmix = %v", got)
	}

	eight := downmix([]int{128, 255, 0}, 1, 8)
	if eight[0] != 0 || math.Abs(eight[1]-127.0/128) > 1e-12 || eight[2] != -1 {
		t.Errorf("8-bit downmix = %v", eight)
	}
}

func TestExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		clip Clip
		want string
	}{
		{Clip{Name: "take.MP3"}, ".mp3"},
		{Clip{Name: "blob", ContentType: "audio/mp4"}, ".m4a"},
		{Clip{Name: "blob", ContentType: "audio/ogg; codecs=opus"}, ".ogg"},
		{Clip{Name: "blob", ContentType: "application/octet-stream"}, ""},
	}
	for _, tt := range tests {
		if got := extension(tt.clip); got != tt.want {
			t.Errorf("extension(%+v) = %q, want %q", tt.clip, got, tt.want)
		}
	}
}
