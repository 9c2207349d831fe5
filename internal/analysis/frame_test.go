// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestNewFramerErrors(t *testing.T) {
	pcm := PCM{Samples: make([]float64, 4096), SampleRate: testSampleRate}
	tests := []struct {
		name      string
		size, hop int
		hopErr    bool
	}{
		{"Size not power of two", 1000, 100, false},
		{"Zero hop", 1024, 0, true},
		{"Hop equals size", 1024, 1024, true},
		{"Hop above size", 1024, 2048, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFramer(pcm, tt.size, tt.hop, Hann)
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, ErrInvalidHop) != tt.hopErr {
				t.Errorf("errors.Is(err, ErrInvalidHop) = %v, want %v (%v)", !tt.hopErr, tt.hopErr, err)
			}
		})
	}
}

func TestFramerLen(t *testing.T) {
	tests := []struct {
		samples int
		want    int
	}{
		{0, 0},
		{100, 1}, // zero padded
		{2048, 1},
		{2048 + 511, 1},
		{2048 + 512, 2},
		{22050, 1 + (22050-2048)/512},
	}
	for _, tt := range tests {
		f, err := NewFramer(PCM{Samples: make([]float64, tt.samples), SampleRate: testSampleRate}, 2048, 512, Hann)
		if err != nil {
			t.Fatalf("NewFramer() error = %v", err)
		}
		if got := f.Len(); got != tt.want {
			t.Errorf("Len() for %d samples = %d, want %d", tt.samples, got, tt.want)
		}
		n := 0
		for range f.Frames() {
			n++
		}
		if n != tt.want {
			t.Errorf("Frames() yielded %d frames for %d samples, want %d", n, tt.samples, tt.want)
		}
	}
}

func TestFramerAppliesWindow(t *testing.T) {
	ones := make([]float64, 4096)
	for i := range ones {
		ones[i] = 1
	}
	f, err := NewFramer(PCM{Samples: ones, SampleRate: testSampleRate}, 1024, 256, Hamming)
	if err != nil {
		t.Fatalf("NewFramer() error = %v", err)
	}
	win := windowCoefficients(1024, Hamming)

	i := 0
	for frame := range f.Frames() {
		if frame.Index != i || frame.Offset != i*256 {
			t.Fatalf("frame %d has Index %d Offset %d", i, frame.Index, frame.Offset)
		}
		if len(frame.Samples) != 1024 {
			t.Fatalf("frame %d has %d samples", i, len(frame.Samples))
		}
		for j, s := range frame.Samples {
			if math.Abs(s-win[j]) > 1e-12 {
				t.Fatalf("frame %d sample %d = %f, want window value %f", i, j, s, win[j])
			}
		}
		i++
	}
	if i != 13 {
		t.Errorf("got %d frames, want 13", i)
	}
}

func TestFramerZeroPadsShortInput(t *testing.T) {
	f, _ := NewFramer(PCM{Samples: []float64{1, 1, 1}, SampleRate: testSampleRate}, 256, 128, Hann)
	for frame := range f.Frames() {
		for j := 3; j < len(frame.Samples); j++ {
			if frame.Samples[j] != 0 {
				t.Fatalf("sample %d = %f, want zero padding", j, frame.Samples[j])
			}
		}
	}
}

func TestFramerFramesOwnTheirSamples(t *testing.T) {
	f, _ := NewFramer(PCM{Samples: make([]float64, 4096), SampleRate: testSampleRate}, 1024, 512, Hann)

	var first Frame
	n := 0
	for frame := range f.Frames() {
		if n == 0 {
			first = frame
			first.Samples[0] = 42
		}
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("early break yielded %d frames", n)
	}
	for frame := range f.Frames() {
		if frame.Samples[0] == 42 {
			t.Fatal("frames share storage across iterations")
		}
		break
	}
}

func TestPCMDuration(t *testing.T) {
	if d := (PCM{Samples: make([]float64, 44100), SampleRate: 22050}).Duration(); d != 2*time.Second {
		t.Errorf("Duration() = %s, want 2s", d)
	}
	if d := (PCM{Samples: make([]float64, 10)}).Duration(); d != 0 {
		t.Errorf("Duration() without rate = %s, want 0", d)
	}
}
