// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"

	"sessionkey/pkg/utils"
)

const (
	testFFTSize    = 2048
	testHopSize    = 512
	testSampleRate = 22050
)

func TestNewSpectrumInvalid(t *testing.T) {
	if _, err := NewSpectrum(1000, testSampleRate); err == nil {
		t.Error("expected error for non power of two size")
	}
	if _, err := NewSpectrum(testFFTSize, 0); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestSpectrumPeak(t *testing.T) {
	spec, err := NewSpectrum(testFFTSize, testSampleRate)
	if err != nil {
		t.Fatalf("NewSpectrum() error = %v", err)
	}
	if spec.Bins() != testFFTSize/2+1 {
		t.Fatalf("Bins() = %d, want %d", spec.Bins(), testFFTSize/2+1)
	}

	tests := []float64{220, 440, 1000, 3520}
	for _, freq := range tests {
		samples := utils.GenerateSineWave(testFFTSize, testSampleRate, freq, 0.8)
		frame := Frame{Samples: samples}
		for i, w := range windowCoefficients(testFFTSize, Hann) {
			frame.Samples[i] *= w
		}

		sf := spec.Transform(frame)
		peak := utils.FindPeakBin(sf.Magnitudes, 1, len(sf.Magnitudes)-1)
		want := int(math.Round(freq * testFFTSize / testSampleRate))
		if diff := peak - want; diff < -1 || diff > 1 {
			t.Errorf("%.0f Hz: peak bin %d (%.1f Hz), want %d", freq, peak, spec.BinFrequency(peak), want)
		}
	}
}

func TestSpectrumPanicsOnWrongFrameSize(t *testing.T) {
	spec, _ := NewSpectrum(testFFTSize, testSampleRate)
	defer func() {
		if recover() == nil {
			t.Error("Transform should panic on a short frame")
		}
	}()
	spec.Transform(Frame{Samples: make([]float64, testFFTSize/2)})
}

func TestBinFrequency(t *testing.T) {
	spec, _ := NewSpectrum(testFFTSize, testSampleRate)
	tests := []struct {
		bin  int
		want float64
	}{
		{0, 0},
		{1, float64(testSampleRate) / testFFTSize},
		{testFFTSize / 2, testSampleRate / 2},
		{-1, 0},
		{testFFTSize, 0},
	}
	for _, tt := range tests {
		if got := spec.BinFrequency(tt.bin); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("BinFrequency(%d) = %f, want %f", tt.bin, got, tt.want)
		}
	}
}

func TestParseWindowFunc(t *testing.T) {
	tests := []struct {
		name    string
		want    WindowFunc
		wantErr bool
	}{
		{"Hann", Hann, false},
		{"hanning", Hann, false},
		{"", Hann, false},
		{"HAMMING", Hamming, false},
		{"BlackmanNuttall", BlackmanNuttall, false},
		{"bartletthann", BartlettHann, false},
		{"triangle", Hann, true},
	}
	for _, tt := range tests {
		got, err := ParseWindowFunc(tt.name)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("ParseWindowFunc(%q) = %v, %v; want %v, error %v", tt.name, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestWindowFuncString(t *testing.T) {
	if Nuttall.String() != "Nuttall" {
		t.Errorf("Nuttall.String() = %q", Nuttall.String())
	}
	if got := WindowFunc(42).String(); got != "WindowFunc(42)" {
		t.Errorf("WindowFunc(42).String() = %q", got)
	}
	// Every name parses back to its window.
	for w := BartlettHann; w <= Nuttall; w++ {
		if got, err := ParseWindowFunc(w.String()); err != nil || got != w {
			t.Errorf("ParseWindowFunc(%q) = %v, %v", w, got, err)
		}
	}
}

func BenchmarkTransform(b *testing.B) {
	spec, _ := NewSpectrum(testFFTSize, testSampleRate)
	frame := Frame{Samples: utils.GenerateChord(testFFTSize, testSampleRate, 0.9, 440, 880, 1320)}

	b.ReportAllocs()

	for b.Loop() {
		spec.Transform(frame)
	}
}
