// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math/cmplx"
	"strings"

	"sessionkey/internal/log"
	"sessionkey/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc defines the type for selecting an analysis window function.
type WindowFunc int

// Enum for available window functions.
const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

var windowNames = [...]string{
	BartlettHann:    "BartlettHann",
	Blackman:        "Blackman",
	BlackmanNuttall: "BlackmanNuttall",
	Hann:            "Hann",
	Hamming:         "Hamming",
	Lanczos:         "Lanczos",
	Nuttall:         "Nuttall",
}

func (w WindowFunc) String() string {
	if w < 0 || int(w) >= len(windowNames) {
		return fmt.Sprintf("WindowFunc(%d)", int(w))
	}
	return windowNames[w]
}

// SpectralFrame holds the magnitude spectrum of one frame, bins 0..W/2.
type SpectralFrame struct {
	Index      int
	Magnitudes []float64
}

// Spectrum computes magnitude spectra of fixed-size frames. It reuses its
// coefficient buffer and the gonum FFT work area, so one Spectrum must not
// be shared between goroutines; each analysis builds its own.
type Spectrum struct {
	fft        *fourier.FFT // Reusable FFT calculator instance.
	size       int          // Number of points for the FFT (power of 2).
	sampleRate float64      // Sample rate of the input audio (Hz).
	coeffs     []complex128 // Buffer for FFT complex results.
}

// NewSpectrum creates a spectral estimator for frames of size samples.
func NewSpectrum(size int, sampleRate float64) (*Spectrum, error) {
	if !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", size)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}

	log.Debugf("Analysis: Initializing Spectrum (Size: %d, SampleRate: %.1f Hz)", size, sampleRate)

	return &Spectrum{
		fft:        fourier.NewFFT(size),
		size:       size,
		sampleRate: sampleRate,
		// FFT output size for real input is N/2 + 1 complex values.
		coeffs: make([]complex128, size/2+1),
	}, nil
}

// Transform returns the magnitude spectrum of an already windowed frame.
// A frame whose length differs from the FFT size is a programming error.
func (s *Spectrum) Transform(f Frame) SpectralFrame {
	if len(f.Samples) != s.size {
		panic(fmt.Sprintf("analysis: frame of %d samples passed to %d-point spectrum", len(f.Samples), s.size))
	}

	s.fft.Coefficients(s.coeffs, f.Samples)

	mags := make([]float64, len(s.coeffs))
	for i, c := range s.coeffs {
		mags[i] = cmplx.Abs(c)
	}
	return SpectralFrame{Index: f.Index, Magnitudes: mags}
}

// Bins returns the number of magnitude bins per frame (size/2 + 1).
func (s *Spectrum) Bins() int {
	return len(s.coeffs)
}

// BinFrequency returns the center frequency (Hz) for a given bin index.
func (s *Spectrum) BinFrequency(bin int) float64 {
	if bin < 0 || bin >= len(s.coeffs) {
		return 0.0
	}
	return float64(bin) * (s.sampleRate / float64(s.size))
}

// Size returns the configured FFT size.
func (s *Spectrum) Size() int {
	return s.size
}

// SampleRate returns the configured sample rate (Hz).
func (s *Spectrum) SampleRate() float64 {
	return s.sampleRate
}

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc
// enum, returns a known default (Hann) and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning", "":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Hann, fmt.Errorf("unknown window function name: '%s'", name)
	}
}

// windowCoefficients returns size coefficients of the selected window.
// Unknown types fall back to Hann.
func windowCoefficients(size int, windowType WindowFunc) []float64 {
	// The gonum window funcs scale in place, so start from ones.
	coeffs := make([]float64, size)
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		log.Warnf("Analysis: Unknown window function type %d, defaulting to Hann", windowType)
		window.Hann(coeffs)
	}
	return coeffs
}
