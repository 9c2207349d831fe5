// SPDX-License-Identifier: MIT
//
// Package utils holds synthetic signal generators and fakes shared by the
// tests of the analysis, decode, pipeline and server packages.
package utils

import (
	"math"
	"sync"
)

// MockTransport records every event sent to it instead of transmitting.
type MockTransport struct {
	mu     sync.Mutex
	events []any
	closed bool
}

// Send stores the event for later inspection.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, data)
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Events returns a copy of the events received so far.
func (m *MockTransport) Events() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]any, len(m.events))
	copy(out, m.events)
	return out
}

// Closed reports whether Close was called.
func (m *MockTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// NoteFrequency returns the equal-tempered frequency of a pitch class
// (0 = C) in the given octave, with A4 = 440 Hz.
func NoteFrequency(pitchClass, octave int) float64 {
	midi := 12*(octave+1) + pitchClass
	return 440.0 * math.Pow(2, float64(midi-69)/12)
}

// GenerateSineWave returns size samples of a sine at frequency Hz.
func GenerateSineWave(size int, sampleRate, frequency, amplitude float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = amplitude * math.Sin(2*math.Pi*frequency*t)
	}
	return buffer
}

// GenerateChord sums equal-amplitude sines, scaled so the mix peaks at or
// below amplitude.
func GenerateChord(size int, sampleRate, amplitude float64, frequencies ...float64) []float64 {
	buffer := make([]float64, size)
	if len(frequencies) == 0 {
		return buffer
	}
	each := amplitude / float64(len(frequencies))
	for _, f := range frequencies {
		for i, v := range GenerateSineWave(size, sampleRate, f, each) {
			buffer[i] += v
		}
	}
	return buffer
}

// GenerateClickTrack returns a metronome of short decaying 1 kHz clicks at
// bpm, the first click starting offset seconds in.
func GenerateClickTrack(size int, sampleRate, bpm, offset float64) []float64 {
	buffer := make([]float64, size)
	period := 60.0 / bpm
	clickLen := int(0.01 * sampleRate)
	decay := 0.002 * sampleRate
	duration := float64(size) / sampleRate

	for t := offset; t < duration; t += period {
		start := int(math.Round(t * sampleRate))
		for i := 0; i < clickLen && start+i < size; i++ {
			buffer[start+i] = math.Sin(2*math.Pi*1000*float64(i)/sampleRate) * math.Exp(-float64(i)/decay)
		}
	}
	return buffer
}

// FindPeakBin returns the index of the largest magnitude in [startBin, endBin].
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
