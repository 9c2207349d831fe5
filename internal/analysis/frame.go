// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"iter"
	"time"

	"sessionkey/pkg/bitint"
)

// PCM is a mono signal with samples nominally in [-1, 1].
type PCM struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the length of the signal.
func (p PCM) Duration() time.Duration {
	if p.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(p.Samples)) * time.Second / time.Duration(p.SampleRate)
}

// Frame is a windowed slice of the signal. Offset is the index of the first
// sample in the source buffer.
type Frame struct {
	Index   int
	Offset  int
	Samples []float64
}

// ErrInvalidHop is returned by NewFramer when the hop is not in (0, size).
var ErrInvalidHop = errors.New("hop size must be positive and smaller than the frame size")

// Framer cuts a PCM buffer into overlapping windowed frames.
type Framer struct {
	pcm    PCM
	size   int
	hop    int
	window []float64
}

// NewFramer creates a framer producing frames of size samples every hop
// samples, multiplied by the given window.
func NewFramer(pcm PCM, size, hop int, wf WindowFunc) (*Framer, error) {
	if !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("frame size must be a power of 2, got %d", size)
	}
	if hop <= 0 || hop >= size {
		return nil, fmt.Errorf("%w: hop %d, frame %d", ErrInvalidHop, hop, size)
	}
	return &Framer{
		pcm:    pcm,
		size:   size,
		hop:    hop,
		window: windowCoefficients(size, wf),
	}, nil
}

// Len reports how many frames Frames yields. A buffer shorter than one
// frame yields a single zero-padded frame; an empty buffer yields none.
func (f *Framer) Len() int {
	return bitint.FrameCount(len(f.pcm.Samples), f.size, f.hop)
}

// Frames returns the frame sequence. Each call starts again from the first
// frame and every yielded frame owns its sample slice.
func (f *Framer) Frames() iter.Seq[Frame] {
	return func(yield func(Frame) bool) {
		src := f.pcm.Samples
		n := f.Len()
		for i := range n {
			offset := i * f.hop
			buf := make([]float64, f.size)
			end := min(offset+f.size, len(src))
			for j, s := range src[offset:end] {
				buf[j] = s * f.window[j]
			}
			if !yield(Frame{Index: i, Offset: offset, Samples: buf}) {
				return
			}
		}
	}
}
