// SPDX-License-Identifier: MIT
package analysis

// SpectralProcessor consumes spectral frames in order. Processors keep
// clip-level running state; the chroma accumulator and the onset envelope
// are the two used by the analysis pipeline.
type SpectralProcessor interface {
	Process(frame SpectralFrame)
}

// Compile-time checks for interface implementations.
var _ SpectralProcessor = (*ChromaAccumulator)(nil)
var _ SpectralProcessor = (*OnsetEnvelope)(nil)

// ProcessorFunc adapts a plain function into a SpectralProcessor.
type ProcessorFunc func(SpectralFrame)

// Process calls fn(frame).
func (fn ProcessorFunc) Process(frame SpectralFrame) { fn(frame) }

// Fanout forwards every frame to each processor in turn.
type Fanout []SpectralProcessor

// Process implements SpectralProcessor.
func (f Fanout) Process(frame SpectralFrame) {
	for _, p := range f {
		p.Process(frame)
	}
}
