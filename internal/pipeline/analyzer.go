// SPDX-License-Identifier: MIT
//
// Package pipeline runs an uploaded clip through decoding, the spectral
// analysis stages and song recognition, and assembles the response.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sessionkey/internal/analysis"
	"sessionkey/internal/config"
	"sessionkey/internal/decode"
	"sessionkey/internal/log"
	"sessionkey/internal/recognition"
	"sessionkey/internal/store"
	"sessionkey/internal/transport"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Stage names an analysis step reported to the stage observer.
type Stage string

const (
	StageDecode   Stage = "decode"
	StageFrame    Stage = "frame"
	StageSpectral Stage = "spectral"
	StageKey      Stage = "key"
	StageTempo    Stage = "tempo"
	StageAssemble Stage = "assemble"
)

// Decoder turns a clip into PCM at the analysis sample rate.
type Decoder interface {
	Decode(ctx context.Context, clip decode.Clip) (analysis.PCM, error)
}

// History records completed analyses.
type History interface {
	Add(r store.Record) (store.Record, error)
}

// Options holds the analysis parameters.
type Options struct {
	FrameSize           int
	HopSize             int
	Window              analysis.WindowFunc
	ChromaMinFrequency  float64
	ChromaMaxFrequency  float64
	MinConfidence       float64
	Alternatives        int
	AlternativeMinScore float64
	TrimDB              float64
	RecognitionTimeout  time.Duration
}

// OptionsFromConfig extracts the analysis options from a validated
// configuration.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	wf, err := analysis.ParseWindowFunc(cfg.Analysis.Window)
	if err != nil {
		return Options{}, err
	}
	return Options{
		FrameSize:           cfg.Analysis.FrameSize,
		HopSize:             cfg.Analysis.HopSize,
		Window:              wf,
		ChromaMinFrequency:  cfg.Analysis.ChromaMinFrequency,
		ChromaMaxFrequency:  cfg.Analysis.ChromaMaxFrequency,
		MinConfidence:       cfg.Analysis.MinConfidence,
		Alternatives:        cfg.Analysis.Alternatives,
		AlternativeMinScore: cfg.Analysis.AlternativeMinScore,
		TrimDB:              cfg.Analysis.TrimDB,
		RecognitionTimeout:  cfg.Recognition.Timeout,
	}, nil
}

// Deps are the collaborators of an Analyzer. Decoder and Pool are
// required; the rest are optional.
type Deps struct {
	Decoder    Decoder
	Pool       *Pool
	Recognizer recognition.Recognizer
	History    History
	Transport  transport.Transport
	OnStage    func(Stage)
}

// Analyzer runs the full analysis of one clip. It holds no per-request
// state and is safe for concurrent use.
type Analyzer struct {
	opts Options
	deps Deps
	now  func() time.Time
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(opts Options, deps Deps) (*Analyzer, error) {
	if deps.Decoder == nil {
		return nil, errors.New("pipeline: decoder is required")
	}
	if deps.Pool == nil {
		return nil, errors.New("pipeline: pool is required")
	}
	if opts.HopSize <= 0 || opts.HopSize >= opts.FrameSize {
		return nil, fmt.Errorf("pipeline: %w", analysis.ErrInvalidHop)
	}
	if deps.Recognizer == nil {
		deps.Recognizer = recognition.Noop{}
	}
	return &Analyzer{opts: opts, deps: deps, now: time.Now}, nil
}

// Analyze decodes and analyzes clip. Decoding and the spectral stages run
// on the worker pool while the recognizer is queried concurrently; a
// recognition failure only leaves the result unrecognized.
//
// Errors are *InputError for bad clips, ErrBusy when the queue is full,
// the context error on cancellation and *InternalError otherwise.
func (a *Analyzer) Analyze(ctx context.Context, clip decode.Clip) (*Result, error) {
	if len(clip.Data) == 0 {
		return nil, &InputError{Err: &decode.Error{Err: decode.ErrEmpty, Detail: "no audio received"}}
	}

	start := time.Now()
	entry := log.WithFields(log.Fields{"clip": clip.Name, "bytes": len(clip.Data)})

	var (
		out   Outcome
		match *recognition.Match
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.deps.Pool.Do(gctx, func(ctx context.Context) error {
			var err error
			out, err = a.process(ctx, clip)
			return err
		})
	})
	g.Go(func() error {
		match = a.recognize(gctx, clip)
		return nil
	})
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	a.stage(StageAssemble)
	res := Assemble(uuid.NewString(), a.now().UTC(), out, match, a.opts)

	entry.WithFields(log.Fields{
		"id":      res.ID,
		"key":     res.Key,
		"bpm":     res.BPM,
		"status":  res.Status,
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Info("Analysis complete")

	a.publish(res)
	return res, nil
}

// process runs the DSP stages. It checks ctx between frames.
func (a *Analyzer) process(ctx context.Context, clip decode.Clip) (Outcome, error) {
	a.stage(StageDecode)
	pcm, err := a.deps.Decoder.Decode(ctx, clip)
	if err != nil {
		var de *decode.Error
		switch {
		case errors.As(err, &de):
			return Outcome{}, &InputError{Err: err}
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return Outcome{}, err
		default:
			return Outcome{}, &InternalError{Err: fmt.Errorf("decode: %w", err)}
		}
	}
	duration := pcm.Duration()
	pcm = analysis.TrimSilence(pcm, a.opts.TrimDB, a.opts.FrameSize)

	a.stage(StageFrame)
	framer, err := analysis.NewFramer(pcm, a.opts.FrameSize, a.opts.HopSize, a.opts.Window)
	if err != nil {
		return Outcome{}, &InternalError{Err: err}
	}
	spectrum, err := analysis.NewSpectrum(a.opts.FrameSize, float64(pcm.SampleRate))
	if err != nil {
		return Outcome{}, &InternalError{Err: err}
	}

	chroma := analysis.NewChromaAccumulator(spectrum, a.opts.ChromaMinFrequency, a.opts.ChromaMaxFrequency)
	onsets := analysis.NewOnsetEnvelope(framer.Len())
	processors := analysis.Fanout{chroma, onsets}

	a.stage(StageSpectral)
	for frame := range framer.Frames() {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		processors.Process(spectrum.Transform(frame))
	}

	a.stage(StageKey)
	vector := chroma.Vector()
	key := analysis.EstimateKey(vector)

	a.stage(StageTempo)
	tempo := analysis.EstimateTempo(onsets.Energies(), a.opts.HopSize, float64(pcm.SampleRate))

	return Outcome{Chroma: vector, Key: key, Tempo: tempo, Duration: duration}, nil
}

// recognize never fails: errors and timeouts are logged and give nil.
func (a *Analyzer) recognize(ctx context.Context, clip decode.Clip) *recognition.Match {
	if a.opts.RecognitionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.RecognitionTimeout)
		defer cancel()
	}

	match, err := a.deps.Recognizer.Recognize(ctx, clip.Data)
	switch {
	case err == nil:
		return match
	case errors.Is(err, recognition.ErrNoMatch):
		log.Debugf("Recognition: no match for %s", clip.Name)
	default:
		log.Warnf("Recognition: unavailable for %s: %v", clip.Name, err)
	}
	return nil
}

func (a *Analyzer) publish(res *Result) {
	if a.deps.History != nil {
		if _, err := a.deps.History.Add(res.Record()); err != nil {
			log.Errorf("History: failed to record analysis %s: %v", res.ID, err)
		}
	}
	if a.deps.Transport != nil {
		if err := a.deps.Transport.Send(res.Event()); err != nil {
			log.Warnf("Transport: failed to publish analysis %s: %v", res.ID, err)
		}
	}
}

func (a *Analyzer) stage(s Stage) {
	log.Debugf("Pipeline: stage %s", s)
	if a.deps.OnStage != nil {
		a.deps.OnStage(s)
	}
}
