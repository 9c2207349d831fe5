// SPDX-License-Identifier: MIT
/*
Package audio captures fixed-length takes from a PortAudio input device so
they can be saved as WAV and analyzed like an uploaded clip.

Thread Safety:
- The PortAudio callback and Record share state through atomics only
- The take buffer is allocated once per Recorder, never in the callback
- The callback locks its OS thread while copying samples
*/
package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"sessionkey/internal/config"
	"sessionkey/internal/log"

	"github.com/gordonklaus/portaudio"
)

var ErrAlreadyRecording = errors.New("already recording")

// inputStream is the part of *portaudio.Stream the recorder drives.
type inputStream interface {
	Start() error
	Stop() error
	Close() error
}

// Recorder captures one take at a time from an input device.
type Recorder struct {
	config config.RecordingConfig

	// Audio input handling.
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  inputStream
	openStream   func() (inputStream, error)

	// Gate threshold used to flag silent takes, absolute amplitude (0-2147483647).
	gateThreshold int32

	// Capture state shared with the callback.
	busy      sync.Mutex
	take      []int32
	written   int64 // atomic, samples copied into take
	capturing int32 // atomic flag
	full      chan struct{}
	fullOnce  *sync.Once
}

// NewRecorder validates cfg, resolves the input device and preallocates a
// buffer for a whole take. PortAudio must be initialized.
func NewRecorder(cfg config.RecordingConfig) (*Recorder, error) {
	if err := validateRecording(cfg); err != nil {
		return nil, err
	}

	inputDevice, err := InputDevice(cfg.InputDevice)
	if err != nil {
		return nil, err
	}
	if inputDevice.MaxInputChannels < cfg.Channels {
		return nil, fmt.Errorf("device %s has %d input channels, %d requested",
			inputDevice.Name, inputDevice.MaxInputChannels, cfg.Channels)
	}

	r := newRecorder(cfg)
	r.inputDevice = inputDevice
	if cfg.LowLatency {
		r.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		r.inputLatency = inputDevice.DefaultHighInputLatency
	}
	r.openStream = r.openPortAudioStream
	return r, nil
}

func newRecorder(cfg config.RecordingConfig) *Recorder {
	frames := int(math.Round(cfg.Duration.Seconds() * cfg.SampleRate))
	return &Recorder{
		config:        cfg,
		take:          make([]int32, frames*cfg.Channels),
		gateThreshold: math.MaxInt32 / 1000, // ~0.1% of full scale
	}
}

func validateRecording(cfg config.RecordingConfig) error {
	switch {
	case cfg.Channels < 1:
		return fmt.Errorf("recording needs at least one channel, got %d", cfg.Channels)
	case cfg.SampleRate < config.MinSampleRate || cfg.SampleRate > config.MaxSampleRate:
		return fmt.Errorf("recording sample rate %.0f outside [%d, %d]", cfg.SampleRate, config.MinSampleRate, config.MaxSampleRate)
	case cfg.FramesPerBuffer < 1:
		return fmt.Errorf("frames per buffer must be positive, got %d", cfg.FramesPerBuffer)
	case cfg.Duration <= 0:
		return fmt.Errorf("recording duration must be positive, got %s", cfg.Duration)
	}
	return nil
}

// Record captures a take of the configured duration. When ctx ends first
// the partial take is returned together with the context error.
func (r *Recorder) Record(ctx context.Context) (Take, error) {
	if !r.busy.TryLock() {
		return Take{}, ErrAlreadyRecording
	}
	defer r.busy.Unlock()

	atomic.StoreInt64(&r.written, 0)
	r.full = make(chan struct{})
	r.fullOnce = &sync.Once{}
	atomic.StoreInt32(&r.capturing, 1)

	if err := r.startInputStream(); err != nil {
		atomic.StoreInt32(&r.capturing, 0)
		return Take{}, err
	}

	var waitErr error
	select {
	case <-r.full:
	case <-ctx.Done():
		waitErr = ctx.Err()
	}

	atomic.StoreInt32(&r.capturing, 0)
	if err := r.stopInputStream(); err != nil {
		return Take{}, err
	}

	n := atomic.LoadInt64(&r.written)
	take := Take{
		Samples:    append([]int32(nil), r.take[:n]...),
		Channels:   r.config.Channels,
		SampleRate: int(r.config.SampleRate),
	}
	if take.peak() <= int64(r.gateThreshold) {
		log.Warnf("Audio: take peak %.4f is below the gate threshold, check the input device", take.Peak())
	}
	return take, waitErr
}

func (r *Recorder) openPortAudioStream() (inputStream, error) {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: r.config.Channels,
			Device:   r.inputDevice,
			Latency:  r.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: r.config.FramesPerBuffer,
		SampleRate:      r.config.SampleRate,
	}
	return portaudio.OpenStream(params, r.processInputStream)
}

func (r *Recorder) startInputStream() error {
	stream, err := r.openStream()
	if err != nil {
		return err
	}
	r.inputStream = stream

	if err := r.inputStream.Start(); err != nil {
		r.inputStream.Close()
		r.inputStream = nil
		return err
	}

	return nil
}

func (r *Recorder) stopInputStream() error {
	if r.inputStream != nil {
		if err := r.inputStream.Stop(); err != nil {
			return err
		}

		if err := r.inputStream.Close(); err != nil {
			return err
		}

		r.inputStream = nil
	}

	return nil
}

// processInputStream is the PortAudio callback. It copies into the
// preallocated take and signals once the take is full.
func (r *Recorder) processInputStream(in []int32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if atomic.LoadInt32(&r.capturing) == 0 {
		return
	}

	pos := atomic.LoadInt64(&r.written)
	n := copy(r.take[pos:], in)
	pos += int64(n)
	atomic.StoreInt64(&r.written, pos)

	if pos == int64(len(r.take)) {
		atomic.StoreInt32(&r.capturing, 0)
		r.fullOnce.Do(func() { close(r.full) })
	}
}
