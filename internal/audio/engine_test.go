// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sessionkey/internal/config"
)

func testRecordingConfig() config.RecordingConfig {
	return config.RecordingConfig{
		InputDevice:     config.MinDeviceID,
		Channels:        2,
		SampleRate:      8000,
		FramesPerBuffer: 64,
		Duration:        50 * time.Millisecond, // 400 frames
		BitDepth:        16,
	}
}

// fakeStream feeds a fixed buffer to the recorder callback until stopped,
// the way PortAudio calls back from its own thread.
type fakeStream struct {
	r        *Recorder
	buf      []int32
	startErr error
	stop     chan struct{}
	done     chan struct{}
	closed   atomic.Bool
}

func newFakeStream(r *Recorder, value int32) *fakeStream {
	buf := make([]int32, r.config.FramesPerBuffer*r.config.Channels)
	for i := range buf {
		buf[i] = value
	}
	return &fakeStream{r: r, buf: buf, stop: make(chan struct{}), done: make(chan struct{})}
}

func (f *fakeStream) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	go func() {
		defer close(f.done)
		for {
			select {
			case <-f.stop:
				return
			default:
			}
			if f.buf != nil {
				f.r.processInputStream(f.buf)
			}
			time.Sleep(time.Millisecond)
		}
	}()
	return nil
}

func (f *fakeStream) Stop() error {
	close(f.stop)
	<-f.done
	return nil
}

func (f *fakeStream) Close() error {
	f.closed.Store(true)
	return nil
}

func newTestRecorder(value int32) (*Recorder, *fakeStream) {
	r := newRecorder(testRecordingConfig())
	stream := newFakeStream(r, value)
	r.openStream = func() (inputStream, error) { return stream, nil }
	return r, stream
}

func TestRecord_FillsTake(t *testing.T) {
	r, stream := newTestRecorder(1 << 30)

	take, err := r.Record(context.Background())
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if take.Frames() != 400 {
		t.Errorf("Frames() = %d, want 400", take.Frames())
	}
	if take.Channels != 2 || take.SampleRate != 8000 {
		t.Errorf("format = %d ch @ %d Hz, want 2 ch @ 8000 Hz", take.Channels, take.SampleRate)
	}
	if take.Duration() != 50*time.Millisecond {
		t.Errorf("Duration() = %s, want 50ms", take.Duration())
	}
	for i, s := range take.Samples {
		if s != 1<<30 {
			t.Fatalf("sample %d = %d, want %d", i, s, 1<<30)
		}
	}
	if !stream.closed.Load() {
		t.Error("stream should be closed after the take")
	}
	if r.inputStream != nil {
		t.Error("inputStream should be nil after the take")
	}
}

func TestRecord_ReusesBufferAcrossTakes(t *testing.T) {
	r, _ := newTestRecorder(7)
	first, err := r.Record(context.Background())
	if err != nil {
		t.Fatalf("first Record() error = %v", err)
	}

	stream := newFakeStream(r, -7)
	r.openStream = func() (inputStream, error) { return stream, nil }
	second, err := r.Record(context.Background())
	if err != nil {
		t.Fatalf("second Record() error = %v", err)
	}

	if first.Samples[0] != 7 || second.Samples[0] != -7 {
		t.Errorf("takes share storage: first[0]=%d second[0]=%d", first.Samples[0], second.Samples[0])
	}
}

func TestRecord_ContextCancelReturnsPartialTake(t *testing.T) {
	r, stream := newTestRecorder(1)
	stream.buf = nil // a stalled device

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	take, err := r.Record(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Record() error = %v, want deadline exceeded", err)
	}
	if take.Frames() != 0 {
		t.Errorf("Frames() = %d, want 0 for a stalled device", take.Frames())
	}
	if take.Channels != 2 {
		t.Errorf("partial take lost its format: %+v", take)
	}
}

func TestRecord_StartError(t *testing.T) {
	r, stream := newTestRecorder(1)
	stream.startErr = errors.New("device busy")

	if _, err := r.Record(context.Background()); err == nil || err.Error() != "device busy" {
		t.Fatalf("Record() error = %v, want device busy", err)
	}
	if !stream.closed.Load() {
		t.Error("stream should be closed when Start fails")
	}
	if atomic.LoadInt32(&r.capturing) != 0 {
		t.Error("capturing flag left set after a failed start")
	}
}

func TestRecord_AlreadyRecording(t *testing.T) {
	r, _ := newTestRecorder(1)
	r.busy.Lock()
	defer r.busy.Unlock()

	if _, err := r.Record(context.Background()); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("Record() error = %v, want ErrAlreadyRecording", err)
	}
}

func TestProcessInputStream_IdleIgnored(t *testing.T) {
	r := newRecorder(testRecordingConfig())
	r.processInputStream([]int32{1, 2, 3, 4})

	if atomic.LoadInt64(&r.written) != 0 {
		t.Errorf("written = %d, want 0 while not capturing", r.written)
	}
}

func TestProcessInputStream_StopsWhenFull(t *testing.T) {
	cfg := testRecordingConfig()
	cfg.Duration = time.Millisecond // 8 frames, 16 samples
	r := newRecorder(cfg)
	r.full = make(chan struct{})
	r.fullOnce = new(sync.Once)
	atomic.StoreInt32(&r.capturing, 1)

	in := make([]int32, 10)
	r.processInputStream(in)
	if atomic.LoadInt64(&r.written) != 10 {
		t.Fatalf("written = %d, want 10", r.written)
	}
	r.processInputStream(in)
	if atomic.LoadInt64(&r.written) != 16 {
		t.Fatalf("written = %d, want the 16 sample take", r.written)
	}
	select {
	case <-r.full:
	default:
		t.Fatal("full channel not closed")
	}
	if atomic.LoadInt32(&r.capturing) != 0 {
		t.Error("capturing should stop once the take is full")
	}

	// Late callbacks are ignored.
	r.processInputStream(in)
	if atomic.LoadInt64(&r.written) != 16 {
		t.Errorf("written = %d after a late callback, want 16", r.written)
	}
}

func TestProcessInputStream_NoAllocations(t *testing.T) {
	cfg := testRecordingConfig()
	cfg.Duration = 10 * time.Second
	r := newRecorder(cfg)
	r.full = make(chan struct{})
	r.fullOnce = new(sync.Once)
	atomic.StoreInt32(&r.capturing, 1)

	in := make([]int32, cfg.FramesPerBuffer*cfg.Channels)
	allocs := testing.AllocsPerRun(100, func() {
		r.processInputStream(in)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in the capture callback, got %.1f", allocs)
	}
}

func TestValidateRecording(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.RecordingConfig)
	}{
		{"No channels", func(c *config.RecordingConfig) { c.Channels = 0 }},
		{"Sample rate too low", func(c *config.RecordingConfig) { c.SampleRate = 100 }},
		{"No buffer", func(c *config.RecordingConfig) { c.FramesPerBuffer = 0 }},
		{"No duration", func(c *config.RecordingConfig) { c.Duration = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testRecordingConfig()
			tt.mutate(&cfg)
			if _, err := NewRecorder(cfg); err == nil {
				t.Error("NewRecorder() error = nil, want validation error")
			}
		})
	}
	if err := validateRecording(testRecordingConfig()); err != nil {
		t.Errorf("validateRecording(valid) = %v", err)
	}
}
