// SPDX-License-Identifier: MIT
package config

import (
	"runtime"
	"time"
)

// Defaults and hard limits for the analysis service.
const (
	DefaultSampleRate          = 22050
	DefaultFrameSize           = 2048
	DefaultHopSize             = 512
	DefaultWindow              = "Hann"
	DefaultChromaMinFrequency  = 80.0
	DefaultAlternatives        = 3
	DefaultAlternativeMinScore = 0.1
	DefaultTrimDB              = 20.0
	DefaultMinDuration         = time.Second
	DefaultMaxDuration         = 60 * time.Second

	DefaultServerAddr     = ":5000"
	DefaultMaxUploadBytes = 32 << 20
	DefaultQueueDepth     = 32
	DefaultReadTimeout    = 30 * time.Second
	DefaultWriteTimeout   = 60 * time.Second

	DefaultRecognitionHost    = "identify-eu-west-1.acrcloud.com"
	DefaultRecognitionTimeout = 5 * time.Second

	DefaultDeviceID        = MinDeviceID // System default input device.
	DefaultChannels        = 1
	DefaultFramesPerBuffer = 512
	DefaultRecordDuration  = 15 * time.Second
	DefaultBitDepth        = 16

	// Hardware and processing limits
	MinDeviceID   = -1 // -1 represents system default device
	MinSampleRate = 8000
	MaxSampleRate = 192000
	MinFrameSize  = 256
	MaxFrameSize  = 16384
)

// Config represents the application configuration, loaded from YAML,
// environment and command line flags in that order.
type Config struct {
	Debug     bool   `yaml:"debug"`      // Enable debug logging and stage tracing.
	LogLevel  string `yaml:"log_level"`  // Logging level ("debug", "info", "warn", "error").
	LogFormat string `yaml:"log_format"` // "text" or "json".

	Command string   `yaml:"-"` // Subcommand selected on the command line.
	Args    []string `yaml:"-"` // Positional arguments of the subcommand.
	Output  string   `yaml:"-"` // Report format of the analyze and record commands ("table" or "json").

	Analysis    AnalysisConfig    `yaml:"analysis"`
	Decode      DecodeConfig      `yaml:"decode"`
	Server      ServerConfig      `yaml:"server"`
	Recognition RecognitionConfig `yaml:"recognition"`
	History     HistoryConfig     `yaml:"history"`
	Transport   TransportConfig   `yaml:"transport"`
	Recording   RecordingConfig   `yaml:"recording"`
}

// AnalysisConfig holds the DSP parameters.
type AnalysisConfig struct {
	SampleRate          int     `yaml:"sample_rate"`           // Analysis sample rate in Hz; input is resampled to it.
	FrameSize           int     `yaml:"frame_size"`            // Frame length W in samples (power of 2).
	HopSize             int     `yaml:"hop_size"`              // Hop H in samples, 0 < H < W.
	Window              string  `yaml:"window"`                // Window function name ("Hann", "Hamming", ...).
	ChromaMinFrequency  float64 `yaml:"chroma_min_frequency"`  // Lowest bin frequency folded into chroma.
	ChromaMaxFrequency  float64 `yaml:"chroma_max_frequency"`  // Highest bin frequency (0 for Nyquist).
	MinConfidence       float64 `yaml:"min_confidence"`        // Confidence floor (0-100) below which the key is undetermined.
	Alternatives        int     `yaml:"alternatives"`          // Maximum number of alternative keys reported.
	AlternativeMinScore float64 `yaml:"alternative_min_score"` // Correlation an alternative must exceed.
	TrimDB              float64 `yaml:"trim_db"`               // Silence trim threshold below peak (0 disables).
}

// DecodeConfig holds input decoding limits and tools.
type DecodeConfig struct {
	MinDuration time.Duration `yaml:"min_duration"` // Shortest accepted clip.
	MaxDuration time.Duration `yaml:"max_duration"` // Longest accepted clip.
	FFmpegPath  string        `yaml:"ffmpeg_path"`  // ffmpeg binary for non-WAV input ("" disables).
	FFprobePath string        `yaml:"ffprobe_path"` // ffprobe binary used for the duration check.
}

// ServerConfig holds HTTP and worker pool settings.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`             // Listen address.
	MaxUploadBytes int64         `yaml:"max_upload_bytes"` // Largest accepted request body.
	Workers        int           `yaml:"workers"`          // Analysis workers, GOMAXPROCS by default.
	QueueDepth     int           `yaml:"queue_depth"`      // Jobs allowed to wait for a worker.
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

// RecognitionConfig holds the external song recognizer settings.
type RecognitionConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Host         string        `yaml:"host"` // ACRCloud identify host.
	AccessKey    string        `yaml:"access_key"`
	AccessSecret string        `yaml:"access_secret"`
	Timeout      time.Duration `yaml:"timeout"` // Per-request deadline; recognition never fails the analysis.
}

// HistoryConfig selects where completed analyses are kept.
type HistoryConfig struct {
	Path string `yaml:"path"` // JSON file; empty keeps history in memory.
}

// TransportConfig holds settings for publishing analysis events.
type TransportConfig struct {
	WebSocketEnabled bool   `yaml:"websocket_enabled"`  // Serve /ws and broadcast events to clients.
	LogEvents        bool   `yaml:"log_events"`         // Log every event at debug level.
	UDPEnabled       bool   `yaml:"udp_enabled"`        // Send chroma packets over UDP.
	UDPTargetAddress string `yaml:"udp_target_address"` // Target address and port, e.g. "127.0.0.1:9090".
}

// RecordingConfig holds settings for capturing a clip from an input device.
type RecordingConfig struct {
	InputDevice     int           `yaml:"input_device"`      // PortAudio device index (-1 for default).
	Channels        int           `yaml:"channels"`          // Channels to capture.
	SampleRate      float64       `yaml:"sample_rate"`       // Capture rate in Hz.
	FramesPerBuffer int           `yaml:"frames_per_buffer"` // PortAudio buffer size.
	LowLatency      bool          `yaml:"low_latency"`       // Request the device's low latency setting.
	Duration        time.Duration `yaml:"duration"`          // Length of the captured clip.
	OutputDir       string        `yaml:"output_dir"`        // Where captured WAV files are written.
	BitDepth        int           `yaml:"bit_depth"`         // WAV bit depth.
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Output:    "table",
		Analysis: AnalysisConfig{
			SampleRate:          DefaultSampleRate,
			FrameSize:           DefaultFrameSize,
			HopSize:             DefaultHopSize,
			Window:              DefaultWindow,
			ChromaMinFrequency:  DefaultChromaMinFrequency,
			Alternatives:        DefaultAlternatives,
			AlternativeMinScore: DefaultAlternativeMinScore,
			TrimDB:              DefaultTrimDB,
		},
		Decode: DecodeConfig{
			MinDuration: DefaultMinDuration,
			MaxDuration: DefaultMaxDuration,
			FFmpegPath:  "ffmpeg",
			FFprobePath: "ffprobe",
		},
		Server: ServerConfig{
			Addr:           DefaultServerAddr,
			MaxUploadBytes: DefaultMaxUploadBytes,
			Workers:        runtime.GOMAXPROCS(0),
			QueueDepth:     DefaultQueueDepth,
			ReadTimeout:    DefaultReadTimeout,
			WriteTimeout:   DefaultWriteTimeout,
		},
		Recognition: RecognitionConfig{
			Host:    DefaultRecognitionHost,
			Timeout: DefaultRecognitionTimeout,
		},
		Transport: TransportConfig{
			WebSocketEnabled: true,
			UDPTargetAddress: "127.0.0.1:9090",
		},
		Recording: RecordingConfig{
			InputDevice:     DefaultDeviceID,
			Channels:        DefaultChannels,
			SampleRate:      44100,
			FramesPerBuffer: DefaultFramesPerBuffer,
			Duration:        DefaultRecordDuration,
			OutputDir:       "./recordings",
			BitDepth:        DefaultBitDepth,
		},
	}
}

// HopDuration is the time between consecutive analysis frames.
func (c *Config) HopDuration() time.Duration {
	return time.Duration(c.Analysis.HopSize) * time.Second / time.Duration(c.Analysis.SampleRate)
}
