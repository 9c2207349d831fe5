// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sessionkey/internal/analysis"
	"sessionkey/internal/log"
	"sessionkey/pkg/bitint"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g.
// SESSIONKEY_ANALYSIS_SAMPLE_RATE or SESSIONKEY_RECOGNITION_ACCESS_KEY.
const EnvPrefix = "SESSIONKEY"

var ErrInvalid = errors.New("invalid configuration")

// LoadConfig loads configuration from a YAML file specified by path. If path
// is empty, it searches the default locations and falls back to built-in
// defaults when none exists. Environment overrides are applied after the
// file and the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		log.Debugf("configuration: loaded %s", path)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	candidates := []string{"sessionkey.yaml", "config.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "sessionkey", "config.yaml"))
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	a := c.Analysis
	switch {
	case a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate:
		return invalid("analysis.sample_rate %d outside [%d, %d]", a.SampleRate, MinSampleRate, MaxSampleRate)
	case !bitint.IsPowerOfTwo(a.FrameSize) || a.FrameSize < MinFrameSize || a.FrameSize > MaxFrameSize:
		return invalid("analysis.frame_size %d must be a power of 2 in [%d, %d]", a.FrameSize, MinFrameSize, MaxFrameSize)
	case a.HopSize <= 0 || a.HopSize >= a.FrameSize:
		return invalid("analysis.hop_size %d must be in (0, %d)", a.HopSize, a.FrameSize)
	case a.MinConfidence < 0 || a.MinConfidence >= 100:
		return invalid("analysis.min_confidence %.1f outside [0, 100)", a.MinConfidence)
	case a.Alternatives < 0:
		return invalid("analysis.alternatives must not be negative")
	case a.TrimDB < 0:
		return invalid("analysis.trim_db must not be negative")
	case a.ChromaMaxFrequency != 0 && a.ChromaMaxFrequency <= a.ChromaMinFrequency:
		return invalid("analysis.chroma_max_frequency must exceed chroma_min_frequency")
	}
	if _, err := analysis.ParseWindowFunc(a.Window); err != nil {
		return invalid("analysis.window: %v", err)
	}

	d := c.Decode
	if d.MinDuration <= 0 || d.MaxDuration <= d.MinDuration {
		return invalid("decode durations must satisfy 0 < min_duration (%s) < max_duration (%s)", d.MinDuration, d.MaxDuration)
	}

	s := c.Server
	switch {
	case s.Workers < 1:
		return invalid("server.workers must be at least 1")
	case s.QueueDepth < 1:
		return invalid("server.queue_depth must be at least 1")
	case s.MaxUploadBytes <= 0:
		return invalid("server.max_upload_bytes must be positive")
	}

	r := c.Recognition
	if r.Enabled {
		if r.Host == "" || r.AccessKey == "" || r.AccessSecret == "" {
			return invalid("recognition.host, access_key and access_secret are required when recognition is enabled")
		}
		if r.Timeout <= 0 {
			return invalid("recognition.timeout must be positive")
		}
	}

	t := c.Transport
	if t.UDPEnabled {
		if _, _, err := net.SplitHostPort(t.UDPTargetAddress); err != nil {
			return invalid("transport.udp_target_address '%s' appears invalid: %v", t.UDPTargetAddress, err)
		}
	}

	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return invalid("log_level '%s' is not recognized", c.LogLevel)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// applyEnvOverrides reads SESSIONKEY_* variables through viper, which
// handles the type conversion, and copies any that are set over the
// loaded values.
func (c *Config) applyEnvOverrides() {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	overrideBool(v, "debug", &c.Debug)
	overrideString(v, "log_level", &c.LogLevel)
	overrideString(v, "log_format", &c.LogFormat)

	overrideInt(v, "analysis.sample_rate", &c.Analysis.SampleRate)
	overrideInt(v, "analysis.frame_size", &c.Analysis.FrameSize)
	overrideInt(v, "analysis.hop_size", &c.Analysis.HopSize)
	overrideString(v, "analysis.window", &c.Analysis.Window)
	overrideFloat(v, "analysis.min_confidence", &c.Analysis.MinConfidence)
	overrideInt(v, "analysis.alternatives", &c.Analysis.Alternatives)
	overrideFloat(v, "analysis.trim_db", &c.Analysis.TrimDB)

	overrideDuration(v, "decode.min_duration", &c.Decode.MinDuration)
	overrideDuration(v, "decode.max_duration", &c.Decode.MaxDuration)
	overrideString(v, "decode.ffmpeg_path", &c.Decode.FFmpegPath)
	overrideString(v, "decode.ffprobe_path", &c.Decode.FFprobePath)

	overrideString(v, "server.addr", &c.Server.Addr)
	overrideInt(v, "server.workers", &c.Server.Workers)
	overrideInt(v, "server.queue_depth", &c.Server.QueueDepth)
	overrideInt64(v, "server.max_upload_bytes", &c.Server.MaxUploadBytes)

	overrideBool(v, "recognition.enabled", &c.Recognition.Enabled)
	overrideString(v, "recognition.host", &c.Recognition.Host)
	overrideString(v, "recognition.access_key", &c.Recognition.AccessKey)
	overrideString(v, "recognition.access_secret", &c.Recognition.AccessSecret)
	overrideDuration(v, "recognition.timeout", &c.Recognition.Timeout)

	overrideString(v, "history.path", &c.History.Path)

	overrideBool(v, "transport.websocket_enabled", &c.Transport.WebSocketEnabled)
	overrideBool(v, "transport.udp_enabled", &c.Transport.UDPEnabled)
	overrideString(v, "transport.udp_target_address", &c.Transport.UDPTargetAddress)
}

func overrideString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		*dst = v.GetString(key)
		logOverride(key, *dst)
	}
}

func overrideBool(v *viper.Viper, key string, dst *bool) {
	if v.IsSet(key) {
		*dst = v.GetBool(key)
		logOverride(key, *dst)
	}
}

func overrideInt(v *viper.Viper, key string, dst *int) {
	if v.IsSet(key) {
		*dst = v.GetInt(key)
		logOverride(key, *dst)
	}
}

func overrideInt64(v *viper.Viper, key string, dst *int64) {
	if v.IsSet(key) {
		*dst = v.GetInt64(key)
		logOverride(key, *dst)
	}
}

func overrideFloat(v *viper.Viper, key string, dst *float64) {
	if v.IsSet(key) {
		*dst = v.GetFloat64(key)
		logOverride(key, *dst)
	}
}

func overrideDuration(v *viper.Viper, key string, dst *time.Duration) {
	if v.IsSet(key) {
		*dst = v.GetDuration(key)
		logOverride(key, *dst)
	}
}

func logOverride(key string, value any) {
	if strings.Contains(key, "secret") || strings.Contains(key, "access_key") {
		value = "***"
	}
	log.Debugf("configuration: overriding %s from env: %v", key, value)
}
