// SPDX-License-Identifier: EPL-2.0

package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ik5/soundsys/audio"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "soundsys.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestDefault_IsValid(t *testing.T) {
	t.Parallel()

	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := writeFile(t, `
library:
  buffered_channels: 8
  copy_policy: strict
backend:
  sample_rate: 22050
  stream_buffer: 80ms
  speaker: false
codec:
  target:
    sample_rate: 16000
    bit_depth: 16
logging:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := Default()
	want.Library.BufferedChannels = 8
	want.Library.CopyPolicy = "strict"
	want.Backend.SampleRate = 22050
	want.Backend.StreamBuffer = 80 * time.Millisecond
	want.Backend.Speaker = false
	want.Codec.Target = audio.Format{SampleRate: 16000, BitDepth: 16}
	want.Logging.Level = "debug"

	if !reflect.DeepEqual(cfg, want) {
		t.Errorf("Load() = %+v, want %+v", cfg, want)
	}
}

func TestLoad_Env(t *testing.T) {
	path := writeFile(t, "logging:\n  format: json\n")
	t.Setenv("SOUNDSYS_LIBRARY_STREAMING_CHANNELS", "9")
	t.Setenv("SOUNDSYS_BACKEND_LATENCY", "40ms")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Library.StreamingChannels != 9 {
		t.Errorf("StreamingChannels = %d, want 9", cfg.Library.StreamingChannels)
	}
	if cfg.Backend.Latency != 40*time.Millisecond {
		t.Errorf("Latency = %v, want 40ms", cfg.Backend.Latency)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Format = %q, want json", cfg.Logging.Format)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
	if _, err := Load(writeFile(t, "library: [unclosed")); err == nil {
		t.Error("Load() of broken YAML succeeded")
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Codec.Target = audio.Format{SampleRate: 8000, Channels: 1, BitDepth: 8}
	cfg.Backend.MasterVolume = 0.5

	var buf bytes.Buffer
	if err := Write(&buf, cfg); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !strings.Contains(buf.String(), "buffered_channels: 28") {
		t.Errorf("Write() output missing keys:\n%s", buf.String())
	}

	got, err := Load(writeFile(t, buf.String()))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Errorf("round trip = %+v, want %+v", got, cfg)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{name: "negative buffered", mutate: func(c *Config) { c.Library.BufferedChannels = -1 }, field: "library.buffered_channels"},
		{name: "negative streaming", mutate: func(c *Config) { c.Library.StreamingChannels = -1 }, field: "library.streaming_channels"},
		{
			name: "no channels",
			mutate: func(c *Config) {
				c.Library.BufferedChannels = 0
				c.Library.StreamingChannels = 0
			},
			field: "library.buffered_channels",
		},
		{name: "copy policy", mutate: func(c *Config) { c.Library.CopyPolicy = "sometimes" }, field: "library.copy_policy"},
		{name: "chunk", mutate: func(c *Config) { c.Library.StreamChunk = 0 }, field: "library.stream_chunk"},
		{name: "preload", mutate: func(c *Config) { c.Library.Preload = 0 }, field: "library.preload"},
		{name: "driver", mutate: func(c *Config) { c.Backend.Driver = "alsa" }, field: "backend.driver"},
		{name: "rate", mutate: func(c *Config) { c.Backend.SampleRate = 1000 }, field: "backend.sample_rate"},
		{name: "lines", mutate: func(c *Config) { c.Backend.MaxLines = 0 }, field: "backend.max_lines"},
		{name: "stream buffer", mutate: func(c *Config) { c.Backend.StreamBuffer = 0 }, field: "backend.stream_buffer"},
		{name: "master", mutate: func(c *Config) { c.Backend.MasterVolume = 1.5 }, field: "backend.master_volume"},
		{name: "target rate", mutate: func(c *Config) { c.Codec.Target.SampleRate = 200000 }, field: "codec.target.sample_rate"},
		{name: "target channels", mutate: func(c *Config) { c.Codec.Target.Channels = 6 }, field: "codec.target.channels"},
		{name: "target depth", mutate: func(c *Config) { c.Codec.Target.BitDepth = 24 }, field: "codec.target.bit_depth"},
		{name: "level", mutate: func(c *Config) { c.Logging.Level = "loud" }, field: "logging.level"},
		{name: "format", mutate: func(c *Config) { c.Logging.Format = "xml" }, field: "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(cfg)

			var ce *ConfigError
			if err := cfg.Validate(); !errors.As(err, &ce) {
				t.Fatalf("Validate() = %v, want *ConfigError", err)
			}
			if ce.Field != tt.field {
				t.Errorf("Field = %q, want %q", ce.Field, tt.field)
			}
		})
	}
}

func TestOptions(t *testing.T) {
	t.Parallel()

	cfg := Default()
	if got := len(cfg.Library.Options()); got != 4 {
		t.Errorf("library options = %d, want 4", got)
	}

	tests := []struct {
		speaker, config bool
		want            int
	}{
		{speaker: true, config: true, want: 4},
		{speaker: false, config: true, want: 3},
		{speaker: true, config: false, want: 3},
	}
	for _, tt := range tests {
		b := cfg.Backend
		b.Speaker = tt.config
		if got := len(b.Options(tt.speaker)); got != tt.want {
			t.Errorf("Options(%v) with speaker=%v gave %d options, want %d", tt.speaker, tt.config, got, tt.want)
		}
	}
}
