// SPDX-License-Identifier: EPL-2.0

// Package config loads soundsys settings from YAML files and SOUNDSYS_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ik5/soundsys/audio"
	"github.com/ik5/soundsys/backend/beepdrv"
	"github.com/ik5/soundsys/sound"
)

// EnvPrefix prefixes every environment override, e.g.
// SOUNDSYS_LIBRARY_BUFFERED_CHANNELS.
const EnvPrefix = "SOUNDSYS"

type Config struct {
	Library LibraryConfig `mapstructure:"library" yaml:"library"`
	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`
	Codec   CodecConfig   `mapstructure:"codec" yaml:"codec"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// LibraryConfig sizes the channel pools and sets where assets live.
type LibraryConfig struct {
	BufferedChannels  int    `mapstructure:"buffered_channels" yaml:"buffered_channels"`
	StreamingChannels int    `mapstructure:"streaming_channels" yaml:"streaming_channels"`
	CopyPolicy        string `mapstructure:"copy_policy" yaml:"copy_policy"` // lenient or strict
	Assets            string `mapstructure:"assets" yaml:"assets"`
	StreamChunk       int    `mapstructure:"stream_chunk" yaml:"stream_chunk"`
	Preload           int    `mapstructure:"preload" yaml:"preload"`
}

type BackendConfig struct {
	Driver       string        `mapstructure:"driver" yaml:"driver"`
	SampleRate   int           `mapstructure:"sample_rate" yaml:"sample_rate"`
	MaxLines     int           `mapstructure:"max_lines" yaml:"max_lines"`
	StreamBuffer time.Duration `mapstructure:"stream_buffer" yaml:"stream_buffer"`
	Speaker      bool          `mapstructure:"speaker" yaml:"speaker"`
	Latency      time.Duration `mapstructure:"latency" yaml:"latency"`
	MasterVolume float64       `mapstructure:"master_volume" yaml:"master_volume"`
}

// CodecConfig is the format decoded assets are converted to. Zero fields
// keep the asset's own value.
type CodecConfig struct {
	Target audio.Format `mapstructure:"target" yaml:"target"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // json or text
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Library: LibraryConfig{
			BufferedChannels:  28,
			StreamingChannels: 4,
			CopyPolicy:        "lenient",
			Assets:            ".",
			StreamChunk:       16 * 1024,
			Preload:           3,
		},
		Backend: BackendConfig{
			Driver:       "beep",
			SampleRate:   44100,
			MaxLines:     32,
			StreamBuffer: 250 * time.Millisecond,
			Speaker:      true,
			Latency:      100 * time.Millisecond,
			MasterVolume: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("library.buffered_channels", d.Library.BufferedChannels)
	v.SetDefault("library.streaming_channels", d.Library.StreamingChannels)
	v.SetDefault("library.copy_policy", d.Library.CopyPolicy)
	v.SetDefault("library.assets", d.Library.Assets)
	v.SetDefault("library.stream_chunk", d.Library.StreamChunk)
	v.SetDefault("library.preload", d.Library.Preload)

	v.SetDefault("backend.driver", d.Backend.Driver)
	v.SetDefault("backend.sample_rate", d.Backend.SampleRate)
	v.SetDefault("backend.max_lines", d.Backend.MaxLines)
	v.SetDefault("backend.stream_buffer", d.Backend.StreamBuffer.String())
	v.SetDefault("backend.speaker", d.Backend.Speaker)
	v.SetDefault("backend.latency", d.Backend.Latency.String())
	v.SetDefault("backend.master_volume", d.Backend.MasterVolume)

	v.SetDefault("codec.target.sample_rate", 0)
	v.SetDefault("codec.target.channels", 0)
	v.SetDefault("codec.target.bit_depth", 0)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Load reads path, or soundsys.yaml from the usual places when path is
// empty, and applies environment overrides. A missing file is only an
// error when path was given.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("soundsys")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.soundsys")
		v.AddConfigPath("/etc/soundsys")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Debug("no config file found, using defaults and environment")
	} else {
		slog.Debug("using config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// Write encodes cfg as YAML that Load reads back unchanged.
func Write(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	l, b, t := c.Library, c.Backend, c.Codec.Target

	switch {
	case l.BufferedChannels < 0:
		return &ConfigError{Field: "library.buffered_channels", Message: "must not be negative"}
	case l.StreamingChannels < 0:
		return &ConfigError{Field: "library.streaming_channels", Message: "must not be negative"}
	case l.BufferedChannels+l.StreamingChannels == 0:
		return &ConfigError{Field: "library.buffered_channels", Message: "at least one channel is required"}
	case !oneOf(l.CopyPolicy, "lenient", "strict"):
		return &ConfigError{Field: "library.copy_policy", Message: fmt.Sprintf("unknown policy %q", l.CopyPolicy)}
	case l.StreamChunk <= 0:
		return &ConfigError{Field: "library.stream_chunk", Message: "must be positive"}
	case l.Preload <= 0:
		return &ConfigError{Field: "library.preload", Message: "must be positive"}

	case b.Driver != "beep":
		return &ConfigError{Field: "backend.driver", Message: fmt.Sprintf("unknown driver %q", b.Driver)}
	case b.SampleRate < 4000 || b.SampleRate > 192000:
		return &ConfigError{Field: "backend.sample_rate", Message: "must be between 4000 and 192000"}
	case b.MaxLines <= 0:
		return &ConfigError{Field: "backend.max_lines", Message: "must be positive"}
	case b.StreamBuffer <= 0:
		return &ConfigError{Field: "backend.stream_buffer", Message: "must be positive"}
	case b.MasterVolume < 0 || b.MasterVolume > 1:
		return &ConfigError{Field: "backend.master_volume", Message: "must be between 0 and 1"}

	case t.SampleRate != 0 && (t.SampleRate < 4000 || t.SampleRate > 192000):
		return &ConfigError{Field: "codec.target.sample_rate", Message: "must be 0 or between 4000 and 192000"}
	case t.Channels != 0 && t.Channels != 1 && t.Channels != 2:
		return &ConfigError{Field: "codec.target.channels", Message: "must be 0, 1 or 2"}
	case t.BitDepth != 0 && t.BitDepth != 8 && t.BitDepth != 16:
		return &ConfigError{Field: "codec.target.bit_depth", Message: "must be 0, 8 or 16"}

	case !oneOf(c.Logging.Level, "debug", "info", "warn", "warning", "error"):
		return &ConfigError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	case !oneOf(c.Logging.Format, "text", "json"):
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return true
		}
	}
	return false
}

// Options translates the library section into sound options.
func (c LibraryConfig) Options() []sound.Option {
	policy := sound.CopyLenient
	if strings.EqualFold(c.CopyPolicy, "strict") {
		policy = sound.CopyStrict
	}
	return []sound.Option{
		sound.WithChannels(c.BufferedChannels, c.StreamingChannels),
		sound.WithCopyPolicy(policy),
		sound.WithAssets(os.DirFS(c.Assets)),
		sound.WithStreaming(c.StreamChunk, c.Preload),
	}
}

// Options translates the backend section into beep driver options. The
// speaker is only opened when both the config and the caller want it.
func (c BackendConfig) Options(speaker bool) []beepdrv.Option {
	opts := []beepdrv.Option{
		beepdrv.WithSampleRate(c.SampleRate),
		beepdrv.WithMaxLines(c.MaxLines),
		beepdrv.WithStreamBuffer(c.StreamBuffer),
	}
	if speaker && c.Speaker {
		opts = append(opts, beepdrv.WithSpeaker(c.Latency))
	}
	return opts
}

// ConfigError names the setting that failed validation.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
