// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"time"
)

// Format describes interleaved PCM data.
type Format struct {
	SampleRate int `mapstructure:"sample_rate" yaml:"sample_rate"`
	Channels   int `mapstructure:"channels" yaml:"channels"`
	BitDepth   int `mapstructure:"bit_depth" yaml:"bit_depth"`
}

// Validate reports whether f can describe a PCM stream.
func (f Format) Validate() error {
	switch {
	case f.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate %d", ErrInvalidFormat, f.SampleRate)
	case f.Channels <= 0:
		return fmt.Errorf("%w: %d channels", ErrInvalidFormat, f.Channels)
	case f.BitDepth <= 0 || f.BitDepth%8 != 0:
		return fmt.Errorf("%w: bit depth %d", ErrInvalidFormat, f.BitDepth)
	}
	return nil
}

// FrameSize is the size in bytes of one sample across all channels.
func (f Format) FrameSize() int {
	return f.Channels * f.BitDepth / 8
}

// Frames converts a byte count to whole frames.
func (f Format) Frames(bytes int) int {
	fs := f.FrameSize()
	if fs == 0 {
		return 0
	}
	return bytes / fs
}

// Duration of n bytes of audio in this format.
func (f Format) Duration(bytes int) time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(f.Frames(bytes)) * time.Second / time.Duration(f.SampleRate)
}

func (f Format) String() string {
	return fmt.Sprintf("%d Hz, %d ch, %d-bit", f.SampleRate, f.Channels, f.BitDepth)
}

// SoundBuffer is decoded PCM audio with its format. Treat Data as
// read-only: one buffer is shared by the cache and every channel playing it.
type SoundBuffer struct {
	Data   []byte
	Format Format
}

func NewSoundBuffer(data []byte, f Format) *SoundBuffer {
	return &SoundBuffer{Data: data, Format: f}
}

// Validate checks that the buffer carries data in a usable format.
func (b *SoundBuffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrInvalidFormat)
	}
	if len(b.Data) == 0 {
		return fmt.Errorf("%w: buffer has no audio data", ErrInvalidFormat)
	}
	return b.Format.Validate()
}

// Frames returns the number of whole frames in the buffer.
func (b *SoundBuffer) Frames() int {
	return b.Format.Frames(len(b.Data))
}

func (b *SoundBuffer) Duration() time.Duration {
	return b.Format.Duration(len(b.Data))
}
