// SPDX-License-Identifier: EPL-2.0

// Package audiotest provides generated audio sources for tests.
package audiotest

import (
	"errors"
	"io"
	"math"
)

// ErrInjected is returned by sources built with FailAfter.
var ErrInjected = errors.New("audiotest: injected read failure")

// Waveform returns the sample value for a frame index and channel.
type Waveform func(frame, channel int) float32

// MockSource generates frames from a Waveform. It satisfies audio.Source
// without importing it.
type MockSource struct {
	sampleRate int
	channels   int
	frames     int
	pos        int
	bitDepth   int
	failAt     int
	closed     bool
	waveform   Waveform
}

// NewMockSource returns a source of frames frames per channel.
func NewMockSource(sampleRate, channels, frames int, waveform Waveform) *MockSource {
	return &MockSource{
		sampleRate: sampleRate,
		channels:   channels,
		frames:     frames,
		failAt:     -1,
		waveform:   waveform,
	}
}

func NewSilentSource(sampleRate, channels, frames int) *MockSource {
	return NewConstantSource(sampleRate, channels, frames, 0)
}

func NewSineSource(sampleRate, channels, frames int, frequency float64) *MockSource {
	return NewMockSource(sampleRate, channels, frames, func(frame, _ int) float32 {
		t := float64(frame) / float64(sampleRate)
		return float32(math.Sin(2 * math.Pi * frequency * t))
	})
}

func NewConstantSource(sampleRate, channels, frames int, value float32) *MockSource {
	return NewMockSource(sampleRate, channels, frames, func(int, int) float32 { return value })
}

// NewRampSource counts frames: frame i carries i/frames on every channel.
func NewRampSource(sampleRate, channels, frames int) *MockSource {
	return NewMockSource(sampleRate, channels, frames, func(frame, _ int) float32 {
		return float32(frame) / float32(frames)
	})
}

// WithBitDepth makes the source report an encoded bit depth.
func (m *MockSource) WithBitDepth(bits int) *MockSource {
	m.bitDepth = bits
	return m
}

// FailAfter makes ReadSamples return ErrInjected once frame is reached.
func (m *MockSource) FailAfter(frame int) *MockSource {
	m.failAt = frame
	return m
}

func (m *MockSource) SampleRate() int { return m.sampleRate }
func (m *MockSource) Channels() int   { return m.channels }
func (m *MockSource) BufSize() int    { return 4096 }
func (m *MockSource) BitDepth() int   { return m.bitDepth }

func (m *MockSource) Close() error {
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockSource) Closed() bool { return m.closed }

// Reset rewinds the source to frame zero.
func (m *MockSource) Reset() {
	m.pos = 0
}

func (m *MockSource) ReadSamples(dst []float32) (int, error) {
	if m.failAt >= 0 && m.pos >= m.failAt {
		return 0, ErrInjected
	}
	if m.pos >= m.frames {
		return 0, io.EOF
	}

	n := min(len(dst)/m.channels, m.frames-m.pos)
	if m.failAt >= 0 {
		n = min(n, m.failAt-m.pos)
	}

	for f := range n {
		for c := range m.channels {
			dst[f*m.channels+c] = m.waveform(m.pos+f, c)
		}
	}
	m.pos += n

	if m.pos >= m.frames {
		return n * m.channels, io.EOF
	}
	return n * m.channels, nil
}
