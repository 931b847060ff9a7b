// SPDX-License-Identifier: EPL-2.0

package sound

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/ik5/soundsys/audio"
	"github.com/ik5/soundsys/codec"
	"github.com/ik5/soundsys/internal/backendtest"
)

var (
	mono16   = audio.Format{SampleRate: 8000, Channels: 1, BitDepth: 16}
	mono8    = audio.Format{SampleRate: 8000, Channels: 1, BitDepth: 8}
	stereo16 = audio.Format{SampleRate: 8000, Channels: 2, BitDepth: 16}
)

func pcm16(samples ...int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

// ramp returns n bytes of 16-bit mono PCM that differ frame to frame.
func ramp(n int) []byte {
	out := make([]byte, n)
	for i := 0; i+1 < n; i += 2 {
		binary.LittleEndian.PutUint16(out[i:], uint16(int16(-i)))
	}
	return out
}

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testEnv(d *Diagnostics) *env {
	return &env{diag: d, log: discard()}
}

// memCodec serves in-memory buffers and counts sessions.
type memCodec struct {
	sounds map[string]*audio.SoundBuffer
	opens  int
	closes int
}

func newMemCodec() *memCodec {
	return &memCodec{sounds: map[string]*audio.SoundBuffer{
		"a.wav":     audio.NewSoundBuffer(pcm16(0, -100, -200, -300), mono16),
		"b.wav":     audio.NewSoundBuffer(pcm16(-1, -2), mono16),
		"c.wav":     audio.NewSoundBuffer([]byte{128, 64, 0}, mono8),
		"song.ogg":  audio.NewSoundBuffer(ramp(200), mono16),
		"empty.wav": audio.NewSoundBuffer(nil, mono16),
		"deep.wav":  audio.NewSoundBuffer(make([]byte, 6), audio.Format{SampleRate: 8000, Channels: 1, BitDepth: 24}),
	}}
}

func (c *memCodec) Initialize(loc codec.Locator) (codec.Session, error) {
	buf, ok := c.sounds[loc.Key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", codec.ErrNoAsset, loc.Key)
	}
	c.opens++
	return &memSession{c: c, buf: buf}, nil
}

type memSession struct {
	c      *memCodec
	buf    *audio.SoundBuffer
	pos    int
	closed bool
}

func (s *memSession) Format() audio.Format { return s.buf.Format }

func (s *memSession) ReadAll() (*audio.SoundBuffer, error) {
	data := s.buf.Data[s.pos:]
	s.pos = len(s.buf.Data)
	return audio.NewSoundBuffer(data, s.buf.Format), nil
}

func (s *memSession) Read(max int) ([]byte, error) {
	size := max - max%s.buf.Format.FrameSize()
	if size <= 0 {
		return nil, audio.ErrShortBuffer
	}
	if s.pos >= len(s.buf.Data) {
		return nil, io.EOF
	}
	end := min(s.pos+size, len(s.buf.Data))
	chunk := s.buf.Data[s.pos:end]
	s.pos = end
	if s.pos == len(s.buf.Data) {
		return chunk, io.EOF
	}
	return chunk, nil
}

func (s *memSession) Close() error {
	if !s.closed {
		s.closed = true
		s.c.closes++
	}
	return nil
}

func newTestLibrary(t *testing.T, drv *backendtest.Driver, opts ...Option) (*Library, *memCodec) {
	t.Helper()

	c := newMemCodec()
	base := []Option{
		WithChannels(4, 2),
		WithStreaming(64, 3),
		WithLogger(discard()),
		WithMeterProvider(noop.NewMeterProvider()),
	}
	lib, err := New(drv, c, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { lib.Close() })
	return lib, c
}

// balanced checks that every line opened on drv was closed or is still
// attached.
func balanced(t *testing.T, drv *backendtest.Driver) {
	t.Helper()

	if got := drv.Closes + drv.Attached(); drv.Opens != got {
		t.Errorf("opens = %d, closes + attached = %d", drv.Opens, got)
	}
}
