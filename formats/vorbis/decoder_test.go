// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// mockOggVorbisReader hands out interleaved values like oggvorbis.Reader:
// the count returned is values, not frames.
type mockOggVorbisReader struct {
	channels int
	samples  []float32
	err      error
}

func (m *mockOggVorbisReader) SampleRate() int { return 48000 }
func (m *mockOggVorbisReader) Channels() int   { return m.channels }

func (m *mockOggVorbisReader) Read(buf []float32) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	if len(m.samples) == 0 {
		return 0, io.EOF
	}
	n := copy(buf, m.samples)
	m.samples = m.samples[n:]
	return n, nil
}

func newMockSource(channels int, samples ...float32) *source {
	return &source{
		dec:        &mockOggVorbisReader{channels: channels, samples: samples},
		sampleRate: 48000,
		channels:   channels,
	}
}

func TestDecoder_InvalidInput(t *testing.T) {
	t.Parallel()

	for _, data := range [][]byte{nil, []byte("This is not Ogg Vorbis data")} {
		if _, err := (Decoder{}).Decode(bytes.NewReader(data)); err == nil {
			t.Errorf("Decode(%q) error = nil, want error", data)
		}
	}
}

func TestSource_ReturnsValueCount(t *testing.T) {
	t.Parallel()

	src := newMockSource(2, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6)
	dst := make([]float32, 4)

	n, err := src.ReadSamples(dst)
	if n != 4 || err != nil {
		t.Fatalf("ReadSamples() = %d, %v; want 4, nil", n, err)
	}
	if dst[3] != 0.4 {
		t.Errorf("dst[3] = %v, want 0.4", dst[3])
	}

	n, _ = src.ReadSamples(dst)
	if n != 2 {
		t.Errorf("second ReadSamples() = %d, want 2", n)
	}
	if n, err = src.ReadSamples(dst); n != 0 || err != io.EOF {
		t.Errorf("ReadSamples() at end = %d, %v; want 0, EOF", n, err)
	}
}

func TestSource_FrameAlignedRequest(t *testing.T) {
	t.Parallel()

	src := newMockSource(3, make([]float32, 30)...)
	if n, _ := src.ReadSamples(make([]float32, 10)); n != 9 {
		t.Errorf("ReadSamples(10) with 3 channels = %d, want 9", n)
	}
	if n, err := src.ReadSamples(make([]float32, 2)); n != 0 || err != nil {
		t.Errorf("ReadSamples(2) = %d, %v; want 0, nil", n, err)
	}
}

func TestSource_Error(t *testing.T) {
	t.Parallel()

	src := &source{dec: &mockOggVorbisReader{channels: 1, err: io.ErrUnexpectedEOF}, channels: 1}
	if _, err := src.ReadSamples(make([]float32, 4)); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReadSamples() error = %v, want ErrUnexpectedEOF", err)
	}
}

func BenchmarkSource_ReadSamples(b *testing.B) {
	samples := make([]float32, 48000*2)
	dst := make([]float32, 4096)

	b.ReportAllocs()
	for b.Loop() {
		src := newMockSource(2, samples...)
		for {
			if _, err := src.ReadSamples(dst); err != nil {
				break
			}
		}
	}
}
