// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

// mockMP3Reader serves int16 samples as little-endian bytes, at most
// chunk bytes per Read to mimic go-mp3's uneven reads.
type mockMP3Reader struct {
	data  []byte
	chunk int
	err   error
}

func newMockReader(chunk int, samples ...int16) *mockMP3Reader {
	data := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[2*i:], uint16(s))
	}
	return &mockMP3Reader{data: data, chunk: chunk}
}

func (m *mockMP3Reader) SampleRate() int { return 44100 }

func (m *mockMP3Reader) Read(p []byte) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	if len(m.data) == 0 {
		return 0, io.EOF
	}
	if m.chunk > 0 && len(p) > m.chunk {
		p = p[:m.chunk]
	}
	n := copy(p, m.data)
	m.data = m.data[n:]
	return n, nil
}

func TestDecoder_InvalidInput(t *testing.T) {
	t.Parallel()

	for _, data := range [][]byte{nil, []byte("This is not MP3 data")} {
		if _, err := (Decoder{}).Decode(bytes.NewReader(data)); err == nil {
			t.Errorf("Decode(%q) error = nil, want error", data)
		}
	}
}

func TestSource_ReadSamples(t *testing.T) {
	t.Parallel()

	src := &source{dec: newMockReader(0, 0, 16384, -16384, -32768, 8192, -8192), sampleRate: 44100}
	dst := make([]float32, 8)

	n, err := src.ReadSamples(dst)
	if n != 6 || err != io.EOF {
		t.Fatalf("ReadSamples() = %d, %v; want 6, EOF", n, err)
	}

	want := []float32{0, 0.5, -0.5, -1, 0.25, -0.25}
	for i, w := range want {
		if dst[i] != w {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], w)
		}
	}
	if src.Channels() != 2 || src.BitDepth() != 16 {
		t.Errorf("Channels() = %d, BitDepth() = %d", src.Channels(), src.BitDepth())
	}
}

func TestSource_UnevenReadsStayFrameAligned(t *testing.T) {
	t.Parallel()

	samples := make([]int16, 1000)
	src := &source{dec: newMockReader(7, samples...), sampleRate: 44100}
	dst := make([]float32, 64)

	total := 0
	for {
		n, err := src.ReadSamples(dst)
		if n%2 != 0 {
			t.Fatalf("ReadSamples() returned %d samples, not frame aligned", n)
		}
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadSamples() error = %v", err)
		}
	}
	if total != len(samples) {
		t.Errorf("read %d samples, want %d", total, len(samples))
	}
}

func TestSource_TruncatedFrameDropped(t *testing.T) {
	t.Parallel()

	src := &source{dec: newMockReader(0, 1, 2, 3), sampleRate: 44100}
	n, err := src.ReadSamples(make([]float32, 16))
	if n != 2 || err != io.EOF {
		t.Errorf("ReadSamples() = %d, %v; want 2, EOF", n, err)
	}
	if n, err = src.ReadSamples(make([]float32, 16)); n != 0 || err != io.EOF {
		t.Errorf("ReadSamples() after EOF = %d, %v", n, err)
	}
}

func TestSource_Error(t *testing.T) {
	t.Parallel()

	boom := errors.New("corrupt frame")
	src := &source{dec: &mockMP3Reader{err: boom}, sampleRate: 44100}
	if _, err := src.ReadSamples(make([]float32, 4)); !errors.Is(err, boom) {
		t.Errorf("ReadSamples() error = %v, want %v", err, boom)
	}
}

func TestSource_SingleSampleBuffer(t *testing.T) {
	t.Parallel()

	src := &source{dec: newMockReader(0, 1, 2), sampleRate: 44100}
	if n, err := src.ReadSamples(make([]float32, 1)); n != 0 || err != nil {
		t.Errorf("ReadSamples(1) = %d, %v; want 0, nil", n, err)
	}
}

func BenchmarkSource_ReadSamples(b *testing.B) {
	samples := make([]int16, 44100*2)
	dst := make([]float32, 4096)

	b.ReportAllocs()
	for b.Loop() {
		src := &source{dec: newMockReader(0, samples...), sampleRate: 44100}
		for {
			if _, err := src.ReadSamples(dst); err != nil {
				break
			}
		}
	}
}
