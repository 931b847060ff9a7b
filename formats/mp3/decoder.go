// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"encoding/binary"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/ik5/soundsys/audio"
	"github.com/ik5/soundsys/utils"
)

// go-mp3 always produces 16-bit little-endian stereo.
const (
	channels    = 2
	bytesPerVal = 2
	frameBytes  = channels * bytesPerVal
)

// mp3Reader is the part of gomp3.Decoder the source needs; tests swap it.
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

type source struct {
	dec        mp3Reader
	sampleRate int
	buf        []byte
	closer     io.Closer
	eof        bool
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return channels }
func (s *source) BitDepth() int   { return 16 }
func (s *source) BufSize() int    { return cap(s.buf) / bytesPerVal }

func (s *source) Close() error {
	if s.closer == nil {
		return nil
	}
	if err := s.closer.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

func (s *source) ReadSamples(dst []float32) (int, error) {
	if s.eof {
		return 0, io.EOF
	}

	frames := len(dst) / channels
	if frames == 0 {
		return 0, nil
	}

	need := frames * frameBytes
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	s.buf = s.buf[:need]

	// go-mp3 may return short reads mid-stream; ReadFull keeps frames whole
	n, err := io.ReadFull(s.dec, s.buf)
	switch err {
	case nil:
	case io.EOF, io.ErrUnexpectedEOF:
		s.eof = true
		err = io.EOF
	default:
		return 0, fmt.Errorf("mp3: %w", err)
	}

	n -= n % frameBytes
	samples := n / bytesPerVal
	for i := range samples {
		dst[i] = utils.Int16ToFloat32(int16(binary.LittleEndian.Uint16(s.buf[2*i:])))
	}

	return samples, err
}

// Decoder reads MPEG-1/2 Layer III streams. If r is an io.Closer the
// returned source closes it.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}

	s := &source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		buf:        make([]byte, 8192),
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}

	return s, nil
}
