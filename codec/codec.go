// SPDX-License-Identifier: EPL-2.0

// Package codec turns assets into PCM for the playback library.
//
// A Codec opens a Session per asset. ReadAll decodes the whole asset into an
// audio.SoundBuffer; Read hands out PCM in chunks for streaming playback.
// Decoders is the default Codec: it picks a format decoder from the asset
// extension through an audio.Registry and converts the decoded samples to a
// target format.
package codec

import (
	"fmt"
	"io"
	"io/fs"

	"github.com/ik5/soundsys/audio"
	"github.com/ik5/soundsys/formats/aiff"
	"github.com/ik5/soundsys/formats/mp3"
	"github.com/ik5/soundsys/formats/vorbis"
	"github.com/ik5/soundsys/formats/wav"
)

// Locator names an asset inside a filesystem.
type Locator struct {
	Key string
	FS  fs.FS
}

type Codec interface {
	Initialize(loc Locator) (Session, error)
}

// Session is one open, decoding asset. Sessions are not safe for concurrent
// use.
type Session interface {
	// Format of the PCM returned by ReadAll and Read.
	Format() audio.Format
	// ReadAll decodes everything left in the asset.
	ReadAll() (*audio.SoundBuffer, error)
	// Read returns up to max bytes of whole frames. The final chunk may be
	// returned together with io.EOF.
	Read(max int) ([]byte, error)
	Close() error
}

// DefaultRegistry returns a registry with every bundled format decoder.
func DefaultRegistry() *audio.Registry {
	reg := audio.NewRegistry()
	reg.Register("wav", wav.Decoder{})
	reg.Register("wave", wav.Decoder{})
	reg.Register("mp3", mp3.Decoder{})
	reg.Register("ogg", vorbis.Decoder{})
	reg.Register("oga", vorbis.Decoder{})
	reg.Register("aif", aiff.Decoder{})
	reg.Register("aiff", aiff.Decoder{})
	return reg
}

// Decoders dispatches on file extension. Zero fields in Target keep the
// asset's own rate, channel count or bit depth; the bit depth is always
// narrowed to 8 or 16.
type Decoders struct {
	Registry *audio.Registry
	Target   audio.Format
}

// New returns a codec using reg, or DefaultRegistry when reg is nil.
func New(reg *audio.Registry, target audio.Format) *Decoders {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Decoders{Registry: reg, Target: target}
}

func (d *Decoders) Initialize(loc Locator) (Session, error) {
	if d.Registry == nil {
		return nil, fmt.Errorf("%w: %s: no registry", ErrNoCodec, loc.Key)
	}
	if loc.FS == nil {
		return nil, fmt.Errorf("%w: %s: no filesystem", ErrNoAsset, loc.Key)
	}

	dec, format, ok := d.Registry.ForName(loc.Key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoCodec, loc.Key)
	}

	f, err := loc.FS.Open(loc.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoAsset, err)
	}

	src, err := dec.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s as %s: %w", ErrDecode, loc.Key, format, err)
	}

	target := d.Target
	if target.BitDepth == 0 {
		target.BitDepth = audio.NativeBitDepth(src)
	}

	r, err := audio.NewPCMReader(audio.Convert(src, target), target.BitDepth)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, loc.Key, err)
	}

	return &session{key: loc.Key, r: r}, nil
}

type session struct {
	key    string
	r      *audio.PCMReader
	eof    bool
	closed bool
}

func (s *session) Format() audio.Format { return s.r.Format() }

func (s *session) ReadAll() (*audio.SoundBuffer, error) {
	buf, err := s.r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, s.key, err)
	}
	s.eof = true
	return buf, nil
}

func (s *session) Read(max int) ([]byte, error) {
	if s.eof {
		return nil, io.EOF
	}

	size := max - max%s.r.Format().FrameSize()
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d bytes", audio.ErrShortBuffer, max)
	}

	p := make([]byte, size)
	n, err := s.r.Read(p)
	if err == io.EOF {
		s.eof = true
		return p[:n], io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, s.key, err)
	}
	return p[:n], nil
}

func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.r.Close()
}
