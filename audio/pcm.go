// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ik5/soundsys/utils"
)

// PCMReader encodes a float Source as interleaved little-endian PCM.
// 8-bit output is unsigned, 16-bit output is signed. Reads always end on a
// frame boundary.
type PCMReader struct {
	src    Source
	format Format
	buf    []float32
}

func NewPCMReader(src Source, bitDepth int) (*PCMReader, error) {
	if bitDepth != 8 && bitDepth != 16 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}

	return &PCMReader{
		src: src,
		format: Format{
			SampleRate: src.SampleRate(),
			Channels:   src.Channels(),
			BitDepth:   bitDepth,
		},
	}, nil
}

// Format of the bytes produced by Read.
func (r *PCMReader) Format() Format { return r.format }

func (r *PCMReader) Close() error { return r.src.Close() }

func (r *PCMReader) Read(p []byte) (int, error) {
	width := r.format.BitDepth / 8
	samples := len(p) / width
	samples -= samples % r.format.Channels
	if samples == 0 {
		return 0, ErrShortBuffer
	}

	if cap(r.buf) < samples {
		r.buf = make([]float32, samples)
	}
	buf := r.buf[:samples]

	n, err := r.src.ReadSamples(buf)
	if width == 1 {
		for i, v := range buf[:n] {
			p[i] = utils.Float32ToUint8(v)
		}
	} else {
		for i, v := range buf[:n] {
			binary.LittleEndian.PutUint16(p[2*i:], uint16(utils.Float32ToInt16(v)))
		}
	}

	if err != nil && err != io.EOF {
		return n * width, fmt.Errorf("%w", err)
	}
	return n * width, err
}

// Convert builds a pipeline that turns src into target's rate and channel
// layout. Zero fields in target keep the source value. Channel reduction
// happens before resampling so fewer channels are interpolated.
func Convert(src Source, target Format) Source {
	out := src
	reduce := target.Channels > 0 && target.Channels < out.Channels()

	if reduce {
		out = NewChannelMixer(out, target.Channels)
	}
	if target.SampleRate > 0 && target.SampleRate != out.SampleRate() {
		out = NewResampler(out, target.SampleRate)
	}
	if !reduce && target.Channels > 0 && target.Channels != out.Channels() {
		out = NewChannelMixer(out, target.Channels)
	}

	return out
}

// ReadAll drains src into a SoundBuffer in target's format. A zero
// target.BitDepth keeps the source's native depth.
func ReadAll(src Source, target Format) (*SoundBuffer, error) {
	depth := target.BitDepth
	if depth == 0 {
		depth = NativeBitDepth(src)
	}

	r, err := NewPCMReader(Convert(src, target), depth)
	if err != nil {
		return nil, err
	}
	return r.ReadAll()
}

// ReadAll encodes everything left in the source into one SoundBuffer.
func (r *PCMReader) ReadAll() (*SoundBuffer, error) {
	chunk := make([]byte, 4096*r.format.FrameSize())
	var data []byte
	for {
		n, err := r.Read(chunk)
		data = append(data, chunk[:n]...)

		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	return NewSoundBuffer(data, r.format), nil
}
