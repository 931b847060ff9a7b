// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"

	"github.com/ik5/soundsys/utils"
)

// Resampler streams src at dstRate using Catmull-Rom interpolation.
// Works on interleaved samples; preserves channel count. A one-pole
// low-pass filter is applied to the input when downsampling.
type Resampler struct {
	src      Source
	srcRate  int64
	dstRate  int
	channels int

	// hist holds frames base-1, base, base+1 and base+2.
	hist [4][]float32
	base int64
	out  int64 // output frames produced; position is out*srcRate/dstRate

	read     int64 // real frames pulled from src
	lastReal int64 // index of the final real frame once drained
	drained  bool
	primed   bool

	in    []float32
	inPos int
	eof   bool

	lowpass []float32
	filter  bool
}

func NewResampler(src Source, dstRate int) *Resampler {
	channels := src.Channels()

	r := &Resampler{
		src:      src,
		srcRate:  int64(src.SampleRate()),
		dstRate:  dstRate,
		channels: channels,
		lastReal: -1,
		in:       make([]float32, 0, 1024*channels),
		filter:   src.SampleRate() > dstRate,
	}
	for i := range r.hist {
		r.hist[i] = make([]float32, channels)
	}
	if r.filter {
		r.lowpass = make([]float32, channels)
	}

	return r
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// nextFrame copies the next source frame into dst. ok is false once the
// source has nothing left.
func (r *Resampler) nextFrame(dst []float32) (bool, error) {
	for r.inPos >= len(r.in) {
		if r.eof {
			return false, nil
		}

		buf := r.in[:cap(r.in)]
		n, err := r.src.ReadSamples(buf)
		n -= n % r.channels
		r.in = buf[:n]
		r.inPos = 0

		if err == io.EOF {
			r.eof = true
		} else if err != nil {
			return false, fmt.Errorf("%w", err)
		}
	}

	copy(dst, r.in[r.inPos:r.inPos+r.channels])
	r.inPos += r.channels

	if r.filter {
		if r.read == 0 {
			copy(r.lowpass, dst)
		}
		for c := range r.channels {
			dst[c] = 0.5*dst[c] + 0.5*r.lowpass[c]
			r.lowpass[c] = dst[c]
		}
	}

	return true, nil
}

// fill loads hist[i] with the next real frame, or repeats hist[i-1] once
// the source is drained.
func (r *Resampler) fill(i int) error {
	if !r.drained {
		ok, err := r.nextFrame(r.hist[i])
		if err != nil {
			return err
		}
		if ok {
			r.read++
			return nil
		}
		r.drained = true
		r.lastReal = r.read - 1
	}

	copy(r.hist[i], r.hist[i-1])
	return nil
}

func (r *Resampler) prime() error {
	r.primed = true

	ok, err := r.nextFrame(r.hist[1])
	if err != nil {
		return err
	}
	if !ok {
		r.drained = true
		return io.EOF
	}
	r.read = 1
	copy(r.hist[0], r.hist[1])

	if err := r.fill(2); err != nil {
		return err
	}
	return r.fill(3)
}

func (r *Resampler) shift() error {
	r.hist[0], r.hist[1], r.hist[2], r.hist[3] = r.hist[1], r.hist[2], r.hist[3], r.hist[0]
	r.base++
	return r.fill(3)
}

func (r *Resampler) exhausted() bool {
	return r.drained && r.base > r.lastReal
}

// ReadSamples produces dst samples at the destination rate.
// dst length should be a multiple of the channel count.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	if !r.primed {
		if err := r.prime(); err != nil {
			return 0, err
		}
	}

	frames := len(dst) / r.channels
	dstRate := int64(r.dstRate)
	written := 0

	for written < frames {
		target := r.out * r.srcRate
		for r.base < target/dstRate {
			if err := r.shift(); err != nil {
				return written * r.channels, err
			}
		}

		if r.exhausted() {
			break
		}

		alpha := float32(target%dstRate) / float32(dstRate)
		frame := dst[written*r.channels : (written+1)*r.channels]
		for c := range frame {
			frame[c] = utils.CubicInterpolate(r.hist[0][c], r.hist[1][c], r.hist[2][c], r.hist[3][c], alpha)
		}

		written++
		r.out++
	}

	if written < frames && r.exhausted() {
		return written * r.channels, io.EOF
	}

	return written * r.channels, nil
}
