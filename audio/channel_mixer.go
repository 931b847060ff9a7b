// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// ChannelMixer remaps the channel layout of a source. Down-mixing to mono
// averages all input channels, up-mixing from mono duplicates the single
// channel, and any other layout change copies channels round-robin.
type ChannelMixer struct {
	src      Source
	channels int
	tmp      []float32
}

func NewChannelMixer(src Source, channels int) *ChannelMixer {
	return &ChannelMixer{
		src:      src,
		channels: channels,
		tmp:      make([]float32, 4096),
	}
}

// NewMonoMixer down-mixes src to a single channel.
func NewMonoMixer(src Source) *ChannelMixer {
	return NewChannelMixer(src, 1)
}

func (m *ChannelMixer) SampleRate() int { return m.src.SampleRate() }
func (m *ChannelMixer) Channels() int   { return m.channels }
func (m *ChannelMixer) BufSize() int    { return m.src.BufSize() }

func (m *ChannelMixer) Close() error {
	if err := m.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

func (m *ChannelMixer) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if len(dst)%m.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	in := m.src.Channels()
	if in == m.channels {
		return m.src.ReadSamples(dst)
	}

	frames := len(dst) / m.channels
	need := frames * in
	if cap(m.tmp) < need {
		m.tmp = make([]float32, max(need, 8192))
	}
	tmp := m.tmp[:need]

	n, err := m.src.ReadSamples(tmp)
	if n == 0 {
		return 0, err
	}
	got := n / in

	switch {
	case m.channels == 1:
		inv := float32(1.0) / float32(in)
		for f := range got {
			sum := float32(0)
			for _, v := range tmp[f*in : (f+1)*in] {
				sum += v
			}
			dst[f] = sum * inv
		}
	case in == 1:
		for f := range got {
			v := tmp[f]
			for c := range m.channels {
				dst[f*m.channels+c] = v
			}
		}
	default:
		for f := range got {
			for c := range m.channels {
				dst[f*m.channels+c] = tmp[f*in+c%in]
			}
		}
	}

	return got * m.channels, err
}
