// SPDX-License-Identifier: EPL-2.0

// Package beepdrv is a software backend.Driver built on the beep mixer.
//
// Every open line is a chain of beep streamers (PCM voice, resampler,
// effects.Pan, effects.Volume, beep.Ctrl) added to one beep.Mixer. The mix
// goes through an effects.Gain master stage and is either pulled by the
// speaker or rendered on demand with Render.
package beepdrv

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/ik5/soundsys/audio"
	"github.com/ik5/soundsys/backend"
)

const (
	defaultRate      = beep.SampleRate(44100)
	defaultMaxLines  = 32
	defaultStreamBuf = 250 * time.Millisecond
	defaultLatency   = 100 * time.Millisecond

	resampleQuality = 4

	minRate = 4000
	maxRate = 192000
)

type buffer struct {
	data   []byte
	format audio.Format
}

// Driver mixes lines in software. It is safe for concurrent use; the
// speaker goroutine and callers share one mutex.
type Driver struct {
	mu sync.Mutex

	rate      beep.SampleRate
	maxLines  int
	streamBuf time.Duration
	gainCtl   bool
	panCtl    bool

	speaker bool
	latency time.Duration

	mixer  beep.Mixer
	master *effects.Gain

	lines   map[*line]struct{}
	open    int
	buffers map[backend.BufferID]buffer
	nextID  backend.BufferID

	listener backend.ListenerState
	lastErr  backend.Code
	closed   bool
}

var (
	_ backend.Driver = (*Driver)(nil)
	_ beep.Streamer  = (*Driver)(nil)
)

// New builds a driver. With WithSpeaker the output device is opened and the
// driver starts playing immediately.
func New(opts ...Option) (*Driver, error) {
	d := &Driver{
		rate:      defaultRate,
		maxLines:  defaultMaxLines,
		streamBuf: defaultStreamBuf,
		latency:   defaultLatency,
		gainCtl:   true,
		panCtl:    true,
		lines:     make(map[*line]struct{}),
		buffers:   make(map[backend.BufferID]buffer),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.master = &effects.Gain{Streamer: &d.mixer}

	if d.speaker {
		if err := speaker.Init(d.rate, d.rate.N(d.latency)); err != nil {
			return nil, fmt.Errorf("initializing speaker: %w", err)
		}
		speaker.Play(d)
	}

	return d, nil
}

func (d *Driver) Name() string { return "beep" }

// SampleRate is the mixing rate.
func (d *Driver) SampleRate() int { return int(d.rate) }

func (d *Driver) IsSupported(kind backend.LineKind, f audio.Format) bool {
	if kind != backend.Clip && kind != backend.Stream {
		return false
	}
	return supported(f)
}

func supported(f audio.Format) bool {
	return (f.Channels == 1 || f.Channels == 2) &&
		(f.BitDepth == 8 || f.BitDepth == 16) &&
		f.SampleRate >= minRate && f.SampleRate <= maxRate
}

func (d *Driver) Acquire(kind backend.LineKind, f audio.Format) (backend.Line, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.lastErr = backend.InvalidOperation
		return nil, backend.ErrDriverClosed
	}
	if !d.IsSupported(kind, f) {
		d.lastErr = backend.InvalidEnum
		return nil, fmt.Errorf("%w: %s line, %v", backend.ErrUnsupportedFormat, kind, f)
	}

	return &line{d: d, kind: kind, format: f}, nil
}

func (d *Driver) GenBuffer(tag backend.FormatTag, data []byte, rate int) (backend.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.lastErr = backend.InvalidOperation
		return 0, backend.ErrDriverClosed
	}

	f := tag.Format(rate)
	if !supported(f) {
		d.lastErr = backend.InvalidEnum
		return 0, fmt.Errorf("%w: %s at %d Hz", backend.ErrUnsupportedFormat, tag, rate)
	}
	if len(data) == 0 || len(data)%f.FrameSize() != 0 {
		d.lastErr = backend.InvalidValue
		return 0, fmt.Errorf("%w: %d bytes of %s", backend.ErrInvalidBuffer, len(data), tag)
	}

	d.nextID++
	d.buffers[d.nextID] = buffer{data: data, format: f}
	return d.nextID, nil
}

func (d *Driver) DeleteBuffer(id backend.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.buffers[id]; !ok {
		d.lastErr = backend.InvalidName
		return
	}
	delete(d.buffers, id)
}

// Buffer returns the data uploaded under id.
func (d *Driver) Buffer(id backend.BufferID) ([]byte, audio.Format, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[id]
	return b.data, b.format, ok
}

// SetListener records the listener. Spatialisation is done by the caller
// through per-line gain and pan.
func (d *Driver) SetListener(state *backend.ListenerState) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.listener = *state
}

func (d *Driver) Listener() backend.ListenerState {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.listener
}

// SetMasterVolume scales the whole mix; 1 is unity.
func (d *Driver) SetMasterVolume(v float32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.master.Gain = float64(max(v, 0)) - 1
}

func (d *Driver) LastError() backend.Code {
	d.mu.Lock()
	defer d.mu.Unlock()

	c := d.lastErr
	d.lastErr = backend.NoError
	return c
}

// OpenLines is the number of lines currently mixed.
func (d *Driver) OpenLines() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.open
}

// Stream mixes every open line. It never ends; idle lines and an empty
// mixer produce silence.
func (d *Driver) Stream(samples [][2]float64) (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	if !d.closed {
		n, _ = d.master.Stream(samples)
	}
	clear(samples[n:])
	return len(samples), true
}

func (d *Driver) Err() error { return nil }

// Render pulls frames of the mix without a speaker.
func (d *Driver) Render(frames int) [][2]float64 {
	out := make([][2]float64, frames)
	d.Stream(out)
	return out
}

func (d *Driver) Close() error {
	d.mu.Lock()
	for l := range d.lines {
		l.release()
	}
	d.mixer.Clear()
	clear(d.buffers)
	d.closed = true
	d.mu.Unlock()

	if d.speaker {
		speaker.Clear()
		speaker.Close()
	}
	return nil
}
