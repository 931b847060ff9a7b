// SPDX-License-Identifier: EPL-2.0

package beepdrv

import (
	"fmt"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"

	"github.com/ik5/soundsys/audio"
	"github.com/ik5/soundsys/backend"
)

const (
	minGainDB = -80
	maxGainDB = 6
)

// line is one voice in the mixer. All fields are guarded by d.mu; Stream is
// only ever called from Driver.Stream, which already holds it.
type line struct {
	d      *Driver
	kind   backend.LineKind
	format audio.Format
	bfmt   beep.Format

	opened  bool
	closed  bool
	running bool

	// clip lines
	clip  beep.StreamSeeker
	loops int
	done  bool

	// stream lines
	queue    []byte
	capacity int

	ctrl *beep.Ctrl
	vol  *effects.Volume
	pan  *effects.Pan

	gainCtl *gainControl
	panCtl  *panControl
}

var _ backend.Line = (*line)(nil)

func (l *line) Open(f audio.Format, data []byte) error {
	d := l.d
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case l.closed:
		return backend.ErrLineClosed
	case l.opened:
		return backend.ErrLineOpen
	case d.closed:
		d.lastErr = backend.InvalidOperation
		return backend.ErrDriverClosed
	case !supported(f):
		d.lastErr = backend.InvalidEnum
		return fmt.Errorf("%w: %v", backend.ErrUnsupportedFormat, f)
	case d.open >= d.maxLines:
		d.lastErr = backend.OutOfMemory
		return fmt.Errorf("%w: %d open", backend.ErrLineLimit, d.open)
	}

	l.format = f
	l.bfmt = beep.Format{
		SampleRate:  beep.SampleRate(f.SampleRate),
		NumChannels: f.Channels,
		Precision:   f.BitDepth / 8,
	}

	if l.kind == backend.Clip {
		if len(data) < f.FrameSize() {
			d.lastErr = backend.InvalidValue
			return fmt.Errorf("%w: %d bytes", backend.ErrInvalidBuffer, len(data))
		}
		buf := beep.NewBuffer(l.bfmt)
		buf.Append(&pcmStreamer{data: data, format: l.bfmt})
		l.clip = buf.Streamer(0, buf.Len())
	} else {
		l.capacity = f.FrameSize() * l.bfmt.SampleRate.N(d.streamBuf)
	}

	var s beep.Streamer = l
	if l.bfmt.SampleRate != d.rate {
		s = beep.Resample(resampleQuality, l.bfmt.SampleRate, d.rate, s)
	}
	l.pan = &effects.Pan{Streamer: s}
	l.vol = &effects.Volume{Streamer: l.pan, Base: 10}
	l.ctrl = &beep.Ctrl{Streamer: l.vol, Paused: true}

	if d.gainCtl {
		l.gainCtl = &gainControl{l: l}
	}
	if d.panCtl {
		l.panCtl = &panControl{l: l}
	}

	d.mixer.Add(l.ctrl)
	d.lines[l] = struct{}{}
	d.open++
	l.opened = true
	return nil
}

func (l *line) Start() {
	l.d.mu.Lock()
	defer l.d.mu.Unlock()

	if !l.opened {
		return
	}
	if l.done {
		l.rewind()
	}
	l.setRunning(true)
}

func (l *line) Stop() {
	l.d.mu.Lock()
	defer l.d.mu.Unlock()

	l.setRunning(false)
}

func (l *line) setRunning(on bool) {
	l.running = on
	if l.ctrl != nil {
		l.ctrl.Paused = !on
	}
}

func (l *line) Flush() {
	l.d.mu.Lock()
	defer l.d.mu.Unlock()

	l.queue = nil
}

// Drain waits for queued audio to play out. Without a speaker nothing
// consumes the mix, so it returns at once.
func (l *line) Drain() {
	if !l.d.speaker {
		return
	}
	tick := l.d.rate.D(512)
	for l.Active() {
		time.Sleep(tick)
	}
}

func (l *line) Close() {
	l.d.mu.Lock()
	defer l.d.mu.Unlock()

	l.release()
}

// release detaches the line from the mixer. Caller holds d.mu.
func (l *line) release() {
	if l.closed {
		return
	}
	l.closed = true
	l.running = false
	l.queue = nil
	if l.ctrl != nil {
		// A nil streamer makes the mixer drop the line.
		l.ctrl.Streamer = nil
	}
	if l.opened {
		l.opened = false
		l.d.open--
	}
	delete(l.d.lines, l)
}

func (l *line) Write(p []byte) (int, error) {
	l.d.mu.Lock()
	defer l.d.mu.Unlock()

	switch {
	case l.closed:
		return 0, backend.ErrLineClosed
	case !l.opened:
		return 0, backend.ErrNotOpen
	case l.kind != backend.Stream:
		l.d.lastErr = backend.InvalidOperation
		return 0, fmt.Errorf("%w: write to %s line", backend.ErrLineOpen, l.kind)
	}

	n := min(len(p), l.capacity-len(l.queue))
	n -= n % l.format.FrameSize()
	if n <= 0 {
		return 0, nil
	}
	l.queue = append(l.queue, p[:n]...)
	return n, nil
}

func (l *line) Available() int {
	l.d.mu.Lock()
	defer l.d.mu.Unlock()

	if !l.opened || l.kind != backend.Stream {
		return 0
	}
	return l.capacity - len(l.queue)
}

func (l *line) Active() bool {
	l.d.mu.Lock()
	defer l.d.mu.Unlock()

	if !l.opened || !l.running {
		return false
	}
	if l.kind == backend.Clip {
		return !l.done
	}
	return len(l.queue) >= l.format.FrameSize()
}

func (l *line) Running() bool {
	l.d.mu.Lock()
	defer l.d.mu.Unlock()

	return l.running
}

func (l *line) IsOpen() bool {
	l.d.mu.Lock()
	defer l.d.mu.Unlock()

	return l.opened
}

func (l *line) SetFramePosition(frame int) {
	l.d.mu.Lock()
	defer l.d.mu.Unlock()

	if l.clip == nil {
		return
	}
	l.done = false
	_ = l.clip.Seek(max(0, min(frame, l.clip.Len())))
}

func (l *line) rewind() {
	l.done = false
	if l.clip != nil {
		_ = l.clip.Seek(0)
	}
}

func (l *line) Loop(count int) {
	l.d.mu.Lock()
	defer l.d.mu.Unlock()

	if l.clip == nil {
		return
	}
	if l.done {
		l.rewind()
	}
	l.loops = count
	l.setRunning(true)
}

func (l *line) Control(kind backend.ControlKind) (backend.Control, bool) {
	l.d.mu.Lock()
	defer l.d.mu.Unlock()

	switch {
	case kind == backend.Gain && l.gainCtl != nil:
		return l.gainCtl, true
	case kind == backend.Pan && l.panCtl != nil:
		return l.panCtl, true
	}
	return nil, false
}

// Stream produces the line's own PCM at its native rate. Idle lines and
// starved streams yield silence so the mixer keeps them.
func (l *line) Stream(samples [][2]float64) (int, bool) {
	n := 0
	if l.kind == backend.Clip {
		n = l.streamClip(samples)
	} else {
		n = l.streamQueue(samples)
	}
	clear(samples[n:])
	return len(samples), true
}

func (l *line) Err() error { return nil }

func (l *line) streamClip(samples [][2]float64) int {
	n := 0
	rewound := false
	for n < len(samples) && !l.done {
		m, ok := l.clip.Stream(samples[n:])
		n += m
		if ok && m > 0 {
			rewound = false
			continue
		}
		if l.loops == 0 || rewound {
			l.done = true
			break
		}
		if l.loops > 0 {
			l.loops--
		}
		if err := l.clip.Seek(0); err != nil {
			l.done = true
			break
		}
		rewound = true
	}
	return n
}

func (l *line) streamQueue(samples [][2]float64) int {
	size := l.format.FrameSize()
	n := 0
	for n < len(samples) && len(l.queue) >= size {
		samples[n] = decode(l.bfmt, l.queue[:size])
		l.queue = l.queue[size:]
		n++
	}
	return n
}

func decode(f beep.Format, p []byte) [2]float64 {
	if f.Precision == 1 {
		s, _ := f.DecodeUnsigned(p)
		return s
	}
	s, _ := f.DecodeSigned(p)
	return s
}

// pcmStreamer decodes a byte slice once; it feeds beep.Buffer.Append.
type pcmStreamer struct {
	data   []byte
	format beep.Format
}

func (p *pcmStreamer) Stream(samples [][2]float64) (int, bool) {
	size := p.format.NumChannels * p.format.Precision
	n := 0
	for n < len(samples) && len(p.data) >= size {
		samples[n] = decode(p.format, p.data[:size])
		p.data = p.data[size:]
		n++
	}
	if n == 0 {
		return 0, false
	}
	return n, true
}

func (p *pcmStreamer) Err() error { return nil }

// gainControl sets the line volume in decibels.
type gainControl struct {
	l   *line
	val float32
}

func (c *gainControl) Minimum() float32 { return minGainDB }
func (c *gainControl) Maximum() float32 { return maxGainDB }

func (c *gainControl) Value() float32 {
	c.l.d.mu.Lock()
	defer c.l.d.mu.Unlock()

	return c.val
}

func (c *gainControl) SetValue(v float32) {
	c.l.d.mu.Lock()
	defer c.l.d.mu.Unlock()

	c.val = max(minGainDB, min(maxGainDB, v))
	c.l.vol.Volume = float64(c.val) / 20
	c.l.vol.Silent = c.val <= minGainDB
}

type panControl struct {
	l   *line
	val float32
}

func (c *panControl) Minimum() float32 { return -1 }
func (c *panControl) Maximum() float32 { return 1 }

func (c *panControl) Value() float32 {
	c.l.d.mu.Lock()
	defer c.l.d.mu.Unlock()

	return c.val
}

func (c *panControl) SetValue(v float32) {
	c.l.d.mu.Lock()
	defer c.l.d.mu.Unlock()

	c.val = max(-1, min(1, v))
	c.l.pan.Pan = float64(c.val)
}
