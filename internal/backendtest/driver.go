// SPDX-License-Identifier: EPL-2.0

// Package backendtest provides a recording backend.Driver for tests.
//
// Every line operation is appended to Driver.Events as "op#line", so tests
// can assert on ordering as well as on the Opens/Closes counters.
package backendtest

import (
	"errors"
	"fmt"

	"github.com/ik5/soundsys/audio"
	"github.com/ik5/soundsys/backend"
)

// ErrInjected is returned by operations configured to fail.
var ErrInjected = errors.New("backendtest: injected failure")

// Driver is a fake backend. Configure it through its exported fields before
// handing it to the code under test.
type Driver struct {
	DriverName string

	// Unsupported rejects formats in IsSupported.
	Unsupported func(kind backend.LineKind, f audio.Format) bool
	FailAcquire bool
	FailOpen    bool
	FailGen     bool

	NoGain      bool
	NoPan       bool
	GainMin     float32
	GainMax     float32
	GainInitial float32

	// Capacity is the initial Available value of stream lines.
	Capacity int

	Acquires int
	Opens    int
	Closes   int
	Events   []string

	Lines   []*Line
	Buffers map[backend.BufferID][]byte
	Deleted []backend.BufferID

	ListenerCalls int
	ListenerPtr   *backend.ListenerState
	Listener      backend.ListenerState
	Master        float32
	MasterCalls   int

	Code   backend.Code
	Closed bool

	nextID backend.BufferID
}

var _ backend.Driver = (*Driver)(nil)

// NewDriver returns a driver with a -80..6 dB gain control starting at 0 dB.
func NewDriver() *Driver {
	return &Driver{
		DriverName: "fake",
		GainMin:    -80,
		GainMax:    6,
		Capacity:   4096,
		Master:     1,
		Buffers:    make(map[backend.BufferID][]byte),
	}
}

func (d *Driver) event(op string, l *Line) {
	d.Events = append(d.Events, fmt.Sprintf("%s#%d", op, l.ID))
}

// Attached is the number of lines currently open.
func (d *Driver) Attached() int {
	n := 0
	for _, l := range d.Lines {
		if l.open {
			n++
		}
	}
	return n
}

// LastLine returns the most recently acquired line, or nil.
func (d *Driver) LastLine() *Line {
	if len(d.Lines) == 0 {
		return nil
	}
	return d.Lines[len(d.Lines)-1]
}

func (d *Driver) Name() string { return d.DriverName }

func (d *Driver) IsSupported(kind backend.LineKind, f audio.Format) bool {
	if d.Unsupported != nil && d.Unsupported(kind, f) {
		return false
	}
	return f.Validate() == nil
}

func (d *Driver) Acquire(kind backend.LineKind, f audio.Format) (backend.Line, error) {
	if d.FailAcquire {
		d.Code = backend.OutOfMemory
		return nil, ErrInjected
	}

	d.Acquires++
	l := &Line{ID: d.Acquires, Kind: kind, drv: d, avail: d.Capacity}
	if !d.NoGain {
		l.gain = &Control{Min: d.GainMin, Max: d.GainMax, Val: d.GainInitial}
	}
	if !d.NoPan {
		l.pan = &Control{Min: -1, Max: 1}
	}
	d.Lines = append(d.Lines, l)
	d.event("acquire", l)
	return l, nil
}

func (d *Driver) GenBuffer(tag backend.FormatTag, data []byte, rate int) (backend.BufferID, error) {
	if d.FailGen {
		d.Code = backend.OutOfMemory
		return 0, ErrInjected
	}
	if len(data) == 0 {
		d.Code = backend.InvalidValue
		return 0, backend.ErrInvalidBuffer
	}
	d.nextID++
	d.Buffers[d.nextID] = data
	return d.nextID, nil
}

func (d *Driver) DeleteBuffer(id backend.BufferID) {
	if _, ok := d.Buffers[id]; !ok {
		d.Code = backend.InvalidName
		return
	}
	delete(d.Buffers, id)
	d.Deleted = append(d.Deleted, id)
}

func (d *Driver) SetListener(state *backend.ListenerState) {
	d.ListenerCalls++
	d.ListenerPtr = state
	d.Listener = *state
}

func (d *Driver) SetMasterVolume(v float32) {
	d.MasterCalls++
	d.Master = v
}

func (d *Driver) LastError() backend.Code {
	c := d.Code
	d.Code = backend.NoError
	return c
}

func (d *Driver) Close() error {
	d.Closed = true
	return nil
}

// Line is a fake backend line.
type Line struct {
	ID     int
	Kind   backend.LineKind
	Format audio.Format
	Data   []byte

	// Writes records every chunk accepted by Write.
	Writes  [][]byte
	Frame   int
	Loops   []int
	Flushes int
	Drains  int

	// Finished makes Active report false while running, as a clip that
	// reached its end would.
	Finished bool

	drv     *Driver
	gain    *Control
	pan     *Control
	avail   int
	open    bool
	running bool
	closed  bool
}

func (l *Line) Open(f audio.Format, data []byte) error {
	switch {
	case l.closed:
		return backend.ErrLineClosed
	case l.open:
		return backend.ErrLineOpen
	case l.drv.FailOpen:
		l.drv.Code = backend.InvalidOperation
		return ErrInjected
	case l.Kind == backend.Clip && len(data) == 0:
		return backend.ErrInvalidBuffer
	}

	l.Format = f
	l.Data = data
	l.open = true
	l.drv.Opens++
	l.drv.event("open", l)
	return nil
}

func (l *Line) Start() {
	l.running = true
	l.drv.event("start", l)
}

func (l *Line) Stop() {
	l.running = false
	l.drv.event("stop", l)
}

func (l *Line) Flush() {
	l.Flushes++
	l.drv.event("flush", l)
}

func (l *Line) Drain() {
	l.Drains++
	l.drv.event("drain", l)
}

func (l *Line) Close() {
	if l.closed {
		return
	}
	l.closed = true
	l.running = false
	if l.open {
		l.open = false
		l.drv.Closes++
	}
	l.drv.event("close", l)
}

func (l *Line) Write(p []byte) (int, error) {
	if !l.open {
		return 0, backend.ErrNotOpen
	}
	l.Writes = append(l.Writes, p)
	l.drv.event("write", l)
	return len(p), nil
}

func (l *Line) Available() int { return l.avail }

// SetAvailable changes what Available reports.
func (l *Line) SetAvailable(n int) { l.avail = n }

func (l *Line) Active() bool  { return l.open && l.running && !l.Finished }
func (l *Line) Running() bool { return l.running }
func (l *Line) IsOpen() bool  { return l.open }

// Closed reports whether Close was called.
func (l *Line) Closed() bool { return l.closed }

func (l *Line) SetFramePosition(frame int) { l.Frame = frame }

func (l *Line) Loop(count int) {
	l.Loops = append(l.Loops, count)
	l.running = true
	l.drv.event("loop", l)
}

func (l *Line) Control(kind backend.ControlKind) (backend.Control, bool) {
	switch {
	case kind == backend.Gain && l.gain != nil:
		return l.gain, true
	case kind == backend.Pan && l.pan != nil:
		return l.pan, true
	}
	return nil, false
}

// GainControl exposes the fake gain control, or nil.
func (l *Line) GainControl() *Control { return l.gain }

// PanControl exposes the fake pan control, or nil.
func (l *Line) PanControl() *Control { return l.pan }

// Control is a clamped float control.
type Control struct {
	Min, Max, Val float32
	Sets          int
}

func (c *Control) Minimum() float32 { return c.Min }
func (c *Control) Maximum() float32 { return c.Max }
func (c *Control) Value() float32   { return c.Val }

func (c *Control) SetValue(v float32) {
	c.Sets++
	c.Val = max(c.Min, min(c.Max, v))
}
