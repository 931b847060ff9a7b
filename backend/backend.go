// SPDX-License-Identifier: EPL-2.0

// Package backend defines the boundary between the playback core and a
// native (or software) audio driver.
//
// A Driver hands out Lines. A Line is either a clip line, opened once with a
// complete PCM buffer, or a stream line that is opened empty and fed through
// Write. Lines may expose optional gain and pan Controls; callers must cope
// with either one missing.
package backend

import (
	"fmt"

	"github.com/ik5/soundsys/audio"
)

// LineKind selects between clip-style and continuous lines.
type LineKind int

const (
	Clip LineKind = iota
	Stream
)

func (k LineKind) String() string {
	switch k {
	case Clip:
		return "clip"
	case Stream:
		return "stream"
	default:
		return fmt.Sprintf("LineKind(%d)", int(k))
	}
}

// ControlKind names an optional per-line control.
type ControlKind int

const (
	// Gain is expressed in decibels.
	Gain ControlKind = iota
	// Pan ranges from -1 (left) to 1 (right).
	Pan
)

func (k ControlKind) String() string {
	switch k {
	case Gain:
		return "gain"
	case Pan:
		return "pan"
	default:
		return fmt.Sprintf("ControlKind(%d)", int(k))
	}
}

// FormatTag identifies the PCM layout of an uploaded buffer.
type FormatTag uint16

const (
	Mono8    FormatTag = 0x1100
	Mono16   FormatTag = 0x1101
	Stereo8  FormatTag = 0x1102
	Stereo16 FormatTag = 0x1103
)

// TagFor derives the buffer tag for f. Only mono or stereo at 8 or 16 bits
// has a tag.
func TagFor(f audio.Format) (FormatTag, error) {
	switch {
	case f.Channels == 1 && f.BitDepth == 8:
		return Mono8, nil
	case f.Channels == 1 && f.BitDepth == 16:
		return Mono16, nil
	case f.Channels == 2 && f.BitDepth == 8:
		return Stereo8, nil
	case f.Channels == 2 && f.BitDepth == 16:
		return Stereo16, nil
	}
	return 0, fmt.Errorf("%w: %d channels at %d bits", ErrUnsupportedFormat, f.Channels, f.BitDepth)
}

func (t FormatTag) Channels() int {
	if t == Stereo8 || t == Stereo16 {
		return 2
	}
	return 1
}

func (t FormatTag) BitDepth() int {
	if t == Mono8 || t == Stereo8 {
		return 8
	}
	return 16
}

// Format rebuilds the full format for a tag at rate.
func (t FormatTag) Format(rate int) audio.Format {
	return audio.Format{SampleRate: rate, Channels: t.Channels(), BitDepth: t.BitDepth()}
}

func (t FormatTag) String() string {
	switch t {
	case Mono8:
		return "mono8"
	case Mono16:
		return "mono16"
	case Stereo8:
		return "stereo8"
	case Stereo16:
		return "stereo16"
	default:
		return fmt.Sprintf("FormatTag(%#x)", uint16(t))
	}
}

// BufferID names a buffer resident in the driver.
type BufferID uint32

// Code is the driver's last-error slot.
type Code int

const (
	NoError          Code = 0
	InvalidName      Code = 0xA001
	InvalidEnum      Code = 0xA002
	InvalidValue     Code = 0xA003
	InvalidOperation Code = 0xA004
	OutOfMemory      Code = 0xA005
)

func (c Code) String() string {
	switch c {
	case NoError:
		return "no error"
	case InvalidName:
		return "invalid name"
	case InvalidEnum:
		return "invalid enumerated parameter value"
	case InvalidValue:
		return "invalid parameter value"
	case InvalidOperation:
		return "invalid operation"
	case OutOfMemory:
		return "out of memory"
	default:
		return fmt.Sprintf("unrecognized error code %#x", int(c))
	}
}

// ListenerState is the driver-side copy of the listener. Orientation holds
// the look-at vector followed by the up vector.
type ListenerState struct {
	Position    [3]float32
	Orientation [6]float32
	Velocity    [3]float32
}

// Control is a ranged, settable line parameter.
type Control interface {
	Minimum() float32
	Maximum() float32
	Value() float32
	// SetValue clamps v into [Minimum, Maximum].
	SetValue(v float32)
}

// Line is one playback voice. A line is owned by exactly one caller and
// must be closed by it.
type Line interface {
	// Open binds the line to format. Clip lines require data; stream lines
	// ignore it and are fed with Write.
	Open(format audio.Format, data []byte) error
	Start()
	Stop()
	// Flush discards audio queued but not yet played.
	Flush()
	// Drain blocks until queued audio has been played.
	Drain()
	Close()

	// Write queues PCM on a stream line. It never blocks; n may be short
	// when the line is full.
	Write(p []byte) (n int, err error)
	// Available is the number of bytes Write would accept right now.
	Available() int

	// Active reports whether the line is producing sound.
	Active() bool
	// Running reports whether the transport is started.
	Running() bool
	IsOpen() bool

	// SetFramePosition seeks a clip line.
	SetFramePosition(frame int)
	// Loop plays a clip line count more times; a negative count loops
	// until stopped.
	Loop(count int)

	Control(kind ControlKind) (Control, bool)
}

// Driver is a native mixer or device.
type Driver interface {
	Name() string

	IsSupported(kind LineKind, format audio.Format) bool
	// Acquire reserves an unopened line. Resource limits are enforced by
	// Open, so an acquired line can still fail to open.
	Acquire(kind LineKind, format audio.Format) (Line, error)

	GenBuffer(tag FormatTag, data []byte, rate int) (BufferID, error)
	DeleteBuffer(id BufferID)

	SetListener(state *ListenerState)
	SetMasterVolume(v float32)

	// LastError returns and clears the most recent error code.
	LastError() Code

	Close() error
}
