// SPDX-License-Identifier: EPL-2.0

package sound

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ik5/soundsys/audio"
	"github.com/ik5/soundsys/backend"
	"github.com/ik5/soundsys/internal/observe"
	"github.com/ik5/soundsys/utils"
)

type ChannelKind int

const (
	Buffered ChannelKind = iota
	Streaming
)

func (k ChannelKind) String() string {
	switch k {
	case Buffered:
		return "buffered"
	case Streaming:
		return "streaming"
	default:
		return fmt.Sprintf("ChannelKind(%d)", int(k))
	}
}

// State is a channel's position in its lifecycle. Buffered channels move
// through Idle, Attached, Playing, Paused and Stopped; streaming channels
// through Idle, Attached, Streaming and Draining.
type State int

const (
	StateIdle State = iota
	StateAttached
	StatePlaying
	StatePaused
	StateStopped
	StateStreaming
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAttached:
		return "attached"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Channel is a playback voice bound to at most one backend line.
// Channels are not safe for concurrent use.
type Channel interface {
	Kind() ChannelKind
	State() State
	// Attached reports whether a backend line is open.
	Attached() bool

	// SetGain sets the perceptual volume in [0,1].
	SetGain(g float32)
	Gain() float32
	// SetPan sets the balance in [-1,1].
	SetPan(p float32)
	Pan() float32

	Play()
	Pause()
	Stop()
	Rewind()
	// Playing reports whether the backend is producing sound.
	Playing() bool

	// SetDriver moves the channel to another driver, reopening whatever
	// it had attached.
	SetDriver(d backend.Driver) error
	// Close releases the line. The channel can be attached again.
	Close()
}

// env carries the Library's shared sinks into its channels.
type env struct {
	diag    *Diagnostics
	log     *slog.Logger
	metrics *observe.Metrics
}

func defaultEnv() *env {
	return &env{log: slog.Default().With("component", "sound")}
}

// lineHolder owns one backend line and its controls. Both channel kinds
// embed it.
type lineHolder struct {
	env  *env
	drv  backend.Driver
	kind backend.LineKind

	line   backend.Line
	format audio.Format

	gainCtl backend.Control
	panCtl  backend.Control

	// maxDB is the gain control value observed on the first acquisition.
	maxDB   float32
	haveMax bool
	lastDB  float32
	haveDB  bool

	gain    float32
	gainSet bool
	pan     float32
}

func newLineHolder(e *env, d backend.Driver, kind backend.LineKind) lineHolder {
	if e == nil {
		e = defaultEnv()
	}
	return lineHolder{env: e, drv: d, kind: kind, gain: 1}
}

func (h *lineHolder) Attached() bool { return h.line != nil }
func (h *lineHolder) Gain() float32  { return h.gain }
func (h *lineHolder) Pan() float32   { return h.pan }

// Format of the attached line.
func (h *lineHolder) Format() audio.Format { return h.format }

func (h *lineHolder) Playing() bool {
	return h.line != nil && h.line.Active()
}

// replace acquires a line for format, tears down the current one and opens
// the new one with data. A failed acquire leaves the current line in place;
// a failed open leaves the holder detached.
func (h *lineHolder) replace(format audio.Format, data []byte) error {
	nl, err := h.drv.Acquire(h.kind, format)
	if err != nil {
		return fmt.Errorf("%w: acquiring %s line: %w (%v)", ErrBackendAllocation, h.kind, err, h.drv.LastError())
	}

	h.teardown()

	if err := nl.Open(format, data); err != nil {
		nl.Close()
		return fmt.Errorf("%w: opening %s line: %w (%v)", ErrBackendAllocation, h.kind, err, h.drv.LastError())
	}

	h.line = nl
	h.format = format
	h.env.metrics.RecordLineAcquired(context.Background(), h.kind.String())

	h.resetControls()
	h.restoreGain()
	if h.panCtl != nil && h.pan != 0 {
		h.panCtl.SetValue(h.pan)
	}
	return nil
}

// teardown stops, flushes and closes the line.
func (h *lineHolder) teardown() {
	if h.line == nil {
		return
	}
	h.line.Stop()
	h.line.Flush()
	h.line.Close()
	h.env.metrics.RecordLineReleased(context.Background(), h.kind.String())

	h.line = nil
	h.gainCtl = nil
	h.panCtl = nil
}

func (h *lineHolder) resetControls() {
	h.gainCtl, h.panCtl = nil, nil

	if c, ok := h.line.Control(backend.Pan); ok {
		h.panCtl = c
	} else {
		h.capabilityLost(backend.Pan)
	}

	if c, ok := h.line.Control(backend.Gain); ok {
		h.gainCtl = c
		if !h.haveMax {
			h.maxDB = c.Value()
			h.haveMax = true
		}
	} else {
		h.capabilityLost(backend.Gain)
	}
}

func (h *lineHolder) capabilityLost(kind backend.ControlKind) {
	err := fmt.Errorf("%w: %s on %s line of %s", ErrCapability, kind, h.kind, h.drv.Name())
	h.env.diag.Record(err)
	h.env.log.Info("control unavailable", "control", kind.String(), "driver", h.drv.Name())
	h.env.metrics.RecordCapabilityLost(context.Background(), kind.String())
}

func (h *lineHolder) SetGain(g float32) {
	h.gain = utils.Clamp(g, 0, 1)
	h.gainSet = true
	h.applyGain()
}

func (h *lineHolder) applyGain() {
	if h.gainCtl == nil {
		return
	}
	h.lastDB = GainToDB(h.gain, h.gainCtl.Minimum(), h.maxDB)
	h.haveDB = true
	h.gainCtl.SetValue(h.lastDB)
}

// restoreGain re-applies the last dB value, or computes one if SetGain ran
// while no gain control was available.
func (h *lineHolder) restoreGain() {
	switch {
	case h.gainCtl == nil:
	case h.haveDB:
		h.gainCtl.SetValue(h.lastDB)
	case h.gainSet:
		h.applyGain()
	}
}

func (h *lineHolder) SetPan(p float32) {
	h.pan = utils.Clamp(p, -1, 1)
	if h.panCtl != nil {
		h.panCtl.SetValue(h.pan)
	}
}
