// SPDX-License-Identifier: EPL-2.0

package sound

import (
	"fmt"

	"github.com/ik5/soundsys/audio"
	"github.com/ik5/soundsys/backend"
)

// BufferedChannel plays one complete SoundBuffer on a clip line.
type BufferedChannel struct {
	lineHolder

	buf   *audio.SoundBuffer
	loop  bool
	state State
}

var _ Channel = (*BufferedChannel)(nil)

// NewBufferedChannel returns an idle channel on d.
func NewBufferedChannel(d backend.Driver) *BufferedChannel {
	return newBufferedChannel(nil, d)
}

func newBufferedChannel(e *env, d backend.Driver) *BufferedChannel {
	return &BufferedChannel{lineHolder: newLineHolder(e, d, backend.Clip)}
}

func (c *BufferedChannel) Kind() ChannelKind { return Buffered }

// Buffer is the attached buffer, or nil.
func (c *BufferedChannel) Buffer() *audio.SoundBuffer { return c.buf }

// AttachBuffer replaces the channel's line with a clip line holding buf.
// Every check runs before the current line is touched, so a rejected
// buffer leaves a playing channel playing.
func (c *BufferedChannel) AttachBuffer(buf *audio.SoundBuffer) error {
	switch {
	case c.drv == nil:
		return fmt.Errorf("%w: channel has no driver", ErrValidation)
	case buf == nil:
		return fmt.Errorf("%w: nil buffer", ErrValidation)
	}
	if err := buf.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if !c.drv.IsSupported(backend.Clip, buf.Format) {
		return fmt.Errorf("%w: %s does not support %v", ErrValidation, c.drv.Name(), buf.Format)
	}

	if err := c.replace(buf.Format, buf.Data); err != nil {
		if c.line == nil {
			c.buf = nil
			c.state = StateIdle
		}
		return err
	}

	c.buf = buf
	c.state = StateAttached
	return nil
}

// SetLooping makes Play loop until stopped.
func (c *BufferedChannel) SetLooping(loop bool) { c.loop = loop }

func (c *BufferedChannel) Looping() bool { return c.loop }

func (c *BufferedChannel) State() State {
	if c.line == nil {
		return StateIdle
	}
	if c.state == StatePlaying && !c.line.Active() {
		return StateStopped
	}
	return c.state
}

// Play starts from the current position with the remembered gain.
func (c *BufferedChannel) Play() {
	if c.line == nil {
		return
	}
	c.line.Stop()
	c.restoreGain()
	if c.loop {
		c.line.Loop(-1)
	} else {
		c.line.Start()
	}
	c.state = StatePlaying
}

func (c *BufferedChannel) Pause() {
	if c.line == nil {
		return
	}
	c.line.Stop()
	if c.state == StatePlaying {
		c.state = StatePaused
	}
}

// Stop halts playback and rewinds to the first frame.
func (c *BufferedChannel) Stop() {
	if c.line == nil {
		return
	}
	c.line.Stop()
	c.line.SetFramePosition(0)
	c.state = StateStopped
}

// Rewind seeks to the first frame and keeps playing if it was.
func (c *BufferedChannel) Rewind() {
	if c.line == nil {
		return
	}
	running := c.line.Running()
	c.line.Stop()
	c.line.SetFramePosition(0)
	if !running {
		return
	}
	if c.loop {
		c.line.Loop(-1)
	} else {
		c.line.Start()
	}
}

func (c *BufferedChannel) SetDriver(d backend.Driver) error {
	if d == c.drv {
		return nil
	}
	c.teardown()
	c.state = StateIdle
	c.drv = d

	if c.buf == nil || d == nil {
		return nil
	}
	return c.AttachBuffer(c.buf)
}

// Close releases the line and forgets the buffer.
func (c *BufferedChannel) Close() {
	c.teardown()
	c.buf = nil
	c.state = StateIdle
}
