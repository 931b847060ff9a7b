// SPDX-License-Identifier: EPL-2.0

package sound

import (
	"fmt"

	"github.com/ik5/soundsys/audio"
	"github.com/ik5/soundsys/backend"
)

// StreamingChannel feeds a continuous line from a FIFO of PCM buffers.
//
// The queue only grows through PreLoadBuffers, QueueBuffer and
// FeedRawAudioData and only shrinks through ProcessBuffer, Flush and
// ResetStream. A buffer the line could not take whole stays in flight and
// is written ahead of anything dequeued later.
type StreamingChannel struct {
	lineHolder

	queue    [][]byte
	inflight []byte
}

var _ Channel = (*StreamingChannel)(nil)

// NewStreamingChannel returns an idle channel on d.
func NewStreamingChannel(d backend.Driver) *StreamingChannel {
	return newStreamingChannel(nil, d)
}

func newStreamingChannel(e *env, d backend.Driver) *StreamingChannel {
	return &StreamingChannel{lineHolder: newLineHolder(e, d, backend.Stream)}
}

func (c *StreamingChannel) Kind() ChannelKind { return Streaming }

// QueueLen is the number of buffers waiting to be submitted.
func (c *StreamingChannel) QueueLen() int { return len(c.queue) }

// ResetStream opens an empty stream line for format and clears the queue.
func (c *StreamingChannel) ResetStream(format audio.Format) error {
	if c.drv == nil {
		return fmt.Errorf("%w: channel has no driver", ErrValidation)
	}
	if err := format.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if !c.drv.IsSupported(backend.Stream, format) {
		return fmt.Errorf("%w: %s does not support %v", ErrValidation, c.drv.Name(), format)
	}

	err := c.replace(format, nil)
	if err == nil || c.line == nil {
		c.queue = nil
		c.inflight = nil
	}
	return err
}

// PreLoadBuffers starts the line, submits the first buffer at once and
// queues the rest.
func (c *StreamingChannel) PreLoadBuffers(bufs [][]byte) error {
	if c.line == nil {
		return fmt.Errorf("%w: no stream attached", ErrValidation)
	}
	c.line.Start()
	if len(bufs) == 0 {
		return nil
	}

	c.submit(bufs[0])
	c.queue = append(c.queue, bufs[1:]...)
	return nil
}

// QueueBuffer appends buf and immediately tries to submit the queue head.
func (c *StreamingChannel) QueueBuffer(buf []byte) error {
	if c.line == nil {
		return fmt.Errorf("%w: no stream attached", ErrValidation)
	}
	c.queue = append(c.queue, buf)
	c.ProcessBuffer()
	return nil
}

// ProcessBuffer submits the queue head and restarts the line if it went
// idle. It reports false, changing nothing, when the queue is empty.
func (c *StreamingChannel) ProcessBuffer() bool {
	if c.line == nil || len(c.queue) == 0 {
		return false
	}

	head := c.queue[0]
	c.queue[0] = nil
	c.queue = c.queue[1:]

	c.submit(head)
	if !c.line.Active() {
		c.line.Start()
	}
	return true
}

// FeedRawAudioData queues generated PCM without submitting it and returns
// the capacity signal.
func (c *StreamingChannel) FeedRawAudioData(buf []byte) (int, error) {
	if c.line == nil {
		return 0, fmt.Errorf("%w: no stream attached", ErrValidation)
	}
	if len(buf) == 0 {
		return c.BuffersProcessed(), nil
	}
	c.queue = append(c.queue, buf)
	return c.BuffersProcessed(), nil
}

// BuffersProcessed is 1 when the line can take more data and 0 otherwise.
func (c *StreamingChannel) BuffersProcessed() int {
	if c.line == nil {
		return 0
	}
	c.pump()
	if len(c.inflight) == 0 && c.line.Available() > 0 {
		return 1
	}
	return 0
}

// Flush stops the line, drops what it holds and empties the queue.
func (c *StreamingChannel) Flush() {
	c.queue = nil
	c.inflight = nil
	if c.line == nil {
		return
	}
	c.line.Stop()
	c.line.Flush()
	c.line.Drain()
}

func (c *StreamingChannel) submit(buf []byte) {
	if len(c.inflight) == 0 {
		c.inflight = buf
	} else {
		c.inflight = append(c.inflight[:len(c.inflight):len(c.inflight)], buf...)
	}
	c.pump()
}

// pump writes as much of the in-flight buffer as the line accepts.
func (c *StreamingChannel) pump() {
	for len(c.inflight) > 0 {
		n, err := c.line.Write(c.inflight)
		if err != nil {
			c.env.log.Warn("stream write failed", "err", err, "driver", c.drv.Name())
			c.env.diag.Record(fmt.Errorf("%w: writing stream: %w", ErrBackendAllocation, err))
			c.inflight = nil
			return
		}
		if n == 0 {
			return
		}
		c.inflight = c.inflight[n:]
	}
	c.inflight = nil
}

func (c *StreamingChannel) State() State {
	switch {
	case c.line == nil:
		return StateIdle
	case !c.line.Running():
		return StateAttached
	case len(c.queue) > 0 || len(c.inflight) > 0:
		return StateStreaming
	case c.line.Active():
		return StateDraining
	default:
		return StateIdle
	}
}

func (c *StreamingChannel) Play() {
	if c.line != nil {
		c.line.Start()
	}
}

func (c *StreamingChannel) Pause() {
	if c.line != nil {
		c.line.Stop()
	}
}

// Stop halts the transport. Queued data is kept; use Flush to drop it.
func (c *StreamingChannel) Stop() {
	if c.line != nil {
		c.line.Stop()
	}
}

// Rewind has no meaning for a stream; the feeder restarts its source.
func (c *StreamingChannel) Rewind() {}

func (c *StreamingChannel) SetDriver(d backend.Driver) error {
	if d == c.drv {
		return nil
	}
	attached := c.line != nil
	c.teardown()
	c.queue = nil
	c.inflight = nil
	c.drv = d

	if !attached || d == nil {
		return nil
	}
	return c.ResetStream(c.format)
}

// Close flushes and releases the line.
func (c *StreamingChannel) Close() {
	c.Flush()
	c.teardown()
}
