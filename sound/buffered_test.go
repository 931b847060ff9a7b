// SPDX-License-Identifier: EPL-2.0

package sound

import (
	"errors"
	"slices"
	"testing"

	"github.com/ik5/soundsys/audio"
	"github.com/ik5/soundsys/backend"
	"github.com/ik5/soundsys/internal/backendtest"
)

func attached(t *testing.T, drv *backendtest.Driver, buf *audio.SoundBuffer) (*BufferedChannel, *backendtest.Line) {
	t.Helper()

	c := newBufferedChannel(testEnv(&Diagnostics{}), drv)
	if err := c.AttachBuffer(buf); err != nil {
		t.Fatalf("AttachBuffer() error = %v", err)
	}
	return c, drv.LastLine()
}

func TestBufferedChannel_Lifecycle(t *testing.T) {
	t.Parallel()

	drv := backendtest.NewDriver()
	c := NewBufferedChannel(drv)

	if got := c.State(); got != StateIdle {
		t.Fatalf("new channel State() = %v, want %v", got, StateIdle)
	}
	if c.Playing() {
		t.Fatal("idle channel reports Playing")
	}

	buf := audio.NewSoundBuffer(pcm16(-1, -2, -3), mono16)
	if err := c.AttachBuffer(buf); err != nil {
		t.Fatalf("AttachBuffer() error = %v", err)
	}
	line := drv.LastLine()

	steps := []struct {
		name    string
		do      func()
		state   State
		running bool
	}{
		{name: "attach", do: func() {}, state: StateAttached},
		{name: "play", do: c.Play, state: StatePlaying, running: true},
		{name: "pause", do: c.Pause, state: StatePaused},
		{name: "resume", do: c.Play, state: StatePlaying, running: true},
		{name: "stop", do: c.Stop, state: StateStopped},
	}
	for _, st := range steps {
		st.do()
		if got := c.State(); got != st.state {
			t.Errorf("after %s State() = %v, want %v", st.name, got, st.state)
		}
		if got := line.Running(); got != st.running {
			t.Errorf("after %s line running = %v, want %v", st.name, got, st.running)
		}
	}

	if c.Buffer() != buf {
		t.Error("Buffer() does not return the attached buffer")
	}
	if line.Format != mono16 || len(line.Data) != 6 {
		t.Errorf("line opened with %v and %d bytes", line.Format, len(line.Data))
	}

	c.Close()
	if got := c.State(); got != StateIdle {
		t.Errorf("closed State() = %v, want %v", got, StateIdle)
	}
	if !line.Closed() {
		t.Error("Close() left the line open")
	}
	balanced(t, drv)
}

func TestBufferedChannel_FinishedClipReportsStopped(t *testing.T) {
	t.Parallel()

	drv := backendtest.NewDriver()
	c, line := attached(t, drv, audio.NewSoundBuffer(pcm16(-1), mono16))

	c.Play()
	line.Finished = true

	if c.Playing() {
		t.Error("Playing() = true after the clip ended")
	}
	if got := c.State(); got != StateStopped {
		t.Errorf("State() = %v, want %v", got, StateStopped)
	}
}

func TestBufferedChannel_PlayLoops(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		loop  bool
		loops []int
		last  string
	}{
		{name: "once", loop: false, last: "start#1"},
		{name: "looping", loop: true, loops: []int{-1}, last: "loop#1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			drv := backendtest.NewDriver()
			c, line := attached(t, drv, audio.NewSoundBuffer(pcm16(-1, -2), mono16))
			c.SetLooping(tt.loop)
			c.Play()

			if !slices.Equal(line.Loops, tt.loops) {
				t.Errorf("Loops = %v, want %v", line.Loops, tt.loops)
			}
			if got := drv.Events[len(drv.Events)-1]; got != tt.last {
				t.Errorf("last event = %q, want %q", got, tt.last)
			}
			if c.Looping() != tt.loop {
				t.Errorf("Looping() = %v, want %v", c.Looping(), tt.loop)
			}
		})
	}
}

func TestBufferedChannel_Rewind(t *testing.T) {
	t.Parallel()

	t.Run("while playing", func(t *testing.T) {
		t.Parallel()

		drv := backendtest.NewDriver()
		c, line := attached(t, drv, audio.NewSoundBuffer(pcm16(-1, -2), mono16))
		c.Play()
		line.Frame = 1

		c.Rewind()
		if line.Frame != 0 {
			t.Errorf("Frame = %d, want 0", line.Frame)
		}
		if !line.Running() {
			t.Error("Rewind() stopped a playing channel")
		}
	})

	t.Run("while stopped", func(t *testing.T) {
		t.Parallel()

		drv := backendtest.NewDriver()
		c, line := attached(t, drv, audio.NewSoundBuffer(pcm16(-1, -2), mono16))
		line.Frame = 1

		c.Rewind()
		if line.Frame != 0 {
			t.Errorf("Frame = %d, want 0", line.Frame)
		}
		if line.Running() {
			t.Error("Rewind() started a stopped channel")
		}
	})
}

func TestBufferedChannel_AttachRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		drv  func() *backendtest.Driver
		buf  *audio.SoundBuffer
		want error
	}{
		{
			name: "nil buffer",
			drv:  backendtest.NewDriver,
			want: ErrValidation,
		},
		{
			name: "empty buffer",
			drv:  backendtest.NewDriver,
			buf:  audio.NewSoundBuffer(nil, mono16),
			want: ErrValidation,
		},
		{
			name: "unsupported format",
			drv: func() *backendtest.Driver {
				d := backendtest.NewDriver()
				d.Unsupported = func(_ backend.LineKind, f audio.Format) bool { return f.BitDepth == 8 }
				return d
			},
			buf:  audio.NewSoundBuffer([]byte{1, 2}, mono8),
			want: ErrValidation,
		},
		{
			name: "acquire fails",
			drv: func() *backendtest.Driver {
				d := backendtest.NewDriver()
				d.FailAcquire = true
				return d
			},
			buf:  audio.NewSoundBuffer(pcm16(-1), mono16),
			want: ErrBackendAllocation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			drv := tt.drv()
			c := newBufferedChannel(testEnv(nil), drv)
			err := c.AttachBuffer(tt.buf)
			if !errors.Is(err, tt.want) {
				t.Fatalf("AttachBuffer() error = %v, want %v", err, tt.want)
			}
			if c.Attached() || c.State() != StateIdle {
				t.Errorf("rejected attach left channel attached=%v state=%v", c.Attached(), c.State())
			}
			if drv.Opens != 0 {
				t.Errorf("Opens = %d, want 0", drv.Opens)
			}
		})
	}
}

func TestBufferedChannel_RejectedAttachKeepsPlayingLine(t *testing.T) {
	t.Parallel()

	drv := backendtest.NewDriver()
	drv.Unsupported = func(_ backend.LineKind, f audio.Format) bool { return f.Channels == 2 }

	first := audio.NewSoundBuffer(pcm16(-1, -2), mono16)
	c, line := attached(t, drv, first)
	c.Play()
	events := len(drv.Events)

	err := c.AttachBuffer(audio.NewSoundBuffer(pcm16(-1, -2), stereo16))
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("AttachBuffer() error = %v, want %v", err, ErrValidation)
	}

	if len(drv.Events) != events {
		t.Errorf("rejected attach touched the backend: %v", drv.Events[events:])
	}
	if !line.Running() || line.Closed() {
		t.Error("rejected attach disturbed the playing line")
	}
	if c.State() != StatePlaying || c.Buffer() != first {
		t.Errorf("State() = %v, Buffer changed = %v", c.State(), c.Buffer() != first)
	}
}

func TestBufferedChannel_FailedAcquireKeepsLine(t *testing.T) {
	t.Parallel()

	drv := backendtest.NewDriver()
	c, line := attached(t, drv, audio.NewSoundBuffer(pcm16(-1, -2), mono16))
	c.Play()

	drv.FailAcquire = true
	err := c.AttachBuffer(audio.NewSoundBuffer(pcm16(-3), mono16))
	if !errors.Is(err, ErrBackendAllocation) {
		t.Fatalf("AttachBuffer() error = %v, want %v", err, ErrBackendAllocation)
	}
	if !c.Attached() || !line.Running() {
		t.Error("failed acquire released the current line")
	}
	balanced(t, drv)
}

func TestBufferedChannel_FailedOpenDetaches(t *testing.T) {
	t.Parallel()

	drv := backendtest.NewDriver()
	c, line := attached(t, drv, audio.NewSoundBuffer(pcm16(-1, -2), mono16))

	drv.FailOpen = true
	err := c.AttachBuffer(audio.NewSoundBuffer(pcm16(-3), mono16))
	if !errors.Is(err, ErrBackendAllocation) {
		t.Fatalf("AttachBuffer() error = %v, want %v", err, ErrBackendAllocation)
	}
	if c.Attached() || c.State() != StateIdle || c.Buffer() != nil {
		t.Errorf("failed open left attached=%v state=%v", c.Attached(), c.State())
	}
	if !line.Closed() {
		t.Error("old line was not closed")
	}
	balanced(t, drv)
}

func TestBufferedChannel_ReattachOrder(t *testing.T) {
	t.Parallel()

	drv := backendtest.NewDriver()
	c, _ := attached(t, drv, audio.NewSoundBuffer(pcm16(-1), mono16))
	drv.Events = nil

	if err := c.AttachBuffer(audio.NewSoundBuffer(pcm16(-2), mono16)); err != nil {
		t.Fatalf("AttachBuffer() error = %v", err)
	}

	want := []string{"acquire#2", "stop#1", "flush#1", "close#1", "open#2"}
	if !slices.Equal(drv.Events, want) {
		t.Errorf("Events = %v, want %v", drv.Events, want)
	}
}

func TestBufferedChannel_Gain(t *testing.T) {
	t.Parallel()

	drv := backendtest.NewDriver()
	c, line := attached(t, drv, audio.NewSoundBuffer(pcm16(-1), mono16))
	ctl := line.GainControl()

	tests := []struct {
		g    float32
		want float32
	}{
		{g: 0, want: -80},
		{g: 1, want: 0},
		{g: 0.5, want: GainToDB(0.5, -80, 0)},
		{g: 7, want: 0},
	}
	for _, tt := range tests {
		c.SetGain(tt.g)
		if !approx(ctl.Val, tt.want) {
			t.Errorf("SetGain(%v) control = %v, want %v", tt.g, ctl.Val, tt.want)
		}
	}
	if c.Gain() != 1 {
		t.Errorf("Gain() = %v, want clamped 1", c.Gain())
	}
}

func TestBufferedChannel_GainSurvivesReattach(t *testing.T) {
	t.Parallel()

	drv := backendtest.NewDriver()
	drv.GainInitial = -10
	c, _ := attached(t, drv, audio.NewSoundBuffer(pcm16(-1), mono16))
	c.SetGain(0.5)
	want := GainToDB(0.5, -80, -10)

	// The maximum is taken from the first line only.
	drv.GainInitial = 6
	if err := c.AttachBuffer(audio.NewSoundBuffer(pcm16(-2), mono16)); err != nil {
		t.Fatalf("AttachBuffer() error = %v", err)
	}
	if got := drv.LastLine().GainControl().Val; !approx(got, want) {
		t.Errorf("reattached gain = %v, want %v", got, want)
	}

	c.SetGain(1)
	if got := drv.LastLine().GainControl().Val; !approx(got, -5) {
		t.Errorf("full gain = %v, want -5", got)
	}
}

func TestBufferedChannel_GainBeforeAttach(t *testing.T) {
	t.Parallel()

	drv := backendtest.NewDriver()
	c := newBufferedChannel(testEnv(nil), drv)
	c.SetGain(0)

	if err := c.AttachBuffer(audio.NewSoundBuffer(pcm16(-1), mono16)); err != nil {
		t.Fatalf("AttachBuffer() error = %v", err)
	}
	if got := drv.LastLine().GainControl().Val; !approx(got, -80) {
		t.Errorf("gain = %v, want -80", got)
	}
}

func TestBufferedChannel_Pan(t *testing.T) {
	t.Parallel()

	drv := backendtest.NewDriver()
	c, line := attached(t, drv, audio.NewSoundBuffer(pcm16(-1), mono16))

	c.SetPan(-0.5)
	if got := line.PanControl().Val; got != -0.5 {
		t.Errorf("pan = %v, want -0.5", got)
	}
	c.SetPan(-4)
	if c.Pan() != -1 {
		t.Errorf("Pan() = %v, want -1", c.Pan())
	}

	if err := c.AttachBuffer(audio.NewSoundBuffer(pcm16(-2), mono16)); err != nil {
		t.Fatalf("AttachBuffer() error = %v", err)
	}
	if got := drv.LastLine().PanControl().Val; got != -1 {
		t.Errorf("pan after reattach = %v, want -1", got)
	}
}

func TestBufferedChannel_MissingControls(t *testing.T) {
	t.Parallel()

	drv := backendtest.NewDriver()
	drv.NoGain = true
	drv.NoPan = true
	diag := &Diagnostics{}

	c := newBufferedChannel(testEnv(diag), drv)
	if err := c.AttachBuffer(audio.NewSoundBuffer(pcm16(-1), mono16)); err != nil {
		t.Fatalf("AttachBuffer() error = %v", err)
	}

	if !errors.Is(diag.Last(), ErrCapability) {
		t.Errorf("Last() = %v, want %v", diag.Last(), ErrCapability)
	}
	if diag.Count() != 2 {
		t.Errorf("Count() = %d, want 2", diag.Count())
	}

	c.SetGain(0.3)
	c.SetPan(0.3)
	c.Play()
	if c.Gain() != 0.3 || c.Pan() != 0.3 {
		t.Errorf("Gain() = %v, Pan() = %v", c.Gain(), c.Pan())
	}
}

func TestBufferedChannel_SetDriver(t *testing.T) {
	t.Parallel()

	from := backendtest.NewDriver()
	to := backendtest.NewDriver()
	c, _ := attached(t, from, audio.NewSoundBuffer(pcm16(-1, -2), mono16))
	c.SetGain(0.5)
	c.SetPan(0.25)

	if err := c.SetDriver(to); err != nil {
		t.Fatalf("SetDriver() error = %v", err)
	}

	if from.Attached() != 0 {
		t.Errorf("old driver still has %d lines", from.Attached())
	}
	balanced(t, from)
	if to.Attached() != 1 || c.State() != StateAttached {
		t.Fatalf("new driver attached = %d, state %v", to.Attached(), c.State())
	}

	line := to.LastLine()
	if got, want := line.GainControl().Val, GainToDB(0.5, -80, 0); !approx(got, want) {
		t.Errorf("gain = %v, want %v", got, want)
	}
	if got := line.PanControl().Val; got != 0.25 {
		t.Errorf("pan = %v, want 0.25", got)
	}
}

func TestBufferedChannel_NoDriver(t *testing.T) {
	t.Parallel()

	c := NewBufferedChannel(nil)
	if err := c.AttachBuffer(audio.NewSoundBuffer(pcm16(-1), mono16)); !errors.Is(err, ErrValidation) {
		t.Errorf("AttachBuffer() error = %v, want %v", err, ErrValidation)
	}

	// Transport calls on an idle channel are no-ops.
	c.Play()
	c.Pause()
	c.Stop()
	c.Rewind()
	c.Close()
}

func TestChannels_OpensMatchCloses(t *testing.T) {
	t.Parallel()

	drv := backendtest.NewDriver()
	other := backendtest.NewDriver()
	b := newBufferedChannel(testEnv(nil), drv)
	s := newStreamingChannel(testEnv(nil), drv)

	ops := []func(){
		func() { b.AttachBuffer(audio.NewSoundBuffer(pcm16(-1), mono16)) },
		func() { s.ResetStream(mono16) },
		b.Play,
		func() { b.AttachBuffer(audio.NewSoundBuffer(pcm16(-2), mono16)) },
		func() { s.ResetStream(mono8) },
		s.Close,
		func() {
			drv.FailOpen = true
			b.AttachBuffer(audio.NewSoundBuffer(pcm16(-3), mono16))
		},
		func() {
			drv.FailOpen = false
			s.ResetStream(mono16)
		},
		func() { b.AttachBuffer(audio.NewSoundBuffer(pcm16(-4), mono16)) },
		func() {
			b.SetDriver(other)
			b.SetDriver(drv)
		},
		b.Close,
		s.Close,
	}
	for i, op := range ops {
		op()
		if got := drv.Closes + drv.Attached(); drv.Opens != got {
			t.Fatalf("after op %d opens = %d, closes + attached = %d", i, drv.Opens, got)
		}
	}
	if drv.Attached() != 0 {
		t.Errorf("Attached() = %d after closing everything", drv.Attached())
	}
	balanced(t, other)
}
