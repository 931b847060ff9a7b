// SPDX-License-Identifier: EPL-2.0

package beepdrv

import (
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/ik5/soundsys/backend"
)

type Option func(*Driver)

// WithSampleRate sets the mixing rate. Lines at other rates are resampled.
func WithSampleRate(rate int) Option {
	return func(d *Driver) {
		if rate > 0 {
			d.rate = beep.SampleRate(rate)
		}
	}
}

// WithMaxLines caps the number of simultaneously open lines.
func WithMaxLines(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.maxLines = n
		}
	}
}

// WithStreamBuffer sets how much audio a stream line can hold.
func WithStreamBuffer(dur time.Duration) Option {
	return func(d *Driver) {
		if dur > 0 {
			d.streamBuf = dur
		}
	}
}

// WithSpeaker plays the mix on the default output device with the given
// latency. Without it the driver only renders on demand.
func WithSpeaker(latency time.Duration) Option {
	return func(d *Driver) {
		d.speaker = true
		if latency > 0 {
			d.latency = latency
		}
	}
}

// WithControls limits the controls lines expose. Passing nothing removes
// both.
func WithControls(kinds ...backend.ControlKind) Option {
	return func(d *Driver) {
		d.gainCtl, d.panCtl = false, false
		for _, k := range kinds {
			switch k {
			case backend.Gain:
				d.gainCtl = true
			case backend.Pan:
				d.panCtl = true
			}
		}
	}
}
