// SPDX-License-Identifier: EPL-2.0

// Package sound is a playback library over a pluggable backend.Driver.
//
// A Library owns two fixed pools of channels. Buffered channels play whole
// clips decoded once and cached by asset key; streaming channels play PCM
// queued chunk by chunk, either decoded from an asset while it plays or fed
// by the caller through a raw data stream.
//
// Sources are named playback requests. A source holds a channel only while
// bound: when the pool of its kind is exhausted the library takes the
// channel of a stopped source first, then of a non-priority source, and
// rebinds a displaced source on its next Play.
//
// # Gain and pan
//
// Volumes in [0,1] are mapped to the line's decibel range with a
// logarithmic curve, so half volume sounds half as loud. Distance
// attenuation and stereo pan are derived from the listener position and
// orientation on every listener or source update.
//
// # Driving playback
//
// The library starts no goroutines. Call Tick periodically to refill
// streaming queues, drain raw streams and reclaim finished temporary
// sources:
//
//	lib, _ := sound.New(drv, codec.New(nil, audio.Format{}), sound.WithAssets(os.DirFS("assets")))
//	defer lib.Close()
//
//	lib.QuickPlay("", "click.wav", sound.SourceSpec{}, true)
//	lib.NewStreamingSource("music", "theme.ogg", sound.SourceSpec{Loop: true})
//	lib.Play("music")
//
//	for range time.Tick(20 * time.Millisecond) {
//		lib.Tick()
//	}
//
// A Library is not safe for concurrent use.
//
// # Switching drivers
//
// SwapDriver moves every cached buffer and channel to another driver and
// resumes what was playing. CopySources rebuilds the source registry of one
// library in another.
package sound
