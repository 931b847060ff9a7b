// SPDX-License-Identifier: EPL-2.0

// Package soundsys wires the sound library to the beep mixer from a
// configuration.
//
// The module is split into layers:
//   - audio: PCM formats, sources, resampling and channel mixing
//   - formats/wav, formats/mp3, formats/vorbis, formats/aiff: decoders
//   - codec: asset sessions that decode whole or in chunks
//   - backend: the driver contract a mixer implements
//   - backend/beepdrv: a driver built on gopxl/beep
//   - sound: channels, sources, the listener and the Library
//   - config, logger: settings and structured logging
//
// # Quick Start
//
//	cfg, err := config.Load("")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	p, err := soundsys.Open(cfg, true)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer p.Close()
//
//	p.QuickPlay("", "intro.wav", sound.SourceSpec{}, true)
//	for len(p.Sources()) > 0 {
//		p.Tick()
//		time.Sleep(20 * time.Millisecond)
//	}
//
// The soundsys command in cmd/soundsys exposes play, render and convert on
// top of the same wiring.
package soundsys
