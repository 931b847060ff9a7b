// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MPEG audio Layer III with github.com/hajimehoshi/go-mp3.
//
// go-mp3 always produces 16-bit stereo, so mono files come out with both
// channels equal. Fold them with audio.NewMonoMixer when mono is wanted.
package mp3
