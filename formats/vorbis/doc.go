// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis streams with github.com/jfreymuth/oggvorbis.
//
// Vorbis decodes straight to float32, so no integer conversion happens. The
// source reports no bit depth and is encoded back to 16-bit PCM when cached.
package vorbis
