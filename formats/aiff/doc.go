// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes uncompressed AIFF files with github.com/go-audio/aiff.
//
// Samples are big-endian and signed at every depth on disk; the decoder
// normalises 8, 16, 24 and 32 bit data to float32 in [-1, 1]. Input that is
// not seekable is buffered in memory first because the go-audio parser
// seeks between chunks.
package aiff
