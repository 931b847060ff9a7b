// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidDstSize = errors.New("dst size must be multiple of channels")

	// ErrInvalidFormat is returned for formats with a non-positive rate or
	// channel count, or a bit depth that is not a whole number of bytes.
	ErrInvalidFormat = errors.New("invalid audio format")

	// ErrUnsupportedBitDepth is returned when PCM encoding is requested at a
	// depth other than 8 or 16 bits.
	ErrUnsupportedBitDepth = errors.New("only 8 and 16 bit PCM are supported")

	// ErrShortBuffer is returned when a read buffer cannot hold one frame.
	ErrShortBuffer = errors.New("buffer smaller than one frame")
)
