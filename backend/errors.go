// SPDX-License-Identifier: EPL-2.0

package backend

import "errors"

var (
	// ErrUnsupportedFormat is returned when a driver cannot play a format.
	ErrUnsupportedFormat = errors.New("backend: unsupported format")

	// ErrLineLimit is returned by Open when the driver has no free voice.
	ErrLineLimit = errors.New("backend: no free lines")

	ErrLineClosed = errors.New("backend: line is closed")
	ErrLineOpen   = errors.New("backend: line is already open")
	ErrNotOpen    = errors.New("backend: line is not open")

	// ErrInvalidBuffer is returned by GenBuffer for empty or misaligned data.
	ErrInvalidBuffer = errors.New("backend: invalid buffer data")
	ErrUnknownBuffer = errors.New("backend: unknown buffer id")

	ErrDriverClosed = errors.New("backend: driver is closed")
)
