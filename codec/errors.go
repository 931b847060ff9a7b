// SPDX-License-Identifier: EPL-2.0

package codec

import "errors"

var (
	// ErrNoCodec is returned when no decoder is registered for an asset's
	// extension.
	ErrNoCodec = errors.New("codec: no decoder for asset")

	// ErrNoAsset is returned when the asset cannot be opened.
	ErrNoAsset = errors.New("codec: asset not found")

	// ErrDecode wraps every failure raised by a format decoder.
	ErrDecode = errors.New("codec: decode failed")
)
