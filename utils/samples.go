// SPDX-License-Identifier: EPL-2.0

// Package utils holds the sample-level math shared by decoders, the PCM
// encoder and the playback channels.
package utils

import "cmp"

// CubicInterpolate performs Catmull-Rom interpolation.
// x is the fractional position between y1 and y2 (0 <= x <= 1);
// y0, y1, y2, y3 are four consecutive samples.
func CubicInterpolate(y0, y1, y2, y3, x float32) float32 {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1

	return a0*x*x*x + a1*x*x + a2*x + a3
}

// Clamp limits v to [lo, hi].
func Clamp[T cmp.Ordered](v, lo, hi T) T {
	return min(max(v, lo), hi)
}

// Float32ToInt16 converts a sample in [-1,1] to signed 16-bit PCM.
// Out of range input is clamped.
func Float32ToInt16(x float32) int16 {
	x = Clamp(x, -1, 1)
	if x < 0 {
		return int16(x * 32768.0)
	}
	return int16(x * 32767.0)
}

// Float32ToUint8 converts a sample in [-1,1] to unsigned 8-bit PCM
// centred on 128.
func Float32ToUint8(x float32) uint8 {
	x = Clamp(x, -1, 1)
	if x < 0 {
		return uint8(128 + x*128)
	}
	return uint8(128 + x*127)
}

// Int16ToFloat32 is the inverse of Float32ToInt16.
func Int16ToFloat32(v int16) float32 {
	return float32(v) / 32768.0
}

// Uint8ToFloat32 is the inverse of Float32ToUint8.
func Uint8ToFloat32(v uint8) float32 {
	return (float32(v) - 128) / 128.0
}

// IntToFloat32 normalises a signed integer sample of the given bit depth.
func IntToFloat32(v, bits int) float32 {
	return float32(v) / float32(int64(1)<<(bits-1))
}
