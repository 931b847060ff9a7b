// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"math"
	"testing"
)

func TestCubicInterpolate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		y0, y1, y2, y3 float32
		x              float32
		want           float32
		tolerance      float32
	}{
		{name: "start returns y1", y0: 0, y1: 1, y2: 2, y3: 3, x: 0, want: 1, tolerance: 0.001},
		{name: "end returns y2", y0: 0, y1: 1, y2: 2, y3: 3, x: 1, want: 2, tolerance: 0.001},
		{name: "linear data stays linear", y0: 1, y1: 2, y2: 3, y3: 4, x: 0.25, want: 2.25, tolerance: 0.01},
		{name: "constant", y0: 0.5, y1: 0.5, y2: 0.5, y3: 0.5, x: 0.7, want: 0.5, tolerance: 0.0001},
		{name: "negative values", y0: -1, y1: -0.5, y2: 0.5, y3: 1, x: 0.5, want: 0, tolerance: 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := CubicInterpolate(tt.y0, tt.y1, tt.y2, tt.y3, tt.x)
			if math.Abs(float64(got-tt.want)) > float64(tt.tolerance) {
				t.Errorf("CubicInterpolate() = %v, want %v (±%v)", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	t.Parallel()

	if got := Clamp(1.5, -1.0, 1.0); got != 1.0 {
		t.Errorf("Clamp(1.5) = %v, want 1", got)
	}
	if got := Clamp(-3, 0, 10); got != 0 {
		t.Errorf("Clamp(-3) = %v, want 0", got)
	}
	if got := Clamp(float32(0.25), 0, 1); got != 0.25 {
		t.Errorf("Clamp(0.25) = %v, want 0.25", got)
	}
}

func TestFloat32ToInt16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input float32
		want  int16
	}{
		{"zero", 0, 0},
		{"max positive", 1, math.MaxInt16},
		{"max negative", -1, math.MinInt16},
		{"half positive", 0.5, 16383},
		{"half negative", -0.5, -16384},
		{"clamp over max", 1.5, math.MaxInt16},
		{"clamp under min", -100, math.MinInt16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Float32ToInt16(tt.input); got != tt.want {
				t.Errorf("Float32ToInt16(%v) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFloat32ToUint8(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input float32
		want  uint8
	}{
		{0, 128},
		{1, 255},
		{-1, 0},
		{2, 255},
		{-2, 0},
	}

	for _, tt := range tests {
		if got := Float32ToUint8(tt.input); got != tt.want {
			t.Errorf("Float32ToUint8(%v) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestRoundTrip16(t *testing.T) {
	t.Parallel()

	for _, v := range []int16{math.MinInt16, -12345, -1, 0, 1, 12345} {
		if got := Float32ToInt16(Int16ToFloat32(v)); got != v {
			t.Errorf("round trip of %d gave %d", v, got)
		}
	}
}

func TestUint8ToFloat32(t *testing.T) {
	t.Parallel()

	if got := Uint8ToFloat32(128); got != 0 {
		t.Errorf("Uint8ToFloat32(128) = %v, want 0", got)
	}
	if got := Uint8ToFloat32(0); got != -1 {
		t.Errorf("Uint8ToFloat32(0) = %v, want -1", got)
	}
}

func TestIntToFloat32(t *testing.T) {
	t.Parallel()

	tests := []struct {
		v, bits int
		want    float32
	}{
		{-128, 8, -1},
		{64, 8, 0.5},
		{16384, 16, 0.5},
		{-4194304, 24, -0.5},
		{math.MinInt32, 32, -1},
	}

	for _, tt := range tests {
		if got := IntToFloat32(tt.v, tt.bits); got != tt.want {
			t.Errorf("IntToFloat32(%d, %d) = %v, want %v", tt.v, tt.bits, got, tt.want)
		}
	}
}

func BenchmarkFloat32ToInt16(b *testing.B) {
	samples := make([]float32, 4096)
	for i := range samples {
		samples[i] = float32(math.Sin(float64(i) * 0.01))
	}

	b.ReportAllocs()
	for b.Loop() {
		for _, s := range samples {
			_ = Float32ToInt16(s)
		}
	}
}

func TestCubicInterpolate_ZeroAllocs(t *testing.T) {
	allocs := testing.AllocsPerRun(100, func() {
		_ = CubicInterpolate(0.1, 0.2, 0.3, 0.4, 0.5)
	})
	if allocs != 0 {
		t.Errorf("CubicInterpolate allocates %v times, want 0", allocs)
	}
}
