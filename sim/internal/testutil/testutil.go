// Package testutil provides shared assertion helpers for the simulation
// library tests: tolerance comparisons for pixel maps and harmonic vectors.
package testutil

import (
	"math"
	"math/cmplx"
	"testing"
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertMapsClose compares two pixel maps element-wise with absolute
// tolerance scaled by the map's dynamic range.
func AssertMapsClose(t *testing.T, name string, want, got []float64, tol float64) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("%s: length mismatch: want %d, got %d", name, len(want), len(got))
	}
	scale := 0.0
	for _, v := range want {
		if a := math.Abs(v); a > scale {
			scale = a
		}
	}
	if scale == 0 {
		scale = 1
	}
	for i := range want {
		if math.Abs(want[i]-got[i]) > tol*scale {
			t.Fatalf("%s: pixel %d: got %v, want %v (tol %v)", name, i, got[i], want[i], tol*scale)
			return
		}
	}
}

// AssertAlmsEqual compares two harmonic vectors bit-for-bit.
func AssertAlmsEqual(t *testing.T, name string, want, got []complex128) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("%s: length mismatch: want %d, got %d", name, len(want), len(got))
	}
	for i := range want {
		if want[i] != got[i] {
			t.Fatalf("%s: mode %d: got %v, want %v (|diff|=%v)",
				name, i, got[i], want[i], cmplx.Abs(got[i]-want[i]))
			return
		}
	}
}
