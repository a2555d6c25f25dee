package embedding

import (
	"math"
	"testing"
)

func TestCosineCommutative(t *testing.T) {
	a := []float32{0.2, 0.5, -0.1, 0.9}
	b := []float32{-0.3, 0.8, 0.4, 0.1}
	if got, want := Cosine(a, b), Cosine(b, a); got != want {
		t.Errorf("cosine not commutative: %v != %v", got, want)
	}
}

func TestCosineBounds(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"zero_vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length_mismatch", []float32{1}, []float32{1, 2}, 0},
		{"empty", nil, []float32{1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine = %v, want %v", got, tt.want)
			}
			if got < -1 || got > 1 {
				t.Errorf("Cosine %v outside [-1,1]", got)
			}
		})
	}
}

func TestNormalize01(t *testing.T) {
	if got := Normalize01(1); got != 1 {
		t.Errorf("Normalize01(1) = %v", got)
	}
	if got := Normalize01(-1); got != 0 {
		t.Errorf("Normalize01(-1) = %v", got)
	}
	if got := Normalize01(0); got != 0.5 {
		t.Errorf("Normalize01(0) = %v", got)
	}
}
