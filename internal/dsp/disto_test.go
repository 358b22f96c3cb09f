package dsp

import (
	"math/rand"
	"testing"
)

var testWeights = []uint16{38, 32, 20, 9, 32, 28, 17, 7, 20, 17, 10, 4, 9, 7, 4, 2}

func TestSSEDispatch(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 200; iter++ {
		a := makeRandBuf(rng, 16*BPS)
		b := makeRandBuf(rng, 16*BPS)

		want := 0
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				d := int(a[x+y*BPS]) - int(b[x+y*BPS])
				want += d * d
			}
		}
		if got := SSE4x4(a, b); got != want {
			t.Fatalf("iter %d: SSE4x4=%d, want %d", iter, got, want)
		}
		if SSE16x16(a, b) < SSE16x8(a, b) || SSE16x8(a, b) < SSE8x8(a, b) {
			t.Fatalf("iter %d: larger windows must not have smaller SSE", iter)
		}
	}
}

func TestTDistoIdentical(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	a := makeRandBuf(rng, 16*BPS)
	if d := TDisto16x16(a, a, testWeights); d != 0 {
		t.Fatalf("TDisto16x16 of identical blocks = %d", d)
	}
	flat := make([]byte, 4*BPS)
	for i := range flat {
		flat[i] = 100
	}
	bumped := make([]byte, len(flat))
	copy(bumped, flat)
	bumped[0] = 164
	if d := TDisto4x4(flat, bumped, testWeights); d <= 0 {
		t.Fatalf("TDisto4x4 of different blocks = %d, want > 0", d)
	}
}

func TestTDistoSymmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for iter := 0; iter < 50; iter++ {
		a := makeRandBuf(rng, 4*BPS)
		b := makeRandBuf(rng, 4*BPS)
		if TDisto4x4(a, b, testWeights) != TDisto4x4(b, a, testWeights) {
			t.Fatalf("iter %d: TDisto4x4 not symmetric", iter)
		}
	}
}

func TestPSNRFromSSE(t *testing.T) {
	tests := []struct {
		name string
		sse  uint64
		size int
		want float64
	}{
		{"perfect", 0, 100, 99},
		{"empty", 10, 0, 0},
		{"unit error", 1, 1, 48.13080360867910},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PSNRFromSSE(tt.sse, tt.size)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("PSNRFromSSE(%d, %d) = %v, want %v", tt.sse, tt.size, got, tt.want)
			}
		})
	}
}

func TestCopy4x4(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	src := makeRandBuf(rng, 4*BPS)
	dst := make([]byte, 4*BPS)
	Copy4x4(src, dst)
	if SSE4x4(src, dst) != 0 {
		t.Fatal("Copy4x4 left differences")
	}
	if dst[4] != 0 {
		t.Fatal("Copy4x4 wrote outside the block")
	}
}
