package dsp

import "testing"

func blockIs(buf []byte, size int, want byte) bool {
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if buf[x+y*BPS] != want {
				return false
			}
		}
	}
	return true
}

func TestPredLuma16Edges(t *testing.T) {
	tests := []struct {
		name           string
		left, top      []byte
		dc, tm, ve, he byte
	}{
		{"no edges", nil, nil, 0x80, 129, 127, 129},
		{"top only", nil, repeat(40, 16), 40, 40, 40, 129},
		{"left only", append([]byte{7}, repeat(60, 16)...), nil, 60, 60, 127, 60},
		{"both", append([]byte{50}, repeat(60, 16)...), repeat(40, 16), 50, 50, 40, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]byte, PredSize)
			PredLuma16(dst, tt.left, tt.top)
			for _, c := range []struct {
				off  int
				want byte
			}{{I16DC16, tt.dc}, {I16TM16, tt.tm}, {I16VE16, tt.ve}, {I16HE16, tt.he}} {
				if !blockIs(dst[c.off:], 16, c.want) {
					t.Fatalf("block at %d: got %d, want %d", c.off, dst[c.off], c.want)
				}
			}
		})
	}
}

func TestPredChroma8Planes(t *testing.T) {
	top := append(repeat(10, 8), repeat(200, 8)...)
	dst := make([]byte, PredSize)
	PredChroma8(dst, nil, nil, top)
	if !blockIs(dst[C8VE8:], 8, 10) || !blockIs(dst[C8VE8+8:], 8, 200) {
		t.Fatal("VE must copy each plane's own top row")
	}
	if !blockIs(dst[C8DC8:], 8, 10) || !blockIs(dst[C8DC8+8:], 8, 200) {
		t.Fatal("DC with top only must average the top row")
	}
	if !blockIs(dst[C8HE8:], 8, 129) {
		t.Fatal("HE without left must fill 129")
	}
}

func TestPredLuma4(t *testing.T) {
	// L K J I X A B C D E F G H
	edge := []byte{4, 3, 2, 1, 0, 10, 20, 30, 40, 50, 60, 70, 80}
	dst := make([]byte, PredSize)
	PredLuma4(dst, edge)

	if got := dst[I4DC4]; got != (1+2+3+4+10+20+30+40+4)>>3 {
		t.Errorf("DC4 = %d", got)
	}
	if got := dst[I4TM4+3+3*BPS]; got != 40+4 {
		t.Errorf("TM4 bottom-right = %d, want 44", got)
	}
	if got := dst[I4VE4+1+2*BPS]; got != avg3(10, 20, 30) {
		t.Errorf("VE4 = %d", got)
	}
	if got := dst[I4HE4+2+3*BPS]; got != avg3(3, 4, 4) {
		t.Errorf("HE4 last row = %d", got)
	}
	if got := dst[I4LD4+3+3*BPS]; got != avg3(70, 80, 80) {
		t.Errorf("LD4 bottom-right = %d", got)
	}
	if got := dst[I4VL4+3+3*BPS]; got != avg3(60, 70, 80) {
		t.Errorf("VL4 bottom-right = %d", got)
	}
	if got := dst[I4HU4+3+3*BPS]; got != 4 {
		t.Errorf("HU4 bottom-right = %d, want L", got)
	}
	if dst[I4RD4] != dst[I4RD4+3+3*BPS] {
		t.Errorf("RD4 main diagonal not constant")
	}
	if dst[I4HD4] != dst[I4HD4+2+BPS] {
		t.Errorf("HD4 shifted diagonal not constant")
	}
	if dst[I4VR4] != dst[I4VR4+1+2*BPS] {
		t.Errorf("VR4 shifted diagonal not constant")
	}
}

func repeat(v byte, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = v
	}
	return b
}
