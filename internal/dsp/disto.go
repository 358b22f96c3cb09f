package dsp

import "math"

func sse(a, b []byte, w, h int) int {
	sum := 0
	for y := 0; y < h; y++ {
		pa, pb := a[y*BPS:y*BPS+w], b[y*BPS:y*BPS+w]
		for x := range pa {
			d := int(pa[x]) - int(pb[x])
			sum += d * d
		}
	}
	return sum
}

func sse4x4(a, b []byte) int {
	_ = a[3+3*BPS]
	_ = b[3+3*BPS]
	sum := 0
	for y := 0; y < 4; y++ {
		off := y * BPS
		d0 := int(a[off+0]) - int(b[off+0])
		d1 := int(a[off+1]) - int(b[off+1])
		d2 := int(a[off+2]) - int(b[off+2])
		d3 := int(a[off+3]) - int(b[off+3])
		sum += d0*d0 + d1*d1 + d2*d2 + d3*d3
	}
	return sum
}

func sse16x16(a, b []byte) int { return sse(a, b, 16, 16) }
func sse16x8(a, b []byte) int  { return sse(a, b, 16, 8) }
func sse8x8(a, b []byte) int   { return sse(a, b, 8, 8) }

// tTransform returns the weighted sum of absolute Hadamard coefficients of
// a 4x4 block.
func tTransform(in []byte, w []uint16) int {
	var tmp [16]int
	for i := 0; i < 4; i++ {
		off := i * BPS
		a0 := int(in[off+0]) + int(in[off+2])
		a1 := int(in[off+1]) + int(in[off+3])
		a2 := int(in[off+1]) - int(in[off+3])
		a3 := int(in[off+0]) - int(in[off+2])
		tmp[0+i*4] = a0 + a1
		tmp[1+i*4] = a3 + a2
		tmp[2+i*4] = a3 - a2
		tmp[3+i*4] = a0 - a1
	}
	sum := 0
	for i := 0; i < 4; i++ {
		a0 := tmp[0+i] + tmp[8+i]
		a1 := tmp[4+i] + tmp[12+i]
		a2 := tmp[4+i] - tmp[12+i]
		a3 := tmp[0+i] - tmp[8+i]
		sum += int(w[0+i]) * abs(a0+a1)
		sum += int(w[4+i]) * abs(a3+a2)
		sum += int(w[8+i]) * abs(a3-a2)
		sum += int(w[12+i]) * abs(a0-a1)
	}
	return sum
}

// tDisto4x4 measures the perceptual difference between two 4x4 blocks in
// the Hadamard domain.
func tDisto4x4(a, b []byte, w []uint16) int {
	return abs(tTransform(b, w)-tTransform(a, w)) >> 5
}

func tDisto16x16(a, b []byte, w []uint16) int {
	d := 0
	for y := 0; y < 16*BPS; y += 4 * BPS {
		for x := 0; x < 16; x += 4 {
			d += tDisto4x4(a[x+y:], b[x+y:], w)
		}
	}
	return d
}

// Copy4x4 copies a 4x4 block between two BPS-strided buffers.
func Copy4x4(src, dst []byte) {
	for y := 0; y < 4; y++ {
		copy(dst[y*BPS:y*BPS+4], src[y*BPS:y*BPS+4])
	}
}

// PlaneSSE returns the sum of squared differences between two planes.
func PlaneSSE(a []byte, aStride int, b []byte, bStride int, w, h int) uint64 {
	var sum uint64
	for y := 0; y < h; y++ {
		ra, rb := a[y*aStride:y*aStride+w], b[y*bStride:y*bStride+w]
		for x := range ra {
			d := int(ra[x]) - int(rb[x])
			sum += uint64(d * d)
		}
	}
	return sum
}

// PSNRFromSSE converts a sum of squared errors over size samples to PSNR in
// dB. A perfect match reports 99.
func PSNRFromSSE(sse uint64, size int) float64 {
	if size <= 0 {
		return 0
	}
	if sse == 0 {
		return 99
	}
	return 10 * math.Log10(255*255*float64(size)/float64(sse))
}
