package dsp

// Forward and inverse 4x4 transforms of the VP8 encoder, plus the
// Walsh-Hadamard transform applied to the sixteen luma DC coefficients of an
// intra-16x16 macroblock. All blocks are read from and written to buffers of
// stride BPS.

const (
	kC1 = 20091 + (1 << 16)
	kC2 = 35468
)

func b2i(cond bool) int {
	if cond {
		return 1
	}
	return 0
}

func mul(a, b int) int {
	return (a * b) >> 16
}

// fTransform computes the forward DCT of src-ref for one 4x4 block.
// Output is in raster order.
func fTransform(src, ref []byte, out []int16) {
	_ = src[3+3*BPS]
	_ = ref[3+3*BPS]
	_ = out[15]

	var tmp [16]int
	for i := 0; i < 4; i++ {
		s, r := src[i*BPS:i*BPS+4], ref[i*BPS:i*BPS+4]
		d0 := int(s[0]) - int(r[0])
		d1 := int(s[1]) - int(r[1])
		d2 := int(s[2]) - int(r[2])
		d3 := int(s[3]) - int(r[3])
		a0 := d0 + d3
		a1 := d1 + d2
		a2 := d1 - d2
		a3 := d0 - d3
		tmp[0+i*4] = (a0 + a1) * 8
		tmp[1+i*4] = (a2*2217 + a3*5352 + 1812) >> 9
		tmp[2+i*4] = (a0 - a1) * 8
		tmp[3+i*4] = (a3*2217 - a2*5352 + 937) >> 9
	}
	for i := 0; i < 4; i++ {
		a0 := tmp[0+i] + tmp[12+i]
		a1 := tmp[4+i] + tmp[8+i]
		a2 := tmp[4+i] - tmp[8+i]
		a3 := tmp[0+i] - tmp[12+i]
		out[0+i] = int16((a0 + a1 + 7) >> 4)
		out[4+i] = int16((a2*2217+a3*5352+12000)>>16 + b2i(a3 != 0))
		out[8+i] = int16((a0 - a1 + 7) >> 4)
		out[12+i] = int16((a3*2217 - a2*5352 + 51000) >> 16)
	}
}

// fTransform2 transforms two horizontally adjacent blocks.
func fTransform2(src, ref []byte, out []int16) {
	fTransform(src, ref, out[:16])
	fTransform(src[4:], ref[4:], out[16:32])
}

// iTransform adds the inverse DCT of in to ref and stores the clipped
// result in dst. With doTwo it also handles the block to the right, whose
// coefficients follow in in[16:32].
func iTransform(ref []byte, in []int16, dst []byte, doTwo bool) {
	iTransformOne(ref, in, dst)
	if doTwo {
		iTransformOne(ref[4:], in[16:], dst[4:])
	}
}

func iTransformOne(ref []byte, in []int16, dst []byte) {
	_ = in[15]
	var tmp [16]int
	for i := 0; i < 4; i++ {
		a := int(in[0+i]) + int(in[8+i])
		b := int(in[0+i]) - int(in[8+i])
		c := mul(int(in[4+i]), kC2) - mul(int(in[12+i]), kC1)
		d := mul(int(in[4+i]), kC1) + mul(int(in[12+i]), kC2)
		tmp[i*4+0] = a + d
		tmp[i*4+1] = b + c
		tmp[i*4+2] = b - c
		tmp[i*4+3] = a - d
	}
	for i := 0; i < 4; i++ {
		dc := tmp[0+i] + 4
		a := dc + tmp[8+i]
		b := dc - tmp[8+i]
		c := mul(tmp[4+i], kC2) - mul(tmp[12+i], kC1)
		d := mul(tmp[4+i], kC1) + mul(tmp[12+i], kC2)
		off := i * BPS
		dst[off+0] = Clip8b(int(ref[off+0]) + (a+d)>>3)
		dst[off+1] = Clip8b(int(ref[off+1]) + (b+c)>>3)
		dst[off+2] = Clip8b(int(ref[off+2]) + (b-c)>>3)
		dst[off+3] = Clip8b(int(ref[off+3]) + (a-d)>>3)
	}
}

// fTransformWHT gathers the DC coefficient of each of the sixteen
// transformed luma blocks and applies the forward Walsh-Hadamard transform.
// in holds the sixteen blocks back to back (block k at in[16*k:]).
func fTransformWHT(in, out []int16) {
	_ = in[255]
	_ = out[15]
	var tmp [16]int
	for i := 0; i < 4; i++ {
		row := in[i*64:]
		a0 := int(row[0*16]) + int(row[2*16])
		a1 := int(row[1*16]) + int(row[3*16])
		a2 := int(row[1*16]) - int(row[3*16])
		a3 := int(row[0*16]) - int(row[2*16])
		tmp[0+i*4] = a0 + a1
		tmp[1+i*4] = a3 + a2
		tmp[2+i*4] = a3 - a2
		tmp[3+i*4] = a0 - a1
	}
	for i := 0; i < 4; i++ {
		a0 := tmp[0+i] + tmp[8+i]
		a1 := tmp[4+i] + tmp[12+i]
		a2 := tmp[4+i] - tmp[12+i]
		a3 := tmp[0+i] - tmp[8+i]
		out[0+i] = int16((a0 + a1) >> 1)
		out[4+i] = int16((a3 + a2) >> 1)
		out[8+i] = int16((a3 - a2) >> 1)
		out[12+i] = int16((a0 - a1) >> 1)
	}
}

// iTransformWHT inverts the Walsh-Hadamard transform and scatters the
// sixteen DC values back into the coefficient blocks (block k at out[16*k]).
func iTransformWHT(in, out []int16) {
	_ = in[15]
	_ = out[255]
	var tmp [16]int
	for i := 0; i < 4; i++ {
		a0 := int(in[0+i]) + int(in[12+i])
		a1 := int(in[4+i]) + int(in[8+i])
		a2 := int(in[4+i]) - int(in[8+i])
		a3 := int(in[0+i]) - int(in[12+i])
		tmp[0+i] = a0 + a1
		tmp[8+i] = a0 - a1
		tmp[4+i] = a3 + a2
		tmp[12+i] = a3 - a2
	}
	for i := 0; i < 4; i++ {
		dc := tmp[0+i*4] + 3
		a0 := dc + tmp[3+i*4]
		a1 := tmp[1+i*4] + tmp[2+i*4]
		a2 := tmp[1+i*4] - tmp[2+i*4]
		a3 := dc - tmp[3+i*4]
		o := out[i*64:]
		o[0] = int16((a0 + a1) >> 3)
		o[16] = int16((a3 + a2) >> 3)
		o[32] = int16((a0 - a1) >> 3)
		o[48] = int16((a3 - a2) >> 3)
	}
}
