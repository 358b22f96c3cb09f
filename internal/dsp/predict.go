package dsp

// Encoder-side intra predictors. Unlike the decoder, the encoder computes
// every candidate of a block at once into its slot of the prediction
// buffer (see the I16*, C8* and I4* offsets).
//
// Edges are passed explicitly. For 16x16 and 8x8 blocks left[0] is the
// top-left corner sample and left[1:] the column to the left; a nil left or
// top marks the picture border.

func avg3(a, b, c uint8) uint8 {
	return uint8((int(a) + 2*int(b) + int(c) + 2) >> 2)
}

func avg2(a, b uint8) uint8 {
	return uint8((int(a) + int(b) + 1) >> 1)
}

func fill(dst []byte, value uint8, size int) {
	for j := 0; j < size; j++ {
		row := dst[j*BPS : j*BPS+size]
		for i := range row {
			row[i] = value
		}
	}
}

func verticalPred(dst, top []byte, size int) {
	if top == nil {
		fill(dst, 127, size)
		return
	}
	for j := 0; j < size; j++ {
		copy(dst[j*BPS:j*BPS+size], top[:size])
	}
}

func horizontalPred(dst, left []byte, size int) {
	if left == nil {
		fill(dst, 129, size)
		return
	}
	for j := 0; j < size; j++ {
		row := dst[j*BPS : j*BPS+size]
		for i := range row {
			row[i] = left[1+j]
		}
	}
}

func trueMotion(dst, left, top []byte, size int) {
	switch {
	case left != nil && top != nil:
		tl := int(left[0])
		for j := 0; j < size; j++ {
			row := dst[j*BPS : j*BPS+size]
			l := int(left[1+j]) - tl
			for i := range row {
				row[i] = Clip8b(int(top[i]) + l)
			}
		}
	case left != nil:
		horizontalPred(dst, left, size)
	case top != nil:
		// The top-left sample is unknown on the left border, so VE is the
		// best TM can do.
		verticalPred(dst, top, size)
	default:
		fill(dst, 129, size)
	}
}

func dcMode(dst, left, top []byte, size, round, shift int) {
	dc := 0
	switch {
	case top != nil && left != nil:
		for j := 0; j < size; j++ {
			dc += int(top[j]) + int(left[1+j])
		}
		dc = (dc + round) >> shift
	case top != nil:
		for j := 0; j < size; j++ {
			dc += int(top[j])
		}
		dc = (2*dc + round) >> shift
	case left != nil:
		for j := 0; j < size; j++ {
			dc += int(left[1+j])
		}
		dc = (2*dc + round) >> shift
	default:
		dc = 0x80
	}
	fill(dst, uint8(dc), size)
}

// PredLuma16 fills the four 16x16 luma candidates.
func PredLuma16(dst, left, top []byte) {
	dcMode(dst[I16DC16:], left, top, 16, 16, 5)
	verticalPred(dst[I16VE16:], top, 16)
	horizontalPred(dst[I16HE16:], left, 16)
	trueMotion(dst[I16TM16:], left, top, 16)
}

// PredChroma8 fills the four chroma candidates for both planes. top holds
// the eight U samples followed by the eight V samples; leftU and leftV
// follow the left[0]-is-corner convention.
func PredChroma8(dst, leftU, leftV, top []byte) {
	var topU, topV []byte
	if top != nil {
		topU, topV = top[0:8], top[8:16]
	}
	for _, p := range []struct {
		off       int
		left, top []byte
	}{{0, leftU, topU}, {8, leftV, topV}} {
		dcMode(dst[C8DC8+p.off:], p.left, p.top, 8, 8, 4)
		verticalPred(dst[C8VE8+p.off:], p.top, 8)
		horizontalPred(dst[C8HE8+p.off:], p.left, 8)
		trueMotion(dst[C8TM8+p.off:], p.left, p.top, 8)
	}
}

// PredLuma4 fills the ten 4x4 candidates from a 13-sample edge laid out as
// L K J I X A B C D E F G H: the left column bottom to top, the top-left
// corner, then the four top and four top-right samples.
func PredLuma4(dst, edge []byte) {
	_ = edge[12]
	dc4(dst[I4DC4:], edge)
	tm4(dst[I4TM4:], edge)
	ve4(dst[I4VE4:], edge)
	he4(dst[I4HE4:], edge)
	rd4(dst[I4RD4:], edge)
	vr4(dst[I4VR4:], edge)
	ld4(dst[I4LD4:], edge)
	vl4(dst[I4VL4:], edge)
	hd4(dst[I4HD4:], edge)
	hu4(dst[I4HU4:], edge)
}

func put(dst []byte, x, y int, v uint8) {
	dst[x+y*BPS] = v
}

func dc4(dst, e []byte) {
	dc := 4
	for i := 0; i < 4; i++ {
		dc += int(e[5+i]) + int(e[i])
	}
	fill(dst, uint8(dc>>3), 4)
}

func tm4(dst, e []byte) {
	tl := int(e[4])
	for y := 0; y < 4; y++ {
		l := int(e[3-y]) - tl
		for x := 0; x < 4; x++ {
			put(dst, x, y, Clip8b(int(e[5+x])+l))
		}
	}
}

func ve4(dst, e []byte) {
	var vals [4]uint8
	for i := range vals {
		vals[i] = avg3(e[4+i], e[5+i], e[6+i])
	}
	for y := 0; y < 4; y++ {
		copy(dst[y*BPS:y*BPS+4], vals[:])
	}
}

func he4(dst, e []byte) {
	x, i, j, k, l := e[4], e[3], e[2], e[1], e[0]
	rows := [4]uint8{avg3(x, i, j), avg3(i, j, k), avg3(j, k, l), avg3(k, l, l)}
	for y, v := range rows {
		for c := 0; c < 4; c++ {
			put(dst, c, y, v)
		}
	}
}

func rd4(dst, e []byte) {
	l3, l2, l1, l0, tl := e[0], e[1], e[2], e[3], e[4]
	t0, t1, t2, t3 := e[5], e[6], e[7], e[8]
	put(dst, 0, 3, avg3(l3, l2, l1))
	v := avg3(l2, l1, l0)
	put(dst, 0, 2, v)
	put(dst, 1, 3, v)
	v = avg3(l1, l0, tl)
	put(dst, 0, 1, v)
	put(dst, 1, 2, v)
	put(dst, 2, 3, v)
	v = avg3(l0, tl, t0)
	put(dst, 0, 0, v)
	put(dst, 1, 1, v)
	put(dst, 2, 2, v)
	put(dst, 3, 3, v)
	v = avg3(tl, t0, t1)
	put(dst, 1, 0, v)
	put(dst, 2, 1, v)
	put(dst, 3, 2, v)
	v = avg3(t0, t1, t2)
	put(dst, 2, 0, v)
	put(dst, 3, 1, v)
	put(dst, 3, 0, avg3(t1, t2, t3))
}

func vr4(dst, e []byte) {
	l2, l1, l0, tl := e[1], e[2], e[3], e[4]
	t0, t1, t2, t3 := e[5], e[6], e[7], e[8]
	v := avg2(tl, t0)
	put(dst, 0, 0, v)
	put(dst, 1, 2, v)
	v = avg2(t0, t1)
	put(dst, 1, 0, v)
	put(dst, 2, 2, v)
	v = avg2(t1, t2)
	put(dst, 2, 0, v)
	put(dst, 3, 2, v)
	put(dst, 3, 0, avg2(t2, t3))

	put(dst, 0, 3, avg3(l2, l1, l0))
	put(dst, 0, 2, avg3(l1, l0, tl))
	v = avg3(l0, tl, t0)
	put(dst, 0, 1, v)
	put(dst, 1, 3, v)
	v = avg3(tl, t0, t1)
	put(dst, 1, 1, v)
	put(dst, 2, 3, v)
	v = avg3(t0, t1, t2)
	put(dst, 2, 1, v)
	put(dst, 3, 3, v)
	put(dst, 3, 1, avg3(t1, t2, t3))
}

func ld4(dst, e []byte) {
	t := e[5:13]
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			k := x + y
			if k == 6 {
				put(dst, x, y, avg3(t[6], t[7], t[7]))
				continue
			}
			put(dst, x, y, avg3(t[k], t[k+1], t[k+2]))
		}
	}
}

func vl4(dst, e []byte) {
	a, b, c, d := e[5], e[6], e[7], e[8]
	ee, f, g, h := e[9], e[10], e[11], e[12]
	put(dst, 0, 0, avg2(a, b))
	v := avg2(b, c)
	put(dst, 1, 0, v)
	put(dst, 0, 2, v)
	v = avg2(c, d)
	put(dst, 2, 0, v)
	put(dst, 1, 2, v)
	v = avg2(d, ee)
	put(dst, 3, 0, v)
	put(dst, 2, 2, v)

	put(dst, 0, 1, avg3(a, b, c))
	v = avg3(b, c, d)
	put(dst, 1, 1, v)
	put(dst, 0, 3, v)
	v = avg3(c, d, ee)
	put(dst, 2, 1, v)
	put(dst, 1, 3, v)
	v = avg3(d, ee, f)
	put(dst, 3, 1, v)
	put(dst, 2, 3, v)
	put(dst, 3, 2, avg3(ee, f, g))
	put(dst, 3, 3, avg3(f, g, h))
}

func hd4(dst, e []byte) {
	l3, l2, l1, l0, tl := e[0], e[1], e[2], e[3], e[4]
	t0, t1, t2 := e[5], e[6], e[7]
	v := avg2(tl, l0)
	put(dst, 0, 0, v)
	put(dst, 2, 1, v)
	v = avg2(l0, l1)
	put(dst, 0, 1, v)
	put(dst, 2, 2, v)
	v = avg2(l1, l2)
	put(dst, 0, 2, v)
	put(dst, 2, 3, v)
	put(dst, 0, 3, avg2(l2, l3))

	put(dst, 3, 0, avg3(t0, t1, t2))
	put(dst, 2, 0, avg3(tl, t0, t1))
	v = avg3(l0, tl, t0)
	put(dst, 1, 0, v)
	put(dst, 3, 1, v)
	v = avg3(tl, l0, l1)
	put(dst, 1, 1, v)
	put(dst, 3, 2, v)
	v = avg3(l0, l1, l2)
	put(dst, 1, 2, v)
	put(dst, 3, 3, v)
	put(dst, 1, 3, avg3(l1, l2, l3))
}

func hu4(dst, e []byte) {
	l3, l2, l1, l0 := e[0], e[1], e[2], e[3]
	put(dst, 0, 0, avg2(l0, l1))
	v := avg2(l1, l2)
	put(dst, 2, 0, v)
	put(dst, 0, 1, v)
	v = avg2(l2, l3)
	put(dst, 2, 1, v)
	put(dst, 0, 2, v)
	put(dst, 1, 0, avg3(l0, l1, l2))
	v = avg3(l1, l2, l3)
	put(dst, 3, 0, v)
	put(dst, 1, 1, v)
	v = avg3(l2, l3, l3)
	put(dst, 3, 1, v)
	put(dst, 1, 2, v)
	for _, p := range [][2]int{{2, 2}, {3, 2}, {0, 3}, {1, 3}, {2, 3}, {3, 3}} {
		put(dst, p[0], p[1], l3)
	}
}
