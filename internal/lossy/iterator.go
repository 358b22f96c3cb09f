package lossy

import (
	"github.com/deepteams/vp8rdo/internal/dsp"
	"github.com/deepteams/vp8rdo/internal/pool"
)

// kTopLeftI4 is the offset in the 4x4 boundary of the first top sample of
// each sub-block.
var kTopLeftI4 = [16]int{
	17, 21, 25, 29,
	13, 17, 21, 25,
	9, 13, 17, 21,
	5, 9, 13, 17,
}

// Iterator walks the macroblocks of one row. It owns the work buffers and
// the left context; the top context lives in the Encoder and is shared by
// all rows, which the row wavefront keeps consistent.
type Iterator struct {
	enc *Encoder

	// Current macroblock position.
	x, y int
	mb   *MBInfo

	// BPS-strided work buffers (one macroblock at a time).
	yuvIn   []byte
	yuvOut  []byte
	yuvOut2 []byte
	yuvP    []byte

	// Left reconstructed samples. Index 0 is the top-left corner.
	yLeft [17]uint8
	uLeft [9]uint8
	vLeft [9]uint8

	// 4x4 edge samples: 16 left (bottom to top), corner, 16 top and 4
	// top-right.
	i4Boundary [37]uint8
	i4         int // current 4x4 sub-block, 0..15
	i4Top      int // offset in i4Boundary of the current top samples

	// Non-zero context, one flag per 4x4 column/row (0..3 luma, 4..5 U,
	// 6..7 V, 8 Y2).
	topNz      [9]int
	leftNz     [9]int
	leftNzWord uint32 // packed nz of the macroblock to the left

	doTrellis bool

	// Per-row accounts, merged by the encoder in row order.
	maxEdge [NumMBSegments]int
	stats   *TokenStats
	totals  frameTotals
}

func newIterator(enc *Encoder) *Iterator {
	return &Iterator{
		enc:     enc,
		yuvIn:   pool.GetZeroed(dsp.YUVSize),
		yuvOut:  pool.GetZeroed(dsp.YUVSize),
		yuvOut2: pool.GetZeroed(dsp.YUVSize),
		yuvP:    pool.GetZeroed(dsp.PredSize),
		stats:   new(TokenStats),
	}
}

// release hands the work buffers back to the pool.
func (it *Iterator) release() {
	pool.Put(it.yuvIn)
	pool.Put(it.yuvOut)
	pool.Put(it.yuvOut2)
	pool.Put(it.yuvP)
	it.yuvIn, it.yuvOut, it.yuvOut2, it.yuvP = nil, nil, nil, nil
}

// SetRow positions the iterator on the first macroblock of row y and resets
// the left context.
func (it *Iterator) SetRow(y int) {
	it.x = 0
	it.y = y
	it.mb = &it.enc.mbInfo[y*it.enc.mbW]
	it.initLeft()
}

// SetPosition moves to macroblock x of the current row.
func (it *Iterator) SetPosition(x int) {
	it.x = x
	it.mb = &it.enc.mbInfo[it.y*it.enc.mbW+x]
}

func (it *Iterator) initLeft() {
	corner := uint8(127)
	if it.y > 0 {
		corner = 129
	}
	it.yLeft[0] = corner
	it.uLeft[0] = corner
	it.vLeft[0] = corner
	for i := 1; i < 17; i++ {
		it.yLeft[i] = 129
	}
	for i := 1; i < 9; i++ {
		it.uLeft[i] = 129
		it.vLeft[i] = 129
	}
	it.leftNz[8] = 0
	it.leftNzWord = 0
}

// Import copies the source samples of the current macroblock into yuvIn.
// Samples beyond the picture are replicated from the last valid ones.
func (it *Iterator) Import() {
	enc := it.enc
	x, y := it.x*16, it.y*16
	w := min(enc.width-x, 16)
	h := min(enc.height-y, 16)
	importBlock(enc.srcY, enc.srcYStride, it.yuvIn, dsp.YOff, x, y, w, h, 16)

	uvW, uvH := (w+1)>>1, (h+1)>>1
	importBlock(enc.srcU, enc.srcUVStride, it.yuvIn, dsp.UOff, x>>1, y>>1, uvW, uvH, 8)
	importBlock(enc.srcV, enc.srcUVStride, it.yuvIn, dsp.VOff, x>>1, y>>1, uvW, uvH, 8)
}

// importBlock copies a w x h region of src into dst at dstOff, then fills
// the rest of the size x size block by replicating the last column and
// row.
func importBlock(src []byte, srcStride int, dst []byte, dstOff, srcX, srcY, w, h, size int) {
	for j := 0; j < h; j++ {
		s := src[(srcY+j)*srcStride+srcX:]
		d := dst[dstOff+j*dsp.BPS:]
		copy(d[:w], s[:w])
		for i := w; i < size; i++ {
			d[i] = d[w-1]
		}
	}
	for j := h; j < size; j++ {
		last := dstOff + (h-1)*dsp.BPS
		d := dstOff + j*dsp.BPS
		copy(dst[d:d+size], dst[last:last+size])
	}
}

// importSourceEdges loads the left and top context from the source picture
// instead of the reconstruction. The analysis pass predicts from it.
func (it *Iterator) importSourceEdges(top []uint8) {
	enc := it.enc
	x, y := it.x*16, it.y*16
	if it.x == 0 {
		it.initLeft()
	} else {
		h := min(enc.height-y, 16)
		importLine(enc.srcY[y*enc.srcYStride+x-1:], enc.srcYStride, it.yLeft[1:], h, 16)
		uvH := (h + 1) >> 1
		importLine(enc.srcU[(y>>1)*enc.srcUVStride+(x>>1)-1:], enc.srcUVStride, it.uLeft[1:], uvH, 8)
		importLine(enc.srcV[(y>>1)*enc.srcUVStride+(x>>1)-1:], enc.srcUVStride, it.vLeft[1:], uvH, 8)
		if it.y > 0 {
			it.yLeft[0] = enc.srcY[(y-1)*enc.srcYStride+x-1]
			it.uLeft[0] = enc.srcU[((y>>1)-1)*enc.srcUVStride+(x>>1)-1]
			it.vLeft[0] = enc.srcV[((y>>1)-1)*enc.srcUVStride+(x>>1)-1]
		} else {
			it.yLeft[0], it.uLeft[0], it.vLeft[0] = 127, 127, 127
		}
	}
	if it.y == 0 {
		for i := range top[:32] {
			top[i] = 127
		}
		return
	}
	w := min(enc.width-x, 16)
	importLine(enc.srcY[(y-1)*enc.srcYStride+x:], 1, top[:16], w, 16)
	uvW := (w + 1) >> 1
	importLine(enc.srcU[((y>>1)-1)*enc.srcUVStride+(x>>1):], 1, top[16:24], uvW, 8)
	importLine(enc.srcV[((y>>1)-1)*enc.srcUVStride+(x>>1):], 1, top[24:32], uvW, 8)
}

func importLine(src []byte, step int, dst []uint8, n, size int) {
	for i := 0; i < n; i++ {
		dst[i] = src[i*step]
	}
	for i := n; i < size; i++ {
		dst[i] = dst[n-1]
	}
}

// Export writes the reconstruction of the current macroblock to the output
// planes, cropped to the picture.
func (it *Iterator) Export() {
	enc := it.enc
	x, y := it.x*16, it.y*16
	w := min(enc.width-x, 16)
	h := min(enc.height-y, 16)
	for j := 0; j < h; j++ {
		d := enc.outY[(y+j)*enc.width+x:]
		copy(d[:w], it.yuvOut[dsp.YOff+j*dsp.BPS:])
	}
	uvW, uvH := (w+1)>>1, (h+1)>>1
	uvStride := (enc.width + 1) >> 1
	for j := 0; j < uvH; j++ {
		off := ((y>>1)+j)*uvStride + x>>1
		copy(enc.outU[off:off+uvW], it.yuvOut[dsp.UOff+j*dsp.BPS:])
		copy(enc.outV[off:off+uvW], it.yuvOut[dsp.VOff+j*dsp.BPS:])
	}
}

// yTop returns the reconstructed samples above the current macroblock:
// 16 of its own columns followed by 4 of the next macroblock.
func (it *Iterator) yTop() []uint8 {
	return it.enc.yTop[it.x*16:]
}

// uvTop returns the 8 U then 8 V samples above the current macroblock.
func (it *Iterator) uvTop() []uint8 {
	return it.enc.uvTop[it.x*16 : it.x*16+16]
}

// NzToBytes unpacks the non-zero context of the neighbours into topNz and
// leftNz. leftNz[8] is carried separately.
func (it *Iterator) NzToBytes() {
	tnz := it.enc.nz[it.x]
	lnz := it.leftNzWord
	bit := func(nz uint32, n uint) int { return int(nz>>n) & 1 }
	it.topNz[0] = bit(tnz, 12)
	it.topNz[1] = bit(tnz, 13)
	it.topNz[2] = bit(tnz, 14)
	it.topNz[3] = bit(tnz, 15)
	it.topNz[4] = bit(tnz, 18)
	it.topNz[5] = bit(tnz, 19)
	it.topNz[6] = bit(tnz, 22)
	it.topNz[7] = bit(tnz, 23)
	it.topNz[8] = bit(tnz, 24)
	it.leftNz[0] = bit(lnz, 3)
	it.leftNz[1] = bit(lnz, 7)
	it.leftNz[2] = bit(lnz, 11)
	it.leftNz[3] = bit(lnz, 15)
	it.leftNz[4] = bit(lnz, 17)
	it.leftNz[5] = bit(lnz, 19)
	it.leftNz[6] = bit(lnz, 21)
	it.leftNz[7] = bit(lnz, 23)
}

// BytesToNz packs topNz and leftNz back into the macroblock's nz word.
func (it *Iterator) BytesToNz() {
	t, l := it.topNz, it.leftNz
	nz := uint32(t[0])<<12 | uint32(t[1])<<13 | uint32(t[2])<<14 | uint32(t[3])<<15
	nz |= uint32(t[4])<<18 | uint32(t[5])<<19
	nz |= uint32(t[6])<<22 | uint32(t[7])<<23
	nz |= uint32(t[8]) << 24
	nz |= uint32(l[0])<<3 | uint32(l[1])<<7 | uint32(l[2])<<11
	nz |= uint32(l[4])<<17 | uint32(l[6])<<21
	it.setNz(nz)
}

func (it *Iterator) setNz(nz uint32) {
	it.enc.nz[it.x] = nz
	it.leftNzWord = nz
}

// resetAfterSkip clears the context a skipped macroblock leaves behind.
func (it *Iterator) resetAfterSkip() {
	if it.mb.Type == MBTypeI16 {
		it.setNz(0)
		it.leftNz[8] = 0
	} else {
		it.setNz(it.enc.nz[it.x] & (1 << 24))
	}
}

// StartI4 loads the 4x4 edge samples of the macroblock and positions on
// the first sub-block.
func (it *Iterator) StartI4() {
	it.i4 = 0
	it.i4Top = kTopLeftI4[0]
	for i := 0; i < 17; i++ {
		it.i4Boundary[i] = it.yLeft[16-i]
	}
	if it.y > 0 {
		top := it.yTop()
		copy(it.i4Boundary[17:33], top[:16])
		if it.x < it.enc.mbW-1 {
			copy(it.i4Boundary[33:37], top[16:20])
		} else {
			for i := 33; i < 37; i++ {
				it.i4Boundary[i] = it.i4Boundary[32]
			}
		}
	} else {
		for i := 17; i < 37; i++ {
			it.i4Boundary[i] = 127
		}
	}
	it.NzToBytes()
}

// RotateI4 feeds the reconstructed sub-block of yuvOut into the edge
// samples of the next one. It returns false after the last sub-block.
func (it *Iterator) RotateI4(yuvOut []byte) bool {
	blk := yuvOut[dsp.Scan[it.i4]:]
	top := it.i4Top
	b := &it.i4Boundary
	for i := 0; i <= 3; i++ {
		b[top-4+i] = blk[i+3*dsp.BPS]
	}
	if it.i4&3 != 3 {
		for i := 0; i <= 2; i++ {
			b[top+i] = blk[3+(2-i)*dsp.BPS]
		}
	} else {
		// The right column reuses the macroblock's top-right samples.
		for i := 0; i <= 3; i++ {
			b[top+i] = b[top+i+4]
		}
	}
	it.i4++
	if it.i4 == 16 {
		return false
	}
	it.i4Top = kTopLeftI4[it.i4]
	return true
}

// SaveBoundary keeps the right column and bottom row of the
// reconstruction as context for the following macroblocks.
func (it *Iterator) SaveBoundary() {
	enc := it.enc
	ysrc := it.yuvOut[dsp.YOff:]
	uvsrc := it.yuvOut[dsp.UOff:]
	top := it.yTop()
	uvTop := it.uvTop()
	if it.x < enc.mbW-1 {
		for i := 0; i < 16; i++ {
			it.yLeft[1+i] = ysrc[15+i*dsp.BPS]
		}
		for i := 0; i < 8; i++ {
			it.uLeft[1+i] = uvsrc[7+i*dsp.BPS]
			it.vLeft[1+i] = uvsrc[15+i*dsp.BPS]
		}
		// The corner comes from the top row before it is overwritten.
		it.yLeft[0] = top[15]
		it.uLeft[0] = uvTop[7]
		it.vLeft[0] = uvTop[15]
	}
	if it.y < enc.mbH-1 {
		copy(top[:16], ysrc[15*dsp.BPS:15*dsp.BPS+16])
		copy(uvTop, uvsrc[7*dsp.BPS:7*dsp.BPS+16])
	}
}

// MakeLuma16Preds fills the 16x16 candidates of the current macroblock.
func (it *Iterator) MakeLuma16Preds() {
	var left, top []byte
	if it.x > 0 {
		left = it.yLeft[:]
	}
	if it.y > 0 {
		top = it.yTop()[:16]
	}
	dsp.PredLuma16(it.yuvP, left, top)
}

// MakeChroma8Preds fills the chroma candidates of the current macroblock.
func (it *Iterator) MakeChroma8Preds() {
	var leftU, leftV, top []byte
	if it.x > 0 {
		leftU, leftV = it.uLeft[:], it.vLeft[:]
	}
	if it.y > 0 {
		top = it.uvTop()
	}
	dsp.PredChroma8(it.yuvP, leftU, leftV, top)
}

// MakeIntra4Preds fills the 4x4 candidates of the current sub-block.
func (it *Iterator) MakeIntra4Preds() {
	dsp.PredLuma4(it.yuvP, it.i4Boundary[it.i4Top-5:it.i4Top+8])
}

// predIndex returns the index in the mode map of sub-block (i, j) of the
// current macroblock. i and j may be -1 to reach the neighbours.
func (it *Iterator) predIndex(i, j int) int {
	w := it.enc.predsW
	return (4*it.y+1+j)*w + 4*it.x + 1 + i
}

// modeCostsI4 returns the mode costs of the current sub-block given the
// modes chosen so far in this macroblock.
func (it *Iterator) modeCostsI4(modes *[16]uint8) *[NumBModes]uint16 {
	x, y := it.i4&3, it.i4>>2
	preds := it.enc.preds
	var left, top uint8
	if x == 0 {
		left = preds[it.predIndex(-1, y)]
	} else {
		left = modes[it.i4-1]
	}
	if y == 0 {
		top = preds[it.predIndex(x, -1)]
	} else {
		top = modes[it.i4-4]
	}
	return &FixedCostsI4[top][left]
}

// SetIntra16Mode commits a 16x16 mode.
func (it *Iterator) SetIntra16Mode(mode int) {
	preds := it.enc.preds
	for j := 0; j < 4; j++ {
		p := it.predIndex(0, j)
		for i := 0; i < 4; i++ {
			preds[p+i] = uint8(mode)
		}
	}
	it.mb.Type = MBTypeI16
	it.mb.Mode16 = uint8(mode)
}

// SetIntra4Mode commits the sixteen 4x4 modes.
func (it *Iterator) SetIntra4Mode(modes *[16]uint8) {
	preds := it.enc.preds
	for j := 0; j < 4; j++ {
		copy(preds[it.predIndex(0, j):it.predIndex(4, j)], modes[4*j:4*j+4])
	}
	it.mb.Type = MBTypeI4
	it.mb.Modes = *modes
}

// SetIntraUVMode commits the chroma mode.
func (it *Iterator) SetIntraUVMode(mode int) {
	it.mb.UVMode = uint8(mode)
}

// SetSkip marks the macroblock as having no non-zero level.
func (it *Iterator) SetSkip(skip bool) {
	it.mb.Skip = skip
}

// i16Mode returns the committed 16x16 mode.
func (it *Iterator) i16Mode() int {
	return int(it.enc.preds[it.predIndex(0, 0)])
}

// i4Mode returns the committed mode of the current sub-block.
func (it *Iterator) i4Mode() int {
	return int(it.enc.preds[it.predIndex(it.i4&3, it.i4>>2)])
}

func (it *Iterator) swapOut() {
	it.yuvOut, it.yuvOut2 = it.yuvOut2, it.yuvOut
}

func (it *Iterator) segment() *SegmentInfo {
	return &it.enc.dqm[it.mb.Segment]
}
