package lossy

import "github.com/deepteams/vp8rdo/internal/dsp"

// Trellis quantization of chroma is supported but off: it tends to remove
// too much chroma detail for the rate it saves.
const doTrellisUV = false

// ReconstructIntra16 predicts the luma of the current macroblock with mode,
// quantizes the residual into rd's levels and writes the reconstruction to
// yuvOut (a work buffer positioned at the luma origin). It returns the
// non-zero mask: bit n for AC block n, bit 24 for the Y2 block.
func (it *Iterator) ReconstructIntra16(rd *ModeScore, yuvOut []byte, mode int) uint32 {
	ref := it.yuvP[dsp.I16ModeOffsets[mode]:]
	src := it.yuvIn[dsp.YOff:]
	dqm := it.segment()
	var tmp [16 * 16]int16
	var dcTmp [16]int16
	var nz uint32

	for n := 0; n < 16; n++ {
		dsp.FTransform(src[dsp.Scan[n]:], ref[dsp.Scan[n]:], tmp[n*16:n*16+16])
	}
	dsp.FTransformWHT(tmp[:], dcTmp[:])
	if quantizeBlockWHT(dcTmp[:], rd.YDCLevels[:], &dqm.Y2) {
		nz |= 1 << 24
	}

	if it.doTrellis {
		proba := it.enc.proba
		it.NzToBytes()
		for y, n := 0, 0; y < 4; y++ {
			for x := 0; x < 4; x, n = x+1, n+1 {
				ctx := it.topNz[x] + it.leftNz[y]
				nonZero, _ := proba.trellisQuantize(tmp[n*16:n*16+16], rd.YACLevels[n][:], ctx, TypeI16AC,
					&dqm.Y1, dqm.LambdaTrellisI16)
				b := b2i(nonZero)
				it.topNz[x], it.leftNz[y] = b, b
				nz |= uint32(b) << n
			}
		}
	} else {
		for n := 0; n < 16; n++ {
			if quantizeBlock(tmp[n*16:n*16+16], rd.YACLevels[n][:], 1, &dqm.Y1) {
				nz |= 1 << n
			}
		}
	}

	dsp.ITransformWHT(dcTmp[:], tmp[:])
	for n := 0; n < 16; n += 2 {
		dsp.ITransform(ref[dsp.Scan[n]:], tmp[n*16:], yuvOut[dsp.Scan[n]:], true)
	}
	return nz
}

// ReconstructIntra4 predicts the current 4x4 sub-block with mode, quantizes
// the residual of src into levels and writes the reconstruction to yuvOut.
// It reports whether any level is non-zero.
func (it *Iterator) ReconstructIntra4(levels []int16, src, yuvOut []byte, mode int) bool {
	ref := it.yuvP[dsp.I4ModeOffsets[mode]:]
	dqm := it.segment()
	var tmp [16]int16
	var nz bool

	dsp.FTransform(src, ref, tmp[:])
	if it.doTrellis {
		x, y := it.i4&3, it.i4>>2
		ctx := it.topNz[x] + it.leftNz[y]
		nz, _ = it.enc.proba.trellisQuantize(tmp[:], levels, ctx, TypeI4, &dqm.Y1, dqm.LambdaTrellisI4)
	} else {
		nz = quantizeBlock(tmp[:], levels, 0, &dqm.Y1)
	}
	dsp.ITransform(ref, tmp[:], yuvOut, false)
	return nz
}

// ReconstructUV predicts both chroma planes with mode, quantizes the
// residual into rd's levels and writes the reconstruction to yuvOut
// (positioned at the U origin). It returns the non-zero mask shifted to
// bits 16..23.
func (it *Iterator) ReconstructUV(rd *ModeScore, yuvOut []byte, mode int) uint32 {
	ref := it.yuvP[dsp.UVModeOffsets[mode]:]
	src := it.yuvIn[dsp.UOff:]
	dqm := it.segment()
	var tmp [8 * 16]int16
	var nz uint32

	for n := 0; n < 8; n++ {
		dsp.FTransform(src[dsp.ScanUV[n]:], ref[dsp.ScanUV[n]:], tmp[n*16:n*16+16])
	}
	if doTrellisUV && it.doTrellis {
		proba := it.enc.proba
		n := 0
		for ch := 0; ch <= 2; ch += 2 {
			for y := 0; y < 2; y++ {
				for x := 0; x < 2; x, n = x+1, n+1 {
					ctx := it.topNz[4+ch+x] + it.leftNz[4+ch+y]
					nonZero, _ := proba.trellisQuantize(tmp[n*16:n*16+16], rd.UVLevels[n][:], ctx, TypeChroma,
						&dqm.UV, dqm.LambdaTrellisUV)
					b := b2i(nonZero)
					it.topNz[4+ch+x], it.leftNz[4+ch+y] = b, b
					nz |= uint32(b) << n
				}
			}
		}
	} else {
		for n := 0; n < 8; n++ {
			if quantizeBlock(tmp[n*16:n*16+16], rd.UVLevels[n][:], 0, &dqm.UV) {
				nz |= 1 << n
			}
		}
	}

	for n := 0; n < 8; n += 2 {
		dsp.ITransform(ref[dsp.ScanUV[n]:], tmp[n*16:], yuvOut[dsp.ScanUV[n]:], true)
	}
	return nz << 16
}
