package lossy

import "github.com/deepteams/vp8rdo/internal/dsp"

// storeMaxDelta tracks, for macroblocks whose only non-zero levels are
// DCs, the largest step between neighbouring sub-block DCs. The filter
// strength is later raised to smooth such steps out.
func (it *Iterator) storeMaxDelta(dcs *[16]int16) {
	v0 := absLevel(dcs[1])
	v1 := absLevel(dcs[4])
	v2 := absLevel(dcs[5])
	maxV := min(v0, v1)
	maxV = max(v2, maxV)
	seg := it.mb.Segment
	if maxV > it.maxEdge[seg] {
		it.maxEdge[seg] = maxV
	}
}

// PickBestIntra16 evaluates the four 16x16 modes and commits the best one.
// rd receives its account, rescored with the mode lambda, and its levels.
func (it *Iterator) PickBestIntra16(rd *ModeScore) {
	const numBlocks = 16
	dqm := it.segment()
	lambda := dqm.LambdaI16
	tlambda := dqm.TLambda
	src := it.yuvIn[dsp.YOff:]
	var rd16 ModeScore

	rd.ModeI16 = -1
	for mode := 0; mode < NumPredModes; mode++ {
		tmpDst := it.yuvOut2[dsp.YOff:]
		nz := it.ReconstructIntra16(&rd16, tmpDst, mode)

		rd16.D = int64(dsp.SSE16x16(src, tmpDst))
		rd16.SD = 0
		if tlambda != 0 {
			rd16.SD = mult8b(tlambda, dsp.TDisto16x16(src, tmpDst, kWeightY))
		}
		rd16.H = int64(FixedCostsI16[mode])
		rd16.R = int64(it.CostLuma16(&rd16))
		if mode > 0 && isFlat(rd16.YACLevels[:], flatnessLimitI16) {
			// Keep flat areas from being mispredicted by a complex mode.
			rd16.R += flatnessPenalty * numBlocks
		}

		rd16.SetRDScore(lambda)
		if mode == 0 || rd16.Score < rd.Score {
			rd.CopyScore(&rd16)
			rd.ModeI16 = mode
			rd.NZ = nz
			rd.YACLevels = rd16.YACLevels
			rd.YDCLevels = rd16.YDCLevels
			it.swapOut()
		}
	}
	rd.SetRDScore(dqm.LambdaMode)
	it.SetIntra16Mode(rd.ModeI16)

	if rd.NZ&0xffff == 0 && rd.D > int64(dqm.MinDisto) {
		it.storeMaxDelta(&rd.YDCLevels)
	}
}

// PickBestIntra4 evaluates the ten modes of every 4x4 sub-block and commits
// them if their total beats rd, which must hold the 16x16 decision. It
// gives up as soon as the running total can no longer win or the mode
// header grows past the encoder's budget.
func (it *Iterator) PickBestIntra4(rd *ModeScore) bool {
	enc := it.enc
	dqm := it.segment()
	lambda := dqm.LambdaI4
	tlambda := dqm.TLambda
	src0 := it.yuvIn[dsp.YOff:]
	bestBlocks := it.yuvOut2[dsp.YOff:]
	totalHeaderBits := 0
	var rdBest ModeScore

	if enc.maxI4HeaderBits == 0 {
		return false
	}

	rdBest.InitScore()
	rdBest.H = int64(dsp.BitCost(0, 145)) // cost of signalling a 4x4 macroblock
	rdBest.SetRDScore(dqm.LambdaMode)
	it.StartI4()
	for {
		const numBlocks = 1
		var rdI4, rdTmp ModeScore
		var tmpLevels [1][16]int16
		bestMode := -1
		src := src0[dsp.Scan[it.i4]:]
		modeCosts := it.modeCostsI4(&rd.ModesI4)
		bestBlock := bestBlocks[dsp.Scan[it.i4]:]
		tmpDst := it.yuvP[dsp.I4TMP:]

		rdI4.InitScore()
		it.MakeIntra4Preds()
		for mode := 0; mode < NumBModes; mode++ {
			rdTmp.NZ = 0
			if it.ReconstructIntra4(tmpLevels[0][:], src, tmpDst, mode) {
				rdTmp.NZ = 1 << it.i4
			}

			rdTmp.D = int64(dsp.SSE4x4(src, tmpDst))
			rdTmp.SD = 0
			if tlambda != 0 {
				rdTmp.SD = mult8b(tlambda, dsp.TDisto4x4(src, tmpDst, kWeightY))
			}
			rdTmp.H = int64(modeCosts[mode])
			rdTmp.R = int64(it.CostLuma4(tmpLevels[0][:]))
			if mode > 0 && isFlat(tmpLevels[:], flatnessLimitI4) {
				rdTmp.R += flatnessPenalty * numBlocks
			}

			rdTmp.SetRDScore(lambda)
			if bestMode < 0 || rdTmp.Score < rdI4.Score {
				rdI4.CopyScore(&rdTmp)
				bestMode = mode
				tmpDst, bestBlock = bestBlock, tmpDst
				rdBest.YACLevels[it.i4] = tmpLevels[0]
			}
		}
		rdI4.SetRDScore(dqm.LambdaMode)
		rdBest.AddScore(&rdI4)
		if rdBest.Score >= rd.Score {
			return false
		}
		totalHeaderBits += int(rdI4.H)
		if totalHeaderBits > enc.maxI4HeaderBits {
			return false
		}
		// The winner may sit in the scratch slot.
		if dst := bestBlocks[dsp.Scan[it.i4]:]; &bestBlock[0] != &dst[0] {
			dsp.Copy4x4(bestBlock, dst)
		}
		rd.ModesI4[it.i4] = uint8(bestMode)
		b := b2i(rdI4.NZ != 0)
		it.topNz[it.i4&3], it.leftNz[it.i4>>2] = b, b
		if !it.RotateI4(bestBlocks) {
			break
		}
	}

	rd.CopyScore(&rdBest)
	it.SetIntra4Mode(&rd.ModesI4)
	it.swapOut()
	rd.YACLevels = rdBest.YACLevels
	return true
}

// PickBestUV evaluates the four chroma modes, commits the best one and adds
// its account to rd.
func (it *Iterator) PickBestUV(rd *ModeScore) {
	const numBlocks = 8
	dqm := it.segment()
	lambda := dqm.LambdaUV
	src := it.yuvIn[dsp.UOff:]
	tmpDst := it.yuvOut2[dsp.UOff:]
	dst0 := it.yuvOut[dsp.UOff:]
	var rdBest, rdUV ModeScore

	rd.ModeUV = -1
	rdBest.InitScore()
	for mode := 0; mode < NumPredModes; mode++ {
		rdUV.NZ = it.ReconstructUV(&rdUV, tmpDst, mode)

		rdUV.D = int64(dsp.SSE16x8(src, tmpDst))
		rdUV.SD = 0 // spectral distortion flattens chroma
		rdUV.H = int64(FixedCostsUV[mode])
		rdUV.R = int64(it.CostUV(&rdUV))
		if mode > 0 && isFlat(rdUV.UVLevels[:], flatnessLimitUV) {
			rdUV.R += flatnessPenalty * numBlocks
		}

		rdUV.SetRDScore(lambda)
		if mode == 0 || rdUV.Score < rdBest.Score {
			rdBest.CopyScore(&rdUV)
			rd.ModeUV = mode
			rd.UVLevels = rdUV.UVLevels
			copy(dst0[:8*dsp.BPS], tmpDst[:8*dsp.BPS])
		}
	}
	it.SetIntraUVMode(rd.ModeUV)
	rd.AddScore(&rdBest)
}

// SimpleQuantize reconstructs the macroblock with the committed modes,
// filling rd's levels and non-zero mask.
func (it *Iterator) SimpleQuantize(rd *ModeScore) {
	var nz uint32
	if it.mb.Type == MBTypeI16 {
		nz = it.ReconstructIntra16(rd, it.yuvOut[dsp.YOff:], it.i16Mode())
	} else {
		it.StartI4()
		for {
			mode := it.i4Mode()
			src := it.yuvIn[dsp.YOff+dsp.Scan[it.i4]:]
			dst := it.yuvOut[dsp.YOff+dsp.Scan[it.i4]:]
			it.MakeIntra4Preds()
			nonZero := it.ReconstructIntra4(rd.YACLevels[it.i4][:], src, dst, mode)
			b := b2i(nonZero)
			it.topNz[it.i4&3], it.leftNz[it.i4>>2] = b, b
			nz |= uint32(b) << it.i4
			if !it.RotateI4(it.yuvOut[dsp.YOff:]) {
				break
			}
		}
	}
	nz |= it.ReconstructUV(rd, it.yuvOut[dsp.UOff:], int(it.mb.UVMode))
	rd.NZ = nz
}

// DistoRefine chooses modes on distortion alone. With tryBoth it picks
// between 16x16 and 4x4; otherwise it only refines the sub-modes of the
// committed macroblock type.
func (it *Iterator) DistoRefine(tryBoth bool) {
	isI16 := it.mb.Type == MBTypeI16
	bestScore := MaxCost

	if tryBoth || isI16 {
		bestMode := -1
		src := it.yuvIn[dsp.YOff:]
		for mode := 0; mode < NumPredModes; mode++ {
			ref := it.yuvP[dsp.I16ModeOffsets[mode]:]
			score := int64(dsp.SSE16x16(src, ref))
			if score < bestScore {
				bestMode = mode
				bestScore = score
			}
		}
		it.SetIntra16Mode(bestMode)
	}
	if tryBoth || !isI16 {
		var modesI4 [16]uint8
		// Rate is not evaluated; a constant stands in for the extra mode
		// bits of a 4x4 macroblock.
		scoreI4 := int64(i4Penalty)

		it.StartI4()
		for {
			bestSubMode := -1
			bestSubScore := MaxCost
			src := it.yuvIn[dsp.YOff+dsp.Scan[it.i4]:]

			it.MakeIntra4Preds()
			for mode := 0; mode < NumBModes; mode++ {
				ref := it.yuvP[dsp.I4ModeOffsets[mode]:]
				score := int64(dsp.SSE4x4(src, ref))
				if score < bestSubScore {
					bestSubMode = mode
					bestSubScore = score
				}
			}
			modesI4[it.i4] = uint8(bestSubMode)
			scoreI4 += bestSubScore
			if scoreI4 >= bestScore {
				break
			}
			if !it.RotateI4(it.yuvIn[dsp.YOff:]) {
				break
			}
		}
		if scoreI4 < bestScore {
			it.SetIntra4Mode(&modesI4)
		}
	}
}
