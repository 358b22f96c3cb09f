package lossy

// Decimate chooses the modes of the current macroblock and quantizes it at
// the given RD level, leaving the reconstruction in the iterator's output
// buffer and the decision in rd. It reports whether every level is zero,
// in which case the macroblock can be coded as skipped.
func (it *Iterator) Decimate(rd *ModeScore, rdOpt RDLevel) bool {
	method := it.enc.cfg.Method

	rd.InitScore()

	// 16x16 and chroma predictions do not depend on the decision; 4x4 ones
	// are made as sub-blocks get reconstructed.
	it.MakeLuma16Preds()
	it.MakeChroma8Preds()

	if rdOpt > RDNone {
		it.doTrellis = rdOpt >= RDTrellisAll
		it.PickBestIntra16(rd)
		if method >= 2 {
			it.PickBestIntra4(rd)
		}
		it.PickBestUV(rd)
		if rdOpt == RDTrellis {
			// Finish off with the trellis on the chosen modes only.
			it.doTrellis = true
			it.SimpleQuantize(rd)
		}
	} else {
		// Method 2 picks 16x16 or 4x4 on distortion; lower methods keep the
		// type the analysis chose.
		it.doTrellis = false
		it.DistoRefine(method >= 2)
		it.SimpleQuantize(rd)
	}

	it.fillModes(rd)
	skip := rd.NZ == 0
	it.SetSkip(skip)
	return skip
}

// fillModes copies the committed modes into rd.
func (it *Iterator) fillModes(rd *ModeScore) {
	mb := it.mb
	rd.ModeUV = int(mb.UVMode)
	if mb.Type == MBTypeI16 {
		rd.ModeI16 = int(mb.Mode16)
		return
	}
	rd.ModeI16 = -1
	rd.ModesI4 = mb.Modes
}
