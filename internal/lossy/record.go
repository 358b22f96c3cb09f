package lossy

// recordResiduals adds the tokens of the decided levels to the row's
// statistics and updates the non-zero context the way the bitstream
// writer will.
func (it *Iterator) recordResiduals(rd *ModeScore) {
	proba := it.enc.proba
	stats := it.stats
	it.NzToBytes()

	var res residual
	if it.mb.Type == MBTypeI16 {
		res = proba.residual(0, TypeI16DC)
		res.stats = &stats.Coeffs[TypeI16DC]
		res.setCoeffs(rd.YDCLevels[:])
		nz := b2i(res.record(it.topNz[8] + it.leftNz[8]))
		it.topNz[8], it.leftNz[8] = nz, nz
		res = proba.residual(1, TypeI16AC)
		res.stats = &stats.Coeffs[TypeI16AC]
	} else {
		res = proba.residual(0, TypeI4)
		res.stats = &stats.Coeffs[TypeI4]
	}

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			ctx := it.topNz[x] + it.leftNz[y]
			res.setCoeffs(rd.YACLevels[x+y*4][:])
			nz := b2i(res.record(ctx))
			it.topNz[x], it.leftNz[y] = nz, nz
		}
	}

	res = proba.residual(0, TypeChroma)
	res.stats = &stats.Coeffs[TypeChroma]
	for ch := 0; ch <= 2; ch += 2 {
		for y := 0; y < 2; y++ {
			for x := 0; x < 2; x++ {
				ctx := it.topNz[4+ch+x] + it.leftNz[4+ch+y]
				res.setCoeffs(rd.UVLevels[ch*2+x+y*2][:])
				nz := b2i(res.record(ctx))
				it.topNz[4+ch+x], it.leftNz[4+ch+y] = nz, nz
			}
		}
	}
	it.BytesToNz()
}
