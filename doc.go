// Package vp8rdo runs the quantization and rate-distortion mode decision
// of a VP8 key-frame encoder without writing a bitstream.
//
// For every 16x16 macroblock it picks the intra prediction (one 16x16 luma
// mode or sixteen 4x4 modes, plus a chroma mode), quantizes the residuals
// with the matrices of the macroblock's segment and decides whether the
// macroblock can be skipped. The result carries the quantized levels, the
// per-segment quantizers, the loop-filter parameters, estimated bit costs
// and the reconstruction a decoder would produce.
//
// Basic usage:
//
//	res, err := vp8rdo.Analyze(img, &vp8rdo.Options{Quality: 80, Method: 4})
//	if err != nil {
//		return err
//	}
//	fmt.Println(res.Stats.PSNR[3], res.Stats.TotalBits())
//
// The decisions can be handed to an external bitstream writer with
// (*Result).WriteDecisions and read back with ReadDecisions.
package vp8rdo
