package lossy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQualityToCompressionEndpoints(t *testing.T) {
	require.InDelta(t, 0.0, qualityToCompression(0), 1e-9)
	require.InDelta(t, 1.0, qualityToCompression(1), 1e-9)
	prev := -1.0
	for q := 0; q <= 100; q++ {
		c := qualityToCompression(float64(q) / 100)
		require.GreaterOrEqual(t, c, prev, "q=%d", q)
		prev = c
	}
}

func TestSetSegmentParamsQuantMonotonic(t *testing.T) {
	p := flatPicture(32, 32, 128)
	prev := 128
	for q := 0; q <= 100; q += 5 {
		cfg := DefaultConfig(float32(q))
		cfg.Segments = 1
		enc := p.encoder(t, cfg)
		enc.resetMBInfo()
		enc.SetSegmentParams(float64(q))
		quant := enc.Segments()[0].Quant
		require.LessOrEqual(t, quant, prev, "q=%d", q)
		prev = quant
	}
	require.Zero(t, prev)
}

func TestSetSegmentParamsEndpoints(t *testing.T) {
	p := flatPicture(32, 32, 128)
	for _, tc := range []struct {
		quality float64
		quant   int
	}{{0, 127}, {100, 0}} {
		cfg := DefaultConfig(float32(tc.quality))
		cfg.Segments = 1
		enc := p.encoder(t, cfg)
		enc.resetMBInfo()
		enc.SetSegmentParams(tc.quality)
		require.Equal(t, tc.quant, enc.Segments()[0].Quant)
	}
}

func TestSetupMatricesLambdas(t *testing.T) {
	p := flatPicture(32, 32, 128)
	cfg := DefaultConfig(50)
	cfg.Segments = 1
	enc := p.encoder(t, cfg)
	enc.resetMBInfo()
	enc.SetSegmentParams(50)
	m := enc.Segments()[0]

	avg := func(mtx Matrix) int { return (mtx.Q[0] + 15*mtx.Q[1] + 8) >> 4 }
	q4, q16, quv := avg(m.Y1), avg(m.Y2), avg(m.UV)
	require.Equal(t, (3*q4*q4)>>7, m.LambdaI4)
	require.Equal(t, 3*q16*q16, m.LambdaI16)
	require.Equal(t, (3*quv*quv)>>6, m.LambdaUV)
	require.Equal(t, (q4*q4)>>7, m.LambdaMode)
	require.Equal(t, (7*q4*q4)>>3, m.LambdaTrellisI4)
	require.Equal(t, (q16*q16)>>2, m.LambdaTrellisI16)
	require.Equal(t, (quv*quv)<<1, m.LambdaTrellisUV)
	require.Equal(t, (cfg.SNSStrength*q4)>>5, m.TLambda)
	require.Equal(t, 10*m.Y1.Q[0], m.MinDisto)
	require.Equal(t, 2*int(kDcTable[m.Quant]), m.Y2.Q[0])
	require.Equal(t, int(kAcTable2[m.Quant]), m.Y2.Q[1])
}

func TestTLambdaOffBelowMethod4(t *testing.T) {
	p := flatPicture(32, 32, 128)
	cfg := DefaultConfig(50)
	cfg.Segments = 1
	cfg.Method = 3
	enc := p.encoder(t, cfg)
	enc.resetMBInfo()
	enc.SetSegmentParams(50)
	require.Zero(t, enc.Segments()[0].TLambda)
}

func TestDenserSegmentGetsCoarserQuant(t *testing.T) {
	p := flatPicture(32, 32, 128)
	cfg := DefaultConfig(60)
	cfg.Segments = 2
	cfg.SNSStrength = 100
	enc := p.encoder(t, cfg)
	enc.dqm[0].Alpha = 100
	enc.dqm[1].Alpha = -100
	enc.SetSegmentParams(60)
	require.Equal(t, 2, enc.SegmentHeader().NumSegments)
	require.Less(t, enc.dqm[0].Quant, enc.dqm[1].Quant)
}

func TestSimplifySegments(t *testing.T) {
	p := flatPicture(64, 16, 128)
	cfg := DefaultConfig(75)
	enc := p.encoder(t, cfg)
	enc.segmentHdr.NumSegments = 4
	quants := [4]int{10, 20, 10, 20}
	for i, q := range quants {
		enc.dqm[i].Quant = q
		enc.dqm[i].FStrength = 5
	}
	for i := range enc.mbInfo {
		enc.mbInfo[i].Segment = uint8(i)
	}
	enc.SimplifySegments()

	require.Equal(t, 2, enc.segmentHdr.NumSegments)
	require.Equal(t, 10, enc.dqm[0].Quant)
	require.Equal(t, 20, enc.dqm[1].Quant)
	got := make([]uint8, len(enc.mbInfo))
	for i := range enc.mbInfo {
		got[i] = enc.mbInfo[i].Segment
	}
	require.Equal(t, []uint8{0, 1, 0, 1}, got)
	// Trailing infos replicate the last kept one.
	require.Equal(t, 20, enc.dqm[2].Quant)
	require.Equal(t, 20, enc.dqm[3].Quant)
}

func TestSimplifySegmentsKeepsDistinct(t *testing.T) {
	p := flatPicture(64, 16, 128)
	enc := p.encoder(t, DefaultConfig(75))
	enc.segmentHdr.NumSegments = 4
	for i := range enc.dqm {
		enc.dqm[i].Quant = 10 + i
	}
	enc.SimplifySegments()
	require.Equal(t, 4, enc.segmentHdr.NumSegments)
}

func TestSetSegmentProbas(t *testing.T) {
	p := flatPicture(64, 16, 128)
	enc := p.encoder(t, DefaultConfig(75))
	enc.segmentHdr.NumSegments = 4
	for i := range enc.mbInfo {
		enc.mbInfo[i].Segment = 0
	}
	enc.setSegmentProbas()
	hdr := enc.SegmentHeader()
	// Everything in segment 0: probabilities saturate and the map is not
	// worth coding.
	require.Equal(t, [3]uint8{255, 255, 255}, hdr.Probas)
	require.False(t, hdr.UpdateMap)
	require.Zero(t, hdr.Size)

	for i := range enc.mbInfo {
		enc.mbInfo[i].Segment = uint8(i)
	}
	enc.setSegmentProbas()
	hdr = enc.SegmentHeader()
	require.True(t, hdr.UpdateMap)
	require.Equal(t, [3]uint8{128, 128, 128}, hdr.Probas)
	require.Positive(t, hdr.Size)
}
