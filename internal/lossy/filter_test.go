package lossy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterStrengthFromDeltaClamps(t *testing.T) {
	for sharpness := 0; sharpness < 8; sharpness++ {
		require.Equal(t, int(kLevelsFromDelta[sharpness][0]), FilterStrengthFromDelta(sharpness, -3))
		require.Equal(t, int(kLevelsFromDelta[sharpness][maxDeltaSize-1]), FilterStrengthFromDelta(sharpness, 1000))
		prev := 0
		for d := 0; d < maxDeltaSize; d++ {
			level := FilterStrengthFromDelta(sharpness, d)
			require.GreaterOrEqual(t, level, prev)
			require.LessOrEqual(t, level, 63)
			prev = level
		}
	}
}

func TestSetupFilterStrengthOff(t *testing.T) {
	p := flatPicture(32, 32, 128)
	cfg := DefaultConfig(50)
	cfg.FilterStrength = 0
	enc := p.encoder(t, cfg)
	enc.resetMBInfo()
	enc.SetSegmentParams(50)
	for _, s := range enc.Segments() {
		require.Zero(t, s.FStrength)
	}
	require.Zero(t, enc.FilterHeader().Level)
}

func TestSetupFilterStrengthFollowsQuant(t *testing.T) {
	p := flatPicture(32, 32, 128)
	strength := func(q float64) int {
		cfg := DefaultConfig(float32(q))
		cfg.Segments = 1
		enc := p.encoder(t, cfg)
		enc.resetMBInfo()
		enc.SetSegmentParams(q)
		return enc.Segments()[0].FStrength
	}
	require.GreaterOrEqual(t, strength(10), strength(90))
}

func TestAdjustFilterStrengthRaisesOnEdges(t *testing.T) {
	p := flatPicture(32, 32, 128)
	cfg := DefaultConfig(80)
	cfg.Segments = 1
	enc := p.encoder(t, cfg)
	enc.resetMBInfo()
	enc.SetSegmentParams(80)
	before := enc.dqm[0].FStrength

	enc.dqm[0].MaxEdge = 1000
	enc.AdjustFilterStrength()
	require.GreaterOrEqual(t, enc.dqm[0].FStrength, before)
	want := FilterStrengthFromDelta(enc.filterHdr.Sharpness, (1000*enc.dqm[0].Y2.Q[1])>>3)
	require.Equal(t, max(before, want), enc.dqm[0].FStrength)
	require.Equal(t, enc.dqm[0].FStrength, enc.FilterHeader().Level)
}

func TestFilterTypeSelectsSimple(t *testing.T) {
	p := flatPicture(32, 32, 128)
	cfg := DefaultConfig(80)
	cfg.FilterType = 0
	enc := encodePicture(t, p, cfg)
	require.True(t, enc.FilterHeader().Simple)
}
