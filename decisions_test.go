package vp8rdo

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecisionsRoundTrip(t *testing.T) {
	res, err := Analyze(texturedNRGBA(72, 40, 7), &Options{Quality: 70, Method: 5, Segments: 3, FilterStrength: 40, FilterType: 1})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, res.WriteDecisions(&buf))
	require.Equal(t, decisionsMagic, buf.String()[:len(decisionsMagic)])

	got, err := ReadDecisions(&buf)
	require.NoError(t, err)
	require.Equal(t, res.Width, got.Width)
	require.Equal(t, res.Height, got.Height)
	require.Equal(t, res.MBWidth, got.MBWidth)
	require.Equal(t, res.MBHeight, got.MBHeight)
	require.Equal(t, res.Macroblocks, got.Macroblocks)
	require.Equal(t, res.Segments, got.Segments)
	require.Equal(t, res.Filter, got.Filter)
	require.Nil(t, got.Reconstruction)

	// Counts and bit totals are rebuilt from the macroblocks.
	require.Equal(t, res.Stats.I4, got.Stats.I4)
	require.Equal(t, res.Stats.I16, got.Stats.I16)
	require.Equal(t, res.Stats.Skipped, got.Stats.Skipped)
	require.Equal(t, res.Stats.I16Modes, got.Stats.I16Modes)
	require.Equal(t, res.Stats.I4Modes, got.Stats.I4Modes)
	require.Equal(t, res.Stats.UVModes, got.Stats.UVModes)
	require.InDelta(t, res.Stats.HeaderBits, got.Stats.HeaderBits, 1e-9)
	require.InDelta(t, res.Stats.ResidualBits, got.Stats.ResidualBits, 1e-9)
	require.Equal(t, res.Stats.SkipProba, got.Stats.SkipProba)
	require.Equal(t, res.Stats.SegmentProbas, got.Stats.SegmentProbas)
	require.Equal(t, res.Stats.UpdateMap, got.Stats.UpdateMap)
	require.Equal(t, res.Stats.Passes, got.Stats.Passes)
}

func TestDecisionsCompress(t *testing.T) {
	res, err := Analyze(flatYCbCr(256, 256, 128), nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, res.WriteDecisions(&buf))
	raw := len(res.Macroblocks) * 900
	require.Less(t, buf.Len(), raw/10)
}

func TestReadDecisionsRejects(t *testing.T) {
	res, err := Analyze(flatYCbCr(32, 32, 60), nil)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, res.WriteDecisions(&buf))
	good := buf.Bytes()

	t.Run("magic", func(t *testing.T) {
		bad := append([]byte("XP8RDO"), good[len(decisionsMagic):]...)
		_, err := ReadDecisions(bytes.NewReader(bad))
		require.ErrorIs(t, err, ErrBadDecisions)
	})
	t.Run("version", func(t *testing.T) {
		bad := append([]byte(nil), good...)
		bad[len(decisionsMagic)] = 9
		_, err := ReadDecisions(bytes.NewReader(bad))
		require.ErrorIs(t, err, ErrBadDecisions)
	})
	t.Run("truncated", func(t *testing.T) {
		_, err := ReadDecisions(bytes.NewReader(good[:len(good)/2]))
		require.Error(t, err)
	})
	t.Run("empty", func(t *testing.T) {
		_, err := ReadDecisions(bytes.NewReader(nil))
		require.Error(t, err)
	})
	t.Run("bad segment", func(t *testing.T) {
		r := *res
		r.Macroblocks = append([]Macroblock(nil), res.Macroblocks...)
		r.Macroblocks[1].Segment = uint8(len(r.Segments))
		var out bytes.Buffer
		require.NoError(t, r.WriteDecisions(&out))
		_, err := ReadDecisions(&out)
		require.ErrorIs(t, err, ErrBadDecisions)
	})
	t.Run("bad mode", func(t *testing.T) {
		r := *res
		r.Macroblocks = append([]Macroblock(nil), res.Macroblocks...)
		r.Macroblocks[0].Modes[3] = 10
		var out bytes.Buffer
		require.NoError(t, r.WriteDecisions(&out))
		_, err := ReadDecisions(&out)
		require.ErrorIs(t, err, ErrBadDecisions)
	})
}

func FuzzReadDecisions(f *testing.F) {
	res, err := Analyze(texturedNRGBA(24, 24, 9), nil)
	if err != nil {
		f.Fatal(err)
	}
	var buf bytes.Buffer
	if err := res.WriteDecisions(&buf); err != nil {
		f.Fatal(err)
	}
	f.Add(buf.Bytes())
	f.Add([]byte(decisionsMagic))
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		r, err := ReadDecisions(bytes.NewReader(data))
		if err != nil {
			return
		}
		if len(r.Macroblocks) != r.MBWidth*r.MBHeight {
			t.Fatalf("got %d macroblocks for %dx%d", len(r.Macroblocks), r.MBWidth, r.MBHeight)
		}
		for _, mb := range r.Macroblocks {
			if int(mb.Segment) >= len(r.Segments) {
				t.Fatalf("segment %d out of range", mb.Segment)
			}
		}
	})
}
