package lossy

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRDOptLevel(t *testing.T) {
	want := []RDLevel{RDNone, RDNone, RDNone, RDBasic, RDBasic, RDTrellis, RDTrellisAll}
	for method, level := range want {
		require.Equal(t, level, rdOptLevel(method), "method %d", method)
	}
}

func TestMaxI4HeaderBits(t *testing.T) {
	require.Equal(t, 256*16*16, maxI4HeaderBits(0))
	require.Equal(t, 256*16*16/4, maxI4HeaderBits(50))
	require.Zero(t, maxI4HeaderBits(100))
}

func TestThreads(t *testing.T) {
	cfg := DefaultConfig(75)
	require.Equal(t, runtime.GOMAXPROCS(0), cfg.threads())
	cfg.Threads = 3
	require.Equal(t, 3, cfg.threads())
}

func TestRDLevelString(t *testing.T) {
	require.Equal(t, "none", RDNone.String())
	require.Equal(t, "trellis-all", RDTrellisAll.String())
	require.Equal(t, "unknown", RDLevel(9).String())
	require.Equal(t, "VE", ModeName(VEPred))
	require.Equal(t, "HU", BModeName(BHUPred))
	require.Equal(t, "?", BModeName(NumBModes))
}
