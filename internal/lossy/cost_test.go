package lossy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFixedCostsI4(t *testing.T) {
	tests := []struct {
		top, left int
		want      [NumBModes]uint16
	}{
		{0, 0, [NumBModes]uint16{40, 1151, 1723, 1874, 2103, 2019, 1628, 1777, 2226, 2137}},
		{0, 1, [NumBModes]uint16{192, 469, 1296, 1308, 1849, 1794, 1781, 1703, 1713, 1522}},
		{9, 9, [NumBModes]uint16{305, 1167, 1358, 899, 1587, 1587, 987, 1988, 1332, 501}},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, FixedCostsI4[tt.top][tt.left], "context [%d][%d]", tt.top, tt.left)
	}
}
