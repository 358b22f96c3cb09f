package lossy

import "runtime"

// Config holds the parameters of the mode-decision engine.
type Config struct {
	Quality         float32 // 0-100, maps to the base quantizer.
	Method          int     // 0-6, effort; selects the RD level.
	SNSStrength     int     // 0-100, spatial noise shaping.
	FilterStrength  int     // 0-100, deblocking filter.
	FilterSharpness int     // 0-7, filter sharpness.
	FilterType      int     // 0=simple, 1=normal loop filter.
	Segments        int     // 1-4, number of segments.
	Pass            int     // 1-10, statistics passes before the final one.
	PartitionLimit  int     // 0-100, limits the header bits spent on 4x4 modes.
	EmulateJPEGSize bool    // follow the size curve of a JPEG encoder.
	SmoothSegments  bool    // majority-filter the segment map.
	Threads         int     // concurrent rows; 0 means GOMAXPROCS.
}

// DefaultConfig returns the defaults for the given quality (method 4).
func DefaultConfig(quality float32) Config {
	if quality < 0 {
		quality = 0
	}
	if quality > 100 {
		quality = 100
	}
	return Config{
		Quality:         quality,
		Method:          4,
		SNSStrength:     50,
		FilterStrength:  60,
		FilterSharpness: 0,
		FilterType:      1,
		Segments:        4,
		Pass:            1,
	}
}

// rdOptLevel maps the method to the amount of RD optimization of the final
// pass.
func rdOptLevel(method int) RDLevel {
	switch {
	case method >= 6:
		return RDTrellisAll
	case method >= 5:
		return RDTrellis
	case method >= 3:
		return RDBasic
	}
	return RDNone
}

// maxI4HeaderBits bounds the header bits a macroblock may spend on 4x4
// modes, in 1/256 bit.
func maxI4HeaderBits(partitionLimit int) int {
	limit := 100 - partitionLimit
	return 256 * 16 * 16 * limit * limit / (100 * 100)
}

func (c *Config) threads() int {
	if c.Threads > 0 {
		return c.Threads
	}
	return runtime.GOMAXPROCS(0)
}
