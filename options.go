package vp8rdo

import (
	"github.com/pkg/errors"

	"github.com/deepteams/vp8rdo/internal/lossy"
)

// MaxDimension is the maximum allowed width or height of a picture, in
// pixels. Larger pictures cannot be described by a VP8 frame header.
const MaxDimension = 16383

var (
	// ErrInvalidOptions is returned when an Options field is out of range.
	ErrInvalidOptions = errors.New("vp8rdo: invalid options")
	// ErrInvalidImage is returned for empty or oversized pictures.
	ErrInvalidImage = errors.New("vp8rdo: invalid image")
)

// Preset selects a set of parameters tuned for specific content types.
type Preset int

const (
	PresetDefault Preset = iota
	PresetPicture
	PresetPhoto
	PresetDrawing
	PresetIcon
	PresetText
)

// Options controls the quantization and mode decision.
type Options struct {
	// Quality is the compression quality (0-100, default 75). Lower values
	// select coarser quantizers.
	Quality float32

	// Method controls the effort (0-6, default 4):
	//   0-2 = modes picked by distortion only
	//   3-4 = full rate-distortion scoring
	//   5   = trellis quantization of the final decision
	//   6   = trellis quantization while evaluating every mode
	Method int

	// Preset records the preset the options were derived from.
	Preset Preset

	// SNSStrength controls spatial noise shaping (0-100, default 50).
	// Higher values move bits from busy to smooth areas.
	// The default value -1 (or any value < 0) is treated as 50.
	SNSStrength int

	// FilterStrength controls the strength of the deblocking loop filter
	// the decoder will apply (0-100, default 60). It drives the per-segment
	// filter levels reported in the result.
	// The default value -1 (or any value < 0) is treated as 60.
	FilterStrength int

	// FilterSharpness controls the sharpness of the loop filter (0-7,
	// default 0).
	FilterSharpness int

	// FilterType selects the loop filter type (0=simple, 1=normal, default 1).
	// The default value -1 (or any value < 0) is treated as 1.
	FilterType int

	// Segments controls the number of segments (1-4, default 4). Each
	// segment gets its own quantizer.
	// The default value -1 (or any value < 0) is treated as 4.
	Segments int

	// Pass controls the number of statistics passes run before the final
	// one (1-10, default 1). Passes stop early once the probabilities no
	// longer change.
	// The default value -1 (or any value < 0) is treated as 1.
	Pass int

	// PartitionLimit limits the header bits spent on 4x4 modes (0-100,
	// default 0). At 100 no macroblock uses 4x4 prediction.
	PartitionLimit int

	// EmulateJPEGSize maps quality to quantizers so the compressed size
	// follows that of a JPEG encoder at the same quality.
	EmulateJPEGSize bool

	// SmoothSegments applies a 3x3 majority filter to the segment map.
	SmoothSegments bool

	// Threads bounds the number of macroblock rows processed concurrently.
	// Zero uses GOMAXPROCS.
	Threads int
}

// DefaultOptions returns options with quality 75 and method 4. Sentinel
// values (-1) are used for fields where Go's zero value differs from the
// default, so an uninitialized Options{} also produces sensible output.
func DefaultOptions() *Options {
	return &Options{
		Quality:        75,
		Method:         4,
		SNSStrength:    -1, // sentinel: treated as 50
		FilterStrength: -1, // sentinel: treated as 60
		FilterType:     -1, // sentinel: treated as 1 (normal)
		Segments:       -1, // sentinel: treated as 4
		Pass:           -1, // sentinel: treated as 1
	}
}

// OptionsForPreset returns options tuned for the given content type.
func OptionsForPreset(preset Preset, quality float32) *Options {
	opts := DefaultOptions()
	opts.Quality = quality
	opts.Preset = preset

	switch preset {
	case PresetPicture:
		opts.SNSStrength = 80
		opts.FilterSharpness = 4
		opts.FilterStrength = 35
	case PresetPhoto:
		opts.SNSStrength = 80
		opts.FilterSharpness = 3
		opts.FilterStrength = 30
	case PresetDrawing:
		opts.SNSStrength = 25
		opts.FilterSharpness = 6
		opts.FilterStrength = 10
	case PresetIcon:
		opts.SNSStrength = 0
		opts.FilterStrength = 0
	case PresetText:
		opts.SNSStrength = 0
		opts.FilterStrength = 0
		opts.Segments = 2
	case PresetDefault:
		// use defaults
	}
	return opts
}

// ParsePreset maps a preset name to its value.
func ParsePreset(name string) (Preset, error) {
	switch name {
	case "", "default":
		return PresetDefault, nil
	case "picture":
		return PresetPicture, nil
	case "photo":
		return PresetPhoto, nil
	case "drawing":
		return PresetDrawing, nil
	case "icon":
		return PresetIcon, nil
	case "text":
		return PresetText, nil
	}
	return PresetDefault, errors.Wrapf(ErrInvalidOptions, "unknown preset %q", name)
}

// validateOptions checks every field. Negative values are valid sentinels
// for the fields that have one, so only their upper bound is checked.
func validateOptions(opts *Options) error {
	if opts.Quality < 0 || opts.Quality > 100 {
		return errors.Wrapf(ErrInvalidOptions, "quality %.2f (must be 0-100)", opts.Quality)
	}
	if opts.Method < 0 || opts.Method > 6 {
		return errors.Wrapf(ErrInvalidOptions, "method %d (must be 0-6)", opts.Method)
	}
	if opts.Preset < PresetDefault || opts.Preset > PresetText {
		return errors.Wrapf(ErrInvalidOptions, "preset %d", opts.Preset)
	}
	if opts.SNSStrength > 100 {
		return errors.Wrapf(ErrInvalidOptions, "sns strength %d (must be 0-100)", opts.SNSStrength)
	}
	if opts.FilterStrength > 100 {
		return errors.Wrapf(ErrInvalidOptions, "filter strength %d (must be 0-100)", opts.FilterStrength)
	}
	if opts.FilterSharpness < 0 || opts.FilterSharpness > 7 {
		return errors.Wrapf(ErrInvalidOptions, "filter sharpness %d (must be 0-7)", opts.FilterSharpness)
	}
	if opts.FilterType > 1 {
		return errors.Wrapf(ErrInvalidOptions, "filter type %d (must be 0 or 1)", opts.FilterType)
	}
	if opts.Segments > 4 {
		return errors.Wrapf(ErrInvalidOptions, "segments %d (must be 1-4)", opts.Segments)
	}
	if opts.Pass > 10 {
		return errors.Wrapf(ErrInvalidOptions, "pass %d (must be 1-10)", opts.Pass)
	}
	if opts.PartitionLimit < 0 || opts.PartitionLimit > 100 {
		return errors.Wrapf(ErrInvalidOptions, "partition limit %d (must be 0-100)", opts.PartitionLimit)
	}
	if opts.Threads < 0 {
		return errors.Wrapf(ErrInvalidOptions, "threads %d", opts.Threads)
	}
	return nil
}

// resolveSNSStrength returns the effective SNS strength.
func resolveSNSStrength(v int) int {
	if v < 0 {
		return 50
	}
	return v
}

// resolveFilterStrength returns the effective filter strength.
func resolveFilterStrength(v int) int {
	if v < 0 {
		return 60
	}
	return v
}

// resolveFilterType returns the effective filter type.
func resolveFilterType(v int) int {
	if v < 0 {
		return 1
	}
	return v
}

// resolveSegments returns the effective segment count. Zero also means
// the default.
func resolveSegments(v int) int {
	if v <= 0 {
		return 4
	}
	return v
}

// resolvePass returns the effective pass count. Zero also means the
// default.
func resolvePass(v int) int {
	if v <= 0 {
		return 1
	}
	return v
}

// config resolves the sentinels and builds the engine configuration.
func (opts *Options) config() lossy.Config {
	cfg := lossy.DefaultConfig(opts.Quality)
	cfg.Method = opts.Method
	cfg.SNSStrength = resolveSNSStrength(opts.SNSStrength)
	cfg.FilterStrength = resolveFilterStrength(opts.FilterStrength)
	cfg.FilterSharpness = opts.FilterSharpness
	cfg.FilterType = resolveFilterType(opts.FilterType)
	cfg.Segments = resolveSegments(opts.Segments)
	cfg.Pass = resolvePass(opts.Pass)
	cfg.PartitionLimit = opts.PartitionLimit
	cfg.EmulateJPEGSize = opts.EmulateJPEGSize
	cfg.SmoothSegments = opts.SmoothSegments
	cfg.Threads = opts.Threads
	return cfg
}
