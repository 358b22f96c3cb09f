// Command vp8rdo runs the VP8 quantization and mode decision on an image
// and reports what an encoder would emit.
//
// Usage:
//
//	vp8rdo analyze [options] <input>   PNG/JPEG/GIF/BMP/TIFF/WebP (use "-" for stdin)
//	vp8rdo inspect <decisions>         Summarize a decision dump written by analyze -dump
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/deepteams/vp8rdo"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "analyze":
		err = runAnalyze(os.Args[2:], os.Stdout)
	case "inspect":
		err = runInspect(os.Args[2:], os.Stdout)
	case "-h", "-help", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "vp8rdo: unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "vp8rdo: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage:
  vp8rdo analyze [options] <input>   Decide modes and quantize an image
  vp8rdo inspect <decisions>         Summarize a decision dump

Use "-" as input to read from stdin.

Run "vp8rdo <command> -h" for command-specific options.
`)
}

// openInput returns an io.ReadCloser for the given path.
// If path is "-", stdin is returned (caller should not close).
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// --- analyze ---

func runAnalyze(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	quality := fs.Float64("q", 75, "quality 0-100")
	method := fs.Int("m", 4, "effort 0-6")
	preset := fs.String("preset", "default", "preset: default/picture/photo/drawing/icon/text")
	sns := fs.Int("sns", -1, "spatial noise shaping 0-100 (-1=default)")
	filterStrength := fs.Int("f", -1, "filter strength 0-100 (-1=default)")
	filterSharpness := fs.Int("sharpness", 0, "filter sharpness 0-7")
	nostrong := fs.Bool("nostrong", false, "use the simple filter instead of the normal one")
	segments := fs.Int("segments", -1, "number of segments 1-4 (-1=default)")
	pass := fs.Int("pass", -1, "statistics passes 1-10 (-1=default)")
	partitionLimit := fs.Int("partition_limit", 0, "limit 4x4 mode header bits 0-100")
	jpegSize := fs.Bool("jpeg_like", false, "follow the size curve of a JPEG encoder")
	smooth := fs.Bool("smooth", false, "majority-filter the segment map")
	threads := fs.Int("threads", 0, "concurrent macroblock rows (0=GOMAXPROCS)")
	jsonOut := fs.Bool("json", false, "print the summary as JSON")
	showMap := fs.Bool("map", false, "print the macroblock type map")
	output := fs.String("o", "", "write the reconstruction as PNG")
	dump := fs.String("dump", "", "write the decisions to a file")
	verbose := fs.Bool("v", false, "report timing on stderr")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("analyze: missing input file\nUsage: vp8rdo analyze [options] <input>")
	}
	inputPath := fs.Arg(0)

	p, err := vp8rdo.ParsePreset(strings.ToLower(*preset))
	if err != nil {
		return errors.Wrap(err, "analyze")
	}

	// Start from the preset, then override with explicitly-set flags.
	opts := vp8rdo.OptionsForPreset(p, float32(*quality))
	opts.Method = *method
	if *sns >= 0 {
		opts.SNSStrength = *sns
	}
	if *filterStrength >= 0 {
		opts.FilterStrength = *filterStrength
	}
	if *filterSharpness != 0 {
		opts.FilterSharpness = *filterSharpness
	}
	if *nostrong {
		opts.FilterType = 0
	}
	if *segments >= 0 {
		opts.Segments = *segments
	}
	if *pass >= 0 {
		opts.Pass = *pass
	}
	opts.PartitionLimit = *partitionLimit
	opts.EmulateJPEGSize = *jpegSize
	opts.SmoothSegments = *smooth
	opts.Threads = *threads

	img, format, err := loadImage(inputPath)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := vp8rdo.Analyze(img, opts)
	if err != nil {
		return errors.Wrap(err, "analyze")
	}
	if *verbose {
		b := img.Bounds()
		fmt.Fprintf(os.Stderr, "Analyzed %s (%s, %dx%d) in %v\n", inputPath, format, b.Dx(), b.Dy(), time.Since(start).Round(time.Millisecond))
	}

	if *jsonOut {
		if err := writeJSON(stdout, inputPath, res); err != nil {
			return err
		}
	} else {
		printSummary(stdout, inputPath, res)
	}
	if *showMap {
		printMap(stdout, res)
	}

	if *output != "" {
		if err := writePNG(*output, res.Reconstruction); err != nil {
			return err
		}
		if *verbose {
			fmt.Fprintf(os.Stderr, "Wrote reconstruction to %s\n", *output)
		}
	}
	if *dump != "" {
		if err := writeDump(*dump, res); err != nil {
			return err
		}
		if *verbose {
			fmt.Fprintf(os.Stderr, "Wrote decisions to %s\n", *dump)
		}
	}
	return nil
}

func loadImage(path string) (image.Image, string, error) {
	in, err := openInput(path)
	if err != nil {
		return nil, "", err
	}
	defer in.Close()

	img, format, err := image.Decode(in)
	if err != nil {
		return nil, "", errors.Wrap(err, "analyze: decoding input")
	}
	return img, format, nil
}

func writePNG(path string, img image.Image) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		os.Remove(path)
		return errors.Wrap(err, "analyze: writing reconstruction")
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

func writeDump(path string, res *vp8rdo.Result) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := res.WriteDecisions(out); err != nil {
		out.Close()
		os.Remove(path)
		return errors.Wrap(err, "analyze: writing decisions")
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

func displayName(path string) string {
	if path == "-" {
		return "<stdin>"
	}
	return path
}

func printSummary(w io.Writer, path string, res *vp8rdo.Result) {
	st := &res.Stats
	fmt.Fprintf(w, "File:         %s\n", displayName(path))
	fmt.Fprintf(w, "Dimensions:   %d x %d (%d x %d macroblocks)\n", res.Width, res.Height, res.MBWidth, res.MBHeight)
	if res.Reconstruction != nil {
		fmt.Fprintf(w, "RD level:     %s, %d passes\n", st.RDLevel, st.Passes)
		fmt.Fprintf(w, "PSNR:         Y %.2f  U %.2f  V %.2f  all %.2f dB\n", st.PSNR[0], st.PSNR[1], st.PSNR[2], st.PSNR[3])
	}
	fmt.Fprintf(w, "Macroblocks:  i16 %d  i4 %d  skipped %d\n", st.I16, st.I4, st.Skipped)
	fmt.Fprintf(w, "I16 modes:    %s\n", modeCounts(st.I16Modes[:], vp8rdo.ModeName))
	fmt.Fprintf(w, "I4 modes:     %s\n", modeCounts(st.I4Modes[:], vp8rdo.SubModeName))
	fmt.Fprintf(w, "UV modes:     %s\n", modeCounts(st.UVModes[:], vp8rdo.ModeName))
	fmt.Fprintf(w, "Header bits:  %.0f\n", st.HeaderBits)
	fmt.Fprintf(w, "Coeff bits:   %.0f\n", st.ResidualBits)
	if res.Reconstruction != nil {
		fmt.Fprintf(w, "Est. size:    %d bytes\n", int(st.TotalBits()+7)/8)
	}
	fmt.Fprintf(w, "Filter:       level %d  sharpness %d  simple %v\n", res.Filter.Level, res.Filter.Sharpness, res.Filter.Simple)
	for i, s := range res.Segments {
		fmt.Fprintf(w, "Segment %d:    q %3d  alpha %4d  filter %2d  %d macroblocks\n", i, s.Quant, s.Alpha, s.FilterStrength, s.Macroblocks)
	}
}

func modeCounts(counts []int, name func(uint8) string) string {
	parts := make([]string, 0, len(counts))
	for m, n := range counts {
		parts = append(parts, fmt.Sprintf("%s:%d", name(uint8(m)), n))
	}
	return strings.Join(parts, " ")
}

// printMap draws one character per macroblock: '.' skipped, 'I' 16x16,
// '4' 4x4.
func printMap(w io.Writer, res *vp8rdo.Result) {
	line := make([]byte, res.MBWidth+1)
	line[res.MBWidth] = '\n'
	for y := 0; y < res.MBHeight; y++ {
		for x := 0; x < res.MBWidth; x++ {
			mb := res.Macroblock(x, y)
			switch {
			case mb.Skip:
				line[x] = '.'
			case mb.Type == vp8rdo.MBTypeI16:
				line[x] = 'I'
			default:
				line[x] = '4'
			}
		}
		w.Write(line)
	}
}

type jsonSegment struct {
	Quant          int `json:"quant"`
	Alpha          int `json:"alpha"`
	Beta           int `json:"beta"`
	FilterStrength int `json:"filter_strength"`
	Macroblocks    int `json:"macroblocks"`
}

type jsonSummary struct {
	File         string        `json:"file"`
	Width        int           `json:"width"`
	Height       int           `json:"height"`
	RDLevel      string        `json:"rd_level"`
	Passes       int           `json:"passes"`
	PSNR         [4]float64    `json:"psnr"`
	I16          int           `json:"i16"`
	I4           int           `json:"i4"`
	Skipped      int           `json:"skipped"`
	HeaderBits   float64       `json:"header_bits"`
	ResidualBits float64       `json:"residual_bits"`
	TotalBits    float64       `json:"total_bits"`
	FilterLevel  int           `json:"filter_level"`
	Segments     []jsonSegment `json:"segments"`
}

func writeJSON(w io.Writer, path string, res *vp8rdo.Result) error {
	st := &res.Stats
	sum := jsonSummary{
		File:         displayName(path),
		Width:        res.Width,
		Height:       res.Height,
		RDLevel:      st.RDLevel,
		Passes:       st.Passes,
		PSNR:         st.PSNR,
		I16:          st.I16,
		I4:           st.I4,
		Skipped:      st.Skipped,
		HeaderBits:   st.HeaderBits,
		ResidualBits: st.ResidualBits,
		TotalBits:    st.TotalBits(),
		FilterLevel:  res.Filter.Level,
	}
	for _, s := range res.Segments {
		sum.Segments = append(sum.Segments, jsonSegment{
			Quant:          s.Quant,
			Alpha:          s.Alpha,
			Beta:           s.Beta,
			FilterStrength: s.FilterStrength,
			Macroblocks:    s.Macroblocks,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(&sum), "analyze: writing json")
}

// --- inspect ---

func runInspect(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	showMap := fs.Bool("map", false, "print the macroblock type map")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("inspect: missing input file\nUsage: vp8rdo inspect <decisions>")
	}
	inputPath := fs.Arg(0)

	in, err := openInput(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	res, err := vp8rdo.ReadDecisions(in)
	if err != nil {
		return errors.Wrap(err, "inspect")
	}
	printSummary(stdout, inputPath, res)
	if *showMap {
		printMap(stdout, res)
	}
	return nil
}
