package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

// createTestPNG writes a 40x24 gradient PNG into dir and returns its path.
func createTestPNG(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "input.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, testImage()))
	require.NoError(t, f.Close())
	return path
}

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 40, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 40; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 6),
				G: uint8(y * 10),
				B: uint8((x ^ y) * 4),
				A: 255,
			})
		}
	}
	return img
}

func assertContains(t *testing.T, out, want string) {
	t.Helper()
	if !strings.Contains(out, want) {
		t.Errorf("output does not contain %q:\n%s", want, out)
	}
}

func TestAnalyzeSummary(t *testing.T) {
	dir := t.TempDir()
	input := createTestPNG(t, dir)

	var out bytes.Buffer
	require.NoError(t, runAnalyze([]string{"-q", "60", "-m", "4", input}, &out))
	s := out.String()
	assertContains(t, s, "Dimensions:   40 x 24 (3 x 2 macroblocks)")
	assertContains(t, s, "RD level:     basic")
	assertContains(t, s, "PSNR:")
	assertContains(t, s, "Segment 0:")
}

func TestAnalyzeMethodSelectsRDLevel(t *testing.T) {
	input := createTestPNG(t, t.TempDir())
	for method, level := range map[string]string{"0": "none", "3": "basic", "5": "trellis", "6": "trellis-all"} {
		var out bytes.Buffer
		require.NoError(t, runAnalyze([]string{"-m", method, input}, &out))
		assertContains(t, out.String(), "RD level:     "+level+",")
	}
}

func TestAnalyzeJSON(t *testing.T) {
	input := createTestPNG(t, t.TempDir())
	var out bytes.Buffer
	require.NoError(t, runAnalyze([]string{"-json", "-segments", "2", input}, &out))

	var sum jsonSummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &sum))
	require.Equal(t, 40, sum.Width)
	require.Equal(t, 24, sum.Height)
	require.Equal(t, 6, sum.I4+sum.I16)
	require.NotEmpty(t, sum.Segments)
	require.LessOrEqual(t, len(sum.Segments), 2)
	require.InDelta(t, sum.HeaderBits+sum.ResidualBits, sum.TotalBits, sum.TotalBits)
}

func TestAnalyzeWritesReconstructionAndDump(t *testing.T) {
	dir := t.TempDir()
	input := createTestPNG(t, dir)
	recon := filepath.Join(dir, "recon.png")
	dump := filepath.Join(dir, "decisions.bin")

	var out bytes.Buffer
	require.NoError(t, runAnalyze([]string{"-o", recon, "-dump", dump, "-map", input}, &out))
	assertContains(t, out.String(), "\n")

	f, err := os.Open(recon)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 40, 24), img.Bounds())

	var inspected bytes.Buffer
	require.NoError(t, runInspect([]string{"-map", dump}, &inspected))
	s := inspected.String()
	assertContains(t, s, "Dimensions:   40 x 24 (3 x 2 macroblocks)")
	assertContains(t, s, "Segment 0:")

	// The map is the last two lines of both outputs.
	analyzeLines := strings.Split(strings.TrimSpace(out.String()), "\n")
	inspectLines := strings.Split(strings.TrimSpace(s), "\n")
	require.Equal(t, analyzeLines[len(analyzeLines)-2:], inspectLines[len(inspectLines)-2:])
	for _, line := range inspectLines[len(inspectLines)-2:] {
		require.Len(t, line, 3)
		require.Empty(t, strings.Trim(line, ".I4"))
	}
}

func TestAnalyzeBMPInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.bmp")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, bmp.Encode(f, testImage()))
	require.NoError(t, f.Close())

	var out bytes.Buffer
	require.NoError(t, runAnalyze([]string{path}, &out))
	assertContains(t, out.String(), "40 x 24")
}

func TestAnalyzeErrors(t *testing.T) {
	dir := t.TempDir()
	input := createTestPNG(t, dir)
	notImage := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notImage, []byte("hello"), 0o644))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing input", nil, "missing input file"},
		{"bad preset", []string{"-preset", "poster", input}, "unknown preset"},
		{"bad method", []string{"-m", "9", input}, "method 9"},
		{"bad quality", []string{"-q", "120", input}, "quality"},
		{"not an image", []string{notImage}, "decoding input"},
		{"missing file", []string{filepath.Join(dir, "nope.png")}, "nope.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := runAnalyze(tt.args, &out)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestInspectErrors(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	err := runInspect(nil, &out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing input file")

	garbage := filepath.Join(dir, "garbage.bin")
	require.NoError(t, os.WriteFile(garbage, []byte("not a dump at all"), 0o644))
	err = runInspect([]string{garbage}, &out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "inspect")
}

func TestPresetFlag(t *testing.T) {
	input := createTestPNG(t, t.TempDir())
	var out bytes.Buffer
	require.NoError(t, runAnalyze([]string{"-json", "-preset", "text", input}, &out))
	var sum jsonSummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &sum))
	require.LessOrEqual(t, len(sum.Segments), 2)
}
