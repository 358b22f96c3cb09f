package vp8rdo_test

import (
	"bytes"
	"fmt"
	"image"

	"github.com/deepteams/vp8rdo"
)

func gray420(w, h int, v uint8) *image.YCbCr {
	img := image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio420)
	for i := range img.Y {
		img.Y[i] = v
	}
	for i := range img.Cb {
		img.Cb[i] = v
		img.Cr[i] = v
	}
	return img
}

func ExampleAnalyze() {
	res, err := vp8rdo.Analyze(gray420(32, 32, 128), vp8rdo.DefaultOptions())
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("macroblocks: %d\n", len(res.Macroblocks))
	fmt.Printf("skipped: %d\n", res.Stats.Skipped)
	fmt.Printf("psnr: %.2f\n", res.Stats.PSNR[3])
	// Output:
	// macroblocks: 4
	// skipped: 4
	// psnr: 99.00
}

func ExampleResult_WriteDecisions() {
	res, err := vp8rdo.Analyze(gray420(48, 16, 128), nil)
	if err != nil {
		fmt.Println(err)
		return
	}
	var buf bytes.Buffer
	if err := res.WriteDecisions(&buf); err != nil {
		fmt.Println(err)
		return
	}
	back, err := vp8rdo.ReadDecisions(&buf)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("%dx%d macroblocks\n", back.MBWidth, back.MBHeight)
	// Output:
	// 3x1 macroblocks
}

func ExampleOptionsForPreset() {
	opts := vp8rdo.OptionsForPreset(vp8rdo.PresetText, 90)
	fmt.Println(opts.Segments, opts.SNSStrength, opts.FilterStrength)
	// Output:
	// 2 0 0
}
