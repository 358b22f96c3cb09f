package dsp

// BT.601 RGB -> YUV conversion in 16-bit fixed point, limited range.

const (
	yuvFix  = 16
	yuvHalf = 1 << (yuvFix - 1)

	kRGBToY0 = 16839 // 0.2568 * (1 << 16)
	kRGBToY1 = 33059 // 0.5041 * (1 << 16)
	kRGBToY2 = 6420  // 0.0979 * (1 << 16)
	kRGBToU0 = -9719
	kRGBToU1 = -19081
	kRGBToU2 = 28800
	kRGBToV0 = 28800
	kRGBToV1 = -24116
	kRGBToV2 = -4684
)

// ClipUV scales a chroma accumulator built from the sum of four pixels
// back to [0, 255].
func ClipUV(uv, rounding int) uint8 {
	uv = (uv + rounding + (128 << (yuvFix + 2))) >> (yuvFix + 2)
	if uv&^0xff == 0 {
		return uint8(uv)
	}
	if uv < 0 {
		return 0
	}
	return 255
}

// RGBToY converts an RGB triple to luma.
func RGBToY(r, g, b int) uint8 {
	return uint8((kRGBToY0*r + kRGBToY1*g + kRGBToY2*b + yuvHalf + (16 << yuvFix)) >> yuvFix)
}

// RGBToU converts the sum of four RGB samples to the U component.
func RGBToU(r, g, b int) uint8 {
	return ClipUV(kRGBToU0*r+kRGBToU1*g+kRGBToU2*b, yuvHalf<<2)
}

// RGBToV converts the sum of four RGB samples to the V component.
func RGBToV(r, g, b int) uint8 {
	return ClipUV(kRGBToV0*r+kRGBToV1*g+kRGBToV2*b, yuvHalf<<2)
}
