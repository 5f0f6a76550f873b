package render

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// DecodeInto decodes a compressed frame (JPEG or PNG), scales it to
// width x height when it differs and writes BGRA8 pixels into dst.
// dst is grown when too small; the filled slice is returned.
func DecodeInto(dst []byte, data []byte, width, height int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return dst, fmt.Errorf("decode frame: %w", err)
	}
	bounds := src.Bounds()
	if width <= 0 || height <= 0 {
		width, height = bounds.Dx(), bounds.Dy()
	}
	if width <= 0 || height <= 0 {
		return dst, fmt.Errorf("decode frame: empty image")
	}
	need := width * height * 4
	if cap(dst) < need {
		dst = make([]byte, need)
	}
	dst = dst[:need]

	rgba := &image.RGBA{Pix: dst, Stride: width * 4, Rect: image.Rect(0, 0, width, height)}
	if bounds.Dx() == width && bounds.Dy() == height {
		draw.Draw(rgba, rgba.Rect, src, bounds.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(rgba, rgba.Rect, src, bounds, draw.Src, nil)
	}
	SwapRedBlue(dst)
	return dst, nil
}

// SwapRedBlue converts between RGBA8 and BGRA8 in place.
func SwapRedBlue(pix []byte) {
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+2] = pix[i+2], pix[i]
	}
}
