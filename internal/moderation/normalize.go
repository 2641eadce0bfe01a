package moderation

import (
	"bytes"
	"fmt"
	"image"

	// Decoders for the formats image hosts commonly serve.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
)

// normalizeFunc fills a tensor from raw image bytes. It is a field on the
// pipeline so tests can substitute it.
type normalizeFunc func(data []byte, t *Tensor) error

// normalizeImage decodes the raw bytes and scales them into the classifier
// input shape: proportional "contain" fit into an InputSize square, padded
// with black, alpha stripped, packed as row-major RGB.
func normalizeImage(data []byte, t *Tensor) error {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW == 0 || srcH == 0 {
		return fmt.Errorf("empty image %dx%d", srcW, srcH)
	}

	// Contain fit: scale into the square without cropping.
	scaledW, scaledH := InputSize, InputSize
	if srcW > srcH {
		scaledH = srcH * InputSize / srcW
	} else if srcH > srcW {
		scaledW = srcW * InputSize / srcH
	}
	if scaledW < 1 {
		scaledW = 1
	}
	if scaledH < 1 {
		scaledH = 1
	}

	offX := (InputSize - scaledW) / 2
	offY := (InputSize - scaledH) / 2

	dst := image.NewRGBA(image.Rect(0, 0, InputSize, InputSize))
	xdraw.CatmullRom.Scale(dst,
		image.Rect(offX, offY, offX+scaledW, offY+scaledH),
		src, bounds, xdraw.Src, nil)

	// Pack RGBA rows into the RGB tensor, dropping alpha.
	t.Pix = t.Pix[:TensorLen]
	j := 0
	for y := 0; y < InputSize; y++ {
		i := dst.PixOffset(0, y)
		for x := 0; x < InputSize; x++ {
			t.Pix[j] = dst.Pix[i]
			t.Pix[j+1] = dst.Pix[i+1]
			t.Pix[j+2] = dst.Pix[i+2]
			j += 3
			i += 4
		}
	}
	return nil
}
