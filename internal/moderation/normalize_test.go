package moderation

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizeExactBufferLength(t *testing.T) {
	sizes := []struct{ w, h int }{
		{64, 64},   // square, upscaled
		{640, 480}, // landscape, downscaled
		{13, 517},  // extreme portrait
		{1, 1},     // degenerate
	}
	pool := NewBufferPool()
	for _, size := range sizes {
		img := image.NewRGBA(image.Rect(0, 0, size.w, size.h))
		tensor := pool.Acquire()
		if err := normalizeImage(encodePNG(t, img), tensor); err != nil {
			t.Fatalf("normalize %dx%d: %v", size.w, size.h, err)
		}
		if len(tensor.Pix) != TensorLen {
			t.Fatalf("normalize %dx%d: expected %d bytes, got %d", size.w, size.h, TensorLen, len(tensor.Pix))
		}
		tensor.Release()
	}
}

func TestNormalizeContainFitPadsWideImage(t *testing.T) {
	// A solid red 200x100 image contain-fits to 224x112 centered
	// vertically, leaving black bars above and below.
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 255, A: 255})
		}
	}

	pool := NewBufferPool()
	tensor := pool.Acquire()
	defer tensor.Release()
	if err := normalizeImage(encodePNG(t, img), tensor); err != nil {
		t.Fatalf("normalize: %v", err)
	}

	at := func(x, y int) (byte, byte, byte) {
		i := (y*InputSize + x) * Channels
		return tensor.Pix[i], tensor.Pix[i+1], tensor.Pix[i+2]
	}

	if r, g, b := at(InputSize/2, 0); r != 0 || g != 0 || b != 0 {
		t.Fatalf("expected black padding at top, got (%d,%d,%d)", r, g, b)
	}
	if r, g, b := at(InputSize/2, InputSize-1); r != 0 || g != 0 || b != 0 {
		t.Fatalf("expected black padding at bottom, got (%d,%d,%d)", r, g, b)
	}
	if r, g, b := at(InputSize/2, InputSize/2); r < 200 || g > 50 || b > 50 {
		t.Fatalf("expected red content in the center, got (%d,%d,%d)", r, g, b)
	}
}

func TestNormalizeStripsAlpha(t *testing.T) {
	// Fully transparent green: the tensor has no alpha channel to carry
	// the transparency, only the three color bytes survive.
	img := image.NewNRGBA(image.Rect(0, 0, 50, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 50; x++ {
			img.SetNRGBA(x, y, color.NRGBA{G: 255, A: 0})
		}
	}

	pool := NewBufferPool()
	tensor := pool.Acquire()
	defer tensor.Release()
	if err := normalizeImage(encodePNG(t, img), tensor); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(tensor.Pix) != TensorLen {
		t.Fatalf("expected %d bytes, got %d", TensorLen, len(tensor.Pix))
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	pool := NewBufferPool()
	tensor := pool.Acquire()
	defer tensor.Release()
	if err := normalizeImage([]byte("definitely not an image"), tensor); err == nil {
		t.Fatal("expected decode error for garbage input")
	}
}

func TestBufferPoolTracksLoans(t *testing.T) {
	pool := NewBufferPool()
	a := pool.Acquire()
	b := pool.Acquire()
	if pool.InUse() != 2 {
		t.Fatalf("expected 2 buffers in use, got %d", pool.InUse())
	}
	a.Release()
	a.Release() // double release is a no-op
	b.Release()
	if pool.InUse() != 0 {
		t.Fatalf("expected 0 buffers in use, got %d", pool.InUse())
	}
}
