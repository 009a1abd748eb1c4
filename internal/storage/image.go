package storage

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/tiff"
)

// normalize maps heights onto [0, 1] between their own extremes. A flat
// field maps to zero.
func normalize(heights []float32) func(int) float64 {
	lo, hi := bounds(heights)
	span := float64(hi - lo)
	return func(i int) float64 {
		if span == 0 {
			return 0
		}
		return float64(heights[i]-lo) / span
	}
}

// WriteTIFF stores heights as a 16-bit grayscale TIFF, deflate
// compressed.
func WriteTIFF(path string, heights []float32, width int) error {
	img := image.NewGray16(image.Rect(0, 0, width, width))
	level := normalize(heights)
	for i := range heights {
		img.SetGray16(i%width, i/width, color.Gray16{Y: uint16(level(i)*65535 + 0.5)})
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}

// WritePNG stores an 8-bit preview of heights.
func WritePNG(path string, heights []float32, width int) error {
	img := image.NewGray(image.Rect(0, 0, width, width))
	level := normalize(heights)
	for i := range heights {
		img.SetGray(i%width, i/width, color.Gray{Y: uint8(level(i)*255 + 0.5)})
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

// ReadTIFF imports a square grayscale heightmap, scaling it linearly onto
// [lo, hi].
func ReadTIFF(path string, lo, hi float32) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	img, err := tiff.Decode(f)
	if err != nil {
		return nil, 0, err
	}
	b := img.Bounds()
	if b.Dx() != b.Dy() {
		return nil, 0, fmt.Errorf("storage: heightmap %dx%d is not square", b.Dx(), b.Dy())
	}

	width := b.Dx()
	heights := make([]float32, width*width)
	for y := 0; y < width; y++ {
		for x := 0; x < width; x++ {
			g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			heights[y*width+x] = lo + float32(g.Y)/65535*(hi-lo)
		}
	}
	return heights, width, nil
}
