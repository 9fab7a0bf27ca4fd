// Package images prepares raster images for embedding as PDF image XObjects.
package images

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"

	"github.com/gcoppex/papdf/filters"
)

// Image holds the sample data and parameters of an image XObject. Data is
// unfiltered unless Filter names the encoding it is already stored in.
type Image struct {
	Width            int
	Height           int
	ColorSpace       string // DeviceRGB or DeviceGray
	BitsPerComponent int
	Data             []byte
	// Filter is set when Data is passed through as-is, e.g. DCTDecode for
	// JPEG files.
	Filter filters.Name
	// SMask carries the alpha channel as a separate grayscale image.
	SMask *Image
}

// FromGoImage converts a decoded Go image to 8 bit RGB samples. When the
// source has transparency the alpha channel becomes a DeviceGray soft mask.
func FromGoImage(src image.Image) *Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	// Non-premultiplied alpha keeps the raw color values.
	nrgba := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(nrgba, nrgba.Bounds(), src, bounds.Min, draw.Src)

	pixels := make([]byte, 0, w*h*3)
	alpha := make([]byte, 0, w*h)
	hasAlpha := false
	for i := 0; i < w*h; i++ {
		offset := i * 4
		pixels = append(pixels, nrgba.Pix[offset], nrgba.Pix[offset+1], nrgba.Pix[offset+2])
		a := nrgba.Pix[offset+3]
		alpha = append(alpha, a)
		if a < 255 {
			hasAlpha = true
		}
	}

	img := &Image{
		Width:            w,
		Height:           h,
		ColorSpace:       "DeviceRGB",
		BitsPerComponent: 8,
		Data:             pixels,
		Filter:           filters.None,
	}
	if hasAlpha {
		img.SMask = &Image{
			Width:            w,
			Height:           h,
			ColorSpace:       "DeviceGray",
			BitsPerComponent: 8,
			Data:             alpha,
		}
	}
	return img
}

// DecodePNG decodes PNG data into an Image ready for embedding.
func DecodePNG(data []byte) (*Image, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	return FromGoImage(src), nil
}

// DecodeJPEG wraps JPEG data for direct embedding with the DCTDecode
// filter. Only the header is parsed; the compressed scan data is kept
// byte for byte.
func DecodeJPEG(data []byte) (*Image, error) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg header: %w", err)
	}
	colorSpace := "DeviceRGB"
	switch cfg.ColorModel {
	case color.GrayModel:
		colorSpace = "DeviceGray"
	case color.CMYKModel:
		return nil, fmt.Errorf("cmyk jpeg is not supported")
	}
	return &Image{
		Width:            cfg.Width,
		Height:           cfg.Height,
		ColorSpace:       colorSpace,
		BitsPerComponent: 8,
		Data:             data,
		Filter:           filters.DCT,
	}, nil
}
