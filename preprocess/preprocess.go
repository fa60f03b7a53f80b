// Package preprocess turns raw pixel buffers into the grayscale
// qrscan.LuminanceSource the detection pipeline samples from (spec §6:
// "pixels, width, height, pixel_format" -> grayscale). It is the raw-buffer
// analogue of the root package's image.Image-based ImageLuminanceSource
// (imagesource.go), generalized to operate on caller-supplied byte slices
// instead of a decoded Go image, and to downscale oversized input via
// golang.org/x/image/draw the way an image.Image pipeline would.
package preprocess

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/qrscan/qrscan"
)

// PixelFormat identifies the layout of a raw pixel buffer (spec §6).
type PixelFormat int

const (
	// FormatLuminance8 is one grayscale byte per pixel, row-major.
	FormatLuminance8 PixelFormat = iota
	// FormatRGB24 is three bytes per pixel (R, G, B), row-major.
	FormatRGB24
	// FormatRGBA32 is four bytes per pixel (R, G, B, A), row-major.
	FormatRGBA32
)

// bytesPerPixel returns the stride of one pixel under f, or 0 if f is
// unrecognized.
func (f PixelFormat) bytesPerPixel() int {
	switch f {
	case FormatLuminance8:
		return 1
	case FormatRGB24:
		return 3
	case FormatRGBA32:
		return 4
	default:
		return 0
	}
}

// Source is a qrscan.LuminanceSource backed by a raw pixel buffer converted
// to grayscale once at construction time.
type Source struct {
	luminances    []byte
	width, height int
}

// New validates pixels against width, height, and format and converts it to
// a grayscale Source. RGB/RGBA buffers are converted with ZXing's luminance
// formula (matching imagesource.go's NewImageLuminanceSource, so a raw-buffer
// caller and an image.Image caller produce identical grayscale values for
// the same picture).
func New(pixels []byte, width, height int, format PixelFormat) (*Source, error) {
	if width <= 0 || height <= 0 {
		return nil, &qrscan.DetectError{Reason: qrscan.ErrInvalidDimensions.Error()}
	}
	bpp := format.bytesPerPixel()
	if bpp == 0 {
		return nil, &qrscan.DetectError{Reason: qrscan.ErrUnsupportedFormat.Error()}
	}
	if len(pixels) != width*height*bpp {
		return nil, &qrscan.DetectError{Reason: qrscan.ErrInvalidBuffer.Error()}
	}

	luminances := make([]byte, width*height)
	switch format {
	case FormatLuminance8:
		copy(luminances, pixels)
	case FormatRGB24:
		for i := 0; i < width*height; i++ {
			r, g, b := pixels[i*3], pixels[i*3+1], pixels[i*3+2]
			luminances[i] = rgbToLuminance(r, g, b)
		}
	case FormatRGBA32:
		for i := 0; i < width*height; i++ {
			r, g, b, a := pixels[i*4], pixels[i*4+1], pixels[i*4+2], pixels[i*4+3]
			if a == 0 {
				luminances[i] = 0xFF
			} else {
				luminances[i] = rgbToLuminance(r, g, b)
			}
		}
	}

	return &Source{luminances: luminances, width: width, height: height}, nil
}

// rgbToLuminance applies the same (306*R + 601*G + 117*B + 0x200) >> 10
// weighting as imagesource.go, so raw-buffer and image.Image ingestion agree.
func rgbToLuminance(r, g, b byte) byte {
	return byte((306*int(r) + 601*int(g) + 117*int(b) + 0x200) >> 10)
}

// Row returns a row of luminance data.
func (s *Source) Row(y int, row []byte) []byte {
	if y < 0 || y >= s.height {
		return nil
	}
	if row == nil || len(row) < s.width {
		row = make([]byte, s.width)
	}
	offset := y * s.width
	copy(row, s.luminances[offset:offset+s.width])
	return row
}

// Matrix returns the entire luminance matrix.
func (s *Source) Matrix() []byte {
	result := make([]byte, len(s.luminances))
	copy(result, s.luminances)
	return result
}

// Width returns the image width.
func (s *Source) Width() int { return s.width }

// Height returns the image height.
func (s *Source) Height() int { return s.height }

// Downscale returns a new Source no larger than maxDimension on its longest
// side, resampled with golang.org/x/image/draw.CatmullRom. Returns s
// unchanged if it already fits.
func Downscale(s *Source, maxDimension int) *Source {
	if maxDimension <= 0 || (s.width <= maxDimension && s.height <= maxDimension) {
		return s
	}

	scale := float64(maxDimension) / float64(s.width)
	if hScale := float64(maxDimension) / float64(s.height); hScale < scale {
		scale = hScale
	}
	newWidth := max(1, int(float64(s.width)*scale))
	newHeight := max(1, int(float64(s.height)*scale))

	src := image.NewGray(image.Rect(0, 0, s.width, s.height))
	copy(src.Pix, s.luminances)

	dst := image.NewGray(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	return &Source{luminances: dst.Pix, width: newWidth, height: newHeight}
}

// ToGray renders s as a standard library grayscale image, for callers (e.g.
// cmd/qrscan) that want to save intermediate debug output.
func (s *Source) ToGray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, s.width, s.height))
	copy(img.Pix, s.luminances)
	return img
}
