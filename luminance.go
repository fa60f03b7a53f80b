package qrscan

import "github.com/qrscan/qrscan/bitutil"

// LuminanceSource provides access to greyscale luminance values for an image.
type LuminanceSource interface {
	// Row returns a row of luminance data. If row is non-nil and large enough,
	// it should be reused.
	Row(y int, row []byte) []byte

	// Matrix returns the entire luminance matrix.
	Matrix() []byte

	// Width returns the width of the image.
	Width() int

	// Height returns the height of the image.
	Height() int
}

// Binarizer converts luminance data to 1-bit black/white data.
type Binarizer interface {
	// BlackRow returns a row of black/white values.
	BlackRow(y int, row *bitutil.BitArray) (*bitutil.BitArray, error)

	// BlackMatrix returns the 2D matrix of black/white values.
	BlackMatrix() (*bitutil.BitMatrix, error)

	// LuminanceSource returns the underlying LuminanceSource.
	LuminanceSource() LuminanceSource

	// CreateBinarizer returns a new Binarizer of the same kind over a
	// different LuminanceSource, e.g. a cropped sub-region.
	CreateBinarizer(source LuminanceSource) Binarizer

	// Width returns the width of the image.
	Width() int

	// Height returns the height of the image.
	Height() int
}

// CropLuminanceSource is a LuminanceSource backed by a sub-rectangle of a
// parent source.
type CropLuminanceSource struct {
	parent               LuminanceSource
	left, top, cropWidth, cropHeight int
}

// NewCropLuminanceSource creates a LuminanceSource restricted to the given
// sub-rectangle of parent. The rectangle is clamped to the parent's bounds.
func NewCropLuminanceSource(parent LuminanceSource, left, top, width, height int) *CropLuminanceSource {
	if left < 0 {
		left = 0
	}
	if top < 0 {
		top = 0
	}
	if left+width > parent.Width() {
		width = parent.Width() - left
	}
	if top+height > parent.Height() {
		height = parent.Height() - top
	}
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &CropLuminanceSource{parent: parent, left: left, top: top, cropWidth: width, cropHeight: height}
}

// Row returns a row of luminance data from within the cropped rectangle.
func (c *CropLuminanceSource) Row(y int, row []byte) []byte {
	if y < 0 || y >= c.cropHeight {
		return nil
	}
	if row == nil || len(row) < c.cropWidth {
		row = make([]byte, c.cropWidth)
	}
	parentRow := c.parent.Row(c.top+y, nil)
	copy(row, parentRow[c.left:c.left+c.cropWidth])
	return row
}

// Matrix returns the entire cropped luminance matrix.
func (c *CropLuminanceSource) Matrix() []byte {
	result := make([]byte, c.cropWidth*c.cropHeight)
	for y := 0; y < c.cropHeight; y++ {
		copy(result[y*c.cropWidth:(y+1)*c.cropWidth], c.Row(y, nil))
	}
	return result
}

// Width returns the width of the cropped region.
func (c *CropLuminanceSource) Width() int { return c.cropWidth }

// Height returns the height of the cropped region.
func (c *CropLuminanceSource) Height() int { return c.cropHeight }
