package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrscan/qrscan"
)

func TestNewRejectsBadDimensions(t *testing.T) {
	_, err := New(make([]byte, 4), 0, 2, FormatLuminance8)
	require.Error(t, err)
	assert.Contains(t, err.Error(), qrscan.ErrInvalidDimensions.Error())
}

func TestNewRejectsUnsupportedFormat(t *testing.T) {
	_, err := New(make([]byte, 4), 2, 2, PixelFormat(99))
	require.Error(t, err)
	assert.Contains(t, err.Error(), qrscan.ErrUnsupportedFormat.Error())
}

func TestNewRejectsMismatchedBufferLength(t *testing.T) {
	_, err := New(make([]byte, 3), 2, 2, FormatLuminance8)
	require.Error(t, err)
	assert.Contains(t, err.Error(), qrscan.ErrInvalidBuffer.Error())
}

func TestNewLuminance8PassesThrough(t *testing.T) {
	pixels := []byte{10, 20, 30, 40}
	src, err := New(pixels, 2, 2, FormatLuminance8)
	require.NoError(t, err)
	assert.Equal(t, pixels, src.Matrix())
}

func TestNewRGB24Converts(t *testing.T) {
	// pure white and pure black pixels, side by side.
	pixels := []byte{
		255, 255, 255, 0, 0, 0,
		0, 0, 0, 255, 255, 255,
	}
	src, err := New(pixels, 2, 2, FormatRGB24)
	require.NoError(t, err)

	m := src.Matrix()
	assert.Equal(t, byte(255), m[0])
	assert.Equal(t, byte(0), m[1])
	assert.Equal(t, byte(0), m[2])
	assert.Equal(t, byte(255), m[3])
}

func TestNewRGBA32ZeroAlphaIsWhite(t *testing.T) {
	// fully transparent black pixel should read as white, not black.
	pixels := []byte{0, 0, 0, 0}
	src, err := New(pixels, 1, 1, FormatRGBA32)
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), src.Matrix()[0])
}

func TestNewRGBA32OpaqueConverts(t *testing.T) {
	pixels := []byte{255, 255, 255, 255}
	src, err := New(pixels, 1, 1, FormatRGBA32)
	require.NoError(t, err)
	assert.Equal(t, byte(255), src.Matrix()[0])
}

func TestRowReturnsCorrectSlice(t *testing.T) {
	pixels := []byte{1, 2, 3, 4, 5, 6}
	src, err := New(pixels, 3, 2, FormatLuminance8)
	require.NoError(t, err)

	row := src.Row(1, nil)
	assert.Equal(t, []byte{4, 5, 6}, row)
}

func TestRowOutOfBoundsReturnsNil(t *testing.T) {
	src, err := New(make([]byte, 4), 2, 2, FormatLuminance8)
	require.NoError(t, err)
	assert.Nil(t, src.Row(-1, nil))
	assert.Nil(t, src.Row(2, nil))
}

func TestDownscaleNoopWhenWithinBounds(t *testing.T) {
	src, err := New(make([]byte, 100), 10, 10, FormatLuminance8)
	require.NoError(t, err)

	scaled := Downscale(src, 20)
	assert.Same(t, src, scaled)
}

func TestDownscaleShrinksToMaxDimension(t *testing.T) {
	src, err := New(make([]byte, 100*50), 100, 50, FormatLuminance8)
	require.NoError(t, err)

	scaled := Downscale(src, 20)
	assert.LessOrEqual(t, scaled.Width(), 20)
	assert.LessOrEqual(t, scaled.Height(), 20)
	assert.Equal(t, len(scaled.Matrix()), scaled.Width()*scaled.Height())
}

func TestToGrayMatchesLuminances(t *testing.T) {
	pixels := []byte{1, 2, 3, 4}
	src, err := New(pixels, 2, 2, FormatLuminance8)
	require.NoError(t, err)

	gray := src.ToGray()
	assert.Equal(t, pixels, gray.Pix)
}
