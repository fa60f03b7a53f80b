package strategy_test

import (
	"image"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrscan/qrscan"
	"github.com/qrscan/qrscan/internal/testencode"
	"github.com/qrscan/qrscan/preprocess"
	"github.com/qrscan/qrscan/qrcode/decoder"
	"github.com/qrscan/qrscan/strategy"

	_ "github.com/qrscan/qrscan/qrcode"
)

// grayToRGBA re-packs a *image.Gray as an RGBA pixel buffer, the same
// conversion cmd/qrscan's scanFile applies to a decoded image file.
func grayToRGBA(img *image.Gray) ([]byte, int, int) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pixels := make([]byte, w*h*4)
	for i, v := range img.Pix {
		pixels[i*4] = v
		pixels[i*4+1] = v
		pixels[i*4+2] = v
		pixels[i*4+3] = 0xFF
	}
	return pixels, w, h
}

func renderQR(t *testing.T, content string, ecLevel decoder.ErrorCorrectionLevel) ([]byte, int, int) {
	t.Helper()
	code, err := testencode.Encode(content, ecLevel, 0, -1)
	require.NoError(t, err)
	bits := testencode.RenderResult(code, 400, 400, 4)
	img := qrscan.BitMatrixToImage(bits)
	return grayToRGBA(img)
}

func TestDetectSingleQRRoundTrip(t *testing.T) {
	pixels, w, h := renderQR(t, "Hello, World!", decoder.ECLevelQ)

	cfg := strategy.DefaultConfig()
	payloads, tel, err := strategy.Detect(pixels, w, h, preprocess.FormatRGBA32, cfg)
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.Equal(t, "Hello, World!", payloads[0].Text)
	assert.True(t, tel.BinarizeOK)
	assert.True(t, tel.PayloadDecoded)
	assert.Equal(t, 1, tel.QRCodesFound)
	assert.NotEmpty(t, tel.BinarizersTried)
}

func TestDetectIntoWritesBoundedResults(t *testing.T) {
	pixels, w, h := renderQR(t, "1234567890", decoder.ECLevelM)

	cfg := strategy.DefaultConfig()
	dst := make([]qrscan.Payload, 1)
	n, _, err := strategy.DetectInto(dst, pixels, w, h, preprocess.FormatRGBA32, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "1234567890", dst[0].Text)
}

func TestDetectExhaustsBudgetOnBlankImage(t *testing.T) {
	// A blank image has no finder patterns; with a budget of one attempt the
	// controller should stop after the first binarizer, record its failures,
	// and return no payloads rather than erroring.
	w, h := 100, 100
	pixels := make([]byte, w*h*4)
	for i := range pixels {
		pixels[i] = 0xFF
	}

	cfg := strategy.DefaultConfig()
	cfg.Budget.MaxAttempts = 1

	payloads, tel, err := strategy.Detect(pixels, w, h, preprocess.FormatRGBA32, cfg)
	require.NoError(t, err)
	assert.Empty(t, payloads)
	assert.LessOrEqual(t, tel.AttemptsUsed, 1)
	assert.NotEmpty(t, tel.Failures)
}

func TestDecodeMatrixBypassesDetection(t *testing.T) {
	code, err := testencode.Encode("bypass", decoder.ECLevelQ, 0, -1)
	require.NoError(t, err)
	bits := code.ToBitMatrix()

	cfg := strategy.DefaultConfig()
	payload, tel, err := strategy.DecodeMatrix(bits, nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, "bypass", payload.Text)
	assert.Equal(t, 1, tel.QRCodesFound)
	assert.True(t, tel.RSDecodeOK)
}

func TestDetectSingleQRPopulatesSegments(t *testing.T) {
	pixels, w, h := renderQR(t, "SEGMENT123", decoder.ECLevelQ)

	cfg := strategy.DefaultConfig()
	payloads, _, err := strategy.Detect(pixels, w, h, preprocess.FormatRGBA32, cfg)
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	require.NotEmpty(t, payloads[0].Segments)
	assert.Equal(t, "alphanumeric", payloads[0].Segments[0].Mode)
	assert.Equal(t, "SEGMENT123", payloads[0].Segments[0].Text)
}

// sideBySide composes two renderings of the same code onto one wide canvas
// with a blank gap between them, so the detector sees two spatially disjoint
// finder-pattern groups decoding to identical text.
func sideBySide(t *testing.T, img *image.Gray, gap int) *image.Gray {
	t.Helper()
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	canvas := image.NewGray(image.Rect(0, 0, w*2+gap, h))
	for i := range canvas.Pix {
		canvas.Pix[i] = 0xFF
	}
	draw.Draw(canvas, image.Rect(0, 0, w, h), img, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(w+gap, 0, w*2+gap, h), img, image.Point{}, draw.Src)
	return canvas
}

func TestDetectKeepsSpatiallyDisjointDuplicateText(t *testing.T) {
	code, err := testencode.Encode("dup", decoder.ECLevelQ, 0, -1)
	require.NoError(t, err)
	single := qrscan.BitMatrixToImage(testencode.RenderResult(code, 200, 200, 4))
	canvas := sideBySide(t, single, 120)
	pixels, w, h := grayToRGBA(canvas)

	cfg := strategy.DefaultConfig()
	payloads, _, err := strategy.Detect(pixels, w, h, preprocess.FormatRGBA32, cfg)
	require.NoError(t, err)
	require.Len(t, payloads, 2, "spatially disjoint symbols with identical text must not collapse into one payload")
	assert.Equal(t, "dup", payloads[0].Text)
	assert.Equal(t, "dup", payloads[1].Text)
}

func TestDetectRejectsInvalidBuffer(t *testing.T) {
	cfg := strategy.DefaultConfig()
	_, _, err := strategy.Detect(make([]byte, 3), 2, 2, preprocess.FormatLuminance8, cfg)
	require.Error(t, err)

	var derr *qrscan.DetectError
	assert.ErrorAs(t, err, &derr)
}
