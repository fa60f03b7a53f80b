package qrscan_test

import (
	"testing"

	"github.com/qrscan/qrscan"
	"github.com/qrscan/qrscan/binarizer"
	"github.com/qrscan/qrscan/internal/testencode"
	"github.com/qrscan/qrscan/qrcode/decoder"

	// Import format packages to trigger init() registration.
	_ "github.com/qrscan/qrscan/qrcode"
)

func encodeAndDecode(t *testing.T, content string, ecLevel decoder.ErrorCorrectionLevel) string {
	t.Helper()

	code, err := testencode.Encode(content, ecLevel, 0, -1)
	if err != nil {
		t.Fatalf("Encode(%s) failed: %v", content, err)
	}
	bits := testencode.RenderResult(code, 400, 400, 4)
	if bits.Width() == 0 || bits.Height() == 0 {
		t.Fatalf("encoded matrix is empty")
	}

	// Convert to image
	img := qrscan.BitMatrixToImage(bits)

	// Create binary bitmap via binarizer pipeline
	source := qrscan.NewGrayImageLuminanceSource(img)
	bin := binarizer.NewGlobalHistogram(source)
	bitmap := qrscan.NewBinaryBitmap(bin)

	// Decode - use PureBarcode since we're decoding from a clean render
	opts := &qrscan.DecodeOptions{
		PossibleFormats: []qrscan.Format{qrscan.FormatQRCode},
		PureBarcode:     true,
	}
	result, err := qrscan.Decode(bitmap, opts)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	return result.Text
}

func TestRoundTripQRCode(t *testing.T) {
	content := "Hello, World!"
	decoded := encodeAndDecode(t, content, decoder.ECLevelQ)
	if decoded != content {
		t.Errorf("QR round-trip: got %q, want %q", decoded, content)
	}
}

func TestRoundTripQRCodeNumeric(t *testing.T) {
	content := "1234567890"
	decoded := encodeAndDecode(t, content, decoder.ECLevelM)
	if decoded != content {
		t.Errorf("QR numeric round-trip: got %q, want %q", decoded, content)
	}
}

func TestRoundTripQRCodeHighEC(t *testing.T) {
	content := "TEST123"
	decoded := encodeAndDecode(t, content, decoder.ECLevelH)
	if decoded != content {
		t.Errorf("QR high-EC round-trip: got %q, want %q", decoded, content)
	}
}

func TestImageLuminanceSource(t *testing.T) {
	// Encode a QR code, convert to image, verify luminance source properties
	code, err := testencode.Encode("test", decoder.ECLevelQ, 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	img := qrscan.BitMatrixToImage(code.ToBitMatrix())
	source := qrscan.NewGrayImageLuminanceSource(img)

	if source.Width() != img.Bounds().Dx() {
		t.Errorf("width: got %d, want %d", source.Width(), img.Bounds().Dx())
	}
	if source.Height() != img.Bounds().Dy() {
		t.Errorf("height: got %d, want %d", source.Height(), img.Bounds().Dy())
	}

	lum := source.Matrix()
	if len(lum) != source.Width()*source.Height() {
		t.Errorf("matrix length: got %d, want %d", len(lum), source.Width()*source.Height())
	}

	row := source.Row(0, nil)
	if len(row) != source.Width() {
		t.Errorf("row length: got %d, want %d", len(row), source.Width())
	}
}
