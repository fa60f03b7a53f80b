package qrcode

import (
	"testing"

	"github.com/qrscan/qrscan/internal/testencode"
	"github.com/qrscan/qrscan/qrcode/decoder"
)

func TestRoundTripNumeric(t *testing.T) {
	testRoundTrip(t, "1234567890", decoder.ECLevelM)
}

func TestRoundTripAlphanumeric(t *testing.T) {
	testRoundTrip(t, "HELLO WORLD", decoder.ECLevelL)
}

func TestRoundTripByte(t *testing.T) {
	testRoundTrip(t, "Hello, World! This is a test.", decoder.ECLevelQ)
}

func TestRoundTripHighEC(t *testing.T) {
	testRoundTrip(t, "TEST123", decoder.ECLevelH)
}

func TestRoundTripAllECLevels(t *testing.T) {
	content := "Testing all EC levels"
	levels := []decoder.ErrorCorrectionLevel{
		decoder.ECLevelL, decoder.ECLevelM, decoder.ECLevelQ, decoder.ECLevelH,
	}
	for _, ecLevel := range levels {
		t.Run(ecLevel.String(), func(t *testing.T) {
			testRoundTrip(t, content, ecLevel)
		})
	}
}

func testRoundTrip(t *testing.T, content string, ecLevel decoder.ErrorCorrectionLevel) {
	t.Helper()

	code, err := testencode.Encode(content, ecLevel, 0, -1)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if code.Matrix == nil {
		t.Fatal("encoded matrix is nil")
	}

	bits := code.ToBitMatrix()

	dec := decoder.NewDecoder()
	result, err := dec.Decode(bits, nil, "")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if result.Text != content {
		t.Errorf("round-trip mismatch: got %q, want %q", result.Text, content)
	}
}
