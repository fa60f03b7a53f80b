package internal

import "github.com/qrscan/qrscan/bitutil"

// DetectorResult encapsulates the result of detecting a barcode in an image.
type DetectorResult struct {
	Bits   *bitutil.BitMatrix
	Points []ResultPoint

	// Confidence carries a per-module-cell confidence score (spec §4.5),
	// aligned 1:1 with Bits. Nil when the detector had no access to the
	// original grayscale source (e.g. the pure-barcode extraction path).
	Confidence *bitutil.FloatMatrix
}

// ResultPoint represents a point of interest found by a detector.
type ResultPoint struct {
	X, Y float64
}

// NewDetectorResult creates a new DetectorResult with no confidence data.
func NewDetectorResult(bits *bitutil.BitMatrix, points []ResultPoint) *DetectorResult {
	return &DetectorResult{Bits: bits, Points: points}
}

// NewDetectorResultWithConfidence creates a DetectorResult carrying per-cell
// confidence alongside the sampled bits.
func NewDetectorResultWithConfidence(bits *bitutil.BitMatrix, points []ResultPoint, confidence *bitutil.FloatMatrix) *DetectorResult {
	return &DetectorResult{Bits: bits, Points: points, Confidence: confidence}
}
