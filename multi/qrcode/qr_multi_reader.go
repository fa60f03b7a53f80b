// Package qrcode provides multi-QR code detection and structured append support.
package qrcode

import (
	"fmt"
	"sort"

	"github.com/qrscan/qrscan"
	"github.com/qrscan/qrscan/qrcode/decoder"
	"github.com/qrscan/qrscan/qrcode/detector"
)

// QRCodeMultiReader can detect and decode multiple QR codes in an image,
// and also combines structured append results.
type QRCodeMultiReader struct {
	dec *decoder.Decoder
}

// NewQRCodeMultiReader creates a new QRCodeMultiReader.
func NewQRCodeMultiReader() *QRCodeMultiReader {
	return &QRCodeMultiReader{dec: decoder.NewDecoder()}
}

// DecodeMultiple detects and decodes all QR codes in the image.
func (r *QRCodeMultiReader) DecodeMultiple(image *qrscan.BinaryBitmap, opts *qrscan.DecodeOptions) ([]*qrscan.Result, error) {
	if opts == nil {
		opts = &qrscan.DecodeOptions{}
	}

	matrix, err := image.BlackMatrix()
	if err != nil {
		return nil, err
	}

	detectorResults, err := detector.DetectMultiWithSource(matrix, image.LuminanceSource(), opts.TryHarder)
	if err != nil {
		return nil, err
	}

	var results []*qrscan.Result
	for _, detResult := range detectorResults {
		dr, err := r.dec.Decode(detResult.Bits, detResult.Confidence, opts.CharacterSet)
		if err != nil {
			continue
		}

		points := make([]qrscan.ResultPoint, len(detResult.Points))
		for i, p := range detResult.Points {
			points[i] = qrscan.ResultPoint{X: p.X, Y: p.Y}
		}

		result := qrscan.NewResult(dr.Text, dr.RawBytes, points, qrscan.FormatQRCode)
		if dr.ByteSegments != nil {
			result.PutMetadata(qrscan.MetadataByteSegments, dr.ByteSegments)
		}
		if dr.ECLevel != "" {
			result.PutMetadata(qrscan.MetadataErrorCorrectionLevel, dr.ECLevel)
		}
		if dr.HasStructuredAppend() {
			result.PutMetadata(qrscan.MetadataStructuredAppendSequence, dr.StructuredAppendSequenceNumber)
			result.PutMetadata(qrscan.MetadataStructuredAppendParity, dr.StructuredAppendParity)
		}
		result.PutMetadata(qrscan.MetadataErrorsCorrected, dr.ErrorsCorrected)
		result.PutMetadata(qrscan.MetadataErasuresCorrected, dr.Erasures)
		result.PutMetadata(qrscan.MetadataSymbologyIdentifier, fmt.Sprintf("]Q%d", dr.SymbologyModifier))

		results = append(results, result)
	}

	if len(results) == 0 {
		return nil, qrscan.ErrNotFound
	}

	results = processStructuredAppend(results)
	return results, nil
}

// Decode decodes a single QR code (delegate to standard reader behavior).
func (r *QRCodeMultiReader) Decode(image *qrscan.BinaryBitmap, opts *qrscan.DecodeOptions) (*qrscan.Result, error) {
	results, err := r.DecodeMultiple(image, opts)
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// Reset is a no-op.
func (r *QRCodeMultiReader) Reset() {}

func processStructuredAppend(results []*qrscan.Result) []*qrscan.Result {
	var newResults []*qrscan.Result
	var saResults []*qrscan.Result

	for _, result := range results {
		if _, ok := result.Metadata[qrscan.MetadataStructuredAppendSequence]; ok {
			saResults = append(saResults, result)
		} else {
			newResults = append(newResults, result)
		}
	}

	if len(saResults) == 0 {
		return results
	}

	// Sort by sequence number
	sort.Slice(saResults, func(i, j int) bool {
		seqI, _ := saResults[i].Metadata[qrscan.MetadataStructuredAppendSequence].(int)
		seqJ, _ := saResults[j].Metadata[qrscan.MetadataStructuredAppendSequence].(int)
		return seqI < seqJ
	})

	// Concatenate text and raw bytes
	var combinedText string
	var combinedRawBytes []byte
	var combinedByteSegment []byte
	for _, sa := range saResults {
		combinedText += sa.Text
		if sa.RawBytes != nil {
			combinedRawBytes = append(combinedRawBytes, sa.RawBytes...)
		}
		if segs, ok := sa.Metadata[qrscan.MetadataByteSegments].([][]byte); ok {
			for _, seg := range segs {
				combinedByteSegment = append(combinedByteSegment, seg...)
			}
		}
	}

	combined := qrscan.NewResult(combinedText, combinedRawBytes, nil, qrscan.FormatQRCode)
	if len(combinedByteSegment) > 0 {
		combined.PutMetadata(qrscan.MetadataByteSegments, [][]byte{combinedByteSegment})
	}
	newResults = append(newResults, combined)
	return newResults
}

// DecodeMultipleFromResults is a convenience for combining results that may
// have been decoded separately but share structured append metadata.
func DecodeMultipleFromResults(results []*qrscan.Result) []*qrscan.Result {
	return processStructuredAppend(results)
}

// ensure interface compliance
var _ qrscan.MultipleBarcodeReader = (*QRCodeMultiReader)(nil)
var _ qrscan.Reader = (*QRCodeMultiReader)(nil)
