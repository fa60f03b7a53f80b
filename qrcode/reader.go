// Package qrcode provides QR code reading and writing.
package qrcode

import (
	"fmt"
	"math"

	"github.com/qrscan/qrscan"
	"github.com/qrscan/qrscan/bitutil"
	"github.com/qrscan/qrscan/internal"
	"github.com/qrscan/qrscan/qrcode/decoder"
	"github.com/qrscan/qrscan/qrcode/detector"
)

// Reader decodes QR codes from binary images.
type Reader struct {
	dec *decoder.Decoder
}

// NewReader creates a new QR code Reader.
func NewReader() *Reader {
	return &Reader{
		dec: decoder.NewDecoder(),
	}
}

// Decode locates and decodes a QR code in the given image.
func (r *Reader) Decode(image *qrscan.BinaryBitmap, opts *qrscan.DecodeOptions) (*qrscan.Result, error) {
	if opts == nil {
		opts = &qrscan.DecodeOptions{}
	}

	matrix, err := image.BlackMatrix()
	if err != nil {
		return nil, err
	}

	if opts.PureBarcode {
		bits, err := extractPureBits(matrix)
		if err != nil {
			return nil, err
		}
		dr, err := r.dec.Decode(bits, nil, opts.CharacterSet)
		if err != nil {
			return nil, err
		}

		result := qrscan.NewResult(dr.Text, dr.RawBytes, nil, qrscan.FormatQRCode)
		populateMetadata(result, dr.ByteSegments, segmentsFromDecoderResult(dr), dr.ECLevel,
			dr.HasStructuredAppend(), dr.StructuredAppendSequenceNumber,
			dr.StructuredAppendParity, dr.ErrorsCorrected, dr.Erasures, dr.SymbologyModifier,
			dr.Version, dr.MaskPattern)
		return result, nil
	}

	det := detector.NewDetectorWithSource(matrix, image.LuminanceSource())
	detectorResult, err := det.Detect(false)
	if err != nil {
		return nil, err
	}
	dr, err := r.dec.Decode(detectorResult.Bits, detectorResult.Confidence, opts.CharacterSet)
	if err != nil {
		return nil, err
	}

	points := make([]qrscan.ResultPoint, len(detectorResult.Points))
	for i, p := range detectorResult.Points {
		points[i] = qrscan.ResultPoint{X: p.X, Y: p.Y}
	}

	result := qrscan.NewResult(dr.Text, dr.RawBytes, points, qrscan.FormatQRCode)
	populateMetadata(result, dr.ByteSegments, segmentsFromDecoderResult(dr), dr.ECLevel,
		dr.HasStructuredAppend(), dr.StructuredAppendSequenceNumber,
		dr.StructuredAppendParity, dr.ErrorsCorrected, dr.Erasures, dr.SymbologyModifier,
		dr.Version, dr.MaskPattern)
	return result, nil
}

// Reset resets internal state.
func (r *Reader) Reset() {
	// nothing to reset
}

// segmentsFromDecoderResult adapts the bitstream parser's internal per-mode
// run list into the public Segment type FromResult surfaces on Payload.
func segmentsFromDecoderResult(dr *internal.DecoderResult) []qrscan.Segment {
	if len(dr.Segments) == 0 {
		return nil
	}
	segments := make([]qrscan.Segment, len(dr.Segments))
	for i, s := range dr.Segments {
		segments[i] = qrscan.Segment{Mode: s.Mode, Text: s.Text, Data: s.Data}
	}
	return segments
}

func populateMetadata(result *qrscan.Result, byteSegments [][]byte, segments []qrscan.Segment, ecLevel string,
	hasStructuredAppend bool, saSequence, saParity, errorsCorrected, erasuresCorrected, symbologyModifier,
	version, maskPattern int) {
	if byteSegments != nil {
		result.PutMetadata(qrscan.MetadataByteSegments, byteSegments)
	}
	if segments != nil {
		result.PutMetadata(qrscan.MetadataSegments, segments)
	}
	if ecLevel != "" {
		result.PutMetadata(qrscan.MetadataErrorCorrectionLevel, ecLevel)
	}
	if hasStructuredAppend {
		result.PutMetadata(qrscan.MetadataStructuredAppendSequence, saSequence)
		result.PutMetadata(qrscan.MetadataStructuredAppendParity, saParity)
	}
	result.PutMetadata(qrscan.MetadataErrorsCorrected, errorsCorrected)
	result.PutMetadata(qrscan.MetadataErasuresCorrected, erasuresCorrected)
	result.PutMetadata(qrscan.MetadataSymbologyIdentifier, fmt.Sprintf("]Q%d", symbologyModifier))
	result.PutMetadata(qrscan.MetadataVersion, version)
	result.PutMetadata(qrscan.MetadataMaskPattern, maskPattern)
}

// extractPureBits extracts a QR code from a "pure" image — one that contains
// only the unrotated, unskewed barcode with some white border.
func extractPureBits(image *bitutil.BitMatrix) (*bitutil.BitMatrix, error) {
	leftTopBlack := image.TopLeftOnBit()
	rightBottomBlack := image.BottomRightOnBit()
	if leftTopBlack == nil || rightBottomBlack == nil {
		return nil, qrscan.ErrNotFound
	}

	moduleSize, err := moduleSizePure(leftTopBlack, image)
	if err != nil {
		return nil, err
	}

	top := leftTopBlack[1]
	bottom := rightBottomBlack[1]
	left := leftTopBlack[0]
	right := rightBottomBlack[0]

	if left >= right || top >= bottom {
		return nil, qrscan.ErrNotFound
	}

	if bottom-top != right-left {
		right = left + (bottom - top)
		if right >= image.Width() {
			return nil, qrscan.ErrNotFound
		}
	}

	matrixWidth := int(math.Round(float64(right-left+1) / moduleSize))
	matrixHeight := int(math.Round(float64(bottom-top+1) / moduleSize))
	if matrixWidth <= 0 || matrixHeight <= 0 {
		return nil, qrscan.ErrNotFound
	}
	if matrixHeight != matrixWidth {
		return nil, qrscan.ErrNotFound
	}

	nudge := int(moduleSize / 2.0)
	top += nudge
	left += nudge

	nudgedTooFarRight := left + int(float64(matrixWidth-1)*moduleSize) - right
	if nudgedTooFarRight > 0 {
		if nudgedTooFarRight > nudge {
			return nil, qrscan.ErrNotFound
		}
		left -= nudgedTooFarRight
	}
	nudgedTooFarDown := top + int(float64(matrixHeight-1)*moduleSize) - bottom
	if nudgedTooFarDown > 0 {
		if nudgedTooFarDown > nudge {
			return nil, qrscan.ErrNotFound
		}
		top -= nudgedTooFarDown
	}

	bits := bitutil.NewBitMatrix(matrixWidth)
	for y := 0; y < matrixHeight; y++ {
		iOffset := top + int(float64(y)*moduleSize)
		for x := 0; x < matrixWidth; x++ {
			if image.Get(left+int(float64(x)*moduleSize), iOffset) {
				bits.Set(x, y)
			}
		}
	}
	return bits, nil
}

func moduleSizePure(leftTopBlack []int, image *bitutil.BitMatrix) (float64, error) {
	height := image.Height()
	width := image.Width()
	x := leftTopBlack[0]
	y := leftTopBlack[1]
	inBlack := true
	transitions := 0
	for x < width && y < height {
		if inBlack != image.Get(x, y) {
			transitions++
			if transitions == 5 {
				break
			}
			inBlack = !inBlack
		}
		x++
		y++
	}
	if x == width || y == height {
		return 0, qrscan.ErrNotFound
	}
	return float64(x-leftTopBlack[0]) / 7.0, nil
}
