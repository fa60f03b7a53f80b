package decoder

import (
	"github.com/qrscan/qrscan"
	"github.com/qrscan/qrscan/bitutil"
	"github.com/qrscan/qrscan/internal"
	"github.com/qrscan/qrscan/reedsolomon"
)

// defaultErasureConfidenceThreshold is the default below which a codeword is
// marked as an erasure rather than left for the Reed-Solomon decoder to find
// blind (spec §9 open question; original_source/src/decoder/config.rs's
// rs_erasure_conf_threshold default of 40 on a 0-255 scale, i.e. ~0.16 here).
// strategy.Config threads its own ErasureConfidenceThreshold through
// SetErasureConfidenceThreshold; this constant only backstops direct use of
// decoder.NewDecoder outside that controller.
const defaultErasureConfidenceThreshold = 0.16

// Decoder decodes QR codes.
type Decoder struct {
	rsDecoder         *reedsolomon.Decoder
	erasureThreshold  float64
}

// NewDecoder creates a new QR code Decoder using the default erasure
// confidence threshold.
func NewDecoder() *Decoder {
	return &Decoder{
		rsDecoder:        reedsolomon.NewDecoder(reedsolomon.QRCodeField256),
		erasureThreshold: defaultErasureConfidenceThreshold,
	}
}

// SetErasureConfidenceThreshold overrides the confidence below which a
// codeword is treated as an erasure (strategy.Config.ErasureConfidenceThreshold).
func (d *Decoder) SetErasureConfidenceThreshold(threshold float64) {
	d.erasureThreshold = threshold
}

// Decode decodes a BitMatrix into a DecoderResult. confidence, if non-nil,
// carries a per-module confidence grid aligned with bits (spec §4.5) used to
// mark low-confidence codewords as Reed-Solomon erasures.
func (d *Decoder) Decode(bits *bitutil.BitMatrix, confidence *bitutil.FloatMatrix, characterSet string) (*internal.DecoderResult, error) {
	parser, err := NewBitMatrixParser(bits)
	if err != nil {
		return nil, err
	}
	if confidence != nil {
		parser.SetConfidence(confidence)
	}

	result, err := d.decodeParser(parser, characterSet)
	if err == nil {
		return result, nil
	}

	// Try mirrored reading
	parser.Remask()
	parser.SetMirror(true)

	if _, verr := parser.ReadVersion(); verr != nil {
		return nil, err // return original error
	}
	if _, ferr := parser.ReadFormatInformation(); ferr != nil {
		return nil, err
	}

	parser.Mirror()

	result, err2 := d.decodeParser(parser, characterSet)
	if err2 != nil {
		return nil, err // return original error
	}
	return result, nil
}

func (d *Decoder) decodeParser(parser *BitMatrixParser, characterSet string) (*internal.DecoderResult, error) {
	version, err := parser.ReadVersion()
	if err != nil {
		return nil, err
	}
	formatInfo, err := parser.ReadFormatInformation()
	if err != nil {
		return nil, err
	}
	ecLevel := formatInfo.ECLevel

	codewords, err := parser.ReadCodewords()
	if err != nil {
		return nil, err
	}
	codewordConfidence := parser.CodewordConfidence()

	dataBlocks := GetDataBlocks(codewords, codewordConfidence, version, ecLevel)

	totalBytes := 0
	for _, db := range dataBlocks {
		totalBytes += db.NumDataCodewords
	}
	resultBytes := make([]byte, totalBytes)
	resultOffset := 0

	errorsCorrected := 0
	erasuresCorrected := 0
	for _, db := range dataBlocks {
		corrected, erasures, err := d.correctErrors(db.Codewords, db.Confidence, db.NumDataCodewords)
		if err != nil {
			return nil, err
		}
		errorsCorrected += corrected
		erasuresCorrected += erasures
		copy(resultBytes[resultOffset:], db.Codewords[:db.NumDataCodewords])
		resultOffset += db.NumDataCodewords
	}

	result, err := DecodeBitStream(resultBytes, version, ecLevel, characterSet)
	if err != nil {
		return nil, err
	}
	result.ErrorsCorrected = errorsCorrected
	result.Erasures = erasuresCorrected
	result.Version = version.Number
	result.MaskPattern = int(formatInfo.DataMask)
	return result, nil
}

// correctErrors runs (possibly erasure-capable) Reed-Solomon correction on
// one block in place. It returns the number of corrected positions and how
// many of those were pre-declared erasures (spec §4.6 step 6).
func (d *Decoder) correctErrors(codewordBytes []byte, confidence []float64, numDataCodewords int) (int, int, error) {
	numCodewords := len(codewordBytes)
	codewordsInts := make([]int, numCodewords)
	for i := 0; i < numCodewords; i++ {
		codewordsInts[i] = int(codewordBytes[i]) & 0xFF
	}

	var erasures []int
	if confidence != nil {
		for i, c := range confidence {
			if c < d.erasureThreshold {
				erasures = append(erasures, i)
			}
		}
	}

	corrected, err := d.rsDecoder.DecodeWithErasures(codewordsInts, numCodewords-numDataCodewords, erasures)
	if err != nil {
		return 0, 0, qrscan.ErrChecksum
	}
	for i := 0; i < numDataCodewords; i++ {
		codewordBytes[i] = byte(codewordsInts[i])
	}
	return corrected, len(erasures), nil
}
