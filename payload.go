package qrscan

import "errors"

// FailureReason classifies why a symbol candidate did not produce a payload.
// The set is closed: callers may switch exhaustively over these values.
type FailureReason string

const (
	FailureNoFinders         FailureReason = "no_finders"
	FailureNoGroups          FailureReason = "no_groups"
	FailureTransformRejected FailureReason = "transform_rejected"
	FailureFormatUnrecovered FailureReason = "format_unrecoverable"
	FailureRSUnrecoverable   FailureReason = "rs_unrecoverable"
	FailurePayloadMalformed  FailureReason = "payload_malformed"
	FailureBudgetExhausted   FailureReason = "budget_exhausted"
)

// DetectError is a fatal-to-call validation error (§7): a malformed request,
// not a per-symbol decode failure. Per-symbol failures are reported via
// FailureReason in telemetry, never as an error from Detect.
type DetectError struct {
	Reason string
}

func (e *DetectError) Error() string { return "qrscan: " + e.Reason }

// ErrInvalidBuffer's message is the DetectError Reason when the pixel buffer
// length does not match width*height*bytesPerPixel for the declared
// PixelFormat; DetectError does not wrap it.
var ErrInvalidBuffer = errors.New("pixel buffer length does not match declared dimensions")

// ErrInvalidDimensions's message is the DetectError Reason when width or
// height is zero; DetectError does not wrap it.
var ErrInvalidDimensions = errors.New("width and height must be positive")

// ErrUnsupportedFormat's message is the DetectError Reason for an
// unrecognized PixelFormat; DetectError does not wrap it.
var ErrUnsupportedFormat = errors.New("unsupported pixel format")

// Segment is one mode-tagged run of decoded payload data (§3, Payload entity),
// in the order the bitstream parser encountered them. Mode is one of
// "numeric", "alphanumeric", "byte", "kanji", or "hanzi"; Data is only set
// for "byte" segments (the raw, pre-charset-decode bytes).
type Segment struct {
	Mode string
	Text string
	Data []byte
}

// Payload is the final decoded output of one QR symbol.
type Payload struct {
	Text     string
	Segments []Segment
	RawBytes []byte

	Version             int
	MaskPattern         int
	ECLevel             string
	ErrorsCorrected     int
	ErasuresCorrected   int
	Points              []ResultPoint
	SymbologyIdentifier string

	StructuredAppendIndex  int
	StructuredAppendTotal  int
	StructuredAppendParity int
	HasStructuredAppend    bool
}

// FromResult adapts an internal Reader Result into a public Payload. It lives
// in the root package because both the qrcode reader and the strategy
// controller need a single, stable conversion point.
func FromResult(r *Result) Payload {
	if r == nil {
		return Payload{}
	}
	p := Payload{
		Text:     r.Text,
		RawBytes: r.RawBytes,
		Points:   append([]ResultPoint(nil), r.Points...),
	}
	if segs, ok := r.Metadata[MetadataSegments].([]Segment); ok {
		p.Segments = segs
	}
	if v, ok := r.Metadata[MetadataErrorCorrectionLevel].(string); ok {
		p.ECLevel = v
	}
	if v, ok := r.Metadata[MetadataVersion].(int); ok {
		p.Version = v
	}
	if v, ok := r.Metadata[MetadataMaskPattern].(int); ok {
		p.MaskPattern = v
	}
	if v, ok := r.Metadata[MetadataErrorsCorrected].(int); ok {
		p.ErrorsCorrected = v
	}
	if v, ok := r.Metadata[MetadataErasuresCorrected].(int); ok {
		p.ErasuresCorrected = v
	}
	if v, ok := r.Metadata[MetadataSymbologyIdentifier].(string); ok {
		p.SymbologyIdentifier = v
	}
	if seq, ok := r.Metadata[MetadataStructuredAppendSequence].(int); ok {
		p.HasStructuredAppend = true
		p.StructuredAppendIndex = seq
	}
	if parity, ok := r.Metadata[MetadataStructuredAppendParity].(int); ok {
		p.StructuredAppendParity = parity
	}
	return p
}
