package strategy

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/qrscan/qrscan"
	"github.com/qrscan/qrscan/binarizerbank"
	"github.com/qrscan/qrscan/bitutil"
	"github.com/qrscan/qrscan/internal"
	"github.com/qrscan/qrscan/preprocess"
	"github.com/qrscan/qrscan/qrcode/decoder"
	"github.com/qrscan/qrscan/qrcode/detector"
)

// Detect runs the full pipeline over a raw pixel buffer (spec §6): binarize,
// find candidates, sample, decode. It tries binarizerbank.Order (or
// cfg.BinarizerOrder) in sequence, expanding to the next binarizer only when
// the current one yields nothing, and returns every distinct payload found
// across all successful attempts.
func Detect(pixels []byte, width, height int, format preprocess.PixelFormat, cfg Config) ([]qrscan.Payload, Telemetry, error) {
	src, err := preprocess.New(pixels, width, height, format)
	if err != nil {
		return nil, Telemetry{}, err
	}
	if cfg.MaxDimension > 0 {
		src = preprocess.Downscale(src, cfg.MaxDimension)
	}
	return detect(src, cfg)
}

// DetectInto is Detect, but writes results into a caller-supplied slice
// instead of allocating a new one, returning how many payloads were written.
// If dst is too small, only len(dst) payloads are written and the rest are
// dropped (recorded as budget skips in telemetry) — the caller is expected
// to size dst from a prior call's QRCodesFound, or over-allocate.
func DetectInto(dst []qrscan.Payload, pixels []byte, width, height int, format preprocess.PixelFormat, cfg Config) (int, Telemetry, error) {
	payloads, tel, err := Detect(pixels, width, height, format, cfg)
	if err != nil {
		return 0, tel, err
	}
	n := copy(dst, payloads)
	if n < len(payloads) {
		tel.BudgetSkips += len(payloads) - n
	}
	return n, tel, nil
}

// DecodeMatrix decodes an already-sampled module grid directly, bypassing
// binarization and detection entirely (spec §6). confidence is optional
// per-cell confidence (spec §4.5); nil disables erasure-capable correction.
func DecodeMatrix(bits *bitutil.BitMatrix, confidence *bitutil.FloatMatrix, cfg Config) (qrscan.Payload, Telemetry, error) {
	tel := Telemetry{}
	dec := newDecoder(cfg)
	result, err := dec.Decode(bits, confidence, "")
	if err != nil {
		reason := classifyFailure(err)
		tel.recordFailure(reason)
		return qrscan.Payload{}, tel, &qrscan.DetectError{Reason: string(reason)}
	}
	tel.BinarizeOK = true
	tel.FormatExtracted = true
	tel.RSDecodeOK = true
	tel.PayloadDecoded = true
	tel.QRCodesFound = 1
	return payloadFromDecoderResult(result, nil), tel, nil
}

func newDecoder(cfg Config) *decoder.Decoder {
	dec := decoder.NewDecoder()
	if cfg.ErasureConfidenceThreshold > 0 {
		dec.SetErasureConfidenceThreshold(cfg.ErasureConfidenceThreshold)
	}
	return dec
}

func detect(src *preprocess.Source, cfg Config) ([]qrscan.Payload, Telemetry, error) {
	tel := Telemetry{}
	deadline := time.Now().Add(cfg.Budget.MaxDuration)
	maxAttempts := cfg.Budget.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultBudget().MaxAttempts
	}

	order := cfg.binarizerOrder()
	dec := newDecoder(cfg)

	var payloads []qrscan.Payload
	seen := make(map[string][]qrscan.Payload)

	for i, kind := range order {
		if tel.AttemptsUsed >= maxAttempts || time.Now().After(deadline) {
			tel.BudgetSkips++
			tel.recordFailure(qrscan.FailureBudgetExhausted)
			break
		}

		tel.AttemptsUsed++
		tel.BinarizersTried = append(tel.BinarizersTried, kind.String())
		if cfg.Debug {
			slog.Debug("strategy: trying binarizer", "kind", kind, "attempt", i+1)
		}

		bin := binarizerbank.New(kind, src, 0)
		matrix, err := bin.BlackMatrix()
		if err != nil {
			tel.recordFailure(qrscan.FailureNoFinders)
			continue
		}
		tel.BinarizeOK = true

		results, err := detector.DetectMultiWithSource(matrix, src, true)
		if err != nil {
			tel.recordFailure(qrscan.FailureNoFinders)
			if i == 0 {
				profile := deriveProfile(0, 0)
				tel.Profile = profile
				order = reorderForProfile(order, profile)
			}
			continue
		}
		tel.FinderPatternsFound += len(results) * 3
		tel.GroupsFound += len(results)
		if cfg.TopKTriplets > 0 && len(results) > cfg.TopKTriplets {
			results = results[:cfg.TopKTriplets]
		}

		avgModule := 0.0
		for _, dr := range results {
			avgModule += moduleSpacing(dr)
		}
		if len(results) > 0 {
			avgModule /= float64(len(results))
		}
		if i == 0 {
			profile := deriveProfile(len(results), avgModule)
			tel.Profile = profile
			order = reorderForProfile(order, profile)
		}

		foundAny := false
		for _, dr := range results {
			tel.TransformsBuilt++
			result, derr := dec.Decode(dr.Bits, dr.Confidence, "")
			if derr != nil {
				tel.recordFailure(classifyFailure(derr))
				continue
			}
			tel.FormatExtracted = true
			tel.RSDecodeOK = true
			tel.PayloadDecoded = true

			payload := payloadFromDecoderResult(result, dr.Points)
			duplicate := false
			for _, prior := range seen[payload.Text] {
				if !disjointBounds(prior.Points, payload.Points) {
					duplicate = true
					break
				}
			}
			if duplicate {
				continue
			}
			seen[payload.Text] = append(seen[payload.Text], payload)
			payloads = append(payloads, payload)
			foundAny = true
		}

		if foundAny {
			tel.QRCodesFound = len(payloads)
			return payloads, tel, nil
		}
	}

	if len(payloads) == 0 {
		return nil, tel, nil
	}
	tel.QRCodesFound = len(payloads)
	return payloads, tel, nil
}

// moduleSpacing estimates a symbol's module size in pixels from its detected
// corner points, for Profile derivation (spec: dense/high-version symbols
// have small modules).
func moduleSpacing(dr *internal.DetectorResult) float64 {
	if len(dr.Points) < 2 || dr.Bits == nil {
		return 0
	}
	dx := dr.Points[1].X - dr.Points[0].X
	dy := dr.Points[1].Y - dr.Points[0].Y
	dist := dx*dx + dy*dy
	if dist <= 0 {
		return 0
	}
	dim := float64(dr.Bits.Width())
	if dim <= 0 {
		return 0
	}
	return math.Sqrt(dist) / dim
}

// pointBounds returns the axis-aligned bounding box of a symbol's corner
// points.
func pointBounds(points []qrscan.ResultPoint) (minX, minY, maxX, maxY float64) {
	minX, minY = points[0].X, points[0].Y
	maxX, maxY = points[0].X, points[0].Y
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY
}

// disjointBounds reports whether two symbols' point bounding boxes do not
// overlap — the spatial test spec §6's dedup rule uses to tell a genuine
// multi-symbol repeat from a duplicate decode of the same symbol. Symbols
// with no points (e.g. from DecodeMatrix) are never treated as disjoint, so
// they always collapse on a text match.
func disjointBounds(a, b []qrscan.ResultPoint) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	aMinX, aMinY, aMaxX, aMaxY := pointBounds(a)
	bMinX, bMinY, bMaxX, bMaxY := pointBounds(b)
	return aMaxX < bMinX || bMaxX < aMinX || aMaxY < bMinY || bMaxY < aMinY
}

// classifyFailure maps a decode error onto the closed FailureReason set
// (spec §6 telemetry). decoder.Decode only distinguishes format-info/version
// failures (ErrFormat) from Reed-Solomon failures (ErrChecksum); bitstream
// parse errors also surface as ErrFormat, so payload-malformed and
// format-unrecoverable share that sentinel and are not told apart: a decode
// that got as far as Reed-Solomon and failed during bitstream parsing is
// rare enough that folding it into
// format-unrecoverable does not hide a real failure mode.
func classifyFailure(err error) qrscan.FailureReason {
	switch {
	case errors.Is(err, qrscan.ErrChecksum):
		return qrscan.FailureRSUnrecoverable
	case errors.Is(err, qrscan.ErrFormat):
		return qrscan.FailureFormatUnrecovered
	case errors.Is(err, qrscan.ErrNotFound):
		return qrscan.FailureNoGroups
	default:
		return qrscan.FailurePayloadMalformed
	}
}

// segmentsFromDecoderResult adapts the bitstream parser's internal per-mode
// run list into the public Segment type FromResult surfaces on Payload
// (mirrors qrcode.segmentsFromDecoderResult — both packages sit downstream
// of decoder.Decode and need the same internal.Segment -> qrscan.Segment
// conversion).
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

// payloadFromDecoderResult adapts a decoder.Decoder result into the public
// Payload type, going through the same qrscan.NewResult/PutMetadata/FromResult
// path qrcode.Reader.Decode uses (payload.go's FromResult doc comment calls
// this out as the one stable conversion point both callers should share).
func payloadFromDecoderResult(dr *internal.DecoderResult, points []internal.ResultPoint) qrscan.Payload {
	rp := make([]qrscan.ResultPoint, len(points))
	for i, pt := range points {
		rp[i] = qrscan.ResultPoint{X: pt.X, Y: pt.Y}
	}

	result := qrscan.NewResult(dr.Text, dr.RawBytes, rp, qrscan.FormatQRCode)
	if dr.ByteSegments != nil {
		result.PutMetadata(qrscan.MetadataByteSegments, dr.ByteSegments)
	}
	if segments := segmentsFromDecoderResult(dr); segments != nil {
		result.PutMetadata(qrscan.MetadataSegments, segments)
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
	result.PutMetadata(qrscan.MetadataVersion, dr.Version)
	result.PutMetadata(qrscan.MetadataMaskPattern, dr.MaskPattern)

	return qrscan.FromResult(result)
}
