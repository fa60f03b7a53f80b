// Package strategy is the controller that drives the binarizer bank,
// detector, and decoder through the budgeted fallback-expansion sequence
// described in spec §4.7, and exposes the module's top-level entry points
// (Detect, DetectInto, DecodeMatrix, spec §6). It is grounded on
// original_source/src/pipeline.rs's StrategyProfile/attempt-budget dispatch
// and on the teacher's multiformatreader.go registry-of-readers idiom,
// generalized here to a registry of binarizer kinds tried in a fixed order.
package strategy

import (
	"time"

	"github.com/qrscan/qrscan/binarizerbank"
)

// Budget bounds how much work a single Detect call may do: a discrete
// attempt counter plus a wall-clock deadline (original_source/src/decoder/config.rs's
// image_decode_attempt_budget=72, candidate_time_budget_ms=120 — a
// resolved Open Question, see DESIGN.md).
type Budget struct {
	MaxAttempts int
	MaxDuration time.Duration
}

// DefaultBudget matches original_source's per-image defaults.
func DefaultBudget() Budget {
	return Budget{MaxAttempts: 72, MaxDuration: 120 * time.Millisecond}
}

// Config parameterizes one Detect/DetectInto/DecodeMatrix call (spec §6).
type Config struct {
	// MaxDimension downsamples oversized input before detection runs; 0
	// disables downsampling. At the CLI layer it comes from the
	// detect.max_dimension configuration key (environment variable
	// QRSCAN_DETECT_MAX_DIMENSION); QR_MAX_DIM is not read.
	MaxDimension int

	// Debug enables verbose slog output from this package (decode packages
	// themselves stay silent, matching the teacher).
	Debug bool

	// TopKTriplets caps how many finder-pattern triplets DetectMulti
	// forwards to decoding per binarizer attempt; 0 means no cap. At the CLI
	// layer it comes from detect.top_k_triplets (QRSCAN_DETECT_TOP_K_TRIPLETS);
	// QR_DECODE_TOP_K is not read.
	TopKTriplets int

	Budget Budget

	// EnableContourFallback is carried in the configuration but Detect does
	// not read it: there is no connected-components finder search, so the
	// run-length scan is the only finder search.
	EnableContourFallback bool

	// EnableMeshWarp and EnableDeskew are carried in the configuration but
	// Detect does not read them: grid sampling always uses the single
	// perspective transform, with no mesh-warp or deskew pass. Both default
	// off.
	EnableMeshWarp bool
	EnableDeskew   bool

	// ErasureConfidenceThreshold is the per-codeword confidence (spec §4.5)
	// below which decoder.Decoder marks a codeword an erasure rather than
	// leaving it for blind Reed-Solomon correction (spec §4.6 step 6).
	ErasureConfidenceThreshold float64

	// MaxErasures is carried in the configuration but Detect, DetectInto and
	// DecodeMatrix do not read it: every codeword below
	// ErasureConfidenceThreshold is declared an erasure, and a block with
	// more erasures than EC codewords fails Reed-Solomon decoding.
	MaxErasures int

	// BinarizerOrder overrides the fixed Otsu -> Sauvola -> adaptive-mean
	// selection order (spec §4.1). Nil uses binarizerbank.Order.
	BinarizerOrder []binarizerbank.Kind
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxDimension:               0,
		TopKTriplets:               6,
		Budget:                     DefaultBudget(),
		ErasureConfidenceThreshold: 0.16,
	}
}

func (c Config) binarizerOrder() []binarizerbank.Kind {
	if c.BinarizerOrder != nil {
		return c.BinarizerOrder
	}
	return binarizerbank.Order
}
