package strategy

import "github.com/qrscan/qrscan"

// Telemetry accumulates over one Detect/DetectInto call, matching spec §6's
// schema: {binarize_ok, finder_patterns_found, groups_found,
// transforms_built, format_extracted, rs_decode_ok, payload_decoded,
// qr_codes_found, budget_skips} plus a failure-signature tally.
type Telemetry struct {
	BinarizeOK          bool
	FinderPatternsFound int
	GroupsFound         int
	TransformsBuilt     int
	FormatExtracted     bool
	RSDecodeOK          bool
	PayloadDecoded      bool
	QRCodesFound        int
	BudgetSkips         int

	// Profile is the StrategyProfile this run was routed under.
	Profile Profile

	// AttemptsUsed records how many attempts of Config.Budget were spent.
	AttemptsUsed int

	// Failures tags every FailureReason emitted during this run, in the
	// order encountered.
	Failures []qrscan.FailureReason

	// BinarizersTried records, in order, which binarizerbank.Kind values
	// were attempted before a result was accepted (or the budget ran out).
	BinarizersTried []string
}

func (t *Telemetry) recordFailure(reason qrscan.FailureReason) {
	t.Failures = append(t.Failures, reason)
}
