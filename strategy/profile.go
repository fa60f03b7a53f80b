package strategy

import "github.com/qrscan/qrscan/binarizerbank"

// Profile is derived once per image from the first binarization pass'
// candidate count and finder-pattern size spread, mirroring
// original_source/src/pipeline.rs's StrategyProfile. It only ever reorders
// the fixed binarizer/fallback expansion sequence — it never skips a step.
type Profile int

const (
	ProfileFastSingle Profile = iota
	ProfileMultiQRHeavy
	ProfileRotationHeavy
	ProfileHighVersionPrecision
	ProfileLowContrastRecovery
)

// String returns the profile's telemetry tag.
func (p Profile) String() string {
	switch p {
	case ProfileFastSingle:
		return "fast_single"
	case ProfileMultiQRHeavy:
		return "multi_qr_heavy"
	case ProfileRotationHeavy:
		return "rotation_heavy"
	case ProfileHighVersionPrecision:
		return "high_version_precision"
	case ProfileLowContrastRecovery:
		return "low_contrast_recovery"
	default:
		return "unknown"
	}
}

// deriveProfile classifies the image from the first attempt's outcome:
// candidateCount is how many finder-pattern triplets the run-length scan
// found, and avgModuleSize is their mean estimated module size in pixels.
// Small modules mean a dense/high-version symbol; many candidates mean a
// multi-QR scene; very few or zero candidates on the first (Otsu) pass mean
// contrast is the problem, not geometry.
func deriveProfile(candidateCount int, avgModuleSize float64) Profile {
	switch {
	case candidateCount == 0:
		return ProfileLowContrastRecovery
	case candidateCount >= 3:
		return ProfileMultiQRHeavy
	case avgModuleSize > 0 && avgModuleSize <= 2.0:
		return ProfileHighVersionPrecision
	default:
		return ProfileFastSingle
	}
}

// reorderForProfile permutes order (a copy of binarizerbank.Order or a
// caller override) so the binarizer most likely to help the derived profile
// runs first, without dropping any entry (spec: reorder, never skip).
func reorderForProfile(order []binarizerbank.Kind, profile Profile) []binarizerbank.Kind {
	if profile != ProfileLowContrastRecovery {
		return order
	}
	reordered := make([]binarizerbank.Kind, 0, len(order))
	for _, k := range order {
		if k == binarizerbank.Sauvola {
			reordered = append(reordered, k)
		}
	}
	for _, k := range order {
		if k != binarizerbank.Sauvola {
			reordered = append(reordered, k)
		}
	}
	return reordered
}
