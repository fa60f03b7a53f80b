package detector

import (
	"math"
	"sort"

	"github.com/qrscan/qrscan"
	"github.com/qrscan/qrscan/bitutil"
	"github.com/qrscan/qrscan/internal"
)

const (
	maxModuleCountPerEdge    = 180.0
	minModuleCountPerEdge    = 9.0
	diffModSizeCutoffPercent = 0.05
	diffModSizeCutoff        = 0.5
	multiMinSkip             = 3
	multiMaxModules          = 97
)

// DetectMulti detects multiple QR codes in the given image.
func DetectMulti(image *bitutil.BitMatrix, tryHarder bool) ([]*internal.DetectorResult, error) {
	return DetectMultiWithSource(image, nil, tryHarder)
}

// DetectMultiWithSource is DetectMulti, but additionally attaches per-cell
// confidence (spec §4.5) to every returned symbol when source is non-nil.
func DetectMultiWithSource(image *bitutil.BitMatrix, source qrscan.LuminanceSource, tryHarder bool) ([]*internal.DetectorResult, error) {
	det := &Detector{image: image, source: source}

	infos, err := findMulti(det, tryHarder)
	if err != nil {
		return nil, err
	}

	var results []*internal.DetectorResult
	for _, info := range infos {
		result, err := det.processFinderPatternInfo(info)
		if err == nil {
			results = append(results, result)
		}
	}
	if len(results) == 0 {
		return nil, qrscan.ErrNotFound
	}
	return results, nil
}

// findMulti scans the whole image for finder-pattern candidates the same way
// a single-symbol Detector does, but keeps every plausible triplet instead of
// stopping at the first one found.
func findMulti(d *Detector, tryHarder bool) ([]*FinderPatternInfo, error) {
	image := d.image
	maxI := image.Height()
	maxJ := image.Width()

	skip := (3 * maxI) / (4 * multiMaxModules)
	if skip < multiMinSkip || tryHarder {
		skip = multiMinSkip
	}

	var possibleCenters []*FinderPattern
	for i := skip - 1; i < maxI; i += skip {
		stateCount := [5]int{}
		state := 0
		for j := 0; j < maxJ; j++ {
			if image.Get(j, i) {
				if state&1 == 1 {
					state++
				}
				stateCount[state]++
			} else {
				if state&1 == 0 {
					if state == 4 {
						if foundFinderPattern(stateCount) {
							d.handlePossibleCenter(stateCount, i, j, &possibleCenters)
						}
						stateCount[0] = stateCount[2]
						stateCount[1] = stateCount[3]
						stateCount[2] = stateCount[4]
						stateCount[3] = 1
						stateCount[4] = 0
						state = 3
					} else {
						state++
						stateCount[state]++
					}
				} else {
					stateCount[state]++
				}
			}
		}
		if state == 4 && foundFinderPattern(stateCount) {
			d.handlePossibleCenter(stateCount, i, maxJ, &possibleCenters)
		}
	}

	patternGroups, err := selectMultipleBestPatterns(possibleCenters)
	if err != nil {
		return nil, err
	}

	var result []*FinderPatternInfo
	for _, group := range patternGroups {
		result = append(result, orderFinderPatterns(group[:]))
	}
	if len(result) == 0 {
		return nil, qrscan.ErrNotFound
	}
	return result, nil
}

func selectMultipleBestPatterns(possibleCenters []*FinderPattern) ([][3]*FinderPattern, error) {
	// Filter to patterns seen at least twice
	var filtered []*FinderPattern
	for _, fp := range possibleCenters {
		if fp.Count >= 2 {
			filtered = append(filtered, fp)
		}
	}
	size := len(filtered)
	if size < 3 {
		return nil, qrscan.ErrNotFound
	}

	if size == 3 {
		return [][3]*FinderPattern{{filtered[0], filtered[1], filtered[2]}}, nil
	}

	// Sort by estimated module size descending
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[j].EstimatedModuleSize < filtered[i].EstimatedModuleSize
	})

	var results [][3]*FinderPattern
	for i1 := 0; i1 < size-2; i1++ {
		p1 := filtered[i1]

		for i2 := i1 + 1; i2 < size-1; i2++ {
			p2 := filtered[i2]

			vModSize12A := math.Abs(p1.EstimatedModuleSize - p2.EstimatedModuleSize)
			vModSize12 := vModSize12A / math.Min(p1.EstimatedModuleSize, p2.EstimatedModuleSize)
			if vModSize12A > diffModSizeCutoff && vModSize12 >= diffModSizeCutoffPercent {
				break
			}

			for i3 := i2 + 1; i3 < size; i3++ {
				p3 := filtered[i3]

				vModSize23A := math.Abs(p2.EstimatedModuleSize - p3.EstimatedModuleSize)
				vModSize23 := vModSize23A / math.Min(p2.EstimatedModuleSize, p3.EstimatedModuleSize)
				if vModSize23A > diffModSizeCutoff && vModSize23 >= diffModSizeCutoffPercent {
					break
				}

				test := [3]*FinderPattern{p1, p2, p3}
				// Order using the same ordering as single QR detection
				ordered := orderFinderPatterns(test[:])

				dA := distanceFP(ordered.TopLeft, ordered.BottomLeft)
				dC := distanceFP(ordered.TopRight, ordered.BottomLeft)
				dB := distanceFP(ordered.TopLeft, ordered.TopRight)

				estimatedModuleCount := (dA + dB) / (p1.EstimatedModuleSize * 2.0)
				if estimatedModuleCount > maxModuleCountPerEdge || estimatedModuleCount < minModuleCountPerEdge {
					continue
				}

				vABBC := math.Abs((dA - dB) / math.Min(dA, dB))
				if vABBC >= 0.1 {
					continue
				}

				dCpy := math.Sqrt(dA*dA + dB*dB)
				vPyC := math.Abs((dC - dCpy) / math.Min(dC, dCpy))
				if vPyC >= 0.1 {
					continue
				}

				results = append(results, test)
			}
		}
	}

	if len(results) == 0 {
		return nil, qrscan.ErrNotFound
	}
	return results, nil
}
