// Package binarizerbank implements the three global/local thresholding
// strategies the strategy controller cycles through: Otsu (global),
// Sauvola (local contrast), and adaptive-mean (local brightness).
//
// The algorithms are ported from the integral-image formulation in
// original_source/src/utils/binarization.rs rather than from the teacher's
// GlobalHistogram/Hybrid pair, which use a different (valley-search,
// block-averaged) thresholding strategy and remain in binarizer/ as
// additional bank members.
package binarizerbank

import (
	"math"

	"github.com/qrscan/qrscan"
	"github.com/qrscan/qrscan/bitutil"
)

// Kind identifies one of the three binarization strategies.
type Kind int

const (
	Otsu Kind = iota
	Sauvola
	AdaptiveMean
)

// String returns the name used in strategy telemetry.
func (k Kind) String() string {
	switch k {
	case Otsu:
		return "otsu"
	case Sauvola:
		return "sauvola"
	case AdaptiveMean:
		return "adaptive_mean"
	default:
		return "unknown"
	}
}

// Order is the fixed selection order §4.1 mandates: Otsu, then Sauvola,
// then adaptive mean.
var Order = []Kind{Otsu, Sauvola, AdaptiveMean}

// sauvolaR is the dynamic-range normalization constant from
// original_source/src/utils/binarization.rs's sauvola_binarize_core.
const sauvolaR = 128.0

// sauvolaK is the Sauvola sensitivity constant (spec default 0.2).
const sauvolaK = 0.2

// defaultWindow is the Sauvola/adaptive-mean window side when no module-size
// estimate is available (spec §4.1 default 31).
const defaultWindow = 31

// integralImage holds prefix sums of a grayscale plane and, for Sauvola,
// prefix sums of squared pixel values -- ported from build_integral_image
// and build_integral_sq_image.
type integralImage struct {
	width, height int
	sum           []int64
	sumSq         []int64
}

func buildIntegralImage(luminances []byte, width, height int, withSquares bool) *integralImage {
	img := &integralImage{
		width:  width,
		height: height,
		sum:    make([]int64, (width+1)*(height+1)),
	}
	if withSquares {
		img.sumSq = make([]int64, (width+1)*(height+1))
	}
	stride := width + 1
	for y := 0; y < height; y++ {
		var rowSum, rowSumSq int64
		for x := 0; x < width; x++ {
			v := int64(luminances[y*width+x])
			rowSum += v
			idx := (y+1)*stride + (x + 1)
			img.sum[idx] = img.sum[y*stride+(x+1)] + rowSum
			if withSquares {
				rowSumSq += v * v
				img.sumSq[idx] = img.sumSq[y*stride+(x+1)] + rowSumSq
			}
		}
	}
	return img
}

// querySum returns the sum of pixels in the inclusive rectangle
// [x0,x1] x [y0,y1], clamped to image bounds -- ported from
// query_integral_sum's inclusion-exclusion.
func (img *integralImage) querySum(x0, y0, x1, y1 int) int64 {
	x0, y0, x1, y1 = img.clamp(x0, y0, x1, y1)
	stride := img.width + 1
	a := img.sum[y0*stride+x0]
	b := img.sum[y0*stride+(x1+1)]
	c := img.sum[(y1+1)*stride+x0]
	d := img.sum[(y1+1)*stride+(x1+1)]
	return d + a - b - c
}

func (img *integralImage) querySumSq(x0, y0, x1, y1 int) int64 {
	x0, y0, x1, y1 = img.clamp(x0, y0, x1, y1)
	stride := img.width + 1
	a := img.sumSq[y0*stride+x0]
	b := img.sumSq[y0*stride+(x1+1)]
	c := img.sumSq[(y1+1)*stride+x0]
	d := img.sumSq[(y1+1)*stride+(x1+1)]
	return d + a - b - c
}

func (img *integralImage) clamp(x0, y0, x1, y1 int) (int, int, int, int) {
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > img.width-1 {
		x1 = img.width - 1
	}
	if y1 > img.height-1 {
		y1 = img.height - 1
	}
	return x0, y0, x1, y1
}

// Binarizer implements qrscan.Binarizer using one of the three strategies,
// with the local-window strategies deriving their window side from an
// estimated module size when one is known (spec §4.1: w = max(31, 7*module_size)).
type Binarizer struct {
	kind       Kind
	source     qrscan.LuminanceSource
	moduleSize float64
	matrix     *bitutil.BitMatrix
}

// New creates a Binarizer of the given kind over source. moduleSize is an
// optional estimated QR module size in pixels (0 = use the default window);
// it only affects Sauvola and AdaptiveMean.
func New(kind Kind, source qrscan.LuminanceSource, moduleSize float64) *Binarizer {
	return &Binarizer{kind: kind, source: source, moduleSize: moduleSize}
}

// LuminanceSource returns the underlying source.
func (b *Binarizer) LuminanceSource() qrscan.LuminanceSource { return b.source }

// CreateBinarizer returns a new Binarizer of the same kind over source.
func (b *Binarizer) CreateBinarizer(source qrscan.LuminanceSource) qrscan.Binarizer {
	return New(b.kind, source, b.moduleSize)
}

// Width returns the image width.
func (b *Binarizer) Width() int { return b.source.Width() }

// Height returns the image height.
func (b *Binarizer) Height() int { return b.source.Height() }

// BlackRow returns a row of the binarized matrix.
func (b *Binarizer) BlackRow(y int, row *bitutil.BitArray) (*bitutil.BitArray, error) {
	matrix, err := b.BlackMatrix()
	if err != nil {
		return nil, err
	}
	width := matrix.Width()
	if row == nil || row.Size() < width {
		row = bitutil.NewBitArray(width)
	} else {
		row.Clear()
	}
	for x := 0; x < width; x++ {
		if matrix.Get(x, y) {
			row.Set(x)
		}
	}
	return row, nil
}

// BlackMatrix computes and caches the binarized matrix.
func (b *Binarizer) BlackMatrix() (*bitutil.BitMatrix, error) {
	if b.matrix != nil {
		return b.matrix, nil
	}
	width := b.source.Width()
	height := b.source.Height()
	if width <= 0 || height <= 0 {
		return nil, qrscan.ErrNotFound
	}
	luminances := b.source.Matrix()

	var matrix *bitutil.BitMatrix
	switch b.kind {
	case Otsu:
		matrix = otsuBinarize(luminances, width, height)
	case Sauvola:
		matrix = sauvolaBinarize(luminances, width, height, b.window())
	case AdaptiveMean:
		matrix = adaptiveMeanBinarize(luminances, width, height, b.window())
	default:
		matrix = otsuBinarize(luminances, width, height)
	}
	b.matrix = matrix
	return matrix, nil
}

func (b *Binarizer) window() int {
	if b.moduleSize <= 0 {
		return defaultWindow
	}
	w := int(7 * b.moduleSize)
	if w < defaultWindow {
		w = defaultWindow
	}
	if w%2 == 0 {
		w++
	}
	return w
}

// otsuBinarize ports calculate_otsu_threshold + otsu_binarize.
func otsuBinarize(luminances []byte, width, height int) *bitutil.BitMatrix {
	threshold := calculateOtsuThreshold(luminances)
	matrix := bitutil.NewBitMatrixWithSize(width, height)
	for y := 0; y < height; y++ {
		offset := y * width
		for x := 0; x < width; x++ {
			if int(luminances[offset+x]) <= threshold {
				matrix.Set(x, y)
			}
		}
	}
	return matrix
}

func calculateOtsuThreshold(luminances []byte) int {
	var histogram [256]int
	for _, v := range luminances {
		histogram[v]++
	}
	total := len(luminances)
	if total == 0 {
		return 128
	}

	var sumAll float64
	for i, count := range histogram {
		sumAll += float64(i * count)
	}

	var sumBackground float64
	var weightBackground int
	bestThreshold := 128
	bestVariance := -1.0

	for t := 0; t < 256; t++ {
		weightBackground += histogram[t]
		if weightBackground == 0 {
			continue
		}
		weightForeground := total - weightBackground
		if weightForeground == 0 {
			break
		}
		sumBackground += float64(t * histogram[t])

		meanBackground := sumBackground / float64(weightBackground)
		meanForeground := (sumAll - sumBackground) / float64(weightForeground)
		meanDiff := meanBackground - meanForeground

		variance := float64(weightBackground) * float64(weightForeground) * meanDiff * meanDiff
		if variance > bestVariance {
			bestVariance = variance
			bestThreshold = t
		}
	}
	return bestThreshold
}

// sauvolaBinarize ports sauvola_binarize_core.
func sauvolaBinarize(luminances []byte, width, height, window int) *bitutil.BitMatrix {
	img := buildIntegralImage(luminances, width, height, true)
	matrix := bitutil.NewBitMatrixWithSize(width, height)
	radius := window / 2

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			x0, y0, x1, y1 := img.clamp(x-radius, y-radius, x+radius, y+radius)
			count := float64((x1 - x0 + 1) * (y1 - y0 + 1))
			sum := img.querySum(x0, y0, x1, y1)
			sumSq := img.querySumSq(x0, y0, x1, y1)

			mean := float64(sum) / count
			variance := float64(sumSq)/count - mean*mean
			if variance < 0 {
				variance = 0
			}
			stdDev := math.Sqrt(variance)

			threshold := mean * (1 + sauvolaK*(stdDev/sauvolaR-1))
			if float64(luminances[y*width+x]) < threshold {
				matrix.Set(x, y)
			}
		}
	}
	return matrix
}

// adaptiveMeanBinarize ports adaptive_binarize_core.
func adaptiveMeanBinarize(luminances []byte, width, height, window int) *bitutil.BitMatrix {
	img := buildIntegralImage(luminances, width, height, false)
	matrix := bitutil.NewBitMatrixWithSize(width, height)
	radius := window / 2

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			x0, y0, x1, y1 := img.clamp(x-radius, y-radius, x+radius, y+radius)
			count := float64((x1 - x0 + 1) * (y1 - y0 + 1))
			sum := img.querySum(x0, y0, x1, y1)
			mean := float64(sum) / count
			if float64(luminances[y*width+x]) < mean {
				matrix.Set(x, y)
			}
		}
	}
	return matrix
}
