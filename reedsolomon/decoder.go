package reedsolomon

import "errors"

// ErrReedSolomon indicates a Reed-Solomon decoding failure.
var ErrReedSolomon = errors.New("reedsolomon: decoding error")

// Decoder performs Reed-Solomon error correction decoding.
type Decoder struct {
	field *GenericGF
}

// NewDecoder creates a new Decoder for the given field.
func NewDecoder(field *GenericGF) *Decoder {
	return &Decoder{field: field}
}

// Decode corrects errors in received in-place and returns the number of
// errors corrected. twoS is the number of error-correction codewords. It is
// equivalent to DecodeWithErasures with no erasure positions.
func (d *Decoder) Decode(received []int, twoS int) (int, error) {
	return d.DecodeWithErasures(received, twoS, nil)
}

// DecodeWithErasures corrects errors and known erasures in received
// in-place, returning the number of corrected positions (errors plus
// erasures). twoS is the number of error-correction codewords; erasures
// names positions in received already known to be unreliable (e.g. from a
// low grid-sampler confidence score), which relaxes the correctable bound
// from 2s <= twoS to 2s + e <= twoS (spec §4.6 step 6).
//
// This generalizes the errors-only decode above via the standard
// modified-syndrome (Forney) technique for combined errors-and-erasures
// decoding: build an erasure locator polynomial from the known erasure
// positions, fold it into the syndrome to get the Forney syndrome, run the
// same Euclidean algorithm with its stopping bound raised by the erasure
// count (it stops once 2*deg(remainder) < twoS + e), then combine the erasure locator with the newly found error
// locator before the existing Chien search and Forney magnitude steps.
func (d *Decoder) DecodeWithErasures(received []int, twoS int, erasures []int) (int, error) {
	numErasures := len(erasures)
	if numErasures > twoS {
		return 0, ErrReedSolomon
	}

	poly := newGenericGFPoly(d.field, received)
	syndromeCoefficients := make([]int, twoS)
	noError := true
	for i := 0; i < twoS; i++ {
		eval := poly.EvaluateAt(d.field.Exp(i + d.field.GeneratorBase()))
		syndromeCoefficients[twoS-1-i] = eval
		if eval != 0 {
			noError = false
		}
	}
	if noError {
		return 0, nil
	}
	syndrome := newGenericGFPoly(d.field, syndromeCoefficients)

	erasureLocator := d.field.One()
	for _, pos := range erasures {
		xk := d.field.Exp(len(received) - 1 - pos)
		erasureLocator = erasureLocator.MultiplyPoly(newGenericGFPoly(d.field, []int{xk, 1}))
	}

	forneySyndrome := truncateModXN(syndrome.MultiplyPoly(erasureLocator), twoS)

	sigmaOmega, err := d.runEuclideanAlgorithm(d.field.BuildMonomial(twoS, 1), forneySyndrome, twoS+numErasures)
	if err != nil {
		return 0, err
	}
	sigma := sigmaOmega[0]
	omega := sigmaOmega[1]

	errorLocator := erasureLocator.MultiplyPoly(sigma)
	errorLocations, err := d.findErrorLocations(errorLocator)
	if err != nil {
		return 0, err
	}
	errorMagnitudes := d.findErrorMagnitudes(omega, errorLocations)
	for i := 0; i < len(errorLocations); i++ {
		position := len(received) - 1 - d.field.Log(errorLocations[i])
		if position < 0 {
			return 0, ErrReedSolomon
		}
		received[position] = AddOrSubtract(received[position], errorMagnitudes[i])
	}
	return len(errorLocations), nil
}

// truncateModXN drops all terms of degree >= n, i.e. reduces p modulo x^n.
// Coefficients are stored highest-degree-first, so this keeps only the
// lowest n coefficients.
func truncateModXN(p *GenericGFPoly, n int) *GenericGFPoly {
	coeffs := p.Coefficients()
	if len(coeffs) <= n {
		return p
	}
	return newGenericGFPoly(p.field, append([]int{}, coeffs[len(coeffs)-n:]...))
}

func (d *Decoder) runEuclideanAlgorithm(a, b *GenericGFPoly, R int) ([2]*GenericGFPoly, error) {
	if a.Degree() < b.Degree() {
		a, b = b, a
	}

	rLast := a
	r := b
	tLast := d.field.Zero()
	t := d.field.One()

	for 2*r.Degree() >= R {
		rLastLast := rLast
		tLastLast := tLast
		rLast = r
		tLast = t

		if rLast.IsZero() {
			return [2]*GenericGFPoly{}, ErrReedSolomon
		}
		r = rLastLast
		q := d.field.Zero()
		denominatorLeadingTerm := rLast.GetCoefficient(rLast.Degree())
		dltInverse := d.field.Inverse(denominatorLeadingTerm)
		for r.Degree() >= rLast.Degree() && !r.IsZero() {
			degreeDiff := r.Degree() - rLast.Degree()
			scale := d.field.Multiply(r.GetCoefficient(r.Degree()), dltInverse)
			q = q.AddOrSubtractPoly(d.field.BuildMonomial(degreeDiff, scale))
			r = r.AddOrSubtractPoly(rLast.MultiplyByMonomial(degreeDiff, scale))
		}

		t = q.MultiplyPoly(tLast).AddOrSubtractPoly(tLastLast)

		if r.Degree() >= rLast.Degree() {
			return [2]*GenericGFPoly{}, ErrReedSolomon
		}
	}

	sigmaTildeAtZero := t.GetCoefficient(0)
	if sigmaTildeAtZero == 0 {
		return [2]*GenericGFPoly{}, ErrReedSolomon
	}

	inverse := d.field.Inverse(sigmaTildeAtZero)
	sigma := t.MultiplyScalar(inverse)
	omega := r.MultiplyScalar(inverse)
	return [2]*GenericGFPoly{sigma, omega}, nil
}

func (d *Decoder) findErrorLocations(errorLocator *GenericGFPoly) ([]int, error) {
	numErrors := errorLocator.Degree()
	if numErrors == 1 {
		return []int{errorLocator.GetCoefficient(1)}, nil
	}
	result := make([]int, 0, numErrors)
	for i := 1; i < d.field.Size() && len(result) < numErrors; i++ {
		if errorLocator.EvaluateAt(i) == 0 {
			result = append(result, d.field.Inverse(i))
		}
	}
	if len(result) != numErrors {
		return nil, ErrReedSolomon
	}
	return result, nil
}

func (d *Decoder) findErrorMagnitudes(errorEvaluator *GenericGFPoly, errorLocations []int) []int {
	s := len(errorLocations)
	result := make([]int, s)
	for i := 0; i < s; i++ {
		xiInverse := d.field.Inverse(errorLocations[i])
		denominator := 1
		for j := 0; j < s; j++ {
			if i != j {
				term := d.field.Multiply(errorLocations[j], xiInverse)
				termPlus1 := term | 1
				if term&1 != 0 {
					termPlus1 = term &^ 1
				}
				denominator = d.field.Multiply(denominator, termPlus1)
			}
		}
		result[i] = d.field.Multiply(errorEvaluator.EvaluateAt(xiInverse), d.field.Inverse(denominator))
		if d.field.GeneratorBase() != 0 {
			result[i] = d.field.Multiply(result[i], xiInverse)
		}
	}
	return result
}
