package linear

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// log2pi is ln(2π), the per-dimension constant of the Gaussian normalizer.
const log2pi = 1.8378770664093454835606594728112

// Diagonal is a diagonal Gaussian noise model: independent per-row standard
// deviations. A nil *Diagonal everywhere in this package means "no noise
// model", which behaves as unit sigmas.
type Diagonal struct {
	sigmas []float64
}

// Sigmas builds a Diagonal from per-dimension standard deviations.
// Fails with ErrBadSigma unless every entry is strictly positive.
func Sigmas(sigmas []float64) (*Diagonal, error) {
	for i, s := range sigmas {
		if s <= 0 || math.IsNaN(s) {
			return nil, fmt.Errorf("%w: sigma[%d] = %v", ErrBadSigma, i, s)
		}
	}

	return &Diagonal{sigmas: append([]float64(nil), sigmas...)}, nil
}

// Isotropic builds a Diagonal with the same sigma in every dimension.
func Isotropic(dim int, sigma float64) (*Diagonal, error) {
	if sigma <= 0 || math.IsNaN(sigma) {
		return nil, fmt.Errorf("%w: sigma = %v", ErrBadSigma, sigma)
	}
	sigmas := make([]float64, dim)
	for i := range sigmas {
		sigmas[i] = sigma
	}

	return &Diagonal{sigmas: sigmas}, nil
}

// Unit builds the unit-sigma model of the given dimension. It is equivalent
// to a nil model but prints its sigmas explicitly.
func Unit(dim int) *Diagonal {
	sigmas := make([]float64, dim)
	for i := range sigmas {
		sigmas[i] = 1
	}

	return &Diagonal{sigmas: sigmas}
}

// Dim returns the number of dimensions.
func (d *Diagonal) Dim() int { return len(d.sigmas) }

// Sigma returns the standard deviation of dimension i.
func (d *Diagonal) Sigma(i int) float64 { return d.sigmas[i] }

// Sigmas returns a copy of the per-dimension standard deviations.
func (d *Diagonal) Sigmas() []float64 { return append([]float64(nil), d.sigmas...) }

// Whiten returns r scaled element-wise by 1/sigma.
func (d *Diagonal) Whiten(r []float64) []float64 {
	out := make([]float64, len(r))
	for i, v := range r {
		out[i] = v / d.sigmas[i]
	}

	return out
}

// LogNormalizer returns Σ log σ_i + (n/2)·log 2π, the negative log of the
// density normalization factor 1/((2π)^{n/2}·Πσ_i).
func (d *Diagonal) LogNormalizer() float64 {
	sum := 0.5 * float64(len(d.sigmas)) * log2pi
	for _, s := range d.sigmas {
		sum += math.Log(s)
	}

	return sum
}

// Equal reports whether both models (nil included) agree within tol.
func (d *Diagonal) Equal(other *Diagonal, tol float64) bool {
	if d == nil || other == nil {
		return d == nil && other == nil
	}
	if len(d.sigmas) != len(other.sigmas) {
		return false
	}
	if len(d.sigmas) == 0 {
		return true
	}

	return floats.EqualApprox(d.sigmas, other.sigmas, tol)
}

// String renders the model for factor and conditional printouts.
func (d *Diagonal) String() string {
	return fmt.Sprintf("diagonal sigmas %v", d.sigmas)
}

// LogNormalizer returns the negative log density-normalizer for an optional
// model of the given dimension: (n/2)·log 2π for a nil model (unit sigmas),
// the model's own value otherwise.
func LogNormalizer(model *Diagonal, dim int) float64 {
	if model == nil {
		return 0.5 * float64(dim) * log2pi
	}

	return model.LogNormalizer()
}
