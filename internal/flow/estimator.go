package flow

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"
)

// topDecileQuantile is the magnitude quantile above which vectors are kept
// by the sparsified centroid.
const topDecileQuantile = 0.9

// PoseEstimate is the rigid transform fitted to one vector field.
// RotationAngle is in radians.
type PoseEstimate struct {
	RotationAngle float64
	Translation   r2.Vec
	// Centroid is the mean flow vector the translation was derived from.
	Centroid r2.Vec
}

// EstimatorOptions tunes the estimator. The zero value reproduces the
// reference behaviour: full-field centroid and the eigenvector at index 0.
type EstimatorOptions struct {
	// TopDecileCentroid restricts the centroid to vectors whose magnitude
	// exceeds the 90th percentile, falling back to the full-field centroid
	// when none do.
	TopDecileCentroid bool

	// PrincipalAxis selects the eigenvector of the largest eigenvalue
	// instead of the first one returned by the decomposition.
	PrincipalAxis bool
}

// Estimator fits a rotation and translation to a dense flow field.
// It holds no per-call state and is safe for concurrent use.
type Estimator struct {
	opts EstimatorOptions
}

// NewEstimator returns an Estimator with the given options.
func NewEstimator(opts EstimatorOptions) *Estimator {
	return &Estimator{opts: opts}
}

// Options returns the estimator's configuration.
func (e *Estimator) Options() EstimatorOptions {
	return e.opts
}

// Estimate fits a PoseEstimate using default options.
func Estimate(field VectorField) (PoseEstimate, error) {
	return NewEstimator(EstimatorOptions{}).Estimate(field)
}

// Estimate computes the rotation and translation that best explain the
// dominant linear component of field using PCA.
//
// Algorithm:
//  1. Compute the centroid (mean flow vector) of the field
//  2. Subtract the centroid and flatten to an N x 2 point matrix
//  3. Build the 2x2 sample covariance matrix
//  4. Eigendecompose; rotation = atan2 of the selected eigenvector
//  5. Translation = centroid - R(rotation) * centroid
//
// Degenerate but finite fields (e.g. uniform flow) are not rejected; a
// non-finite covariance or angle returns ErrNumericDegeneracy.
func (e *Estimator) Estimate(field VectorField) (PoseEstimate, error) {
	if err := field.Validate(); err != nil {
		return PoseEstimate{}, err
	}

	n := field.Len()
	if n < 2 {
		return PoseEstimate{}, fmt.Errorf("%w: covariance needs at least 2 vectors, got %d", ErrNumericDegeneracy, n)
	}

	// Step 1: centroid
	centroid := meanVector(field)
	if e.opts.TopDecileCentroid {
		if sparse, ok := topDecileCentroid(field); ok {
			centroid = sparse
		}
	}

	// Step 2: translate to the centroid and flatten
	pts := make([]float64, n*2)
	for i := 0; i < n; i++ {
		v := field.Vector(i)
		pts[2*i] = v.X - centroid.X
		pts[2*i+1] = v.Y - centroid.Y
	}

	// Step 3: covariance
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, mat.NewDense(n, 2, pts), nil)
	for i := 0; i < 2; i++ {
		for j := i; j < 2; j++ {
			if c := cov.At(i, j); math.IsNaN(c) || math.IsInf(c, 0) {
				return PoseEstimate{}, fmt.Errorf("%w: covariance[%d][%d]=%v over %d vectors", ErrNumericDegeneracy, i, j, c, n)
			}
		}
	}

	// Step 4: eigenvectors, rotation angle
	var eig mat.Eigen
	if ok := eig.Factorize(&cov, mat.EigenRight); !ok {
		return PoseEstimate{}, fmt.Errorf("%w: eigendecomposition did not converge", ErrNumericDegeneracy)
	}
	values := eig.Values(nil)
	var vectors mat.CDense
	eig.VectorsTo(&vectors)

	idx := 0
	if e.opts.PrincipalAxis {
		idx = largestRealIndex(values)
	}
	evX := real(vectors.At(0, idx))
	evY := real(vectors.At(1, idx))
	angle := math.Atan2(evY, evX)

	// Step 5: translation reproducing the centroid shift
	translation := r2.Sub(centroid, r2.Rotate(centroid, angle, r2.Vec{}))

	if !finite(angle) || !finite(translation.X) || !finite(translation.Y) {
		return PoseEstimate{}, fmt.Errorf("%w: angle=%v translation=%v", ErrNumericDegeneracy, angle, translation)
	}

	return PoseEstimate{
		RotationAngle: angle,
		Translation:   translation,
		Centroid:      centroid,
	}, nil
}

func meanVector(field VectorField) r2.Vec {
	var sum r2.Vec
	n := field.Len()
	for i := 0; i < n; i++ {
		sum = r2.Add(sum, field.Vector(i))
	}
	return r2.Scale(1/float64(n), sum)
}

// topDecileCentroid averages the vectors strictly longer than the 90th
// percentile magnitude. ok is false when no vector qualifies.
func topDecileCentroid(field VectorField) (centroid r2.Vec, ok bool) {
	n := field.Len()
	lengths := make([]float64, n)
	for i := 0; i < n; i++ {
		lengths[i] = r2.Norm(field.Vector(i))
	}
	sorted := append([]float64(nil), lengths...)
	sort.Float64s(sorted)
	threshold := stat.Quantile(topDecileQuantile, stat.LinInterp, sorted, nil)

	var sum r2.Vec
	count := 0
	for i, l := range lengths {
		if l > threshold {
			sum = r2.Add(sum, field.Vector(i))
			count++
		}
	}
	if count == 0 {
		return r2.Vec{}, false
	}
	return r2.Scale(1/float64(count), sum), true
}

func largestRealIndex(values []complex128) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if real(values[i]) > real(values[best]) {
			best = i
		}
	}
	return best
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
