package transform

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/camcalib/logging"
	"go.viam.com/camcalib/utils"
)

const (
	// DefaultEpsilon is the tolerance used for zero comparisons, relative to the largest
	// absolute entry of the matrix being factored. RQ pivots, camera center pivots and
	// camera center singular values all count as zero at or below epsilon*max|A|.
	DefaultEpsilon = 1e-9
	// InstabilityFactor is how far above the singularity tolerance a pivot must be before
	// it stops being reported as a NumericalInstabilityWarning.
	InstabilityFactor = 1e3
)

type decomposeOptions struct {
	epsilon float64
	logger  logging.Logger
}

// DecomposeOption configures RQDecompose and DecomposeProjectionMatrix.
type DecomposeOption func(*decomposeOptions)

// WithEpsilon sets the relative tolerance for zero comparisons.
func WithEpsilon(epsilon float64) DecomposeOption {
	return func(opts *decomposeOptions) {
		opts.epsilon = epsilon
	}
}

// WithLogger traces every stage of a decomposition at debug level.
func WithLogger(logger logging.Logger) DecomposeOption {
	return func(opts *decomposeOptions) {
		opts.logger = logger
	}
}

func newDecomposeOptions(opts []DecomposeOption) (decomposeOptions, error) {
	o := decomposeOptions{epsilon: DefaultEpsilon}
	for _, opt := range opts {
		opt(&o)
	}
	if o.epsilon <= 0 || !utils.IsFinite(o.epsilon) {
		return o, errors.Errorf("epsilon must be positive and finite, got %v", o.epsilon)
	}
	return o, nil
}

func (o decomposeOptions) debugw(msg string, keysAndValues ...interface{}) {
	if o.logger != nil {
		o.logger.Debugw(msg, keysAndValues...)
	}
}

// RQDecompose factors the 3x3 matrix a into an upper triangular r and an orthogonal q with
// a = r*q. If det(q) would be negative, column 0 of r and row 0 of q are negated so q is a
// proper rotation.
func RQDecompose(a mat.Matrix, opts ...DecomposeOption) (r, q *mat.Dense, err error) {
	r, q, _, err = RQDecomposeWithWarnings(a, opts...)
	return r, q, err
}

// RQDecomposeWithWarnings is RQDecompose but also returns the pivots that were close to
// the singularity tolerance.
func RQDecomposeWithWarnings(a mat.Matrix, opts ...DecomposeOption,
) (r, q *mat.Dense, warnings []NumericalInstabilityWarning, err error) {
	o, err := newDecomposeOptions(opts)
	if err != nil {
		return nil, nil, nil, err
	}
	return rqDecompose(a, o)
}

func rqDecompose(a mat.Matrix, o decomposeOptions) (*mat.Dense, *mat.Dense, []NumericalInstabilityWarning, error) {
	rows, cols := a.Dims()
	if rows != 3 || cols != 3 {
		return nil, nil, nil, NewDimensionError("rq decomposition", rows, cols, 3, 3)
	}
	if err := checkFinite("A", a); err != nil {
		return nil, nil, nil, err
	}

	// QR of the transposed, axis reversed matrix: rev(A)ᵀ = Q1*U.
	var qr mat.QR
	qr.Factorize(transposeDense(reverseDense(a)))
	var q1, u mat.Dense
	qr.QTo(&q1)
	qr.RTo(&u)

	tol := o.epsilon * maxAbs(a)
	minPivot := math.Inf(1)
	for i := 0; i < 3; i++ {
		minPivot = math.Min(minPivot, math.Abs(u.At(i, i)))
	}
	if minPivot <= tol {
		return nil, nil, nil, errors.Wrapf(ErrSingularMatrix, "rq decomposition: pivot %g within tolerance %g", minPivot, tol)
	}
	var warnings []NumericalInstabilityWarning
	if threshold := InstabilityFactor * tol; minPivot < threshold {
		warnings = append(warnings, NumericalInstabilityWarning{Stage: "rq pivot", Value: minPivot, Threshold: threshold})
	}

	r := reverseDense(transposeDense(&u))
	q := reverseDense(transposeDense(&q1))
	if mat.Det(q) < 0 {
		for i := 0; i < 3; i++ {
			r.Set(i, 0, -r.At(i, 0))
			q.Set(0, i, -q.At(0, i))
		}
	}
	o.debugw("rq decomposition", "r", FormatMatrix(r), "q", FormatMatrix(q), "min_pivot", minPivot)
	return r, q, warnings, nil
}
