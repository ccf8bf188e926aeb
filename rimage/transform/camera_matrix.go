package transform

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/camcalib/utils"
)

// CameraMatrixDecomposition holds the factors of a 3x4 projection matrix P = Scale*K*[R|T].
type CameraMatrixDecomposition struct {
	// K is upper triangular with a positive diagonal and K[2,2] = 1.
	K *mat.Dense
	// R is a proper rotation from world to camera coordinates.
	R *mat.Dense
	// T is the 3x1 translation in camera coordinates.
	T *mat.Dense
	// Center is the camera position in world coordinates, -Rᵀ*T.
	Center r3.Vector
	// Scale is the factor removed from P during normalization.
	Scale    float64
	Warnings []NumericalInstabilityWarning
}

// DecomposeProjectionMatrix factors the 3x4 projection matrix p into intrinsics K, rotation R
// and translation T such that p = Scale*K*[R|T].
//
// The leading 3x3 block H of p is RQ factored. K is divided by K[2,2], then columns of K and
// rows of R are negated together until K has a positive diagonal. If R is then a reflection it
// is negated. Last, the camera center C is solved from H*C = -p[:,3] and T = -R*C, using the
// final R.
func DecomposeProjectionMatrix(p mat.Matrix, opts ...DecomposeOption) (*CameraMatrixDecomposition, error) {
	o, err := newDecomposeOptions(opts)
	if err != nil {
		return nil, err
	}
	return decomposeProjectionMatrix(p, o)
}

func decomposeProjectionMatrix(p mat.Matrix, o decomposeOptions) (*CameraMatrixDecomposition, error) {
	rows, cols := p.Dims()
	if rows != 3 || cols != 4 {
		return nil, NewDimensionError("camera matrix decomposition", rows, cols, 3, 4)
	}
	if err := checkFinite("P", p); err != nil {
		return nil, err
	}

	h := mat.NewDense(3, 3, nil)
	p4 := mat.NewDense(3, 1, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			h.Set(i, j, p.At(i, j))
		}
		p4.Set(i, 0, p.At(i, 3))
	}

	k, r, warnings, err := rqDecompose(h, o)
	if err != nil {
		return nil, errors.Wrap(err, "cannot factor the leading 3x3 block of P")
	}

	scale := k.At(2, 2)
	if !utils.IsFinite(scale) || math.Abs(scale) <= o.epsilon*maxAbs(k) {
		return nil, errors.Wrapf(ErrDegenerateScale, "K[2,2] = %v", scale)
	}
	k.Scale(1/scale, k)

	// column i of K and row i of R flip together so K*R is unchanged
	for i := 0; i < 3; i++ {
		if utils.SignOrOne(k.At(i, i)) > 0 {
			continue
		}
		for j := 0; j < 3; j++ {
			k.Set(j, i, -k.At(j, i))
			r.Set(i, j, -r.At(i, j))
		}
	}

	if mat.Det(r) < 0 {
		r.Scale(-1, r)
		scale = -scale
	}
	o.debugw("canonical factors", "k", FormatMatrix(k), "r", FormatMatrix(r), "scale", scale)

	c, centerWarnings, err := solveCameraCenter(h, p4, o)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, centerWarnings...)

	var t mat.Dense
	t.Mul(r, c)
	t.Scale(-1, &t)
	o.debugw("camera translation", "t", FormatMatrix(&t), "center", FormatMatrix(c))

	if checkFinite("K", k) != nil || checkFinite("R", r) != nil || checkFinite("T", &t) != nil {
		return nil, errors.Wrap(ErrSingularMatrix, "decomposition produced non-finite values")
	}

	return &CameraMatrixDecomposition{
		K:        k,
		R:        r,
		T:        &t,
		Center:   r3.Vector{X: c.At(0, 0), Y: c.At(1, 0), Z: c.At(2, 0)},
		Scale:    scale,
		Warnings: warnings,
	}, nil
}

// solveCameraCenter solves h*c = -p4 in the least squares sense. Well conditioned systems use
// QR; systems whose pivots sit near the tolerance use the rank limited SVD solve instead. QR
// pivots and singular values are both compared against epsilon*max|h|, the cut-off RQ uses.
func solveCameraCenter(h, p4 *mat.Dense, o decomposeOptions) (*mat.Dense, []NumericalInstabilityWarning, error) {
	var rhs mat.Dense
	rhs.Scale(-1, p4)

	var qr mat.QR
	qr.Factorize(h)
	var u mat.Dense
	qr.RTo(&u)

	tol := o.epsilon * maxAbs(h)
	minPivot := math.Inf(1)
	for i := 0; i < 3; i++ {
		minPivot = math.Min(minPivot, math.Abs(u.At(i, i)))
	}
	if minPivot <= tol {
		return nil, nil, errors.Wrapf(ErrSingularMatrix, "camera center solve: pivot %g within tolerance %g", minPivot, tol)
	}

	var c mat.Dense
	threshold := InstabilityFactor * tol
	if minPivot >= threshold {
		if err := qr.SolveTo(&c, false, &rhs); err != nil {
			return nil, nil, errors.Wrapf(ErrSingularMatrix, "camera center solve: %v", err)
		}
		return &c, nil, nil
	}

	warnings := []NumericalInstabilityWarning{{Stage: "camera center pivot", Value: minPivot, Threshold: threshold}}
	var svd mat.SVD
	if !svd.Factorize(h, mat.SVDThin) {
		return nil, nil, errors.Wrap(ErrSingularMatrix, "camera center solve: svd failed to factorize")
	}
	rank := 0
	for _, sv := range svd.Values(nil) {
		if sv > tol {
			rank++
		}
	}
	if rank < 3 {
		return nil, nil, errors.Wrapf(ErrSingularMatrix, "camera center solve: rank %d", rank)
	}
	svd.SolveTo(&c, &rhs, rank)
	o.debugw("camera center solved with svd", "condition", svd.Cond())
	return &c, warnings, nil
}

// Translation returns T as a vector.
func (d *CameraMatrixDecomposition) Translation() r3.Vector {
	return r3.Vector{X: d.T.At(0, 0), Y: d.T.At(1, 0), Z: d.T.At(2, 0)}
}

// ProjectionMatrix rebuilds K*[R|T]. It equals the decomposed matrix divided by Scale.
func (d *CameraMatrixDecomposition) ProjectionMatrix() *mat.Dense {
	var extrinsics mat.Dense
	extrinsics.Augment(d.R, d.T)
	var p mat.Dense
	p.Mul(d.K, &extrinsics)
	return &p
}

// Pose returns the [R|T] extrinsics as a CamPose.
func (d *CameraMatrixDecomposition) Pose() *CamPose {
	var poseMat mat.Dense
	poseMat.Augment(d.R, d.T)
	return NewCamPoseFromMat(&poseMat)
}

// Intrinsics returns K as PinholeCameraIntrinsics. The image size assumes the principal point
// is centered.
func (d *CameraMatrixDecomposition) Intrinsics() *PinholeCameraIntrinsics {
	return NewPinholeCameraIntrinsicsFromCameraMatrix(d.K)
}

// ProjectionMatrix returns intrinsics*extrinsics[0:3, 0:4]. The extrinsics may be given as the
// 3x4 [R|T] or as a 4x4 homogeneous transform.
func ProjectionMatrix(intrinsics, extrinsics mat.Matrix) (*mat.Dense, error) {
	if rows, cols := intrinsics.Dims(); rows != 3 || cols != 3 {
		return nil, NewDimensionError("projection matrix intrinsics", rows, cols, 3, 3)
	}
	rows, cols := extrinsics.Dims()
	if (rows != 3 && rows != 4) || cols != 4 {
		return nil, NewDimensionError("projection matrix extrinsics", rows, cols, 3, 4)
	}
	ext := mat.DenseCopyOf(extrinsics).Slice(0, 3, 0, 4)
	var p mat.Dense
	p.Mul(intrinsics, ext)
	return &p, nil
}

// DecomposeProjectionMatrices decomposes every matrix of ps in parallel. Results keep the
// order of ps; a matrix that fails to decompose leaves a nil entry and contributes a
// *BatchItemError to the combined error.
func DecomposeProjectionMatrices(
	ctx context.Context,
	ps []mat.Matrix,
	opts ...DecomposeOption,
) ([]*CameraMatrixDecomposition, error) {
	o, err := newDecomposeOptions(opts)
	if err != nil {
		return nil, err
	}

	results := make([]*CameraMatrixDecomposition, len(ps))
	errs := make([]error, len(ps))
	ctxErr := utils.GroupWorkParallel(
		ctx,
		len(ps),
		nil,
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			return func(memberNum, workNum int) {
				dec, err := decomposeProjectionMatrix(ps[workNum], o)
				if err != nil {
					errs[workNum] = &BatchItemError{Index: workNum, Err: err}
					return
				}
				results[workNum] = dec
			}, nil
		},
	)
	return results, multierr.Combine(append(errs, ctxErr)...)
}
