package spatialmath

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/camcalib/utils"
)

// Pose represents a 6dof pose, position and orientation, with respect to the origin.
// The Point() method returns the position in (x,y,z) and Orientation() returns the
// orientation.
type Pose interface {
	Point() r3.Vector
	Orientation() Orientation
}

type basePose struct {
	point       r3.Vector
	orientation *RotationMatrix
}

// NewZeroPose returns a pose at (0,0,0) with same orientation as whatever frame it is placed in.
func NewZeroPose() Pose {
	return &basePose{orientation: NewZeroOrientation().RotationMatrix()}
}

// NewPose takes in a position and orientation and returns a Pose.
func NewPose(p r3.Vector, o Orientation) Pose {
	if o == nil {
		return NewPoseFromPoint(p)
	}
	return &basePose{point: p, orientation: o.RotationMatrix()}
}

// NewPoseFromPoint takes in a cartesian (x,y,z) and stores it as a vector.
// It will have the same orientation as the frame it is in.
func NewPoseFromPoint(point r3.Vector) Pose {
	return &basePose{point: point, orientation: NewZeroOrientation().RotationMatrix()}
}

func (p *basePose) Point() r3.Vector {
	return p.point
}

func (p *basePose) Orientation() Orientation {
	return p.orientation
}

// Compose treats Poses as functions A(x) and B(x), and produces a new function C(x) = A(B(x)).
func Compose(a, b Pose) Pose {
	ra := a.Orientation().RotationMatrix()
	rb := b.Orientation().RotationMatrix()
	var prod mat.Dense
	prod.Mul(ra.Dense(), rb.Dense())
	rm, _ := NewRotationMatrixFromDense(&prod)
	return &basePose{point: ra.Mul(b.Point()).Add(a.Point()), orientation: rm}
}

// PoseInverse will return the inverse of a pose. So if a given pose p is the pose of A relative to B, PoseInverse(p) will give
// the pose of B relative to A.
func PoseInverse(p Pose) Pose {
	rt := p.Orientation().RotationMatrix().Transpose()
	return &basePose{point: rt.Mul(p.Point()).Mul(-1), orientation: rt}
}

// PoseToHomogeneous returns the 4x4 homogeneous transform [R | t; 0 0 0 1] of the pose.
func PoseToHomogeneous(p Pose) *mat.Dense {
	rm := p.Orientation().RotationMatrix()
	pt := p.Point()
	return mat.NewDense(4, 4, []float64{
		rm.At(0, 0), rm.At(0, 1), rm.At(0, 2), pt.X,
		rm.At(1, 0), rm.At(1, 1), rm.At(1, 2), pt.Y,
		rm.At(2, 0), rm.At(2, 1), rm.At(2, 2), pt.Z,
		0, 0, 0, 1,
	})
}

// PoseAlmostEqual will return a bool describing whether 2 poses are approximately the same.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostCoincidentEps(a, b, 1e-8) && OrientationAlmostEqual(a.Orientation(), b.Orientation())
}

// PoseAlmostCoincidentEps will return a bool describing whether 2 poses approximately are at the same 3D coordinate location.
// This uses the passed in epsilon value.
func PoseAlmostCoincidentEps(a, b Pose, epsilon float64) bool {
	ap, bp := a.Point(), b.Point()
	return utils.Float64AlmostEqual(ap.X, bp.X, epsilon) &&
		utils.Float64AlmostEqual(ap.Y, bp.Y, epsilon) &&
		utils.Float64AlmostEqual(ap.Z, bp.Z, epsilon)
}
