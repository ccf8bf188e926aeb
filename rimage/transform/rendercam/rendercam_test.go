package rendercam

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/camcalib/rimage/transform"
	"go.viam.com/camcalib/spatialmath"
)

func decomposeKnown(t *testing.T) *transform.CameraMatrixDecomposition {
	t.Helper()
	p := mat.NewDense(3, 4, []float64{
		2, 0, -10, 282,
		0, -3, -14, 417,
		0, 0, -1, -18,
	})
	dec, err := transform.DecomposeProjectionMatrix(p)
	test.That(t, err, test.ShouldBeNil)
	return dec
}

func TestNewRenderCameraBlender(t *testing.T) {
	dec := decomposeKnown(t)
	cam, err := NewRenderCamera(dec, 1, BlenderConvention)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, cam.SensorWidth, test.ShouldAlmostEqual, 30./28., 1e-9)
	test.That(t, cam.SensorHeight, test.ShouldEqual, 1.)
	test.That(t, cam.FocalLength, test.ShouldAlmostEqual, 2*(30./28.)/20, 1e-9)
	test.That(t, cam.ResolutionX, test.ShouldEqual, 20)
	test.That(t, cam.ResolutionY, test.ShouldEqual, 28)
	test.That(t, cam.ResolutionPercentage, test.ShouldEqual, 100.)

	test.That(t, cam.Location.Sub(r3.Vector{X: -231, Y: 223, Z: -18}).Norm(), test.ShouldBeLessThan, 1e-6)
	test.That(t, cam.Location.Sub(dec.Center).Norm(), test.ShouldBeLessThan, 1e-6)

	// diag(1,-1,-1) undoes the vision camera flip, leaving the identity
	test.That(t, mat.EqualApprox(cam.Rotation, mat.NewDiagDense(3, []float64{1, 1, 1}), 1e-9), test.ShouldBeTrue)

	rows, cols := cam.WorldMatrix.Dims()
	test.That(t, rows, test.ShouldEqual, 4)
	test.That(t, cols, test.ShouldEqual, 4)
	test.That(t, cam.WorldMatrix.At(0, 3), test.ShouldAlmostEqual, -231, 1e-6)
	test.That(t, cam.WorldMatrix.At(1, 3), test.ShouldAlmostEqual, 223, 1e-6)
	test.That(t, cam.WorldMatrix.At(3, 3), test.ShouldEqual, 1.)
	test.That(t, cam.WorldMatrix.At(3, 0), test.ShouldEqual, 0.)

	pose, err := cam.Pose()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.PoseAlmostCoincidentEps(pose, spatialmath.NewPoseFromPoint(dec.Center), 1e-6), test.ShouldBeTrue)
	test.That(t, spatialmath.OrientationAlmostEqual(pose.Orientation(), spatialmath.NewZeroOrientation()), test.ShouldBeTrue)
}

func TestNewRenderCameraScale(t *testing.T) {
	cam, err := NewRenderCamera(decomposeKnown(t), 0.5, "")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cam.Convention, test.ShouldEqual, BlenderConvention)
	test.That(t, cam.ResolutionX, test.ShouldEqual, 40)
	test.That(t, cam.ResolutionY, test.ShouldEqual, 56)
	test.That(t, cam.ResolutionPercentage, test.ShouldEqual, 50.)
}

func TestNewRenderCameraMatlab(t *testing.T) {
	cam, err := NewRenderCamera(decomposeKnown(t), 1, MatlabToolboxConvention)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mat.EqualApprox(cam.Rotation, mat.NewDiagDense(3, []float64{-1, -1, -1}), 1e-9), test.ShouldBeTrue)

	_, err = cam.Pose()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "not a proper rotation")
}

func TestNewRenderCameraIdentityRotation(t *testing.T) {
	// a camera at the origin looking down +z, as in K*[I|t]
	p := mat.NewDense(3, 4, []float64{
		952.8134, 0, 616.1314, 10,
		0, 940.6325, 369.6583, 10,
		0, 0, 1, 10,
	})
	dec, err := transform.DecomposeProjectionMatrix(p)
	test.That(t, err, test.ShouldBeNil)

	cam, err := NewRenderCamera(dec, 1, BlenderConvention)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cam.ResolutionX, test.ShouldEqual, 1232)
	test.That(t, cam.ResolutionY, test.ShouldEqual, 739)
	test.That(t, cam.SensorWidth, test.ShouldAlmostEqual, 940.6325*616.1314/(952.8134*369.6583), 1e-9)
	test.That(t, mat.EqualApprox(cam.Rotation, mat.NewDiagDense(3, []float64{1, -1, -1}), 1e-9), test.ShouldBeTrue)
}

func TestNewRenderCameraErrors(t *testing.T) {
	dec := decomposeKnown(t)

	_, err := NewRenderCamera(nil, 1, BlenderConvention)
	test.That(t, err, test.ShouldNotBeNil)

	for _, scale := range []float64{0, -1} {
		_, err = NewRenderCamera(dec, scale, BlenderConvention)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "resolution scale")
	}

	_, err = NewRenderCamera(dec, 1, AxisConvention("opengl"))
	test.That(t, err, test.ShouldBeError, `unknown axis convention "opengl"`)

	centered := *dec
	centered.K = mat.DenseCopyOf(dec.K)
	centered.K.Set(1, 2, 0)
	_, err = NewRenderCamera(&centered, 1, BlenderConvention)
	test.That(t, err.Error(), test.ShouldContainSubstring, "nonzero K[0,0] and K[1,2]")
}

func TestParseAxisConvention(t *testing.T) {
	for input, expected := range map[string]AxisConvention{
		"":         BlenderConvention,
		"blender":  BlenderConvention,
		" Matlab ": MatlabToolboxConvention,
	} {
		conv, err := ParseAxisConvention(input)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, conv, test.ShouldEqual, expected)
	}
	_, err := ParseAxisConvention("unity")
	test.That(t, err.Error(), test.ShouldContainSubstring, `unknown axis convention "unity"`)
}
