// Package rendercam derives the parameters of a render engine camera from a decomposed
// projection matrix. It performs arithmetic on K, R and T only.
package rendercam

import (
	"math"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/camcalib/rimage/transform"
	"go.viam.com/camcalib/spatialmath"
	"go.viam.com/camcalib/utils"
)

// AxisConvention names the basis change between the computer vision camera frame (x right,
// y down, z forward) and the render engine camera frame.
type AxisConvention string

const (
	// BlenderConvention is for projection matrices whose camera looks down -z with y up.
	BlenderConvention = AxisConvention("blender")
	// MatlabToolboxConvention is for projection matrices from the matlab calibration toolbox.
	MatlabToolboxConvention = AxisConvention("matlab")
)

// ParseAxisConvention returns the convention with the given name. The empty string selects
// BlenderConvention.
func ParseAxisConvention(name string) (AxisConvention, error) {
	switch conv := AxisConvention(strings.ToLower(strings.TrimSpace(name))); conv {
	case "":
		return BlenderConvention, nil
	case BlenderConvention, MatlabToolboxConvention:
		return conv, nil
	default:
		return "", errors.Errorf("unknown axis convention %q, expected %q or %q", name, BlenderConvention, MatlabToolboxConvention)
	}
}

// Matrix returns the render camera to vision camera basis change.
func (conv AxisConvention) Matrix() (*mat.Dense, error) {
	switch conv {
	case BlenderConvention, "":
		return mat.NewDense(3, 3, []float64{
			1, 0, 0,
			0, -1, 0,
			0, 0, -1,
		}), nil
	case MatlabToolboxConvention:
		return mat.NewDense(3, 3, []float64{
			-1, 0, 0,
			0, 1, 0,
			0, 0, 1,
		}), nil
	default:
		return nil, errors.Errorf("unknown axis convention %q", string(conv))
	}
}

// RenderCamera is a perspective camera placed in a render engine scene.
type RenderCamera struct {
	Convention AxisConvention `json:"convention"`
	// SensorWidth and FocalLength are in millimeters. SensorHeight is fixed at 1 since
	// render engines fit the sensor horizontally.
	SensorWidth          float64 `json:"sensor_width_mm"`
	SensorHeight         float64 `json:"sensor_height_mm"`
	FocalLength          float64 `json:"focal_length_mm"`
	ResolutionX          int     `json:"resolution_x"`
	ResolutionY          int     `json:"resolution_y"`
	ResolutionPercentage float64 `json:"resolution_percentage"`

	// Location is the camera position in the world.
	Location r3.Vector `json:"location"`
	// Rotation is the render camera to world rotation, Rᵀ times the convention matrix.
	Rotation *mat.Dense `json:"-"`
	// WorldMatrix is the 4x4 transform Translation(Location)*Rotation.
	WorldMatrix *mat.Dense `json:"-"`
}

// NewRenderCamera builds the render camera for a decomposition. scale is the fraction of the
// full resolution the projection matrix was computed at, e.g. 0.5 for a half size render.
func NewRenderCamera(dec *transform.CameraMatrixDecomposition, scale float64, conv AxisConvention) (*RenderCamera, error) {
	if dec == nil {
		return nil, errors.New("render camera needs a decomposition")
	}
	if scale <= 0 || !utils.IsFinite(scale) {
		return nil, errors.Errorf("resolution scale must be positive and finite, got %v", scale)
	}
	convMat, err := conv.Matrix()
	if err != nil {
		return nil, err
	}
	if conv == "" {
		conv = BlenderConvention
	}

	k := dec.K
	if k.At(0, 0) == 0 || k.At(1, 2) == 0 {
		return nil, errors.Errorf("render camera needs nonzero K[0,0] and K[1,2], got %v and %v", k.At(0, 0), k.At(1, 2))
	}

	sensorWidth := k.At(1, 1) * k.At(0, 2) / (k.At(0, 0) * k.At(1, 2))
	// principal point assumed at the center
	resolutionXPx := 2 * k.At(0, 2)
	resolutionYPx := 2 * k.At(1, 2)
	pixelsPerMM := resolutionXPx / sensorWidth
	focalLength := k.At(0, 0) / pixelsPerMM

	cvToWorld := mat.DenseCopyOf(dec.R.T())
	var rotation mat.Dense
	rotation.Mul(cvToWorld, convMat)

	var loc mat.Dense
	loc.Mul(cvToWorld, dec.T)
	location := r3.Vector{X: -loc.At(0, 0), Y: -loc.At(1, 0), Z: -loc.At(2, 0)}

	world := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			world.Set(i, j, rotation.At(i, j))
		}
	}
	world.Set(0, 3, location.X)
	world.Set(1, 3, location.Y)
	world.Set(2, 3, location.Z)
	world.Set(3, 3, 1)

	if !utils.IsFinite(sensorWidth, focalLength, resolutionXPx, resolutionYPx) {
		return nil, errors.New("render camera parameters are not finite")
	}

	return &RenderCamera{
		Convention:           conv,
		SensorWidth:          sensorWidth,
		SensorHeight:         1,
		FocalLength:          focalLength,
		ResolutionX:          int(math.Round(resolutionXPx / scale)),
		ResolutionY:          int(math.Round(resolutionYPx / scale)),
		ResolutionPercentage: scale * 100,
		Location:             location,
		Rotation:             &rotation,
		WorldMatrix:          world,
	}, nil
}

// Pose returns the camera to world pose. It fails when the convention makes the rotation a
// reflection, as the matlab toolbox convention does.
func (rc *RenderCamera) Pose() (spatialmath.Pose, error) {
	rm, err := spatialmath.NewRotationMatrixFromDense(rc.Rotation)
	if err != nil {
		return nil, err
	}
	if !rm.IsProper(1e-6) {
		return nil, errors.Errorf("%s camera rotation has determinant %.3f and is not a proper rotation", rc.Convention, rm.Det())
	}
	return spatialmath.NewPose(rc.Location, rm), nil
}
