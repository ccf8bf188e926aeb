// Package config defines the batch configuration read by the camcalib CLI.
package config

import (
	"fmt"

	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/camcalib/logging"
	"go.viam.com/camcalib/rimage/transform"
	"go.viam.com/camcalib/rimage/transform/rendercam"
	rutils "go.viam.com/camcalib/utils"
)

// A Config describes a set of projection matrices to decompose together with the tolerances
// and render camera settings that apply to all of them.
type Config struct {
	// Epsilon overrides transform.DefaultEpsilon when set.
	Epsilon float64 `json:"epsilon,omitempty"`
	// Scale is the render resolution scale, 1 when unset.
	Scale      float64                       `json:"scale,omitempty"`
	Convention string                        `json:"convention,omitempty"`
	Log        []logging.LoggerPatternConfig `json:"log,omitempty"`
	Cameras    []CameraConfig                `json:"cameras"`

	ConfigFilePath string `json:"-"`
}

// CameraConfig is a named projection matrix.
type CameraConfig struct {
	Name string `json:"name"`
	transform.ProjectionMatrixConfig
}

// Validate returns the first problem found in the config.
func (c *Config) Validate() error {
	if c.Epsilon < 0 || !rutils.IsFinite(c.Epsilon) {
		return utils.NewConfigValidationError("epsilon", errors.Errorf("must be positive and finite, got %v", c.Epsilon))
	}
	if c.Scale < 0 || !rutils.IsFinite(c.Scale) {
		return utils.NewConfigValidationError("scale", errors.Errorf("must be positive and finite, got %v", c.Scale))
	}
	if _, err := rendercam.ParseAxisConvention(c.Convention); err != nil {
		return utils.NewConfigValidationError("convention", err)
	}

	for idx, lpc := range c.Log {
		path := fmt.Sprintf("log.%d", idx)
		if !logging.ValidatePattern(lpc.Pattern) {
			return utils.NewConfigValidationError(path, errors.Errorf("invalid logger pattern %q", lpc.Pattern))
		}
		if _, err := logging.LevelFromString(lpc.Level); err != nil {
			return utils.NewConfigValidationError(path, err)
		}
	}

	if len(c.Cameras) == 0 {
		return utils.NewConfigValidationFieldRequiredError("config", "cameras")
	}
	seen := make(map[string]struct{}, len(c.Cameras))
	for idx, cam := range c.Cameras {
		path := fmt.Sprintf("cameras.%d", idx)
		if cam.Name == "" {
			return utils.NewConfigValidationFieldRequiredError(path, "name")
		}
		if _, ok := seen[cam.Name]; ok {
			return utils.NewConfigValidationError(path, errors.Errorf("duplicate camera name %q", cam.Name))
		}
		seen[cam.Name] = struct{}{}
		if _, err := cam.Dense(); err != nil {
			return utils.NewConfigValidationError(path, err)
		}
	}
	return nil
}

// ResolutionScale returns the render resolution scale, defaulting to 1.
func (c *Config) ResolutionScale() float64 {
	if c.Scale == 0 {
		return 1
	}
	return c.Scale
}

// AxisConvention returns the configured render camera convention.
func (c *Config) AxisConvention() rendercam.AxisConvention {
	conv, err := rendercam.ParseAxisConvention(c.Convention)
	if err != nil {
		return rendercam.BlenderConvention
	}
	return conv
}

// DecomposeOptions returns the decomposition options implied by the config.
func (c *Config) DecomposeOptions(logger logging.Logger) []transform.DecomposeOption {
	var opts []transform.DecomposeOption
	if c.Epsilon != 0 {
		opts = append(opts, transform.WithEpsilon(c.Epsilon))
	}
	if logger != nil {
		opts = append(opts, transform.WithLogger(logger))
	}
	return opts
}

// ProjectionMatrices returns the camera matrices in config order.
func (c *Config) ProjectionMatrices() ([]mat.Matrix, error) {
	ps := make([]mat.Matrix, 0, len(c.Cameras))
	for idx, cam := range c.Cameras {
		p, err := cam.Dense()
		if err != nil {
			return nil, utils.NewConfigValidationError(fmt.Sprintf("cameras.%d", idx), err)
		}
		ps = append(ps, p)
	}
	return ps, nil
}
