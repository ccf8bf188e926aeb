package cli

import (
	"encoding/json"
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/camcalib/logging"
	"go.viam.com/camcalib/rimage/transform"
	"go.viam.com/camcalib/spatialmath"
	"go.viam.com/camcalib/utils"
)

// decompositionOutput is the JSON form of a decomposition.
type decompositionOutput struct {
	Name     string                                  `json:"name,omitempty"`
	K        [][]float64                             `json:"k,omitempty"`
	R        [][]float64                             `json:"r,omitempty"`
	T        []float64                               `json:"t,omitempty"`
	Center   *r3.Vector                              `json:"center,omitempty"`
	Scale    float64                                 `json:"scale,omitempty"`
	Warnings []transform.NumericalInstabilityWarning `json:"warnings,omitempty"`
	Error    string                                  `json:"error,omitempty"`
}

func newDecompositionOutput(name string, dec *transform.CameraMatrixDecomposition) decompositionOutput {
	center := dec.Center
	return decompositionOutput{
		Name:     name,
		K:        transform.MatrixRows(dec.K),
		R:        transform.MatrixRows(dec.R),
		T:        mat.Col(nil, 0, dec.T),
		Center:   &center,
		Scale:    dec.Scale,
		Warnings: dec.Warnings,
	}
}

// write renders v as indented JSON or renders the table built by newTable.
func write(c *cli.Context, v interface{}, newTable func() table.Writer) error {
	if c.String(flagFormat) == formatJSON {
		encoder := json.NewEncoder(c.App.Writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	}
	_, err := fmt.Fprintln(c.App.Writer, newTable().Render())
	return err
}

func logWarnings(logger logging.Logger, name string, warnings []transform.NumericalInstabilityWarning) {
	for _, w := range warnings {
		logger.Warnw("numerical instability", "camera", name, "stage", w.Stage, "value", w.Value, "threshold", w.Threshold)
	}
}

func formatVector(v r3.Vector) string {
	return fmt.Sprintf("(%.6g, %.6g, %.6g)", v.X, v.Y, v.Z)
}

// formatOrientation prints an orientation as roll, pitch, yaw in degrees.
func formatOrientation(o spatialmath.Orientation) string {
	ea := o.EulerAngles()
	return fmt.Sprintf("(%.4g, %.4g, %.4g)", utils.RadToDeg(ea.Roll), utils.RadToDeg(ea.Pitch), utils.RadToDeg(ea.Yaw))
}
