package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/camcalib/rimage/transform"
	"go.viam.com/camcalib/rimage/transform/rendercam"
)

// DecomposeAction prints the factors of one projection matrix.
func DecomposeAction(c *cli.Context) error {
	dec, err := decomposeFromFlags(c)
	if err != nil {
		return err
	}

	return write(c, newDecompositionOutput("", dec), func() table.Writer {
		t := table.NewWriter()
		t.AppendHeader(table.Row{"Factor", "Value"})
		t.AppendRow(table.Row{"K", transform.FormatMatrix(dec.K)})
		t.AppendRow(table.Row{"R", transform.FormatMatrix(dec.R)})
		t.AppendRow(table.Row{"T", formatVector(dec.Translation())})
		t.AppendRow(table.Row{"Center", formatVector(dec.Center)})
		t.AppendRow(table.Row{"Scale", fmt.Sprintf("%.6g", dec.Scale)})
		for _, w := range dec.Warnings {
			t.AppendRow(table.Row{"Warning", w.String()})
		}
		return t
	})
}

type renderCameraOutput struct {
	*rendercam.RenderCamera
	World [][]float64 `json:"world_matrix"`
}

// RenderCameraAction prints the render engine camera for one projection matrix.
func RenderCameraAction(c *cli.Context) error {
	conv, err := rendercam.ParseAxisConvention(c.String(flagConvention))
	if err != nil {
		return err
	}
	dec, err := decomposeFromFlags(c)
	if err != nil {
		return err
	}
	rc, err := rendercam.NewRenderCamera(dec, c.Float64(flagScale), conv)
	if err != nil {
		return err
	}

	out := renderCameraOutput{RenderCamera: rc, World: transform.MatrixRows(rc.WorldMatrix)}
	return write(c, out, func() table.Writer {
		t := table.NewWriter()
		t.AppendHeader(table.Row{"Parameter", "Value"})
		t.AppendRow(table.Row{"Convention", rc.Convention})
		t.AppendRow(table.Row{"Sensor width (mm)", fmt.Sprintf("%.6g", rc.SensorWidth)})
		t.AppendRow(table.Row{"Sensor height (mm)", fmt.Sprintf("%.6g", rc.SensorHeight)})
		t.AppendRow(table.Row{"Focal length (mm)", fmt.Sprintf("%.6g", rc.FocalLength)})
		t.AppendRow(table.Row{"Resolution", fmt.Sprintf("%dx%d", rc.ResolutionX, rc.ResolutionY)})
		t.AppendRow(table.Row{"Resolution %", fmt.Sprintf("%.6g", rc.ResolutionPercentage)})
		t.AppendRow(table.Row{"Location", formatVector(rc.Location)})
		if pose, err := rc.Pose(); err == nil {
			t.AppendRow(table.Row{"Rotation (deg)", formatOrientation(pose.Orientation())})
		} else {
			loggerFrom(c).Debugw("render camera rotation has no euler angles", "error", err)
		}
		t.AppendRow(table.Row{"World matrix", transform.FormatMatrix(rc.WorldMatrix)})
		return t
	})
}

func decomposeFromFlags(c *cli.Context) (*transform.CameraMatrixDecomposition, error) {
	p, err := projectionMatrixFromFlags(c)
	if err != nil {
		return nil, err
	}
	logger := loggerFrom(c)
	dec, err := transform.DecomposeProjectionMatrix(p,
		transform.WithEpsilon(c.Float64(flagEpsilon)),
		transform.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	logWarnings(logger, "", dec.Warnings)
	return dec, nil
}

func projectionMatrixFromFlags(c *cli.Context) (*mat.Dense, error) {
	values := c.Float64Slice(flagMatrix)
	path := c.Path(flagFile)
	switch {
	case len(values) > 0 && path != "":
		return nil, errors.Errorf("set only one of --%s or --%s", flagMatrix, flagFile)
	case path != "":
		return transform.NewProjectionMatrixFromJSONFile(path)
	case len(values) > 0:
		cfg := transform.ProjectionMatrixConfig{Data: values}
		return cfg.Dense()
	default:
		return nil, errors.Errorf("a projection matrix is required, use --%s or --%s", flagMatrix, flagFile)
	}
}
