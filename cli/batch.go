package cli

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/camcalib/config"
	"go.viam.com/camcalib/logging"
	"go.viam.com/camcalib/rimage/transform"
	"go.viam.com/camcalib/rimage/transform/rendercam"
)

type batchRow struct {
	decompositionOutput
	Render *rendercam.RenderCamera `json:"render_camera,omitempty"`
}

// BatchAction decomposes every camera of a config file. It fails when any camera could not be
// decomposed, after printing the cameras that could.
func BatchAction(c *cli.Context) error {
	logger := loggerFrom(c)
	cfg, err := config.Read(c.Path(flagConfig), logger)
	if err != nil {
		return err
	}
	if c.Bool(flagDebug) {
		// the config log patterns reset every logger they do not match
		logger.SetLevel(logging.DEBUG)
	}

	ps, err := cfg.ProjectionMatrices()
	if err != nil {
		return err
	}
	opts := cfg.DecomposeOptions(logger)
	if c.IsSet(flagEpsilon) {
		opts = append(opts, transform.WithEpsilon(c.Float64(flagEpsilon)))
	}

	decs, batchErr := transform.DecomposeProjectionMatrices(c.Context, ps, opts...)
	failures := make(map[int]error)
	var otherErrs error
	for _, err := range multierr.Errors(batchErr) {
		var itemErr *transform.BatchItemError
		if errors.As(err, &itemErr) {
			failures[itemErr.Index] = itemErr.Err
			continue
		}
		otherErrs = multierr.Append(otherErrs, err)
	}
	if otherErrs != nil {
		return otherErrs
	}

	rows := make([]batchRow, len(cfg.Cameras))
	for idx, cam := range cfg.Cameras {
		if err, ok := failures[idx]; ok {
			logger.Errorw("cannot decompose camera", "camera", cam.Name, "error", err)
			rows[idx] = batchRow{decompositionOutput: decompositionOutput{Name: cam.Name, Error: err.Error()}}
			continue
		}
		dec := decs[idx]
		logWarnings(logger, cam.Name, dec.Warnings)
		rows[idx] = batchRow{decompositionOutput: newDecompositionOutput(cam.Name, dec)}
		rc, err := rendercam.NewRenderCamera(dec, cfg.ResolutionScale(), cfg.AxisConvention())
		if err != nil {
			logger.Warnw("no render camera for camera", "camera", cam.Name, "error", err)
			continue
		}
		rows[idx].Render = rc
	}

	if err := write(c, rows, func() table.Writer { return batchTable(rows) }); err != nil {
		return err
	}
	if len(failures) > 0 {
		return errors.Errorf("%d of %d cameras failed to decompose", len(failures), len(cfg.Cameras))
	}
	return nil
}

func batchTable(rows []batchRow) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Camera", "fx", "fy", "ppx", "ppy", "Skew", "Center", "Resolution", "Status"})
	for _, row := range rows {
		if row.Error != "" {
			t.AppendRow(table.Row{row.Name, "", "", "", "", "", "", "", row.Error})
			continue
		}
		status := "ok"
		if len(row.Warnings) > 0 {
			status = fmt.Sprintf("%d warnings", len(row.Warnings))
		}
		resolution := ""
		if row.Render != nil {
			resolution = fmt.Sprintf("%dx%d", row.Render.ResolutionX, row.Render.ResolutionY)
		}
		k := row.K
		t.AppendRow(table.Row{
			row.Name,
			fmt.Sprintf("%.6g", k[0][0]),
			fmt.Sprintf("%.6g", k[1][1]),
			fmt.Sprintf("%.6g", k[0][2]),
			fmt.Sprintf("%.6g", k[1][2]),
			fmt.Sprintf("%.6g", k[0][1]),
			formatVector(*row.Center),
			resolution,
			status,
		})
	}
	return t
}

// ConfigSchemaAction prints the JSON schema of batch config files.
func ConfigSchemaAction(c *cli.Context) error {
	encoder := json.NewEncoder(c.App.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(config.Schema())
}
