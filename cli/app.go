// Package cli contains the camcalib command line application.
package cli

import (
	"io"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/camcalib/logging"
	"go.viam.com/camcalib/rimage/transform"
	"go.viam.com/camcalib/rimage/transform/rendercam"
	"go.viam.com/camcalib/utils"
)

const (
	// Global flags.
	flagDebug   = "debug"
	flagEpsilon = "epsilon"
	flagFormat  = "format"
	flagLogFile = "log-file"

	// Command flags.
	flagMatrix     = "matrix"
	flagFile       = "file"
	flagScale      = "scale"
	flagConvention = "convention"
	flagConfig     = "config"

	formatTable = "table"
	formatJSON  = "json"

	loggerMetadataKey       = "logger"
	fileAppenderMetadataKey = "file-appender"

	logFileMaxSizeMB = 64
)

var matrixFlags = []cli.Flag{
	&cli.Float64SliceFlag{
		Name:    flagMatrix,
		Aliases: []string{"m"},
		Usage:   "the 12 entries of the 3x4 projection matrix in row major order, comma separated",
	},
	&cli.PathFlag{
		Name:    flagFile,
		Aliases: []string{"f"},
		Usage:   "read the projection matrix from a JSON `FILE`",
	},
}

// NewApp returns the camcalib application writing results to out and usage errors to errOut.
// Diagnostics go through logger.
func NewApp(out, errOut io.Writer, logger logging.Logger) *cli.App {
	return &cli.App{
		Name:            "camcalib",
		Usage:           "decompose camera projection matrices into intrinsics, rotation and translation",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Metadata:        map[string]interface{}{loggerMetadataKey: logger},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.Float64Flag{
				Name:  flagEpsilon,
				Value: transform.DefaultEpsilon,
				Usage: "relative tolerance below which a pivot counts as zero",
			},
			&cli.StringFlag{
				Name:  flagFormat,
				Value: formatTable,
				Usage: "output format, table or json",
			},
			&cli.PathFlag{
				Name:  flagLogFile,
				Usage: "also write logs to `FILE`, rotated as it grows",
			},
		},
		Before: func(c *cli.Context) error {
			switch format := c.String(flagFormat); format {
			case formatTable, formatJSON:
			default:
				return errors.Errorf("unknown output format %q, expected %q or %q", format, formatTable, formatJSON)
			}
			logger := loggerFrom(c)
			if c.Bool(flagDebug) {
				logger.SetLevel(logging.DEBUG)
			}
			if path := c.Path(flagLogFile); path != "" {
				appender := logging.NewFileAppender(path, logFileMaxSizeMB)
				logger.AddAppender(appender)
				c.App.Metadata[fileAppenderMetadataKey] = appender
			}
			return nil
		},
		After: func(c *cli.Context) error {
			appender, err := utils.AssertType[*logging.FileAppender](c.App.Metadata[fileAppenderMetadataKey])
			if err != nil {
				return nil
			}
			return multierr.Combine(loggerFrom(c).Sync(), appender.Close())
		},
		Commands: []*cli.Command{
			{
				Name:      "decompose",
				Usage:     "print K, R, T and the camera center of a projection matrix",
				UsageText: "camcalib decompose [--matrix p00,p01,...,p23 | --file P.json]",
				Flags:     matrixFlags,
				Action:    DecomposeAction,
			},
			{
				Name:  "render-camera",
				Usage: "print render engine camera parameters for a projection matrix",
				Flags: append(append([]cli.Flag{}, matrixFlags...),
					&cli.Float64Flag{
						Name:  flagScale,
						Value: 1,
						Usage: "fraction of the full resolution the matrix was computed at",
					},
					&cli.StringFlag{
						Name:  flagConvention,
						Value: string(rendercam.BlenderConvention),
						Usage: "camera axis convention, blender or matlab",
					},
				),
				Action: RenderCameraAction,
			},
			{
				Name:  "batch",
				Usage: "decompose every camera of a config file",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     flagConfig,
						Aliases:  []string{"c"},
						Required: true,
						Usage:    "load cameras from `FILE`",
					},
				},
				Action: BatchAction,
			},
			{
				Name:   "config-schema",
				Usage:  "print the JSON schema of batch config files",
				Action: ConfigSchemaAction,
			},
		},
	}
}

func loggerFrom(c *cli.Context) logging.Logger {
	logger, err := utils.AssertType[logging.Logger](c.App.Metadata[loggerMetadataKey])
	if err != nil {
		logging.Global().Debugw("app has no logger, using the global logger", "error", err)
		return logging.Global()
	}
	return logger
}
