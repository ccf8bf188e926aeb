package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"go.viam.com/camcalib/logging"
	"go.viam.com/camcalib/rimage/transform"
	"go.viam.com/camcalib/utils"
)

const (
	knownMatrixFlag = "--matrix=2,0,-10,282,0,-3,-14,417,0,0,-1,-18"
	knownMatrixFile = `{
	// K = [[2, 0, 10], [0, 3, 14], [0, 0, 1]]
	"rows": [
		[2, 0, -10, 282],
		[0, -3, -14, 417],
		[0, 0, -1, -18],
	],
}`
)

func runApp(t *testing.T, logger logging.Logger, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := NewApp(&out, &errOut, logger)
	err := app.Run(append([]string{"camcalib"}, args...))
	return out.String(), err
}

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)
	return path
}

func TestDecomposeAction(t *testing.T) {
	logger := logging.NewTestLogger(t)

	t.Run("table", func(t *testing.T) {
		out, err := runApp(t, logger, "decompose", knownMatrixFlag)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out, test.ShouldContainSubstring, "Center")
		test.That(t, out, test.ShouldContainSubstring, "(-231, 223, -18)")
		test.That(t, out, test.ShouldContainSubstring, "(231, 223, -18)")
		test.That(t, out, test.ShouldNotContainSubstring, "Warning")
	})

	t.Run("json", func(t *testing.T) {
		path := writeFile(t, "p.json", knownMatrixFile)
		out, err := runApp(t, logger, "--format", "json", "decompose", "--file", path)
		test.That(t, err, test.ShouldBeNil)

		var parsed decompositionOutput
		test.That(t, json.Unmarshal([]byte(out), &parsed), test.ShouldBeNil)
		expectedK := [][]float64{{2, 0, 10}, {0, 3, 14}, {0, 0, 1}}
		for i := range expectedK {
			for j := range expectedK[i] {
				test.That(t, parsed.K[i][j], test.ShouldAlmostEqual, expectedK[i][j], 1e-9)
			}
		}
		test.That(t, parsed.T, test.ShouldHaveLength, 3)
		test.That(t, parsed.T[0], test.ShouldAlmostEqual, 231, 1e-9)
		test.That(t, parsed.Center.Y, test.ShouldAlmostEqual, 223, 1e-9)
		test.That(t, parsed.Scale, test.ShouldAlmostEqual, 1, 1e-9)
		test.That(t, parsed.Warnings, test.ShouldBeEmpty)
	})
}

func TestDecomposeActionWarnings(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	out, err := runApp(t, logger, "decompose", "--matrix=1,0,0,1,0,1,0,2,0,0,1e-8,3e-8")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "Warning")
	test.That(t, out, test.ShouldContainSubstring, "rq pivot")
	test.That(t, logs.FilterMessage("numerical instability").Len(), test.ShouldEqual, 2)

	_, err = runApp(t, logger, "--epsilon", "1e-7", "decompose", "--matrix=1,0,0,1,0,1,0,2,0,0,1e-8,3e-8")
	test.That(t, errors.Is(err, transform.ErrSingularMatrix), test.ShouldBeTrue)
}

func TestDecomposeActionErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	path := writeFile(t, "p.json", knownMatrixFile)

	for _, tc := range []struct {
		name     string
		args     []string
		expected string
	}{
		{"no matrix", []string{"decompose"}, "a projection matrix is required"},
		{"matrix and file", []string{"decompose", knownMatrixFlag, "--file", path}, "set only one of --matrix or --file"},
		{"short matrix", []string{"decompose", "--matrix=1,2,3"}, "must have 12 values but has 3"},
		{"missing file", []string{"decompose", "--file", filepath.Join(t.TempDir(), "nope.json")}, "error reading JSON file"},
		{"bad format", []string{"--format", "yaml", "decompose", knownMatrixFlag}, `unknown output format "yaml"`},
		{"bad epsilon", []string{"--epsilon", "0", "decompose", knownMatrixFlag}, "epsilon must be positive and finite"},
		{"singular", []string{"decompose", "--matrix=1,2,3,4,2,4,6,5,0,1,1,1"}, "matrix is singular"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runApp(t, logger, tc.args...)
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.expected)
		})
	}
}

func TestRenderCameraAction(t *testing.T) {
	logger := logging.NewTestLogger(t)
	path := writeFile(t, "p.json", knownMatrixFile)

	out, err := runApp(t, logger, "render-camera", "--file", path, "--scale", "0.5")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "40x56")
	test.That(t, out, test.ShouldContainSubstring, "blender")
	test.That(t, out, test.ShouldContainSubstring, "Rotation (deg)")

	out, err = runApp(t, logger, "render-camera", "--file", utils.ResolveFile("etc/configs/projection_matrix.json"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "640x480")

	out, err = runApp(t, logger, "--format", "json", "render-camera", knownMatrixFlag)
	test.That(t, err, test.ShouldBeNil)
	var parsed map[string]interface{}
	test.That(t, json.Unmarshal([]byte(out), &parsed), test.ShouldBeNil)
	test.That(t, parsed["resolution_x"], test.ShouldEqual, 20.)
	test.That(t, parsed["resolution_y"], test.ShouldEqual, 28.)
	test.That(t, parsed["resolution_percentage"], test.ShouldEqual, 100.)
	test.That(t, parsed["world_matrix"], test.ShouldHaveLength, 4)

	out, err = runApp(t, logger, "render-camera", knownMatrixFlag, "--convention", "MATLAB")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "matlab")
	test.That(t, out, test.ShouldNotContainSubstring, "Rotation (deg)")

	_, err = runApp(t, logger, "render-camera", knownMatrixFlag, "--convention", "maya")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `unknown axis convention "maya"`)

	_, err = runApp(t, logger, "render-camera", knownMatrixFlag, "--scale", "0")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "resolution scale must be positive")
}

const batchConfig = `{
	"convention": "blender",
	"cameras": [
		{"name": "front", "rows": [[2, 0, -10, 282], [0, -3, -14, 417], [0, 0, -1, -18]]},
		{"name": "broken", "data": [1, 2, 3, 4, 2, 4, 6, 5, 0, 1, 1, 1]},
		{"name": "front-scaled", "rows": [[4, 0, -20, 564], [0, -6, -28, 834], [0, 0, -2, -36]]},
	],
}`

func TestBatchAction(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	path := writeFile(t, "cameras.json", batchConfig)

	out, err := runApp(t, logger, "batch", "--config", path)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "1 of 3 cameras failed to decompose")
	test.That(t, out, test.ShouldContainSubstring, "front-scaled")
	test.That(t, out, test.ShouldContainSubstring, "broken")
	test.That(t, out, test.ShouldContainSubstring, "matrix is singular")
	test.That(t, out, test.ShouldContainSubstring, "20x28")
	test.That(t, logs.FilterMessage("cannot decompose camera").Len(), test.ShouldEqual, 1)

	out, err = runApp(t, logger, "--format", "json", "batch", "--config", path)
	test.That(t, err, test.ShouldNotBeNil)
	var parsed []batchRow
	test.That(t, json.Unmarshal([]byte(out), &parsed), test.ShouldBeNil)
	test.That(t, parsed, test.ShouldHaveLength, 3)
	test.That(t, parsed[0].Name, test.ShouldEqual, "front")
	test.That(t, parsed[0].Error, test.ShouldBeEmpty)
	test.That(t, parsed[0].Render, test.ShouldNotBeNil)
	test.That(t, parsed[0].Render.ResolutionX, test.ShouldEqual, 20)
	test.That(t, parsed[1].Error, test.ShouldContainSubstring, "matrix is singular")
	test.That(t, parsed[1].K, test.ShouldBeNil)
	test.That(t, parsed[2].Scale, test.ShouldAlmostEqual, 2, 1e-9)
	test.That(t, parsed[2].Center.X, test.ShouldAlmostEqual, -231, 1e-9)
}

func TestBatchActionConfigErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)

	_, err := runApp(t, logger, "batch")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"config"`)

	_, err = runApp(t, logger, "batch", "--config", filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot read config file")

	path := writeFile(t, "empty.json", `{"cameras": []}`)
	_, err = runApp(t, logger, "batch", "--config", path)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"cameras" is required`)
}

func TestLogFile(t *testing.T) {
	logger := logging.NewBlankLogger("camcalib-cli-test.log-file")
	logger.SetLevel(logging.WARN)
	logPath := filepath.Join(t.TempDir(), "camcalib.log")

	_, err := runApp(t, logger, "--log-file", logPath, "decompose", "--matrix=1,0,0,1,0,1,0,2,0,0,1e-8,3e-8")
	test.That(t, err, test.ShouldBeNil)

	contents, err := os.ReadFile(logPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(contents), test.ShouldContainSubstring, "numerical instability")
	test.That(t, string(contents), test.ShouldContainSubstring, `"stage":"camera center pivot"`)
	test.That(t, string(contents), test.ShouldNotContainSubstring, "rq decomposition")
}

func TestConfigSchemaAction(t *testing.T) {
	out, err := runApp(t, logging.NewTestLogger(t), "config-schema")
	test.That(t, err, test.ShouldBeNil)

	var schema map[string]interface{}
	test.That(t, json.Unmarshal([]byte(out), &schema), test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, `"cameras"`)
	test.That(t, out, test.ShouldContainSubstring, `"rows"`)
}
