package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"

	"go.viam.com/camcalib/logging"
	"go.viam.com/camcalib/rimage/transform"
	"go.viam.com/camcalib/rimage/transform/rendercam"
	"go.viam.com/camcalib/utils"
)

const camerasConfig = `{
	// tolerances apply to every camera
	"epsilon": ${CAMCALIB_TEST_EPSILON},
	"scale": 0.5,
	"convention": "matlab",
	"log": [{"pattern": "camcalib-config-test.*", "level": "debug"}],
	"cameras": [
		{
			"name": "front",
			"rows": [
				[2, 0, -10, 282],
				[0, -3, -14, 417],
				[0, 0, -1, -18],
			],
		},
		{"name": "back", "data": [952.8134, 0, 616.1314, 10, 0, 940.6325, 369.6583, 10, 0, 0, 1, 10]},
	],
}`

func TestRead(t *testing.T) {
	t.Setenv("CAMCALIB_TEST_EPSILON", "1e-8")
	path := filepath.Join(t.TempDir(), "cameras.json")
	test.That(t, os.WriteFile(path, []byte(camerasConfig), 0o600), test.ShouldBeNil)

	sub := logging.NewBlankLogger("camcalib-config-test.reader")
	test.That(t, sub.GetLevel(), test.ShouldEqual, logging.DEBUG)
	sub.SetLevel(logging.WARN)

	logger := logging.NewTestLogger(t)
	cfg, err := Read(path, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, path)
	test.That(t, cfg.Epsilon, test.ShouldEqual, 1e-8)
	test.That(t, cfg.ResolutionScale(), test.ShouldEqual, 0.5)
	test.That(t, cfg.AxisConvention(), test.ShouldEqual, rendercam.MatlabToolboxConvention)
	test.That(t, cfg.Cameras, test.ShouldHaveLength, 2)
	test.That(t, cfg.Cameras[0].Name, test.ShouldEqual, "front")
	test.That(t, cfg.Cameras[1].Data, test.ShouldHaveLength, 12)

	// the pattern from the config reaches loggers that already exist
	test.That(t, sub.GetLevel(), test.ShouldEqual, logging.DEBUG)

	ps, err := cfg.ProjectionMatrices()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ps, test.ShouldHaveLength, 2)
	test.That(t, ps[0].At(1, 3), test.ShouldEqual, 417.)
	test.That(t, ps[1].At(0, 2), test.ShouldEqual, 616.1314)

	test.That(t, cfg.DecomposeOptions(nil), test.ShouldHaveLength, 1)
	test.That(t, cfg.DecomposeOptions(logger), test.ShouldHaveLength, 2)
	dec, err := transform.DecomposeProjectionMatrix(ps[0], cfg.DecomposeOptions(logger)...)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dec.K.At(0, 2), test.ShouldAlmostEqual, 10)
}

func TestReadSampleConfig(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg, err := Read(utils.ResolveFile("etc/configs/cameras.json"), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Cameras, test.ShouldHaveLength, 2)
	test.That(t, cfg.AxisConvention(), test.ShouldEqual, rendercam.BlenderConvention)

	ps, err := cfg.ProjectionMatrices()
	test.That(t, err, test.ShouldBeNil)
	dec, err := transform.DecomposeProjectionMatrix(ps[1], cfg.DecomposeOptions(logger)...)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dec.K.At(0, 0), test.ShouldAlmostEqual, 800)
	test.That(t, dec.Center.Z, test.ShouldAlmostEqual, -5)
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.json"), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot read config file")
}

func TestFromReaderDefaults(t *testing.T) {
	cfg, err := FromReader("inline", strings.NewReader(`{"cameras": [{"name": "a", "data": [1,0,0,0, 0,1,0,0, 0,0,1,0]}]}`),
		logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ResolutionScale(), test.ShouldEqual, 1.)
	test.That(t, cfg.AxisConvention(), test.ShouldEqual, rendercam.BlenderConvention)
	test.That(t, cfg.DecomposeOptions(nil), test.ShouldBeEmpty)
}

func TestConfigValidate(t *testing.T) {
	identity := transform.ProjectionMatrixConfig{Data: []float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0}}
	for _, tc := range []struct {
		name   string
		cfg    Config
		errStr string
	}{
		{"no cameras", Config{}, `error validating "config": "cameras" is required`},
		{
			"missing name",
			Config{Cameras: []CameraConfig{{ProjectionMatrixConfig: identity}}},
			`error validating "cameras.0": "name" is required`,
		},
		{
			"duplicate name",
			Config{Cameras: []CameraConfig{{"a", identity}, {"a", identity}}},
			`duplicate camera name "a"`,
		},
		{
			"bad matrix",
			Config{Cameras: []CameraConfig{{Name: "a", ProjectionMatrixConfig: transform.ProjectionMatrixConfig{Data: []float64{1}}}}},
			`error validating "cameras.0": projection matrix data must have 12 values`,
		},
		{"negative epsilon", Config{Epsilon: -1}, `error validating "epsilon"`},
		{"negative scale", Config{Scale: -2}, `error validating "scale"`},
		{"bad convention", Config{Convention: "unity"}, `unknown axis convention "unity"`},
		{
			"bad log pattern",
			Config{Log: []logging.LoggerPatternConfig{{Pattern: "a..b", Level: "info"}}},
			`invalid logger pattern "a..b"`,
		},
		{
			"bad log level",
			Config{Log: []logging.LoggerPatternConfig{{Pattern: "a.b", Level: "loud"}}},
			`unknown log level`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.errStr)
		})
	}

	valid := Config{Scale: 2, Convention: "blender", Cameras: []CameraConfig{{"a", identity}}}
	test.That(t, valid.Validate(), test.ShouldBeNil)
}

func TestFromReaderInvalid(t *testing.T) {
	_, err := FromReader("broken", strings.NewReader(`{"cameras": [`), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `cannot parse config "broken"`)

	_, err = FromReader("empty", strings.NewReader(`{}`), logging.NewTestLogger(t))
	test.That(t, err.Error(), test.ShouldContainSubstring, `"cameras" is required`)
}
