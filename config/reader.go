package config

import (
	"bytes"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"

	"go.viam.com/camcalib/logging"
)

// Read reads a config from the given file. Environment variables referenced as ${NAME} are
// substituted before parsing.
func Read(filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config file %q", filePath)
	}

	return FromReader(filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
// The logger level patterns of a valid config are applied to every logger.
func FromReader(originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read config")
	}

	cfg := &Config{}
	if err := json5.Unmarshal(buf, cfg); err != nil {
		return nil, errors.Wrapf(err, "cannot parse config %q", originalPath)
	}
	cfg.ConfigFilePath = originalPath

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Log) > 0 {
		if err := logging.UpdateLoggerLevels(cfg.Log, logger); err != nil {
			return nil, err
		}
	}
	logger.Debugw("read config", "path", originalPath, "cameras", len(cfg.Cameras))
	return cfg, nil
}
