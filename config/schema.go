package config

import (
	"github.com/invopop/jsonschema"
)

// Schema returns the JSON schema that config files are checked against by editors.
func Schema() *jsonschema.Schema {
	return jsonschema.Reflect(&Config{})
}
