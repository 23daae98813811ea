package component

import (
	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"
	"github.com/wI2L/jsondiff"
)

// SerializeSchema reflects a Go composite value into a JSON-schema
// fingerprint. The fingerprint is attached to the component's registry entry
// and persisted with run manifests so a reader can detect incompatible
// layouts before touching any column data.
func SerializeSchema(composite any) ([]byte, error) {
	reflected := jsonschema.Reflect(composite)
	schema, err := reflected.MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "composite must be json serializable")
	}
	return schema, nil
}

// IsSchemaValid reports whether two schema fingerprints describe the same
// layout.
func IsSchemaValid(schemaA, schemaB []byte) (bool, error) {
	patch, err := jsondiff.CompareJSON(schemaA, schemaB)
	if err != nil {
		return false, eris.Wrap(err, "")
	}
	return patch.String() == "", nil
}
