package report

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/kaptinlin/jsonschema"

	coreerrors "github.com/davidahmann/reportstore/core/errors"
)

// MetadataFileName is the run-level metadata document looked up in each
// input directory.
const MetadataFileName = "metadata.json"

//go:embed metadata.schema.json
var metadataSchemaJSON []byte

var (
	metadataSchemaOnce sync.Once
	metadataSchema     *jsonschema.Schema
	metadataSchemaErr  error
)

// Metadata is the decoded run-level metadata document. All fields are
// optional; Name feeds run-name derivation when the caller gave none.
type Metadata struct {
	Name             string `json:"name,omitempty"`
	Command          string `json:"command,omitempty"`
	Version          string `json:"version,omitempty"`
	WorkingDirectory string `json:"working_directory,omitempty"`
}

func compiledMetadataSchema() (*jsonschema.Schema, error) {
	metadataSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		metadataSchema, metadataSchemaErr = compiler.Compile(metadataSchemaJSON)
	})
	return metadataSchema, metadataSchemaErr
}

// ReadMetadata loads and schema-validates the metadata document at
// path. A malformed document is a parse_failed error; like report parse
// failures it is non-fatal to the batch.
func ReadMetadata(path string) (Metadata, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, coreerrors.Wrap(
			fmt.Errorf("read metadata %s: %w", path, err),
			coreerrors.CategoryParseFailed, "metadata_read_failed",
			"check that metadata.json is readable")
	}
	schema, err := compiledMetadataSchema()
	if err != nil {
		return Metadata{}, coreerrors.Wrap(
			fmt.Errorf("compile metadata schema: %w", err),
			coreerrors.CategoryInternal, "metadata_schema_invalid",
			"rebuild with an intact embedded schema")
	}
	if result := schema.ValidateJSON(payload); !result.IsValid() {
		return Metadata{}, coreerrors.Wrap(
			fmt.Errorf("metadata %s failed schema validation: %v", path, result.Errors),
			coreerrors.CategoryParseFailed, "metadata_schema_mismatch",
			"regenerate metadata.json with the analyzer")
	}
	var metadata Metadata
	if err := json.Unmarshal(payload, &metadata); err != nil {
		return Metadata{}, coreerrors.Wrap(
			fmt.Errorf("decode metadata %s: %w", path, err),
			coreerrors.CategoryParseFailed, "metadata_decode_failed",
			"regenerate metadata.json with the analyzer")
	}
	return metadata, nil
}
