package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidManifest reports a document that does not match the manifest
// schema.
var ErrInvalidManifest = errors.New("invalid manifest")

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "manifest.schema.json"

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return compiler.Compile(schemaURL)
})

// Validate checks a JSON document against the manifest schema.
func Validate(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compiling manifest schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := schema.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("%w: %s", ErrInvalidManifest, strings.Join(issues(verr), "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return nil
}

// issues lists the leaf causes of a validation error as "location: message".
func issues(err *jsonschema.ValidationError) []string {
	if len(err.Causes) == 0 {
		loc := err.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return []string{loc + ": " + strings.TrimSpace(err.Message)}
	}
	var out []string
	for _, cause := range err.Causes {
		out = append(out, issues(cause)...)
	}
	return out
}
