// Package validation validates input documents against their JSON schemas.
package validation

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/plumbline-dev/plumbline/internal/application/dto"
	"github.com/plumbline-dev/plumbline/internal/application/ports"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBaseURL = "https://plumbline.dev/schemas/"

// schemaFiles maps each document kind to its root schema.
var schemaFiles = map[dto.DocumentKind]string{
	dto.DocumentState:     "design-state.json",
	dto.DocumentLock:      "program-lock.json",
	dto.DocumentArtifacts: "artifacts.json",
	dto.DocumentGeometry:  "geometry.json",
}

// Ensure interface compliance
var _ ports.SchemaValidator = (*SchemaValidator)(nil)

// SchemaValidator validates raw JSON documents against the embedded
// Draft 2020-12 schemas. Schemas are compiled once at construction.
type SchemaValidator struct {
	schemas map[dto.DocumentKind]*jsonschema.Schema
}

// NewSchemaValidator compiles the embedded schemas.
func NewSchemaValidator() (*SchemaValidator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("failed to list embedded schemas: %w", err)
	}
	for _, entry := range entries {
		data, err := schemaFS.ReadFile("schemas/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", entry.Name(), err)
		}
		if err := compiler.AddResource(schemaBaseURL+entry.Name(), bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to add schema resource %s: %w", entry.Name(), err)
		}
	}

	v := &SchemaValidator{schemas: make(map[dto.DocumentKind]*jsonschema.Schema, len(schemaFiles))}
	for kind, file := range schemaFiles {
		schema, err := compiler.Compile(schemaBaseURL + file)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema for %s: %w", kind, err)
		}
		v.schemas[kind] = schema
	}
	return v, nil
}

// Validate checks document against the schema for kind.
func (v *SchemaValidator) Validate(kind dto.DocumentKind, document []byte) error {
	schema, ok := v.schemas[kind]
	if !ok {
		return fmt.Errorf("no schema for document kind %q", kind)
	}

	decoder := json.NewDecoder(bytes.NewReader(document))
	decoder.UseNumber()
	var instance any
	if err := decoder.Decode(&instance); err != nil {
		return fmt.Errorf("%s is not valid JSON: %w", kind, err)
	}

	if err := schema.Validate(instance); err != nil {
		if validationErr, ok := err.(*jsonschema.ValidationError); ok {
			return formatSchemaValidationError(kind, validationErr)
		}
		return fmt.Errorf("%s validation failed: %w", kind, err)
	}
	return nil
}

// formatSchemaValidationError flattens the error tree into one message per
// failing location.
func formatSchemaValidationError(kind dto.DocumentKind, err *jsonschema.ValidationError) error {
	var messages []string

	var collectErrors func(*jsonschema.ValidationError)
	collectErrors = func(e *jsonschema.ValidationError) {
		// Leaf causes carry the useful message
		if len(e.Causes) == 0 && e.Message != "" {
			location := e.InstanceLocation
			if location == "" {
				location = "(root)"
			}
			messages = append(messages, fmt.Sprintf("%s: %s", location, e.Message))
		}
		for _, cause := range e.Causes {
			collectErrors(cause)
		}
	}

	collectErrors(err)

	if len(messages) == 0 {
		return fmt.Errorf("%s schema validation failed", kind)
	}

	return fmt.Errorf("%s schema validation failed:\n    - %s", kind, strings.Join(messages, "\n    - "))
}
