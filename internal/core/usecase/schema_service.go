package usecase

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	santhosh "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
)

const (
	SchemaVehicleCreate      = "vehicle_create"
	SchemaVehiclePatch       = "vehicle_patch"
	SchemaEmissionTestCreate = "emission_test_create"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// PayloadValidator checks request bodies against the embedded JSON schemas.
// All schemas are compiled once at construction.
type PayloadValidator struct {
	schemas map[string]*santhosh.Schema
}

func NewPayloadValidator() (*PayloadValidator, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("read schemas: %w", err)
	}

	v := &PayloadValidator{schemas: make(map[string]*santhosh.Schema, len(entries))}
	for _, entry := range entries {
		raw, err := schemaFS.ReadFile(path.Join("schemas", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", entry.Name(), err)
		}
		compiled, err := compileSchema(entry.Name(), raw)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", entry.Name(), err)
		}
		v.schemas[strings.TrimSuffix(entry.Name(), ".json")] = compiled
	}
	return v, nil
}

// Validate checks data against the named schema. Returns
// *domain.ErrSchemaViolation on failure.
func (v *PayloadValidator) Validate(name string, data json.RawMessage) error {
	sch, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	return runValidation(name, sch, data)
}

func compileSchema(name string, schemaJSON []byte) (*santhosh.Schema, error) {
	compiler := santhosh.NewCompiler()
	compiler.Draft = santhosh.Draft7
	compiler.AssertFormat = true
	if err := compiler.AddResource(name, bytes.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return compiler.Compile(name)
}

func runValidation(name string, sch *santhosh.Schema, data json.RawMessage) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return &domain.ErrSchemaViolation{Schema: name, Errors: []string{"body must be valid json"}}
	}
	if err := sch.Validate(doc); err != nil {
		var ve *santhosh.ValidationError
		if errors.As(err, &ve) {
			return &domain.ErrSchemaViolation{Schema: name, Errors: collectValidationErrors(ve)}
		}
		return &domain.ErrSchemaViolation{Schema: name, Errors: []string{err.Error()}}
	}
	return nil
}

func collectValidationErrors(ve *santhosh.ValidationError) []string {
	var msgs []string
	for _, cause := range ve.Causes {
		msgs = append(msgs, collectValidationErrors(cause)...)
	}
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		msgs = append(msgs, loc+": "+ve.Message)
	}
	return msgs
}
