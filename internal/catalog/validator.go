package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/board-definition-v1.json
var boardDefinitionSchemaJSON string

type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()

	if err := compiler.AddResource("board-definition-v1.json",
		strings.NewReader(boardDefinitionSchemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile("board-definition-v1.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Validator{schema: schema}, nil
}

// Validate checks raw definition bytes against the schema.
func (v *Validator) Validate(data []byte) error {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	return nil
}

// Parse validates data and decodes it into a definition.
func (v *Validator) Parse(data []byte) (*BoardDefinition, error) {
	if err := v.Validate(data); err != nil {
		return nil, err
	}

	var def BoardDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal definition: %w", err)
	}

	if err := def.check(); err != nil {
		return nil, fmt.Errorf("invalid definition: %w", err)
	}

	return &def, nil
}

// ValidateDefinition validates an in-memory definition.
func (v *Validator) ValidateDefinition(def *BoardDefinition) error {
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to marshal definition: %w", err)
	}

	if err := v.Validate(data); err != nil {
		return err
	}
	return def.check()
}
