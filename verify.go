package esmerald

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrInvalidDocument is returned by Verify when a generated document does
// not hold up.
var ErrInvalidDocument = errors.New("invalid openapi document")

// componentsURL is where the component schemas are registered with the
// JSON Schema compiler. It is never fetched.
const componentsURL = "https://esmerald.invalid/components.json"

// OpenAPI 3.1 keys that the 3.0-shaped loader keeps as unknown siblings.
var openAPI31Fields = []string{
	"contentEncoding",
	"contentMediaType",
	"deprecated",
	"description",
	"examples",
	"identifier",
	"summary",
	"webhooks",
}

// Verify checks a generated document twice: it must load and validate as
// an OpenAPI document, and every component schema must compile as JSON
// Schema 2020-12 with all references resolving.
func Verify(ctx context.Context, doc OpenAPISpec) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: marshal: %w", ErrInvalidDocument, err)
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	loaded, err := loader.LoadFromData(raw)
	if err != nil {
		return fmt.Errorf("%w: load: %w", ErrInvalidDocument, err)
	}
	if err := loaded.Validate(ctx,
		openapi3.DisableExamplesValidation(),
		openapi3.AllowExtraSiblingFields(openAPI31Fields...),
	); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if doc.Components == nil || len(doc.Components.Schemas) == 0 {
		return nil
	}
	c, err := componentCompiler(doc.Components.Schemas)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	for _, name := range slices.Sorted(maps.Keys(doc.Components.Schemas)) {
		if _, err := c.Compile(componentLocation(name)); err != nil {
			return fmt.Errorf("%w: schema %s: %w", ErrInvalidDocument, name, err)
		}
	}
	return nil
}

// ValidateAgainst validates a JSON payload against the named component
// schema of doc.
func ValidateAgainst(doc OpenAPISpec, name string, payload []byte) error {
	if doc.Components == nil {
		return fmt.Errorf("schema %s: document has no components", name)
	}
	if _, ok := doc.Components.Schemas[name]; !ok {
		return fmt.Errorf("schema %s: not defined", name)
	}

	c, err := componentCompiler(doc.Components.Schemas)
	if err != nil {
		return err
	}
	schema, err := c.Compile(componentLocation(name))
	if err != nil {
		return fmt.Errorf("schema %s: %w", name, err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("schema %s: decode payload: %w", name, err)
	}
	return schema.Validate(inst)
}

// componentCompiler registers the component schemas as the $defs of one
// 2020-12 document, with component references rewritten to match.
func componentCompiler(schemas map[string]JSONSchema) (*jsonschema.Compiler, error) {
	raw, err := json.Marshal(schemas)
	if err != nil {
		return nil, err
	}
	raw = bytes.ReplaceAll(raw, []byte(`"`+refPrefix), []byte(`"#/$defs/`))

	defs, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	c := jsonschema.NewCompiler()
	c.DefaultDraft(jsonschema.Draft2020)
	if err := c.AddResource(componentsURL, map[string]any{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"$defs":   defs,
	}); err != nil {
		return nil, err
	}
	return c, nil
}

func componentLocation(name string) string {
	return componentsURL + "#/$defs/" + name
}
