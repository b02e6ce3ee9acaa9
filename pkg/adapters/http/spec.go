package http

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var rawSpec []byte

// GetSwagger parses the embedded OpenAPI document.
func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse openapi document: %w", err)
	}
	return doc, nil
}

// bodyValidator checks request bodies against the component schemas of the document.
type bodyValidator struct {
	doc *openapi3.T
}

// decode unmarshals data into dst after validating it against the named schema.
func (v bodyValidator) decode(data []byte, schema string, dst any) error {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if v.doc != nil && v.doc.Components != nil {
		if ref, ok := v.doc.Components.Schemas[schema]; ok && ref.Value != nil {
			if err := ref.Value.VisitJSON(generic); err != nil {
				return fmt.Errorf("%s: %w", schema, err)
			}
		}
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("invalid %s: %w", schema, err)
	}
	return nil
}
