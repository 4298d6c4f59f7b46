package main

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var openapiSpec []byte

// requestValidator validates inbound /clean bodies against the embedded
// OpenAPI document's CleanRequest schema before they reach job.New,
// rejecting malformed batches at the HTTP boundary (SPEC_FULL.md's
// Domain Stack, kin-openapi row).
type requestValidator struct {
	cleanRequest *openapi3.Schema
}

func loadRequestValidator() (*requestValidator, error) {
	doc, err := openapi3.NewLoader().LoadFromData(openapiSpec)
	if err != nil {
		return nil, fmt.Errorf("urlcleaner-server: parse embedded openapi document: %w", err)
	}

	ref, ok := doc.Components.Schemas["CleanRequest"]
	if !ok || ref.Value == nil {
		return nil, fmt.Errorf("urlcleaner-server: openapi document missing CleanRequest schema")
	}

	return &requestValidator{cleanRequest: ref.Value}, nil
}

// ValidateCleanRequest decodes body as arbitrary JSON and checks it
// against the CleanRequest schema, independent of how the batch is later
// decoded into []job.LazyTaskConfig.
func (v *requestValidator) ValidateCleanRequest(body []byte) error {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return v.cleanRequest.VisitJSON(data)
}
