package providers

import (
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/systmms/leasevault/pkg/provider"
)

// mustCompileSchema compiles a JSON schema at registration time. Schemas are
// package constants, so a failure here is a programming error.
func mustCompileSchema(schemaJSON string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		panic("invalid provider input schema: " + err.Error())
	}
	return schema
}

// checkSchema validates raw input against a compiled schema and folds the
// schema errors into one ValidationError reason. Field names are safe to
// surface; field values never are, and gojsonschema descriptions do not
// echo them for the constraint kinds used here.
func checkSchema(schema *gojsonschema.Schema, providerType string, raw map[string]interface{}) error {
	result, err := schema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return provider.ValidationError{Provider: providerType, Reason: "input is not a JSON object"}
	}
	if result.Valid() {
		return nil
	}

	reasons := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		reasons = append(reasons, desc.String())
	}
	return provider.ValidationError{Provider: providerType, Reason: strings.Join(reasons, "; ")}
}

// copyInputs shallow-copies raw so normalization never mutates the caller's
// map.
func copyInputs(raw map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	return out
}

// normalizePort coerces the "port" member to int. JSON decoding yields
// float64 for all numbers; stored inputs should carry a plain int.
func normalizePort(inputs map[string]interface{}) {
	switch p := inputs["port"].(type) {
	case float64:
		inputs["port"] = int(p)
	case int64:
		inputs["port"] = int(p)
	}
}
