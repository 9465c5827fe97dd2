package provider

import (
	"context"
	"fmt"
)

// Provider validates and normalizes configuration for one dynamic secret
// provider type.
//
// Implementations must be thread-safe: the engine dispatches validation for
// concurrent requests against a single registered instance.
type Provider interface {
	// Type returns the provider's stable, lowercase type identifier as used
	// in stored configs and registry lookups. Examples: "postgres", "mysql",
	// "aws-iam".
	Type() string

	// ValidateInputs checks raw provider configuration and returns the
	// normalized form that will be encrypted and persisted.
	//
	// Implementations must:
	//   - be idempotent and side-effect free (no network, no target calls)
	//   - return ValidationError with a human-readable reason on bad input
	//   - never include input values in errors or logs
	//   - return a new map; the caller may retain or mutate the result
	ValidateInputs(ctx context.Context, raw map[string]interface{}) (map[string]interface{}, error)
}

// ValidationError indicates provider configuration that is structurally or
// semantically invalid for its provider type.
type ValidationError struct {
	// Provider is the provider type that rejected the input.
	Provider string

	// Reason is a human-readable rejection reason. It must describe the
	// field or shape at fault without echoing sensitive values.
	Reason string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s provider input: %s", e.Provider, e.Reason)
}

// UnknownProviderError indicates a provider type with no registered
// implementation.
type UnknownProviderError struct {
	// Type is the provider type that could not be resolved.
	Type string
}

// Error implements the error interface.
func (e UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown dynamic secret provider type: %q", e.Type)
}
