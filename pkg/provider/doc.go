// Package provider defines the contract that dynamic secret providers must
// satisfy.
//
// A dynamic secret provider represents one class of target system that can
// mint short-lived credentials: a relational database, a cloud IAM service,
// and so on. This package intentionally specifies only the slice of the
// provider surface that the configuration engine needs: validating and
// normalizing the provider-specific configuration that will later be handed
// to a lease issuer. How a credential is actually created or revoked on the
// target system lives behind a separate issuer contract outside this module.
//
// # Implementing a Provider
//
// A provider implements two methods:
//
//	type Provider interface {
//	    Type() string
//	    ValidateInputs(ctx context.Context, raw map[string]interface{}) (map[string]interface{}, error)
//	}
//
// ValidateInputs must be idempotent and side-effect free. It never opens a
// connection to the target system; it only shapes and sanity-checks the
// configuration. Validating the same input twice must yield the same result.
//
// # Error Handling
//
// Providers report malformed input with ValidationError, which carries a
// human-readable reason safe to surface to callers. Looking up a provider
// type that was never registered yields UnknownProviderError.
//
// # Security Considerations
//
// Raw inputs typically embed privileged credentials (admin connection
// strings, cloud access keys). Providers must never log input values and
// must never embed them in error messages.
package provider
