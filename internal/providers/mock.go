package providers

import (
	"context"

	"github.com/systmms/leasevault/pkg/provider"
)

// TypeMock is the registry identifier for the mock provider.
const TypeMock = "mock"

// MockProvider accepts any JSON object and echoes it back. A "fail_reason"
// member forces a ValidationError carrying that reason, which lets tests and
// wiring examples exercise the rejection path without a real target system.
type MockProvider struct{}

// NewMockProvider creates the mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Type returns the provider type identifier.
func (p *MockProvider) Type() string {
	return TypeMock
}

// ValidateInputs echoes the input, honoring the fail_reason escape hatch.
func (p *MockProvider) ValidateInputs(ctx context.Context, raw map[string]interface{}) (map[string]interface{}, error) {
	if reason, ok := raw["fail_reason"].(string); ok && reason != "" {
		return nil, provider.ValidationError{Provider: TypeMock, Reason: reason}
	}
	return copyInputs(raw), nil
}
