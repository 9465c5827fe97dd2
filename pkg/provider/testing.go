package provider

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

// ContractTest defines a standard test suite that all providers must pass.
type ContractTest struct {
	// CreateProvider creates a new instance of the provider to test.
	CreateProvider func(t *testing.T) Provider

	// ValidInput is an input the provider must accept.
	ValidInput map[string]interface{}

	// InvalidInput is an input the provider must reject with ValidationError.
	InvalidInput map[string]interface{}
}

// RunContractTests runs the standard provider contract test suite.
func RunContractTests(t *testing.T, contract ContractTest) {
	t.Run("Contract", func(t *testing.T) {
		t.Run("Type", func(t *testing.T) {
			p := contract.CreateProvider(t)
			if p.Type() == "" {
				t.Error("provider Type() must not be empty")
			}
		})

		t.Run("AcceptsValidInput", func(t *testing.T) {
			p := contract.CreateProvider(t)
			out, err := p.ValidateInputs(context.Background(), contract.ValidInput)
			if err != nil {
				t.Fatalf("valid input rejected: %v", err)
			}
			if out == nil {
				t.Fatal("validated input must not be nil")
			}
		})

		t.Run("RejectsInvalidInput", func(t *testing.T) {
			p := contract.CreateProvider(t)
			_, err := p.ValidateInputs(context.Background(), contract.InvalidInput)
			if err == nil {
				t.Fatal("invalid input accepted")
			}
			var ve ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if ve.Reason == "" {
				t.Error("ValidationError must carry a reason")
			}
		})

		t.Run("Idempotent", func(t *testing.T) {
			p := contract.CreateProvider(t)
			first, err := p.ValidateInputs(context.Background(), contract.ValidInput)
			if err != nil {
				t.Fatalf("first validation failed: %v", err)
			}
			second, err := p.ValidateInputs(context.Background(), contract.ValidInput)
			if err != nil {
				t.Fatalf("second validation failed: %v", err)
			}
			if !reflect.DeepEqual(first, second) {
				t.Error("validation is not idempotent: results differ between runs")
			}
		})

		t.Run("DoesNotMutateInput", func(t *testing.T) {
			p := contract.CreateProvider(t)
			snapshot := make(map[string]interface{}, len(contract.ValidInput))
			for k, v := range contract.ValidInput {
				snapshot[k] = v
			}
			if _, err := p.ValidateInputs(context.Background(), contract.ValidInput); err != nil {
				t.Fatalf("validation failed: %v", err)
			}
			if !reflect.DeepEqual(snapshot, contract.ValidInput) {
				t.Error("validation mutated the raw input map")
			}
		})
	})
}
