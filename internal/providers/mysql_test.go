package providers_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/leasevault/internal/providers"
	"github.com/systmms/leasevault/pkg/provider"
)

func validMySQLInput() map[string]interface{} {
	return map[string]interface{}{
		"host":     "mysql.internal",
		"port":     3306,
		"username": "leaser",
		"password": "s3cret",
		"database": "app",
	}
}

// TestMySQLProviderContract runs the shared provider contract suite
func TestMySQLProviderContract(t *testing.T) {
	t.Parallel()

	provider.RunContractTests(t, provider.ContractTest{
		CreateProvider: func(t *testing.T) provider.Provider { return providers.NewMySQLProvider() },
		ValidInput:     validMySQLInput(),
		InvalidInput:   map[string]interface{}{"port": 3306},
	})
}

// TestMySQLValidateInputs validates schema and DSN checks
func TestMySQLValidateInputs(t *testing.T) {
	t.Parallel()

	p := providers.NewMySQLProvider()
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(m map[string]interface{})
		wantErr string
	}{
		{"valid", func(m map[string]interface{}) {}, ""},
		{"with_dsn", func(m map[string]interface{}) {
			m["dsn"] = "leaser:s3cret@tcp(mysql.internal:3306)/app?parseTime=true"
		}, ""},
		{"with_statements", func(m map[string]interface{}) {
			m["creation_statement"] = "CREATE USER '{{username}}'@'%' IDENTIFIED BY '{{password}}'"
			m["revocation_statement"] = "DROP USER '{{username}}'@'%'"
		}, ""},
		{"missing_database", func(m map[string]interface{}) {
			delete(m, "database")
		}, "database"},
		{"malformed_dsn", func(m map[string]interface{}) {
			m["dsn"] = "leaser@tcp(mysql.internal/app"
		}, "dsn"},
		{"creation_missing_placeholder", func(m map[string]interface{}) {
			m["creation_statement"] = "CREATE USER 'static'"
		}, "{{username}}"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			input := validMySQLInput()
			tt.mutate(input)

			_, err := p.ValidateInputs(ctx, input)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}

			var ve provider.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, providers.TypeMySQL, ve.Provider)
			assert.Contains(t, ve.Reason, tt.wantErr)
		})
	}
}
