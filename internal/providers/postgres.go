package providers

import (
	"context"
	"strings"

	"github.com/lib/pq"
	"github.com/xeipuuv/gojsonschema"

	"github.com/systmms/leasevault/pkg/provider"
)

// TypePostgres is the registry identifier for the PostgreSQL provider.
const TypePostgres = "postgres"

const postgresInputSchema = `{
	"type": "object",
	"required": ["host", "port", "username", "password", "database"],
	"properties": {
		"host":     {"type": "string", "minLength": 1},
		"port":     {"type": "integer", "minimum": 1, "maximum": 65535},
		"username": {"type": "string", "minLength": 1},
		"password": {"type": "string", "minLength": 1},
		"database": {"type": "string", "minLength": 1},
		"ssl":      {"type": "boolean"},
		"connection_url":       {"type": "string", "minLength": 1},
		"creation_statement":   {"type": "string", "minLength": 1},
		"revocation_statement": {"type": "string", "minLength": 1}
	},
	"additionalProperties": false
}`

// PostgresProvider validates configuration for minting short-lived
// PostgreSQL users. The stored inputs carry the privileged connection the
// external issuer uses plus the SQL statement templates executed per lease.
type PostgresProvider struct {
	schema *gojsonschema.Schema
}

// NewPostgresProvider creates the PostgreSQL provider.
func NewPostgresProvider() *PostgresProvider {
	return &PostgresProvider{schema: mustCompileSchema(postgresInputSchema)}
}

// Type returns the provider type identifier.
func (p *PostgresProvider) Type() string {
	return TypePostgres
}

// ValidateInputs shapes and sanity-checks PostgreSQL provider configuration.
// No connection is opened; the connection URL is only parsed.
func (p *PostgresProvider) ValidateInputs(ctx context.Context, raw map[string]interface{}) (map[string]interface{}, error) {
	if err := checkSchema(p.schema, TypePostgres, raw); err != nil {
		return nil, err
	}

	inputs := copyInputs(raw)
	normalizePort(inputs)

	if rawURL, ok := inputs["connection_url"].(string); ok {
		if !strings.HasPrefix(rawURL, "postgres://") && !strings.HasPrefix(rawURL, "postgresql://") {
			return nil, provider.ValidationError{Provider: TypePostgres, Reason: "connection_url must use the postgres:// scheme"}
		}
		if _, err := pq.ParseURL(rawURL); err != nil {
			return nil, provider.ValidationError{Provider: TypePostgres, Reason: "connection_url is not a valid postgres URL"}
		}
	}

	if err := checkStatementTemplates(TypePostgres, inputs); err != nil {
		return nil, err
	}
	return inputs, nil
}

// checkStatementTemplates verifies the per-lease SQL templates reference the
// placeholders the issuer substitutes. A creation statement without a
// {{password}} placeholder would mint credentials nobody can use; a
// revocation statement without {{username}} could not target the right user.
func checkStatementTemplates(providerType string, inputs map[string]interface{}) error {
	if stmt, ok := inputs["creation_statement"].(string); ok {
		for _, placeholder := range []string{"{{username}}", "{{password}}"} {
			if !strings.Contains(stmt, placeholder) {
				return provider.ValidationError{
					Provider: providerType,
					Reason:   "creation_statement must contain the " + placeholder + " placeholder",
				}
			}
		}
	}
	if stmt, ok := inputs["revocation_statement"].(string); ok {
		if !strings.Contains(stmt, "{{username}}") {
			return provider.ValidationError{
				Provider: providerType,
				Reason:   "revocation_statement must contain the {{username}} placeholder",
			}
		}
	}
	return nil
}
