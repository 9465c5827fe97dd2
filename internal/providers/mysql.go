package providers

import (
	"context"

	"github.com/go-sql-driver/mysql"
	"github.com/xeipuuv/gojsonschema"

	"github.com/systmms/leasevault/pkg/provider"
)

// TypeMySQL is the registry identifier for the MySQL provider.
const TypeMySQL = "mysql"

const mysqlInputSchema = `{
	"type": "object",
	"required": ["host", "port", "username", "password", "database"],
	"properties": {
		"host":     {"type": "string", "minLength": 1},
		"port":     {"type": "integer", "minimum": 1, "maximum": 65535},
		"username": {"type": "string", "minLength": 1},
		"password": {"type": "string", "minLength": 1},
		"database": {"type": "string", "minLength": 1},
		"dsn":      {"type": "string", "minLength": 1},
		"creation_statement":   {"type": "string", "minLength": 1},
		"revocation_statement": {"type": "string", "minLength": 1}
	},
	"additionalProperties": false
}`

// MySQLProvider validates configuration for minting short-lived MySQL users.
type MySQLProvider struct {
	schema *gojsonschema.Schema
}

// NewMySQLProvider creates the MySQL provider.
func NewMySQLProvider() *MySQLProvider {
	return &MySQLProvider{schema: mustCompileSchema(mysqlInputSchema)}
}

// Type returns the provider type identifier.
func (p *MySQLProvider) Type() string {
	return TypeMySQL
}

// ValidateInputs shapes and sanity-checks MySQL provider configuration. An
// optional dsn member is parsed with the driver's own DSN parser; nothing is
// dialed.
func (p *MySQLProvider) ValidateInputs(ctx context.Context, raw map[string]interface{}) (map[string]interface{}, error) {
	if err := checkSchema(p.schema, TypeMySQL, raw); err != nil {
		return nil, err
	}

	inputs := copyInputs(raw)
	normalizePort(inputs)

	if dsn, ok := inputs["dsn"].(string); ok {
		if _, err := mysql.ParseDSN(dsn); err != nil {
			return nil, provider.ValidationError{Provider: TypeMySQL, Reason: "dsn is not a valid mysql DSN"}
		}
	}

	if err := checkStatementTemplates(TypeMySQL, inputs); err != nil {
		return nil, err
	}
	return inputs, nil
}
