package providers

import (
	"context"
	"encoding/json"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/xeipuuv/gojsonschema"

	"github.com/systmms/leasevault/pkg/provider"
)

// TypeAWSIAM is the registry identifier for the AWS IAM user provider.
const TypeAWSIAM = "aws-iam"

const awsIAMInputSchema = `{
	"type": "object",
	"required": ["access_key_id", "secret_access_key", "region"],
	"properties": {
		"access_key_id":     {"type": "string", "minLength": 16},
		"secret_access_key": {"type": "string", "minLength": 16},
		"region":            {"type": "string", "minLength": 1},
		"path":              {"type": "string"},
		"policy_arns":       {"type": "array", "items": {"type": "string"}, "minItems": 1},
		"policy_document":   {"type": "string", "minLength": 2},
		"permission_boundary_arn": {"type": "string"}
	},
	"additionalProperties": false
}`

var (
	awsAccessKeyPattern = regexp.MustCompile(`^(AKIA|ASIA)[A-Z0-9]{16}$`)
	awsRegionPattern    = regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-\d$`)
	awsIAMPathPattern   = regexp.MustCompile(`^/([\x21-\x7F]+/)*$`)
)

// AWSIAMProvider validates configuration for minting short-lived IAM users.
// The stored inputs carry the privileged key pair the issuer uses and the
// policies attached to each minted user.
type AWSIAMProvider struct {
	schema *gojsonschema.Schema
}

// NewAWSIAMProvider creates the AWS IAM provider.
func NewAWSIAMProvider() *AWSIAMProvider {
	return &AWSIAMProvider{schema: mustCompileSchema(awsIAMInputSchema)}
}

// Type returns the provider type identifier.
func (p *AWSIAMProvider) Type() string {
	return TypeAWSIAM
}

// ValidateInputs shapes and sanity-checks AWS IAM provider configuration.
// No AWS API is called; ARNs and key formats are checked locally.
func (p *AWSIAMProvider) ValidateInputs(ctx context.Context, raw map[string]interface{}) (map[string]interface{}, error) {
	if err := checkSchema(p.schema, TypeAWSIAM, raw); err != nil {
		return nil, err
	}

	inputs := copyInputs(raw)

	if keyID, ok := inputs["access_key_id"].(string); ok && !awsAccessKeyPattern.MatchString(keyID) {
		return nil, provider.ValidationError{Provider: TypeAWSIAM, Reason: "access_key_id is not a valid AWS access key id"}
	}
	if region, ok := inputs["region"].(string); ok && !awsRegionPattern.MatchString(region) {
		return nil, provider.ValidationError{Provider: TypeAWSIAM, Reason: "region is not a valid AWS region"}
	}
	if path, ok := inputs["path"].(string); ok && path != "" && !awsIAMPathPattern.MatchString(path) {
		return nil, provider.ValidationError{Provider: TypeAWSIAM, Reason: "path must start and end with a slash"}
	}

	if rawARNs, ok := inputs["policy_arns"].([]interface{}); ok {
		for _, rawARN := range rawARNs {
			s, ok := rawARN.(string)
			if !ok {
				return nil, provider.ValidationError{Provider: TypeAWSIAM, Reason: "policy_arns entries must be strings"}
			}
			if err := checkIAMPolicyARN(s); err != nil {
				return nil, err
			}
		}
	}
	if rawARN, ok := inputs["permission_boundary_arn"].(string); ok && rawARN != "" {
		if err := checkIAMPolicyARN(rawARN); err != nil {
			return nil, err
		}
	}

	if doc, ok := inputs["policy_document"].(string); ok {
		if !json.Valid([]byte(doc)) {
			return nil, provider.ValidationError{Provider: TypeAWSIAM, Reason: "policy_document is not valid JSON"}
		}
	}

	return inputs, nil
}

func checkIAMPolicyARN(s string) error {
	parsed, err := arn.Parse(s)
	if err != nil {
		return provider.ValidationError{Provider: TypeAWSIAM, Reason: "policy ARN is malformed"}
	}
	if parsed.Service != "iam" {
		return provider.ValidationError{Provider: TypeAWSIAM, Reason: "policy ARN must be an iam ARN"}
	}
	return nil
}
