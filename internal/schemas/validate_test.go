package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	schemafiles "github.com/jonathan/idea-scout/schemas"
)

func TestLoad_AllEmbeddedSchemasCompile(t *testing.T) {
	for _, name := range schemafiles.Names() {
		t.Run(name, func(t *testing.T) {
			s, err := Load(name)
			require.NoError(t, err)
			assert.NotNil(t, s)

			again, err := Load(name)
			require.NoError(t, err)
			assert.Same(t, s, again, "compiled schema should be cached")
		})
	}
}

func TestLoad_Unknown(t *testing.T) {
	_, err := Load("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownSchema))
}

func TestValidateNamed_MarketResearch(t *testing.T) {
	valid := `{
		"market_size_estimate": "$4.2B",
		"growth_rate": "12% CAGR",
		"key_trends": ["remote work"],
		"target_demographics": "SMB owners",
		"market_maturity": "growing",
		"data_sources": ["https://example.com"],
		"summary": "Healthy market."
	}`
	assert.NoError(t, ValidateNamed(schemafiles.MarketResearch, valid))

	badEnum := `{
		"market_size_estimate": "$4.2B",
		"growth_rate": "12%",
		"key_trends": [],
		"target_demographics": "SMB",
		"market_maturity": "booming",
		"summary": "x"
	}`
	err := ValidateNamed(schemafiles.MarketResearch, badEnum)
	require.Error(t, err)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, schemafiles.MarketResearch, validationErr.Schema)
	assert.NotEmpty(t, validationErr.Errors)
	assert.Contains(t, err.Error(), "market_maturity")
}

func TestValidateNamed_CompetitorAnalysisMissingField(t *testing.T) {
	err := ValidateNamed(schemafiles.CompetitorAnalysis, `{"competitors": []}`)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.GreaterOrEqual(t, len(validationErr.Errors), 4)
}

func TestValidateNamed_EvaluationAcceptsLooseScore(t *testing.T) {
	assert.NoError(t, ValidateNamed(schemafiles.Evaluation, `{"score": "7", "verdict": "pivot"}`))
	assert.NoError(t, ValidateNamed(schemafiles.Evaluation, `{"score": 7.5}`))
	assert.Error(t, ValidateNamed(schemafiles.Evaluation, `{"key_risks": "not a list"}`))
}

func TestValidateNamed_MalformedDocument(t *testing.T) {
	err := ValidateNamed(schemafiles.Validation, `{ not json`)
	require.Error(t, err)
	var validationErr *ValidationError
	assert.False(t, errors.As(err, &validationErr))
}

func TestValidateJSONString_Valid(t *testing.T) {
	schemaContent := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string"}
		}
	}`

	assert.NoError(t, ValidateJSONString(schemaContent, `{"name": "test"}`))
}

func TestValidateJSONString_Invalid(t *testing.T) {
	schemaContent := `{
		"type": "object",
		"required": ["person"],
		"properties": {
			"person": {
				"type": "object",
				"required": ["name"],
				"properties": {"name": {"type": "string"}}
			}
		}
	}`

	err := ValidateJSONString(schemaContent, `{"person": {}}`)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)
	require.NotEmpty(t, validationErr.Errors)
	assert.Equal(t, "person", validationErr.Errors[0].Field)
}

func TestValidateJSONString_BadSchema(t *testing.T) {
	err := ValidateJSONString(`{"type": 12}`, `{}`)
	var loadErr *SchemaLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Error(), "(string schema)")
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Errors: []FieldError{
			{Field: "name", Message: "is required"},
			{Field: "age", Message: "must be a number"},
		},
	}

	errorMsg := err.Error()
	assert.Contains(t, errorMsg, "validation failed")
	assert.Contains(t, errorMsg, "1. name: is required")
	assert.Contains(t, errorMsg, "2. age")
}
