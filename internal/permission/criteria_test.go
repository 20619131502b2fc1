package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchesCriteria_JSONPathTruthy(t *testing.T) {
	record := map[string]any{"status": "open", "amount": 500}
	ok, err := matchesCriteria("$.status", record)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatchesCriteria_EmptyCriteriaIsFalse(t *testing.T) {
	ok, err := matchesCriteria("", map[string]any{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTruthy(t *testing.T) {
	assert.False(t, truthy(nil))
	assert.False(t, truthy(false))
	assert.True(t, truthy(true))
	assert.False(t, truthy([]any{}))
	assert.True(t, truthy([]any{1}))
	assert.True(t, truthy("anything"))
}

func TestEvaluateExpression_Boolean(t *testing.T) {
	record := map[string]any{"amount": 1500}
	ok, err := evaluateExpression("amount > 1000", record)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateExpression_False(t *testing.T) {
	record := map[string]any{"amount": 500}
	ok, err := evaluateExpression("amount > 1000", record)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateExpression_InvalidExpressionErrors(t *testing.T) {
	_, err := evaluateExpression("amount >", map[string]any{"amount": 1})
	assert.Error(t, err)
}
