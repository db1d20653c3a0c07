package exprs

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjection(t *testing.T) {
	expr, err := expression.NewBuilder().WithProjection(
		expression.NamesList(expression.Name("SK"), expression.Name("status"), expression.Name("meta.owner"), expression.Name("absent")),
	).Build()
	require.NoError(t, err)

	items, err := ProjectAll(expr.Projection(), expr.Names(), []Item{taskDoc})
	require.NoError(t, err)
	require.Len(t, items, 1)

	got := items[0]
	assert.Len(t, got, 3)
	assert.Equal(t, taskDoc["SK"], got["SK"])
	assert.Equal(t, taskDoc["status"], got["status"])
	assert.Equal(t, &types.AttributeValueMemberM{Value: Item{
		"owner": &types.AttributeValueMemberS{Value: "alice"},
	}}, got["meta"])
}

func TestProjection_Nil(t *testing.T) {
	items, err := ProjectAll(nil, nil, []Item{taskDoc})
	require.NoError(t, err)
	assert.Equal(t, taskDoc, items[0])
}
