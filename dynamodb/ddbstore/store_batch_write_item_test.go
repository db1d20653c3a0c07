package ddbstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_BatchWriteItem(t *testing.T) {
	store := newTestStore(t, singleTableDesign)
	ctx := context.Background()

	out, err := store.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{
			singleTableDesign.Name: {
				{PutRequest: &types.PutRequest{Item: map[string]types.AttributeValue{"pk": s("pk#1"), "sk": s("sk"), "gsi1pk": s("g"), "gsi1sk": s("1")}}},
				{PutRequest: &types.PutRequest{Item: map[string]types.AttributeValue{"pk": s("pk#2"), "sk": s("sk")}}},
			},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, out.UnprocessedItems)

	result, err := store.Scan(ctx, &dynamodb.ScanInput{TableName: &singleTableDesign.Name})
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)

	_, err = store.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{
			singleTableDesign.Name: {
				{DeleteRequest: &types.DeleteRequest{Key: map[string]types.AttributeValue{"pk": s("pk#1"), "sk": s("sk")}}},
				{DeleteRequest: &types.DeleteRequest{Key: map[string]types.AttributeValue{"pk": s("missing"), "sk": s("sk")}}},
			},
		},
	})
	require.NoError(t, err)

	result, err = store.Scan(ctx, &dynamodb.ScanInput{TableName: &singleTableDesign.Name})
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)

	gsi, err := store.Scan(ctx, &dynamodb.ScanInput{TableName: &singleTableDesign.Name, IndexName: ptrStr("gsi1")})
	require.NoError(t, err)
	assert.Empty(t, gsi.Items)
}

func TestStore_BatchWriteItem_Limits(t *testing.T) {
	store := newTestStore(t, singleTableDesign)
	ctx := context.Background()

	var reqs []types.WriteRequest
	for i := 0; i < MaxBatchWriteItems+1; i++ {
		reqs = append(reqs, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: map[string]types.AttributeValue{
			"pk": s(fmt.Sprintf("p%d", i)), "sk": s("s"),
		}}})
	}
	_, err := store.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{singleTableDesign.Name: reqs},
	})
	require.Error(t, err)

	dup := types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: map[string]types.AttributeValue{"pk": s("p"), "sk": s("s")}}}
	_, err = store.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{singleTableDesign.Name: {dup, dup}},
	})
	require.Error(t, err)
}
