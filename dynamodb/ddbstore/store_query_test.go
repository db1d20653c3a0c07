package ddbstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sortKeys(items []map[string]types.AttributeValue, attr string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		switch v := it[attr].(type) {
		case *types.AttributeValueMemberS:
			out[i] = v.Value
		case *types.AttributeValueMemberN:
			out[i] = v.Value
		}
	}
	return out
}

func TestStore_Query(t *testing.T) {
	store := newTestStore(t, singleTableDesign, numericSortKeyTable)
	ctx := context.Background()
	putAll(t, store, singleTableDesign.Name,
		map[string]types.AttributeValue{"pk": s("user#1"), "sk": s("order#002"), "kind": s("order")},
		map[string]types.AttributeValue{"pk": s("user#1"), "sk": s("order#001"), "kind": s("order")},
		map[string]types.AttributeValue{"pk": s("user#1"), "sk": s("profile"), "kind": s("profile")},
		map[string]types.AttributeValue{"pk": s("user#2"), "sk": s("order#001"), "kind": s("order")},
	)

	query := func(in dynamodb.QueryInput) *dynamodb.QueryOutput {
		t.Helper()
		in.TableName = &singleTableDesign.Name
		out, err := store.Query(ctx, &in)
		require.NoError(t, err)
		return out
	}

	t.Run("partition only, sorted", func(t *testing.T) {
		out := query(dynamodb.QueryInput{
			KeyConditionExpression:    ptrStr("pk = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{":pk": s("user#1")},
		})
		assert.Equal(t, []string{"order#001", "order#002", "profile"}, sortKeys(out.Items, "sk"))
		assert.Nil(t, out.LastEvaluatedKey)
	})

	t.Run("begins_with", func(t *testing.T) {
		out := query(dynamodb.QueryInput{
			KeyConditionExpression: ptrStr("pk = :pk AND begins_with(sk, :p)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": s("user#1"), ":p": s("order#"),
			},
		})
		assert.Equal(t, []string{"order#001", "order#002"}, sortKeys(out.Items, "sk"))
	})

	t.Run("descending", func(t *testing.T) {
		out := query(dynamodb.QueryInput{
			KeyConditionExpression:    ptrStr("pk = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{":pk": s("user#1")},
			ScanIndexForward:          aws.Bool(false),
		})
		assert.Equal(t, []string{"profile", "order#002", "order#001"}, sortKeys(out.Items, "sk"))
	})

	t.Run("limit counts before filter", func(t *testing.T) {
		out := query(dynamodb.QueryInput{
			KeyConditionExpression: ptrStr("pk = :pk"),
			FilterExpression:       ptrStr("kind = :k"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": s("user#1"), ":k": s("profile"),
			},
			Limit: aws.Int32(2),
		})
		assert.Empty(t, out.Items)
		assert.Equal(t, int32(2), out.ScannedCount)
		require.NotNil(t, out.LastEvaluatedKey)

		next := query(dynamodb.QueryInput{
			KeyConditionExpression: ptrStr("pk = :pk"),
			FilterExpression:       ptrStr("kind = :k"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": s("user#1"), ":k": s("profile"),
			},
			Limit:             aws.Int32(2),
			ExclusiveStartKey: out.LastEvaluatedKey,
		})
		assert.Equal(t, []string{"profile"}, sortKeys(next.Items, "sk"))
		assert.Nil(t, next.LastEvaluatedKey)
	})

	t.Run("numeric sort key", func(t *testing.T) {
		for _, v := range []string{"10", "9", "100", "-1"} {
			putAll(t, store, numericSortKeyTable.Name, map[string]types.AttributeValue{"pk": s("p"), "sk": n(v)})
		}
		out, err := store.Query(ctx, &dynamodb.QueryInput{
			TableName:                 &numericSortKeyTable.Name,
			KeyConditionExpression:    ptrStr("pk = :pk AND sk BETWEEN :lo AND :hi"),
			ExpressionAttributeValues: map[string]types.AttributeValue{":pk": s("p"), ":lo": n("0"), ":hi": n("50")},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"9", "10"}, sortKeys(out.Items, "sk"))
	})

	t.Run("invalid key condition", func(t *testing.T) {
		_, err := store.Query(ctx, &dynamodb.QueryInput{
			TableName:                 &singleTableDesign.Name,
			KeyConditionExpression:    ptrStr("kind = :k"),
			ExpressionAttributeValues: map[string]types.AttributeValue{":k": s("order")},
		})
		require.Error(t, err)
	})
}

func TestStore_QueryGSI(t *testing.T) {
	store := newTestStore(t, singleTableDesign)
	ctx := context.Background()

	// Items share GSI key values but must all be returned.
	for i := 0; i < 5; i++ {
		putAll(t, store, singleTableDesign.Name, map[string]types.AttributeValue{
			"pk": s(fmt.Sprintf("board#%d", i%2)), "sk": s(fmt.Sprintf("task#%d", i)),
			"gsi1pk": s("TODO"), "gsi1sk": s("2024-01-01"),
		})
	}
	putAll(t, store, singleTableDesign.Name, map[string]types.AttributeValue{
		"pk": s("board#9"), "sk": s("board#9"),
	})

	var all []map[string]types.AttributeValue
	var start map[string]types.AttributeValue
	for {
		out, err := store.Query(ctx, &dynamodb.QueryInput{
			TableName:                 &singleTableDesign.Name,
			IndexName:                 ptrStr("gsi1"),
			KeyConditionExpression:    ptrStr("gsi1pk = :s"),
			ExpressionAttributeValues: map[string]types.AttributeValue{":s": s("TODO")},
			Limit:                     aws.Int32(2),
			ExclusiveStartKey:         start,
		})
		require.NoError(t, err)
		all = append(all, out.Items...)
		if out.LastEvaluatedKey == nil {
			break
		}
		assert.Contains(t, out.LastEvaluatedKey, "pk", "GSI pagination keys carry the base key")
		start = out.LastEvaluatedKey
	}
	assert.Len(t, all, 5)

	_, err := store.Query(ctx, &dynamodb.QueryInput{
		TableName:                 &singleTableDesign.Name,
		IndexName:                 ptrStr("gsi1"),
		KeyConditionExpression:    ptrStr("gsi1pk = :s"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":s": s("TODO")},
		ConsistentRead:            aws.Bool(true),
	})
	require.Error(t, err, "GSIs are eventually consistent")
}
