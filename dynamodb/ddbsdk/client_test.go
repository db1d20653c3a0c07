package ddbsdk

import (
	"context"
	"testing"

	"github.com/acksell/kanban/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEntity is a shared test entity used across client operation tests
type testEntity struct {
	PK     string `dynamodbav:"pk"`
	SK     string `dynamodbav:"sk"`
	Name   string `dynamodbav:"name"`
	Email  string `dynamodbav:"email,omitempty"`
	Age    int    `dynamodbav:"age"`
	Status string `dynamodbav:"status,omitempty"`
}

var clientTestTable = table.TableDefinition{
	Name: "test-table",
	KeyDefinitions: table.PrimaryKeyDefinition{
		PartitionKey: table.KeyDef{Name: "pk", Kind: table.KeyKindS},
		SortKey:      table.KeyDef{Name: "sk", Kind: table.KeyKindS},
	},
	GSIs: []table.GSIDefinition{
		{
			Name: "status-index",
			KeyDefinitions: table.PrimaryKeyDefinition{
				PartitionKey: table.KeyDef{Name: "status", Kind: table.KeyKindS},
				SortKey:      table.KeyDef{Name: "name", Kind: table.KeyKindS},
			},
		},
	},
}

func testKey(pk, sk string) table.PrimaryKey {
	return clientTestTable.KeyOf(pk, sk)
}

func getEntity(t *testing.T, db *Client, pk, sk string) *testEntity {
	t.Helper()
	item, err := db.NewLookup().GetItem(context.Background(), GetItemRequest{
		Table: clientTestTable,
		Key:   testKey(pk, sk),
	})
	require.NoError(t, err)
	if item == nil {
		return nil
	}
	var e testEntity
	require.NoError(t, attributevalue.UnmarshalMap(item, &e))
	return &e
}

func TestClient_PutItem(t *testing.T) {
	db := NewMock(clientTestTable)
	ctx := context.Background()

	entity := &testEntity{PK: "user#1", SK: "profile", Name: "Alice", Email: "alice@example.com", Age: 30}
	require.NoError(t, db.PutItem(ctx, NewPut(clientTestTable, testKey(entity.PK, entity.SK), entity)))

	got := getEntity(t, db, "user#1", "profile")
	require.NotNil(t, got)
	assert.Equal(t, *entity, *got)
}

func TestClient_PutItem_RawItemTakesKeyFromPrimaryKey(t *testing.T) {
	db := NewMock(clientTestTable)
	ctx := context.Background()

	item := Item{"name": &types.AttributeValueMemberS{Value: "Bob"}}
	require.NoError(t, db.PutItem(ctx, NewPut(clientTestTable, testKey("user#2", "profile"), item)))

	got := getEntity(t, db, "user#2", "profile")
	require.NotNil(t, got)
	assert.Equal(t, "Bob", got.Name)
	assert.NotContains(t, item, "pk", "the caller's item is not mutated")
}

func TestClient_PutItem_Condition(t *testing.T) {
	db := NewMock(clientTestTable)
	ctx := context.Background()
	key := testKey("user#1", "profile")

	create := func() *Put {
		return NewPut(clientTestTable, key, &testEntity{Name: "Alice"}).
			WithCondition(expression.AttributeNotExists(expression.Name("pk")))
	}
	require.NoError(t, db.PutItem(ctx, create()))

	err := db.PutItem(ctx, create())
	require.Error(t, err)
	assert.True(t, IsConditionFailed(err))
	assert.False(t, IsRetryable(err))
}

func TestClient_UpdateItem(t *testing.T) {
	db := NewMock(clientTestTable)
	ctx := context.Background()
	key := testKey("user#1", "profile")
	require.NoError(t, db.PutItem(ctx, NewPut(clientTestTable, key, &testEntity{Name: "Alice", Email: "a@example.com", Status: "TODO"})))

	update := NewUnsafeUpdate(clientTestTable, key).
		AddOp(SetFieldOp("status", "DONE")).
		AddOp(RemoveFieldOp("email"))
	require.NoError(t, db.UpdateItem(ctx, update))

	got := getEntity(t, db, "user#1", "profile")
	require.NotNil(t, got)
	assert.Equal(t, "DONE", got.Status)
	assert.Empty(t, got.Email)
	assert.Equal(t, "Alice", got.Name)

	// Updates without a condition create missing items.
	require.NoError(t, db.UpdateItem(ctx, NewUnsafeUpdate(clientTestTable, testKey("user#9", "profile")).AddOp(SetFieldOp("status", "DONE"))))
	got = getEntity(t, db, "user#9", "profile")
	require.NotNil(t, got)
	assert.Equal(t, "DONE", got.Status)
}

func TestClient_UpdateItem_Validation(t *testing.T) {
	db := NewMock(clientTestTable)
	ctx := context.Background()
	key := testKey("user#1", "profile")

	require.Error(t, db.UpdateItem(ctx, NewUnsafeUpdate(clientTestTable, key)), "empty update")
	require.Error(t, db.UpdateItem(ctx, NewUnsafeUpdate(clientTestTable, key).AddOp(SetFieldOp("sk", "other"))), "key update")
	assert.Panics(t, func() {
		NewUnsafeUpdate(clientTestTable, key).AddOp(SetFieldOp("status", "A")).AddOp(SetFieldOp("status", "B"))
	})

	err := db.UpdateItem(ctx, NewUnsafeUpdate(clientTestTable, key).
		AddOp(SetFieldOp("status", "DONE")).
		WithCondition(expression.AttributeExists(expression.Name("pk"))))
	assert.True(t, IsConditionFailed(err))
}

func TestClient_DeleteItem(t *testing.T) {
	db := NewMock(clientTestTable)
	ctx := context.Background()
	key := testKey("user#1", "profile")
	require.NoError(t, db.PutItem(ctx, NewPut(clientTestTable, key, &testEntity{Name: "Alice"})))

	require.NoError(t, db.DeleteItem(ctx, NewDelete(clientTestTable, key)))
	assert.Nil(t, getEntity(t, db, "user#1", "profile"))

	// Deleting again is not an error.
	require.NoError(t, db.DeleteItem(ctx, NewDelete(clientTestTable, key)))

	err := db.DeleteItem(ctx, NewDelete(clientTestTable, key).WithCondition(expression.AttributeExists(expression.Name("pk"))))
	assert.True(t, IsConditionFailed(err))
}

func TestGetter_Projection(t *testing.T) {
	db := NewMock(clientTestTable)
	ctx := context.Background()
	key := testKey("user#1", "profile")
	require.NoError(t, db.PutItem(ctx, NewPut(clientTestTable, key, &testEntity{Name: "Alice", Age: 30})))

	item, err := db.NewLookup(WithEventualConsistency()).GetItem(ctx, GetItemRequest{
		Table:      clientTestTable,
		Key:        key,
		Projection: []string{"name"},
	})
	require.NoError(t, err)
	assert.Len(t, item, 1)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "Alice"}, item["name"])
}

func conditionExists(name string) expression.ConditionBuilder {
	return expression.AttributeExists(expression.Name(name))
}
