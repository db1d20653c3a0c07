package table

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimaryKeyMarshal(t *testing.T) {
	t.Run("partition and sort", func(t *testing.T) {
		m, err := pkAndSKTable.KeyOf("a", "b").Marshal()
		require.NoError(t, err)
		assert.Equal(t, &types.AttributeValueMemberS{Value: "a"}, m["pk"])
		assert.Equal(t, &types.AttributeValueMemberS{Value: "b"}, m["sk"])
	})
	t.Run("missing sort key", func(t *testing.T) {
		_, err := pkAndSKTable.KeyOf("a", nil).Marshal()
		require.Error(t, err)
	})
	t.Run("kind mismatch", func(t *testing.T) {
		_, err := pkOnlyTable.KeyOf(12, nil).Marshal()
		require.Error(t, err)
	})
}

func TestExtractPrimaryKey(t *testing.T) {
	doc := map[string]types.AttributeValue{
		"pk":    &types.AttributeValueMemberS{Value: "a"},
		"sk":    &types.AttributeValueMemberS{Value: "b"},
		"other": &types.AttributeValueMemberN{Value: "1"},
	}
	pk, err := pkAndSKTable.ExtractPrimaryKey(doc)
	require.NoError(t, err)
	assert.Equal(t, "a", pk.Values.PartitionKey)
	assert.Equal(t, "b", pk.Values.SortKey)
	assert.Len(t, pkAndSKTable.KeyDefinitions.KeyAttributes(doc), 2)

	_, err = pkAndSKTable.ExtractPrimaryKey(map[string]types.AttributeValue{"pk": doc["pk"]})
	require.Error(t, err)
}

func TestGSICovers(t *testing.T) {
	gsi := GSIDefinition{
		Name: "by-status",
		KeyDefinitions: PrimaryKeyDefinition{
			PartitionKey: KeyDef{Name: "status", Kind: KeyKindS},
			SortKey:      KeyDef{Name: "createdAt", Kind: KeyKindS},
		},
	}
	tbl := TableDefinition{Name: "t", KeyDefinitions: pkAndSKTable.KeyDefinitions, GSIs: []GSIDefinition{gsi}}

	got, ok := tbl.GSI("by-status")
	require.True(t, ok)
	assert.Equal(t, gsi, got)
	_, ok = tbl.GSI("nope")
	assert.False(t, ok)

	assert.True(t, gsi.Covers(map[string]types.AttributeValue{
		"status":    &types.AttributeValueMemberS{Value: "TODO"},
		"createdAt": &types.AttributeValueMemberS{Value: "x"},
	}))
	assert.False(t, gsi.Covers(map[string]types.AttributeValue{
		"status": &types.AttributeValueMemberS{Value: "TODO"},
	}))
}
