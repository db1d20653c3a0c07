package table

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PrimaryIndexDefinition describes how one entity kind maps onto the table's keys.
// The Keyers derive the key attributes from the entity's own attributes.
type PrimaryIndexDefinition struct {
	Table          TableDefinition
	PartitionKeyer Keyer
	SortKeyer      Keyer
}

func (i *PrimaryIndexDefinition) PrimaryKey(doc map[string]types.AttributeValue) (PrimaryKey, error) {
	part, err := i.PartitionKeyer.Key(doc)
	if err != nil {
		return PrimaryKey{}, fmt.Errorf("failed to get partition key: %w", err)
	}
	if err := attributeMatchesDefinition(i.Table.KeyDefinitions.PartitionKey.Kind, part); err != nil {
		return PrimaryKey{}, fmt.Errorf("partition key kind does not match table definition: %w", err)
	}
	pk := PrimaryKey{
		Definition: i.Table.KeyDefinitions,
		Values: PrimaryKeyValues{
			PartitionKey: keyValueFromAV(part),
		},
	}
	if i.Table.KeyDefinitions.SortKey.Name == "" {
		return pk, nil
	}
	sort, err := i.SortKeyer.Key(doc)
	if err != nil {
		return PrimaryKey{}, fmt.Errorf("failed to get sort key: %w", err)
	}
	if err := attributeMatchesDefinition(i.Table.KeyDefinitions.SortKey.Kind, sort); err != nil {
		return PrimaryKey{}, fmt.Errorf("sort key kind does not match table definition: %w", err)
	}
	pk.Values.SortKey = keyValueFromAV(sort)
	return pk, nil
}

// Stamp writes the derived key attributes onto doc and returns the key.
func (i *PrimaryIndexDefinition) Stamp(doc map[string]types.AttributeValue) (PrimaryKey, error) {
	pk, err := i.PrimaryKey(doc)
	if err != nil {
		return PrimaryKey{}, err
	}
	keys, err := pk.Marshal()
	if err != nil {
		return PrimaryKey{}, err
	}
	for k, v := range keys {
		doc[k] = v
	}
	return pk, nil
}
