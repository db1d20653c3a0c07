package table

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type TableDefinition struct {
	Name           string
	KeyDefinitions PrimaryKeyDefinition
	GSIs           []GSIDefinition
}

// GSIDefinition represents a Global Secondary Index definition.
// GSIs always project every attribute of the base item.
type GSIDefinition struct {
	Name           string
	KeyDefinitions PrimaryKeyDefinition
}

// ExtractPrimaryKey extracts the GSI key values from a document.
func (g GSIDefinition) ExtractPrimaryKey(doc map[string]types.AttributeValue) (PrimaryKey, error) {
	return g.KeyDefinitions.ExtractPrimaryKey(doc)
}

// Covers reports whether doc carries every key attribute of the index.
// Items that don't are absent from the index.
func (g GSIDefinition) Covers(doc map[string]types.AttributeValue) bool {
	if _, ok := doc[g.KeyDefinitions.PartitionKey.Name]; !ok {
		return false
	}
	if g.KeyDefinitions.SortKey.Name == "" {
		return true
	}
	_, ok := doc[g.KeyDefinitions.SortKey.Name]
	return ok
}

func (t TableDefinition) ExtractPrimaryKey(doc map[string]types.AttributeValue) (PrimaryKey, error) {
	return t.KeyDefinitions.ExtractPrimaryKey(doc)
}

// GSI looks up an index by name.
func (t TableDefinition) GSI(name string) (GSIDefinition, bool) {
	for _, g := range t.GSIs {
		if g.Name == name {
			return g, true
		}
	}
	return GSIDefinition{}, false
}

// KeyOf builds a primary key for this table from raw partition and sort values.
func (t TableDefinition) KeyOf(partition, sort any) PrimaryKey {
	return PrimaryKey{
		Definition: t.KeyDefinitions,
		Values:     PrimaryKeyValues{PartitionKey: partition, SortKey: sort},
	}
}

func (k PrimaryKeyDefinition) ExtractPrimaryKey(doc map[string]types.AttributeValue) (PrimaryKey, error) {
	part, ok := doc[k.PartitionKey.Name]
	if !ok {
		return PrimaryKey{}, fmt.Errorf("partition key %q not found", k.PartitionKey.Name)
	}
	if err := attributeMatchesDefinition(k.PartitionKey.Kind, part); err != nil {
		return PrimaryKey{}, fmt.Errorf("document key %q kind does not match definition: %w", k.PartitionKey.Name, err)
	}
	pk := PrimaryKey{
		Definition: k,
		Values: PrimaryKeyValues{
			PartitionKey: keyValueFromAV(part),
		},
	}
	if k.SortKey.Name == "" {
		return pk, nil
	}
	sort, ok := doc[k.SortKey.Name]
	if !ok {
		return PrimaryKey{}, fmt.Errorf("sort key %q not found on document", k.SortKey.Name)
	}
	if err := attributeMatchesDefinition(k.SortKey.Kind, sort); err != nil {
		return PrimaryKey{}, fmt.Errorf("sort key %q kind does not match definition: %w", k.SortKey.Name, err)
	}
	pk.Values.SortKey = keyValueFromAV(sort)
	return pk, nil
}

// KeyAttributes returns only the key attributes of doc.
func (k PrimaryKeyDefinition) KeyAttributes(doc map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, 2)
	if v, ok := doc[k.PartitionKey.Name]; ok {
		out[k.PartitionKey.Name] = v
	}
	if k.SortKey.Name != "" {
		if v, ok := doc[k.SortKey.Name]; ok {
			out[k.SortKey.Name] = v
		}
	}
	return out
}

func keyValueFromAV(av types.AttributeValue) any {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	case *types.AttributeValueMemberB:
		return v.Value
	default:
		panic(fmt.Sprintf("unsupported attribute value %T for dynamodb keys", v))
	}
}
