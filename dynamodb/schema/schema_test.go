package schema

import (
	"bytes"
	"testing"

	"github.com/acksell/kanban/dynamodb/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type record struct {
	Name    string   `dynamodbav:"name"`
	Count   int      `dynamodbav:"count,omitempty"`
	Tags    []string // untagged
	Skipped string   `dynamodbav:"-"`
	hidden  string
}

func TestFields(t *testing.T) {
	want := []Field{
		{Name: "Name", Tag: "name", Type: "string"},
		{Name: "Count", Tag: "count", Type: "int"},
		{Name: "Tags", Tag: "Tags", Type: "[]string"},
	}
	assert.Equal(t, want, Fields(record{}))
	assert.Equal(t, want, Fields(&record{}))
	assert.Nil(t, Fields(42))
}

func TestFromTable_EncodeRoundTrip(t *testing.T) {
	def := table.TableDefinition{
		Name: "T",
		KeyDefinitions: table.PrimaryKeyDefinition{
			PartitionKey: table.KeyDef{Name: "pk", Kind: table.KeyKindS},
		},
		GSIs: []table.GSIDefinition{{
			Name: "by-n",
			KeyDefinitions: table.PrimaryKeyDefinition{
				PartitionKey: table.KeyDef{Name: "g", Kind: table.KeyKindS},
				SortKey:      table.KeyDef{Name: "n", Kind: table.KeyKindN},
			},
		}},
	}
	tbl := FromTable(def, Entity{Type: "Thing", PartitionKeyPattern: "THING#{id}"})
	assert.Nil(t, tbl.SortKey)
	require.Len(t, tbl.GSIs, 1)
	assert.Equal(t, &KeyDef{Name: "n", Kind: "N"}, tbl.GSIs[0].SortKey)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Schema{Tables: []Table{tbl}}))
	assert.Contains(t, buf.String(), "THING#{id}")
	assert.NotContains(t, buf.String(), "fields:", "empty field lists are omitted")

	var back Schema
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, Schema{Tables: []Table{tbl}}, back)
}

func TestEncode_EntitiesWithAndWithoutFields(t *testing.T) {
	in := Schema{Tables: []Table{{
		Name:         "T",
		PartitionKey: KeyDef{Name: "pk", Kind: "S"},
		Entities: []Entity{
			{Type: "Bare", PartitionKeyPattern: "BARE#{id}"},
			{
				Type:                "Full",
				PartitionKeyPattern: "FULL#{id}",
				Fields:              Fields(record{}),
				GSIMappings:         []GSIMapping{{GSI: "by-n", PartitionPattern: "{g}"}},
			},
		},
	}}}
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, in))

	var back Schema
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, in, back)
	assert.Nil(t, back.Tables[0].Entities[0].Fields)
	assert.Nil(t, back.Tables[0].Entities[0].GSIMappings)
}
