// Package schema describes DynamoDB tables and the entities stored in them as
// plain data, for printing as YAML.
package schema

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/acksell/kanban/dynamodb/table"
	"gopkg.in/yaml.v3"
)

// Schema is the root type containing all table definitions.
type Schema struct {
	Tables []Table `yaml:"tables" json:"tables"`
}

// Table describes a DynamoDB table structure with its entities.
type Table struct {
	Name         string   `yaml:"name" json:"name"`
	PartitionKey KeyDef   `yaml:"partitionKey" json:"partitionKey"`
	SortKey      *KeyDef  `yaml:"sortKey,omitempty" json:"sortKey,omitempty"`
	GSIs         []GSI    `yaml:"gsis,omitempty" json:"gsis,omitempty"`
	Entities     []Entity `yaml:"entities,omitempty" json:"entities,omitempty"`
}

type KeyDef struct {
	Name string `yaml:"name" json:"name"`
	Kind string `yaml:"kind" json:"kind"` // "S", "N", or "B"
}

type GSI struct {
	Name         string  `yaml:"name" json:"name"`
	PartitionKey KeyDef  `yaml:"partitionKey" json:"partitionKey"`
	SortKey      *KeyDef `yaml:"sortKey,omitempty" json:"sortKey,omitempty"`
}

// Entity describes an entity type stored in a table.
type Entity struct {
	Type                string       `yaml:"type" json:"type"`
	PartitionKeyPattern string       `yaml:"partitionKeyPattern" json:"partitionKeyPattern"`
	SortKeyPattern      string       `yaml:"sortKeyPattern,omitempty" json:"sortKeyPattern,omitempty"`
	Fields              []Field      `yaml:"fields,omitempty" json:"fields,omitempty"`
	GSIMappings         []GSIMapping `yaml:"gsiMappings,omitempty" json:"gsiMappings,omitempty"`
}

type Field struct {
	Name string `yaml:"name" json:"name"`
	Tag  string `yaml:"tag" json:"tag"`
	Type string `yaml:"type" json:"type"`
}

// GSIMapping describes how an entity maps to a GSI.
type GSIMapping struct {
	GSI              string `yaml:"gsi" json:"gsi"`
	PartitionPattern string `yaml:"partitionPattern" json:"partitionPattern"`
	SortPattern      string `yaml:"sortPattern,omitempty" json:"sortPattern,omitempty"`
}

// FromTable converts a table definition, attaching the given entities.
func FromTable(def table.TableDefinition, entities ...Entity) Table {
	t := Table{
		Name:         def.Name,
		PartitionKey: keyDef(def.KeyDefinitions.PartitionKey),
		SortKey:      optionalKeyDef(def.KeyDefinitions.SortKey),
		Entities:     entities,
	}
	for _, g := range def.GSIs {
		t.GSIs = append(t.GSIs, GSI{
			Name:         g.Name,
			PartitionKey: keyDef(g.KeyDefinitions.PartitionKey),
			SortKey:      optionalKeyDef(g.KeyDefinitions.SortKey),
		})
	}
	return t
}

func keyDef(k table.KeyDef) KeyDef {
	return KeyDef{Name: k.Name, Kind: string(k.Kind)}
}

func optionalKeyDef(k table.KeyDef) *KeyDef {
	if k.Name == "" {
		return nil
	}
	d := keyDef(k)
	return &d
}

// Fields lists the attributes of a record struct from its dynamodbav tags.
// Untagged fields keep their Go name; fields tagged "-" are skipped.
func Fields(record any) []Field {
	rt := reflect.TypeOf(record)
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return nil
	}
	var fields []Field
	for i := range rt.NumField() {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("dynamodbav"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		fields = append(fields, Field{Name: f.Name, Tag: name, Type: f.Type.String()})
	}
	return fields
}

// Encode writes s as YAML.
func Encode(w io.Writer, s Schema) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("marshaling schema: %w", err)
	}
	return enc.Close()
}
