package ddbstore

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"math"
	"strconv"

	"github.com/acksell/kanban/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Key encoding for BadgerDB that preserves DynamoDB key ordering.
//
// Table:  [table][0x00][partition][0x00][sort]
// GSI:    [table][$gsi:][index][0x00][partition][0x00][sort][0x00][base partition][0x00][base sort]
//
// GSI keys carry the base table key so that items sharing GSI key values
// don't overwrite each other.

const (
	keySeparator byte = 0x00
	gsiMarker         = "$gsi:"
)

const (
	keyTypeString byte = 'S'
	keyTypeNumber byte = 'N'
	keyTypeBinary byte = 'B'
)

type badgerKeyEncoder struct {
	tableName string
	indexName string // empty for the base table
	keyDefs   table.PrimaryKeyDefinition
	baseKeys  table.PrimaryKeyDefinition // set for GSIs
}

func (e *badgerKeyEncoder) isGSI() bool {
	return e.indexName != ""
}

// prefix returns the prefix shared by every key of the table or index.
func (e *badgerKeyEncoder) prefix() []byte {
	var buf bytes.Buffer
	buf.WriteString(e.tableName)
	if e.isGSI() {
		buf.WriteString(gsiMarker)
		buf.WriteString(e.indexName)
	}
	buf.WriteByte(keySeparator)
	return buf.Bytes()
}

func (e *badgerKeyEncoder) encodePartitionPrefix(partition types.AttributeValue) ([]byte, error) {
	buf := bytes.NewBuffer(e.prefix())
	pkBytes, err := encodeKeyAttribute(partition, e.keyDefs.PartitionKey.Kind)
	if err != nil {
		return nil, fmt.Errorf("encode partition key: %w", err)
	}
	buf.Write(pkBytes)
	buf.WriteByte(keySeparator)
	return buf.Bytes(), nil
}

// encodeItemKey encodes the badger key of an item (or of a LastEvaluatedKey,
// which carries the same key attributes).
func (e *badgerKeyEncoder) encodeItemKey(item map[string]types.AttributeValue) ([]byte, error) {
	buf, err := e.encodeKeyPart(item, e.keyDefs)
	if err != nil {
		return nil, err
	}
	if !e.isGSI() {
		return buf, nil
	}
	base, err := e.encodeKeyPart(item, e.baseKeys)
	if err != nil {
		return nil, fmt.Errorf("base table key: %w", err)
	}
	buf = append(buf, keySeparator)
	return append(buf, base[len(e.prefix()):]...), nil
}

func (e *badgerKeyEncoder) encodeKeyPart(item map[string]types.AttributeValue, defs table.PrimaryKeyDefinition) ([]byte, error) {
	part, ok := item[defs.PartitionKey.Name]
	if !ok {
		return nil, fmt.Errorf("partition key %q not found", defs.PartitionKey.Name)
	}
	buf := bytes.NewBuffer(e.prefix())
	pkBytes, err := encodeKeyAttribute(part, defs.PartitionKey.Kind)
	if err != nil {
		return nil, fmt.Errorf("encode partition key %q: %w", defs.PartitionKey.Name, err)
	}
	buf.Write(pkBytes)
	buf.WriteByte(keySeparator)
	if defs.SortKey.Name != "" {
		sort, ok := item[defs.SortKey.Name]
		if !ok {
			return nil, fmt.Errorf("sort key %q not found", defs.SortKey.Name)
		}
		skBytes, err := encodeKeyAttribute(sort, defs.SortKey.Kind)
		if err != nil {
			return nil, fmt.Errorf("encode sort key %q: %w", defs.SortKey.Name, err)
		}
		buf.Write(skBytes)
	}
	return buf.Bytes(), nil
}

// lastEvaluatedKey returns the key attributes DynamoDB reports for item.
func (e *badgerKeyEncoder) lastEvaluatedKey(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := e.keyDefs.KeyAttributes(item)
	if e.isGSI() {
		for k, v := range e.baseKeys.KeyAttributes(item) {
			out[k] = v
		}
	}
	return out
}

func encodeKeyAttribute(av types.AttributeValue, kind table.KeyKind) ([]byte, error) {
	var buf bytes.Buffer
	switch kind {
	case table.KeyKindS:
		v, ok := av.(*types.AttributeValueMemberS)
		if !ok {
			return nil, fmt.Errorf("expected S key, got %T", av)
		}
		buf.WriteByte(keyTypeString)
		buf.Write(escapeBytes([]byte(v.Value)))
	case table.KeyKindN:
		v, ok := av.(*types.AttributeValueMemberN)
		if !ok {
			return nil, fmt.Errorf("expected N key, got %T", av)
		}
		encoded, err := encodeNumber(v.Value)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(keyTypeNumber)
		buf.Write(encoded)
	case table.KeyKindB:
		v, ok := av.(*types.AttributeValueMemberB)
		if !ok {
			return nil, fmt.Errorf("expected B key, got %T", av)
		}
		buf.WriteByte(keyTypeBinary)
		buf.Write(escapeBytes(v.Value))
	default:
		return nil, fmt.Errorf("unsupported key kind: %s", kind)
	}
	return buf.Bytes(), nil
}

// encodeNumber encodes a number string so that byte order matches numeric order.
// Positive numbers get a 0x80 prefix and their sign bit flipped; negative
// numbers get 0x7F and all bits inverted. Precision is limited to float64.
func encodeNumber(numStr string) ([]byte, error) {
	f, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return nil, fmt.Errorf("parse number %q: %w", numStr, err)
	}
	bits := math.Float64bits(f)
	buf := make([]byte, 9)
	if f >= 0 {
		buf[0] = 0x80
		bits ^= 1 << 63
	} else {
		buf[0] = 0x7F
		bits = ^bits
	}
	binary.BigEndian.PutUint64(buf[1:], bits)
	return buf, nil
}

// escapeBytes keeps 0x00 free for separators.
// 0x00 becomes 0x01 0x01 and 0x01 becomes 0x01 0x02.
func escapeBytes(b []byte) []byte {
	var buf bytes.Buffer
	for _, c := range b {
		switch c {
		case 0x00:
			buf.WriteByte(0x01)
			buf.WriteByte(0x01)
		case 0x01:
			buf.WriteByte(0x01)
			buf.WriteByte(0x02)
		default:
			buf.WriteByte(c)
		}
	}
	return buf.Bytes()
}

// storedAV is the gob representation of an AttributeValue.
type storedAV struct {
	T    string
	S    string
	B    []byte
	Bool bool
	SS   []string
	BS   [][]byte
	L    []storedAV
	M    map[string]storedAV
}

// SerializeItem serializes a DynamoDB item for storage.
func SerializeItem(item map[string]types.AttributeValue) ([]byte, error) {
	stored := make(map[string]storedAV, len(item))
	for k, v := range item {
		sv, err := toStored(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		stored[k] = sv
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(stored); err != nil {
		return nil, fmt.Errorf("encode item: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeItem reverses SerializeItem.
func DeserializeItem(data []byte) (map[string]types.AttributeValue, error) {
	var stored map[string]storedAV
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&stored); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}
	item := make(map[string]types.AttributeValue, len(stored))
	for k, v := range stored {
		av, err := fromStored(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		item[k] = av
	}
	return item, nil
}

func toStored(av types.AttributeValue) (storedAV, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return storedAV{T: "S", S: v.Value}, nil
	case *types.AttributeValueMemberN:
		return storedAV{T: "N", S: v.Value}, nil
	case *types.AttributeValueMemberB:
		return storedAV{T: "B", B: v.Value}, nil
	case *types.AttributeValueMemberBOOL:
		return storedAV{T: "BOOL", Bool: v.Value}, nil
	case *types.AttributeValueMemberNULL:
		return storedAV{T: "NULL", Bool: v.Value}, nil
	case *types.AttributeValueMemberSS:
		return storedAV{T: "SS", SS: v.Value}, nil
	case *types.AttributeValueMemberNS:
		return storedAV{T: "NS", SS: v.Value}, nil
	case *types.AttributeValueMemberBS:
		return storedAV{T: "BS", BS: v.Value}, nil
	case *types.AttributeValueMemberL:
		l := make([]storedAV, len(v.Value))
		for i, x := range v.Value {
			sv, err := toStored(x)
			if err != nil {
				return storedAV{}, err
			}
			l[i] = sv
		}
		return storedAV{T: "L", L: l}, nil
	case *types.AttributeValueMemberM:
		m := make(map[string]storedAV, len(v.Value))
		for k, x := range v.Value {
			sv, err := toStored(x)
			if err != nil {
				return storedAV{}, err
			}
			m[k] = sv
		}
		return storedAV{T: "M", M: m}, nil
	}
	return storedAV{}, fmt.Errorf("unsupported attribute value type: %T", av)
}

func fromStored(sv storedAV) (types.AttributeValue, error) {
	switch sv.T {
	case "S":
		return &types.AttributeValueMemberS{Value: sv.S}, nil
	case "N":
		return &types.AttributeValueMemberN{Value: sv.S}, nil
	case "B":
		return &types.AttributeValueMemberB{Value: sv.B}, nil
	case "BOOL":
		return &types.AttributeValueMemberBOOL{Value: sv.Bool}, nil
	case "NULL":
		return &types.AttributeValueMemberNULL{Value: sv.Bool}, nil
	case "SS":
		return &types.AttributeValueMemberSS{Value: sv.SS}, nil
	case "NS":
		return &types.AttributeValueMemberNS{Value: sv.SS}, nil
	case "BS":
		return &types.AttributeValueMemberBS{Value: sv.BS}, nil
	case "L":
		l := make([]types.AttributeValue, len(sv.L))
		for i, x := range sv.L {
			av, err := fromStored(x)
			if err != nil {
				return nil, err
			}
			l[i] = av
		}
		return &types.AttributeValueMemberL{Value: l}, nil
	case "M":
		m := make(map[string]types.AttributeValue, len(sv.M))
		for k, x := range sv.M {
			av, err := fromStored(x)
			if err != nil {
				return nil, err
			}
			m[k] = av
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	}
	return nil, fmt.Errorf("unsupported stored type %q", sv.T)
}
