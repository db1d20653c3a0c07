package table

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type Keyer interface {
	Key(doc map[string]types.AttributeValue) (types.AttributeValue, error)
}

// FmtKeyer looks up `keys` in the document and passes them to the format string.
// The keys can only be of type string, number, or bytes.
// Keys support nesting by using dot notation, e.g. "meta.version".
//
// The format string should only use %s. Numbers are passed in their string form.
// A missing or empty key is an error.
func FmtKeyer(format string, keys ...string) *keyFormat {
	return &keyFormat{format, keys}
}

type keyFormat struct {
	fmt  string
	keys []string
}

func (k keyFormat) Key(doc map[string]types.AttributeValue) (types.AttributeValue, error) {
	vals := make([]any, len(k.keys))
	for i, key := range k.keys {
		v, found := lookupPath(doc, key)
		if !found {
			return nil, fmt.Errorf("key %q not found", key)
		}
		var val string
		switch attr := v.(type) {
		case *types.AttributeValueMemberS:
			val = attr.Value
		case *types.AttributeValueMemberN:
			val = attr.Value
		case *types.AttributeValueMemberB:
			val = string(attr.Value)
		default:
			return nil, fmt.Errorf("type for key %q is not string, number, or bytes, got %T", key, v)
		}
		if val == "" {
			return nil, fmt.Errorf("key %q is empty", key)
		}
		vals[i] = val
	}
	return &types.AttributeValueMemberS{Value: fmt.Sprintf(k.fmt, vals...)}, nil
}

func lookupPath(doc map[string]types.AttributeValue, path string) (types.AttributeValue, bool) {
	head, rest, nested := strings.Cut(path, ".")
	v, ok := doc[head]
	if !ok {
		return nil, false
	}
	if !nested {
		return v, true
	}
	m, ok := v.(*types.AttributeValueMemberM)
	if !ok {
		return nil, false
	}
	return lookupPath(m.Value, rest)
}
