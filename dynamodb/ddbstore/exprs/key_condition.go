package exprs

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// KeyCondition is a parsed key condition expression.
type KeyCondition struct {
	Partition types.AttributeValue
	// Sort is nil when the sort key is unconstrained.
	Sort Condition
}

// ParseKeyCondition parses a key condition against the partition and sort key names
// of the table or index being queried. Only partition equality combined with a
// single sort key comparison, BETWEEN or begins_with is accepted.
func ParseKeyCondition(expr string, params Params, partitionKey, sortKey string) (*KeyCondition, error) {
	c, err := ParseCondition(expr, params)
	if err != nil {
		return nil, err
	}
	kc := &KeyCondition{}
	parts := []Condition{c}
	if and, ok := c.(andCond); ok {
		parts = []Condition{and.left, and.right}
	}
	for _, part := range parts {
		if v, ok := partitionEquality(part, partitionKey); ok {
			if kc.Partition != nil {
				return nil, fmt.Errorf("partition key %q constrained twice", partitionKey)
			}
			kc.Partition = v
			continue
		}
		if sortKey == "" || !isSortCondition(part, sortKey) {
			return nil, fmt.Errorf("unsupported key condition %q", expr)
		}
		if kc.Sort != nil {
			return nil, fmt.Errorf("sort key %q constrained twice", sortKey)
		}
		kc.Sort = part
	}
	if kc.Partition == nil {
		return nil, fmt.Errorf("key condition must constrain partition key %q with =", partitionKey)
	}
	return kc, nil
}

func partitionEquality(c Condition, name string) (types.AttributeValue, bool) {
	cmp, ok := c.(compareCond)
	if !ok || cmp.op != "=" {
		return nil, false
	}
	path, ok := cmp.left.(pathOperand)
	if !ok || !path.path.IsAttribute(name) {
		return nil, false
	}
	v, ok := cmp.right.(valueOperand)
	if !ok {
		return nil, false
	}
	return v.v, true
}

func isSortCondition(c Condition, name string) bool {
	switch sc := c.(type) {
	case compareCond:
		path, ok := sc.left.(pathOperand)
		_, isValue := sc.right.(valueOperand)
		return ok && isValue && sc.op != "<>" && path.path.IsAttribute(name)
	case betweenCond:
		path, ok := sc.subject.(pathOperand)
		return ok && path.path.IsAttribute(name)
	case funcCond:
		return sc.name == "begins_with" && sc.path.IsAttribute(name)
	}
	return false
}
