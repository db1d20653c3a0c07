package exprs

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Projection is a parsed projection expression.
type Projection []Path

// ParseProjection parses a comma separated list of document paths.
func ParseProjection(expr string, names map[string]string) (Projection, error) {
	p, err := newParser(expr, Params{Names: names})
	if err != nil {
		return nil, err
	}
	var proj Projection
	for {
		path, err := p.path()
		if err != nil {
			return nil, err
		}
		proj = append(proj, path)
		if p.peek().kind != tokComma {
			break
		}
		p.next()
	}
	if err := p.done(); err != nil {
		return nil, err
	}
	return proj, nil
}

// Apply returns a copy of doc holding only the projected attributes.
func (p Projection) Apply(doc Item) Item {
	out := make(Item, len(p))
	for _, path := range p {
		v, ok := path.Resolve(doc)
		if !ok {
			continue
		}
		if len(path) == 1 {
			out[path[0].Name] = v
			continue
		}
		// nested projections keep the enclosing maps
		_ = setPath(out, path, v, true)
	}
	return out
}

// ProjectAll applies an optional projection expression to every item.
func ProjectAll(expr *string, names map[string]string, items []Item) ([]Item, error) {
	if expr == nil || *expr == "" {
		return items, nil
	}
	proj, err := ParseProjection(*expr, names)
	if err != nil {
		return nil, fmt.Errorf("parse projection: %w", err)
	}
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = proj.Apply(it)
	}
	return out, nil
}

func emptyContainerFor(next PathElem) types.AttributeValue {
	if next.IsIndex {
		return &types.AttributeValueMemberL{}
	}
	return &types.AttributeValueMemberM{Value: Item{}}
}
