package exprs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item is a DynamoDB item.
type Item = map[string]types.AttributeValue

// Params carries the placeholder substitutions of a request.
type Params struct {
	Names  map[string]string
	Values map[string]types.AttributeValue
}

type parser struct {
	toks   []token
	pos    int
	params Params
}

func newParser(expr string, params Params) (*parser, error) {
	toks, err := lex(expr)
	if err != nil {
		return nil, err
	}
	return &parser{toks: toks, params: params}, nil
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, fmt.Errorf("expected %s, got %s", what, t)
	}
	return t, nil
}

func (p *parser) atKeyword(word string) bool {
	t := p.peek()
	return t.kind == tokIdent && strings.EqualFold(t.text, word)
}

func (p *parser) done() error {
	if t := p.peek(); t.kind != tokEOF {
		return fmt.Errorf("unexpected %s", t)
	}
	return nil
}

func (p *parser) value(t token) (types.AttributeValue, error) {
	v, ok := p.params.Values[t.text]
	if !ok {
		return nil, fmt.Errorf("value placeholder %s is not defined", t.text)
	}
	return v, nil
}

// PathElem is one step of a document path: a map key or a list index.
type PathElem struct {
	Name    string
	Index   int
	IsIndex bool
}

// Path addresses a possibly nested attribute.
type Path []PathElem

func (p Path) String() string {
	var sb strings.Builder
	for i, e := range p {
		switch {
		case e.IsIndex:
			fmt.Fprintf(&sb, "[%d]", e.Index)
		case i > 0:
			sb.WriteString("." + e.Name)
		default:
			sb.WriteString(e.Name)
		}
	}
	return sb.String()
}

// IsAttribute reports whether the path is the top-level attribute name.
func (p Path) IsAttribute(name string) bool {
	return len(p) == 1 && !p[0].IsIndex && p[0].Name == name
}

func (p *parser) pathSegment(t token) (string, error) {
	switch t.kind {
	case tokName:
		n, ok := p.params.Names[t.text]
		if !ok {
			return "", fmt.Errorf("name placeholder %s is not defined", t.text)
		}
		return n, nil
	case tokIdent:
		return t.text, nil
	default:
		return "", fmt.Errorf("expected attribute name, got %s", t)
	}
}

func (p *parser) path() (Path, error) {
	first, err := p.pathSegment(p.next())
	if err != nil {
		return nil, err
	}
	path := Path{{Name: first}}
	for {
		switch p.peek().kind {
		case tokDot:
			p.next()
			seg, err := p.pathSegment(p.next())
			if err != nil {
				return nil, err
			}
			path = append(path, PathElem{Name: seg})
		case tokLBracket:
			p.next()
			n, err := p.expect(tokNumber, "list index")
			if err != nil {
				return nil, err
			}
			idx, err := strconv.Atoi(n.text)
			if err != nil {
				return nil, fmt.Errorf("list index %s: %w", n, err)
			}
			if _, err := p.expect(tokRBracket, "]"); err != nil {
				return nil, err
			}
			path = append(path, PathElem{Index: idx, IsIndex: true})
		default:
			return path, nil
		}
	}
}

// Resolve returns the attribute at path in doc.
func (p Path) Resolve(doc Item) (types.AttributeValue, bool) {
	if len(p) == 0 || p[0].IsIndex {
		return nil, false
	}
	cur, ok := doc[p[0].Name]
	if !ok {
		return nil, false
	}
	for _, e := range p[1:] {
		switch v := cur.(type) {
		case *types.AttributeValueMemberM:
			if e.IsIndex {
				return nil, false
			}
			cur, ok = v.Value[e.Name]
			if !ok {
				return nil, false
			}
		case *types.AttributeValueMemberL:
			if !e.IsIndex || e.Index >= len(v.Value) {
				return nil, false
			}
			cur = v.Value[e.Index]
		default:
			return nil, false
		}
	}
	return cur, true
}
