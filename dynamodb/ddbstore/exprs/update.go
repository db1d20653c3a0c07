package exprs

import (
	"bytes"
	"fmt"
	"maps"
	"math/big"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Update is a parsed update expression.
type Update struct {
	actions []updateAction
}

type updateAction interface {
	apply(doc, orig Item) error
}

// ParseUpdate parses SET, REMOVE, ADD and DELETE clauses.
func ParseUpdate(expr string, params Params) (*Update, error) {
	p, err := newParser(expr, params)
	if err != nil {
		return nil, err
	}
	u := &Update{}
	for p.peek().kind != tokEOF {
		clause := p.next()
		if clause.kind != tokIdent {
			return nil, fmt.Errorf("expected update clause, got %s", clause)
		}
		kind := strings.ToUpper(clause.text)
		for {
			var a updateAction
			switch kind {
			case "SET":
				a, err = p.setAction()
			case "REMOVE":
				var path Path
				path, err = p.path()
				a = removeAction{path}
			case "ADD", "DELETE":
				a, err = p.addOrDelete(kind)
			default:
				return nil, fmt.Errorf("unknown update clause %s", clause)
			}
			if err != nil {
				return nil, err
			}
			u.actions = append(u.actions, a)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if len(u.actions) == 0 {
		return nil, fmt.Errorf("empty update expression")
	}
	return u, nil
}

// Apply returns the updated copy of doc. Operands read the item as it was
// before the update.
func (u *Update) Apply(doc Item) (Item, error) {
	out := maps.Clone(doc)
	if out == nil {
		out = Item{}
	}
	for _, a := range u.actions {
		if err := a.apply(out, doc); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Paths returns every document path the update writes.
func (u *Update) Paths() []Path {
	var out []Path
	for _, a := range u.actions {
		switch act := a.(type) {
		case setAction:
			out = append(out, act.path)
		case removeAction:
			out = append(out, act.path)
		case addDeleteAction:
			out = append(out, act.path)
		}
	}
	return out
}

type setAction struct {
	path  Path
	value setExpr
}

func (a setAction) apply(doc, orig Item) error {
	v, err := a.value.eval(orig)
	if err != nil {
		return fmt.Errorf("SET %s: %w", a.path, err)
	}
	return setPath(doc, a.path, v, false)
}

type removeAction struct{ path Path }

func (a removeAction) apply(doc, _ Item) error {
	removePath(doc, a.path)
	return nil
}

type addDeleteAction struct {
	kind  string
	path  Path
	value types.AttributeValue
}

func (a addDeleteAction) apply(doc, orig Item) error {
	cur, exists := a.path.Resolve(orig)
	var next types.AttributeValue
	switch a.kind {
	case "ADD":
		if !exists {
			next = a.value
			break
		}
		switch cv := cur.(type) {
		case *types.AttributeValueMemberN:
			add, ok := a.value.(*types.AttributeValueMemberN)
			if !ok {
				return fmt.Errorf("ADD %s: operand type mismatch", a.path)
			}
			sum, err := addNumbers(cv.Value, add.Value)
			if err != nil {
				return fmt.Errorf("ADD %s: %w", a.path, err)
			}
			next = &types.AttributeValueMemberN{Value: sum}
		case *types.AttributeValueMemberSS, *types.AttributeValueMemberNS, *types.AttributeValueMemberBS:
			merged, err := setUnion(cur, a.value)
			if err != nil {
				return fmt.Errorf("ADD %s: %w", a.path, err)
			}
			next = merged
		default:
			return fmt.Errorf("ADD %s: unsupported attribute type %s", a.path, typeName(cur))
		}
	case "DELETE":
		if !exists {
			return nil
		}
		left, err := setDifference(cur, a.value)
		if err != nil {
			return fmt.Errorf("DELETE %s: %w", a.path, err)
		}
		if left == nil {
			removePath(doc, a.path)
			return nil
		}
		next = left
	}
	return setPath(doc, a.path, next, false)
}

type setExpr interface {
	eval(orig Item) (types.AttributeValue, error)
}

type operandExpr struct{ o operand }

func (e operandExpr) eval(orig Item) (types.AttributeValue, error) {
	v, ok, err := e.o.resolve(orig)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("operand refers to a missing attribute")
	}
	return v, nil
}

type arithExpr struct {
	op          string
	left, right setExpr
}

func (e arithExpr) eval(orig Item) (types.AttributeValue, error) {
	l, err := e.left.eval(orig)
	if err != nil {
		return nil, err
	}
	r, err := e.right.eval(orig)
	if err != nil {
		return nil, err
	}
	ln, lok := l.(*types.AttributeValueMemberN)
	rn, rok := r.(*types.AttributeValueMemberN)
	if !lok || !rok {
		return nil, fmt.Errorf("%s requires numbers", e.op)
	}
	rv := rn.Value
	if e.op == "-" {
		rv = negate(rv)
	}
	sum, err := addNumbers(ln.Value, rv)
	if err != nil {
		return nil, err
	}
	return &types.AttributeValueMemberN{Value: sum}, nil
}

type ifNotExistsExpr struct {
	path     Path
	fallback setExpr
}

func (e ifNotExistsExpr) eval(orig Item) (types.AttributeValue, error) {
	if v, ok := e.path.Resolve(orig); ok {
		return v, nil
	}
	return e.fallback.eval(orig)
}

type listAppendExpr struct{ first, second setExpr }

func (e listAppendExpr) eval(orig Item) (types.AttributeValue, error) {
	a, err := e.first.eval(orig)
	if err != nil {
		return nil, err
	}
	b, err := e.second.eval(orig)
	if err != nil {
		return nil, err
	}
	al, aok := a.(*types.AttributeValueMemberL)
	bl, bok := b.(*types.AttributeValueMemberL)
	if !aok || !bok {
		return nil, fmt.Errorf("list_append requires two lists")
	}
	return &types.AttributeValueMemberL{Value: append(slices.Clone(al.Value), bl.Value...)}, nil
}

func (p *parser) setAction() (updateAction, error) {
	path, err := p.path()
	if err != nil {
		return nil, err
	}
	if t := p.next(); t.kind != tokOp || t.text != "=" {
		return nil, fmt.Errorf("expected = in SET, got %s", t)
	}
	v, err := p.setValue()
	if err != nil {
		return nil, err
	}
	return setAction{path: path, value: v}, nil
}

func (p *parser) setValue() (setExpr, error) {
	left, err := p.setOperand()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind == tokOp && (t.text == "+" || t.text == "-") {
		p.next()
		right, err := p.setOperand()
		if err != nil {
			return nil, err
		}
		return arithExpr{op: t.text, left: left, right: right}, nil
	}
	return left, nil
}

func (p *parser) setOperand() (setExpr, error) {
	t := p.peek()
	if t.kind == tokIdent && p.peekAt(1).kind == tokLParen {
		switch strings.ToLower(t.text) {
		case "if_not_exists":
			p.next()
			p.next()
			path, err := p.path()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokComma, ","); err != nil {
				return nil, err
			}
			fallback, err := p.setOperand()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRParen, ")"); err != nil {
				return nil, err
			}
			return ifNotExistsExpr{path: path, fallback: fallback}, nil
		case "list_append":
			p.next()
			p.next()
			first, err := p.setOperand()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokComma, ","); err != nil {
				return nil, err
			}
			second, err := p.setOperand()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRParen, ")"); err != nil {
				return nil, err
			}
			return listAppendExpr{first: first, second: second}, nil
		}
	}
	o, err := p.operand()
	if err != nil {
		return nil, err
	}
	return operandExpr{o}, nil
}

func (p *parser) addOrDelete(kind string) (updateAction, error) {
	path, err := p.path()
	if err != nil {
		return nil, err
	}
	t, err := p.expect(tokValue, "value placeholder")
	if err != nil {
		return nil, err
	}
	v, err := p.value(t)
	if err != nil {
		return nil, err
	}
	return addDeleteAction{kind: kind, path: path, value: v}, nil
}

func setPath(doc Item, path Path, v types.AttributeValue, create bool) error {
	if len(path) == 0 || path[0].IsIndex {
		return fmt.Errorf("invalid document path %s", path)
	}
	if len(path) == 1 {
		doc[path[0].Name] = v
		return nil
	}
	parent, ok := doc[path[0].Name]
	if !ok {
		if !create {
			return fmt.Errorf("document path %s does not exist", path)
		}
		parent = emptyContainerFor(path[1])
	}
	updated, err := setIn(parent, path[1:], v, create)
	if err != nil {
		return fmt.Errorf("document path %s: %w", path, err)
	}
	doc[path[0].Name] = updated
	return nil
}

func setIn(container types.AttributeValue, rest Path, v types.AttributeValue, create bool) (types.AttributeValue, error) {
	e := rest[0]
	switch c := container.(type) {
	case *types.AttributeValueMemberM:
		if e.IsIndex {
			return nil, fmt.Errorf("cannot index a map")
		}
		m := maps.Clone(c.Value)
		if m == nil {
			m = Item{}
		}
		if len(rest) == 1 {
			m[e.Name] = v
			return &types.AttributeValueMemberM{Value: m}, nil
		}
		child, ok := m[e.Name]
		if !ok {
			if !create {
				return nil, fmt.Errorf("%q does not exist", e.Name)
			}
			child = emptyContainerFor(rest[1])
		}
		updated, err := setIn(child, rest[1:], v, create)
		if err != nil {
			return nil, err
		}
		m[e.Name] = updated
		return &types.AttributeValueMemberM{Value: m}, nil
	case *types.AttributeValueMemberL:
		if !e.IsIndex {
			return nil, fmt.Errorf("cannot access list by name")
		}
		l := slices.Clone(c.Value)
		idx := e.Index
		if idx >= len(l) {
			if len(rest) > 1 && !create {
				return nil, fmt.Errorf("index %d out of range", idx)
			}
			var child types.AttributeValue = v
			if len(rest) > 1 {
				child = emptyContainerFor(rest[1])
			}
			l = append(l, child)
			idx = len(l) - 1
		}
		if len(rest) == 1 {
			l[idx] = v
			return &types.AttributeValueMemberL{Value: l}, nil
		}
		updated, err := setIn(l[idx], rest[1:], v, create)
		if err != nil {
			return nil, err
		}
		l[idx] = updated
		return &types.AttributeValueMemberL{Value: l}, nil
	}
	return nil, fmt.Errorf("cannot descend into %s", typeName(container))
}

func removePath(doc Item, path Path) {
	if len(path) == 0 || path[0].IsIndex {
		return
	}
	if len(path) == 1 {
		delete(doc, path[0].Name)
		return
	}
	parent, ok := doc[path[0].Name]
	if !ok {
		return
	}
	if updated, ok := removeIn(parent, path[1:]); ok {
		doc[path[0].Name] = updated
	}
}

func removeIn(container types.AttributeValue, rest Path) (types.AttributeValue, bool) {
	e := rest[0]
	switch c := container.(type) {
	case *types.AttributeValueMemberM:
		child, ok := c.Value[e.Name]
		if e.IsIndex || !ok {
			return nil, false
		}
		m := maps.Clone(c.Value)
		if len(rest) == 1 {
			delete(m, e.Name)
			return &types.AttributeValueMemberM{Value: m}, true
		}
		updated, ok := removeIn(child, rest[1:])
		if !ok {
			return nil, false
		}
		m[e.Name] = updated
		return &types.AttributeValueMemberM{Value: m}, true
	case *types.AttributeValueMemberL:
		if !e.IsIndex || e.Index >= len(c.Value) {
			return nil, false
		}
		l := slices.Clone(c.Value)
		if len(rest) == 1 {
			return &types.AttributeValueMemberL{Value: slices.Delete(l, e.Index, e.Index+1)}, true
		}
		updated, ok := removeIn(l[e.Index], rest[1:])
		if !ok {
			return nil, false
		}
		l[e.Index] = updated
		return &types.AttributeValueMemberL{Value: l}, true
	}
	return nil, false
}

func addNumbers(a, b string) (string, error) {
	x, _, err := big.ParseFloat(a, 10, 128, big.ToNearestEven)
	if err != nil {
		return "", fmt.Errorf("parse number %q: %w", a, err)
	}
	y, _, err := big.ParseFloat(b, 10, 128, big.ToNearestEven)
	if err != nil {
		return "", fmt.Errorf("parse number %q: %w", b, err)
	}
	return new(big.Float).SetPrec(128).Add(x, y).Text('f', -1), nil
}

func negate(n string) string {
	if strings.HasPrefix(n, "-") {
		return n[1:]
	}
	return "-" + n
}

func setUnion(cur, add types.AttributeValue) (types.AttributeValue, error) {
	switch cv := cur.(type) {
	case *types.AttributeValueMemberSS:
		av, ok := add.(*types.AttributeValueMemberSS)
		if !ok {
			return nil, fmt.Errorf("operand type mismatch")
		}
		return &types.AttributeValueMemberSS{Value: unionStrings(cv.Value, av.Value)}, nil
	case *types.AttributeValueMemberNS:
		av, ok := add.(*types.AttributeValueMemberNS)
		if !ok {
			return nil, fmt.Errorf("operand type mismatch")
		}
		return &types.AttributeValueMemberNS{Value: unionStrings(cv.Value, av.Value)}, nil
	case *types.AttributeValueMemberBS:
		av, ok := add.(*types.AttributeValueMemberBS)
		if !ok {
			return nil, fmt.Errorf("operand type mismatch")
		}
		out := slices.Clone(cv.Value)
		for _, b := range av.Value {
			if !slices.ContainsFunc(out, func(x []byte) bool { return bytes.Equal(x, b) }) {
				out = append(out, b)
			}
		}
		return &types.AttributeValueMemberBS{Value: out}, nil
	}
	return nil, fmt.Errorf("unsupported set type %s", typeName(cur))
}

func unionStrings(a, b []string) []string {
	out := slices.Clone(a)
	for _, s := range b {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// setDifference returns nil when nothing is left.
func setDifference(cur, del types.AttributeValue) (types.AttributeValue, error) {
	switch cv := cur.(type) {
	case *types.AttributeValueMemberSS:
		dv, ok := del.(*types.AttributeValueMemberSS)
		if !ok {
			return nil, fmt.Errorf("operand type mismatch")
		}
		left := slices.DeleteFunc(slices.Clone(cv.Value), func(s string) bool { return slices.Contains(dv.Value, s) })
		if len(left) == 0 {
			return nil, nil
		}
		return &types.AttributeValueMemberSS{Value: left}, nil
	case *types.AttributeValueMemberNS:
		dv, ok := del.(*types.AttributeValueMemberNS)
		if !ok {
			return nil, fmt.Errorf("operand type mismatch")
		}
		left := slices.DeleteFunc(slices.Clone(cv.Value), func(s string) bool { return slices.Contains(dv.Value, s) })
		if len(left) == 0 {
			return nil, nil
		}
		return &types.AttributeValueMemberNS{Value: left}, nil
	case *types.AttributeValueMemberBS:
		dv, ok := del.(*types.AttributeValueMemberBS)
		if !ok {
			return nil, fmt.Errorf("operand type mismatch")
		}
		left := slices.DeleteFunc(slices.Clone(cv.Value), func(b []byte) bool {
			return slices.ContainsFunc(dv.Value, func(x []byte) bool { return bytes.Equal(x, b) })
		})
		if len(left) == 0 {
			return nil, nil
		}
		return &types.AttributeValueMemberBS{Value: left}, nil
	}
	return nil, fmt.Errorf("unsupported set type %s", typeName(cur))
}
