package exprs

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Condition is a parsed condition or filter expression.
type Condition interface {
	Eval(doc Item) (bool, error)
}

// ParseCondition parses a condition or filter expression.
func ParseCondition(expr string, params Params) (Condition, error) {
	p, err := newParser(expr, params)
	if err != nil {
		return nil, err
	}
	c, err := p.or()
	if err != nil {
		return nil, err
	}
	if err := p.done(); err != nil {
		return nil, err
	}
	return c, nil
}

// Matches evaluates an optional expression against doc. A nil expression matches.
func Matches(expr *string, params Params, doc Item) (bool, error) {
	if expr == nil || *expr == "" {
		return true, nil
	}
	c, err := ParseCondition(*expr, params)
	if err != nil {
		return false, err
	}
	return c.Eval(doc)
}

type andCond struct{ left, right Condition }

func (c andCond) Eval(doc Item) (bool, error) {
	l, err := c.left.Eval(doc)
	if err != nil || !l {
		return false, err
	}
	return c.right.Eval(doc)
}

type orCond struct{ left, right Condition }

func (c orCond) Eval(doc Item) (bool, error) {
	l, err := c.left.Eval(doc)
	if err != nil {
		return false, err
	}
	if l {
		return true, nil
	}
	return c.right.Eval(doc)
}

type notCond struct{ inner Condition }

func (c notCond) Eval(doc Item) (bool, error) {
	v, err := c.inner.Eval(doc)
	return !v && err == nil, err
}

type compareCond struct {
	op          string
	left, right operand
}

func (c compareCond) Eval(doc Item) (bool, error) {
	l, lok, err := c.left.resolve(doc)
	if err != nil {
		return false, err
	}
	r, rok, err := c.right.resolve(doc)
	if err != nil {
		return false, err
	}
	if !lok || !rok {
		return c.op == "<>", nil
	}
	switch c.op {
	case "=":
		return Equal(l, r), nil
	case "<>":
		return !Equal(l, r), nil
	}
	cmp, ok := Compare(l, r)
	if !ok {
		return false, nil
	}
	switch c.op {
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	}
	return false, fmt.Errorf("unknown comparator %q", c.op)
}

type betweenCond struct{ subject, lower, upper operand }

func (c betweenCond) Eval(doc Item) (bool, error) {
	v, ok, err := c.subject.resolve(doc)
	if err != nil || !ok {
		return false, err
	}
	lo, lok, err := c.lower.resolve(doc)
	if err != nil || !lok {
		return false, err
	}
	hi, hok, err := c.upper.resolve(doc)
	if err != nil || !hok {
		return false, err
	}
	a, ok := Compare(v, lo)
	if !ok || a < 0 {
		return false, nil
	}
	b, ok := Compare(v, hi)
	return ok && b <= 0, nil
}

type inCond struct {
	subject operand
	list    []operand
}

func (c inCond) Eval(doc Item) (bool, error) {
	v, ok, err := c.subject.resolve(doc)
	if err != nil || !ok {
		return false, err
	}
	for _, o := range c.list {
		x, ok, err := o.resolve(doc)
		if err != nil {
			return false, err
		}
		if ok && Equal(v, x) {
			return true, nil
		}
	}
	return false, nil
}

type funcCond struct {
	name string
	path Path
	arg  operand
}

func (c funcCond) Eval(doc Item) (bool, error) {
	v, present := c.path.Resolve(doc)
	switch c.name {
	case "attribute_exists":
		return present, nil
	case "attribute_not_exists":
		return !present, nil
	}
	if !present {
		return false, nil
	}
	arg, ok, err := c.arg.resolve(doc)
	if err != nil || !ok {
		return false, err
	}
	switch c.name {
	case "attribute_type":
		s, isStr := arg.(*types.AttributeValueMemberS)
		if !isStr {
			return false, fmt.Errorf("attribute_type expects a string type name")
		}
		return typeName(v) == s.Value, nil
	case "begins_with":
		switch sv := v.(type) {
		case *types.AttributeValueMemberS:
			prefix, ok := arg.(*types.AttributeValueMemberS)
			return ok && strings.HasPrefix(sv.Value, prefix.Value), nil
		case *types.AttributeValueMemberB:
			prefix, ok := arg.(*types.AttributeValueMemberB)
			return ok && bytes.HasPrefix(sv.Value, prefix.Value), nil
		}
		return false, nil
	case "contains":
		return contains(v, arg), nil
	}
	return false, fmt.Errorf("unknown function %s", c.name)
}

func contains(v, arg types.AttributeValue) bool {
	switch sv := v.(type) {
	case *types.AttributeValueMemberS:
		s, ok := arg.(*types.AttributeValueMemberS)
		return ok && strings.Contains(sv.Value, s.Value)
	case *types.AttributeValueMemberB:
		b, ok := arg.(*types.AttributeValueMemberB)
		return ok && bytes.Contains(sv.Value, b.Value)
	case *types.AttributeValueMemberSS:
		s, ok := arg.(*types.AttributeValueMemberS)
		return ok && containsString(sv.Value, s.Value)
	case *types.AttributeValueMemberNS:
		n, ok := arg.(*types.AttributeValueMemberN)
		if !ok {
			return false
		}
		for _, x := range sv.Value {
			if Equal(&types.AttributeValueMemberN{Value: x}, n) {
				return true
			}
		}
	case *types.AttributeValueMemberBS:
		b, ok := arg.(*types.AttributeValueMemberB)
		if !ok {
			return false
		}
		for _, x := range sv.Value {
			if bytes.Equal(x, b.Value) {
				return true
			}
		}
	case *types.AttributeValueMemberL:
		for _, x := range sv.Value {
			if Equal(x, arg) {
				return true
			}
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

type operand interface {
	resolve(doc Item) (types.AttributeValue, bool, error)
}

type valueOperand struct{ v types.AttributeValue }

func (o valueOperand) resolve(Item) (types.AttributeValue, bool, error) { return o.v, true, nil }

type pathOperand struct{ path Path }

func (o pathOperand) resolve(doc Item) (types.AttributeValue, bool, error) {
	v, ok := o.path.Resolve(doc)
	return v, ok, nil
}

type sizeOperand struct{ path Path }

func (o sizeOperand) resolve(doc Item) (types.AttributeValue, bool, error) {
	v, ok := o.path.Resolve(doc)
	if !ok {
		return nil, false, nil
	}
	var n int
	switch sv := v.(type) {
	case *types.AttributeValueMemberS:
		n = len(sv.Value)
	case *types.AttributeValueMemberB:
		n = len(sv.Value)
	case *types.AttributeValueMemberSS:
		n = len(sv.Value)
	case *types.AttributeValueMemberNS:
		n = len(sv.Value)
	case *types.AttributeValueMemberBS:
		n = len(sv.Value)
	case *types.AttributeValueMemberL:
		n = len(sv.Value)
	case *types.AttributeValueMemberM:
		n = len(sv.Value)
	default:
		return nil, false, fmt.Errorf("size() is not defined for %s", typeName(v))
	}
	return &types.AttributeValueMemberN{Value: strconv.Itoa(n)}, true, nil
}

func (p *parser) or() (Condition, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("OR") {
		p.next()
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = orCond{left, right}
	}
	return left, nil
}

func (p *parser) and() (Condition, error) {
	left, err := p.not()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("AND") {
		p.next()
		right, err := p.not()
		if err != nil {
			return nil, err
		}
		left = andCond{left, right}
	}
	return left, nil
}

func (p *parser) not() (Condition, error) {
	if p.atKeyword("NOT") {
		p.next()
		inner, err := p.not()
		if err != nil {
			return nil, err
		}
		return notCond{inner}, nil
	}
	return p.primary()
}

var conditionFuncs = map[string]bool{
	"attribute_exists":     true,
	"attribute_not_exists": true,
	"attribute_type":       true,
	"begins_with":          true,
	"contains":             true,
}

func (p *parser) primary() (Condition, error) {
	t := p.peek()
	if t.kind == tokLParen {
		p.next()
		c, err := p.or()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return c, nil
	}
	if t.kind == tokIdent && p.peekAt(1).kind == tokLParen && conditionFuncs[strings.ToLower(t.text)] {
		return p.function()
	}

	left, err := p.operand()
	if err != nil {
		return nil, err
	}
	switch {
	case p.peek().kind == tokOp:
		op := p.next()
		switch op.text {
		case "=", "<>", "<", "<=", ">", ">=":
		default:
			return nil, fmt.Errorf("unexpected operator %s", op)
		}
		right, err := p.operand()
		if err != nil {
			return nil, err
		}
		return compareCond{op: op.text, left: left, right: right}, nil
	case p.atKeyword("BETWEEN"):
		p.next()
		lower, err := p.operand()
		if err != nil {
			return nil, err
		}
		if !p.atKeyword("AND") {
			return nil, fmt.Errorf("expected AND in BETWEEN, got %s", p.peek())
		}
		p.next()
		upper, err := p.operand()
		if err != nil {
			return nil, err
		}
		return betweenCond{subject: left, lower: lower, upper: upper}, nil
	case p.atKeyword("IN"):
		p.next()
		if _, err := p.expect(tokLParen, "("); err != nil {
			return nil, err
		}
		var list []operand
		for {
			o, err := p.operand()
			if err != nil {
				return nil, err
			}
			list = append(list, o)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return inCond{subject: left, list: list}, nil
	}
	return nil, fmt.Errorf("expected comparison, got %s", p.peek())
}

func (p *parser) function() (Condition, error) {
	name := strings.ToLower(p.next().text)
	if _, err := p.expect(tokLParen, "("); err != nil {
		return nil, err
	}
	path, err := p.path()
	if err != nil {
		return nil, err
	}
	fc := funcCond{name: name, path: path}
	if name != "attribute_exists" && name != "attribute_not_exists" {
		if _, err := p.expect(tokComma, ","); err != nil {
			return nil, err
		}
		fc.arg, err = p.operand()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}
	return fc, nil
}

func (p *parser) operand() (operand, error) {
	t := p.peek()
	switch {
	case t.kind == tokValue:
		p.next()
		v, err := p.value(t)
		if err != nil {
			return nil, err
		}
		return valueOperand{v}, nil
	case t.kind == tokIdent && strings.EqualFold(t.text, "size") && p.peekAt(1).kind == tokLParen:
		p.next()
		p.next()
		path, err := p.path()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return sizeOperand{path}, nil
	}
	path, err := p.path()
	if err != nil {
		return nil, err
	}
	return pathOperand{path}, nil
}
