package ddbsdk

import (
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
)

type UpdateOp interface {
	Field() string
	Apply(expression.UpdateBuilder) expression.UpdateBuilder
}

// Sets the value of a field regardless of any existing value
type setFieldOp[T any] struct {
	field string
	value T
}

var _ UpdateOp = setFieldOp[string]{}

func SetFieldOp[T any](field string, value T) setFieldOp[T] {
	return setFieldOp[T]{
		field: field,
		value: value,
	}
}

func (o setFieldOp[T]) Field() string {
	return o.field
}

func (o setFieldOp[T]) Apply(expr expression.UpdateBuilder) expression.UpdateBuilder {
	return expr.Set(expression.Name(o.field), expression.Value(o.value))
}

type removeFieldOp struct {
	field string
}

func RemoveFieldOp(field string) removeFieldOp {
	return removeFieldOp{
		field: field,
	}
}

func (o removeFieldOp) Field() string {
	return o.field
}

func (o removeFieldOp) Apply(expr expression.UpdateBuilder) expression.UpdateBuilder {
	return expr.Remove(expression.Name(o.field))
}
