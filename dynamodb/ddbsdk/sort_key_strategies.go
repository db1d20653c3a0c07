package ddbsdk

import (
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
)

// SortKeyStrategy defines how to filter on the sort key in a range query.
type SortKeyStrategy func(skName string) expression.KeyConditionBuilder

// BeginsWith returns items where the sort key starts with the provided prefix.
func BeginsWith(prefix string) SortKeyStrategy {
	return func(skName string) expression.KeyConditionBuilder {
		return expression.KeyBeginsWith(expression.Key(skName), prefix)
	}
}

// Between returns items where the sort key is between start and end (inclusive).
func Between[T any](start, end T) SortKeyStrategy {
	return func(skName string) expression.KeyConditionBuilder {
		return expression.KeyBetween(
			expression.Key(skName),
			expression.Value(start),
			expression.Value(end),
		)
	}
}

// LessThan returns items where the sort key is less than the provided value.
func LessThan[T any](v T) SortKeyStrategy {
	return func(skName string) expression.KeyConditionBuilder {
		return expression.KeyLessThan(expression.Key(skName), expression.Value(v))
	}
}

func ptr[T any](v T) *T {
	return &v
}
