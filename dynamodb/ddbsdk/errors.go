package ddbsdk

import (
	"context"
	"errors"

	"github.com/aws/smithy-go"
)

var retryableCodes = map[string]bool{
	"ThrottlingException":                    true,
	"ProvisionedThroughputExceededException": true,
	"RequestLimitExceeded":                   true,
	"LimitExceededException":                 true,
	"InternalServerError":                    true,
	"ServiceUnavailable":                     true,
	"TransactionConflictException":           true,
}

// IsRetryable reports whether err is a transient DynamoDB fault: throttling,
// exhausted capacity, a server side error or a timeout.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return retryableCodes[ae.ErrorCode()] || ae.ErrorFault() == smithy.FaultServer
	}
	return false
}

// IsConditionFailed reports whether err is a failed condition expression.
func IsConditionFailed(err error) bool {
	var ae smithy.APIError
	return errors.As(err, &ae) && ae.ErrorCode() == "ConditionalCheckFailedException"
}
