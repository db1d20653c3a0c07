package ddbsdk

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	dynamodbv2 "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MaxBatchWriteItems is the DynamoDB limit on requests per BatchWriteItem call.
const MaxBatchWriteItems = 25

func NewBatcher(ddb AWSDynamoClientV2, opts ...BatchOption) *batcher {
	b := &batcher{
		awsddb:  ddb,
		pending: make(map[string][]types.WriteRequest),
	}
	for _, opt := range opts {
		opt(&b.opts)
	}
	if b.opts.backoff == nil {
		b.opts.backoff = DefaultBackoff
	}
	return b
}

type batcher struct {
	awsddb AWSDynamoClientV2
	opts   batchOpts

	pending  map[string][]types.WriteRequest
	attempts int
}

var _ Batcher = &batcher{}

// AddAction adds BatchActions (Put or Delete) to the batch.
// Returns error if an action with the same table+primarykey already exists,
// or if the batch would exceed MaxBatchWriteItems.
func (b *batcher) AddAction(actions ...BatchAction) error {
	for _, a := range actions {
		tableName := *a.TableName()
		if countRequests(b.pending) >= MaxBatchWriteItems {
			return fmt.Errorf("batch is full: at most %d writes", MaxBatchWriteItems)
		}
		req, err := a.ToBatchWriteRequest()
		if err != nil {
			return err
		}

		key, err := a.PrimaryKey().Marshal()
		if err != nil {
			return err
		}
		for _, existing := range b.pending[tableName] {
			if keysEqual(key, extractKey(existing)) {
				return fmt.Errorf("duplicate action for %s in table %s", a.PrimaryKey(), tableName)
			}
		}

		b.pending[tableName] = append(b.pending[tableName], req)
	}
	return nil
}

// Exec sends all pending writes once. Writes DynamoDB reports as unprocessed
// stay pending, so the next Exec resends only those.
func (b *batcher) Exec(ctx context.Context) (ExecResult, error) {
	if len(b.pending) == 0 {
		return ExecResult{Attempts: b.attempts}, nil
	}

	b.attempts++
	res, err := b.awsddb.BatchWriteItem(ctx, &dynamodbv2.BatchWriteItemInput{
		RequestItems: b.pending,
	})
	if err != nil {
		return ExecResult{
			Unprocessed: b.pending,
			Attempts:    b.attempts,
		}, fmt.Errorf("batch write failed: %w", err)
	}

	b.pending = res.UnprocessedItems
	if b.pending == nil {
		b.pending = make(map[string][]types.WriteRequest)
	}

	return ExecResult{
		Unprocessed: res.UnprocessedItems,
		Attempts:    b.attempts,
	}, nil
}

// ExecAndRetry writes all pending items, retrying until complete or limits exceeded.
// At least one of [WithMaxRetries] or [WithTimeout] must be configured.
// Uses exponential backoff by default, override with [WithCustomBackoff].
//
// Example:
//
//	batch := client.NewBatch(ddbsdk.WithMaxRetries(5))
//	batch.AddAction(deleteTask1, deleteTask2)
//	if err := batch.ExecAndRetry(ctx); err != nil {
//	    return err
//	}
func (b *batcher) ExecAndRetry(ctx context.Context) error {
	if b.opts.maxRetries == 0 && b.opts.timeout == 0 {
		return fmt.Errorf("ExecAndRetry requires WithMaxRetries or WithTimeout to be configured")
	}
	if b.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.timeout)
		defer cancel()
	}
	for {
		res, err := b.Exec(ctx)
		if err != nil {
			return err
		}
		if res.Done() {
			return nil
		}
		if b.opts.maxRetries > 0 && res.Retries() >= b.opts.maxRetries {
			return fmt.Errorf("max retries (%d) exceeded: %d items unprocessed", b.opts.maxRetries, countRequests(b.pending))
		}
		if err := Sleep(ctx, b.opts.backoff(res.Retries())); err != nil {
			return err
		}
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// extractKey gets the key attributes from a WriteRequest. Put requests
// carry the whole item, so key comparison is done on the key attribute names
// of the other side.
func extractKey(wr types.WriteRequest) map[string]types.AttributeValue {
	if wr.PutRequest != nil {
		return wr.PutRequest.Item
	}
	if wr.DeleteRequest != nil {
		return wr.DeleteRequest.Key
	}
	return nil
}

// keysEqual reports whether item holds the same values for every attribute of key.
func keysEqual(key, item map[string]types.AttributeValue) bool {
	for k, av := range key {
		bv, ok := item[k]
		if !ok || !attributeValuesEqual(av, bv) {
			return false
		}
	}
	return len(key) > 0
}

func attributeValuesEqual(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		if bv, ok := b.(*types.AttributeValueMemberS); ok {
			return av.Value == bv.Value
		}
	case *types.AttributeValueMemberN:
		if bv, ok := b.(*types.AttributeValueMemberN); ok {
			return av.Value == bv.Value
		}
	case *types.AttributeValueMemberB:
		if bv, ok := b.(*types.AttributeValueMemberB); ok {
			return string(av.Value) == string(bv.Value)
		}
	}
	return false
}

func countRequests(m map[string][]types.WriteRequest) int {
	var n int
	for _, reqs := range m {
		n += len(reqs)
	}
	return n
}

// ExecResult contains the result of a batch write attempt.
type ExecResult struct {
	Unprocessed map[string][]types.WriteRequest
	// Attempts counts BatchWriteItem calls made so far, including the first.
	Attempts int
}

// Retries is the number of attempts after the first.
func (r ExecResult) Retries() int {
	return max(r.Attempts-1, 0)
}

// Done returns true if all items were successfully processed.
func (r ExecResult) Done() bool {
	return countRequests(r.Unprocessed) == 0
}

// UnprocessedKeys returns the key (or, for puts, the whole item) of every
// unprocessed write in table.
func (r ExecResult) UnprocessedKeys(tableName string) []Item {
	var keys []Item
	for _, wr := range r.Unprocessed[tableName] {
		keys = append(keys, extractKey(wr))
	}
	return keys
}

// Err returns nil if Done(), otherwise returns an error.
func (r ExecResult) Err() error {
	if r.Done() {
		return nil
	}
	return fmt.Errorf("batch incomplete: %d items unprocessed after %d attempts", countRequests(r.Unprocessed), r.Attempts)
}

type BatchOption func(*batchOpts)

// BackoffFunc returns the duration to wait after the given number of retries.
type BackoffFunc func(retry int) time.Duration

// WithMaxRetries sets the maximum number of retry attempts for [ExecAndRetry].
func WithMaxRetries(n int) BatchOption {
	return func(o *batchOpts) {
		o.maxRetries = n
	}
}

// WithTimeout sets a timeout for [ExecAndRetry].
func WithTimeout(d time.Duration) BatchOption {
	return func(o *batchOpts) {
		o.timeout = d
	}
}

// WithCustomBackoff sets a custom backoff function for [ExecAndRetry].
func WithCustomBackoff(fn BackoffFunc) BatchOption {
	return func(o *batchOpts) {
		o.backoff = fn
	}
}

// ExponentialBackoff returns a capped exponential backoff with full jitter.
// Wait time is: rand(0, min(cap, base * multiplier^retry))
// https://aws.amazon.com/blogs/architecture/exponential-backoff-and-jitter/
func ExponentialBackoff(base time.Duration, multiplier float64, cap time.Duration) BackoffFunc {
	return func(retry int) time.Duration {
		factor := 1.0
		for i := 0; i < retry; i++ {
			factor *= multiplier
		}
		backoff := time.Duration(float64(base) * factor)
		if backoff > cap {
			backoff = cap
		}
		if backoff <= 0 {
			return 0
		}
		return time.Duration(rand.Int64N(int64(backoff)))
	}
}

// NoBackoff retries immediately.
func NoBackoff(int) time.Duration { return 0 }

// DefaultBackoff is [ExponentialBackoff] with 50ms base, 2x multiplier, 5s cap.
var DefaultBackoff = ExponentialBackoff(50*time.Millisecond, 2.0, 5*time.Second)

type batchOpts struct {
	maxRetries int
	timeout    time.Duration
	backoff    BackoffFunc
}
