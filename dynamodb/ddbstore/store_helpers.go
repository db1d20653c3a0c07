package ddbstore

import (
	"errors"
	"fmt"

	"github.com/acksell/kanban/dynamodb/ddbstore/exprs"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/dgraph-io/badger/v4"
)

func ptrStr(s string) *string {
	return &s
}

func validationError(msg string) error {
	return &smithy.GenericAPIError{Code: "ValidationException", Message: msg, Fault: smithy.FaultClient}
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: ptrStr("The conditional request failed")}
}

func exprParams(names map[string]string, values map[string]types.AttributeValue) exprs.Params {
	return exprs.Params{Names: names, Values: values}
}

// checkCondition evaluates an optional condition expression against the
// current item (nil when the item does not exist).
func checkCondition(expr *string, params exprs.Params, current map[string]types.AttributeValue) error {
	ok, err := exprs.Matches(expr, params, current)
	if err != nil {
		return validationError(fmt.Sprintf("invalid ConditionExpression: %v", err))
	}
	if !ok {
		return conditionFailed()
	}
	return nil
}

// loadItem returns the stored item under key, or nil if there is none.
func loadItem(txn *badger.Txn, key []byte) (map[string]types.AttributeValue, error) {
	it, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var item map[string]types.AttributeValue
	err = it.Value(func(val []byte) error {
		item, err = DeserializeItem(val)
		return err
	})
	return item, err
}

// writeItem stores item under key and moves its GSI entries from oldItem's
// keys to item's keys.
func (t *tableSchema) writeItem(txn *badger.Txn, key []byte, item, oldItem map[string]types.AttributeValue) error {
	if err := t.validateGSIKeys(item); err != nil {
		return err
	}
	data, err := SerializeItem(item)
	if err != nil {
		return fmt.Errorf("serialize item: %w", err)
	}
	if err := t.dropGSIEntries(txn, oldItem); err != nil {
		return err
	}
	if err := txn.Set(key, data); err != nil {
		return err
	}
	for _, g := range t.gsis {
		if !g.definition.Covers(item) {
			continue
		}
		gsiKey, err := g.enc.encodeItemKey(item)
		if err != nil {
			return fmt.Errorf("encode GSI %s key: %w", g.definition.Name, err)
		}
		if err := txn.Set(gsiKey, data); err != nil {
			return err
		}
	}
	return nil
}

// removeItem deletes the item under key together with its GSI entries.
func (t *tableSchema) removeItem(txn *badger.Txn, key []byte, oldItem map[string]types.AttributeValue) error {
	if oldItem == nil {
		return nil
	}
	if err := t.dropGSIEntries(txn, oldItem); err != nil {
		return err
	}
	return txn.Delete(key)
}

func (t *tableSchema) dropGSIEntries(txn *badger.Txn, oldItem map[string]types.AttributeValue) error {
	if oldItem == nil {
		return nil
	}
	for _, g := range t.gsis {
		if !g.definition.Covers(oldItem) {
			continue
		}
		gsiKey, err := g.enc.encodeItemKey(oldItem)
		if err != nil {
			continue // an entry that can't be encoded was never written
		}
		if err := txn.Delete(gsiKey); err != nil {
			return err
		}
	}
	return nil
}

// validateGSIKeys rejects items whose GSI key attributes have the wrong type,
// the way DynamoDB does.
func (t *tableSchema) validateGSIKeys(item map[string]types.AttributeValue) error {
	for _, g := range t.gsis {
		if !g.definition.Covers(item) {
			continue
		}
		if _, err := g.definition.ExtractPrimaryKey(item); err != nil {
			return validationError(fmt.Sprintf("invalid key for index %s: %v", g.definition.Name, err))
		}
	}
	return nil
}

// baseKey validates and encodes a base table key taken from a request.
func (t *tableSchema) baseKey(key map[string]types.AttributeValue) ([]byte, error) {
	if len(key) != len(t.definition.KeyDefinitions.KeyAttributes(key)) {
		return nil, validationError("the provided key element does not match the schema")
	}
	if _, err := t.definition.ExtractPrimaryKey(key); err != nil {
		return nil, validationError(fmt.Sprintf("the provided key element does not match the schema: %v", err))
	}
	return t.encoder().encodeItemKey(key)
}
