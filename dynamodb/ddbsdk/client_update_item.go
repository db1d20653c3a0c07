package ddbsdk

import (
	"context"
	"fmt"
)

func (c *Client) UpdateItem(ctx context.Context, u *UnsafeUpdate) error {
	update, err := u.ToUpdateItem()
	if err != nil {
		return fmt.Errorf("failed to convert update to update item: %w", err)
	}
	_, err = c.awsddb.UpdateItem(ctx, update)
	if err != nil {
		return fmt.Errorf("failed to update item %s: %w", u.Key, err)
	}
	return nil
}
