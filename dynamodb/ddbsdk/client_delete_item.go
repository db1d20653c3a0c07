package ddbsdk

import (
	"context"
	"fmt"
)

// DeleteItem succeeds when the item does not exist, unless a condition says otherwise.
func (c *Client) DeleteItem(ctx context.Context, d *Delete) error {
	del, err := d.ToDeleteItem()
	if err != nil {
		return fmt.Errorf("failed to convert delete to delete item: %w", err)
	}
	_, err = c.awsddb.DeleteItem(ctx, del)
	if err != nil {
		return fmt.Errorf("failed to delete item %s: %w", d.Key, err)
	}
	return nil
}
