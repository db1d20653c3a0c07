package ddbsdk

import (
	"context"
	"fmt"
)

func (c *Client) PutItem(ctx context.Context, p *Put) error {
	put, err := p.ToPutItem()
	if err != nil {
		return fmt.Errorf("failed to convert put to put item: %w", err)
	}
	_, err = c.awsddb.PutItem(ctx, put)
	if err != nil {
		return fmt.Errorf("failed to put item %s: %w", p.Key, err)
	}
	return nil
}
