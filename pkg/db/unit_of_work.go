package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Mutation is one step of a unit of work. It must only touch the provided transaction.
type Mutation func(tx *gorm.DB) error

// Apply runs the mutations in order inside a single transaction. The first failure rolls
// back every earlier step; the returned error wraps the failing step's error.
func (c *Client) Apply(ctx context.Context, mutations ...Mutation) error {
	if len(mutations) == 0 {
		return nil
	}
	return c.WithTx(ctx, func(tx *gorm.DB) error {
		for i, mutate := range mutations {
			if mutate == nil {
				continue
			}
			if err := mutate(tx); err != nil {
				return fmt.Errorf("unit of work step %d: %w", i+1, err)
			}
		}
		return nil
	})
}
