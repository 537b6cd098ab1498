package interfaces

import (
	"context"

	"github.com/relaykit/mailrelay/internal/models"
)

type ProcessedItemRepository interface {
	// MarkProcessed records the item in the ledger. Recording an item
	// that is already present is not an error.
	MarkProcessed(ctx context.Context, accountEmail, itemID string) error
	IsProcessed(ctx context.Context, accountEmail, itemID string) (bool, error)
	LatestProcessed(ctx context.Context, accountEmail string) (*models.ProcessedItem, error)
	CountForAccount(ctx context.Context, accountEmail string) (int64, error)
	DeleteForAccount(ctx context.Context, accountEmail string) error
}
