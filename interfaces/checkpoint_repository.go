package interfaces

import (
	"context"
	"time"

	"github.com/relaykit/mailrelay/internal/models"
)

type CheckpointRepository interface {
	// Get returns nil without error when no checkpoint exists yet.
	Get(ctx context.Context, accountEmail string) (*models.Checkpoint, error)
	Save(ctx context.Context, accountEmail, itemID string, itemTimestamp time.Time) error
	Delete(ctx context.Context, accountEmail string) error
}
