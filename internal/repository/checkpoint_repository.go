package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/relaykit/mailrelay/interfaces"
	"github.com/relaykit/mailrelay/internal/models"
	"github.com/relaykit/mailrelay/internal/tracing"
)

type checkpointRepository struct {
	db *gorm.DB
}

func NewCheckpointRepository(db *gorm.DB) interfaces.CheckpointRepository {
	return &checkpointRepository{db: db}
}

// Get retrieves the checkpoint for an account
func (r *checkpointRepository) Get(ctx context.Context, accountEmail string) (*models.Checkpoint, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "checkpointRepository.Get")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagAccount(span, accountEmail)

	var checkpoint models.Checkpoint
	result := r.db.WithContext(ctx).
		Where("account_email = ?", accountEmail).
		First(&checkpoint)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil // No checkpoint yet
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get checkpoint: %w", result.Error)
	}

	return &checkpoint, nil
}

// Save advances the checkpoint for an account
func (r *checkpointRepository) Save(ctx context.Context, accountEmail, itemID string, itemTimestamp time.Time) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "checkpointRepository.Save")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagAccount(span, accountEmail)
	tracing.TagItem(span, itemID)

	// Try to update first
	result := r.db.WithContext(ctx).
		Model(&models.Checkpoint{}).
		Where("account_email = ?", accountEmail).
		Updates(map[string]interface{}{
			"last_item_id":        itemID,
			"last_item_timestamp": itemTimestamp,
			"updated_at":          time.Now(),
		})

	// If no record was updated, create a new one
	if result.RowsAffected == 0 {
		result = r.db.WithContext(ctx).Create(&models.Checkpoint{
			AccountEmail:      accountEmail,
			LastItemID:        itemID,
			LastItemTimestamp: itemTimestamp,
		})
	}

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to save checkpoint: %w", result.Error)
	}

	return nil
}

// Delete removes the checkpoint for an account
func (r *checkpointRepository) Delete(ctx context.Context, accountEmail string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "checkpointRepository.Delete")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagAccount(span, accountEmail)

	result := r.db.WithContext(ctx).
		Where("account_email = ?", accountEmail).
		Delete(&models.Checkpoint{})

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to delete checkpoint: %w", result.Error)
	}

	return nil
}
