package repository

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/relaykit/mailrelay/interfaces"
	"github.com/relaykit/mailrelay/internal/models"
	"github.com/relaykit/mailrelay/internal/tracing"
	"github.com/relaykit/mailrelay/internal/utils"
)

type processedItemRepository struct {
	db *gorm.DB
}

func NewProcessedItemRepository(db *gorm.DB) interfaces.ProcessedItemRepository {
	return &processedItemRepository{db: db}
}

// MarkProcessed inserts a ledger row for the item. Inserting an item
// that is already in the ledger is a no-op, not an error.
func (r *processedItemRepository) MarkProcessed(ctx context.Context, accountEmail, itemID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "processedItemRepository.MarkProcessed")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagAccount(span, accountEmail)
	tracing.TagItem(span, itemID)

	entry := models.ProcessedItem{
		AccountEmail: accountEmail,
		ItemID:       itemID,
		ProcessedAt:  utils.Now(),
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_email"}, {Name: "item_id"}},
			DoNothing: true,
		}).
		Create(&entry)

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to mark item processed: %w", result.Error)
	}

	return nil
}

// IsProcessed reports whether the item is already in the ledger
func (r *processedItemRepository) IsProcessed(ctx context.Context, accountEmail, itemID string) (bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "processedItemRepository.IsProcessed")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagAccount(span, accountEmail)
	tracing.TagItem(span, itemID)

	var count int64
	result := r.db.WithContext(ctx).
		Model(&models.ProcessedItem{}).
		Where("account_email = ? AND item_id = ?", accountEmail, itemID).
		Count(&count)

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return false, fmt.Errorf("failed to check ledger: %w", result.Error)
	}

	return count > 0, nil
}

// LatestProcessed returns the most recently recorded ledger entry for
// an account, or nil when the ledger is empty
func (r *processedItemRepository) LatestProcessed(ctx context.Context, accountEmail string) (*models.ProcessedItem, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "processedItemRepository.LatestProcessed")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagAccount(span, accountEmail)

	var entry models.ProcessedItem
	result := r.db.WithContext(ctx).
		Where("account_email = ?", accountEmail).
		Order("processed_at DESC").
		First(&entry)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get latest ledger entry: %w", result.Error)
	}

	return &entry, nil
}

func (r *processedItemRepository) CountForAccount(ctx context.Context, accountEmail string) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "processedItemRepository.CountForAccount")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagAccount(span, accountEmail)

	var count int64
	result := r.db.WithContext(ctx).
		Model(&models.ProcessedItem{}).
		Where("account_email = ?", accountEmail).
		Count(&count)

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return 0, fmt.Errorf("failed to count ledger entries: %w", result.Error)
	}

	return count, nil
}

func (r *processedItemRepository) DeleteForAccount(ctx context.Context, accountEmail string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "processedItemRepository.DeleteForAccount")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagAccount(span, accountEmail)

	result := r.db.WithContext(ctx).
		Where("account_email = ?", accountEmail).
		Delete(&models.ProcessedItem{})

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to delete ledger entries: %w", result.Error)
	}

	return nil
}
