package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/relaykit/mailrelay/internal/utils"
)

// ProcessedItem is one row of the dedup ledger: an item that has gone through
// the delivery pipeline for an account, successfully or not. Unique on
// (account_email, item_id); insertion is idempotent.
type ProcessedItem struct {
	ID           string    `gorm:"column:id;type:varchar(50);primaryKey"`
	AccountEmail string    `gorm:"column:account_email;type:varchar(255);uniqueIndex:idx_ledger_account_item;not null"`
	ItemID       string    `gorm:"column:item_id;type:varchar(500);uniqueIndex:idx_ledger_account_item;not null"`
	ProcessedAt  time.Time `gorm:"column:processed_at;type:timestamp;index;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
}

func (ProcessedItem) TableName() string {
	return "processed_items"
}

func (p *ProcessedItem) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = utils.GenerateNanoIDWithPrefix("ldgr", 16)
	}
	p.CreatedAt = utils.Now()
	return nil
}
