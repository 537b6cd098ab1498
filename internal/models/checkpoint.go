package models

import (
	"time"
)

// Checkpoint marks the last fully-processed item for an account. The scan
// engine walks the recent window only down to this item.
type Checkpoint struct {
	AccountEmail      string    `gorm:"column:account_email;type:varchar(255);primaryKey"`
	LastItemID        string    `gorm:"column:last_item_id;type:varchar(500);not null"`
	LastItemTimestamp time.Time `gorm:"column:last_item_timestamp;type:timestamp;not null"`
	CreatedAt         time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt         time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (Checkpoint) TableName() string {
	return "checkpoints"
}
