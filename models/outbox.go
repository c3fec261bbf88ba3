package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/garments_backend/config"
	"bitbucket.org/mmdatafocus/garments_backend/utils"
	"gorm.io/gorm"
)

// Outbox publish statuses for StockEventRecord.PublishStatus.
// Keep these as strings (DB values) for backwards compatibility.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

// StockEventRecord is the transactional outbox row written alongside every
// ledger append. Publishing happens after commit via the outbox dispatcher.
type StockEventRecord struct {
	ID               int               `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	TransactionId    string            `gorm:"size:64;not null;index" json:"transaction_id"`
	ItemType         ItemType          `gorm:"type:enum('FABRIC','MANUFACTURING','CUTTING','UNKNOWN')" json:"item_type"`
	ItemId           string            `gorm:"size:64;not null;index" json:"item_id"`
	Action           TransactionAction `gorm:"type:enum('ADD','REMOVE','STOCK_IN','STOCK_OUT','QR_GENERATED')" json:"action"`
	Quantity         int               `gorm:"not null" json:"quantity"`
	PerformedBy      string            `gorm:"size:100" json:"performed_by"`
	Source           TransactionSource `gorm:"type:enum('QR_SCANNER','MANUAL')" json:"source"`
	OccurredAt       time.Time         `gorm:"index;not null" json:"occurred_at"`
	PublishStatus    string            `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
	PublishedAt      *time.Time        `gorm:"index" json:"published_at"`
	PubSubMessageId  *string           `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int               `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time        `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time        `gorm:"index" json:"locked_at"`
	LockedBy         *string           `gorm:"size:100" json:"locked_by"`
	LastPublishError *string           `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string            `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// RecordStockEvent writes the outbox row inside the caller's DB transaction
// but does NOT publish to Pub/Sub. Publishing is performed asynchronously by
// the outbox dispatcher after commit.
func RecordStockEvent(ctx context.Context, tx *gorm.DB, txn *StockTransaction) error {
	record := StockEventRecord{
		TransactionId: txn.TransactionId,
		ItemType:      txn.ItemType,
		ItemId:        txn.ItemId,
		Action:        txn.Action,
		Quantity:      txn.Quantity,
		PerformedBy:   txn.PerformedBy,
		Source:        txn.Source,
		OccurredAt:    txn.TransactionDate,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	return tx.Create(&record).Error
}

func ConvertToStockEventMessage(record StockEventRecord) config.StockEventMessage {
	return config.StockEventMessage{
		ID:            record.ID,
		TransactionId: record.TransactionId,
		ItemType:      string(record.ItemType),
		ItemId:        record.ItemId,
		Action:        string(record.Action),
		Quantity:      record.Quantity,
		PerformedBy:   record.PerformedBy,
		Source:        string(record.Source),
		OccurredAt:    record.OccurredAt,
		CorrelationId: record.CorrelationId,
	}
}

// ReplayStockEvents requeues FAILED/DEAD outbox rows for another publish
// attempt. Used by the internal ops endpoint after a Pub/Sub outage.
func ReplayStockEvents(ctx context.Context, ids []int) (int64, error) {
	ids = utils.UniqueSlice(ids)
	db := config.GetDB()
	q := db.WithContext(ctx).Model(&StockEventRecord{}).
		Where("publish_status IN ?", []string{OutboxPublishStatusFailed, OutboxPublishStatusDead})
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	result := q.Updates(map[string]interface{}{
		"publish_status":     OutboxPublishStatusPending,
		"publish_attempts":   0,
		"next_attempt_at":    nil,
		"locked_at":          nil,
		"locked_by":          nil,
		"last_publish_error": nil,
	})
	return result.RowsAffected, result.Error
}
