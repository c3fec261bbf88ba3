package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/garments_backend/config"
	"bitbucket.org/mmdatafocus/garments_backend/utils"
	"gorm.io/gorm"
)

// ErrorAlreadyExists surfaces a generated-id collision (or a client-supplied
// duplicate) as HTTP 400 at the handler boundary.
var ErrorAlreadyExists = errors.New("already exists")

// StockTransaction is one immutable stock-movement event. Rows are never
// updated or reordered after creation; corrections are made by appending a
// compensating transaction with inverted action. PreviousStock/NewStock are
// captured at write time and are advisory only; the stock-room view
// re-derives current stock by folding the full ledger.
type StockTransaction struct {
	ID              int               `gorm:"primary_key" json:"id"`
	TransactionId   string            `gorm:"size:64;uniqueIndex;not null" json:"transactionId"`
	ItemType        ItemType          `gorm:"type:enum('FABRIC','MANUFACTURING','CUTTING','UNKNOWN');index:idx_ledger_item,priority:1" json:"itemType"`
	ItemId          string            `gorm:"size:64;not null;index:idx_ledger_item,priority:2" json:"itemId"`
	ItemName        string            `gorm:"size:255" json:"itemName"`
	Action          TransactionAction `gorm:"type:enum('ADD','REMOVE','STOCK_IN','STOCK_OUT','QR_GENERATED')" json:"action"`
	Quantity        int               `gorm:"not null" json:"quantity"`
	PreviousStock   int               `gorm:"not null;default:0" json:"previousStock"`
	NewStock        int               `gorm:"not null;default:0" json:"newStock"`
	PerformedBy     string            `gorm:"size:100" json:"performedBy"`
	Source          TransactionSource `gorm:"type:enum('QR_SCANNER','MANUAL')" json:"source"`
	TransactionDate time.Time         `gorm:"index;not null" json:"transactionDate"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"createdAt"`
}

type NewStockTransaction struct {
	ItemType      ItemType          `json:"itemType" binding:"required"`
	ItemId        string            `json:"itemId" binding:"required"`
	ItemName      string            `json:"itemName"`
	Action        TransactionAction `json:"action" binding:"required"`
	Quantity      int               `json:"quantity" binding:"required,gt=0"`
	PreviousStock int               `json:"previousStock"`
	NewStock      int               `json:"newStock"`
	PerformedBy   string            `json:"performedBy"`
	Source        TransactionSource `json:"source" binding:"required"`
}

// createStockTransactionTx appends one ledger row plus its outbox event inside
// the caller's transaction. Used by the REST create path, QR generation and
// fabric intake.
func createStockTransactionTx(ctx context.Context, tx *gorm.DB, input *NewStockTransaction) (*StockTransaction, error) {
	transactionId, err := newStockTransactionId(tx)
	if err != nil {
		return nil, err
	}

	txn := StockTransaction{
		TransactionId:   transactionId,
		ItemType:        input.ItemType,
		ItemId:          input.ItemId,
		ItemName:        input.ItemName,
		Action:          input.Action,
		Quantity:        input.Quantity,
		PreviousStock:   input.PreviousStock,
		NewStock:        input.NewStock,
		PerformedBy:     performedByFromContext(ctx, input.PerformedBy),
		Source:          input.Source,
		TransactionDate: time.Now().UTC(),
	}
	if err := tx.Create(&txn).Error; err != nil {
		if isDuplicateEntry(err) {
			return nil, ErrorAlreadyExists
		}
		return nil, err
	}
	if err := RecordStockEvent(ctx, tx, &txn); err != nil {
		return nil, err
	}
	return &txn, nil
}

func CreateStockTransaction(ctx context.Context, input *NewStockTransaction) (*StockTransaction, error) {

	release, err := utils.ObtainStockLock(ctx, "stock-ledger", "StockTransaction", "CreateStockTransaction")
	if err != nil {
		return nil, err
	}
	defer release()

	db := config.GetDB()
	var txn *StockTransaction
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		txn, txErr = createStockTransactionTx(ctx, tx, input)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// ListStockTransactions reads the ledger by item or by time range.
func ListStockTransactions(ctx context.Context, itemId *string, fromDate *MyDateString, toDate *MyDateString) ([]*StockTransaction, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&StockTransaction{})
	if itemId != nil && *itemId != "" {
		dbCtx = dbCtx.Where("item_id = ?", *itemId)
	}
	if fromDate != nil {
		if err := fromDate.StartOfDayUTCTime(""); err != nil {
			return nil, err
		}
		dbCtx = dbCtx.Where("transaction_date >= ?", time.Time(*fromDate))
	}
	if toDate != nil {
		if err := toDate.EndOfDayUTCTime(""); err != nil {
			return nil, err
		}
		dbCtx = dbCtx.Where("transaction_date <= ?", time.Time(*toDate))
	}

	var results []*StockTransaction
	if err := dbCtx.Order("transaction_date ASC, id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func GetStockTransaction(ctx context.Context, id int) (*StockTransaction, error) {
	return utils.FetchModel[StockTransaction](ctx, id)
}

// DeleteStockTransaction removes one ledger row by database id. There is no
// update path; corrections append compensating entries instead.
func DeleteStockTransaction(ctx context.Context, id int) (*StockTransaction, error) {

	result, err := utils.FetchModel[StockTransaction](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}
