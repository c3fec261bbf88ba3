package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/garments_backend/config"
	"bitbucket.org/mmdatafocus/garments_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Fabric is raw material stock. Ledger rows reference it by FabricId; current
// length on hand is derived by folding the ledger, never stored here.
type Fabric struct {
	ID            int             `gorm:"primary_key" json:"id"`
	FabricId      string          `gorm:"size:64;uniqueIndex;not null" json:"fabricId"`
	FabricType    string          `gorm:"size:100;not null" json:"fabricType"`
	Color         string          `gorm:"size:100" json:"color"`
	TotalLength   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"totalLength"`
	Supplier      string          `gorm:"size:255" json:"supplier"`
	PricePerMeter decimal.Decimal `gorm:"type:decimal(20,4)" json:"pricePerMeter"`
	IsActive      *bool           `gorm:"not null;default:true" json:"isActive"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

type NewFabric struct {
	FabricId      *string         `json:"fabricId"`
	FabricType    string          `json:"fabricType" binding:"required"`
	Color         string          `json:"color"`
	TotalLength   decimal.Decimal `json:"totalLength"`
	Supplier      string          `json:"supplier"`
	PricePerMeter decimal.Decimal `json:"pricePerMeter"`
}

func (input *NewFabric) validate(ctx context.Context) error {
	if input.TotalLength.IsNegative() {
		return NewValidationError("total length must not be negative")
	}
	if input.FabricId != nil && *input.FabricId != "" {
		if _, ok := ParseDocumentNumber(DocumentPrefixFabric, *input.FabricId); !ok {
			return NewValidationError("fabric id must match FAB followed by digits")
		}
		if err := utils.ValidateUnique[Fabric](ctx, "fabric_id", *input.FabricId, 0); err != nil {
			return ErrorAlreadyExists
		}
	}
	return nil
}

// CreateFabric registers intake and appends the opening ADD ledger entry in
// the same transaction when the intake carries stock.
func CreateFabric(ctx context.Context, input *NewFabric) (*Fabric, error) {

	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	release, err := utils.ObtainStockLock(ctx, "docnum-fabric", "Fabric", "CreateFabric")
	if err != nil {
		return nil, err
	}
	defer release()

	fabric := Fabric{
		FabricType:    input.FabricType,
		Color:         input.Color,
		TotalLength:   input.TotalLength,
		Supplier:      input.Supplier,
		PricePerMeter: input.PricePerMeter,
		IsActive:      utils.NewTrue(),
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.FabricId != nil && *input.FabricId != "" {
			fabric.FabricId = *input.FabricId
		} else {
			fabricId, err := nextDocumentNumber(tx, "fabrics", "fabric_id", DocumentPrefixFabric)
			if err != nil {
				return err
			}
			fabric.FabricId = fabricId
		}
		if err := tx.Create(&fabric).Error; err != nil {
			if isDuplicateEntry(err) {
				return ErrorAlreadyExists
			}
			return err
		}

		if fabric.TotalLength.IsPositive() {
			_, err := createStockTransactionTx(ctx, tx, &NewStockTransaction{
				ItemType: ItemTypeFabric,
				ItemId:   fabric.FabricId,
				ItemName: fabric.FabricType,
				Action:   TransactionActionAdd,
				Quantity: int(fabric.TotalLength.IntPart()),
				Source:   TransactionSourceManual,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisList[Fabric](); err != nil {
		return nil, err
	}
	return &fabric, nil
}

type UpdateFabricInput struct {
	FabricType    *string          `json:"fabricType"`
	Color         *string          `json:"color"`
	Supplier      *string          `json:"supplier"`
	PricePerMeter *decimal.Decimal `json:"pricePerMeter"`
}

func UpdateFabric(ctx context.Context, id int, input *UpdateFabricInput) (*Fabric, error) {

	fabric, err := utils.FetchModel[Fabric](ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.FabricType != nil && *input.FabricType != "" {
		updates["FabricType"] = *input.FabricType
	}
	if input.Color != nil {
		updates["Color"] = *input.Color
	}
	if input.Supplier != nil {
		updates["Supplier"] = *input.Supplier
	}
	if input.PricePerMeter != nil {
		updates["PricePerMeter"] = *input.PricePerMeter
	}
	if len(updates) == 0 {
		return fabric, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&fabric).Updates(updates).Error; err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisItem[Fabric](id); err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[Fabric](); err != nil {
		return nil, err
	}
	return fabric, nil
}

func DeleteFabric(ctx context.Context, id int) (*Fabric, error) {

	result, err := utils.FetchModel[Fabric](ctx, id)
	if err != nil {
		return nil, err
	}

	// Do not delete while the ledger still references this fabric
	count, err := utils.ResourceCountWhere[StockTransaction](ctx, "item_type = ? AND item_id = ?", ItemTypeFabric, result.FabricId)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, NewValidationError("fabric has ledger transactions")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(&result).Error; err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisItem[Fabric](id); err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[Fabric](); err != nil {
		return nil, err
	}
	return result, nil
}

func GetFabric(ctx context.Context, id int) (*Fabric, error) {

	result, err := utils.RetrieveRedis[Fabric](id)
	if err != nil {
		return nil, err
	}

	if result == nil {
		db := config.GetDB()
		// db query
		err := db.WithContext(ctx).First(&result, id).Error
		if err != nil {
			return nil, utils.ErrorRecordNotFound
		}
		// caching
		if err := utils.StoreRedis[Fabric](result, id); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func ListFabrics(ctx context.Context) ([]*Fabric, error) {

	results, err := utils.RetrieveRedisList[Fabric]()
	if err != nil {
		return nil, err
	}

	if results == nil {
		db := config.GetDB()
		if err := db.WithContext(ctx).Order("fabric_id ASC").Find(&results).Error; err != nil {
			return nil, err
		}
		if err := utils.StoreRedisList[Fabric](results); err != nil {
			return nil, err
		}
	}
	return results, nil
}

/* Fabric stock view */

type FabricStockItem struct {
	FabricId   string `json:"fabricId"`
	FabricType string `json:"fabricType"`
	Color      string `json:"color"`
	Quantity   int    `json:"quantity"`
}

// GetFabricStock folds the fabric ledger per fabric id: ADD/STOCK_IN add,
// REMOVE/STOCK_OUT subtract.
func GetFabricStock(ctx context.Context) ([]*FabricStockItem, error) {

	sql := `
SELECT
    f.fabric_id,
    f.fabric_type,
    f.color,
    COALESCE(SUM(
        CASE
            WHEN t.action IN ('ADD', 'STOCK_IN') THEN t.quantity
            WHEN t.action IN ('REMOVE', 'STOCK_OUT') THEN -t.quantity
            ELSE 0
        END
    ), 0) AS quantity
FROM fabrics f
LEFT JOIN stock_transactions t
    ON t.item_type = 'FABRIC' AND t.item_id = f.fabric_id
GROUP BY f.fabric_id, f.fabric_type, f.color
ORDER BY f.fabric_id;
`
	db := config.GetDB()
	var records []*FabricStockItem
	if err := db.WithContext(ctx).Raw(sql).Scan(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
