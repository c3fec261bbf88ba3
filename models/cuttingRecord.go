package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/garments_backend/config"
	"bitbucket.org/mmdatafocus/garments_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CuttingRecord is one cutting event: a batch of fabric cut into pieces of
// specified sizes for a product. Related manufacturing orders, QR products and
// ledger rows reference it by the human-readable CuttingId (value equality,
// not a database reference).
type CuttingRecord struct {
	ID                   int             `gorm:"primary_key" json:"id"`
	CuttingId            string          `gorm:"size:64;uniqueIndex;not null" json:"cuttingId"`
	FabricType           string          `gorm:"size:100;not null" json:"fabricType"`
	FabricColor          string          `gorm:"size:100" json:"fabricColor"`
	ProductName          string          `gorm:"size:255;not null" json:"productName"`
	PiecesCount          int             `gorm:"not null" json:"piecesCount"`
	TotalLengthUsed      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"totalLengthUsed"`
	SizeBreakdown        []SizeBreakdown `gorm:"foreignKey:CuttingRecordId" json:"sizeBreakdown"`
	CuttingMaster        string          `gorm:"size:100" json:"cuttingMaster"`
	CuttingPricePerPiece decimal.Decimal `gorm:"type:decimal(20,4)" json:"cuttingPricePerPiece"`
	CuttingDate          time.Time       `gorm:"index" json:"date"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt            time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

// SizeBreakdown is one per-size piece count within a cutting record.
// Position preserves the order the intake form submitted.
type SizeBreakdown struct {
	ID              int    `gorm:"primary_key" json:"id"`
	CuttingRecordId int    `gorm:"index;not null" json:"cuttingRecordId"`
	Size            string `gorm:"size:20;not null" json:"size"`
	Quantity        int    `gorm:"not null" json:"quantity"`
	Position        int    `gorm:"not null;default:0" json:"position"`
}

type NewCuttingRecord struct {
	Id                   *string            `json:"id"`
	FabricType           string             `json:"fabricType" binding:"required"`
	FabricColor          string             `json:"fabricColor"`
	ProductName          string             `json:"productName" binding:"required"`
	PiecesCount          int                `json:"piecesCount" binding:"required,gt=0"`
	TotalLengthUsed      decimal.Decimal    `json:"totalLengthUsed"`
	SizeBreakdown        []NewSizeBreakdown `json:"sizeBreakdown" binding:"required,min=1,dive"`
	CuttingMaster        string             `json:"cuttingMaster"`
	CuttingPricePerPiece decimal.Decimal    `json:"cuttingPricePerPiece"`
	Date                 MyDateString       `json:"date"`
}

type NewSizeBreakdown struct {
	Size     string `json:"size" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

// validate input at creation. Size-breakdown quantities must sum to the total
// pieces count; duplicate sizes within one record are rejected.
func (input *NewCuttingRecord) validate(ctx context.Context) error {
	sum := 0
	seen := map[string]bool{}
	for _, sb := range input.SizeBreakdown {
		if seen[sb.Size] {
			return NewValidationError("duplicate size %q in size breakdown", sb.Size)
		}
		seen[sb.Size] = true
		sum += sb.Quantity
	}
	if sum != input.PiecesCount {
		return NewValidationError("size breakdown quantities sum to %d, expected pieces count %d", sum, input.PiecesCount)
	}
	if input.Id != nil && *input.Id != "" {
		if _, ok := ParseDocumentNumber(DocumentPrefixCutting, *input.Id); !ok {
			return NewValidationError("cutting id must match CUT followed by digits")
		}
		if err := utils.ValidateUnique[CuttingRecord](ctx, "cutting_id", *input.Id, 0); err != nil {
			return ErrorAlreadyExists
		}
	}
	return nil
}

func CreateCuttingRecord(ctx context.Context, input *NewCuttingRecord) (*CuttingRecord, error) {

	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	release, err := utils.ObtainStockLock(ctx, "docnum-cutting", "CuttingRecord", "CreateCuttingRecord")
	if err != nil {
		return nil, err
	}
	defer release()

	breakdown := make([]SizeBreakdown, 0, len(input.SizeBreakdown))
	for i, sb := range input.SizeBreakdown {
		breakdown = append(breakdown, SizeBreakdown{
			Size:     sb.Size,
			Quantity: sb.Quantity,
			Position: i,
		})
	}

	cuttingDate := time.Time(input.Date)
	if cuttingDate.IsZero() {
		cuttingDate = time.Now().UTC()
	}

	record := CuttingRecord{
		FabricType:           input.FabricType,
		FabricColor:          input.FabricColor,
		ProductName:          input.ProductName,
		PiecesCount:          input.PiecesCount,
		TotalLengthUsed:      input.TotalLengthUsed,
		SizeBreakdown:        breakdown,
		CuttingMaster:        input.CuttingMaster,
		CuttingPricePerPiece: input.CuttingPricePerPiece,
		CuttingDate:          cuttingDate,
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.Id != nil && *input.Id != "" {
			record.CuttingId = *input.Id
		} else {
			cuttingId, err := nextDocumentNumber(tx, "cutting_records", "cutting_id", DocumentPrefixCutting)
			if err != nil {
				return err
			}
			record.CuttingId = cuttingId
		}
		if err := tx.Create(&record).Error; err != nil {
			if isDuplicateEntry(err) {
				return ErrorAlreadyExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func GetCuttingRecord(ctx context.Context, id int) (*CuttingRecord, error) {
	return utils.FetchModel[CuttingRecord](ctx, id, "SizeBreakdown")
}

func GetCuttingRecordByCuttingId(ctx context.Context, cuttingId string) (*CuttingRecord, error) {
	return utils.FetchModelByColumn[CuttingRecord](ctx, "cutting_id", cuttingId, "SizeBreakdown")
}

func ListCuttingRecords(ctx context.Context) ([]*CuttingRecord, error) {

	db := config.GetDB()
	var results []*CuttingRecord
	err := db.WithContext(ctx).
		Preload("SizeBreakdown", func(db *gorm.DB) *gorm.DB {
			return db.Order("size_breakdowns.position ASC")
		}).
		Order("cutting_date DESC, id DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

/* Size-breakdown ledger */

type RemainingSize struct {
	Size              string `json:"size"`
	TotalQuantity     int    `json:"totalQuantity"`
	AssignedQuantity  int    `json:"assignedQuantity"`
	RemainingQuantity int    `json:"remainingQuantity"`
}

type RemainingSizeBreakdownResponse struct {
	CuttingId      string          `json:"cuttingId"`
	AvailableSizes []RemainingSize `json:"availableSizes"`
	FullyAssigned  bool            `json:"fullyAssigned"`
}

// remainingSizes computes per-size remaining quantities for a cutting record
// against the orders already assigned from it. Sizes with remaining <= 0 are
// excluded from the assignable set.
func remainingSizes(record *CuttingRecord, orders []*ManufacturingOrder) []RemainingSize {
	assigned := map[string]int{}
	for _, order := range orders {
		assigned[order.Size] += order.Quantity
	}

	available := make([]RemainingSize, 0, len(record.SizeBreakdown))
	for _, sb := range record.SizeBreakdown {
		remaining := sb.Quantity - assigned[sb.Size]
		if remaining <= 0 {
			continue
		}
		available = append(available, RemainingSize{
			Size:              sb.Size,
			TotalQuantity:     sb.Quantity,
			AssignedQuantity:  assigned[sb.Size],
			RemainingQuantity: remaining,
		})
	}
	return available
}

// GetRemainingSizeBreakdown reports which sizes of a cutting record still have
// unassigned pieces. An empty assignable set with a non-empty breakdown is
// reported as fully assigned, not as an error.
func GetRemainingSizeBreakdown(ctx context.Context, cuttingId string) (*RemainingSizeBreakdownResponse, error) {

	record, err := GetCuttingRecordByCuttingId(ctx, cuttingId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var orders []*ManufacturingOrder
	if err := db.WithContext(ctx).Where("cutting_id = ?", cuttingId).Find(&orders).Error; err != nil {
		return nil, err
	}

	available := remainingSizes(record, orders)
	return &RemainingSizeBreakdownResponse{
		CuttingId:      cuttingId,
		AvailableSizes: available,
		FullyAssigned:  len(record.SizeBreakdown) > 0 && len(available) == 0,
	}, nil
}

/* Cascade deletion */

type CascadeDeleteResult struct {
	CuttingId                  string `json:"cuttingId"`
	DeletedManufacturingOrders int64  `json:"deletedManufacturingOrders"`
	DeletedQRProducts          int64  `json:"deletedQRProducts"`
	DeletedTransactions        int64  `json:"deletedTransactions"`
}

// DeleteCuttingRecord transitively removes the record, its manufacturing
// orders, QR products under the collected manufacturing ids, and every ledger
// row keyed by the cutting id or those manufacturing ids. All steps run in one
// DB transaction so a failing step leaves nothing orphaned.
func DeleteCuttingRecord(ctx context.Context, id int) (*CascadeDeleteResult, error) {

	record, err := utils.FetchModel[CuttingRecord](ctx, id)
	if err != nil {
		return nil, err
	}

	result := CascadeDeleteResult{CuttingId: record.CuttingId}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {

		var manufacturingIds []string
		if err := tx.Model(&ManufacturingOrder{}).
			Where("cutting_id = ?", record.CuttingId).
			Distinct().
			Pluck("manufacturing_id", &manufacturingIds).Error; err != nil {
			return err
		}

		if err := tx.Where("cutting_record_id = ?", record.ID).Delete(&SizeBreakdown{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&CuttingRecord{}, record.ID).Error; err != nil {
			return err
		}

		res := tx.Where("cutting_id = ?", record.CuttingId).Delete(&ManufacturingOrder{})
		if res.Error != nil {
			return res.Error
		}
		result.DeletedManufacturingOrders = res.RowsAffected

		if len(manufacturingIds) > 0 {
			res = tx.Where("manufacturing_id IN ?", manufacturingIds).Delete(&QRProduct{})
			if res.Error != nil {
				return res.Error
			}
			result.DeletedQRProducts = res.RowsAffected
		}

		txnQuery := tx.Where("item_id = ?", record.CuttingId)
		if len(manufacturingIds) > 0 {
			txnQuery = tx.Where("item_id = ? OR item_id IN ?", record.CuttingId, manufacturingIds)
		}
		res = txnQuery.Delete(&StockTransaction{})
		if res.Error != nil {
			return res.Error
		}
		result.DeletedTransactions = res.RowsAffected

		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
