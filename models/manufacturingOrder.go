package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/garments_backend/config"
	"bitbucket.org/mmdatafocus/garments_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrorOverAllocation rejects an assignment whose quantity exceeds the pieces
// still unassigned for that size. The check runs inside the assignment
// transaction, so concurrent writers cannot jointly over-allocate.
var ErrorOverAllocation = errors.New("quantity exceeds remaining pieces for size")

// ManufacturingOrder assigns N pieces of one size from one cutting record to a
// tailor at a price. ManufacturingId is NOT unique: repeated partial
// assignments against the same (cutting, product, size, color, fabric)
// combination accumulate under one id instead of fragmenting.
type ManufacturingOrder struct {
	ID              int                 `gorm:"primary_key" json:"id"`
	ManufacturingId string              `gorm:"size:64;index;not null" json:"manufacturingId"`
	CuttingId       string              `gorm:"size:64;index;not null" json:"cuttingId"`
	ProductName     string              `gorm:"size:255;not null" json:"productName"`
	Size            string              `gorm:"size:20;not null" json:"size"`
	FabricColor     string              `gorm:"size:100" json:"fabricColor"`
	FabricType      string              `gorm:"size:100" json:"fabricType"`
	Quantity        int                 `gorm:"not null" json:"quantity"`
	TailorName      string              `gorm:"size:100;not null" json:"tailorName"`
	PricePerPiece   decimal.Decimal     `gorm:"type:decimal(20,4);not null" json:"pricePerPiece"`
	TotalAmount     decimal.Decimal     `gorm:"type:decimal(20,4);not null" json:"totalAmount"`
	Status          ManufacturingStatus `gorm:"type:enum('Pending','In Progress','Completed','Delivered');default:'Pending'" json:"status"`
	CreatedAt       time.Time           `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time           `gorm:"autoUpdateTime" json:"updatedAt"`
}

type NewManufacturingOrder struct {
	CuttingId     string          `json:"cuttingId" binding:"required"`
	Size          string          `json:"size" binding:"required"`
	Quantity      int             `json:"quantity" binding:"required,gt=0"`
	TailorName    string          `json:"tailorName" binding:"required"`
	PricePerPiece decimal.Decimal `json:"pricePerPiece"`
}

// CreateManufacturingOrder allocates pieces from a cutting record's size
// breakdown to a tailor. Product and fabric descriptors come from the cutting
// record itself. Remaining quantity is re-derived inside the transaction and
// over-allocation is rejected.
func CreateManufacturingOrder(ctx context.Context, input *NewManufacturingOrder) (*ManufacturingOrder, error) {

	if input.PricePerPiece.IsNegative() {
		return nil, NewValidationError("price per piece must not be negative")
	}

	record, err := GetCuttingRecordByCuttingId(ctx, input.CuttingId)
	if err != nil {
		return nil, err
	}

	var inBreakdown bool
	for _, sb := range record.SizeBreakdown {
		if sb.Size == input.Size {
			inBreakdown = true
			break
		}
	}
	if !inBreakdown {
		return nil, NewValidationError("size %q is not part of cutting record %s", input.Size, record.CuttingId)
	}

	release, err := utils.ObtainStockLock(ctx, "assignment", "ManufacturingOrder", "CreateManufacturingOrder")
	if err != nil {
		return nil, err
	}
	defer release()

	order := ManufacturingOrder{
		CuttingId:     record.CuttingId,
		ProductName:   record.ProductName,
		Size:          input.Size,
		FabricColor:   record.FabricColor,
		FabricType:    record.FabricType,
		Quantity:      input.Quantity,
		TailorName:    input.TailorName,
		PricePerPiece: input.PricePerPiece,
		TotalAmount:   input.PricePerPiece.Mul(decimal.NewFromInt(int64(input.Quantity))),
		Status:        ManufacturingStatusPending,
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {

		var existing []*ManufacturingOrder
		if err := tx.Where("cutting_id = ?", record.CuttingId).Find(&existing).Error; err != nil {
			return err
		}

		assigned := 0
		for _, o := range existing {
			if o.Size == input.Size {
				assigned += o.Quantity
			}
		}
		remaining := 0
		for _, sb := range record.SizeBreakdown {
			if sb.Size == input.Size {
				remaining = sb.Quantity - assigned
				break
			}
		}
		if input.Quantity > remaining {
			return ErrorOverAllocation
		}

		// Reuse the manufacturing id of an order for the same combination so
		// repeated partial assignments accumulate under one id.
		for _, o := range existing {
			if o.ProductName == order.ProductName &&
				o.Size == order.Size &&
				o.FabricColor == order.FabricColor &&
				o.FabricType == order.FabricType {
				order.ManufacturingId = o.ManufacturingId
				break
			}
		}
		if order.ManufacturingId == "" {
			manufacturingId, err := nextDocumentNumber(tx, "manufacturing_orders", "manufacturing_id", DocumentPrefixManufacturing)
			if err != nil {
				return err
			}
			order.ManufacturingId = manufacturingId
		}

		return tx.Create(&order).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

/* Bulk assignment */

type AssignAllInput struct {
	CuttingId     string          `json:"cuttingId" binding:"required"`
	TailorName    string          `json:"tailorName" binding:"required"`
	PricePerPiece decimal.Decimal `json:"pricePerPiece"`
}

type AssignAllResult struct {
	CuttingId    string                `json:"cuttingId"`
	SuccessCount int                   `json:"successCount"`
	TotalSizes   int                   `json:"totalSizes"`
	Orders       []*ManufacturingOrder `json:"orders"`
}

// AssignAllRemaining creates one order per remaining size for its full
// remaining quantity. The batch is best-effort: a per-size failure is logged
// and counted, not rolled back.
func AssignAllRemaining(ctx context.Context, input *AssignAllInput) (*AssignAllResult, error) {
	logger := config.GetLogger()

	breakdown, err := GetRemainingSizeBreakdown(ctx, input.CuttingId)
	if err != nil {
		return nil, err
	}

	result := AssignAllResult{
		CuttingId:  input.CuttingId,
		TotalSizes: len(breakdown.AvailableSizes),
		Orders:     make([]*ManufacturingOrder, 0, len(breakdown.AvailableSizes)),
	}

	for _, size := range breakdown.AvailableSizes {
		order, err := CreateManufacturingOrder(ctx, &NewManufacturingOrder{
			CuttingId:     input.CuttingId,
			Size:          size.Size,
			Quantity:      size.RemainingQuantity,
			TailorName:    input.TailorName,
			PricePerPiece: input.PricePerPiece,
		})
		if err != nil {
			config.LogError(logger, "ManufacturingOrder", "AssignAllRemaining", "per-size assignment failed", size.Size, err)
			continue
		}
		result.SuccessCount++
		result.Orders = append(result.Orders, order)
	}

	return &result, nil
}

/* CRUD */

type UpdateManufacturingOrderInput struct {
	TailorName    *string              `json:"tailorName"`
	PricePerPiece *decimal.Decimal     `json:"pricePerPiece"`
	Status        *ManufacturingStatus `json:"status"`
}

// UpdateManufacturingOrder edits tailor, price or status. A price edit
// recomputes TotalAmount from the stored quantity; quantity itself is fixed at
// assignment time.
func UpdateManufacturingOrder(ctx context.Context, id int, input *UpdateManufacturingOrderInput) (*ManufacturingOrder, error) {

	order, err := utils.FetchModel[ManufacturingOrder](ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.TailorName != nil && *input.TailorName != "" {
		updates["TailorName"] = *input.TailorName
	}
	if input.PricePerPiece != nil {
		if input.PricePerPiece.IsNegative() {
			return nil, NewValidationError("price per piece must not be negative")
		}
		updates["PricePerPiece"] = *input.PricePerPiece
		updates["TotalAmount"] = input.PricePerPiece.Mul(decimal.NewFromInt(int64(order.Quantity)))
	}
	if input.Status != nil {
		updates["Status"] = *input.Status
	}
	if len(updates) == 0 {
		return order, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&order).Updates(updates).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func DeleteManufacturingOrder(ctx context.Context, id int) (*ManufacturingOrder, error) {

	result, err := utils.FetchModel[ManufacturingOrder](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func GetManufacturingOrder(ctx context.Context, id int) (*ManufacturingOrder, error) {
	return utils.FetchModel[ManufacturingOrder](ctx, id)
}

func ListManufacturingOrders(ctx context.Context, cuttingId *string) ([]*ManufacturingOrder, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&ManufacturingOrder{})
	if cuttingId != nil && *cuttingId != "" {
		dbCtx = dbCtx.Where("cutting_id = ?", *cuttingId)
	}
	var results []*ManufacturingOrder
	if err := dbCtx.Order("id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
