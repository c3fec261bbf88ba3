package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/garments_backend/config"
	"bitbucket.org/mmdatafocus/garments_backend/utils"
	"gorm.io/gorm"
)

// ManualCuttingId marks QR products entered by hand, not derived from a
// manufacturing order's cutting record.
const ManualCuttingId = "MANUAL"

// QRProduct is a stock unit identified by a scannable code, either derived
// from a manufacturing order or entered manually (CuttingId == "MANUAL").
type QRProduct struct {
	ID              int       `gorm:"primary_key" json:"id"`
	ProductId       string    `gorm:"size:64;uniqueIndex;not null" json:"productId"`
	ManufacturingId string    `gorm:"size:64;index;not null" json:"manufacturingId"`
	CuttingId       string    `gorm:"size:64;not null;default:'MANUAL'" json:"cuttingId"`
	ProductName     string    `gorm:"size:255" json:"productName"`
	Size            string    `gorm:"size:20" json:"size"`
	FabricColor     string    `gorm:"size:100" json:"fabricColor"`
	FabricType      string    `gorm:"size:100" json:"fabricType"`
	Quantity        int       `gorm:"not null" json:"quantity"`
	TailorName      string    `gorm:"size:100" json:"tailorName"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

type NewQRProduct struct {
	ProductId       *string `json:"productId"`
	ManufacturingId string  `json:"manufacturingId" binding:"required"`
	CuttingId       string  `json:"cuttingId"`
	ProductName     string  `json:"productName"`
	Size            string  `json:"size"`
	FabricColor     string  `json:"fabricColor"`
	FabricType      string  `json:"fabricType"`
	Quantity        int     `json:"quantity" binding:"required,gt=0"`
	TailorName      string  `json:"tailorName"`
}

func (input *NewQRProduct) validate(ctx context.Context) error {
	if input.ProductId != nil && *input.ProductId != "" {
		if _, ok := ParseDocumentNumber(DocumentPrefixProduct, *input.ProductId); !ok {
			return NewValidationError("product id must match PRD followed by digits")
		}
		if err := utils.ValidateUnique[QRProduct](ctx, "product_id", *input.ProductId, 0); err != nil {
			return ErrorAlreadyExists
		}
	}
	return nil
}

// CreateQRProduct registers the stock unit and appends a QR_GENERATED ledger
// entry in the same transaction. The QR_GENERATED action does not move stock;
// the stock-room fold only reads STOCK_IN/STOCK_OUT.
func CreateQRProduct(ctx context.Context, input *NewQRProduct) (*QRProduct, error) {

	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	release, err := utils.ObtainStockLock(ctx, "docnum-product", "QRProduct", "CreateQRProduct")
	if err != nil {
		return nil, err
	}
	defer release()

	cuttingId := input.CuttingId
	if cuttingId == "" {
		cuttingId = ManualCuttingId
	}
	source := TransactionSourceQrScanner
	if cuttingId == ManualCuttingId {
		source = TransactionSourceManual
	}

	product := QRProduct{
		ManufacturingId: input.ManufacturingId,
		CuttingId:       cuttingId,
		ProductName:     input.ProductName,
		Size:            input.Size,
		FabricColor:     input.FabricColor,
		FabricType:      input.FabricType,
		Quantity:        input.Quantity,
		TailorName:      input.TailorName,
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.ProductId != nil && *input.ProductId != "" {
			product.ProductId = *input.ProductId
		} else {
			productId, err := nextDocumentNumber(tx, "qr_products", "product_id", DocumentPrefixProduct)
			if err != nil {
				return err
			}
			product.ProductId = productId
		}
		if err := tx.Create(&product).Error; err != nil {
			if isDuplicateEntry(err) {
				return ErrorAlreadyExists
			}
			return err
		}

		_, err := createStockTransactionTx(ctx, tx, &NewStockTransaction{
			ItemType: ItemTypeManufacturing,
			ItemId:   product.ManufacturingId,
			ItemName: product.ProductName,
			Action:   TransactionActionQrGenerated,
			Quantity: product.Quantity,
			Source:   source,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

type UpdateQRProductInput struct {
	ProductName *string `json:"productName"`
	Size        *string `json:"size"`
	FabricColor *string `json:"fabricColor"`
	FabricType  *string `json:"fabricType"`
	Quantity    *int    `json:"quantity"`
	TailorName  *string `json:"tailorName"`
}

func UpdateQRProduct(ctx context.Context, id int, input *UpdateQRProductInput) (*QRProduct, error) {

	product, err := utils.FetchModel[QRProduct](ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.ProductName != nil {
		updates["ProductName"] = *input.ProductName
	}
	if input.Size != nil {
		updates["Size"] = *input.Size
	}
	if input.FabricColor != nil {
		updates["FabricColor"] = *input.FabricColor
	}
	if input.FabricType != nil {
		updates["FabricType"] = *input.FabricType
	}
	if input.Quantity != nil {
		if *input.Quantity <= 0 {
			return nil, NewValidationError("quantity must be positive")
		}
		updates["Quantity"] = *input.Quantity
	}
	if input.TailorName != nil {
		updates["TailorName"] = *input.TailorName
	}
	if len(updates) == 0 {
		return product, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&product).Updates(updates).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func DeleteQRProduct(ctx context.Context, id int) (*QRProduct, error) {

	result, err := utils.FetchModel[QRProduct](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func GetQRProduct(ctx context.Context, id int) (*QRProduct, error) {
	return utils.FetchModel[QRProduct](ctx, id)
}

func ListQRProducts(ctx context.Context, manufacturingId *string) ([]*QRProduct, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&QRProduct{})
	if manufacturingId != nil && *manufacturingId != "" {
		dbCtx = dbCtx.Where("manufacturing_id = ?", *manufacturingId)
	}
	var results []*QRProduct
	if err := dbCtx.Order("id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
