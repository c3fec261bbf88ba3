package models

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/garments_backend/config"
	"bitbucket.org/mmdatafocus/garments_backend/utils"
	"go.opentelemetry.io/otel"
)

var stockRoomTracer = otel.Tracer("garments-stock-room")

type StockRoomItem struct {
	ManufacturingId string `json:"manufacturingId"`
	ProductName     string `json:"productName"`
	Size            string `json:"size"`
	FabricColor     string `json:"fabricColor"`
	FabricType      string `json:"fabricType"`
	TailorName      string `json:"tailorName"`
	Quantity        int    `json:"quantity"`
}

// stockRoomSQL derives on-hand per manufacturing id on every read. Base stock
// is completed manufacturing orders union manual QR products: orders take
// precedence per id, same-source duplicates are summed. The ledger fold then
// adds STOCK_IN and subtracts STOCK_OUT. Ids that exist only in the ledger
// still appear, starting from 0.
const stockRoomSQL = `
WITH CompletedOrders AS (
    SELECT
        manufacturing_id,
        MAX(product_name) AS product_name,
        MAX(size) AS size,
        MAX(fabric_color) AS fabric_color,
        MAX(fabric_type) AS fabric_type,
        MAX(tailor_name) AS tailor_name,
        SUM(quantity) AS quantity
    FROM manufacturing_orders
    WHERE status = 'Completed'
    GROUP BY manufacturing_id
),
ManualProducts AS (
    SELECT
        manufacturing_id,
        MAX(product_name) AS product_name,
        MAX(size) AS size,
        MAX(fabric_color) AS fabric_color,
        MAX(fabric_type) AS fabric_type,
        MAX(tailor_name) AS tailor_name,
        SUM(quantity) AS quantity
    FROM qr_products
    WHERE cutting_id = 'MANUAL'
      AND manufacturing_id NOT IN (SELECT manufacturing_id FROM CompletedOrders)
    GROUP BY manufacturing_id
),
BaseStock AS (
    SELECT * FROM CompletedOrders
    UNION ALL
    SELECT * FROM ManualProducts
),
LedgerDelta AS (
    SELECT
        item_id AS manufacturing_id,
        SUM(CASE
            WHEN action = 'STOCK_IN' THEN quantity
            WHEN action = 'STOCK_OUT' THEN -quantity
            ELSE 0
        END) AS delta
    FROM stock_transactions
    WHERE item_type = 'MANUFACTURING'
    GROUP BY item_id
),
AllIds AS (
    SELECT manufacturing_id FROM BaseStock
    UNION
    SELECT manufacturing_id FROM LedgerDelta
)
SELECT
    a.manufacturing_id,
    COALESCE(b.product_name, '') AS product_name,
    COALESCE(b.size, '') AS size,
    COALESCE(b.fabric_color, '') AS fabric_color,
    COALESCE(b.fabric_type, '') AS fabric_type,
    COALESCE(b.tailor_name, '') AS tailor_name,
    COALESCE(b.quantity, 0) + COALESCE(l.delta, 0) AS quantity
FROM AllIds a
LEFT JOIN BaseStock b ON b.manufacturing_id = a.manufacturing_id
LEFT JOIN LedgerDelta l ON l.manufacturing_id = a.manufacturing_id
{{- if .manufacturingId }}
WHERE a.manufacturing_id = @manufacturingId
{{- end }}
ORDER BY a.manufacturing_id;
`

// GetStockRoomData recomputes the full aggregation view. Pure function of the
// order/QR/ledger tables; no materialized state.
func GetStockRoomData(ctx context.Context) ([]*StockRoomItem, error) {
	ctx, span := stockRoomTracer.Start(ctx, "GetStockRoomData")
	defer span.End()

	sql, err := utils.ExecTemplate(stockRoomSQL, map[string]interface{}{})
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var records []*StockRoomItem
	if err := db.WithContext(ctx).Raw(sql).Scan(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// GetStockRoomItem derives the current quantity for one manufacturing id.
func GetStockRoomItem(ctx context.Context, manufacturingId string) (*StockRoomItem, error) {
	ctx, span := stockRoomTracer.Start(ctx, "GetStockRoomItem")
	defer span.End()

	if manufacturingId == "" {
		return nil, errors.New("manufacturing id is required")
	}

	sql, err := utils.ExecTemplate(stockRoomSQL, map[string]interface{}{
		"manufacturingId": manufacturingId,
	})
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var records []*StockRoomItem
	err = db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"manufacturingId": manufacturingId,
	}).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, utils.ErrorRecordNotFound
	}
	return records[0], nil
}
