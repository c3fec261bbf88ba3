package main

import (
	"errors"
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/garments_backend/models"
	"bitbucket.org/mmdatafocus/garments_backend/models/reports"
	"bitbucket.org/mmdatafocus/garments_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// respondError maps model errors onto the REST taxonomy: validation and
// duplicates are 400, missing records 404, everything else a generic 500
// with a {message} body.
func respondError(c *gin.Context, err error) {
	var validationErr *models.ValidationError
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	case errors.Is(err, models.ErrorAlreadyExists),
		errors.Is(err, models.ErrorOverAllocation),
		errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	default:
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
	}
}

func respondBindError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "validation failed",
			"fields":  utils.ProcessValidationErrors(err),
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid id"})
		return 0, false
	}
	return id, true
}

func registerRoutes(r *gin.Engine) {
	api := r.Group("/api")

	// Cutting records
	api.GET("/cutting-records", listCuttingRecordsHandler)
	api.POST("/cutting-records", createCuttingRecordHandler)
	api.GET("/cutting-records/:id", getCuttingRecordHandler)
	api.DELETE("/cutting-records/:id", deleteCuttingRecordHandler)
	api.GET("/cutting-records/:id/size-breakdown", sizeBreakdownHandler)

	// Manufacturing orders
	api.GET("/manufacturing-orders", listManufacturingOrdersHandler)
	api.POST("/manufacturing-orders", createManufacturingOrderHandler)
	api.POST("/manufacturing-orders/assign-all", assignAllHandler)
	api.GET("/manufacturing-orders/:id", getManufacturingOrderHandler)
	api.PUT("/manufacturing-orders/:id", updateManufacturingOrderHandler)
	api.DELETE("/manufacturing-orders/:id", deleteManufacturingOrderHandler)

	// Transaction ledger
	api.GET("/transactions", listTransactionsHandler)
	api.POST("/transactions", createTransactionHandler)
	api.GET("/transactions/:id", getTransactionHandler)
	api.DELETE("/transactions/:id", deleteTransactionHandler)

	// Stock aggregation view
	api.GET("/stock-room/data", stockRoomDataHandler)
	api.GET("/stock-room/item/:manufacturingId", stockRoomItemHandler)

	// QR products
	api.GET("/qr-products", listQRProductsHandler)
	api.POST("/qr-products", createQRProductHandler)
	api.GET("/qr-products/:id", getQRProductHandler)
	api.PUT("/qr-products/:id", updateQRProductHandler)
	api.PATCH("/qr-products/:id", updateQRProductHandler)
	api.DELETE("/qr-products/:id", deleteQRProductHandler)

	// Fabrics
	api.GET("/fabrics", listFabricsHandler)
	api.POST("/fabrics", createFabricHandler)
	api.GET("/fabrics/stock", fabricStockHandler)
	api.GET("/fabrics/:id", getFabricHandler)
	api.PUT("/fabrics/:id", updateFabricHandler)
	api.DELETE("/fabrics/:id", deleteFabricHandler)

	// Tailors
	api.GET("/tailors", listTailorsHandler)
	api.POST("/tailors", createTailorHandler)
	api.GET("/tailors/:id", getTailorHandler)
	api.PUT("/tailors/:id", updateTailorHandler)
	api.DELETE("/tailors/:id", deleteTailorHandler)

	// Reports
	api.GET("/reports/stock-room/export", stockRoomExportHandler)
}

/* Cutting records */

func listCuttingRecordsHandler(c *gin.Context) {
	records, err := models.ListCuttingRecords(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func createCuttingRecordHandler(c *gin.Context) {
	var input models.NewCuttingRecord
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	record, err := models.CreateCuttingRecord(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func getCuttingRecordHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	record, err := models.GetCuttingRecord(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func deleteCuttingRecordHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	result, err := models.DeleteCuttingRecord(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "cutting record and all related records deleted",
		"details": result,
	})
}

// sizeBreakdownHandler reports remaining assignable sizes. The path parameter
// is the human-readable cutting id (CUT....), not the database id.
func sizeBreakdownHandler(c *gin.Context) {
	cuttingId := c.Param("id")
	breakdown, err := models.GetRemainingSizeBreakdown(c.Request.Context(), cuttingId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

/* Manufacturing orders */

func listManufacturingOrdersHandler(c *gin.Context) {
	var cuttingId *string
	if v := c.Query("cuttingId"); v != "" {
		cuttingId = &v
	}
	orders, err := models.ListManufacturingOrders(c.Request.Context(), cuttingId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func createManufacturingOrderHandler(c *gin.Context) {
	var input models.NewManufacturingOrder
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	order, err := models.CreateManufacturingOrder(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func assignAllHandler(c *gin.Context) {
	var input models.AssignAllInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	result, err := models.AssignAllRemaining(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func getManufacturingOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	order, err := models.GetManufacturingOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func updateManufacturingOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.UpdateManufacturingOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	order, err := models.UpdateManufacturingOrder(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func deleteManufacturingOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	order, err := models.DeleteManufacturingOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

/* Transaction ledger */

func listTransactionsHandler(c *gin.Context) {
	var itemId *string
	if v := c.Query("itemId"); v != "" {
		itemId = &v
	}
	var fromDate, toDate *models.MyDateString
	if v := c.Query("fromDate"); v != "" {
		var d models.MyDateString
		if err := d.UnmarshalJSON([]byte(strconv.Quote(v))); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid fromDate"})
			return
		}
		fromDate = &d
	}
	if v := c.Query("toDate"); v != "" {
		var d models.MyDateString
		if err := d.UnmarshalJSON([]byte(strconv.Quote(v))); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid toDate"})
			return
		}
		toDate = &d
	}

	txns, err := models.ListStockTransactions(c.Request.Context(), itemId, fromDate, toDate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txns)
}

func createTransactionHandler(c *gin.Context) {
	var input models.NewStockTransaction
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	txn, err := models.CreateStockTransaction(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

func getTransactionHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	txn, err := models.GetStockTransaction(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

func deleteTransactionHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	txn, err := models.DeleteStockTransaction(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

/* Stock aggregation view */

func stockRoomDataHandler(c *gin.Context) {
	data, err := models.GetStockRoomData(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func stockRoomItemHandler(c *gin.Context) {
	item, err := models.GetStockRoomItem(c.Request.Context(), c.Param("manufacturingId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

/* QR products */

func listQRProductsHandler(c *gin.Context) {
	var manufacturingId *string
	if v := c.Query("manufacturingId"); v != "" {
		manufacturingId = &v
	}
	products, err := models.ListQRProducts(c.Request.Context(), manufacturingId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func createQRProductHandler(c *gin.Context) {
	var input models.NewQRProduct
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	product, err := models.CreateQRProduct(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func getQRProductHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	product, err := models.GetQRProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func updateQRProductHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.UpdateQRProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	product, err := models.UpdateQRProduct(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func deleteQRProductHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	product, err := models.DeleteQRProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

/* Fabrics */

func listFabricsHandler(c *gin.Context) {
	fabrics, err := models.ListFabrics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fabrics)
}

func createFabricHandler(c *gin.Context) {
	var input models.NewFabric
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	fabric, err := models.CreateFabric(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fabric)
}

func fabricStockHandler(c *gin.Context) {
	stock, err := models.GetFabricStock(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stock)
}

func getFabricHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	fabric, err := models.GetFabric(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fabric)
}

func updateFabricHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.UpdateFabricInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	fabric, err := models.UpdateFabric(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fabric)
}

func deleteFabricHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	fabric, err := models.DeleteFabric(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fabric)
}

/* Tailors */

func listTailorsHandler(c *gin.Context) {
	tailors, err := models.ListTailors(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tailors)
}

func createTailorHandler(c *gin.Context) {
	var input models.NewTailor
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	tailor, err := models.CreateTailor(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tailor)
}

func getTailorHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	tailor, err := models.GetTailor(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tailor)
}

func updateTailorHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewTailor
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	tailor, err := models.UpdateTailor(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tailor)
}

func deleteTailorHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	tailor, err := models.DeleteTailor(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tailor)
}

/* Reports */

// stockRoomExportHandler streams the stock-room workbook, or uploads it to
// GCS when ?upload=true and returns the object key.
func stockRoomExportHandler(c *gin.Context) {
	if c.Query("upload") == "true" {
		objectKey, accessURL, err := reports.UploadStockRoomExport(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"objectKey": objectKey, "accessUrl": accessURL})
		return
	}

	content, filename, err := reports.ExportStockRoomExcel(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", content)
}
