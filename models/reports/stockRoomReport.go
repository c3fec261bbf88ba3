package reports

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/garments_backend/models"
	"bitbucket.org/mmdatafocus/garments_backend/utils"
	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportStockRoomExcel renders the stock-room aggregation view into an .xlsx
// workbook and returns the file bytes plus a timestamped filename.
func ExportStockRoomExcel(ctx context.Context) ([]byte, string, error) {

	data, err := models.GetStockRoomData(ctx)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	sheet := "Sheet1"
	if _, err := f.NewSheet(sheet); err != nil {
		return nil, "", err
	}

	// Add headers
	f.SetCellValue(sheet, "A1", "ManufacturingId")
	f.SetCellValue(sheet, "B1", "ProductName")
	f.SetCellValue(sheet, "C1", "Size")
	f.SetCellValue(sheet, "D1", "FabricColor")
	f.SetCellValue(sheet, "E1", "FabricType")
	f.SetCellValue(sheet, "F1", "TailorName")
	f.SetCellValue(sheet, "G1", "Quantity")

	// Add data
	for i, d := range data {
		f.SetCellValue(sheet, "A"+fmt.Sprint(i+2), d.ManufacturingId)
		f.SetCellValue(sheet, "B"+fmt.Sprint(i+2), d.ProductName)
		f.SetCellValue(sheet, "C"+fmt.Sprint(i+2), d.Size)
		f.SetCellValue(sheet, "D"+fmt.Sprint(i+2), d.FabricColor)
		f.SetCellValue(sheet, "E"+fmt.Sprint(i+2), d.FabricType)
		f.SetCellValue(sheet, "F"+fmt.Sprint(i+2), d.TailorName)
		f.SetCellValue(sheet, "G"+fmt.Sprint(i+2), d.Quantity)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("stock-room-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	return buf.Bytes(), filename, nil
}

// UploadStockRoomExport stores the workbook under exports/ in the configured
// bucket and returns the object key plus an access URL.
func UploadStockRoomExport(ctx context.Context) (string, string, error) {

	content, filename, err := ExportStockRoomExcel(ctx)
	if err != nil {
		return "", "", err
	}

	objectKey := "exports/" + filename
	if err := utils.UploadBytesToGCS(ctx, objectKey, content, xlsxContentType); err != nil {
		return "", "", err
	}
	return objectKey, utils.BuildObjectAccessURL(objectKey), nil
}
