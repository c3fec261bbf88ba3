package models

import (
	"log"

	"bitbucket.org/mmdatafocus/garments_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&CuttingRecord{}, &SizeBreakdown{},
		&ManufacturingOrder{},
		&QRProduct{},
		&StockTransaction{}, &StockEventRecord{},
		&Fabric{},
		&Tailor{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
