package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/garments_backend/config"
	"bitbucket.org/mmdatafocus/garments_backend/models"
	"bitbucket.org/mmdatafocus/garments_backend/utils"
	"github.com/shopspring/decimal"
)

func TestCuttingAssignmentStockRoomFlow(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	// Wire env for config.Connect* helpers.
	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "garments_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	// Start from a clean cache even when a container is reused locally.
	if err := config.ClearRedis(ctx); err != nil {
		t.Fatalf("ClearRedis: %v", err)
	}

	models.MigrateTable()

	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")

	db := config.GetDB()
	if db == nil {
		t.Fatalf("db is nil after ConnectDatabaseWithRetry")
	}

	// 1) Cutting record: 100 pieces, S:40 M:60.
	record, err := models.CreateCuttingRecord(ctx, &models.NewCuttingRecord{
		FabricType:           "Cotton",
		FabricColor:          "White",
		ProductName:          "Basic Tee",
		PiecesCount:          100,
		TotalLengthUsed:      decimal.NewFromInt(120),
		CuttingMaster:        "U Ba",
		CuttingPricePerPiece: decimal.NewFromInt(5),
		SizeBreakdown: []models.NewSizeBreakdown{
			{Size: "S", Quantity: 40},
			{Size: "M", Quantity: 60},
		},
	})
	if err != nil {
		t.Fatalf("CreateCuttingRecord: %v", err)
	}
	if record.CuttingId != "CUT0001" {
		t.Fatalf("expected first cutting id CUT0001; got %s", record.CuttingId)
	}

	breakdown, err := models.GetRemainingSizeBreakdown(ctx, record.CuttingId)
	if err != nil {
		t.Fatalf("GetRemainingSizeBreakdown: %v", err)
	}
	if len(breakdown.AvailableSizes) != 2 || breakdown.FullyAssigned {
		t.Fatalf("expected 2 assignable sizes before assignment; got %+v", breakdown)
	}

	// 2) Assign 40 S pieces at 20 per piece.
	sOrder, err := models.CreateManufacturingOrder(ctx, &models.NewManufacturingOrder{
		CuttingId:     record.CuttingId,
		Size:          "S",
		Quantity:      40,
		TailorName:    "Daw Mya",
		PricePerPiece: decimal.NewFromInt(20),
	})
	if err != nil {
		t.Fatalf("CreateManufacturingOrder(S): %v", err)
	}
	if sOrder.ManufacturingId != "MFG0001" {
		t.Fatalf("expected first manufacturing id MFG0001; got %s", sOrder.ManufacturingId)
	}
	if sOrder.TotalAmount.Cmp(decimal.NewFromInt(800)) != 0 {
		t.Fatalf("expected total amount 800; got %s", sOrder.TotalAmount.String())
	}
	if sOrder.ProductName != "Basic Tee" || sOrder.FabricColor != "White" {
		t.Fatalf("expected descriptors derived from cutting record; got %+v", sOrder)
	}
	if sOrder.Status != models.ManufacturingStatusPending {
		t.Fatalf("expected status Pending; got %s", sOrder.Status)
	}

	breakdown, err = models.GetRemainingSizeBreakdown(ctx, record.CuttingId)
	if err != nil {
		t.Fatalf("GetRemainingSizeBreakdown(after S): %v", err)
	}
	if len(breakdown.AvailableSizes) != 1 || breakdown.AvailableSizes[0].Size != "M" {
		t.Fatalf("expected only M assignable after S exhausted; got %+v", breakdown.AvailableSizes)
	}
	if breakdown.AvailableSizes[0].RemainingQuantity != 60 {
		t.Fatalf("expected M remaining 60; got %d", breakdown.AvailableSizes[0].RemainingQuantity)
	}

	// 3) Over-allocation is rejected inside the assignment transaction.
	_, err = models.CreateManufacturingOrder(ctx, &models.NewManufacturingOrder{
		CuttingId:     record.CuttingId,
		Size:          "M",
		Quantity:      61,
		TailorName:    "Daw Mya",
		PricePerPiece: decimal.NewFromInt(20),
	})
	if !errors.Is(err, models.ErrorOverAllocation) {
		t.Fatalf("expected ErrorOverAllocation for qty 61 of 60; got %v", err)
	}

	// 4) Bulk assignment picks up every remaining size at full quantity.
	assignAll, err := models.AssignAllRemaining(ctx, &models.AssignAllInput{
		CuttingId:     record.CuttingId,
		TailorName:    "Ko Aung",
		PricePerPiece: decimal.NewFromInt(18),
	})
	if err != nil {
		t.Fatalf("AssignAllRemaining: %v", err)
	}
	if assignAll.SuccessCount != 1 || assignAll.TotalSizes != 1 {
		t.Fatalf("expected 1/1 bulk assignment; got %+v", assignAll)
	}
	if assignAll.Orders[0].Size != "M" || assignAll.Orders[0].Quantity != 60 {
		t.Fatalf("expected M:60 order from bulk assignment; got %+v", assignAll.Orders[0])
	}

	breakdown, err = models.GetRemainingSizeBreakdown(ctx, record.CuttingId)
	if err != nil {
		t.Fatalf("GetRemainingSizeBreakdown(after assign-all): %v", err)
	}
	if !breakdown.FullyAssigned || len(breakdown.AvailableSizes) != 0 {
		t.Fatalf("expected fully assigned record; got %+v", breakdown)
	}

	// 5) Repeated partial assignments of the same combination reuse one
	// manufacturing id instead of fragmenting.
	record2, err := models.CreateCuttingRecord(ctx, &models.NewCuttingRecord{
		FabricType:  "Linen",
		FabricColor: "Blue",
		ProductName: "Summer Shirt",
		PiecesCount: 20,
		SizeBreakdown: []models.NewSizeBreakdown{
			{Size: "L", Quantity: 20},
		},
	})
	if err != nil {
		t.Fatalf("CreateCuttingRecord(2): %v", err)
	}
	if record2.CuttingId != "CUT0002" {
		t.Fatalf("expected CUT0002; got %s", record2.CuttingId)
	}
	first, err := models.CreateManufacturingOrder(ctx, &models.NewManufacturingOrder{
		CuttingId:     record2.CuttingId,
		Size:          "L",
		Quantity:      5,
		TailorName:    "Daw Mya",
		PricePerPiece: decimal.NewFromInt(25),
	})
	if err != nil {
		t.Fatalf("CreateManufacturingOrder(L first): %v", err)
	}
	second, err := models.CreateManufacturingOrder(ctx, &models.NewManufacturingOrder{
		CuttingId:     record2.CuttingId,
		Size:          "L",
		Quantity:      10,
		TailorName:    "Ko Aung",
		PricePerPiece: decimal.NewFromInt(25),
	})
	if err != nil {
		t.Fatalf("CreateManufacturingOrder(L second): %v", err)
	}
	if first.ManufacturingId != second.ManufacturingId {
		t.Fatalf("expected reused manufacturing id; got %s and %s", first.ManufacturingId, second.ManufacturingId)
	}
	if first.ID == second.ID {
		t.Fatalf("expected two distinct order rows")
	}

	// 6) Completed orders enter the stock room; the ledger fold adjusts them.
	completed := models.ManufacturingStatusCompleted
	if _, err := models.UpdateManufacturingOrder(ctx, sOrder.ID, &models.UpdateManufacturingOrderInput{
		Status: &completed,
	}); err != nil {
		t.Fatalf("UpdateManufacturingOrder(complete): %v", err)
	}

	item, err := models.GetStockRoomItem(ctx, sOrder.ManufacturingId)
	if err != nil {
		t.Fatalf("GetStockRoomItem(completed): %v", err)
	}
	if item.Quantity != 40 {
		t.Fatalf("expected base stock 40 from completed order; got %d", item.Quantity)
	}

	txnIn, err := models.CreateStockTransaction(ctx, &models.NewStockTransaction{
		ItemType: models.ItemTypeManufacturing,
		ItemId:   sOrder.ManufacturingId,
		ItemName: "Basic Tee",
		Action:   models.TransactionActionStockIn,
		Quantity: 10,
		Source:   models.TransactionSourceQrScanner,
	})
	if err != nil {
		t.Fatalf("CreateStockTransaction(STOCK_IN): %v", err)
	}
	txnIDPattern := regexp.MustCompile(`^TXN\d{18}$`)
	if !txnIDPattern.MatchString(txnIn.TransactionId) {
		t.Fatalf("unexpected transaction id format: %q", txnIn.TransactionId)
	}
	if txnIn.PerformedBy != "Test" {
		t.Fatalf("expected performedBy from context; got %q", txnIn.PerformedBy)
	}

	if _, err := models.CreateStockTransaction(ctx, &models.NewStockTransaction{
		ItemType: models.ItemTypeManufacturing,
		ItemId:   sOrder.ManufacturingId,
		ItemName: "Basic Tee",
		Action:   models.TransactionActionStockOut,
		Quantity: 3,
		Source:   models.TransactionSourceQrScanner,
	}); err != nil {
		t.Fatalf("CreateStockTransaction(STOCK_OUT): %v", err)
	}

	item, err = models.GetStockRoomItem(ctx, sOrder.ManufacturingId)
	if err != nil {
		t.Fatalf("GetStockRoomItem(after fold): %v", err)
	}
	if item.Quantity != 47 {
		t.Fatalf("expected 40 + 10 - 3 = 47; got %d", item.Quantity)
	}

	// Every ledger row leaves an outbox event behind for async publishing.
	var outboxCount int64
	if err := db.WithContext(ctx).Model(&models.StockEventRecord{}).
		Where("transaction_id = ?", txnIn.TransactionId).
		Count(&outboxCount).Error; err != nil {
		t.Fatalf("count outbox records: %v", err)
	}
	if outboxCount != 1 {
		t.Fatalf("expected 1 outbox record for %s; got %d", txnIn.TransactionId, outboxCount)
	}

	// 7) Ids that exist only in the ledger appear in the view starting from 0.
	if _, err := models.CreateStockTransaction(ctx, &models.NewStockTransaction{
		ItemType: models.ItemTypeManufacturing,
		ItemId:   "MFG9999",
		ItemName: "Unregistered",
		Action:   models.TransactionActionStockIn,
		Quantity: 5,
		Source:   models.TransactionSourceManual,
	}); err != nil {
		t.Fatalf("CreateStockTransaction(ledger-only): %v", err)
	}
	item, err = models.GetStockRoomItem(ctx, "MFG9999")
	if err != nil {
		t.Fatalf("GetStockRoomItem(ledger-only): %v", err)
	}
	if item.Quantity != 5 {
		t.Fatalf("expected ledger-only id to show 5; got %d", item.Quantity)
	}

	// 8) Manual QR products contribute base stock and a QR_GENERATED ledger row.
	manual, err := models.CreateQRProduct(ctx, &models.NewQRProduct{
		ManufacturingId: "MFG7777",
		ProductName:     "Sample Jacket",
		Size:            "XL",
		Quantity:        12,
	})
	if err != nil {
		t.Fatalf("CreateQRProduct(manual): %v", err)
	}
	if manual.ProductId != "PRD0001" {
		t.Fatalf("expected PRD0001; got %s", manual.ProductId)
	}
	if manual.CuttingId != models.ManualCuttingId {
		t.Fatalf("expected manual cutting id; got %s", manual.CuttingId)
	}
	item, err = models.GetStockRoomItem(ctx, "MFG7777")
	if err != nil {
		t.Fatalf("GetStockRoomItem(manual): %v", err)
	}
	// QR_GENERATED does not move stock; the base quantity stands alone.
	if item.Quantity != 12 {
		t.Fatalf("expected manual product quantity 12; got %d", item.Quantity)
	}
	txns, err := models.ListStockTransactions(ctx, &manual.ManufacturingId, nil, nil)
	if err != nil {
		t.Fatalf("ListStockTransactions(manual): %v", err)
	}
	if len(txns) != 1 || txns[0].Action != models.TransactionActionQrGenerated {
		t.Fatalf("expected one QR_GENERATED row for manual product; got %+v", txns)
	}
	if txns[0].Source != models.TransactionSourceManual {
		t.Fatalf("expected MANUAL source for manual product; got %s", txns[0].Source)
	}

	// 9) Cascade deletion removes orders, QR products and ledger rows
	// transitively and reports the counts.
	linked, err := models.CreateQRProduct(ctx, &models.NewQRProduct{
		ManufacturingId: sOrder.ManufacturingId,
		CuttingId:       record.CuttingId,
		ProductName:     "Basic Tee",
		Size:            "S",
		Quantity:        40,
		TailorName:      "Daw Mya",
	})
	if err != nil {
		t.Fatalf("CreateQRProduct(linked): %v", err)
	}
	if linked.CuttingId != record.CuttingId {
		t.Fatalf("expected linked product to keep cutting id %s; got %s", record.CuttingId, linked.CuttingId)
	}

	deleted, err := models.DeleteCuttingRecord(ctx, record.ID)
	if err != nil {
		t.Fatalf("DeleteCuttingRecord: %v", err)
	}
	if deleted.CuttingId != record.CuttingId {
		t.Fatalf("expected deleted cutting id %s; got %s", record.CuttingId, deleted.CuttingId)
	}
	if deleted.DeletedManufacturingOrders != 2 {
		t.Fatalf("expected 2 deleted orders; got %d", deleted.DeletedManufacturingOrders)
	}
	if deleted.DeletedQRProducts != 1 {
		t.Fatalf("expected 1 deleted QR product; got %d", deleted.DeletedQRProducts)
	}
	if deleted.DeletedTransactions != 3 {
		t.Fatalf("expected 3 deleted ledger rows (STOCK_IN + STOCK_OUT + QR_GENERATED); got %d", deleted.DeletedTransactions)
	}

	if _, err := models.GetQRProduct(ctx, linked.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected linked QR product gone after cascade; got %v", err)
	}

	if _, err := models.GetCuttingRecordByCuttingId(ctx, record.CuttingId); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected record gone after cascade; got %v", err)
	}
	if _, err := models.GetStockRoomItem(ctx, sOrder.ManufacturingId); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected stock room item gone after cascade; got %v", err)
	}

	// The untouched cutting record's orders survive.
	remaining, err := models.ListManufacturingOrders(ctx, &record2.CuttingId)
	if err != nil {
		t.Fatalf("ListManufacturingOrders(record2): %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("expected record2 orders untouched; got %d", len(remaining))
	}

	// 10) Concurrent ledger writes for one item produce distinct transaction
	// ids (the generator retries on collision under the posting lock).
	const writers = 100
	var wg sync.WaitGroup
	errCh := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := models.CreateStockTransaction(ctx, &models.NewStockTransaction{
				ItemType: models.ItemTypeManufacturing,
				ItemId:   "MFG8888",
				Action:   models.TransactionActionStockIn,
				Quantity: 1,
				Source:   models.TransactionSourceQrScanner,
			})
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("concurrent CreateStockTransaction: %v", err)
		}
	}
	var distinctIds int64
	if err := db.WithContext(ctx).Model(&models.StockTransaction{}).
		Where("item_id = ?", "MFG8888").
		Distinct("transaction_id").
		Count(&distinctIds).Error; err != nil {
		t.Fatalf("count distinct transaction ids: %v", err)
	}
	if distinctIds != writers {
		t.Fatalf("expected %d distinct transaction ids; got %d", writers, distinctIds)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("garments-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("garments-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=garments_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
