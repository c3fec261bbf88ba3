package models_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/garments_backend/config"
	"bitbucket.org/mmdatafocus/garments_backend/utils"
)

// Contending writers must queue behind the posting lock, not fail. A failed
// obtain would surface as a 500 on a synchronous write path.
func TestStockLockContendersWaitForHolder(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	config.ConnectRedisWithRetry()

	// Hold the ledger lock directly, then release it while contenders wait.
	holder, err := config.GetRedisLock().Obtain(ctx, "lock:stock-ledger", 30*time.Second, nil)
	if err != nil {
		t.Fatalf("obtain holder lock: %v", err)
	}

	const contenders = 20
	var wg sync.WaitGroup
	errCh := make(chan error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := utils.ObtainStockLock(ctx, "stock-ledger", "StockTransaction", "TestContention")
			if err != nil {
				errCh <- err
				return
			}
			release()
			errCh <- nil
		}()
	}

	time.Sleep(500 * time.Millisecond)
	if err := holder.Release(ctx); err != nil {
		t.Fatalf("release holder lock: %v", err)
	}

	wg.Wait()
	close(errCh)
	failed := 0
	var sample error
	for err := range errCh {
		if err != nil {
			failed++
			sample = err
		}
	}
	if failed > 0 {
		t.Fatalf("%d/%d contenders failed instead of waiting: %v", failed, contenders, sample)
	}
}
