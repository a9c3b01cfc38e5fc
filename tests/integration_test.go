package tests

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockroom/internal/adapter/event"
	"stockroom/internal/adapter/storage"
	"stockroom/internal/core/domain"
	"stockroom/internal/core/service"
)

type testEnv struct {
	db      *sqlx.DB
	redis   *redis.Client
	store   *storage.MySQLStore
	ledger  *service.StockLedger
	orders  *service.OrderService
	orderID int64
	itemID  int64
}

func setupTestEnv(t *testing.T, onHand int) *testEnv {
	t.Helper()

	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/stockroom?parseTime=true"
	}
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	require.NoError(t, storage.RunMigrations(db))

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	ctx := context.Background()
	res, err := db.ExecContext(ctx, `INSERT INTO clients (name, address) VALUES ('integration-client', 'nowhere')`)
	require.NoError(t, err)
	clientID, _ := res.LastInsertId()

	res, err = db.ExecContext(ctx, `INSERT INTO orders (client_id, status) VALUES (?, 'open')`, clientID)
	require.NoError(t, err)
	orderID, _ := res.LastInsertId()

	res, err = db.ExecContext(ctx, `
		INSERT INTO items (name, price_cents, on_hand, reserved) VALUES ('integration-item', 1000, ?, 0)`, onHand)
	require.NoError(t, err)
	itemID, _ := res.LastInsertId()

	store := storage.NewMySQLStore(db)
	cache := storage.NewRedisCache(rdb, time.Minute)
	events := event.NopPublisher{}
	ledger := service.NewStockLedger(store, cache, events)
	orders := service.NewOrderService(store, ledger, cache, events)

	t.Cleanup(func() {
		db.ExecContext(ctx, `DELETE FROM order_lines WHERE order_id = ?`, orderID)
		db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, orderID)
		db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, itemID)
		db.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, clientID)
		rdb.Close()
		db.Close()
	})

	return &testEnv{
		db:      db,
		redis:   rdb,
		store:   store,
		ledger:  ledger,
		orders:  orders,
		orderID: orderID,
		itemID:  itemID,
	}
}

func TestIntegration_AdditiveMergeFlow(t *testing.T) {
	env := setupTestEnv(t, 10)
	ctx := context.Background()

	line, err := env.orders.AddItemToOrder(ctx, env.orderID, env.itemID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, line.Quantity)

	available, err := env.ledger.GetAvailable(ctx, env.itemID)
	require.NoError(t, err)
	assert.Equal(t, 8, available)

	line, err = env.orders.AddItemToOrder(ctx, env.orderID, env.itemID, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, line.Quantity)

	available, err = env.ledger.GetAvailable(ctx, env.itemID)
	require.NoError(t, err)
	assert.Equal(t, 5, available)

	order, err := env.orders.GetOrder(ctx, env.orderID)
	require.NoError(t, err)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, 5, order.Lines[0].Quantity)
}

func TestIntegration_ConcurrentNoOversell(t *testing.T) {
	env := setupTestEnv(t, 20)
	ctx := context.Background()

	const totalRequests = 50
	var accepted atomic.Int32
	var rejected atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.orders.AddItemToOrder(ctx, env.orderID, env.itemID, 1)
			if err == nil {
				accepted.Add(1)
				return
			}
			var stockErr *domain.InsufficientStockError
			if errors.As(err, &stockErr) {
				rejected.Add(1)
				return
			}
			t.Errorf("unexpected error: %v", err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(20), accepted.Load())
	assert.Equal(t, int32(totalRequests-20), rejected.Load())

	item, err := env.store.GetItem(ctx, env.itemID)
	require.NoError(t, err)
	assert.Equal(t, 20, item.Reserved)
	assert.Equal(t, 0, item.Available())

	order, err := env.orders.GetOrder(ctx, env.orderID)
	require.NoError(t, err)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, 20, order.Lines[0].Quantity)
}

func TestIntegration_RemoveReleasesStock(t *testing.T) {
	env := setupTestEnv(t, 10)
	ctx := context.Background()

	_, err := env.orders.AddItemToOrder(ctx, env.orderID, env.itemID, 4)
	require.NoError(t, err)

	require.NoError(t, env.orders.RemoveItemFromOrder(ctx, env.orderID, env.itemID))

	item, err := env.store.GetItem(ctx, env.itemID)
	require.NoError(t, err)
	assert.Equal(t, 0, item.Reserved)

	available, err := env.ledger.GetAvailable(ctx, env.itemID)
	require.NoError(t, err)
	assert.Equal(t, 10, available)
}

func TestIntegration_FinalizedOrderRejectsAdds(t *testing.T) {
	env := setupTestEnv(t, 10)
	ctx := context.Background()

	require.NoError(t, env.orders.FinalizeOrder(ctx, env.orderID))

	_, err := env.orders.AddItemToOrder(ctx, env.orderID, env.itemID, 1)
	assert.ErrorIs(t, err, domain.ErrOrderFinalized)

	item, err := env.store.GetItem(ctx, env.itemID)
	require.NoError(t, err)
	assert.Equal(t, 0, item.Reserved)
}
