package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"stockroom/internal/core/domain"
	"stockroom/internal/port"
)

var ErrOptimisticLock = errors.New("optimistic lock conflict")

// txMaxAttempts bounds deadlock retries. Retrying transient lock
// conflicts is store policy; business failures are never retried.
const txMaxAttempts = 3

type MySQLStore struct {
	db *sqlx.DB
}

func NewMySQLStore(db *sqlx.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

// WithinTx runs fn in a single transaction. fn returning nil commits;
// any error rolls back everything fn did through the Tx. Deadlocks and
// lock wait timeouts are retried up to txMaxAttempts.
func (m *MySQLStore) WithinTx(ctx context.Context, fn func(tx port.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < txMaxAttempts; attempt++ {
		lastErr = m.runTx(ctx, fn)
		if lastErr == nil || !isRetryable(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("transaction retries exhausted: %w", lastErr)
}

func (m *MySQLStore) runTx(ctx context.Context, fn func(tx port.Tx) error) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&mysqlTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// isRetryable matches MySQL deadlock (1213) and lock wait timeout (1205).
func isRetryable(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1213 || me.Number == 1205
	}
	return false
}

func (m *MySQLStore) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	var order domain.Order
	err := m.db.GetContext(ctx, &order, `
		SELECT id, client_id, status, version, created_at, updated_at
		FROM orders WHERE id = ?`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	if err := m.db.SelectContext(ctx, &order.Lines, `
		SELECT id, order_id, item_id, quantity, unit_price_cents, created_at, updated_at
		FROM order_lines WHERE order_id = ? ORDER BY id`, orderID); err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	return &order, nil
}

func (m *MySQLStore) GetItem(ctx context.Context, itemID int64) (*domain.Item, error) {
	var item domain.Item
	err := m.db.GetContext(ctx, &item, `
		SELECT id, name, category_id, price_cents, on_hand, reserved, version, created_at, updated_at
		FROM items WHERE id = ?`, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	return &item, nil
}

func (m *MySQLStore) ListItems(ctx context.Context, categoryIDs []int64) ([]domain.Item, error) {
	items := []domain.Item{}
	if categoryIDs == nil {
		if err := m.db.SelectContext(ctx, &items, `
			SELECT id, name, category_id, price_cents, on_hand, reserved, version, created_at, updated_at
			FROM items ORDER BY id`); err != nil {
			return nil, fmt.Errorf("query items: %w", err)
		}
		return items, nil
	}
	if len(categoryIDs) == 0 {
		return items, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, name, category_id, price_cents, on_hand, reserved, version, created_at, updated_at
		FROM items WHERE category_id IN (?) ORDER BY id`, categoryIDs)
	if err != nil {
		return nil, fmt.Errorf("build items query: %w", err)
	}
	if err := m.db.SelectContext(ctx, &items, m.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	return items, nil
}

func (m *MySQLStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories := []domain.Category{}
	if err := m.db.SelectContext(ctx, &categories, `
		SELECT id, name, parent_id, created_at, updated_at
		FROM categories ORDER BY id`); err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	return categories, nil
}

type mysqlTx struct {
	tx *sqlx.Tx
}

// OrderForUpdate locks the order row for the transaction's duration. The
// order row lock serializes all line-set mutation for that order.
func (t *mysqlTx) OrderForUpdate(ctx context.Context, orderID int64) (*domain.Order, error) {
	var order domain.Order
	err := t.tx.GetContext(ctx, &order, `
		SELECT id, client_id, status, version, created_at, updated_at
		FROM orders WHERE id = ? FOR UPDATE`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock order: %w", err)
	}

	if err := t.tx.SelectContext(ctx, &order.Lines, `
		SELECT id, order_id, item_id, quantity, unit_price_cents, created_at, updated_at
		FROM order_lines WHERE order_id = ? ORDER BY id`, orderID); err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	return &order, nil
}

// ItemForUpdate locks the item's stock row. This lock is the serialization
// point that keeps the sum of reservations within on-hand stock.
func (t *mysqlTx) ItemForUpdate(ctx context.Context, itemID int64) (*domain.Item, error) {
	var item domain.Item
	err := t.tx.GetContext(ctx, &item, `
		SELECT id, name, category_id, price_cents, on_hand, reserved, version, created_at, updated_at
		FROM items WHERE id = ? FOR UPDATE`, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock item: %w", err)
	}
	return &item, nil
}

func (t *mysqlTx) UpdateItemStock(ctx context.Context, item *domain.Item) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE items
		SET on_hand = ?, reserved = ?, version = version + 1, updated_at = NOW()
		WHERE id = ? AND version = ?`,
		item.OnHand, item.Reserved, item.ID, item.Version)
	if err != nil {
		return fmt.Errorf("update item stock: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrOptimisticLock
	}
	item.Version++
	return nil
}

func (t *mysqlTx) UpdateOrderStatus(ctx context.Context, order *domain.Order) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, version = version + 1, updated_at = NOW()
		WHERE id = ? AND version = ?`,
		order.Status, order.ID, order.Version)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrOptimisticLock
	}
	order.Version++
	return nil
}

func (t *mysqlTx) InsertOrderLine(ctx context.Context, line *domain.OrderLine) error {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO order_lines (order_id, item_id, quantity, unit_price_cents, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		line.OrderID, line.ItemID, line.Quantity, line.UnitPriceCents,
		line.CreatedAt, line.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order line: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("order line id: %w", err)
	}
	line.ID = id
	return nil
}

func (t *mysqlTx) UpdateOrderLineQuantity(ctx context.Context, line *domain.OrderLine) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE order_lines SET quantity = ?, updated_at = ? WHERE id = ?`,
		line.Quantity, time.Now().UTC(), line.ID)
	if err != nil {
		return fmt.Errorf("update order line: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrLineNotFound
	}
	return nil
}

func (t *mysqlTx) DeleteOrderLine(ctx context.Context, lineID int64) error {
	result, err := t.tx.ExecContext(ctx, `DELETE FROM order_lines WHERE id = ?`, lineID)
	if err != nil {
		return fmt.Errorf("delete order line: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrLineNotFound
	}
	return nil
}
