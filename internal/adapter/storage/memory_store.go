package storage

import (
	"context"
	"sort"
	"sync"

	"stockroom/internal/core/domain"
	"stockroom/internal/port"
)

// MemoryStore is an in-memory Store used by tests and local development.
// WithinTx holds one mutex for the whole transaction, which serializes
// conflicting operations the way row locks do in MySQL, and restores a
// snapshot on error so rollback covers every mutation.
type MemoryStore struct {
	mu         sync.Mutex
	items      map[int64]domain.Item
	orders     map[int64]domain.Order
	lines      map[int64]domain.OrderLine
	categories map[int64]domain.Category
	nextLineID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:      make(map[int64]domain.Item),
		orders:     make(map[int64]domain.Order),
		lines:      make(map[int64]domain.OrderLine),
		categories: make(map[int64]domain.Category),
		nextLineID: 1,
	}
}

func (m *MemoryStore) PutItem(item domain.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item
}

func (m *MemoryStore) PutOrder(order domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
}

func (m *MemoryStore) PutCategory(category domain.Category) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[category.ID] = category
}

func (m *MemoryStore) WithinTx(ctx context.Context, fn func(tx port.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	if err := fn(&memoryTx{store: m}); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	items      map[int64]domain.Item
	orders     map[int64]domain.Order
	lines      map[int64]domain.OrderLine
	nextLineID int64
}

func (m *MemoryStore) snapshot() memorySnapshot {
	s := memorySnapshot{
		items:      make(map[int64]domain.Item, len(m.items)),
		orders:     make(map[int64]domain.Order, len(m.orders)),
		lines:      make(map[int64]domain.OrderLine, len(m.lines)),
		nextLineID: m.nextLineID,
	}
	for id, v := range m.items {
		s.items[id] = v
	}
	for id, v := range m.orders {
		s.orders[id] = v
	}
	for id, v := range m.lines {
		s.lines[id] = v
	}
	return s
}

func (m *MemoryStore) restore(s memorySnapshot) {
	m.items = s.items
	m.orders = s.orders
	m.lines = s.lines
	m.nextLineID = s.nextLineID
}

func (m *MemoryStore) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadOrder(orderID)
}

func (m *MemoryStore) GetItem(ctx context.Context, itemID int64) (*domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return &item, nil
}

func (m *MemoryStore) ListItems(ctx context.Context, categoryIDs []int64) ([]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var scope map[int64]bool
	if categoryIDs != nil {
		scope = make(map[int64]bool, len(categoryIDs))
		for _, id := range categoryIDs {
			scope[id] = true
		}
	}

	items := []domain.Item{}
	for _, item := range m.items {
		if scope != nil && (item.CategoryID == nil || !scope[*item.CategoryID]) {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (m *MemoryStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	categories := []domain.Category{}
	for _, c := range m.categories {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })
	return categories, nil
}

// loadOrder assembles an order with its lines sorted by line id. Caller
// must hold the mutex.
func (m *MemoryStore) loadOrder(orderID int64) (*domain.Order, error) {
	order, ok := m.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	order.Lines = nil
	for _, line := range m.lines {
		if line.OrderID == orderID {
			order.Lines = append(order.Lines, line)
		}
	}
	sort.Slice(order.Lines, func(i, j int) bool { return order.Lines[i].ID < order.Lines[j].ID })
	return &order, nil
}

type memoryTx struct {
	store *MemoryStore
}

func (t *memoryTx) OrderForUpdate(ctx context.Context, orderID int64) (*domain.Order, error) {
	return t.store.loadOrder(orderID)
}

func (t *memoryTx) ItemForUpdate(ctx context.Context, itemID int64) (*domain.Item, error) {
	item, ok := t.store.items[itemID]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return &item, nil
}

func (t *memoryTx) UpdateItemStock(ctx context.Context, item *domain.Item) error {
	if _, ok := t.store.items[item.ID]; !ok {
		return domain.ErrItemNotFound
	}
	item.Version++
	t.store.items[item.ID] = *item
	return nil
}

func (t *memoryTx) UpdateOrderStatus(ctx context.Context, order *domain.Order) error {
	if _, ok := t.store.orders[order.ID]; !ok {
		return domain.ErrOrderNotFound
	}
	order.Version++
	stored := *order
	stored.Lines = nil
	t.store.orders[order.ID] = stored
	return nil
}

func (t *memoryTx) InsertOrderLine(ctx context.Context, line *domain.OrderLine) error {
	line.ID = t.store.nextLineID
	t.store.nextLineID++
	t.store.lines[line.ID] = *line
	return nil
}

func (t *memoryTx) UpdateOrderLineQuantity(ctx context.Context, line *domain.OrderLine) error {
	if _, ok := t.store.lines[line.ID]; !ok {
		return domain.ErrLineNotFound
	}
	t.store.lines[line.ID] = *line
	return nil
}

func (t *memoryTx) DeleteOrderLine(ctx context.Context, lineID int64) error {
	if _, ok := t.store.lines[lineID]; !ok {
		return domain.ErrLineNotFound
	}
	delete(t.store.lines, lineID)
	return nil
}
