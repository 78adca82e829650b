package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	domainErrors "github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/errors"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/item"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/payment"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/transaction"
	"github.com/google/uuid"
)

// --- Transaction Repository Mock ---

// MockTransactionRepository is an in-memory transaction.Repository that
// enforces the same status/version check and one-active rule as Postgres.
type MockTransactionRepository struct {
	mu           sync.Mutex
	transactions map[uuid.UUID]transaction.Transaction

	CreateFunc      func(ctx context.Context, t *transaction.Transaction) error
	GetByIDFunc     func(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error)
	FindActiveFunc  func(ctx context.Context, itemID, buyerID string) (*transaction.Transaction, error)
	UpdateFunc      func(ctx context.Context, t *transaction.Transaction, expected transaction.Status) error
	ListExpiredFunc func(ctx context.Context, now time.Time, limit int) ([]*transaction.Transaction, error)

	UpdateCalls int
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{transactions: make(map[uuid.UUID]transaction.Transaction)}
}

func isActive(s transaction.Status) bool {
	for _, a := range transaction.ActiveStatuses {
		if a == s {
			return true
		}
	}
	return false
}

func (m *MockTransactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.transactions {
		if existing.ItemID == t.ItemID && existing.BuyerID == t.BuyerID && isActive(existing.Status) {
			return domainErrors.InvalidData("an active transaction already exists for this item", domainErrors.ErrActiveTransactionExists)
		}
	}
	m.transactions[t.ID] = *t
	return nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return nil, domainErrors.ErrTransactionNotFound
	}
	return &t, nil
}

func (m *MockTransactionRepository) FindActive(ctx context.Context, itemID, buyerID string) (*transaction.Transaction, error) {
	if m.FindActiveFunc != nil {
		return m.FindActiveFunc(ctx, itemID, buyerID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.transactions {
		if t.ItemID == itemID && t.BuyerID == buyerID && isActive(t.Status) {
			return &t, nil
		}
	}
	return nil, nil
}

func (m *MockTransactionRepository) Update(ctx context.Context, t *transaction.Transaction, expected transaction.Status) error {
	m.mu.Lock()
	m.UpdateCalls++
	m.mu.Unlock()
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, t, expected)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.transactions[t.ID]
	if !ok || stored.Status != expected || stored.Version != t.Version {
		return domainErrors.ErrStatusConflict
	}
	t.Version++
	m.transactions[t.ID] = *t
	return nil
}

func (m *MockTransactionRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*transaction.Transaction, error) {
	if m.ListExpiredFunc != nil {
		return m.ListExpiredFunc(ctx, now, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*transaction.Transaction
	for _, t := range m.transactions {
		if t.IsExpired(now) {
			t := t
			out = append(out, &t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Put stores t as-is, bypassing the create guard.
func (m *MockTransactionRepository) Put(t *transaction.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[t.ID] = *t
}

// Stored returns a copy of the stored transaction.
func (m *MockTransactionRepository) Stored(id uuid.UUID) *transaction.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return nil
	}
	return &t
}

// --- Item Repository Mock ---

type MockItemRepository struct {
	mu    sync.Mutex
	items map[string]item.Item

	GetByIDFunc func(ctx context.Context, id string) (*item.Item, error)
	ReserveFunc func(ctx context.Context, id, transactionID string) (bool, error)
}

func NewMockItemRepository() *MockItemRepository {
	return &MockItemRepository{items: make(map[string]item.Item)}
}

func (m *MockItemRepository) Create(ctx context.Context, it *item.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[it.ID] = *it
	return nil
}

func (m *MockItemRepository) GetByID(ctx context.Context, id string) (*item.Item, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, domainErrors.ErrItemNotFound
	}
	return &it, nil
}

func (m *MockItemRepository) Reserve(ctx context.Context, id, transactionID string) (bool, error) {
	if m.ReserveFunc != nil {
		return m.ReserveFunc(ctx, id, transactionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok || it.Status != item.StatusAvailable {
		return false, nil
	}
	it.Status = item.StatusReserved
	it.ReservedByTransactionID = &transactionID
	it.UpdatedAt = time.Now()
	m.items[id] = it
	return true, nil
}

func (m *MockItemRepository) Release(ctx context.Context, id, transactionID string) (bool, error) {
	return m.settle(id, transactionID, item.StatusAvailable, nil)
}

func (m *MockItemRepository) MarkSold(ctx context.Context, id, transactionID string) (bool, error) {
	return m.settle(id, transactionID, item.StatusSold, &transactionID)
}

func (m *MockItemRepository) settle(id, transactionID string, to item.Status, holder *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok || !it.IsHeldBy(transactionID) {
		return false, nil
	}
	it.Status = to
	it.ReservedByTransactionID = holder
	it.UpdatedAt = time.Now()
	m.items[id] = it
	return true, nil
}

func (m *MockItemRepository) SetBoostedUntil(ctx context.Context, id string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return domainErrors.ErrItemNotFound
	}
	it.BoostedUntil = &until
	m.items[id] = it
	return nil
}

// Stored returns a copy of the stored item.
func (m *MockItemRepository) Stored(id string) *item.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil
	}
	return &it
}

// --- Payment Repository Mock ---

type MockPaymentRepository struct {
	mu       sync.Mutex
	payments map[uuid.UUID]payment.Payment

	CreateFunc func(ctx context.Context, p *payment.Payment) error
	UpdateFunc func(ctx context.Context, p *payment.Payment, expected payment.Status) error
}

func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{payments: make(map[uuid.UUID]payment.Payment)}
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.ID] = *p
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, domainErrors.ErrPaymentNotFound
	}
	return &p, nil
}

func (m *MockPaymentRepository) Update(ctx context.Context, p *payment.Payment, expected payment.Status) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, p, expected)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.payments[p.ID]
	if !ok || stored.Status != expected {
		return domainErrors.ErrStatusConflict
	}
	m.payments[p.ID] = *p
	return nil
}

// Put stores p as-is.
func (m *MockPaymentRepository) Put(p *payment.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.ID] = *p
}

// Stored returns a copy of the stored payment.
func (m *MockPaymentRepository) Stored(id uuid.UUID) *payment.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil
	}
	return &p
}

// --- Publisher Mock ---

// Published is one recorded Publish call.
type Published struct {
	Exchange   string
	RoutingKey string
	Payload    any
}

type MockPublisher struct {
	mu       sync.Mutex
	messages []Published

	PublishFunc func(ctx context.Context, exchange, routingKey string, payload any) error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, exchange, routingKey string, payload any) error {
	if m.PublishFunc != nil {
		if err := m.PublishFunc(ctx, exchange, routingKey, payload); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, Published{Exchange: exchange, RoutingKey: routingKey, Payload: payload})
	return nil
}

// ByKey returns the payloads published with routingKey, in order.
func (m *MockPublisher) ByKey(routingKey string) []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []any
	for _, p := range m.messages {
		if p.RoutingKey == routingKey {
			out = append(out, p.Payload)
		}
	}
	return out
}

func (m *MockPublisher) All() []Published {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Published, len(m.messages))
	copy(out, m.messages)
	return out
}

// --- Notifier Mock ---

type Notification struct {
	Recipient     string
	Title         string
	Message       string
	Type          string
	CorrelationID string
}

type MockNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(ctx context.Context, recipientUserID, title, message, notificationType, correlationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, Notification{
		Recipient:     recipientUserID,
		Title:         title,
		Message:       message,
		Type:          notificationType,
		CorrelationID: correlationID,
	})
}

// For returns the notifications sent to recipient.
func (m *MockNotifier) For(recipient string) []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Notification
	for _, n := range m.sent {
		if n.Recipient == recipient {
			out = append(out, n)
		}
	}
	return out
}

// --- Item Client Mock ---

type MockItemClient struct {
	mu    sync.Mutex
	items map[string]item.Item

	GetItemFunc func(ctx context.Context, itemID string) (*item.Item, error)
}

func NewMockItemClient(items ...*item.Item) *MockItemClient {
	m := &MockItemClient{items: make(map[string]item.Item)}
	for _, it := range items {
		m.items[it.ID] = *it
	}
	return m
}

func (m *MockItemClient) GetItem(ctx context.Context, itemID string) (*item.Item, error) {
	if m.GetItemFunc != nil {
		return m.GetItemFunc(ctx, itemID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[itemID]
	if !ok {
		return nil, domainErrors.ErrItemNotFound
	}
	return &it, nil
}

// --- Transaction Manager Mock ---

// MockTransactionManager runs fn directly without a real transaction.
type MockTransactionManager struct{}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- Locker Mock ---

// MockLocker grants the lock unless Held is set.
type MockLocker struct {
	mu    sync.Mutex
	Held  bool
	Calls int
}

func (m *MockLocker) Do(ctx context.Context, name string, ttl time.Duration, fn func(ctx context.Context) error) (bool, error) {
	m.mu.Lock()
	m.Calls++
	held := m.Held
	m.mu.Unlock()
	if held {
		return false, nil
	}
	return true, fn(ctx)
}
