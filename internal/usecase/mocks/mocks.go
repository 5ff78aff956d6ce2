package mocks

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// MockAccountRepository is a mock implementation of AccountRepository.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account

	CreateFunc            func(ctx context.Context, tx usecase.Transaction, account *domain.Account) error
	GetByIDAndOwnerFunc   func(ctx context.Context, id, ownerID string) (*domain.Account, error)
	GetByIDsForUpdateFunc func(ctx context.Context, tx usecase.Transaction, ownerID string, ids []string) ([]*domain.Account, error)
	UpdateBalanceFunc     func(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error
	UpdateNameFunc        func(ctx context.Context, id, ownerID, name string, updatedAt time.Time) (*domain.Account, error)
	DeleteFunc            func(ctx context.Context, tx usecase.Transaction, id, ownerID string) error
	SearchFunc            func(ctx context.Context, filter usecase.AccountFilter) ([]*domain.Account, int64, error)
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts: make(map[string]*domain.Account),
	}
}

// Put seeds an account.
func (m *MockAccountRepository) Put(account *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *account
	m.accounts[account.ID] = &clone
}

// Get returns a copy of the stored account, or nil.
func (m *MockAccountRepository) Get(id string) *domain.Account {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.accounts[id]
	if !ok {
		return nil
	}
	clone := *acc
	return &clone
}

func (m *MockAccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, account)
	}
	m.Put(account)
	return nil
}

func (m *MockAccountRepository) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*domain.Account, error) {
	if m.GetByIDAndOwnerFunc != nil {
		return m.GetByIDAndOwnerFunc(ctx, id, ownerID)
	}
	acc := m.Get(id)
	if acc == nil || acc.OwnerID != ownerID {
		return nil, domain.ErrAccountNotFound
	}
	return acc, nil
}

func (m *MockAccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ownerID string, ids []string) ([]*domain.Account, error) {
	if m.GetByIDsForUpdateFunc != nil {
		return m.GetByIDsForUpdateFunc(ctx, tx, ownerID, ids)
	}
	var accounts []*domain.Account
	for _, id := range ids {
		if acc := m.Get(id); acc != nil && acc.OwnerID == ownerID {
			accounts = append(accounts, acc)
		}
	}
	return accounts, nil
}

func (m *MockAccountRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error {
	if m.UpdateBalanceFunc != nil {
		return m.UpdateBalanceFunc(ctx, tx, id, balance, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.accounts[id]; ok {
		acc.Balance = balance
		acc.Version++
		acc.UpdatedAt = updatedAt
	}
	return nil
}

func (m *MockAccountRepository) UpdateName(ctx context.Context, id, ownerID, name string, updatedAt time.Time) (*domain.Account, error) {
	if m.UpdateNameFunc != nil {
		return m.UpdateNameFunc(ctx, id, ownerID, name, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok || acc.OwnerID != ownerID {
		return nil, domain.ErrAccountNotFound
	}
	acc.Name = name
	acc.UpdatedAt = updatedAt
	clone := *acc
	return &clone, nil
}

func (m *MockAccountRepository) Delete(ctx context.Context, tx usecase.Transaction, id, ownerID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, tx, id, ownerID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok || acc.OwnerID != ownerID {
		return domain.ErrAccountNotFound
	}
	delete(m.accounts, id)
	return nil
}

func (m *MockAccountRepository) Search(ctx context.Context, filter usecase.AccountFilter) ([]*domain.Account, int64, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, filter)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []*domain.Account
	for _, acc := range m.accounts {
		if acc.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Name != "" && !strings.Contains(strings.ToLower(acc.Name), strings.ToLower(filter.Name)) {
			continue
		}
		if filter.Number != "" && !strings.Contains(acc.Number, filter.Number) {
			continue
		}
		clone := *acc
		accounts = append(accounts, &clone)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, int64(len(accounts)), nil
}

// MockTransactionRepository is a mock implementation of TransactionRepository.
type MockTransactionRepository struct {
	mu      sync.RWMutex
	records []*domain.Transaction

	CreateFunc        func(ctx context.Context, tx usecase.Transaction, record *domain.Transaction) error
	ListByAccountFunc func(ctx context.Context, accountID string) ([]*domain.Transaction, error)
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{}
}

// All returns every stored record in insertion order.
func (m *MockTransactionRepository) All() []*domain.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.Transaction(nil), m.records...)
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, record *domain.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, record)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *record
	m.records = append(m.records, &clone)
	return nil
}

func (m *MockTransactionRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.Transaction, error) {
	if m.ListByAccountFunc != nil {
		return m.ListByAccountFunc(ctx, accountID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var records []*domain.Transaction
	for _, r := range m.records {
		if r.Involves(accountID) {
			records = append(records, r)
		}
	}
	return records, nil
}

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User

	CreateFunc        func(ctx context.Context, user *domain.User) error
	GetByUsernameFunc func(ctx context.Context, username string) (*domain.User, error)

	GetByUsernameCalls int
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[string]*domain.User),
	}
}

// Put seeds a user.
func (m *MockUserRepository) Put(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.Username] = user
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Username]; ok {
		return domain.ErrUserAlreadyExists
	}
	m.users[user.Username] = user
	return nil
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	m.GetByUsernameCalls++
	m.mu.Unlock()
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[username]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	mu     sync.RWMutex
	events []*domain.OutboxEvent

	CreateFunc          func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
	GetUnpublishedFunc  func(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublishedFunc   func(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublishedFunc func(ctx context.Context, before time.Time) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

// Events returns every stored event.
func (m *MockOutboxRepository) Events() []*domain.OutboxEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.OutboxEvent(nil), m.events...)
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	if m.GetUnpublishedFunc != nil {
		return m.GetUnpublishedFunc(ctx, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var events []*domain.OutboxEvent
	for _, e := range m.events {
		if !e.Published && len(events) < limit {
			events = append(events, e)
		}
	}
	return events, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	if m.MarkPublishedFunc != nil {
		return m.MarkPublishedFunc(ctx, id, publishedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			e.Published = true
			at := publishedAt
			e.PublishedAt = &at
		}
	}
	return nil
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	if m.DeletePublishedFunc != nil {
		return m.DeletePublishedFunc(ctx, before)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	for _, e := range m.events {
		if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	mu  sync.Mutex
	txs []*MockTransaction

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	tx := &MockTransaction{}
	m.mu.Lock()
	m.txs = append(m.txs, tx)
	m.mu.Unlock()
	return tx, nil
}

// Transactions returns every transaction begun by the manager.
func (m *MockTransactionManager) Transactions() []*MockTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*MockTransaction(nil), m.txs...)
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error

	Committed bool
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	m.Committed = true
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	Prefix       string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{Prefix: "mock-id-"}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return m.Prefix + strconv.Itoa(m.counter)
}

// MockAccountNumberGenerator is a mock implementation of AccountNumberGenerator.
type MockAccountNumberGenerator struct {
	GenerateFunc func() (string, error)
	counter      int
	mu           sync.Mutex
}

func NewMockAccountNumberGenerator() *MockAccountNumberGenerator {
	return &MockAccountNumberGenerator{}
}

func (m *MockAccountNumberGenerator) Generate() (string, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	n := strconv.Itoa(m.counter)
	return strings.Repeat("0", domain.AccountNumberLength-len(n)) + n, nil
}

// MockCache is a mock implementation of Cache.
type MockCache struct {
	mu   sync.RWMutex
	data map[string][]byte

	GetFunc func(ctx context.Context, key string) ([]byte, error)
	SetFunc func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string][]byte)}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, usecase.ErrCacheMiss
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore.
type MockIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
	ReleaseFunc     func(ctx context.Context, key string) error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	if response != nil {
		m.data[key] = response
	} else {
		m.data[key] = []byte("processing")
	}
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Stored returns the raw value held for key.
func (m *MockIdempotencyStore) Stored(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

// MockMetrics records calls made to a MetricsRecorder.
type MockMetrics struct {
	mu        sync.Mutex
	Completed map[domain.TransactionStatus]int
	Rejected  map[string]int
	Deposits  int
	Created   int
	Deleted   int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		Completed: make(map[domain.TransactionStatus]int),
		Rejected:  make(map[string]int),
	}
}

func (m *MockMetrics) TransferCompleted(status domain.TransactionStatus, amount decimal.Decimal, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Completed[status]++
}

func (m *MockMetrics) TransferRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rejected[reason]++
}

func (m *MockMetrics) DepositCompleted(amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deposits++
}

func (m *MockMetrics) AccountCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Created++
}

func (m *MockMetrics) AccountDeleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted++
}
