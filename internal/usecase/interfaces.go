package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// AccountFilter narrows an owner-scoped account search.
type AccountFilter struct {
	OwnerID string
	Name    string
	Number  string
	Limit   int
	Offset  int
}

// AccountRepository defines data access for accounts.
// Every read is scoped to the owning user.
type AccountRepository interface {
	Create(ctx context.Context, tx Transaction, account *domain.Account) error
	GetByIDAndOwner(ctx context.Context, id, ownerID string) (*domain.Account, error)
	// GetByIDsForUpdate locks the owned subset of ids in ascending id order.
	// Ids the owner does not hold are silently left out of the result.
	GetByIDsForUpdate(ctx context.Context, tx Transaction, ownerID string, ids []string) ([]*domain.Account, error)
	UpdateBalance(ctx context.Context, tx Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error
	UpdateName(ctx context.Context, id, ownerID, name string, updatedAt time.Time) (*domain.Account, error)
	Delete(ctx context.Context, tx Transaction, id, ownerID string) error
	Search(ctx context.Context, filter AccountFilter) ([]*domain.Account, int64, error)
}

// TransactionRepository defines data access for transfer records.
// Records are append-only.
type TransactionRepository interface {
	Create(ctx context.Context, tx Transaction, record *domain.Transaction) error
	ListByAccount(ctx context.Context, accountID string) ([]*domain.Transaction, error)
}

// UserRepository defines data access for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// UserResolver maps an authenticated username to a stored user.
type UserResolver interface {
	ResolveUser(ctx context.Context, username string) (*domain.User, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient storage conflicts.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// AccountNumberGenerator generates candidate account numbers.
type AccountNumberGenerator interface {
	Generate() (string, error)
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a key whose request did not complete, so it can be retried.
	Release(ctx context.Context, key string) error
}

// MetricsRecorder receives ledger outcomes.
type MetricsRecorder interface {
	TransferCompleted(status domain.TransactionStatus, amount decimal.Decimal, elapsed time.Duration)
	TransferRejected(reason string)
	DepositCompleted(amount decimal.Decimal)
	AccountCreated()
	AccountDeleted()
}

type nopMetrics struct{}

func (nopMetrics) TransferCompleted(domain.TransactionStatus, decimal.Decimal, time.Duration) {}
func (nopMetrics) TransferRejected(string)                                                   {}
func (nopMetrics) DepositCompleted(decimal.Decimal)                                          {}
func (nopMetrics) AccountCreated()                                                           {}
func (nopMetrics) AccountDeleted()                                                           {}

type singleAttempt struct{}

func (singleAttempt) Retry(_ context.Context, operation func() error) error {
	return operation()
}
