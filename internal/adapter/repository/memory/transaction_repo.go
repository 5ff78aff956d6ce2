package memory

import (
	"context"
	"sort"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	store *Store
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(store *Store) *TransactionRepository {
	return &TransactionRepository{store: store}
}

// Create stages an append-only transaction record.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, record *domain.Transaction) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}

	rec := *record
	return t.stage(op{
		apply: func(s *Store) {
			s.transactions = append(s.transactions, &rec)
		},
	})
}

// ListByAccount returns records where the account is source or destination,
// oldest first.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var records []*domain.Transaction
	for _, rec := range r.store.transactions {
		if rec.Involves(accountID) {
			c := *rec
			records = append(records, &c)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.TransactionDate.Equal(b.TransactionDate) {
			return a.TransactionDate.Before(b.TransactionDate)
		}
		return a.ID < b.ID
	})

	return records, nil
}
