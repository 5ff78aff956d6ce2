package postgres

import (
	"context"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/postgres/generated"
	"github.com/iho/bankledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	queries *generated.Queries
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db generated.DBTX) *TransactionRepository {
	return &TransactionRepository{
		queries: generated.New(db),
	}
}

// Create inserts a transfer record.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, record *domain.Transaction) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	return queries.CreateTransaction(ctx, generated.CreateTransactionParams{
		ID:              record.ID,
		FromAccountID:   record.FromAccountID,
		ToAccountID:     record.ToAccountID,
		Amount:          decimalToNumeric(record.Amount),
		TransactionDate: timeToPgTimestamptz(record.TransactionDate),
		Status:          string(record.Status),
	})
}

// ListByAccount lists records touching the account, oldest first.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.Transaction, error) {
	rows, err := r.queries.ListTransactionsByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	records := make([]*domain.Transaction, 0, len(rows))
	for _, row := range rows {
		records = append(records, &domain.Transaction{
			ID:              row.ID,
			FromAccountID:   row.FromAccountID,
			ToAccountID:     row.ToAccountID,
			Amount:          numericToDecimal(row.Amount),
			TransactionDate: row.TransactionDate.Time,
			Status:          domain.TransactionStatus(row.Status),
		})
	}

	return records, nil
}
