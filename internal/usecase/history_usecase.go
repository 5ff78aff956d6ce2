package usecase

import (
	"context"

	"github.com/iho/bankledger/internal/domain"
)

// HistoryUseCase reads the transaction history of an owned account.
type HistoryUseCase struct {
	users           UserResolver
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
}

// NewHistoryUseCase creates a new HistoryUseCase.
func NewHistoryUseCase(users UserResolver, accountRepo AccountRepository, transactionRepo TransactionRepository) *HistoryUseCase {
	return &HistoryUseCase{
		users:           users,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
	}
}

// History returns every SUCCESS and FAILED transaction where the account is
// source or destination, oldest first.
func (uc *HistoryUseCase) History(ctx context.Context, username, accountID string) ([]*domain.Transaction, error) {
	user, err := uc.users.ResolveUser(ctx, username)
	if err != nil {
		return nil, err
	}

	if _, err := uc.accountRepo.GetByIDAndOwner(ctx, accountID, user.ID); err != nil {
		return nil, err
	}

	return uc.transactionRepo.ListByAccount(ctx, accountID)
}
