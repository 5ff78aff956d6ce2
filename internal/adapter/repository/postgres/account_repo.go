package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/postgres/generated"
	"github.com/iho/bankledger/internal/usecase"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	queries *generated.Queries
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db generated.DBTX) *AccountRepository {
	return &AccountRepository{
		queries: generated.New(db),
	}
}

// Create inserts a new account.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	err = queries.CreateAccount(ctx, generated.CreateAccountParams{
		ID:        account.ID,
		Number:    account.Number,
		Name:      account.Name,
		OwnerID:   account.OwnerID,
		Balance:   decimalToNumeric(account.Balance),
		Version:   account.Version,
		CreatedAt: timeToPgTimestamptz(account.CreatedAt),
		UpdatedAt: timeToPgTimestamptz(account.UpdatedAt),
	})

	return mapAccountWriteError(err)
}

// GetByIDAndOwner retrieves an account by ID, scoped to its owner.
func (r *AccountRepository) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*domain.Account, error) {
	row, err := r.queries.GetAccountByIDAndOwner(ctx, generated.GetAccountByIDAndOwnerParams{
		ID:      id,
		OwnerID: ownerID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return rowToAccount(row), nil
}

// GetByIDsForUpdate retrieves the owner's accounts among ids with FOR UPDATE
// locks, taken in id order.
func (r *AccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ownerID string, ids []string) ([]*domain.Account, error) {
	queries, err := queriesFor(tx)
	if err != nil {
		return nil, err
	}

	rows, err := queries.GetAccountsByIDsForUpdate(ctx, generated.GetAccountsByIDsForUpdateParams{
		OwnerID: ownerID,
		Column2: ids,
	})
	if err != nil {
		return nil, err
	}

	accounts := make([]*domain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, rowToAccount(row))
	}

	return accounts, nil
}

// UpdateBalance updates the balance of an account.
func (r *AccountRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	return queries.UpdateAccountBalance(ctx, generated.UpdateAccountBalanceParams{
		ID:        id,
		Balance:   decimalToNumeric(balance),
		UpdatedAt: timeToPgTimestamptz(updatedAt),
	})
}

// UpdateName renames an owned account.
func (r *AccountRepository) UpdateName(ctx context.Context, id, ownerID, name string, updatedAt time.Time) (*domain.Account, error) {
	row, err := r.queries.UpdateAccountName(ctx, generated.UpdateAccountNameParams{
		ID:        id,
		OwnerID:   ownerID,
		Name:      name,
		UpdatedAt: timeToPgTimestamptz(updatedAt),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, mapAccountWriteError(err)
	}

	return rowToAccount(row), nil
}

// Delete removes an owned account.
func (r *AccountRepository) Delete(ctx context.Context, tx usecase.Transaction, id, ownerID string) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	n, err := queries.DeleteAccount(ctx, generated.DeleteAccountParams{ID: id, OwnerID: ownerID})
	if err != nil {
		return err
	}

	if n == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

// Search lists owned accounts matching case-insensitive fragments.
func (r *AccountRepository) Search(ctx context.Context, filter usecase.AccountFilter) ([]*domain.Account, int64, error) {
	name := likeEscaper.Replace(filter.Name)
	number := likeEscaper.Replace(filter.Number)

	total, err := r.queries.CountSearchAccounts(ctx, generated.CountSearchAccountsParams{
		OwnerID:      filter.OwnerID,
		NameFilter:   name,
		NumberFilter: number,
	})
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.queries.SearchAccounts(ctx, generated.SearchAccountsParams{
		OwnerID:      filter.OwnerID,
		NameFilter:   name,
		NumberFilter: number,
		PageLimit:    int32(filter.Limit),
		PageOffset:   int32(filter.Offset),
	})
	if err != nil {
		return nil, 0, err
	}

	accounts := make([]*domain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, rowToAccount(row))
	}

	return accounts, total, nil
}

func mapAccountWriteError(err error) error {
	constraint, ok := uniqueViolation(err)
	if !ok {
		return err
	}

	switch constraint {
	case constraintAccountNumber:
		return domain.ErrAccountNumberTaken
	case constraintAccountOwnerName:
		return domain.ErrAccountNameTaken
	default:
		return err
	}
}

func rowToAccount(row generated.Account) *domain.Account {
	return &domain.Account{
		ID:        row.ID,
		Number:    row.Number,
		Name:      row.Name,
		OwnerID:   row.OwnerID,
		Balance:   numericToDecimal(row.Balance),
		Version:   row.Version,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
}
