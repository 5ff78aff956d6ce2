package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// AccountUseCase handles account business logic.
type AccountUseCase struct {
	txManager   TransactionManager
	users       UserResolver
	accountRepo AccountRepository
	outboxRepo  OutboxRepository
	idGen       IDGenerator
	eventIDGen  IDGenerator
	numberGen   AccountNumberGenerator
	retrier     Retrier
	metrics     MetricsRecorder
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(
	txManager TransactionManager,
	users UserResolver,
	accountRepo AccountRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	numberGen AccountNumberGenerator,
) *AccountUseCase {
	return &AccountUseCase{
		txManager:   txManager,
		users:       users,
		accountRepo: accountRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
		eventIDGen:  idGen,
		numberGen:   numberGen,
		retrier:     singleAttempt{},
		metrics:     nopMetrics{},
	}
}

// WithRetrier sets the retrier used for lock conflicts.
func (uc *AccountUseCase) WithRetrier(r Retrier) *AccountUseCase {
	if r != nil {
		uc.retrier = r
	}
	return uc
}

// WithMetrics sets the metrics recorder.
func (uc *AccountUseCase) WithMetrics(m MetricsRecorder) *AccountUseCase {
	if m != nil {
		uc.metrics = m
	}
	return uc
}

// WithEventIDGenerator sets the generator for outbox event IDs.
func (uc *AccountUseCase) WithEventIDGenerator(g IDGenerator) *AccountUseCase {
	if g != nil {
		uc.eventIDGen = g
	}
	return uc
}

// CreateAccountInput represents input for creating an account.
type CreateAccountInput struct {
	Username string
	Name     string
}

// CreateAccount creates a new zero-balance account with a fresh number.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	name := strings.TrimSpace(input.Name)
	if err := domain.ValidateAccountName(name); err != nil {
		return nil, err
	}

	user, err := uc.users.ResolveUser(ctx, input.Username)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxAccountNumberAttempts; attempt++ {
		number, err := uc.numberGen.Generate()
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		account := &domain.Account{
			ID:        uc.idGen.Generate(),
			Number:    number,
			Name:      name,
			OwnerID:   user.ID,
			Balance:   decimal.Zero,
			Version:   0,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err = uc.insertAccount(ctx, account)
		if errors.Is(err, domain.ErrAccountNumberTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}

		uc.metrics.AccountCreated()

		return account, nil
	}

	return nil, domain.ErrAccountNumberTaken
}

func (uc *AccountUseCase) insertAccount(ctx context.Context, account *domain.Account) error {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := uc.accountRepo.Create(ctx, tx, account); err != nil {
		return err
	}

	event := domain.NewAccountEvent(uc.eventIDGen.Generate(), domain.EventTypeAccountCreated, account, "", account.CreatedAt)
	if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetAccount retrieves an owned account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, username, id string) (*domain.Account, error) {
	user, err := uc.users.ResolveUser(ctx, username)
	if err != nil {
		return nil, err
	}

	return uc.accountRepo.GetByIDAndOwner(ctx, id, user.ID)
}

// SearchAccountsInput represents input for searching accounts.
type SearchAccountsInput struct {
	Username string
	Name     string
	Number   string
	Limit    int
	Offset   int
}

// AccountPage is one page of search results.
type AccountPage struct {
	Accounts []*domain.Account
	Total    int64
	Limit    int
	Offset   int
}

// SearchAccounts lists the caller's accounts, optionally filtered by a
// case-insensitive name or number fragment.
func (uc *AccountUseCase) SearchAccounts(ctx context.Context, input SearchAccountsInput) (*AccountPage, error) {
	user, err := uc.users.ResolveUser(ctx, input.Username)
	if err != nil {
		return nil, err
	}

	limit, offset, _ := domain.ValidatePagination(input.Limit, input.Offset)

	accounts, total, err := uc.accountRepo.Search(ctx, AccountFilter{
		OwnerID: user.ID,
		Name:    strings.TrimSpace(input.Name),
		Number:  strings.TrimSpace(input.Number),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return nil, err
	}

	return &AccountPage{
		Accounts: accounts,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	}, nil
}

// RenameAccountInput represents input for renaming an account.
type RenameAccountInput struct {
	Username  string
	AccountID string
	Name      string
}

// RenameAccount changes the display name. Balances cannot be edited here.
func (uc *AccountUseCase) RenameAccount(ctx context.Context, input RenameAccountInput) (*domain.Account, error) {
	name := strings.TrimSpace(input.Name)
	if err := domain.ValidateAccountName(name); err != nil {
		return nil, err
	}

	user, err := uc.users.ResolveUser(ctx, input.Username)
	if err != nil {
		return nil, err
	}

	return uc.accountRepo.UpdateName(ctx, input.AccountID, user.ID, name, time.Now().UTC())
}

// DeleteAccount removes an empty owned account. Its transaction history is kept.
func (uc *AccountUseCase) DeleteAccount(ctx context.Context, username, id string) error {
	user, err := uc.users.ResolveUser(ctx, username)
	if err != nil {
		return err
	}

	err = uc.retrier.Retry(ctx, func() error {
		return uc.attemptDelete(ctx, user.ID, id)
	})
	if err != nil {
		return err
	}

	uc.metrics.AccountDeleted()

	return nil
}

func (uc *AccountUseCase) attemptDelete(ctx context.Context, ownerID, id string) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	accounts, err := uc.accountRepo.GetByIDsForUpdate(ctx, tx, ownerID, []string{id})
	if err != nil {
		return err
	}

	if len(accounts) != 1 {
		return domain.ErrAccountNotFound
	}

	account := accounts[0]
	if err := account.ValidateDeletion(); err != nil {
		return err
	}

	if err := uc.accountRepo.Delete(ctx, tx, id, ownerID); err != nil {
		return err
	}

	now := time.Now().UTC()
	event := domain.NewAccountEvent(uc.eventIDGen.Generate(), domain.EventTypeAccountDeleted, account, "", now)
	if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
