package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// TransferUseCase is the ledger engine: it moves money between two accounts
// of the same owner and records every attempt.
type TransferUseCase struct {
	txManager       TransactionManager
	users           UserResolver
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	outboxRepo      OutboxRepository
	idGen           IDGenerator
	eventIDGen      IDGenerator
	retrier         Retrier
	metrics         MetricsRecorder
}

// NewTransferUseCase creates a new TransferUseCase.
func NewTransferUseCase(
	txManager TransactionManager,
	users UserResolver,
	accountRepo AccountRepository,
	transactionRepo TransactionRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
) *TransferUseCase {
	return &TransferUseCase{
		txManager:       txManager,
		users:           users,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		outboxRepo:      outboxRepo,
		idGen:           idGen,
		eventIDGen:      idGen,
		retrier:         singleAttempt{},
		metrics:         nopMetrics{},
	}
}

// WithRetrier sets the retrier used for lock conflicts.
func (uc *TransferUseCase) WithRetrier(r Retrier) *TransferUseCase {
	if r != nil {
		uc.retrier = r
	}
	return uc
}

// WithMetrics sets the metrics recorder.
func (uc *TransferUseCase) WithMetrics(m MetricsRecorder) *TransferUseCase {
	if m != nil {
		uc.metrics = m
	}
	return uc
}

// WithEventIDGenerator sets the generator for outbox event IDs.
func (uc *TransferUseCase) WithEventIDGenerator(g IDGenerator) *TransferUseCase {
	if g != nil {
		uc.eventIDGen = g
	}
	return uc
}

// TransferInput represents input for a transfer between two owned accounts.
type TransferInput struct {
	Username      string
	FromAccountID string
	ToAccountID   string
	Amount        decimal.Decimal
}

// Transfer moves Amount from one owned account to another.
//
// A decided transfer always returns an outcome and persists a transaction
// record: SUCCESS when money moved, FAILED with a reason when the source
// balance was too low. Errors are reserved for lookups that fail, conflicts
// that outlast the retrier, and storage failures; none of them leave a record.
func (uc *TransferUseCase) Transfer(ctx context.Context, input TransferInput) (*domain.TransferOutcome, error) {
	start := time.Now()

	outcome, err := uc.transfer(ctx, input)
	if err != nil {
		uc.metrics.TransferRejected(rejectionReason(err))
		return nil, err
	}

	uc.metrics.TransferCompleted(outcome.Status, outcome.Transaction.Amount, time.Since(start))

	return outcome, nil
}

func (uc *TransferUseCase) transfer(ctx context.Context, input TransferInput) (*domain.TransferOutcome, error) {
	// 0. Validate inputs before starting transaction
	if input.FromAccountID == input.ToAccountID {
		return nil, domain.ErrSameAccount
	}

	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	user, err := uc.users.ResolveUser(ctx, input.Username)
	if err != nil {
		return nil, err
	}

	var outcome *domain.TransferOutcome
	err = uc.retrier.Retry(ctx, func() error {
		var attemptErr error
		outcome, attemptErr = uc.attemptTransfer(ctx, user.ID, input)
		return attemptErr
	})
	if err != nil {
		return nil, err
	}

	return outcome, nil
}

func (uc *TransferUseCase) attemptTransfer(ctx context.Context, ownerID string, input TransferInput) (*domain.TransferOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	// 1. Sort account IDs (DEADLOCK PREVENTION)
	accountIDs := []string{input.FromAccountID, input.ToAccountID}
	sort.Strings(accountIDs)

	// 2. Begin transaction
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// 3. Lock both accounts in sorted order, scoped to the owner
	accounts, err := uc.accountRepo.GetByIDsForUpdate(ctx, tx, ownerID, accountIDs)
	if err != nil {
		return nil, err
	}

	if len(accounts) != len(accountIDs) {
		return nil, domain.ErrAccountNotFound
	}

	accountMap := buildAccountMap(accounts)
	fromAccount := accountMap[input.FromAccountID]
	toAccount := accountMap[input.ToAccountID]

	if fromAccount == nil || toAccount == nil {
		return nil, domain.ErrAccountNotFound
	}

	// 4. Decide
	now := time.Now().UTC()
	record := &domain.Transaction{
		ID:              uc.idGen.Generate(),
		FromAccountID:   fromAccount.ID,
		ToAccountID:     toAccount.ID,
		Amount:          domain.RoundMoney(input.Amount),
		TransactionDate: now,
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}

	outcome := &domain.TransferOutcome{Transaction: record}

	if !fromAccount.HasSufficientFunds(record.Amount) {
		record.Status = domain.TransactionStatusFailed
		outcome.Status = domain.TransactionStatusFailed
		outcome.Reason = domain.InsufficientFundsReason
	} else {
		err = uc.accountRepo.UpdateBalance(ctx, tx, fromAccount.ID, fromAccount.ApplyDebit(record.Amount), now)
		if err != nil {
			return nil, err
		}

		err = uc.accountRepo.UpdateBalance(ctx, tx, toAccount.ID, toAccount.ApplyCredit(record.Amount), now)
		if err != nil {
			return nil, err
		}

		record.Status = domain.TransactionStatusSuccess
		outcome.Status = domain.TransactionStatusSuccess
	}

	// 5. Record the attempt and its event in the same unit of work
	if err := uc.transactionRepo.Create(ctx, tx, record); err != nil {
		return nil, err
	}

	if err := uc.outboxRepo.Create(ctx, tx, domain.NewTransferEvent(uc.eventIDGen.Generate(), outcome, now)); err != nil {
		return nil, err
	}

	// 6. Commit transaction
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return outcome, nil
}

// DepositInput represents input for funding an owned account.
type DepositInput struct {
	Username  string
	AccountID string
	Amount    decimal.Decimal
}

// Deposit credits an owned account under the same row lock transfers take.
func (uc *TransferUseCase) Deposit(ctx context.Context, input DepositInput) (*domain.Account, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	user, err := uc.users.ResolveUser(ctx, input.Username)
	if err != nil {
		return nil, err
	}

	amount := domain.RoundMoney(input.Amount)

	var account *domain.Account
	err = uc.retrier.Retry(ctx, func() error {
		var attemptErr error
		account, attemptErr = uc.attemptDeposit(ctx, user.ID, input.AccountID, amount)
		return attemptErr
	})
	if err != nil {
		return nil, err
	}

	uc.metrics.DepositCompleted(amount)

	return account, nil
}

func (uc *TransferUseCase) attemptDeposit(ctx context.Context, ownerID, accountID string, amount decimal.Decimal) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	accounts, err := uc.accountRepo.GetByIDsForUpdate(ctx, tx, ownerID, []string{accountID})
	if err != nil {
		return nil, err
	}

	if len(accounts) != 1 {
		return nil, domain.ErrAccountNotFound
	}

	account := accounts[0]
	now := time.Now().UTC()

	newBalance := account.ApplyCredit(amount)
	if err := uc.accountRepo.UpdateBalance(ctx, tx, account.ID, newBalance, now); err != nil {
		return nil, err
	}

	account.Balance = newBalance
	account.Version++
	account.UpdatedAt = now

	event := domain.NewAccountEvent(uc.eventIDGen.Generate(), domain.EventTypeAccountDeposited, account, amount.StringFixed(domain.MoneyScale), now)
	if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return account, nil
}

func buildAccountMap(accounts []*domain.Account) map[string]*domain.Account {
	m := make(map[string]*domain.Account, len(accounts))
	for _, a := range accounts {
		m[a.ID] = a
	}

	return m
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, domain.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, domain.ErrConcurrentUpdate):
		return "concurrent_update"
	case errors.Is(err, domain.ErrSameAccount),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrAmountTooPrecise),
		errors.Is(err, domain.ErrAmountTooLarge):
		return "validation"
	default:
		return "internal"
	}
}
