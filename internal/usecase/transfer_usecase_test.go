package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
	"github.com/iho/bankledger/internal/usecase/gomocks"
	"github.com/iho/bankledger/internal/usecase/mocks"
)

type ledgerFixture struct {
	accRepo    *mocks.MockAccountRepository
	txRepo     *mocks.MockTransactionRepository
	userRepo   *mocks.MockUserRepository
	outboxRepo *mocks.MockOutboxRepository
	txMgr      *mocks.MockTransactionManager
	metrics    *mocks.MockMetrics
	users      *usecase.UserUseCase
	transfers  *usecase.TransferUseCase
}

func newLedgerFixture() *ledgerFixture {
	f := &ledgerFixture{
		accRepo:    mocks.NewMockAccountRepository(),
		txRepo:     mocks.NewMockTransactionRepository(),
		userRepo:   mocks.NewMockUserRepository(),
		outboxRepo: mocks.NewMockOutboxRepository(),
		txMgr:      mocks.NewMockTransactionManager(),
		metrics:    mocks.NewMockMetrics(),
	}

	f.userRepo.Put(&domain.User{ID: "user-alice", Username: "alice"})
	f.userRepo.Put(&domain.User{ID: "user-bob", Username: "bob"})

	f.users = usecase.NewUserUseCase(f.userRepo, mocks.NewMockIDGenerator())
	f.transfers = usecase.NewTransferUseCase(f.txMgr, f.users, f.accRepo, f.txRepo, f.outboxRepo, mocks.NewMockIDGenerator()).
		WithMetrics(f.metrics)

	return f
}

func (f *ledgerFixture) seed(id, owner, balance string) {
	f.accRepo.Put(&domain.Account{
		ID:      id,
		Number:  "000000000000000" + id[len(id)-1:],
		Name:    "account " + id,
		OwnerID: owner,
		Balance: decimal.RequireFromString(balance),
	})
}

func TestTransferUseCase_Transfer(t *testing.T) {
	tests := []struct {
		name        string
		input       usecase.TransferInput
		wantStatus  domain.TransactionStatus
		wantErr     error
		wantFrom    string
		wantTo      string
		wantRecords int
	}{
		{
			name:        "successful transfer",
			input:       usecase.TransferInput{Username: "alice", FromAccountID: "acc-1", ToAccountID: "acc-2", Amount: decimal.RequireFromString("30")},
			wantStatus:  domain.TransactionStatusSuccess,
			wantFrom:    "70",
			wantTo:      "30",
			wantRecords: 1,
		},
		{
			name:        "exact balance drains the source",
			input:       usecase.TransferInput{Username: "alice", FromAccountID: "acc-1", ToAccountID: "acc-2", Amount: decimal.RequireFromString("100")},
			wantStatus:  domain.TransactionStatusSuccess,
			wantFrom:    "0",
			wantTo:      "100",
			wantRecords: 1,
		},
		{
			name:        "insufficient funds records a failed transaction",
			input:       usecase.TransferInput{Username: "alice", FromAccountID: "acc-1", ToAccountID: "acc-2", Amount: decimal.RequireFromString("100.000001")},
			wantStatus:  domain.TransactionStatusFailed,
			wantFrom:    "100",
			wantTo:      "0",
			wantRecords: 1,
		},
		{
			name:     "reject same account transfer",
			input:    usecase.TransferInput{Username: "alice", FromAccountID: "acc-1", ToAccountID: "acc-1", Amount: decimal.RequireFromString("1")},
			wantErr:  domain.ErrSameAccount,
			wantFrom: "100",
			wantTo:   "0",
		},
		{
			name:     "reject zero amount",
			input:    usecase.TransferInput{Username: "alice", FromAccountID: "acc-1", ToAccountID: "acc-2", Amount: decimal.Zero},
			wantErr:  domain.ErrInvalidAmount,
			wantFrom: "100",
			wantTo:   "0",
		},
		{
			name:     "reject negative amount",
			input:    usecase.TransferInput{Username: "alice", FromAccountID: "acc-1", ToAccountID: "acc-2", Amount: decimal.RequireFromString("-5")},
			wantErr:  domain.ErrInvalidAmount,
			wantFrom: "100",
			wantTo:   "0",
		},
		{
			name:     "reject sub-micro precision",
			input:    usecase.TransferInput{Username: "alice", FromAccountID: "acc-1", ToAccountID: "acc-2", Amount: decimal.RequireFromString("0.0000001")},
			wantErr:  domain.ErrAmountTooPrecise,
			wantFrom: "100",
			wantTo:   "0",
		},
		{
			name:     "unknown user",
			input:    usecase.TransferInput{Username: "mallory", FromAccountID: "acc-1", ToAccountID: "acc-2", Amount: decimal.RequireFromString("1")},
			wantErr:  domain.ErrUserNotFound,
			wantFrom: "100",
			wantTo:   "0",
		},
		{
			name:     "destination owned by someone else",
			input:    usecase.TransferInput{Username: "alice", FromAccountID: "acc-1", ToAccountID: "acc-9", Amount: decimal.RequireFromString("1")},
			wantErr:  domain.ErrAccountNotFound,
			wantFrom: "100",
			wantTo:   "0",
		},
		{
			name:     "source owned by someone else",
			input:    usecase.TransferInput{Username: "bob", FromAccountID: "acc-1", ToAccountID: "acc-9", Amount: decimal.RequireFromString("1")},
			wantErr:  domain.ErrAccountNotFound,
			wantFrom: "100",
			wantTo:   "0",
		},
		{
			name:     "missing account",
			input:    usecase.TransferInput{Username: "alice", FromAccountID: "acc-1", ToAccountID: "acc-404", Amount: decimal.RequireFromString("1")},
			wantErr:  domain.ErrAccountNotFound,
			wantFrom: "100",
			wantTo:   "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLedgerFixture()
			f.seed("acc-1", "user-alice", "100")
			f.seed("acc-2", "user-alice", "0")
			f.seed("acc-9", "user-bob", "50")

			outcome, err := f.transfers.Transfer(context.Background(), tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				if outcome != nil {
					t.Errorf("expected nil outcome, got %+v", outcome)
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if outcome.Status != tt.wantStatus {
					t.Errorf("expected status %s, got %s", tt.wantStatus, outcome.Status)
				}
				if outcome.Transaction.Status != tt.wantStatus {
					t.Errorf("record status %s does not match outcome %s", outcome.Transaction.Status, tt.wantStatus)
				}
				if !outcome.Transaction.Amount.Equal(tt.input.Amount) {
					t.Errorf("expected amount %s, got %s", tt.input.Amount, outcome.Transaction.Amount)
				}
			}

			if got := f.accRepo.Get("acc-1").Balance; !got.Equal(decimal.RequireFromString(tt.wantFrom)) {
				t.Errorf("expected source balance %s, got %s", tt.wantFrom, got)
			}
			if got := f.accRepo.Get("acc-2").Balance; !got.Equal(decimal.RequireFromString(tt.wantTo)) {
				t.Errorf("expected destination balance %s, got %s", tt.wantTo, got)
			}
			if got := f.accRepo.Get("acc-9").Balance; !got.Equal(decimal.RequireFromString("50")) {
				t.Errorf("foreign account balance changed to %s", got)
			}
			if got := len(f.txRepo.All()); got != tt.wantRecords {
				t.Errorf("expected %d transaction records, got %d", tt.wantRecords, got)
			}
			if got := len(f.outboxRepo.Events()); got != tt.wantRecords {
				t.Errorf("expected %d outbox events, got %d", tt.wantRecords, got)
			}
		})
	}
}

func TestTransferUseCase_FailedOutcomeCarriesReason(t *testing.T) {
	f := newLedgerFixture()
	f.seed("acc-1", "user-alice", "10")
	f.seed("acc-2", "user-alice", "0")

	outcome, err := f.transfers.Transfer(context.Background(), usecase.TransferInput{
		Username: "alice", FromAccountID: "acc-1", ToAccountID: "acc-2", Amount: decimal.RequireFromString("11"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.Succeeded() {
		t.Fatal("expected failed outcome")
	}
	if outcome.Reason != domain.InsufficientFundsReason {
		t.Errorf("expected reason %q, got %q", domain.InsufficientFundsReason, outcome.Reason)
	}

	records := f.txRepo.All()
	if len(records) != 1 || records[0].Status != domain.TransactionStatusFailed {
		t.Fatalf("expected one FAILED record, got %+v", records)
	}
	if records[0].ID != outcome.Transaction.ID {
		t.Errorf("record id %s does not match outcome id %s", records[0].ID, outcome.Transaction.ID)
	}

	events := f.outboxRepo.Events()
	if events[0].EventType != domain.EventTypeTransferFailed {
		t.Errorf("expected %s event, got %s", domain.EventTypeTransferFailed, events[0].EventType)
	}

	txs := f.txMgr.Transactions()
	if len(txs) != 1 || !txs[0].Committed {
		t.Error("failed outcome must still be committed")
	}

	if f.metrics.Completed[domain.TransactionStatusFailed] != 1 {
		t.Errorf("expected one failed completion metric, got %v", f.metrics.Completed)
	}
}

func TestTransferUseCase_LocksInSortedOrder(t *testing.T) {
	f := newLedgerFixture()
	f.seed("acc-1", "user-alice", "100")
	f.seed("acc-2", "user-alice", "0")

	var locked []string
	f.accRepo.GetByIDsForUpdateFunc = func(ctx context.Context, tx usecase.Transaction, ownerID string, ids []string) ([]*domain.Account, error) {
		locked = append([]string(nil), ids...)
		return []*domain.Account{f.accRepo.Get("acc-1"), f.accRepo.Get("acc-2")}, nil
	}

	_, err := f.transfers.Transfer(context.Background(), usecase.TransferInput{
		Username: "alice", FromAccountID: "acc-2", ToAccountID: "acc-1", Amount: decimal.RequireFromString("1"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(locked) != 2 || locked[0] != "acc-1" || locked[1] != "acc-2" {
		t.Errorf("expected lock order [acc-1 acc-2], got %v", locked)
	}
}

func TestTransferUseCase_StorageFailureLeavesNoRecord(t *testing.T) {
	f := newLedgerFixture()
	f.seed("acc-1", "user-alice", "100")
	f.seed("acc-2", "user-alice", "0")

	storageErr := errors.New("connection reset")
	f.outboxRepo.CreateFunc = func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
		return storageErr
	}

	outcome, err := f.transfers.Transfer(context.Background(), usecase.TransferInput{
		Username: "alice", FromAccountID: "acc-1", ToAccountID: "acc-2", Amount: decimal.RequireFromString("1"),
	})
	if !errors.Is(err, storageErr) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if outcome != nil {
		t.Errorf("expected nil outcome, got %+v", outcome)
	}

	for _, tx := range f.txMgr.Transactions() {
		if tx.Committed {
			t.Error("transaction must not commit after a storage failure")
		}
	}

	if f.metrics.Rejected["internal"] != 1 {
		t.Errorf("expected internal rejection metric, got %v", f.metrics.Rejected)
	}
}

func TestTransferUseCase_RetriesThroughRetrier(t *testing.T) {
	f := newLedgerFixture()
	f.seed("acc-1", "user-alice", "100")
	f.seed("acc-2", "user-alice", "0")

	retrier := &countingRetrier{}
	f.transfers.WithRetrier(retrier)

	if _, err := f.transfers.Transfer(context.Background(), usecase.TransferInput{
		Username: "alice", FromAccountID: "acc-1", ToAccountID: "acc-2", Amount: decimal.RequireFromString("1"),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if retrier.calls != 1 {
		t.Errorf("expected retrier to wrap the attempt once, got %d", retrier.calls)
	}
}

func TestTransferUseCase_ConcurrentUpdateSurfaces(t *testing.T) {
	f := newLedgerFixture()
	f.seed("acc-1", "user-alice", "100")
	f.seed("acc-2", "user-alice", "0")

	f.transfers.WithRetrier(exhaustedRetrier{})

	_, err := f.transfers.Transfer(context.Background(), usecase.TransferInput{
		Username: "alice", FromAccountID: "acc-1", ToAccountID: "acc-2", Amount: decimal.RequireFromString("1"),
	})
	if !errors.Is(err, domain.ErrConcurrentUpdate) {
		t.Fatalf("expected ErrConcurrentUpdate, got %v", err)
	}
	if f.metrics.Rejected["concurrent_update"] != 1 {
		t.Errorf("expected concurrent_update rejection metric, got %v", f.metrics.Rejected)
	}
}

func TestTransferUseCase_Deposit(t *testing.T) {
	f := newLedgerFixture()
	f.seed("acc-1", "user-alice", "1.5")
	f.seed("acc-9", "user-bob", "0")

	account, err := f.transfers.Deposit(context.Background(), usecase.DepositInput{
		Username: "alice", AccountID: "acc-1", Amount: decimal.RequireFromString("2.25"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !account.Balance.Equal(decimal.RequireFromString("3.75")) {
		t.Errorf("expected balance 3.75, got %s", account.Balance)
	}
	if got := f.accRepo.Get("acc-1").Balance; !got.Equal(decimal.RequireFromString("3.75")) {
		t.Errorf("expected stored balance 3.75, got %s", got)
	}

	events := f.outboxRepo.Events()
	if len(events) != 1 || events[0].EventType != domain.EventTypeAccountDeposited {
		t.Fatalf("expected one deposit event, got %+v", events)
	}
	if events[0].Payload["amount"] != "2.250000" {
		t.Errorf("expected amount 2.250000 in payload, got %v", events[0].Payload["amount"])
	}

	if len(f.txRepo.All()) != 0 {
		t.Error("deposits must not create transfer records")
	}

	if _, err := f.transfers.Deposit(context.Background(), usecase.DepositInput{
		Username: "alice", AccountID: "acc-9", Amount: decimal.RequireFromString("1"),
	}); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound for foreign account, got %v", err)
	}

	if _, err := f.transfers.Deposit(context.Background(), usecase.DepositInput{
		Username: "alice", AccountID: "acc-1", Amount: decimal.Zero,
	}); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}

	if f.metrics.Deposits != 1 {
		t.Errorf("expected one deposit metric, got %d", f.metrics.Deposits)
	}
}

type countingRetrier struct {
	calls int
}

func (r *countingRetrier) Retry(ctx context.Context, op func() error) error {
	r.calls++
	return op()
}

type exhaustedRetrier struct{}

func (exhaustedRetrier) Retry(ctx context.Context, op func() error) error {
	return domain.ErrConcurrentUpdate
}

func TestTransferUseCase_CommitFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	users := gomocks.NewMockUserResolver(ctrl)
	accRepo := gomocks.NewMockAccountRepository(ctrl)
	txRepo := gomocks.NewMockTransactionRepository(ctrl)
	outboxRepo := gomocks.NewMockOutboxRepository(ctrl)
	txMgr := gomocks.NewMockTransactionManager(ctrl)
	tx := gomocks.NewMockTransaction(ctrl)
	idGen := gomocks.NewMockIDGenerator(ctrl)

	commitErr := errors.New("commit failed")

	users.EXPECT().ResolveUser(gomock.Any(), "alice").Return(&domain.User{ID: "user-alice"}, nil)
	txMgr.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	accRepo.EXPECT().GetByIDsForUpdate(gomock.Any(), tx, "user-alice", []string{"a", "b"}).Return([]*domain.Account{
		{ID: "a", OwnerID: "user-alice", Balance: decimal.NewFromInt(10)},
		{ID: "b", OwnerID: "user-alice", Balance: decimal.Zero},
	}, nil)
	accRepo.EXPECT().UpdateBalance(gomock.Any(), tx, "a", decimalEq("7"), gomock.Any()).Return(nil)
	accRepo.EXPECT().UpdateBalance(gomock.Any(), tx, "b", decimalEq("3"), gomock.Any()).Return(nil)
	idGen.EXPECT().Generate().Return("id").Times(2)
	txRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(nil)
	outboxRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(nil)
	tx.EXPECT().Commit(gomock.Any()).Return(commitErr)
	tx.EXPECT().Rollback(gomock.Any()).Return(nil)

	uc := usecase.NewTransferUseCase(txMgr, users, accRepo, txRepo, outboxRepo, idGen)

	_, err := uc.Transfer(context.Background(), usecase.TransferInput{
		Username: "alice", FromAccountID: "a", ToAccountID: "b", Amount: decimal.NewFromInt(3),
	})
	if !errors.Is(err, commitErr) {
		t.Fatalf("expected commit error, got %v", err)
	}
}

type decimalMatcher struct {
	want decimal.Decimal
}

func decimalEq(s string) gomock.Matcher {
	return decimalMatcher{want: decimal.RequireFromString(s)}
}

func (m decimalMatcher) Matches(x any) bool {
	d, ok := x.(decimal.Decimal)
	return ok && d.Equal(m.want)
}

func (m decimalMatcher) String() string {
	return "is decimal " + m.want.String()
}
