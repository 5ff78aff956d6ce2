package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
	"github.com/iho/bankledger/internal/usecase/mocks"
)

func newAccountUseCase(f *ledgerFixture, numbers usecase.AccountNumberGenerator) *usecase.AccountUseCase {
	return usecase.NewAccountUseCase(f.txMgr, f.users, f.accRepo, f.outboxRepo, mocks.NewMockIDGenerator(), numbers).
		WithMetrics(f.metrics)
}

func TestAccountUseCase_CreateAccount(t *testing.T) {
	tests := []struct {
		name      string
		input     usecase.CreateAccountInput
		wantErr   error
		wantName  string
		setupMock func(*ledgerFixture)
	}{
		{
			name:     "successful creation",
			input:    usecase.CreateAccountInput{Username: "alice", Name: "Savings"},
			wantName: "Savings",
		},
		{
			name:     "name is trimmed",
			input:    usecase.CreateAccountInput{Username: "alice", Name: "  Holiday fund "},
			wantName: "Holiday fund",
		},
		{
			name:    "empty name",
			input:   usecase.CreateAccountInput{Username: "alice", Name: "   "},
			wantErr: domain.ErrInvalidAccountName,
		},
		{
			name:    "name too long",
			input:   usecase.CreateAccountInput{Username: "alice", Name: strings.Repeat("a", domain.MaxAccountNameLength+1)},
			wantErr: domain.ErrInvalidAccountName,
		},
		{
			name:    "unregistered caller",
			input:   usecase.CreateAccountInput{Username: "mallory", Name: "Savings"},
			wantErr: domain.ErrUserNotFound,
		},
		{
			name:  "duplicate name for owner",
			input: usecase.CreateAccountInput{Username: "alice", Name: "Savings"},
			setupMock: func(f *ledgerFixture) {
				f.accRepo.CreateFunc = func(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
					return domain.ErrAccountNameTaken
				}
			},
			wantErr: domain.ErrAccountNameTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLedgerFixture()
			if tt.setupMock != nil {
				tt.setupMock(f)
			}
			uc := newAccountUseCase(f, mocks.NewMockAccountNumberGenerator())

			account, err := uc.CreateAccount(context.Background(), tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				if f.metrics.Created != 0 {
					t.Error("failed creation must not be counted")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if account.Name != tt.wantName {
				t.Errorf("expected name %q, got %q", tt.wantName, account.Name)
			}
			if account.OwnerID != "user-alice" {
				t.Errorf("expected owner user-alice, got %s", account.OwnerID)
			}
			if !account.Balance.IsZero() {
				t.Errorf("expected zero balance, got %s", account.Balance)
			}
			if len(account.Number) != domain.AccountNumberLength {
				t.Errorf("expected %d-digit number, got %q", domain.AccountNumberLength, account.Number)
			}

			events := f.outboxRepo.Events()
			if len(events) != 1 || events[0].EventType != domain.EventTypeAccountCreated {
				t.Errorf("expected one account.created event, got %+v", events)
			}
			if f.metrics.Created != 1 {
				t.Errorf("expected one creation metric, got %d", f.metrics.Created)
			}
		})
	}
}

func TestAccountUseCase_CreateAccount_RegeneratesTakenNumber(t *testing.T) {
	f := newLedgerFixture()

	attempts := 0
	f.accRepo.CreateFunc = func(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
		attempts++
		if attempts < 3 {
			return domain.ErrAccountNumberTaken
		}
		f.accRepo.Put(account)
		return nil
	}

	numbers := mocks.NewMockAccountNumberGenerator()
	uc := newAccountUseCase(f, numbers)

	account, err := uc.CreateAccount(context.Background(), usecase.CreateAccountInput{Username: "alice", Name: "Main"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 insert attempts, got %d", attempts)
	}
	if account.Number != "0000000000000003" {
		t.Errorf("expected third generated number, got %s", account.Number)
	}
}

func TestAccountUseCase_CreateAccount_GivesUpOnNumberExhaustion(t *testing.T) {
	f := newLedgerFixture()
	f.accRepo.CreateFunc = func(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
		return domain.ErrAccountNumberTaken
	}

	uc := newAccountUseCase(f, mocks.NewMockAccountNumberGenerator())

	_, err := uc.CreateAccount(context.Background(), usecase.CreateAccountInput{Username: "alice", Name: "Main"})
	if !errors.Is(err, domain.ErrAccountNumberTaken) {
		t.Fatalf("expected ErrAccountNumberTaken, got %v", err)
	}
}

func TestAccountUseCase_GetAccount(t *testing.T) {
	f := newLedgerFixture()
	f.seed("acc-1", "user-alice", "12.5")
	f.seed("acc-9", "user-bob", "1")
	uc := newAccountUseCase(f, mocks.NewMockAccountNumberGenerator())

	account, err := uc.GetAccount(context.Background(), "alice", "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !account.Balance.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("expected balance 12.5, got %s", account.Balance)
	}

	if _, err := uc.GetAccount(context.Background(), "alice", "acc-9"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound for foreign account, got %v", err)
	}
	if _, err := uc.GetAccount(context.Background(), "alice", "acc-404"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound for missing account, got %v", err)
	}
}

func TestAccountUseCase_SearchAccounts(t *testing.T) {
	f := newLedgerFixture()
	f.accRepo.Put(&domain.Account{ID: "acc-1", Number: "1111222233334444", Name: "Travel Fund", OwnerID: "user-alice"})
	f.accRepo.Put(&domain.Account{ID: "acc-2", Number: "5555666677778888", Name: "Rent", OwnerID: "user-alice"})
	f.accRepo.Put(&domain.Account{ID: "acc-3", Number: "1111000000000000", Name: "Travel", OwnerID: "user-bob"})
	uc := newAccountUseCase(f, mocks.NewMockAccountNumberGenerator())

	tests := []struct {
		name    string
		input   usecase.SearchAccountsInput
		wantIDs []string
	}{
		{name: "all owned", input: usecase.SearchAccountsInput{Username: "alice"}, wantIDs: []string{"acc-1", "acc-2"}},
		{name: "name fragment any case", input: usecase.SearchAccountsInput{Username: "alice", Name: "travel"}, wantIDs: []string{"acc-1"}},
		{name: "number fragment", input: usecase.SearchAccountsInput{Username: "alice", Number: "6666"}, wantIDs: []string{"acc-2"}},
		{name: "other owner", input: usecase.SearchAccountsInput{Username: "bob", Number: "1111"}, wantIDs: []string{"acc-3"}},
		{name: "no match", input: usecase.SearchAccountsInput{Username: "alice", Name: "nothing"}, wantIDs: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := uc.SearchAccounts(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(page.Accounts) != len(tt.wantIDs) {
				t.Fatalf("expected %d accounts, got %d", len(tt.wantIDs), len(page.Accounts))
			}
			for i, id := range tt.wantIDs {
				if page.Accounts[i].ID != id {
					t.Errorf("expected account %s at %d, got %s", id, i, page.Accounts[i].ID)
				}
			}
			if page.Limit != 50 {
				t.Errorf("expected default limit 50, got %d", page.Limit)
			}
		})
	}
}

func TestAccountUseCase_RenameAccount(t *testing.T) {
	f := newLedgerFixture()
	f.seed("acc-1", "user-alice", "40")
	uc := newAccountUseCase(f, mocks.NewMockAccountNumberGenerator())

	account, err := uc.RenameAccount(context.Background(), usecase.RenameAccountInput{Username: "alice", AccountID: "acc-1", Name: "Renamed"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.Name != "Renamed" {
		t.Errorf("expected name Renamed, got %s", account.Name)
	}
	if !account.Balance.Equal(decimal.NewFromInt(40)) {
		t.Errorf("rename must not touch balance, got %s", account.Balance)
	}

	if _, err := uc.RenameAccount(context.Background(), usecase.RenameAccountInput{Username: "bob", AccountID: "acc-1", Name: "Mine"}); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound for foreign account, got %v", err)
	}
	if _, err := uc.RenameAccount(context.Background(), usecase.RenameAccountInput{Username: "alice", AccountID: "acc-1", Name: ""}); !errors.Is(err, domain.ErrInvalidAccountName) {
		t.Errorf("expected ErrInvalidAccountName, got %v", err)
	}
}

func TestAccountUseCase_DeleteAccount(t *testing.T) {
	tests := []struct {
		name     string
		username string
		id       string
		wantErr  error
	}{
		{name: "empty account is deleted", username: "alice", id: "acc-empty"},
		{name: "funded account is kept", username: "alice", id: "acc-funded", wantErr: domain.ErrAccountHasBalance},
		{name: "foreign account", username: "bob", id: "acc-empty", wantErr: domain.ErrAccountNotFound},
		{name: "missing account", username: "alice", id: "acc-404", wantErr: domain.ErrAccountNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLedgerFixture()
			f.seed("acc-empty", "user-alice", "0")
			f.seed("acc-funded", "user-alice", "0.000001")
			uc := newAccountUseCase(f, mocks.NewMockAccountNumberGenerator())

			err := uc.DeleteAccount(context.Background(), tt.username, tt.id)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				if len(f.outboxRepo.Events()) != 0 {
					t.Error("rejected deletion must not emit events")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f.accRepo.Get(tt.id) != nil {
				t.Error("account still present after delete")
			}
			events := f.outboxRepo.Events()
			if len(events) != 1 || events[0].EventType != domain.EventTypeAccountDeleted {
				t.Errorf("expected one account.deleted event, got %+v", events)
			}
			if f.metrics.Deleted != 1 {
				t.Errorf("expected one deletion metric, got %d", f.metrics.Deleted)
			}
		})
	}
}

func TestAccountUseCase_DeleteKeepsHistory(t *testing.T) {
	f := newLedgerFixture()
	f.seed("acc-1", "user-alice", "5")
	f.seed("acc-2", "user-alice", "0")
	accounts := newAccountUseCase(f, mocks.NewMockAccountNumberGenerator())
	history := usecase.NewHistoryUseCase(f.users, f.accRepo, f.txRepo)

	ctx := context.Background()
	if _, err := f.transfers.Transfer(ctx, usecase.TransferInput{Username: "alice", FromAccountID: "acc-1", ToAccountID: "acc-2", Amount: decimal.NewFromInt(5)}); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if err := accounts.DeleteAccount(ctx, "alice", "acc-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	records, err := history.History(ctx, "alice", "acc-2")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(records) != 1 || records[0].FromAccountID != "acc-1" {
		t.Errorf("expected the transfer from the deleted account to remain, got %+v", records)
	}
}
