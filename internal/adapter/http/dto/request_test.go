package dto

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

func TestCreateAccountRequest_ToUseCaseInput(t *testing.T) {
	req := &CreateAccountRequest{Name: "Savings"}

	got := req.ToUseCaseInput("alice")
	want := usecase.CreateAccountInput{Username: "alice", Name: "Savings"}

	if got != want {
		t.Fatalf("ToUseCaseInput() = %+v, want %+v", got, want)
	}
}

func TestUpdateAccountRequest_ToUseCaseInput(t *testing.T) {
	req := &UpdateAccountRequest{Name: "Renamed"}

	got := req.ToUseCaseInput("alice", "acc-1")
	want := usecase.RenameAccountInput{Username: "alice", AccountID: "acc-1", Name: "Renamed"}

	if got != want {
		t.Fatalf("ToUseCaseInput() = %+v, want %+v", got, want)
	}
}

func TestTransferRequest_ToUseCaseInput(t *testing.T) {
	tests := []struct {
		name    string
		request *TransferRequest
		want    usecase.TransferInput
		wantErr error
	}{
		{
			name:    "valid amount",
			request: &TransferRequest{FromAccountID: "from", ToAccountID: "to", Amount: "12.34"},
			want: usecase.TransferInput{
				Username:      "alice",
				FromAccountID: "from",
				ToAccountID:   "to",
				Amount:        decimal.RequireFromString("12.34"),
			},
		},
		{
			name:    "not a number",
			request: &TransferRequest{FromAccountID: "from", ToAccountID: "to", Amount: "bad"},
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "missing amount",
			request: &TransferRequest{FromAccountID: "from", ToAccountID: "to"},
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "missing account",
			request: &TransferRequest{FromAccountID: "from", Amount: "1"},
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "zero amount",
			request: &TransferRequest{FromAccountID: "from", ToAccountID: "to", Amount: "0"},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "seven decimals",
			request: &TransferRequest{FromAccountID: "from", ToAccountID: "to", Amount: "0.0000001"},
			wantErr: domain.ErrAmountTooPrecise,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.request.ToUseCaseInput("alice")

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got.Username != tt.want.Username || got.FromAccountID != tt.want.FromAccountID ||
				got.ToAccountID != tt.want.ToAccountID || !got.Amount.Equal(tt.want.Amount) {
				t.Fatalf("ToUseCaseInput() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDepositRequest_ToUseCaseInput(t *testing.T) {
	got, err := (&DepositRequest{Amount: " 100.5 "}).ToUseCaseInput("alice", "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.AccountID != "acc-1" || got.Username != "alice" || !got.Amount.Equal(decimal.RequireFromString("100.5")) {
		t.Fatalf("unexpected input %+v", got)
	}

	if _, err := (&DepositRequest{Amount: "-1"}).ToUseCaseInput("alice", "acc-1"); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}
