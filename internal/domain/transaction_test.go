package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestTransaction_Validate(t *testing.T) {
	tests := []struct {
		name        string
		fromID      string
		toID        string
		amount      decimal.Decimal
		expectError error
	}{
		{
			name:        "valid transfer",
			fromID:      "account-1",
			toID:        "account-2",
			amount:      decimal.NewFromInt(100),
			expectError: nil,
		},
		{
			name:        "same account",
			fromID:      "account-1",
			toID:        "account-1",
			amount:      decimal.NewFromInt(100),
			expectError: ErrSameAccount,
		},
		{
			name:        "zero amount",
			fromID:      "account-1",
			toID:        "account-2",
			amount:      decimal.Zero,
			expectError: ErrInvalidAmount,
		},
		{
			name:        "negative amount",
			fromID:      "account-1",
			toID:        "account-2",
			amount:      decimal.NewFromInt(-100),
			expectError: ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &Transaction{
				FromAccountID: tt.fromID,
				ToAccountID:   tt.toID,
				Amount:        tt.amount,
			}

			err := tx.Validate()

			if tt.expectError == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.expectError != nil && err != tt.expectError {
				t.Errorf("expected error %v, got %v", tt.expectError, err)
			}
		})
	}
}

func TestTransaction_Involves(t *testing.T) {
	tx := &Transaction{FromAccountID: "a", ToAccountID: "b"}

	if !tx.Involves("a") || !tx.Involves("b") {
		t.Error("expected both sides to be involved")
	}
	if tx.Involves("c") {
		t.Error("expected unrelated account not to be involved")
	}
}

func TestTransactionStatus_IsValid(t *testing.T) {
	if !TransactionStatusSuccess.IsValid() || !TransactionStatusFailed.IsValid() {
		t.Error("expected SUCCESS and FAILED to be valid")
	}
	if TransactionStatus("PENDING").IsValid() {
		t.Error("expected PENDING to be invalid")
	}
}

func TestNewTransferEvent(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	outcome := &TransferOutcome{
		Transaction: &Transaction{
			ID:            "tx-1",
			FromAccountID: "a",
			ToAccountID:   "b",
			Amount:        decimal.RequireFromString("40"),
			Status:        TransactionStatusFailed,
		},
		Status: TransactionStatusFailed,
		Reason: InsufficientFundsReason,
	}

	event := NewTransferEvent("evt-1", outcome, now)

	if event.EventType != EventTypeTransferFailed {
		t.Errorf("expected %s, got %s", EventTypeTransferFailed, event.EventType)
	}
	if event.AggregateID != "tx-1" || event.AggregateType != AggregateTypeTransaction {
		t.Errorf("unexpected aggregate %s/%s", event.AggregateType, event.AggregateID)
	}
	if event.Payload["amount"] != "40.000000" {
		t.Errorf("expected fixed scale amount, got %v", event.Payload["amount"])
	}
	if event.Payload["reason"] != InsufficientFundsReason {
		t.Errorf("expected reason in payload, got %v", event.Payload["reason"])
	}
}
