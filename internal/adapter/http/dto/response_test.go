package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

func TestAccountFromDomain(t *testing.T) {
	now := time.Now()
	account := &domain.Account{
		ID:        "acc-1",
		Number:    "0000000000000042",
		Name:      "Main",
		Balance:   decimal.RequireFromString("123.45"),
		Version:   2,
		CreatedAt: now,
		UpdatedAt: now,
	}

	resp := AccountFromDomain(account)
	if resp.ID != account.ID || resp.Balance != "123.450000" || resp.Version != 2 || resp.Number != account.Number {
		t.Fatalf("unexpected account response: %+v", resp)
	}

	page := AccountPageFromUseCase(&usecase.AccountPage{Accounts: []*domain.Account{account}, Total: 7, Limit: 1, Offset: 3})
	if len(page.Accounts) != 1 || page.Total != 7 || page.Offset != 3 {
		t.Fatalf("AccountPageFromUseCase returned %+v", page)
	}
}

func TestTransactionsFromDomain(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	records := []*domain.Transaction{
		{ID: "t1", FromAccountID: "a", ToAccountID: "b", Amount: decimal.RequireFromString("0.1"), TransactionDate: now, Status: domain.TransactionStatusSuccess},
		{ID: "t2", FromAccountID: "a", ToAccountID: "b", Amount: decimal.NewFromInt(9), TransactionDate: now, Status: domain.TransactionStatusFailed},
	}

	resp := TransactionsFromDomain(records)
	if len(resp) != 2 || resp[0].Amount != "0.100000" || resp[1].Status != "FAILED" {
		t.Fatalf("unexpected responses %+v %+v", resp[0], resp[1])
	}
}

func TestTransferFailedFromOutcome(t *testing.T) {
	outcome := &domain.TransferOutcome{
		Transaction: &domain.Transaction{ID: "t9"},
		Status:      domain.TransactionStatusFailed,
		Reason:      domain.InsufficientFundsReason,
	}

	body, err := json.Marshal(TransferFailedFromOutcome(outcome))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]string
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded["code"] != "APP0005" || decoded["status"] != "FAILED" || decoded["transaction_id"] != "t9" || decoded["reason"] == "" {
		t.Fatalf("unexpected body %s", body)
	}
}
