package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the recorded result of a transfer attempt.
type TransactionStatus string

const (
	TransactionStatusSuccess TransactionStatus = "SUCCESS"
	TransactionStatusFailed  TransactionStatus = "FAILED"
)

// InsufficientFundsReason is returned with FAILED outcomes.
const InsufficientFundsReason = "not enough money in the source account"

// IsValid checks if the status is a known status.
func (s TransactionStatus) IsValid() bool {
	return s == TransactionStatusSuccess || s == TransactionStatusFailed
}

// Transaction is the immutable record of one transfer attempt.
// Records are written once and never updated or deleted.
type Transaction struct {
	ID              string
	FromAccountID   string
	ToAccountID     string
	Amount          decimal.Decimal
	TransactionDate time.Time
	Status          TransactionStatus
}

// Validate validates transfer request.
func (t *Transaction) Validate() error {
	if t.FromAccountID == t.ToAccountID {
		return ErrSameAccount
	}

	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	return nil
}

// Involves reports whether accountID is the source or destination.
func (t *Transaction) Involves(accountID string) bool {
	return t.FromAccountID == accountID || t.ToAccountID == accountID
}

// TransferOutcome is what the ledger returns for a transfer that reached a
// decision. Insufficient funds is an outcome, not an error.
type TransferOutcome struct {
	Transaction *Transaction
	Status      TransactionStatus
	Reason      string
}

// Succeeded reports whether money moved.
func (o *TransferOutcome) Succeeded() bool {
	return o.Status == TransactionStatusSuccess
}
