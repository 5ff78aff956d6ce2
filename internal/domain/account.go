package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// MoneyScale is the number of fractional digits kept for amounts and balances.
	MoneyScale = 6

	// AccountNumberLength is the number of digits in a generated account number.
	AccountNumberLength = 16
)

// Account represents a balance-bearing account owned by a single user.
type Account struct {
	ID        string
	Number    string
	Name      string
	OwnerID   string
	Balance   decimal.Decimal
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasSufficientFunds reports whether the account can be debited by amount
// without going negative.
func (a *Account) HasSufficientFunds(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}

// ApplyDebit returns new balance after debit.
func (a *Account) ApplyDebit(amount decimal.Decimal) decimal.Decimal {
	return RoundMoney(a.Balance.Sub(amount))
}

// ApplyCredit returns new balance after credit.
func (a *Account) ApplyCredit(amount decimal.Decimal) decimal.Decimal {
	return RoundMoney(a.Balance.Add(amount))
}

// ValidateDeletion checks that the account holds no money.
func (a *Account) ValidateDeletion() error {
	if !a.Balance.IsZero() {
		return ErrAccountHasBalance
	}
	return nil
}

// RoundMoney rounds d to MoneyScale fractional digits.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}
