package dto

import (
	"errors"
	"time"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// ErrInvalidRequest marks malformed request payloads.
var ErrInvalidRequest = errors.New("invalid request")

// Application error codes carried in ErrorResponse.Code.
const (
	CodeInternal          = "APP0000"
	CodeInvalidRequest    = "APP0001"
	CodeUserAlreadyExists = "APP0002"
	CodeNotFound          = "APP0003"
	CodeAlreadyExists     = "APP0004"
	CodeNotEnoughMoney    = "APP0005"
	CodeConcurrentUpdate  = "APP0006"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID        string    `json:"id"`
	Number    string    `json:"number"`
	Name      string    `json:"name"`
	Balance   string    `json:"balance"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:        a.ID,
		Number:    a.Number,
		Name:      a.Name,
		Balance:   a.Balance.StringFixed(domain.MoneyScale),
		Version:   a.Version,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse is one page of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int64              `json:"total"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
}

// AccountPageFromUseCase converts a search page to response.
func AccountPageFromUseCase(p *usecase.AccountPage) *ListAccountsResponse {
	return &ListAccountsResponse{
		Accounts: AccountsFromDomain(p.Accounts),
		Total:    p.Total,
		Limit:    p.Limit,
		Offset:   p.Offset,
	}
}

// TransactionResponse represents one history entry.
type TransactionResponse struct {
	ID              string    `json:"id"`
	FromAccountID   string    `json:"from_account_id"`
	ToAccountID     string    `json:"to_account_id"`
	Amount          string    `json:"amount"`
	TransactionDate time.Time `json:"transaction_date"`
	Status          string    `json:"status"`
}

// TransactionFromDomain converts domain transaction to response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:              t.ID,
		FromAccountID:   t.FromAccountID,
		ToAccountID:     t.ToAccountID,
		Amount:          t.Amount.StringFixed(domain.MoneyScale),
		TransactionDate: t.TransactionDate,
		Status:          string(t.Status),
	}
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(records []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(records))
	for i, t := range records {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// TransferFailedResponse is returned with 422 when the source lacked funds.
type TransferFailedResponse struct {
	Code          string `json:"code"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason"`
}

// TransferFailedFromOutcome converts a FAILED outcome to response.
func TransferFailedFromOutcome(o *domain.TransferOutcome) *TransferFailedResponse {
	return &TransferFailedResponse{
		Code:          CodeNotEnoughMoney,
		Status:        string(o.Status),
		TransactionID: o.Transaction.ID,
		Reason:        o.Reason,
	}
}

// UserResponse represents the caller's profile.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UserFromDomain converts domain user to response.
func UserFromDomain(u *domain.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Code      string    `json:"code"`
	Errors    []string  `json:"errors"`
}
