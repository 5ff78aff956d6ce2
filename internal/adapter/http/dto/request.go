package dto

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// CreateAccountRequest represents a request to create an account.
type CreateAccountRequest struct {
	Name string `json:"name"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput(username string) usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		Username: username,
		Name:     r.Name,
	}
}

// UpdateAccountRequest renames an account.
type UpdateAccountRequest struct {
	Name string `json:"name"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateAccountRequest) ToUseCaseInput(username, accountID string) usecase.RenameAccountInput {
	return usecase.RenameAccountInput{
		Username:  username,
		AccountID: accountID,
		Name:      r.Name,
	}
}

// TransferRequest represents a request to move money between two owned accounts.
type TransferRequest struct {
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
	Amount        string `json:"amount"`
}

// ToUseCaseInput converts to use case input.
func (r *TransferRequest) ToUseCaseInput(username string) (usecase.TransferInput, error) {
	if strings.TrimSpace(r.FromAccountID) == "" || strings.TrimSpace(r.ToAccountID) == "" {
		return usecase.TransferInput{}, fmt.Errorf("%w: from_account_id and to_account_id are required", ErrInvalidRequest)
	}

	amount, err := parseAmount(r.Amount)
	if err != nil {
		return usecase.TransferInput{}, err
	}

	return usecase.TransferInput{
		Username:      username,
		FromAccountID: r.FromAccountID,
		ToAccountID:   r.ToAccountID,
		Amount:        amount,
	}, nil
}

// DepositRequest funds an account.
type DepositRequest struct {
	Amount string `json:"amount"`
}

// ToUseCaseInput converts to use case input.
func (r *DepositRequest) ToUseCaseInput(username, accountID string) (usecase.DepositInput, error) {
	amount, err := parseAmount(r.Amount)
	if err != nil {
		return usecase.DepositInput{}, err
	}

	return usecase.DepositInput{
		Username:  username,
		AccountID: accountID,
		Amount:    amount,
	}, nil
}

// RegisterUserRequest carries optional profile data for the caller. The
// username always comes from the token.
type RegisterUserRequest struct {
	Email string `json:"email"`
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: amount is required", ErrInvalidRequest)
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: amount %q is not a number", ErrInvalidRequest, s)
	}

	if err := domain.ValidateAmount(amount); err != nil {
		return decimal.Decimal{}, err
	}

	return amount, nil
}
