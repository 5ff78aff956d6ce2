package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	CreateAccount(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error)
	GetAccount(ctx context.Context, username, id string) (*domain.Account, error)
	SearchAccounts(ctx context.Context, input usecase.SearchAccountsInput) (*usecase.AccountPage, error)
	RenameAccount(ctx context.Context, input usecase.RenameAccountInput) (*domain.Account, error)
	DeleteAccount(ctx context.Context, username, id string) error
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accountUC AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC AccountService) *AccountHandler {
	return &AccountHandler{accountUC: accountUC}
}

// Create opens a new account for the caller.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	username, ok := callerUsername(w, r)
	if !ok {
		return
	}

	var req dto.CreateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	account, err := h.accountUC.CreateAccount(r.Context(), req.ToUseCaseInput(username))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// Get retrieves one of the caller's accounts.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	username, ok := callerUsername(w, r)
	if !ok {
		return
	}

	account, err := h.accountUC.GetAccount(r.Context(), username, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// List searches the caller's accounts by name and number substrings.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	username, ok := callerUsername(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	page, err := h.accountUC.SearchAccounts(r.Context(), usecase.SearchAccountsInput{
		Username: username,
		Name:     query.Get("name"),
		Number:   query.Get("number"),
		Limit:    parseIntQuery(r, "limit", 0),
		Offset:   parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountPageFromUseCase(page))
}

// Update renames one of the caller's accounts.
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	username, ok := callerUsername(w, r)
	if !ok {
		return
	}

	var req dto.UpdateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	account, err := h.accountUC.RenameAccount(r.Context(), req.ToUseCaseInput(username, chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// Delete removes one of the caller's accounts. Only empty accounts can go.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	username, ok := callerUsername(w, r)
	if !ok {
		return
	}

	if err := h.accountUC.DeleteAccount(r.Context(), username, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
