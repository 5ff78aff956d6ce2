package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// TransferService defines the money-moving behavior needed by TransferHandler.
type TransferService interface {
	Transfer(ctx context.Context, input usecase.TransferInput) (*domain.TransferOutcome, error)
	Deposit(ctx context.Context, input usecase.DepositInput) (*domain.Account, error)
}

// HistoryService lists the transactions touching an account.
type HistoryService interface {
	History(ctx context.Context, username, accountID string) ([]*domain.Transaction, error)
}

// TransferHandler handles transfer, deposit and history requests.
type TransferHandler struct {
	transferUC TransferService
	historyUC  HistoryService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferUC TransferService, historyUC HistoryService) *TransferHandler {
	return &TransferHandler{transferUC: transferUC, historyUC: historyUC}
}

// Transfer moves money between two of the caller's accounts. A transfer
// refused for lack of funds is still recorded and answered with 422.
func (h *TransferHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	username, ok := callerUsername(w, r)
	if !ok {
		return
	}

	var req dto.TransferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	input, err := req.ToUseCaseInput(username)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	outcome, err := h.transferUC.Transfer(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if !outcome.Succeeded() {
		writeJSON(w, http.StatusUnprocessableEntity, dto.TransferFailedFromOutcome(outcome))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Deposit credits one of the caller's accounts.
func (h *TransferHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	username, ok := callerUsername(w, r)
	if !ok {
		return
	}

	var req dto.DepositRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	input, err := req.ToUseCaseInput(username, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	account, err := h.transferUC.Deposit(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// History lists every transaction touching the account, failed ones included.
func (h *TransferHandler) History(w http.ResponseWriter, r *http.Request) {
	username, ok := callerUsername(w, r)
	if !ok {
		return
	}

	records, err := h.historyUC.History(r.Context(), username, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionsFromDomain(records))
}
