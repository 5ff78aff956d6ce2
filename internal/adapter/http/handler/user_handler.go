package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// UserService defines the behavior needed by UserHandler.
type UserService interface {
	Register(ctx context.Context, input usecase.RegisterUserInput) (*domain.User, error)
	ResolveUser(ctx context.Context, username string) (*domain.User, error)
}

// UserHandler exposes the caller's own user record.
type UserHandler struct {
	userUC UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userUC UserService) *UserHandler {
	return &UserHandler{userUC: userUC}
}

// Register records the caller as a ledger user. The body is optional.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	username, ok := callerUsername(w, r)
	if !ok {
		return
	}

	var req dto.RegisterUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, dto.CodeInvalidRequest, "malformed request body")
		return
	}

	user, err := h.userUC.Register(r.Context(), usecase.RegisterUserInput{
		Username: username,
		Email:    req.Email,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.UserFromDomain(user))
}

// Me returns the caller's user record.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	username, ok := callerUsername(w, r)
	if !ok {
		return
	}

	user, err := h.userUC.ResolveUser(r.Context(), username)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.UserFromDomain(user))
}
