package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

type accountServiceStub struct {
	createFn func(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error)
	getFn    func(ctx context.Context, username, id string) (*domain.Account, error)
	searchFn func(ctx context.Context, input usecase.SearchAccountsInput) (*usecase.AccountPage, error)
	renameFn func(ctx context.Context, input usecase.RenameAccountInput) (*domain.Account, error)
	deleteFn func(ctx context.Context, username, id string) error
}

func (s *accountServiceStub) CreateAccount(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error) {
	return s.createFn(ctx, input)
}

func (s *accountServiceStub) GetAccount(ctx context.Context, username, id string) (*domain.Account, error) {
	return s.getFn(ctx, username, id)
}

func (s *accountServiceStub) SearchAccounts(ctx context.Context, input usecase.SearchAccountsInput) (*usecase.AccountPage, error) {
	return s.searchFn(ctx, input)
}

func (s *accountServiceStub) RenameAccount(ctx context.Context, input usecase.RenameAccountInput) (*domain.Account, error) {
	return s.renameFn(ctx, input)
}

func (s *accountServiceStub) DeleteAccount(ctx context.Context, username, id string) error {
	return s.deleteFn(ctx, username, id)
}

func TestAccountHandler_Create_Success(t *testing.T) {
	account := &domain.Account{
		ID:      "acc-1",
		Number:  "1234567890123456",
		Name:    "savings",
		Balance: decimal.Zero,
	}

	var captured usecase.CreateAccountInput
	handler := NewAccountHandler(&accountServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error) {
			captured = input
			return account, nil
		},
	})

	body, _ := json.Marshal(dto.CreateAccountRequest{Name: "savings"})
	req := asUser(httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewReader(body)), "alice", nil)
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.Username != "alice" || captured.Name != "savings" {
		t.Fatalf("expected input to carry caller and name, got %+v", captured)
	}

	var resp dto.AccountResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "acc-1" || resp.Balance != "0.000000" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestAccountHandler_Create_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		user       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "malformed body", body: "{", user: "alice", wantStatus: http.StatusBadRequest, wantCode: dto.CodeInvalidRequest},
		{name: "unregistered caller", body: `{"name":"x"}`, user: "alice", err: domain.ErrUserNotFound, wantStatus: http.StatusNotFound, wantCode: dto.CodeNotFound},
		{name: "duplicate name", body: `{"name":"x"}`, user: "alice", err: domain.ErrAccountNameTaken, wantStatus: http.StatusConflict, wantCode: dto.CodeAlreadyExists},
		{name: "invalid name", body: `{"name":""}`, user: "alice", err: domain.ErrInvalidAccountName, wantStatus: http.StatusBadRequest, wantCode: dto.CodeInvalidRequest},
		{name: "no principal", body: `{"name":"x"}`, wantStatus: http.StatusUnauthorized, wantCode: dto.CodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAccountHandler(&accountServiceStub{
				createFn: func(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error) {
					return nil, tt.err
				},
			})

			req := asUser(httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewBufferString(tt.body)), tt.user, nil)
			rec := httptest.NewRecorder()
			handler.Create(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if got := decodeError(t, rec).Code; got != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, got)
			}
		})
	}
}

func TestAccountHandler_Get(t *testing.T) {
	handler := NewAccountHandler(&accountServiceStub{
		getFn: func(ctx context.Context, username, id string) (*domain.Account, error) {
			if username != "alice" || id != "acc-1" {
				return nil, domain.ErrAccountNotFound
			}
			return &domain.Account{ID: id, Balance: decimal.RequireFromString("12.5")}, nil
		},
	})

	rec := httptest.NewRecorder()
	handler.Get(rec, asUser(httptest.NewRequest(http.MethodGet, "/accounts/acc-1", nil), "alice", map[string]string{"id": "acc-1"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp dto.AccountResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Balance != "12.500000" {
		t.Errorf("expected balance at money scale, got %s", resp.Balance)
	}

	rec = httptest.NewRecorder()
	handler.Get(rec, asUser(httptest.NewRequest(http.MethodGet, "/accounts/acc-1", nil), "bob", map[string]string{"id": "acc-1"}))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign account should be 404, got %d", rec.Code)
	}
}

func TestAccountHandler_List(t *testing.T) {
	var captured usecase.SearchAccountsInput
	handler := NewAccountHandler(&accountServiceStub{
		searchFn: func(ctx context.Context, input usecase.SearchAccountsInput) (*usecase.AccountPage, error) {
			captured = input
			return &usecase.AccountPage{
				Accounts: []*domain.Account{{ID: "acc-1"}, {ID: "acc-2"}},
				Total:    7,
				Limit:    2,
				Offset:   4,
			}, nil
		},
	})

	req := asUser(httptest.NewRequest(http.MethodGet, "/accounts?name=sav&number=12&limit=2&offset=4", nil), "alice", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	want := usecase.SearchAccountsInput{Username: "alice", Name: "sav", Number: "12", Limit: 2, Offset: 4}
	if captured != want {
		t.Fatalf("expected %+v, got %+v", want, captured)
	}

	var resp dto.ListAccountsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Accounts) != 2 || resp.Total != 7 || resp.Offset != 4 {
		t.Fatalf("unexpected page %+v", resp)
	}
}

func TestAccountHandler_Update(t *testing.T) {
	var captured usecase.RenameAccountInput
	handler := NewAccountHandler(&accountServiceStub{
		renameFn: func(ctx context.Context, input usecase.RenameAccountInput) (*domain.Account, error) {
			captured = input
			return &domain.Account{ID: input.AccountID, Name: input.Name}, nil
		},
	})

	req := asUser(httptest.NewRequest(http.MethodPut, "/accounts/acc-1", bytes.NewBufferString(`{"name":"travel"}`)), "alice", map[string]string{"id": "acc-1"})
	rec := httptest.NewRecorder()
	handler.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if captured.AccountID != "acc-1" || captured.Name != "travel" || captured.Username != "alice" {
		t.Fatalf("unexpected rename input %+v", captured)
	}
}

func TestAccountHandler_Delete(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "deleted", wantStatus: http.StatusNoContent},
		{name: "non-zero balance", err: domain.ErrAccountHasBalance, wantStatus: http.StatusConflict},
		{name: "missing", err: domain.ErrAccountNotFound, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAccountHandler(&accountServiceStub{
				deleteFn: func(ctx context.Context, username, id string) error {
					return tt.err
				},
			})

			rec := httptest.NewRecorder()
			handler.Delete(rec, asUser(httptest.NewRequest(http.MethodDelete, "/accounts/acc-1", nil), "alice", map[string]string{"id": "acc-1"}))

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}
